package notify

import (
	"log"
	"sync"

	"gopkg.in/gomail.v2"
)

// Message is one outgoing email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Notifier delivers confirmation emails best-effort from a background
// worker. Enqueue never blocks a request and delivery failures are logged,
// never surfaced: mail is not part of the registration contract.
type Notifier struct {
	queue  chan Message
	dialer *gomail.Dialer
	from   string

	once sync.Once
	done chan struct{}
}

// New builds a Notifier. With an empty host the notifier runs in discard
// mode, which keeps local development working without an SMTP server.
func New(host string, port int, username, password, from string) *Notifier {
	n := &Notifier{
		queue: make(chan Message, 64),
		from:  from,
		done:  make(chan struct{}),
	}
	if host != "" {
		n.dialer = gomail.NewDialer(host, port, username, password)
	}
	go n.run()
	return n
}

// Enqueue hands a message to the worker. A full queue drops the message;
// a slow mail server must not back-pressure registrations.
func (n *Notifier) Enqueue(msg Message) {
	select {
	case n.queue <- msg:
	default:
		log.Printf("notify: queue full, dropping mail to %s", msg.To)
	}
}

// Close stops the worker after draining queued messages.
func (n *Notifier) Close() {
	n.once.Do(func() {
		close(n.queue)
		<-n.done
	})
}

func (n *Notifier) run() {
	defer close(n.done)
	for msg := range n.queue {
		if n.dialer == nil {
			continue
		}
		m := gomail.NewMessage()
		m.SetHeader("From", n.from)
		m.SetHeader("To", msg.To)
		m.SetHeader("Subject", msg.Subject)
		m.SetBody("text/plain", msg.Body)
		if err := n.dialer.DialAndSend(m); err != nil {
			log.Printf("notify: send to %s failed: %v", msg.To, err)
		}
	}
}
