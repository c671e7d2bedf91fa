package notify

import "testing"

func TestEnqueueNeverBlocks(t *testing.T) {
	n := New("", 0, "", "", "noreply@example.com")
	defer n.Close()

	// Far more messages than the queue holds; surplus is dropped, the
	// caller must never stall.
	for i := 0; i < 1000; i++ {
		n.Enqueue(Message{To: "p@example.com", Subject: "s", Body: "b"})
	}
}

func TestCloseDrains(t *testing.T) {
	n := New("", 0, "", "", "noreply@example.com")
	n.Enqueue(Message{To: "p@example.com", Subject: "s", Body: "b"})
	n.Close()
	// Close twice is safe.
	n.Close()
}
