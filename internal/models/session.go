package models

import "time"

// GameType classifies the kind of event a session hosts.
type GameType string

const (
	GameTypeRolePlay    GameType = "role-play"
	GameTypeMurderParty GameType = "murder-party"
	GameTypeBoardGame   GameType = "board-game"
)

// Valid reports whether the game type is one of the known values.
func (g GameType) Valid() bool {
	switch g {
	case GameTypeRolePlay, GameTypeMurderParty, GameTypeBoardGame:
		return true
	}
	return false
}

// Difficulty grades a session (and, on registrations, a player's experience).
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
	DifficultyExpert       Difficulty = "expert"
)

// SessionStatus is the lifecycle state of a session.
type SessionStatus string

const (
	SessionPlanned    SessionStatus = "planned"
	SessionInProgress SessionStatus = "in-progress"
	SessionCompleted  SessionStatus = "completed"
	SessionCancelled  SessionStatus = "cancelled"
)

// Session represents a scheduled game event with a fixed player capacity.
//
// CurrentPlayers is derived: it always equals the number of confirmed
// registrations for the session and is only ever written by a recount,
// never incremented in place.
type Session struct {
	ID              uint       `gorm:"primaryKey"`
	Name            string     `gorm:"size:255;not null"`
	GameType        GameType   `gorm:"size:50;not null;index"`
	OrganizerID     *uint      `gorm:"index"`
	OrganizerName   string     `gorm:"size:255"`
	StartsAt        time.Time  `gorm:"not null;index"`
	DurationMinutes int        `gorm:"not null;default:180"`
	MaxPlayers      int        `gorm:"not null;default:5"`
	CurrentPlayers  int        `gorm:"not null;default:0"`
	Location        string     `gorm:"size:255"`
	Difficulty      Difficulty `gorm:"size:50;not null;default:'beginner'"`

	Description     string
	Synopsis        string
	TriggerWarnings string
	SafetyTools     string
	Prerequisites   string
	AdditionalInfo  string

	BannerImage     string `gorm:"size:512"`
	BackgroundImage string `gorm:"size:512"`

	Status               SessionStatus `gorm:"size:50;not null;default:'planned';index"`
	Visible              bool          `gorm:"not null;default:true"`
	RequiresApproval     bool          `gorm:"not null;default:true"`
	RegistrationDeadline *time.Time

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	Registrations []Registration `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE"`
}
