package models

import "time"

// RegistrationStatus is the lifecycle state of a registration.
type RegistrationStatus string

const (
	RegistrationPending    RegistrationStatus = "pending"
	RegistrationConfirmed  RegistrationStatus = "confirmed"
	RegistrationCancelled  RegistrationStatus = "cancelled"
	RegistrationWaitlisted RegistrationStatus = "waitlisted"
)

// AttendanceStatus records whether a player actually showed up.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceLate    AttendanceStatus = "late"
)

// Registration is a player's request to attend a session.
// A given email may register at most once per session.
type Registration struct {
	ID          uint   `gorm:"primaryKey"`
	SessionID   uint   `gorm:"not null;index;uniqueIndex:idx_registrations_session_email"`
	UserID      *uint  `gorm:"index"`
	PlayerName  string `gorm:"size:255;not null"`
	PlayerEmail string `gorm:"size:255;not null;uniqueIndex:idx_registrations_session_email"`
	Phone       string `gorm:"size:50"`

	Experience     Difficulty `gorm:"size:50"`
	CharacterName  string     `gorm:"size:255"`
	CharacterClass string     `gorm:"size:255"`

	SpecialRequests     string
	DietaryRestrictions string

	Status       RegistrationStatus `gorm:"size:50;not null;default:'pending';index"`
	RegisteredAt time.Time          `gorm:"not null"`
	ConfirmedAt  *time.Time
	Attendance   *AttendanceStatus `gorm:"size:50"`
	Notes        string

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
