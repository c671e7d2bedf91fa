package models

import "time"

// User represents an account in the system. Organizers are ordinary users
// referenced by a session's OrganizerID; admins carry the "admin" role.
type User struct {
	ID           uint      `gorm:"primaryKey"`
	Nickname     string    `gorm:"size:255;unique;not null"`
	Email        string    `gorm:"size:255;unique;not null"`
	PasswordHash string    `gorm:"size:255;not null"`
	Role         string    `gorm:"size:50;not null;default:'user';index"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool { return u.Role == "admin" }
