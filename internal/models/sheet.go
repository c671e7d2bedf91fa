package models

import "time"

// CharacterSheet is the metadata record for an uploaded character sheet file.
// The file itself lives on disk under the upload directory; FilePath points
// at it and FileURL is the public address it is served from.
type CharacterSheet struct {
	ID             uint   `gorm:"primaryKey"`
	SessionID      uint   `gorm:"not null;index"`
	PlayerID       uint   `gorm:"not null;index"`
	RegistrationID uint   `gorm:"not null;index"`
	FileName       string `gorm:"size:255;not null"`
	OriginalName   string `gorm:"size:255;not null"`
	FilePath       string `gorm:"size:512;not null"`
	FileURL        string `gorm:"size:512;not null"`
	MimeType       string `gorm:"size:100"`
	FileSize       int64  `gorm:"not null"`
	Description    string

	// Private sheets are visible only to the owning player and admins.
	Private    bool      `gorm:"not null;default:false"`
	UploadedBy uint      `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}
