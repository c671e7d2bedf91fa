package models

import (
	"time"

	"gorm.io/datatypes"
)

// FormFieldType enumerates the supported custom form field kinds.
type FormFieldType string

const (
	FieldText     FormFieldType = "text"
	FieldTextarea FormFieldType = "textarea"
	FieldSelect   FormFieldType = "select"
	FieldRadio    FormFieldType = "radio"
	FieldCheckbox FormFieldType = "checkbox"
	FieldNumber   FormFieldType = "number"
)

// FormField is a single question on a session's custom registration form.
// Fields are persisted as an ordered JSON array; the order is meaningful
// and must survive a save/load round trip unchanged.
type FormField struct {
	Type        FormFieldType `json:"type"`
	Name        string        `json:"name"`
	Label       string        `json:"label"`
	Required    bool          `json:"required"`
	Placeholder string        `json:"placeholder,omitempty"`
	Options     []string      `json:"options,omitempty"`
}

// CustomForm is a session-specific set of extra registration questions.
// At most one form exists per session.
type CustomForm struct {
	ID          uint   `gorm:"primaryKey"`
	SessionID   uint   `gorm:"not null;uniqueIndex"`
	Title       string `gorm:"size:255;not null"`
	Description string
	Fields      datatypes.JSON `gorm:"not null"`
	Active      bool           `gorm:"not null;default:true"`
	CreatedAt   time.Time      `gorm:"not null"`
	UpdatedAt   time.Time      `gorm:"not null"`
}

// FormResponse holds one registration's answers to a session's custom form.
// At most one response exists per (session, registration) pair.
type FormResponse struct {
	ID             uint           `gorm:"primaryKey"`
	SessionID      uint           `gorm:"not null;index;uniqueIndex:idx_form_responses_session_registration"`
	RegistrationID uint           `gorm:"not null;uniqueIndex:idx_form_responses_session_registration"`
	UserID         *uint          `gorm:"index"`
	Payload        datatypes.JSON `gorm:"not null"`
	SubmittedAt    time.Time      `gorm:"not null"`
	CreatedAt      time.Time      `gorm:"not null"`
	UpdatedAt      time.Time      `gorm:"not null"`
}
