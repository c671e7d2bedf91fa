package repository

import (
	"encoding/json"
	"errors"
	"time"

	"gametable/backend/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// FormRepository stores per-session custom registration forms and the
// players' responses to them.
type FormRepository struct {
	db *gorm.DB
}

func NewFormRepository(db *gorm.DB) *FormRepository {
	return &FormRepository{db: db}
}

// Form is a custom form with its field list decoded.
type Form struct {
	ID          uint
	SessionID   uint
	Title       string
	Description string
	Fields      []models.FormField
	Active      bool
}

// FormInput carries the fields accepted when saving a form.
type FormInput struct {
	Title       string
	Description string
	Fields      []models.FormField
	Active      bool
}

// Response is a decoded form response.
type Response struct {
	ID             uint
	SessionID      uint
	RegistrationID uint
	UserID         *uint
	Payload        map[string]string
	SubmittedAt    time.Time
}

// ResponseWithPlayer is a response joined with the registering player.
type ResponseWithPlayer struct {
	Response
	PlayerName  string
	PlayerEmail string
}

// GetForSession returns the session's form with fields decoded, or
// (nil, nil) when the session has none.
func (r *FormRepository) GetForSession(sessionID uint) (*Form, error) {
	var row models.CustomForm
	if err := r.db.Where("session_id = ?", sessionID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, storageErr("get custom form", sessionID, err)
	}

	var fields []models.FormField
	if len(row.Fields) > 0 {
		if err := json.Unmarshal(row.Fields, &fields); err != nil {
			return nil, storageErr("decode form fields", row.ID, err)
		}
	}
	return &Form{
		ID:          row.ID,
		SessionID:   row.SessionID,
		Title:       row.Title,
		Description: row.Description,
		Fields:      fields,
		Active:      row.Active,
	}, nil
}

// SaveForSession upserts the session's form. An existing form keeps its
// identifier and is updated in place. Field order is preserved exactly.
func (r *FormRepository) SaveForSession(sessionID uint, in FormInput) (uint, error) {
	if in.Title == "" {
		return 0, &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	for _, f := range in.Fields {
		if f.Name == "" {
			return 0, &ValidationError{Field: "fields", Reason: "every field needs an internal name"}
		}
	}

	encoded, err := json.Marshal(in.Fields)
	if err != nil {
		return 0, storageErr("encode form fields", sessionID, err)
	}

	var existing models.CustomForm
	err = r.db.Where("session_id = ?", sessionID).First(&existing).Error
	switch {
	case err == nil:
		changes := map[string]interface{}{
			"title":       in.Title,
			"description": in.Description,
			"fields":      datatypes.JSON(encoded),
			"active":      in.Active,
		}
		if err := r.db.Model(&existing).Updates(changes).Error; err != nil {
			return 0, storageErr("update custom form", existing.ID, err)
		}
		return existing.ID, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		row := models.CustomForm{
			SessionID:   sessionID,
			Title:       in.Title,
			Description: in.Description,
			Fields:      datatypes.JSON(encoded),
			Active:      in.Active,
		}
		if err := r.db.Create(&row).Error; err != nil {
			return 0, storageErr("create custom form", sessionID, err)
		}
		return row.ID, nil
	default:
		return 0, storageErr("load custom form", sessionID, err)
	}
}

// DefaultFields returns the canned field list for a game type. Unknown
// types get an empty list.
func DefaultFields(gameType models.GameType) []models.FormField {
	switch gameType {
	case models.GameTypeMurderParty:
		return []models.FormField{
			{Type: models.FieldSelect, Name: "costume", Label: "Will you wear a costume?", Required: true,
				Options: []string{"yes", "no", "undecided"}},
			{Type: models.FieldTextarea, Name: "acting_experience", Label: "Acting or improv experience", Required: false,
				Placeholder: "Stage, LARP, none at all..."},
			{Type: models.FieldText, Name: "preferred_role", Label: "Preferred character archetype", Required: false},
		}
	case models.GameTypeRolePlay:
		return []models.FormField{
			{Type: models.FieldSelect, Name: "experience", Label: "Tabletop experience", Required: true,
				Options: []string{"first time", "a few sessions", "veteran"}},
			{Type: models.FieldText, Name: "character_concept", Label: "Character concept (if any)", Required: false},
			{Type: models.FieldTextarea, Name: "content_limits", Label: "Content you prefer to avoid", Required: false},
		}
	case models.GameTypeBoardGame:
		return []models.FormField{
			{Type: models.FieldSelect, Name: "weight", Label: "Preferred game weight", Required: true,
				Options: []string{"light", "medium", "heavy"}},
			{Type: models.FieldText, Name: "favorite_game", Label: "A favorite board game", Required: false},
		}
	}
	return []models.FormField{}
}

// SaveResponse upserts a registration's answers to the session's form.
// A second save for the same (session, registration) pair replaces the
// payload instead of creating a duplicate row.
func (r *FormRepository) SaveResponse(sessionID, registrationID uint, userID *uint, payload map[string]string) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return storageErr("encode response payload", registrationID, err)
	}

	var existing models.FormResponse
	err = r.db.Where("session_id = ? AND registration_id = ?", sessionID, registrationID).First(&existing).Error
	switch {
	case err == nil:
		changes := map[string]interface{}{
			"payload":      datatypes.JSON(encoded),
			"submitted_at": time.Now(),
		}
		if userID != nil {
			changes["user_id"] = *userID
		}
		if err := r.db.Model(&existing).Updates(changes).Error; err != nil {
			return storageErr("update form response", existing.ID, err)
		}
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		row := models.FormResponse{
			SessionID:      sessionID,
			RegistrationID: registrationID,
			UserID:         userID,
			Payload:        datatypes.JSON(encoded),
			SubmittedAt:    time.Now(),
		}
		if err := r.db.Create(&row).Error; err != nil {
			return storageErr("create form response", registrationID, err)
		}
		return nil
	default:
		return storageErr("load form response", registrationID, err)
	}
}

// GetResponse returns the decoded response for a (session, registration)
// pair, or (nil, nil) when none exists.
func (r *FormRepository) GetResponse(sessionID, registrationID uint) (*Response, error) {
	var row models.FormResponse
	err := r.db.Where("session_id = ? AND registration_id = ?", sessionID, registrationID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, storageErr("get form response", registrationID, err)
	}
	return decodeResponse(row)
}

// ListResponsesForSession returns every response for a session joined with
// the registering player's name and email, newest submission first.
func (r *FormRepository) ListResponsesForSession(sessionID uint) ([]ResponseWithPlayer, error) {
	var rows []struct {
		models.FormResponse
		PlayerName  string
		PlayerEmail string
	}
	err := r.db.Model(&models.FormResponse{}).
		Select("form_responses.*, registrations.player_name, registrations.player_email").
		Joins("JOIN registrations ON registrations.id = form_responses.registration_id").
		Where("form_responses.session_id = ?", sessionID).
		Order("form_responses.submitted_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, storageErr("list form responses", sessionID, err)
	}

	out := make([]ResponseWithPlayer, 0, len(rows))
	for _, row := range rows {
		resp, err := decodeResponse(row.FormResponse)
		if err != nil {
			return nil, err
		}
		out = append(out, ResponseWithPlayer{
			Response:    *resp,
			PlayerName:  row.PlayerName,
			PlayerEmail: row.PlayerEmail,
		})
	}
	return out, nil
}

func decodeResponse(row models.FormResponse) (*Response, error) {
	payload := map[string]string{}
	if len(row.Payload) > 0 {
		if err := json.Unmarshal(row.Payload, &payload); err != nil {
			return nil, storageErr("decode response payload", row.ID, err)
		}
	}
	return &Response{
		ID:             row.ID,
		SessionID:      row.SessionID,
		RegistrationID: row.RegistrationID,
		UserID:         row.UserID,
		Payload:        payload,
		SubmittedAt:    row.SubmittedAt,
	}, nil
}
