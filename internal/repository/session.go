package repository

import (
	"errors"
	"os"
	"time"

	"gametable/backend/internal/models"

	"gorm.io/gorm"
)

// SessionRepository provides CRUD and filtered listing over sessions.
type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// SessionFilter narrows List results. Every field is optional; zero values
// mean "no constraint". Limit <= 0 disables pagination.
type SessionFilter struct {
	Status   models.SessionStatus
	GameType models.GameType
	DateFrom *time.Time
	DateTo   *time.Time
	Limit    int
	Offset   int
}

// SessionInput carries the fields accepted when creating a session.
type SessionInput struct {
	Name            string
	GameType        models.GameType
	OrganizerID     *uint
	OrganizerName   string
	StartsAt        time.Time
	DurationMinutes int
	MaxPlayers      int
	Location        string
	Difficulty      models.Difficulty

	Description     string
	Synopsis        string
	TriggerWarnings string
	SafetyTools     string
	Prerequisites   string
	AdditionalInfo  string

	BannerImage     string
	BackgroundImage string

	Visible              *bool
	RequiresApproval     *bool
	RegistrationDeadline *time.Time
}

// SessionUpdate carries a partial update; nil fields are left untouched.
type SessionUpdate struct {
	Name            *string
	GameType        *models.GameType
	StartsAt        *time.Time
	DurationMinutes *int
	MaxPlayers      *int
	Location        *string
	Difficulty      *models.Difficulty

	Description     *string
	Synopsis        *string
	TriggerWarnings *string
	SafetyTools     *string
	Prerequisites   *string
	AdditionalInfo  *string

	BannerImage     *string
	BackgroundImage *string

	Status               *models.SessionStatus
	Visible              *bool
	RequiresApproval     *bool
	RegistrationDeadline *time.Time
}

// List returns the sessions matching the filter, ordered by start date
// ascending. An empty result is a nil slice, not an error.
func (r *SessionRepository) List(f SessionFilter) ([]models.Session, error) {
	q := r.db.Model(&models.Session{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.GameType != "" {
		q = q.Where("game_type = ?", f.GameType)
	}
	if f.DateFrom != nil {
		q = q.Where("starts_at >= ?", *f.DateFrom)
	}
	if f.DateTo != nil {
		q = q.Where("starts_at <= ?", *f.DateTo)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}

	var sessions []models.Session
	if err := q.Order("starts_at ASC").Find(&sessions).Error; err != nil {
		return nil, storageErr("list sessions", 0, err)
	}
	return sessions, nil
}

// Count returns how many sessions match the filter, ignoring pagination.
func (r *SessionRepository) Count(f SessionFilter) (int64, error) {
	f.Limit = 0
	f.Offset = 0
	q := r.db.Model(&models.Session{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.GameType != "" {
		q = q.Where("game_type = ?", f.GameType)
	}
	if f.DateFrom != nil {
		q = q.Where("starts_at >= ?", *f.DateFrom)
	}
	if f.DateTo != nil {
		q = q.Where("starts_at <= ?", *f.DateTo)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, storageErr("count sessions", 0, err)
	}
	return n, nil
}

// Get returns the session or ErrNotFound.
func (r *SessionRepository) Get(id uint) (*models.Session, error) {
	var session models.Session
	if err := r.db.First(&session, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, storageErr("get session", id, err)
	}
	return &session, nil
}

// Create validates the required fields and inserts a new session, returning
// its identifier.
func (r *SessionRepository) Create(in SessionInput) (uint, error) {
	if in.Name == "" {
		return 0, &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if !in.GameType.Valid() {
		return 0, &ValidationError{Field: "game_type", Reason: "unknown game type"}
	}
	if in.StartsAt.IsZero() {
		return 0, &ValidationError{Field: "starts_at", Reason: "must be set"}
	}
	if in.MaxPlayers < 1 {
		return 0, &ValidationError{Field: "max_players", Reason: "must be at least 1"}
	}

	session := models.Session{
		Name:            in.Name,
		GameType:        in.GameType,
		OrganizerID:     in.OrganizerID,
		OrganizerName:   in.OrganizerName,
		StartsAt:        in.StartsAt,
		DurationMinutes: in.DurationMinutes,
		MaxPlayers:      in.MaxPlayers,
		Location:        in.Location,
		Difficulty:      in.Difficulty,

		Description:     in.Description,
		Synopsis:        in.Synopsis,
		TriggerWarnings: in.TriggerWarnings,
		SafetyTools:     in.SafetyTools,
		Prerequisites:   in.Prerequisites,
		AdditionalInfo:  in.AdditionalInfo,

		BannerImage:     in.BannerImage,
		BackgroundImage: in.BackgroundImage,

		Status:               models.SessionPlanned,
		Visible:              true,
		RequiresApproval:     true,
		RegistrationDeadline: in.RegistrationDeadline,
	}
	if in.DurationMinutes <= 0 {
		session.DurationMinutes = 180
	}
	if in.Difficulty == "" {
		session.Difficulty = models.DifficultyBeginner
	}
	if in.Visible != nil {
		session.Visible = *in.Visible
	}
	if in.RequiresApproval != nil {
		session.RequiresApproval = *in.RequiresApproval
	}

	if err := r.db.Create(&session).Error; err != nil {
		return 0, storageErr("create session", 0, err)
	}
	return session.ID, nil
}

// Update merges the non-nil fields of upd into the stored session.
func (r *SessionRepository) Update(id uint, upd SessionUpdate) error {
	if _, err := r.Get(id); err != nil {
		return err
	}

	changes := map[string]interface{}{}
	if upd.Name != nil {
		if *upd.Name == "" {
			return &ValidationError{Field: "name", Reason: "must not be empty"}
		}
		changes["name"] = *upd.Name
	}
	if upd.GameType != nil {
		if !upd.GameType.Valid() {
			return &ValidationError{Field: "game_type", Reason: "unknown game type"}
		}
		changes["game_type"] = *upd.GameType
	}
	if upd.StartsAt != nil {
		changes["starts_at"] = *upd.StartsAt
	}
	if upd.DurationMinutes != nil {
		changes["duration_minutes"] = *upd.DurationMinutes
	}
	if upd.MaxPlayers != nil {
		if *upd.MaxPlayers < 1 {
			return &ValidationError{Field: "max_players", Reason: "must be at least 1"}
		}
		changes["max_players"] = *upd.MaxPlayers
	}
	if upd.Location != nil {
		changes["location"] = *upd.Location
	}
	if upd.Difficulty != nil {
		changes["difficulty"] = *upd.Difficulty
	}
	if upd.Description != nil {
		changes["description"] = *upd.Description
	}
	if upd.Synopsis != nil {
		changes["synopsis"] = *upd.Synopsis
	}
	if upd.TriggerWarnings != nil {
		changes["trigger_warnings"] = *upd.TriggerWarnings
	}
	if upd.SafetyTools != nil {
		changes["safety_tools"] = *upd.SafetyTools
	}
	if upd.Prerequisites != nil {
		changes["prerequisites"] = *upd.Prerequisites
	}
	if upd.AdditionalInfo != nil {
		changes["additional_info"] = *upd.AdditionalInfo
	}
	if upd.BannerImage != nil {
		changes["banner_image"] = *upd.BannerImage
	}
	if upd.BackgroundImage != nil {
		changes["background_image"] = *upd.BackgroundImage
	}
	if upd.Status != nil {
		changes["status"] = *upd.Status
	}
	if upd.Visible != nil {
		changes["visible"] = *upd.Visible
	}
	if upd.RequiresApproval != nil {
		changes["requires_approval"] = *upd.RequiresApproval
	}
	if upd.RegistrationDeadline != nil {
		changes["registration_deadline"] = *upd.RegistrationDeadline
	}
	if len(changes) == 0 {
		return nil
	}

	if err := r.db.Model(&models.Session{}).Where("id = ?", id).Updates(changes).Error; err != nil {
		return storageErr("update session", id, err)
	}
	return nil
}

// Delete removes a session and everything it owns. Child rows go first,
// in one transaction, so an interrupted delete never leaves orphaned
// registrations behind a missing session. Sheet files are removed from
// disk only after the transaction commits; a leftover file is harmless
// compared to a metadata row pointing at nothing.
func (r *SessionRepository) Delete(id uint) error {
	if _, err := r.Get(id); err != nil {
		return err
	}

	var paths []string
	if err := r.db.Model(&models.CharacterSheet{}).
		Where("session_id = ?", id).
		Pluck("file_path", &paths).Error; err != nil {
		return storageErr("collect sheet files", id, err)
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", id).Delete(&models.FormResponse{}).Error; err != nil {
			return err
		}
		if err := tx.Where("session_id = ?", id).Delete(&models.CustomForm{}).Error; err != nil {
			return err
		}
		if err := tx.Where("session_id = ?", id).Delete(&models.CharacterSheet{}).Error; err != nil {
			return err
		}
		if err := tx.Where("session_id = ?", id).Delete(&models.Registration{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Session{}, id).Error
	})
	if err != nil {
		return storageErr("delete session", id, err)
	}

	for _, p := range paths {
		_ = os.Remove(p)
	}
	return nil
}
