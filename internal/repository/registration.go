package repository

import (
	"errors"
	"net/mail"
	"time"

	"gametable/backend/internal/models"

	"gorm.io/gorm"
)

// RegistrationRepository manages player registrations for sessions and is
// the only writer of a session's CurrentPlayers counter.
type RegistrationRepository struct {
	db *gorm.DB
}

func NewRegistrationRepository(db *gorm.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// RegistrationInput carries the player-supplied fields for a registration.
type RegistrationInput struct {
	UserID         *uint
	PlayerName     string
	PlayerEmail    string
	Phone          string
	Experience     models.Difficulty
	CharacterName  string
	CharacterClass string

	SpecialRequests     string
	DietaryRestrictions string
}

// Register creates a registration for a session.
//
// The initial status depends on an advisory capacity check: if the session
// already has MaxPlayers confirmed registrations the new one is waitlisted;
// otherwise it is confirmed directly when the session does not require
// approval, or pending when it does. The check is advisory only — two
// concurrent calls may both see a free slot — so the authoritative count is
// always restored by Recount, never by this path.
func (r *RegistrationRepository) Register(sessionID uint, in RegistrationInput) (*models.Registration, error) {
	var session models.Session
	if err := r.db.First(&session, sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, storageErr("load session", sessionID, err)
	}

	if in.PlayerName == "" {
		return nil, &ValidationError{Field: "player_name", Reason: "must not be empty"}
	}
	if _, err := mail.ParseAddress(in.PlayerEmail); err != nil {
		return nil, &ValidationError{Field: "player_email", Reason: "not a valid email address"}
	}
	if session.RegistrationDeadline != nil && time.Now().After(*session.RegistrationDeadline) {
		return nil, &ValidationError{Field: "session", Reason: "registration deadline has passed"}
	}

	var existing int64
	if err := r.db.Model(&models.Registration{}).
		Where("session_id = ? AND player_email = ?", sessionID, in.PlayerEmail).
		Count(&existing).Error; err != nil {
		return nil, storageErr("check duplicate registration", sessionID, err)
	}
	if existing > 0 {
		return nil, &ConflictError{Resource: "registration", Detail: "this email is already registered for the session"}
	}

	confirmed, err := r.confirmedCount(sessionID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	reg := models.Registration{
		SessionID:      sessionID,
		UserID:         in.UserID,
		PlayerName:     in.PlayerName,
		PlayerEmail:    in.PlayerEmail,
		Phone:          in.Phone,
		Experience:     in.Experience,
		CharacterName:  in.CharacterName,
		CharacterClass: in.CharacterClass,

		SpecialRequests:     in.SpecialRequests,
		DietaryRestrictions: in.DietaryRestrictions,

		Status:       models.RegistrationPending,
		RegisteredAt: now,
	}
	switch {
	case confirmed >= int64(session.MaxPlayers):
		reg.Status = models.RegistrationWaitlisted
	case !session.RequiresApproval:
		reg.Status = models.RegistrationConfirmed
		reg.ConfirmedAt = &now
	}

	if err := r.db.Create(&reg).Error; err != nil {
		return nil, storageErr("create registration", sessionID, err)
	}

	if reg.Status == models.RegistrationConfirmed {
		if err := r.Recount(sessionID); err != nil {
			return nil, err
		}
	}
	return &reg, nil
}

// allowedTransitions lists the legal status changes after creation.
// Waitlisted is only ever assigned at registration time, and cancelled
// is terminal.
var allowedTransitions = map[models.RegistrationStatus][]models.RegistrationStatus{
	models.RegistrationPending:    {models.RegistrationConfirmed, models.RegistrationCancelled},
	models.RegistrationConfirmed:  {models.RegistrationCancelled},
	models.RegistrationWaitlisted: {models.RegistrationConfirmed, models.RegistrationCancelled},
	models.RegistrationCancelled:  {},
}

func transitionAllowed(from, to models.RegistrationStatus) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// UpdateStatus moves a registration to a new status. Confirming stamps the
// confirmation time and fails with CapacityError when the session is
// already full; any other target status clears the stamp. A changed status
// triggers a recount of the owning session.
func (r *RegistrationRepository) UpdateStatus(id uint, status models.RegistrationStatus) (*models.Registration, error) {
	var reg models.Registration
	if err := r.db.First(&reg, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, storageErr("load registration", id, err)
	}
	if reg.Status == status {
		return &reg, nil
	}
	if !transitionAllowed(reg.Status, status) {
		return nil, &ValidationError{
			Field:  "status",
			Reason: string(reg.Status) + " registrations cannot become " + string(status),
		}
	}

	changes := map[string]interface{}{"status": status, "confirmed_at": nil}
	if status == models.RegistrationConfirmed {
		var session models.Session
		if err := r.db.First(&session, reg.SessionID).Error; err != nil {
			return nil, storageErr("load session", reg.SessionID, err)
		}
		confirmed, err := r.confirmedCount(reg.SessionID)
		if err != nil {
			return nil, err
		}
		if confirmed >= int64(session.MaxPlayers) {
			return nil, &CapacityError{SessionID: session.ID, MaxPlayers: session.MaxPlayers}
		}
		now := time.Now()
		changes["confirmed_at"] = &now
	}

	if err := r.db.Model(&reg).Updates(changes).Error; err != nil {
		return nil, storageErr("update registration status", id, err)
	}
	if err := r.Recount(reg.SessionID); err != nil {
		return nil, err
	}

	if err := r.db.First(&reg, id).Error; err != nil {
		return nil, storageErr("reload registration", id, err)
	}
	return &reg, nil
}

// SetAttendance records whether the player showed up.
func (r *RegistrationRepository) SetAttendance(id uint, att models.AttendanceStatus) error {
	switch att {
	case models.AttendancePresent, models.AttendanceAbsent, models.AttendanceLate:
	default:
		return &ValidationError{Field: "attendance", Reason: "unknown attendance status"}
	}
	res := r.db.Model(&models.Registration{}).Where("id = ?", id).Update("attendance", att)
	if res.Error != nil {
		return storageErr("set attendance", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a registration and recounts the owning session no matter
// what status the row had; recounting is cheap and always correct.
func (r *RegistrationRepository) Delete(id uint) error {
	var reg models.Registration
	if err := r.db.First(&reg, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return storageErr("load registration", id, err)
	}
	if err := r.db.Delete(&models.Registration{}, id).Error; err != nil {
		return storageErr("delete registration", id, err)
	}
	return r.Recount(reg.SessionID)
}

// Recount sets the session's CurrentPlayers to the number of confirmed
// registrations. This is the single source of truth for the counter; no
// other code path may increment or decrement it.
func (r *RegistrationRepository) Recount(sessionID uint) error {
	sub := r.db.Model(&models.Registration{}).
		Select("COUNT(*)").
		Where("session_id = ? AND status = ?", sessionID, models.RegistrationConfirmed)
	if err := r.db.Model(&models.Session{}).
		Where("id = ?", sessionID).
		Update("current_players", sub).Error; err != nil {
		return storageErr("recount session players", sessionID, err)
	}
	return nil
}

// ListForSession returns a session's registrations ordered by registration
// time ascending, optionally narrowed to one status.
func (r *RegistrationRepository) ListForSession(sessionID uint, status *models.RegistrationStatus) ([]models.Registration, error) {
	q := r.db.Where("session_id = ?", sessionID)
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	var regs []models.Registration
	if err := q.Order("registered_at ASC").Find(&regs).Error; err != nil {
		return nil, storageErr("list registrations", sessionID, err)
	}
	return regs, nil
}

func (r *RegistrationRepository) confirmedCount(sessionID uint) (int64, error) {
	var n int64
	if err := r.db.Model(&models.Registration{}).
		Where("session_id = ? AND status = ?", sessionID, models.RegistrationConfirmed).
		Count(&n).Error; err != nil {
		return 0, storageErr("count confirmed registrations", sessionID, err)
	}
	return n, nil
}
