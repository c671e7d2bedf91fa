package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"gametable/backend/internal/models"
	"gametable/backend/internal/notify"
	"gametable/backend/internal/repository"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RegistrationHandler exposes the registration repository over HTTP.
type RegistrationHandler struct {
	db            *gorm.DB
	sessions      *repository.SessionRepository
	registrations *repository.RegistrationRepository
	notifier      *notify.Notifier
}

func NewRegistrationHandler(db *gorm.DB, sessions *repository.SessionRepository, registrations *repository.RegistrationRepository, notifier *notify.Notifier) *RegistrationHandler {
	return &RegistrationHandler{db: db, sessions: sessions, registrations: registrations, notifier: notifier}
}

// region --- DTOs ---

type RegistrationInput struct {
	PlayerName     string `json:"player_name" binding:"required"`
	PlayerEmail    string `json:"player_email" binding:"required,email"`
	Phone          string `json:"phone"`
	Experience     string `json:"experience"`
	CharacterName  string `json:"character_name"`
	CharacterClass string `json:"character_class"`

	SpecialRequests     string `json:"special_requests"`
	DietaryRestrictions string `json:"dietary_restrictions"`
}

type StatusInput struct {
	Status string `json:"status" binding:"required"`
}

type AttendanceInput struct {
	Attendance string `json:"attendance" binding:"required"`
}

type RegistrationResponse struct {
	ID             uint   `json:"id"`
	SessionID      uint   `json:"session_id"`
	UserID         *uint  `json:"user_id,omitempty"`
	PlayerName     string `json:"player_name"`
	PlayerEmail    string `json:"player_email"`
	Phone          string `json:"phone,omitempty"`
	Experience     string `json:"experience,omitempty"`
	CharacterName  string `json:"character_name,omitempty"`
	CharacterClass string `json:"character_class,omitempty"`

	SpecialRequests     string `json:"special_requests,omitempty"`
	DietaryRestrictions string `json:"dietary_restrictions,omitempty"`

	Status       string     `json:"status"`
	RegisteredAt time.Time  `json:"registered_at"`
	ConfirmedAt  *time.Time `json:"confirmed_at,omitempty"`
	Attendance   *string    `json:"attendance,omitempty"`
	Notes        string     `json:"notes,omitempty"`
}

func newRegistrationResponse(r models.Registration) RegistrationResponse {
	resp := RegistrationResponse{
		ID:             r.ID,
		SessionID:      r.SessionID,
		UserID:         r.UserID,
		PlayerName:     r.PlayerName,
		PlayerEmail:    r.PlayerEmail,
		Phone:          r.Phone,
		Experience:     string(r.Experience),
		CharacterName:  r.CharacterName,
		CharacterClass: r.CharacterClass,

		SpecialRequests:     r.SpecialRequests,
		DietaryRestrictions: r.DietaryRestrictions,

		Status:       string(r.Status),
		RegisteredAt: r.RegisteredAt,
		ConfirmedAt:  r.ConfirmedAt,
		Notes:        r.Notes,
	}
	if r.Attendance != nil {
		att := string(*r.Attendance)
		resp.Attendance = &att
	}
	return resp
}

// endregion

// Register godoc
// @Summary      Register for a session
// @Description  Registers a player for a session. Full sessions waitlist the player instead of rejecting.
// @Tags         registrations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path int               true "Session ID"
// @Param        input body RegistrationInput true "Player Info"
// @Success      201 {object} RegistrationResponse
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse "Session not found"
// @Failure      409 {object} ErrorResponse "Already registered"
// @Router       /sessions/{id}/registrations [post]
func (h *RegistrationHandler) Register(c *gin.Context) {
	sessionID, _ := strconv.Atoi(c.Param("id"))

	var input RegistrationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	in := repository.RegistrationInput{
		PlayerName:     input.PlayerName,
		PlayerEmail:    input.PlayerEmail,
		Phone:          input.Phone,
		Experience:     models.Difficulty(input.Experience),
		CharacterName:  input.CharacterName,
		CharacterClass: input.CharacterClass,

		SpecialRequests:     input.SpecialRequests,
		DietaryRestrictions: input.DietaryRestrictions,
	}
	if userID, exists := c.Get("userID"); exists {
		id := userID.(uint)
		in.UserID = &id
	}

	reg, err := h.registrations.Register(uint(sessionID), in)
	if err != nil {
		respondError(c, err)
		return
	}

	h.sendConfirmationMail(uint(sessionID), reg)
	c.JSON(http.StatusCreated, newRegistrationResponse(*reg))
}

// ListRegistrations godoc
// @Summary      List a session's registrations (organizer or admin)
// @Tags         registrations
// @Produce      json
// @Security     BearerAuth
// @Param        id     path  int    true  "Session ID"
// @Param        status query string false "Filter by status"
// @Success      200 {array} RegistrationResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse "Session not found"
// @Router       /sessions/{id}/registrations [get]
func (h *RegistrationHandler) ListRegistrations(c *gin.Context) {
	sessionID, _ := strconv.Atoi(c.Param("id"))

	session, err := h.sessions.Get(uint(sessionID))
	if err != nil {
		respondError(c, err)
		return
	}
	req := currentRequester(c, h.db)
	if !req.Admin && (session.OrganizerID == nil || *session.OrganizerID != req.ID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the organizer can list registrations"})
		return
	}

	var status *models.RegistrationStatus
	if s := c.Query("status"); s != "" {
		st := models.RegistrationStatus(s)
		status = &st
	}

	regs, err := h.registrations.ListForSession(uint(sessionID), status)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]RegistrationResponse, 0, len(regs))
	for _, r := range regs {
		response = append(response, newRegistrationResponse(r))
	}
	c.JSON(http.StatusOK, response)
}

// UpdateStatus godoc
// @Summary      Change a registration's status (organizer or admin)
// @Description  Confirms, cancels or promotes a registration. Confirming a registration when the session is full fails with a waitlist hint.
// @Tags         registrations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path int         true "Registration ID"
// @Param        input body StatusInput true "New status"
// @Success      200 {object} RegistrationResponse
// @Failure      400 {object} ErrorResponse "Illegal status transition"
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse "Registration not found"
// @Failure      409 {object} ErrorResponse "Session is full"
// @Router       /registrations/{id}/status [put]
func (h *RegistrationHandler) UpdateStatus(c *gin.Context) {
	id, _ := strconv.Atoi(c.Param("id"))

	if !h.canManageRegistration(c, uint(id)) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the organizer can manage registrations"})
		return
	}

	var input StatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reg, err := h.registrations.UpdateStatus(uint(id), models.RegistrationStatus(input.Status))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newRegistrationResponse(*reg))
}

// SetAttendance godoc
// @Summary      Record attendance for a registration (organizer or admin)
// @Tags         registrations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path int             true "Registration ID"
// @Param        input body AttendanceInput true "Attendance"
// @Success      200 {object} map[string]string "{"message": "Attendance recorded"}"
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse "Registration not found"
// @Router       /registrations/{id}/attendance [put]
func (h *RegistrationHandler) SetAttendance(c *gin.Context) {
	id, _ := strconv.Atoi(c.Param("id"))

	if !h.canManageRegistration(c, uint(id)) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the organizer can manage registrations"})
		return
	}

	var input AttendanceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.registrations.SetAttendance(uint(id), models.AttendanceStatus(input.Attendance)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Attendance recorded"})
}

// DeleteRegistration godoc
// @Summary      Delete a registration (organizer or admin)
// @Tags         registrations
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Registration ID"
// @Success      200 {object} map[string]string "{"message": "Registration deleted"}"
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse "Registration not found"
// @Router       /registrations/{id} [delete]
func (h *RegistrationHandler) DeleteRegistration(c *gin.Context) {
	id, _ := strconv.Atoi(c.Param("id"))

	if !h.canManageRegistration(c, uint(id)) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the organizer can manage registrations"})
		return
	}

	if err := h.registrations.Delete(uint(id)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Registration deleted"})
}

func (h *RegistrationHandler) canManageRegistration(c *gin.Context, regID uint) bool {
	req := currentRequester(c, h.db)
	if req.Admin {
		return true
	}

	var reg models.Registration
	if err := h.db.First(&reg, regID).Error; err != nil {
		// Let the repository surface the not-found; permission-wise the
		// organizer check cannot pass without a row anyway.
		return true
	}
	session, err := h.sessions.Get(reg.SessionID)
	if err != nil {
		return false
	}
	return session.OrganizerID != nil && *session.OrganizerID == req.ID
}

func (h *RegistrationHandler) sendConfirmationMail(sessionID uint, reg *models.Registration) {
	session, err := h.sessions.Get(sessionID)
	if err != nil {
		return
	}

	var body string
	switch reg.Status {
	case models.RegistrationConfirmed:
		body = fmt.Sprintf("Hi %s,\n\nyour spot for %q on %s is confirmed. See you at the table!",
			reg.PlayerName, session.Name, session.StartsAt.Format("Jan 2, 2006 15:04"))
	case models.RegistrationWaitlisted:
		body = fmt.Sprintf("Hi %s,\n\n%q is currently full, so you are on the waitlist. We will let you know when a spot opens up.",
			reg.PlayerName, session.Name)
	default:
		body = fmt.Sprintf("Hi %s,\n\nwe received your registration for %q. The organizer will confirm it shortly.",
			reg.PlayerName, session.Name)
	}

	h.notifier.Enqueue(notify.Message{
		To:      reg.PlayerEmail,
		Subject: "Registration received: " + session.Name,
		Body:    body,
	})
}
