package handler

import (
	"net/http"
	"strconv"
	"time"

	"gametable/backend/internal/models"
	"gametable/backend/internal/repository"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// FormHandler exposes custom forms and their responses over HTTP.
type FormHandler struct {
	db       *gorm.DB
	sessions *repository.SessionRepository
	forms    *repository.FormRepository
}

func NewFormHandler(db *gorm.DB, sessions *repository.SessionRepository, forms *repository.FormRepository) *FormHandler {
	return &FormHandler{db: db, sessions: sessions, forms: forms}
}

// region --- DTOs ---

type FormFieldInput struct {
	Type        string   `json:"type" binding:"required"`
	Name        string   `json:"name" binding:"required"`
	Label       string   `json:"label" binding:"required"`
	Required    bool     `json:"required"`
	Placeholder string   `json:"placeholder,omitempty"`
	Options     []string `json:"options,omitempty"`
}

type FormInput struct {
	Title       string           `json:"title" binding:"required"`
	Description string           `json:"description"`
	Fields      []FormFieldInput `json:"fields"`
	Active      bool             `json:"active"`
}

type FormResponsePayload struct {
	Answers map[string]string `json:"answers" binding:"required"`
}

type FormView struct {
	ID          uint               `json:"id"`
	SessionID   uint               `json:"session_id"`
	Title       string             `json:"title"`
	Description string             `json:"description,omitempty"`
	Fields      []models.FormField `json:"fields"`
	Active      bool               `json:"active"`
}

type ResponseView struct {
	ID             uint              `json:"id"`
	SessionID      uint              `json:"session_id"`
	RegistrationID uint              `json:"registration_id"`
	UserID         *uint             `json:"user_id,omitempty"`
	Answers        map[string]string `json:"answers"`
	SubmittedAt    time.Time         `json:"submitted_at"`
	PlayerName     string            `json:"player_name,omitempty"`
	PlayerEmail    string            `json:"player_email,omitempty"`
}

// endregion

// GetForm godoc
// @Summary      Get a session's custom form
// @Tags         forms
// @Produce      json
// @Param        id path int true "Session ID"
// @Success      200 {object} FormView
// @Failure      404 {object} ErrorResponse "No form for this session"
// @Router       /sessions/{id}/form [get]
func (h *FormHandler) GetForm(c *gin.Context) {
	sessionID, _ := strconv.Atoi(c.Param("id"))

	form, err := h.forms.GetForSession(uint(sessionID))
	if err != nil {
		respondError(c, err)
		return
	}
	if form == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No form for this session"})
		return
	}
	c.JSON(http.StatusOK, FormView{
		ID:          form.ID,
		SessionID:   form.SessionID,
		Title:       form.Title,
		Description: form.Description,
		Fields:      form.Fields,
		Active:      form.Active,
	})
}

// SaveForm godoc
// @Summary      Create or replace a session's custom form (organizer or admin)
// @Description  Upserts the form. An existing form keeps its identifier; field order is preserved.
// @Tags         forms
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path int       true "Session ID"
// @Param        input body FormInput true "Form definition"
// @Success      200 {object} map[string]uint "{"id": 1}"
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse "Session not found"
// @Router       /sessions/{id}/form [put]
func (h *FormHandler) SaveForm(c *gin.Context) {
	sessionID, _ := strconv.Atoi(c.Param("id"))

	if !h.canManage(c, uint(sessionID)) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the organizer can edit the form"})
		return
	}

	var input FormInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fields := make([]models.FormField, 0, len(input.Fields))
	for _, f := range input.Fields {
		fields = append(fields, models.FormField{
			Type:        models.FormFieldType(f.Type),
			Name:        f.Name,
			Label:       f.Label,
			Required:    f.Required,
			Placeholder: f.Placeholder,
			Options:     f.Options,
		})
	}

	id, err := h.forms.SaveForSession(uint(sessionID), repository.FormInput{
		Title:       input.Title,
		Description: input.Description,
		Fields:      fields,
		Active:      input.Active,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

// DefaultFields godoc
// @Summary      Get the canned field list for a game type
// @Tags         forms
// @Produce      json
// @Param        game_type query string true "Game type"
// @Success      200 {array} models.FormField
// @Router       /forms/defaults [get]
func (h *FormHandler) DefaultFields(c *gin.Context) {
	fields := repository.DefaultFields(models.GameType(c.Query("game_type")))
	c.JSON(http.StatusOK, fields)
}

// SaveResponse godoc
// @Summary      Submit answers to a session's form
// @Description  Upserts the caller's answers for one registration; a second submission replaces the first.
// @Tags         forms
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id             path int                 true "Session ID"
// @Param        registrationID path int                 true "Registration ID"
// @Param        input          body FormResponsePayload true "Answers"
// @Success      200 {object} map[string]string "{"message": "Response saved"}"
// @Failure      400 {object} ErrorResponse
// @Router       /sessions/{id}/registrations/{registrationID}/response [put]
func (h *FormHandler) SaveResponse(c *gin.Context) {
	sessionID, _ := strconv.Atoi(c.Param("id"))
	registrationID, _ := strconv.Atoi(c.Param("registrationID"))

	var input FormResponsePayload
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var userID *uint
	if v, exists := c.Get("userID"); exists {
		id := v.(uint)
		userID = &id
	}

	if err := h.forms.SaveResponse(uint(sessionID), uint(registrationID), userID, input.Answers); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Response saved"})
}

// GetResponse godoc
// @Summary      Get one registration's form answers
// @Tags         forms
// @Produce      json
// @Security     BearerAuth
// @Param        id             path int true "Session ID"
// @Param        registrationID path int true "Registration ID"
// @Success      200 {object} ResponseView
// @Failure      404 {object} ErrorResponse "No response"
// @Router       /sessions/{id}/registrations/{registrationID}/response [get]
func (h *FormHandler) GetResponse(c *gin.Context) {
	sessionID, _ := strconv.Atoi(c.Param("id"))
	registrationID, _ := strconv.Atoi(c.Param("registrationID"))

	resp, err := h.forms.GetResponse(uint(sessionID), uint(registrationID))
	if err != nil {
		respondError(c, err)
		return
	}
	if resp == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No response"})
		return
	}
	c.JSON(http.StatusOK, ResponseView{
		ID:             resp.ID,
		SessionID:      resp.SessionID,
		RegistrationID: resp.RegistrationID,
		UserID:         resp.UserID,
		Answers:        resp.Payload,
		SubmittedAt:    resp.SubmittedAt,
	})
}

// ListResponses godoc
// @Summary      List a session's form responses (organizer or admin)
// @Description  Returns every response joined with the registering player, newest first.
// @Tags         forms
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Session ID"
// @Success      200 {array} ResponseView
// @Failure      403 {object} ErrorResponse
// @Router       /sessions/{id}/responses [get]
func (h *FormHandler) ListResponses(c *gin.Context) {
	sessionID, _ := strconv.Atoi(c.Param("id"))

	if !h.canManage(c, uint(sessionID)) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the organizer can read responses"})
		return
	}

	responses, err := h.forms.ListResponsesForSession(uint(sessionID))
	if err != nil {
		respondError(c, err)
		return
	}

	views := make([]ResponseView, 0, len(responses))
	for _, r := range responses {
		views = append(views, ResponseView{
			ID:             r.ID,
			SessionID:      r.SessionID,
			RegistrationID: r.RegistrationID,
			UserID:         r.UserID,
			Answers:        r.Payload,
			SubmittedAt:    r.SubmittedAt,
			PlayerName:     r.PlayerName,
			PlayerEmail:    r.PlayerEmail,
		})
	}
	c.JSON(http.StatusOK, views)
}

func (h *FormHandler) canManage(c *gin.Context, sessionID uint) bool {
	session, err := h.sessions.Get(sessionID)
	if err != nil {
		return false
	}
	req := currentRequester(c, h.db)
	if req.Admin {
		return true
	}
	return session.OrganizerID != nil && *session.OrganizerID == req.ID
}
