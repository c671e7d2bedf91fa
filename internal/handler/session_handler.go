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

// SessionHandler exposes the session repository over HTTP.
type SessionHandler struct {
	db       *gorm.DB
	sessions *repository.SessionRepository
}

func NewSessionHandler(db *gorm.DB, sessions *repository.SessionRepository) *SessionHandler {
	return &SessionHandler{db: db, sessions: sessions}
}

// region --- DTOs ---

type SessionInput struct {
	Name            string `json:"name" binding:"required"`
	GameType        string `json:"game_type" binding:"required"`
	Date            string `json:"date" binding:"required" example:"2026-10-31"`
	Time            string `json:"time" binding:"required" example:"19:30"`
	DurationMinutes int    `json:"duration_minutes"`
	MaxPlayers      int    `json:"max_players" binding:"required,min=1"`
	Location        string `json:"location"`
	Difficulty      string `json:"difficulty"`

	Description     string `json:"description"`
	Synopsis        string `json:"synopsis"`
	TriggerWarnings string `json:"trigger_warnings"`
	SafetyTools     string `json:"safety_tools"`
	Prerequisites   string `json:"prerequisites"`
	AdditionalInfo  string `json:"additional_info"`

	BannerImage     string `json:"banner_image"`
	BackgroundImage string `json:"background_image"`

	Visible              *bool      `json:"visible"`
	RequiresApproval     *bool      `json:"requires_approval"`
	RegistrationDeadline *time.Time `json:"registration_deadline"`
}

type SessionUpdateInput struct {
	Name            *string `json:"name"`
	GameType        *string `json:"game_type"`
	Date            *string `json:"date"`
	Time            *string `json:"time"`
	DurationMinutes *int    `json:"duration_minutes"`
	MaxPlayers      *int    `json:"max_players"`
	Location        *string `json:"location"`
	Difficulty      *string `json:"difficulty"`

	Description     *string `json:"description"`
	Synopsis        *string `json:"synopsis"`
	TriggerWarnings *string `json:"trigger_warnings"`
	SafetyTools     *string `json:"safety_tools"`
	Prerequisites   *string `json:"prerequisites"`
	AdditionalInfo  *string `json:"additional_info"`

	BannerImage     *string `json:"banner_image"`
	BackgroundImage *string `json:"background_image"`

	Status               *string    `json:"status"`
	Visible              *bool      `json:"visible"`
	RequiresApproval     *bool      `json:"requires_approval"`
	RegistrationDeadline *time.Time `json:"registration_deadline"`
}

type SessionResponse struct {
	ID              uint   `json:"id"`
	Name            string `json:"name"`
	GameType        string `json:"game_type"`
	OrganizerID     *uint  `json:"organizer_id,omitempty"`
	OrganizerName   string `json:"organizer_name,omitempty"`
	StartsAt        string `json:"starts_at"`
	DurationMinutes int    `json:"duration_minutes"`
	MaxPlayers      int    `json:"max_players"`
	CurrentPlayers  int    `json:"current_players"`
	Location        string `json:"location"`
	Difficulty      string `json:"difficulty"`

	Description     string `json:"description,omitempty"`
	Synopsis        string `json:"synopsis,omitempty"`
	TriggerWarnings string `json:"trigger_warnings,omitempty"`
	SafetyTools     string `json:"safety_tools,omitempty"`
	Prerequisites   string `json:"prerequisites,omitempty"`
	AdditionalInfo  string `json:"additional_info,omitempty"`

	BannerImage     string `json:"banner_image,omitempty"`
	BackgroundImage string `json:"background_image,omitempty"`

	Status               string     `json:"status"`
	Visible              bool       `json:"visible"`
	RequiresApproval     bool       `json:"requires_approval"`
	RegistrationDeadline *time.Time `json:"registration_deadline,omitempty"`
}

func newSessionResponse(s models.Session) SessionResponse {
	return SessionResponse{
		ID:              s.ID,
		Name:            s.Name,
		GameType:        string(s.GameType),
		OrganizerID:     s.OrganizerID,
		OrganizerName:   s.OrganizerName,
		StartsAt:        s.StartsAt.Format(time.RFC3339),
		DurationMinutes: s.DurationMinutes,
		MaxPlayers:      s.MaxPlayers,
		CurrentPlayers:  s.CurrentPlayers,
		Location:        s.Location,
		Difficulty:      string(s.Difficulty),

		Description:     s.Description,
		Synopsis:        s.Synopsis,
		TriggerWarnings: s.TriggerWarnings,
		SafetyTools:     s.SafetyTools,
		Prerequisites:   s.Prerequisites,
		AdditionalInfo:  s.AdditionalInfo,

		BannerImage:     s.BannerImage,
		BackgroundImage: s.BackgroundImage,

		Status:               string(s.Status),
		Visible:              s.Visible,
		RequiresApproval:     s.RequiresApproval,
		RegistrationDeadline: s.RegistrationDeadline,
	}
}

// endregion

func parseSessionDateTime(date, clock string) (time.Time, bool) {
	if clock == "" {
		clock = "00:00"
	}
	t, err := time.Parse("2006-01-02 15:04", date+" "+clock)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ListSessions godoc
// @Summary      List sessions
// @Description  Gets a paginated list of sessions, optionally filtered by status, game type and date range.
// @Tags         sessions
// @Produce      json
// @Param        status    query string false "Filter by status"
// @Param        game_type query string false "Filter by game type"
// @Param        date_from query string false "Sessions starting at or after (RFC 3339)"
// @Param        date_to   query string false "Sessions starting at or before (RFC 3339)"
// @Param        page      query int    false "Page number" default(1)
// @Param        limit     query int    false "Items per page" default(10)
// @Success      200 {object} PaginatedResponse[SessionResponse]
// @Router       /sessions [get]
func (h *SessionHandler) ListSessions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if page < 1 {
		page = 1
	}

	filter := repository.SessionFilter{
		Status:   models.SessionStatus(c.Query("status")),
		GameType: models.GameType(c.Query("game_type")),
		Limit:    limit,
		Offset:   (page - 1) * limit,
	}
	if from := c.Query("date_from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			filter.DateFrom = &t
		}
	}
	if to := c.Query("date_to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			filter.DateTo = &t
		}
	}

	total, err := h.sessions.Count(filter)
	if err != nil {
		respondError(c, err)
		return
	}
	sessions, err := h.sessions.List(filter)
	if err != nil {
		respondError(c, err)
		return
	}

	data := make([]SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		data = append(data, newSessionResponse(s))
	}
	c.JSON(http.StatusOK, NewPaginatedResponse(data, total, page, limit))
}

// GetSession godoc
// @Summary      Get a session by ID
// @Tags         sessions
// @Produce      json
// @Param        id path int true "Session ID"
// @Success      200 {object} SessionResponse
// @Failure      404 {object} ErrorResponse "Session not found"
// @Router       /sessions/{id} [get]
func (h *SessionHandler) GetSession(c *gin.Context) {
	id, _ := strconv.Atoi(c.Param("id"))

	session, err := h.sessions.Get(uint(id))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionResponse(*session))
}

// CreateSession godoc
// @Summary      Create a session
// @Description  Creates a new game session with the caller as organizer.
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body SessionInput true "Session Info"
// @Success      201 {object} SessionResponse
// @Failure      400 {object} ErrorResponse
// @Router       /sessions [post]
func (h *SessionHandler) CreateSession(c *gin.Context) {
	userID, _ := c.Get("userID")

	var input SessionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	startsAt, ok := parseSessionDateTime(input.Date, input.Time)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD and time HH:MM"})
		return
	}

	organizerID := userID.(uint)
	var organizerName string
	var organizer models.User
	if err := h.db.First(&organizer, organizerID).Error; err == nil {
		organizerName = organizer.Nickname
	}

	id, err := h.sessions.Create(repository.SessionInput{
		Name:            input.Name,
		GameType:        models.GameType(input.GameType),
		OrganizerID:     &organizerID,
		OrganizerName:   organizerName,
		StartsAt:        startsAt,
		DurationMinutes: input.DurationMinutes,
		MaxPlayers:      input.MaxPlayers,
		Location:        input.Location,
		Difficulty:      models.Difficulty(input.Difficulty),

		Description:     input.Description,
		Synopsis:        input.Synopsis,
		TriggerWarnings: input.TriggerWarnings,
		SafetyTools:     input.SafetyTools,
		Prerequisites:   input.Prerequisites,
		AdditionalInfo:  input.AdditionalInfo,

		BannerImage:     input.BannerImage,
		BackgroundImage: input.BackgroundImage,

		Visible:              input.Visible,
		RequiresApproval:     input.RequiresApproval,
		RegistrationDeadline: input.RegistrationDeadline,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	session, err := h.sessions.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newSessionResponse(*session))
}

// UpdateSession godoc
// @Summary      Update a session (organizer or admin)
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path int                true "Session ID"
// @Param        input body SessionUpdateInput true "Fields to change"
// @Success      200 {object} SessionResponse
// @Failure      403 {object} ErrorResponse "Only the organizer can update the session"
// @Failure      404 {object} ErrorResponse "Session not found"
// @Router       /sessions/{id} [put]
func (h *SessionHandler) UpdateSession(c *gin.Context) {
	id, _ := strconv.Atoi(c.Param("id"))

	session, err := h.sessions.Get(uint(id))
	if err != nil {
		respondError(c, err)
		return
	}
	if !h.canManage(c, session) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the organizer can update the session"})
		return
	}

	var input SessionUpdateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	upd := repository.SessionUpdate{
		Name:            input.Name,
		DurationMinutes: input.DurationMinutes,
		MaxPlayers:      input.MaxPlayers,
		Location:        input.Location,

		Description:     input.Description,
		Synopsis:        input.Synopsis,
		TriggerWarnings: input.TriggerWarnings,
		SafetyTools:     input.SafetyTools,
		Prerequisites:   input.Prerequisites,
		AdditionalInfo:  input.AdditionalInfo,

		BannerImage:     input.BannerImage,
		BackgroundImage: input.BackgroundImage,

		Visible:              input.Visible,
		RequiresApproval:     input.RequiresApproval,
		RegistrationDeadline: input.RegistrationDeadline,
	}
	if input.GameType != nil {
		gt := models.GameType(*input.GameType)
		upd.GameType = &gt
	}
	if input.Difficulty != nil {
		d := models.Difficulty(*input.Difficulty)
		upd.Difficulty = &d
	}
	if input.Status != nil {
		st := models.SessionStatus(*input.Status)
		upd.Status = &st
	}
	if input.Date != nil || input.Time != nil {
		date := session.StartsAt.Format("2006-01-02")
		clock := session.StartsAt.Format("15:04")
		if input.Date != nil {
			date = *input.Date
		}
		if input.Time != nil {
			clock = *input.Time
		}
		startsAt, ok := parseSessionDateTime(date, clock)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD and time HH:MM"})
			return
		}
		upd.StartsAt = &startsAt
	}

	if err := h.sessions.Update(uint(id), upd); err != nil {
		respondError(c, err)
		return
	}

	session, err = h.sessions.Get(uint(id))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionResponse(*session))
}

// DeleteSession godoc
// @Summary      Delete a session (organizer or admin)
// @Description  Deletes a session and everything it owns: registrations, custom form, responses and character sheets.
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Session ID"
// @Success      200 {object} map[string]string "{"message": "Session deleted"}"
// @Failure      403 {object} ErrorResponse "Only the organizer can delete the session"
// @Failure      404 {object} ErrorResponse "Session not found"
// @Router       /sessions/{id} [delete]
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	id, _ := strconv.Atoi(c.Param("id"))

	session, err := h.sessions.Get(uint(id))
	if err != nil {
		respondError(c, err)
		return
	}
	if !h.canManage(c, session) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the organizer can delete the session"})
		return
	}

	if err := h.sessions.Delete(uint(id)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Session deleted"})
}

func (h *SessionHandler) canManage(c *gin.Context, session *models.Session) bool {
	req := currentRequester(c, h.db)
	if req.Admin {
		return true
	}
	return session.OrganizerID != nil && *session.OrganizerID == req.ID
}
