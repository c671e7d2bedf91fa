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

// SheetHandler exposes the character sheet store over HTTP.
type SheetHandler struct {
	db     *gorm.DB
	sheets *repository.SheetStore
}

func NewSheetHandler(db *gorm.DB, sheets *repository.SheetStore) *SheetHandler {
	return &SheetHandler{db: db, sheets: sheets}
}

// region --- DTOs ---

type SheetResponse struct {
	ID             uint      `json:"id"`
	SessionID      uint      `json:"session_id"`
	PlayerID       uint      `json:"player_id"`
	RegistrationID uint      `json:"registration_id"`
	OriginalName   string    `json:"original_name"`
	FileURL        string    `json:"file_url"`
	MimeType       string    `json:"mime_type,omitempty"`
	FileSize       int64     `json:"file_size"`
	Description    string    `json:"description,omitempty"`
	Private        bool      `json:"private"`
	UploadedBy     uint      `json:"uploaded_by"`
	CreatedAt      time.Time `json:"created_at"`
}

func newSheetResponse(s models.CharacterSheet) SheetResponse {
	return SheetResponse{
		ID:             s.ID,
		SessionID:      s.SessionID,
		PlayerID:       s.PlayerID,
		RegistrationID: s.RegistrationID,
		OriginalName:   s.OriginalName,
		FileURL:        s.FileURL,
		MimeType:       s.MimeType,
		FileSize:       s.FileSize,
		Description:    s.Description,
		Private:        s.Private,
		UploadedBy:     s.UploadedBy,
		CreatedAt:      s.CreatedAt,
	}
}

// endregion

// UploadSheet godoc
// @Summary      Upload a character sheet (organizer or admin)
// @Description  Stores a character sheet file for a registered player. Allowed types: pdf, doc, docx, txt, jpg, jpeg, png, gif.
// @Tags         sheets
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        id          path     int    true  "Session ID"
// @Param        player_id   formData int    true  "Player user ID"
// @Param        file        formData file   true  "Sheet file"
// @Param        description formData string false "Description"
// @Param        private     formData bool   false "Visible only to the player"
// @Success      201 {object} SheetResponse
// @Failure      400 {object} ErrorResponse "File type not allowed"
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse "No registration for this player"
// @Router       /sessions/{id}/sheets [post]
func (h *SheetHandler) UploadSheet(c *gin.Context) {
	sessionID, _ := strconv.Atoi(c.Param("id"))
	playerID, err := strconv.Atoi(c.PostForm("player_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "player_id is required"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read uploaded file"})
		return
	}
	defer file.Close()

	private, _ := strconv.ParseBool(c.DefaultPostForm("private", "false"))
	sheet, err := h.sheets.Upload(uint(sessionID), uint(playerID), currentRequester(c, h.db), file, repository.SheetUpload{
		OriginalName: fileHeader.Filename,
		MimeType:     fileHeader.Header.Get("Content-Type"),
		Size:         fileHeader.Size,
		Description:  c.PostForm("description"),
		Private:      private,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newSheetResponse(*sheet))
}

// ListSheets godoc
// @Summary      List a session's character sheets
// @Description  Non-admins only see sheets they own or that are not private.
// @Tags         sheets
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Session ID"
// @Success      200 {array} SheetResponse
// @Router       /sessions/{id}/sheets [get]
func (h *SheetHandler) ListSheets(c *gin.Context) {
	sessionID, _ := strconv.Atoi(c.Param("id"))

	sheets, err := h.sheets.ListForSession(uint(sessionID), currentRequester(c, h.db), repository.ListView)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]SheetResponse, 0, len(sheets))
	for _, s := range sheets {
		response = append(response, newSheetResponse(s))
	}
	c.JSON(http.StatusOK, response)
}

// DownloadSheet godoc
// @Summary      Download a character sheet file
// @Description  Admins always may; private sheets are restricted to the owning player, public ones to player and organizer.
// @Tags         sheets
// @Produce      application/octet-stream
// @Security     BearerAuth
// @Param        id path int true "Sheet ID"
// @Success      200 {file} file
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse "Sheet not found"
// @Router       /sheets/{id}/download [get]
func (h *SheetHandler) DownloadSheet(c *gin.Context) {
	id, _ := strconv.Atoi(c.Param("id"))

	sheet, err := h.sheets.Get(uint(id))
	if err != nil {
		respondError(c, err)
		return
	}

	ok, err := h.sheets.CanDownload(sheet, currentRequester(c, h.db))
	if err != nil {
		respondError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not allowed to download this sheet"})
		return
	}

	c.FileAttachment(sheet.FilePath, sheet.OriginalName)
}

// DeleteSheet godoc
// @Summary      Delete a character sheet (organizer or admin)
// @Tags         sheets
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Sheet ID"
// @Success      200 {object} map[string]string "{"message": "Sheet deleted"}"
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse "Sheet not found"
// @Router       /sheets/{id} [delete]
func (h *SheetHandler) DeleteSheet(c *gin.Context) {
	id, _ := strconv.Atoi(c.Param("id"))

	if err := h.sheets.Delete(uint(id), currentRequester(c, h.db)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Sheet deleted"})
}
