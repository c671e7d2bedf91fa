package repository

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gametable/backend/internal/models"

	"gorm.io/gorm"
)

// SheetStore manages character sheet files on disk plus their metadata
// rows. The two writes are not atomic; on a failed metadata insert the
// just-written file is removed so a download can never point at nothing.
type SheetStore struct {
	db      *gorm.DB
	dir     string
	baseURL string
}

func NewSheetStore(db *gorm.DB, dir, baseURL string) *SheetStore {
	return &SheetStore{db: db, dir: dir, baseURL: strings.TrimRight(baseURL, "/")}
}

var allowedSheetExtensions = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true, ".txt": true,
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
}

// ListMode selects how much ListForSession exposes.
type ListMode string

const (
	// ListView hides other players' private sheets from non-admins.
	ListView ListMode = "view"
	// ListManage returns everything; callers gate it on organizer/admin.
	ListManage ListMode = "manage"
)

// SheetUpload carries the metadata accompanying an uploaded file.
type SheetUpload struct {
	OriginalName string
	MimeType     string
	Size         int64
	Description  string
	Private      bool
}

// Upload stores a character sheet for (sessionID, playerID). Only the
// session's organizer or an admin may upload. The player must already be
// registered for the session.
func (s *SheetStore) Upload(sessionID, playerID uint, requester Requester, file io.Reader, up SheetUpload) (*models.CharacterSheet, error) {
	var session models.Session
	if err := s.db.First(&session, sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, storageErr("load session", sessionID, err)
	}
	if !s.organizerOrAdmin(session, requester) {
		return nil, &PermissionError{Action: "upload character sheets for this session"}
	}

	ext := strings.ToLower(filepath.Ext(up.OriginalName))
	if !allowedSheetExtensions[ext] {
		return nil, &ValidationError{Field: "file", Reason: "file type " + ext + " is not allowed"}
	}

	var reg models.Registration
	err := s.db.Where("session_id = ? AND user_id = ?", sessionID, playerID).First(&reg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, storageErr("find registration", sessionID, err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, storageErr("create upload dir", sessionID, err)
	}
	name := fmt.Sprintf("sheet_%d_%d_%d%s", sessionID, playerID, time.Now().UnixNano(), ext)
	path := filepath.Join(s.dir, name)

	dst, err := os.Create(path)
	if err != nil {
		return nil, storageErr("create sheet file", sessionID, err)
	}
	written, err := io.Copy(dst, file)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return nil, storageErr("write sheet file", sessionID, err)
	}

	sheet := models.CharacterSheet{
		SessionID:      sessionID,
		PlayerID:       playerID,
		RegistrationID: reg.ID,
		FileName:       name,
		OriginalName:   up.OriginalName,
		FilePath:       path,
		FileURL:        s.baseURL + "/" + name,
		MimeType:       up.MimeType,
		FileSize:       written,
		Description:    up.Description,
		Private:        up.Private,
		UploadedBy:     requester.ID,
	}
	if err := s.db.Create(&sheet).Error; err != nil {
		// No orphan metadata-less files either way round: the row failed,
		// so the file goes too.
		_ = os.Remove(path)
		return nil, storageErr("create sheet record", sessionID, err)
	}
	return &sheet, nil
}

// Get returns the sheet metadata or ErrNotFound.
func (s *SheetStore) Get(id uint) (*models.CharacterSheet, error) {
	var sheet models.CharacterSheet
	if err := s.db.First(&sheet, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, storageErr("get sheet", id, err)
	}
	return &sheet, nil
}

// Delete removes the stored file, tolerating one that is already gone,
// then the metadata row. Only the session organizer or an admin may delete.
func (s *SheetStore) Delete(id uint, requester Requester) error {
	sheet, err := s.Get(id)
	if err != nil {
		return err
	}

	var session models.Session
	if err := s.db.First(&session, sheet.SessionID).Error; err != nil {
		return storageErr("load session", sheet.SessionID, err)
	}
	if !s.organizerOrAdmin(session, requester) {
		return &PermissionError{Action: "delete this character sheet"}
	}

	if err := os.Remove(sheet.FilePath); err != nil && !os.IsNotExist(err) {
		return storageErr("remove sheet file", id, err)
	}
	if err := s.db.Delete(&models.CharacterSheet{}, id).Error; err != nil {
		return storageErr("delete sheet record", id, err)
	}
	return nil
}

// CanDownload reports whether the requester may fetch the sheet's file.
// Admins always may. A private sheet is restricted to the owning player;
// a public one extends to the session's organizer.
func (s *SheetStore) CanDownload(sheet *models.CharacterSheet, requester Requester) (bool, error) {
	if requester.Admin {
		return true, nil
	}
	if sheet.Private {
		return sheet.PlayerID == requester.ID, nil
	}
	if sheet.PlayerID == requester.ID {
		return true, nil
	}

	var session models.Session
	if err := s.db.First(&session, sheet.SessionID).Error; err != nil {
		return false, storageErr("load session", sheet.SessionID, err)
	}
	return session.OrganizerID != nil && *session.OrganizerID == requester.ID, nil
}

// ListForSession returns a session's sheets. In view mode, non-admins only
// see sheets they own or that are not private.
func (s *SheetStore) ListForSession(sessionID uint, requester Requester, mode ListMode) ([]models.CharacterSheet, error) {
	q := s.db.Where("session_id = ?", sessionID)
	if mode == ListView && !requester.Admin {
		q = q.Where("player_id = ? OR private = ?", requester.ID, false)
	}
	var sheets []models.CharacterSheet
	if err := q.Order("created_at ASC").Find(&sheets).Error; err != nil {
		return nil, storageErr("list sheets", sessionID, err)
	}
	return sheets, nil
}

func (s *SheetStore) organizerOrAdmin(session models.Session, requester Requester) bool {
	if requester.Admin {
		return true
	}
	return session.OrganizerID != nil && *session.OrganizerID == requester.ID
}
