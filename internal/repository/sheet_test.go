package repository

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gametable/backend/internal/models"

	"gorm.io/gorm"
)

type sheetFixture struct {
	db        *gorm.DB
	store     *SheetStore
	sessionID uint
	organizer models.User
	player    models.User
	admin     models.User
	stranger  models.User
}

func newSheetFixture(t *testing.T) *sheetFixture {
	t.Helper()
	db := openTestDB(t)

	organizer := createTestUser(t, db, "organizer", "user")
	player := createTestUser(t, db, "player", "user")
	admin := createTestUser(t, db, "admin", "admin")
	stranger := createTestUser(t, db, "stranger", "user")

	sessionID := createTestSession(t, db, testSessionOpts{maxPlayers: 4, organizerID: &organizer.ID})

	registrations := NewRegistrationRepository(db)
	in := playerInput(1)
	in.UserID = &player.ID
	if _, err := registrations.Register(sessionID, in); err != nil {
		t.Fatalf("register player: %v", err)
	}

	return &sheetFixture{
		db:        db,
		store:     NewSheetStore(db, t.TempDir(), "/files/character-sheets"),
		sessionID: sessionID,
		organizer: organizer,
		player:    player,
		admin:     admin,
		stranger:  stranger,
	}
}

func (f *sheetFixture) upload(t *testing.T, requester Requester, name string, private bool) (*models.CharacterSheet, error) {
	t.Helper()
	return f.store.Upload(f.sessionID, f.player.ID, requester, strings.NewReader("sheet contents"), SheetUpload{
		OriginalName: name,
		MimeType:     "application/pdf",
		Private:      private,
	})
}

func requesterFor(u models.User) Requester {
	return Requester{ID: u.ID, Admin: u.IsAdmin()}
}

func TestUploadByOrganizerWritesFileAndMetadata(t *testing.T) {
	f := newSheetFixture(t)

	sheet, err := f.upload(t, requesterFor(f.organizer), "rogue.pdf", false)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if _, err := os.Stat(sheet.FilePath); err != nil {
		t.Fatalf("stored file missing: %v", err)
	}
	if sheet.FileSize != int64(len("sheet contents")) {
		t.Fatalf("file size = %d", sheet.FileSize)
	}
	if !strings.HasPrefix(sheet.FileURL, "/files/character-sheets/") {
		t.Fatalf("unexpected URL %q", sheet.FileURL)
	}
	if filepath.Ext(sheet.FileName) != ".pdf" {
		t.Fatalf("stored name %q lost its extension", sheet.FileName)
	}
	if sheet.UploadedBy != f.organizer.ID {
		t.Fatalf("uploader = %d, want organizer %d", sheet.UploadedBy, f.organizer.ID)
	}

	// Stored names must not collide across uploads for the same player.
	again, err := f.upload(t, requesterFor(f.organizer), "rogue.pdf", false)
	if err != nil {
		t.Fatalf("second upload: %v", err)
	}
	if again.FileName == sheet.FileName {
		t.Fatal("two uploads produced the same stored filename")
	}
}

func TestUploadPermissionDenied(t *testing.T) {
	f := newSheetFixture(t)

	_, err := f.upload(t, requesterFor(f.stranger), "rogue.pdf", false)
	var permission *PermissionError
	if !errors.As(err, &permission) {
		t.Fatalf("expected PermissionError, got %v", err)
	}

	// The player is not the organizer either.
	_, err = f.upload(t, requesterFor(f.player), "rogue.pdf", false)
	if !errors.As(err, &permission) {
		t.Fatalf("expected PermissionError for player, got %v", err)
	}

	if _, err := f.upload(t, requesterFor(f.admin), "rogue.pdf", false); err != nil {
		t.Fatalf("admin upload should succeed: %v", err)
	}
}

func TestUploadRejectsDisallowedExtension(t *testing.T) {
	f := newSheetFixture(t)

	for _, name := range []string{"virus.exe", "macro.xlsm", "noextension"} {
		_, err := f.upload(t, requesterFor(f.organizer), name, false)
		var validation *ValidationError
		if !errors.As(err, &validation) {
			t.Errorf("%s: expected ValidationError, got %v", name, err)
		}
	}

	for _, name := range []string{"a.pdf", "b.doc", "c.docx", "d.txt", "e.jpg", "f.jpeg", "g.png", "h.gif"} {
		if _, err := f.upload(t, requesterFor(f.organizer), name, false); err != nil {
			t.Errorf("%s: expected success, got %v", name, err)
		}
	}
}

func TestUploadRequiresRegistration(t *testing.T) {
	f := newSheetFixture(t)

	_, err := f.store.Upload(f.sessionID, f.stranger.ID, requesterFor(f.organizer),
		strings.NewReader("x"), SheetUpload{OriginalName: "x.pdf"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unregistered player, got %v", err)
	}
}

func TestCanDownloadMatrix(t *testing.T) {
	f := newSheetFixture(t)

	private, err := f.upload(t, requesterFor(f.organizer), "secret.pdf", true)
	if err != nil {
		t.Fatalf("upload private: %v", err)
	}
	public, err := f.upload(t, requesterFor(f.organizer), "open.pdf", false)
	if err != nil {
		t.Fatalf("upload public: %v", err)
	}

	cases := []struct {
		name      string
		sheet     *models.CharacterSheet
		requester Requester
		want      bool
	}{
		{"private: owning player", private, requesterFor(f.player), true},
		{"private: admin", private, requesterFor(f.admin), true},
		{"private: organizer", private, requesterFor(f.organizer), false},
		{"private: stranger", private, requesterFor(f.stranger), false},
		{"public: owning player", public, requesterFor(f.player), true},
		{"public: organizer", public, requesterFor(f.organizer), true},
		{"public: admin", public, requesterFor(f.admin), true},
		{"public: stranger", public, requesterFor(f.stranger), false},
	}
	for _, tc := range cases {
		got, err := f.store.CanDownload(tc.sheet, tc.requester)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if got != tc.want {
			t.Errorf("%s: CanDownload = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestListForSessionViewMode(t *testing.T) {
	f := newSheetFixture(t)

	if _, err := f.upload(t, requesterFor(f.organizer), "secret.pdf", true); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if _, err := f.upload(t, requesterFor(f.organizer), "open.pdf", false); err != nil {
		t.Fatalf("upload: %v", err)
	}

	asPlayer, err := f.store.ListForSession(f.sessionID, requesterFor(f.player), ListView)
	if err != nil {
		t.Fatalf("list as player: %v", err)
	}
	if len(asPlayer) != 2 {
		t.Fatalf("player sees %d sheets, want 2 (owns both)", len(asPlayer))
	}

	asStranger, err := f.store.ListForSession(f.sessionID, requesterFor(f.stranger), ListView)
	if err != nil {
		t.Fatalf("list as stranger: %v", err)
	}
	if len(asStranger) != 1 || asStranger[0].Private {
		t.Fatalf("stranger sees %d sheets (private leak?)", len(asStranger))
	}

	asAdmin, err := f.store.ListForSession(f.sessionID, requesterFor(f.admin), ListView)
	if err != nil {
		t.Fatalf("list as admin: %v", err)
	}
	if len(asAdmin) != 2 {
		t.Fatalf("admin sees %d sheets, want 2", len(asAdmin))
	}
}

func TestDeleteSheet(t *testing.T) {
	f := newSheetFixture(t)

	sheet, err := f.upload(t, requesterFor(f.organizer), "sheet.pdf", false)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	var permission *PermissionError
	if err := f.store.Delete(sheet.ID, requesterFor(f.stranger)); !errors.As(err, &permission) {
		t.Fatalf("expected PermissionError, got %v", err)
	}

	if err := f.store.Delete(sheet.ID, requesterFor(f.organizer)); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := os.Stat(sheet.FilePath); !os.IsNotExist(err) {
		t.Fatal("file still on disk after delete")
	}
	if _, err := f.store.Get(sheet.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("metadata still present: %v", err)
	}
}

func TestDeleteSheetToleratesMissingFile(t *testing.T) {
	f := newSheetFixture(t)

	sheet, err := f.upload(t, requesterFor(f.organizer), "sheet.pdf", false)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if err := os.Remove(sheet.FilePath); err != nil {
		t.Fatalf("remove file: %v", err)
	}

	if err := f.store.Delete(sheet.ID, requesterFor(f.admin)); err != nil {
		t.Fatalf("delete with missing file: %v", err)
	}
	if _, err := f.store.Get(sheet.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("metadata still present: %v", err)
	}
}
