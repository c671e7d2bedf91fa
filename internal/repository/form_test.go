package repository

import (
	"reflect"
	"testing"

	"gametable/backend/internal/models"
)

func TestFieldListRoundTrip(t *testing.T) {
	db := openTestDB(t)
	repo := NewFormRepository(db)
	sessionID := createTestSession(t, db, testSessionOpts{})

	fields := []models.FormField{
		{Type: models.FieldSelect, Name: "xp", Label: "Experience", Required: true,
			Options: []string{"novice", "expert"}},
		{Type: models.FieldText, Name: "note", Label: "Note", Required: false},
	}

	if _, err := repo.SaveForSession(sessionID, FormInput{Title: "Extra questions", Fields: fields, Active: true}); err != nil {
		t.Fatalf("save: %v", err)
	}

	form, err := repo.GetForSession(sessionID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if form == nil {
		t.Fatal("form missing after save")
	}
	if !reflect.DeepEqual(form.Fields, fields) {
		t.Fatalf("round trip mismatch:\n got  %#v\n want %#v", form.Fields, fields)
	}
}

func TestSaveFormUpsertKeepsIdentifier(t *testing.T) {
	db := openTestDB(t)
	repo := NewFormRepository(db)
	sessionID := createTestSession(t, db, testSessionOpts{})

	first, err := repo.SaveForSession(sessionID, FormInput{Title: "v1", Active: true})
	if err != nil {
		t.Fatalf("first save: %v", err)
	}
	second, err := repo.SaveForSession(sessionID, FormInput{
		Title:  "v2",
		Fields: []models.FormField{{Type: models.FieldText, Name: "a", Label: "A"}},
		Active: false,
	})
	if err != nil {
		t.Fatalf("second save: %v", err)
	}
	if first != second {
		t.Fatalf("upsert changed the identifier: %d -> %d", first, second)
	}

	var count int64
	db.Model(&models.CustomForm{}).Where("session_id = ?", sessionID).Count(&count)
	if count != 1 {
		t.Fatalf("%d form rows for one session, want 1", count)
	}

	form, _ := repo.GetForSession(sessionID)
	if form.Title != "v2" || form.Active {
		t.Fatalf("second save not applied: %+v", form)
	}
}

func TestSaveFormValidation(t *testing.T) {
	db := openTestDB(t)
	repo := NewFormRepository(db)
	sessionID := createTestSession(t, db, testSessionOpts{})

	if _, err := repo.SaveForSession(sessionID, FormInput{Title: ""}); err == nil {
		t.Fatal("expected error for empty title")
	}
	if _, err := repo.SaveForSession(sessionID, FormInput{
		Title:  "x",
		Fields: []models.FormField{{Type: models.FieldText, Label: "no internal name"}},
	}); err == nil {
		t.Fatal("expected error for field without name")
	}
}

func TestGetFormAbsent(t *testing.T) {
	db := openTestDB(t)
	repo := NewFormRepository(db)
	sessionID := createTestSession(t, db, testSessionOpts{})

	form, err := repo.GetForSession(sessionID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if form != nil {
		t.Fatalf("expected absent form, got %+v", form)
	}
}

func TestDefaultFields(t *testing.T) {
	for _, gt := range []models.GameType{models.GameTypeMurderParty, models.GameTypeRolePlay, models.GameTypeBoardGame} {
		fields := DefaultFields(gt)
		if len(fields) == 0 {
			t.Errorf("%s: expected canned fields", gt)
		}
		for _, f := range fields {
			if f.Name == "" || f.Label == "" {
				t.Errorf("%s: field missing name or label: %+v", gt, f)
			}
			if f.Type == models.FieldSelect && len(f.Options) == 0 {
				t.Errorf("%s: select field %s has no options", gt, f.Name)
			}
		}
	}

	if fields := DefaultFields("tiddlywinks"); len(fields) != 0 {
		t.Fatalf("unknown game type: expected empty list, got %d fields", len(fields))
	}
}

func TestResponseUpsert(t *testing.T) {
	db := openTestDB(t)
	repo := NewFormRepository(db)
	registrations := NewRegistrationRepository(db)
	sessionID := createTestSession(t, db, testSessionOpts{})

	reg, err := registrations.Register(sessionID, playerInput(1))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := repo.SaveResponse(sessionID, reg.ID, nil, map[string]string{"a": "1"}); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := repo.SaveResponse(sessionID, reg.ID, nil, map[string]string{"a": "2"}); err != nil {
		t.Fatalf("second save: %v", err)
	}

	var count int64
	db.Model(&models.FormResponse{}).
		Where("session_id = ? AND registration_id = ?", sessionID, reg.ID).
		Count(&count)
	if count != 1 {
		t.Fatalf("%d response rows for the pair, want 1", count)
	}

	resp, err := repo.GetResponse(sessionID, reg.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if resp == nil || resp.Payload["a"] != "2" {
		t.Fatalf("payload = %v, want a=2", resp)
	}
}

func TestGetResponseAbsent(t *testing.T) {
	db := openTestDB(t)
	repo := NewFormRepository(db)
	sessionID := createTestSession(t, db, testSessionOpts{})

	resp, err := repo.GetResponse(sessionID, 12345)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if resp != nil {
		t.Fatalf("expected absent response, got %+v", resp)
	}
}

func TestListResponsesJoinsPlayer(t *testing.T) {
	db := openTestDB(t)
	repo := NewFormRepository(db)
	registrations := NewRegistrationRepository(db)
	sessionID := createTestSession(t, db, testSessionOpts{maxPlayers: 5})

	r1, _ := registrations.Register(sessionID, playerInput(1))
	r2, _ := registrations.Register(sessionID, playerInput(2))

	if err := repo.SaveResponse(sessionID, r1.ID, nil, map[string]string{"q": "first"}); err != nil {
		t.Fatalf("save r1: %v", err)
	}
	if err := repo.SaveResponse(sessionID, r2.ID, nil, map[string]string{"q": "second"}); err != nil {
		t.Fatalf("save r2: %v", err)
	}

	responses, err := repo.ListResponsesForSession(sessionID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(responses) != 2 {
		t.Fatalf("listed %d responses, want 2", len(responses))
	}
	for _, r := range responses {
		if r.PlayerName == "" || r.PlayerEmail == "" {
			t.Fatalf("response %d missing joined player info", r.ID)
		}
	}
	if responses[0].SubmittedAt.Before(responses[1].SubmittedAt) {
		t.Fatal("responses not ordered newest first")
	}
}
