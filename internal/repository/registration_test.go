package repository

import (
	"errors"
	"testing"
	"time"

	"gametable/backend/internal/models"
)

func TestRegisterDirectConfirmWithoutApproval(t *testing.T) {
	db := openTestDB(t)
	repo := NewRegistrationRepository(db)
	sessionID := createTestSession(t, db, testSessionOpts{maxPlayers: 3, requiresApproval: false})

	reg, err := repo.Register(sessionID, playerInput(1))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if reg.Status != models.RegistrationConfirmed {
		t.Fatalf("expected confirmed, got %s", reg.Status)
	}
	if reg.ConfirmedAt == nil {
		t.Fatal("expected confirmation timestamp to be set")
	}
	if got := sessionPlayers(t, db, sessionID); got != 1 {
		t.Fatalf("current_players = %d, want 1", got)
	}
}

func TestRegisterPendingWhenApprovalRequired(t *testing.T) {
	db := openTestDB(t)
	repo := NewRegistrationRepository(db)
	sessionID := createTestSession(t, db, testSessionOpts{maxPlayers: 3, requiresApproval: true})

	reg, err := repo.Register(sessionID, playerInput(1))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if reg.Status != models.RegistrationPending {
		t.Fatalf("expected pending, got %s", reg.Status)
	}
	if got := sessionPlayers(t, db, sessionID); got != 0 {
		t.Fatalf("current_players = %d, want 0 before confirmation", got)
	}
}

func TestRegisterWaitlistsWhenFull(t *testing.T) {
	db := openTestDB(t)
	repo := NewRegistrationRepository(db)
	sessionID := createTestSession(t, db, testSessionOpts{maxPlayers: 2, requiresApproval: false})

	for i := 1; i <= 2; i++ {
		if _, err := repo.Register(sessionID, playerInput(i)); err != nil {
			t.Fatalf("register %d: %v", i, err)
		}
	}

	reg, err := repo.Register(sessionID, playerInput(3))
	if err != nil {
		t.Fatalf("register overflow: %v", err)
	}
	if reg.Status != models.RegistrationWaitlisted {
		t.Fatalf("expected waitlisted, got %s", reg.Status)
	}
	if got := sessionPlayers(t, db, sessionID); got != 2 {
		t.Fatalf("current_players = %d, want 2", got)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	db := openTestDB(t)
	repo := NewRegistrationRepository(db)
	sessionID := createTestSession(t, db, testSessionOpts{})

	if _, err := repo.Register(sessionID, playerInput(1)); err != nil {
		t.Fatalf("first register: %v", err)
	}

	_, err := repo.Register(sessionID, playerInput(1))
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}

	var count int64
	db.Model(&models.Registration{}).
		Where("session_id = ? AND player_email = ?", sessionID, playerInput(1).PlayerEmail).
		Count(&count)
	if count != 1 {
		t.Fatalf("stored %d registrations for the pair, want 1", count)
	}
}

func TestRegisterUnknownSession(t *testing.T) {
	db := openTestDB(t)
	repo := NewRegistrationRepository(db)

	if _, err := repo.Register(9999, playerInput(1)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRegisterRejectsBadEmail(t *testing.T) {
	db := openTestDB(t)
	repo := NewRegistrationRepository(db)
	sessionID := createTestSession(t, db, testSessionOpts{})

	in := playerInput(1)
	in.PlayerEmail = "not-an-email"
	_, err := repo.Register(sessionID, in)
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestRegisterAfterDeadline(t *testing.T) {
	db := openTestDB(t)
	repo := NewRegistrationRepository(db)
	deadline := time.Now().Add(-time.Hour)
	sessionID := createTestSession(t, db, testSessionOpts{deadline: &deadline})

	_, err := repo.Register(sessionID, playerInput(1))
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError for passed deadline, got %v", err)
	}
}

func TestUpdateStatusConfirmStampsTimestamp(t *testing.T) {
	db := openTestDB(t)
	repo := NewRegistrationRepository(db)
	sessionID := createTestSession(t, db, testSessionOpts{maxPlayers: 3})

	reg, err := repo.Register(sessionID, playerInput(1))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	confirmed, err := repo.UpdateStatus(reg.ID, models.RegistrationConfirmed)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed.ConfirmedAt == nil {
		t.Fatal("expected confirmation timestamp")
	}
	if got := sessionPlayers(t, db, sessionID); got != 1 {
		t.Fatalf("current_players = %d, want 1", got)
	}

	cancelled, err := repo.UpdateStatus(reg.ID, models.RegistrationCancelled)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.ConfirmedAt != nil {
		t.Fatal("cancelling should clear the confirmation timestamp")
	}
	if got := sessionPlayers(t, db, sessionID); got != 0 {
		t.Fatalf("current_players = %d, want 0 after cancel", got)
	}
}

func TestUpdateStatusCancelledIsTerminal(t *testing.T) {
	db := openTestDB(t)
	repo := NewRegistrationRepository(db)
	sessionID := createTestSession(t, db, testSessionOpts{})

	reg, _ := repo.Register(sessionID, playerInput(1))
	if _, err := repo.UpdateStatus(reg.ID, models.RegistrationCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	_, err := repo.UpdateStatus(reg.ID, models.RegistrationConfirmed)
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError leaving cancelled, got %v", err)
	}
}

func TestUpdateStatusRejectsWaitlistingLater(t *testing.T) {
	db := openTestDB(t)
	repo := NewRegistrationRepository(db)
	sessionID := createTestSession(t, db, testSessionOpts{})

	reg, _ := repo.Register(sessionID, playerInput(1))
	_, err := repo.UpdateStatus(reg.ID, models.RegistrationWaitlisted)
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestConfirmWhenFullYieldsCapacityError(t *testing.T) {
	db := openTestDB(t)
	repo := NewRegistrationRepository(db)
	sessionID := createTestSession(t, db, testSessionOpts{maxPlayers: 1, requiresApproval: false})

	if _, err := repo.Register(sessionID, playerInput(1)); err != nil {
		t.Fatalf("register: %v", err)
	}
	waitlisted, err := repo.Register(sessionID, playerInput(2))
	if err != nil {
		t.Fatalf("register second: %v", err)
	}
	if waitlisted.Status != models.RegistrationWaitlisted {
		t.Fatalf("expected waitlisted, got %s", waitlisted.Status)
	}

	_, err = repo.UpdateStatus(waitlisted.ID, models.RegistrationConfirmed)
	var capacity *CapacityError
	if !errors.As(err, &capacity) {
		t.Fatalf("expected CapacityError, got %v", err)
	}

	// Freeing the slot lets the waitlisted player through.
	var first models.Registration
	db.Where("session_id = ? AND player_email = ?", sessionID, playerInput(1).PlayerEmail).First(&first)
	if _, err := repo.UpdateStatus(first.ID, models.RegistrationCancelled); err != nil {
		t.Fatalf("cancel first: %v", err)
	}
	promoted, err := repo.UpdateStatus(waitlisted.ID, models.RegistrationConfirmed)
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if promoted.Status != models.RegistrationConfirmed {
		t.Fatalf("expected confirmed, got %s", promoted.Status)
	}
}

func TestDeleteAlwaysRecounts(t *testing.T) {
	db := openTestDB(t)
	repo := NewRegistrationRepository(db)
	sessionID := createTestSession(t, db, testSessionOpts{maxPlayers: 3, requiresApproval: false})

	reg, _ := repo.Register(sessionID, playerInput(1))
	if got := sessionPlayers(t, db, sessionID); got != 1 {
		t.Fatalf("current_players = %d, want 1", got)
	}

	if err := repo.Delete(reg.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := sessionPlayers(t, db, sessionID); got != 0 {
		t.Fatalf("current_players = %d, want 0 after delete", got)
	}

	if err := repo.Delete(reg.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

// TestCapacityAccountingInvariant drives a mixed sequence of mutations and
// checks after every step that the stored counter matches a direct recount
// of confirmed rows.
func TestCapacityAccountingInvariant(t *testing.T) {
	db := openTestDB(t)
	repo := NewRegistrationRepository(db)
	sessionID := createTestSession(t, db, testSessionOpts{maxPlayers: 2, requiresApproval: false})

	check := func(step string) {
		t.Helper()
		if got, want := sessionPlayers(t, db, sessionID), confirmedRows(t, db, sessionID); got != want {
			t.Fatalf("%s: current_players = %d, confirmed rows = %d", step, got, want)
		}
	}

	r1, _ := repo.Register(sessionID, playerInput(1))
	check("register 1")
	r2, _ := repo.Register(sessionID, playerInput(2))
	check("register 2")
	r3, _ := repo.Register(sessionID, playerInput(3)) // waitlisted
	check("register 3")

	if _, err := repo.UpdateStatus(r1.ID, models.RegistrationCancelled); err != nil {
		t.Fatalf("cancel r1: %v", err)
	}
	check("cancel 1")

	if _, err := repo.UpdateStatus(r3.ID, models.RegistrationConfirmed); err != nil {
		t.Fatalf("promote r3: %v", err)
	}
	check("promote 3")

	if err := repo.Delete(r2.ID); err != nil {
		t.Fatalf("delete r2: %v", err)
	}
	check("delete 2")
}

func TestListForSessionOrderAndFilter(t *testing.T) {
	db := openTestDB(t)
	repo := NewRegistrationRepository(db)
	sessionID := createTestSession(t, db, testSessionOpts{maxPlayers: 5, requiresApproval: true})

	for i := 1; i <= 3; i++ {
		if _, err := repo.Register(sessionID, playerInput(i)); err != nil {
			t.Fatalf("register %d: %v", i, err)
		}
	}

	all, err := repo.ListForSession(sessionID, nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("listed %d registrations, want 3", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].RegisteredAt.Before(all[i-1].RegisteredAt) {
			t.Fatal("registrations not ordered by registration time")
		}
	}

	confirmed := models.RegistrationConfirmed
	none, err := repo.ListForSession(sessionID, &confirmed)
	if err != nil {
		t.Fatalf("filtered list: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected empty slice for confirmed filter, got %d", len(none))
	}
}

func TestSetAttendance(t *testing.T) {
	db := openTestDB(t)
	repo := NewRegistrationRepository(db)
	sessionID := createTestSession(t, db, testSessionOpts{})

	reg, _ := repo.Register(sessionID, playerInput(1))
	if err := repo.SetAttendance(reg.ID, models.AttendanceLate); err != nil {
		t.Fatalf("set attendance: %v", err)
	}

	var reloaded models.Registration
	db.First(&reloaded, reg.ID)
	if reloaded.Attendance == nil || *reloaded.Attendance != models.AttendanceLate {
		t.Fatalf("attendance = %v, want late", reloaded.Attendance)
	}

	if err := repo.SetAttendance(reg.ID, "vanished"); err == nil {
		t.Fatal("expected error for unknown attendance status")
	}
	if err := repo.SetAttendance(9999, models.AttendancePresent); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
