package repository

import (
	"fmt"
	"testing"
	"time"

	"gametable/backend/internal/database"
	"gametable/backend/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// openTestDB opens a fresh in-memory database and brings it to the current
// schema. Each test gets its own named memory DB so tests stay isolated.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, nickname, role string) models.User {
	t.Helper()
	user := models.User{
		Nickname:     nickname,
		Email:        nickname + "@example.com",
		PasswordHash: "x",
		Role:         role,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user %s: %v", nickname, err)
	}
	return user
}

type testSessionOpts struct {
	maxPlayers       int
	requiresApproval bool
	organizerID      *uint
	deadline         *time.Time
}

func createTestSession(t *testing.T, db *gorm.DB, opts testSessionOpts) uint {
	t.Helper()
	if opts.maxPlayers == 0 {
		opts.maxPlayers = 4
	}
	session := models.Session{
		Name:             "Curse of the Crimson Manor",
		GameType:         models.GameTypeRolePlay,
		OrganizerID:      opts.organizerID,
		StartsAt:         time.Now().Add(72 * time.Hour),
		DurationMinutes:  180,
		MaxPlayers:       opts.maxPlayers,
		Difficulty:       models.DifficultyBeginner,
		Status:           models.SessionPlanned,
		Visible:          true,
		RequiresApproval: opts.requiresApproval,

		RegistrationDeadline: opts.deadline,
	}
	if err := db.Create(&session).Error; err != nil {
		t.Fatalf("create session: %v", err)
	}
	return session.ID
}

func playerInput(n int) RegistrationInput {
	return RegistrationInput{
		PlayerName:  fmt.Sprintf("Player %d", n),
		PlayerEmail: fmt.Sprintf("player%d@example.com", n),
	}
}

func sessionPlayers(t *testing.T, db *gorm.DB, sessionID uint) int {
	t.Helper()
	var session models.Session
	if err := db.First(&session, sessionID).Error; err != nil {
		t.Fatalf("reload session: %v", err)
	}
	return session.CurrentPlayers
}

// confirmedRows recounts confirmed registrations directly, bypassing the
// stored counter.
func confirmedRows(t *testing.T, db *gorm.DB, sessionID uint) int {
	t.Helper()
	var n int64
	err := db.Model(&models.Registration{}).
		Where("session_id = ? AND status = ?", sessionID, models.RegistrationConfirmed).
		Count(&n).Error
	if err != nil {
		t.Fatalf("count confirmed: %v", err)
	}
	return int(n)
}
