package database

import (
	"errors"
	"fmt"
	"log"
	"time"

	"gametable/backend/internal/models"

	"gorm.io/gorm"
)

// currentSchemaVersion is the schema level the running code requires.
// Migrate applies every step above the installed version, in order.
const currentSchemaVersion = 3

// SchemaVersion is the single-row marker recording the installed level.
type SchemaVersion struct {
	ID        uint      `gorm:"primaryKey"`
	Version   int       `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

type migrationStep struct {
	version int
	name    string
	run     func(db *gorm.DB) error
}

// Every step checks table/column existence before altering, so running
// Migrate repeatedly, or two instances racing at startup, converges on the
// same schema without errors or data loss.
var steps = []migrationStep{
	{1, "core tables", migrateCoreTables},
	{2, "forms and character sheets", migrateFormAndSheetTables},
	{3, "response submitter column", migrateResponseUserColumn},
}

// Migrate brings the schema up to currentSchemaVersion. It is a no-op when
// the installation is already current.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&SchemaVersion{}); err != nil {
		return fmt.Errorf("schema version table: %w", err)
	}

	var marker SchemaVersion
	if err := db.First(&marker).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("read schema version: %w", err)
		}
		marker = SchemaVersion{Version: 0}
		if err := db.Create(&marker).Error; err != nil {
			return fmt.Errorf("init schema version: %w", err)
		}
	}

	for _, step := range steps {
		if step.version <= marker.Version {
			continue
		}
		if err := step.run(db); err != nil {
			return fmt.Errorf("migration %d (%s): %w", step.version, step.name, err)
		}
		marker.Version = step.version
		if err := db.Save(&marker).Error; err != nil {
			return fmt.Errorf("record schema version %d: %w", step.version, err)
		}
		log.Printf("applied schema migration %d: %s", step.version, step.name)
	}
	return nil
}

func migrateCoreTables(db *gorm.DB) error {
	for _, model := range []interface{}{&models.User{}, &models.Session{}, &models.Registration{}} {
		if db.Migrator().HasTable(model) {
			continue
		}
		if err := db.AutoMigrate(model); err != nil {
			return err
		}
	}
	return nil
}

func migrateFormAndSheetTables(db *gorm.DB) error {
	for _, model := range []interface{}{&models.CustomForm{}, &models.FormResponse{}, &models.CharacterSheet{}} {
		if db.Migrator().HasTable(model) {
			continue
		}
		if err := db.AutoMigrate(model); err != nil {
			return err
		}
	}
	return nil
}

// migrateResponseUserColumn adds form_responses.user_id for installations
// created before responses recorded their submitter, then back-fills it
// from the owning registration in one bulk statement. Rows that already
// carry a value are left untouched.
func migrateResponseUserColumn(db *gorm.DB) error {
	if !db.Migrator().HasColumn(&models.FormResponse{}, "user_id") {
		if err := db.Migrator().AddColumn(&models.FormResponse{}, "user_id"); err != nil {
			return err
		}
	}
	return backfillResponseUsers(db)
}

func backfillResponseUsers(db *gorm.DB) error {
	return db.Exec(`UPDATE form_responses
		SET user_id = (SELECT user_id FROM registrations WHERE registrations.id = form_responses.registration_id)
		WHERE user_id IS NULL`).Error
}

// RepairCheck is one line of a Repair report.
type RepairCheck struct {
	Target      string `json:"target"`
	IssueFound  bool   `json:"issue_found"`
	FixApplied  bool   `json:"fix_applied"`
	Description string `json:"description"`
	Error       string `json:"error,omitempty"`
}

var repairTables = []struct {
	name  string
	model interface{}
}{
	{"users", &models.User{}},
	{"sessions", &models.Session{}},
	{"registrations", &models.Registration{}},
	{"custom_forms", &models.CustomForm{}},
	{"form_responses", &models.FormResponse{}},
	{"character_sheets", &models.CharacterSheet{}},
	{"schema_versions", &SchemaVersion{}},
}

var repairColumns = []struct {
	table  string
	column string
	model  interface{}
}{
	{"sessions", "current_players", &models.Session{}},
	{"sessions", "registration_deadline", &models.Session{}},
	{"registrations", "attendance", &models.Registration{}},
	{"registrations", "notes", &models.Registration{}},
	{"form_responses", "user_id", &models.FormResponse{}},
	{"character_sheets", "description", &models.CharacterSheet{}},
	{"character_sheets", "private", &models.CharacterSheet{}},
}

// Repair re-runs every table and column existence check on demand and adds
// whatever is missing. It never drops or rewrites existing data; a run
// against a healthy schema reports zero issues. Failures are captured in
// the report instead of aborting, so one rejected ALTER does not hide the
// remaining checks.
func Repair(db *gorm.DB) []RepairCheck {
	var report []RepairCheck

	for _, t := range repairTables {
		check := RepairCheck{Target: "table " + t.name, Description: "exists"}
		if !db.Migrator().HasTable(t.model) {
			check.IssueFound = true
			check.Description = "missing, recreated"
			if err := db.AutoMigrate(t.model); err != nil {
				check.Error = err.Error()
				check.Description = "missing, creation failed"
			} else {
				check.FixApplied = true
			}
		}
		report = append(report, check)
	}

	for _, c := range repairColumns {
		check := RepairCheck{Target: "column " + c.table + "." + c.column, Description: "exists"}
		if !db.Migrator().HasTable(c.model) {
			// Covered by the table check above.
			continue
		}
		if !db.Migrator().HasColumn(c.model, c.column) {
			check.IssueFound = true
			check.Description = "missing, added"
			if err := db.Migrator().AddColumn(c.model, c.column); err != nil {
				check.Error = err.Error()
				check.Description = "missing, add failed"
			} else {
				check.FixApplied = true
				if c.table == "form_responses" && c.column == "user_id" {
					if err := backfillResponseUsers(db); err != nil {
						check.Error = err.Error()
					}
				}
			}
		}
		report = append(report, check)
	}

	return report
}
