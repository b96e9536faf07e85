package migrations

import (
	"github.com/pushp314/hackarena-backend/internal/models"
	"gorm.io/gorm"
)

// Migration001CreateContestSchema creates every contest table from the models.
// Later model changes are picked up by re-running AutoMigrate at startup.
func Migration001CreateContestSchema() Migration {
	return Migration{
		ID:   "001_create_contest_schema",
		Name: "Create contest, participant and submission tables",
		Up: func(db *gorm.DB) error {
			return db.AutoMigrate(models.AllModels()...)
		},
	}
}
