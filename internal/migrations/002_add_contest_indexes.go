package migrations

import (
	"gorm.io/gorm"
)

// Migration002AddContestIndexes adds indexes for the hot paths:
//  1. deadline sweep: IN_PROGRESS participants of ended contests
//  2. contest status healing: WHERE status IN (...)
//  3. leaderboard: all submissions of a contest
//
// Plain CREATE INDEX IF NOT EXISTS so it runs inside the migration
// transaction on both Postgres and SQLite.
func Migration002AddContestIndexes() Migration {
	return Migration{
		ID:        "002_add_contest_indexes",
		Name:      "Add indexes for sweeper and leaderboard queries",
		DependsOn: []string{"001_create_contest_schema"},
		Up: func(db *gorm.DB) error {
			stmts := []string{
				`CREATE INDEX IF NOT EXISTS idx_participants_contest_status ON participants (contest_id, status)`,
				`CREATE INDEX IF NOT EXISTS idx_contests_status_end ON contests (status, end_time)`,
				`CREATE INDEX IF NOT EXISTS idx_submissions_contest ON submissions (contest_id)`,
			}
			for _, s := range stmts {
				if err := db.Exec(s).Error; err != nil {
					return err
				}
			}
			return nil
		},
	}
}
