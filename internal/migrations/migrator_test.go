package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func TestMigrator_RunsOnce(t *testing.T) {
	db := openDB(t)
	m := NewMigrator(db)

	pending, err := m.Pending()
	require.NoError(t, err)
	assert.Equal(t, []string{"001_create_contest_schema", "002_add_contest_indexes"}, pending)

	require.NoError(t, m.Run())
	assert.True(t, db.Migrator().HasTable("participants"))
	assert.True(t, db.Migrator().HasIndex("participants", "idx_participants_contest_status"))

	pending, err = m.Pending()
	require.NoError(t, err)
	assert.Empty(t, pending)

	require.NoError(t, m.Run(), "re-running is a no-op")
	var count int64
	db.Model(&MigrationRecord{}).Count(&count)
	assert.Equal(t, int64(2), count)
}

func TestMigrator_DependencyOrder(t *testing.T) {
	db := openDB(t)
	m := &Migrator{db: db, migrations: []Migration{Migration002AddContestIndexes()}}

	err := m.Run()
	assert.ErrorContains(t, err, "depends on 001_create_contest_schema")
}
