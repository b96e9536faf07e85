package integration

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/pushp314/hackarena-backend/internal/config"
	"github.com/pushp314/hackarena-backend/internal/database"
	"github.com/pushp314/hackarena-backend/internal/migrations"
	"github.com/pushp314/hackarena-backend/internal/models"
	"github.com/pushp314/hackarena-backend/internal/services"
	"github.com/pushp314/hackarena-backend/pkg/utils"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Set TEST_DATABASE_URL (a postgres:// URL with rights to create databases)
// to run the flows against Postgres instead of in-memory SQLite.
const testDBName = "hackarena_test"

// sumSandbox prints the sum of the integers on stdin for any program
// containing "sum", and nothing otherwise.
type sumSandbox struct{}

func (sumSandbox) Execute(_ context.Context, req services.ExecRequest) (*services.ExecResult, error) {
	if !strings.Contains(req.Code, "sum") {
		return &services.ExecResult{}, nil
	}
	total := 0
	for _, f := range strings.Fields(req.Stdin) {
		n, _ := strconv.Atoi(f)
		total += n
	}
	return &services.ExecResult{Stdout: strconv.Itoa(total) + "\n"}, nil
}

func openSQLite(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	return db
}

// openPostgres recreates the test database and runs the real migrations on it.
func openPostgres(t *testing.T, baseDSN string) *gorm.DB {
	admin, err := gorm.Open(postgres.Open(baseDSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// Terminate existing connections first so DROP works
	admin.Exec(fmt.Sprintf("SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE datname = '%s'", testDBName))
	require.NoError(t, admin.Exec(fmt.Sprintf("DROP DATABASE IF EXISTS %s", testDBName)).Error)
	require.NoError(t, admin.Exec(fmt.Sprintf("CREATE DATABASE %s", testDBName)).Error)
	if sqlDB, err := admin.DB(); err == nil {
		sqlDB.Close()
	}

	db, err := gorm.Open(postgres.New(postgres.Config{DSN: withDatabase(baseDSN, testDBName)}), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Error),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, migrations.NewMigrator(db).Run())
	return db
}

// withDatabase swaps the database name in a postgres:// URL.
func withDatabase(dsn, name string) string {
	rest := dsn
	query := ""
	if i := strings.Index(rest, "?"); i >= 0 {
		rest, query = rest[:i], rest[i:]
	}
	if i := strings.LastIndex(rest, "/"); i > len("postgres://") {
		rest = rest[:i]
	}
	return rest + "/" + name + query
}

func setupTestDB(t *testing.T) {
	t.Helper()
	var db *gorm.DB
	if dsn := os.Getenv("TEST_DATABASE_URL"); dsn != "" {
		db = openPostgres(t, dsn)
	} else {
		db = openSQLite(t)
	}

	prevDB, prevCfg := database.DB, config.AppConfig
	cfg := *prevCfg
	cfg.JWTSecret = "integration-secret"
	cfg.LeaderboardCacheSeconds = 0
	config.AppConfig = &cfg
	database.DB = db
	database.Redis = nil
	services.SetSandbox(sumSandbox{})

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
		database.DB = prevDB
		config.AppConfig = prevCfg
		services.SetSandbox(nil)
	})
}

func createTestUser(t *testing.T, username string, role models.Role) string {
	t.Helper()
	user := models.User{ID: "u-" + username, Name: username, Username: username, Role: role}
	require.NoError(t, database.DB.Create(&user).Error)
	token, err := utils.GenerateToken(user.ID, string(role))
	require.NoError(t, err)
	return token
}
