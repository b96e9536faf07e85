package seeds

import (
	"context"
	"testing"

	"github.com/pushp314/hackarena-backend/internal/database"
	"github.com/pushp314/hackarena-backend/internal/models"
	"github.com/pushp314/hackarena-backend/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestDemoContest(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:seeds?mode=memory&cache=shared"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	database.DB = db

	organizer, err := GetOrCreateUser("organizer", "Organizer", models.RoleAdmin)
	require.NoError(t, err)
	again, err := GetOrCreateUser("organizer", "Organizer", models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, organizer.ID, again.ID)
	player, err := GetOrCreateUser("player", "Player", models.RoleUser)
	require.NoError(t, err)

	contest, err := DemoContest(context.Background(), organizer, player)
	require.NoError(t, err)
	assert.Equal(t, models.ContestStatusLive, contest.Status)

	view, err := services.GetContest(context.Background(), contest.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 4, view.QuestionCount)
	assert.Equal(t, 280, view.TotalPoints)

	p, err := services.ParticipantFor(context.Background(), contest.ID, player.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ParticipantStatusRegistered, p.Status)
}
