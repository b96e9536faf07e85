package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/pushp314/hackarena-backend/internal/database"
	"github.com/pushp314/hackarena-backend/internal/models"
	apperrors "github.com/pushp314/hackarena-backend/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedUser(t *testing.T, id, username string) {
	t.Helper()
	require.NoError(t, database.DB.Create(&models.User{ID: id, Username: username, Name: username}).Error)
}

func TestGetLeaderboard_RanksAndUnranksDisqualified(t *testing.T) {
	setupTestDB(t)
	f := seedLiveContest(t)
	SetSandbox(newFakeSandbox())
	ctx := context.Background()

	seedUser(t, "user-2", "bob")
	seedUser(t, "user-3", "cy")
	bob := addParticipant(t, f.Contest.ID, "user-2", models.ParticipantStatusInProgress)
	cy := addParticipant(t, f.Contest.ID, "user-3", models.ParticipantStatusInProgress)
	addParticipant(t, f.Contest.ID, "user-4", models.ParticipantStatusRegistered)
	startSession(t, f)

	_, err := SubmitCode(ctx, f.Participant.ID, f.Coding.ID, "small", "python", 0)
	require.NoError(t, err)
	_, err = SubmitCode(ctx, bob.ID, f.Coding.ID, "sum", "python", 0)
	require.NoError(t, err)
	_, err = SubmitMCQAnswer(ctx, bob.ID, f.MCQ.ID, []string{"b"}, 0)
	require.NoError(t, err)
	require.NoError(t, database.DB.Model(&models.Participant{}).Where("id = ?", cy.ID).
		Update("status", models.ParticipantStatusDisqualified).Error)

	board, err := GetLeaderboard(ctx, f.Contest.ID, false)
	require.NoError(t, err)
	require.Len(t, board, 3, "registered-only users are not listed")

	assert.Equal(t, "bob", board[0].Username)
	assert.Equal(t, 1, board[0].Rank)
	assert.Equal(t, 100, board[0].Score, "MCQ is hidden while in progress")
	assert.True(t, board[0].Provisional)

	assert.Equal(t, "ada", board[1].Username)
	assert.Equal(t, 2, board[1].Rank)
	assert.Equal(t, 66, board[1].Score)

	assert.Equal(t, "cy", board[2].Username)
	assert.Equal(t, 0, board[2].Rank)

	// After finalizing, the full score counts.
	_, err = FinalizeContest(ctx, f.Contest.ID, bob.ID, models.FinalizedManually)
	require.NoError(t, err)
	board, err = GetLeaderboard(ctx, f.Contest.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 110, board[0].Score)
	assert.False(t, board[0].Provisional)
	assert.Equal(t, 2, board[0].SolvedCount)
}

func TestGetLeaderboard_HiddenUntilCompleted(t *testing.T) {
	setupTestDB(t)
	f := seedLiveContest(t, func(c *models.Contest) { c.ShowLeaderboard = false })
	ctx := context.Background()

	_, err := GetLeaderboard(ctx, f.Contest.ID, false)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = GetLeaderboard(ctx, f.Contest.ID, true)
	assert.NoError(t, err, "organizers always see it")

	setClock(t, f.Contest.EndTime)
	_, err = GetLeaderboard(ctx, f.Contest.ID, false)
	assert.NoError(t, err)
}

func TestGetLeaderboard_CacheInvalidatedOnSubmit(t *testing.T) {
	setupTestDB(t)
	f := seedLiveContest(t)
	SetSandbox(newFakeSandbox())
	ctx := context.Background()
	startSession(t, f)

	board, err := GetLeaderboard(ctx, f.Contest.ID, false)
	require.NoError(t, err)
	require.Len(t, board, 1)
	assert.Equal(t, 0, board[0].Score)

	_, err = SubmitCode(ctx, f.Participant.ID, f.Coding.ID, "sum", "python", 0)
	require.NoError(t, err)

	board, err = GetLeaderboard(ctx, f.Contest.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 100, board[0].Score)
}

func TestGetLeaderboard_UsesRedisWhenConfigured(t *testing.T) {
	setupTestDB(t)
	f := seedLiveContest(t)
	ctx := context.Background()
	startSession(t, f)

	mr := miniredis.RunT(t)
	database.Redis = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		database.Redis.Close()
		database.Redis = nil
	})

	_, err := GetLeaderboard(ctx, f.Contest.ID, false)
	require.NoError(t, err)
	assert.True(t, mr.Exists(leaderboardKey(f.Contest.ID)))

	ttl := mr.TTL(leaderboardKey(f.Contest.ID))
	assert.Greater(t, ttl, time.Duration(0))

	InvalidateLeaderboardCache(f.Contest.ID)
	assert.False(t, mr.Exists(leaderboardKey(f.Contest.ID)))
}
