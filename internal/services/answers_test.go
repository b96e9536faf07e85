package services

import (
	"context"
	"testing"

	"github.com/pushp314/hackarena-backend/internal/database"
	"github.com/pushp314/hackarena-backend/internal/models"
	apperrors "github.com/pushp314/hackarena-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveDraft_OrderedByGeneration(t *testing.T) {
	setupTestDB(t)
	f := seedLiveContest(t)
	ctx := context.Background()
	startSession(t, f)

	ack, err := SaveDraft(ctx, f.Participant.ID, f.Coding.ID, "print(1)", "python", 2)
	require.NoError(t, err)
	assert.True(t, ack.Saved)

	ack, err = SaveDraft(ctx, f.Participant.ID, f.Coding.ID, "print(0)", "python", 1)
	require.NoError(t, err)
	assert.False(t, ack.Saved)

	ack, err = SaveDraft(ctx, f.Participant.ID, f.Coding.ID, "package main", "go", 3)
	require.NoError(t, err)
	assert.True(t, ack.Saved)

	var draft models.AnswerDraft
	require.NoError(t, database.DB.Where("participant_id = ?", f.Participant.ID).First(&draft).Error)
	assert.Equal(t, "package main", draft.Code)
	assert.Equal(t, "go", draft.Language)
	assert.Equal(t, int64(3), draft.Generation)

	res, err := EnterContest(ctx, f.Contest.ID, f.User.ID)
	require.NoError(t, err)
	require.Len(t, res.Drafts, 1)
	assert.Equal(t, "package main", res.Drafts[0].Code)
}

func TestSaveDraft_Rejections(t *testing.T) {
	setupTestDB(t)
	f := seedLiveContest(t)
	ctx := context.Background()
	startSession(t, f)

	_, err := SaveDraft(ctx, f.Participant.ID, f.MCQ.ID, "x", "python", 0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)
	_, err = SaveDraft(ctx, f.Participant.ID, f.Coding.ID, "x", "brainfuck", 0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)

	_, err = FinalizeContest(ctx, f.Contest.ID, f.Participant.ID, models.FinalizedManually)
	require.NoError(t, err)
	_, err = SaveDraft(ctx, f.Participant.ID, f.Coding.ID, "x", "python", 0)
	assert.ErrorIs(t, err, apperrors.ErrAlreadySubmitted)
}
