package services

import (
	"context"
	"time"

	"github.com/pushp314/hackarena-backend/internal/database"
	"github.com/pushp314/hackarena-backend/internal/models"
	"github.com/pushp314/hackarena-backend/pkg/logger"
)

const sweepLockKey = "deadline-sweeper"

// DeadlineSweeper finalizes sessions whose contest has ended, covering
// participants whose browser never fired the auto-submit.
type DeadlineSweeper struct {
	Interval time.Duration
}

func NewDeadlineSweeper(interval time.Duration) *DeadlineSweeper {
	return &DeadlineSweeper{Interval: interval}
}

// Start runs until ctx is cancelled.
func (s *DeadlineSweeper) Start(ctx context.Context) {
	logger.Info().Dur("interval", s.Interval).Msg("Deadline sweeper started")
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Deadline sweeper stopping...")
			return
		case <-ticker.C:
			ok, release, err := database.TryLock(ctx, sweepLockKey, s.Interval)
			if err != nil {
				logger.Warn().Err(err).Msg("Sweeper lock unavailable")
				continue
			}
			if !ok {
				continue // another instance is sweeping
			}
			if _, err := s.SweepOnce(ctx); err != nil {
				logger.Error().Err(err).Msg("Deadline sweep failed")
			}
			release()
		}
	}
}

// SweepOnce heals contest statuses and finalizes every IN_PROGRESS
// participant of an ended contest. It returns how many were finalized.
func (s *DeadlineSweeper) SweepOnce(ctx context.Context) (int, error) {
	now := Now()

	var contests []models.Contest
	if err := db(ctx).
		Where("status IN ?", []models.ContestStatus{models.ContestStatusPublished, models.ContestStatusLive}).
		Find(&contests).Error; err != nil {
		return 0, err
	}
	for i := range contests {
		SyncContestStatus(ctx, &contests[i])
	}

	var expired []models.Participant
	if err := db(ctx).
		Joins("JOIN contests ON contests.id = participants.contest_id").
		Where("participants.status = ? AND contests.end_time <= ?", models.ParticipantStatusInProgress, now).
		Find(&expired).Error; err != nil {
		return 0, err
	}

	finalized := 0
	for _, p := range expired {
		if ctx.Err() != nil {
			return finalized, ctx.Err()
		}
		res, err := FinalizeContest(ctx, p.ContestID, p.ID, models.FinalizedByTimer)
		if err != nil {
			logger.Warn().Err(err).Str("participant", p.ID).Msg("Sweeper failed to finalize participant")
			continue
		}
		if res.Status == models.ParticipantStatusSubmitted {
			finalized++
		}
	}
	if finalized > 0 {
		logger.Info().Int("count", finalized).Msg("Finalized expired sessions")
	}
	return finalized, nil
}
