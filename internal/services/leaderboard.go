package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/pushp314/hackarena-backend/internal/config"
	"github.com/pushp314/hackarena-backend/internal/database"
	"github.com/pushp314/hackarena-backend/internal/models"
	apperrors "github.com/pushp314/hackarena-backend/pkg/errors"
	"github.com/pushp314/hackarena-backend/pkg/logger"
)

type LeaderboardEntry struct {
	Rank          int                      `json:"rank"` // 0 for disqualified participants
	ParticipantID string                   `json:"participantId"`
	UserID        string                   `json:"userId"`
	Username      string                   `json:"username"`
	Name          string                   `json:"name"`
	Score         int                      `json:"score"`
	SolvedCount   int                      `json:"solvedCount"`
	Status        models.ParticipantStatus `json:"status"`
	Provisional   bool                     `json:"provisional"` // still in progress, MCQ excluded
	SubmittedAt   *time.Time               `json:"submittedAt,omitempty"`
	Violations    int                      `json:"violations"`
}

type cachedLeaderboard struct {
	Entries   []LeaderboardEntry
	ExpiresAt time.Time
}

var (
	leaderboardCache = make(map[string]cachedLeaderboard)
	lbMutex          sync.RWMutex
)

func leaderboardKey(contestID string) string {
	return "leaderboard:" + contestID
}

// InvalidateLeaderboardCache clears the cached board for a contest (call on new submission)
func InvalidateLeaderboardCache(contestID string) {
	lbMutex.Lock()
	delete(leaderboardCache, contestID)
	lbMutex.Unlock()

	if err := database.CacheDelete(leaderboardKey(contestID)); err != nil && !errors.Is(err, database.ErrCacheDisabled) {
		logger.Warn().Err(err).Str("contest", contestID).Msg("Failed to invalidate leaderboard cache")
	}
}

func cachedEntries(contestID string) ([]LeaderboardEntry, bool) {
	var entries []LeaderboardEntry
	err := database.CacheGet(leaderboardKey(contestID), &entries)
	if err == nil {
		return entries, true
	}
	if !errors.Is(err, database.ErrCacheDisabled) {
		return nil, false
	}

	lbMutex.RLock()
	defer lbMutex.RUnlock()
	if cached, ok := leaderboardCache[contestID]; ok && time.Now().Before(cached.ExpiresAt) {
		return cached.Entries, true
	}
	return nil, false
}

func storeEntries(contestID string, entries []LeaderboardEntry) {
	ttl := config.AppConfig.LeaderboardTTL()
	if ttl <= 0 {
		return
	}
	err := database.CacheSet(leaderboardKey(contestID), entries, ttl)
	if err == nil {
		return
	}
	if !errors.Is(err, database.ErrCacheDisabled) {
		logger.Warn().Err(err).Str("contest", contestID).Msg("Failed to cache leaderboard")
		return
	}

	lbMutex.Lock()
	leaderboardCache[contestID] = cachedLeaderboard{Entries: entries, ExpiresAt: time.Now().Add(ttl)}
	lbMutex.Unlock()
}

// GetLeaderboard returns the ranked board. Participants only see it when the
// contest shows it live or has completed; organizers always do.
func GetLeaderboard(ctx context.Context, contestID string, asAdmin bool) ([]LeaderboardEntry, error) {
	contest, err := loadContest(ctx, contestID)
	if err != nil {
		return nil, err
	}
	status := SyncContestStatus(ctx, contest)
	if !asAdmin {
		if status == models.ContestStatusDraft {
			return nil, apperrors.NotFound("Contest not found")
		}
		if !contest.ShowLeaderboard && status != models.ContestStatusCompleted {
			return nil, apperrors.Forbidden("Leaderboard is hidden until the contest ends")
		}
	}

	if entries, ok := cachedEntries(contestID); ok {
		return entries, nil
	}

	entries, err := buildLeaderboard(ctx, contestID)
	if err != nil {
		return nil, err
	}
	storeEntries(contestID, entries)
	return entries, nil
}

func buildLeaderboard(ctx context.Context, contestID string) ([]LeaderboardEntry, error) {
	var participants []models.Participant
	if err := db(ctx).
		Where("contest_id = ? AND status <> ?", contestID, models.ParticipantStatusRegistered).
		Find(&participants).Error; err != nil {
		return nil, dbError(err, "")
	}
	if len(participants) == 0 {
		return []LeaderboardEntry{}, nil
	}

	var subs []models.Submission
	if err := db(ctx).Where("contest_id = ?", contestID).Find(&subs).Error; err != nil {
		return nil, dbError(err, "")
	}

	userIDs := make([]string, 0, len(participants))
	for _, p := range participants {
		userIDs = append(userIDs, p.UserID)
	}
	var users []models.User
	if err := db(ctx).Where("id IN ?", userIDs).Find(&users).Error; err != nil {
		return nil, dbError(err, "")
	}
	userMap := make(map[string]models.User, len(users))
	for _, u := range users {
		userMap[u.ID] = u
	}

	entryMap := make(map[string]*LeaderboardEntry, len(participants))
	for _, p := range participants {
		u := userMap[p.UserID]
		entryMap[p.ID] = &LeaderboardEntry{
			ParticipantID: p.ID,
			UserID:        p.UserID,
			Username:      u.Username,
			Name:          u.Name,
			Status:        p.Status,
			Provisional:   p.Status == models.ParticipantStatusInProgress,
			SubmittedAt:   p.SubmittedAt,
			Violations:    p.TabSwitchCount,
		}
		if p.Status == models.ParticipantStatusSubmitted {
			entryMap[p.ID].Score = p.Score
		}
	}

	for _, sub := range subs {
		entry := entryMap[sub.ParticipantID]
		if entry == nil {
			continue
		}
		// MCQ results stay hidden until the participant submits.
		if entry.Provisional && sub.Type == models.QuestionTypeMCQ {
			continue
		}
		if sub.IsCorrect {
			entry.SolvedCount++
		}
		if entry.Provisional {
			entry.Score += sub.Score
		}
	}

	leaderboard := make([]LeaderboardEntry, 0, len(entryMap))
	for _, entry := range entryMap {
		leaderboard = append(leaderboard, *entry)
	}

	sort.Slice(leaderboard, func(i, j int) bool {
		a, b := leaderboard[i], leaderboard[j]
		// 1. Disqualified last
		aDQ := a.Status == models.ParticipantStatusDisqualified
		bDQ := b.Status == models.ParticipantStatusDisqualified
		if aDQ != bDQ {
			return !aDQ
		}
		// 2. Score DESC
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		// 3. Solved Count DESC
		if a.SolvedCount != b.SolvedCount {
			return a.SolvedCount > b.SolvedCount
		}
		// 4. Earlier finish wins the tie
		if (a.SubmittedAt == nil) != (b.SubmittedAt == nil) {
			return a.SubmittedAt != nil
		}
		if a.SubmittedAt != nil && !a.SubmittedAt.Equal(*b.SubmittedAt) {
			return a.SubmittedAt.Before(*b.SubmittedAt)
		}
		return a.Username < b.Username
	})

	rank := 0
	for i := range leaderboard {
		if leaderboard[i].Status == models.ParticipantStatusDisqualified {
			continue
		}
		rank++
		leaderboard[i].Rank = rank
	}

	return leaderboard, nil
}
