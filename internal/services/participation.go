package services

import (
	"context"
	"errors"
	"hash/fnv"
	"math/rand"
	"time"

	"github.com/pushp314/hackarena-backend/internal/database"
	"github.com/pushp314/hackarena-backend/internal/models"
	apperrors "github.com/pushp314/hackarena-backend/pkg/errors"
	"github.com/pushp314/hackarena-backend/pkg/logger"
	"github.com/pushp314/hackarena-backend/pkg/utils"
	"gorm.io/gorm"
)

// Now is the service clock. Tests replace it.
var Now = time.Now

var transitions = map[models.ParticipantStatus][]models.ParticipantStatus{
	models.ParticipantStatusNone:       {models.ParticipantStatusRegistered},
	models.ParticipantStatusRegistered: {models.ParticipantStatusInProgress},
	models.ParticipantStatusInProgress: {models.ParticipantStatusSubmitted, models.ParticipantStatusDisqualified},
}

// CanTransition reports whether a participant may move from one status to another.
// Terminal statuses have no outgoing edges.
func CanTransition(from, to models.ParticipantStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// guardError explains why a participant in status s may not write answers.
func guardError(s models.ParticipantStatus) error {
	switch s {
	case models.ParticipantStatusInProgress:
		return nil
	case models.ParticipantStatusSubmitted:
		return apperrors.ErrAlreadySubmitted
	case models.ParticipantStatusDisqualified:
		return apperrors.ErrDisqualified
	case models.ParticipantStatusRegistered:
		return apperrors.ErrNotStarted
	default:
		return apperrors.ErrNotRegistered
	}
}

func db(ctx context.Context) *gorm.DB {
	return database.DB.WithContext(ctx)
}

// dbError maps a persistence failure. Missing rows become 404s, anything
// else is a retryable infrastructure error.
func dbError(err error, notFound string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFound(notFound)
	}
	if _, ok := apperrors.As(err); ok {
		return err
	}
	return apperrors.Unavailable("Database unavailable, please retry", err)
}

// SyncContestStatus corrects the stored status when wall-clock time has moved
// past it and returns the effective status.
func SyncContestStatus(ctx context.Context, contest *models.Contest) models.ContestStatus {
	computed := contest.StatusAt(Now())
	if computed == contest.Status {
		return computed
	}

	res := db(ctx).Model(&models.Contest{}).
		Where("id = ? AND status = ?", contest.ID, contest.Status).
		Update("status", computed)
	if res.Error != nil {
		logger.Warn().Err(res.Error).Str("contest", contest.ID).Msg("Failed to heal contest status")
	} else if res.RowsAffected > 0 {
		logger.Info().
			Str("contest", contest.ID).
			Str("from", string(contest.Status)).
			Str("to", string(computed)).
			Msg("Contest status healed")
	}
	contest.Status = computed
	return computed
}

func loadContest(ctx context.Context, contestID string) (*models.Contest, error) {
	var contest models.Contest
	if err := db(ctx).First(&contest, "id = ?", contestID).Error; err != nil {
		return nil, dbError(err, "Contest not found")
	}
	return &contest, nil
}

func loadContestWithQuestions(ctx context.Context, contestID string) (*models.Contest, error) {
	var contest models.Contest
	err := db(ctx).
		Preload("Questions", func(tx *gorm.DB) *gorm.DB { return tx.Order("sort_order asc") }).
		Preload("Questions.TestCases", func(tx *gorm.DB) *gorm.DB { return tx.Order("sort_order asc") }).
		First(&contest, "id = ?", contestID).Error
	if err != nil {
		return nil, dbError(err, "Contest not found")
	}
	return &contest, nil
}

// ParticipantFor returns the user's participation record for a contest.
func ParticipantFor(ctx context.Context, contestID, userID string) (*models.Participant, error) {
	var p models.Participant
	err := db(ctx).Where("contest_id = ? AND user_id = ?", contestID, userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotRegistered
	}
	if err != nil {
		return nil, dbError(err, "")
	}
	return &p, nil
}

func loadParticipant(ctx context.Context, participantID string) (*models.Participant, error) {
	var p models.Participant
	if err := db(ctx).First(&p, "id = ?", participantID).Error; err != nil {
		return nil, dbError(err, "Participant not found")
	}
	return &p, nil
}

// Register enrolls a user. Registering twice returns the existing record.
func Register(ctx context.Context, contestID, userID string) (*models.Participant, error) {
	contest, err := loadContest(ctx, contestID)
	if err != nil {
		return nil, err
	}

	switch SyncContestStatus(ctx, contest) {
	case models.ContestStatusDraft:
		return nil, apperrors.NotFound("Contest not found")
	case models.ContestStatusCompleted:
		return nil, apperrors.ErrContestClosed
	}

	if p, err := ParticipantFor(ctx, contestID, userID); err == nil {
		return p, nil
	} else if !errors.Is(err, apperrors.ErrNotRegistered) {
		return nil, err
	}

	p := models.Participant{
		ID:        utils.GenerateID(),
		ContestID: contestID,
		UserID:    userID,
		Status:    models.ParticipantStatusRegistered,
	}
	if err := db(ctx).Create(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ParticipantFor(ctx, contestID, userID)
		}
		return nil, dbError(err, "")
	}

	logger.Info().Str("contest", contestID).Str("user", userID).Msg("Participant registered")
	return &p, nil
}

// EnterResult is everything a participant needs to render a live session.
type EnterResult struct {
	Participant *models.Participant  `json:"participant"`
	Contest     ContestView          `json:"contest"`
	Questions   []QuestionView       `json:"questions"`
	Submissions []SubmissionView     `json:"submissions"`
	Drafts      []models.AnswerDraft `json:"drafts"`
	Deadline    time.Time            `json:"deadline"`
	ServerTime  time.Time            `json:"serverTime"`
}

// EnterContest opens (or re-opens) a live session. The first entry moves the
// participant to IN_PROGRESS and stamps StartedAt; later entries return the
// same session.
func EnterContest(ctx context.Context, contestID, userID string) (*EnterResult, error) {
	contest, err := loadContestWithQuestions(ctx, contestID)
	if err != nil {
		return nil, err
	}
	status := SyncContestStatus(ctx, contest)

	p, err := ParticipantFor(ctx, contestID, userID)
	if err != nil {
		if status == models.ContestStatusDraft {
			return nil, apperrors.NotFound("Contest not found")
		}
		return nil, err
	}
	if p.Status.IsTerminal() {
		return nil, guardError(p.Status)
	}

	switch status {
	case models.ContestStatusDraft:
		return nil, apperrors.NotFound("Contest not found")
	case models.ContestStatusPublished:
		return nil, apperrors.ErrContestNotStarted
	case models.ContestStatusCompleted:
		if p.Status == models.ParticipantStatusInProgress {
			if _, err := FinalizeContest(ctx, contestID, p.ID, models.FinalizedByTimer); err != nil {
				logger.Warn().Err(err).Str("participant", p.ID).Msg("Late finalize failed")
			}
		}
		return nil, apperrors.ErrContestClosed
	}

	if p.Status == models.ParticipantStatusRegistered {
		now := Now()
		res := db(ctx).Model(&models.Participant{}).
			Where("id = ? AND status = ?", p.ID, models.ParticipantStatusRegistered).
			Updates(map[string]interface{}{
				"status":     models.ParticipantStatusInProgress,
				"started_at": now,
			})
		if res.Error != nil {
			return nil, dbError(res.Error, "")
		}
		if res.RowsAffected > 0 {
			logger.Info().Str("contest", contestID).Str("user", userID).Msg("Participant started contest")
		}
		if p, err = loadParticipant(ctx, p.ID); err != nil {
			return nil, err
		}
		if p.Status != models.ParticipantStatusInProgress {
			return nil, guardError(p.Status)
		}
	}

	var subs []models.Submission
	if err := db(ctx).Where("participant_id = ?", p.ID).Find(&subs).Error; err != nil {
		return nil, dbError(err, "")
	}
	var drafts []models.AnswerDraft
	if err := db(ctx).Where("participant_id = ?", p.ID).Find(&drafts).Error; err != nil {
		return nil, dbError(err, "")
	}

	questions := make([]QuestionView, 0, len(contest.Questions))
	for i := range contest.Questions {
		questions = append(questions, NewQuestionView(&contest.Questions[i]))
	}
	if contest.ShuffleQuestions {
		shuffleFor(p.ID, questions)
	}

	views := make([]SubmissionView, 0, len(subs))
	for _, s := range subs {
		views = append(views, NewSubmissionView(s, false))
	}

	return &EnterResult{
		Participant: p,
		Contest:     NewContestView(contest),
		Questions:   questions,
		Submissions: views,
		Drafts:      drafts,
		Deadline:    contest.Deadline(),
		ServerTime:  Now(),
	}, nil
}

// shuffleFor orders questions the same way on every visit by the same participant.
func shuffleFor(participantID string, qs []QuestionView) {
	h := fnv.New64a()
	h.Write([]byte(participantID))
	r := rand.New(rand.NewSource(int64(h.Sum64())))
	r.Shuffle(len(qs), func(i, j int) { qs[i], qs[j] = qs[j], qs[i] })
}

type ViolationResult struct {
	Status         models.ParticipantStatus `json:"status"`
	TabSwitchCount int                      `json:"tabSwitchCount"`
	MaxTabSwitches int                      `json:"maxTabSwitches"`
	Disqualified   bool                     `json:"disqualified"`
}

// countsTowardLimit reports whether a violation kind increments the counter.
func countsTowardLimit(c *models.Contest, kind models.ViolationKind) bool {
	switch kind {
	case models.ViolationTabSwitch:
		return true
	case models.ViolationFullscreenExit:
		return c.RequireFullscreen
	}
	return false
}

// RecordViolation logs a proctoring event and disqualifies the participant
// once the counter exceeds the contest limit. Events reported after the
// participant reached a terminal status are ignored.
func RecordViolation(ctx context.Context, contestID, userID string, kind models.ViolationKind, details string) (*ViolationResult, error) {
	switch kind {
	case models.ViolationTabSwitch, models.ViolationFullscreenExit, models.ViolationPasteAttempt:
	default:
		return nil, apperrors.BadRequest("Unknown violation kind")
	}

	contest, err := loadContest(ctx, contestID)
	if err != nil {
		return nil, err
	}
	p, err := ParticipantFor(ctx, contestID, userID)
	if err != nil {
		return nil, err
	}

	result := func(p *models.Participant) *ViolationResult {
		return &ViolationResult{
			Status:         p.Status,
			TabSwitchCount: p.TabSwitchCount,
			MaxTabSwitches: contest.MaxTabSwitches,
			Disqualified:   p.Status == models.ParticipantStatusDisqualified,
		}
	}
	if p.Status.IsTerminal() {
		return result(p), nil
	}
	if p.Status != models.ParticipantStatusInProgress {
		return nil, apperrors.ErrNotStarted
	}

	disqualified := false
	err = db(ctx).Transaction(func(tx *gorm.DB) error {
		event := models.ProctoringEvent{
			ID:            utils.GenerateID(),
			ParticipantID: p.ID,
			Kind:          kind,
			Details:       utils.TruncateString(details, 500),
		}
		if err := tx.Create(&event).Error; err != nil {
			return err
		}
		if !countsTowardLimit(contest, kind) {
			return nil
		}

		if err := tx.Model(&models.Participant{}).
			Where("id = ? AND status = ?", p.ID, models.ParticipantStatusInProgress).
			Update("tab_switch_count", gorm.Expr("tab_switch_count + 1")).Error; err != nil {
			return err
		}
		if err := tx.First(p, "id = ?", p.ID).Error; err != nil {
			return err
		}

		if !contest.ProctoringEnabled || p.TabSwitchCount <= contest.MaxTabSwitches {
			return nil
		}
		res := tx.Model(&models.Participant{}).
			Where("id = ? AND status = ?", p.ID, models.ParticipantStatusInProgress).
			Updates(map[string]interface{}{
				"status":          models.ParticipantStatusDisqualified,
				"disqualified_at": Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		disqualified = res.RowsAffected > 0
		return tx.First(p, "id = ?", p.ID).Error
	})
	if err != nil {
		return nil, dbError(err, "")
	}

	if disqualified {
		logger.Warn().
			Str("contest", contestID).
			Str("user", userID).
			Int("violations", p.TabSwitchCount).
			Msg("Participant disqualified")
		InvalidateLeaderboardCache(contestID)
	}
	return result(p), nil
}

type FinalizeResult struct {
	Accepted bool                     `json:"accepted"`
	Status   models.ParticipantStatus `json:"status"`
	Score    int                      `json:"score"`
}

// FinalizeContest moves an IN_PROGRESS participant to SUBMITTED and fixes the
// final score. Finalizing a participant that is already terminal is a no-op
// success, so a manual submit racing the timer never fails.
func FinalizeContest(ctx context.Context, contestID, participantID string, by models.FinalizeSource) (*FinalizeResult, error) {
	p, err := loadParticipant(ctx, participantID)
	if err != nil {
		return nil, err
	}
	if p.ContestID != contestID {
		return nil, apperrors.NotFound("Participant not found")
	}
	if p.Status.IsTerminal() {
		return &FinalizeResult{Accepted: true, Status: p.Status, Score: p.Score}, nil
	}
	if !CanTransition(p.Status, models.ParticipantStatusSubmitted) {
		return nil, guardError(p.Status)
	}

	won := false
	err = db(ctx).Transaction(func(tx *gorm.DB) error {
		// Flipping the status first takes the row lock that answer writes
		// also take, so the sum below sees every write that beat us.
		now := Now()
		res := tx.Model(&models.Participant{}).
			Where("id = ? AND status = ?", p.ID, models.ParticipantStatusInProgress).
			Updates(map[string]interface{}{
				"status":       models.ParticipantStatusSubmitted,
				"submitted_at": now,
				"finalized_by": by,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		won = true

		var total int64
		if err := tx.Model(&models.Submission{}).
			Where("participant_id = ?", p.ID).
			Select("COALESCE(SUM(score), 0)").
			Scan(&total).Error; err != nil {
			return err
		}
		return tx.Model(&models.Participant{}).Where("id = ?", p.ID).Update("score", total).Error
	})
	if err != nil {
		return nil, dbError(err, "")
	}

	if p, err = loadParticipant(ctx, participantID); err != nil {
		return nil, err
	}
	if won {
		logger.Info().
			Str("contest", contestID).
			Str("participant", participantID).
			Str("by", string(by)).
			Int("score", p.Score).
			Msg("Contest finalized")
		InvalidateLeaderboardCache(contestID)
	}
	return &FinalizeResult{Accepted: true, Status: p.Status, Score: p.Score}, nil
}

// FinalizeForUser finalizes the calling user's participation.
func FinalizeForUser(ctx context.Context, contestID, userID string, by models.FinalizeSource) (*FinalizeResult, error) {
	p, err := ParticipantFor(ctx, contestID, userID)
	if err != nil {
		return nil, err
	}
	return FinalizeContest(ctx, contestID, p.ID, by)
}

// ResultsView is the read-only view a participant gets after the contest.
type ResultsView struct {
	Participant *models.Participant `json:"participant"`
	Contest     ContestView         `json:"contest"`
	Questions   []QuestionView      `json:"questions"`
	Submissions []SubmissionView    `json:"submissions"`
	TotalScore  int                 `json:"totalScore"`
	MaxScore    int                 `json:"maxScore"`
}

// GetResults reveals scores and correctness once the participant is terminal.
func GetResults(ctx context.Context, contestID, userID string) (*ResultsView, error) {
	p, err := ParticipantFor(ctx, contestID, userID)
	if err != nil {
		return nil, err
	}
	if !p.Status.IsTerminal() {
		return nil, apperrors.Forbidden("Results are available after you submit the contest")
	}

	contest, err := loadContestWithQuestions(ctx, contestID)
	if err != nil {
		return nil, err
	}
	var subs []models.Submission
	if err := db(ctx).Where("participant_id = ?", p.ID).Find(&subs).Error; err != nil {
		return nil, dbError(err, "")
	}

	out := &ResultsView{Participant: p, Contest: NewContestView(contest), TotalScore: p.Score}
	for i := range contest.Questions {
		out.Questions = append(out.Questions, NewQuestionView(&contest.Questions[i]))
		out.MaxScore += contest.Questions[i].Points
	}
	for _, s := range subs {
		out.Submissions = append(out.Submissions, NewSubmissionView(s, true))
	}
	return out, nil
}
