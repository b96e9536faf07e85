package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pushp314/hackarena-backend/internal/models"
	apperrors "github.com/pushp314/hackarena-backend/pkg/errors"
	"github.com/pushp314/hackarena-backend/pkg/logger"
	"github.com/pushp314/hackarena-backend/pkg/utils"
	"gorm.io/gorm"
)

type CreateContestInput struct {
	Title             string             `json:"title" binding:"required"`
	Description       string             `json:"description"`
	StartTime         time.Time          `json:"startTime" binding:"required"`
	EndTime           time.Time          `json:"endTime" binding:"required"`
	DurationMinutes   int                `json:"durationMinutes"`
	ProctoringEnabled bool               `json:"proctoringEnabled"`
	MaxTabSwitches    int                `json:"maxTabSwitches"`
	RequireFullscreen bool               `json:"requireFullscreen"`
	BlockCopyPaste    bool               `json:"blockCopyPaste"`
	ShuffleQuestions  bool               `json:"shuffleQuestions"`
	ShowLeaderboard   bool               `json:"showLeaderboard"`
	ScorePolicy       models.ScorePolicy `json:"scorePolicy"`
}

// CreateContest stores a new contest as a draft.
func CreateContest(ctx context.Context, in CreateContestInput, createdBy string) (*models.Contest, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperrors.BadRequest("Title is required")
	}
	if !in.EndTime.After(in.StartTime) {
		return nil, apperrors.BadRequest("End time must be after start time")
	}
	if in.MaxTabSwitches < 0 {
		return nil, apperrors.BadRequest("maxTabSwitches cannot be negative")
	}
	switch in.ScorePolicy {
	case "", models.ScorePolicyLatest, models.ScorePolicyBest:
	default:
		return nil, apperrors.BadRequest("scorePolicy must be LATEST or BEST")
	}

	window := int(in.EndTime.Sub(in.StartTime).Minutes())
	duration := in.DurationMinutes
	if duration <= 0 || duration > window {
		duration = window
	}
	policy := in.ScorePolicy
	if policy == "" {
		policy = models.ScorePolicyLatest
	}

	contest := models.Contest{
		ID:                utils.GenerateID(),
		Title:             title,
		Slug:              utils.GenerateSlug(title),
		Description:       in.Description,
		StartTime:         in.StartTime,
		EndTime:           in.EndTime,
		DurationMinutes:   duration,
		Status:            models.ContestStatusDraft,
		ProctoringEnabled: in.ProctoringEnabled,
		MaxTabSwitches:    in.MaxTabSwitches,
		RequireFullscreen: in.RequireFullscreen,
		BlockCopyPaste:    in.BlockCopyPaste,
		ShuffleQuestions:  in.ShuffleQuestions,
		ShowLeaderboard:   in.ShowLeaderboard,
		ScorePolicy:       policy,
		CreatedBy:         createdBy,
	}
	if err := db(ctx).Create(&contest).Error; err != nil {
		return nil, dbError(err, "")
	}

	logger.Info().Str("contest", contest.ID).Str("by", createdBy).Msg("Contest created")
	return &contest, nil
}

type OptionInput struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

// resolvedID is the stored id of the i-th option; options sent without one
// are numbered from 1.
func (o OptionInput) resolvedID(i int) string {
	if o.ID != "" {
		return o.ID
	}
	return fmt.Sprintf("opt-%d", i+1)
}

type TestCaseInput struct {
	Input    string `json:"input"`
	Output   string `json:"output"`
	IsHidden bool   `json:"isHidden"`
}

type QuestionInput struct {
	Type          models.QuestionType `json:"type" binding:"required"`
	Title         string              `json:"title" binding:"required"`
	Body          string              `json:"body"`
	Difficulty    string              `json:"difficulty"`
	Points        int                 `json:"points"`
	Order         *int                `json:"order"`
	TimeLimitMs   int                 `json:"timeLimitMs"`
	MemoryLimitMB int                 `json:"memoryLimitMb"`
	StarterCode   map[string]string   `json:"starterCode"`
	Options       []OptionInput       `json:"options"`
	TestCases     []TestCaseInput     `json:"testCases"`
}

// Validate checks the type-specific shape: MCQ questions carry options,
// coding questions carry test cases, never both.
func (in *QuestionInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return apperrors.BadRequest("Title is required")
	}
	if in.Points < 0 {
		return apperrors.BadRequest("Points cannot be negative")
	}
	switch in.Type {
	case models.QuestionTypeMCQ:
		if len(in.TestCases) > 0 || len(in.StarterCode) > 0 {
			return apperrors.BadRequest("MCQ questions cannot have test cases or starter code")
		}
		if len(in.Options) < 2 {
			return apperrors.BadRequest("MCQ questions need at least two options")
		}
		correct := 0
		seen := make(map[string]bool)
		for i, o := range in.Options {
			if strings.TrimSpace(o.Text) == "" {
				return apperrors.BadRequest("Option text is required")
			}
			id := o.resolvedID(i)
			if seen[id] {
				return apperrors.BadRequest("Duplicate option id: " + id)
			}
			seen[id] = true
			if o.IsCorrect {
				correct++
			}
		}
		if correct == 0 {
			return apperrors.BadRequest("MCQ questions need at least one correct option")
		}
	case models.QuestionTypeCoding:
		if len(in.Options) > 0 {
			return apperrors.BadRequest("Coding questions cannot have options")
		}
		if len(in.TestCases) == 0 {
			return apperrors.BadRequest("Coding questions need at least one test case")
		}
		if in.TimeLimitMs < 0 || in.MemoryLimitMB < 0 {
			return apperrors.BadRequest("Limits cannot be negative")
		}
	default:
		return apperrors.BadRequest("type must be MCQ or CODING")
	}
	return nil
}

// AddQuestion appends a question to a contest that has not started yet.
func AddQuestion(ctx context.Context, contestID string, in QuestionInput) (*models.Question, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	contest, err := loadContest(ctx, contestID)
	if err != nil {
		return nil, err
	}
	switch SyncContestStatus(ctx, contest) {
	case models.ContestStatusLive, models.ContestStatusCompleted:
		return nil, apperrors.BadRequest("Questions cannot be changed once the contest has started")
	}

	q := models.Question{
		ID:            utils.GenerateID(),
		ContestID:     contestID,
		Type:          in.Type,
		Title:         strings.TrimSpace(in.Title),
		Body:          in.Body,
		Difficulty:    in.Difficulty,
		Points:        in.Points,
		TimeLimitMs:   in.TimeLimitMs,
		MemoryLimitMB: in.MemoryLimitMB,
		StarterCode:   in.StarterCode,
	}
	for i, o := range in.Options {
		q.Options = append(q.Options, models.MCQOption{ID: o.resolvedID(i), Text: o.Text, IsCorrect: o.IsCorrect})
	}
	for i, tc := range in.TestCases {
		q.TestCases = append(q.TestCases, models.TestCase{
			ID:       utils.GenerateID(),
			Input:    tc.Input,
			Output:   tc.Output,
			IsHidden: tc.IsHidden,
			Order:    i,
		})
	}

	err = db(ctx).Transaction(func(tx *gorm.DB) error {
		if in.Order != nil {
			q.Order = *in.Order
		} else {
			var count int64
			if err := tx.Model(&models.Question{}).Where("contest_id = ?", contestID).Count(&count).Error; err != nil {
				return err
			}
			q.Order = int(count)
		}
		return tx.Create(&q).Error
	})
	if err != nil {
		return nil, dbError(err, "")
	}
	return &q, nil
}

// PublishContest makes a draft visible for registration. With openNow the
// contest goes live immediately instead of waiting for its start time.
func PublishContest(ctx context.Context, contestID string, openNow bool) (*models.Contest, error) {
	contest, err := loadContest(ctx, contestID)
	if err != nil {
		return nil, err
	}
	if !Now().Before(contest.EndTime) {
		return nil, apperrors.BadRequest("Contest end time has already passed")
	}

	var count int64
	if err := db(ctx).Model(&models.Question{}).Where("contest_id = ?", contestID).Count(&count).Error; err != nil {
		return nil, dbError(err, "")
	}
	if count == 0 {
		return nil, apperrors.BadRequest("Add at least one question before publishing")
	}

	target := models.ContestStatusPublished
	if openNow {
		target = models.ContestStatusLive
	}
	if err := db(ctx).Model(contest).Update("status", target).Error; err != nil {
		return nil, dbError(err, "")
	}
	contest.Status = target
	SyncContestStatus(ctx, contest)

	logger.Info().Str("contest", contestID).Str("status", string(contest.Status)).Msg("Contest published")
	return contest, nil
}

// ListContests returns contests newest first. Drafts are only listed for organizers.
func ListContests(ctx context.Context, includeDrafts bool) ([]ContestView, error) {
	var contests []models.Contest
	q := db(ctx).Preload("Questions").Order("start_time desc")
	if !includeDrafts {
		q = q.Where("status <> ?", models.ContestStatusDraft)
	}
	if err := q.Find(&contests).Error; err != nil {
		return nil, dbError(err, "")
	}

	views := make([]ContestView, 0, len(contests))
	for i := range contests {
		SyncContestStatus(ctx, &contests[i])
		views = append(views, NewContestView(&contests[i]))
	}
	return views, nil
}

// GetContest returns a contest summary with its computed status.
func GetContest(ctx context.Context, contestID string, includeDrafts bool) (*ContestView, error) {
	var contest models.Contest
	if err := db(ctx).Preload("Questions").First(&contest, "id = ? OR slug = ?", contestID, contestID).Error; err != nil {
		return nil, dbError(err, "Contest not found")
	}
	if SyncContestStatus(ctx, &contest) == models.ContestStatusDraft && !includeDrafts {
		return nil, apperrors.NotFound("Contest not found")
	}
	v := NewContestView(&contest)
	return &v, nil
}

// ParticipationSummary is one line of a user's contest history.
type ParticipationSummary struct {
	Contest     ContestView              `json:"contest"`
	Status      models.ParticipantStatus `json:"status"`
	Score       int                      `json:"score"`
	FinalizedBy models.FinalizeSource    `json:"finalizedBy,omitempty"`
	StartedAt   *time.Time               `json:"startedAt,omitempty"`
	SubmittedAt *time.Time               `json:"submittedAt,omitempty"`
}

// ListParticipations returns every contest the user registered for, newest
// first. Scores are only final once the participation is terminal.
func ListParticipations(ctx context.Context, userID string) ([]ParticipationSummary, error) {
	var parts []models.Participant
	if err := db(ctx).Where("user_id = ?", userID).Find(&parts).Error; err != nil {
		return nil, dbError(err, "")
	}
	if len(parts) == 0 {
		return []ParticipationSummary{}, nil
	}

	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		ids = append(ids, p.ContestID)
	}
	var contests []models.Contest
	if err := db(ctx).Preload("Questions").Where("id IN ?", ids).Order("start_time desc").Find(&contests).Error; err != nil {
		return nil, dbError(err, "")
	}

	byContest := make(map[string]models.Participant, len(parts))
	for _, p := range parts {
		byContest[p.ContestID] = p
	}
	out := make([]ParticipationSummary, 0, len(contests))
	for i := range contests {
		SyncContestStatus(ctx, &contests[i])
		p := byContest[contests[i].ID]
		out = append(out, ParticipationSummary{
			Contest:     NewContestView(&contests[i]),
			Status:      p.Status,
			Score:       p.Score,
			FinalizedBy: p.FinalizedBy,
			StartedAt:   p.StartedAt,
			SubmittedAt: p.SubmittedAt,
		})
	}
	return out, nil
}
