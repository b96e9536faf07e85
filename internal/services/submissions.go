package services

import (
	"context"
	"errors"
	"strings"

	"github.com/pushp314/hackarena-backend/internal/models"
	apperrors "github.com/pushp314/hackarena-backend/pkg/errors"
	"github.com/pushp314/hackarena-backend/pkg/logger"
	"github.com/pushp314/hackarena-backend/pkg/utils"
	"gorm.io/gorm"
)

const maxCodeBytes = 64 * 1024

var errParticipantLocked = errors.New("participant no longer accepts answers")

// activeSession is a participant allowed to write answers for one question.
type activeSession struct {
	Participant *models.Participant
	Contest     *models.Contest
	Question    *models.Question
}

// loadActive validates that the participant may still answer questionID.
// A participant whose contest ended is finalized on the spot.
func loadActive(ctx context.Context, participantID, questionID string) (*activeSession, error) {
	p, err := loadParticipant(ctx, participantID)
	if err != nil {
		return nil, err
	}
	if err := guardError(p.Status); err != nil {
		return nil, err
	}

	contest, err := loadContest(ctx, p.ContestID)
	if err != nil {
		return nil, err
	}
	if !Now().Before(contest.Deadline()) {
		if _, err := FinalizeContest(ctx, contest.ID, p.ID, models.FinalizedByTimer); err != nil {
			logger.Warn().Err(err).Str("participant", p.ID).Msg("Late finalize failed")
		}
		return nil, apperrors.ErrContestClosed
	}

	var q models.Question
	err = db(ctx).
		Preload("TestCases", func(tx *gorm.DB) *gorm.DB { return tx.Order("sort_order asc") }).
		Where("id = ? AND contest_id = ?", questionID, contest.ID).
		First(&q).Error
	if err != nil {
		return nil, dbError(err, "Question not found")
	}
	return &activeSession{Participant: p, Contest: contest, Question: &q}, nil
}

// withAnswerLock runs fn in a transaction that first re-checks the
// participant is still IN_PROGRESS. The check is an UPDATE so it holds the
// participant row until commit and serializes against FinalizeContest.
func withAnswerLock(ctx context.Context, participantID string, fn func(tx *gorm.DB) error) error {
	err := db(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Participant{}).
			Where("id = ? AND status = ?", participantID, models.ParticipantStatusInProgress).
			Update("updated_at", Now())
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errParticipantLocked
		}
		return fn(tx)
	})
	if errors.Is(err, errParticipantLocked) {
		p, lerr := loadParticipant(ctx, participantID)
		if lerr != nil {
			return lerr
		}
		if gerr := guardError(p.Status); gerr != nil {
			return gerr
		}
		return apperrors.ErrAlreadySubmitted
	}
	if err != nil {
		return dbError(err, "")
	}
	return nil
}

type writeOutcome struct {
	Stored  models.Submission
	Applied bool // false when a newer write, or a better score under BEST, was kept
}

// storeSubmission upserts the single live submission for (participant, question).
// Writes carrying an older generation than the stored row are ignored.
func storeSubmission(ctx context.Context, sub *models.Submission, policy models.ScorePolicy) (*writeOutcome, error) {
	var out writeOutcome
	attempt := func() error {
		return withAnswerLock(ctx, sub.ParticipantID, func(tx *gorm.DB) error {
			var existing models.Submission
			err := tx.Where("participant_id = ? AND question_id = ?", sub.ParticipantID, sub.QuestionID).
				First(&existing).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				sub.ID = utils.GenerateID()
				if err := tx.Create(sub).Error; err != nil {
					return err
				}
				out = writeOutcome{Stored: *sub, Applied: true}
				return nil
			}
			if err != nil {
				return err
			}

			if existing.Generation >= sub.Generation {
				out = writeOutcome{Stored: existing}
				return nil
			}
			if policy == models.ScorePolicyBest && existing.Score > sub.Score {
				if err := tx.Model(&existing).UpdateColumn("generation", sub.Generation).Error; err != nil {
					return err
				}
				out = writeOutcome{Stored: existing}
				return nil
			}

			sub.ID = existing.ID
			sub.CreatedAt = existing.CreatedAt
			res := tx.Model(sub).
				Where("generation < ?", sub.Generation).
				Select("*").
				Omit("ID", "CreatedAt").
				Updates(sub)
			if res.Error != nil {
				return res.Error
			}
			out = writeOutcome{Stored: *sub, Applied: res.RowsAffected > 0}
			if !out.Applied {
				return tx.First(&out.Stored, "id = ?", existing.ID).Error
			}
			return nil
		})
	}

	err := attempt()
	// Another process created the row between our read and insert.
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		err = attempt()
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type MCQAck struct {
	Accepted          bool     `json:"accepted"`
	QuestionID        string   `json:"questionId"`
	SelectedOptionIDs []string `json:"selectedOptionIds"`
}

// SubmitMCQAnswer stores the selection and its grade. The grade is withheld
// from the response; it is revealed by GetResults after the contest.
func SubmitMCQAnswer(ctx context.Context, participantID, questionID string, optionIDs []string, seq int64) (*MCQAck, error) {
	gen := nextGeneration(seq)
	unlock := answerLocks.Lock(answerKey(participantID, questionID))
	defer unlock()

	s, err := loadActive(ctx, participantID, questionID)
	if err != nil {
		return nil, err
	}
	q := s.Question
	if q.Type != models.QuestionTypeMCQ {
		return nil, apperrors.BadRequest("Question is not multiple choice")
	}
	selected := uniqueSorted(optionIDs)
	if len(selected) == 0 {
		return nil, apperrors.BadRequest("Select at least one option")
	}
	for _, id := range selected {
		if !q.HasOption(id) {
			return nil, apperrors.BadRequest("Unknown option: " + id)
		}
	}

	correct, score := GradeMCQ(q, selected)
	sub := &models.Submission{
		ParticipantID:     s.Participant.ID,
		QuestionID:        q.ID,
		ContestID:         s.Contest.ID,
		Type:              models.QuestionTypeMCQ,
		SelectedOptionIDs: selected,
		Status:            models.SubStatusAnswered,
		Score:             score,
		IsCorrect:         correct,
		Generation:        gen,
	}
	// MCQ answers are always last-write-wins: a choice is not an attempt.
	if _, err := storeSubmission(ctx, sub, models.ScorePolicyLatest); err != nil {
		return nil, err
	}

	return &MCQAck{Accepted: true, QuestionID: q.ID, SelectedOptionIDs: selected}, nil
}

type SubmitCodeResult struct {
	CodeGrade
	// Superseded is set when this grade was not stored because a newer
	// submission, or a better one under the BEST policy, is on record.
	Superseded bool `json:"superseded,omitempty"`
}

// SubmitCode grades code against every test case and stores the result.
func SubmitCode(ctx context.Context, participantID, questionID, code, language string, seq int64) (*SubmitCodeResult, error) {
	gen := nextGeneration(seq)
	unlock := answerLocks.Lock(answerKey(participantID, questionID))
	defer unlock()

	s, err := loadActive(ctx, participantID, questionID)
	if err != nil {
		return nil, err
	}
	q := s.Question
	if err := validateCode(q, code, language); err != nil {
		return nil, err
	}

	grade := GradeCode(ctx, CurrentSandbox(), q, code, language)
	if grade.SandboxFailed() {
		return storeSandboxFailure(ctx, s, code, language, gen, grade)
	}

	sub := &models.Submission{
		ParticipantID:   s.Participant.ID,
		QuestionID:      q.ID,
		ContestID:       s.Contest.ID,
		Type:            models.QuestionTypeCoding,
		Code:            code,
		Language:        language,
		TestCasesPassed: grade.TestCasesPassed,
		TestCasesTotal:  grade.TestCasesTotal,
		Results:         grade.Results,
		Error:           grade.Error,
		Status:          grade.Status,
		Score:           grade.Score,
		IsCorrect:       grade.IsCorrect,
		Generation:      gen,
	}
	out, err := storeSubmission(ctx, sub, s.Contest.EffectiveScorePolicy())
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("participant", participantID).
		Str("question", questionID).
		Str("status", string(grade.Status)).
		Int("passed", grade.TestCasesPassed).
		Int("total", grade.TestCasesTotal).
		Bool("stored", out.Applied).
		Msg("Code submission graded")

	if out.Applied {
		InvalidateLeaderboardCache(s.Contest.ID)
	}
	return &SubmitCodeResult{CodeGrade: grade, Superseded: !out.Applied}, nil
}

// storeSandboxFailure records a submission the sandbox could not run as a
// zero-score SANDBOX_ERROR grade. An earlier submission for the question is
// never replaced by it; the participant keeps that answer and may resubmit.
func storeSandboxFailure(ctx context.Context, s *activeSession, code, language string, gen int64, grade CodeGrade) (*SubmitCodeResult, error) {
	grade.Status = models.SubStatusSandbox
	grade.Score = 0
	grade.IsCorrect = false
	if grade.Error == "" {
		grade.Error = "Code execution is temporarily unavailable"
	}

	sub := &models.Submission{
		ParticipantID:   s.Participant.ID,
		QuestionID:      s.Question.ID,
		ContestID:       s.Contest.ID,
		Type:            models.QuestionTypeCoding,
		Code:            code,
		Language:        language,
		TestCasesPassed: grade.TestCasesPassed,
		TestCasesTotal:  grade.TestCasesTotal,
		Results:         grade.Results,
		Error:           grade.Error,
		Status:          grade.Status,
		Generation:      gen,
	}
	stored := false
	err := withAnswerLock(ctx, s.Participant.ID, func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Submission{}).
			Where("participant_id = ? AND question_id = ?", sub.ParticipantID, sub.QuestionID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		sub.ID = utils.GenerateID()
		if err := tx.Create(sub).Error; err != nil {
			return err
		}
		stored = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Warn().
		Str("participant", s.Participant.ID).
		Str("question", s.Question.ID).
		Str("error", grade.Error).
		Bool("stored", stored).
		Msg("Sandbox could not grade submission")

	if stored {
		InvalidateLeaderboardCache(s.Contest.ID)
	}
	return &SubmitCodeResult{CodeGrade: grade, Superseded: !stored}, nil
}

// RunCode executes code against a sample without storing anything.
func RunCode(ctx context.Context, participantID string, in RunInput) (*RunResult, error) {
	s, err := loadActive(ctx, participantID, in.QuestionID)
	if err != nil {
		return nil, err
	}
	if err := validateCode(s.Question, in.Code, in.Language); err != nil {
		return nil, err
	}

	res, err := RunSample(ctx, CurrentSandbox(), s.Question, in.Code, in.Language, in.SampleInput)
	if err != nil {
		return nil, apperrors.BadRequest(err.Error())
	}
	return res, nil
}

func validateCode(q *models.Question, code, language string) error {
	if q.Type != models.QuestionTypeCoding {
		return apperrors.BadRequest("Question is not a coding question")
	}
	if strings.TrimSpace(code) == "" {
		return apperrors.BadRequest("Code cannot be empty")
	}
	if len(code) > maxCodeBytes {
		return apperrors.BadRequest("Code is too large")
	}
	if language == "" || !q.AllowsLanguage(language) {
		return apperrors.BadRequest("Language not allowed for this question")
	}
	return nil
}
