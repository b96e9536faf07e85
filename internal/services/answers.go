package services

import (
	"context"
	"errors"
	"time"

	"github.com/pushp314/hackarena-backend/internal/models"
	apperrors "github.com/pushp314/hackarena-backend/pkg/errors"
	"github.com/pushp314/hackarena-backend/pkg/utils"
	"gorm.io/gorm"
)

type DraftAck struct {
	Saved     bool      `json:"saved"` // false when a newer draft was already stored
	UpdatedAt time.Time `json:"updatedAt"`
}

// SaveDraft stores un-graded editor state so a reload can restore it.
// Drafts follow the same terminal lock and ordering rules as submissions.
func SaveDraft(ctx context.Context, participantID, questionID, code, language string, seq int64) (*DraftAck, error) {
	gen := nextGeneration(seq)
	unlock := answerLocks.Lock("draft:" + answerKey(participantID, questionID))
	defer unlock()

	s, err := loadActive(ctx, participantID, questionID)
	if err != nil {
		return nil, err
	}
	if s.Question.Type != models.QuestionTypeCoding {
		return nil, apperrors.BadRequest("Drafts are only kept for coding questions")
	}
	if len(code) > maxCodeBytes {
		return nil, apperrors.BadRequest("Code is too large")
	}
	if language == "" || !s.Question.AllowsLanguage(language) {
		return nil, apperrors.BadRequest("Language not allowed for this question")
	}

	ack := &DraftAck{}
	err = withAnswerLock(ctx, participantID, func(tx *gorm.DB) error {
		var existing models.AnswerDraft
		err := tx.Where("participant_id = ? AND question_id = ?", participantID, questionID).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			draft := models.AnswerDraft{
				ID:            utils.GenerateID(),
				ParticipantID: participantID,
				QuestionID:    questionID,
				Code:          code,
				Language:      language,
				Generation:    gen,
			}
			if err := tx.Create(&draft).Error; err != nil {
				return err
			}
			ack.Saved, ack.UpdatedAt = true, draft.UpdatedAt
			return nil
		}
		if err != nil {
			return err
		}

		now := Now()
		res := tx.Model(&models.AnswerDraft{}).
			Where("id = ? AND generation < ?", existing.ID, gen).
			Updates(map[string]interface{}{
				"code":       code,
				"language":   language,
				"generation": gen,
				"updated_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		ack.Saved = res.RowsAffected > 0
		ack.UpdatedAt = existing.UpdatedAt
		if ack.Saved {
			ack.UpdatedAt = now
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ack, nil
}
