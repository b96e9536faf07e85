// Package session is the participant side of a live contest: it keeps the
// local answers, persists them to the API and finalizes when time runs out.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/pushp314/hackarena-backend/internal/models"
	"github.com/pushp314/hackarena-backend/internal/services"
	apperrors "github.com/pushp314/hackarena-backend/pkg/errors"
	"github.com/pushp314/hackarena-backend/pkg/logger"
)

type Options struct {
	DefaultLanguage string
	// Register signs the participant up first when they are not registered yet.
	Register bool
	Tick     time.Duration

	OnTick      func(remaining time.Duration)
	OnSaveError func(questionID string, err error)
	// OnFinalized fires once, for either a manual or an automatic finish.
	OnFinalized func(res *services.FinalizeResult, auto bool)
	// OnExpireFailed fires when the automatic finish gave up retrying.
	OnExpireFailed func(err error)

	RetryDelay time.Duration
}

// Session is one participant's live attempt at a contest.
type Session struct {
	client    *Client
	contestID string
	opts      Options

	Contest   services.ContestView
	Questions []services.QuestionView
	Answers   *Store
	countdown *Countdown

	finMu  sync.Mutex
	mu     sync.Mutex
	final  *services.FinalizeResult
	status models.ParticipantStatus
	cancel context.CancelFunc
}

// contestPersister routes Store writes to one contest.
type contestPersister struct {
	client    *Client
	contestID string
}

func (p contestPersister) SaveDraft(ctx context.Context, questionID, code, language string, seq int64) error {
	_, err := p.client.SaveDraft(ctx, p.contestID, questionID, code, language, seq)
	return err
}

func (p contestPersister) SaveChoice(ctx context.Context, questionID string, optionIDs []string, seq int64) error {
	_, err := p.client.SubmitAnswer(ctx, p.contestID, questionID, optionIDs, seq)
	return err
}

// Open enters the contest and restores the participant's answers. The
// countdown is not running until Start is called.
func Open(ctx context.Context, client *Client, contestID string, opts Options) (*Session, error) {
	res, err := client.Enter(ctx, contestID)
	if errors.Is(err, apperrors.ErrNotRegistered) && opts.Register {
		if _, err = client.Register(ctx, contestID); err != nil {
			return nil, err
		}
		res, err = client.Enter(ctx, contestID)
	}
	if err != nil {
		return nil, err
	}
	if opts.DefaultLanguage == "" {
		opts.DefaultLanguage = "python"
	}

	s := &Session{
		client:    client,
		contestID: res.Contest.ID,
		opts:      opts,
		Contest:   res.Contest,
		Questions: res.Questions,
		status:    res.Participant.Status,
	}

	s.Answers = NewStore(contestPersister{client: client, contestID: s.contestID}, opts.DefaultLanguage, s.saveFailed)
	s.Answers.Seed(res.Questions, res.Submissions, res.Drafts)

	s.countdown = NewCountdown(CountdownConfig{
		Deadline:       res.Deadline,
		Offset:         ClockOffset(res.ServerTime, time.Now()),
		Tick:           opts.Tick,
		OnTick:         opts.OnTick,
		OnExpire:       s.expire,
		OnExpireFailed: s.expireFailed,
		RetryDelay:     opts.RetryDelay,
		ShouldRetry:    Retryable,
	})

	logger.Debug().
		Str("contest", s.contestID).
		Time("deadline", res.Deadline).
		Int("questions", len(res.Questions)).
		Msg("Session opened")
	return s, nil
}

func (s *Session) ContestID() string {
	return s.contestID
}

// Start runs the countdown in the background until ctx is cancelled or Close is called.
func (s *Session) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	go s.countdown.Run(ctx)
}

// Close stops the countdown and waits for pending writes and any running expiry.
func (s *Session) Close() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.countdown.Wait()
	s.Answers.Flush()
}

func (s *Session) Remaining() time.Duration {
	return s.countdown.Remaining()
}

func (s *Session) Status() models.ParticipantStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Final returns the finalize result, or nil while the session is running.
func (s *Session) Final() *services.FinalizeResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.final
}

func (s *Session) Question(id string) (services.QuestionView, bool) {
	for _, q := range s.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return services.QuestionView{}, false
}

// Submit grades the current code of a coding question.
func (s *Session) Submit(ctx context.Context, questionID string) (*services.SubmitCodeResult, error) {
	a, err := s.Answers.Code(questionID)
	if err != nil {
		return nil, err
	}
	if s.Answers.Locked() {
		return nil, ErrLocked
	}
	res, err := s.client.SubmitCode(ctx, s.contestID, questionID, a.Code, a.Language, s.Answers.NextSeq(questionID))
	s.observe(err)
	return res, err
}

// Run executes the current code without grading. A nil input uses the
// question's first example.
func (s *Session) Run(ctx context.Context, questionID string, input *string) (*services.RunResult, error) {
	a, err := s.Answers.Code(questionID)
	if err != nil {
		return nil, err
	}
	res, err := s.client.Run(ctx, s.contestID, questionID, a.Code, a.Language, input)
	s.observe(err)
	return res, err
}

// ReportViolation forwards a proctoring event. A disqualification ends the session.
func (s *Session) ReportViolation(ctx context.Context, kind models.ViolationKind, details string) (*services.ViolationResult, error) {
	res, err := s.client.RecordViolation(ctx, s.contestID, kind, details)
	if err != nil {
		s.observe(err)
		return nil, err
	}
	if res.Disqualified {
		s.terminate(res.Status)
	}
	return res, nil
}

// Finish submits the whole contest. It is safe to call after the countdown
// already did; the first result is returned.
func (s *Session) Finish(ctx context.Context) (*services.FinalizeResult, error) {
	res, err := s.finalize(ctx, false)
	if err == nil {
		s.countdown.Disarm()
	}
	return res, err
}

func (s *Session) expire(ctx context.Context) error {
	_, err := s.finalize(ctx, true)
	return err
}

func (s *Session) expireFailed(err error) {
	logger.Error().Err(err).Str("contest", s.contestID).Msg("Automatic submit failed")
	if s.opts.OnExpireFailed != nil {
		s.opts.OnExpireFailed(err)
	}
}

// finalize locks the answers, waits for in-flight writes and ends the session.
// A failed attempt unlocks the answers again unless the server reports the
// session terminal.
func (s *Session) finalize(ctx context.Context, auto bool) (*services.FinalizeResult, error) {
	s.finMu.Lock()
	defer s.finMu.Unlock()
	if final := s.Final(); final != nil {
		return final, nil
	}

	s.Answers.Lock()
	s.Answers.Flush()

	res, err := s.client.Finalize(ctx, s.contestID, auto)
	if err != nil {
		if status, ok := terminalStatus(err); ok {
			s.setStatus(status)
			return nil, err
		}
		s.Answers.unlock()
		return nil, err
	}

	s.mu.Lock()
	s.final = res
	s.status = res.Status
	s.mu.Unlock()
	logger.Info().
		Str("contest", s.contestID).
		Bool("auto", auto).
		Int("score", res.Score).
		Msg("Contest submitted")
	if s.opts.OnFinalized != nil {
		s.opts.OnFinalized(res, auto)
	}
	return res, nil
}

// observe ends the session locally when the server says it is over.
func (s *Session) observe(err error) {
	if status, ok := terminalStatus(err); ok {
		s.terminate(status)
	}
}

func (s *Session) terminate(status models.ParticipantStatus) {
	s.Answers.Lock()
	s.countdown.Disarm()
	s.setStatus(status)
}

func (s *Session) setStatus(status models.ParticipantStatus) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

func (s *Session) saveFailed(questionID string, err error) {
	s.observe(err)
	if s.opts.OnSaveError != nil {
		s.opts.OnSaveError(questionID, err)
		return
	}
	logger.Warn().Err(err).Str("question", questionID).Msg("Answer not saved")
}

func terminalStatus(err error) (models.ParticipantStatus, bool) {
	switch {
	case err == nil:
		return "", false
	case errors.Is(err, apperrors.ErrAlreadySubmitted):
		return models.ParticipantStatusSubmitted, true
	case errors.Is(err, apperrors.ErrDisqualified):
		return models.ParticipantStatusDisqualified, true
	case errors.Is(err, apperrors.ErrContestClosed):
		return models.ParticipantStatusSubmitted, true
	}
	return "", false
}
