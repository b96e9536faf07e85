package session

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pushp314/hackarena-backend/internal/models"
	"github.com/pushp314/hackarena-backend/internal/services"
)

// Answer is either a CodeAnswer or a ChoiceAnswer.
type Answer interface {
	isAnswer()
}

type CodeAnswer struct {
	Code     string
	Language string
}

type ChoiceAnswer struct {
	OptionIDs []string
}

func (CodeAnswer) isAnswer()   {}
func (ChoiceAnswer) isAnswer() {}

var (
	ErrLocked          = errors.New("answers are locked: the contest was submitted")
	ErrUnknownQuestion = errors.New("unknown question")
	ErrWrongKind       = errors.New("answer kind does not match the question type")
)

// Persister writes answers to the server. seq orders writes per question.
type Persister interface {
	SaveDraft(ctx context.Context, questionID, code, language string, seq int64) error
	SaveChoice(ctx context.Context, questionID string, optionIDs []string, seq int64) error
}

// Store holds the participant's current answers. Mutations apply locally
// first and are persisted in the background; a failed write is reported
// through onError and never rolls the local answer back.
type Store struct {
	mu        sync.Mutex
	questions map[string]services.QuestionView
	answers   map[string]Answer
	lastSeq   map[string]int64
	locked    bool

	defaultLanguage string
	persist         Persister
	onError         func(questionID string, err error)
	now             func() time.Time
	wg              sync.WaitGroup
}

func NewStore(p Persister, defaultLanguage string, onError func(questionID string, err error)) *Store {
	return &Store{
		questions:       make(map[string]services.QuestionView),
		answers:         make(map[string]Answer),
		lastSeq:         make(map[string]int64),
		defaultLanguage: defaultLanguage,
		persist:         p,
		onError:         onError,
		now:             time.Now,
	}
}

// Seed loads the answers of an entered session. A coding question starts
// from the newer of its last submission and its draft, falling back to the
// starter code; an MCQ starts from its last selection.
func (s *Store) Seed(questions []services.QuestionView, subs []services.SubmissionView, drafts []models.AnswerDraft) {
	s.mu.Lock()
	defer s.mu.Unlock()

	subByQ := make(map[string]services.SubmissionView, len(subs))
	for _, sub := range subs {
		subByQ[sub.QuestionID] = sub
	}
	draftByQ := make(map[string]models.AnswerDraft, len(drafts))
	for _, d := range drafts {
		draftByQ[d.QuestionID] = d
	}

	for _, q := range questions {
		s.questions[q.ID] = q
		sub, hasSub := subByQ[q.ID]

		if q.Type == models.QuestionTypeMCQ {
			choice := ChoiceAnswer{}
			if hasSub {
				choice.OptionIDs = append([]string(nil), sub.SelectedOptionIDs...)
			}
			s.answers[q.ID] = choice
			continue
		}

		draft, hasDraft := draftByQ[q.ID]
		switch {
		case hasDraft && (!hasSub || draft.UpdatedAt.After(sub.UpdatedAt)):
			s.answers[q.ID] = CodeAnswer{Code: draft.Code, Language: draft.Language}
		case hasSub:
			s.answers[q.ID] = CodeAnswer{Code: sub.Code, Language: sub.Language}
		default:
			lang := s.pickLanguage(q)
			s.answers[q.ID] = CodeAnswer{Code: q.StarterCode[lang], Language: lang}
		}
	}
}

// pickLanguage prefers the participant's default language when the question offers it.
func (s *Store) pickLanguage(q services.QuestionView) string {
	if len(q.StarterCode) == 0 {
		return s.defaultLanguage
	}
	if _, ok := q.StarterCode[s.defaultLanguage]; ok {
		return s.defaultLanguage
	}
	langs := make([]string, 0, len(q.StarterCode))
	for l := range q.StarterCode {
		langs = append(langs, l)
	}
	sort.Strings(langs)
	return langs[0]
}

// Get returns the current answer for a question.
func (s *Store) Get(questionID string) (Answer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.answers[questionID]
	return a, ok
}

// Code returns the current code answer of a coding question.
func (s *Store) Code(questionID string) (CodeAnswer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.answers[questionID]
	if !ok {
		return CodeAnswer{}, ErrUnknownQuestion
	}
	code, ok := a.(CodeAnswer)
	if !ok {
		return CodeAnswer{}, ErrWrongKind
	}
	return code, nil
}

// NextSeq issues an ordering token for a write to questionID. Tokens grow
// across reloads because they never fall behind the wall clock.
func (s *Store) NextSeq(questionID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextSeqLocked(questionID)
}

func (s *Store) nextSeqLocked(questionID string) int64 {
	seq := s.now().UnixNano()
	if last := s.lastSeq[questionID]; seq <= last {
		seq = last + 1
	}
	s.lastSeq[questionID] = seq
	return seq
}

// SetCode replaces the code of a coding question and persists it as a draft.
func (s *Store) SetCode(ctx context.Context, questionID, code string) error {
	s.mu.Lock()
	cur, err := s.codeLocked(questionID)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	cur.Code = code
	s.answers[questionID] = cur
	seq := s.nextSeqLocked(questionID)
	s.mu.Unlock()

	s.saveDraft(ctx, questionID, cur, seq)
	return nil
}

type SwitchResult struct {
	Answer CodeAnswer
	// Preserved is set when the participant's edits were kept instead of
	// being replaced by the new language's starter code.
	Preserved bool
}

// SwitchLanguage changes the language of a coding question. The editor gets
// the new starter code only if the current code is blank or still the old
// language's starter; otherwise the edits are kept and Preserved is set.
func (s *Store) SwitchLanguage(ctx context.Context, questionID, language string) (SwitchResult, error) {
	return s.switchLanguage(ctx, questionID, language, false)
}

// DiscardAndSwitch changes language and always resets to the starter code.
func (s *Store) DiscardAndSwitch(ctx context.Context, questionID, language string) (CodeAnswer, error) {
	res, err := s.switchLanguage(ctx, questionID, language, true)
	return res.Answer, err
}

func (s *Store) switchLanguage(ctx context.Context, questionID, language string, discard bool) (SwitchResult, error) {
	s.mu.Lock()
	cur, err := s.codeLocked(questionID)
	if err != nil {
		s.mu.Unlock()
		return SwitchResult{}, err
	}
	q := s.questions[questionID]
	if len(q.StarterCode) > 0 {
		if _, ok := q.StarterCode[language]; !ok {
			s.mu.Unlock()
			return SwitchResult{}, errors.New("language not offered for this question: " + language)
		}
	}
	if cur.Language == language {
		s.mu.Unlock()
		return SwitchResult{Answer: cur}, nil
	}

	res := SwitchResult{}
	pristine := strings.TrimSpace(cur.Code) == "" || cur.Code == q.StarterCode[cur.Language]
	if discard || pristine {
		res.Answer = CodeAnswer{Code: q.StarterCode[language], Language: language}
	} else {
		res.Answer = CodeAnswer{Code: cur.Code, Language: language}
		res.Preserved = true
	}
	s.answers[questionID] = res.Answer
	seq := s.nextSeqLocked(questionID)
	s.mu.Unlock()

	s.saveDraft(ctx, questionID, res.Answer, seq)
	return res, nil
}

// Choose records the selected options of an MCQ and submits them.
func (s *Store) Choose(ctx context.Context, questionID string, optionIDs []string) error {
	s.mu.Lock()
	if s.locked {
		s.mu.Unlock()
		return ErrLocked
	}
	q, ok := s.questions[questionID]
	if !ok {
		s.mu.Unlock()
		return ErrUnknownQuestion
	}
	if q.Type != models.QuestionTypeMCQ {
		s.mu.Unlock()
		return ErrWrongKind
	}
	ids := append([]string(nil), optionIDs...)
	s.answers[questionID] = ChoiceAnswer{OptionIDs: ids}
	seq := s.nextSeqLocked(questionID)
	s.mu.Unlock()

	s.background(ctx, questionID, seq, func(ctx context.Context) error {
		return s.persist.SaveChoice(ctx, questionID, ids, seq)
	})
	return nil
}

func (s *Store) codeLocked(questionID string) (CodeAnswer, error) {
	if s.locked {
		return CodeAnswer{}, ErrLocked
	}
	a, ok := s.answers[questionID]
	if !ok {
		return CodeAnswer{}, ErrUnknownQuestion
	}
	code, ok := a.(CodeAnswer)
	if !ok {
		return CodeAnswer{}, ErrWrongKind
	}
	return code, nil
}

func (s *Store) saveDraft(ctx context.Context, questionID string, a CodeAnswer, seq int64) {
	s.background(ctx, questionID, seq, func(ctx context.Context) error {
		return s.persist.SaveDraft(ctx, questionID, a.Code, a.Language, seq)
	})
}

func (s *Store) background(ctx context.Context, questionID string, seq int64, write func(context.Context) error) {
	if s.persist == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		err := write(ctx)
		if err == nil || s.onError == nil {
			return
		}
		// A newer write for the same question supersedes this one.
		s.mu.Lock()
		stale := s.lastSeq[questionID] != seq
		s.mu.Unlock()
		if !stale {
			s.onError(questionID, err)
		}
	}()
}

// Flush waits for every pending write.
func (s *Store) Flush() {
	s.wg.Wait()
}

// Lock rejects all further mutations. Called once the session is terminal.
func (s *Store) Lock() {
	s.mu.Lock()
	s.locked = true
	s.mu.Unlock()
}

func (s *Store) unlock() {
	s.mu.Lock()
	s.locked = false
	s.mu.Unlock()
}

func (s *Store) Locked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locked
}
