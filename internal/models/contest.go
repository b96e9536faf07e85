package models

import (
	"time"
)

type ContestStatus string

const (
	ContestStatusDraft     ContestStatus = "DRAFT"
	ContestStatusPublished ContestStatus = "PUBLISHED"
	ContestStatusLive      ContestStatus = "LIVE"
	ContestStatusCompleted ContestStatus = "COMPLETED"
)

// ScorePolicy decides what happens to the stored score when a participant resubmits.
type ScorePolicy string

const (
	ScorePolicyLatest ScorePolicy = "LATEST" // last submission wins
	ScorePolicyBest   ScorePolicy = "BEST"   // highest score is kept
)

type Contest struct {
	ID          string `gorm:"primaryKey;type:text" json:"id"`
	Title       string `json:"title"`
	Description string `gorm:"type:text" json:"description"`
	Slug        string `gorm:"uniqueIndex" json:"slug"`

	StartTime       time.Time `json:"startTime"`
	EndTime         time.Time `json:"endTime"`
	DurationMinutes int       `json:"durationMinutes"`

	Status ContestStatus `gorm:"type:text;index" json:"status"`

	// Proctoring
	ProctoringEnabled bool `json:"proctoringEnabled"`
	MaxTabSwitches    int  `json:"maxTabSwitches"`
	RequireFullscreen bool `json:"requireFullscreen"`
	BlockCopyPaste    bool `json:"blockCopyPaste"`

	ShuffleQuestions bool        `json:"shuffleQuestions"`
	ShowLeaderboard  bool        `json:"showLeaderboard"`
	ScorePolicy      ScorePolicy `gorm:"type:text" json:"scorePolicy"`

	CreatedBy string     `json:"createdBy"`
	Questions []Question `gorm:"foreignKey:ContestID" json:"questions,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// StatusAt computes the contest status from wall-clock time. The stored
// Status is only a hint: a draft never goes live on its own, an organizer may
// open a contest early by storing LIVE, and the end time always closes it.
func (c *Contest) StatusAt(now time.Time) ContestStatus {
	if c.Status == ContestStatusDraft {
		return ContestStatusDraft
	}
	if !now.Before(c.EndTime) {
		return ContestStatusCompleted
	}
	if !now.Before(c.StartTime) || c.Status == ContestStatusLive {
		return ContestStatusLive
	}
	return ContestStatusPublished
}

// Deadline is the single authoritative end of every participant's session.
func (c *Contest) Deadline() time.Time {
	return c.EndTime
}

func (c *Contest) EffectiveScorePolicy() ScorePolicy {
	if c.ScorePolicy == ScorePolicyBest {
		return ScorePolicyBest
	}
	return ScorePolicyLatest
}

type QuestionType string

const (
	QuestionTypeMCQ    QuestionType = "MCQ"
	QuestionTypeCoding QuestionType = "CODING"
)

type MCQOption struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

type Question struct {
	ID         string       `gorm:"primaryKey;type:text" json:"id"`
	ContestID  string       `gorm:"type:text;index" json:"contestId"`
	Type       QuestionType `gorm:"type:text" json:"type"`
	Title      string       `json:"title"`
	Body       string       `gorm:"type:text" json:"body"` // Markdown
	Difficulty string       `json:"difficulty"`          // EASY, MEDIUM, HARD
	Points     int          `json:"points"`
	Order      int          `gorm:"column:sort_order" json:"order"`

	// Coding only
	TimeLimitMs   int               `json:"timeLimitMs"`
	MemoryLimitMB int               `json:"memoryLimitMb"`
	StarterCode   map[string]string `gorm:"type:text;serializer:json" json:"starterCode,omitempty"` // language -> code
	TestCases     []TestCase        `gorm:"foreignKey:QuestionID" json:"testCases,omitempty"`

	// MCQ only
	Options []MCQOption `gorm:"type:text;serializer:json" json:"options,omitempty"`
}

// CorrectOptionIDs returns the ids of options flagged correct.
func (q *Question) CorrectOptionIDs() []string {
	var ids []string
	for _, o := range q.Options {
		if o.IsCorrect {
			ids = append(ids, o.ID)
		}
	}
	return ids
}

// HasOption reports whether id names one of the question's options.
func (q *Question) HasOption(id string) bool {
	for _, o := range q.Options {
		if o.ID == id {
			return true
		}
	}
	return false
}

// AllowsLanguage is true when the question either has no starter code
// restrictions or ships starter code for lang.
func (q *Question) AllowsLanguage(lang string) bool {
	if len(q.StarterCode) == 0 {
		return true
	}
	_, ok := q.StarterCode[lang]
	return ok
}

type TestCase struct {
	ID         string `gorm:"primaryKey;type:text" json:"id"`
	QuestionID string `gorm:"type:text;index" json:"questionId"`
	Input      string `gorm:"type:text" json:"input"`
	Output     string `gorm:"type:text" json:"output"`
	IsHidden   bool   `json:"isHidden"` // Public vs Private test cases
	Order      int    `gorm:"column:sort_order" json:"order"`
}
