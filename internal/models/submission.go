package models

import (
	"time"
)

type SubmissionStatus string

const (
	SubStatusAC       SubmissionStatus = "ACCEPTED"
	SubStatusPartial  SubmissionStatus = "PARTIAL"
	SubStatusWA       SubmissionStatus = "WRONG_ANSWER"
	SubStatusTLE      SubmissionStatus = "TIME_LIMIT_EXCEEDED"
	SubStatusRE       SubmissionStatus = "RUNTIME_ERROR"
	SubStatusCE       SubmissionStatus = "COMPILATION_ERROR"
	SubStatusSandbox  SubmissionStatus = "SANDBOX_ERROR"
	SubStatusAnswered SubmissionStatus = "ANSWERED" // MCQ, result withheld
)

// TestCaseResult is the outcome of one test case for a coding submission.
type TestCaseResult struct {
	TestCaseID string           `json:"testCaseId"`
	Hidden     bool             `json:"hidden"`
	Passed     bool             `json:"passed"`
	Status     SubmissionStatus `json:"status"`
	Stdout     string           `json:"stdout,omitempty"` // omitted for hidden cases
	Stderr     string           `json:"stderr,omitempty"`
	DurationMs int64            `json:"durationMs"`
}

// Submission is the single live answer of a participant to a question.
// Resubmitting overwrites the row; Generation orders concurrent writes.
type Submission struct {
	ID            string       `gorm:"primaryKey;type:text" json:"id"`
	ParticipantID string       `gorm:"type:text;uniqueIndex:idx_participant_question" json:"participantId"`
	QuestionID    string       `gorm:"type:text;uniqueIndex:idx_participant_question" json:"questionId"`
	ContestID     string       `gorm:"type:text;index" json:"contestId"`
	Type          QuestionType `gorm:"type:text" json:"type"`

	// Coding
	Code            string           `gorm:"type:text" json:"code,omitempty"`
	Language        string           `json:"language,omitempty"`
	TestCasesPassed int              `json:"testCasesPassed"`
	TestCasesTotal  int              `json:"testCasesTotal"`
	Results         []TestCaseResult `gorm:"type:text;serializer:json" json:"results,omitempty"`
	Error           string           `gorm:"type:text" json:"error,omitempty"`

	// MCQ
	SelectedOptionIDs []string `gorm:"type:text;serializer:json" json:"selectedOptionIds,omitempty"`

	Status    SubmissionStatus `gorm:"type:text" json:"status"`
	Score     int              `json:"score"`
	IsCorrect bool             `json:"isCorrect"`

	Generation int64 `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AnswerDraft is un-graded editor state for a coding question.
type AnswerDraft struct {
	ID            string    `gorm:"primaryKey;type:text" json:"id"`
	ParticipantID string    `gorm:"type:text;uniqueIndex:idx_draft_participant_question" json:"participantId"`
	QuestionID    string    `gorm:"type:text;uniqueIndex:idx_draft_participant_question" json:"questionId"`
	Code          string    `gorm:"type:text" json:"code"`
	Language      string    `json:"language"`
	Generation    int64     `json:"-"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
