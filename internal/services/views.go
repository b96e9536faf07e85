package services

import (
	"time"

	"github.com/pushp314/hackarena-backend/internal/models"
)

// ContestView is the participant-facing contest summary with the computed status.
type ContestView struct {
	ID                string               `json:"id"`
	Title             string               `json:"title"`
	Slug              string               `json:"slug"`
	Description       string               `json:"description"`
	StartTime         time.Time            `json:"startTime"`
	EndTime           time.Time            `json:"endTime"`
	DurationMinutes   int                  `json:"durationMinutes"`
	Status            models.ContestStatus `json:"status"`
	ProctoringEnabled bool                 `json:"proctoringEnabled"`
	MaxTabSwitches    int                  `json:"maxTabSwitches"`
	RequireFullscreen bool                 `json:"requireFullscreen"`
	BlockCopyPaste    bool                 `json:"blockCopyPaste"`
	ShowLeaderboard   bool                 `json:"showLeaderboard"`
	QuestionCount     int                  `json:"questionCount"`
	TotalPoints       int                  `json:"totalPoints"`
}

func NewContestView(c *models.Contest) ContestView {
	v := ContestView{
		ID:                c.ID,
		Title:             c.Title,
		Slug:              c.Slug,
		Description:       c.Description,
		StartTime:         c.StartTime,
		EndTime:           c.EndTime,
		DurationMinutes:   c.DurationMinutes,
		Status:            c.Status,
		ProctoringEnabled: c.ProctoringEnabled,
		MaxTabSwitches:    c.MaxTabSwitches,
		RequireFullscreen: c.RequireFullscreen,
		BlockCopyPaste:    c.BlockCopyPaste,
		ShowLeaderboard:   c.ShowLeaderboard,
		QuestionCount:     len(c.Questions),
	}
	for _, q := range c.Questions {
		v.TotalPoints += q.Points
	}
	return v
}

type OptionView struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type ExampleView struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

// QuestionView strips everything a participant must not see: option
// correctness and hidden test cases.
type QuestionView struct {
	ID            string              `json:"id"`
	Type          models.QuestionType `json:"type"`
	Title         string              `json:"title"`
	Body          string              `json:"body"`
	Difficulty    string              `json:"difficulty"`
	Points        int                 `json:"points"`
	Order         int                 `json:"order"`
	TimeLimitMs   int                 `json:"timeLimitMs,omitempty"`
	MemoryLimitMB int                 `json:"memoryLimitMb,omitempty"`
	StarterCode   map[string]string   `json:"starterCode,omitempty"`
	Options       []OptionView        `json:"options,omitempty"`
	Examples      []ExampleView       `json:"examples,omitempty"`
}

func NewQuestionView(q *models.Question) QuestionView {
	v := QuestionView{
		ID:            q.ID,
		Type:          q.Type,
		Title:         q.Title,
		Body:          q.Body,
		Difficulty:    q.Difficulty,
		Points:        q.Points,
		Order:         q.Order,
		TimeLimitMs:   q.TimeLimitMs,
		MemoryLimitMB: q.MemoryLimitMB,
		StarterCode:   q.StarterCode,
	}
	for _, o := range q.Options {
		v.Options = append(v.Options, OptionView{ID: o.ID, Text: o.Text})
	}
	for _, tc := range q.TestCases {
		if tc.IsHidden {
			continue
		}
		v.Examples = append(v.Examples, ExampleView{Input: tc.Input, Output: tc.Output})
	}
	return v
}

// SubmissionView is a stored submission as its owner sees it. MCQ score and
// correctness are nil until reveal.
type SubmissionView struct {
	QuestionID        string                  `json:"questionId"`
	Type              models.QuestionType     `json:"type"`
	Code              string                  `json:"code,omitempty"`
	Language          string                  `json:"language,omitempty"`
	SelectedOptionIDs []string                `json:"selectedOptionIds,omitempty"`
	Status            models.SubmissionStatus `json:"status"`
	Score             *int                    `json:"score,omitempty"`
	IsCorrect         *bool                   `json:"isCorrect,omitempty"`
	TestCasesPassed   int                     `json:"testCasesPassed,omitempty"`
	TestCasesTotal    int                     `json:"testCasesTotal,omitempty"`
	Results           []models.TestCaseResult `json:"results,omitempty"`
	Error             string                  `json:"error,omitempty"`
	UpdatedAt         time.Time               `json:"updatedAt"`
}

func NewSubmissionView(s models.Submission, reveal bool) SubmissionView {
	v := SubmissionView{
		QuestionID:        s.QuestionID,
		Type:              s.Type,
		Code:              s.Code,
		Language:          s.Language,
		SelectedOptionIDs: s.SelectedOptionIDs,
		Status:            s.Status,
		TestCasesPassed:   s.TestCasesPassed,
		TestCasesTotal:    s.TestCasesTotal,
		Results:           s.Results,
		Error:             s.Error,
		UpdatedAt:         s.UpdatedAt,
	}
	if s.Type == models.QuestionTypeMCQ && !reveal {
		v.Status = models.SubStatusAnswered
		return v
	}
	score, correct := s.Score, s.IsCorrect
	v.Score, v.IsCorrect = &score, &correct
	if s.Type == models.QuestionTypeMCQ {
		if correct {
			v.Status = models.SubStatusAC
		} else {
			v.Status = models.SubStatusWA
		}
	}
	return v
}
