package services

import (
	"context"
	"testing"

	"github.com/pushp314/hackarena-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreFor_FloorsPartialCredit(t *testing.T) {
	tests := []struct {
		points, passed, total, want int
	}{
		{100, 2, 3, 66},
		{100, 3, 3, 100},
		{10, 1, 3, 3},
		{7, 5, 6, 5},
		{100, 0, 3, 0},
		{100, 0, 0, 0},
		{0, 3, 3, 0},
		{50, 4, 3, 50}, // passed is clamped to total
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ScoreFor(tt.points, tt.passed, tt.total), "%d*%d/%d", tt.points, tt.passed, tt.total)
	}
}

func TestNormalizeOutput(t *testing.T) {
	assert.Equal(t, "1\n2", NormalizeOutput("  1  \r\n2\t\n\n"))
	assert.Equal(t, NormalizeOutput("hello world\n"), NormalizeOutput("hello world"))
	assert.NotEqual(t, NormalizeOutput("a b"), NormalizeOutput("a  b"))
}

func TestGradeMCQ(t *testing.T) {
	single := &models.Question{Points: 10, Options: []models.MCQOption{
		{ID: "a"}, {ID: "b", IsCorrect: true}, {ID: "c"},
	}}
	ok, score := GradeMCQ(single, []string{"b"})
	assert.True(t, ok)
	assert.Equal(t, 10, score)

	ok, score = GradeMCQ(single, []string{"a"})
	assert.False(t, ok)
	assert.Equal(t, 0, score)

	ok, _ = GradeMCQ(single, []string{"a", "b"})
	assert.False(t, ok, "extra selections are wrong")

	multi := &models.Question{Points: 4, Options: []models.MCQOption{
		{ID: "a", IsCorrect: true}, {ID: "b"}, {ID: "c", IsCorrect: true},
	}}
	ok, score = GradeMCQ(multi, []string{"c", "a", "a"})
	assert.True(t, ok, "order and duplicates do not matter")
	assert.Equal(t, 4, score)

	ok, _ = GradeMCQ(multi, []string{"a"})
	assert.False(t, ok)
}

func codingQuestion() *models.Question {
	return &models.Question{
		Points:      100,
		TimeLimitMs: 1000,
		TestCases: []models.TestCase{
			{ID: "tc-1", Input: "1 2", Output: "3"},
			{ID: "tc-2", Input: "2 2", Output: "4"},
			{ID: "tc-3", Input: "5 5", Output: "10", IsHidden: true},
		},
	}
}

func TestGradeCode_AllPassed(t *testing.T) {
	sb := newFakeSandbox()
	grade := GradeCode(context.Background(), sb, codingQuestion(), "sum", "python")

	assert.Equal(t, models.SubStatusAC, grade.Status)
	assert.True(t, grade.IsCorrect)
	assert.Equal(t, 100, grade.Score)
	assert.Equal(t, 3, grade.TestCasesPassed)
	assert.Equal(t, 3, sb.callCount())
	for _, req := range sb.calls {
		assert.Equal(t, 1000, req.TimeLimitMs)
	}
}

func TestGradeCode_PartialCreditRunsEveryCase(t *testing.T) {
	sb := newFakeSandbox()
	grade := GradeCode(context.Background(), sb, codingQuestion(), "small", "python")

	assert.Equal(t, models.SubStatusPartial, grade.Status)
	assert.False(t, grade.IsCorrect)
	assert.Equal(t, 2, grade.TestCasesPassed)
	assert.Equal(t, 3, grade.TestCasesTotal)
	assert.Equal(t, 66, grade.Score)
	assert.Equal(t, 3, sb.callCount(), "a failing case does not stop grading")

	require.Len(t, grade.Results, 3)
	hidden := grade.Results[2]
	assert.True(t, hidden.Hidden)
	assert.Equal(t, models.SubStatusWA, hidden.Status)
	assert.Empty(t, hidden.Stdout, "hidden output is never echoed")
	assert.Equal(t, "3", NormalizeOutput(grade.Results[0].Stdout))
}

func TestGradeCode_CompileErrorSkipsRemaining(t *testing.T) {
	sb := newFakeSandbox()
	grade := GradeCode(context.Background(), sb, codingQuestion(), "syntax error", "python")

	assert.Equal(t, models.SubStatusCE, grade.Status)
	assert.Equal(t, 0, grade.Score)
	assert.Contains(t, grade.Error, "invalid syntax")
	assert.Equal(t, 1, sb.callCount())
	require.Len(t, grade.Results, 3)
	for _, r := range grade.Results {
		assert.Equal(t, models.SubStatusCE, r.Status)
	}
}

func TestGradeCode_RuntimeErrorCapturesStderr(t *testing.T) {
	grade := GradeCode(context.Background(), newFakeSandbox(), codingQuestion(), "crash", "python")

	assert.Equal(t, models.SubStatusRE, grade.Status)
	assert.Contains(t, grade.Error, "Exit Code 1")
	assert.Contains(t, grade.Error, "boom")
	assert.False(t, grade.SandboxFailed())
}

func TestGradeCode_TimeoutIsTLE(t *testing.T) {
	sb := &fakeSandbox{fn: func(ExecRequest) (*ExecResult, error) {
		return nil, context.DeadlineExceeded
	}}
	grade := GradeCode(context.Background(), sb, codingQuestion(), "loop", "python")

	assert.Equal(t, models.SubStatusTLE, grade.Status)
	assert.Equal(t, 3, sb.callCount())

	killed := &fakeSandbox{fn: func(ExecRequest) (*ExecResult, error) {
		return &ExecResult{Signal: "SIGKILL"}, nil
	}}
	grade = GradeCode(context.Background(), killed, codingQuestion(), "loop", "python")
	assert.Equal(t, models.SubStatusTLE, grade.Status)
}

func TestGradeCode_SandboxUnavailable(t *testing.T) {
	sb := &fakeSandbox{fn: func(ExecRequest) (*ExecResult, error) {
		return nil, ErrSandboxUnavailable
	}}
	grade := GradeCode(context.Background(), sb, codingQuestion(), "sum", "python")

	assert.Equal(t, models.SubStatusSandbox, grade.Status)
	assert.True(t, grade.SandboxFailed())
	assert.Equal(t, 1, sb.callCount())
}

func TestRunSample_FirstVisibleCase(t *testing.T) {
	q := codingQuestion()
	q.TestCases[0].IsHidden = true

	sb := newFakeSandbox()
	res, err := RunSample(context.Background(), sb, q, "sum", "python", nil)
	require.NoError(t, err)
	require.NotNil(t, res.Passed)
	assert.True(t, *res.Passed)
	assert.Equal(t, "4", res.Expected)
	require.Len(t, sb.calls, 1)
	assert.Equal(t, "2 2", sb.calls[0].Stdin)
}

func TestRunSample_CustomInput(t *testing.T) {
	input := "40 2"
	res, err := RunSample(context.Background(), newFakeSandbox(), codingQuestion(), "sum", "python", &input)
	require.NoError(t, err)
	assert.Nil(t, res.Passed)
	assert.Equal(t, "42\n", res.Output)
	assert.Equal(t, models.SubStatusAC, res.Status)
}

func TestRunSample_NoVisibleCase(t *testing.T) {
	q := codingQuestion()
	for i := range q.TestCases {
		q.TestCases[i].IsHidden = true
	}
	_, err := RunSample(context.Background(), newFakeSandbox(), q, "sum", "python", nil)
	assert.Error(t, err)
}
