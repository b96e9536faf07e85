package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/pushp314/hackarena-backend/internal/models"
	"github.com/pushp314/hackarena-backend/pkg/utils"
)

const maxDiagnosticLen = 500

// NormalizeOutput makes program output comparable: outer whitespace, CRLF
// line endings and trailing spaces on each line are ignored.
func NormalizeOutput(s string) string {
	s = strings.TrimSpace(s)
	s = utils.NormalizeNewlines(s)
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n")
}

// ScoreFor is points * passed / total rounded down. Integer arithmetic keeps
// it identical on every platform.
func ScoreFor(points, passed, total int) int {
	if total <= 0 || passed <= 0 || points <= 0 {
		return 0
	}
	if passed > total {
		passed = total
	}
	return points * passed / total
}

// GradeMCQ compares the selected options with the correct set. Multi-answer
// questions need the exact set; order and duplicates do not matter.
func GradeMCQ(q *models.Question, selected []string) (bool, int) {
	correct := q.CorrectOptionIDs()
	if len(correct) == 0 {
		return false, 0
	}
	if !sameSet(correct, selected) {
		return false, 0
	}
	return true, q.Points
}

func sameSet(a, b []string) bool {
	ua := uniqueSorted(a)
	ub := uniqueSorted(b)
	if len(ua) != len(ub) {
		return false
	}
	for i := range ua {
		if ua[i] != ub[i] {
			return false
		}
	}
	return true
}

func uniqueSorted(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// CodeGrade is the graded outcome of running a program against every test case.
type CodeGrade struct {
	Status          models.SubmissionStatus `json:"status"`
	IsCorrect       bool                    `json:"isCorrect"`
	Score           int                     `json:"score"`
	TestCasesPassed int                     `json:"testCasesPassed"`
	TestCasesTotal  int                     `json:"testCasesTotal"`
	Results         []models.TestCaseResult `json:"results"`
	Error           string                  `json:"error,omitempty"`
}

// SandboxFailed reports whether any test case could not be executed at all.
func (g CodeGrade) SandboxFailed() bool {
	if g.Status == models.SubStatusSandbox {
		return true
	}
	for _, r := range g.Results {
		if r.Status == models.SubStatusSandbox {
			return true
		}
	}
	return false
}

// GradeCode runs code against all test cases of q, hidden ones included.
// Program failures are part of the grade; it never returns an error.
// A compile error or an unreachable sandbox fails the remaining cases
// without running them.
func GradeCode(ctx context.Context, sb Sandbox, q *models.Question, code, language string) CodeGrade {
	grade := CodeGrade{TestCasesTotal: len(q.TestCases)}
	if grade.TestCasesTotal == 0 {
		grade.Status = models.SubStatusSandbox
		grade.Error = "question has no test cases"
		return grade
	}

	var firstFailure models.SubmissionStatus
	abort := models.SubmissionStatus("")

	for _, tc := range q.TestCases {
		if abort != "" {
			grade.Results = append(grade.Results, models.TestCaseResult{
				TestCaseID: tc.ID,
				Hidden:     tc.IsHidden,
				Status:     abort,
			})
			continue
		}

		res, err := sb.Execute(ctx, ExecRequest{
			Language:      language,
			Code:          code,
			Stdin:         tc.Input,
			TimeLimitMs:   q.TimeLimitMs,
			MemoryLimitMB: q.MemoryLimitMB,
		})

		status, diag := classify(res, err, tc.Output)
		r := models.TestCaseResult{
			TestCaseID: tc.ID,
			Hidden:     tc.IsHidden,
			Passed:     status == models.SubStatusAC,
			Status:     status,
		}
		if res != nil {
			r.DurationMs = res.Duration.Milliseconds()
			if !tc.IsHidden {
				r.Stdout = utils.TruncateString(res.Stdout, maxDiagnosticLen)
				r.Stderr = utils.TruncateString(res.Stderr, maxDiagnosticLen)
			}
		}
		grade.Results = append(grade.Results, r)

		if r.Passed {
			grade.TestCasesPassed++
			continue
		}
		if firstFailure == "" {
			firstFailure = status
			grade.Error = diag
		}
		if status == models.SubStatusCE || status == models.SubStatusSandbox {
			abort = status
		}
	}

	grade.Score = ScoreFor(q.Points, grade.TestCasesPassed, grade.TestCasesTotal)
	grade.IsCorrect = grade.TestCasesPassed == grade.TestCasesTotal
	switch {
	case grade.IsCorrect:
		grade.Status = models.SubStatusAC
	case grade.TestCasesPassed > 0:
		grade.Status = models.SubStatusPartial
		if grade.Error == "" {
			grade.Error = fmt.Sprintf("%d/%d test cases passed", grade.TestCasesPassed, grade.TestCasesTotal)
		}
	default:
		grade.Status = firstFailure
	}
	return grade
}

// classify turns one execution into a per-test verdict and a diagnostic.
func classify(res *ExecResult, err error, expected string) (models.SubmissionStatus, string) {
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return models.SubStatusTLE, "Time Limit Exceeded"
		}
		return models.SubStatusSandbox, "Code execution is temporarily unavailable"
	}
	if res.CompileError != "" {
		return models.SubStatusCE, utils.TruncateString(res.CompileError, maxDiagnosticLen)
	}
	if isTimeLimitKill(res) {
		return models.SubStatusTLE, "Time Limit Exceeded"
	}
	if res.Signal != "" {
		return models.SubStatusRE, "Runtime Error (" + res.Signal + ")"
	}
	if res.ExitCode != 0 {
		msg := fmt.Sprintf("Runtime Error (Exit Code %d)", res.ExitCode)
		if res.Stderr != "" {
			msg += ": " + utils.TruncateString(res.Stderr, maxDiagnosticLen)
		}
		return models.SubStatusRE, msg
	}
	if NormalizeOutput(res.Stdout) != NormalizeOutput(expected) {
		return models.SubStatusWA, "Wrong Answer"
	}
	return models.SubStatusAC, ""
}

// RunInput is a dry run: no persistence, no score.
type RunInput struct {
	QuestionID  string  `json:"questionId"`
	Code        string  `json:"code"`
	Language    string  `json:"language"`
	SampleInput *string `json:"sampleInput,omitempty"`
}

type RunResult struct {
	Output   string                  `json:"output"`
	Error    string                  `json:"error,omitempty"`
	Status   models.SubmissionStatus `json:"status"`
	Expected string                  `json:"expected,omitempty"`
	Passed   *bool                   `json:"passed,omitempty"` // nil for custom input
}

// RunSample runs code against caller-provided input, or the first visible
// test case of q when there is none.
func RunSample(ctx context.Context, sb Sandbox, q *models.Question, code, language string, sampleInput *string) (*RunResult, error) {
	var stdin, expected string
	compare := false
	if sampleInput != nil {
		stdin = *sampleInput
	} else {
		tc := firstVisibleTestCase(q)
		if tc == nil {
			return nil, fmt.Errorf("question has no sample test case")
		}
		stdin, expected, compare = tc.Input, tc.Output, true
	}

	res, err := sb.Execute(ctx, ExecRequest{
		Language:      language,
		Code:          code,
		Stdin:         stdin,
		TimeLimitMs:   q.TimeLimitMs,
		MemoryLimitMB: q.MemoryLimitMB,
	})

	out := &RunResult{}
	if res != nil {
		out.Output = res.Stdout
	}
	if compare {
		status, diag := classify(res, err, expected)
		passed := status == models.SubStatusAC
		out.Status, out.Error, out.Passed, out.Expected = status, diag, &passed, expected
		return out, nil
	}

	status, diag := classify(res, err, "")
	// Without an expected output any clean exit counts as a successful run.
	if status == models.SubStatusWA {
		status, diag = models.SubStatusAC, ""
	}
	out.Status, out.Error = status, diag
	return out, nil
}

func firstVisibleTestCase(q *models.Question) *models.TestCase {
	for i := range q.TestCases {
		if !q.TestCases[i].IsHidden {
			return &q.TestCases[i]
		}
	}
	return nil
}
