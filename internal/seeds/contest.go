package seeds

import (
	"context"
	"log"
	"time"

	"github.com/pushp314/hackarena-backend/internal/models"
	"github.com/pushp314/hackarena-backend/internal/services"
)

// DemoContest creates a live, one-hour contest with two MCQs and two coding
// questions, and registers participant for it.
func DemoContest(ctx context.Context, organizer, participant models.User) (*models.Contest, error) {
	log.Println("Seeding demo contest...")
	now := services.Now()

	contest, err := services.CreateContest(ctx, services.CreateContestInput{
		Title:             "HackArena Warmup",
		Description:       "A short warmup round: two quick questions and two small programs.",
		StartTime:         now.Add(-time.Minute),
		EndTime:           now.Add(time.Hour),
		ProctoringEnabled: true,
		MaxTabSwitches:    3,
		ShowLeaderboard:   true,
	}, organizer.ID)
	if err != nil {
		return nil, err
	}

	questions := []services.QuestionInput{
		{
			Type:       models.QuestionTypeMCQ,
			Title:      "Big-O of binary search",
			Body:       "What is the worst-case time complexity of binary search on a sorted array?",
			Difficulty: "EASY",
			Points:     10,
			Options: []services.OptionInput{
				{ID: "a", Text: "O(n)"},
				{ID: "b", Text: "O(log n)", IsCorrect: true},
				{ID: "c", Text: "O(n log n)"},
				{ID: "d", Text: "O(1)"},
			},
		},
		{
			Type:       models.QuestionTypeMCQ,
			Title:      "Stable sorts",
			Body:       "Select every stable sorting algorithm.",
			Difficulty: "MEDIUM",
			Points:     20,
			Options: []services.OptionInput{
				{ID: "merge", Text: "Merge sort", IsCorrect: true},
				{ID: "quick", Text: "Quick sort"},
				{ID: "insertion", Text: "Insertion sort", IsCorrect: true},
				{ID: "heap", Text: "Heap sort"},
			},
		},
		{
			Type:        models.QuestionTypeCoding,
			Title:       "Sum of Two",
			Body:        "Read two integers from a single line and print their sum.",
			Difficulty:  "EASY",
			Points:      100,
			TimeLimitMs: 2000,
			StarterCode: map[string]string{
				"python": "a, b = map(int, input().split())\n",
				"go":     "package main\n\nimport \"fmt\"\n\nfunc main() {\n\tvar a, b int\n\tfmt.Scan(&a, &b)\n}\n",
			},
			TestCases: []services.TestCaseInput{
				{Input: "1 2", Output: "3"},
				{Input: "-5 5", Output: "0"},
				{Input: "1000000000 1000000000", Output: "2000000000", IsHidden: true},
			},
		},
		{
			Type:        models.QuestionTypeCoding,
			Title:       "Reverse Words",
			Body:        "Print the words of the input line in reverse order, separated by single spaces.",
			Difficulty:  "MEDIUM",
			Points:      150,
			TimeLimitMs: 2000,
			StarterCode: map[string]string{
				"python": "line = input()\n",
			},
			TestCases: []services.TestCaseInput{
				{Input: "hello world", Output: "world hello"},
				{Input: "a b c", Output: "c b a"},
				{Input: "single", Output: "single", IsHidden: true},
				{Input: "  padded   input  ", Output: "input padded", IsHidden: true},
			},
		},
	}
	for _, q := range questions {
		if _, err := services.AddQuestion(ctx, contest.ID, q); err != nil {
			return nil, err
		}
	}

	if contest, err = services.PublishContest(ctx, contest.ID, true); err != nil {
		return nil, err
	}
	if _, err := services.Register(ctx, contest.ID, participant.ID); err != nil {
		return nil, err
	}

	log.Printf("   Contest %q is %s until %s", contest.Slug, contest.Status, contest.EndTime.Format(time.Kitchen))
	return contest, nil
}
