package services

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pushp314/hackarena-backend/internal/database"
	"github.com/pushp314/hackarena-backend/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

// setupTestDB gives each test its own in-memory database and a frozen clock.
func setupTestDB(t *testing.T) {
	t.Helper()
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(models.AllModels()...))

	prevDB, prevNow := database.DB, Now
	database.DB = db
	database.Redis = nil
	Now = func() time.Time { return testNow }

	t.Cleanup(func() {
		sqlDB.Close()
		database.DB = prevDB
		Now = prevNow
		SetSandbox(nil)
		lbMutex.Lock()
		leaderboardCache = make(map[string]cachedLeaderboard)
		lbMutex.Unlock()
	})
}

func setClock(t *testing.T, at time.Time) {
	t.Helper()
	Now = func() time.Time { return at }
}

// fakeSandbox "runs" programs of the form "sum" (prints the sum of the
// integers on stdin) or "print:<text>".
type fakeSandbox struct {
	mu    sync.Mutex
	calls []ExecRequest
	fn    func(req ExecRequest) (*ExecResult, error)
}

func newFakeSandbox() *fakeSandbox {
	return &fakeSandbox{fn: runFakeProgram}
}

func (f *fakeSandbox) Execute(_ context.Context, req ExecRequest) (*ExecResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	fn := f.fn
	f.mu.Unlock()
	return fn(req)
}

func (f *fakeSandbox) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func runFakeProgram(req ExecRequest) (*ExecResult, error) {
	switch {
	case strings.HasPrefix(req.Code, "sum"):
		total := 0
		for _, f := range strings.Fields(req.Stdin) {
			n, _ := strconv.Atoi(f)
			total += n
		}
		return &ExecResult{Stdout: strconv.Itoa(total) + "\n", Duration: 5 * time.Millisecond}, nil
	case strings.HasPrefix(req.Code, "small"):
		// Correct only when every number is below 5.
		total := 0
		for _, f := range strings.Fields(req.Stdin) {
			n, _ := strconv.Atoi(f)
			if n >= 5 {
				return &ExecResult{Stdout: "overflow\n"}, nil
			}
			total += n
		}
		return &ExecResult{Stdout: strconv.Itoa(total) + "\n"}, nil
	case strings.HasPrefix(req.Code, "print:"):
		return &ExecResult{Stdout: strings.TrimPrefix(req.Code, "print:")}, nil
	case strings.HasPrefix(req.Code, "syntax"):
		return &ExecResult{CompileError: "main.py: invalid syntax", ExitCode: 1}, nil
	case strings.HasPrefix(req.Code, "crash"):
		return &ExecResult{ExitCode: 1, Stderr: "Traceback: boom"}, nil
	}
	return &ExecResult{Stdout: ""}, nil
}

type fixture struct {
	Contest     models.Contest
	MCQ         models.Question
	Coding      models.Question
	User        models.User
	Participant models.Participant
}

type fixtureOpt func(*models.Contest)

// seedLiveContest creates a contest that started 10 minutes before testNow
// and ends 20 minutes after it, with one MCQ and one 3-case coding question,
// and a registered user.
func seedLiveContest(t *testing.T, opts ...fixtureOpt) *fixture {
	t.Helper()
	f := &fixture{}
	f.Contest = models.Contest{
		ID:              "contest-1",
		Title:           "Spring Sprint",
		Slug:            "spring-sprint",
		StartTime:       testNow.Add(-10 * time.Minute),
		EndTime:         testNow.Add(20 * time.Minute),
		DurationMinutes: 30,
		Status:          models.ContestStatusLive,
		ScorePolicy:     models.ScorePolicyLatest,
		ShowLeaderboard: true,
	}
	for _, opt := range opts {
		opt(&f.Contest)
	}
	require.NoError(t, database.DB.Create(&f.Contest).Error)

	f.MCQ = models.Question{
		ID:        "q-mcq",
		ContestID: f.Contest.ID,
		Type:      models.QuestionTypeMCQ,
		Title:     "Pick the prime",
		Points:    10,
		Order:     0,
		Options: []models.MCQOption{
			{ID: "a", Text: "4"},
			{ID: "b", Text: "7", IsCorrect: true},
			{ID: "c", Text: "9"},
		},
	}
	f.Coding = models.Question{
		ID:          "q-code",
		ContestID:   f.Contest.ID,
		Type:        models.QuestionTypeCoding,
		Title:       "Sum",
		Points:      100,
		Order:       1,
		TimeLimitMs: 1000,
		StarterCode: map[string]string{
			"python": "# read input\n",
			"go":     "package main\n",
		},
		TestCases: []models.TestCase{
			{ID: "tc-1", Input: "1 2", Output: "3", Order: 0},
			{ID: "tc-2", Input: "2 2", Output: "4", Order: 1},
			{ID: "tc-3", Input: "5 5", Output: "10", IsHidden: true, Order: 2},
		},
	}
	require.NoError(t, database.DB.Create(&f.MCQ).Error)
	require.NoError(t, database.DB.Create(&f.Coding).Error)

	f.User = models.User{ID: "user-1", Name: "Ada", Username: "ada", Role: models.RoleUser}
	require.NoError(t, database.DB.Create(&f.User).Error)
	f.Participant = addParticipant(t, f.Contest.ID, f.User.ID, models.ParticipantStatusRegistered)
	return f
}

func addParticipant(t *testing.T, contestID, userID string, status models.ParticipantStatus) models.Participant {
	t.Helper()
	p := models.Participant{
		ID:        "p-" + userID,
		ContestID: contestID,
		UserID:    userID,
		Status:    status,
	}
	if status == models.ParticipantStatusInProgress {
		started := testNow.Add(-5 * time.Minute)
		p.StartedAt = &started
	}
	require.NoError(t, database.DB.Create(&p).Error)
	return p
}

// startSession enters the contest so the participant is IN_PROGRESS.
func startSession(t *testing.T, f *fixture) {
	t.Helper()
	_, err := EnterContest(context.Background(), f.Contest.ID, f.User.ID)
	require.NoError(t, err)
}

func reloadParticipant(t *testing.T, id string) models.Participant {
	t.Helper()
	var p models.Participant
	require.NoError(t, database.DB.First(&p, "id = ?", id).Error)
	return p
}
