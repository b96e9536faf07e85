package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chzyer/readline"
	"github.com/google/shlex"
	"github.com/pushp314/hackarena-backend/internal/models"
	"github.com/pushp314/hackarena-backend/internal/services"
	"github.com/pushp314/hackarena-backend/internal/session"
)

type shell struct {
	client      *session.Client
	rl          *readline.Instance
	defaultLang string

	mu       sync.Mutex
	sess     *session.Session
	question string
	left     time.Duration
}

func newShell(client *session.Client, rl *readline.Instance, defaultLang string) *shell {
	return &shell{client: client, rl: rl, defaultLang: defaultLang}
}

func completer() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("list"),
		readline.PcItem("show"),
		readline.PcItem("open"),
		readline.PcItem("q"),
		readline.PcItem("lang", readline.PcItem("--discard")),
		readline.PcItem("load"),
		readline.PcItem("choose"),
		readline.PcItem("run"),
		readline.PcItem("submit"),
		readline.PcItem("time"),
		readline.PcItem("finish"),
		readline.PcItem("results"),
		readline.PcItem("board"),
		readline.PcItem("help"),
		readline.PcItem("quit"),
	)
}

func (sh *shell) printf(format string, args ...interface{}) {
	fmt.Fprintf(sh.rl.Stdout(), format, args...)
}

func (sh *shell) run(ctx context.Context) {
	for {
		line, err := sh.rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			sh.printf("read input failed: %v\n", err)
			break
		}

		args, err := shlex.Split(line)
		if err != nil {
			sh.printf("parse command failed: %v\n", err)
			continue
		}
		if len(args) == 0 {
			continue
		}
		if args[0] == "quit" || args[0] == "exit" {
			break
		}
		if err := sh.dispatch(ctx, args[0], args[1:]); err != nil {
			sh.printf("error: %v\n", err)
		}
	}

	if s := sh.current(); s != nil {
		s.Close()
	}
}

func (sh *shell) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "help":
		sh.help()
		return nil
	case "list":
		return sh.list(ctx)
	case "show":
		return sh.show(ctx, args)
	case "open":
		if len(args) != 1 {
			return errors.New("usage: open <contest>")
		}
		return sh.open(ctx, args[0])
	case "results":
		return sh.results(ctx, args)
	case "board":
		return sh.board(ctx, args)
	}

	s := sh.current()
	if s == nil {
		return fmt.Errorf("%s needs an open contest, use: open <contest>", cmd)
	}
	switch cmd {
	case "q":
		return sh.selectQuestion(s, args)
	case "lang":
		return sh.lang(ctx, s, args)
	case "load":
		return sh.load(ctx, s, args)
	case "choose":
		return sh.choose(ctx, s, args)
	case "run":
		return sh.runCode(ctx, s, args)
	case "submit":
		return sh.submit(ctx, s)
	case "time":
		sh.printf("%s left\n", formatRemaining(s.Remaining()))
		return nil
	case "finish":
		res, err := s.Finish(ctx)
		if err != nil {
			return err
		}
		sh.printf("submitted: %s, score %d\n", res.Status, res.Score)
		return nil
	}
	return fmt.Errorf("unknown command %q, try help", cmd)
}

func (sh *shell) help() {
	sh.printf(`commands:
  list                    contests you can see
  show [contest]          contest details and your status
  open <contest>          register if needed and start the countdown
  q <id|number>           select a question
  lang <name> [--discard] switch language; --discard loads the starter code
  load <file>             replace the selected answer with a file
  choose <option>...      answer the selected multiple choice question
  run [input]             run against input, or the first example
  submit                  grade the selected answer
  time                    time left
  finish                  submit the whole contest
  results [contest]       your graded answers, once submitted
  board [contest]         leaderboard
  quit
`)
}

func (sh *shell) current() *session.Session {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return sh.sess
}

func (sh *shell) contestArg(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if s := sh.current(); s != nil {
		return s.ContestID(), nil
	}
	return "", errors.New("name a contest or open one first")
}

func (sh *shell) list(ctx context.Context) error {
	contests, err := sh.client.ListContests(ctx)
	if err != nil {
		return err
	}
	for _, c := range contests {
		sh.printf("%-36s %-10s %s  (%s - %s)\n",
			c.ID, c.Status, c.Title,
			c.StartTime.Local().Format("Jan 2 15:04"), c.EndTime.Local().Format("Jan 2 15:04"))
	}
	return nil
}

func (sh *shell) show(ctx context.Context, args []string) error {
	id, err := sh.contestArg(args)
	if err != nil {
		return err
	}
	d, err := sh.client.Contest(ctx, id)
	if err != nil {
		return err
	}
	c := d.Contest
	sh.printf("%s [%s]\n%s\n", c.Title, c.Status, c.Description)
	sh.printf("%d questions, %d points, %d minutes\n", c.QuestionCount, c.TotalPoints, c.DurationMinutes)
	if d.ParticipantStatus != "" {
		sh.printf("you: %s\n", d.ParticipantStatus)
	}
	if s := sh.current(); s != nil && s.ContestID() == c.ID {
		for i, q := range s.Questions {
			sh.printf("  %d. %-12s %-6s %3d pts  %s\n", i+1, q.ID, q.Type, q.Points, q.Title)
		}
	}
	return nil
}

func (sh *shell) open(ctx context.Context, contestID string) error {
	if s := sh.current(); s != nil {
		s.Close()
	}

	s, err := session.Open(ctx, sh.client, contestID, session.Options{
		DefaultLanguage: sh.defaultLang,
		Register:        true,
		OnTick:          sh.tick,
		OnSaveError: func(questionID string, err error) {
			sh.printf("\nwarning: %s not saved: %v\n", questionID, err)
		},
		OnFinalized: func(res *services.FinalizeResult, auto bool) {
			if auto {
				sh.printf("\ntime is up: contest submitted, score %d\n", res.Score)
			}
		},
		OnExpireFailed: func(err error) {
			sh.printf("\nautomatic submit failed: %v\nrun finish to try again\n", err)
		},
	})
	if err != nil {
		return err
	}

	sh.mu.Lock()
	sh.sess = s
	sh.question = ""
	if len(s.Questions) > 0 {
		sh.question = s.Questions[0].ID
	}
	sh.mu.Unlock()

	s.Start(ctx)
	sh.printf("%s: %d questions, %s left\n", s.Contest.Title, len(s.Questions), formatRemaining(s.Remaining()))
	return nil
}

func (sh *shell) tick(remaining time.Duration) {
	sh.mu.Lock()
	sh.left = remaining
	sh.mu.Unlock()
	sh.refreshPrompt()
}

func (sh *shell) refreshPrompt() {
	sh.mu.Lock()
	s, question, left := sh.sess, sh.question, sh.left
	sh.mu.Unlock()
	if s == nil {
		sh.rl.SetPrompt("contest> ")
		sh.rl.Refresh()
		return
	}

	label := question
	if a, err := s.Answers.Code(question); err == nil {
		label += "/" + a.Language
	}
	state := formatRemaining(left)
	if s.Answers.Locked() {
		state = strings.ToLower(string(s.Status()))
	}
	sh.rl.SetPrompt(fmt.Sprintf("[%s %s %s]> ", s.Contest.Slug, state, label))
	sh.rl.Refresh()
}

// selected returns the question the next command applies to.
func (sh *shell) selected(s *session.Session) (services.QuestionView, error) {
	sh.mu.Lock()
	id := sh.question
	sh.mu.Unlock()
	q, ok := s.Question(id)
	if !ok {
		return q, errors.New("no question selected, use: q <id>")
	}
	return q, nil
}

func (sh *shell) selectQuestion(s *session.Session, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: q <id|number>")
	}
	id := args[0]
	if n, err := strconv.Atoi(id); err == nil && n >= 1 && n <= len(s.Questions) {
		id = s.Questions[n-1].ID
	}
	q, ok := s.Question(id)
	if !ok {
		return fmt.Errorf("no question %q", args[0])
	}

	sh.mu.Lock()
	sh.question = q.ID
	sh.mu.Unlock()
	sh.refreshPrompt()

	sh.printf("%s (%d pts)\n\n%s\n", q.Title, q.Points, q.Body)
	for _, o := range q.Options {
		sh.printf("  [%s] %s\n", o.ID, o.Text)
	}
	for i, ex := range q.Examples {
		sh.printf("\nexample %d\ninput:\n%s\noutput:\n%s\n", i+1, ex.Input, ex.Output)
	}
	return nil
}

func (sh *shell) lang(ctx context.Context, s *session.Session, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: lang <name> [--discard]")
	}
	q, err := sh.selected(s)
	if err != nil {
		return err
	}
	defer sh.refreshPrompt()

	if len(args) > 1 && args[1] == "--discard" {
		_, err := s.Answers.DiscardAndSwitch(ctx, q.ID, args[0])
		return err
	}
	res, err := s.Answers.SwitchLanguage(ctx, q.ID, args[0])
	if err != nil {
		return err
	}
	if res.Preserved {
		sh.printf("kept your code; use lang %s --discard for the starter code\n", args[0])
	}
	return nil
}

func (sh *shell) load(ctx context.Context, s *session.Session, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: load <file>")
	}
	q, err := sh.selected(s)
	if err != nil {
		return err
	}
	code, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	if err := s.Answers.SetCode(ctx, q.ID, string(code)); err != nil {
		return err
	}
	sh.printf("loaded %d bytes into %s\n", len(code), q.ID)
	return nil
}

func (sh *shell) choose(ctx context.Context, s *session.Session, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: choose <option>...")
	}
	q, err := sh.selected(s)
	if err != nil {
		return err
	}
	return s.Answers.Choose(ctx, q.ID, args)
}

func (sh *shell) runCode(ctx context.Context, s *session.Session, args []string) error {
	q, err := sh.selected(s)
	if err != nil {
		return err
	}
	var input *string
	if len(args) > 0 {
		joined := strings.Join(args, "\n")
		input = &joined
	}
	res, err := s.Run(ctx, q.ID, input)
	if err != nil {
		return err
	}
	sh.printf("%s\n%s", res.Status, res.Output)
	if res.Error != "" {
		sh.printf("\n%s\n", res.Error)
	}
	if res.Passed != nil {
		sh.printf("\nexpected:\n%s\npassed: %t\n", res.Expected, *res.Passed)
	}
	return nil
}

func (sh *shell) submit(ctx context.Context, s *session.Session) error {
	q, err := sh.selected(s)
	if err != nil {
		return err
	}
	if q.Type == models.QuestionTypeMCQ {
		return errors.New("multiple choice answers are saved by choose")
	}
	res, err := s.Submit(ctx, q.ID)
	if err != nil {
		return err
	}
	sh.printf("%s: %d/%d tests, score %d\n", res.Status, res.TestCasesPassed, res.TestCasesTotal, res.Score)
	if res.Error != "" {
		sh.printf("%s\n", res.Error)
	}
	if res.Superseded {
		sh.printf("a newer or better submission is already on record\n")
	}
	return nil
}

func (sh *shell) results(ctx context.Context, args []string) error {
	id, err := sh.contestArg(args)
	if err != nil {
		return err
	}
	res, err := sh.client.Results(ctx, id)
	if err != nil {
		return err
	}
	sh.printf("%s: %d / %d\n", res.Participant.Status, res.TotalScore, res.MaxScore)
	for _, sub := range res.Submissions {
		score := 0
		if sub.Score != nil {
			score = *sub.Score
		}
		sh.printf("  %-12s %-20s %d\n", sub.QuestionID, sub.Status, score)
	}
	return nil
}

func (sh *shell) board(ctx context.Context, args []string) error {
	id, err := sh.contestArg(args)
	if err != nil {
		return err
	}
	entries, err := sh.client.Leaderboard(ctx, id)
	if err != nil {
		return err
	}
	for _, e := range entries {
		rank := strconv.Itoa(e.Rank)
		if e.Rank == 0 {
			rank = "-"
		}
		mark := ""
		if e.Provisional {
			mark = "*"
		}
		sh.printf("%4s  %-20s %5d%s  %d solved\n", rank, e.Username, e.Score, mark, e.SolvedCount)
	}
	return nil
}

func formatRemaining(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d / time.Hour)
	m := int(d%time.Hour) / int(time.Minute)
	s := int(d%time.Minute) / int(time.Second)
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
