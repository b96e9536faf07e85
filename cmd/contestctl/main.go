package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/chzyer/readline"
	"github.com/pushp314/hackarena-backend/internal/session"
	"github.com/pushp314/hackarena-backend/pkg/logger"
)

func main() {
	baseURL := flag.String("base", "http://localhost:8080", "API base URL")
	token := flag.String("token", os.Getenv("CONTEST_TOKEN"), "Participant access token")
	contestID := flag.String("contest", "", "Contest to open on start")
	lang := flag.String("lang", "python", "Default language for new answers")
	timeout := flag.Duration("timeout", 30*time.Second, "HTTP timeout")
	debug := flag.Bool("debug", false, "Log session events")
	flag.Parse()

	if *debug {
		logger.Init("development")
	}

	home, _ := os.UserHomeDir()
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "contest> ",
		HistoryFile:     filepath.Join(home, ".contestctl_history"),
		AutoComplete:    completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init terminal failed: %v\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	sh := newShell(session.NewClient(*baseURL, *token, *timeout), rl, *lang)
	if *contestID != "" {
		if err := sh.open(ctx, *contestID); err != nil {
			sh.printf("open %s failed: %v\n", *contestID, err)
		}
	}
	sh.run(ctx)
}
