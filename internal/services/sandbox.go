package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/pushp314/hackarena-backend/internal/config"
)

// ExecRequest is a single program run against one stdin.
type ExecRequest struct {
	Language      string
	Code          string
	Stdin         string
	TimeLimitMs   int
	MemoryLimitMB int
}

type ExecResult struct {
	Stdout       string
	Stderr       string
	ExitCode     int
	Signal       string
	CompileError string // non-empty when the compile stage failed
	Duration     time.Duration
}

// Sandbox executes untrusted code under resource limits.
type Sandbox interface {
	Execute(ctx context.Context, req ExecRequest) (*ExecResult, error)
}

// ErrSandboxUnavailable marks failures of the sandbox itself, as opposed to
// failures of the submitted program.
var ErrSandboxUnavailable = errors.New("code execution service unavailable")

var (
	executor   Sandbox
	executorMu sync.RWMutex
)

// SetSandbox replaces the sandbox used by the grader. Tests use it to install fakes.
func SetSandbox(s Sandbox) {
	executorMu.Lock()
	defer executorMu.Unlock()
	executor = s
}

// CurrentSandbox returns the configured sandbox, defaulting to Piston.
func CurrentSandbox() Sandbox {
	executorMu.RLock()
	s := executor
	executorMu.RUnlock()
	if s != nil {
		return s
	}

	executorMu.Lock()
	defer executorMu.Unlock()
	if executor == nil {
		executor = NewPistonSandbox(config.AppConfig.PistonURL, config.AppConfig.SandboxGrace())
	}
	return executor
}
