package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/pushp314/hackarena-backend/pkg/logger"
)

type PistonExecuteRequest struct {
	Language       string   `json:"language"`
	Version        string   `json:"version"`
	Files          []File   `json:"files"`
	Stdin          string   `json:"stdin"`
	Args           []string `json:"args"`
	RunTimeout     int      `json:"run_timeout"`      // milliseconds
	CompileTimeout int      `json:"compile_timeout"`  // milliseconds
	RunMemoryLimit int      `json:"run_memory_limit"` // bytes
}

type File struct {
	Name    string `json:"name,omitempty"`
	Content string `json:"content"`
}

type PistonStage struct {
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
	Code   *int   `json:"code"`
	Signal string `json:"signal"`
}

type PistonExecuteResponse struct {
	Language string       `json:"language"`
	Version  string       `json:"version"`
	Compile  *PistonStage `json:"compile,omitempty"`
	Run      PistonStage  `json:"run"`
	Message  string       `json:"message,omitempty"` // set by Piston on request errors
}

const (
	defaultRunTimeoutMs  = 5000
	defaultMemoryLimitMB = 512
	compileTimeoutMs     = 10000
)

type cacheEntry struct {
	Result    ExecResult
	Timestamp time.Time
}

// PistonSandbox runs code through a Piston instance.
type PistonSandbox struct {
	URL              string
	Grace            time.Duration // added on top of the run timeout before the call is abandoned
	CompileTimeoutMs int
	Client           *http.Client

	mu       sync.RWMutex
	cache    map[string]cacheEntry
	cacheTTL time.Duration
}

func NewPistonSandbox(url string, grace time.Duration) *PistonSandbox {
	return &PistonSandbox{
		URL:              url,
		Grace:            grace,
		CompileTimeoutMs: compileTimeoutMs,
		Client:           &http.Client{},
		cache:            make(map[string]cacheEntry),
		cacheTTL:         time.Hour,
	}
}

// Limits are part of the key: the same program can pass under one limit and time out under another.
func getCacheKey(req ExecRequest) string {
	raw := req.Language + ":" + strconv.Itoa(req.TimeLimitMs) + ":" + strconv.Itoa(req.MemoryLimitMB) + ":" + req.Code + ":" + req.Stdin
	hash := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(hash[:])
}

// normalizePistonLanguage converts frontend language names to Piston-compatible names
func normalizePistonLanguage(lang string) string {
	langMap := map[string]string{
		"typescript": "typescript",
		"javascript": "javascript",
		"python":     "python",
		"go":         "go",
		"cpp":        "c++",
		"c++":        "c++",
		"java":       "java",
		"rust":       "rust",
		"c":          "c",
	}

	if pistonLang, ok := langMap[lang]; ok {
		return pistonLang
	}
	return lang
}

// getFileName returns the entry file name Piston expects for a language
func getFileName(lang string) string {
	names := map[string]string{
		"typescript": "index.ts",
		"javascript": "index.js",
		"python":     "main.py",
		"go":         "main.go",
		"c++":        "main.cpp",
		"cpp":        "main.cpp",
		"java":       "Main.java",
		"rust":       "main.rs",
		"c":          "main.c",
	}

	if name, ok := names[lang]; ok {
		return name
	}
	return "code.txt"
}

func (p *PistonSandbox) Execute(ctx context.Context, req ExecRequest) (*ExecResult, error) {
	key := getCacheKey(req)
	p.mu.RLock()
	if entry, ok := p.cache[key]; ok && time.Since(entry.Timestamp) < p.cacheTTL {
		p.mu.RUnlock()
		logger.Debug().Str("lang", req.Language).Msg("Cache hit for code execution")
		res := entry.Result
		return &res, nil
	}
	p.mu.RUnlock()

	runTimeout := req.TimeLimitMs
	if runTimeout <= 0 {
		runTimeout = defaultRunTimeoutMs
	}
	memoryMB := req.MemoryLimitMB
	if memoryMB <= 0 {
		memoryMB = defaultMemoryLimitMB
	}

	body := PistonExecuteRequest{
		Language: normalizePistonLanguage(req.Language),
		Version:  "*",
		Files: []File{
			{Name: getFileName(req.Language), Content: req.Code},
		},
		Stdin:          req.Stdin,
		RunTimeout:     runTimeout,
		CompileTimeout: p.CompileTimeoutMs,
		RunMemoryLimit: memoryMB * 1024 * 1024,
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	// Piston enforces the run timeout itself; the context bound covers a hung
	// sandbox so the request is dropped on our side too.
	deadline := time.Duration(runTimeout+p.CompileTimeoutMs)*time.Millisecond + p.Grace
	callCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, p.URL, bytes.NewReader(jsonData))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := p.Client.Do(httpReq)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, context.DeadlineExceeded
		}
		return nil, fmt.Errorf("%w: %v", ErrSandboxUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: piston api failed with status: %d", ErrSandboxUnavailable, resp.StatusCode)
	}

	var out PistonExecuteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrSandboxUnavailable, err)
	}

	result := ExecResult{
		Stdout:   out.Run.Stdout,
		Stderr:   out.Run.Stderr,
		Signal:   out.Run.Signal,
		Duration: time.Since(start),
	}
	if out.Run.Code != nil {
		result.ExitCode = *out.Run.Code
	}
	if out.Compile != nil && out.Compile.Code != nil && *out.Compile.Code != 0 {
		result.CompileError = out.Compile.Stderr
		if result.CompileError == "" {
			result.CompileError = out.Compile.Stdout
		}
	}

	logger.Info().
		Str("lang", req.Language).
		Dur("latency", result.Duration).
		Msg("Executed code via Piston")

	// Time-limit kills depend on machine load, so they are not cached.
	if !isTimeLimitKill(&result) {
		p.mu.Lock()
		p.cache[key] = cacheEntry{Result: result, Timestamp: time.Now()}
		p.pruneLocked()
		p.mu.Unlock()
	}

	return &result, nil
}

func (p *PistonSandbox) pruneLocked() {
	for k, entry := range p.cache {
		if time.Since(entry.Timestamp) > p.cacheTTL {
			delete(p.cache, k)
		}
	}
}

func isTimeLimitKill(r *ExecResult) bool {
	return r.Signal == "SIGKILL" || r.Signal == "SIGTERM" || r.ExitCode == 137
}
