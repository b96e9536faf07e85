package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPistonSandbox_SendsLimitsAndParsesRun(t *testing.T) {
	var got PistonExecuteRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"language":"c++","version":"10.2.0","run":{"stdout":"3\n","stderr":"","code":0,"signal":null}}`))
	}))
	defer srv.Close()

	sb := NewPistonSandbox(srv.URL, time.Second)
	res, err := sb.Execute(context.Background(), ExecRequest{
		Language:      "cpp",
		Code:          "int main(){}",
		Stdin:         "1 2",
		TimeLimitMs:   1500,
		MemoryLimitMB: 64,
	})
	require.NoError(t, err)

	assert.Equal(t, "c++", got.Language)
	assert.Equal(t, "main.cpp", got.Files[0].Name)
	assert.Equal(t, "1 2", got.Stdin)
	assert.Equal(t, 1500, got.RunTimeout)
	assert.Equal(t, 64*1024*1024, got.RunMemoryLimit)

	assert.Equal(t, "3\n", res.Stdout)
	assert.Equal(t, 0, res.ExitCode)
	assert.Empty(t, res.CompileError)
}

func TestPistonSandbox_CompileError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"compile":{"stdout":"","stderr":"main.go:1: syntax error","code":1},"run":{"stdout":"","stderr":"","code":null}}`))
	}))
	defer srv.Close()

	res, err := NewPistonSandbox(srv.URL, 0).Execute(context.Background(), ExecRequest{Language: "go", Code: "package"})
	require.NoError(t, err)
	assert.Equal(t, "main.go:1: syntax error", res.CompileError)
}

func TestPistonSandbox_ServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewPistonSandbox(srv.URL, 0).Execute(context.Background(), ExecRequest{Language: "python", Code: "print(1)"})
	assert.True(t, errors.Is(err, ErrSandboxUnavailable))
}

func TestPistonSandbox_HungCallIsAbandoned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	sb := NewPistonSandbox(srv.URL, 50*time.Millisecond)
	sb.CompileTimeoutMs = 0

	start := time.Now()
	_, err := sb.Execute(context.Background(), ExecRequest{Language: "python", Code: "while True: pass", TimeLimitMs: 50})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestPistonSandbox_CachesByLimits(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte(`{"run":{"stdout":"ok","code":0}}`))
	}))
	defer srv.Close()

	sb := NewPistonSandbox(srv.URL, 0)
	req := ExecRequest{Language: "python", Code: "print('ok')", TimeLimitMs: 1000}
	_, err := sb.Execute(context.Background(), req)
	require.NoError(t, err)
	_, err = sb.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	req.TimeLimitMs = 2000
	_, err = sb.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}
