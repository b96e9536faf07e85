package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pushp314/hackarena-backend/internal/models"
	"github.com/pushp314/hackarena-backend/internal/services"
	apperrors "github.com/pushp314/hackarena-backend/pkg/errors"
)

// Client talks to the contest API on behalf of one participant.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) SetToken(token string) {
	c.token = token
}

// do sends a JSON request and decodes the response into out. Error bodies
// come back as *apperrors.AppError so callers can match them with errors.Is.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/api"+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp.StatusCode, data)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(status int, data []byte) error {
	var body struct {
		Error     string           `json:"error"`
		Reason    apperrors.Reason `json:"reason"`
		Retryable bool             `json:"retryable"`
	}
	_ = json.Unmarshal(data, &body)

	appErr := apperrors.NewAppError(status, body.Reason, body.Error)
	if appErr.Message == "" {
		appErr.Message = http.StatusText(status)
	}
	appErr.Retryable = body.Retryable || status >= http.StatusInternalServerError
	return appErr
}

// Retryable reports whether a failed call may succeed if repeated: transport
// failures and errors the server flags as retryable.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if appErr, ok := apperrors.As(err); ok {
		return appErr.Retryable
	}
	return true
}

func contestPath(contestID string, parts ...string) string {
	p := "/contests/" + url.PathEscape(contestID)
	for _, part := range parts {
		p += "/" + part
	}
	return p
}

func questionPath(contestID, questionID, action string) string {
	return contestPath(contestID, "questions", url.PathEscape(questionID), action)
}

func (c *Client) ListContests(ctx context.Context) ([]services.ContestView, error) {
	var out struct {
		Contests []services.ContestView `json:"contests"`
	}
	if err := c.do(ctx, http.MethodGet, "/contests", nil, &out); err != nil {
		return nil, err
	}
	return out.Contests, nil
}

type ContestDetail struct {
	Contest           services.ContestView     `json:"contest"`
	ParticipantStatus models.ParticipantStatus `json:"participantStatus"`
}

func (c *Client) Contest(ctx context.Context, contestID string) (*ContestDetail, error) {
	var out ContestDetail
	if err := c.do(ctx, http.MethodGet, contestPath(contestID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Register(ctx context.Context, contestID string) (*models.Participant, error) {
	var out struct {
		Participant *models.Participant `json:"participant"`
	}
	if err := c.do(ctx, http.MethodPost, contestPath(contestID, "register"), nil, &out); err != nil {
		return nil, err
	}
	return out.Participant, nil
}

func (c *Client) Enter(ctx context.Context, contestID string) (*services.EnterResult, error) {
	var out services.EnterResult
	if err := c.do(ctx, http.MethodPost, contestPath(contestID, "enter"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RecordViolation(ctx context.Context, contestID string, kind models.ViolationKind, details string) (*services.ViolationResult, error) {
	body := map[string]interface{}{"kind": kind, "details": details}
	var out services.ViolationResult
	if err := c.do(ctx, http.MethodPost, contestPath(contestID, "violations"), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SubmitAnswer(ctx context.Context, contestID, questionID string, optionIDs []string, seq int64) (*services.MCQAck, error) {
	body := map[string]interface{}{"optionIds": optionIDs, "seq": seq}
	var out services.MCQAck
	if err := c.do(ctx, http.MethodPost, questionPath(contestID, questionID, "answer"), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SaveDraft(ctx context.Context, contestID, questionID, code, language string, seq int64) (*services.DraftAck, error) {
	body := map[string]interface{}{"code": code, "language": language, "seq": seq}
	var out services.DraftAck
	if err := c.do(ctx, http.MethodPut, questionPath(contestID, questionID, "draft"), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SubmitCode(ctx context.Context, contestID, questionID, code, language string, seq int64) (*services.SubmitCodeResult, error) {
	body := map[string]interface{}{"code": code, "language": language, "seq": seq}
	var out services.SubmitCodeResult
	if err := c.do(ctx, http.MethodPost, questionPath(contestID, questionID, "submit"), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Run executes code against sampleInput, or the first visible example when nil.
func (c *Client) Run(ctx context.Context, contestID, questionID, code, language string, sampleInput *string) (*services.RunResult, error) {
	body := map[string]interface{}{"code": code, "language": language}
	if sampleInput != nil {
		body["sampleInput"] = *sampleInput
	}
	var out services.RunResult
	if err := c.do(ctx, http.MethodPost, questionPath(contestID, questionID, "run"), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Finalize ends the participant's session. auto marks a countdown expiry.
func (c *Client) Finalize(ctx context.Context, contestID string, auto bool) (*services.FinalizeResult, error) {
	body := map[string]interface{}{"auto": auto}
	var out services.FinalizeResult
	if err := c.do(ctx, http.MethodPost, contestPath(contestID, "finalize"), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Results(ctx context.Context, contestID string) (*services.ResultsView, error) {
	var out services.ResultsView
	if err := c.do(ctx, http.MethodGet, contestPath(contestID, "results"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Leaderboard(ctx context.Context, contestID string) ([]services.LeaderboardEntry, error) {
	var out struct {
		Leaderboard []services.LeaderboardEntry `json:"leaderboard"`
	}
	if err := c.do(ctx, http.MethodGet, contestPath(contestID, "leaderboard"), nil, &out); err != nil {
		return nil, err
	}
	return out.Leaderboard, nil
}
