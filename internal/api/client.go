// Package api is the JSON-over-HTTP client for the remote tâches service.
//
// The wire format uses the service's French field names (titre, termine);
// everything above this package speaks the domain names (Title, Done). The
// mapping is a pure rename done in this file and nowhere else.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tache-cli/internal/model"
)

const (
	// DefaultBaseURL matches the development server the original client
	// talked to. Override with WithBaseURL / --api / TACHE_API.
	DefaultBaseURL = "http://127.0.0.1:8000/api"

	defaultTimeout = 15 * time.Second
)

// Celery task states as reported by the status endpoint. Anything else is
// passed through verbatim and treated as non-terminal by the poller.
const (
	StatePending = "PENDING"
	StateStarted = "STARTED"
	StateSuccess = "SUCCESS"
	StateFailure = "FAILURE"
)

// JobStatus is one status-check response for a report job.
type JobStatus struct {
	State  string  `json:"state"`
	Result *string `json:"result,omitempty"`
}

// Client talks to the remote service. All methods perform exactly one round
// trip and surface a *Error on any failure; none of them retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets the service base URL (no trailing slash required).
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(strings.TrimSpace(u), "/")
	}
}

// WithHTTPClient replaces the underlying HTTP client (tests, custom timeouts).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// New returns a client for the given options.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	return c
}

// wireTask is a task as the service represents it.
type wireTask struct {
	ID          int    `json:"id"`
	Titre       string `json:"titre"`
	Description string `json:"description"`
	Termine     bool   `json:"termine"`
}

func (w wireTask) domain() model.Task {
	return model.Task{ID: w.ID, Title: w.Titre, Description: w.Description, Done: w.Termine}
}

// wirePatch carries only the fields present; pointers distinguish "absent"
// from zero values on both the request and the response side.
type wirePatch struct {
	Titre       *string `json:"titre,omitempty"`
	Description *string `json:"description,omitempty"`
	Termine     *bool   `json:"termine,omitempty"`
}

func (w wirePatch) domain() model.TaskPatch {
	return model.TaskPatch{Title: w.Titre, Description: w.Description, Done: w.Termine}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type startReportResponse struct {
	TaskID string `json:"task_id"`
}

// Login exchanges credentials for a token. The token is never stored here;
// the session holder owns it.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var out loginResponse
	err := c.do(ctx, OpLogin, http.MethodPost, "/token/", "", loginRequest{Username: username, Password: password}, &out)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out.Token) == "" {
		return "", &Error{Op: OpLogin, Message: "empty token in response"}
	}
	return out.Token, nil
}

// ListTasks fetches the full ordered task list.
func (c *Client) ListTasks(ctx context.Context, token string) ([]model.Task, error) {
	var out []wireTask
	if err := c.do(ctx, OpList, http.MethodGet, "/taches/", token, nil, &out); err != nil {
		return nil, err
	}
	tasks := make([]model.Task, 0, len(out))
	for _, w := range out {
		tasks = append(tasks, w.domain())
	}
	return tasks, nil
}

// CreateTask creates a task and returns it with its server-assigned id.
func (c *Client) CreateTask(ctx context.Context, token, title, description string) (model.Task, error) {
	in := struct {
		Titre       string `json:"titre"`
		Description string `json:"description"`
	}{Titre: title, Description: description}

	var out wireTask
	if err := c.do(ctx, OpCreate, http.MethodPost, "/taches/", token, in, &out); err != nil {
		return model.Task{}, err
	}
	return out.domain(), nil
}

// DeleteTask deletes a task by id. The service answers with an empty body.
func (c *Client) DeleteTask(ctx context.Context, token string, id int) error {
	return c.do(ctx, OpDelete, http.MethodDelete, fmt.Sprintf("/taches/%d/", id), token, nil, nil)
}

// UpdateTask sends a partial update and returns only the fields the server
// echoed back. Fields absent from the response stay nil in the returned patch
// so the store merges nothing for them.
func (c *Client) UpdateTask(ctx context.Context, token string, id int, patch model.TaskPatch) (model.TaskPatch, error) {
	in := wirePatch{Titre: patch.Title, Description: patch.Description, Termine: patch.Done}

	var out wirePatch
	if err := c.do(ctx, OpUpdate, http.MethodPatch, fmt.Sprintf("/taches/%d/", id), token, in, &out); err != nil {
		return model.TaskPatch{}, err
	}
	return out.domain(), nil
}

// StartReport submits a report-generation job and returns its job id.
func (c *Client) StartReport(ctx context.Context, token string) (string, error) {
	var out startReportResponse
	if err := c.do(ctx, OpStartReport, http.MethodPost, "/start-report/", token, nil, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.TaskID) == "" {
		return "", &Error{Op: OpStartReport, Message: "empty task_id in response"}
	}
	return out.TaskID, nil
}

// CheckReport performs one status check for a report job.
func (c *Client) CheckReport(ctx context.Context, token, jobID string) (JobStatus, error) {
	var out JobStatus
	if err := c.do(ctx, OpCheckReport, http.MethodGet, "/check-report-status/"+jobID+"/", token, nil, &out); err != nil {
		return JobStatus{}, err
	}
	return out, nil
}

// errorBody is the service's usual error shape (DRF's {"detail": ...}).
type errorBody struct {
	Detail string `json:"detail"`
}

func (c *Client) do(ctx context.Context, op Op, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return &Error{Op: op, Message: "marshal request: " + err.Error(), Err: err}
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &Error{Op: op, Message: "create request: " + err.Error(), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Op: op, Message: err.Error(), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Op: op, Message: "read response: " + err.Error(), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Op: op, Status: resp.StatusCode, Message: errorMessage(raw)}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Op: op, Message: "decode response: " + err.Error(), Err: err}
	}
	return nil
}

func errorMessage(raw []byte) string {
	var eb errorBody
	if err := json.Unmarshal(raw, &eb); err == nil && strings.TrimSpace(eb.Detail) != "" {
		return eb.Detail
	}
	s := strings.TrimSpace(string(raw))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
