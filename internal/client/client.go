package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/boardlock/boardlock/internal/model"
)

// APIError is a non-success response from the store.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("store returned %d: %s", e.Status, e.Message)
}

// Config tunes the sync client. Zero MaxRetries means a mutation is a
// single round-trip with no retry.
type Config struct {
	BaseURL       string
	MaxRetries    uint64
	RetryInterval time.Duration
}

// Client mirrors the store's task collection. Mutations are two-phase and
// non-optimistic: the cache changes only after the server confirms, and only
// with the server's returned representation. A failed call leaves the cache
// exactly as it was.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger

	mu    sync.Mutex
	token string
	tasks []model.Task // arrival order
}

func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 200 * time.Millisecond
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{},
		logger: logger,
	}
}

type loginResponse struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

// Login exchanges the session identity for a bearer token used on every
// mutation from here on.
func (c *Client) Login(ctx context.Context, user model.User) (model.User, error) {
	var resp loginResponse
	if err := c.do(ctx, http.MethodPost, "/api/login", user, &resp); err != nil {
		return model.User{}, err
	}

	c.mu.Lock()
	c.token = resp.Token
	c.mu.Unlock()
	return resp.User, nil
}

// SetToken installs a previously issued session token, e.g. one restored
// from client-side storage.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Logout erases the client-held session.
func (c *Client) Logout() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

// Token returns the current session token, empty when logged out.
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// Load fetches the full task list, replacing the cache. Called once at
// board mount.
func (c *Client) Load(ctx context.Context) error {
	var tasks []model.Task
	if err := c.do(ctx, http.MethodGet, "/api/tasks", nil, &tasks); err != nil {
		return err
	}

	c.mu.Lock()
	c.tasks = tasks
	c.mu.Unlock()
	return nil
}

// Snapshot returns a copy of the cached tasks in arrival order.
func (c *Client) Snapshot() []model.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Task, len(c.tasks))
	copy(out, c.tasks)
	return out
}

// Get looks a task up in the cache.
func (c *Client) Get(id string) (model.Task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return model.Task{}, false
}

// ByStatus groups the cache into columns, preserving arrival order inside
// each column.
func (c *Client) ByStatus() map[model.Status][]model.Task {
	c.mu.Lock()
	defer c.mu.Unlock()

	columns := make(map[model.Status][]model.Task, len(model.Statuses))
	for _, t := range c.tasks {
		columns[t.Status] = append(columns[t.Status], t)
	}
	return columns
}

// Create posts a new task. The generated idempotency key makes the bounded
// retries duplicate-free.
func (c *Client) Create(ctx context.Context, title, description string) (model.Task, error) {
	body := map[string]string{"title": title, "description": description}

	var created model.Task
	err := c.doWithHeaders(ctx, http.MethodPost, "/api/tasks", body, &created, map[string]string{
		"Idempotency-Key": uuid.NewString(),
	})
	if err != nil {
		c.logger.Error("create failed", zap.Error(err))
		return model.Task{}, err
	}

	c.mu.Lock()
	c.tasks = append(c.tasks, created)
	c.mu.Unlock()
	return created, nil
}

// Update sends a partial edit and reconciles the cache entry with the
// server's canonical representation.
func (c *Client) Update(ctx context.Context, id string, patch model.TaskPatch) (model.Task, error) {
	body := struct {
		ID string `json:"id"`
		model.TaskPatch
	}{ID: id, TaskPatch: patch}

	var updated model.Task
	if err := c.do(ctx, http.MethodPut, "/api/tasks", body, &updated); err != nil {
		c.logger.Error("update failed", zap.String("task_id", id), zap.Error(err))
		return model.Task{}, err
	}

	c.mu.Lock()
	for i := range c.tasks {
		if c.tasks[i].ID == id {
			c.tasks[i] = updated
			break
		}
	}
	c.mu.Unlock()
	return updated, nil
}

// Move is a status-only update, the drag-and-drop mutation.
func (c *Client) Move(ctx context.Context, id string, status model.Status) (model.Task, error) {
	return c.Update(ctx, id, model.TaskPatch{Status: &status})
}

// Delete removes the task remotely, then from the cache.
func (c *Client) Delete(ctx context.Context, id string) error {
	path := "/api/tasks?id=" + url.QueryEscape(id)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		c.logger.Error("delete failed", zap.String("task_id", id), zap.Error(err))
		return err
	}

	c.mu.Lock()
	for i := range c.tasks {
		if c.tasks[i].ID == id {
			c.tasks = append(c.tasks[:i], c.tasks[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	return c.doWithHeaders(ctx, method, path, body, out, nil)
}

// doWithHeaders runs one logical request with bounded exponential backoff.
// Transport failures and 5xx responses are retried; 4xx are permanent.
func (c *Client) doWithHeaders(ctx context.Context, method, path string, body, out interface{}, headers map[string]string) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return err
		}
	}

	attempt := func() error {
		req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		if token := c.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			var apiErr struct {
				Error string `json:"error"`
			}
			json.NewDecoder(resp.Body).Decode(&apiErr)
			err := &APIError{Status: resp.StatusCode, Message: apiErr.Error}
			if resp.StatusCode < 500 {
				return backoff.Permanent(err)
			}
			return err
		}

		if out != nil {
			return backoff.Permanent(json.NewDecoder(resp.Body).Decode(out))
		}
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.cfg.RetryInterval
	return backoff.Retry(attempt, backoff.WithContext(
		backoff.WithMaxRetries(policy, c.cfg.MaxRetries), ctx))
}
