// Package vikunja is a client for the Vikunja REST API, limited to what quick
// add needs: project, label and user lookups plus task creation.
package vikunja

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"vtask/backend"
	"vtask/internal/utils"
)

const (
	apiPrefix = "/api/v1"

	// BackendName is the name used for credentials and error messages
	BackendName = "vikunja"
)

// Config holds Vikunja connection settings
type Config struct {
	BaseURL  string // e.g. https://tasks.example.com
	APIToken string
	Cache    backend.LookupCache // optional
	Timeout  time.Duration
}

// Backend implements backend.Service against a Vikunja server
type Backend struct {
	config  Config
	client  *http.Client
	baseURL string
}

var _ backend.Service = (*Backend)(nil)

// New creates a new Vikunja backend
func New(cfg Config) (*Backend, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, utils.ErrServerNotConfigured()
	}
	if cfg.APIToken == "" {
		return nil, errors.New("vikunja API token is required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Backend{
		config:  cfg,
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/") + apiPrefix,
	}, nil
}

// Close releases idle connections
func (b *Backend) Close() error {
	b.client.CloseIdleConnections()
	return nil
}

// apiError is the error body Vikunja returns
type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// doRequest performs an authenticated API request and decodes a 2xx JSON
// response into out when out is non-nil.
func (b *Backend) doRequest(ctx context.Context, method, path string, body, out interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, bodyReader)
	if err != nil {
		return err
	}

	requestID := uuid.NewString()
	req.Header.Set("Authorization", "Bearer "+b.config.APIToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	utils.Debugf("vikunja: %s %s (request %s)", method, path, requestID)

	resp, err := b.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return utils.ErrServerOffline(b.config.BaseURL, err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return utils.ErrAuthenticationFailed(BackendName)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		var apiErr apiError
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func searchPath(resource, term string) string {
	return resource + "?" + url.Values{"s": {term}}.Encode()
}

// =============================================================================
// Project Operations
// =============================================================================

// GetProjects returns every project the token can see
func (b *Backend) GetProjects(ctx context.Context) ([]backend.Project, error) {
	var projects []backend.Project
	if err := b.doRequest(ctx, http.MethodGet, "/projects", nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// FindProject returns the project with this title, or nil
func (b *Backend) FindProject(ctx context.Context, name string) (*backend.Project, error) {
	var projects []backend.Project
	if err := b.doRequest(ctx, http.MethodGet, searchPath("/projects", name), nil, &projects); err != nil {
		return nil, err
	}
	return backend.FindProjectByTitle(projects, name), nil
}

// CreateProject creates a top-level project
func (b *Backend) CreateProject(ctx context.Context, name string) (*backend.Project, error) {
	var created backend.Project
	if err := b.doRequest(ctx, http.MethodPut, "/projects", map[string]string{"title": name}, &created); err != nil {
		return nil, err
	}
	utils.Debugf("vikunja: created project %q (%d)", created.Title, created.ID)
	return &created, nil
}

// =============================================================================
// Label and User Operations
// =============================================================================

// FindLabel returns the label with this title, or nil
func (b *Backend) FindLabel(ctx context.Context, name string) (*backend.Label, error) {
	var labels []backend.Label
	if err := b.doRequest(ctx, http.MethodGet, searchPath("/labels", name), nil, &labels); err != nil {
		return nil, err
	}
	return backend.FindLabelByTitle(labels, name), nil
}

// CreateLabel creates a label
func (b *Backend) CreateLabel(ctx context.Context, name string) (*backend.Label, error) {
	var created backend.Label
	if err := b.doRequest(ctx, http.MethodPut, "/labels", map[string]string{"title": name}, &created); err != nil {
		return nil, err
	}
	utils.Debugf("vikunja: created label %q (%d)", created.Title, created.ID)
	return &created, nil
}

// FindUser returns the user with this username, or nil
func (b *Backend) FindUser(ctx context.Context, username string) (*backend.User, error) {
	var users []backend.User
	if err := b.doRequest(ctx, http.MethodGet, searchPath("/users", username), nil, &users); err != nil {
		return nil, err
	}
	return backend.FindUserByUsername(users, username), nil
}

// =============================================================================
// Task Operations
// =============================================================================

// taskRequest is the body sent when creating a task.
type taskRequest struct {
	Title       string     `json:"title"`
	Priority    int        `json:"priority,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	RepeatAfter int64      `json:"repeat_after,omitempty"`
}

// taskResponse is a task as returned by the server. Vikunja reports an unset
// due date as the zero time.
type taskResponse struct {
	ID          int64     `json:"id"`
	Identifier  string    `json:"identifier"`
	ProjectID   int64     `json:"project_id"`
	Title       string    `json:"title"`
	Priority    int       `json:"priority"`
	DueDate     time.Time `json:"due_date"`
	RepeatAfter int64     `json:"repeat_after"`
	Created     time.Time `json:"created"`
}

// CreateTask creates a task in a project. Labels and assignees on task are
// ignored; attach them with AddLabel and AddAssignee.
func (b *Backend) CreateTask(ctx context.Context, projectID int64, task *backend.Task) (*backend.Task, error) {
	body := taskRequest{
		Title:       task.Title,
		Priority:    task.Priority,
		DueDate:     task.DueDate,
		RepeatAfter: task.RepeatAfter,
	}

	var created taskResponse
	path := fmt.Sprintf("/projects/%d/tasks", projectID)
	if err := b.doRequest(ctx, http.MethodPut, path, body, &created); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	out := &backend.Task{
		ID:          created.ID,
		Identifier:  created.Identifier,
		ProjectID:   created.ProjectID,
		Title:       created.Title,
		Priority:    created.Priority,
		RepeatAfter: created.RepeatAfter,
		Created:     created.Created,
	}
	if out.ProjectID == 0 {
		out.ProjectID = projectID
	}
	if created.DueDate.Year() > 1 {
		due := created.DueDate.UTC()
		out.DueDate = &due
	}
	return out, nil
}

// AddLabel attaches an existing label to a task
func (b *Backend) AddLabel(ctx context.Context, taskID, labelID int64) error {
	path := fmt.Sprintf("/tasks/%d/labels", taskID)
	return b.doRequest(ctx, http.MethodPut, path, map[string]int64{"label_id": labelID}, nil)
}

// AddAssignee assigns a user to a task
func (b *Backend) AddAssignee(ctx context.Context, taskID, userID int64) error {
	path := fmt.Sprintf("/tasks/%d/assignees", taskID)
	return b.doRequest(ctx, http.MethodPut, path, map[string]int64{"user_id": userID}, nil)
}
