// Package backend defines the task server model that quick add results are
// written to.
package backend

import (
	"context"
	"strings"
	"time"
)

// Project is a container for tasks
type Project struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// Label is a tag that can be attached to tasks
type Label struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// User is an account tasks can be assigned to
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
}

// Task is a task as stored on the server
type Task struct {
	ID          int64      `json:"id"`
	Identifier  string     `json:"identifier,omitempty"`
	ProjectID   int64      `json:"project_id"`
	Title       string     `json:"title"`
	Priority    int        `json:"priority,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	RepeatAfter int64      `json:"repeat_after,omitempty"` // seconds
	Labels      []Label    `json:"labels,omitempty"`
	Assignees   []User     `json:"assignees,omitempty"`
	Created     time.Time  `json:"created"`
}

// Service is the subset of the task server API quick add needs
type Service interface {
	// Project operations
	GetProjects(ctx context.Context) ([]Project, error)
	FindProject(ctx context.Context, name string) (*Project, error)
	CreateProject(ctx context.Context, name string) (*Project, error)

	// Label operations
	FindLabel(ctx context.Context, name string) (*Label, error)
	CreateLabel(ctx context.Context, name string) (*Label, error)

	// User lookup; users are never created
	FindUser(ctx context.Context, username string) (*User, error)

	// Task operations
	CreateTask(ctx context.Context, projectID int64, task *Task) (*Task, error)
	AddLabel(ctx context.Context, taskID, labelID int64) error
	AddAssignee(ctx context.Context, taskID, userID int64) error

	// Connection management
	Close() error
}

// Lookup kinds used as LookupCache keys
const (
	KindProject = "project"
	KindLabel   = "label"
	KindUser    = "user"
)

// LookupCache remembers the IDs of projects, labels and users by name so
// repeated quick adds skip the search requests. Names are matched
// case-insensitively.
type LookupCache interface {
	Get(ctx context.Context, kind, name string) (int64, bool, error)
	Put(ctx context.Context, kind, name string, id int64) error
}

// FindProjectByTitle searches for a project by title (case-insensitive).
// Returns nil if no match is found.
func FindProjectByTitle(projects []Project, title string) *Project {
	for _, p := range projects {
		if strings.EqualFold(p.Title, title) {
			return &p
		}
	}
	return nil
}

// FindLabelByTitle searches for a label by title (case-insensitive).
func FindLabelByTitle(labels []Label, title string) *Label {
	for _, l := range labels {
		if strings.EqualFold(l.Title, title) {
			return &l
		}
	}
	return nil
}

// FindUserByUsername searches for a user by username (case-insensitive).
func FindUserByUsername(users []User, username string) *User {
	for _, u := range users {
		if strings.EqualFold(u.Username, username) {
			return &u
		}
	}
	return nil
}
