package vikunja

import (
	"context"
	"fmt"
	"strings"

	"vtask/backend"
	"vtask/internal/quickadd"
	"vtask/internal/utils"
)

const (
	secondsPerHour = 60 * 60
	secondsPerDay  = 24 * secondsPerHour
)

// RepeatSeconds converts a repeat interval to Vikunja's repeat_after. The unit
// is recognized by the prefix of the typed word; a month is 30 days and a year
// 365 days. Unknown units give 0.
func RepeatSeconds(r quickadd.RepeatInterval) int64 {
	unit := strings.ToLower(r.IntervalType)
	var per int64
	switch {
	case strings.HasPrefix(unit, "hour"):
		per = secondsPerHour
	case strings.HasPrefix(unit, "day"):
		per = secondsPerDay
	case strings.HasPrefix(unit, "week"):
		per = 7 * secondsPerDay
	case strings.HasPrefix(unit, "month"):
		per = 30 * secondsPerDay
	case strings.HasPrefix(unit, "year"):
		per = 365 * secondsPerDay
	default:
		return 0
	}
	return int64(r.Amount) * per
}

// CreateFromParsed creates the task described by a parsed quick add line.
//
// The project is the typed +project (created if missing), else
// defaultProject (which must exist), else the first project on the server.
// Missing labels are created. Assignees that match no user are logged and
// skipped, so the returned task lists only the assignees that were applied.
func (b *Backend) CreateFromParsed(ctx context.Context, parsed quickadd.ParsedTask, defaultProject string) (*backend.Task, error) {
	if strings.TrimSpace(parsed.Title) == "" {
		return nil, utils.ErrEmptyTitle(parsed.Summary())
	}

	projectID, err := b.resolveProject(ctx, parsed.Project, defaultProject)
	if err != nil {
		return nil, err
	}

	draft := &backend.Task{Title: parsed.Title, DueDate: parsed.DueDate}
	if parsed.Priority != nil {
		draft.Priority = *parsed.Priority
	}
	if parsed.Repeat != nil {
		draft.RepeatAfter = RepeatSeconds(*parsed.Repeat)
	}

	task, err := b.CreateTask(ctx, projectID, draft)
	if err != nil {
		return nil, err
	}

	for _, name := range parsed.Labels {
		label, err := b.ensureLabel(ctx, name)
		if err != nil {
			return task, fmt.Errorf("task %d created, but label %q failed: %w", task.ID, name, err)
		}
		if err := b.AddLabel(ctx, task.ID, label.ID); err != nil {
			return task, fmt.Errorf("task %d created, but label %q failed: %w", task.ID, name, err)
		}
		task.Labels = append(task.Labels, *label)
	}

	for _, username := range parsed.Assignees {
		user, err := b.lookupUser(ctx, username)
		if err != nil {
			return task, fmt.Errorf("task %d created, but assignee %q failed: %w", task.ID, username, err)
		}
		if user == nil {
			utils.Warnf("skipping assignee %q: user not found", username)
			continue
		}
		if err := b.AddAssignee(ctx, task.ID, user.ID); err != nil {
			return task, fmt.Errorf("task %d created, but assignee %q failed: %w", task.ID, username, err)
		}
		task.Assignees = append(task.Assignees, *user)
	}

	utils.Debugf("vikunja: created task %d in project %d", task.ID, task.ProjectID)
	return task, nil
}

func (b *Backend) resolveProject(ctx context.Context, typed *string, defaultProject string) (int64, error) {
	if typed != nil {
		return b.ensureProject(ctx, *typed)
	}

	if defaultProject != "" {
		id, ok, err := b.lookupProject(ctx, defaultProject)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, utils.ErrProjectNotFound(defaultProject)
		}
		return id, nil
	}

	projects, err := b.GetProjects(ctx)
	if err != nil {
		return 0, err
	}
	if len(projects) == 0 {
		return 0, utils.ErrProjectNotFound("(no projects on server)")
	}
	return projects[0].ID, nil
}

func (b *Backend) ensureProject(ctx context.Context, name string) (int64, error) {
	id, ok, err := b.lookupProject(ctx, name)
	if err != nil || ok {
		return id, err
	}
	created, err := b.CreateProject(ctx, name)
	if err != nil {
		return 0, err
	}
	b.remember(ctx, backend.KindProject, name, created.ID)
	return created.ID, nil
}

func (b *Backend) lookupProject(ctx context.Context, name string) (int64, bool, error) {
	if id, ok := b.cached(ctx, backend.KindProject, name); ok {
		return id, true, nil
	}
	project, err := b.FindProject(ctx, name)
	if err != nil || project == nil {
		return 0, false, err
	}
	b.remember(ctx, backend.KindProject, name, project.ID)
	return project.ID, true, nil
}

func (b *Backend) ensureLabel(ctx context.Context, name string) (*backend.Label, error) {
	if id, ok := b.cached(ctx, backend.KindLabel, name); ok {
		return &backend.Label{ID: id, Title: name}, nil
	}
	label, err := b.FindLabel(ctx, name)
	if err != nil {
		return nil, err
	}
	if label == nil {
		if label, err = b.CreateLabel(ctx, name); err != nil {
			return nil, err
		}
	}
	b.remember(ctx, backend.KindLabel, name, label.ID)
	return label, nil
}

func (b *Backend) lookupUser(ctx context.Context, username string) (*backend.User, error) {
	if id, ok := b.cached(ctx, backend.KindUser, username); ok {
		return &backend.User{ID: id, Username: username}, nil
	}
	user, err := b.FindUser(ctx, username)
	if err != nil || user == nil {
		return nil, err
	}
	b.remember(ctx, backend.KindUser, username, user.ID)
	return user, nil
}

// cached and remember treat cache failures as misses; the server stays the
// source of truth.
func (b *Backend) cached(ctx context.Context, kind, name string) (int64, bool) {
	if b.config.Cache == nil {
		return 0, false
	}
	id, ok, err := b.config.Cache.Get(ctx, kind, name)
	if err != nil {
		utils.Debugf("lookup cache get %s %q: %v", kind, name, err)
		return 0, false
	}
	return id, ok
}

func (b *Backend) remember(ctx context.Context, kind, name string, id int64) {
	if b.config.Cache == nil {
		return
	}
	if err := b.config.Cache.Put(ctx, kind, name, id); err != nil {
		utils.Debugf("lookup cache put %s %q: %v", kind, name, err)
	}
}
