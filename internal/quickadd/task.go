package quickadd

import (
	"fmt"
	"strings"
	"time"
)

// ParsedTask is the structured result of a quick add line.
type ParsedTask struct {
	Title     string          `json:"title"`
	Labels    []string        `json:"labels"`
	Assignees []string        `json:"assignees"`
	Project   *string         `json:"project,omitempty"`
	Priority  *int            `json:"priority,omitempty"`
	DueDate   *time.Time      `json:"due_date,omitempty"`
	Repeat    *RepeatInterval `json:"repeat,omitempty"`
}

// RepeatInterval is an "every N unit" phrase. IntervalType is the word as typed
// ("day", "weeks", ...), not a canonical unit.
type RepeatInterval struct {
	Amount       int    `json:"amount"`
	IntervalType string `json:"interval_type"`
}

// String renders the interval the way it would be typed.
func (r RepeatInterval) String() string {
	return fmt.Sprintf("every %d %s", r.Amount, r.IntervalType)
}

// TimeOfDay is a 24-hour clock time.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// HasMagic reports whether anything besides the title was recognized.
func (t ParsedTask) HasMagic() bool {
	return len(t.Labels) > 0 || len(t.Assignees) > 0 || t.Project != nil ||
		t.Priority != nil || t.DueDate != nil || t.Repeat != nil
}

// Summary returns a one-line description of the recognized fields, e.g.
// `project=Work priority=3 due=2025-07-01 14:30 labels=calls`.
func (t ParsedTask) Summary() string {
	var parts []string
	if t.Project != nil {
		parts = append(parts, "project="+*t.Project)
	}
	if t.Priority != nil {
		parts = append(parts, fmt.Sprintf("priority=%d", *t.Priority))
	}
	if t.DueDate != nil {
		parts = append(parts, "due="+t.DueDate.Format("2006-01-02 15:04"))
	}
	if t.Repeat != nil {
		parts = append(parts, "repeat="+t.Repeat.String())
	}
	if len(t.Labels) > 0 {
		parts = append(parts, "labels="+strings.Join(t.Labels, ","))
	}
	if len(t.Assignees) > 0 {
		parts = append(parts, "assignees="+strings.Join(t.Assignees, ","))
	}
	return strings.Join(parts, " ")
}
