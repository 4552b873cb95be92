package quickadd

import (
	"sort"
	"strconv"
)

type entityKind int

const (
	kindLabel entityKind = iota
	kindAssignee
	kindProject
	kindPriority
	kindRepeat
)

// entityMatch is one sigil match with its byte span in the input.
type entityMatch struct {
	kind       entityKind
	start, end int
	groups     []string
}

// value returns the sigil value for label, assignee and project matches.
func (m entityMatch) value() string {
	return sigilCapture(m.groups)
}

// scanEntities runs every entity matcher over text and returns the matches in
// order of position. A match starting inside an earlier one is dropped, so the
// "@bob" in *"ping @bob" stays part of the label.
func (t *patternTable) scanEntities(text string) []entityMatch {
	var all []entityMatch
	for kind, re := range t.entityPatterns() {
		for _, loc := range re.FindAllStringSubmatchIndex(text, -1) {
			groups := make([]string, len(loc)/2)
			for i := range groups {
				if loc[2*i] >= 0 {
					groups[i] = text[loc[2*i]:loc[2*i+1]]
				}
			}
			all = append(all, entityMatch{kind: entityKind(kind), start: loc[0], end: loc[1], groups: groups})
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].start < all[j].start })

	kept := make([]entityMatch, 0, len(all))
	end := 0
	for _, m := range all {
		if m.start < end {
			continue
		}
		kept = append(kept, m)
		end = m.end
	}
	return kept
}

// extractEntities fills the entity fields from the scanned matches. Labels
// and assignees collect every match; project, priority and repeat take the
// first.
func extractEntities(found []entityMatch, task *ParsedTask) {
	task.Labels = []string{}
	task.Assignees = []string{}

	for _, m := range found {
		switch m.kind {
		case kindLabel:
			task.Labels = append(task.Labels, m.value())
		case kindAssignee:
			task.Assignees = append(task.Assignees, m.value())
		case kindProject:
			if task.Project == nil {
				project := m.value()
				task.Project = &project
			}
		case kindPriority:
			if task.Priority == nil {
				if priority, err := strconv.Atoi(m.groups[1]); err == nil && priority >= 1 && priority <= 5 {
					task.Priority = &priority
				}
			}
		case kindRepeat:
			if task.Repeat == nil {
				task.Repeat = repeatFrom(m.groups)
			}
		}
	}
}

func repeatFrom(groups []string) *RepeatInterval {
	amount := 1
	if groups[1] != "" {
		n, err := strconv.Atoi(groups[1])
		if err != nil || n < 1 {
			return nil
		}
		amount = n
	}
	return &RepeatInterval{Amount: amount, IntervalType: groups[2]}
}
