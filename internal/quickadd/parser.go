// Package quickadd turns a single line of free text into a structured task.
//
// A line such as
//
//	Call mom next friday at 2:30pm !3 *calls
//
// yields the title "Call mom", the label "calls", priority 3 and a due date on
// the coming Friday at 14:30. Recognized syntax:
//
//	*label  *"two words"     labels, any number
//	@user                    assignees, any number
//	+project                 project, first one wins
//	!1 .. !5                 priority
//	every [N] day|week|...   repeat interval
//	at 5pm, at 17:30         time of day for the due date
//
// plus a chain of date heuristics (keywords, weekday names, "in N days",
// ordinals, numeric and month-name dates).
//
// A QuickAddParser is immutable after New and safe for concurrent use.
package quickadd

import (
	"time"

	"github.com/olebedev/when"
)

// QuickAddParser holds the compiled pattern table and the date strategy chain.
type QuickAddParser struct {
	patterns        *patternTable
	nl              *when.Parser
	naturalLanguage bool
	strategies      []dateStrategy
	clock           func() time.Time
	location        *time.Location
}

// Option configures a QuickAddParser.
type Option func(*QuickAddParser)

// WithClock sets the source of "now". Tests use it to pin the date.
func WithClock(clock func() time.Time) Option {
	return func(p *QuickAddParser) {
		p.clock = clock
	}
}

// WithLocation sets the time zone calendar days are computed in. Due dates
// are always returned in UTC.
func WithLocation(loc *time.Location) Option {
	return func(p *QuickAddParser) {
		if loc != nil {
			p.location = loc
		}
	}
}

// WithNaturalLanguage enables or disables the general-purpose date parser
// that runs before the built-in heuristics. It is enabled by default.
func WithNaturalLanguage(enabled bool) Option {
	return func(p *QuickAddParser) {
		p.naturalLanguage = enabled
	}
}

// New compiles every pattern. It panics only if a built-in pattern is invalid.
func New(opts ...Option) *QuickAddParser {
	p := &QuickAddParser{
		patterns:        compilePatterns(),
		naturalLanguage: true,
		clock:           time.Now,
		location:        time.Local,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.naturalLanguage {
		p.nl = newNaturalLanguage()
	}
	p.strategies = p.buildStrategies()
	return p
}

// Parse extracts entities, resolves the due date and cleans the title. It
// never fails; unrecognized text stays in the title.
func (p *QuickAddParser) Parse(text string) ParsedTask {
	task := ParsedTask{}
	found := p.patterns.scanEntities(text)
	extractEntities(found, &task)

	res := p.resolveDueDate(text, p.clock().In(p.location))
	if res.resolved {
		due := res.due
		task.DueDate = &due
	}

	task.Title = p.cleanTitle(text, found, res)
	return task
}
