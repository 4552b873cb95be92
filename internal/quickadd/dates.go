package quickadd

import (
	"strconv"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules"
	"github.com/olebedev/when/rules/en"

	"vtask/internal/utils"
)

// dateMatch is what a strategy found. Most strategies yield a calendar day
// that still needs a time of day; exact is set when at already carries one.
type dateMatch struct {
	day       time.Time
	at        time.Time
	exact     bool
	wholeText bool
}

// dateStrategy is one link of the resolution chain.
type dateStrategy struct {
	name    string
	resolve func(text string, now time.Time) (dateMatch, bool)
}

// resolution records which strategy produced the due date and what it
// consumed, for the title cleaner.
type resolution struct {
	due       time.Time
	strategy  string
	resolved  bool
	wholeText bool
	timeUsed  bool
}

// newNaturalLanguage builds the general-purpose parser used as the first
// strategy. Only relative day rules are loaded. Calendar dates are left to
// the numeric and month-name strategies, which never carry today's day of
// month into another month.
func newNaturalLanguage() *when.Parser {
	w := when.New(nil)
	w.Add(
		en.CasualDate(rules.Override),
		en.Weekday(rules.Override),
	)
	return w
}

// instantWords are whole-line matches the natural-language parser accepts
// that name a moment rather than a day. They stay task titles.
var instantWords = map[string]bool{
	"now": true,
}

func (p *QuickAddParser) buildStrategies() []dateStrategy {
	var chain []dateStrategy
	if p.naturalLanguage {
		chain = append(chain, dateStrategy{"natural-language", p.resolveNaturalLanguage})
	}
	return append(chain,
		dateStrategy{"keyword", p.resolveKeyword},
		dateStrategy{"weekday", p.resolveWeekday},
		dateStrategy{"relative", p.resolveRelative},
		dateStrategy{"ordinal", p.resolveOrdinal},
		dateStrategy{"numeric", p.resolveNumeric},
		dateStrategy{"month-name", p.resolveMonthName},
	)
}

// resolveDueDate walks the chain; the first strategy that matches wins.
func (p *QuickAddParser) resolveDueDate(text string, now time.Time) resolution {
	for _, s := range p.strategies {
		m, ok := s.resolve(text, now)
		if !ok {
			continue
		}

		res := resolution{strategy: s.name, resolved: true, wholeText: m.wholeText}
		if m.exact {
			res.due = m.at
		} else {
			res.due, res.timeUsed = p.stamp(m.day, text)
		}
		res.due = res.due.UTC().Truncate(time.Second)

		utils.Debugf("quick add: due date %s from %s strategy", res.due.Format(time.RFC3339), s.name)
		return res
	}
	return resolution{}
}

const phraseTrim = " \t.,;:!?"

// resolveNaturalLanguage only accepts a result that covers the whole input,
// so "Call mom tomorrow" falls through to the keyword strategy.
func (p *QuickAddParser) resolveNaturalLanguage(text string, now time.Time) (dateMatch, bool) {
	phrase := strings.Trim(text, phraseTrim)
	if phrase == "" || instantWords[strings.ToLower(phrase)] {
		return dateMatch{}, false
	}

	r, err := p.nl.Parse(phrase, now)
	if err != nil {
		utils.Debugf("quick add: natural language parser: %v", err)
		return dateMatch{}, false
	}
	if r == nil || !strings.EqualFold(strings.Trim(r.Text, phraseTrim), phrase) {
		return dateMatch{}, false
	}
	return dateMatch{day: startOfDay(r.Time.In(now.Location())), wholeText: true}, true
}

func (p *QuickAddParser) resolveKeyword(text string, now time.Time) (dateMatch, bool) {
	phrase, ok := p.patterns.keywords.find(normalizeForMatch(text))
	if !ok {
		return dateMatch{}, false
	}
	rule, ok := keywordRuleFor(phrase)
	if !ok {
		return dateMatch{}, false
	}
	return dateMatch{day: rule.resolve(startOfDay(now))}, true
}

// resolveWeekday picks the next occurrence of the named day. Naming today's
// weekday resolves to today.
func (p *QuickAddParser) resolveWeekday(text string, now time.Time) (dateMatch, bool) {
	name, ok := p.patterns.weekdays.find(normalizeForMatch(text))
	if !ok {
		return dateMatch{}, false
	}
	target, ok := weekdayByPrefix[name[:3]]
	if !ok {
		return dateMatch{}, false
	}
	ahead := (int(target) - int(now.Weekday()) + 7) % 7
	return dateMatch{day: startOfDay(now).AddDate(0, 0, ahead)}, true
}

// resolveRelative handles "in N hours|days|weeks|months". Hours are exact
// wall-clock offsets; a month is 30 days.
func (p *QuickAddParser) resolveRelative(text string, now time.Time) (dateMatch, bool) {
	m := p.patterns.relative.FindStringSubmatch(text)
	if m == nil {
		return dateMatch{}, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return dateMatch{}, false
	}

	switch strings.ToLower(m[2]) {
	case "hour":
		return dateMatch{at: now.Add(time.Duration(n) * time.Hour), exact: true}, true
	case "day":
		return dateMatch{day: startOfDay(now).AddDate(0, 0, n)}, true
	case "week":
		return dateMatch{day: startOfDay(now).AddDate(0, 0, 7*n)}, true
	case "month":
		return dateMatch{day: startOfDay(now).AddDate(0, 0, 30*n)}, true
	}
	return dateMatch{}, false
}

// resolveOrdinal reads "15th" as that day of the current month, even when the
// day has already passed.
func (p *QuickAddParser) resolveOrdinal(text string, now time.Time) (dateMatch, bool) {
	m := p.patterns.ordinal.FindStringSubmatch(text)
	if m == nil {
		return dateMatch{}, false
	}
	day, err := strconv.Atoi(m[1])
	if err != nil {
		return dateMatch{}, false
	}
	return calendarDay(now.Year(), now.Month(), day, now.Location())
}

// resolveNumeric tries DD/MM/YYYY, then YYYY-MM-DD.
func (p *QuickAddParser) resolveNumeric(text string, now time.Time) (dateMatch, bool) {
	if m := p.patterns.slashDMY.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if dm, ok := calendarDay(year, time.Month(month), day, now.Location()); ok {
			return dm, true
		}
	}
	if m := p.patterns.isoDate.FindStringSubmatch(text); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		return calendarDay(year, time.Month(month), day, now.Location())
	}
	return dateMatch{}, false
}

// resolveMonthName handles "june 15" and "jun 15th" in the current year.
func (p *QuickAddParser) resolveMonthName(text string, now time.Time) (dateMatch, bool) {
	m := p.patterns.monthDate.FindStringSubmatch(text)
	if m == nil {
		return dateMatch{}, false
	}
	month, ok := monthByPrefix[strings.ToLower(m[1])[:3]]
	if !ok {
		return dateMatch{}, false
	}
	day, err := strconv.Atoi(m[2])
	if err != nil {
		return dateMatch{}, false
	}
	return calendarDay(now.Year(), month, day, now.Location())
}

// calendarDay rejects dates that time.Date would normalize, like June 31st.
func calendarDay(year int, month time.Month, day int, loc *time.Location) (dateMatch, bool) {
	if month < time.January || month > time.December || day < 1 || day > daysIn(year, month) {
		return dateMatch{}, false
	}
	return dateMatch{day: time.Date(year, month, day, 0, 0, 0, 0, loc)}, true
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
