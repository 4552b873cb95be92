package quickadd

import (
	"regexp"
	"strings"
)

// sigilValue is the value grammar shared by every sigil: a double-quoted value,
// a single-quoted value, or one whitespace-delimited token.
const sigilValue = `(?:"([^"]+)"|'([^']+)'|(\S+))`

const (
	weekdayNames = `monday|tuesday|wednesday|thursday|friday|saturday|sunday|` +
		`mon|tues|tue|wed|thurs|thur|thu|fri|sat|sun`
	monthNames = `january|february|march|april|may|june|july|august|september|october|november|december|` +
		`jan|feb|mar|apr|jun|jul|aug|sept|sep|oct|nov|dec`
)

// patternTable holds every compiled matcher. It is built once by New and only
// read afterwards.
type patternTable struct {
	label    *regexp.Regexp
	assignee *regexp.Regexp
	project  *regexp.Regexp
	priority *regexp.Regexp
	repeat   *regexp.Regexp

	timeOfDay *regexp.Regexp

	relative  *regexp.Regexp
	ordinal   *regexp.Regexp
	slashDMY  *regexp.Regexp
	isoDate   *regexp.Regexp
	monthDate *regexp.Regexp

	keywords *vocabulary
	weekdays *vocabulary

	// datePhrases is applied in order by the title cleaner. Longer phrases
	// come before any phrase they contain.
	datePhrases []*regexp.Regexp
}

// sigilPattern builds the matcher for one sigil. The sigil must start the
// input or follow whitespace, so "mail@example.com" is not an assignee.
func sigilPattern(sigil string) *regexp.Regexp {
	return regexp.MustCompile(`(?:^|\s)` + regexp.QuoteMeta(sigil) + sigilValue)
}

func compilePatterns() *patternTable {
	t := &patternTable{
		label:    sigilPattern("*"),
		assignee: sigilPattern("@"),
		project:  sigilPattern("+"),
		priority: regexp.MustCompile(`(?:^|\s)!([1-5])\b`),
		repeat:   regexp.MustCompile(`(?i)\bevery\s+(?:([1-9]\d*)\s+)?(\pL+)`),

		timeOfDay: regexp.MustCompile(`(?i)\bat\s+(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\b`),

		relative:  regexp.MustCompile(`(?i)\bin\s+(\d+)\s+(hour|day|week|month)s?\b`),
		ordinal:   regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)\b`),
		slashDMY:  regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`),
		isoDate:   regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`),
		monthDate: regexp.MustCompile(`(?i)\b(` + monthNames + `)\s+(\d{1,2})(?:st|nd|rd|th)?\b`),

		keywords: newVocabulary(keywordPhrases()),
		weekdays: newVocabulary(strings.Split(weekdayNames, "|")),
	}

	t.datePhrases = []*regexp.Regexp{
		t.relative,
		t.slashDMY,
		t.isoDate,
		t.monthDate,
	}
	// keywordRules is ordered so that no phrase precedes a longer phrase
	// containing it.
	for _, rule := range keywordRules {
		t.datePhrases = append(t.datePhrases, phrasePattern(rule.phrase))
	}
	t.datePhrases = append(t.datePhrases,
		regexp.MustCompile(`(?i)\b(?:(?:next|this)\s+)?(?:`+weekdayNames+`)\b`),
		t.ordinal,
	)
	return t
}

// phrasePattern matches a space-separated phrase case-insensitively, allowing
// any run of whitespace between its words.
func phrasePattern(phrase string) *regexp.Regexp {
	words := strings.Fields(phrase)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)\b` + strings.Join(words, `\s+`) + `\b`)
}

// entityPatterns returns the entity matchers indexed by entityKind.
func (t *patternTable) entityPatterns() []*regexp.Regexp {
	return []*regexp.Regexp{t.label, t.assignee, t.project, t.priority, t.repeat}
}

// sigilCapture returns whichever alternative of sigilValue matched. m holds
// the whole match followed by the three alternatives.
func sigilCapture(m []string) string {
	for _, g := range m[1:4] {
		if g != "" {
			return g
		}
	}
	return ""
}
