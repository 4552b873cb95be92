package quickadd

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/cloudflare/ahocorasick"
)

// vocabulary is a fixed word list searched with a single Aho-Corasick pass.
// Entries are lower case with single spaces between words.
type vocabulary struct {
	words   []string
	matcher *ahocorasick.Matcher
}

func newVocabulary(words []string) *vocabulary {
	return &vocabulary{
		words:   words,
		matcher: ahocorasick.NewStringMatcher(words),
	}
}

// find returns the entry whose whole-word occurrence starts leftmost in s,
// preferring the longer entry when two start at the same offset. s must
// already be normalized with normalizeForMatch.
func (v *vocabulary) find(s string) (string, bool) {
	best, bestPos := "", -1
	for _, idx := range v.matcher.MatchThreadSafe([]byte(s)) {
		word := v.words[idx]
		pos := indexWord(s, word)
		if pos < 0 {
			continue
		}
		if bestPos < 0 || pos < bestPos || (pos == bestPos && len(word) > len(best)) {
			best, bestPos = word, pos
		}
	}
	return best, bestPos >= 0
}

// normalizeForMatch lower-cases s and collapses whitespace runs.
func normalizeForMatch(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// indexWord is strings.Index restricted to occurrences bounded by non-word
// characters, so "mon" is found in "gym mon" but not in "month".
func indexWord(s, word string) int {
	for from := 0; from+len(word) <= len(s); {
		i := strings.Index(s[from:], word)
		if i < 0 {
			return -1
		}
		i += from
		if isBoundary(s, i, i+len(word)) {
			return i
		}
		from = i + 1
	}
	return -1
}

func isBoundary(s string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(s[:start])
		if isWordRune(r) {
			return false
		}
	}
	if end < len(s) {
		r, _ := utf8.DecodeRuneInString(s[end:])
		if isWordRune(r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// keywordRule maps a date phrase to a calendar rule applied to the start of
// the current day.
type keywordRule struct {
	phrase  string
	resolve func(today time.Time) time.Time
}

// keywordRules is ordered longest-containing-phrase first; the title cleaner
// relies on that order.
var keywordRules = []keywordRule{
	{"day after tomorrow", daysAhead(2)},
	{"later this week", daysAhead(2)},
	{"later next week", daysAhead(9)},
	{"this weekend", thisWeekend},
	{"next weekend", func(today time.Time) time.Time { return thisWeekend(today).AddDate(0, 0, 7) }},
	{"end of month", endOfMonth},
	{"next month", nextMonth},
	{"this week", endOfWeek},
	{"next week", daysAhead(7)},
	{"today", daysAhead(0)},
	{"tomorrow", daysAhead(1)},
	{"yesterday", daysAhead(-1)},
}

func keywordPhrases() []string {
	phrases := make([]string, len(keywordRules))
	for i, r := range keywordRules {
		phrases[i] = r.phrase
	}
	return phrases
}

func keywordRuleFor(phrase string) (keywordRule, bool) {
	for _, r := range keywordRules {
		if r.phrase == phrase {
			return r, true
		}
	}
	return keywordRule{}, false
}

func daysAhead(n int) func(time.Time) time.Time {
	return func(today time.Time) time.Time {
		return today.AddDate(0, 0, n)
	}
}

// thisWeekend is the coming Saturday, today when today is Saturday.
func thisWeekend(today time.Time) time.Time {
	ahead := (int(time.Saturday) - int(today.Weekday()) + 7) % 7
	return today.AddDate(0, 0, ahead)
}

// endOfWeek is the coming Sunday, today when today is Sunday.
func endOfWeek(today time.Time) time.Time {
	ahead := (7 - int(today.Weekday())) % 7
	return today.AddDate(0, 0, ahead)
}

func endOfMonth(today time.Time) time.Time {
	first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
	return first.AddDate(0, 1, -1)
}

// nextMonth keeps the day of month, clamped to the length of the next month.
func nextMonth(today time.Time) time.Time {
	first := time.Date(today.Year(), today.Month()+1, 1, 0, 0, 0, 0, today.Location())
	day := today.Day()
	if last := daysIn(first.Year(), first.Month()); day > last {
		day = last
	}
	return first.AddDate(0, 0, day-1)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

var weekdayByPrefix = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

var monthByPrefix = map[string]time.Month{
	"jan": time.January,
	"feb": time.February,
	"mar": time.March,
	"apr": time.April,
	"may": time.May,
	"jun": time.June,
	"jul": time.July,
	"aug": time.August,
	"sep": time.September,
	"oct": time.October,
	"nov": time.November,
	"dec": time.December,
}
