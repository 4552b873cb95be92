package quickadd

import (
	"testing"
	"time"
)

var testNow = time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)

func cleanWith(p *QuickAddParser, text string, res resolution) string {
	return p.cleanTitle(text, p.patterns.scanEntities(text), res)
}

func newInternalParser() *QuickAddParser {
	return New(
		WithClock(func() time.Time { return testNow }),
		WithLocation(time.UTC),
		WithNaturalLanguage(false),
	)
}

// =============================================================================
// Time Extraction Tests (quick-add-time)
// =============================================================================

func TestExtractTime(t *testing.T) {
	tests := []struct {
		input  string
		want   TimeOfDay
		wantOK bool
	}{
		{"at 2:30pm", TimeOfDay{14, 30}, true},
		{"lunch at 12pm", TimeOfDay{12, 0}, true},
		{"at 12am", TimeOfDay{0, 0}, true},
		{"at 12:15am", TimeOfDay{0, 15}, true},
		{"at 17:00", TimeOfDay{17, 0}, true},
		{"AT 9AM", TimeOfDay{9, 0}, true},
		{"at 7 pm", TimeOfDay{19, 0}, true},
		{"at 5", TimeOfDay{5, 0}, true},
		{"at 13pm", TimeOfDay{}, false},
		{"at 25", TimeOfDay{}, false},
		{"at 10:75", TimeOfDay{}, false},
		{"at home", TimeOfDay{}, false},
		{"bat 5pm", TimeOfDay{}, false},
		{"no time here", TimeOfDay{}, false},
	}

	p := newInternalParser()
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := p.ExtractTime(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ExtractTime(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("ExtractTime(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestStampDefaultsToEndOfDay(t *testing.T) {
	p := newInternalParser()
	day := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	got, used := p.stamp(day, "no clock")
	if used {
		t.Error("stamp reported a typed time for text without one")
	}
	if want := time.Date(2025, 7, 1, 23, 59, 59, 0, time.UTC); !got.Equal(want) {
		t.Errorf("stamp = %v, want %v", got, want)
	}

	got, used = p.stamp(day, "at 8:05am")
	if !used {
		t.Error("stamp ignored the typed time")
	}
	if want := time.Date(2025, 7, 1, 8, 5, 59, 0, time.UTC); !got.Equal(want) {
		t.Errorf("stamp = %v, want %v", got, want)
	}
}

// =============================================================================
// Vocabulary Tests (quick-add-vocabulary)
// =============================================================================

func TestVocabularyFind(t *testing.T) {
	keywords := newVocabulary(keywordPhrases())
	weekdays := newVocabulary([]string{"monday", "mon", "tues", "tue", "sun"})

	tests := []struct {
		name   string
		vocab  *vocabulary
		input  string
		want   string
		wantOK bool
	}{
		{"longest at same offset", keywords, "review this weekend", "this weekend", true},
		{"leftmost wins", keywords, "plan next week or tomorrow", "next week", true},
		{"containing phrase starts first", keywords, "sort later this week", "later this week", true},
		{"day after tomorrow", keywords, "pack day after tomorrow", "day after tomorrow", true},
		{"word boundary", keywords, "todays news", "", false},
		{"abbreviation", weekdays, "gym mon", "mon", true},
		{"inside a word", weekdays, "monthly sunset", "", false},
		{"full name", weekdays, "gym monday", "monday", true},
		{"punctuation is a boundary", weekdays, "gym (tue)", "tue", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.vocab.find(normalizeForMatch(tt.input))
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("find(%q) = %q, %v; want %q, %v", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestNormalizeForMatch(t *testing.T) {
	if got := normalizeForMatch("  Next \t WEEK  "); got != "next week" {
		t.Errorf("normalizeForMatch = %q, want %q", got, "next week")
	}
}

// =============================================================================
// Calendar Rule Tests (quick-add-calendar)
// =============================================================================

func TestKeywordCalendarRules(t *testing.T) {
	day := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

	tests := []struct {
		name string
		got  time.Time
		want time.Time
	}{
		{"weekend from saturday", thisWeekend(day(2025, 7, 5)), day(2025, 7, 5)},
		{"weekend from sunday", thisWeekend(day(2025, 7, 6)), day(2025, 7, 12)},
		{"end of week from sunday", endOfWeek(day(2025, 7, 6)), day(2025, 7, 6)},
		{"end of february leap", endOfMonth(day(2024, 2, 10)), day(2024, 2, 29)},
		{"end of december", endOfMonth(day(2025, 12, 1)), day(2025, 12, 31)},
		{"next month clamps", nextMonth(day(2025, 1, 31)), day(2025, 2, 28)},
		{"next month over year", nextMonth(day(2025, 12, 15)), day(2026, 1, 15)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.got.Equal(tt.want) {
				t.Errorf("got %v, want %v", tt.got.Format("2006-01-02"), tt.want.Format("2006-01-02"))
			}
		})
	}
}

func TestCalendarDayRejectsOverflow(t *testing.T) {
	if _, ok := calendarDay(2025, time.June, 31, time.UTC); ok {
		t.Error("calendarDay accepted June 31")
	}
	if _, ok := calendarDay(2025, time.Month(13), 1, time.UTC); ok {
		t.Error("calendarDay accepted month 13")
	}
	if _, ok := calendarDay(2024, time.February, 29, time.UTC); !ok {
		t.Error("calendarDay rejected 2024-02-29")
	}
}

// =============================================================================
// Strategy Chain Tests (quick-add-strategy-chain)
// =============================================================================

func TestResolveDueDateStrategyOrder(t *testing.T) {
	tests := []struct {
		input    string
		strategy string
	}{
		{"call tomorrow", "keyword"},
		{"tomorrow friday", "keyword"},
		{"gym friday in 3 days", "weekday"},
		{"renew in 3 days 15th", "relative"},
		{"pay 15th 01/08/2025", "ordinal"},
		{"dentist 01/08/2025", "numeric"},
		{"dentist 2025-08-01", "numeric"},
		{"party july 12", "month-name"},
		{"nothing here", ""},
	}

	p := newInternalParser()
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			res := p.resolveDueDate(tt.input, testNow)
			if res.strategy != tt.strategy {
				t.Errorf("strategy = %q, want %q", res.strategy, tt.strategy)
			}
			if res.resolved != (tt.strategy != "") {
				t.Errorf("resolved = %v", res.resolved)
			}
		})
	}
}

func TestResolveDueDateNaturalLanguageFirst(t *testing.T) {
	tests := []struct {
		input    string
		strategy string
		due      string
	}{
		{"tomorrow", "natural-language", "2025-07-01T23:59:59Z"},
		{"next friday", "natural-language", "2025-07-04T23:59:59Z"},
		// The weekday strategy alone would give today.
		{"monday", "natural-language", "2025-07-07T23:59:59Z"},
		{"call tomorrow", "keyword", "2025-07-01T23:59:59Z"},
		// Calendar dates go to the numeric and month-name strategies, so
		// a day that does not exist in the current month cannot roll over.
		{"17/02/2025", "numeric", "2025-02-17T23:59:59Z"},
		{"february 10", "month-name", "2025-02-10T23:59:59Z"},
		{"now", "", ""},
	}

	p := New(WithClock(func() time.Time { return testNow }), WithLocation(time.UTC))
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			res := p.resolveDueDate(tt.input, testNow)
			if res.strategy != tt.strategy {
				t.Errorf("strategy = %q, want %q", res.strategy, tt.strategy)
			}
			if tt.due == "" {
				if res.resolved {
					t.Errorf("resolved to %s, want no date", res.due.Format(time.RFC3339))
				}
				return
			}
			if got := res.due.Format(time.RFC3339); got != tt.due {
				t.Errorf("due = %s, want %s", got, tt.due)
			}
		})
	}
}

func TestResolveInHoursIsExact(t *testing.T) {
	p := newInternalParser()
	res := p.resolveDueDate("deploy in 3 hours at 9pm", testNow)

	if want := testNow.Add(3 * time.Hour); !res.due.Equal(want) {
		t.Errorf("due = %v, want %v", res.due, want)
	}
	if res.timeUsed {
		t.Error("hour offset should not take a typed time")
	}
}

func TestStrategiesWithoutNaturalLanguage(t *testing.T) {
	p := newInternalParser()
	for _, s := range p.strategies {
		if s.name == "natural-language" {
			t.Fatal("natural-language strategy present while disabled")
		}
	}
	if len(p.strategies) != 6 {
		t.Errorf("len(strategies) = %d, want 6", len(p.strategies))
	}

	withNL := New(WithClock(func() time.Time { return testNow }))
	if withNL.strategies[0].name != "natural-language" {
		t.Errorf("first strategy = %q, want natural-language", withNL.strategies[0].name)
	}
}

// =============================================================================
// Title Cleaner Tests (quick-add-clean)
// =============================================================================

func TestCleanTitleKeepsUnattributedTime(t *testing.T) {
	p := newInternalParser()

	if got := cleanWith(p, "Meet at 5pm *work", resolution{}); got != "Meet at 5pm" {
		t.Errorf("cleanTitle = %q, want %q", got, "Meet at 5pm")
	}

	res := resolution{resolved: true, timeUsed: true}
	if got := cleanWith(p, "Meet tomorrow at 5pm", res); got != "Meet" {
		t.Errorf("cleanTitle = %q, want %q", got, "Meet")
	}
}

func TestCleanTitleWholeText(t *testing.T) {
	p := newInternalParser()
	if got := cleanWith(p, "next tuesday", resolution{resolved: true, wholeText: true}); got != "" {
		t.Errorf("cleanTitle = %q, want empty", got)
	}
}

func TestCleanTitlePhraseOrder(t *testing.T) {
	p := newInternalParser()
	res := resolution{resolved: true}

	tests := map[string]string{
		"Trip this weekend":              "Trip",
		"Sort later next week":           "Sort",
		"Go day after tomorrow":          "Go",
		"Party june 15th":                "Party",
		"Call next   monday":             "Call",
		"Budget for the month":           "Budget for the month",
		"Fix in 2 days, then log":        "Fix , then log",
		"Plan this weekend or next week": "Plan or",
		"Buy sun cream tomorrow":         "Buy cream",
	}
	for in, want := range tests {
		if got := cleanWith(p, in, res); got != want {
			t.Errorf("cleanTitle(%q) = %q, want %q", in, got, want)
		}
	}
}
