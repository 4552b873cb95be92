package quickadd

import (
	"strconv"
	"strings"
	"time"
)

// ExtractTime finds the first "at H[:MM][am|pm]" fragment in text and converts
// it to a 24-hour time. Input without am/pm is taken as 24-hour ("at 17:00").
func (p *QuickAddParser) ExtractTime(text string) (TimeOfDay, bool) {
	m := p.patterns.timeOfDay.FindStringSubmatch(text)
	if m == nil {
		return TimeOfDay{}, false
	}

	hour, err := strconv.Atoi(m[1])
	if err != nil {
		return TimeOfDay{}, false
	}
	minute := 0
	if m[2] != "" {
		if minute, err = strconv.Atoi(m[2]); err != nil {
			return TimeOfDay{}, false
		}
	}

	switch strings.ToLower(m[3]) {
	case "pm":
		if hour != 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}

	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return TimeOfDay{}, false
	}
	return TimeOfDay{Hour: hour, Minute: minute}, true
}

// stamp puts a calendar day at the time typed in text, or at 23:59:59 when no
// time was typed. Seconds are always :59. The second result reports whether a
// typed time was used.
func (p *QuickAddParser) stamp(day time.Time, text string) (time.Time, bool) {
	hour, minute := 23, 59
	tod, ok := p.ExtractTime(text)
	if ok {
		hour, minute = tod.Hour, tod.Minute
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 59, 0, day.Location()), ok
}
