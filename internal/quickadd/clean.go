package quickadd

import (
	"regexp"
	"strings"
)

// cleanTitle strips every recognized fragment from text. The scanned entity
// matches are always cut out. The time fragment and date phrases are removed
// only when a due date was resolved.
func (p *QuickAddParser) cleanTitle(text string, found []entityMatch, res resolution) string {
	if res.wholeText {
		return ""
	}

	out := cutEntities(text, found)

	if res.resolved {
		if res.timeUsed {
			out = replaceFirst(p.patterns.timeOfDay, out)
		}
		for _, re := range p.patterns.datePhrases {
			out = re.ReplaceAllString(out, " ")
		}
	}

	return normalizeSpace(out)
}

// cutEntities replaces each match span with a space. found must be ordered
// and free of overlaps, as scanEntities returns it.
func cutEntities(text string, found []entityMatch) string {
	var b strings.Builder
	last := 0
	for _, m := range found {
		b.WriteString(text[last:m.start])
		b.WriteByte(' ')
		last = m.end
	}
	b.WriteString(text[last:])
	return b.String()
}

func replaceFirst(re *regexp.Regexp, s string) string {
	loc := re.FindStringIndex(s)
	if loc == nil {
		return s
	}
	return s[:loc[0]] + " " + s[loc[1]:]
}

// normalizeSpace collapses whitespace runs and trims the ends.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
