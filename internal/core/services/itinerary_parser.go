package services

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/custodia-labs/tripwise/internal/core/domain"
)

var (
	dayHeaderRe = regexp.MustCompile(`(?i)^day\s+(\d+)\b\s*([:.\-–—)]?)\s*(.*)$`)
	periodRe    = regexp.MustCompile(`(?i)^(morning|breakfast|lunch|afternoon|dinner|evening|night)\b(.*)$`)
	boldMarkers = strings.NewReplacer("**", "", "__", "")
)

var periodsByWord = map[string]domain.Period{
	"morning":   domain.PeriodMorning,
	"breakfast": domain.PeriodMorning,
	"lunch":     domain.PeriodAfternoon,
	"afternoon": domain.PeriodAfternoon,
	"dinner":    domain.PeriodEvening,
	"evening":   domain.PeriodEvening,
	"night":     domain.PeriodEvening,
}

// markdownLine is a line with its heading and emphasis markers removed.
type markdownLine struct {
	raw     string
	plain   string
	heading bool
	marked  bool
}

func readLine(line string) markdownLine {
	l := markdownLine{raw: strings.TrimSpace(line)}
	s := l.raw
	if strings.HasPrefix(s, "#") {
		s = strings.TrimLeft(s, "#")
		l.heading = true
		l.marked = true
	}
	s = strings.TrimSpace(s)
	for _, bullet := range []string{"- ", "* ", "+ "} {
		if strings.HasPrefix(s, bullet) {
			s = strings.TrimSpace(s[len(bullet):])
			break
		}
	}
	if strings.HasPrefix(s, "**") || strings.HasPrefix(s, "__") {
		l.marked = true
	}
	l.plain = strings.TrimSpace(boldMarkers.Replace(s))
	return l
}

// ParseItinerary splits a markdown itinerary into days and, within each
// day, time-of-day sections. Text without day headers becomes a single
// fallback day holding every line.
func ParseItinerary(markdown string) domain.ParsedItinerary {
	var (
		parsed  domain.ParsedItinerary
		day     *domain.DayPlan
		section *domain.TimeSection
		all     []string
	)

	closeDay := func() {
		if day != nil {
			parsed.Days = append(parsed.Days, *day)
		}
		day, section = nil, nil
	}

	for _, raw := range strings.Split(strings.ReplaceAll(markdown, "\r\n", "\n"), "\n") {
		l := readLine(raw)
		if l.raw == "" || isRule(l.raw) {
			continue
		}
		all = append(all, l.raw)

		if n, title, ok := parseDayHeader(l); ok {
			closeDay()
			day = &domain.DayPlan{Number: n, Title: title}
			continue
		}
		if day == nil {
			parsed.Preamble = append(parsed.Preamble, l.raw)
			continue
		}

		if period, heading, rest, ok := parsePeriod(l); ok {
			day.Sections = append(day.Sections, domain.TimeSection{Period: period, Heading: heading})
			section = &day.Sections[len(day.Sections)-1]
			if rest != "" {
				section.Lines = append(section.Lines, rest)
			}
			continue
		}
		if l.heading {
			day.Sections = append(day.Sections, domain.TimeSection{Period: domain.PeriodOther, Heading: l.plain})
			section = &day.Sections[len(day.Sections)-1]
			continue
		}

		if section != nil {
			section.Lines = append(section.Lines, l.raw)
		} else {
			day.Notes = append(day.Notes, l.raw)
		}
	}
	closeDay()

	if len(parsed.Days) == 0 {
		parsed.Preamble = nil
		parsed.Fallback = true
		parsed.Days = []domain.DayPlan{}
		if len(all) > 0 {
			parsed.Days = append(parsed.Days, domain.DayPlan{
				Number:   1,
				Sections: []domain.TimeSection{{Period: domain.PeriodOther, Lines: all}},
			})
		}
	}
	return parsed
}

// parseDayHeader recognises "Day N" lines. Unmarked prose such as
// "Day 2 will be busy" is not a header; a parenthesised title as in
// "Day 1 (Arrival)" is.
func parseDayHeader(l markdownLine) (int, string, bool) {
	m := dayHeaderRe.FindStringSubmatch(l.plain)
	if m == nil {
		return 0, "", false
	}
	sep, title := m[2], strings.TrimSpace(m[3])
	parenthesised := strings.HasPrefix(title, "(")
	if !l.marked && sep == "" && title != "" && !parenthesised {
		return 0, "", false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, "", false
	}
	if parenthesised {
		title = unwrapTitle(title)
	}
	return n, strings.TrimSpace(strings.TrimRight(title, ":")), true
}

// unwrapTitle turns "(Arrival)" into "Arrival" and "(Arrival): Belem"
// into "Arrival: Belem".
func unwrapTitle(title string) string {
	end := strings.IndexByte(title, ')')
	if end < 0 {
		return strings.TrimPrefix(title, "(")
	}
	inner := strings.TrimSpace(title[1:end])
	rest := strings.TrimSpace(strings.TrimLeft(title[end+1:], " :-–"))
	switch {
	case rest == "":
		return inner
	case inner == "":
		return rest
	}
	return inner + ": " + rest
}

// parsePeriod recognises time-of-day labels such as "### Morning",
// "**Lunch:** ramen at Ichiran" or "Evening (7pm): dinner cruise".
// It returns the label and any text following it.
func parsePeriod(l markdownLine) (domain.Period, string, string, bool) {
	m := periodRe.FindStringSubmatch(l.plain)
	if m == nil {
		return "", "", "", false
	}
	period := periodsByWord[strings.ToLower(m[1])]
	tail := m[2]

	label, rest, hasColon := splitLabel(tail)
	if !hasColon && !l.marked {
		trimmed := strings.TrimSpace(label)
		if trimmed != "" && !strings.HasPrefix(trimmed, "(") {
			return "", "", "", false
		}
	}
	heading := strings.TrimSpace(m[1] + label)
	return period, heading, strings.TrimSpace(rest), true
}

// splitLabel splits s at its first colon outside parentheses, so that
// "(9:00 AM): Louvre" yields "(9:00 AM)" and "Louvre".
func splitLabel(s string) (string, string, bool) {
	depth := 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ':':
			if depth == 0 {
				return s[:i], s[i+1:], true
			}
		}
	}
	return s, "", false
}

func isRule(line string) bool {
	if len(line) < 3 {
		return false
	}
	return strings.Trim(line, "-") == "" || strings.Trim(line, "*") == "" || strings.Trim(line, "_") == ""
}
