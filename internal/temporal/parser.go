// Package temporal converts free text into a concrete date/time/duration
// decision for calendar scheduling.
//
// The parser resolves, in order:
//
//	all-day keywords → explicit dates → relative dates → time of day →
//	smart default time by context → duration
//
// It is a pure function of the input text and the supplied reference time;
// it never fails — anything it cannot extract falls back to a stated default.
package temporal

import (
	"regexp"
	"strings"
	"time"
)

// Result is either an all-day date or a timed start/end span. Exactly one
// form is populated: AllDay selects which.
type Result struct {
	AllDay bool

	// All-day form: midnight of the event date in the parser's location.
	Date time.Time

	// Timed form. End is always strictly after Start.
	Start time.Time
	End   time.Time

	// DurationHours is the resolved event length for timed results.
	DurationHours float64
}

// Parser turns free text into a Result relative to a reference time.
type Parser struct {
	loc *time.Location
}

// NewParser creates a parser that resolves dates and times in loc.
func NewParser(loc *time.Location) *Parser {
	if loc == nil {
		loc = time.Local
	}
	return &Parser{loc: loc}
}

// Location returns the parser's timezone.
func (p *Parser) Location() *time.Location { return p.loc }

// Keyword tables. Matching is case-insensitive substring containment.
var (
	allDayKeywords = []string{
		"all day", "full day", "entire day", "whole day",
		"trip", "vacation", "holiday", "day off",
		"birthday", "anniversary", "visit",
	}

	// Presence of any of these marks the text as a timed event even when no
	// explicit clock time was written.
	timeContextKeywords = []string{
		"meeting", "call", "conference", "presentation",
		"breakfast", "lunch", "dinner", "coffee",
		"movie", "show", "party", "gym", "workout",
	}

	morningKeywords   = []string{"breakfast", "morning", "early", "sunrise", "gym", "workout", "jog", "coffee"}
	afternoonKeywords = []string{"lunch", "afternoon", "matinee", "noon"}
	eveningKeywords   = []string{"dinner", "evening", "night", "drinks", "party", "movie", "show"}
	lateKeywords      = []string{"late", "midnight", "club", "bar"}
	workKeywords      = []string{"meeting", "call", "conference", "presentation", "review", "sync", "standup"}
)

var monthPattern = `(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sep(?:tember)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)`

var (
	reDayMonth    = regexp.MustCompile(`\b(\d{1,2})\s+` + monthPattern + `\b`)
	reMonthDay    = regexp.MustCompile(`\b` + monthPattern + `\s+(\d{1,2})\b`)
	reNumericDate = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})(?:[/-](\d{2,4}))?\b`)

	reTimeDetailed = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\s*(am|pm)\b`)
	reTimeSimple   = regexp.MustCompile(`\b(\d{1,2})\s*(am|pm)\b`)
	reTimeAt       = regexp.MustCompile(`at\s+(\d{1,2})(?::(\d{2}))?\s*(am|pm)\b`)
	reTime24h      = regexp.MustCompile(`\b([01]?[0-9]|2[0-3]):([0-5][0-9])\b`)

	reDurationHours   = regexp.MustCompile(`(\d+)\s*(?:hour|hr)`)
	reDurationMinutes = regexp.MustCompile(`(\d+)\s*min`)
)

var monthsByPrefix = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

var weekdaysByName = map[string]time.Weekday{
	"monday": time.Monday, "tuesday": time.Tuesday, "wednesday": time.Wednesday,
	"thursday": time.Thursday, "friday": time.Friday,
	"saturday": time.Saturday, "sunday": time.Sunday,
}

// weekdayOrder keeps weekday scanning deterministic.
var weekdayOrder = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// Parse resolves text against now. now is converted to the parser's location
// before any date arithmetic.
func (p *Parser) Parse(text string, now time.Time) Result {
	now = now.In(p.loc)
	lower := strings.ToLower(text)
	today := p.midnight(now)

	allDay := containsAny(lower, allDayKeywords)

	date, dateFound := p.parseDate(lower, today)
	if !dateFound {
		date = today
	}

	var (
		hour, minute int
		haveTime     bool
	)
	if !allDay {
		hour, minute, haveTime = parseClock(lower)
	}

	// No explicit time: either the text has time context (apply a smart
	// default) or it does not (treat as all-day).
	if !allDay && !haveTime {
		if containsAny(lower, timeContextKeywords) {
			hour, minute = smartDefaultTime(lower)
		} else {
			allDay = true
		}
	}

	if allDay {
		return Result{AllDay: true, Date: date}
	}

	durationHours := parseDuration(lower)
	start := time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, p.loc)
	end := start.Add(time.Duration(durationHours * float64(time.Hour)))
	return Result{Start: start, End: end, DurationHours: durationHours}
}

func (p *Parser) midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, p.loc)
}

// parseDate resolves the event date. Priority: explicit month-name dates,
// numeric dates, then relative keywords. Explicit dates without a year that
// land before today roll forward exactly one year.
func (p *Parser) parseDate(lower string, today time.Time) (time.Time, bool) {
	if m := reDayMonth.FindStringSubmatch(lower); m != nil {
		if d, ok := p.explicitDate(atoi(m[1]), monthsByPrefix[m[2][:3]], today); ok {
			return d, true
		}
	}
	if m := reMonthDay.FindStringSubmatch(lower); m != nil {
		if d, ok := p.explicitDate(atoi(m[2]), monthsByPrefix[m[1][:3]], today); ok {
			return d, true
		}
	}

	if m := reNumericDate.FindStringSubmatch(lower); m != nil {
		num1, num2 := atoi(m[1]), atoi(m[2])
		year, haveYear := 0, m[3] != ""
		if haveYear {
			year = atoi(m[3])
			if year < 100 {
				year += 2000
			}
		} else {
			year = today.Year()
		}
		// Day-first interpretation wins over month-first when both are valid.
		for _, try := range [][2]int{{num1, num2}, {num2, num1}} {
			day, month := try[0], try[1]
			d, ok := p.validDate(year, time.Month(month), day)
			if !ok {
				continue
			}
			if d.Before(today) && !haveYear {
				// Feb 29 may not exist next year; try the other
				// interpretation instead of returning a zero date.
				rolled, ok := p.validDate(year+1, time.Month(month), day)
				if !ok {
					continue
				}
				d = rolled
			}
			return d, true
		}
	}

	switch {
	case strings.Contains(lower, "today"):
		return today, true
	case strings.Contains(lower, "tomorrow"):
		return today.AddDate(0, 0, 1), true
	case strings.Contains(lower, "next week"):
		return today.AddDate(0, 0, 7), true
	}

	for _, name := range weekdayOrder {
		if !strings.Contains(lower, name) {
			continue
		}
		// Next occurrence strictly after today: a weekday name never means
		// the current day.
		ahead := (int(weekdaysByName[name]) - int(today.Weekday()) + 7) % 7
		if ahead == 0 {
			ahead = 7
		}
		return today.AddDate(0, 0, ahead), true
	}

	return time.Time{}, false
}

// explicitDate builds a month-name date in the current year, rolling forward
// one year when it has already passed.
func (p *Parser) explicitDate(day int, month time.Month, today time.Time) (time.Time, bool) {
	d, ok := p.validDate(today.Year(), month, day)
	if !ok {
		return time.Time{}, false
	}
	if d.Before(today) {
		d, ok = p.validDate(today.Year()+1, month, day)
	}
	return d, ok
}

// validDate constructs a date and rejects overflow (e.g. Feb 30, month 13).
func (p *Parser) validDate(year int, month time.Month, day int) (time.Time, bool) {
	if month < time.January || month > time.December || day < 1 || day > 31 {
		return time.Time{}, false
	}
	d := time.Date(year, month, day, 0, 0, 0, 0, p.loc)
	if d.Month() != month || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}

// parseClock extracts an explicit time of day. Patterns with minutes are
// tried before the bare "H am/pm" form so "2:30pm" resolves as 14:30 rather
// than a bogus match on "30pm".
func parseClock(lower string) (hour, minute int, ok bool) {
	if m := reTimeDetailed.FindStringSubmatch(lower); m != nil {
		return to24h(atoi(m[1]), m[3]), atoi(m[2]), true
	}
	if m := reTimeSimple.FindStringSubmatch(lower); m != nil {
		return to24h(atoi(m[1]), m[2]), 0, true
	}
	if m := reTimeAt.FindStringSubmatch(lower); m != nil {
		minute := 0
		if m[2] != "" {
			minute = atoi(m[2])
		}
		return to24h(atoi(m[1]), m[3]), minute, true
	}
	if m := reTime24h.FindStringSubmatch(lower); m != nil {
		return atoi(m[1]), atoi(m[2]), true
	}
	return 0, 0, false
}

// to24h applies standard noon/midnight conversion: 12am → 0, 12pm → 12,
// other pm hours +12.
func to24h(hour int, period string) int {
	switch {
	case period == "pm" && hour != 12:
		return hour + 12
	case period == "am" && hour == 12:
		return 0
	}
	return hour
}

// smartDefaultTime picks a default start time from event context. Category
// order matters: morning wins over afternoon wins over evening, etc.
func smartDefaultTime(lower string) (hour, minute int) {
	switch {
	case containsAny(lower, morningKeywords):
		return 9, 0
	case containsAny(lower, afternoonKeywords):
		return 13, 0
	case containsAny(lower, eveningKeywords):
		return 19, 0
	case containsAny(lower, lateKeywords):
		return 21, 0
	case containsAny(lower, workKeywords):
		return 10, 0
	}
	return 10, 0
}

// parseDuration returns the event length in hours, defaulting to 1.
func parseDuration(lower string) float64 {
	if m := reDurationHours.FindStringSubmatch(lower); m != nil {
		return float64(atoi(m[1]))
	}
	if m := reDurationMinutes.FindStringSubmatch(lower); m != nil {
		return float64(atoi(m[1])) / 60
	}
	return 1
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func atoi(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return n
		}
		n = n*10 + int(c-'0')
	}
	return n
}
