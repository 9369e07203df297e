// Package timeparse turns free-text date and time expressions into calendar
// values. All functions are pure; absence is signaled with an ok boolean.
package timeparse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Wire formats used across the assistant for dates and wall-clock times.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

var weekdayNames = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

var (
	slashDatePattern = regexp.MustCompile(`(\d{1,2})[/-](\d{1,2})[/-](\d{2,4})`)
	isoDatePattern   = regexp.MustCompile(`(\d{4})-(\d{1,2})-(\d{1,2})`)

	clockPattern    = regexp.MustCompile(`(\d{1,2}):(\d{2})\s*([ap]m)?`)
	meridiemPattern = regexp.MustCompile(`(\d{1,2})\s*([ap]m)`)
	dottedPattern   = regexp.MustCompile(`(\d{1,2})\.(\d{2})`)
)

// namedTimes maps coarse time-of-day keywords to a fixed wall-clock time.
// Order matters: "afternoon" must be checked before "noon".
var namedTimes = []struct {
	keyword string
	value   string
}{
	{"morning", "09:00"},
	{"afternoon", "14:00"},
	{"evening", "18:00"},
	{"noon", "12:00"},
	{"midnight", "00:00"},
}

// mondayIndexed returns the weekday with Monday as 0 and Sunday as 6.
func mondayIndexed(d time.Weekday) int {
	return (int(d) + 6) % 7
}

// ParseRelativeDate resolves expressions like "tomorrow", "next week", a bare
// weekday name, or a literal date against base, returning YYYY-MM-DD. A
// weekday matching base's own weekday rolls forward a full week. It reports
// ok=false when nothing in the text resolves to a valid date.
func ParseRelativeDate(text string, base time.Time) (string, bool) {
	t := strings.ToLower(strings.TrimSpace(text))

	switch {
	case strings.Contains(t, "today"):
		return base.Format(DateLayout), true
	case strings.Contains(t, "tomorrow"):
		return base.AddDate(0, 0, 1).Format(DateLayout), true
	case strings.Contains(t, "yesterday"):
		return base.AddDate(0, 0, -1).Format(DateLayout), true
	case strings.Contains(t, "next week"):
		// Next Monday relative to base.
		return base.AddDate(0, 0, 7-mondayIndexed(base.Weekday())).Format(DateLayout), true
	case strings.Contains(t, "this week"):
		if base.Weekday() == time.Sunday {
			return base.AddDate(0, 0, 1).Format(DateLayout), true
		}
		return base.Format(DateLayout), true
	}

	for i, name := range weekdayNames {
		if strings.Contains(t, name) {
			ahead := i - mondayIndexed(base.Weekday())
			if ahead <= 0 {
				// Already happened this week, take the next occurrence.
				ahead += 7
			}
			return base.AddDate(0, 0, ahead).Format(DateLayout), true
		}
	}

	if m := slashDatePattern.FindStringSubmatch(t); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if len(m[3]) == 2 {
			year += 2000
		}
		if s, ok := buildDate(year, month, day); ok {
			return s, true
		}
	}
	if m := isoDatePattern.FindStringSubmatch(t); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if s, ok := buildDate(year, month, day); ok {
			return s, true
		}
	}

	return "", false
}

func buildDate(year, month, day int) (string, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return "", false
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow (e.g. Feb 30 becomes Mar 1); reject it.
	if d.Year() != year || int(d.Month()) != month || d.Day() != day {
		return "", false
	}
	return d.Format(DateLayout), true
}

// ContainsDateLike reports whether the text mentions something shaped like a
// date, even when it does not resolve to a valid one.
func ContainsDateLike(text string) bool {
	t := strings.ToLower(text)
	for _, kw := range []string{"today", "tomorrow", "yesterday", "next week", "this week"} {
		if strings.Contains(t, kw) {
			return true
		}
	}
	for _, name := range weekdayNames {
		if strings.Contains(t, name) {
			return true
		}
	}
	return slashDatePattern.MatchString(t) || isoDatePattern.MatchString(t)
}

// ParseTimeExpression normalizes a time expression to 24-hour HH:MM. It tries
// H:MM[am|pm], then H[am|pm], then H.MM, then the fixed keyword map. Hours
// over 23 or minutes over 59 are rejected.
func ParseTimeExpression(text string) (string, bool) {
	t := strings.ToLower(strings.TrimSpace(text))

	if m := clockPattern.FindStringSubmatch(t); m != nil {
		if s, ok := buildTime(m[1], m[2], m[3]); ok {
			return s, true
		}
	}
	if m := meridiemPattern.FindStringSubmatch(t); m != nil {
		if s, ok := buildTime(m[1], "0", m[2]); ok {
			return s, true
		}
	}
	if m := dottedPattern.FindStringSubmatch(t); m != nil {
		if s, ok := buildTime(m[1], m[2], ""); ok {
			return s, true
		}
	}

	for _, nt := range namedTimes {
		if strings.Contains(t, nt.keyword) {
			return nt.value, true
		}
	}

	return "", false
}

func buildTime(hourStr, minuteStr, meridiem string) (string, bool) {
	hour, _ := strconv.Atoi(hourStr)
	minute, _ := strconv.Atoi(minuteStr)

	switch meridiem {
	case "pm":
		if hour != 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}

	if hour > 23 || minute > 59 {
		return "", false
	}
	return fmt.Sprintf("%02d:%02d", hour, minute), true
}

// preferenceRanges maps coarse preference labels to business-hours windows.
var preferenceRanges = map[string][2]string{
	"morning":         {"09:00", "12:00"},
	"afternoon":       {"12:00", "17:00"},
	"evening":         {"17:00", "20:00"},
	"late morning":    {"10:00", "12:00"},
	"early afternoon": {"12:00", "15:00"},
	"late afternoon":  {"15:00", "17:00"},
}

// PreferenceRange returns the (start, end) window for a coarse time
// preference, defaulting to full business hours for unknown labels.
func PreferenceRange(label string) (string, string) {
	if r, ok := preferenceRanges[strings.ToLower(label)]; ok {
		return r[0], r[1]
	}
	return "09:00", "17:00"
}

// MinuteOfDay converts an HH:MM string to minutes since midnight.
func MinuteOfDay(clock string) (int, error) {
	t, err := time.Parse(TimeLayout, clock)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", clock, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// ClockString renders minutes since midnight as HH:MM.
func ClockString(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// FormatDuration renders a minute count for humans, e.g. "1 hour and 30
// minutes".
func FormatDuration(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%d minutes", minutes)
	}
	hours := minutes / 60
	rest := minutes % 60
	unit := "hour"
	if hours > 1 {
		unit = "hours"
	}
	if rest == 0 {
		return fmt.Sprintf("%d %s", hours, unit)
	}
	return fmt.Sprintf("%d %s and %d minutes", hours, unit, rest)
}

// FormatDisplayDate renders a YYYY-MM-DD date as "Monday, January 02" for
// user-facing responses, falling back to the raw string when it fails to
// parse.
func FormatDisplayDate(date string) string {
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return date
	}
	return d.Format("Monday, January 02")
}

// IsBusinessDay reports whether the date falls on Monday through Friday.
// Malformed dates are not business days.
func IsBusinessDay(date string) bool {
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return false
	}
	wd := d.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// NextBusinessDay returns the first weekday strictly after the given date.
func NextBusinessDay(date string) (string, error) {
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: %w", date, err)
	}
	for {
		d = d.AddDate(0, 0, 1)
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			return d.Format(DateLayout), nil
		}
	}
}
