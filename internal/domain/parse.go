package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	ErrEmptyDuration   = errors.New("empty duration")
	ErrInvalidDuration = errors.New("invalid duration")
	ErrDurationTooLong = errors.New("duration too long")
)

// maxEventMinutes caps event durations at 30 days.
const maxEventMinutes = 30 * 24 * 60

// ParseDurationMinutes parses human-friendly durations into minutes.
// Accepted forms: "90" (plain minutes), "2h", "45m", "1h30m".
func ParseDurationMinutes(s string) (int, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return 0, ErrEmptyDuration
	}

	var total int
	if isAllDigits(s) {
		total, _ = strconv.Atoi(s)
	} else {
		re := regexp.MustCompile(`(?i)(\d+)\s*h`)
		if mh := re.FindStringSubmatch(s); len(mh) == 2 {
			h, _ := strconv.Atoi(mh[1])
			total += h * 60
		}
		re = regexp.MustCompile(`(?i)(\d+)\s*m`)
		if mm := re.FindStringSubmatch(s); len(mm) == 2 {
			m, _ := strconv.Atoi(mm[1])
			total += m
		}
		if total == 0 {
			return 0, fmt.Errorf("%w: %s", ErrInvalidDuration, s)
		}
	}

	if total <= 0 {
		return 0, fmt.Errorf("%w: %s", ErrInvalidDuration, s)
	}
	if total > maxEventMinutes {
		return 0, fmt.Errorf("%w: max 30 days", ErrDurationTooLong)
	}
	return total, nil
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// ParseClock parses "HH:MM" into minutes since midnight.
func ParseClock(s string) (int, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, errors.New("expected HH:MM")
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, errors.New("invalid hour")
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, errors.New("invalid minute")
	}
	return h*60 + m, nil
}

// ParseDate parses "DD.MM.YYYY" into a date. The returned time carries only
// the year/month/day; combine it with a clock value via LocalInstant.
func ParseDate(s string) (time.Time, error) {
	return time.Parse("02.01.2006", strings.TrimSpace(s))
}

// LocalInstant builds an absolute instant from a date, minutes since midnight
// and an IANA zone name.
func LocalInstant(date time.Time, clockM int, tz string) (time.Time, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), clockM/60, clockM%60, 0, 0, loc), nil
}

// ValidateTZ checks that tz is a valid IANA location and returns its
// canonical name.
func ValidateTZ(tz string) (string, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return "", err
	}
	return loc.String(), nil
}

// LocalizeTime formats t in the given zone as "DD.MM.YYYY HH:MM".
// Falls back to UTC when the zone cannot be loaded.
func LocalizeTime(t time.Time, tz string) string {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}
	return t.In(loc).Format("02.01.2006 15:04")
}

// LocalizeClock formats t in the given zone as "HH:MM".
func LocalizeClock(t time.Time, tz string) string {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}
	return t.In(loc).Format("15:04")
}

// FormatMinutes renders a minute count as "2h 15m", "45m" or "0m".
func FormatMinutes(mins int) string {
	if mins < 0 {
		mins = 0
	}
	h := mins / 60
	m := mins % 60
	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case h > 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dm", m)
	}
}
