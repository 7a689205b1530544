package domain

import (
	"errors"
	"testing"
	"time"
)

func TestParseDurationMinutes(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"90", 90},
		{" 45 ", 45},
		{"2h", 120},
		{"45m", 45},
		{"1h30m", 90},
		{"1H30M", 90},
		{"1h 30m", 90},
	}
	for _, c := range cases {
		got, err := ParseDurationMinutes(c.in)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("%q: want %d, got %d", c.in, c.want, got)
		}
	}
}

func TestParseDurationMinutes_Errors(t *testing.T) {
	if _, err := ParseDurationMinutes("  "); !errors.Is(err, ErrEmptyDuration) {
		t.Fatalf("want ErrEmptyDuration, got %v", err)
	}
	for _, in := range []string{"abc", "0", "h30"} {
		if _, err := ParseDurationMinutes(in); !errors.Is(err, ErrInvalidDuration) {
			t.Fatalf("%q: want ErrInvalidDuration, got %v", in, err)
		}
	}
	if _, err := ParseDurationMinutes("50000h"); !errors.Is(err, ErrDurationTooLong) {
		t.Fatalf("want ErrDurationTooLong, got %v", err)
	}
}

func TestParseClock(t *testing.T) {
	got, err := ParseClock("09:30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 9*60+30 {
		t.Fatalf("want 570, got %d", got)
	}

	for _, in := range []string{"930", "24:00", "12:60", "ab:cd", "12:30:00"} {
		if _, err := ParseClock(in); err == nil {
			t.Fatalf("%q: expected error", in)
		}
	}
}

func TestLocalInstant(t *testing.T) {
	date, err := ParseDate("10.01.2024")
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}

	// 09:00 in Moscow is 06:00 UTC.
	got, err := LocalInstant(date, 9*60, "Europe/Moscow")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2024, time.January, 10, 6, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("want %v, got %v", want, got.UTC())
	}

	if _, err := LocalInstant(date, 9*60, "Mars/Olympus"); err == nil {
		t.Fatal("expected error for unknown zone")
	}
}

func TestValidateTZ(t *testing.T) {
	tz, err := ValidateTZ("Europe/Moscow")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tz != "Europe/Moscow" {
		t.Fatalf("want Europe/Moscow, got %s", tz)
	}
	if _, err := ValidateTZ("Neverland"); err == nil {
		t.Fatal("expected error")
	}
}

func TestLocalizeTime(t *testing.T) {
	instant := time.Date(2024, time.January, 10, 6, 0, 0, 0, time.UTC)
	if got := LocalizeTime(instant, "Europe/Moscow"); got != "10.01.2024 09:00" {
		t.Fatalf("got %s", got)
	}
	// Unknown zone falls back to UTC rather than failing a render.
	if got := LocalizeTime(instant, "bogus"); got != "10.01.2024 06:00" {
		t.Fatalf("got %s", got)
	}
	if got := LocalizeClock(instant, "Europe/Moscow"); got != "09:00" {
		t.Fatalf("got %s", got)
	}
}

func TestFormatMinutes(t *testing.T) {
	cases := map[int]string{
		0:   "0m",
		45:  "45m",
		60:  "1h",
		135: "2h 15m",
		-5:  "0m",
	}
	for in, want := range cases {
		if got := FormatMinutes(in); got != want {
			t.Fatalf("%d: want %s, got %s", in, want, got)
		}
	}
}
