package recurrence

import (
	"errors"
	"testing"
	"time"
)

func TestCombine(t *testing.T) {
	t.Parallel()

	loc, err := time.LoadLocation("America/Bogota")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	got, err := Combine("2024-01-31", "13:45", loc)
	if err != nil {
		t.Fatalf("combine: %v", err)
	}
	want := time.Date(2024, time.January, 31, 13, 45, 0, 0, loc)
	if !got.Equal(want) {
		t.Fatalf("combine = %v, want %v", got, want)
	}
	if got.Location() != loc {
		t.Fatalf("combine location = %v, want %v", got.Location(), loc)
	}
}

func TestCombineRejectsBadInput(t *testing.T) {
	t.Parallel()

	cases := []struct{ date, clock string }{
		{"31-01-2024", "13:45"},
		{"2024-02-30", "13:45"},
		{"2024-01-31", "25:00"},
		{"2024-01-31", "half past one"},
		{"", "13:45"},
		{"2024-01-31", ""},
	}

	for _, tc := range cases {
		if _, err := Combine(tc.date, tc.clock, time.UTC); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("Combine(%q, %q) error = %v, want ErrInvalidInput", tc.date, tc.clock, err)
		}
	}
}

func TestAddOneMonthClamping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "2024-03-15T09:00:00Z", "2024-04-15T09:00:00Z"},
		{"jan 31 leap year", "2024-01-31T13:00:00Z", "2024-02-29T13:00:00Z"},
		{"jan 31 non-leap", "2023-01-31T13:00:00Z", "2023-02-28T13:00:00Z"},
		{"mar 31 into april", "2024-03-31T08:30:00Z", "2024-04-30T08:30:00Z"},
		{"dec into jan", "2024-12-31T23:59:00Z", "2025-01-31T23:59:00Z"},
		{"oct 31 into nov", "2024-10-31T06:00:00Z", "2024-11-30T06:00:00Z"},
	}

	for _, tc := range cases {
		in, _ := time.Parse(time.RFC3339, tc.in)
		want, _ := time.Parse(time.RFC3339, tc.want)
		got := AddOneMonth(in, time.UTC)
		if !got.Equal(want) {
			t.Errorf("%s: AddOneMonth(%v) = %v, want %v", tc.name, in, got, want)
		}
	}
}

// Repeated application must clamp at every step; a clamped day never
// resurrects the original day-of-month.
func TestAddOneMonthRepeated(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, time.January, 31, 13, 0, 0, 0, time.UTC)
	feb := AddOneMonth(start, time.UTC)
	mar := AddOneMonth(feb, time.UTC)

	if feb.Month() != time.February || feb.Day() != 29 {
		t.Fatalf("first step = %v, want 2024-02-29", feb)
	}
	if mar.Month() != time.March || mar.Day() != 29 {
		t.Fatalf("second step = %v, want 2024-03-29", mar)
	}
}

func TestAddOneMonthPreservesWallClock(t *testing.T) {
	t.Parallel()

	loc, err := time.LoadLocation("America/Bogota")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	in := time.Date(2024, time.May, 31, 13, 45, 0, 0, loc)
	got := AddOneMonth(in, loc)
	if got.Hour() != 13 || got.Minute() != 45 {
		t.Fatalf("wall clock changed: %v", got)
	}
	if got.Month() != time.June || got.Day() != 30 {
		t.Fatalf("AddOneMonth(%v) = %v, want June 30", in, got)
	}
}

func TestFormat(t *testing.T) {
	t.Parallel()

	in := time.Date(2024, time.January, 31, 18, 45, 0, 0, time.UTC)
	loc, err := time.LoadLocation("America/Bogota")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	if got := Format(in, loc, "2006-01-02 15:04"); got != "2024-01-31 13:45" {
		t.Fatalf("Format = %q", got)
	}
}
