package scheduler

import (
	"testing"
	"time"
)

func zurich(t *testing.T, y int, m time.Month, d, hh, mm int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation(DefaultZone)
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	return time.Date(y, m, d, hh, mm, 0, 0, loc)
}

func mustDefault(t *testing.T) *Schedule {
	t.Helper()
	s, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestNextTrigger(t *testing.T) {
	s := mustDefault(t)
	cases := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"morning", zurich(t, 2025, 3, 10, 7, 0), zurich(t, 2025, 3, 10, 12, 30)},
		{"evening rolls to next day", zurich(t, 2025, 3, 10, 19, 0), zurich(t, 2025, 3, 11, 0, 30)},
		{"just before first", zurich(t, 2025, 3, 10, 0, 29), zurich(t, 2025, 3, 10, 0, 30)},
		{"exact trigger is not next", zurich(t, 2025, 3, 10, 6, 30), zurich(t, 2025, 3, 10, 12, 30)},
		{"year end", zurich(t, 2025, 12, 31, 23, 59), zurich(t, 2026, 1, 1, 0, 30)},
	}
	for _, tc := range cases {
		if got := s.Next(tc.now); !got.Equal(tc.want) {
			t.Fatalf("%s: want=%s got=%s", tc.name, tc.want, got)
		}
	}
}

func TestNextTriggerFromUTCInput(t *testing.T) {
	s := mustDefault(t)
	now := zurich(t, 2025, 7, 1, 19, 0).UTC()
	if got, want := s.Next(now), zurich(t, 2025, 7, 2, 0, 30); !got.Equal(want) {
		t.Fatalf("Next(utc): want=%s got=%s", want, got)
	}
}

func TestPreviousAndProgress(t *testing.T) {
	s := mustDefault(t)
	now := zurich(t, 2025, 3, 10, 9, 30)
	if got, want := s.Previous(now), zurich(t, 2025, 3, 10, 6, 30); !got.Equal(want) {
		t.Fatalf("Previous: want=%s got=%s", want, got)
	}
	if p := s.Progress(now); p < 179.99 || p > 180.01 {
		t.Fatalf("Progress: want=180 got=%f", p)
	}
	if p := s.Progress(zurich(t, 2025, 3, 10, 6, 30)); p != 0 {
		t.Fatalf("Progress at trigger: want=0 got=%f", p)
	}
	if got, want := s.Previous(zurich(t, 2025, 3, 10, 0, 10)), zurich(t, 2025, 3, 9, 18, 30); !got.Equal(want) {
		t.Fatalf("Previous(after midnight): want=%s got=%s", want, got)
	}
}

func TestCountdownNeverNegative(t *testing.T) {
	s := mustDefault(t)
	c := s.Countdown(zurich(t, 2025, 3, 10, 0, 29))
	if c.RemainingSeconds != 60 || c.Hours != 0 || c.Minutes != 1 || c.Seconds != 0 {
		t.Fatalf("Countdown: unexpected %+v", c)
	}
	for _, now := range []time.Time{zurich(t, 2025, 3, 10, 12, 30), zurich(t, 2025, 3, 30, 2, 30)} {
		if r := s.Remaining(now); r <= 0 {
			t.Fatalf("Remaining(%s): want positive got %s", now, r)
		}
	}
}

func TestParseClocksAndCustomTriggers(t *testing.T) {
	clocks, err := ParseClocks([]string{"18:30", " 06:30", ""})
	if err != nil {
		t.Fatalf("ParseClocks: %v", err)
	}
	s, err := New("UTC", clocks...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if tr := s.Triggers(); len(tr) != 2 || tr[0] != (Clock{6, 30}) {
		t.Fatalf("Triggers: unexpected %v", tr)
	}
	if _, err := ParseClocks([]string{"0630"}); err == nil {
		t.Fatalf("ParseClocks(bad): expected error")
	}
	if _, err := New("UTC", Clock{24, 0}); err == nil {
		t.Fatalf("New(bad clock): expected error")
	}
}
