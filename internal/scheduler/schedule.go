// Package scheduler computes the fixed auto-assignment trigger instants.
package scheduler

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

const DefaultZone = "Europe/Zurich"

// Clock is a wall-clock time of day in the schedule's zone.
type Clock struct {
	Hour   int
	Minute int
}

func (c Clock) String() string { return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute) }

// DefaultTriggers are the four daily auto-assignment instants.
var DefaultTriggers = []Clock{{0, 30}, {6, 30}, {12, 30}, {18, 30}}

type Schedule struct {
	loc      *time.Location
	triggers []Clock
}

// New builds a schedule in zone. With no triggers it uses DefaultTriggers.
func New(zone string, triggers ...Clock) (*Schedule, error) {
	zone = strings.TrimSpace(zone)
	if zone == "" {
		zone = DefaultZone
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("load zone %q: %w", zone, err)
	}
	if len(triggers) == 0 {
		triggers = DefaultTriggers
	}
	ts := make([]Clock, 0, len(triggers))
	seen := map[Clock]bool{}
	for _, c := range triggers {
		if c.Hour < 0 || c.Hour > 23 || c.Minute < 0 || c.Minute > 59 {
			return nil, fmt.Errorf("invalid trigger %s", c)
		}
		if !seen[c] {
			seen[c] = true
			ts = append(ts, c)
		}
	}
	sort.Slice(ts, func(i, j int) bool {
		if ts[i].Hour != ts[j].Hour {
			return ts[i].Hour < ts[j].Hour
		}
		return ts[i].Minute < ts[j].Minute
	})
	return &Schedule{loc: loc, triggers: ts}, nil
}

// ParseClocks parses "HH:MM" entries.
func ParseClocks(list []string) ([]Clock, error) {
	out := make([]Clock, 0, len(list))
	for _, raw := range list {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		h, m, ok := strings.Cut(raw, ":")
		if !ok {
			return nil, fmt.Errorf("trigger %q: want HH:MM", raw)
		}
		hh, err1 := strconv.Atoi(h)
		mm, err2 := strconv.Atoi(m)
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("trigger %q: want HH:MM", raw)
		}
		out = append(out, Clock{Hour: hh, Minute: mm})
	}
	return out, nil
}

func (s *Schedule) Location() *time.Location { return s.loc }

func (s *Schedule) Triggers() []Clock {
	out := make([]Clock, len(s.triggers))
	copy(out, s.triggers)
	return out
}

func (s *Schedule) at(day time.Time, c Clock) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), c.Hour, c.Minute, 0, 0, s.loc)
}

// Next is the smallest trigger instant strictly after now.
func (s *Schedule) Next(now time.Time) time.Time {
	local := now.In(s.loc)
	for offset := 0; offset <= 2; offset++ {
		day := local.AddDate(0, 0, offset)
		for _, c := range s.triggers {
			if t := s.at(day, c); t.After(now) {
				return t
			}
		}
	}
	return s.at(local.AddDate(0, 0, 1), s.triggers[0])
}

// Previous is the latest trigger instant at or before now: the start of the
// current window.
func (s *Schedule) Previous(now time.Time) time.Time {
	local := now.In(s.loc)
	for offset := 0; offset >= -2; offset-- {
		day := local.AddDate(0, 0, offset)
		for i := len(s.triggers) - 1; i >= 0; i-- {
			if t := s.at(day, s.triggers[i]); !t.After(now) {
				return t
			}
		}
	}
	return s.at(local.AddDate(0, 0, -1), s.triggers[len(s.triggers)-1])
}

// Remaining is the time until Next, never negative.
func (s *Schedule) Remaining(now time.Time) time.Duration {
	d := s.Next(now).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// Progress is the elapsed share of the current window in degrees, in [0, 360).
func (s *Schedule) Progress(now time.Time) float64 {
	prev, next := s.Previous(now), s.Next(now)
	window := next.Sub(prev)
	if window <= 0 {
		return 0
	}
	deg := float64(now.Sub(prev)) / float64(window) * 360
	if deg < 0 {
		return 0
	}
	if deg >= 360 {
		return 0
	}
	return deg
}

type Countdown struct {
	Now              time.Time `json:"now"`
	Previous         time.Time `json:"previous"`
	Next             time.Time `json:"next"`
	Zone             string    `json:"zone"`
	RemainingSeconds int64     `json:"remaining_seconds"`
	Hours            int64     `json:"hours"`
	Minutes          int64     `json:"minutes"`
	Seconds          int64     `json:"seconds"`
	ProgressDegrees  float64   `json:"progress_degrees"`
}

func (s *Schedule) Countdown(now time.Time) Countdown {
	rem := s.Remaining(now)
	secs := int64(rem / time.Second)
	return Countdown{
		Now:              now.In(s.loc),
		Previous:         s.Previous(now),
		Next:             s.Next(now),
		Zone:             s.loc.String(),
		RemainingSeconds: secs,
		Hours:            secs / 3600,
		Minutes:          (secs % 3600) / 60,
		Seconds:          secs % 60,
		ProgressDegrees:  s.Progress(now),
	}
}
