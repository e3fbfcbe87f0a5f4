package scheduling

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ActivityStatusScheduled = "scheduled"
	ActivityStatusCancelled = "cancelled"
	ActivityStatusCompleted = "completed"

	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"

	// DurationTolerance is how far a stored duration may drift from end-start.
	DurationTolerance = 5 * time.Minute
)

// Activity is a bookable, time-boxed session. AssignedGMID is the legacy single-GM
// pointer; the ordered multi-GM links live in activity_assignment.
type Activity struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Title           string         `gorm:"column:title;not null" json:"title"`
	Description     string         `gorm:"column:description;type:text" json:"description,omitempty"`
	Date            string         `gorm:"column:date;type:varchar(10);not null;index" json:"date"`
	StartTime       string         `gorm:"column:start_time;type:varchar(5);not null" json:"start_time"`
	EndTime         string         `gorm:"column:end_time;type:varchar(5);not null" json:"end_time"`
	DurationMinutes *int           `gorm:"column:duration_minutes" json:"duration_minutes,omitempty"`
	ActivityType    string         `gorm:"column:activity_type;index" json:"activity_type,omitempty"`
	RequiredSkills  datatypes.JSON `gorm:"column:required_skills;type:jsonb" json:"required_skills,omitempty"`
	Status          string         `gorm:"column:status;not null;default:'scheduled';index" json:"status"`
	AssignedGMID    *uuid.UUID     `gorm:"type:uuid;column:assigned_gm_id;index" json:"assigned_gm_id,omitempty"`
	SourceSystem    string         `gorm:"column:source_system" json:"source_system,omitempty"`
	SourceID        string         `gorm:"column:source_id;index" json:"source_id,omitempty"`
	CreatedAt       time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Activity) TableName() string { return "activity" }

func (a *Activity) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if strings.TrimSpace(a.Status) == "" {
		a.Status = ActivityStatusScheduled
	}
	return nil
}

// Window parses date + start/end into instants in loc.
func (a *Activity) Window(loc *time.Location) (time.Time, time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	start, err := time.ParseInLocation(DateLayout+" "+ClockLayout, strings.TrimSpace(a.Date)+" "+strings.TrimSpace(a.StartTime), loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("start: %w", err)
	}
	end, err := time.ParseInLocation(DateLayout+" "+ClockLayout, strings.TrimSpace(a.Date)+" "+strings.TrimSpace(a.EndTime), loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("end: %w", err)
	}
	return start, end, nil
}

// Problems lists every invariant the activity breaks; empty means valid.
func (a *Activity) Problems() []string {
	var out []string
	if strings.TrimSpace(a.Title) == "" {
		out = append(out, "title is required")
	}
	if _, err := time.Parse(DateLayout, strings.TrimSpace(a.Date)); err != nil {
		out = append(out, fmt.Sprintf("date %q is not YYYY-MM-DD", a.Date))
		return out
	}
	start, end, err := a.Window(time.UTC)
	if err != nil {
		out = append(out, fmt.Sprintf("invalid time: %v", err))
		return out
	}
	if !start.Before(end) {
		out = append(out, "start_time must be before end_time")
		return out
	}
	if a.DurationMinutes != nil {
		if *a.DurationMinutes <= 0 {
			out = append(out, "duration_minutes must be positive")
		} else {
			diff := time.Duration(*a.DurationMinutes)*time.Minute - end.Sub(start)
			if diff < 0 {
				diff = -diff
			}
			if diff > DurationTolerance {
				out = append(out, fmt.Sprintf("duration_minutes %d does not match %s-%s", *a.DurationMinutes, a.StartTime, a.EndTime))
			}
		}
	}
	return out
}

// EffectiveDuration is the stored duration or, when absent, end-start.
func (a *Activity) EffectiveDuration() (int, bool) {
	if a.DurationMinutes != nil {
		return *a.DurationMinutes, true
	}
	start, end, err := a.Window(time.UTC)
	if err != nil || !end.After(start) {
		return 0, false
	}
	return int(end.Sub(start) / time.Minute), true
}

func (a *Activity) IsCancelled() bool {
	return strings.EqualFold(a.Status, ActivityStatusCancelled)
}
