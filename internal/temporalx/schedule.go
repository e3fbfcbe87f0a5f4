package temporalx

import (
	"context"
	"errors"
	"fmt"

	enumspb "go.temporal.io/api/enums/v1"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"

	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/logger"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/scheduler"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/temporalx/autoassign"
)

// ScheduleSpec turns the trigger clocks into one calendar entry per clock, evaluated
// in the schedule's zone so DST shifts follow local time.
func ScheduleSpec(s *scheduler.Schedule) temporalsdkclient.ScheduleSpec {
	spec := temporalsdkclient.ScheduleSpec{
		TimeZoneName: s.Location().String(),
	}
	for _, c := range s.Triggers() {
		spec.Calendars = append(spec.Calendars, temporalsdkclient.ScheduleCalendarSpec{
			Second:  []temporalsdkclient.ScheduleRange{{Start: 0}},
			Minute:  []temporalsdkclient.ScheduleRange{{Start: c.Minute}},
			Hour:    []temporalsdkclient.ScheduleRange{{Start: c.Hour}},
			Comment: "auto-assign " + c.String(),
		})
	}
	return spec
}

// EnsureAutoAssignSchedule creates the auto-assign schedule, or brings the spec of an
// existing one in line with the configured triggers.
func EnsureAutoAssignSchedule(ctx context.Context, c temporalsdkclient.Client, cfg Config, s *scheduler.Schedule, log *logger.Logger) error {
	if c == nil || s == nil {
		return nil
	}
	spec := ScheduleSpec(s)
	_, err := c.ScheduleClient().Create(ctx, temporalsdkclient.ScheduleOptions{
		ID:   cfg.ScheduleID,
		Spec: spec,
		Action: &temporalsdkclient.ScheduleWorkflowAction{
			ID:        cfg.ScheduleID + "-run",
			Workflow:  autoassign.WorkflowName,
			TaskQueue: cfg.TaskQueue,
		},
		Overlap: enumspb.SCHEDULE_OVERLAP_POLICY_SKIP,
	})
	if err == nil {
		if log != nil {
			log.Info("Created Temporal schedule", "schedule_id", cfg.ScheduleID, "zone", spec.TimeZoneName, "entries", len(spec.Calendars))
		}
		return nil
	}
	if !errors.Is(err, temporal.ErrScheduleAlreadyRunning) {
		return fmt.Errorf("temporal schedule create: %w", err)
	}

	h := c.ScheduleClient().GetHandle(ctx, cfg.ScheduleID)
	err = h.Update(ctx, temporalsdkclient.ScheduleUpdateOptions{
		DoUpdate: func(in temporalsdkclient.ScheduleUpdateInput) (*temporalsdkclient.ScheduleUpdate, error) {
			sched := in.Description.Schedule
			sched.Spec = &spec
			return &temporalsdkclient.ScheduleUpdate{Schedule: &sched}, nil
		},
	})
	if err != nil {
		return fmt.Errorf("temporal schedule update: %w", err)
	}
	if log != nil {
		log.Info("Updated Temporal schedule", "schedule_id", cfg.ScheduleID, "zone", spec.TimeZoneName)
	}
	return nil
}
