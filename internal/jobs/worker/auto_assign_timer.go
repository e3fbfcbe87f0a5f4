package worker

import (
	"context"
	"time"

	types "github.com/Zyedbelm/reservation-assignation-sub003/internal/domain"
	domainjobs "github.com/Zyedbelm/reservation-assignation-sub003/internal/domain/jobs"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/logger"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/scheduler"
)

type AutoAssignRunner interface {
	Run(ctx context.Context, trigger string) (*types.AutoAssignRun, error)
}

// AutoAssignTimer fires auto-assign at each trigger of the schedule when Temporal
// is not configured. Next is recomputed after every wake-up, so a late wake-up
// or a clock jump never replays a trigger that already passed.
type AutoAssignTimer struct {
	log      *logger.Logger
	schedule *scheduler.Schedule
	runner   AutoAssignRunner
	now      func() time.Time
	after    func(time.Duration) <-chan time.Time
}

func NewAutoAssignTimer(baseLog *logger.Logger, schedule *scheduler.Schedule, runner AutoAssignRunner) *AutoAssignTimer {
	return &AutoAssignTimer{
		log:      baseLog.With("component", "AutoAssignTimer"),
		schedule: schedule,
		runner:   runner,
		now:      time.Now,
		after:    time.After,
	}
}

func (t *AutoAssignTimer) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			t.log.Info("Auto-assign timer stopped")
			return nil
		}
		next := t.schedule.Next(t.now())
		wait := next.Sub(t.now())
		if wait < 0 {
			wait = 0
		}
		t.log.Debug("Auto-assign timer sleeping", "next", next, "wait", wait)

		select {
		case <-ctx.Done():
			t.log.Info("Auto-assign timer stopped")
			return nil
		case <-t.after(wait):
		}

		run, err := t.runner.Run(ctx, domainjobs.TriggerSchedule)
		if err != nil {
			t.log.Warn("Scheduled auto-assign failed", "trigger_at", next, "error", err)
			continue
		}
		if run != nil {
			t.log.Info("Scheduled auto-assign done", "trigger_at", next, "run_id", run.ID, "status", run.Status)
		}
	}
}
