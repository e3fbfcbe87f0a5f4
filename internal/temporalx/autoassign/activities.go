package autoassign

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"

	domainjobs "github.com/Zyedbelm/reservation-assignation-sub003/internal/domain/jobs"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/logger"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/services"
)

type Activities struct {
	Log        *logger.Logger
	AutoAssign services.AutoAssignService
}

func (a *Activities) Run(ctx context.Context) (RunSummary, error) {
	if a == nil || a.AutoAssign == nil {
		return RunSummary{}, fmt.Errorf("autoassign: activity not configured")
	}

	stop := heartbeat(ctx, 20*time.Second)
	defer stop()

	run, err := a.AutoAssign.Run(ctx, domainjobs.TriggerTemporal)
	if err != nil {
		if a.Log != nil {
			a.Log.Warn("auto-assign activity failed", "error", err)
		}
		return RunSummary{}, err
	}
	return summarize(run), nil
}

func summarize(run *domainjobs.AutoAssignRun) RunSummary {
	if run == nil {
		return RunSummary{Status: "noop"}
	}
	return RunSummary{
		RunID:      run.ID.String(),
		Trigger:    run.Trigger,
		Status:     run.Status,
		Proposed:   run.Proposed,
		Applied:    run.Applied,
		Skipped:    run.Skipped,
		Failed:     run.Failed,
		Unassigned: run.Unassigned,
	}
}

func heartbeat(ctx context.Context, every time.Duration) func() {
	done := make(chan struct{})
	go func() {
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-t.C:
				if activity.IsActivity(ctx) {
					activity.RecordHeartbeat(ctx)
				}
			}
		}
	}()
	return func() { close(done) }
}
