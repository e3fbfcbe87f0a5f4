package temporalworker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/envutil"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/logger"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/scheduler"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/services"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/temporalx"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/temporalx/autoassign"
)

// Runner polls the task queue for auto-assign workflows and keeps the schedule in place.
type Runner struct {
	log *logger.Logger

	tc         temporalsdkclient.Client
	cfg        temporalx.Config
	schedule   *scheduler.Schedule
	autoAssign services.AutoAssignService
}

func NewRunner(
	log *logger.Logger,
	tc temporalsdkclient.Client,
	schedule *scheduler.Schedule,
	autoAssign services.AutoAssignService,
) (*Runner, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if autoAssign == nil || schedule == nil {
		return nil, fmt.Errorf("temporal worker missing deps")
	}
	return &Runner{
		log:        log.With("component", "TemporalWorker"),
		tc:         tc,
		cfg:        temporalx.LoadConfig(),
		schedule:   schedule,
		autoAssign: autoAssign,
	}, nil
}

// Start ensures the schedule exists, then starts the worker with retry. The worker
// stops when ctx is done.
func (r *Runner) Start(ctx context.Context) error {
	if r == nil || r.tc == nil {
		return fmt.Errorf("temporal worker not initialized")
	}
	r.log.Info("Starting Temporal worker", "address", r.cfg.Address, "namespace", r.cfg.Namespace, "task_queue", r.cfg.TaskQueue)

	if err := temporalx.EnsureAutoAssignSchedule(ctx, r.tc, r.cfg, r.schedule, r.log); err != nil {
		// The worker is still useful for schedules created out of band.
		r.log.Warn("Ensuring auto-assign schedule failed", "schedule_id", r.cfg.ScheduleID, "error", err)
	}

	maxWait := envutil.Seconds("TEMPORAL_WORKER_START_MAX_WAIT_SECONDS", 60)
	backoff := envutil.Millis("TEMPORAL_WORKER_START_BACKOFF_MS", 250)
	backoffMax := envutil.Millis("TEMPORAL_WORKER_START_BACKOFF_MAX_MS", 5000)
	deadline := time.Now().Add(maxWait)

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		w := r.newWorker()
		startErr := w.Start()
		if startErr == nil {
			go func() {
				<-ctx.Done()
				w.Stop()
			}()
			r.log.Info("Temporal worker started", "task_queue", r.cfg.TaskQueue, "attempts", attempt)
			return nil
		}
		w.Stop()

		var nfe *serviceerror.NamespaceNotFound
		if errors.As(startErr, &nfe) && envutil.Bool("TEMPORAL_AUTO_REGISTER_NAMESPACE", false) {
			if err := temporalx.EnsureNamespace(ctx, r.cfg, r.log); err != nil {
				r.log.Warn("Temporal namespace ensure failed", "namespace", r.cfg.Namespace, "error", err)
			}
		}

		if maxWait <= 0 || time.Now().After(deadline) {
			if errors.As(startErr, &nfe) {
				return fmt.Errorf("temporal namespace not found (namespace=%s): %w", r.cfg.Namespace, startErr)
			}
			return startErr
		}
		r.log.Warn("Temporal worker failed to start; retrying", "task_queue", r.cfg.TaskQueue, "attempt", attempt, "error", startErr)

		sleep := backoff << (attempt - 1)
		if sleep > backoffMax || sleep <= 0 {
			sleep = backoffMax
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}
	}
}

func (r *Runner) newWorker() worker.Worker {
	concurrency := envutil.Int("TEMPORAL_WORKER_CONCURRENCY", 2)
	if concurrency < 1 {
		concurrency = 1
	}
	w := worker.New(r.tc, r.cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     concurrency,
		MaxConcurrentWorkflowTaskExecutionSize: concurrency,
	})

	acts := &autoassign.Activities{Log: r.log, AutoAssign: r.autoAssign}
	w.RegisterWorkflowWithOptions(autoassign.Workflow, workflow.RegisterOptions{Name: autoassign.WorkflowName})
	w.RegisterActivityWithOptions(acts.Run, activity.RegisterOptions{Name: autoassign.ActivityRun})
	return w
}
