package autoassign

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// Workflow runs one auto-assign pass. It is started by the Temporal Schedule; the
// activity is idempotent per trigger window so retries never double-assign.
func Workflow(ctx workflow.Context) (RunSummary, error) {
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		HeartbeatTimeout:    time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    30 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    5 * time.Minute,
			MaximumAttempts:    3,
		},
	})

	var out RunSummary
	if err := workflow.ExecuteActivity(ctx, ActivityRun).Get(ctx, &out); err != nil {
		return out, err
	}
	workflow.GetLogger(ctx).Info("auto-assign workflow finished", "status", out.Status, "applied", out.Applied, "unassigned", out.Unassigned)
	return out, nil
}
