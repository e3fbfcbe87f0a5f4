package autoassign

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/testsuite"
	"go.temporal.io/sdk/workflow"

	types "github.com/Zyedbelm/reservation-assignation-sub003/internal/domain"
	domainjobs "github.com/Zyedbelm/reservation-assignation-sub003/internal/domain/jobs"
)

type stubAutoAssign struct {
	calls    int
	triggers []string
	err      error
}

func (s *stubAutoAssign) Run(ctx context.Context, trigger string) (*types.AutoAssignRun, error) {
	s.calls++
	s.triggers = append(s.triggers, trigger)
	if s.err != nil {
		return nil, s.err
	}
	return &types.AutoAssignRun{
		ID:       uuid.New(),
		Trigger:  trigger,
		Status:   domainjobs.RunStatusSucceeded,
		Proposed: 3,
		Applied:  2,
		Skipped:  1,
	}, nil
}

func (s *stubAutoAssign) Recent(ctx context.Context, limit int) ([]*types.AutoAssignRun, error) {
	return nil, nil
}

func (s *stubAutoAssign) Enabled() bool { return true }

func newEnv(acts *Activities) *testsuite.TestWorkflowEnvironment {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterWorkflowWithOptions(Workflow, workflow.RegisterOptions{Name: WorkflowName})
	env.RegisterActivityWithOptions(acts.Run, activity.RegisterOptions{Name: ActivityRun})
	return env
}

func TestWorkflowRunsWithTemporalTrigger(t *testing.T) {
	stub := &stubAutoAssign{}
	env := newEnv(&Activities{AutoAssign: stub})
	env.ExecuteWorkflow(WorkflowName)

	if !env.IsWorkflowCompleted() {
		t.Fatalf("workflow did not complete")
	}
	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow error: %v", err)
	}
	var out RunSummary
	if err := env.GetWorkflowResult(&out); err != nil {
		t.Fatalf("result: %v", err)
	}
	if out.Applied != 2 || out.Skipped != 1 || out.Status != domainjobs.RunStatusSucceeded {
		t.Fatalf("summary: unexpected %+v", out)
	}
	if len(stub.triggers) != 1 || stub.triggers[0] != domainjobs.TriggerTemporal {
		t.Fatalf("trigger: want=[%s] got=%v", domainjobs.TriggerTemporal, stub.triggers)
	}
}

func TestWorkflowRetriesThenFails(t *testing.T) {
	stub := &stubAutoAssign{err: errors.New("engine down")}
	env := newEnv(&Activities{AutoAssign: stub})
	env.ExecuteWorkflow(WorkflowName)

	if !env.IsWorkflowCompleted() {
		t.Fatalf("workflow did not complete")
	}
	if env.GetWorkflowError() == nil {
		t.Fatalf("want workflow error")
	}
	if stub.calls != 3 {
		t.Fatalf("attempts: want=3 got=%d", stub.calls)
	}
}

func TestActivityNotConfigured(t *testing.T) {
	var a *Activities
	if _, err := a.Run(context.Background()); err == nil {
		t.Fatalf("want error for nil activities")
	}
}
