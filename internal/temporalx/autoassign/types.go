package autoassign

const (
	WorkflowName = "auto_assign"
	ActivityRun  = "auto_assign_run"
)

// RunSummary is the activity result recorded in workflow history.
type RunSummary struct {
	RunID      string `json:"run_id,omitempty"`
	Trigger    string `json:"trigger,omitempty"`
	Status     string `json:"status"`
	Proposed   int    `json:"proposed"`
	Applied    int    `json:"applied"`
	Skipped    int    `json:"skipped"`
	Failed     int    `json:"failed"`
	Unassigned int    `json:"unassigned"`
}
