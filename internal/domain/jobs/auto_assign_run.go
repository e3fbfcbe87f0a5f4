package jobs

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"

	TriggerSchedule = "schedule"
	TriggerTemporal = "temporal"
	TriggerManual   = "manual"
)

// AutoAssignRun is one invocation of the external assignment engine.
type AutoAssignRun struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Trigger     string         `gorm:"column:trigger_source;not null;index" json:"trigger"`
	Status      string         `gorm:"column:status;not null;index" json:"status"`
	WindowStart time.Time      `gorm:"column:window_start;not null;index" json:"window_start"`
	StartedAt   time.Time      `gorm:"column:started_at;not null" json:"started_at"`
	FinishedAt  *time.Time     `gorm:"column:finished_at" json:"finished_at,omitempty"`
	Proposed    int            `gorm:"column:proposed;not null;default:0" json:"proposed"`
	Applied     int            `gorm:"column:applied;not null;default:0" json:"applied"`
	Skipped     int            `gorm:"column:skipped;not null;default:0" json:"skipped"`
	Failed      int            `gorm:"column:failed;not null;default:0" json:"failed"`
	Unassigned  int            `gorm:"column:unassigned;not null;default:0" json:"unassigned"`
	Notified    int            `gorm:"column:notified;not null;default:0" json:"notified"`
	Error       string         `gorm:"column:error;type:text" json:"error,omitempty"`
	Result      datatypes.JSON `gorm:"column:result;type:jsonb" json:"result,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;autoCreateTime;index" json:"created_at"`
}

func (AutoAssignRun) TableName() string { return "auto_assign_run" }

func (r *AutoAssignRun) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
