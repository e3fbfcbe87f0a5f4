package scheduling

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const AssignmentStatusAssigned = "assigned"

// Assignment links one GM to one activity. (activity_id, gm_id) is unique; the
// store rejects a second insert of the same pair.
type Assignment struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ActivityID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_activity_assignment_pair,priority:1" json:"activity_id"`
	GMID            uuid.UUID `gorm:"type:uuid;column:gm_id;not null;uniqueIndex:idx_activity_assignment_pair,priority:2;index" json:"gm_id"`
	Status          string    `gorm:"column:status;not null;default:'assigned'" json:"status"`
	AssignmentOrder *int      `gorm:"column:assignment_order" json:"assignment_order,omitempty"`
	CreatedAt       time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (Assignment) TableName() string { return "activity_assignment" }

func (a *Assignment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = AssignmentStatusAssigned
	}
	return nil
}

// Order treats a missing order as primary.
func (a Assignment) Order() int {
	if a.AssignmentOrder == nil {
		return 1
	}
	return *a.AssignmentOrder
}
