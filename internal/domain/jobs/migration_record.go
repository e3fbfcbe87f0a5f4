package jobs

import "time"

const (
	MigrationStatusRunning = "running"
	MigrationStatusApplied = "applied"
	MigrationStatusFailed  = "failed"

	JobGMProfileLinks = "gm_profile_links_v1"
)

// MigrationRecord marks a one-time job as claimed or applied, keyed by job name.
type MigrationRecord struct {
	JobName     string     `gorm:"column:job_name;primaryKey;type:varchar(120)" json:"job_name"`
	Status      string     `gorm:"column:status;not null;index" json:"status"`
	ClaimedBy   string     `gorm:"column:claimed_by" json:"claimed_by,omitempty"`
	ClaimedAt   time.Time  `gorm:"column:claimed_at;not null" json:"claimed_at"`
	AppliedAt   *time.Time `gorm:"column:applied_at" json:"applied_at,omitempty"`
	FixedCount  int        `gorm:"column:fixed_count;not null;default:0" json:"fixed_count"`
	FailedCount int        `gorm:"column:failed_count;not null;default:0" json:"failed_count"`
	LastError   string     `gorm:"column:last_error;type:text" json:"last_error,omitempty"`
	UpdatedAt   time.Time  `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (MigrationRecord) TableName() string { return "migration_record" }
