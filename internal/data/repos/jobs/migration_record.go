package jobs

import (
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	dataagg "github.com/Zyedbelm/reservation-assignation-sub003/internal/data/aggregates"
	types "github.com/Zyedbelm/reservation-assignation-sub003/internal/domain"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/domain/jobs"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/dbctx"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/logger"
)

// MigrationRecordRepo is the server-side one-time-job marker.
type MigrationRecordRepo interface {
	Get(dbc dbctx.Context, jobName string) (*types.MigrationRecord, error)
	// Claim marks jobName running for claimedBy. It wins when no record exists, when
	// the last run failed, or when a running claim is older than staleAfter. A job
	// already applied, or running under a fresh claim, is not claimed.
	Claim(dbc dbctx.Context, jobName, claimedBy string, staleAfter time.Duration) (bool, *types.MigrationRecord, error)
	Complete(dbc dbctx.Context, jobName, claimedBy string, fixed int) error
	Fail(dbc dbctx.Context, jobName, claimedBy string, fixed, failed int, lastErr string) error
}

type migrationRecordRepo struct {
	db    *gorm.DB
	log   *logger.Logger
	guard dataagg.CASGuard
}

func NewMigrationRecordRepo(db *gorm.DB, baseLog *logger.Logger) MigrationRecordRepo {
	return &migrationRecordRepo{
		db:    db,
		log:   baseLog.With("repo", "MigrationRecordRepo"),
		guard: dataagg.NewCASGuard(db),
	}
}

func (r *migrationRecordRepo) Get(dbc dbctx.Context, jobName string) (*types.MigrationRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.MigrationRecord
	if err := transaction.WithContext(dbc.Ctx).
		Where("job_name = ?", strings.TrimSpace(jobName)).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if out.JobName == "" {
		return nil, nil
	}
	return &out, nil
}

func (r *migrationRecordRepo) Claim(dbc dbctx.Context, jobName, claimedBy string, staleAfter time.Duration) (bool, *types.MigrationRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	jobName = strings.TrimSpace(jobName)
	if jobName == "" {
		return false, nil, dataagg.ValidationError("job name is required")
	}
	now := time.Now().UTC()

	rec := &types.MigrationRecord{
		JobName:   jobName,
		Status:    jobs.MigrationStatusRunning,
		ClaimedBy: claimedBy,
		ClaimedAt: now,
	}
	res := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "job_name"}}, DoNothing: true}).
		Create(rec)
	if res.Error != nil {
		return false, nil, res.Error
	}
	if res.RowsAffected > 0 {
		return true, rec, nil
	}

	current, err := r.Get(dbc, jobName)
	if err != nil {
		return false, nil, err
	}
	if current == nil {
		return false, nil, dataagg.RetryableError("migration record vanished during claim")
	}
	switch current.Status {
	case jobs.MigrationStatusApplied:
		return false, current, nil
	case jobs.MigrationStatusRunning:
		if staleAfter <= 0 || now.Sub(current.ClaimedAt) < staleAfter {
			return false, current, nil
		}
	}

	// CAS on the observed status and claimer so two reclaimers cannot both win.
	ok, err := r.guard.UpdateWhere(dbc, current.TableName(), "job_name", jobName,
		map[string]any{"status": current.Status, "claimed_by": current.ClaimedBy},
		map[string]any{
			"status":     jobs.MigrationStatusRunning,
			"claimed_by": claimedBy,
			"claimed_at": now,
			"last_error": "",
			"updated_at": now,
		},
	)
	if err != nil {
		return false, nil, err
	}
	if !ok {
		latest, err := r.Get(dbc, jobName)
		return false, latest, err
	}
	current.Status = jobs.MigrationStatusRunning
	current.ClaimedBy = claimedBy
	current.ClaimedAt = now
	current.LastError = ""
	return true, current, nil
}

func (r *migrationRecordRepo) Complete(dbc dbctx.Context, jobName, claimedBy string, fixed int) error {
	now := time.Now().UTC()
	ok, err := r.guard.UpdateWhere(dbc, types.MigrationRecord{}.TableName(), "job_name", strings.TrimSpace(jobName),
		map[string]any{"status": jobs.MigrationStatusRunning, "claimed_by": claimedBy},
		map[string]any{
			"status":       jobs.MigrationStatusApplied,
			"applied_at":   now,
			"fixed_count":  fixed,
			"failed_count": 0,
			"last_error":   "",
			"updated_at":   now,
		},
	)
	if err != nil {
		return err
	}
	return dataagg.RequireCASSuccess(ok, "migration claim lost before completion")
}

func (r *migrationRecordRepo) Fail(dbc dbctx.Context, jobName, claimedBy string, fixed, failed int, lastErr string) error {
	now := time.Now().UTC()
	ok, err := r.guard.UpdateWhere(dbc, types.MigrationRecord{}.TableName(), "job_name", strings.TrimSpace(jobName),
		map[string]any{"status": jobs.MigrationStatusRunning, "claimed_by": claimedBy},
		map[string]any{
			"status":       jobs.MigrationStatusFailed,
			"fixed_count":  fixed,
			"failed_count": failed,
			"last_error":   lastErr,
			"updated_at":   now,
		},
	)
	if err != nil {
		return err
	}
	return dataagg.RequireCASSuccess(ok, "migration claim lost before failure was recorded")
}
