package jobs

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/Zyedbelm/reservation-assignation-sub003/internal/domain"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/domain/jobs"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/dbctx"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/logger"
)

type AutoAssignRunRepo interface {
	Create(dbc dbctx.Context, run *types.AutoAssignRun) (*types.AutoAssignRun, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.AutoAssignRun, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	ListRecent(dbc dbctx.Context, limit int) ([]*types.AutoAssignRun, error)
	// LatestForWindow returns the newest run started for the given trigger window.
	LatestForWindow(dbc dbctx.Context, windowStart time.Time) (*types.AutoAssignRun, error)
	// AbandonStale marks the run failed if it is still running and started before
	// startedBefore. It reports whether this call made the change.
	AbandonStale(dbc dbctx.Context, id uuid.UUID, startedBefore, at time.Time) (bool, error)
}

type autoAssignRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAutoAssignRunRepo(db *gorm.DB, baseLog *logger.Logger) AutoAssignRunRepo {
	return &autoAssignRunRepo{db: db, log: baseLog.With("repo", "AutoAssignRunRepo")}
}

func (r *autoAssignRunRepo) Create(dbc dbctx.Context, run *types.AutoAssignRun) (*types.AutoAssignRun, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if run == nil {
		return nil, nil
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	if err := transaction.WithContext(dbc.Ctx).Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

func (r *autoAssignRunRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.AutoAssignRun, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.AutoAssignRun
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *autoAssignRunRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.AutoAssignRun{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *autoAssignRunRepo) ListRecent(dbc dbctx.Context, limit int) ([]*types.AutoAssignRun, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var out []*types.AutoAssignRun
	if err := transaction.WithContext(dbc.Ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *autoAssignRunRepo) LatestForWindow(dbc dbctx.Context, windowStart time.Time) (*types.AutoAssignRun, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.AutoAssignRun
	if err := transaction.WithContext(dbc.Ctx).
		Where("window_start = ?", windowStart.UTC()).
		Order("started_at DESC").
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *autoAssignRunRepo) AbandonStale(dbc dbctx.Context, id uuid.UUID, startedBefore, at time.Time) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return false, nil
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.AutoAssignRun{}).
		Where("id = ? AND status = ? AND started_at < ?", id, jobs.RunStatusRunning, startedBefore.UTC()).
		Updates(map[string]interface{}{
			"status":      jobs.RunStatusFailed,
			"finished_at": at.UTC(),
			"error":       "run abandoned before finishing",
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
