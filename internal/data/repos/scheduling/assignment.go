package scheduling

import (
	"database/sql"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/Zyedbelm/reservation-assignation-sub003/internal/domain"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/dbctx"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/logger"
)

// AssignmentRepo stores ordered GM-to-activity links. Create never upserts: a
// second row for the same (activity_id, gm_id) comes back as a unique violation.
type AssignmentRepo interface {
	Create(dbc dbctx.Context, a *types.Assignment) (*types.Assignment, error)
	ListByActivity(dbc dbctx.Context, activityID uuid.UUID) ([]types.Assignment, error)
	ListByActivities(dbc dbctx.Context, activityIDs []uuid.UUID) ([]types.Assignment, error)
	ListByGM(dbc dbctx.Context, gmID uuid.UUID) ([]types.Assignment, error)
	Delete(dbc dbctx.Context, activityID, gmID uuid.UUID) (bool, error)
	MaxOrder(dbc dbctx.Context, activityID uuid.UUID) (int, error)
}

type assignmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAssignmentRepo(db *gorm.DB, baseLog *logger.Logger) AssignmentRepo {
	return &assignmentRepo{db: db, log: baseLog.With("repo", "AssignmentRepo")}
}

func (r *assignmentRepo) Create(dbc dbctx.Context, a *types.Assignment) (*types.Assignment, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if a == nil {
		return nil, nil
	}
	// Savepoint so a unique violation leaves the caller's transaction usable.
	err := transaction.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(a).Error
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *assignmentRepo) ListByActivity(dbc dbctx.Context, activityID uuid.UUID) ([]types.Assignment, error) {
	if activityID == uuid.Nil {
		return []types.Assignment{}, nil
	}
	return r.ListByActivities(dbc, []uuid.UUID{activityID})
}

func (r *assignmentRepo) ListByActivities(dbc dbctx.Context, activityIDs []uuid.UUID) ([]types.Assignment, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	out := []types.Assignment{}
	if len(activityIDs) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("activity_id IN ?", activityIDs).
		Order("activity_id ASC, COALESCE(assignment_order, 1) ASC, gm_id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *assignmentRepo) ListByGM(dbc dbctx.Context, gmID uuid.UUID) ([]types.Assignment, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	out := []types.Assignment{}
	if gmID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("gm_id = ?", gmID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *assignmentRepo) Delete(dbc dbctx.Context, activityID, gmID uuid.UUID) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if activityID == uuid.Nil || gmID == uuid.Nil {
		return false, nil
	}
	res := transaction.WithContext(dbc.Ctx).
		Where("activity_id = ? AND gm_id = ?", activityID, gmID).
		Delete(&types.Assignment{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *assignmentRepo) MaxOrder(dbc dbctx.Context, activityID uuid.UUID) (int, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var max sql.NullInt64
	row := transaction.WithContext(dbc.Ctx).
		Model(&types.Assignment{}).
		Select("MAX(COALESCE(assignment_order, 1))").
		Where("activity_id = ?", activityID).
		Row()
	if err := row.Scan(&max); err != nil {
		return 0, err
	}
	if !max.Valid {
		return 0, nil
	}
	return int(max.Int64), nil
}
