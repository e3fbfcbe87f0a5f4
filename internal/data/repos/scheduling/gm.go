package scheduling

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/Zyedbelm/reservation-assignation-sub003/internal/domain"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/dbctx"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/logger"
)

// GMRepo is the GM directory.
type GMRepo interface {
	Create(dbc dbctx.Context, gms []*types.GM) ([]*types.GM, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.GM, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.GM, error)
	GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.GM, error)
	GetByEmail(dbc dbctx.Context, email string) (*types.GM, error)
	ListIDs(dbc dbctx.Context) ([]uuid.UUID, error)
	ListActive(dbc dbctx.Context) ([]*types.GM, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type gmRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGMRepo(db *gorm.DB, baseLog *logger.Logger) GMRepo {
	return &gmRepo{db: db, log: baseLog.With("repo", "GMRepo")}
}

func (r *gmRepo) Create(dbc dbctx.Context, gms []*types.GM) ([]*types.GM, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(gms) == 0 {
		return []*types.GM{}, nil
	}
	for _, g := range gms {
		if g != nil {
			g.Email = NormalizeEmail(g.Email)
		}
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&gms).Error; err != nil {
		return nil, err
	}
	return gms, nil
}

func (r *gmRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.GM, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	return r.first(dbc, "id = ?", id)
}

func (r *gmRepo) GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.GM, error) {
	if userID == uuid.Nil {
		return nil, nil
	}
	return r.first(dbc, "user_id = ?", userID)
}

func (r *gmRepo) GetByEmail(dbc dbctx.Context, email string) (*types.GM, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, nil
	}
	return r.first(dbc, "LOWER(email) = ?", email)
}

func (r *gmRepo) first(dbc dbctx.Context, query string, args ...interface{}) (*types.GM, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out types.GM
	if err := transaction.WithContext(dbc.Ctx).
		Where(query, args...).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *gmRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.GM, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.GM
	if len(ids) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("id IN ?", ids).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *gmRepo) ListIDs(dbc dbctx.Context) ([]uuid.UUID, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []uuid.UUID
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.GM{}).
		Pluck("id", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *gmRepo) ListActive(dbc dbctx.Context) ([]*types.GM, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.GM
	if err := transaction.WithContext(dbc.Ctx).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *gmRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.GM{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
