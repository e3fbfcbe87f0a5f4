package profile

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dataagg "github.com/Zyedbelm/reservation-assignation-sub003/internal/data/aggregates"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/data/repos/scheduling"
	types "github.com/Zyedbelm/reservation-assignation-sub003/internal/domain"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/dbctx"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/logger"
)

// EnsureGMInput names the user whose GM link must exist.
type EnsureGMInput struct {
	UserID    uuid.UUID
	Email     string
	FirstName string
	LastName  string
}

// EnsureGMResult reports what EnsureGMProfileForUser did.
type EnsureGMResult struct {
	GMID       uuid.UUID
	Created    bool
	Reattached bool
	// Changed is false when the profile already pointed at an existing GM.
	Changed bool
}

type ProfileRepo interface {
	Create(dbc dbctx.Context, p *types.Profile) (*types.Profile, error)
	GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.Profile, error)
	ListByRole(dbc dbctx.Context, role string) ([]*types.Profile, error)
	// ListGMCandidates returns role=gm profiles that have not disabled GM auto-creation.
	ListGMCandidates(dbc dbctx.Context) ([]*types.Profile, error)
	// EnsureGMProfileForUser makes the profile reference an existing GM, reusing a
	// GM already tied to the user or email before creating one. It runs as one
	// transaction and is a no-op for a profile that is already linked.
	EnsureGMProfileForUser(dbc dbctx.Context, in EnsureGMInput) (*EnsureGMResult, error)
}

type profileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProfileRepo(db *gorm.DB, baseLog *logger.Logger) ProfileRepo {
	return &profileRepo{db: db, log: baseLog.With("repo", "ProfileRepo")}
}

func (r *profileRepo) Create(dbc dbctx.Context, p *types.Profile) (*types.Profile, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if p == nil {
		return nil, dataagg.ValidationError("profile is required")
	}
	p.Email = scheduling.NormalizeEmail(p.Email)
	if err := transaction.WithContext(dbc.Ctx).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

func (r *profileRepo) GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.Profile, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil {
		return nil, nil
	}
	var out types.Profile
	if err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if out.UserID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *profileRepo) ListByRole(dbc dbctx.Context, role string) ([]*types.Profile, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Profile
	if err := transaction.WithContext(dbc.Ctx).
		Where("role = ?", strings.TrimSpace(role)).
		Order("email ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *profileRepo) ListGMCandidates(dbc dbctx.Context) ([]*types.Profile, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Profile
	if err := transaction.WithContext(dbc.Ctx).
		Where("role = ? AND disable_gm_auto_create = ?", types.RoleGM, false).
		Order("created_at ASC, user_id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *profileRepo) EnsureGMProfileForUser(dbc dbctx.Context, in EnsureGMInput) (*EnsureGMResult, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if in.UserID == uuid.Nil {
		return nil, dataagg.ValidationError("user_id is required")
	}
	email := scheduling.NormalizeEmail(in.Email)
	if email == "" {
		return nil, dataagg.ValidationError("email is required")
	}

	var res *EnsureGMResult
	err := transaction.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		var prof types.Profile
		if err := tx.Where("user_id = ?", in.UserID).Limit(1).Find(&prof).Error; err != nil {
			return err
		}
		if prof.UserID == uuid.Nil {
			return gorm.ErrRecordNotFound
		}

		if prof.GMID != nil && *prof.GMID != uuid.Nil {
			var n int64
			if err := tx.Model(&types.GM{}).Where("id = ?", *prof.GMID).Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				res = &EnsureGMResult{GMID: *prof.GMID}
				return nil
			}
		}

		gm, reattached, err := findReusableGM(tx, in.UserID, email)
		if err != nil {
			return err
		}
		created := false
		if gm == nil {
			userID := in.UserID
			gm = &types.GM{
				UserID:    &userID,
				Email:     email,
				FirstName: strings.TrimSpace(in.FirstName),
				LastName:  strings.TrimSpace(in.LastName),
				IsActive:  true,
			}
			if err := tx.Create(gm).Error; err != nil {
				return err
			}
			created = true
		} else if gm.UserID == nil || *gm.UserID != in.UserID {
			if err := tx.Model(&types.GM{}).Where("id = ?", gm.ID).Update("user_id", in.UserID).Error; err != nil {
				return err
			}
		}

		if err := tx.Model(&types.Profile{}).
			Where("user_id = ?", in.UserID).
			Update("gm_id", gm.ID).Error; err != nil {
			return err
		}
		res = &EnsureGMResult{GMID: gm.ID, Created: created, Reattached: reattached, Changed: true}
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.log.Debug("ensured gm profile link", "user_id", in.UserID, "gm_id", res.GMID, "created", res.Created, "changed", res.Changed)
	return res, nil
}

func findReusableGM(tx *gorm.DB, userID uuid.UUID, email string) (*types.GM, bool, error) {
	var gm types.GM
	if err := tx.Where("user_id = ?", userID).Limit(1).Find(&gm).Error; err != nil {
		return nil, false, err
	}
	if gm.ID != uuid.Nil {
		return &gm, true, nil
	}
	if err := tx.Where("LOWER(email) = ?", email).Limit(1).Find(&gm).Error; err != nil {
		return nil, false, err
	}
	if gm.ID != uuid.Nil {
		// A GM owned by a different user is never stolen.
		if gm.UserID != nil && *gm.UserID != uuid.Nil && *gm.UserID != userID {
			return nil, false, dataagg.ConflictError("gm email " + email + " belongs to another user")
		}
		return &gm, true, nil
	}
	return nil, false, nil
}
