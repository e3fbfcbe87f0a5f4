package aggregates

import (
	"strings"

	"gorm.io/gorm"

	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/dbctx"
)

// CASGuard runs compare-and-set updates: the write lands only when the row still
// matches the expected state, and RowsAffected tells the caller who won.
type CASGuard struct {
	db *gorm.DB
}

func NewCASGuard(db *gorm.DB) CASGuard {
	return CASGuard{db: db}
}

func (g CASGuard) baseDB(dbc dbctx.Context) (*gorm.DB, error) {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx), nil
	}
	if g.db != nil {
		return g.db.WithContext(dbc.Ctx), nil
	}
	return nil, ValidationError("missing db transaction context")
}

// UpdateByStatus updates the row keyed by keyColumn=key only while its status is
// one of allowedStatuses.
func (g CASGuard) UpdateByStatus(dbc dbctx.Context, table, keyColumn string, key any, allowedStatuses []string, updates map[string]any) (bool, error) {
	if len(allowedStatuses) == 0 {
		return false, ValidationError("allowedStatuses must not be empty")
	}
	return g.UpdateWhere(dbc, table, keyColumn, key, map[string]any{"status": allowedStatuses}, updates)
}

// UpdateWhere updates the row keyed by keyColumn=key only when every column in
// expect matches. Slice values in expect become IN clauses.
func (g CASGuard) UpdateWhere(dbc dbctx.Context, table, keyColumn string, key any, expect map[string]any, updates map[string]any) (bool, error) {
	db, err := g.baseDB(dbc)
	if err != nil {
		return false, err
	}
	table = strings.TrimSpace(table)
	keyColumn = strings.TrimSpace(keyColumn)
	if table == "" || keyColumn == "" || key == nil {
		return false, ValidationError("table, key column and key are required")
	}
	if len(updates) == 0 {
		return false, ValidationError("updates must not be empty")
	}
	q := db.Table(table).Where(keyColumn+" = ?", key)
	for col, want := range expect {
		switch want.(type) {
		case []string, []any:
			q = q.Where(col+" IN ?", want)
		case nil:
			q = q.Where(col + " IS NULL")
		default:
			q = q.Where(col+" = ?", want)
		}
	}
	res := q.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// RequireCASSuccess converts a lost compare-and-set into a typed conflict error.
func RequireCASSuccess(ok bool, message string) error {
	if ok {
		return nil
	}
	return ConflictError(strings.TrimSpace(message))
}

func RequireStatusAllowed(current string, allowed ...string) error {
	current = strings.TrimSpace(current)
	if len(allowed) == 0 {
		return ValidationError("allowed statuses cannot be empty")
	}
	for _, s := range allowed {
		if strings.EqualFold(current, strings.TrimSpace(s)) {
			return nil
		}
	}
	return ConflictError("status transition not allowed")
}
