package notification

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	dataagg "github.com/Zyedbelm/reservation-assignation-sub003/internal/data/aggregates"
	types "github.com/Zyedbelm/reservation-assignation-sub003/internal/domain"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/dbctx"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/logger"
)

// NotificationRepo persists per-GM notifications. Rows are never deleted and only
// is_read, email_sent and email_sent_at change after insert.
type NotificationRepo interface {
	Create(dbc dbctx.Context, n *types.Notification) (*types.Notification, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Notification, error)
	ListForGM(dbc dbctx.Context, gmID uuid.UUID, limit, offset int) ([]*types.Notification, error)
	UnreadCount(dbc dbctx.Context, gmID uuid.UUID) (int64, error)
	MarkRead(dbc dbctx.Context, gmID, id uuid.UUID) (bool, error)
	MarkAllRead(dbc dbctx.Context, gmID uuid.UUID) (int64, error)
	// MarkEmailSent flips email_sent only while it is still false and reports
	// whether this call did it.
	MarkEmailSent(dbc dbctx.Context, id uuid.UUID, at time.Time) (bool, error)
	// ClaimUnsent returns rows still waiting for email created within
	// [createdAfter, createdBefore] with fewer than maxAttempts recorded attempts,
	// oldest first. Rows with a succeeded attempt, or with a pending attempt taken
	// after leasedAfter, are skipped. On Postgres the rows stay locked until dbc.Tx
	// ends.
	ClaimUnsent(dbc dbctx.Context, createdAfter, createdBefore, leasedAfter time.Time, maxAttempts, limit int) ([]*types.Notification, error)
	RecordAttempt(dbc dbctx.Context, a *types.DeliveryAttempt) error
	// ResolveAttempt stores the outcome of a pending attempt.
	ResolveAttempt(dbc dbctx.Context, a *types.DeliveryAttempt) error
	CountAttempts(dbc dbctx.Context, notificationID uuid.UUID) (int64, error)
}

type notificationRepo struct {
	db    *gorm.DB
	log   *logger.Logger
	guard dataagg.CASGuard
}

func NewNotificationRepo(db *gorm.DB, baseLog *logger.Logger) NotificationRepo {
	return &notificationRepo{
		db:    db,
		log:   baseLog.With("repo", "NotificationRepo"),
		guard: dataagg.NewCASGuard(db),
	}
}

func (r *notificationRepo) Create(dbc dbctx.Context, n *types.Notification) (*types.Notification, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if n == nil {
		return nil, dataagg.ValidationError("notification is required")
	}
	if n.GMID == uuid.Nil {
		return nil, dataagg.ValidationError("notification gm_id is required")
	}
	if !n.Type.Valid() {
		return nil, dataagg.ValidationError("unknown notification type " + string(n.Type))
	}
	n.IsRead = false
	n.EmailSent = false
	n.EmailSentAt = nil
	if err := transaction.WithContext(dbc.Ctx).Create(n).Error; err != nil {
		return nil, err
	}
	return n, nil
}

func (r *notificationRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Notification, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var out types.Notification
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

func (r *notificationRepo) ListForGM(dbc dbctx.Context, gmID uuid.UUID, limit, offset int) ([]*types.Notification, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	out := []*types.Notification{}
	if gmID == uuid.Nil {
		return out, nil
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("gm_id = ?", gmID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *notificationRepo) UnreadCount(dbc dbctx.Context, gmID uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	if gmID == uuid.Nil {
		return 0, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.Notification{}).
		Where("gm_id = ? AND is_read = ?", gmID, false).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *notificationRepo) MarkRead(dbc dbctx.Context, gmID, id uuid.UUID) (bool, error) {
	if gmID == uuid.Nil || id == uuid.Nil {
		return false, nil
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	// Owner-scoped: another GM's id matches nothing.
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Notification{}).
		Where("id = ? AND gm_id = ?", id, gmID).
		Update("is_read", true)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	// Already read still counts as owned.
	var n int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.Notification{}).
		Where("id = ? AND gm_id = ?", id, gmID).
		Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *notificationRepo) MarkAllRead(dbc dbctx.Context, gmID uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if gmID == uuid.Nil {
		return 0, nil
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Notification{}).
		Where("gm_id = ? AND is_read = ?", gmID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

func (r *notificationRepo) MarkEmailSent(dbc dbctx.Context, id uuid.UUID, at time.Time) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return r.guard.UpdateWhere(dbc, types.Notification{}.TableName(), "id", id,
		map[string]any{"email_sent": false},
		map[string]any{"email_sent": true, "email_sent_at": at.UTC()},
	)
}

func (r *notificationRepo) ClaimUnsent(dbc dbctx.Context, createdAfter, createdBefore, leasedAfter time.Time, maxAttempts, limit int) ([]*types.Notification, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 50
	}
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	q := transaction.WithContext(dbc.Ctx).
		Where("email_sent = ?", false).
		Where("created_at >= ? AND created_at <= ?", createdAfter.UTC(), createdBefore.UTC()).
		Where("(SELECT COUNT(*) FROM notification_delivery_attempt a WHERE a.notification_id = notification.id) < ?", maxAttempts).
		Where("NOT EXISTS (SELECT 1 FROM notification_delivery_attempt a WHERE a.notification_id = notification.id AND a.succeeded = ?)", true).
		Where("NOT EXISTS (SELECT 1 FROM notification_delivery_attempt a WHERE a.notification_id = notification.id AND a.pending = ? AND a.attempted_at > ?)", true, leasedAfter.UTC()).
		Order("created_at ASC").
		Limit(limit)
	if transaction.Dialector != nil && transaction.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
	}
	var out []*types.Notification
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *notificationRepo) RecordAttempt(dbc dbctx.Context, a *types.DeliveryAttempt) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if a == nil || a.NotificationID == uuid.Nil {
		return dataagg.ValidationError("delivery attempt notification_id is required")
	}
	return transaction.WithContext(dbc.Ctx).Create(a).Error
}

func (r *notificationRepo) ResolveAttempt(dbc dbctx.Context, a *types.DeliveryAttempt) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if a == nil || a.ID == uuid.Nil {
		return dataagg.ValidationError("delivery attempt id is required")
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.DeliveryAttempt{}).
		Where("id = ?", a.ID).
		Updates(map[string]any{
			"pending":    false,
			"succeeded":  a.Succeeded,
			"message_id": a.MessageID,
			"error":      a.Error,
		}).Error
}

func (r *notificationRepo) CountAttempts(dbc dbctx.Context, notificationID uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.DeliveryAttempt{}).
		Where("notification_id = ?", notificationID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
