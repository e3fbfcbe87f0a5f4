package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Zyedbelm/reservation-assignation-sub003/internal/clients/redis"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/data/aggregates"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/data/repos"
	types "github.com/Zyedbelm/reservation-assignation-sub003/internal/domain"
	domainagg "github.com/Zyedbelm/reservation-assignation-sub003/internal/domain/aggregates"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/dbctx"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/logger"
)

const unreadCacheTTL = 30 * time.Second

type NotificationPage struct {
	Items       []*types.Notification `json:"items"`
	UnreadCount int64                 `json:"unread_count"`
	Limit       int                   `json:"limit"`
	Offset      int                   `json:"offset"`
}

// NotificationService is the GM-facing read side of the notification store.
// Every call is scoped to the caller's GM id.
type NotificationService interface {
	List(ctx context.Context, gmID uuid.UUID, limit, offset int) (*NotificationPage, error)
	UnreadCount(ctx context.Context, gmID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, gmID, id uuid.UUID) error
	MarkAllRead(ctx context.Context, gmID uuid.UUID) (int64, error)
}

type notificationService struct {
	log           *logger.Logger
	notifications repos.NotificationRepo
	cache         redis.Cache
}

func NewNotificationService(baseLog *logger.Logger, notifications repos.NotificationRepo, cache redis.Cache) NotificationService {
	return &notificationService{
		log:           baseLog.With("service", "NotificationService"),
		notifications: notifications,
		cache:         cache,
	}
}

func unreadKey(gmID uuid.UUID) string { return "notifications:unread:" + gmID.String() }

func (s *notificationService) List(ctx context.Context, gmID uuid.UUID, limit, offset int) (*NotificationPage, error) {
	if gmID == uuid.Nil {
		return nil, domainagg.Permission("notification.list", "caller is not linked to a GM")
	}
	items, err := s.notifications.ListForGM(dbctx.Background(ctx), gmID, limit, offset)
	if err != nil {
		return nil, aggregates.MapError("notification.list", err)
	}
	unread, err := s.UnreadCount(ctx, gmID)
	if err != nil {
		return nil, err
	}
	return &NotificationPage{Items: items, UnreadCount: unread, Limit: limit, Offset: offset}, nil
}

// UnreadCount is served from the cache when present. Writes below invalidate
// it, and the short TTL bounds staleness from rows created elsewhere.
func (s *notificationService) UnreadCount(ctx context.Context, gmID uuid.UUID) (int64, error) {
	if gmID == uuid.Nil {
		return 0, domainagg.Permission("notification.unread", "caller is not linked to a GM")
	}
	if s.cache != nil {
		if v, ok, err := s.cache.GetInt(ctx, unreadKey(gmID)); err == nil && ok {
			return v, nil
		}
	}
	n, err := s.notifications.UnreadCount(dbctx.Background(ctx), gmID)
	if err != nil {
		return 0, aggregates.MapError("notification.unread", err)
	}
	if s.cache != nil {
		if err := s.cache.SetInt(ctx, unreadKey(gmID), n, unreadCacheTTL); err != nil {
			s.log.Debug("Caching unread count failed", "gm_id", gmID, "error", err)
		}
	}
	return n, nil
}

func (s *notificationService) MarkRead(ctx context.Context, gmID, id uuid.UUID) error {
	if gmID == uuid.Nil {
		return domainagg.Permission("notification.mark_read", "caller is not linked to a GM")
	}
	owned, err := s.notifications.MarkRead(dbctx.Background(ctx), gmID, id)
	if err != nil {
		return aggregates.MapError("notification.mark_read", err)
	}
	if !owned {
		return domainagg.NotFound("notification.mark_read", "notification not found")
	}
	s.invalidate(ctx, gmID)
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, gmID uuid.UUID) (int64, error) {
	if gmID == uuid.Nil {
		return 0, domainagg.Permission("notification.mark_all_read", "caller is not linked to a GM")
	}
	n, err := s.notifications.MarkAllRead(dbctx.Background(ctx), gmID)
	if err != nil {
		return 0, aggregates.MapError("notification.mark_all_read", err)
	}
	s.invalidate(ctx, gmID)
	return n, nil
}

func (s *notificationService) invalidate(ctx context.Context, gmID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, unreadKey(gmID)); err != nil {
		s.log.Debug("Invalidating unread count failed", "gm_id", gmID, "error", err)
	}
}
