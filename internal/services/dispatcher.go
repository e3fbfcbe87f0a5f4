package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/Zyedbelm/reservation-assignation-sub003/internal/clients/redis"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/data/aggregates"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/data/repos"
	types "github.com/Zyedbelm/reservation-assignation-sub003/internal/domain"
	domainagg "github.com/Zyedbelm/reservation-assignation-sub003/internal/domain/aggregates"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/observability"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/dbctx"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/logger"
)

type DeliveryOutcome string

const postSendTimeout = 10 * time.Second

const (
	// OutcomePersisted: the row is stored, no email went out for it (yet).
	OutcomePersisted DeliveryOutcome = "persisted"
	// OutcomePersistedAndNotified: the row is stored and its email was accepted.
	OutcomePersistedAndNotified DeliveryOutcome = "persisted_and_notified"
)

// Delivery is the result of one dispatcher call. EmailErr is set when the row was
// stored but the email attempt failed; it never turns into a returned error.
type Delivery struct {
	Notification *types.Notification
	Outcome      DeliveryOutcome
	EmailErr     error
}

func (d *Delivery) Notified() bool {
	return d != nil && d.Outcome == OutcomePersistedAndNotified
}

type AdminSummaryResult struct {
	Activities int
	Recipients int
	Sent       int
	Failed     int
}

// NotificationDispatcher writes a notification row and then tries to email it.
// The row insert is the only step whose failure is returned.
type NotificationDispatcher interface {
	NotifyAssignment(ctx context.Context, gmID uuid.UUID, activity *types.Activity) (*Delivery, error)
	// NotifyChange covers modified, cancelled and unassigned. updated may be nil.
	NotifyChange(ctx context.Context, gmID uuid.UUID, changeType types.NotificationType, original, updated *types.Activity) (*Delivery, error)
	NotifyAdminUnassigned(ctx context.Context, activities []*types.Activity) (*AdminSummaryResult, error)
	// Redeliver emails an already stored row that still has email_sent = false.
	// A non-nil lease is the pending attempt taken by the caller and is resolved
	// with the outcome.
	Redeliver(dbc dbctx.Context, n *types.Notification, lease *types.DeliveryAttempt) error
	EmailEnabled() bool
}

type notificationDispatcher struct {
	log           *logger.Logger
	notifications repos.NotificationRepo
	cache         redis.Cache
	gms           repos.GMRepo
	profiles      repos.ProfileRepo
	mailer        MailSender
	adminEmails   []string
	metrics       *observability.Metrics
	now           func() time.Time
}

func NewNotificationDispatcher(
	baseLog *logger.Logger,
	notifications repos.NotificationRepo,
	cache redis.Cache,
	gms repos.GMRepo,
	profiles repos.ProfileRepo,
	mailer MailSender,
	adminEmails []string,
	metrics *observability.Metrics,
) NotificationDispatcher {
	return &notificationDispatcher{
		log:           baseLog.With("service", "NotificationDispatcher"),
		notifications: notifications,
		cache:         cache,
		gms:           gms,
		profiles:      profiles,
		mailer:        mailer,
		adminEmails:   adminEmails,
		metrics:       metrics,
		now:           time.Now,
	}
}

type activitySnapshot struct {
	ID              uuid.UUID `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	Date            string    `json:"date"`
	StartTime       string    `json:"start_time"`
	EndTime         string    `json:"end_time"`
	DurationMinutes *int      `json:"duration_minutes,omitempty"`
	ActivityType    string    `json:"activity_type,omitempty"`
	Status          string    `json:"status,omitempty"`
}

// eventPayload is what lands in notification.event_data.
type eventPayload struct {
	Activity activitySnapshot  `json:"activity"`
	Previous *activitySnapshot `json:"previous,omitempty"`
	Changes  []string          `json:"changes,omitempty"`
}

func snapshotOf(a *types.Activity) activitySnapshot {
	return activitySnapshot{
		ID:              a.ID,
		Title:           a.Title,
		Description:     a.Description,
		Date:            a.Date,
		StartTime:       a.StartTime,
		EndTime:         a.EndTime,
		DurationMinutes: a.DurationMinutes,
		ActivityType:    a.ActivityType,
		Status:          a.Status,
	}
}

func (d *notificationDispatcher) EmailEnabled() bool { return d.mailer != nil }

func (d *notificationDispatcher) NotifyAssignment(ctx context.Context, gmID uuid.UUID, activity *types.Activity) (*Delivery, error) {
	return d.dispatch(ctx, gmID, types.NotificationAssignment, activity, nil, nil)
}

func (d *notificationDispatcher) NotifyChange(ctx context.Context, gmID uuid.UUID, changeType types.NotificationType, original, updated *types.Activity) (*Delivery, error) {
	switch changeType {
	case types.NotificationModified, types.NotificationCancelled, types.NotificationUnassigned:
	default:
		return nil, domainagg.Validation("notification.change", fmt.Sprintf("unsupported change type %q", changeType))
	}
	if original == nil {
		return nil, domainagg.Validation("notification.change", "original activity required")
	}
	current := original
	var changes []string
	if updated != nil {
		current = updated
		if changeType == types.NotificationModified {
			changes = ChangeLines(original, updated)
		}
	}
	var previous *types.Activity
	if changeType == types.NotificationModified && updated != nil {
		previous = original
	}
	return d.dispatch(ctx, gmID, changeType, current, previous, changes)
}

func (d *notificationDispatcher) dispatch(ctx context.Context, gmID uuid.UUID, typ types.NotificationType, current, previous *types.Activity, changes []string) (*Delivery, error) {
	ctx, span := observability.Tracer().Start(ctx, "notification.dispatch",
		trace.WithAttributes(attribute.String("notification.type", string(typ))))
	defer span.End()

	n, err := d.persist(ctx, gmID, typ, current, previous, changes)
	if err != nil {
		observability.FailSpan(span, err, "persist failed")
		return nil, err
	}
	out := &Delivery{Notification: n, Outcome: OutcomePersisted}
	if d.mailer == nil {
		return out, nil
	}
	if err := d.deliver(dbctx.Background(ctx), n, nil, "dispatch"); err != nil {
		span.AddEvent("email failed")
		d.log.Warn("Notification email failed; row kept for re-delivery",
			"notification_id", n.ID,
			"gm_id", gmID,
			"type", string(typ),
			"error", err,
		)
		out.EmailErr = err
		return out, nil
	}
	out.Outcome = OutcomePersistedAndNotified
	return out, nil
}

func (d *notificationDispatcher) persist(ctx context.Context, gmID uuid.UUID, typ types.NotificationType, current, previous *types.Activity, changes []string) (*types.Notification, error) {
	if gmID == uuid.Nil {
		return nil, domainagg.Validation("notification.persist", "gm_id required")
	}
	if current == nil {
		return nil, domainagg.Validation("notification.persist", "activity required")
	}
	payload := eventPayload{Activity: snapshotOf(current), Changes: changes}
	if previous != nil {
		p := snapshotOf(previous)
		payload.Previous = &p
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, "notification.persist", err)
	}
	title, message := notificationText(typ, current, changes)
	n := &types.Notification{
		GMID:      gmID,
		Type:      typ,
		Title:     title,
		Message:   message,
		EventData: datatypes.JSON(raw),
	}
	if current.ID != uuid.Nil {
		id := current.ID
		n.EventID = &id
	}
	created, err := d.notifications.Create(dbctx.Background(ctx), n)
	if err != nil {
		return nil, aggregates.MapError("notification.persist", err)
	}
	d.metrics.IncNotificationPersisted(string(typ))
	if d.cache != nil {
		if err := d.cache.Delete(ctx, unreadKey(gmID)); err != nil {
			d.log.Warn("Unread count invalidation failed", "gm_id", gmID, "error", err)
		}
	}
	return created, nil
}

func notificationText(typ types.NotificationType, a *types.Activity, changes []string) (string, string) {
	when := strings.TrimSpace(a.Date + " " + a.StartTime)
	switch typ {
	case types.NotificationAssignment:
		return "New assignment: " + a.Title,
			fmt.Sprintf("You have been assigned to %s on %s from %s to %s.", a.Title, a.Date, a.StartTime, a.EndTime)
	case types.NotificationModified:
		if len(changes) == 0 {
			return "Activity updated: " + a.Title, fmt.Sprintf("%s on %s was updated.", a.Title, a.Date)
		}
		return "Activity updated: " + a.Title,
			fmt.Sprintf("%s on %s was updated. %s.", a.Title, a.Date, strings.Join(changes, "; "))
	case types.NotificationCancelled:
		return "Activity cancelled: " + a.Title, fmt.Sprintf("%s on %s has been cancelled.", a.Title, when)
	default:
		return "Unassigned: " + a.Title, fmt.Sprintf("You are no longer assigned to %s on %s.", a.Title, when)
	}
}

func (d *notificationDispatcher) Redeliver(dbc dbctx.Context, n *types.Notification, lease *types.DeliveryAttempt) error {
	if d.mailer == nil {
		return domainagg.Dependency("notification.redeliver", fmt.Errorf("email disabled"))
	}
	if n == nil || n.EmailSent {
		return nil
	}
	if dbc.Ctx == nil {
		dbc.Ctx = context.Background()
	}
	return d.deliver(dbc, n, lease, "sweep")
}

// deliver sends the email for n and records the attempt. The email_sent flag only
// flips after the provider accepted the message. Writes after the send run on a
// context detached from the caller's and bounded by postSendTimeout.
func (d *notificationDispatcher) deliver(dbc dbctx.Context, n *types.Notification, lease *types.DeliveryAttempt, source string) error {
	gm, err := d.gms.GetByID(dbc, n.GMID)
	if err != nil {
		return aggregates.MapError("notification.email.recipient", err)
	}

	var (
		messageID string
		sendErr   error
	)
	if gm == nil || strings.TrimSpace(gm.Email) == "" {
		sendErr = fmt.Errorf("gm %s has no email address", n.GMID)
	} else {
		messageID, sendErr = d.mailer.Send(dbc.Ctx, MailMessage{
			To:         MailRecipient{Email: gm.Email, Name: gm.DisplayName()},
			Kind:       string(n.Type),
			Data:       emailData(gm.DisplayName(), n),
			CustomArgs: map[string]string{"notification_id": n.ID.String()},
		})
	}

	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(dbc.Ctx), postSendTimeout)
	defer cancel()
	store := dbctx.Context{Ctx: storeCtx, Tx: dbc.Tx}

	attempt := lease
	if attempt == nil {
		attempt = &types.DeliveryAttempt{NotificationID: n.ID}
	}
	attempt.Pending = false
	attempt.Succeeded = sendErr == nil
	attempt.MessageID = messageID
	if sendErr != nil {
		attempt.Error = truncate(sendErr.Error(), 2000)
	}
	if lease != nil {
		err = d.notifications.ResolveAttempt(store, attempt)
	} else {
		err = d.notifications.RecordAttempt(store, attempt)
	}
	if err != nil {
		d.log.Warn("Recording delivery attempt failed", "notification_id", n.ID, "error", err)
	}
	d.metrics.IncEmail(source, sendErr == nil)
	if sendErr != nil {
		return domainagg.Dependency("notification.email", sendErr)
	}

	at := d.now().UTC()
	if _, err := d.notifications.MarkEmailSent(store, n.ID, at); err != nil {
		d.log.Error("Email sent but email_sent flag not stored",
			"notification_id", n.ID,
			"message_id", messageID,
			"error", err,
		)
		return nil
	}
	n.EmailSent = true
	n.EmailSentAt = &at
	return nil
}

func emailData(recipientName string, n *types.Notification) map[string]any {
	var payload eventPayload
	if len(n.EventData) > 0 {
		_ = json.Unmarshal(n.EventData, &payload)
	}
	changes := payload.Changes
	if changes == nil {
		changes = []string{}
	}
	return map[string]any{
		"recipient_name":    recipientName,
		"notification_id":   n.ID.String(),
		"notification_type": string(n.Type),
		"title":             payload.Activity.Title,
		"date":              payload.Activity.Date,
		"start_time":        payload.Activity.StartTime,
		"end_time":          payload.Activity.EndTime,
		"message":           n.Message,
		"changes":           changes,
	}
}

func (d *notificationDispatcher) NotifyAdminUnassigned(ctx context.Context, activities []*types.Activity) (*AdminSummaryResult, error) {
	list := make([]*types.Activity, 0, len(activities))
	for _, a := range activities {
		if a != nil {
			list = append(list, a)
		}
	}
	res := &AdminSummaryResult{Activities: len(list)}
	if len(list) == 0 {
		return res, nil
	}
	if d.mailer == nil {
		d.metrics.IncAdminSummary("disabled")
		return res, nil
	}
	ctx, span := observability.Tracer().Start(ctx, "notification.admin_unassigned",
		trace.WithAttributes(attribute.Int("activities", len(list))))
	defer span.End()

	recipients, err := d.adminRecipients(ctx)
	if err != nil {
		observability.FailSpan(span, err, "load admin recipients failed")
		return nil, err
	}
	res.Recipients = len(recipients)

	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Date != list[j].Date {
			return list[i].Date < list[j].Date
		}
		return list[i].StartTime < list[j].StartTime
	})
	rows := make([]map[string]any, 0, len(list))
	for _, a := range list {
		rows = append(rows, map[string]any{
			"id":         a.ID.String(),
			"title":      a.Title,
			"date":       a.Date,
			"start_time": a.StartTime,
			"end_time":   a.EndTime,
		})
	}

	for _, r := range recipients {
		_, err := d.mailer.Send(ctx, MailMessage{
			To:   r,
			Kind: MailKindAdminUnassigned,
			Data: map[string]any{
				"recipient_name": r.Name,
				"count":          len(rows),
				"activities":     rows,
			},
		})
		if err != nil {
			res.Failed++
			d.metrics.IncAdminSummary("failed")
			d.log.Warn("Admin summary email failed", "recipient", r.Email, "error", err)
			continue
		}
		res.Sent++
		d.metrics.IncAdminSummary("sent")
	}
	return res, nil
}

// adminRecipients merges admin profiles with the configured extra addresses,
// deduplicated by email.
func (d *notificationDispatcher) adminRecipients(ctx context.Context) ([]MailRecipient, error) {
	seen := map[string]bool{}
	out := []MailRecipient{}
	add := func(email, name string) {
		key := strings.ToLower(strings.TrimSpace(email))
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		if strings.TrimSpace(name) == "" {
			name = strings.TrimSpace(email)
		}
		out = append(out, MailRecipient{Email: strings.TrimSpace(email), Name: name})
	}
	if d.profiles != nil {
		admins, err := d.profiles.ListByRole(dbctx.Background(ctx), types.RoleAdmin)
		if err != nil {
			return nil, aggregates.MapError("notification.admin_recipients", err)
		}
		for _, p := range admins {
			add(p.Email, strings.TrimSpace(p.FirstName+" "+p.LastName))
		}
	}
	for _, e := range d.adminEmails {
		add(e, "")
	}
	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
