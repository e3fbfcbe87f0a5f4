package notification

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/Zyedbelm/reservation-assignation-sub003/internal/data/repos/testutil"
	types "github.com/Zyedbelm/reservation-assignation-sub003/internal/domain"
)

func newNotification(gmID uuid.UUID, typ types.NotificationType, createdAt time.Time) *types.Notification {
	return &types.Notification{
		GMID:      gmID,
		Type:      typ,
		Title:     "Nouvelle assignation",
		Message:   "Vous avez été assigné",
		EventData: datatypes.JSON([]byte(`{"title":"Escape"}`)),
		CreatedAt: createdAt,
	}
}

func TestNotificationRepoReadState(t *testing.T) {
	db, dbc := testutil.DBC(t)
	repo := NewNotificationRepo(db, testutil.Logger(t))

	gm := testutil.SeedGM(t, dbc.Tx, "reader@example.com")
	other := testutil.SeedGM(t, dbc.Tx, "other@example.com")
	now := time.Now().UTC()

	first, err := repo.Create(dbc, newNotification(gm.ID, types.NotificationAssignment, now.Add(-2*time.Minute)))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := repo.Create(dbc, newNotification(gm.ID, types.NotificationModified, now.Add(-time.Minute))); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := repo.Create(dbc, newNotification(gm.ID, "bogus", now)); err == nil {
		t.Fatalf("Create with unknown type: expected error")
	}

	list, err := repo.ListForGM(dbc, gm.ID, 10, 0)
	if err != nil || len(list) != 2 {
		t.Fatalf("ListForGM: len=%d err=%v", len(list), err)
	}
	if list[0].Type != types.NotificationModified {
		t.Fatalf("ListForGM: expected newest first, got %s", list[0].Type)
	}

	if n, err := repo.UnreadCount(dbc, gm.ID); err != nil || n != 2 {
		t.Fatalf("UnreadCount: n=%d err=%v", n, err)
	}

	owned, err := repo.MarkRead(dbc, other.ID, first.ID)
	if err != nil || owned {
		t.Fatalf("MarkRead by non-owner: owned=%v err=%v", owned, err)
	}
	if n, _ := repo.UnreadCount(dbc, gm.ID); n != 2 {
		t.Fatalf("non-owner MarkRead changed state: unread=%d", n)
	}

	owned, err = repo.MarkRead(dbc, gm.ID, first.ID)
	if err != nil || !owned {
		t.Fatalf("MarkRead: owned=%v err=%v", owned, err)
	}
	if n, _ := repo.UnreadCount(dbc, gm.ID); n != 1 {
		t.Fatalf("UnreadCount after MarkRead: %d", n)
	}

	changed, err := repo.MarkAllRead(dbc, gm.ID)
	if err != nil || changed != 1 {
		t.Fatalf("MarkAllRead: changed=%d err=%v", changed, err)
	}
	if n, _ := repo.UnreadCount(dbc, gm.ID); n != 0 {
		t.Fatalf("UnreadCount after MarkAllRead: %d", n)
	}
}

func TestNotificationRepoEmailState(t *testing.T) {
	db, dbc := testutil.DBC(t)
	repo := NewNotificationRepo(db, testutil.Logger(t))

	gm := testutil.SeedGM(t, dbc.Tx, "mail@example.com")
	now := time.Now().UTC()

	fresh, _ := repo.Create(dbc, newNotification(gm.ID, types.NotificationAssignment, now))
	pending, _ := repo.Create(dbc, newNotification(gm.ID, types.NotificationAssignment, now.Add(-10*time.Minute)))
	exhausted, _ := repo.Create(dbc, newNotification(gm.ID, types.NotificationCancelled, now.Add(-20*time.Minute)))
	ancient, _ := repo.Create(dbc, newNotification(gm.ID, types.NotificationUnassigned, now.Add(-72*time.Hour)))
	sent, _ := repo.Create(dbc, newNotification(gm.ID, types.NotificationModified, now.Add(-30*time.Minute)))
	if fresh == nil || pending == nil || exhausted == nil || ancient == nil || sent == nil {
		t.Fatalf("Create: seed failed")
	}

	ok, err := repo.MarkEmailSent(dbc, sent.ID, now)
	if err != nil || !ok {
		t.Fatalf("MarkEmailSent: ok=%v err=%v", ok, err)
	}
	ok, err = repo.MarkEmailSent(dbc, sent.ID, now)
	if err != nil || ok {
		t.Fatalf("MarkEmailSent twice: ok=%v err=%v", ok, err)
	}
	got, _ := repo.GetByID(dbc, sent.ID)
	if got == nil || !got.EmailSent || got.EmailSentAt == nil {
		t.Fatalf("MarkEmailSent: row not updated: %+v", got)
	}

	for i := 0; i < 2; i++ {
		if err := repo.RecordAttempt(dbc, &types.DeliveryAttempt{NotificationID: exhausted.ID, Error: "smtp down"}); err != nil {
			t.Fatalf("RecordAttempt: %v", err)
		}
	}
	if n, err := repo.CountAttempts(dbc, exhausted.ID); err != nil || n != 2 {
		t.Fatalf("CountAttempts: n=%d err=%v", n, err)
	}

	leased, _ := repo.Create(dbc, newNotification(gm.ID, types.NotificationAssignment, now.Add(-11*time.Minute)))
	staleLease, _ := repo.Create(dbc, newNotification(gm.ID, types.NotificationAssignment, now.Add(-12*time.Minute)))
	accepted, _ := repo.Create(dbc, newNotification(gm.ID, types.NotificationAssignment, now.Add(-13*time.Minute)))
	if leased == nil || staleLease == nil || accepted == nil {
		t.Fatalf("Create: seed failed")
	}
	if err := repo.RecordAttempt(dbc, &types.DeliveryAttempt{NotificationID: leased.ID, Pending: true, AttemptedAt: now}); err != nil {
		t.Fatalf("RecordAttempt(lease): %v", err)
	}
	if err := repo.RecordAttempt(dbc, &types.DeliveryAttempt{NotificationID: staleLease.ID, Pending: true, AttemptedAt: now.Add(-time.Hour)}); err != nil {
		t.Fatalf("RecordAttempt(stale lease): %v", err)
	}
	// Accepted by the provider but the flag never landed: must not be resent.
	if err := repo.RecordAttempt(dbc, &types.DeliveryAttempt{NotificationID: accepted.ID, Succeeded: true, MessageID: "m-1"}); err != nil {
		t.Fatalf("RecordAttempt(accepted): %v", err)
	}

	claimed, err := repo.ClaimUnsent(dbc, now.Add(-48*time.Hour), now.Add(-2*time.Minute), now.Add(-15*time.Minute), 2, 10)
	if err != nil {
		t.Fatalf("ClaimUnsent: %v", err)
	}
	ids := map[uuid.UUID]bool{}
	for _, c := range claimed {
		ids[c.ID] = true
	}
	if len(claimed) != 2 || !ids[pending.ID] || !ids[staleLease.ID] {
		t.Fatalf("ClaimUnsent: want %v and %v, got %v", pending.ID, staleLease.ID, ids)
	}
}

func TestResolveAttempt(t *testing.T) {
	db, dbc := testutil.DBC(t)
	repo := NewNotificationRepo(db, testutil.Logger(t))
	gm := testutil.SeedGM(t, dbc.Tx, "lease@example.com")
	n, _ := repo.Create(dbc, newNotification(gm.ID, types.NotificationAssignment, time.Now().UTC()))

	lease := &types.DeliveryAttempt{NotificationID: n.ID, Pending: true}
	if err := repo.RecordAttempt(dbc, lease); err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}
	lease.Succeeded, lease.MessageID = true, "msg-42"
	if err := repo.ResolveAttempt(dbc, lease); err != nil {
		t.Fatalf("ResolveAttempt: %v", err)
	}
	var got types.DeliveryAttempt
	if err := dbc.Tx.Where("id = ?", lease.ID).First(&got).Error; err != nil {
		t.Fatalf("load attempt: %v", err)
	}
	if got.Pending || !got.Succeeded || got.MessageID != "msg-42" {
		t.Fatalf("ResolveAttempt: unexpected %+v", got)
	}
	if err := repo.ResolveAttempt(dbc, &types.DeliveryAttempt{}); err == nil {
		t.Fatalf("ResolveAttempt(no id): want error")
	}
}
