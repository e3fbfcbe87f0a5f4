package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Zyedbelm/reservation-assignation-sub003/internal/data/repos"
	types "github.com/Zyedbelm/reservation-assignation-sub003/internal/domain"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/dbctx"
)

type fakeNotificationRepo struct {
	mu        sync.Mutex
	rows      []*types.Notification
	attempts  []*types.DeliveryAttempt
	createErr error
	markCalls int
}

func (f *fakeNotificationRepo) Create(dbc dbctx.Context, n *types.Notification) (*types.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	n.CreatedAt = time.Now().UTC()
	f.rows = append(f.rows, n)
	return n, nil
}

func (f *fakeNotificationRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.rows {
		if n.ID == id {
			return n, nil
		}
	}
	return nil, nil
}

func (f *fakeNotificationRepo) ListForGM(dbc dbctx.Context, gmID uuid.UUID, limit, offset int) ([]*types.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*types.Notification{}
	for _, n := range f.rows {
		if n.GMID == gmID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeNotificationRepo) UnreadCount(dbc dbctx.Context, gmID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var c int64
	for _, n := range f.rows {
		if n.GMID == gmID && !n.IsRead {
			c++
		}
	}
	return c, nil
}

func (f *fakeNotificationRepo) MarkRead(dbc dbctx.Context, gmID, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.rows {
		if n.ID == id && n.GMID == gmID {
			n.IsRead = true
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeNotificationRepo) MarkAllRead(dbc dbctx.Context, gmID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var c int64
	for _, n := range f.rows {
		if n.GMID == gmID && !n.IsRead {
			n.IsRead = true
			c++
		}
	}
	return c, nil
}

func (f *fakeNotificationRepo) MarkEmailSent(dbc dbctx.Context, id uuid.UUID, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markCalls++
	if dbc.Ctx != nil && dbc.Ctx.Err() != nil {
		return false, dbc.Ctx.Err()
	}
	for _, n := range f.rows {
		if n.ID == id && !n.EmailSent {
			n.EmailSent = true
			n.EmailSentAt = &at
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeNotificationRepo) ClaimUnsent(dbc dbctx.Context, createdAfter, createdBefore, leasedAfter time.Time, maxAttempts, limit int) ([]*types.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*types.Notification{}
	for _, n := range f.rows {
		if !n.EmailSent && len(out) < limit {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeNotificationRepo) RecordAttempt(dbc dbctx.Context, a *types.DeliveryAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts = append(f.attempts, a)
	return nil
}

func (f *fakeNotificationRepo) ResolveAttempt(dbc dbctx.Context, a *types.DeliveryAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if dbc.Ctx != nil && dbc.Ctx.Err() != nil {
		return dbc.Ctx.Err()
	}
	for _, existing := range f.attempts {
		if existing == a {
			a.Pending = false
			return nil
		}
	}
	return fmt.Errorf("attempt %s not found", a.ID)
}

func (f *fakeNotificationRepo) CountAttempts(dbc dbctx.Context, notificationID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var c int64
	for _, a := range f.attempts {
		if a.NotificationID == notificationID {
			c++
		}
	}
	return c, nil
}

type fakeGMRepo struct {
	mu  sync.Mutex
	gms map[uuid.UUID]*types.GM
}

func newFakeGMRepo(gms ...*types.GM) *fakeGMRepo {
	f := &fakeGMRepo{gms: map[uuid.UUID]*types.GM{}}
	for _, g := range gms {
		f.gms[g.ID] = g
	}
	return f
}

func (f *fakeGMRepo) Create(dbc dbctx.Context, gms []*types.GM) ([]*types.GM, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range gms {
		if g.ID == uuid.Nil {
			g.ID = uuid.New()
		}
		f.gms[g.ID] = g
	}
	return gms, nil
}

func (f *fakeGMRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.GM, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gms[id], nil
}

func (f *fakeGMRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.GM, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*types.GM{}
	for _, id := range ids {
		if g, ok := f.gms[id]; ok {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeGMRepo) GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.GM, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range f.gms {
		if g.UserID != nil && *g.UserID == userID {
			return g, nil
		}
	}
	return nil, nil
}

func (f *fakeGMRepo) GetByEmail(dbc dbctx.Context, email string) (*types.GM, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range f.gms {
		if strings.EqualFold(g.Email, email) {
			return g, nil
		}
	}
	return nil, nil
}

func (f *fakeGMRepo) ListIDs(dbc dbctx.Context) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]uuid.UUID, 0, len(f.gms))
	for id := range f.gms {
		out = append(out, id)
	}
	return out, nil
}

func (f *fakeGMRepo) ListActive(dbc dbctx.Context) ([]*types.GM, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*types.GM{}
	for _, g := range f.gms {
		if g.IsActive {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (f *fakeGMRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	return nil
}

type fakeProfileRepo struct {
	mu        sync.Mutex
	profiles  map[uuid.UUID]*types.Profile
	gms       *fakeGMRepo
	ensureErr map[uuid.UUID]error
	listErr   error
	ensures   int
}

func newFakeProfileRepo(gms *fakeGMRepo, profiles ...*types.Profile) *fakeProfileRepo {
	f := &fakeProfileRepo{profiles: map[uuid.UUID]*types.Profile{}, gms: gms, ensureErr: map[uuid.UUID]error{}}
	for _, p := range profiles {
		f.profiles[p.UserID] = p
	}
	return f
}

func (f *fakeProfileRepo) Create(dbc dbctx.Context, p *types.Profile) (*types.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[p.UserID] = p
	return p, nil
}

func (f *fakeProfileRepo) GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profiles[userID], nil
}

func (f *fakeProfileRepo) ListByRole(dbc dbctx.Context, role string) ([]*types.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*types.Profile{}
	for _, p := range f.profiles {
		if p.Role == role {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (f *fakeProfileRepo) ListGMCandidates(dbc dbctx.Context) ([]*types.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := []*types.Profile{}
	for _, p := range f.profiles {
		if p.Role == types.RoleGM && !p.DisableGMAutoCreate {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

// EnsureGMProfileForUser mirrors the repo: no-op when linked, reuse by email,
// otherwise create.
func (f *fakeProfileRepo) EnsureGMProfileForUser(dbc dbctx.Context, in repos.EnsureGMInput) (*repos.EnsureGMResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensures++
	if err := f.ensureErr[in.UserID]; err != nil {
		return nil, err
	}
	p := f.profiles[in.UserID]
	if p == nil {
		return nil, errors.New("profile not found")
	}
	if p.GMID != nil {
		if g, _ := f.gms.GetByID(dbc, *p.GMID); g != nil {
			return &repos.EnsureGMResult{GMID: g.ID}, nil
		}
	}
	res := &repos.EnsureGMResult{Changed: true}
	g, _ := f.gms.GetByEmail(dbc, in.Email)
	if g != nil {
		res.Reattached = true
	} else {
		g = &types.GM{ID: uuid.New(), Email: in.Email, FirstName: in.FirstName, LastName: in.LastName, IsActive: true}
		_, _ = f.gms.Create(dbc, []*types.GM{g})
		res.Created = true
	}
	uid := in.UserID
	g.UserID = &uid
	id := g.ID
	p.GMID = &id
	res.GMID = g.ID
	return res, nil
}

type fakeMailer struct {
	mu        sync.Mutex
	sent      []MailMessage
	err       error
	failTo    map[string]bool
	afterSend func()
}

func (f *fakeMailer) Send(ctx context.Context, msg MailMessage) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil || f.failTo[msg.To.Email] {
		if f.err != nil {
			return "", f.err
		}
		return "", errors.New("mailbox unavailable")
	}
	f.sent = append(f.sent, msg)
	if f.afterSend != nil {
		f.afterSend()
	}
	return "msg-" + msg.To.Email, nil
}

func (f *fakeMailer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeActivityRepo struct {
	mu         sync.Mutex
	activities map[uuid.UUID]*types.Activity
	updates    []map[string]interface{}
}

func newFakeActivityRepo(acts ...*types.Activity) *fakeActivityRepo {
	f := &fakeActivityRepo{activities: map[uuid.UUID]*types.Activity{}}
	for _, a := range acts {
		f.activities[a.ID] = a
	}
	return f
}

func (f *fakeActivityRepo) Create(dbc dbctx.Context, acts []*types.Activity) ([]*types.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range acts {
		if a.ID == uuid.Nil {
			a.ID = uuid.New()
		}
		if a.Status == "" {
			a.Status = "scheduled"
		}
		cp := *a
		f.activities[a.ID] = &cp
	}
	return acts, nil
}

func (f *fakeActivityRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.activities[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (f *fakeActivityRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Activity, error) {
	out := []*types.Activity{}
	for _, id := range ids {
		if a, _ := f.GetByID(dbc, id); a != nil {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeActivityRepo) ListByDateRange(dbc dbctx.Context, from, to string, includeCancelled bool) ([]*types.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*types.Activity{}
	for _, a := range f.activities {
		if (from == "" || a.Date >= from) && (to == "" || a.Date <= to) && (includeCancelled || !a.IsCancelled()) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out, nil
}

func (f *fakeActivityRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, updates)
	a, ok := f.activities[id]
	if !ok {
		return nil
	}
	for k, v := range updates {
		switch k {
		case "title":
			a.Title = v.(string)
		case "description":
			a.Description = v.(string)
		case "date":
			a.Date = v.(string)
		case "start_time":
			a.StartTime = v.(string)
		case "end_time":
			a.EndTime = v.(string)
		case "duration_minutes":
			a.DurationMinutes, _ = v.(*int)
		case "status":
			a.Status = v.(string)
		case "assigned_gm_id":
			if v == nil {
				a.AssignedGMID = nil
			}
		}
	}
	return nil
}

type fakeAssignmentRepo struct {
	mu   sync.Mutex
	rows []types.Assignment
}

func (f *fakeAssignmentRepo) Create(dbc dbctx.Context, a *types.Assignment) (*types.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.ActivityID == a.ActivityID && r.GMID == a.GMID {
			return nil, errors.New("UNIQUE constraint failed: activity_assignment.activity_id, activity_assignment.gm_id")
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	f.rows = append(f.rows, *a)
	return a, nil
}

func (f *fakeAssignmentRepo) ListByActivity(dbc dbctx.Context, activityID uuid.UUID) ([]types.Assignment, error) {
	return f.ListByActivities(dbc, []uuid.UUID{activityID})
}

func (f *fakeAssignmentRepo) ListByActivities(dbc dbctx.Context, ids []uuid.UUID) ([]types.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	want := map[uuid.UUID]bool{}
	for _, id := range ids {
		want[id] = true
	}
	out := []types.Assignment{}
	for _, r := range f.rows {
		if want[r.ActivityID] {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeAssignmentRepo) ListByGM(dbc dbctx.Context, gmID uuid.UUID) ([]types.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []types.Assignment{}
	for _, r := range f.rows {
		if r.GMID == gmID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeAssignmentRepo) Delete(dbc dbctx.Context, activityID, gmID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, r := range f.rows {
		if r.ActivityID == activityID && r.GMID == gmID {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAssignmentRepo) MaxOrder(dbc dbctx.Context, activityID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	max := 0
	for _, r := range f.rows {
		if r.ActivityID == activityID && r.Order() > max {
			max = r.Order()
		}
	}
	return max, nil
}

// recordingDispatcher captures calls instead of writing rows.
type recordingDispatcher struct {
	mu          sync.Mutex
	assignments []uuid.UUID
	changes     []types.NotificationType
	changeGMs   []uuid.UUID
	lastOrig    *types.Activity
	lastUpdated *types.Activity
	adminCalls  int
	adminActs   int
	failWith    error
}

func (r *recordingDispatcher) NotifyAssignment(ctx context.Context, gmID uuid.UUID, a *types.Activity) (*Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	r.assignments = append(r.assignments, gmID)
	return &Delivery{Outcome: OutcomePersistedAndNotified}, nil
}

func (r *recordingDispatcher) NotifyChange(ctx context.Context, gmID uuid.UUID, typ types.NotificationType, original, updated *types.Activity) (*Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	r.changes = append(r.changes, typ)
	r.changeGMs = append(r.changeGMs, gmID)
	r.lastOrig, r.lastUpdated = original, updated
	return &Delivery{Outcome: OutcomePersisted}, nil
}

func (r *recordingDispatcher) NotifyAdminUnassigned(ctx context.Context, acts []*types.Activity) (*AdminSummaryResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adminCalls++
	r.adminActs += len(acts)
	return &AdminSummaryResult{Activities: len(acts)}, nil
}

func (r *recordingDispatcher) Redeliver(dbc dbctx.Context, n *types.Notification, lease *types.DeliveryAttempt) error {
	return nil
}

func (r *recordingDispatcher) EmailEnabled() bool { return true }

func dbcFor() dbctx.Context { return dbctx.Background(context.Background()) }
