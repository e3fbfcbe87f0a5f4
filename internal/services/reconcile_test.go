package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	types "github.com/Zyedbelm/reservation-assignation-sub003/internal/domain"
	domainagg "github.com/Zyedbelm/reservation-assignation-sub003/internal/domain/aggregates"
	domainjobs "github.com/Zyedbelm/reservation-assignation-sub003/internal/domain/jobs"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/dbctx"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/logger"
)

type fakeRecordRepo struct {
	mu      sync.Mutex
	rec     *types.MigrationRecord
	failErr error
}

func (f *fakeRecordRepo) Get(dbc dbctx.Context, job string) (*types.MigrationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rec, nil
}

func (f *fakeRecordRepo) Claim(dbc dbctx.Context, job, by string, stale time.Duration) (bool, *types.MigrationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rec != nil && (f.rec.Status == domainjobs.MigrationStatusApplied ||
		(f.rec.Status == domainjobs.MigrationStatusRunning && time.Since(f.rec.ClaimedAt) < stale)) {
		return false, f.rec, nil
	}
	f.rec = &types.MigrationRecord{JobName: job, Status: domainjobs.MigrationStatusRunning, ClaimedBy: by, ClaimedAt: time.Now()}
	return true, f.rec, nil
}

func (f *fakeRecordRepo) Complete(dbc dbctx.Context, job, by string, fixed int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rec.Status, f.rec.FixedCount = domainjobs.MigrationStatusApplied, fixed
	return nil
}

func (f *fakeRecordRepo) Fail(dbc dbctx.Context, job, by string, fixed, failed int, lastErr string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	f.rec.Status, f.rec.FailedCount, f.rec.LastError = domainjobs.MigrationStatusFailed, failed, lastErr
	return nil
}

type fakeCache struct {
	mu    sync.Mutex
	flags map[string]bool
	ints  map[string]int64
}

func newFakeCache() *fakeCache {
	return &fakeCache{flags: map[string]bool{}, ints: map[string]int64{}}
}

func (c *fakeCache) GetFlag(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flags[key], nil
}

func (c *fakeCache) SetFlag(ctx context.Context, key string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flags[key] = true
	return nil
}

func (c *fakeCache) GetInt(ctx context.Context, key string) (int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.ints[key]
	return v, ok, nil
}

func (c *fakeCache) SetInt(ctx context.Context, key string, v int64, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ints[key] = v
	return nil
}

func (c *fakeCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.ints, k)
		delete(c.flags, k)
	}
	return nil
}

func (c *fakeCache) Close() error { return nil }

type reconcileFixture struct {
	svc      ReconciliationService
	gms      *fakeGMRepo
	profiles *fakeProfileRepo
	records  *fakeRecordRepo
	cache    *fakeCache
	admin    uuid.UUID
}

func newReconcileFixture(withCache bool) *reconcileFixture {
	f := &reconcileFixture{gms: newFakeGMRepo(), records: &fakeRecordRepo{}, admin: uuid.New()}
	existing := sampleGM()
	_, _ = f.gms.Create(dbcFor(), []*types.GM{existing})
	dangling := uuid.New()
	linked := existing.ID
	f.profiles = newFakeProfileRepo(f.gms,
		&types.Profile{UserID: f.admin, Email: "admin@example.com", Role: types.RoleAdmin},
		&types.Profile{UserID: uuid.New(), Email: "ok@example.com", Role: types.RoleGM, GMID: &linked},
		&types.Profile{UserID: uuid.New(), Email: "nolink@example.com", Role: types.RoleGM},
		&types.Profile{UserID: uuid.New(), Email: "dangling@example.com", Role: types.RoleGM, GMID: &dangling},
		&types.Profile{UserID: uuid.New(), Email: "optout@example.com", Role: types.RoleGM, DisableGMAutoCreate: true},
	)
	var cache *fakeCache
	if withCache {
		cache = newFakeCache()
		f.cache = cache
		f.svc = NewReconciliationService(logger.Nop(), f.profiles, f.gms, f.records, cache, nil)
	} else {
		f.svc = NewReconciliationService(logger.Nop(), f.profiles, f.gms, f.records, nil, nil)
	}
	return f
}

func TestReconcileFixesThenNoops(t *testing.T) {
	f := newReconcileFixture(false)
	first, err := f.svc.Reconcile(context.Background(), f.admin, ReconcileOptions{})
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if first.Candidates != 3 || first.Fixed != 2 || first.Created != 2 || first.Failed != 0 {
		t.Fatalf("first run: unexpected %+v", first)
	}
	if f.records.rec.Status != domainjobs.MigrationStatusApplied {
		t.Fatalf("guard: want applied got %q", f.records.rec.Status)
	}
	gmCount := len(f.gms.gms)

	second, err := f.svc.Reconcile(context.Background(), f.admin, ReconcileOptions{})
	if err != nil || !second.Skipped {
		t.Fatalf("second run: want skipped got %+v err=%v", second, err)
	}

	forced, err := f.svc.Reconcile(context.Background(), f.admin, ReconcileOptions{Force: true})
	if err != nil {
		t.Fatalf("Reconcile(force): %v", err)
	}
	if forced.Fixed != 0 || forced.ToFix != 0 || len(f.gms.gms) != gmCount {
		t.Fatalf("forced rerun must be a no-op: %+v gms=%d want=%d", forced, len(f.gms.gms), gmCount)
	}
}

func TestReconcileRequiresAdmin(t *testing.T) {
	f := newReconcileFixture(false)
	if _, err := f.svc.Reconcile(context.Background(), uuid.New(), ReconcileOptions{}); !domainagg.IsCode(err, domainagg.CodePermission) {
		t.Fatalf("Reconcile(unknown caller): want permission got %v", err)
	}
	if f.records.rec != nil {
		t.Fatalf("guard must not be claimed by a rejected caller")
	}
}

func TestReconcileFailureLeavesGuardRetryable(t *testing.T) {
	f := newReconcileFixture(false)
	var broken uuid.UUID
	for id, p := range f.profiles.profiles {
		if p.Email == "nolink@example.com" {
			broken = id
		}
	}
	f.profiles.ensureErr[broken] = errors.New("email owned by another user")

	res, err := f.svc.Reconcile(context.Background(), f.admin, ReconcileOptions{})
	if err != nil {
		t.Fatalf("Reconcile: per-item failure must not abort: %v", err)
	}
	if res.Fixed != 1 || res.Failed != 1 || len(res.Failures) != 1 {
		t.Fatalf("result: unexpected %+v", res)
	}
	if f.records.rec.Status != domainjobs.MigrationStatusFailed {
		t.Fatalf("guard: want failed got %q", f.records.rec.Status)
	}

	delete(f.profiles.ensureErr, broken)
	again, err := f.svc.Reconcile(context.Background(), f.admin, ReconcileOptions{})
	if err != nil || again.Skipped || again.Fixed != 1 {
		t.Fatalf("retry: unexpected %+v err=%v", again, err)
	}
}

func TestReconcileLogsGuardReleaseFailure(t *testing.T) {
	f := newReconcileFixture(false)
	core, logs := observer.New(zapcore.ErrorLevel)
	log := &logger.Logger{SugaredLogger: zap.New(core).Sugar()}
	f.svc = NewReconciliationService(log, f.profiles, f.gms, f.records, nil, nil)
	f.profiles.listErr = errors.New("profiles table unavailable")
	f.records.failErr = errors.New("connection reset")

	if _, err := f.svc.Reconcile(context.Background(), f.admin, ReconcileOptions{}); err == nil {
		t.Fatalf("Reconcile: want candidate listing error")
	}
	if f.records.rec.Status != domainjobs.MigrationStatusRunning {
		t.Fatalf("guard: want left running got %q", f.records.rec.Status)
	}
	entries := logs.FilterField(zap.String("job", domainjobs.JobGMProfileLinks)).All()
	if len(entries) != 1 {
		t.Fatalf("error logs: want 1 got %d (%v)", len(entries), logs.All())
	}
	fields := entries[0].ContextMap()
	if fields["error"] != "connection reset" {
		t.Fatalf("logged error: want=connection reset got=%v", fields["error"])
	}
}

func TestReconcileDryRunWritesNothing(t *testing.T) {
	f := newReconcileFixture(false)
	res, err := f.svc.Reconcile(context.Background(), f.admin, ReconcileOptions{DryRun: true})
	if err != nil {
		t.Fatalf("Reconcile(dry-run): %v", err)
	}
	if res.ToFix != 2 || res.Fixed != 0 || f.profiles.ensures != 0 || f.records.rec != nil {
		t.Fatalf("dry-run: unexpected %+v ensures=%d", res, f.profiles.ensures)
	}
}

func TestReconcileCacheFastPath(t *testing.T) {
	f := newReconcileFixture(true)
	if _, err := f.svc.Reconcile(context.Background(), f.admin, ReconcileOptions{}); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !f.cache.flags[appliedFlagKey(domainjobs.JobGMProfileLinks)] {
		t.Fatalf("applied flag not cached")
	}
	f.records.rec = nil
	res, err := f.svc.Reconcile(context.Background(), f.admin, ReconcileOptions{})
	if err != nil || !res.Skipped || f.records.rec != nil {
		t.Fatalf("fast path: want skip without touching the record, got %+v", res)
	}
}
