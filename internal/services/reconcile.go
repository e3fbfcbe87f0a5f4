package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Zyedbelm/reservation-assignation-sub003/internal/clients/redis"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/data/aggregates"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/data/repos"
	types "github.com/Zyedbelm/reservation-assignation-sub003/internal/domain"
	domainagg "github.com/Zyedbelm/reservation-assignation-sub003/internal/domain/aggregates"
	domainjobs "github.com/Zyedbelm/reservation-assignation-sub003/internal/domain/jobs"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/observability"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/dbctx"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/logger"
)

const (
	reconcileStaleAfter = 15 * time.Minute
	reconcileFlagTTL    = 24 * time.Hour
)

type ReconcileOptions struct {
	// Force skips the one-time guard. The per-profile ensure stays idempotent.
	Force bool
	// DryRun reports what would be fixed without writing anything.
	DryRun    bool
	ClaimedBy string
}

type ReconcileFailure struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	Error  string    `json:"error"`
}

type ReconcileResult struct {
	Skipped    bool               `json:"skipped"`
	SkipReason string             `json:"skip_reason,omitempty"`
	DryRun     bool               `json:"dry_run"`
	Candidates int                `json:"candidates"`
	ToFix      int                `json:"to_fix"`
	Fixed      int                `json:"fixed"`
	Created    int                `json:"created"`
	Reattached int                `json:"reattached"`
	Failed     int                `json:"failed"`
	Failures   []ReconcileFailure `json:"failures"`
}

// ReconciliationService repairs GM profiles whose gm_id is missing or points at a
// GM that no longer exists.
type ReconciliationService interface {
	Reconcile(ctx context.Context, callerUserID uuid.UUID, opts ReconcileOptions) (*ReconcileResult, error)
	Status(ctx context.Context) (*types.MigrationRecord, error)
}

type reconciliationService struct {
	log      *logger.Logger
	profiles repos.ProfileRepo
	gms      repos.GMRepo
	records  repos.MigrationRecordRepo
	cache    redis.Cache
	metrics  *observability.Metrics
}

func NewReconciliationService(
	baseLog *logger.Logger,
	profiles repos.ProfileRepo,
	gms repos.GMRepo,
	records repos.MigrationRecordRepo,
	cache redis.Cache,
	metrics *observability.Metrics,
) ReconciliationService {
	return &reconciliationService{
		log:      baseLog.With("service", "ReconciliationService"),
		profiles: profiles,
		gms:      gms,
		records:  records,
		cache:    cache,
		metrics:  metrics,
	}
}

func appliedFlagKey(job string) string { return "migration:" + job + ":applied" }

func (s *reconciliationService) Status(ctx context.Context) (*types.MigrationRecord, error) {
	rec, err := s.records.Get(dbctx.Background(ctx), domainjobs.JobGMProfileLinks)
	if err != nil {
		return nil, aggregates.MapError("reconcile.status", err)
	}
	return rec, nil
}

func (s *reconciliationService) Reconcile(ctx context.Context, callerUserID uuid.UUID, opts ReconcileOptions) (*ReconcileResult, error) {
	const op = "reconcile.gm_profiles"
	dbc := dbctx.Background(ctx)

	caller, err := s.profiles.GetByUserID(dbc, callerUserID)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	if caller == nil || !caller.IsAdmin() {
		return nil, domainagg.Permission(op, "admin role required")
	}

	job := domainjobs.JobGMProfileLinks
	claimedBy := strings.TrimSpace(opts.ClaimedBy)
	if claimedBy == "" {
		claimedBy = "user:" + callerUserID.String()
	}
	res := &ReconcileResult{DryRun: opts.DryRun, Failures: []ReconcileFailure{}}

	guarded := !opts.Force && !opts.DryRun
	if guarded {
		if s.cache != nil {
			if applied, err := s.cache.GetFlag(ctx, appliedFlagKey(job)); err == nil && applied {
				res.Skipped, res.SkipReason = true, domainjobs.MigrationStatusApplied
				return res, nil
			}
		}
		claimed, rec, err := s.records.Claim(dbc, job, claimedBy, reconcileStaleAfter)
		if err != nil {
			return nil, aggregates.MapError(op, err)
		}
		if !claimed {
			res.Skipped = true
			if rec != nil {
				res.SkipReason = rec.Status
				if rec.Status == domainjobs.MigrationStatusApplied {
					s.setAppliedFlag(ctx, job)
				}
			}
			s.log.Info("Reconciliation skipped", "job", job, "reason", res.SkipReason)
			return res, nil
		}
	}

	toFix, err := s.findBroken(dbc, res)
	if err != nil {
		if guarded {
			if ferr := s.records.Fail(dbc, job, claimedBy, 0, 0, err.Error()); ferr != nil {
				s.log.Error("Releasing reconciliation guard failed; it stays running until stale",
					"job", job,
					"cause", err,
					"error", ferr,
				)
			}
		}
		return nil, err
	}
	if opts.DryRun {
		return res, nil
	}

	for _, p := range toFix {
		out, err := s.profiles.EnsureGMProfileForUser(dbc, repos.EnsureGMInput{
			UserID:    p.UserID,
			Email:     p.Email,
			FirstName: p.FirstName,
			LastName:  p.LastName,
		})
		if err != nil {
			res.Failed++
			res.Failures = append(res.Failures, ReconcileFailure{UserID: p.UserID, Email: p.Email, Error: err.Error()})
			s.log.Warn("GM profile repair failed", "user_id", p.UserID, "error", err)
			continue
		}
		if !out.Changed {
			continue
		}
		res.Fixed++
		if out.Created {
			res.Created++
		}
		if out.Reattached {
			res.Reattached++
		}
	}
	s.metrics.AddReconcile(res.Fixed, res.Failed)

	if guarded {
		if res.Failed == 0 {
			if err := s.records.Complete(dbc, job, claimedBy, res.Fixed); err != nil {
				return res, aggregates.MapError(op, err)
			}
			s.setAppliedFlag(ctx, job)
		} else {
			lastErr := fmt.Sprintf("%d profiles failed; first: %s", res.Failed, res.Failures[0].Error)
			if err := s.records.Fail(dbc, job, claimedBy, res.Fixed, res.Failed, lastErr); err != nil {
				return res, aggregates.MapError(op, err)
			}
		}
	}
	s.log.Info("Reconciliation finished",
		"job", job,
		"forced", opts.Force,
		"candidates", res.Candidates,
		"fixed", res.Fixed,
		"failed", res.Failed,
	)
	return res, nil
}

// findBroken returns candidate profiles whose gm_id is null or dangling.
func (s *reconciliationService) findBroken(dbc dbctx.Context, res *ReconcileResult) ([]*types.Profile, error) {
	candidates, err := s.profiles.ListGMCandidates(dbc)
	if err != nil {
		return nil, aggregates.MapError("reconcile.candidates", err)
	}
	ids, err := s.gms.ListIDs(dbc)
	if err != nil {
		return nil, aggregates.MapError("reconcile.gm_ids", err)
	}
	existing := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		existing[id] = struct{}{}
	}
	toFix := make([]*types.Profile, 0)
	for _, p := range candidates {
		if p.GMID != nil {
			if _, ok := existing[*p.GMID]; ok {
				continue
			}
		}
		toFix = append(toFix, p)
	}
	res.Candidates = len(candidates)
	res.ToFix = len(toFix)
	return toFix, nil
}

func (s *reconciliationService) setAppliedFlag(ctx context.Context, job string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetFlag(ctx, appliedFlagKey(job), reconcileFlagTTL); err != nil {
		s.log.Debug("Caching applied flag failed", "job", job, "error", err)
	}
}
