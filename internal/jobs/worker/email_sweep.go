package worker

import (
	"context"
	"time"

	"github.com/Zyedbelm/reservation-assignation-sub003/internal/data/aggregates"
	types "github.com/Zyedbelm/reservation-assignation-sub003/internal/domain"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/observability"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/dbctx"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/logger"
)

// UnsentSource yields stored notifications whose email has not gone out yet and
// stores the lease taken on each of them.
type UnsentSource interface {
	ClaimUnsent(dbc dbctx.Context, createdAfter, createdBefore, leasedAfter time.Time, maxAttempts, limit int) ([]*types.Notification, error)
	RecordAttempt(dbc dbctx.Context, a *types.DeliveryAttempt) error
}

// Redeliverer sends the email for n and resolves lease with the outcome.
type Redeliverer interface {
	Redeliver(dbc dbctx.Context, n *types.Notification, lease *types.DeliveryAttempt) error
}

type EmailSweepConfig struct {
	Interval    time.Duration
	SettleAge   time.Duration
	MaxAge      time.Duration
	MaxAttempts int
	BatchSize   int

	// LeaseTTL is how long a claimed row stays invisible to other sweeps while
	// its email is in flight.
	LeaseTTL time.Duration
}

func (c EmailSweepConfig) withDefaults() EmailSweepConfig {
	if c.Interval <= 0 {
		c.Interval = 5 * time.Minute
	}
	if c.SettleAge <= 0 {
		c.SettleAge = 2 * time.Minute
	}
	if c.MaxAge <= 0 {
		c.MaxAge = 48 * time.Hour
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.LeaseTTL <= 0 {
		c.LeaseTTL = 10 * time.Minute
	}
	return c
}

type SweepResult struct {
	Claimed   int
	Delivered int
	Failed    int
}

// EmailSweeper retries emails for notifications that were stored but never
// confirmed as sent. The settle age keeps it away from rows whose first send is
// still in flight.
type EmailSweeper struct {
	log       *logger.Logger
	cfg       EmailSweepConfig
	tx        aggregates.TxRunner
	source    UnsentSource
	redeliver Redeliverer
	metrics   *observability.Metrics
	now       func() time.Time
}

func NewEmailSweeper(
	baseLog *logger.Logger,
	cfg EmailSweepConfig,
	tx aggregates.TxRunner,
	source UnsentSource,
	redeliver Redeliverer,
	metrics *observability.Metrics,
) *EmailSweeper {
	return &EmailSweeper{
		log:       baseLog.With("component", "EmailSweeper"),
		cfg:       cfg.withDefaults(),
		tx:        tx,
		source:    source,
		redeliver: redeliver,
		metrics:   metrics,
		now:       time.Now,
	}
}

// Run sweeps every Interval until ctx is done.
func (s *EmailSweeper) Run(ctx context.Context) error {
	s.log.Info("Starting email sweep",
		"interval", s.cfg.Interval,
		"settle_age", s.cfg.SettleAge,
		"max_age", s.cfg.MaxAge,
		"max_attempts", s.cfg.MaxAttempts,
	)
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("Email sweep stopped")
			return nil
		case <-ticker.C:
			res, err := s.SweepOnce(ctx)
			if err != nil {
				s.log.Warn("Email sweep failed", "error", err)
				continue
			}
			if res.Claimed > 0 {
				s.log.Info("Email sweep finished", "claimed", res.Claimed, "delivered", res.Delivered, "failed", res.Failed)
			}
		}
	}
}

type leasedRow struct {
	n     *types.Notification
	lease *types.DeliveryAttempt
}

// SweepOnce leases one batch in a short transaction, then sends outside of it.
// Each outcome is stored on its own, so a sweep that dies midway leaves the rows
// it already delivered marked as sent.
func (s *EmailSweeper) SweepOnce(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	leased, err := s.lease(ctx, s.now().UTC())
	if err != nil {
		return res, err
	}
	res.Claimed = len(leased)

	dbc := dbctx.Context{Ctx: ctx}
	for _, row := range leased {
		// Leases that are never used expire after LeaseTTL.
		if ctx.Err() != nil {
			break
		}
		if s.redeliverOne(dbc, row) {
			res.Delivered++
			s.metrics.IncSweepRedelivery("sent")
		} else {
			res.Failed++
			s.metrics.IncSweepRedelivery("failed")
		}
	}
	return res, nil
}

func (s *EmailSweeper) lease(ctx context.Context, now time.Time) ([]leasedRow, error) {
	var out []leasedRow
	err := s.tx.InTx(ctx, func(dbc dbctx.Context) error {
		out = out[:0]
		rows, err := s.source.ClaimUnsent(dbc,
			now.Add(-s.cfg.MaxAge),
			now.Add(-s.cfg.SettleAge),
			now.Add(-s.cfg.LeaseTTL),
			s.cfg.MaxAttempts,
			s.cfg.BatchSize,
		)
		if err != nil {
			return err
		}
		for _, n := range rows {
			a := &types.DeliveryAttempt{NotificationID: n.ID, Pending: true, AttemptedAt: now}
			if err := s.source.RecordAttempt(dbc, a); err != nil {
				return err
			}
			out = append(out, leasedRow{n: n, lease: a})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *EmailSweeper) redeliverOne(dbc dbctx.Context, row leasedRow) (ok bool) {
	n := row.n
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Redelivery panic", "notification_id", n.ID, "panic", r)
			ok = false
		}
	}()
	if err := s.redeliver.Redeliver(dbc, n, row.lease); err != nil {
		s.log.Warn("Redelivery failed", "notification_id", n.ID, "gm_id", n.GMID, "error", err)
		return false
	}
	return true
}
