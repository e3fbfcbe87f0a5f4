package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/Zyedbelm/reservation-assignation-sub003/internal/data/aggregates"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/jobs/worker"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/observability"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/logger"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/scheduler"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/services"
)

type Services struct {
	Schedule   *scheduler.Schedule
	Auth       services.AuthService
	Dispatcher services.NotificationDispatcher
	Activity   services.ActivityService
	Assignment services.AssignmentService
	Notify     services.NotificationService
	AutoAssign services.AutoAssignService
	Reconcile  services.ReconciliationService

	EmailSweeper    *worker.EmailSweeper
	AutoAssignTimer *worker.AutoAssignTimer
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos, clients Clients, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")

	triggers, err := scheduler.ParseClocks(cfg.SchedulerTriggers)
	if err != nil {
		return Services{}, fmt.Errorf("parse scheduler triggers: %w", err)
	}
	schedule, err := scheduler.New(cfg.SchedulerZone, triggers...)
	if err != nil {
		return Services{}, fmt.Errorf("init schedule: %w", err)
	}

	templates, err := services.LoadMailTemplates()
	if err != nil {
		return Services{}, fmt.Errorf("load mail templates: %w", err)
	}
	mailer := services.NewSendGridMailSender(clients.SendGrid, templates)

	dispatcher := services.NewNotificationDispatcher(log, reposet.Notification, clients.Cache, reposet.GM, reposet.Profile, mailer, cfg.AdminEmails, metrics)
	assignment := services.NewAssignmentService(log, reposet.Activity, reposet.Assignment, reposet.GM, dispatcher, metrics)
	autoAssign := services.NewAutoAssignService(
		log,
		services.AutoAssignConfig{
			HorizonDays:   cfg.AutoAssignHorizonDays,
			Notify:        cfg.AutoAssignNotify,
			StaleRunAfter: cfg.AutoAssignStaleAfter,
		},
		schedule,
		clients.Engine,
		reposet.Activity,
		reposet.Assignment,
		reposet.GM,
		reposet.AutoAssignRun,
		assignment,
		dispatcher,
		metrics,
	)

	out := Services{
		Schedule:   schedule,
		Auth:       services.NewAuthService(log, cfg.JWTSecretKey, cfg.JWTIssuer, reposet.Profile, reposet.GM),
		Dispatcher: dispatcher,
		Activity:   services.NewActivityService(log, reposet.Activity, reposet.Assignment, dispatcher),
		Assignment: assignment,
		Notify:     services.NewNotificationService(log, reposet.Notification, clients.Cache),
		AutoAssign: autoAssign,
		Reconcile:  services.NewReconciliationService(log, reposet.Profile, reposet.GM, reposet.MigrationRecord, clients.Cache, metrics),
	}

	if cfg.SweepEnabled && dispatcher.EmailEnabled() {
		out.EmailSweeper = worker.NewEmailSweeper(log, worker.EmailSweepConfig{
			Interval:    cfg.SweepInterval,
			SettleAge:   cfg.SweepSettleAge,
			MaxAge:      cfg.SweepMaxAge,
			MaxAttempts: cfg.SweepMaxAttempts,
			BatchSize:   cfg.SweepBatchSize,
			LeaseTTL:    cfg.SweepLeaseTTL,
		}, aggregates.NewGormTxRunner(db), reposet.Notification, dispatcher, metrics)
	}
	// Temporal owns the schedule when it is configured.
	if cfg.AutoAssignEnabled && autoAssign.Enabled() && clients.Temporal == nil {
		out.AutoAssignTimer = worker.NewAutoAssignTimer(log, schedule, autoAssign)
	}
	return out, nil
}
