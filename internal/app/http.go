package app

import (
	"context"

	"gorm.io/gorm"

	apphttp "github.com/Zyedbelm/reservation-assignation-sub003/internal/http"
	httpH "github.com/Zyedbelm/reservation-assignation-sub003/internal/http/handlers"
	httpMW "github.com/Zyedbelm/reservation-assignation-sub003/internal/http/middleware"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/observability"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/envutil"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/logger"
)

type Handlers struct {
	Health       *httpH.HealthHandler
	Activity     *httpH.ActivityHandler
	Notification *httpH.NotificationHandler
	Scheduler    *httpH.SchedulerHandler
	Admin        *httpH.AdminHandler
}

func wireHandlers(db *gorm.DB, log *logger.Logger, cfg Config, svc Services) Handlers {
	log.Info("Wiring handlers...")
	ping := func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
	return Handlers{
		Health:       httpH.NewHealthHandler(ping),
		Activity:     httpH.NewActivityHandler(log, svc.Activity, svc.Assignment),
		Notification: httpH.NewNotificationHandler(log, svc.Notify, cfg.PollIntervalSeconds),
		Scheduler:    httpH.NewSchedulerHandler(log, svc.Schedule),
		Admin:        httpH.NewAdminHandler(log, svc.AutoAssign, svc.Reconcile),
	}
}

func wireServer(log *logger.Logger, cfg Config, handlers Handlers, svc Services, metrics *observability.Metrics) *apphttp.Server {
	return apphttp.NewServer(apphttp.RouterConfig{
		Log:            log,
		Metrics:        metrics,
		CORSOrigins:    cfg.CORSOrigins,
		ServiceName:    cfg.ServiceName,
		TracingEnabled: envutil.Bool("OTEL_ENABLED", false),
		PprofEnabled:   cfg.PprofEnabled,

		AuthMiddleware: httpMW.NewAuthMiddleware(log, svc.Auth),

		HealthHandler:       handlers.Health,
		ActivityHandler:     handlers.Activity,
		NotificationHandler: handlers.Notification,
		SchedulerHandler:    handlers.Scheduler,
		AdminHandler:        handlers.Admin,
	})
}
