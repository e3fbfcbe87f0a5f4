package http

import (
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/Zyedbelm/reservation-assignation-sub003/internal/http/handlers"
	httpMW "github.com/Zyedbelm/reservation-assignation-sub003/internal/http/middleware"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/observability"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	CORSOrigins    []string
	ServiceName    string
	TracingEnabled bool
	PprofEnabled   bool

	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler       *httpH.HealthHandler
	ActivityHandler     *httpH.ActivityHandler
	NotificationHandler *httpH.NotificationHandler
	SchedulerHandler    *httpH.SchedulerHandler
	AdminHandler        *httpH.AdminHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.TracingEnabled {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}
	if cfg.PprofEnabled {
		pprof.Register(r)
	}

	api := r.Group("/api")
	if cfg.AuthMiddleware != nil {
		api.Use(cfg.AuthMiddleware.RequireAuth())
	}
	admin := api.Group("/", httpMW.RequireAdmin())

	// Activities
	if h := cfg.ActivityHandler; h != nil {
		api.GET("/activities", h.ListActivities)
		api.GET("/activities/:id", h.GetActivity)
		admin.POST("/activities", h.CreateActivity)
		admin.PATCH("/activities/:id", h.UpdateActivity)
		admin.POST("/activities/:id/cancel", h.CancelActivity)
		admin.POST("/activities/:id/assignments", h.Assign)
		admin.DELETE("/activities/:id/assignments/:gmId", h.Unassign)
	}

	// Notifications
	if h := cfg.NotificationHandler; h != nil {
		api.GET("/notifications", h.ListNotifications)
		api.GET("/notifications/unread-count", h.UnreadCount)
		api.POST("/notifications/read-all", h.MarkAllRead)
		api.POST("/notifications/:id/read", h.MarkRead)
	}

	// Scheduler
	if h := cfg.SchedulerHandler; h != nil {
		api.GET("/scheduler/countdown", h.Countdown)
		api.GET("/scheduler/countdown/stream", h.CountdownStream)
	}

	// Admin
	if h := cfg.AdminHandler; h != nil {
		admin.POST("/admin/auto-assign/run", h.RunAutoAssign)
		admin.GET("/admin/auto-assign/runs", h.ListAutoAssignRuns)
		admin.POST("/admin/reconcile/gm-profiles", h.ReconcileGMProfiles)
		admin.GET("/admin/reconcile/gm-profiles", h.ReconcileStatus)
	}

	return r
}
