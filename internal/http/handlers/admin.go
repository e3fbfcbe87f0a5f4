package handlers

import (
	"github.com/gin-gonic/gin"

	domainjobs "github.com/Zyedbelm/reservation-assignation-sub003/internal/domain/jobs"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/http/response"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/logger"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/services"
)

type AdminHandler struct {
	log        *logger.Logger
	autoAssign services.AutoAssignService
	reconcile  services.ReconciliationService
}

func NewAdminHandler(log *logger.Logger, autoAssign services.AutoAssignService, reconcile services.ReconciliationService) *AdminHandler {
	return &AdminHandler{
		log:        log.With("handler", "AdminHandler"),
		autoAssign: autoAssign,
		reconcile:  reconcile,
	}
}

// POST /api/admin/auto-assign/run
func (h *AdminHandler) RunAutoAssign(c *gin.Context) {
	run, err := h.autoAssign.Run(c.Request.Context(), domainjobs.TriggerManual)
	if err != nil {
		fail(c, h.log, "Manual auto-assign failed", err)
		return
	}
	response.RespondOK(c, gin.H{"run": run})
}

// GET /api/admin/auto-assign/runs?limit=
func (h *AdminHandler) ListAutoAssignRuns(c *gin.Context) {
	runs, err := h.autoAssign.Recent(c.Request.Context(), intQuery(c, "limit", 20))
	if err != nil {
		fail(c, h.log, "ListAutoAssignRuns failed", err)
		return
	}
	response.RespondOK(c, gin.H{"runs": runs, "enabled": h.autoAssign.Enabled()})
}

// POST /api/admin/reconcile/gm-profiles?force=&dry_run=
func (h *AdminHandler) ReconcileGMProfiles(c *gin.Context) {
	rd := caller(c)
	if rd == nil {
		return
	}
	res, err := h.reconcile.Reconcile(c.Request.Context(), rd.UserID, services.ReconcileOptions{
		Force:     boolQuery(c, "force", false),
		DryRun:    boolQuery(c, "dry_run", false),
		ClaimedBy: "api:" + rd.UserID.String(),
	})
	if err != nil {
		fail(c, h.log, "Reconcile failed", err, "user_id", rd.UserID)
		return
	}
	response.RespondOK(c, res)
}

// GET /api/admin/reconcile/gm-profiles
func (h *AdminHandler) ReconcileStatus(c *gin.Context) {
	rec, err := h.reconcile.Status(c.Request.Context())
	if err != nil {
		fail(c, h.log, "ReconcileStatus failed", err)
		return
	}
	response.RespondOK(c, gin.H{"record": rec})
}
