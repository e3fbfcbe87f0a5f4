package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/Zyedbelm/reservation-assignation-sub003/internal/domain"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/domain/scheduling"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/http/response"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/logger"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/services"
)

type ActivityHandler struct {
	log         *logger.Logger
	activities  services.ActivityService
	assignments services.AssignmentService
}

func NewActivityHandler(log *logger.Logger, activities services.ActivityService, assignments services.AssignmentService) *ActivityHandler {
	return &ActivityHandler{
		log:         log.With("handler", "ActivityHandler"),
		activities:  activities,
		assignments: assignments,
	}
}

// GET /api/activities?from=&to=&include_cancelled=
func (h *ActivityHandler) ListActivities(c *gin.Context) {
	if caller(c) == nil {
		return
	}
	from := strings.TrimSpace(c.Query("from"))
	to := strings.TrimSpace(c.Query("to"))
	for _, d := range []string{from, to} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(scheduling.DateLayout, d); err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_date", err)
			return
		}
	}
	views, err := h.activities.List(c.Request.Context(), from, to, boolQuery(c, "include_cancelled", false))
	if err != nil {
		fail(c, h.log, "ListActivities failed", err, "from", from, "to", to)
		return
	}
	response.RespondOK(c, gin.H{"activities": views})
}

// GET /api/activities/:id
func (h *ActivityHandler) GetActivity(c *gin.Context) {
	if caller(c) == nil {
		return
	}
	id, ok := uuidParam(c, "id", "invalid_activity_id")
	if !ok {
		return
	}
	view, err := h.activities.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, h.log, "GetActivity failed", err, "activity_id", id)
		return
	}
	response.RespondOK(c, gin.H{"activity": view})
}

type createActivityRequest struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Date            string   `json:"date"`
	StartTime       string   `json:"start_time"`
	EndTime         string   `json:"end_time"`
	DurationMinutes *int     `json:"duration_minutes"`
	ActivityType    string   `json:"activity_type"`
	RequiredSkills  []string `json:"required_skills"`
	SourceSystem    string   `json:"source_system"`
	SourceID        string   `json:"source_id"`
}

// POST /api/activities
func (h *ActivityHandler) CreateActivity(c *gin.Context) {
	var req createActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	a := &types.Activity{
		Title:           req.Title,
		Description:     req.Description,
		Date:            req.Date,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		DurationMinutes: req.DurationMinutes,
		ActivityType:    strings.TrimSpace(req.ActivityType),
		SourceSystem:    strings.TrimSpace(req.SourceSystem),
		SourceID:        strings.TrimSpace(req.SourceID),
	}
	if len(req.RequiredSkills) > 0 {
		raw, _ := json.Marshal(req.RequiredSkills)
		a.RequiredSkills = datatypes.JSON(raw)
	}
	view, err := h.activities.Create(c.Request.Context(), a)
	if err != nil {
		fail(c, h.log, "CreateActivity failed", err)
		return
	}
	response.RespondCreated(c, gin.H{"activity": view})
}

// PATCH /api/activities/:id
func (h *ActivityHandler) UpdateActivity(c *gin.Context) {
	id, ok := uuidParam(c, "id", "invalid_activity_id")
	if !ok {
		return
	}
	var patch services.ActivityPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	res, err := h.activities.Update(c.Request.Context(), id, patch)
	if err != nil {
		fail(c, h.log, "UpdateActivity failed", err, "activity_id", id)
		return
	}
	response.RespondOK(c, res)
}

// POST /api/activities/:id/cancel
func (h *ActivityHandler) CancelActivity(c *gin.Context) {
	id, ok := uuidParam(c, "id", "invalid_activity_id")
	if !ok {
		return
	}
	res, err := h.activities.Cancel(c.Request.Context(), id)
	if err != nil {
		fail(c, h.log, "CancelActivity failed", err, "activity_id", id)
		return
	}
	response.RespondOK(c, res)
}

type assignRequest struct {
	GMID            uuid.UUID `json:"gm_id"`
	AssignmentOrder *int      `json:"assignment_order"`
	Notify          *bool     `json:"notify"`
}

// notificationStatus summarizes the delivery of the change notification.
type notificationStatus struct {
	Outcome string `json:"outcome"`
	Error   string `json:"error,omitempty"`
}

func deliveryStatus(d *services.Delivery, notifyErr error) *notificationStatus {
	switch {
	case notifyErr != nil:
		return &notificationStatus{Outcome: "failed", Error: notifyErr.Error()}
	case d == nil:
		return nil
	}
	st := &notificationStatus{Outcome: string(d.Outcome)}
	if d.EmailErr != nil {
		st.Error = d.EmailErr.Error()
	}
	return st
}

// POST /api/activities/:id/assignments
func (h *ActivityHandler) Assign(c *gin.Context) {
	activityID, ok := uuidParam(c, "id", "invalid_activity_id")
	if !ok {
		return
	}
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if req.GMID == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_gm_id", errors.New("gm_id is required"))
		return
	}
	notify := req.Notify == nil || *req.Notify
	res, err := h.assignments.Assign(c.Request.Context(), services.AssignInput{
		ActivityID: activityID,
		GMID:       req.GMID,
		Order:      req.AssignmentOrder,
		Notify:     notify,
	})
	if err != nil {
		ae := response.FromError(err,
			response.Sentinel{Err: services.ErrAlreadyAssigned, Code: "already_assigned"},
			response.Sentinel{Err: services.ErrAssignmentOrderTaken, Code: "assignment_order_taken"},
		)
		if ae.Status >= http.StatusInternalServerError {
			h.log.Error("Assign failed", "activity_id", activityID, "gm_id", req.GMID, "error", err)
		}
		response.RespondError(c, ae.Status, ae.Code, ae.Err)
		return
	}
	response.RespondCreated(c, gin.H{
		"assignment":   res.Assignment,
		"view":         res.View,
		"notification": deliveryStatus(res.Delivery, res.NotifyErr),
	})
}

// DELETE /api/activities/:id/assignments/:gmId
func (h *ActivityHandler) Unassign(c *gin.Context) {
	activityID, ok := uuidParam(c, "id", "invalid_activity_id")
	if !ok {
		return
	}
	gmID, ok := uuidParam(c, "gmId", "invalid_gm_id")
	if !ok {
		return
	}
	res, err := h.assignments.Unassign(c.Request.Context(), activityID, gmID, boolQuery(c, "notify", true))
	if err != nil {
		fail(c, h.log, "Unassign failed", err, "activity_id", activityID, "gm_id", gmID)
		return
	}
	response.RespondOK(c, gin.H{
		"view":         res.View,
		"legacy":       res.Legacy,
		"notification": deliveryStatus(res.Delivery, res.NotifyErr),
	})
}
