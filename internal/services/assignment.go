package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Zyedbelm/reservation-assignation-sub003/internal/data/aggregates"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/data/repos"
	types "github.com/Zyedbelm/reservation-assignation-sub003/internal/domain"
	domainagg "github.com/Zyedbelm/reservation-assignation-sub003/internal/domain/aggregates"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/domain/scheduling"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/observability"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/dbctx"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/logger"
)

// ErrAlreadyAssigned is joined into the conflict returned for a duplicate
// (activity, gm) pair.
var ErrAlreadyAssigned = errors.New("already_assigned")

// ErrAssignmentOrderTaken is joined into the conflict returned when an explicit
// assignment_order is already held by another GM on the activity.
var ErrAssignmentOrderTaken = errors.New("assignment_order_taken")

type AssignInput struct {
	ActivityID uuid.UUID
	GMID       uuid.UUID
	// Order defaults to one past the current highest order.
	Order  *int
	Notify bool
}

type AssignResult struct {
	Assignment *types.Assignment   `json:"assignment"`
	View       types.CanonicalView `json:"view"`
	Delivery   *Delivery           `json:"-"`
	// NotifyErr is set when the assignment was stored but its notification was not.
	NotifyErr error `json:"-"`
}

type UnassignResult struct {
	View      types.CanonicalView `json:"view"`
	Legacy    bool                `json:"legacy"`
	Delivery  *Delivery           `json:"-"`
	NotifyErr error               `json:"-"`
}

type AssignmentService interface {
	Assign(ctx context.Context, in AssignInput) (*AssignResult, error)
	Unassign(ctx context.Context, activityID, gmID uuid.UUID, notify bool) (*UnassignResult, error)
}

type assignmentService struct {
	log         *logger.Logger
	activities  repos.ActivityRepo
	assignments repos.AssignmentRepo
	gms         repos.GMRepo
	dispatcher  NotificationDispatcher
	metrics     *observability.Metrics
}

func NewAssignmentService(
	baseLog *logger.Logger,
	activities repos.ActivityRepo,
	assignments repos.AssignmentRepo,
	gms repos.GMRepo,
	dispatcher NotificationDispatcher,
	metrics *observability.Metrics,
) AssignmentService {
	return &assignmentService{
		log:         baseLog.With("service", "AssignmentService"),
		activities:  activities,
		assignments: assignments,
		gms:         gms,
		dispatcher:  dispatcher,
		metrics:     metrics,
	}
}

func (s *assignmentService) Assign(ctx context.Context, in AssignInput) (*AssignResult, error) {
	const op = "assignment.create"
	if in.ActivityID == uuid.Nil || in.GMID == uuid.Nil {
		return nil, domainagg.Validation(op, "activity_id and gm_id required")
	}
	if in.Order != nil && *in.Order <= 0 {
		return nil, domainagg.Validation(op, "assignment_order must be positive")
	}
	dbc := dbctx.Background(ctx)

	activity, err := s.activities.GetByID(dbc, in.ActivityID)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	if activity == nil {
		return nil, domainagg.NotFound(op, "activity not found")
	}
	if activity.IsCancelled() {
		return nil, domainagg.Validation(op, "activity is cancelled")
	}
	gm, err := s.gms.GetByID(dbc, in.GMID)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	if gm == nil {
		return nil, domainagg.NotFound(op, "gm not found")
	}

	order := in.Order
	if order == nil {
		max, err := s.assignments.MaxOrder(dbc, activity.ID)
		if err != nil {
			return nil, aggregates.MapError(op, err)
		}
		next := max + 1
		order = &next
	} else {
		existing, err := s.assignments.ListByActivity(dbc, activity.ID)
		if err != nil {
			return nil, aggregates.MapError(op, err)
		}
		for _, r := range existing {
			if r.GMID == gm.ID {
				s.metrics.IncAssignmentConflict()
				return nil, domainagg.Conflict(op, "gm already assigned to activity", ErrAlreadyAssigned)
			}
		}
		for _, r := range existing {
			if r.AssignmentOrder != nil && *r.AssignmentOrder == *order {
				s.metrics.IncAssignmentConflict()
				return nil, domainagg.Conflict(op, fmt.Sprintf("assignment_order %d is already taken", *order), ErrAssignmentOrderTaken)
			}
		}
	}

	row, err := s.assignments.Create(dbc, &types.Assignment{
		ActivityID:      activity.ID,
		GMID:            gm.ID,
		AssignmentOrder: order,
	})
	if err != nil {
		if aggregates.IsUniqueViolation(err) {
			s.metrics.IncAssignmentConflict()
			return nil, domainagg.Conflict(op, "gm already assigned to activity", errors.Join(ErrAlreadyAssigned, err))
		}
		return nil, aggregates.MapError(op, err)
	}

	rows, err := s.assignments.ListByActivity(dbc, activity.ID)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	res := &AssignResult{Assignment: row, View: scheduling.Resolve(activity, rows)}

	if in.Notify && s.dispatcher != nil {
		res.Delivery, res.NotifyErr = s.dispatcher.NotifyAssignment(ctx, gm.ID, activity)
		if res.NotifyErr != nil {
			s.log.Warn("Assignment stored but notification failed",
				"activity_id", activity.ID,
				"gm_id", gm.ID,
				"error", res.NotifyErr,
			)
		}
	}
	return res, nil
}

// Unassign removes the new-system row for the pair. When no row exists but the
// legacy pointer names the GM, the legacy pointer is cleared instead.
func (s *assignmentService) Unassign(ctx context.Context, activityID, gmID uuid.UUID, notify bool) (*UnassignResult, error) {
	const op = "assignment.delete"
	if activityID == uuid.Nil || gmID == uuid.Nil {
		return nil, domainagg.Validation(op, "activity_id and gm_id required")
	}
	dbc := dbctx.Background(ctx)

	activity, err := s.activities.GetByID(dbc, activityID)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	if activity == nil {
		return nil, domainagg.NotFound(op, "activity not found")
	}

	res := &UnassignResult{}
	deleted, err := s.assignments.Delete(dbc, activityID, gmID)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	if !deleted && activity.AssignedGMID != nil && *activity.AssignedGMID == gmID {
		if err := s.activities.UpdateFields(dbc, activityID, map[string]interface{}{"assigned_gm_id": nil}); err != nil {
			return nil, aggregates.MapError(op, err)
		}
		activity.AssignedGMID = nil
		deleted, res.Legacy = true, true
	}
	if !deleted {
		return nil, domainagg.NotFound(op, "gm is not assigned to activity")
	}

	rows, err := s.assignments.ListByActivity(dbc, activityID)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	res.View = scheduling.Resolve(activity, rows)

	if notify && s.dispatcher != nil {
		res.Delivery, res.NotifyErr = s.dispatcher.NotifyChange(ctx, gmID, types.NotificationUnassigned, activity, nil)
		if res.NotifyErr != nil {
			s.log.Warn("Unassignment stored but notification failed",
				"activity_id", activityID,
				"gm_id", gmID,
				"error", res.NotifyErr,
			)
		}
	}
	return res, nil
}
