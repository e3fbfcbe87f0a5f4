package services

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/Zyedbelm/reservation-assignation-sub003/internal/data/aggregates"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/data/repos"
	types "github.com/Zyedbelm/reservation-assignation-sub003/internal/domain"
	domainagg "github.com/Zyedbelm/reservation-assignation-sub003/internal/domain/aggregates"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/domain/scheduling"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/dbctx"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/logger"
)

// ActivityView pairs an activity with its resolved assignment state.
type ActivityView struct {
	Activity   *types.Activity     `json:"activity"`
	Assignment types.CanonicalView `json:"assignment"`
}

// ActivityPatch holds the fields an update may change. Nil means unchanged.
type ActivityPatch struct {
	Title           *string   `json:"title"`
	Description     *string   `json:"description"`
	Date            *string   `json:"date"`
	StartTime       *string   `json:"start_time"`
	EndTime         *string   `json:"end_time"`
	DurationMinutes *int      `json:"duration_minutes"`
	ClearDuration   bool      `json:"clear_duration"`
	ActivityType    *string   `json:"activity_type"`
	RequiredSkills  *[]string `json:"required_skills"`
}

type ActivityChangeResult struct {
	View         *ActivityView `json:"view"`
	Changes      []string      `json:"changes"`
	Notified     int           `json:"notified"`
	NotifyFailed int           `json:"notify_failed"`
}

type ActivityService interface {
	Create(ctx context.Context, a *types.Activity) (*ActivityView, error)
	Get(ctx context.Context, id uuid.UUID) (*ActivityView, error)
	List(ctx context.Context, from, to string, includeCancelled bool) ([]*ActivityView, error)
	// Update applies patch and sends a modified notification to every GM in the
	// resolved list. A patch that changes nothing sends nothing.
	Update(ctx context.Context, id uuid.UUID, patch ActivityPatch) (*ActivityChangeResult, error)
	// Cancel is idempotent: cancelling a cancelled activity notifies nobody.
	Cancel(ctx context.Context, id uuid.UUID) (*ActivityChangeResult, error)
}

type activityService struct {
	log         *logger.Logger
	activities  repos.ActivityRepo
	assignments repos.AssignmentRepo
	dispatcher  NotificationDispatcher
}

func NewActivityService(
	baseLog *logger.Logger,
	activities repos.ActivityRepo,
	assignments repos.AssignmentRepo,
	dispatcher NotificationDispatcher,
) ActivityService {
	return &activityService{
		log:         baseLog.With("service", "ActivityService"),
		activities:  activities,
		assignments: assignments,
		dispatcher:  dispatcher,
	}
}

func validateActivity(op string, a *types.Activity) error {
	if problems := a.Problems(); len(problems) > 0 {
		return domainagg.Validation(op, strings.Join(problems, "; "))
	}
	return nil
}

func (s *activityService) Create(ctx context.Context, a *types.Activity) (*ActivityView, error) {
	if a == nil {
		return nil, domainagg.Validation("activity.create", "activity required")
	}
	a.Title = strings.TrimSpace(a.Title)
	a.Date = strings.TrimSpace(a.Date)
	a.StartTime = strings.TrimSpace(a.StartTime)
	a.EndTime = strings.TrimSpace(a.EndTime)
	if err := validateActivity("activity.create", a); err != nil {
		return nil, err
	}
	a.Status = scheduling.ActivityStatusScheduled
	created, err := s.activities.Create(dbctx.Background(ctx), []*types.Activity{a})
	if err != nil {
		return nil, aggregates.MapError("activity.create", err)
	}
	if len(created) == 0 {
		return nil, domainagg.NewError(domainagg.CodeInternal, "activity.create", "no row returned", nil)
	}
	return &ActivityView{Activity: created[0], Assignment: scheduling.Resolve(created[0], nil)}, nil
}

func (s *activityService) Get(ctx context.Context, id uuid.UUID) (*ActivityView, error) {
	dbc := dbctx.Background(ctx)
	a, err := s.load(dbc, "activity.get", id)
	if err != nil {
		return nil, err
	}
	return s.view(dbc, a)
}

func (s *activityService) List(ctx context.Context, from, to string, includeCancelled bool) ([]*ActivityView, error) {
	dbc := dbctx.Background(ctx)
	acts, err := s.activities.ListByDateRange(dbc, strings.TrimSpace(from), strings.TrimSpace(to), includeCancelled)
	if err != nil {
		return nil, aggregates.MapError("activity.list", err)
	}
	ids := make([]uuid.UUID, 0, len(acts))
	for _, a := range acts {
		ids = append(ids, a.ID)
	}
	rows, err := s.assignments.ListByActivities(dbc, ids)
	if err != nil {
		return nil, aggregates.MapError("activity.list", err)
	}
	views := scheduling.ResolveAll(acts, rows)
	out := make([]*ActivityView, 0, len(acts))
	for _, a := range acts {
		out = append(out, &ActivityView{Activity: a, Assignment: views[a.ID]})
	}
	return out, nil
}

func (s *activityService) Update(ctx context.Context, id uuid.UUID, patch ActivityPatch) (*ActivityChangeResult, error) {
	dbc := dbctx.Background(ctx)
	original, err := s.load(dbc, "activity.update", id)
	if err != nil {
		return nil, err
	}
	if original.IsCancelled() {
		return nil, domainagg.Validation("activity.update", "activity is cancelled")
	}

	updated := *original
	updates := map[string]interface{}{}
	setString := func(col string, dst *string, v *string) {
		if v == nil {
			return
		}
		nv := strings.TrimSpace(*v)
		if nv != *dst {
			*dst = nv
			updates[col] = nv
		}
	}
	setString("title", &updated.Title, patch.Title)
	setString("description", &updated.Description, patch.Description)
	setString("date", &updated.Date, patch.Date)
	setString("start_time", &updated.StartTime, patch.StartTime)
	setString("end_time", &updated.EndTime, patch.EndTime)
	setString("activity_type", &updated.ActivityType, patch.ActivityType)
	switch {
	case patch.ClearDuration && original.DurationMinutes != nil:
		updated.DurationMinutes = nil
		updates["duration_minutes"] = (*int)(nil)
	case patch.DurationMinutes != nil && !sameIntPtr(original.DurationMinutes, patch.DurationMinutes):
		v := *patch.DurationMinutes
		updated.DurationMinutes = &v
		updates["duration_minutes"] = &v
	}
	if patch.RequiredSkills != nil {
		raw, err := json.Marshal(normalizeSkills(*patch.RequiredSkills))
		if err != nil {
			return nil, domainagg.Validation("activity.update", "invalid required_skills")
		}
		if string(raw) != string(original.RequiredSkills) {
			updated.RequiredSkills = datatypes.JSON(raw)
			updates["required_skills"] = datatypes.JSON(raw)
		}
	}
	if err := validateActivity("activity.update", &updated); err != nil {
		return nil, err
	}

	view, err := s.view(dbc, &updated)
	if err != nil {
		return nil, err
	}
	res := &ActivityChangeResult{View: view, Changes: ChangeLines(original, &updated)}
	if len(updates) == 0 {
		return res, nil
	}
	if err := s.activities.UpdateFields(dbc, id, updates); err != nil {
		return nil, aggregates.MapError("activity.update", err)
	}
	s.notifyAll(ctx, res, view.Assignment.GMIDs, types.NotificationModified, original, &updated)
	return res, nil
}

func (s *activityService) Cancel(ctx context.Context, id uuid.UUID) (*ActivityChangeResult, error) {
	dbc := dbctx.Background(ctx)
	original, err := s.load(dbc, "activity.cancel", id)
	if err != nil {
		return nil, err
	}
	updated := *original
	updated.Status = scheduling.ActivityStatusCancelled
	view, err := s.view(dbc, &updated)
	if err != nil {
		return nil, err
	}
	res := &ActivityChangeResult{View: view, Changes: []string{}}
	if original.IsCancelled() {
		return res, nil
	}
	if err := s.activities.UpdateFields(dbc, id, map[string]interface{}{"status": scheduling.ActivityStatusCancelled}); err != nil {
		return nil, aggregates.MapError("activity.cancel", err)
	}
	s.notifyAll(ctx, res, view.Assignment.GMIDs, types.NotificationCancelled, original, &updated)
	return res, nil
}

func (s *activityService) notifyAll(ctx context.Context, res *ActivityChangeResult, gmIDs []uuid.UUID, typ types.NotificationType, original, updated *types.Activity) {
	if s.dispatcher == nil {
		return
	}
	for _, gmID := range gmIDs {
		if _, err := s.dispatcher.NotifyChange(ctx, gmID, typ, original, updated); err != nil {
			res.NotifyFailed++
			s.log.Warn("Change notification not stored",
				"activity_id", original.ID,
				"gm_id", gmID,
				"type", string(typ),
				"error", err,
			)
			continue
		}
		res.Notified++
	}
}

func (s *activityService) load(dbc dbctx.Context, op string, id uuid.UUID) (*types.Activity, error) {
	if id == uuid.Nil {
		return nil, domainagg.Validation(op, "activity id required")
	}
	a, err := s.activities.GetByID(dbc, id)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	if a == nil {
		return nil, domainagg.NotFound(op, "activity not found")
	}
	return a, nil
}

func (s *activityService) view(dbc dbctx.Context, a *types.Activity) (*ActivityView, error) {
	rows, err := s.assignments.ListByActivity(dbc, a.ID)
	if err != nil {
		return nil, aggregates.MapError("activity.view", err)
	}
	return &ActivityView{Activity: a, Assignment: scheduling.Resolve(a, rows)}, nil
}

func normalizeSkills(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]bool{}
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[strings.ToLower(s)] {
			continue
		}
		seen[strings.ToLower(s)] = true
		out = append(out, s)
	}
	return out
}
