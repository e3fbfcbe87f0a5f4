package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"gorm.io/datatypes"

	"github.com/Zyedbelm/reservation-assignation-sub003/internal/clients/assignengine"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/data/aggregates"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/data/repos"
	types "github.com/Zyedbelm/reservation-assignation-sub003/internal/domain"
	domainagg "github.com/Zyedbelm/reservation-assignation-sub003/internal/domain/aggregates"
	domainjobs "github.com/Zyedbelm/reservation-assignation-sub003/internal/domain/jobs"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/domain/scheduling"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/observability"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/dbctx"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/logger"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/scheduler"
)

type AutoAssignConfig struct {
	// HorizonDays is how many days ahead, starting today, the engine plans.
	HorizonDays int
	// Notify sends assignment notifications and the admin summary.
	Notify bool
	// StaleRunAfter is how long a run may stay running before a later trigger
	// for the same window treats it as abandoned.
	StaleRunAfter time.Duration
}

// AutoAssignService asks the external engine for placements and applies them
// through the assignment service. Concurrent calls share one run.
type AutoAssignService interface {
	Run(ctx context.Context, trigger string) (*types.AutoAssignRun, error)
	Recent(ctx context.Context, limit int) ([]*types.AutoAssignRun, error)
	Enabled() bool
}

type autoAssignService struct {
	log         *logger.Logger
	cfg         AutoAssignConfig
	schedule    *scheduler.Schedule
	engine      assignengine.Client
	activities  repos.ActivityRepo
	assignments repos.AssignmentRepo
	gms         repos.GMRepo
	runs        repos.AutoAssignRunRepo
	assign      AssignmentService
	dispatcher  NotificationDispatcher
	metrics     *observability.Metrics
	group       singleflight.Group
	now         func() time.Time
}

func NewAutoAssignService(
	baseLog *logger.Logger,
	cfg AutoAssignConfig,
	schedule *scheduler.Schedule,
	engine assignengine.Client,
	activities repos.ActivityRepo,
	assignments repos.AssignmentRepo,
	gms repos.GMRepo,
	runs repos.AutoAssignRunRepo,
	assign AssignmentService,
	dispatcher NotificationDispatcher,
	metrics *observability.Metrics,
) AutoAssignService {
	if cfg.HorizonDays <= 0 {
		cfg.HorizonDays = 14
	}
	if cfg.StaleRunAfter <= 0 {
		cfg.StaleRunAfter = 30 * time.Minute
	}
	return &autoAssignService{
		log:         baseLog.With("service", "AutoAssignService"),
		cfg:         cfg,
		schedule:    schedule,
		engine:      engine,
		activities:  activities,
		assignments: assignments,
		gms:         gms,
		runs:        runs,
		assign:      assign,
		dispatcher:  dispatcher,
		metrics:     metrics,
		now:         time.Now,
	}
}

func (s *autoAssignService) Enabled() bool { return s.engine != nil }

func (s *autoAssignService) Recent(ctx context.Context, limit int) ([]*types.AutoAssignRun, error) {
	out, err := s.runs.ListRecent(dbctx.Background(ctx), limit)
	if err != nil {
		return nil, aggregates.MapError("auto_assign.recent", err)
	}
	return out, nil
}

func (s *autoAssignService) Run(ctx context.Context, trigger string) (*types.AutoAssignRun, error) {
	if s.engine == nil {
		return nil, domainagg.Dependency("auto_assign.run", fmt.Errorf("assignment engine not configured"))
	}
	v, err, shared := s.group.Do("auto-assign", func() (interface{}, error) {
		return s.run(context.WithoutCancel(ctx), trigger)
	})
	if shared {
		s.log.Debug("Auto-assign call joined an in-flight run", "trigger", trigger)
	}
	run, _ := v.(*types.AutoAssignRun)
	return run, err
}

type runOutcome struct {
	UnassignedActivityIDs []uuid.UUID         `json:"unassigned_activity_ids"`
	Errors                []string            `json:"errors,omitempty"`
	AdminSummary          *AdminSummaryResult `json:"admin_summary,omitempty"`
}

func (s *autoAssignService) run(ctx context.Context, trigger string) (*types.AutoAssignRun, error) {
	started := s.now()
	dbc := dbctx.Background(ctx)
	windowStart := started.UTC()
	if s.schedule != nil {
		windowStart = s.schedule.Previous(started).UTC()
	}

	// Scheduled triggers can arrive from both the timer loop and Temporal; one
	// successful run per window is enough.
	if trigger != domainjobs.TriggerManual {
		prev, err := s.runs.LatestForWindow(dbc, windowStart)
		if err != nil {
			return nil, aggregates.MapError("auto_assign.window", err)
		}
		if prev != nil && prev.Trigger != domainjobs.TriggerManual && prev.Status != domainjobs.RunStatusFailed {
			reclaimed, err := s.reclaimStale(dbc, prev, started)
			if err != nil {
				return nil, aggregates.MapError("auto_assign.window", err)
			}
			if !reclaimed {
				s.log.Info("Auto-assign window already handled", "window_start", windowStart, "run_id", prev.ID)
				return prev, nil
			}
		}
	}

	run, err := s.runs.Create(dbc, &types.AutoAssignRun{
		Trigger:     trigger,
		Status:      domainjobs.RunStatusRunning,
		WindowStart: windowStart,
	})
	if err != nil {
		return nil, aggregates.MapError("auto_assign.create_run", err)
	}

	outcome := runOutcome{UnassignedActivityIDs: []uuid.UUID{}}
	runErr := s.apply(ctx, dbc, run, &outcome)

	status := domainjobs.RunStatusSucceeded
	if runErr != nil {
		status = domainjobs.RunStatusFailed
		run.Error = runErr.Error()
	}
	finished := s.now().UTC()
	run.Status = status
	run.FinishedAt = &finished
	raw, _ := json.Marshal(outcome)
	run.Result = datatypes.JSON(raw)

	if err := s.runs.UpdateFields(dbc, run.ID, map[string]interface{}{
		"status":      run.Status,
		"finished_at": finished,
		"proposed":    run.Proposed,
		"applied":     run.Applied,
		"skipped":     run.Skipped,
		"failed":      run.Failed,
		"unassigned":  run.Unassigned,
		"notified":    run.Notified,
		"error":       run.Error,
		"result":      run.Result,
	}); err != nil {
		s.log.Error("Storing auto-assign run result failed", "run_id", run.ID, "error", err)
	}
	s.metrics.ObserveAutoAssignRun(trigger, status, finished.Sub(started))
	s.log.Info("Auto-assign run finished",
		"run_id", run.ID,
		"trigger", trigger,
		"status", status,
		"proposed", run.Proposed,
		"applied", run.Applied,
		"skipped", run.Skipped,
		"unassigned", run.Unassigned,
	)
	if runErr != nil {
		return run, runErr
	}
	return run, nil
}

// reclaimStale fails a run left running by a process that died mid-run, so the
// window can be planned again. Only one caller wins the status change.
func (s *autoAssignService) reclaimStale(dbc dbctx.Context, prev *types.AutoAssignRun, now time.Time) (bool, error) {
	if prev.Status != domainjobs.RunStatusRunning || now.Sub(prev.StartedAt) < s.cfg.StaleRunAfter {
		return false, nil
	}
	ok, err := s.runs.AbandonStale(dbc, prev.ID, now.Add(-s.cfg.StaleRunAfter), now)
	if err != nil {
		return false, err
	}
	if ok {
		s.log.Warn("Abandoned stale auto-assign run",
			"run_id", prev.ID,
			"started_at", prev.StartedAt,
			"stale_after", s.cfg.StaleRunAfter,
		)
	}
	return ok, nil
}

func (s *autoAssignService) apply(ctx context.Context, dbc dbctx.Context, run *types.AutoAssignRun, outcome *runOutcome) error {
	loc := time.UTC
	if s.schedule != nil {
		loc = s.schedule.Location()
	}
	today := s.now().In(loc)
	from := today.Format(scheduling.DateLayout)
	to := today.AddDate(0, 0, s.cfg.HorizonDays).Format(scheduling.DateLayout)

	acts, err := s.activities.ListByDateRange(dbc, from, to, false)
	if err != nil {
		return aggregates.MapError("auto_assign.activities", err)
	}
	ids := make([]uuid.UUID, 0, len(acts))
	byID := make(map[uuid.UUID]*types.Activity, len(acts))
	for _, a := range acts {
		ids = append(ids, a.ID)
		byID[a.ID] = a
	}
	rows, err := s.assignments.ListByActivities(dbc, ids)
	if err != nil {
		return aggregates.MapError("auto_assign.assignments", err)
	}
	views := scheduling.ResolveAll(acts, rows)
	gms, err := s.gms.ListActive(dbc)
	if err != nil {
		return aggregates.MapError("auto_assign.gms", err)
	}

	req := assignengine.ProposeRequest{WindowStart: run.WindowStart, From: from, To: to}
	for _, a := range acts {
		in := assignengine.ActivityInput{
			ID:            a.ID,
			Title:         a.Title,
			Date:          a.Date,
			StartTime:     a.StartTime,
			EndTime:       a.EndTime,
			ActivityType:  a.ActivityType,
			AssignedGMIDs: views[a.ID].GMIDs,
		}
		if d, ok := a.EffectiveDuration(); ok {
			in.DurationMinutes = d
		}
		_ = json.Unmarshal(a.RequiredSkills, &in.RequiredSkills)
		req.Activities = append(req.Activities, in)
	}
	for _, g := range gms {
		in := assignengine.GMInput{ID: g.ID, Name: g.DisplayName()}
		_ = json.Unmarshal(g.Skills, &in.Skills)
		req.GMs = append(req.GMs, in)
	}

	resp, err := s.engine.Propose(ctx, req)
	if err != nil {
		return domainagg.Dependency("auto_assign.propose", err)
	}
	run.Proposed = len(resp.Proposals)

	for _, p := range resp.Proposals {
		res, err := s.assign.Assign(ctx, AssignInput{
			ActivityID: p.ActivityID,
			GMID:       p.GMID,
			Order:      p.AssignmentOrder,
			Notify:     s.cfg.Notify,
		})
		switch {
		case domainagg.IsCode(err, domainagg.CodeConflict):
			run.Skipped++
		case err != nil:
			run.Failed++
			if len(outcome.Errors) < 20 {
				outcome.Errors = append(outcome.Errors, err.Error())
			}
		default:
			run.Applied++
			if res.Delivery != nil {
				run.Notified++
			}
		}
	}

	var unassigned []*types.Activity
	for _, id := range resp.UnassignedActivityIDs {
		outcome.UnassignedActivityIDs = append(outcome.UnassignedActivityIDs, id)
		if a, ok := byID[id]; ok {
			unassigned = append(unassigned, a)
		}
	}
	run.Unassigned = len(outcome.UnassignedActivityIDs)
	if s.cfg.Notify && s.dispatcher != nil && len(unassigned) > 0 {
		summary, err := s.dispatcher.NotifyAdminUnassigned(ctx, unassigned)
		if err != nil {
			s.log.Warn("Admin unassigned summary failed", "run_id", run.ID, "error", err)
		} else {
			outcome.AdminSummary = summary
		}
	}
	return nil
}
