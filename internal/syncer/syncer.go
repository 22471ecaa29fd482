// Package syncer runs the supervising loop that moves patient records between
// CSV folders and the store on the schedules held in the settings row.
//
// One goroutine drives everything: each tick reads the settings, asks the
// scheduler whether import and export are due, and runs whichever are, one
// after the other. The delay before the next tick starts only once the
// current tick has finished, so ticks and tasks never overlap.
package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/crucial707/patient-sync/internal/metrics"
	"github.com/crucial707/patient-sync/internal/models"
	"github.com/crucial707/patient-sync/internal/reconcile"
	"github.com/crucial707/patient-sync/internal/scheduler"
	"github.com/crucial707/patient-sync/internal/syncerr"
)

// SettingsSource returns the current settings, or nil when none are stored.
type SettingsSource interface {
	Get(ctx context.Context) (*models.SyncSettings, error)
}

// PatientPager reads patients in id order, starting after afterID.
type PatientPager interface {
	PageAfter(ctx context.Context, afterID, limit int) ([]models.Patient, error)
}

// RunRecorder keeps the history of executed tasks.
type RunRecorder interface {
	Record(ctx context.Context, run models.SyncRun) error
}

// State is the orchestrator's current activity.
type State string

const (
	StateIdle      State = "idle"
	StateImporting State = "importing"
	StateExporting State = "exporting"
	StatePaused    State = "paused"
)

const (
	DefaultInterval = time.Minute
	DefaultPageSize = 100
)

// Config tunes the loop. Zero values take the defaults.
type Config struct {
	Interval   time.Duration
	PageSize   int
	FlushEvery int
	Location   *time.Location
}

// Status is a point-in-time view of the orchestrator for the control API.
type Status struct {
	State            State      `json:"state"`
	ImportCheckpoint time.Time  `json:"import_checkpoint"`
	ExportCheckpoint time.Time  `json:"export_checkpoint"`
	LastTickAt       *time.Time `json:"last_tick_at,omitempty"` // nil before the first tick
	StartedAt        time.Time  `json:"started_at"`
}

// Orchestrator owns the task checkpoints and the tick loop.
type Orchestrator struct {
	settings   SettingsSource
	reconciler *reconcile.Reconciler
	pager      PatientPager
	runs       RunRecorder
	logger     *slog.Logger
	cfg        Config

	// Now is the clock; tests replace it.
	Now func() time.Time

	mu          sync.Mutex
	state       State
	checkpoints map[scheduler.Task]time.Time
	lastTick    time.Time
	startedAt   time.Time
}

// New returns an Orchestrator whose checkpoints start at the current time, so
// occurrences before process start are never replayed. runs may be nil.
func New(settings SettingsSource, reconciler *reconcile.Reconciler, pager PatientPager, runs RunRecorder, logger *slog.Logger, cfg Config) *Orchestrator {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}

	o := &Orchestrator{
		settings:   settings,
		reconciler: reconciler,
		pager:      pager,
		runs:       runs,
		logger:     logger,
		cfg:        cfg,
		state:      StateIdle,
	}
	o.Now = func() time.Time { return time.Now().In(o.cfg.Location) }
	o.Reset(o.Now())
	return o
}

// Reset sets both checkpoints to t.
func (o *Orchestrator) Reset(t time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.startedAt = t
	o.checkpoints = map[scheduler.Task]time.Time{
		scheduler.TaskImport: t,
		scheduler.TaskExport: t,
	}
}

// Status returns the current state and checkpoints.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	st := Status{
		State:            o.state,
		ImportCheckpoint: o.checkpoints[scheduler.TaskImport],
		ExportCheckpoint: o.checkpoints[scheduler.TaskExport],
		StartedAt:        o.startedAt,
	}
	if !o.lastTick.IsZero() {
		last := o.lastTick
		st.LastTickAt = &last
	}
	return st
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

func (o *Orchestrator) checkpoint(task scheduler.Task) time.Time {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.checkpoints[task]
}

func (o *Orchestrator) setCheckpoint(task scheduler.Task, t time.Time) {
	o.mu.Lock()
	o.checkpoints[task] = t
	o.mu.Unlock()
}

// Run ticks until ctx is cancelled. Cancellation is observed only while
// waiting between ticks; a running task is allowed to finish.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("patient sync started", "interval", o.cfg.Interval.String(), "timezone", o.cfg.Location.String())

	work := context.WithoutCancel(ctx)
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("patient sync stopped")
			return nil
		case <-timer.C:
		}

		o.Tick(work)
		timer.Reset(o.cfg.Interval)
	}
}

// Tick performs one iteration: read settings, then run each due task.
// It never panics and never returns an error; failures are logged.
func (o *Orchestrator) Tick(ctx context.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			o.setState(StateIdle)
			metrics.IncTick("panic")
			o.logger.Error("sync tick panicked", "panic", rec, "stack", string(debug.Stack()))
		}
	}()

	now := o.Now()
	o.mu.Lock()
	o.lastTick = now
	o.mu.Unlock()

	settings, err := o.loadSettings(ctx)
	if err != nil {
		metrics.IncTick("skipped")
		if syncerr.IsNotFound(err) {
			o.logger.Warn("sync settings not found, skipping tick")
		} else {
			o.logger.Error("could not retrieve sync settings, skipping tick", "error", err)
		}
		return
	}

	metrics.SetPaused(settings.IsPaused)
	if settings.IsPaused {
		o.hold(now)
		metrics.IncTick("paused")
		o.logger.Debug("sync is paused via settings")
		return
	}
	o.setState(StateIdle)

	ranImport := o.runIfDue(ctx, scheduler.TaskImport, settings.ImportSchedule, settings.ImportFolder)
	ranExport := o.runIfDue(ctx, scheduler.TaskExport, settings.ExportSchedule, settings.ExportFolder)

	if ranImport || ranExport {
		metrics.IncTick("ran")
	} else {
		metrics.IncTick("idle")
	}
}

func (o *Orchestrator) loadSettings(ctx context.Context) (*models.SyncSettings, error) {
	settings, err := o.settings.Get(ctx)
	if err != nil {
		return nil, &syncerr.IOError{Op: "load settings", Err: err}
	}
	if settings == nil {
		return nil, &syncerr.NotFoundError{Resource: "sync settings", Key: fmt.Sprint(models.SettingsID)}
	}
	return settings, nil
}

// hold moves every checkpoint to now without firing.
func (o *Orchestrator) hold(now time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = StatePaused
	for task, cp := range o.checkpoints {
		o.checkpoints[task] = scheduler.Hold(cp, now)
	}
}

// runIfDue evaluates the schedule of task and runs it when due. The new
// checkpoint is kept only if the task completes; a failed task is evaluated
// again on the next tick.
func (o *Orchestrator) runIfDue(ctx context.Context, task scheduler.Task, expr, folder string) bool {
	cp := o.checkpoint(task)
	fire, next, err := scheduler.ShouldFire(expr, cp, o.Now())
	if err != nil {
		o.logger.Error("invalid schedule, task will not run", "task", task, "cron", expr, "error", err)
		return false
	}
	if !fire {
		return false
	}

	o.logger.Info("running sync task", "task", task, "cron", expr, "path", folder)

	run := models.SyncRun{Task: string(task), StartedAt: o.Now()}
	metrics.TaskStarted()
	defer metrics.TaskDone()
	switch task {
	case scheduler.TaskImport:
		o.setState(StateImporting)
		err = o.importTask(ctx, folder, &run)
	case scheduler.TaskExport:
		o.setState(StateExporting)
		err = o.exportTask(ctx, folder, &run)
	}
	o.setState(StateIdle)
	run.FinishedAt = o.Now()

	run.Status = models.RunCompleted
	if err != nil {
		run.Status = models.RunFailed
		run.Detail = err.Error()
	}
	metrics.TaskFinished(string(task), run.Status, run.FinishedAt.Sub(run.StartedAt).Seconds(), run.Affected)
	o.record(ctx, run)

	if err != nil {
		o.logger.Error("sync task failed", "task", task, "cron", expr, "path", folder, "error", err)
		return true
	}

	o.setCheckpoint(task, next)
	o.logger.Info("sync task completed", "task", task, "path", folder,
		"files", run.Files, "failed_files", run.Failed, "affected", run.Affected,
		"duration_ms", run.FinishedAt.Sub(run.StartedAt).Milliseconds())
	return true
}

func (o *Orchestrator) record(ctx context.Context, run models.SyncRun) {
	if o.runs == nil {
		return
	}
	if err := o.runs.Record(ctx, run); err != nil {
		o.logger.Warn("could not record sync run", "task", run.Task, "error", err)
	}
}
