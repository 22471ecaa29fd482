// Package scheduler decides when a cron-driven sync task is due.
//
// Each task carries a checkpoint: the instant up to which its scheduled
// occurrences count as handled. ShouldFire fires at most once however many
// occurrences elapsed since the checkpoint, and moves the checkpoint to now
// rather than to the occurrence, so a stalled or paused process resumes its
// normal cadence instead of replaying a backlog.
package scheduler

import (
	"errors"
	"strings"
	"time"

	"github.com/crucial707/patient-sync/internal/syncerr"
	"github.com/robfig/cron/v3"
)

// Task names a sync direction.
type Task string

const (
	TaskImport Task = "import"
	TaskExport Task = "export"
)

// Minute-resolution, five-field expressions only. A seconds field is rejected.
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Parse compiles a five-field cron expression. An optional CRON_TZ= or TZ=
// prefix selects the zone occurrences are computed in.
func Parse(expr string) (cron.Schedule, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, &syncerr.ConfigError{Field: "schedule", Value: expr, Err: errors.New("empty cron expression")}
	}
	sched, err := parser.Parse(expr)
	if err != nil {
		return nil, &syncerr.ConfigError{Field: "schedule", Value: expr, Err: err}
	}
	return sched, nil
}

// Validate reports whether expr would be accepted by ShouldFire.
func Validate(expr string) error {
	_, err := Parse(expr)
	return err
}

// ShouldFire reports whether a scheduled occurrence of expr falls in
// (checkpoint, now]. On fire the returned checkpoint is now; otherwise it is
// the input checkpoint. A malformed expression never fires and returns a
// *syncerr.ConfigError.
func ShouldFire(expr string, checkpoint, now time.Time) (bool, time.Time, error) {
	sched, err := Parse(expr)
	if err != nil {
		return false, checkpoint, err
	}

	next := sched.Next(checkpoint)
	if next.IsZero() || next.After(now) {
		return false, checkpoint, nil
	}
	return true, now, nil
}

// Hold is the checkpoint of a task observed while sync is paused: occurrences
// up to now are dropped so resuming does not trigger a backlog run.
func Hold(checkpoint, now time.Time) time.Time {
	if checkpoint.After(now) {
		return checkpoint
	}
	return now
}

// NextAfter returns the first occurrence of expr strictly after t, for
// status reporting.
func NextAfter(expr string, t time.Time) (time.Time, error) {
	sched, err := Parse(expr)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(t), nil
}
