// SPDX-License-Identifier: AGPL-3.0-or-later

// Package dispatch resolves submissions into run requests and drives them
// through an execution backend, re-queueing preempted runs when asked to.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/runq-org/runq/internal/events"
	"github.com/runq-org/runq/internal/types"
)

// Backend is the capability the dispatcher requires of an execution
// backend. Enqueue must return promptly with a monotonically increasing job
// identifier; Wait blocks until the job reaches a terminal state and wraps
// ErrPreempted when the scheduler reclaimed it. Cancel is best-effort.
type Backend interface {
	Name() string
	Enqueue(ctx context.Context, req types.RunRequest) (int64, error)
	Wait(ctx context.Context, jobID int64) (int, error)
	Cancel(ctx context.Context, jobID int64) error
}

// Recorder persists run lifecycle state. All methods are per-run; one run's
// persistence failure never affects another.
type Recorder interface {
	Create(ctx context.Context, run *Run) error
	Transition(ctx context.Context, run *Run, status types.RunStatus) error
	Finish(ctx context.Context, run *Run, status types.RunStatus, result types.RunResult) error
}

// Run is a dispatched request with its backend identity. LogPath is fixed
// at first enqueue and survives re-queues.
type Run struct {
	ID      string
	JobID   int64
	LogPath string
	Request types.RunRequest
}

// Options configures a Dispatcher.
type Options struct {
	Backend  Backend
	Recorder Recorder
	Sink     events.Sink
	// VerboseErrors selects full diagnostic detail over a terse summary
	// when rendering resolution errors. Carried per dispatcher so
	// concurrent dispatchers cannot race on a process-wide flag.
	VerboseErrors bool
}

type Dispatcher struct {
	backend  Backend
	recorder Recorder
	sink     events.Sink
	verbose  bool
}

func New(opts Options) (*Dispatcher, error) {
	if opts.Backend == nil {
		return nil, fmt.Errorf("dispatch: backend required")
	}
	return &Dispatcher{
		backend:  opts.Backend,
		recorder: opts.Recorder,
		sink:     opts.Sink,
		verbose:  opts.VerboseErrors,
	}, nil
}

// Submit pairs a resolved configuration with resource requirements. Only
// positivity is validated here; everything else is the backend's business.
func Submit(name string, cfg types.ResolvedConfig, res types.Resources) (types.RunRequest, error) {
	none := types.RunRequest{}
	if res.Nodes < 1 {
		return none, &InvalidResourceError{Field: "nodes", Value: res.Nodes}
	}
	if res.TasksPerNode < 1 {
		return none, &InvalidResourceError{Field: "tasks_per_node", Value: res.TasksPerNode}
	}
	if res.GPUs < 0 {
		return none, &InvalidResourceError{Field: "gpus", Value: res.GPUs}
	}
	if res.MemoryMB <= 0 {
		return none, &InvalidResourceError{Field: "memory_mb", Value: res.MemoryMB}
	}
	if res.TimeLimit <= 0 {
		return none, &InvalidResourceError{Field: "time_limit", Value: res.TimeLimit}
	}
	if strings.TrimSpace(name) == "" {
		name = cfg.Mode
	}
	return types.RunRequest{Mode: cfg.Mode, Name: name, Config: cfg, Resources: res}, nil
}

// Dispatch enqueues the request and returns without waiting; the exit code
// is obtained by a separate Wait so callers can submit many runs and block
// independently.
func (d *Dispatcher) Dispatch(ctx context.Context, req types.RunRequest) (*Run, error) {
	run := &Run{ID: events.GenerateRunID(), Request: req}
	if d.recorder != nil {
		if err := d.recorder.Create(ctx, run); err != nil {
			return nil, fmt.Errorf("record run: %w", err)
		}
	}

	jobID, err := d.backend.Enqueue(WithRunID(ctx, run.ID), req)
	if err != nil {
		d.recordTransition(ctx, run, types.StatusFailed)
		var unavailable *BackendUnavailableError
		if errors.As(err, &unavailable) {
			return nil, err
		}
		return nil, &BackendUnavailableError{Backend: d.backend.Name(), Err: err}
	}

	run.JobID = jobID
	run.LogPath = req.Resources.LogPath(req.Name, jobID)
	if d.sink != nil {
		d.sink.EmitRunQueued(run.ID, jobID)
	}
	d.recordTransition(ctx, run, types.StatusPending)
	return run, nil
}

// Wait blocks until the run reaches a terminal state. Preempted runs with
// re-queue enabled are re-submitted against the same append-mode log; the
// preemption never surfaces as a failure in that case. Wait blocks only the
// calling goroutine.
func (d *Dispatcher) Wait(ctx context.Context, run *Run) (types.RunResult, error) {
	if run == nil {
		return types.RunResult{}, fmt.Errorf("nil run")
	}
	ctx = WithRunID(ctx, run.ID)
	d.recordTransition(ctx, run, types.StatusRunning)
	if d.sink != nil {
		d.sink.EmitRunStart(run.ID, run.JobID)
	}

	for {
		exitCode, err := d.backend.Wait(ctx, run.JobID)
		if err == nil {
			status := types.StatusCompleted
			if exitCode != 0 {
				status = types.StatusFailed
			}
			result := types.RunResult{JobID: run.JobID, ExitCode: exitCode, LogPath: run.LogPath}
			if d.sink != nil {
				d.sink.EmitRunFinish(run.ID, string(status), exitCode, nil)
			}
			d.recordFinish(ctx, run, status, result)
			return result, nil
		}

		if !errors.Is(err, ErrPreempted) {
			// Wait itself failed: caller cancellation, a scheduler query
			// error, or a job this process cannot observe. The job's
			// outcome is unknown, so the stored state is left alone for a
			// later wait to pick up. Backends report job failures as a
			// non-zero exit code with a nil error, never through here.
			return types.RunResult{}, fmt.Errorf("waiting on job %d (log %s): %w", run.JobID, run.LogPath, err)
		}

		d.recordTransition(ctx, run, types.StatusPreempted)
		if d.sink != nil {
			d.sink.EmitRunPreempted(run.ID, run.JobID, run.LogPath)
		}

		if !run.Request.Resources.Requeue {
			perr := &PreemptedError{RunID: run.ID, JobID: run.JobID, LogPath: run.LogPath}
			if d.sink != nil {
				d.sink.EmitRunFinish(run.ID, string(types.StatusFailed), exitCode, perr)
			}
			d.recordFinish(ctx, run, types.StatusFailed, types.RunResult{JobID: run.JobID, ExitCode: exitCode, LogPath: run.LogPath})
			return types.RunResult{}, perr
		}

		// Re-submit the same request with the log path pinned so the new
		// attempt appends after the prior output.
		requeued := run.Request
		requeued.Resources.LogTemplate = run.LogPath
		jobID, err := d.backend.Enqueue(ctx, requeued)
		if err != nil {
			unavailable := &BackendUnavailableError{Backend: d.backend.Name(), Err: err}
			if d.sink != nil {
				d.sink.EmitRunFinish(run.ID, string(types.StatusFailed), exitCode, unavailable)
			}
			d.recordFinish(ctx, run, types.StatusFailed, types.RunResult{JobID: run.JobID, LogPath: run.LogPath})
			return types.RunResult{}, unavailable
		}
		run.JobID = jobID
		run.Request = requeued
		d.recordTransition(ctx, run, types.StatusPending)
		if d.sink != nil {
			d.sink.EmitRunRequeued(run.ID, jobID, run.LogPath)
		}
		d.recordTransition(ctx, run, types.StatusRunning)
	}
}

// Cancel asks the backend to terminate the job. Best-effort: the job may
// already have completed.
func (d *Dispatcher) Cancel(ctx context.Context, run *Run) error {
	if run == nil {
		return fmt.Errorf("nil run")
	}
	if err := d.backend.Cancel(ctx, run.JobID); err != nil {
		return fmt.Errorf("cancel job %d: %w", run.JobID, err)
	}
	d.recordTransition(ctx, run, types.StatusCanceled)
	return nil
}

// RenderError formats a resolution error for the user: the full chain when
// verbose, a terse summary otherwise.
func (d *Dispatcher) RenderError(err error) string {
	if err == nil {
		return ""
	}
	if !d.verbose {
		return err.Error()
	}
	parts := []string{}
	for e := err; e != nil; e = errors.Unwrap(e) {
		parts = append(parts, fmt.Sprintf("%T: %s", e, e.Error()))
	}
	return strings.Join(parts, "\n  caused by ")
}

func (d *Dispatcher) recordTransition(ctx context.Context, run *Run, status types.RunStatus) {
	if d.recorder == nil {
		return
	}
	_ = d.recorder.Transition(ctx, run, status)
}

func (d *Dispatcher) recordFinish(ctx context.Context, run *Run, status types.RunStatus, result types.RunResult) {
	if d.recorder == nil {
		return
	}
	_ = d.recorder.Finish(ctx, run, status, result)
}
