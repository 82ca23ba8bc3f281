// SPDX-License-Identifier: AGPL-3.0-or-later

// Package local runs submissions as host processes. Each job occupies one
// process for its lifetime; output goes to the request's append-mode log.
package local

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/kballard/go-shellquote"
	"github.com/runq-org/runq/internal/dispatch"
	"github.com/runq-org/runq/internal/engine"
	"github.com/runq-org/runq/internal/events"
	"github.com/runq-org/runq/internal/types"
)

// ErrNotOwned reports a job id this process did not start. Local jobs are
// bound to the dispatching process; a fresh process cannot reattach to
// them, and must not guess at their outcome.
var ErrNotOwned = errors.New("job not started by this process")

// Options configures the local backend.
type Options struct {
	// Entrypoint is the external command, e.g. "python main.py".
	Entrypoint string
	// ExtraEnv entries are appended to the inherited environment.
	ExtraEnv []string
	Sink     events.Sink
}

type job struct {
	done     chan struct{}
	exitCode int
	err      error
	cmd      *exec.Cmd
}

// Backend implements dispatch.Backend with host processes. Job identifiers
// increase monotonically for the lifetime of the backend.
type Backend struct {
	opts Options

	mu   sync.Mutex
	seq  int64
	jobs map[int64]*job
}

func New(opts Options) *Backend {
	return &Backend{opts: opts, jobs: make(map[int64]*job)}
}

func (b *Backend) Name() string { return "local" }

// Enqueue starts the process and returns immediately with its job id. The
// submission ctx only scopes enqueueing; the process itself outlives it.
func (b *Backend) Enqueue(ctx context.Context, req types.RunRequest) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	words, err := shellquote.Split(b.opts.Entrypoint)
	if err != nil || len(words) == 0 {
		return 0, &dispatch.BackendUnavailableError{Backend: "local", Err: fmt.Errorf("bad entrypoint %q: %v", b.opts.Entrypoint, err)}
	}
	binary, err := exec.LookPath(words[0])
	if err != nil {
		return 0, &dispatch.BackendUnavailableError{Backend: "local", Err: err}
	}

	b.mu.Lock()
	b.seq++
	jobID := b.seq
	b.mu.Unlock()

	logPath := req.Resources.LogPath(req.Name, jobID)
	if dir := filepath.Dir(logPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("ensure log dir: %w", err)
		}
	}
	// Append mode is load-bearing: a re-queued job must not destroy the
	// prior attempt's output.
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open log %s: %w", logPath, err)
	}

	args := append(append([]string{}, words[1:]...), engine.Argv(req.Config)...)
	cmd := exec.Command(binary, args...)

	runID := dispatch.RunIDFrom(ctx)
	if runID == "" {
		runID = fmt.Sprintf("job-%d", jobID)
	}
	writer := events.NewLogWriter(b.opts.Sink, runID, "combined", logFile)
	cmd.Stdout = writer
	cmd.Stderr = writer
	cmd.Env = append(os.Environ(), b.opts.ExtraEnv...)
	cmd.Env = append(cmd.Env,
		fmt.Sprintf("RUNQ_JOB_ID=%d", jobID),
		fmt.Sprintf("RUNQ_GPUS=%d", req.Resources.GPUs),
	)

	if err := cmd.Start(); err != nil {
		logFile.Close()
		return 0, &dispatch.BackendUnavailableError{Backend: "local", Err: err}
	}

	j := &job{done: make(chan struct{}), cmd: cmd}
	b.mu.Lock()
	b.jobs[jobID] = j
	b.mu.Unlock()

	go func() {
		waitErr := cmd.Wait()
		writer.Flush()
		logFile.Close()

		switch {
		case waitErr == nil:
			j.exitCode = 0
		case terminatedBySignal(cmd):
			// A SIGTERM'd process is what a scheduler reclaim looks like.
			j.exitCode = -1
			j.err = fmt.Errorf("job %d terminated: %w", jobID, dispatch.ErrPreempted)
		default:
			if exitErr, ok := waitErr.(*exec.ExitError); ok {
				j.exitCode = exitErr.ExitCode()
			} else {
				j.exitCode = -1
				j.err = waitErr
			}
		}
		close(j.done)
	}()

	return jobID, nil
}

// Wait blocks until the job finishes or ctx is done. A non-zero exit code
// with a nil error is a plain failure; preemption wraps
// dispatch.ErrPreempted.
func (b *Backend) Wait(ctx context.Context, jobID int64) (int, error) {
	b.mu.Lock()
	j, ok := b.jobs[jobID]
	b.mu.Unlock()
	if !ok {
		return -1, fmt.Errorf("job %d: %w", jobID, ErrNotOwned)
	}
	select {
	case <-ctx.Done():
		return -1, ctx.Err()
	case <-j.done:
	}
	return j.exitCode, j.err
}

// Cancel terminates the job's process. Best-effort: a finished process is
// not an error.
func (b *Backend) Cancel(ctx context.Context, jobID int64) error {
	b.mu.Lock()
	j, ok := b.jobs[jobID]
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("job %d: %w", jobID, ErrNotOwned)
	}
	select {
	case <-j.done:
		return nil
	default:
	}
	if j.cmd.Process == nil {
		return nil
	}
	if err := j.cmd.Process.Kill(); err != nil && err != os.ErrProcessDone {
		return err
	}
	return nil
}
