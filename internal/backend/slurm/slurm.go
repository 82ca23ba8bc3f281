// SPDX-License-Identifier: AGPL-3.0-or-later

// Package slurm submits runs to a Slurm cluster via sbatch and tracks them
// through sacct. The scheduler enforces the reservation and the wall-clock
// limit; this backend only drives its CLI.
package slurm

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/runq-org/runq/internal/dispatch"
	"github.com/runq-org/runq/internal/types"
)

// CommandRunner abstracts the scheduler CLI for tests.
type CommandRunner interface {
	Run(ctx context.Context, stdin string, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, stdin string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && len(exitErr.Stderr) > 0 {
			return out, fmt.Errorf("%s: %s", name, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return out, err
	}
	return out, nil
}

// Options configures the Slurm backend.
type Options struct {
	Entrypoint   string
	PollInterval time.Duration
	// Runner overrides the scheduler CLI; nil uses the real binaries.
	Runner CommandRunner
}

type Backend struct {
	entrypoint string
	poll       time.Duration
	runner     CommandRunner
}

func New(opts Options) *Backend {
	poll := opts.PollInterval
	if poll <= 0 {
		poll = 15 * time.Second
	}
	runner := opts.Runner
	if runner == nil {
		runner = execRunner{}
	}
	return &Backend{entrypoint: opts.Entrypoint, poll: poll, runner: runner}
}

func (b *Backend) Name() string { return "slurm" }

// Enqueue renders the batch script and pipes it to sbatch. Slurm job ids
// increase monotonically per cluster.
func (b *Backend) Enqueue(ctx context.Context, req types.RunRequest) (int64, error) {
	script, err := Script(b.entrypoint, req)
	if err != nil {
		return 0, err
	}
	out, err := b.runner.Run(ctx, script, "sbatch", "--parsable")
	if err != nil {
		return 0, &dispatch.BackendUnavailableError{Backend: "slurm", Err: err}
	}
	return parseJobID(string(out))
}

// Wait polls sacct until the job reaches a terminal state. PREEMPTED maps
// to dispatch.ErrPreempted; any other non-COMPLETED state is a plain
// failure with the job's exit code.
func (b *Backend) Wait(ctx context.Context, jobID int64) (int, error) {
	ticker := time.NewTicker(b.poll)
	defer ticker.Stop()
	for {
		state, exitCode, err := b.jobState(ctx, jobID)
		if err != nil {
			return -1, err
		}
		switch state {
		case "COMPLETED":
			return 0, nil
		case "PREEMPTED":
			return -1, fmt.Errorf("job %d: %w", jobID, dispatch.ErrPreempted)
		case "FAILED", "TIMEOUT", "OUT_OF_MEMORY", "NODE_FAIL", "CANCELLED":
			if exitCode == 0 {
				exitCode = 1
			}
			return exitCode, nil
		}
		select {
		case <-ctx.Done():
			return -1, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Cancel issues scancel. Best-effort: cancelling a finished job is fine.
func (b *Backend) Cancel(ctx context.Context, jobID int64) error {
	_, err := b.runner.Run(ctx, "", "scancel", strconv.FormatInt(jobID, 10))
	return err
}

func (b *Backend) jobState(ctx context.Context, jobID int64) (string, int, error) {
	out, err := b.runner.Run(ctx, "", "sacct", "-n", "-X", "-P",
		"-j", strconv.FormatInt(jobID, 10), "-o", "State,ExitCode")
	if err != nil {
		return "", 0, fmt.Errorf("sacct job %d: %w", jobID, err)
	}
	return parseSacct(string(out))
}

// parseJobID handles both "123" and the "123;cluster" form sbatch emits in
// federated setups.
func parseJobID(out string) (int64, error) {
	token := strings.TrimSpace(out)
	if i := strings.IndexByte(token, ';'); i >= 0 {
		token = token[:i]
	}
	id, err := strconv.ParseInt(token, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected sbatch output %q: %w", out, err)
	}
	return id, nil
}

// parseSacct reads the first "State|ExitCode" line, e.g. "FAILED|1:0".
// Empty output means the job is not yet in accounting; treated as pending.
func parseSacct(out string) (string, int, error) {
	line := strings.TrimSpace(out)
	if line == "" {
		return "PENDING", 0, nil
	}
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	fields := strings.Split(line, "|")
	if len(fields) < 2 {
		return "", 0, fmt.Errorf("unexpected sacct output %q", out)
	}
	// CANCELLED may appear as "CANCELLED by <uid>"
	state := strings.Fields(fields[0])[0]
	code := fields[1]
	if i := strings.IndexByte(code, ':'); i >= 0 {
		code = code[:i]
	}
	exitCode, err := strconv.Atoi(strings.TrimSpace(code))
	if err != nil {
		return "", 0, fmt.Errorf("unexpected sacct exit code %q", fields[1])
	}
	return state, exitCode, nil
}
