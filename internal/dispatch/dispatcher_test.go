package dispatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/runq-org/runq/internal/types"
	"github.com/stretchr/testify/require"
)

// fakeBackend scripts one behavior per enqueued attempt.
type fakeBackend struct {
	nextJobID   int64
	enqueued    []types.RunRequest
	enqueueErr  error
	waitResults []waitResult
	canceled    []int64
}

type waitResult struct {
	exitCode  int
	preempted bool
	err       error
	writeLog  string
}

// memRecorder captures lifecycle persistence without a database.
type memRecorder struct {
	transitions []types.RunStatus
	finishes    []types.RunStatus
}

func (r *memRecorder) Create(ctx context.Context, run *Run) error {
	r.transitions = append(r.transitions, types.StatusPending)
	return nil
}

func (r *memRecorder) Transition(ctx context.Context, run *Run, status types.RunStatus) error {
	r.transitions = append(r.transitions, status)
	return nil
}

func (r *memRecorder) Finish(ctx context.Context, run *Run, status types.RunStatus, result types.RunResult) error {
	r.finishes = append(r.finishes, status)
	return nil
}

// memSink records emitted event types in order.
type memSink struct {
	events []string
}

func (s *memSink) EmitRunQueued(string, int64)            { s.events = append(s.events, "queued") }
func (s *memSink) EmitRunStart(string, int64)             { s.events = append(s.events, "start") }
func (s *memSink) EmitRunPreempted(string, int64, string) { s.events = append(s.events, "preempted") }
func (s *memSink) EmitRunRequeued(string, int64, string)  { s.events = append(s.events, "requeued") }
func (s *memSink) EmitRunFinish(runID, status string, exitCode int, err error) {
	s.events = append(s.events, "finish:"+status)
}
func (s *memSink) EmitRunLog(string, string, string) { s.events = append(s.events, "log") }

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Enqueue(ctx context.Context, req types.RunRequest) (int64, error) {
	if f.enqueueErr != nil {
		return 0, f.enqueueErr
	}
	f.nextJobID++
	f.enqueued = append(f.enqueued, req)
	return f.nextJobID, nil
}

func (f *fakeBackend) Wait(ctx context.Context, jobID int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return -1, err
	}
	attempt := int(jobID) - 1
	if attempt >= len(f.waitResults) {
		return 0, fmt.Errorf("no scripted result for job %d", jobID)
	}
	res := f.waitResults[attempt]
	if res.err != nil {
		return -1, res.err
	}
	if res.writeLog != "" {
		req := f.enqueued[attempt]
		logPath := req.Resources.LogPath(req.Name, jobID)
		fh, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return 0, err
		}
		if _, err := fh.WriteString(res.writeLog); err != nil {
			fh.Close()
			return 0, err
		}
		fh.Close()
	}
	if res.preempted {
		return -1, fmt.Errorf("job %d: %w", jobID, ErrPreempted)
	}
	return res.exitCode, nil
}

func (f *fakeBackend) Cancel(ctx context.Context, jobID int64) error {
	f.canceled = append(f.canceled, jobID)
	return nil
}

func validResources(tmpl string, requeue bool) types.Resources {
	return types.Resources{
		Nodes:        1,
		TasksPerNode: 1,
		GPUs:         1,
		MemoryMB:     1024,
		TimeLimit:    types.Duration(time.Hour),
		Requeue:      requeue,
		LogTemplate:  tmpl,
	}
}

func evalConfig() types.ResolvedConfig {
	return types.ResolvedConfig{
		Mode: "eval",
		Values: map[string]types.ResolvedValue{
			"data": {Type: types.TypeString, Value: "openwebtext"},
		},
	}
}

func TestSubmit_Valid(t *testing.T) {
	req, err := Submit("", evalConfig(), validResources("out.log", false))
	require.NoError(t, err)
	require.Equal(t, "eval", req.Name)
	require.Equal(t, "eval", req.Mode)
}

func TestSubmit_InvalidResources(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*types.Resources)
		field  string
	}{
		{"zero nodes", func(r *types.Resources) { r.Nodes = 0 }, "nodes"},
		{"negative gpus", func(r *types.Resources) { r.GPUs = -1 }, "gpus"},
		{"zero memory", func(r *types.Resources) { r.MemoryMB = 0 }, "memory_mb"},
		{"zero time limit", func(r *types.Resources) { r.TimeLimit = 0 }, "time_limit"},
		{"zero tasks", func(r *types.Resources) { r.TasksPerNode = 0 }, "tasks_per_node"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := validResources("out.log", false)
			tc.mutate(&res)
			_, err := Submit("x", evalConfig(), res)
			var invalid *InvalidResourceError
			require.ErrorAs(t, err, &invalid)
			require.Equal(t, tc.field, invalid.Field)
		})
	}
}

func TestDispatchAndWait_Completes(t *testing.T) {
	backend := &fakeBackend{waitResults: []waitResult{{exitCode: 0}}}
	d, err := New(Options{Backend: backend})
	require.NoError(t, err)

	req, err := Submit("ppl-eval", evalConfig(), validResources(filepath.Join(t.TempDir(), "%x-%j.log"), false))
	require.NoError(t, err)

	run, err := d.Dispatch(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, int64(1), run.JobID)
	require.Contains(t, run.LogPath, "ppl-eval-1.log")

	result, err := d.Wait(context.Background(), run)
	require.NoError(t, err)
	require.Equal(t, 0, result.ExitCode)
	require.Equal(t, run.LogPath, result.LogPath)
}

func TestWait_PreemptionRequeuesAndAppendsLog(t *testing.T) {
	dir := t.TempDir()
	backend := &fakeBackend{waitResults: []waitResult{
		{preempted: true, writeLog: "epoch 0 partial\n"},
		{exitCode: 0, writeLog: "epoch 0 resumed\n"},
	}}
	d, err := New(Options{Backend: backend})
	require.NoError(t, err)

	req, err := Submit("eval", evalConfig(), validResources(filepath.Join(dir, "%x-%j.log"), true))
	require.NoError(t, err)

	run, err := d.Dispatch(context.Background(), req)
	require.NoError(t, err)
	firstLog := run.LogPath

	result, err := d.Wait(context.Background(), run)
	require.NoError(t, err)
	require.Equal(t, 0, result.ExitCode)
	require.Equal(t, firstLog, result.LogPath, "re-queued run must keep the original log path")

	// second enqueue carries the pinned literal log path
	require.Len(t, backend.enqueued, 2)
	require.Equal(t, firstLog, backend.enqueued[1].Resources.LogTemplate)

	content, err := os.ReadFile(firstLog)
	require.NoError(t, err)
	require.Equal(t, "epoch 0 partial\nepoch 0 resumed\n", string(content))
}

func TestWait_PreemptionWithoutRequeueSurfaces(t *testing.T) {
	backend := &fakeBackend{waitResults: []waitResult{{preempted: true}}}
	d, err := New(Options{Backend: backend})
	require.NoError(t, err)

	req, err := Submit("eval", evalConfig(), validResources(filepath.Join(t.TempDir(), "%x-%j.log"), false))
	require.NoError(t, err)

	run, err := d.Dispatch(context.Background(), req)
	require.NoError(t, err)

	_, err = d.Wait(context.Background(), run)
	var preempted *PreemptedError
	require.ErrorAs(t, err, &preempted)
	require.Equal(t, run.ID, preempted.RunID)
	require.Equal(t, run.LogPath, preempted.LogPath)
	require.ErrorIs(t, err, ErrPreempted)
}

func TestWait_CallerCancellationLeavesStateAlone(t *testing.T) {
	backend := &fakeBackend{waitResults: []waitResult{{exitCode: 0}}}
	rec := &memRecorder{}
	sink := &memSink{}
	d, err := New(Options{Backend: backend, Recorder: rec, Sink: sink})
	require.NoError(t, err)

	req, err := Submit("eval", evalConfig(), validResources(filepath.Join(t.TempDir(), "%x-%j.log"), false))
	require.NoError(t, err)
	run, err := d.Dispatch(context.Background(), req)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = d.Wait(ctx, run)
	require.ErrorIs(t, err, context.Canceled)

	// The job is still running; nothing terminal may be recorded or emitted.
	require.Empty(t, rec.finishes)
	require.Equal(t, types.StatusRunning, rec.transitions[len(rec.transitions)-1])
	require.NotContains(t, rec.transitions, types.StatusFailed)
	for _, ev := range sink.events {
		require.NotContains(t, ev, "finish")
	}

	// A later wait still reaches the real outcome.
	result, err := d.Wait(context.Background(), run)
	require.NoError(t, err)
	require.Equal(t, 0, result.ExitCode)
	require.Equal(t, []types.RunStatus{types.StatusCompleted}, rec.finishes)
}

func TestWait_BackendQueryErrorLeavesStateAlone(t *testing.T) {
	backend := &fakeBackend{waitResults: []waitResult{{err: errors.New("sacct job 1: connection refused")}}}
	rec := &memRecorder{}
	d, err := New(Options{Backend: backend, Recorder: rec})
	require.NoError(t, err)

	req, err := Submit("eval", evalConfig(), validResources(filepath.Join(t.TempDir(), "%x-%j.log"), false))
	require.NoError(t, err)
	run, err := d.Dispatch(context.Background(), req)
	require.NoError(t, err)

	_, err = d.Wait(context.Background(), run)
	require.Error(t, err)
	require.Contains(t, err.Error(), "waiting on job")
	require.Empty(t, rec.finishes)
	require.NotContains(t, rec.transitions, types.StatusFailed)
}

func TestWait_PreemptionWithoutRequeueEmitsFinish(t *testing.T) {
	backend := &fakeBackend{waitResults: []waitResult{{preempted: true}}}
	sink := &memSink{}
	d, err := New(Options{Backend: backend, Sink: sink})
	require.NoError(t, err)

	req, err := Submit("eval", evalConfig(), validResources(filepath.Join(t.TempDir(), "%x-%j.log"), false))
	require.NoError(t, err)
	run, err := d.Dispatch(context.Background(), req)
	require.NoError(t, err)

	_, err = d.Wait(context.Background(), run)
	require.ErrorIs(t, err, ErrPreempted)

	// The event stream must end with a terminal event, not on preemption.
	require.NotEmpty(t, sink.events)
	require.Equal(t, "finish:failed", sink.events[len(sink.events)-1])
	require.Contains(t, sink.events, "preempted")
}

func TestDispatch_BackendUnavailable(t *testing.T) {
	backend := &fakeBackend{enqueueErr: errors.New("queue full")}
	d, err := New(Options{Backend: backend})
	require.NoError(t, err)

	req, err := Submit("eval", evalConfig(), validResources("out.log", false))
	require.NoError(t, err)

	_, err = d.Dispatch(context.Background(), req)
	var unavailable *BackendUnavailableError
	require.ErrorAs(t, err, &unavailable)
	require.Equal(t, "fake", unavailable.Backend)
}

func TestCancel_BestEffort(t *testing.T) {
	backend := &fakeBackend{waitResults: []waitResult{{exitCode: 0}}}
	d, err := New(Options{Backend: backend})
	require.NoError(t, err)

	req, err := Submit("eval", evalConfig(), validResources(filepath.Join(t.TempDir(), "%x-%j.log"), false))
	require.NoError(t, err)
	run, err := d.Dispatch(context.Background(), req)
	require.NoError(t, err)

	require.NoError(t, d.Cancel(context.Background(), run))
	require.Equal(t, []int64{run.JobID}, backend.canceled)
}
