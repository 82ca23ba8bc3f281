// SPDX-License-Identifier: AGPL-3.0-or-later
package dispatch

import (
	"errors"
	"fmt"
)

// ErrPreempted is wrapped by backend Wait errors when the scheduler
// reclaimed the job's resources. Preemption is not a run failure.
var ErrPreempted = errors.New("preempted")

// InvalidResourceError reports a resource requirement outside its allowed
// range. Resolution-time, never retried.
type InvalidResourceError struct {
	Field string
	Value interface{}
}

func (e *InvalidResourceError) Error() string {
	return fmt.Sprintf("invalid resource %s: %v", e.Field, e.Value)
}

// BackendUnavailableError indicates the execution backend cannot accept new
// work. Surfaced immediately, never retried by the dispatcher.
type BackendUnavailableError struct {
	Backend string
	Err     error
}

func (e *BackendUnavailableError) Error() string {
	return fmt.Sprintf("backend %s unavailable: %v", e.Backend, e.Err)
}

func (e *BackendUnavailableError) Unwrap() error { return e.Err }

// PreemptedError surfaces a preemption on a run whose request did not
// enable re-queueing. JobID and LogPath let the caller inspect partial
// output.
type PreemptedError struct {
	RunID   string
	JobID   int64
	LogPath string
}

func (e *PreemptedError) Error() string {
	return fmt.Sprintf("run %s preempted (job %d, log %s)", e.RunID, e.JobID, e.LogPath)
}

func (e *PreemptedError) Unwrap() error { return ErrPreempted }
