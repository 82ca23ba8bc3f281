// SPDX-License-Identifier: AGPL-3.0-or-later
//go:build unix

package local

import (
	"os/exec"
	"syscall"
)

// terminatedBySignal reports whether the finished process was killed by
// SIGTERM, the signal batch schedulers deliver before reclaiming a node.
func terminatedBySignal(cmd *exec.Cmd) bool {
	state := cmd.ProcessState
	if state == nil {
		return false
	}
	ws, ok := state.Sys().(syscall.WaitStatus)
	if !ok {
		return false
	}
	return ws.Signaled() && ws.Signal() == syscall.SIGTERM
}
