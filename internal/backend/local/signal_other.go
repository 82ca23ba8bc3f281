// SPDX-License-Identifier: AGPL-3.0-or-later
//go:build !unix

package local

import "os/exec"

func terminatedBySignal(cmd *exec.Cmd) bool { return false }
