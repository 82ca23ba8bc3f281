// SPDX-License-Identifier: AGPL-3.0-or-later
package slurm

import (
	"fmt"
	"strings"
	"time"

	"github.com/runq-org/runq/internal/engine"
	"github.com/runq-org/runq/internal/types"
)

// Script renders the batch script for a run request. Output and error
// streams share one file opened in append mode, so a re-queued job
// continues the same log. %x and %j in the log template are native sbatch
// verbs and pass through untouched.
func Script(entrypoint string, req types.RunRequest) (string, error) {
	cmdline, err := engine.CommandLine(entrypoint, req.Config)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("#!/bin/bash\n")
	directive := func(format string, args ...interface{}) {
		fmt.Fprintf(&b, "#SBATCH "+format+"\n", args...)
	}
	directive("--job-name=%s", req.Name)
	directive("--nodes=%d", req.Resources.Nodes)
	directive("--ntasks-per-node=%d", req.Resources.TasksPerNode)
	if req.Resources.GPUs > 0 {
		directive("--gres=gpu:%d", req.Resources.GPUs)
	}
	directive("--mem=%dM", req.Resources.MemoryMB)
	directive("--time=%s", formatTime(req.Resources.TimeLimit.Std()))
	if req.Resources.Partition != "" {
		directive("--partition=%s", req.Resources.Partition)
	}
	if len(req.Resources.Constraints) > 0 {
		// OR-set: any listed accelerator model is acceptable.
		directive("--constraint=%q", strings.Join(req.Resources.Constraints, "|"))
	}
	if req.Resources.Requeue {
		directive("--requeue")
	} else {
		directive("--no-requeue")
	}
	directive("--open-mode=append")
	directive("--output=%s", req.Resources.LogTemplate)
	directive("--error=%s", req.Resources.LogTemplate)
	b.WriteString("\n")
	b.WriteString("srun " + cmdline + "\n")
	return b.String(), nil
}

// formatTime renders a wall-clock limit as D-HH:MM:SS, the long sbatch form.
func formatTime(d time.Duration) string {
	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second
	return fmt.Sprintf("%d-%02d:%02d:%02d", days, hours, minutes, seconds)
}
