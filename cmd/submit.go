// SPDX-License-Identifier: AGPL-3.0-or-later
package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/runq-org/runq/internal/dispatch"
	"github.com/runq-org/runq/internal/engine"
	"github.com/runq-org/runq/internal/types"
	"github.com/spf13/cobra"
)

func newSubmitCmd() *cobra.Command {
	var (
		name        string
		jsonEvents  bool
		detach      bool
		nodes       int
		tasks       int
		gpus        int
		memMB       int64
		timeLimit   time.Duration
		partition   string
		constraints []string
		requeue     bool
		logTemplate string
	)
	c := &cobra.Command{
		Use:   "submit <mode> [key=value ...] [+key=value ...]",
		Short: "Resolve overrides against a mode and dispatch the run",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := loadEnv(ctx, jsonEvents)
			if err != nil {
				return err
			}
			defer e.Close()

			schema, ok := e.registry.Get(args[0])
			if !ok {
				return fmt.Errorf("unknown mode %q (see 'runq modes')", args[0])
			}
			overrides, err := parseOverrides(args[1:])
			if err != nil {
				return err
			}
			cfg, err := engine.Resolve(schema, overrides)
			if err != nil {
				return errors.New(e.disp.RenderError(err))
			}

			res := e.cfg.Defaults
			flags := cmd.Flags()
			if flags.Changed("nodes") {
				res.Nodes = nodes
			}
			if flags.Changed("tasks-per-node") {
				res.TasksPerNode = tasks
			}
			if flags.Changed("gpus") {
				res.GPUs = gpus
			}
			if flags.Changed("mem") {
				res.MemoryMB = memMB
			}
			if flags.Changed("time") {
				res.TimeLimit = types.Duration(timeLimit)
			}
			if flags.Changed("partition") {
				res.Partition = partition
			}
			if flags.Changed("constraint") {
				res.Constraints = constraints
			}
			if flags.Changed("requeue") {
				res.Requeue = requeue
			}
			if flags.Changed("log") {
				res.LogTemplate = logTemplate
			}

			req, err := dispatch.Submit(name, cfg, res)
			if err != nil {
				return errors.New(e.disp.RenderError(err))
			}

			run, err := e.disp.Dispatch(ctx, req)
			if err != nil {
				return errors.New(e.disp.RenderError(err))
			}
			fmt.Printf("run %s queued as job %d (log %s)\n", run.ID, run.JobID, run.LogPath)
			if detach {
				return nil
			}

			result, err := e.disp.Wait(ctx, run)
			if err != nil {
				return errors.New(e.disp.RenderError(err))
			}
			if result.ExitCode != 0 {
				return fmt.Errorf("run %s failed with exit code %d (log %s)", run.ID, result.ExitCode, result.LogPath)
			}
			fmt.Printf("run %s completed (log %s)\n", run.ID, result.LogPath)
			return nil
		},
	}
	c.Flags().StringVar(&name, "name", "", "Run name; defaults to the mode name")
	c.Flags().BoolVar(&jsonEvents, "json", false, "Emit lifecycle events as JSON")
	c.Flags().BoolVar(&detach, "detach", false, "Dispatch and return without waiting")
	c.Flags().IntVar(&nodes, "nodes", 1, "Node count")
	c.Flags().IntVar(&tasks, "tasks-per-node", 1, "Tasks per node")
	c.Flags().IntVar(&gpus, "gpus", 0, "GPUs per node")
	c.Flags().Int64Var(&memMB, "mem", 0, "Memory in MB")
	c.Flags().DurationVar(&timeLimit, "time", 0, "Wall-clock time limit, e.g. 4h")
	c.Flags().StringVar(&partition, "partition", "", "Scheduler partition")
	c.Flags().StringSliceVar(&constraints, "constraint", nil, "Acceptable hardware constraints (any may satisfy)")
	c.Flags().BoolVar(&requeue, "requeue", false, "Re-queue the run if it is preempted")
	c.Flags().StringVar(&logTemplate, "log", "", "Log path template; %x is the run name, %j the job id")
	return c
}
