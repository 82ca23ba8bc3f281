// SPDX-License-Identifier: AGPL-3.0-or-later
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/runq-org/runq/internal/backend/local"
	"github.com/runq-org/runq/internal/backend/slurm"
	"github.com/runq-org/runq/internal/configloader"
	"github.com/runq-org/runq/internal/dispatch"
	"github.com/runq-org/runq/internal/events"
	"github.com/runq-org/runq/internal/modes"
	"github.com/runq-org/runq/internal/paths"
	"github.com/runq-org/runq/internal/runstore"
	"github.com/runq-org/runq/internal/types"
)

// env bundles everything a command needs: configuration, the mode
// registry, persistence, and a dispatcher bound to the configured backend.
type env struct {
	cfg      *types.Config
	registry *modes.Registry
	store    *runstore.Store
	emitter  *events.Emitter
	disp     *dispatch.Dispatcher
}

func (e *env) Close() {
	if e.store != nil {
		_ = e.store.Close()
	}
}

func resolveConfigDir() string {
	if configDir != "" {
		return configDir
	}
	return paths.DataDir()
}

// loadEnv wires a full dispatch environment. jsonEvents selects the event
// stream encoding on stderr; command output itself goes to stdout.
func loadEnv(ctx context.Context, jsonEvents bool) (*env, error) {
	dir := resolveConfigDir()
	cfg, err := configloader.LoadConfig(dir)
	if err != nil {
		return nil, err
	}

	registry, err := modes.Load(dir)
	if err != nil {
		return nil, err
	}

	store, err := runstore.Open(ctx, paths.DataDir())
	if err != nil {
		return nil, err
	}

	emitter := events.NewEmitter(os.Stderr, jsonEvents)

	var backend dispatch.Backend
	switch cfg.Backend {
	case "slurm":
		backend = slurm.New(slurm.Options{Entrypoint: cfg.Entrypoint})
	default:
		backend = local.New(local.Options{
			Entrypoint: cfg.Entrypoint,
			ExtraEnv:   cfg.EnvSlice(),
			Sink:       emitter,
		})
	}

	disp, err := dispatch.New(dispatch.Options{
		Backend:       backend,
		Recorder:      store,
		Sink:          emitter,
		VerboseErrors: cfg.VerboseErrors,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &env{cfg: cfg, registry: registry, store: store, emitter: emitter, disp: disp}, nil
}

// loadRun fetches a stored run and rebuilds the dispatcher's view of it.
func (e *env) loadRun(ctx context.Context, id string) (*dispatch.Run, runstore.Run, error) {
	stored, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, runstore.Run{}, fmt.Errorf("run %s: %w", id, err)
	}
	run := &dispatch.Run{
		ID:      stored.ID,
		JobID:   stored.JobID,
		LogPath: stored.LogPath,
		Request: stored.Request,
	}
	return run, stored, nil
}
