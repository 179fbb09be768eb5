package cli

import (
	"context"
	"log/slog"

	"kapesync/internal/config"
	"kapesync/internal/engine"
	"kapesync/internal/localstore"
	"kapesync/internal/probe"
	"kapesync/internal/remote"
)

// app bundles the wired collaborators a command needs.
type app struct {
	cfg         *config.Config
	store       *localstore.Store
	gateway     *remote.MongoGateway // nil in demo mode
	coordinator *engine.Coordinator
}

// newApp loads config and wires the coordinator. A failed dial is not
// an error: the probe simply reports offline and the engine queues.
func newApp(ctx context.Context, opts *RootOptions) (*app, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load config", err)
	}

	st, err := localstore.Open(cfg.StorePath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open local store", err)
	}

	a := &app{cfg: cfg, store: st}

	var pinger probe.Pinger
	var gw remote.Gateway
	if !cfg.DemoMode() {
		mg, err := remote.Dial(ctx, cfg.RemoteURI, cfg.RemoteDB, cfg.ProbeTimeout())
		if err != nil {
			// Offline launch. The app lives for one command, so the dial
			// is never retried within a process; the next invocation
			// dials again and picks the backend up.
			slog.Warn("remote unreachable at startup", "error", err)
			dialErr := engine.NewConnectivityError("remote dial failed", err)
			pinger = probe.PingerFunc(func(ctx context.Context) error { return dialErr })
		} else {
			a.gateway = mg
			pinger = mg
			gw = mg
		}
	}

	a.coordinator = engine.New(engine.Options{
		Store:   st,
		Probe:   probe.New(pinger, probe.WithTimeout(cfg.ProbeTimeout()), probe.WithTTL(cfg.ProbeTTL())),
		Gateway: gw,
		IDs:     engine.NewTimeGenerator(cfg.DevicePrefix),
	})
	return a, nil
}

// Close releases the store and the remote connection.
func (a *app) Close(ctx context.Context) {
	if a.gateway != nil {
		if err := a.gateway.Close(ctx); err != nil {
			slog.Error("closing remote connection", "error", err)
		}
	}
	if err := a.store.Close(); err != nil {
		slog.Error("closing local store", "error", err)
	}
}
