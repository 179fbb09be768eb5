// Package probe decides, on demand, whether the remote backend is
// reachable. The decision is a pure function of current network
// conditions plus a short-lived cache; nothing here is persisted.
package probe

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"kapesync/internal/model"
)

// DefaultTTL is how long a probe result is reused. UI screens poll the
// connectivity indicator every 1.5-3 seconds; the cache keeps that
// polling from turning into a ping per repaint.
const DefaultTTL = 2 * time.Second

// DefaultTimeout bounds a single reachability check. A timeout is
// treated exactly like an explicit network error.
const DefaultTimeout = 3 * time.Second

// Pinger is the single capability the probe needs from the transport.
// The Mongo gateway satisfies it; tests use a func adapter.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a function to the Pinger interface.
type PingerFunc func(ctx context.Context) error

func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// Probe reports the current ConnectionMode.
//
// Demo mode is a configuration fact, not a network observation: a nil
// pinger means no backend is configured and Mode returns ModeDemo
// without touching the network.
//
// Overlapping Mode calls coalesce onto one in-flight ping via
// singleflight, so a burst of UI polls opens at most one connection.
type Probe struct {
	pinger  Pinger
	ttl     time.Duration
	timeout time.Duration

	group singleflight.Group

	mu       sync.Mutex
	lastMode model.ConnectionMode
	lastAt   time.Time
}

// Option configures a Probe.
type Option func(*Probe)

// WithTTL overrides the result cache duration.
func WithTTL(ttl time.Duration) Option {
	return func(p *Probe) { p.ttl = ttl }
}

// WithTimeout overrides the per-ping timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Probe) { p.timeout = d }
}

// New creates a probe over the given transport. Pass nil when no
// backend is configured (demo mode).
func New(pinger Pinger, opts ...Option) *Probe {
	p := &Probe{
		pinger:  pinger,
		ttl:     DefaultTTL,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Mode returns the current connection mode. Safe to call frequently
// and from concurrent goroutines.
func (p *Probe) Mode(ctx context.Context) model.ConnectionMode {
	if p.pinger == nil {
		return model.ModeDemo
	}

	p.mu.Lock()
	if p.lastMode != "" && time.Since(p.lastAt) < p.ttl {
		mode := p.lastMode
		p.mu.Unlock()
		return mode
	}
	p.mu.Unlock()

	// Coalesce concurrent probes: everyone waiting rides the same ping.
	v, _, _ := p.group.Do("probe", func() (any, error) {
		return p.ping(ctx), nil
	})
	return v.(model.ConnectionMode)
}

// Invalidate drops the cached result so the next Mode call probes
// again. Called after a failed drain, where the cached "online" is
// evidently stale.
func (p *Probe) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastMode = ""
}

func (p *Probe) ping(ctx context.Context) model.ConnectionMode {
	pingCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	mode := model.ModeOnline
	if err := p.pinger.Ping(pingCtx); err != nil {
		slog.Debug("probe failed", "error", err)
		mode = model.ModeOffline
	}

	p.mu.Lock()
	p.lastMode = mode
	p.lastAt = time.Now()
	p.mu.Unlock()

	return mode
}
