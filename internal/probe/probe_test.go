package probe

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kapesync/internal/model"
)

func TestMode_DemoWhenNoBackend(t *testing.T) {
	p := New(nil)
	assert.Equal(t, model.ModeDemo, p.Mode(context.Background()))
}

func TestMode_OnlineWhenPingSucceeds(t *testing.T) {
	p := New(PingerFunc(func(ctx context.Context) error { return nil }))
	assert.Equal(t, model.ModeOnline, p.Mode(context.Background()))
}

func TestMode_OfflineOnError(t *testing.T) {
	p := New(PingerFunc(func(ctx context.Context) error {
		return errors.New("connection refused")
	}))
	assert.Equal(t, model.ModeOffline, p.Mode(context.Background()))
}

func TestMode_TimeoutIsOffline(t *testing.T) {
	p := New(PingerFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}), WithTimeout(20*time.Millisecond))

	start := time.Now()
	mode := p.Mode(context.Background())
	assert.Equal(t, model.ModeOffline, mode)
	assert.Less(t, time.Since(start), time.Second, "ping is bounded by the probe timeout")
}

func TestMode_CachesWithinTTL(t *testing.T) {
	var pings atomic.Int32
	p := New(PingerFunc(func(ctx context.Context) error {
		pings.Add(1)
		return nil
	}), WithTTL(time.Hour))

	for i := 0; i < 5; i++ {
		require.Equal(t, model.ModeOnline, p.Mode(context.Background()))
	}
	assert.Equal(t, int32(1), pings.Load(), "repeated polls reuse the cached result")
}

func TestMode_InvalidateForcesReprobe(t *testing.T) {
	var pings atomic.Int32
	p := New(PingerFunc(func(ctx context.Context) error {
		pings.Add(1)
		return nil
	}), WithTTL(time.Hour))

	p.Mode(context.Background())
	p.Invalidate()
	p.Mode(context.Background())
	assert.Equal(t, int32(2), pings.Load())
}

func TestMode_ConcurrentCallsCoalesce(t *testing.T) {
	var pings atomic.Int32
	release := make(chan struct{})

	p := New(PingerFunc(func(ctx context.Context) error {
		pings.Add(1)
		<-release
		return nil
	}), WithTTL(0)) // no cache: coalescing must come from singleflight

	const callers = 8
	var wg sync.WaitGroup
	results := make([]model.ConnectionMode, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = p.Mode(context.Background())
		}(i)
	}

	// Let all callers pile onto the in-flight probe, then release it.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), pings.Load(), "overlapping calls share one ping")
	for _, mode := range results {
		assert.Equal(t, model.ModeOnline, mode)
	}
}
