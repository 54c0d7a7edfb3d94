package sync

import (
	"context"
	"errors"
	gosync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/iptv-sync/internal/catalog"
)

// fakeSyncAller records SyncAll calls and answers with a scripted phase.
type fakeSyncAller struct {
	mu     gosync.Mutex
	forces []bool
	phase  Phase
	panics bool
	calls  chan struct{}
}

func (f *fakeSyncAller) SyncAll(_ context.Context, force bool) []State {
	f.mu.Lock()
	f.forces = append(f.forces, force)
	phase, panics := f.phase, f.panics
	f.mu.Unlock()

	defer func() { f.calls <- struct{}{} }()

	if panics {
		panic("boom")
	}

	return []State{{Kind: catalog.KindLive, Phase: phase}}
}

func (f *fakeSyncAller) recorded() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]bool(nil), f.forces...)
}

func TestBackoffDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		failures int
		want     time.Duration
	}{
		{0, 0},
		{1, time.Minute},
		{2, 5 * time.Minute},
		{3, 15 * time.Minute},
		{4, time.Hour},
		{10, time.Hour},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, backoffDuration(tt.failures), "failures=%d", tt.failures)
	}
}

func TestScheduler_FirstRoundUnforcedThenKicked(t *testing.T) {
	t.Parallel()

	f := &fakeSyncAller{phase: PhaseSuccess, calls: make(chan struct{}, 10)}
	s := newScheduler(f, time.Hour, testLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- s.Run(ctx) }()

	<-f.calls
	s.Kick()
	<-f.calls

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	assert.Equal(t, []bool{false, true}, f.recorded())
}

func TestScheduler_SurvivesPanic(t *testing.T) {
	t.Parallel()

	f := &fakeSyncAller{panics: true, calls: make(chan struct{}, 10)}
	s := newScheduler(f, time.Hour, testLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- s.Run(ctx) }()

	<-f.calls
	s.Kick()
	<-f.calls

	cancel()
	assert.True(t, errors.Is(<-done, context.Canceled))
	assert.Len(t, f.recorded(), 2)
}

func TestScheduler_Round(t *testing.T) {
	t.Parallel()

	ok := &fakeSyncAller{phase: PhaseSuccess, calls: make(chan struct{}, 1)}
	assert.True(t, newScheduler(ok, 0, testLogger(t)).round(context.Background(), false))

	failing := &fakeSyncAller{phase: PhaseError, calls: make(chan struct{}, 1)}
	assert.False(t, newScheduler(failing, 0, testLogger(t)).round(context.Background(), true))
}
