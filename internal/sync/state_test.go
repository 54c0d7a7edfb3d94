package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/iptv-sync/internal/catalog"
)

func TestStateStream_SubscribeReceivesCurrent(t *testing.T) {
	t.Parallel()

	s := newStateStream(catalog.KindLive)
	s.publish(State{Kind: catalog.KindLive, Phase: PhaseSuccess, Result: Result{Count: 3}})

	ch, cancel := s.Subscribe()
	defer cancel()

	st := <-ch
	assert.Equal(t, PhaseSuccess, st.Phase)
	assert.Equal(t, 3, st.Result.Count)
}

func TestStateStream_SlowSubscriberGetsLatest(t *testing.T) {
	t.Parallel()

	s := newStateStream(catalog.KindMovie)

	ch, cancel := s.Subscribe()
	defer cancel()

	for i := 1; i <= 50; i++ {
		s.publish(State{Kind: catalog.KindMovie, Phase: PhaseLoading, Progress: i})
	}

	s.publish(State{Kind: catalog.KindMovie, Phase: PhaseSuccess})

	st := <-ch
	assert.Equal(t, PhaseSuccess, st.Phase)
	assert.Empty(t, ch)
	assert.Equal(t, PhaseSuccess, s.Current().Phase)
}

func TestStateStream_CancelClosesAndIsIdempotent(t *testing.T) {
	t.Parallel()

	s := newStateStream(catalog.KindSeries)

	ch, cancel := s.Subscribe()
	<-ch

	cancel()
	cancel()

	_, open := <-ch
	require.False(t, open)

	// Publishing after cancel must not panic on the closed channel.
	s.publish(State{Kind: catalog.KindSeries, Phase: PhaseIdle})
}

func TestPhaseString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "idle", PhaseIdle.String())
	assert.Equal(t, "loading", PhaseLoading.String())
	assert.Equal(t, "success", PhaseSuccess.String())
	assert.Equal(t, "error", PhaseError.String())
	assert.Equal(t, "unknown", Phase(42).String())
}
