package sync

import (
	gosync "sync"
	"time"

	"github.com/tonimelisma/iptv-sync/internal/catalog"
)

// Phase is the lifecycle position of one kind's sync.
type Phase int

// Sync phases. Error is not terminal: the next request starts over.
const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseSuccess
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseSuccess:
		return "success"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

// Result describes a successful sync.
type Result struct {
	RunID     string
	FromCache bool  // served from stored data, nothing fetched
	Count     int   // rows stored for the source after the sync
	Parsed    int   // records read from the catalog stream
	Chunks    int   // write transactions committed
	Deleted   int64 // rows removed before the reload
}

// State is one observation of a kind's sync.
type State struct {
	Kind     catalog.Kind
	Phase    Phase
	Progress int // records parsed so far, while loading
	Result   Result
	Err      error
	HasCache bool // on error: stored rows for the kind are still usable
	At       time.Time
}

// StateStream fans out state changes for one kind. Each subscriber channel
// holds at most one value; a slow subscriber skips intermediate states but
// always receives the latest.
type StateStream struct {
	mu      gosync.Mutex
	current State
	subs    map[int]chan State
	nextID  int
}

func newStateStream(kind catalog.Kind) *StateStream {
	return &StateStream{
		current: State{Kind: kind, Phase: PhaseIdle},
		subs:    make(map[int]chan State),
	}
}

// Current returns the most recently published state.
func (s *StateStream) Current() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.current
}

// Subscribe returns a channel that immediately holds the current state and
// then receives every later one (latest wins). Call cancel to unsubscribe;
// it closes the channel.
func (s *StateStream) Subscribe() (<-chan State, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan State, 1)
	ch <- s.current

	id := s.nextID
	s.nextID++
	s.subs[id] = ch

	var once gosync.Once

	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()

			delete(s.subs, id)
			close(ch)
		})
	}

	return ch, cancel
}

func (s *StateStream) publish(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = st

	for _, ch := range s.subs {
		select {
		case ch <- st:
		default:
			// Replace the stale undelivered value.
			select {
			case <-ch:
			default:
			}
			ch <- st
		}
	}
}
