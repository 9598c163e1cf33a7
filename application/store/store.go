package store

import (
	"sync"

	"thoughtgraph/domain/core/aggregates"
	"thoughtgraph/domain/core/entities"
	"thoughtgraph/domain/events"

	"go.uber.org/zap"
)

// Listener receives the state produced by every dispatched action.
// Listeners run synchronously on the dispatching goroutine and must not
// call Dispatch themselves; reading State is fine.
type Listener func(State)

// Store holds the graph view-model and notifies listeners of changes.
// A Store is created per session and passed to the components that need
// it. It is safe for concurrent use; listeners observe states in the
// order actions were reduced.
type Store struct {
	mu        sync.Mutex
	notifyMu  sync.Mutex
	state     State
	listeners map[uint64]Listener
	nextID    uint64
	logger    *zap.Logger
}

// NewStore creates a store holding InitialState
func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		state:     InitialState(),
		listeners: make(map[uint64]Listener),
		logger:    logger,
	}
}

// State returns a copy of the current state
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe registers a listener and returns a function that removes it.
// Calling the returned function more than once is harmless.
func (s *Store) Subscribe(listener Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = listener
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// Dispatch reduces the action into the state, notifies listeners and
// returns the resulting state.
func (s *Store) Dispatch(action events.Action) State {
	s.mu.Lock()
	next := Reduce(s.state, action)
	next.Version = s.state.Version + 1
	s.state = next

	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}

	// Taking notifyMu before releasing mu keeps notification order equal
	// to reduction order across goroutines.
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	s.logger.Debug("Action dispatched",
		zap.String("action", string(action.Type())),
		zap.Uint64("version", next.Version),
		zap.String("current_thread", next.CurrentThreadID))

	for _, l := range listeners {
		l(next.clone())
	}
	return next.clone()
}

// SetThreads replaces the thread list and ends the loading state
func (s *Store) SetThreads(threads []entities.Thread) {
	s.Dispatch(events.SetThreads{Threads: threads})
}

// AddThreadToList prepends a thread unless one with the same id exists
func (s *Store) AddThreadToList(thread entities.Thread) {
	s.Dispatch(events.AddThread{Thread: thread})
}

// SetCurrentThreadID selects a graph; "" clears the selection
func (s *Store) SetCurrentThreadID(id string) {
	s.Dispatch(events.SetCurrentThread{ID: id})
}

func (s *Store) SetIsLoadingThreads(loading bool) {
	s.Dispatch(events.SetThreadsLoading{Loading: loading})
}

func (s *Store) BeginGraphLoad(threadID string) {
	s.Dispatch(events.GraphLoadStarted{ThreadID: threadID})
}

// CommitSnapshot installs graph data fetched from the backend
func (s *Store) CommitSnapshot(threadID string, snapshot aggregates.GraphData) {
	s.Dispatch(events.SnapshotCommitted{ThreadID: threadID, Snapshot: snapshot})
}

// FailGraphLoad records a failed load; the last committed snapshot stays
func (s *Store) FailGraphLoad(threadID, message string) {
	s.Dispatch(events.GraphLoadFailed{ThreadID: threadID, Message: message})
}

// CancelGraphLoad ends the loading state without an error
func (s *Store) CancelGraphLoad(threadID string) {
	s.Dispatch(events.GraphLoadCanceled{ThreadID: threadID})
}

func (s *Store) SetPreview(preview aggregates.GraphData) {
	s.Dispatch(events.PreviewSet{Preview: preview})
}

func (s *Store) ClearPreview() {
	s.Dispatch(events.PreviewCleared{})
}

func (s *Store) SetError(message string) {
	s.Dispatch(events.ErrorSet{Message: message})
}

func (s *Store) ClearError() {
	s.Dispatch(events.ErrorCleared{})
}
