package store

import (
	"thoughtgraph/domain/core/aggregates"
	"thoughtgraph/domain/core/entities"
)

// State is the graph view-model.
// Values handed out by the store are copies; mutating them has no effect
// on the store.
type State struct {
	// Threads known to the client, most recently added first
	Threads []entities.Thread

	// CurrentThreadID is the selected graph; "" means nothing is selected.
	// It is not validated against Threads.
	CurrentThreadID string

	IsLoadingThreads bool
	IsLoadingGraph   bool

	// Snapshot is the last graph data committed from the backend and
	// SnapshotThreadID the thread it belongs to.
	Snapshot         aggregates.GraphData
	SnapshotThreadID string

	// Preview is a local optimistic rendering shown while the backend
	// processes submitted text. Nil when there is none.
	Preview *aggregates.GraphData

	// LastError is the message of the last failed operation; "" if none.
	LastError string

	// Version increases by one for every dispatched action
	Version uint64
}

// InitialState returns the state of a fresh session.
// The thread list starts in the loading state until the first list arrives.
func InitialState() State {
	return State{
		Threads:          []entities.Thread{},
		IsLoadingThreads: true,
		Snapshot:         aggregates.EmptyGraphData(),
	}
}

// HasSelection reports whether a graph is selected
func (s State) HasSelection() bool {
	return s.CurrentThreadID != ""
}

// CurrentThread returns the selected thread when it is in the list
func (s State) CurrentThread() (entities.Thread, bool) {
	if !s.HasSelection() {
		return entities.Thread{}, false
	}
	return entities.FindThread(s.Threads, s.CurrentThreadID)
}

// Displayed returns what a renderer should show: the preview when one
// is pending, the committed snapshot otherwise.
func (s State) Displayed() aggregates.GraphData {
	if s.Preview != nil {
		return *s.Preview
	}
	return s.Snapshot
}

func (s State) clone() State {
	out := s
	out.Threads = append([]entities.Thread(nil), s.Threads...)
	if out.Threads == nil {
		out.Threads = []entities.Thread{}
	}
	out.Snapshot = s.Snapshot.Clone()
	if s.Preview != nil {
		preview := s.Preview.Clone()
		out.Preview = &preview
	}
	return out
}
