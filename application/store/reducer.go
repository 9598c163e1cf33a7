package store

import (
	"thoughtgraph/domain/core/entities"
	"thoughtgraph/domain/events"
)

// Reduce applies an action to a state and returns the new state.
// It is pure: the input state is not modified and unknown actions return
// the state unchanged.
func Reduce(state State, action events.Action) State {
	next := state.clone()

	switch a := action.(type) {
	case events.SetThreads:
		next.Threads = append([]entities.Thread{}, a.Threads...)
		next.IsLoadingThreads = false

	case events.AddThread:
		if _, exists := entities.FindThread(next.Threads, a.Thread.ID); exists {
			return state
		}
		next.Threads = append([]entities.Thread{a.Thread}, next.Threads...)

	case events.SetCurrentThread:
		next.CurrentThreadID = a.ID

	case events.SetThreadsLoading:
		next.IsLoadingThreads = a.Loading

	case events.GraphLoadStarted:
		next.IsLoadingGraph = true
		next.LastError = ""

	case events.SnapshotCommitted:
		next.Snapshot = a.Snapshot.Normalize().Clone()
		next.SnapshotThreadID = a.ThreadID
		next.Preview = nil
		next.IsLoadingGraph = false
		next.LastError = ""

	case events.GraphLoadFailed:
		next.IsLoadingGraph = false
		next.Preview = nil
		next.LastError = a.Message

	case events.GraphLoadCanceled:
		next.IsLoadingGraph = false

	case events.PreviewSet:
		preview := a.Preview.Normalize().Clone()
		next.Preview = &preview

	case events.PreviewCleared:
		next.Preview = nil

	case events.ErrorSet:
		next.LastError = a.Message

	case events.ErrorCleared:
		next.LastError = ""

	default:
		return state
	}

	return next
}
