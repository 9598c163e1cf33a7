package events

import (
	"thoughtgraph/domain/core/aggregates"
	"thoughtgraph/domain/core/entities"
)

// SetThreads replaces the thread list and ends thread loading
type SetThreads struct {
	Threads []entities.Thread
}

func (SetThreads) Type() ActionType { return ActionSetThreads }

// AddThread prepends a thread unless one with the same id is listed
type AddThread struct {
	Thread entities.Thread
}

func (AddThread) Type() ActionType { return ActionAddThread }

// SetCurrentThread selects a graph. An empty ID clears the selection.
type SetCurrentThread struct {
	ID string
}

func (SetCurrentThread) Type() ActionType { return ActionSetCurrentThread }

// SetThreadsLoading toggles the thread list loading flag
type SetThreadsLoading struct {
	Loading bool
}

func (SetThreadsLoading) Type() ActionType { return ActionSetThreadsLoading }

// GraphLoadStarted marks a snapshot request as in flight
type GraphLoadStarted struct {
	ThreadID string
}

func (GraphLoadStarted) Type() ActionType { return ActionGraphLoadStarted }

// SnapshotCommitted installs an authoritative snapshot
type SnapshotCommitted struct {
	ThreadID string
	Snapshot aggregates.GraphData
}

func (SnapshotCommitted) Type() ActionType { return ActionSnapshotCommitted }

// GraphLoadFailed ends a snapshot request without touching the snapshot
type GraphLoadFailed struct {
	ThreadID string
	Message  string
}

func (GraphLoadFailed) Type() ActionType { return ActionGraphLoadFailed }

// GraphLoadCanceled ends a snapshot request whose result is no longer wanted
type GraphLoadCanceled struct {
	ThreadID string
}

func (GraphLoadCanceled) Type() ActionType { return ActionGraphLoadCanceled }

// PreviewSet shows a locally derived snapshot until the backend answers
type PreviewSet struct {
	Preview aggregates.GraphData
}

func (PreviewSet) Type() ActionType { return ActionPreviewSet }

// PreviewCleared drops the optimistic preview
type PreviewCleared struct{}

func (PreviewCleared) Type() ActionType { return ActionPreviewCleared }

// ErrorSet records a user-facing error message
type ErrorSet struct {
	Message string
}

func (ErrorSet) Type() ActionType { return ActionErrorSet }

// ErrorCleared removes the last error message
type ErrorCleared struct{}

func (ErrorCleared) Type() ActionType { return ActionErrorCleared }
