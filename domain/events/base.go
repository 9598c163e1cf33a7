package events

// ActionType names a view-model state change.
// Actions describe something the host or a completed request asks the
// store to record; the reducer is the only place they take effect.
type ActionType string

const (
	// Thread list
	ActionSetThreads        ActionType = "threads.set"
	ActionAddThread         ActionType = "threads.add"
	ActionSetCurrentThread  ActionType = "threads.select"
	ActionSetThreadsLoading ActionType = "threads.loading"

	// Graph snapshot
	ActionGraphLoadStarted  ActionType = "graph.load_started"
	ActionSnapshotCommitted ActionType = "graph.snapshot_committed"
	ActionGraphLoadFailed   ActionType = "graph.load_failed"
	ActionGraphLoadCanceled ActionType = "graph.load_canceled"
	ActionPreviewSet        ActionType = "graph.preview_set"
	ActionPreviewCleared    ActionType = "graph.preview_cleared"

	// Errors
	ActionErrorSet     ActionType = "error.set"
	ActionErrorCleared ActionType = "error.cleared"
)

// Action is the base interface for all store actions
type Action interface {
	Type() ActionType
}
