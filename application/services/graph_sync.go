package services

import (
	"context"
	"errors"
	"sync"

	"thoughtgraph/application/commands"
	"thoughtgraph/application/ports"
	"thoughtgraph/application/queries"
	"thoughtgraph/application/store"
	"thoughtgraph/domain/core/aggregates"
	"thoughtgraph/domain/core/entities"
	domainservices "thoughtgraph/domain/services"
	apperrors "thoughtgraph/pkg/errors"
	"thoughtgraph/pkg/extensions"

	"go.uber.org/zap"
)

// ErrSuperseded is returned when a graph request finished after a newer
// one started or after the graph was deselected. Its result was dropped.
var ErrSuperseded = errors.New("graph request superseded")

// Message shown when an operation needs a selected graph
const MessageNoGraphSelected = "No graph selected."

// GraphSyncService keeps the view-model store in step with the backend
// graph service: it loads threads and snapshots, creates graphs, submits
// text and saves snapshots. Every outcome, success or failure, ends up in
// the store.
//
// Snapshot requests follow last-snapshot-wins: starting a load or a text
// submission cancels the one in flight, and a response is committed only
// if it belongs to the newest request and its graph is still selected.
type GraphSyncService struct {
	store  *store.Store
	graphs ports.GraphService
	hooks  *extensions.HookManager
	logger *zap.Logger

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

// NewGraphSyncService creates a new sync service
func NewGraphSyncService(
	s *store.Store,
	graphs ports.GraphService,
	hooks *extensions.HookManager,
	logger *zap.Logger,
) *GraphSyncService {
	if hooks == nil {
		hooks = extensions.NewHookManager()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GraphSyncService{
		store:  s,
		graphs: graphs,
		hooks:  hooks,
		logger: logger,
	}
}

// RefreshThreads reloads the thread list. On failure the list is emptied
// and the error recorded.
func (s *GraphSyncService) RefreshThreads(ctx context.Context) error {
	s.store.SetIsLoadingThreads(true)

	threads, err := s.graphs.ListThreads(ctx)
	if err != nil {
		s.logger.Error("Failed to fetch threads", zap.Error(err))
		s.store.SetThreads([]entities.Thread{})
		s.store.SetError(apperrors.UserMessage(err))
		return err
	}

	s.store.SetThreads(threads)
	return nil
}

// SelectThread selects a graph and loads it. An empty id clears the
// selection and abandons any load in flight.
func (s *GraphSyncService) SelectThread(ctx context.Context, threadID string) error {
	if threadID == "" {
		s.abandon()
		return nil
	}
	return s.load(ctx, threadID, true)
}

// LoadGraph fetches the snapshot of threadID and commits it if threadID is
// still selected when the response arrives. A graph that is not selected
// is not fetched and ErrSuperseded is returned.
func (s *GraphSyncService) LoadGraph(ctx context.Context, threadID string) error {
	return s.load(ctx, threadID, false)
}

func (s *GraphSyncService) load(ctx context.Context, threadID string, selecting bool) error {
	if err := (queries.GetGraphQuery{GraphID: threadID}).Validate(); err != nil {
		return apperrors.NewValidationError(err.Error())
	}

	seq, loadCtx, ok := s.begin(ctx, threadID, selecting)
	if !ok {
		s.logger.Debug("Skipped load of deselected graph", zap.String("thread_id", threadID))
		return ErrSuperseded
	}
	defer s.finish(seq, threadID)

	hookData := extensions.HookData{Operation: "get_graph", GraphID: threadID}
	if err := s.hooks.Execute(loadCtx, extensions.HookBeforeGraphFetch, hookData); err != nil {
		s.fail(seq, threadID, err)
		return err
	}

	data, err := s.graphs.GetGraph(loadCtx, threadID)
	if err != nil {
		if !s.fail(seq, threadID, err) {
			return ErrSuperseded
		}
		hookData.Err = err
		s.hooks.ExecuteAsync(ctx, extensions.HookGraphFetchFailed, hookData)
		return err
	}

	if !s.commit(seq, threadID, data) {
		s.logger.Debug("Dropped superseded graph load", zap.String("thread_id", threadID))
		return ErrSuperseded
	}

	hookData.NodeCount, hookData.EdgeCount = len(data.Nodes), len(data.Edges)
	s.hooks.ExecuteAsync(ctx, extensions.HookAfterGraphFetch, hookData)
	return nil
}

// CreateGraph validates the name, creates the graph and adds it to the
// thread list. The selection does not change.
func (s *GraphSyncService) CreateGraph(ctx context.Context, name string) (entities.Thread, error) {
	cmd, err := commands.NewCreateGraphCommand(name)
	if err != nil {
		s.store.SetError(apperrors.UserMessage(err))
		return entities.Thread{}, err
	}

	thread, err := s.graphs.CreateGraph(ctx, cmd.Name)
	if err != nil {
		s.logger.Error("Failed to create graph", zap.String("name", cmd.Name), zap.Error(err))
		s.store.SetError(apperrors.UserMessage(err))
		return entities.Thread{}, err
	}
	if thread.Name == "" {
		thread.Name = cmd.Name
	}

	s.store.AddThreadToList(thread)
	s.hooks.ExecuteAsync(ctx, extensions.HookGraphCreated, extensions.HookData{
		Operation: "create_graph",
		GraphID:   thread.ID,
		GraphName: thread.Name,
	})
	return thread, nil
}

// SubmitText sends text to the backend for the selected graph. While the
// backend works, a local preview of the arrows in text merged into the
// current snapshot is shown. The backend's graph replaces the preview; on
// failure the preview is dropped and the previous snapshot stays.
func (s *GraphSyncService) SubmitText(ctx context.Context, text string) error {
	state := s.store.State()
	if !state.HasSelection() {
		err := apperrors.NewValidationError(MessageNoGraphSelected)
		s.store.SetError(err.Message)
		return err
	}
	threadID := state.CurrentThreadID
	graphName := graphNameFor(state)

	cmd, err := commands.NewProcessTextCommand(graphName, text)
	if err != nil {
		s.store.SetError(apperrors.UserMessage(err))
		return err
	}

	seq, submitCtx, ok := s.begin(ctx, threadID, false)
	if !ok {
		return ErrSuperseded
	}
	defer s.finish(seq, threadID)

	hookData := extensions.HookData{Operation: "process_text", GraphID: threadID, GraphName: graphName}
	if err := s.hooks.Execute(submitCtx, extensions.HookBeforeTextSubmit, hookData); err != nil {
		s.fail(seq, threadID, err)
		return err
	}

	base := aggregates.EmptyGraphData()
	if state.SnapshotThreadID == threadID {
		base = state.Snapshot
	}
	s.store.SetPreview(aggregates.Merge(base, domainservices.ParseArrowText(cmd.Text)))

	data, err := s.graphs.ProcessText(submitCtx, cmd.GraphName, cmd.Text)
	if err != nil {
		if !s.fail(seq, threadID, err) {
			return ErrSuperseded
		}
		return err
	}

	if !s.commit(seq, threadID, data) {
		return ErrSuperseded
	}

	hookData.NodeCount, hookData.EdgeCount = len(data.Nodes), len(data.Edges)
	s.hooks.ExecuteAsync(ctx, extensions.HookAfterTextSubmit, hookData)
	return nil
}

// SaveSnapshot pushes the committed snapshot of the selected graph back
// to the backend.
func (s *GraphSyncService) SaveSnapshot(ctx context.Context) error {
	state := s.store.State()
	if !state.HasSelection() {
		err := apperrors.NewValidationError(MessageNoGraphSelected)
		s.store.SetError(err.Message)
		return err
	}
	if state.SnapshotThreadID != state.CurrentThreadID {
		err := apperrors.NewValidationError("Graph is not loaded yet.")
		s.store.SetError(err.Message)
		return err
	}

	graphName := graphNameFor(state)
	cmd, err := commands.NewUpdateGraphCommand(graphName, state.Snapshot)
	if err != nil {
		s.store.SetError(apperrors.UserMessage(err))
		return err
	}

	if err := s.graphs.UpdateGraph(ctx, cmd.GraphName, cmd.GraphData()); err != nil {
		s.logger.Error("Failed to save graph", zap.String("graph", graphName), zap.Error(err))
		s.store.SetError(apperrors.UserMessage(err))
		return err
	}

	s.hooks.ExecuteAsync(ctx, extensions.HookSnapshotSaved, extensions.HookData{
		Operation: "update_graph",
		GraphID:   state.CurrentThreadID,
		GraphName: graphName,
		NodeCount: len(cmd.Nodes),
		EdgeCount: len(cmd.Edges),
	})
	return nil
}

// graphNameFor returns the name the backend knows the selected graph by:
// the thread name when the thread is listed, its id otherwise.
func graphNameFor(state store.State) string {
	if thread, ok := state.CurrentThread(); ok {
		return thread.GraphName()
	}
	return state.CurrentThreadID
}

// begin starts a snapshot request for threadID, superseding the one in
// flight. With selecting, threadID becomes the selection in the same
// critical section; otherwise it must already be selected, and ok is false
// when it is not.
func (s *GraphSyncService) begin(ctx context.Context, threadID string, selecting bool) (seq uint64, reqCtx context.Context, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if selecting {
		s.store.SetCurrentThreadID(threadID)
	} else if s.store.State().CurrentThreadID != threadID {
		return 0, nil, false
	}

	if s.cancel != nil {
		s.cancel()
	}
	s.seq++
	reqCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.store.BeginGraphLoad(threadID)
	return s.seq, reqCtx, true
}

// currentLocked reports whether request seq for threadID may still touch
// the store. Callers hold s.mu.
func (s *GraphSyncService) currentLocked(seq uint64, threadID string) bool {
	return s.seq == seq && s.store.State().CurrentThreadID == threadID
}

func (s *GraphSyncService) commit(seq uint64, threadID string, data aggregates.GraphData) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.currentLocked(seq, threadID) {
		return false
	}
	s.store.CommitSnapshot(threadID, data)
	return true
}

func (s *GraphSyncService) fail(seq uint64, threadID string, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.currentLocked(seq, threadID) {
		return false
	}
	s.logger.Warn("Graph request failed", zap.String("thread_id", threadID), zap.Error(err))
	s.store.FailGraphLoad(threadID, apperrors.UserMessage(err))
	return true
}

// finish releases request seq. If it is still the newest request the
// loading state is cleared, whatever path the request took.
func (s *GraphSyncService) finish(seq uint64, threadID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seq != seq {
		return
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.store.State().IsLoadingGraph {
		s.store.CancelGraphLoad(threadID)
	}
}

// abandon clears the selection and supersedes the request in flight
// without starting a new one
func (s *GraphSyncService) abandon() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.store.SetCurrentThreadID("")
	s.seq++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	state := s.store.State()
	if state.IsLoadingGraph {
		s.store.CancelGraphLoad("")
	}
	if state.Preview != nil {
		s.store.ClearPreview()
	}
}
