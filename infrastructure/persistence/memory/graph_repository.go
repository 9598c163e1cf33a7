package memory

import (
	"context"
	"fmt"
	"sync"

	"thoughtgraph/application/ports"
	"thoughtgraph/domain/core/aggregates"
	"thoughtgraph/domain/core/entities"
	apperrors "thoughtgraph/pkg/errors"
	"thoughtgraph/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// graphRecord is one stored graph
type graphRecord struct {
	thread entities.Thread
	data   aggregates.GraphData
}

// userGraphs holds one user's graphs, newest first
type userGraphs struct {
	order  []string
	graphs map[string]*graphRecord
}

// GraphRepository implements ports.GraphRepository in process memory.
// Nothing survives a restart.
type GraphRepository struct {
	mu     sync.RWMutex
	users  map[string]*userGraphs
	logger *zap.Logger
}

var _ ports.GraphRepository = (*GraphRepository)(nil)

// NewGraphRepository creates an empty repository
func NewGraphRepository(logger *zap.Logger) *GraphRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GraphRepository{
		users:  make(map[string]*userGraphs),
		logger: logger,
	}
}

// ListThreads returns the user's graphs, newest first
func (r *GraphRepository) ListThreads(ctx context.Context, userID string) ([]entities.Thread, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	threads := []entities.Thread{}
	user, ok := r.users[userID]
	if !ok {
		return threads, nil
	}
	for _, id := range user.order {
		threads = append(threads, user.graphs[id].thread)
	}
	return threads, nil
}

// CreateThread creates an empty graph. Names are unique per user since
// update and process-text address graphs by name.
func (r *GraphRepository) CreateThread(ctx context.Context, userID, name string) (entities.Thread, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user := r.userLocked(userID)
	for _, rec := range user.graphs {
		if rec.thread.Name == name {
			return entities.Thread{}, apperrors.NewConflictError(fmt.Sprintf("graph %q already exists", name))
		}
	}

	thread := entities.Thread{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: utils.NowRFC3339(),
	}
	user.graphs[thread.ID] = &graphRecord{thread: thread, data: aggregates.EmptyGraphData()}
	user.order = append([]string{thread.ID}, user.order...)

	r.logger.Debug("Graph created",
		zap.String("user_id", userID),
		zap.String("graph_id", thread.ID),
		zap.String("name", name))
	return thread, nil
}

// GetGraph returns a copy of the graph's snapshot
func (r *GraphRepository) GetGraph(ctx context.Context, userID, graphID string) (aggregates.GraphData, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[userID]
	if !ok {
		return aggregates.GraphData{}, apperrors.NewNotFoundError("graph")
	}
	rec, ok := user.graphs[graphID]
	if !ok {
		return aggregates.GraphData{}, apperrors.NewNotFoundError("graph")
	}
	return rec.data.Clone(), nil
}

// ReplaceGraph overwrites a graph's snapshot
func (r *GraphRepository) ReplaceGraph(ctx context.Context, userID, graphName string, data aggregates.GraphData) error {
	data = data.Normalize()
	if err := data.Validate(); err != nil {
		return apperrors.NewValidationError(err.Error())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.resolveLocked(userID, graphName)
	if err != nil {
		return err
	}
	rec.data = data.Clone()
	return nil
}

// MergeGraph adds nodes and edges to a graph and returns the result
func (r *GraphRepository) MergeGraph(ctx context.Context, userID, graphName string, addition aggregates.GraphData) (aggregates.GraphData, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.resolveLocked(userID, graphName)
	if err != nil {
		return aggregates.GraphData{}, err
	}

	merged := aggregates.Merge(rec.data, addition.Normalize())
	if err := merged.Validate(); err != nil {
		return aggregates.GraphData{}, apperrors.NewValidationError(err.Error())
	}
	rec.data = merged
	return merged.Clone(), nil
}

func (r *GraphRepository) userLocked(userID string) *userGraphs {
	user, ok := r.users[userID]
	if !ok {
		user = &userGraphs{graphs: make(map[string]*graphRecord)}
		r.users[userID] = user
	}
	return user
}

// resolveLocked finds a graph by name, then by id
func (r *GraphRepository) resolveLocked(userID, graphName string) (*graphRecord, error) {
	user, ok := r.users[userID]
	if !ok {
		return nil, apperrors.NewNotFoundError("graph")
	}
	for _, id := range user.order {
		if rec := user.graphs[id]; rec.thread.Name == graphName {
			return rec, nil
		}
	}
	if rec, ok := user.graphs[graphName]; ok {
		return rec, nil
	}
	return nil, apperrors.NewNotFoundError("graph")
}
