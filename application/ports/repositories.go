package ports

import (
	"context"

	"thoughtgraph/domain/core/aggregates"
	"thoughtgraph/domain/core/entities"
)

// GraphRepository defines the interface for graph persistence behind the
// reference backend. Every method is scoped to one user.
type GraphRepository interface {
	// ListThreads returns the user's graphs, newest first
	ListThreads(ctx context.Context, userID string) ([]entities.Thread, error)

	// CreateThread creates an empty graph with the given name
	CreateThread(ctx context.Context, userID, name string) (entities.Thread, error)

	// GetGraph returns the snapshot of a graph by id
	GetGraph(ctx context.Context, userID, graphID string) (aggregates.GraphData, error)

	// ReplaceGraph overwrites a graph's snapshot. graphName may be the
	// graph's name or its id.
	ReplaceGraph(ctx context.Context, userID, graphName string, data aggregates.GraphData) error

	// MergeGraph adds nodes and edges to a graph and returns the result
	MergeGraph(ctx context.Context, userID, graphName string, addition aggregates.GraphData) (aggregates.GraphData, error)
}
