package ports

import (
	"context"
	"errors"

	"thoughtgraph/domain/core/aggregates"
	"thoughtgraph/domain/core/entities"
)

// ErrNoCurrentUser is returned by a CredentialSource when nobody is signed in
var ErrNoCurrentUser = errors.New("no current user")

// CredentialSource supplies bearer tokens for the backend graph service.
type CredentialSource interface {
	// Token returns an access token. With forceRefresh the source must not
	// hand out a cached token.
	Token(ctx context.Context, forceRefresh bool) (string, error)
}

// GraphService is the backend graph service as seen by the client.
// Implementations return *errors.AppError values so callers can surface a
// single human readable message.
type GraphService interface {
	ListThreads(ctx context.Context) ([]entities.Thread, error)
	GetGraph(ctx context.Context, graphID string) (aggregates.GraphData, error)
	CreateGraph(ctx context.Context, name string) (entities.Thread, error)
	UpdateGraph(ctx context.Context, graphName string, data aggregates.GraphData) error
	ProcessText(ctx context.Context, graphName, text string) (aggregates.GraphData, error)
}
