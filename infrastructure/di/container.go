package di

import (
	"thoughtgraph/application/ports"
	"thoughtgraph/application/renderer"
	"thoughtgraph/application/services"
	"thoughtgraph/application/store"
	"thoughtgraph/infrastructure/api"
	"thoughtgraph/infrastructure/config"
	"thoughtgraph/infrastructure/layout"
	"thoughtgraph/interfaces/http/rest"
	"thoughtgraph/pkg/extensions"
	"thoughtgraph/pkg/observability"

	"go.uber.org/zap"
)

// ClientContainer holds the client-side dependencies
type ClientContainer struct {
	Config      *config.Config
	Logger      *zap.Logger
	Metrics     *observability.Collector
	Credentials ports.CredentialSource
	API         *api.Client
	Store       *store.Store
	Hooks       *extensions.HookManager
	Sync        *services.GraphSyncService
	Engine      *layout.Engine
	Renderer    *renderer.Adapter
}

// ServerContainer holds the reference backend dependencies
type ServerContainer struct {
	Config    *config.Config
	Logger    *zap.Logger
	Metrics   *observability.Collector
	GraphRepo ports.GraphRepository
	Router    *rest.Router
}
