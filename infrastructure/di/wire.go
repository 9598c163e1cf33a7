//go:build wireinject
// +build wireinject

package di

import (
	"thoughtgraph/application/ports"
	"thoughtgraph/infrastructure/api"
	"thoughtgraph/infrastructure/config"
	"thoughtgraph/infrastructure/layout"

	"github.com/google/wire"
)

// CommonSet provides what both the client and the reference backend need
var CommonSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,
	ProvideJWTConfig,
)

// ClientSet wires the store, fetcher, renderer and sync service
var ClientSet = wire.NewSet(
	CommonSet,
	ProvideCredentialSource,
	ProvideAPIClient,
	wire.Bind(new(ports.GraphService), new(*api.Client)),
	ProvideStore,
	ProvideHookManager,
	ProvideSyncService,
	ProvideLayoutEngine,
	wire.Bind(new(ports.LayoutEngine), new(*layout.Engine)),
	ProvideRenderer,
	wire.Struct(new(ClientContainer), "*"),
)

// ServerSet wires the reference backend
var ServerSet = wire.NewSet(
	CommonSet,
	ProvideGraphRepository,
	ProvideJWTValidator,
	ProvideRouter,
	wire.Struct(new(ServerContainer), "*"),
)

// InitializeClient creates a fully wired client container
func InitializeClient(cfg *config.Config) (*ClientContainer, error) {
	wire.Build(ClientSet)
	return nil, nil // Wire will replace this
}

// InitializeServer creates a fully wired reference backend container
func InitializeServer(cfg *config.Config) (*ServerContainer, error) {
	wire.Build(ServerSet)
	return nil, nil // Wire will replace this
}
