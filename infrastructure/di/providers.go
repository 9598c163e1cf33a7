package di

import (
	"context"
	"fmt"

	"thoughtgraph/application/ports"
	"thoughtgraph/application/renderer"
	"thoughtgraph/application/services"
	"thoughtgraph/application/store"
	"thoughtgraph/infrastructure/api"
	"thoughtgraph/infrastructure/config"
	"thoughtgraph/infrastructure/identity"
	"thoughtgraph/infrastructure/layout"
	"thoughtgraph/infrastructure/persistence/dynamodb"
	"thoughtgraph/infrastructure/persistence/memory"
	"thoughtgraph/interfaces/http/rest"
	"thoughtgraph/pkg/auth"
	"thoughtgraph/pkg/extensions"
	"thoughtgraph/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-xray-sdk-go/instrumentation/awsv2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// MetricsNamespace prefixes every Prometheus metric
const MetricsNamespace = "thoughtgraph"

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}

	var zcfg zap.Config
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	return zcfg.Build()
}

// ProvideMetrics creates the Prometheus collector
func ProvideMetrics() *observability.Collector {
	return observability.NewCollector(MetricsNamespace)
}

// ProvideJWTConfig derives the shared HS256 settings used by the JWT
// credential source and the reference backend
func ProvideJWTConfig(cfg *config.Config) auth.JWTConfig {
	return auth.JWTConfig{
		SigningMethod: "HS256",
		SecretKey:     cfg.JWTSecret,
		Issuer:        cfg.JWTIssuer,
	}
}

// ProvideCredentialSource picks the identity provider named by the config
func ProvideCredentialSource(cfg *config.Config, jwtCfg auth.JWTConfig, logger *zap.Logger) (ports.CredentialSource, error) {
	switch cfg.AuthProvider {
	case config.AuthProviderSupabase:
		source, err := identity.NewSupabaseSource(cfg.SupabaseURL, cfg.SupabaseAnonKey, logger.Named("identity"))
		if err != nil {
			return nil, err
		}
		return source, nil
	case config.AuthProviderJWT:
		source, err := identity.NewJWTSource(jwtCfg, cfg.UserID, cfg.UserEmail)
		if err != nil {
			return nil, err
		}
		return source, nil
	default:
		return nil, fmt.Errorf("unknown auth provider %q", cfg.AuthProvider)
	}
}

// ProvideAPIClient creates the graph service client
func ProvideAPIClient(
	cfg *config.Config,
	credentials ports.CredentialSource,
	metrics *observability.Collector,
	logger *zap.Logger,
) *api.Client {
	return api.NewClient(api.Config{
		BaseURL: cfg.APIBaseURL,
		Timeout: cfg.RequestTimeout,
		Breaker: api.DefaultBreakerConfig(),
	}, credentials, metrics, logger.Named("api"))
}

// ProvideStore creates the view-model store
func ProvideStore(logger *zap.Logger) *store.Store {
	return store.NewStore(logger.Named("store"))
}

// ProvideHookManager creates the hook manager
func ProvideHookManager() *extensions.HookManager {
	return extensions.NewHookManager()
}

// ProvideSyncService creates the graph sync service
func ProvideSyncService(
	s *store.Store,
	graphs ports.GraphService,
	hooks *extensions.HookManager,
	logger *zap.Logger,
) *services.GraphSyncService {
	return services.NewGraphSyncService(s, graphs, hooks, logger.Named("sync"))
}

// ProvideLayoutEngine creates the headless layout engine
func ProvideLayoutEngine(logger *zap.Logger) *layout.Engine {
	return layout.NewEngine(logger.Named("layout"))
}

// ProvideRenderer creates the renderer adapter over the layout engine
func ProvideRenderer(engine ports.LayoutEngine, logger *zap.Logger) *renderer.Adapter {
	return renderer.NewAdapter(engine, logger.Named("renderer"))
}

// ProvideGraphRepository creates the reference backend's storage named by
// the config
func ProvideGraphRepository(cfg *config.Config, logger *zap.Logger) (ports.GraphRepository, error) {
	logger = logger.Named("repository")
	switch cfg.Storage {
	case config.StorageDynamoDB:
		client, err := ProvideDynamoDBClient(context.Background(), cfg)
		if err != nil {
			return nil, err
		}
		logger.Info("Using DynamoDB storage",
			zap.String("table", cfg.DynamoDBTable),
			zap.String("region", cfg.AWSRegion))
		return dynamodb.NewGraphRepository(client, cfg.DynamoDBTable, logger), nil
	default:
		return memory.NewGraphRepository(logger), nil
	}
}

// ProvideDynamoDBClient creates a DynamoDB client from the default AWS
// credential chain. DynamoDBEndpoint points it at DynamoDB Local.
func ProvideDynamoDBClient(ctx context.Context, cfg *config.Config) (*awsdynamodb.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if cfg.EnableXRay {
		awsv2.AWSV2Instrumentor(&awsCfg.APIOptions)
	}
	return awsdynamodb.NewFromConfig(awsCfg, func(o *awsdynamodb.Options) {
		if cfg.DynamoDBEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoDBEndpoint)
		}
	}), nil
}

// StartTracing installs OTLP span export for a server process when
// tracing is enabled, and returns nil when it is not. Plain-text gRPC is
// used outside production.
func StartTracing(ctx context.Context, cfg *config.Config, serviceName string) (*observability.TracerProvider, error) {
	if !cfg.EnableTracing {
		return nil, nil
	}
	return observability.InitOTLPTracing(ctx, serviceName, cfg.Environment, cfg.OTLPEndpoint, !cfg.IsProduction())
}

// ProvideJWTValidator creates the token validator of the reference backend
func ProvideJWTValidator(jwtCfg auth.JWTConfig) (*auth.JWTValidator, error) {
	return auth.NewJWTValidator(jwtCfg)
}

// ProvideRouter creates the reference backend router
func ProvideRouter(
	cfg *config.Config,
	repo ports.GraphRepository,
	validator *auth.JWTValidator,
	metrics *observability.Collector,
	logger *zap.Logger,
) *rest.Router {
	var collector *observability.Collector
	if cfg.EnableMetrics {
		collector = metrics
	}
	return rest.NewRouter(repo, validator, collector, rest.RouterConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		Debug:          cfg.IsDevelopment(),
	}, logger.Named("http"))
}
