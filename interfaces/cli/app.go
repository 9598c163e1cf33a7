package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"thoughtgraph/infrastructure/config"
	"thoughtgraph/infrastructure/di"
	"thoughtgraph/infrastructure/identity"
	"thoughtgraph/pkg/observability"

	"go.uber.org/zap"
)

// App carries what the commands share: configuration, the lazily built
// client container and the optional trace exporter.
type App struct {
	configPath string
	logLevel   string
	traceFile  string

	cfg       *config.Config
	client    *di.ClientContainer
	tracing   *observability.TracerProvider
	traceSink io.Closer

	loadConfig func(path string) (*config.Config, error)
}

// Option customizes an App
type Option func(*App)

// WithConfig skips config loading and uses cfg
func WithConfig(cfg *config.Config) Option {
	return func(a *App) {
		a.loadConfig = func(string) (*config.Config, error) { return cfg, nil }
	}
}

func newApp(opts ...Option) *App {
	a := &App{loadConfig: config.Load}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// setup loads configuration and starts tracing when asked to
func (a *App) setup() error {
	path := a.configPath
	if path == "" {
		path = os.Getenv(config.EnvConfigFile)
	}
	cfg, err := a.loadConfig(path)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	a.cfg = cfg

	if a.traceFile != "" {
		f, err := os.Create(a.traceFile)
		if err != nil {
			return fmt.Errorf("open trace file: %w", err)
		}
		tp, err := observability.InitTracing("thoughtgraph", cfg.Environment, f)
		if err != nil {
			f.Close()
			return err
		}
		a.tracing, a.traceSink = tp, f
	}
	return nil
}

// Client builds the client container on first use. With the Supabase
// provider a stored session is restored.
func (a *App) Client(ctx context.Context) (*di.ClientContainer, error) {
	if a.client != nil {
		return a.client, nil
	}
	container, err := di.InitializeClient(a.cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize client: %w", err)
	}
	a.client = container

	if source, ok := container.Credentials.(*identity.SupabaseSource); ok {
		if err := a.restoreSession(ctx, source); err != nil {
			container.Logger.Warn("Stored session could not be restored", zap.Error(err))
		}
	}
	return container, nil
}

// teardown persists a rotated refresh token, flushes spans and syncs the
// logger
func (a *App) teardown() error {
	var errs []error

	if a.client != nil {
		if source, ok := a.client.Credentials.(*identity.SupabaseSource); ok {
			if token := source.RefreshTokenValue(); token != "" {
				errs = append(errs, a.saveSession(token))
			}
		}
		a.client.Hooks.Wait()
		_ = a.client.Logger.Sync()
	}

	if a.tracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		errs = append(errs, a.tracing.Shutdown(ctx))
		cancel()
		errs = append(errs, a.traceSink.Close())
	}
	return errors.Join(errs...)
}

func (a *App) restoreSession(ctx context.Context, source *identity.SupabaseSource) error {
	path, err := a.cfg.SessionPath()
	if err != nil {
		return err
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	token := strings.TrimSpace(string(raw))
	if token == "" {
		return nil
	}
	return source.Restore(ctx, token)
}

func (a *App) saveSession(refreshToken string) error {
	path, err := a.cfg.SessionPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}
	return os.WriteFile(path, []byte(refreshToken+"\n"), 0o600)
}

func (a *App) clearSession() error {
	path, err := a.cfg.SessionPath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
