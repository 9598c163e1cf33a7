package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, Development, cfg.Environment)
	assert.Equal(t, AuthProviderJWT, cfg.AuthProvider)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_FileThenEnv(t *testing.T) {
	// Arrange
	path := filepath.Join(t.TempDir(), "thoughtgraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api_base_url: https://graphs.example.com
request_timeout: 5s
log_level: debug
allowed_origins:
  - https://app.example.com
`), 0o600))
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")

	// Act
	cfg, err := Load(path)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "https://graphs.example.com", cfg.APIBaseURL)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "warn", cfg.LogLevel, "environment wins over the file")
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_UsesEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte("user_id: from-file\n"), 0o600))
	t.Setenv(EnvConfigFile, path)

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.UserID)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(c *Config) {}},
		{
			name:    "relative base url",
			mutate:  func(c *Config) { c.APIBaseURL = "/api" },
			wantErr: "API_BASE_URL",
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.RequestTimeout = 0 },
			wantErr: "REQUEST_TIMEOUT",
		},
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.AuthProvider = "oauth" },
			wantErr: "AUTH_PROVIDER",
		},
		{
			name:    "supabase without keys",
			mutate:  func(c *Config) { c.AuthProvider = AuthProviderSupabase },
			wantErr: "SUPABASE_URL",
		},
		{
			name: "supabase with keys",
			mutate: func(c *Config) {
				c.AuthProvider = AuthProviderSupabase
				c.SupabaseURL = "https://x.supabase.co"
				c.SupabaseAnonKey = "anon"
			},
		},
		{
			name:    "unknown storage",
			mutate:  func(c *Config) { c.Storage = "postgres" },
			wantErr: "STORAGE_BACKEND",
		},
		{
			name: "dynamodb without table",
			mutate: func(c *Config) {
				c.Storage = StorageDynamoDB
				c.DynamoDBTable = ""
			},
			wantErr: "TABLE_NAME",
		},
		{
			name:   "dynamodb with defaults",
			mutate: func(c *Config) { c.Storage = StorageDynamoDB },
		},
		{
			name:    "tracing without collector",
			mutate:  func(c *Config) { c.EnableTracing = true },
			wantErr: "OTLP_ENDPOINT",
		},
		{
			name: "tracing with collector",
			mutate: func(c *Config) {
				c.EnableTracing = true
				c.OTLPEndpoint = "localhost:4317"
			},
		},
		{
			name:    "production with development secret",
			mutate:  func(c *Config) { c.Environment = Production },
			wantErr: "JWT_SECRET is required in production",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("TG_DURATION", "45")
	assert.Equal(t, 45*time.Second, getEnvDuration("TG_DURATION", time.Second))

	t.Setenv("TG_DURATION", "1m")
	assert.Equal(t, time.Minute, getEnvDuration("TG_DURATION", time.Second))

	t.Setenv("TG_DURATION", "soon")
	assert.Equal(t, time.Second, getEnvDuration("TG_DURATION", time.Second))
}

func TestFileWatcher_CallsBackOnWrite(t *testing.T) {
	// Arrange
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("A -> B\n"), 0o600))

	watcher, err := NewFileWatcher(path, 20*time.Millisecond, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 10)
	done := make(chan error, 1)
	go func() {
		done <- watcher.Run(ctx, func() { changed <- struct{}{} })
	}()

	// Act: other files in the directory are ignored
	require.Eventually(t, func() bool {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o600))
		require.NoError(t, os.WriteFile(path, []byte("A -> B\nB -> C\n"), 0o600))
		select {
		case <-changed:
			return true
		default:
			return false
		}
	}, 5*time.Second, 100*time.Millisecond)

	// Assert
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestSessionPath(t *testing.T) {
	cfg := Default()
	cfg.SessionFile = "/tmp/tg-session"

	path, err := cfg.SessionPath()

	require.NoError(t, err)
	assert.Equal(t, "/tmp/tg-session", path)
}
