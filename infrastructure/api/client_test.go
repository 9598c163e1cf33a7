package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"thoughtgraph/application/commands"
	"thoughtgraph/application/ports"
	"thoughtgraph/domain/core/aggregates"
	apperrors "thoughtgraph/pkg/errors"
	"thoughtgraph/pkg/observability"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockCredentialSource is a mock implementation of ports.CredentialSource
type MockCredentialSource struct {
	mock.Mock
}

func (m *MockCredentialSource) Token(ctx context.Context, forceRefresh bool) (string, error) {
	args := m.Called(ctx, forceRefresh)
	return args.String(0), args.Error(1)
}

func signedIn() *MockCredentialSource {
	creds := new(MockCredentialSource)
	creds.On("Token", mock.Anything, true).Return("token-123", nil)
	return creds
}

func newTestClient(t *testing.T, handler http.HandlerFunc, creds ports.CredentialSource, breaker BreakerConfig) (*Client, *int32, *observability.Collector) {
	t.Helper()
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	metrics := observability.NewCollector("test")
	client := NewClient(Config{BaseURL: server.URL, Timeout: 5 * time.Second, Breaker: breaker}, creds, metrics, zap.NewNop())
	return client, &hits, metrics
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_NoCredentialMakesNoNetworkCall(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		tokenErr error
	}{
		{name: "no current user", tokenErr: ports.ErrNoCurrentUser},
		{name: "empty token", token: ""},
		{name: "refresh failed", tokenErr: errors.New("refresh token revoked")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			creds := new(MockCredentialSource)
			creds.On("Token", mock.Anything, true).Return(tt.token, tt.tokenErr)
			client, hits, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, []interface{}{})
			}, creds, DefaultBreakerConfig())

			// Act
			_, err := client.ListThreads(context.Background())

			// Assert
			require.Error(t, err)
			assert.True(t, apperrors.IsUnauthenticated(err))
			assert.Equal(t, "User is not authenticated.", apperrors.UserMessage(err))
			assert.Equal(t, int32(0), atomic.LoadInt32(hits))
			creds.AssertExpectations(t)
		})
	}
}

func TestClient_ListThreads(t *testing.T) {
	creds := signedIn()
	client, _, metrics := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/graphs/list", r.URL.Path)
		assert.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.NotEmpty(t, r.Header.Get(HeaderRequestID))
		writeJSON(w, http.StatusOK, []map[string]string{
			{"id": "g1", "name": "Ideas"},
			{"id": "g2"},
		})
	}, creds, DefaultBreakerConfig())

	threads, err := client.ListThreads(context.Background())

	require.NoError(t, err)
	require.Len(t, threads, 2)
	assert.Equal(t, "Ideas", threads[0].Name)
	assert.Equal(t, "g2", threads[1].ID)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ClientRequests.WithLabelValues(OpListThreads, "200")))
	creds.AssertExpectations(t)
}

func TestClient_ListThreadsNullBody(t *testing.T) {
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, nil)
	}, signedIn(), DefaultBreakerConfig())

	threads, err := client.ListThreads(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, threads)
	assert.Empty(t, threads)
}

func TestClient_GetGraph(t *testing.T) {
	t.Run("decodes graph data", func(t *testing.T) {
		client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/graphs/g1", r.URL.Path)
			_, _ = w.Write([]byte(`{"nodes":[{"id":"A","label":"Alpha"},{"id":"B"}],"edges":[{"source":"A","target":"B"}]}`))
		}, signedIn(), DefaultBreakerConfig())

		data, err := client.GetGraph(context.Background(), "g1")

		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B"}, data.NodeIDs())
		assert.Len(t, data.Edges, 1)
	})

	t.Run("null collections become empty", func(t *testing.T) {
		client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"nodes":null}`))
		}, signedIn(), DefaultBreakerConfig())

		data, err := client.GetGraph(context.Background(), "g1")

		require.NoError(t, err)
		assert.NotNil(t, data.Nodes)
		assert.NotNil(t, data.Edges)
	})

	t.Run("id is path escaped", func(t *testing.T) {
		client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/graphs/a%2Fb%20c", r.URL.EscapedPath())
			writeJSON(w, http.StatusOK, aggregates.EmptyGraphData())
		}, signedIn(), DefaultBreakerConfig())

		_, err := client.GetGraph(context.Background(), "a/b c")
		assert.NoError(t, err)
	})

	t.Run("malformed body fails without partial data", func(t *testing.T) {
		client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"nodes":[{"id":`))
		}, signedIn(), DefaultBreakerConfig())

		data, err := client.GetGraph(context.Background(), "g1")

		assert.True(t, apperrors.IsRequestFailed(err))
		assert.Nil(t, data.Nodes)
	})
}

func TestClient_NonSuccessStatus(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		message string
	}{
		{name: "not found", status: http.StatusNotFound, message: "Error: Not Found"},
		{name: "unauthorized", status: http.StatusUnauthorized, message: "Error: Unauthorized"},
		{name: "server error", status: http.StatusInternalServerError, message: "Error: Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, hits, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}, signedIn(), DefaultBreakerConfig())

			_, err := client.GetGraph(context.Background(), "g1")

			require.Error(t, err)
			assert.True(t, apperrors.IsRequestFailed(err))
			assert.Equal(t, tt.message, apperrors.UserMessage(err))
			assert.Equal(t, int32(1), atomic.LoadInt32(hits), "no retries")
		})
	}
}

func TestClient_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL
	server.Close()

	client := NewClient(Config{BaseURL: baseURL}, signedIn(), observability.NewCollector("test"), zap.NewNop())

	_, err := client.ListThreads(context.Background())

	require.Error(t, err)
	assert.True(t, apperrors.IsRequestFailed(err))
	assert.Equal(t, "Error: request failed", apperrors.UserMessage(err))
}

func TestClient_CreateGraph(t *testing.T) {
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/graphs", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body commands.CreateGraphCommand
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Ideas", body.Name)

		writeJSON(w, http.StatusCreated, map[string]string{"id": "g9", "name": body.Name})
	}, signedIn(), DefaultBreakerConfig())

	thread, err := client.CreateGraph(context.Background(), "Ideas")

	require.NoError(t, err)
	assert.Equal(t, "g9", thread.ID)
	assert.Equal(t, "Ideas", thread.Name)
}

func TestClient_UpdateGraph(t *testing.T) {
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/graphs/update", r.URL.Path)

		var raw map[string]json.RawMessage
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		assert.JSONEq(t, `"Ideas"`, string(raw["graphName"]))
		assert.JSONEq(t, `[{"id":"A"}]`, string(raw["nodes"]))
		assert.JSONEq(t, `[]`, string(raw["edges"]))
		w.WriteHeader(http.StatusNoContent)
	}, signedIn(), DefaultBreakerConfig())

	err := client.UpdateGraph(context.Background(), "Ideas", aggregates.GraphData{
		Nodes: []aggregates.GraphNode{{ID: "A"}},
	})

	assert.NoError(t, err)
}

func TestClient_ProcessText(t *testing.T) {
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/process-text", r.URL.Path)

		var body commands.ProcessTextCommand
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Ideas", body.GraphName)
		assert.Equal(t, "A -> B", body.Text)

		writeJSON(w, http.StatusOK, aggregates.GraphData{
			Nodes: []aggregates.GraphNode{{ID: "A"}, {ID: "B"}},
			Edges: []aggregates.GraphEdge{{Source: "A", Target: "B"}},
		})
	}, signedIn(), DefaultBreakerConfig())

	data, err := client.ProcessText(context.Background(), "Ideas", "A -> B")

	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, data.NodeIDs())
}

func TestClient_CircuitBreaker(t *testing.T) {
	breaker := BreakerConfig{
		Name:             "test",
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		FailureThreshold: 0.5,
		MinRequests:      2,
	}

	t.Run("client errors do not trip", func(t *testing.T) {
		client, hits, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}, signedIn(), breaker)

		for i := 0; i < 5; i++ {
			_, err := client.GetGraph(context.Background(), "missing")
			assert.Equal(t, "Error: Not Found", apperrors.UserMessage(err))
		}
		assert.Equal(t, int32(5), atomic.LoadInt32(hits))
	})

	t.Run("server errors open the breaker", func(t *testing.T) {
		client, hits, metrics := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}, signedIn(), breaker)

		for i := 0; i < 2; i++ {
			_, _ = client.GetGraph(context.Background(), "g1")
		}
		_, err := client.GetGraph(context.Background(), "g1")

		require.Error(t, err)
		assert.True(t, apperrors.IsRequestFailed(err))
		assert.Equal(t, "Error: Service Unavailable", apperrors.UserMessage(err))
		assert.Equal(t, int32(2), atomic.LoadInt32(hits), "open breaker rejects without a request")
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.BreakerOpen))
	})
}

func TestClient_ContextCancelled(t *testing.T) {
	release := make(chan struct{})
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, signedIn(), DefaultBreakerConfig())
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GetGraph(ctx, "g1")

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
