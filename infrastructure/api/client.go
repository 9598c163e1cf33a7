package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"thoughtgraph/application/commands"
	"thoughtgraph/application/ports"
	"thoughtgraph/domain/core/aggregates"
	"thoughtgraph/domain/core/entities"
	apperrors "thoughtgraph/pkg/errors"
	"thoughtgraph/pkg/observability"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	// DefaultTimeout bounds a single request including body decoding
	DefaultTimeout = 30 * time.Second

	// HeaderRequestID carries the per-request correlation id
	HeaderRequestID = "X-Request-ID"

	messageRequestFailed = "Error: request failed"
	messageBadResponse   = "Error: invalid response"
	messageUnavailable   = "Error: Service Unavailable"
)

// Operation names used for metrics, spans and logs
const (
	OpListThreads = "list_threads"
	OpGetGraph    = "get_graph"
	OpCreateGraph = "create_graph"
	OpUpdateGraph = "update_graph"
	OpProcessText = "process_text"
)

// BreakerConfig holds configuration for the client circuit breaker
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig returns a default configuration for the circuit breaker
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "graph-service",
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// Config configures a Client
type Config struct {
	BaseURL string
	Timeout time.Duration
	Breaker BreakerConfig
}

// Client talks to the backend graph service.
//
// Every call asks the credential source for a fresh token. When there is
// none the call fails with an UNAUTHENTICATED error before any network
// traffic. Non-2xx responses become REQUEST_FAILED errors whose message is
// derived from the status text. Calls are never retried.
//
// Client is safe for concurrent use.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	credentials ports.CredentialSource
	breaker     *gobreaker.CircuitBreaker
	metrics     *observability.Collector
	tracer      *observability.Tracer
	logger      *zap.Logger
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTracer replaces the default tracer
func WithTracer(t *observability.Tracer) Option {
	return func(c *Client) {
		c.tracer = t
	}
}

var _ ports.GraphService = (*Client)(nil)

// NewClient creates a graph service client
func NewClient(cfg Config, credentials ports.CredentialSource, metrics *observability.Collector, logger *zap.Logger, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Breaker.Name == "" {
		cfg.Breaker = DefaultBreakerConfig()
	}
	if metrics == nil {
		metrics = observability.NewCollector("thoughtgraph")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		credentials: credentials,
		metrics:     metrics,
		tracer:      observability.NewTracer("graph-client"),
		logger:      logger,
	}
	c.breaker = newBreaker(cfg.Breaker, metrics, logger)

	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newBreaker(cfg BreakerConfig, metrics *observability.Collector, logger *zap.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			metrics.SetBreakerOpen(to == gobreaker.StateOpen)
			logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
		IsSuccessful: countsAsSuccess,
	})
}

// countsAsSuccess keeps client errors and cancellations from tripping the
// breaker; only 5xx and transport failures count.
func countsAsSuccess(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	if appErr := apperrors.GetAppError(err); appErr != nil && appErr.Cause == nil {
		return appErr.HTTPStatus < http.StatusInternalServerError
	}
	return false
}

// ListThreads returns the user's graphs
func (c *Client) ListThreads(ctx context.Context) ([]entities.Thread, error) {
	threads := []entities.Thread{}
	if err := c.do(ctx, OpListThreads, http.MethodGet, "/api/graphs/list", nil, &threads); err != nil {
		return nil, err
	}
	if threads == nil {
		threads = []entities.Thread{}
	}
	return threads, nil
}

// GetGraph returns the snapshot of one graph
func (c *Client) GetGraph(ctx context.Context, graphID string) (aggregates.GraphData, error) {
	var data aggregates.GraphData
	path := "/api/graphs/" + url.PathEscape(graphID)
	if err := c.do(ctx, OpGetGraph, http.MethodGet, path, nil, &data); err != nil {
		return aggregates.GraphData{}, err
	}
	return data.Normalize(), nil
}

// CreateGraph creates a graph and returns its thread
func (c *Client) CreateGraph(ctx context.Context, name string) (entities.Thread, error) {
	var thread entities.Thread
	body := commands.CreateGraphCommand{Name: name}
	if err := c.do(ctx, OpCreateGraph, http.MethodPost, "/api/graphs", body, &thread); err != nil {
		return entities.Thread{}, err
	}
	return thread, nil
}

// UpdateGraph replaces the stored snapshot of a graph
func (c *Client) UpdateGraph(ctx context.Context, graphName string, data aggregates.GraphData) error {
	data = data.Normalize()
	body := commands.UpdateGraphCommand{GraphName: graphName, Nodes: data.Nodes, Edges: data.Edges}
	return c.do(ctx, OpUpdateGraph, http.MethodPost, "/api/graphs/update", body, nil)
}

// ProcessText submits text for extraction and returns the resulting graph
func (c *Client) ProcessText(ctx context.Context, graphName, text string) (aggregates.GraphData, error) {
	var data aggregates.GraphData
	body := commands.ProcessTextCommand{GraphName: graphName, Text: text}
	if err := c.do(ctx, OpProcessText, http.MethodPost, "/api/process-text", body, &data); err != nil {
		return aggregates.GraphData{}, err
	}
	return data.Normalize(), nil
}

// do performs one authenticated call. out may be nil when the response
// body is ignored.
func (c *Client) do(ctx context.Context, op, method, path string, body, out interface{}) error {
	start := time.Now()
	requestID := uuid.New().String()

	ctx, span := c.tracer.StartSpan(ctx, op,
		attribute.String("http.method", method),
		attribute.String("http.route", path),
		attribute.String("request.id", requestID),
	)
	defer span.End()

	token, err := c.credentials.Token(ctx, true)
	if err != nil || token == "" {
		appErr := apperrors.NewUnauthenticatedError()
		if err != nil && !errors.Is(err, ports.ErrNoCurrentUser) {
			appErr = appErr.WithCause(err)
		}
		observability.RecordError(span, appErr)
		c.metrics.ObserveClientCall(op, "unauthenticated", time.Since(start))
		c.logger.Debug("No credential for graph service call", zap.String("operation", op))
		return appErr
	}

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return apperrors.NewInternalError("failed to encode request").WithCause(err)
		}
	}

	status := 0
	_, err = c.breaker.Execute(func() (interface{}, error) {
		code, execErr := c.execute(ctx, method, path, token, requestID, payload, out)
		status = code
		return nil, execErr
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = apperrors.NewTransportError(messageUnavailable, err)
	}

	statusLabel := strconv.Itoa(status)
	if status == 0 {
		statusLabel = "error"
	}
	c.metrics.ObserveClientCall(op, statusLabel, time.Since(start))
	span.SetAttributes(attribute.Int("http.status_code", status))

	if err != nil {
		observability.RecordError(span, err)
		c.logger.Warn("Graph service call failed",
			zap.String("operation", op),
			zap.String("request_id", requestID),
			zap.Int("status", status),
			zap.Error(err))
		return err
	}

	c.logger.Debug("Graph service call completed",
		zap.String("operation", op),
		zap.String("request_id", requestID),
		zap.Duration("duration", time.Since(start)))
	return nil
}

// execute sends the request and decodes a 2xx body into out. It returns
// the response status, 0 when no response arrived.
func (c *Client) execute(ctx context.Context, method, path, token, requestID string, payload []byte, out interface{}) (int, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, apperrors.NewTransportError(messageRequestFailed, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderRequestID, requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, apperrors.NewTransportError(messageRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, apperrors.NewRequestFailedError(resp.StatusCode)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, apperrors.NewTransportError(messageBadResponse, fmt.Errorf("decode response: %w", err))
	}
	return resp.StatusCode, nil
}
