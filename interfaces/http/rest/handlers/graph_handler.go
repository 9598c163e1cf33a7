package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"thoughtgraph/application/commands"
	"thoughtgraph/application/ports"
	"thoughtgraph/application/queries"
	"thoughtgraph/domain/core/aggregates"
	"thoughtgraph/domain/core/entities"
	domainservices "thoughtgraph/domain/services"
	"thoughtgraph/pkg/auth"
	apperrors "thoughtgraph/pkg/errors"
	"thoughtgraph/pkg/observability"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// maxBodyBytes bounds request bodies
const maxBodyBytes = 1 << 20

// GraphHandler serves the graph service endpoints of the stub backend
type GraphHandler struct {
	repo   ports.GraphRepository
	errors *apperrors.ErrorHandler
	tracer *observability.Tracer
	logger *zap.Logger
}

// NewGraphHandler creates a new graph handler
func NewGraphHandler(repo ports.GraphRepository, errorHandler *apperrors.ErrorHandler, logger *zap.Logger) *GraphHandler {
	return &GraphHandler{
		repo:   repo,
		errors: errorHandler,
		tracer: observability.NewTracer("graph-api"),
		logger: logger,
	}
}

// ListThreads handles GET /api/graphs/list
func (h *GraphHandler) ListThreads(w http.ResponseWriter, r *http.Request) {
	userCtx, ok := h.user(w, r)
	if !ok {
		return
	}

	query := queries.ListThreadsQuery{UserID: userCtx.UserID}
	if err := query.Validate(); err != nil {
		h.errors.Handle(w, r, apperrors.NewValidationError(err.Error()))
		return
	}

	var threads []entities.Thread
	err := h.traced(r, "list_threads", query.UserID, "", func(ctx context.Context) (err error) {
		threads, err = h.repo.ListThreads(ctx, query.UserID)
		return err
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, threads)
}

// GetGraph handles GET /api/graphs/{graphID}
func (h *GraphHandler) GetGraph(w http.ResponseWriter, r *http.Request) {
	userCtx, ok := h.user(w, r)
	if !ok {
		return
	}

	query := queries.GetGraphQuery{UserID: userCtx.UserID, GraphID: chi.URLParam(r, "graphID")}
	if err := query.Validate(); err != nil {
		h.errors.Handle(w, r, apperrors.NewValidationError(err.Error()))
		return
	}

	var data aggregates.GraphData
	err := h.traced(r, "get_graph", query.UserID, query.GraphID, func(ctx context.Context) (err error) {
		data, err = h.repo.GetGraph(ctx, query.UserID, query.GraphID)
		return err
	})
	if err != nil {
		h.logger.Debug("Failed to get graph",
			zap.String("graphID", query.GraphID),
			zap.String("userID", query.UserID),
			zap.Error(err),
		)
		h.errors.Handle(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, data)
}

// CreateGraph handles POST /api/graphs
func (h *GraphHandler) CreateGraph(w http.ResponseWriter, r *http.Request) {
	userCtx, ok := h.user(w, r)
	if !ok {
		return
	}

	var req commands.CreateGraphCommand
	if !h.decode(w, r, &req) {
		return
	}
	cmd, err := commands.NewCreateGraphCommand(req.Name)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	var thread entities.Thread
	err = h.traced(r, "create_graph", userCtx.UserID, cmd.Name, func(ctx context.Context) (err error) {
		thread, err = h.repo.CreateThread(ctx, userCtx.UserID, cmd.Name)
		return err
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	h.logger.Info("Graph created",
		zap.String("graphID", thread.ID),
		zap.String("userID", userCtx.UserID),
	)
	h.respondJSON(w, http.StatusCreated, thread)
}

// UpdateGraph handles POST /api/graphs/update
func (h *GraphHandler) UpdateGraph(w http.ResponseWriter, r *http.Request) {
	userCtx, ok := h.user(w, r)
	if !ok {
		return
	}

	var req commands.UpdateGraphCommand
	if !h.decode(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	err := h.traced(r, "update_graph", userCtx.UserID, req.GraphName, func(ctx context.Context) error {
		return h.repo.ReplaceGraph(ctx, userCtx.UserID, req.GraphName, req.GraphData())
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ProcessText handles POST /api/process-text. Arrows found in the text
// are merged into the named graph, which is returned whole.
func (h *GraphHandler) ProcessText(w http.ResponseWriter, r *http.Request) {
	userCtx, ok := h.user(w, r)
	if !ok {
		return
	}

	var req commands.ProcessTextCommand
	if !h.decode(w, r, &req) {
		return
	}
	cmd, err := commands.NewProcessTextCommand(req.GraphName, req.Text)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	extracted := domainservices.ParseArrowText(cmd.Text)
	var data aggregates.GraphData
	err = h.traced(r, "process_text", userCtx.UserID, cmd.GraphName, func(ctx context.Context) (err error) {
		data, err = h.repo.MergeGraph(ctx, userCtx.UserID, cmd.GraphName, extracted)
		return err
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	h.logger.Debug("Text processed",
		zap.String("graph", cmd.GraphName),
		zap.Int("extractedNodes", len(extracted.Nodes)),
		zap.Int("extractedEdges", len(extracted.Edges)),
	)
	h.respondJSON(w, http.StatusOK, data)
}

// Helper methods

// traced runs a repository call in a span tagged with the caller and the
// graph it targets; graph may be empty.
func (h *GraphHandler) traced(r *http.Request, op, userID, graph string, fn func(context.Context) error) error {
	return h.tracer.TraceFunction(r.Context(), op, func(ctx context.Context) error {
		h.tracer.AddAnnotation(ctx, "user.id", userID)
		if graph != "" {
			h.tracer.AddAnnotation(ctx, "graph", graph)
		}
		return fn(ctx)
	})
}

func (h *GraphHandler) user(w http.ResponseWriter, r *http.Request) (*auth.UserContext, bool) {
	userCtx, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errors.Handle(w, r, apperrors.NewUnauthorizedError("Unauthorized"))
		return nil, false
	}
	return userCtx, true
}

func (h *GraphHandler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(v); err != nil {
		message := "Invalid request body"
		if errors.Is(err, io.EOF) {
			message = "Request body is required"
		}
		h.errors.Handle(w, r, apperrors.NewValidationError(message).WithCause(err))
		return false
	}
	return true
}

func (h *GraphHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}
