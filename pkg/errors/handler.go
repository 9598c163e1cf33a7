package errors

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// messageInternal is what clients see for errors that are not AppErrors
const messageInternal = "An internal error occurred"

// ErrorResponse is the JSON body of every error the stub backend sends
type ErrorResponse struct {
	Error     bool                   `json:"error"`
	Type      string                 `json:"type"`
	Message   string                 `json:"message"`
	Code      string                 `json:"code,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// ErrorHandler writes errors as JSON responses and logs them by severity
type ErrorHandler struct {
	logger *zap.Logger
	debug  bool
}

// NewErrorHandler creates a new error handler. In debug mode responses
// carry the raw message of unexpected errors and AppError stack traces.
func NewErrorHandler(logger *zap.Logger, debug bool) *ErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorHandler{logger: logger, debug: debug}
}

// Handle writes err. AppErrors keep their status and message; anything
// else becomes a 500 whose detail stays in the log.
func (h *ErrorHandler) Handle(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}
	status, body := h.responseFor(r, err)
	h.log(r, err, status)
	h.write(w, status, body)
}

// HandleStatus writes a bare status with message, for failures that
// happen before a graph handler runs.
func (h *ErrorHandler) HandleStatus(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.logger.Debug("Request rejected",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.String("reason", message),
	)
	h.write(w, status, ErrorResponse{
		Error:     true,
		Type:      string(typeForStatus(status)),
		Message:   message,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

// NotFound answers requests that match no route
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.HandleStatus(w, r, http.StatusNotFound, "route not found")
}

// MethodNotAllowed answers requests whose route exists for other methods
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.HandleStatus(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

// Middleware turns a panic in next into a 500 response
func (h *ErrorHandler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				h.logger.Error("Handler panicked", zap.Any("panic", rec), zap.Stack("stack"))
				h.Handle(w, r, NewInternalError(fmt.Sprintf("panic: %v", rec)))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (h *ErrorHandler) responseFor(r *http.Request, err error) (int, ErrorResponse) {
	body := ErrorResponse{Error: true, RequestID: middleware.GetReqID(r.Context())}

	appErr := GetAppError(err)
	if appErr == nil {
		body.Type = string(ErrorTypeInternal)
		body.Message = messageInternal
		if h.debug {
			body.Message = err.Error()
		}
		return http.StatusInternalServerError, body
	}

	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	body.Type = string(appErr.Type)
	body.Message = appErr.Message
	body.Code = appErr.Code
	body.Details = appErr.Details
	if h.debug && appErr.StackTrace != "" {
		details := make(map[string]interface{}, len(body.Details)+1)
		for k, v := range body.Details {
			details[k] = v
		}
		details["stack_trace"] = appErr.StackTrace
		body.Details = details
	}
	return status, body
}

func (h *ErrorHandler) log(r *http.Request, err error, status int) {
	fields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.String("request_id", middleware.GetReqID(r.Context())),
	}

	message := "Unhandled error"
	if appErr := GetAppError(err); appErr != nil {
		message = appErr.Message
		fields = append(fields, zap.String("error_type", string(appErr.Type)))
		if appErr.Code != "" {
			fields = append(fields, zap.String("error_code", appErr.Code))
		}
		if appErr.Cause != nil {
			fields = append(fields, zap.Error(appErr.Cause))
		}
	} else {
		fields = append(fields, zap.Error(err))
	}

	switch {
	case status >= http.StatusInternalServerError:
		h.logger.Error(message, fields...)
	case status >= http.StatusBadRequest:
		h.logger.Warn(message, fields...)
	default:
		h.logger.Info(message, fields...)
	}
}

func (h *ErrorHandler) write(w http.ResponseWriter, status int, body ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("Failed to encode error response", zap.Error(err))
	}
}

func typeForStatus(status int) ErrorType {
	switch status {
	case http.StatusBadRequest:
		return ErrorTypeValidation
	case http.StatusUnauthorized:
		return ErrorTypeUnauthorized
	case http.StatusNotFound:
		return ErrorTypeNotFound
	case http.StatusConflict:
		return ErrorTypeConflict
	case http.StatusTooManyRequests:
		return ErrorTypeRateLimited
	default:
		return ErrorTypeInternal
	}
}
