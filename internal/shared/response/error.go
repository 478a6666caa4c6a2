package response

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"empires-server/internal/shared/errors"
)

// Envelope is the uniform result shape of every action and endpoint
type Envelope struct {
	Success bool    `json:"success"`
	Error   *Detail `json:"error,omitempty"`
	Data    any     `json:"data,omitempty"`
}

// Detail describes a rejected request
type Detail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Wrap builds an envelope from a result and its error
func Wrap(data any, err error) Envelope {
	if err != nil {
		return Envelope{
			Success: false,
			Error: &Detail{
				Type:    string(errors.GetType(err)),
				Message: errors.Message(err),
			},
		}
	}
	return Envelope{Success: true, Data: data}
}

// Error logs an error and sends a JSON error envelope to the client
// This should be the only place where request errors are logged
func Error(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	errorType := errors.GetType(err)
	statusCode := StatusCode(errorType)

	logError(logger, r, err, errorType, statusCode)

	write(w, statusCode, Wrap(nil, err))
}

// StatusCode maps error types to HTTP status codes
func StatusCode(errorType errors.ErrorType) int {
	switch errorType {
	case errors.ErrorTypeNotFound:
		return http.StatusNotFound
	case errors.ErrorTypeValidation:
		return http.StatusBadRequest
	case errors.ErrorTypePrecondition:
		return http.StatusUnprocessableEntity
	case errors.ErrorTypeConflict:
		return http.StatusConflict
	case errors.ErrorTypeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case errors.ErrorTypeExternal:
		return http.StatusServiceUnavailable
	case errors.ErrorTypeInternal:
		fallthrough
	default:
		return http.StatusInternalServerError
	}
}

// logError logs the error with appropriate level and context
func logError(logger *slog.Logger, r *http.Request, err error, errorType errors.ErrorType, statusCode int) {
	logCtx := logger.With(
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr,
		"error_type", errorType,
		"status_code", statusCode,
	)

	switch errorType {
	case errors.ErrorTypeNotFound:
		logCtx.Debug("Resource not found", "error", err)
	case errors.ErrorTypeValidation:
		logCtx.Debug("Validation error", "error", err)
	case errors.ErrorTypePrecondition:
		logCtx.Info("Action rejected", "error", err)
	case errors.ErrorTypeConflict:
		logCtx.Info("Conflict error", "error", err)
	case errors.ErrorTypeExternal:
		logCtx.Error("External service error", "error", err)
	case errors.ErrorTypeInternal:
		fallthrough
	default:
		logCtx.Error("Internal server error", "error", err)
	}
}

// Success sends a JSON success envelope to the client
func Success(w http.ResponseWriter, statusCode int, data any) {
	write(w, statusCode, Wrap(data, nil))
}

// JSON sends an already built envelope
func JSON(w http.ResponseWriter, env Envelope) {
	status := http.StatusOK
	if !env.Success && env.Error != nil {
		status = StatusCode(errors.ErrorType(env.Error.Type))
	}
	write(w, status, env)
}

func write(w http.ResponseWriter, statusCode int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	// If JSON encoding fails, there's not much we can do at this point
	// The status code has already been sent
	_ = json.NewEncoder(w).Encode(env)
}
