package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/GregMSThompson/envelope-ledger/internal/errs"
	"github.com/GregMSThompson/envelope-ledger/pkg/logger"
)

type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (h *responseHandler) WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Code:    code,
		Message: message,
		Details: details,
	}); err != nil {
		// Use context logger if encoding fails
		log := logger.FromContext(r.Context())
		log.Error("failed to encode error response", "error", err, "status", status, "code", code)
	}
}

func (h *responseHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())

	var (
		notFound   *errs.NotFoundError
		exists     *errs.AlreadyExistsError
		validation *errs.ValidationError
		conflict   *errs.ConflictError
		database   *errs.DatabaseError
		external   *errs.ExternalServiceError
		encryption *errs.EncryptionError
		syntax     *json.SyntaxError
		decode     *json.UnmarshalTypeError
	)

	switch {
	case errors.As(err, &notFound):
		log.Warn("resource not found", "error", notFound.Message)
		h.WriteError(w, r, http.StatusNotFound, "not_found", notFound.Message, nil)

	case errors.As(err, &exists):
		log.Warn("resource already exists", "error", exists.Message)
		h.WriteError(w, r, http.StatusConflict, "already_exists", exists.Message, nil)

	case errors.As(err, &validation):
		log.Warn("validation failed", "error", validation.Message, "code", validation.Code)
		code := validation.Code
		if code == "" {
			code = errs.CodeInvalidInput
		}
		h.WriteError(w, r, http.StatusBadRequest, code, validation.Message, validation.Details)

	case errors.As(err, &conflict):
		log.Warn("ledger conflict", "error", conflict.Message, "code", conflict.Code)
		h.WriteError(w, r, http.StatusConflict, conflict.Code, conflict.Message, conflict.Details)

	case errors.As(err, &syntax), errors.As(err, &decode),
		errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		log.Warn("malformed request body", "error", err)
		h.WriteError(w, r, http.StatusBadRequest, errs.CodeInvalidInput, "malformed request body", nil)

	case errors.As(err, &database):
		log.Error("database error",
			"operation", database.Operation,
			"error", database.Message,
			"cause", database.Err)
		h.WriteError(w, r, http.StatusInternalServerError, "internal_error",
			"An error occurred", nil)

	case errors.As(err, &external):
		level := slog.LevelError
		if external.Transient {
			level = slog.LevelWarn
		}
		log.Log(r.Context(), level, "external service error",
			"service", external.Service,
			"transient", external.Transient,
			"error", external.Message)

		status := http.StatusBadGateway
		if external.Transient {
			status = http.StatusServiceUnavailable
		}
		h.WriteError(w, r, status, "service_unavailable",
			"Service temporarily unavailable", nil)

	case errors.As(err, &encryption):
		log.Error("encryption error", "error", encryption.Message)
		h.WriteError(w, r, http.StatusInternalServerError, "internal_error",
			"An error occurred", nil)

	default:
		log.Error("unexpected error",
			"error", err,
			"type", fmt.Sprintf("%T", err))
		h.WriteError(w, r, http.StatusInternalServerError, "internal_error",
			"An unexpected error occurred", nil)
	}
}
