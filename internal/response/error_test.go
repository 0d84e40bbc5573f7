package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/GregMSThompson/envelope-ledger/internal/errs"
	"github.com/GregMSThompson/envelope-ledger/pkg/logger"
)

func TestHandleErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", errs.NewNotFoundError("transaction not found"), http.StatusNotFound, "not_found"},
		{"validation", errs.NewValidationError("bad"), http.StatusBadRequest, "invalid_input"},
		{"validation code", errs.NewValidationErrorWithDetails(errs.CodeEnvelopeWouldGoNegative, "neg", nil), http.StatusBadRequest, "envelope_would_go_negative"},
		{"conflict", errs.NewConflictError(errs.CodeAlreadyFullyAllocated, "full", nil), http.StatusConflict, "already_fully_allocated"},
		{"wrapped conflict", fmt.Errorf("allocate: %w", errs.NewConflictError(errs.CodeMustAllocateOldestFirst, "older", nil)), http.StatusConflict, "must_allocate_oldest_first"},
		{"database", errs.NewDatabaseError("read", "failed", errors.New("x")), http.StatusInternalServerError, "internal_error"},
		{"transient external", errs.NewExternalServiceError("plaid", "down", true, nil), http.StatusServiceUnavailable, "service_unavailable"},
		{"permanent external", errs.NewExternalServiceError("plaid", "login", false, nil), http.StatusBadGateway, "service_unavailable"},
		{"encryption", errs.NewEncryptionError("kms", errors.New("x")), http.StatusInternalServerError, "internal_error"},
		{"empty body", io.EOF, http.StatusBadRequest, "invalid_input"},
		{"truncated body", io.ErrUnexpectedEOF, http.StatusBadRequest, "invalid_input"},
		{"wrapped truncated body", fmt.Errorf("decode: %w", io.ErrUnexpectedEOF), http.StatusBadRequest, "invalid_input"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	h := New(slog.New(logger.NewTestHandler(slog.LevelError)))
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			h.HandleError(rr, req, tc.err)

			if rr.Code != tc.status {
				t.Fatalf("status = %d, want %d", rr.Code, tc.status)
			}
			var body ErrorResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid body: %v", err)
			}
			if body.Code != tc.code {
				t.Fatalf("code = %q, want %q", body.Code, tc.code)
			}
		})
	}
}

func TestHandleErrorIncludesDetails(t *testing.T) {
	h := New(slog.New(logger.NewTestHandler(slog.LevelError)))
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)

	h.HandleError(rr, req, errs.NewConflictError(errs.CodeMustAllocateOldestFirst, "older transactions must be allocated first",
		map[string]any{"oldestTransactionId": "t1"}))

	var body ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if body.Details["oldestTransactionId"] != "t1" {
		t.Fatalf("details = %v", body.Details)
	}
}
