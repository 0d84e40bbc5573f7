package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/GregMSThompson/envelope-ledger/internal/dto"
	"github.com/GregMSThompson/envelope-ledger/internal/errs"
	"github.com/GregMSThompson/envelope-ledger/internal/middleware"
	"github.com/GregMSThompson/envelope-ledger/internal/response"
	"github.com/GregMSThompson/envelope-ledger/pkg/helpers"
)

type allocationService interface {
	Allocate(ctx context.Context, uid, transactionID string, splits []dto.AllocationSplit) (dto.AllocationResult, error)
}

type trackingService interface {
	SetTracking(ctx context.Context, uid, accountID string, enabled bool) (dto.TrackingResult, error)
	ResetBalancingTransactions(ctx context.Context, uid string) (dto.ResetBalancingResult, error)
}

type ledgerHandlers struct {
	ResponseHandler response.ResponseHandler
	BankSvc         bankService
	AllocationSvc   allocationService
	TrackingSvc     trackingService
}

func NewLedgerHandlers(deps *Deps) *ledgerHandlers {
	return &ledgerHandlers{
		ResponseHandler: deps.ResponseHandler,
		BankSvc:         deps.BankSvc,
		AllocationSvc:   deps.AllocationSvc,
		TrackingSvc:     deps.TrackingSvc,
	}
}

func (h *ledgerHandlers) LedgerRoutes(r chi.Router) {
	r.Get("/accounts", h.ListAccounts)
	r.Put("/accounts/{accountId}/tracking", h.SetTracking)
	r.Get("/transactions", h.ListTransactions)
	r.Get("/transactions/oldest", h.OldestUnallocated)
	r.Post("/transactions/balancing/reset", h.ResetBalancing)
	r.Post("/transactions/{transactionId}/allocate", h.Allocate)
}

func (h *ledgerHandlers) ListAccounts(w http.ResponseWriter, r *http.Request) {
	uid := middleware.UID(r.Context())

	accounts, err := h.BankSvc.ListAccounts(r.Context(), uid)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, accounts)
}

func (h *ledgerHandlers) SetTracking(w http.ResponseWriter, r *http.Request) {
	var body dto.SetTrackingRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	if body.Enabled == nil {
		h.ResponseHandler.HandleError(w, r, errs.NewValidationError("enabled is required"))
		return
	}

	uid := middleware.UID(r.Context())
	accountID := chi.URLParam(r, "accountId")

	result, err := h.TrackingSvc.SetTracking(r.Context(), uid, accountID, *body.Enabled)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, result)
}

func (h *ledgerHandlers) ListTransactions(w http.ResponseWriter, r *http.Request) {
	q, err := parseTransactionQuery(r)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	uid := middleware.UID(r.Context())
	txs, err := h.BankSvc.ListTransactions(r.Context(), uid, q)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, txs)
}

func (h *ledgerHandlers) OldestUnallocated(w http.ResponseWriter, r *http.Request) {
	uid := middleware.UID(r.Context())

	t, err := h.BankSvc.OldestUnallocated(r.Context(), uid)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, t)
}

func (h *ledgerHandlers) Allocate(w http.ResponseWriter, r *http.Request) {
	var body dto.AllocateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	uid := middleware.UID(r.Context())
	transactionID := chi.URLParam(r, "transactionId")

	result, err := h.AllocationSvc.Allocate(r.Context(), uid, transactionID, body.Splits)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, result)
}

func (h *ledgerHandlers) ResetBalancing(w http.ResponseWriter, r *http.Request) {
	uid := middleware.UID(r.Context())

	result, err := h.TrackingSvc.ResetBalancingTransactions(r.Context(), uid)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, result)
}

func parseTransactionQuery(r *http.Request) (dto.TransactionQuery, error) {
	values := r.URL.Query()

	var q dto.TransactionQuery
	if v := values.Get("accountId"); v != "" {
		q.AccountID = helpers.Ptr(v)
	}
	if v := values.Get("bankId"); v != "" {
		q.BankID = helpers.Ptr(v)
	}
	if v := values.Get("unallocatedOnly"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return q, errs.NewValidationError("unallocatedOnly must be a boolean")
		}
		q.UnallocatedOnly = b
	}
	if v := values.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return q, errs.NewValidationError("limit must be a non-negative integer")
		}
		q.Limit = n
	}
	return q, nil
}
