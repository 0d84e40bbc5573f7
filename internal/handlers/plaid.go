package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GregMSThompson/envelope-ledger/internal/dto"
	"github.com/GregMSThompson/envelope-ledger/internal/middleware"
	"github.com/GregMSThompson/envelope-ledger/internal/models"
	"github.com/GregMSThompson/envelope-ledger/internal/response"
	"github.com/GregMSThompson/envelope-ledger/pkg/helpers"
)

type plaidService interface {
	CreateLinkToken(ctx context.Context, uid string) (string, error)
	LinkBank(ctx context.Context, uid, publicToken, institutionName string) (*models.Bank, error)
	SyncAccounts(ctx context.Context, uid, bankID string) ([]*models.Account, error)
	SyncTransactions(ctx context.Context, uid, bankID string, opts dto.SyncOptions) (dto.SyncTransactionsResult, error)
	SyncAll(ctx context.Context, uid string, opts dto.SyncOptions) (dto.SyncAllResult, error)
}

type bankService interface {
	ListBanks(ctx context.Context, uid string) ([]*models.Bank, error)
	DeleteBank(ctx context.Context, uid, bankID string) error
	ListAccounts(ctx context.Context, uid string) ([]*models.Account, error)
	ListTransactions(ctx context.Context, uid string, q dto.TransactionQuery) ([]*models.Transaction, error)
	OldestUnallocated(ctx context.Context, uid string) (*models.Transaction, error)
}

type plaidHandlers struct {
	ResponseHandler response.ResponseHandler
	PlaidSvc        plaidService
	BankSvc         bankService
	SyncDefaults    dto.SyncOptions
}

func NewPlaidHandlers(deps *Deps) *plaidHandlers {
	return &plaidHandlers{
		ResponseHandler: deps.ResponseHandler,
		PlaidSvc:        deps.PlaidSvc,
		BankSvc:         deps.BankSvc,
		SyncDefaults:    deps.SyncDefaults,
	}
}

func (h *plaidHandlers) PlaidRoutes(r chi.Router) {
	r.Post("/plaid/link-token", h.CreateLinkToken)
	r.Route("/banks", func(r chi.Router) {
		r.Post("/", h.LinkBank)
		r.Get("/", h.ListBanks)
		r.Delete("/{bankId}", h.DeleteBank)
		r.Post("/{bankId}/sync", h.SyncBank)
	})
	r.Post("/transactions/sync", h.SyncTransactions)
}

func (h *plaidHandlers) CreateLinkToken(w http.ResponseWriter, r *http.Request) {
	uid := middleware.UID(r.Context())

	linkToken, err := h.PlaidSvc.CreateLinkToken(r.Context(), uid)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, map[string]string{"linkToken": linkToken})
}

func (h *plaidHandlers) LinkBank(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PublicToken     string `json:"publicToken"`
		InstitutionName string `json:"institutionName,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	uid := middleware.UID(r.Context())
	bank, err := h.PlaidSvc.LinkBank(r.Context(), uid, body.PublicToken, body.InstitutionName)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusCreated, bank)
}

func (h *plaidHandlers) ListBanks(w http.ResponseWriter, r *http.Request) {
	uid := middleware.UID(r.Context())

	banks, err := h.BankSvc.ListBanks(r.Context(), uid)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, banks)
}

func (h *plaidHandlers) DeleteBank(w http.ResponseWriter, r *http.Request) {
	uid := middleware.UID(r.Context())
	bankID := chi.URLParam(r, "bankId")

	if err := h.BankSvc.DeleteBank(r.Context(), uid, bankID); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, nil)
}

// SyncBank refreshes account snapshots first so newly discovered accounts are
// known before transactions are filtered.
func (h *plaidHandlers) SyncBank(w http.ResponseWriter, r *http.Request) {
	opts, err := h.decodeSyncOptions(r)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	uid := middleware.UID(r.Context())
	bankID := chi.URLParam(r, "bankId")

	accounts, err := h.PlaidSvc.SyncAccounts(r.Context(), uid, bankID)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	result, err := h.PlaidSvc.SyncTransactions(r.Context(), uid, bankID, opts)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, dto.BankSyncOutcome{
		BankID:       bankID,
		Accounts:     len(accounts),
		Transactions: result,
	})
}

func (h *plaidHandlers) SyncTransactions(w http.ResponseWriter, r *http.Request) {
	opts, err := h.decodeSyncOptions(r)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	uid := middleware.UID(r.Context())
	result, err := h.PlaidSvc.SyncAll(r.Context(), uid, opts)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, result)
}

// decodeSyncOptions overlays an optional request body on the configured defaults.
func (h *plaidHandlers) decodeSyncOptions(r *http.Request) (dto.SyncOptions, error) {
	var body struct {
		DaysRequested  int   `json:"daysRequested,omitempty"`
		IncludePending *bool `json:"includePending,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) { // allow empty body
		return dto.SyncOptions{}, err
	}

	opts := h.SyncDefaults
	if body.DaysRequested > 0 {
		opts.DaysRequested = body.DaysRequested
	}
	opts.IncludePending = helpers.ValueOr(body.IncludePending, opts.IncludePending)
	return opts, nil
}
