package services

import (
	"context"
	"errors"

	"github.com/GregMSThompson/envelope-ledger/internal/dto"
	"github.com/GregMSThompson/envelope-ledger/internal/errs"
	"github.com/GregMSThompson/envelope-ledger/internal/models"
	"github.com/GregMSThompson/envelope-ledger/pkg/logger"
)

type bankBSStore interface {
	List(ctx context.Context, uid string) ([]*models.Bank, error)
	Delete(ctx context.Context, uid, bankID string) error
}

type accountBSStore interface {
	List(ctx context.Context, uid string) ([]*models.Account, error)
	DeleteByBank(ctx context.Context, uid, bankID string) error
}

type transactionBSStore interface {
	List(ctx context.Context, uid string, q dto.TransactionQuery) ([]*models.Transaction, error)
	OldestUnallocated(ctx context.Context, uid string) (*models.Transaction, error)
	DeleteByBank(ctx context.Context, uid, bankID string) error
}

type itemRemover interface {
	RemoveItem(ctx context.Context, accessToken string) error
}

type bankService struct {
	banks    bankBSStore
	accounts accountBSStore
	txs      transactionBSStore
	creds    credentialStore
	plaid    itemRemover
}

func NewBankService(banks bankBSStore, accounts accountBSStore, txs transactionBSStore, creds credentialStore, plaid itemRemover) *bankService {
	return &bankService{
		banks:    banks,
		accounts: accounts,
		txs:      txs,
		creds:    creds,
		plaid:    plaid,
	}
}

func (s *bankService) ListBanks(ctx context.Context, uid string) ([]*models.Bank, error) {
	return s.banks.List(ctx, uid)
}

// DeleteBank revokes the item at Plaid and removes everything stored under it.
// Revocation failures are logged; local cleanup still runs.
func (s *bankService) DeleteBank(ctx context.Context, uid, bankID string) error {
	log := logger.FromContext(ctx)

	token, err := s.creds.GetAccessToken(ctx, uid, bankID)
	switch {
	case err == nil:
		if err := s.plaid.RemoveItem(ctx, token); err != nil {
			log.Warn("plaid item removal failed", "bank_id", bankID, "error", err)
		}
	case isNotFound(err):
		log.Warn("no access token for bank", "bank_id", bankID)
	default:
		return err
	}

	// TODO: Make deletions atomic or add retries to avoid partial cleanup on failure.
	if err := s.txs.DeleteByBank(ctx, uid, bankID); err != nil {
		return err
	}
	if err := s.accounts.DeleteByBank(ctx, uid, bankID); err != nil {
		return err
	}
	if err := s.creds.DeleteAccessToken(ctx, uid, bankID); err != nil {
		return err
	}
	if err := s.banks.Delete(ctx, uid, bankID); err != nil {
		return err
	}

	log.Info("bank deleted", "bank_id", bankID)
	return nil
}

func (s *bankService) ListAccounts(ctx context.Context, uid string) ([]*models.Account, error) {
	return s.accounts.List(ctx, uid)
}

const (
	defaultTransactionLimit = 100
	maxTransactionLimit     = 500
)

func (s *bankService) ListTransactions(ctx context.Context, uid string, q dto.TransactionQuery) ([]*models.Transaction, error) {
	if q.Limit <= 0 {
		q.Limit = defaultTransactionLimit
	}
	if q.Limit > maxTransactionLimit {
		q.Limit = maxTransactionLimit
	}
	return s.txs.List(ctx, uid, q)
}

// OldestUnallocated returns the transaction the oldest-first rule points at,
// or NotFound when everything is allocated.
func (s *bankService) OldestUnallocated(ctx context.Context, uid string) (*models.Transaction, error) {
	t, err := s.txs.OldestUnallocated(ctx, uid)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, errs.NewNotFoundError("no unallocated transactions")
	}
	return t, nil
}

func isNotFound(err error) bool {
	var nf *errs.NotFoundError
	return errors.As(err, &nf)
}
