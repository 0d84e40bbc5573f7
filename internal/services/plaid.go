package services

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/GregMSThompson/envelope-ledger/internal/dto"
	"github.com/GregMSThompson/envelope-ledger/internal/errs"
	"github.com/GregMSThompson/envelope-ledger/internal/models"
	"github.com/GregMSThompson/envelope-ledger/pkg/logger"
)

// --- Dependencies (minimal interfaces scoped to this service) ---

type bankPSStore interface {
	Create(ctx context.Context, uid string, bank *models.Bank) error
	Get(ctx context.Context, uid, bankID string) (*models.Bank, error)
	List(ctx context.Context, uid string) ([]*models.Bank, error)
	Delete(ctx context.Context, uid, bankID string) error
	SetCursor(ctx context.Context, uid, bankID, cursor string) error
	RecordSyncError(ctx context.Context, uid, bankID, message string) error
}

type accountPSStore interface {
	Upsert(ctx context.Context, uid string, accounts []models.Account) ([]*models.Account, error)
	ListByBank(ctx context.Context, uid, bankID string) ([]*models.Account, error)
}

type transactionPSStore interface {
	UpsertReal(ctx context.Context, uid string, txs []models.Transaction) (inserted, updated int, err error)
	UpdateMutable(ctx context.Context, uid string, txs []models.Transaction) (updated, missing int, err error)
	DeleteUnallocated(ctx context.Context, uid string, transactionIDs []string) (deleted, kept int, err error)
}

// credentialStore resolves a bank connection to its Plaid access token.
type credentialStore interface {
	StoreAccessToken(ctx context.Context, uid, itemID, token string) error
	GetAccessToken(ctx context.Context, uid, itemID string) (string, error)
	DeleteAccessToken(ctx context.Context, uid, itemID string) error
}

// plaidClient is the Plaid SDK adapter surface used by this service.
type plaidClient interface {
	CreateLinkToken(ctx context.Context, uid string) (linkToken string, err error)
	ExchangePublicToken(ctx context.Context, publicToken string) (itemID string, accessToken string, err error)
	GetAccounts(ctx context.Context, accessToken string) ([]dto.PlaidAccount, error)
	SyncTransactionsPage(ctx context.Context, req dto.PlaidSyncRequest) (dto.PlaidSyncPage, error)
}

type plaidService struct {
	plaid       plaidClient
	banks       bankPSStore
	accounts    accountPSStore
	txs         transactionPSStore
	creds       credentialStore
	defaults    dto.SyncOptions
	concurrency int
	flight      singleflight.Group
	clockNow    func() time.Time
}

func NewPlaidService(plaid plaidClient, banks bankPSStore, accounts accountPSStore, txs transactionPSStore, creds credentialStore, defaults dto.SyncOptions, concurrency int) *plaidService {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &plaidService{
		plaid:       plaid,
		banks:       banks,
		accounts:    accounts,
		txs:         txs,
		creds:       creds,
		defaults:    defaults,
		concurrency: concurrency,
		clockNow:    time.Now,
	}
}

func (s *plaidService) CreateLinkToken(ctx context.Context, uid string) (string, error) {
	return s.plaid.CreateLinkToken(ctx, uid)
}

// LinkBank exchanges a Link public token, stores the access token and pulls
// the connection's accounts. An account refresh failure does not undo the link.
func (s *plaidService) LinkBank(ctx context.Context, uid, publicToken, institutionName string) (*models.Bank, error) {
	if publicToken == "" {
		return nil, errs.NewValidationError("publicToken is required")
	}
	log := logger.FromContext(ctx)

	itemID, accessToken, err := s.plaid.ExchangePublicToken(ctx, publicToken)
	if err != nil {
		return nil, err
	}

	now := s.clockNow()
	bank := &models.Bank{
		BankID:      itemID,
		Institution: institutionName,
		Status:      models.BankStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.banks.Create(ctx, uid, bank); err != nil {
		return nil, err
	}
	if err := s.creds.StoreAccessToken(ctx, uid, itemID, accessToken); err != nil {
		if delErr := s.banks.Delete(ctx, uid, itemID); delErr != nil {
			log.Error("failed to roll back bank after credential error", "bank_id", itemID, "error", delErr)
		}
		return nil, err
	}
	log.Info("bank linked", "bank_id", itemID, "institution", institutionName)

	if _, err := s.SyncAccounts(ctx, uid, itemID); err != nil {
		log.Warn("initial account sync failed", "bank_id", itemID, "error", err)
	}
	return bank, nil
}

// SyncAccounts upserts the provider's account snapshots for one connection.
// Tracking state and allocation totals are left to the tracking lifecycle.
func (s *plaidService) SyncAccounts(ctx context.Context, uid, bankID string) ([]*models.Account, error) {
	if _, err := s.banks.Get(ctx, uid, bankID); err != nil {
		return nil, err
	}
	token, err := s.creds.GetAccessToken(ctx, uid, bankID)
	if err != nil {
		return nil, err
	}

	snapshots, err := s.plaid.GetAccounts(ctx, token)
	if err != nil {
		s.recordFailure(ctx, uid, bankID, err)
		return nil, err
	}

	accounts := make([]models.Account, 0, len(snapshots))
	for _, a := range snapshots {
		accounts = append(accounts, models.Account{
			AccountID:      a.AccountID,
			BankID:         bankID,
			Name:           a.Name,
			OfficialName:   a.OfficialName,
			Mask:           a.Mask,
			Type:           a.Type,
			Subtype:        a.Subtype,
			Currency:       a.Currency,
			BalanceCurrent: toCents(a.Balance),
		})
	}
	stored, err := s.accounts.Upsert(ctx, uid, accounts)
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("accounts synced", "bank_id", bankID, "accounts", len(stored))
	return stored, nil
}

// SyncTransactions merges /transactions/sync pages for one connection. Calls
// for the same connection share one in-flight run.
func (s *plaidService) SyncTransactions(ctx context.Context, uid, bankID string, opts dto.SyncOptions) (dto.SyncTransactionsResult, error) {
	if opts.DaysRequested <= 0 {
		opts.DaysRequested = s.defaults.DaysRequested
	}
	v, err, shared := s.flight.Do(uid+"/"+bankID, func() (interface{}, error) {
		return s.syncTransactions(ctx, uid, bankID, opts)
	})
	if shared {
		logger.FromContext(ctx).Debug("joined in-flight transaction sync", "bank_id", bankID)
	}
	result, _ := v.(dto.SyncTransactionsResult)
	return result, err
}

func (s *plaidService) syncTransactions(ctx context.Context, uid, bankID string, opts dto.SyncOptions) (dto.SyncTransactionsResult, error) {
	result := dto.SyncTransactionsResult{BankID: bankID}
	log := logger.FromContext(ctx).With("bank_id", bankID)

	bank, err := s.banks.Get(ctx, uid, bankID)
	if err != nil {
		return result, err
	}
	token, err := s.creds.GetAccessToken(ctx, uid, bankID)
	if err != nil {
		return result, err
	}
	accountList, err := s.accounts.ListByBank(ctx, uid, bankID)
	if err != nil {
		return result, err
	}
	accounts := make(map[string]*models.Account, len(accountList))
	for _, a := range accountList {
		accounts[a.AccountID] = a
	}

	cursor := bank.Cursor
	log.Info("transaction sync started", "initial", cursor == "")

	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		page, err := s.plaid.SyncTransactionsPage(ctx, dto.PlaidSyncRequest{
			AccessToken:   token,
			Cursor:        cursor,
			DaysRequested: opts.DaysRequested,
		})
		if err != nil {
			log.Warn("bank sync failed", "pages_applied", result.Pages, "error", err)
			s.recordFailure(ctx, uid, bankID, err)
			return result, err
		}

		if err := s.applyPage(ctx, uid, bankID, page, accounts, opts, &result); err != nil {
			return result, err
		}

		// The cursor only moves once the whole page is stored.
		if page.NextCursor != "" {
			if err := s.banks.SetCursor(ctx, uid, bankID, page.NextCursor); err != nil {
				return result, err
			}
			cursor = page.NextCursor
		}
		result.Pages++
		result.Cursor = cursor
		log.Info("transaction sync page applied",
			"page", result.Pages,
			"added", len(page.Added),
			"modified", len(page.Modified),
			"removed", len(page.Removed),
			"has_more", page.HasMore)

		if !page.HasMore {
			break
		}
	}

	log.Info("transaction sync completed",
		"pages", result.Pages,
		"added", result.Added,
		"modified", result.Modified,
		"removed", result.Removed,
		"skipped_untracked", result.SkippedUntracked,
		"skipped_pending", result.SkippedPending,
		"skipped_before_tracked_on", result.SkippedBeforeTrackedOn,
		"skipped_removed_allocated", result.SkippedRemovedAllocated)
	return result, nil
}

func (s *plaidService) applyPage(ctx context.Context, uid, bankID string, page dto.PlaidSyncPage, accounts map[string]*models.Account, opts dto.SyncOptions, result *dto.SyncTransactionsResult) error {
	now := s.clockNow()

	admitted := make([]models.Transaction, 0, len(page.Added))
	for _, pt := range page.Added {
		account := accounts[pt.AccountID]
		if account == nil || !account.Tracking {
			result.SkippedUntracked++
			continue
		}
		if pt.Pending && !opts.IncludePending {
			result.SkippedPending++
			continue
		}
		t := toTransaction(pt, bankID, now)
		if account.TrackedOn != nil && t.PostedAt.Before(*account.TrackedOn) {
			result.SkippedBeforeTrackedOn++
			continue
		}
		admitted = append(admitted, t)
	}
	if len(admitted) > 0 {
		inserted, updated, err := s.txs.UpsertReal(ctx, uid, admitted)
		if err != nil {
			return err
		}
		result.Added += inserted + updated
	}

	if len(page.Modified) > 0 {
		modified := make([]models.Transaction, 0, len(page.Modified))
		for _, pt := range page.Modified {
			modified = append(modified, toTransaction(pt, bankID, now))
		}
		updated, missing, err := s.txs.UpdateMutable(ctx, uid, modified)
		if err != nil {
			return err
		}
		result.Modified += updated
		result.SkippedModifiedMissing += missing
	}

	if len(page.Removed) > 0 {
		deleted, kept, err := s.txs.DeleteUnallocated(ctx, uid, page.Removed)
		if err != nil {
			return err
		}
		result.Removed += deleted
		result.SkippedRemovedAllocated += kept
	}
	return nil
}

// SyncAll refreshes accounts then transactions for every connection of uid.
// Provider failures are reported per bank; storage failures abort the run.
func (s *plaidService) SyncAll(ctx context.Context, uid string, opts dto.SyncOptions) (dto.SyncAllResult, error) {
	banks, err := s.banks.List(ctx, uid)
	if err != nil {
		return dto.SyncAllResult{}, err
	}

	outcomes := make([]dto.BankSyncOutcome, len(banks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, b := range banks {
		g.Go(func() error {
			out := dto.BankSyncOutcome{BankID: b.BankID}
			accounts, err := s.SyncAccounts(gctx, uid, b.BankID)
			if err == nil {
				out.Accounts = len(accounts)
				out.Transactions, err = s.SyncTransactions(gctx, uid, b.BankID, opts)
			}
			if err != nil {
				if !isPerBankFailure(err) {
					return err
				}
				out.Error = err.Error()
			}
			outcomes[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return dto.SyncAllResult{}, err
	}

	result := dto.SyncAllResult{Banks: outcomes}
	for _, out := range outcomes {
		if out.Error != "" {
			result.BanksFailed++
		} else {
			result.BanksSynced++
		}
	}
	logger.FromContext(ctx).Info("sync all completed", "banks_synced", result.BanksSynced, "banks_failed", result.BanksFailed)
	return result, nil
}

func isPerBankFailure(err error) bool {
	var ext *errs.ExternalServiceError
	var nf *errs.NotFoundError
	return errors.As(err, &ext) || errors.As(err, &nf)
}

// recordFailure stores provider errors on the bank. It never fails the caller.
func (s *plaidService) recordFailure(ctx context.Context, uid, bankID string, cause error) {
	var ext *errs.ExternalServiceError
	if !errors.As(cause, &ext) {
		return
	}
	if err := s.banks.RecordSyncError(ctx, uid, bankID, cause.Error()); err != nil {
		logger.FromContext(ctx).Error("failed to record sync error", "bank_id", bankID, "error", err)
	}
}

func toTransaction(pt dto.PlaidTransaction, bankID string, now time.Time) models.Transaction {
	return models.Transaction{
		TransactionID: pt.TransactionID,
		ExternalID:    pt.TransactionID,
		AccountID:     pt.AccountID,
		BankID:        bankID,
		Kind:          models.KindReal,
		Amount:        -toCents(pt.Amount),
		PostedAt:      normalizePostedDate(pt.Date, pt.AuthorizedDate, now),
		Name:          pt.Name,
		MerchantName:  pt.MerchantName,
		Categories:    pt.Categories,
		Pending:       pt.Pending,
	}
}

// toCents converts provider currency units to cents, rounding half away from zero.
func toCents(v float64) int64 {
	return decimal.NewFromFloat(v).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

const postedHourUTC = 12

// normalizePostedDate picks the settlement date, then the authorization date,
// then the sync date, and pins the result to midday UTC.
func normalizePostedDate(date, authorizedDate string, now time.Time) time.Time {
	for _, candidate := range []string{date, authorizedDate} {
		if candidate == "" {
			continue
		}
		if d, err := time.Parse(time.DateOnly, candidate); err == nil {
			return time.Date(d.Year(), d.Month(), d.Day(), postedHourUTC, 0, 0, 0, time.UTC)
		}
	}
	n := now.UTC()
	return time.Date(n.Year(), n.Month(), n.Day(), postedHourUTC, 0, 0, 0, time.UTC)
}
