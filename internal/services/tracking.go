package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/GregMSThompson/envelope-ledger/internal/dto"
	"github.com/GregMSThompson/envelope-ledger/internal/errs"
	"github.com/GregMSThompson/envelope-ledger/internal/models"
	"github.com/GregMSThompson/envelope-ledger/internal/store"
	"github.com/GregMSThompson/envelope-ledger/pkg/logger"
)

type balancingStore interface {
	DeleteFromAccountTracking(ctx context.Context, uid string) (int, error)
}

type trackingService struct {
	ledger   ledgerRunner
	txs      balancingStore
	newID    func() string
	clockNow func() time.Time
}

func NewTrackingService(ledger ledgerRunner, txs balancingStore) *trackingService {
	return &trackingService{
		ledger:   ledger,
		txs:      txs,
		newID:    uuid.NewString,
		clockNow: time.Now,
	}
}

// SetTracking flips an account in or out of the ledger. Turning it on records
// the current balance as an ACCOUNT_TRACK credit. Turning it off records what
// was allocated as an ACCOUNT_UNTRACK debit that the user must allocate back
// before the account history is purged.
func (s *trackingService) SetTracking(ctx context.Context, uid, accountID string, enabled bool) (dto.TrackingResult, error) {
	var result dto.TrackingResult

	err := s.ledger.RunInTx(ctx, func(ctx context.Context, tx store.LedgerTx) error {
		result = dto.TrackingResult{}

		account, err := tx.GetAccount(uid, accountID)
		if err != nil {
			return err
		}
		if account.Tracking == enabled {
			result.Account = account
			return nil
		}

		now := s.clockNow()
		synthetic := &models.Transaction{
			TransactionID: s.newID(),
			AccountID:     account.AccountID,
			BankID:        account.BankID,
			PostedAt:      now,
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		if enabled {
			synthetic.Kind = models.KindAccountTrack
			synthetic.Amount = account.BalanceCurrent
			synthetic.Name = "Account tracking started"
			if synthetic.Amount < 0 {
				return invalidSign(synthetic)
			}
			account.Tracking = true
			account.TrackedOn = &now
		} else {
			synthetic.Kind = models.KindAccountUntrack
			synthetic.Amount = -account.AllocationCurrent
			synthetic.Name = "Account tracking stopped"
			synthetic.FromAccountTracking = true
			if synthetic.Amount > 0 {
				return invalidSign(synthetic)
			}
			account.Tracking = false
		}
		account.UpdatedAt = now

		// Nothing left to hand back: the untracking debit would be born fully
		// allocated, so the purge runs now instead.
		if !enabled && synthetic.Amount == 0 {
			ids, err := tx.AccountTransactionIDs(uid, account.AccountID)
			if err != nil {
				return err
			}
			if err := tx.DeleteTransactions(uid, ids); err != nil {
				return err
			}
			account.AllocationCurrent = 0
			if err := tx.PutAccount(uid, account); err != nil {
				return err
			}
			result = dto.TrackingResult{Account: account, Purged: true, PurgedCount: len(ids)}
			return nil
		}

		if err := tx.PutTransaction(uid, synthetic); err != nil {
			return err
		}
		if err := tx.PutAccount(uid, account); err != nil {
			return err
		}
		result = dto.TrackingResult{Account: account, Transaction: synthetic}
		return nil
	})
	if err != nil {
		return dto.TrackingResult{}, err
	}

	if result.Transaction != nil || result.Purged {
		log := logger.FromContext(ctx)
		log.Info("account tracking changed",
			"account_id", accountID,
			"tracking", result.Account.Tracking,
			"purged", result.Purged)
	}
	return result, nil
}

func invalidSign(t *models.Transaction) error {
	return errs.NewValidationErrorWithDetails(errs.CodeInvalidAmountSign, "synthetic transaction amount has the wrong sign",
		map[string]any{"kind": string(t.Kind), "amount": t.Amount})
}

// ResetBalancingTransactions deletes every untracking transaction for uid. It
// skips the purge cascade and exists for manual recovery.
func (s *trackingService) ResetBalancingTransactions(ctx context.Context, uid string) (dto.ResetBalancingResult, error) {
	deleted, err := s.txs.DeleteFromAccountTracking(ctx, uid)
	if err != nil {
		return dto.ResetBalancingResult{}, err
	}
	logger.FromContext(ctx).Warn("balancing transactions reset", "deleted", deleted)
	return dto.ResetBalancingResult{DeletedCount: deleted}, nil
}
