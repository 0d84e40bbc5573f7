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

// ledgerRunner opens the serializable unit of work shared by allocation and tracking.
type ledgerRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx store.LedgerTx) error) error
}

type allocationService struct {
	ledger   ledgerRunner
	newID    func() string
	clockNow func() time.Time
}

func NewAllocationService(ledger ledgerRunner) *allocationService {
	return &allocationService{
		ledger:   ledger,
		newID:    uuid.NewString,
		clockNow: time.Now,
	}
}

// Allocate distributes part of a transaction across envelopes. Every check
// runs inside the same transaction as the writes, so the oldest-first rule is
// evaluated against the snapshot that commits.
func (s *allocationService) Allocate(ctx context.Context, uid, transactionID string, splits []dto.AllocationSplit) (dto.AllocationResult, error) {
	var result dto.AllocationResult

	err := s.ledger.RunInTx(ctx, func(ctx context.Context, tx store.LedgerTx) error {
		result = dto.AllocationResult{}

		t, err := tx.GetTransaction(uid, transactionID)
		if err != nil {
			return err
		}
		total, envelopeIDs, err := validateSplits(splits)
		if err != nil {
			return err
		}
		envelopes, err := tx.GetEnvelopes(uid, envelopeIDs)
		if err != nil {
			return err
		}

		remaining := t.Remaining()
		if remaining <= 0 {
			return errs.NewConflictError(errs.CodeAlreadyFullyAllocated, "transaction is already fully allocated",
				map[string]any{"transactionId": t.TransactionID})
		}

		oldest, err := tx.OldestUnallocated(uid)
		if err != nil {
			return err
		}
		if oldest != nil && oldest.TransactionID != t.TransactionID {
			return errs.NewConflictError(errs.CodeMustAllocateOldestFirst, "older transactions must be allocated first",
				map[string]any{"oldestTransactionId": oldest.TransactionID})
		}

		if total > remaining {
			return errs.NewValidationErrorWithDetails(errs.CodeAllocationExceedsRemaining, "allocation exceeds remaining amount",
				map[string]any{"remaining": remaining, "requested": total})
		}

		if t.IsDebit() {
			for i, split := range splits {
				if envelopes[i].Balance-split.Amount < 0 {
					return errs.NewValidationErrorWithDetails(errs.CodeEnvelopeWouldGoNegative, "envelope balance would go negative",
						map[string]any{
							"envelopeId": split.EnvelopeID,
							"balance":    envelopes[i].Balance,
							"requested":  split.Amount,
						})
				}
			}
		}

		account, err := tx.GetAccount(uid, t.AccountID)
		if err != nil {
			return err
		}

		purge := t.IsUntracking() && remaining-total == 0
		var purgeIDs []string
		if purge {
			if purgeIDs, err = tx.AccountTransactionIDs(uid, t.AccountID); err != nil {
				return err
			}
		}

		// All reads are done; from here on only writes.
		now := s.clockNow()
		sign := int64(1)
		if t.IsDebit() {
			sign = -1
		}

		for i, split := range splits {
			e := envelopes[i]
			delta := sign * split.Amount
			e.Balance += delta
			e.UpdatedAt = now
			if err := tx.PutEnvelope(uid, e); err != nil {
				return err
			}
			if err := tx.PutAllocation(uid, &models.Allocation{
				AllocationID:  s.newID(),
				TransactionID: t.TransactionID,
				AccountID:     t.AccountID,
				EnvelopeID:    e.EnvelopeID,
				Delta:         delta,
				CreatedAt:     now,
			}); err != nil {
				return err
			}
		}

		t.Allocated += total
		t.UpdatedAt = now
		t.SyncAllocationState()
		account.AllocationCurrent += sign * total
		account.UpdatedAt = now

		if purge {
			if err := tx.DeleteTransactions(uid, purgeIDs); err != nil {
				return err
			}
			account.AllocationCurrent = 0
		} else if err := tx.PutTransaction(uid, t); err != nil {
			return err
		}
		if err := tx.PutAccount(uid, account); err != nil {
			return err
		}

		result = dto.AllocationResult{
			Transaction: t,
			Envelopes:   envelopes,
			Purged:      purge,
			PurgedCount: len(purgeIDs),
		}
		return nil
	})
	if err != nil {
		return dto.AllocationResult{}, err
	}

	log := logger.FromContext(ctx)
	log.Info("allocation applied",
		"transaction_id", transactionID,
		"splits", len(splits),
		"allocated", result.Transaction.Allocated,
		"fully_allocated", result.Transaction.FullyAllocated)
	if result.Purged {
		log.Info("account purge cascade", "account_id", result.Transaction.AccountID, "deleted", result.PurgedCount)
	}
	return result, nil
}

// validateSplits checks request shape only and returns the split total and the
// envelope ids in request order.
func validateSplits(splits []dto.AllocationSplit) (int64, []string, error) {
	if len(splits) == 0 {
		return 0, nil, errs.NewValidationError("at least one split is required")
	}
	seen := make(map[string]struct{}, len(splits))
	ids := make([]string, 0, len(splits))
	var total int64
	for i, split := range splits {
		if split.EnvelopeID == "" {
			return 0, nil, errs.NewValidationErrorWithDetails(errs.CodeInvalidInput, "split envelopeId is required",
				map[string]any{"index": i})
		}
		if split.Amount <= 0 {
			return 0, nil, errs.NewValidationErrorWithDetails(errs.CodeInvalidInput, "split amount must be greater than zero",
				map[string]any{"index": i, "envelopeId": split.EnvelopeID})
		}
		if _, dup := seen[split.EnvelopeID]; dup {
			return 0, nil, errs.NewValidationErrorWithDetails(errs.CodeInvalidInput, "envelope appears in more than one split",
				map[string]any{"envelopeId": split.EnvelopeID})
		}
		seen[split.EnvelopeID] = struct{}{}
		ids = append(ids, split.EnvelopeID)
		total += split.Amount
	}
	return total, ids, nil
}
