package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/GregMSThompson/envelope-ledger/internal/errs"
	"github.com/GregMSThompson/envelope-ledger/internal/models"
)

// LedgerTx is the unit of work behind Allocate and SetTracking. It follows
// Firestore transaction rules: every read must happen before the first write,
// and writes are only visible once the surrounding RunInTx commits.
type LedgerTx interface {
	GetTransaction(uid, transactionID string) (*models.Transaction, error)
	GetAccount(uid, accountID string) (*models.Account, error)
	GetEnvelopes(uid string, envelopeIDs []string) ([]*models.Envelope, error)
	// OldestUnallocated returns nil when every transaction is fully allocated.
	OldestUnallocated(uid string) (*models.Transaction, error)
	AccountTransactionIDs(uid, accountID string) ([]string, error)

	PutTransaction(uid string, t *models.Transaction) error
	PutAccount(uid string, a *models.Account) error
	PutEnvelope(uid string, e *models.Envelope) error
	PutAllocation(uid string, a *models.Allocation) error
	DeleteTransactions(uid string, transactionIDs []string) error
}

type ledgerStore struct {
	client *firestore.Client
}

func NewLedgerStore(client *firestore.Client) *ledgerStore {
	return &ledgerStore{client: client}
}

// RunInTx runs fn inside one serializable Firestore transaction. fn may be
// retried on contention, so it must not keep state across attempts.
func (s *ledgerStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error {
	err := s.client.RunTransaction(ctx, func(ctx context.Context, ftx *firestore.Transaction) error {
		return fn(ctx, &ledgerTx{client: s.client, tx: ftx})
	})
	if err != nil && !errs.IsDomain(err) {
		return errs.NewDatabaseError("transaction", "ledger transaction failed", err)
	}
	return err
}

type ledgerTx struct {
	client *firestore.Client
	tx     *firestore.Transaction
}

func (t *ledgerTx) doc(uid, collection, id string) *firestore.DocumentRef {
	return userCollection(t.client, uid, collection).Doc(id)
}

func (t *ledgerTx) GetTransaction(uid, transactionID string) (*models.Transaction, error) {
	snap, err := t.tx.Get(t.doc(uid, transactionsCollection, transactionID))
	if err != nil {
		if isNotFound(err) {
			return nil, errs.NewNotFoundError("transaction not found")
		}
		return nil, errs.NewDatabaseError("read", "failed to get transaction", err)
	}
	var tx models.Transaction
	if err := snap.DataTo(&tx); err != nil {
		return nil, errs.NewDatabaseError("read", "failed to parse transaction data", err)
	}
	return &tx, nil
}

func (t *ledgerTx) GetAccount(uid, accountID string) (*models.Account, error) {
	snap, err := t.tx.Get(t.doc(uid, accountsCollection, accountID))
	if err != nil {
		if isNotFound(err) {
			return nil, errs.NewNotFoundError("account not found")
		}
		return nil, errs.NewDatabaseError("read", "failed to get account", err)
	}
	var a models.Account
	if err := snap.DataTo(&a); err != nil {
		return nil, errs.NewDatabaseError("read", "failed to parse account data", err)
	}
	return &a, nil
}

func (t *ledgerTx) GetEnvelopes(uid string, envelopeIDs []string) ([]*models.Envelope, error) {
	refs := make([]*firestore.DocumentRef, 0, len(envelopeIDs))
	for _, id := range envelopeIDs {
		refs = append(refs, t.doc(uid, envelopesCollection, id))
	}
	snaps, err := t.tx.GetAll(refs)
	if err != nil {
		return nil, errs.NewDatabaseError("read", "failed to get envelopes", err)
	}

	envelopes := make([]*models.Envelope, 0, len(snaps))
	for i, snap := range snaps {
		if !snap.Exists() {
			return nil, errs.NewNotFoundError(fmt.Sprintf("envelope %s not found", envelopeIDs[i]))
		}
		var e models.Envelope
		if err := snap.DataTo(&e); err != nil {
			return nil, errs.NewDatabaseError("read", "failed to parse envelope data", err)
		}
		envelopes = append(envelopes, &e)
	}
	return envelopes, nil
}

func (t *ledgerTx) OldestUnallocated(uid string) (*models.Transaction, error) {
	iter := t.tx.Documents(oldestUnallocatedQuery(t.client, uid))
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, errs.NewDatabaseError("read", "failed to query oldest unallocated transaction", err)
	}
	var tx models.Transaction
	if err := doc.DataTo(&tx); err != nil {
		return nil, errs.NewDatabaseError("read", "failed to parse transaction data", err)
	}
	return &tx, nil
}

func (t *ledgerTx) AccountTransactionIDs(uid, accountID string) ([]string, error) {
	q := userCollection(t.client, uid, transactionsCollection).
		Where("accountId", "==", accountID).
		Select()
	docs, err := t.tx.Documents(q).GetAll()
	if err != nil {
		return nil, errs.NewDatabaseError("read", "failed to list account transactions", err)
	}
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.Ref.ID)
	}
	return ids, nil
}

func (t *ledgerTx) PutTransaction(uid string, tx *models.Transaction) error {
	tx.SyncAllocationState()
	if err := t.tx.Set(t.doc(uid, transactionsCollection, tx.TransactionID), tx); err != nil {
		return errs.NewDatabaseError("update", "failed to write transaction", err)
	}
	return nil
}

func (t *ledgerTx) PutAccount(uid string, a *models.Account) error {
	if err := t.tx.Set(t.doc(uid, accountsCollection, a.AccountID), a); err != nil {
		return errs.NewDatabaseError("update", "failed to write account", err)
	}
	return nil
}

func (t *ledgerTx) PutEnvelope(uid string, e *models.Envelope) error {
	if err := t.tx.Set(t.doc(uid, envelopesCollection, e.EnvelopeID), e); err != nil {
		return errs.NewDatabaseError("update", "failed to write envelope", err)
	}
	return nil
}

func (t *ledgerTx) PutAllocation(uid string, a *models.Allocation) error {
	if err := t.tx.Create(t.doc(uid, allocationsCollection, a.AllocationID), a); err != nil {
		return errs.NewDatabaseError("create", "failed to write allocation", err)
	}
	return nil
}

func (t *ledgerTx) DeleteTransactions(uid string, transactionIDs []string) error {
	for _, id := range transactionIDs {
		if err := t.tx.Delete(t.doc(uid, transactionsCollection, id)); err != nil {
			return errs.NewDatabaseError("delete", "failed to delete transaction", err)
		}
	}
	return nil
}
