package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/GregMSThompson/envelope-ledger/internal/errs"
	"github.com/GregMSThompson/envelope-ledger/internal/models"
	"github.com/GregMSThompson/envelope-ledger/internal/store"
)

var errReadAfterWrite = errors.New("read after write inside ledger transaction")

// fakeLedger is an in-memory store.LedgerTx runner for a single uid. Writes are
// buffered and only applied when fn returns nil, like a Firestore commit.
type fakeLedger struct {
	accounts     map[string]*models.Account
	envelopes    map[string]*models.Envelope
	transactions map[string]*models.Transaction
	allocations  []*models.Allocation

	commitErr      error
	commits        int
	readAfterWrite bool
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		accounts:     map[string]*models.Account{},
		envelopes:    map[string]*models.Envelope{},
		transactions: map[string]*models.Transaction{},
	}
}

func (l *fakeLedger) RunInTx(ctx context.Context, fn func(ctx context.Context, tx store.LedgerTx) error) error {
	tx := &fakeLedgerTx{ledger: l}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if l.commitErr != nil {
		return errs.NewDatabaseError("transaction", "ledger transaction failed", l.commitErr)
	}
	if len(tx.writes) == 0 {
		return nil
	}
	for _, op := range tx.writes {
		op()
	}
	l.commits++
	return nil
}

func (l *fakeLedger) addAccount(a models.Account) {
	l.accounts[a.AccountID] = &a
}

func (l *fakeLedger) addEnvelope(id string, balance int64) {
	l.envelopes[id] = &models.Envelope{EnvelopeID: id, Name: id, Balance: balance}
}

func (l *fakeLedger) addTransaction(t models.Transaction) {
	if t.Kind == "" {
		t.Kind = models.KindReal
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = t.PostedAt
	}
	t.SyncAllocationState()
	l.transactions[t.TransactionID] = &t
}

func (l *fakeLedger) accountTransactions(accountID string) []*models.Transaction {
	var out []*models.Transaction
	for _, t := range l.transactions {
		if t.AccountID == accountID {
			out = append(out, t)
		}
	}
	return out
}

// deltaSum rebuilds an envelope balance from the audit rows.
func (l *fakeLedger) deltaSum(envelopeID string) int64 {
	var sum int64
	for _, a := range l.allocations {
		if a.EnvelopeID == envelopeID {
			sum += a.Delta
		}
	}
	return sum
}

type fakeLedgerTx struct {
	ledger *fakeLedger
	writes []func()
}

func (t *fakeLedgerTx) read() error {
	if len(t.writes) > 0 {
		t.ledger.readAfterWrite = true
		return errReadAfterWrite
	}
	return nil
}

func (t *fakeLedgerTx) GetTransaction(uid, transactionID string) (*models.Transaction, error) {
	if err := t.read(); err != nil {
		return nil, err
	}
	tx, ok := t.ledger.transactions[transactionID]
	if !ok {
		return nil, errs.NewNotFoundError("transaction not found")
	}
	c := *tx
	return &c, nil
}

func (t *fakeLedgerTx) GetAccount(uid, accountID string) (*models.Account, error) {
	if err := t.read(); err != nil {
		return nil, err
	}
	a, ok := t.ledger.accounts[accountID]
	if !ok {
		return nil, errs.NewNotFoundError("account not found")
	}
	c := *a
	return &c, nil
}

func (t *fakeLedgerTx) GetEnvelopes(uid string, envelopeIDs []string) ([]*models.Envelope, error) {
	if err := t.read(); err != nil {
		return nil, err
	}
	out := make([]*models.Envelope, 0, len(envelopeIDs))
	for _, id := range envelopeIDs {
		e, ok := t.ledger.envelopes[id]
		if !ok {
			return nil, errs.NewNotFoundError(fmt.Sprintf("envelope %s not found", id))
		}
		c := *e
		out = append(out, &c)
	}
	return out, nil
}

func (t *fakeLedgerTx) OldestUnallocated(uid string) (*models.Transaction, error) {
	if err := t.read(); err != nil {
		return nil, err
	}
	var open []*models.Transaction
	for _, tx := range t.ledger.transactions {
		if !tx.FullyAllocated {
			open = append(open, tx)
		}
	}
	if len(open) == 0 {
		return nil, nil
	}
	sort.Slice(open, func(i, j int) bool {
		a, b := open[i], open[j]
		if !a.PostedAt.Equal(b.PostedAt) {
			return a.PostedAt.Before(b.PostedAt)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.TransactionID < b.TransactionID
	})
	c := *open[0]
	return &c, nil
}

func (t *fakeLedgerTx) AccountTransactionIDs(uid, accountID string) ([]string, error) {
	if err := t.read(); err != nil {
		return nil, err
	}
	var ids []string
	for id, tx := range t.ledger.transactions {
		if tx.AccountID == accountID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (t *fakeLedgerTx) PutTransaction(uid string, tx *models.Transaction) error {
	tx.SyncAllocationState()
	c := *tx
	t.writes = append(t.writes, func() { t.ledger.transactions[c.TransactionID] = &c })
	return nil
}

func (t *fakeLedgerTx) PutAccount(uid string, a *models.Account) error {
	c := *a
	t.writes = append(t.writes, func() { t.ledger.accounts[c.AccountID] = &c })
	return nil
}

func (t *fakeLedgerTx) PutEnvelope(uid string, e *models.Envelope) error {
	c := *e
	t.writes = append(t.writes, func() { t.ledger.envelopes[c.EnvelopeID] = &c })
	return nil
}

func (t *fakeLedgerTx) PutAllocation(uid string, a *models.Allocation) error {
	c := *a
	t.writes = append(t.writes, func() { t.ledger.allocations = append(t.ledger.allocations, &c) })
	return nil
}

func (t *fakeLedgerTx) DeleteTransactions(uid string, transactionIDs []string) error {
	ids := append([]string(nil), transactionIDs...)
	t.writes = append(t.writes, func() {
		for _, id := range ids {
			delete(t.ledger.transactions, id)
		}
	})
	return nil
}

func day(n int) time.Time {
	return time.Date(2024, time.March, n, 12, 0, 0, 0, time.UTC)
}

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}
