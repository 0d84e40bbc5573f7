package store

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/GregMSThompson/envelope-ledger/internal/dto"
	"github.com/GregMSThompson/envelope-ledger/internal/errs"
	"github.com/GregMSThompson/envelope-ledger/internal/models"
	"github.com/GregMSThompson/envelope-ledger/pkg/logger"
)

type transactionStore struct {
	client *firestore.Client
}

func NewTransactionStore(client *firestore.Client) *transactionStore {
	return &transactionStore{client: client}
}

func (s *transactionStore) txCollection(uid string) *firestore.CollectionRef {
	return userCollection(s.client, uid, transactionsCollection)
}

// mutableUpdates are the provider-owned fields refreshed on every sync.
// fullyAllocated is recomputed against the stored allocation.
func mutableUpdates(t models.Transaction, allocated int64, now time.Time) []firestore.Update {
	t.Allocated = allocated
	t.SyncAllocationState()
	return []firestore.Update{
		{Path: "amount", Value: t.Amount},
		{Path: "postedAt", Value: t.PostedAt},
		{Path: "name", Value: t.Name},
		{Path: "merchantName", Value: t.MerchantName},
		{Path: "categories", Value: t.Categories},
		{Path: "pending", Value: t.Pending},
		{Path: "fullyAllocated", Value: t.FullyAllocated},
		{Path: "updatedAt", Value: now},
	}
}

type upsertJob struct {
	tx     models.Transaction
	insert bool
	job    *firestore.BulkWriterJob
}

// UpsertReal inserts REAL transactions keyed by their external id or refreshes
// the mutable fields of ones already stored. kind, allocated and createdAt are
// only written on insert.
func (s *transactionStore) UpsertReal(ctx context.Context, uid string, txs []models.Transaction) (inserted, updated int, err error) {
	txs = dedupeByID(txs)
	if len(txs) == 0 {
		return 0, 0, nil
	}

	refs := make([]*firestore.DocumentRef, 0, len(txs))
	for _, t := range txs {
		refs = append(refs, s.txCollection(uid).Doc(t.TransactionID))
	}
	snaps, err := s.client.GetAll(ctx, refs)
	if err != nil {
		return 0, 0, errs.NewDatabaseError("read", "failed to load existing transactions", err)
	}

	bw := s.client.BulkWriter(ctx)
	jobs := make([]upsertJob, 0, len(txs))
	now := time.Now()

	for i, t := range txs {
		var job *firestore.BulkWriterJob
		if snaps[i].Exists() {
			var existing models.Transaction
			if err := snaps[i].DataTo(&existing); err != nil {
				bw.End()
				return 0, 0, errs.NewDatabaseError("read", "failed to parse transaction data", err)
			}
			job, err = bw.Update(refs[i], mutableUpdates(t, existing.Allocated, now), firestore.LastUpdateTime(snaps[i].UpdateTime))
		} else {
			t.Kind = models.KindReal
			t.Allocated = 0
			t.SyncAllocationState()
			t.CreatedAt = now
			t.UpdatedAt = now
			job, err = bw.Create(refs[i], t)
		}
		if err != nil {
			bw.End()
			return 0, 0, errs.NewDatabaseError("update", "failed to schedule transaction upsert", err)
		}
		jobs = append(jobs, upsertJob{tx: t, insert: !snaps[i].Exists(), job: job})
	}

	// Flush and close the writer, then wait on each job for errors.
	bw.End()
	for _, j := range jobs {
		_, jobErr := j.job.Results()
		outcome, err := s.settleUpsert(ctx, uid, j, jobErr)
		if err != nil {
			return inserted, updated, err
		}
		switch outcome {
		case upsertInserted:
			inserted++
		case upsertUpdated:
			updated++
		}
	}

	return inserted, updated, nil
}

type upsertOutcome int

const (
	upsertSkipped upsertOutcome = iota
	upsertInserted
	upsertUpdated
)

// settleUpsert classifies a finished bulk job. A job that lost a race with
// another writer falls back to a transactional refresh; if the document is
// gone by then it was deleted concurrently and is not recreated.
func (s *transactionStore) settleUpsert(ctx context.Context, uid string, j upsertJob, jobErr error) (upsertOutcome, error) {
	switch {
	case jobErr == nil:
		if j.insert {
			return upsertInserted, nil
		}
		return upsertUpdated, nil
	case isAlreadyExists(jobErr) || isFailedPrecondition(jobErr):
		found, err := s.refresh(ctx, uid, j.tx)
		if err != nil {
			return upsertSkipped, err
		}
		if !found {
			logger.FromContext(ctx).Warn("transaction vanished during upsert",
				"transactionId", j.tx.TransactionID)
			return upsertSkipped, nil
		}
		return upsertUpdated, nil
	default:
		return upsertSkipped, errs.NewDatabaseError("update", "failed to upsert transaction", jobErr)
	}
}

// UpdateMutable refreshes provider fields on transactions that already exist.
// Unknown ids are counted as missing and left alone.
func (s *transactionStore) UpdateMutable(ctx context.Context, uid string, txs []models.Transaction) (updated, missing int, err error) {
	for _, t := range dedupeByID(txs) {
		ok, err := s.refresh(ctx, uid, t)
		if err != nil {
			return updated, missing, err
		}
		if ok {
			updated++
		} else {
			missing++
		}
	}
	return updated, missing, nil
}

func (s *transactionStore) refresh(ctx context.Context, uid string, t models.Transaction) (bool, error) {
	ref := s.txCollection(uid).Doc(t.TransactionID)
	found := false
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		found = false
		snap, err := tx.Get(ref)
		if err != nil {
			if isNotFound(err) {
				return nil
			}
			return err
		}
		var existing models.Transaction
		if err := snap.DataTo(&existing); err != nil {
			return err
		}
		found = true
		return tx.Update(ref, mutableUpdates(t, existing.Allocated, time.Now()))
	})
	if err != nil {
		return false, errs.NewDatabaseError("update", "failed to refresh transaction", err)
	}
	return found, nil
}

// DeleteUnallocated hard-deletes REAL transactions that have nothing allocated.
// Anything allocated, synthetic, or modified concurrently is kept.
func (s *transactionStore) DeleteUnallocated(ctx context.Context, uid string, transactionIDs []string) (deleted, kept int, err error) {
	if len(transactionIDs) == 0 {
		return 0, 0, nil
	}
	log := logger.FromContext(ctx)

	seen := make(map[string]struct{}, len(transactionIDs))
	refs := make([]*firestore.DocumentRef, 0, len(transactionIDs))
	for _, id := range transactionIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		refs = append(refs, s.txCollection(uid).Doc(id))
	}
	snaps, err := s.client.GetAll(ctx, refs)
	if err != nil {
		return 0, 0, errs.NewDatabaseError("read", "failed to load removed transactions", err)
	}

	bw := s.client.BulkWriter(ctx)
	type deleteJob struct {
		id  string
		job *firestore.BulkWriterJob
	}
	var jobs []deleteJob
	for _, snap := range snaps {
		if !snap.Exists() {
			continue
		}
		var t models.Transaction
		if err := snap.DataTo(&t); err != nil {
			bw.End()
			return 0, 0, errs.NewDatabaseError("read", "failed to parse transaction data", err)
		}
		if t.Kind != models.KindReal || t.Allocated != 0 {
			log.Info("removed transaction kept", "transaction_id", t.TransactionID, "allocated", t.Allocated, "kind", t.Kind)
			kept++
			continue
		}
		job, err := bw.Delete(snap.Ref, firestore.LastUpdateTime(snap.UpdateTime))
		if err != nil {
			bw.End()
			return 0, 0, errs.NewDatabaseError("delete", "failed to schedule transaction delete", err)
		}
		jobs = append(jobs, deleteJob{id: t.TransactionID, job: job})
	}
	bw.End()

	for _, j := range jobs {
		if _, err := j.job.Results(); err != nil {
			if isFailedPrecondition(err) {
				log.Warn("removed transaction changed during sync; kept", "transaction_id", j.id)
				kept++
				continue
			}
			return deleted, kept, errs.NewDatabaseError("delete", "failed to delete transaction", err)
		}
		deleted++
	}
	return deleted, kept, nil
}

// DeleteFromAccountTracking removes every synthetic untracking transaction for
// uid and returns how many were deleted.
func (s *transactionStore) DeleteFromAccountTracking(ctx context.Context, uid string) (int, error) {
	q := s.txCollection(uid).Where("fromAccountTracking", "==", true).Select()
	return s.deleteQuery(ctx, q)
}

func (s *transactionStore) DeleteByBank(ctx context.Context, uid, bankID string) error {
	q := s.txCollection(uid).Where("bankId", "==", bankID).Select()
	_, err := s.deleteQuery(ctx, q)
	return err
}

func (s *transactionStore) deleteQuery(ctx context.Context, q firestore.Query) (int, error) {
	docs, err := q.Documents(ctx).GetAll()
	if err != nil {
		return 0, errs.NewDatabaseError("read", "failed to list transactions for delete", err)
	}
	if len(docs) == 0 {
		return 0, nil
	}

	bw := s.client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(docs))
	for _, d := range docs {
		job, err := bw.Delete(d.Ref)
		if err != nil {
			bw.End()
			return 0, errs.NewDatabaseError("delete", "failed to schedule transaction delete", err)
		}
		jobs = append(jobs, job)
	}
	bw.End()

	deleted := 0
	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			return deleted, errs.NewDatabaseError("delete", "failed to delete transaction", err)
		}
		deleted++
	}
	return deleted, nil
}

// List streams transactions ordered the way allocation walks them.
func (s *transactionStore) List(ctx context.Context, uid string, q dto.TransactionQuery) ([]*models.Transaction, error) {
	query := s.txCollection(uid).Query
	if q.AccountID != nil {
		query = query.Where("accountId", "==", *q.AccountID)
	}
	if q.BankID != nil {
		query = query.Where("bankId", "==", *q.BankID)
	}
	if q.UnallocatedOnly {
		query = query.Where("fullyAllocated", "==", false)
	}
	query = query.OrderBy("postedAt", firestore.Asc).OrderBy("createdAt", firestore.Asc)
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var out []*models.Transaction
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errs.NewDatabaseError("read", "failed to list transactions", err)
		}
		var t models.Transaction
		if err := doc.DataTo(&t); err != nil {
			return nil, errs.NewDatabaseError("read", "failed to parse transaction data", err)
		}
		out = append(out, &t)
	}
	return out, nil
}

// OldestUnallocated is the read-only counterpart of LedgerTx.OldestUnallocated.
func (s *transactionStore) OldestUnallocated(ctx context.Context, uid string) (*models.Transaction, error) {
	iter := oldestUnallocatedQuery(s.client, uid).Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, errs.NewDatabaseError("read", "failed to query oldest unallocated transaction", err)
	}
	var t models.Transaction
	if err := doc.DataTo(&t); err != nil {
		return nil, errs.NewDatabaseError("read", "failed to parse transaction data", err)
	}
	return &t, nil
}

// BulkWriter rejects two writes to the same document, so the last record wins.
func dedupeByID(txs []models.Transaction) []models.Transaction {
	index := make(map[string]int, len(txs))
	out := make([]models.Transaction, 0, len(txs))
	for _, t := range txs {
		if i, ok := index[t.TransactionID]; ok {
			out[i] = t
			continue
		}
		index[t.TransactionID] = len(out)
		out = append(out, t)
	}
	return out
}
