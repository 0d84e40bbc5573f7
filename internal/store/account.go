package store

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/GregMSThompson/envelope-ledger/internal/errs"
	"github.com/GregMSThompson/envelope-ledger/internal/models"
)

type accountStore struct {
	client *firestore.Client
}

func NewAccountStore(client *firestore.Client) *accountStore {
	return &accountStore{client: client}
}

func (s *accountStore) collection(uid string) *firestore.CollectionRef {
	return userCollection(s.client, uid, accountsCollection)
}

func (s *accountStore) Get(ctx context.Context, uid, accountID string) (*models.Account, error) {
	doc, err := s.collection(uid).Doc(accountID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, errs.NewNotFoundError("account not found")
		}
		return nil, errs.NewDatabaseError("read", "failed to get account", err)
	}
	var a models.Account
	if err := doc.DataTo(&a); err != nil {
		return nil, errs.NewDatabaseError("read", "failed to parse account data", err)
	}
	return &a, nil
}

func (s *accountStore) List(ctx context.Context, uid string) ([]*models.Account, error) {
	return s.list(ctx, s.collection(uid).OrderBy("name", firestore.Asc))
}

func (s *accountStore) ListByBank(ctx context.Context, uid, bankID string) ([]*models.Account, error) {
	return s.list(ctx, s.collection(uid).Where("bankId", "==", bankID))
}

func (s *accountStore) list(ctx context.Context, q firestore.Query) ([]*models.Account, error) {
	docs, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, errs.NewDatabaseError("read", "failed to list accounts", err)
	}
	accounts := make([]*models.Account, 0, len(docs))
	for _, d := range docs {
		var a models.Account
		if err := d.DataTo(&a); err != nil {
			return nil, errs.NewDatabaseError("read", "failed to parse account data", err)
		}
		accounts = append(accounts, &a)
	}
	return accounts, nil
}

// Upsert writes provider snapshots by account id. Existing documents only get
// provider-owned fields merged in; tracking state and allocation totals are
// never written here. The merged accounts are returned.
func (s *accountStore) Upsert(ctx context.Context, uid string, accounts []models.Account) ([]*models.Account, error) {
	if len(accounts) == 0 {
		return nil, nil
	}

	refs := make([]*firestore.DocumentRef, 0, len(accounts))
	for _, a := range accounts {
		refs = append(refs, s.collection(uid).Doc(a.AccountID))
	}
	snaps, err := s.client.GetAll(ctx, refs)
	if err != nil {
		return nil, errs.NewDatabaseError("read", "failed to load existing accounts", err)
	}

	bw := s.client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(accounts))
	out := make([]*models.Account, 0, len(accounts))
	now := time.Now()

	for i, a := range accounts {
		merged := a
		var job *firestore.BulkWriterJob
		if snaps[i].Exists() {
			var existing models.Account
			if err := snaps[i].DataTo(&existing); err != nil {
				bw.End()
				return nil, errs.NewDatabaseError("read", "failed to parse account data", err)
			}
			merged.Tracking = existing.Tracking
			merged.TrackedOn = existing.TrackedOn
			merged.AllocationCurrent = existing.AllocationCurrent
			merged.CreatedAt = existing.CreatedAt
			merged.UpdatedAt = now
			job, err = bw.Set(refs[i], map[string]any{
				"accountId":      a.AccountID,
				"bankId":         a.BankID,
				"name":           a.Name,
				"officialName":   a.OfficialName,
				"mask":           a.Mask,
				"type":           a.Type,
				"subtype":        a.Subtype,
				"currency":       a.Currency,
				"balanceCurrent": a.BalanceCurrent,
				"updatedAt":      now,
			}, firestore.MergeAll)
		} else {
			merged.Tracking = false
			merged.TrackedOn = nil
			merged.AllocationCurrent = 0
			merged.CreatedAt = now
			merged.UpdatedAt = now
			job, err = bw.Create(refs[i], merged)
		}
		if err != nil {
			bw.End()
			return nil, errs.NewDatabaseError("update", "failed to schedule account upsert", err)
		}
		jobs = append(jobs, job)
		out = append(out, &merged)
	}

	bw.End()
	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			return nil, errs.NewDatabaseError("update", "failed to upsert account", err)
		}
	}
	return out, nil
}

func (s *accountStore) DeleteByBank(ctx context.Context, uid, bankID string) error {
	docs, err := s.collection(uid).Where("bankId", "==", bankID).Select().Documents(ctx).GetAll()
	if err != nil {
		return errs.NewDatabaseError("read", "failed to list accounts for delete", err)
	}
	bw := s.client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(docs))
	for _, d := range docs {
		job, err := bw.Delete(d.Ref)
		if err != nil {
			bw.End()
			return errs.NewDatabaseError("delete", "failed to schedule account delete", err)
		}
		jobs = append(jobs, job)
	}
	bw.End()
	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			return errs.NewDatabaseError("delete", "failed to delete account", err)
		}
	}
	return nil
}
