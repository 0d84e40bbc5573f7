package store

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/GregMSThompson/envelope-ledger/internal/errs"
	"github.com/GregMSThompson/envelope-ledger/internal/models"
)

type bankStore struct {
	client *firestore.Client
}

func NewBankStore(client *firestore.Client) *bankStore {
	return &bankStore{client: client}
}

func (s *bankStore) collection(uid string) *firestore.CollectionRef {
	return userCollection(s.client, uid, banksCollection)
}

func (s *bankStore) Create(ctx context.Context, uid string, bank *models.Bank) error {
	now := time.Now()
	if bank.CreatedAt.IsZero() {
		bank.CreatedAt = now
	}
	bank.UpdatedAt = now
	if bank.Status == "" {
		bank.Status = models.BankStatusActive
	}
	// Merge keeps an access token that a credential store may already have written.
	_, err := s.collection(uid).Doc(bank.BankID).Set(ctx, map[string]any{
		"bankId":      bank.BankID,
		"institution": bank.Institution,
		"status":      bank.Status,
		"createdAt":   bank.CreatedAt,
		"updatedAt":   bank.UpdatedAt,
	}, firestore.MergeAll)
	if err != nil {
		return errs.NewDatabaseError("create", "failed to create bank", err)
	}
	return nil
}

func (s *bankStore) List(ctx context.Context, uid string) ([]*models.Bank, error) {
	docs, err := s.collection(uid).Documents(ctx).GetAll()
	if err != nil {
		return nil, errs.NewDatabaseError("read", "failed to list banks", err)
	}
	banks := make([]*models.Bank, 0, len(docs))
	for _, d := range docs {
		var b models.Bank
		if err := d.DataTo(&b); err != nil {
			return nil, errs.NewDatabaseError("read", "failed to parse bank data", err)
		}
		banks = append(banks, &b)
	}
	return banks, nil
}

func (s *bankStore) Get(ctx context.Context, uid, bankID string) (*models.Bank, error) {
	doc, err := s.collection(uid).Doc(bankID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, errs.NewNotFoundError("bank not found")
		}
		return nil, errs.NewDatabaseError("read", "failed to get bank", err)
	}
	var b models.Bank
	if err := doc.DataTo(&b); err != nil {
		return nil, errs.NewDatabaseError("read", "failed to parse bank data", err)
	}
	return &b, nil
}

func (s *bankStore) Delete(ctx context.Context, uid, bankID string) error {
	if _, err := s.collection(uid).Doc(bankID).Delete(ctx); err != nil {
		return errs.NewDatabaseError("delete", "failed to delete bank", err)
	}
	return nil
}

// SetCursor records a page as applied. It also marks the bank healthy again.
func (s *bankStore) SetCursor(ctx context.Context, uid, bankID, cursor string) error {
	now := time.Now()
	_, err := s.collection(uid).Doc(bankID).Update(ctx, []firestore.Update{
		{Path: "cursor", Value: cursor},
		{Path: "status", Value: models.BankStatusActive},
		{Path: "lastSyncedAt", Value: now},
		{Path: "lastError", Value: firestore.Delete},
		{Path: "lastErrorAt", Value: nil},
		{Path: "updatedAt", Value: now},
	})
	if err != nil {
		if isNotFound(err) {
			return errs.NewNotFoundError("bank not found")
		}
		return errs.NewDatabaseError("update", "failed to save sync cursor", err)
	}
	return nil
}

func (s *bankStore) RecordSyncError(ctx context.Context, uid, bankID, message string) error {
	now := time.Now()
	_, err := s.collection(uid).Doc(bankID).Update(ctx, []firestore.Update{
		{Path: "status", Value: models.BankStatusError},
		{Path: "lastError", Value: message},
		{Path: "lastErrorAt", Value: now},
		{Path: "updatedAt", Value: now},
	})
	if err != nil {
		if isNotFound(err) {
			return errs.NewNotFoundError("bank not found")
		}
		return errs.NewDatabaseError("update", "failed to record sync error", err)
	}
	return nil
}
