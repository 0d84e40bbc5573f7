package store

import (
	"context"

	"cloud.google.com/go/firestore"

	"github.com/GregMSThompson/envelope-ledger/internal/errs"
)

// CredentialStore resolves a bank connection to its Plaid access token.
type CredentialStore interface {
	StoreAccessToken(ctx context.Context, uid, itemID, token string) error
	GetAccessToken(ctx context.Context, uid, itemID string) (string, error)
	DeleteAccessToken(ctx context.Context, uid, itemID string) error
}

type cipher interface {
	Encrypt(ctx context.Context, plaintext string) (string, error)
	Decrypt(ctx context.Context, ciphertext string) (string, error)
}

// kmsCredentialStore keeps the Plaid access token on the bank document,
// sealed with a KMS key.
type kmsCredentialStore struct {
	client *firestore.Client
	cipher cipher
}

func NewKMSCredentialStore(client *firestore.Client, c cipher) *kmsCredentialStore {
	return &kmsCredentialStore{client: client, cipher: c}
}

func (s *kmsCredentialStore) doc(uid, itemID string) *firestore.DocumentRef {
	return userCollection(s.client, uid, banksCollection).Doc(itemID)
}

func (s *kmsCredentialStore) StoreAccessToken(ctx context.Context, uid, itemID, token string) error {
	sealed, err := s.cipher.Encrypt(ctx, token)
	if err != nil {
		return err
	}
	_, err = s.doc(uid, itemID).Set(ctx, map[string]any{"accessToken": sealed}, firestore.MergeAll)
	if err != nil {
		return errs.NewDatabaseError("update", "failed to store access token", err)
	}
	return nil
}

func (s *kmsCredentialStore) GetAccessToken(ctx context.Context, uid, itemID string) (string, error) {
	snap, err := s.doc(uid, itemID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return "", errs.NewNotFoundError("bank not found")
		}
		return "", errs.NewDatabaseError("read", "failed to load access token", err)
	}
	raw, err := snap.DataAt("accessToken")
	if err != nil {
		return "", errs.NewNotFoundError("access token not found")
	}
	sealed, ok := raw.(string)
	if !ok || sealed == "" {
		return "", errs.NewNotFoundError("access token not found")
	}
	return s.cipher.Decrypt(ctx, sealed)
}

func (s *kmsCredentialStore) DeleteAccessToken(ctx context.Context, uid, itemID string) error {
	_, err := s.doc(uid, itemID).Update(ctx, []firestore.Update{
		{Path: "accessToken", Value: firestore.Delete},
	})
	if err != nil && !isNotFound(err) {
		return errs.NewDatabaseError("update", "failed to delete access token", err)
	}
	return nil
}
