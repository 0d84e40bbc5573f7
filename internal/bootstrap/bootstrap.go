package bootstrap

import (
	"context"
	"errors"
	"log/slog"

	"cloud.google.com/go/firestore"
	gcpkms "cloud.google.com/go/kms/apiv1"
	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"firebase.google.com/go/v4/auth"

	plaidclient "github.com/GregMSThompson/envelope-ledger/internal/client/plaid"
	"github.com/GregMSThompson/envelope-ledger/internal/config"
	"github.com/GregMSThompson/envelope-ledger/internal/crypto"
	"github.com/GregMSThompson/envelope-ledger/internal/dto"
	"github.com/GregMSThompson/envelope-ledger/internal/store"
	"github.com/GregMSThompson/envelope-ledger/pkg/logger"
)

type Bootstrap struct {
	Log          *slog.Logger
	Firestore    *firestore.Client
	Firebase     *auth.Client
	KMS          *gcpkms.KeyManagementClient
	Secrets      *secretmanager.Client
	PlaidAdapter *plaidclient.Adapter
	Credentials  store.CredentialStore
}

func Run(cfg *config.Config) (*Bootstrap, error) {
	var err error
	applicationCtx := context.Background()
	bs := new(Bootstrap)

	bs.Log = logger.New(cfg.LogLevel, logger.NewCloudRunHandler)
	bs.Firestore, err = InitFirestore(applicationCtx, cfg.ProjectID)
	if err != nil {
		return bs, err
	}
	bs.Firebase, err = InitFirebase(applicationCtx, cfg.ProjectID)
	if err != nil {
		return bs, err
	}

	switch cfg.CredentialStore {
	case dto.CredentialStoreSecretManager:
		bs.Secrets, err = secretmanager.NewClient(applicationCtx)
		if err != nil {
			return bs, err
		}
		bs.Credentials = store.NewPlaidSecretsStore(bs.Secrets, cfg.ProjectID)
	default:
		if cfg.KMSKeyName == "" {
			return bs, errors.New("KMSKEYNAME is required for the kms credential store")
		}
		bs.KMS, err = gcpkms.NewKeyManagementClient(applicationCtx)
		if err != nil {
			return bs, err
		}
		bs.Credentials = store.NewKMSCredentialStore(bs.Firestore, crypto.NewKMS(bs.KMS, cfg.KMSKeyName))
	}

	bs.PlaidAdapter = plaidclient.NewAdapter(cfg.PlaidClientID, cfg.PlaidSecret, cfg.PlaidEnvironment)

	return bs, nil
}

// Close releases every client that was opened, even after a partial Run.
func (bs *Bootstrap) Close() {
	if bs.Firestore != nil {
		if err := bs.Firestore.Close(); err != nil {
			bs.Log.Warn("failed to close firestore client", "error", err)
		}
	}
	if bs.KMS != nil {
		if err := bs.KMS.Close(); err != nil {
			bs.Log.Warn("failed to close kms client", "error", err)
		}
	}
	if bs.Secrets != nil {
		if err := bs.Secrets.Close(); err != nil {
			bs.Log.Warn("failed to close secret manager client", "error", err)
		}
	}
}
