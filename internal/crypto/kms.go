package crypto

import (
	"context"
	"encoding/base64"

	gcpkms "cloud.google.com/go/kms/apiv1"
	"cloud.google.com/go/kms/apiv1/kmspb"

	"github.com/GregMSThompson/envelope-ledger/internal/errs"
)

type kms struct {
	client  *gcpkms.KeyManagementClient
	keyName string
}

func NewKMS(client *gcpkms.KeyManagementClient, keyName string) *kms {
	return &kms{client: client, keyName: keyName}
}

// Encrypt seals plaintext with the configured key and returns base64 text
// suitable for a Firestore string field.
func (k *kms) Encrypt(ctx context.Context, plaintext string) (string, error) {
	resp, err := k.client.Encrypt(ctx, &kmspb.EncryptRequest{
		Name:      k.keyName,
		Plaintext: []byte(plaintext),
	})
	if err != nil {
		return "", errs.NewEncryptionError("kms encrypt failed", err)
	}
	return base64.StdEncoding.EncodeToString(resp.Ciphertext), nil
}

func (k *kms) Decrypt(ctx context.Context, ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", errs.NewEncryptionError("ciphertext is not valid base64", err)
	}
	resp, err := k.client.Decrypt(ctx, &kmspb.DecryptRequest{
		Name:       k.keyName,
		Ciphertext: raw,
	})
	if err != nil {
		return "", errs.NewEncryptionError("kms decrypt failed", err)
	}
	return string(resp.Plaintext), nil
}
