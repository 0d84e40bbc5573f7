package config

import (
	"testing"

	"github.com/GregMSThompson/envelope-ledger/internal/dto"
)

func TestNewDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("PLAIDDAYSREQUESTED", "")
	t.Setenv("PLAIDINCLUDEPENDING", "")
	t.Setenv("SYNCCONCURRENCY", "")
	t.Setenv("CREDENTIALSTORE", "")
	t.Setenv("PLAIDENVIRONMENT", "")

	cfg := New()

	if cfg.Port != "8080" {
		t.Fatalf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.DaysRequested != 90 || cfg.IncludePending || cfg.SyncConcurrency != 3 {
		t.Fatalf("unexpected sync defaults: %+v", cfg)
	}
	if cfg.CredentialStore != dto.CredentialStoreKMS {
		t.Fatalf("CredentialStore = %q", cfg.CredentialStore)
	}
	if cfg.PlaidEnvironment != dto.PlaidProduction {
		t.Fatalf("PlaidEnvironment = %q", cfg.PlaidEnvironment)
	}
}

func TestNewOverrides(t *testing.T) {
	t.Setenv("PLAIDDAYSREQUESTED", "30")
	t.Setenv("PLAIDINCLUDEPENDING", "true")
	t.Setenv("SYNCCONCURRENCY", "-1")
	t.Setenv("CREDENTIALSTORE", "secretmanager")
	t.Setenv("PLAIDENVIRONMENT", "sandbox")

	cfg := New()

	if got := cfg.SyncDefaults(); got.DaysRequested != 30 || !got.IncludePending {
		t.Fatalf("SyncDefaults = %+v", got)
	}
	if cfg.SyncConcurrency != 3 {
		t.Fatalf("negative concurrency should fall back, got %d", cfg.SyncConcurrency)
	}
	if cfg.CredentialStore != dto.CredentialStoreSecretManager {
		t.Fatalf("CredentialStore = %q", cfg.CredentialStore)
	}
	if cfg.PlaidEnvironment != dto.PlaidSandbox {
		t.Fatalf("PlaidEnvironment = %q", cfg.PlaidEnvironment)
	}
}
