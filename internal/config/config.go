package config

import (
	"os"
	"strconv"

	"github.com/GregMSThompson/envelope-ledger/internal/dto"
)

type Config struct {
	ProjectID        string
	Region           string
	LogLevel         string
	Port             string
	PlaidClientID    string
	PlaidSecret      string
	PlaidEnvironment dto.PlaidEnvironment
	KMSKeyName       string
	CredentialStore  dto.CredentialStore
	DaysRequested    int
	IncludePending   bool
	SyncConcurrency  int
}

func New() *Config {
	return &Config{
		ProjectID:        os.Getenv("PROJECTID"),
		Region:           os.Getenv("REGION"),
		LogLevel:         os.Getenv("LOGLEVEL"),
		Port:             getString("PORT", "8080"),
		PlaidClientID:    os.Getenv("PLAIDCLIENTID"),
		PlaidSecret:      os.Getenv("PLAIDSECRET"),
		PlaidEnvironment: getPlaidEnvironment(os.Getenv("PLAIDENVIRONMENT")),
		KMSKeyName:       os.Getenv("KMSKEYNAME"),
		CredentialStore:  getCredentialStore(os.Getenv("CREDENTIALSTORE")),
		DaysRequested:    getInt("PLAIDDAYSREQUESTED", 90),
		IncludePending:   getBool("PLAIDINCLUDEPENDING", false),
		SyncConcurrency:  getInt("SYNCCONCURRENCY", 3),
	}
}

// SyncDefaults are applied when a sync request leaves options unset.
func (c *Config) SyncDefaults() dto.SyncOptions {
	return dto.SyncOptions{
		DaysRequested:  c.DaysRequested,
		IncludePending: c.IncludePending,
	}
}

func getPlaidEnvironment(env string) dto.PlaidEnvironment {
	switch env {
	case "sandbox":
		return dto.PlaidSandbox
	case "development":
		return dto.PlaidDevelopment
	default: // "production"
		return dto.PlaidProduction
	}
}

func getCredentialStore(v string) dto.CredentialStore {
	if v == string(dto.CredentialStoreSecretManager) {
		return dto.CredentialStoreSecretManager
	}
	return dto.CredentialStoreKMS
}

func getString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
