package dto

import "github.com/GregMSThompson/envelope-ledger/internal/models"

type TransactionQuery struct {
	AccountID       *string
	BankID          *string
	UnallocatedOnly bool
	Limit           int
}

// AllocationSplit assigns Amount cents of a transaction to one envelope.
type AllocationSplit struct {
	EnvelopeID string `json:"envelopeId"`
	Amount     int64  `json:"amount"`
}

type AllocateRequest struct {
	Splits []AllocationSplit `json:"splits"`
}

// AllocationResult holds the post-commit state. When Purged is true the
// transaction no longer exists in storage.
type AllocationResult struct {
	Transaction *models.Transaction `json:"transaction"`
	Envelopes   []*models.Envelope  `json:"envelopes"`
	Purged      bool                `json:"purged"`
	PurgedCount int                 `json:"purgedCount,omitempty"`
}

type SetTrackingRequest struct {
	Enabled *bool `json:"enabled"`
}

type ResetBalancingResult struct {
	DeletedCount int `json:"deletedCount"`
}

// TrackingResult is returned by SetTracking. Transaction is the synthetic
// balancing transaction, nil on a no-op or when the account was purged directly.
// Untracking an account with nothing allocated writes no ACCOUNT_UNTRACK
// transaction; Purged is true and PurgedCount holds the deleted rows.
type TrackingResult struct {
	Account     *models.Account     `json:"account"`
	Transaction *models.Transaction `json:"transaction,omitempty"`
	Purged      bool                `json:"purged"`
	PurgedCount int                 `json:"purgedCount,omitempty"`
}
