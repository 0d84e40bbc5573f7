package models

import (
	"time"
)

// Bank is a Plaid item (one institution login). Cursor is the
// /transactions/sync position and only moves after a page is merged.
type Bank struct {
	BankID       string     `firestore:"bankId" json:"bankId"`
	Institution  string     `firestore:"institution" json:"institution"`
	Status       string     `firestore:"status" json:"status"` // e.g. "active", "error"
	AccessToken  string     `firestore:"accessToken,omitempty" json:"-"`
	Cursor       string     `firestore:"cursor,omitempty" json:"-"`
	LastSyncedAt *time.Time `firestore:"lastSyncedAt" json:"lastSyncedAt,omitempty"`
	LastError    string     `firestore:"lastError,omitempty" json:"lastError,omitempty"`
	LastErrorAt  *time.Time `firestore:"lastErrorAt" json:"lastErrorAt,omitempty"`
	CreatedAt    time.Time  `firestore:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time  `firestore:"updatedAt" json:"updatedAt"`
}

const (
	BankStatusActive = "active"
	BankStatusError  = "error"
)
