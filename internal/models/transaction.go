package models

import (
	"time"
)

type TransactionKind string

const (
	KindReal           TransactionKind = "REAL"
	KindAccountTrack   TransactionKind = "ACCOUNT_TRACK"
	KindAccountUntrack TransactionKind = "ACCOUNT_UNTRACK"
)

// Transaction is one money movement on an account. Amount is signed cents,
// positive for inflow. Allocated counts how much of |Amount| has been
// distributed to envelopes.
type Transaction struct {
	TransactionID       string          `firestore:"transactionId" json:"transactionId"` // Plaid transaction_id for REAL, uuid otherwise (doc ID)
	AccountID           string          `firestore:"accountId" json:"accountId"`
	BankID              string          `firestore:"bankId" json:"bankId"` // Plaid item_id
	Kind                TransactionKind `firestore:"kind" json:"kind"`
	Amount              int64           `firestore:"amount" json:"amount"`
	Allocated           int64           `firestore:"allocated" json:"allocated"`
	FullyAllocated      bool            `firestore:"fullyAllocated" json:"fullyAllocated"`
	PostedAt            time.Time       `firestore:"postedAt" json:"postedAt"`
	ExternalID          string          `firestore:"externalId,omitempty" json:"externalId,omitempty"`
	Name                string          `firestore:"name" json:"name"`
	MerchantName        string          `firestore:"merchantName,omitempty" json:"merchantName,omitempty"`
	Categories          []string        `firestore:"categories,omitempty" json:"categories,omitempty"`
	Pending             bool            `firestore:"pending" json:"pending"`
	FromAccountTracking bool            `firestore:"fromAccountTracking" json:"fromAccountTracking"`
	CreatedAt           time.Time       `firestore:"createdAt" json:"createdAt"`
	UpdatedAt           time.Time       `firestore:"updatedAt" json:"updatedAt"`
}

// Magnitude is |Amount|.
func (t *Transaction) Magnitude() int64 {
	if t.Amount < 0 {
		return -t.Amount
	}
	return t.Amount
}

// Remaining is the part of |Amount| not yet allocated; never negative.
func (t *Transaction) Remaining() int64 {
	r := t.Magnitude() - t.Allocated
	if r < 0 {
		return 0
	}
	return r
}

func (t *Transaction) IsDebit() bool { return t.Amount < 0 }

// IsUntracking reports whether t is the synthetic debit created when tracking was turned off.
func (t *Transaction) IsUntracking() bool {
	return t.Kind == KindAccountUntrack && t.FromAccountTracking && t.Amount < 0
}

// SyncAllocationState recomputes the stored FullyAllocated flag.
func (t *Transaction) SyncAllocationState() {
	t.FullyAllocated = t.Allocated >= t.Magnitude()
}
