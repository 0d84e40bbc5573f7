package models

import "time"

type Envelope struct {
	EnvelopeID string    `firestore:"envelopeId" json:"envelopeId"`
	Name       string    `firestore:"name" json:"name"`
	Color      string    `firestore:"color,omitempty" json:"color,omitempty"`
	Balance    int64     `firestore:"balance" json:"balance"` // cents
	Order      int       `firestore:"order" json:"order"`
	CreatedAt  time.Time `firestore:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time `firestore:"updatedAt" json:"updatedAt"`
}

// Allocation is the audit row written for every split applied to an envelope.
// Delta carries the sign applied to the envelope balance.
type Allocation struct {
	AllocationID  string    `firestore:"allocationId" json:"allocationId"`
	TransactionID string    `firestore:"transactionId" json:"transactionId"`
	AccountID     string    `firestore:"accountId" json:"accountId"`
	EnvelopeID    string    `firestore:"envelopeId" json:"envelopeId"`
	Delta         int64     `firestore:"delta" json:"delta"`
	CreatedAt     time.Time `firestore:"createdAt" json:"createdAt"`
}
