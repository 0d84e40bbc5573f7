package models

import "time"

// Account is one Plaid account under a bank connection.
type Account struct {
	AccountID         string     `firestore:"accountId" json:"accountId"` // Plaid account_id (doc ID)
	BankID            string     `firestore:"bankId" json:"bankId"`
	Name              string     `firestore:"name" json:"name"`
	OfficialName      string     `firestore:"officialName,omitempty" json:"officialName,omitempty"`
	Mask              string     `firestore:"mask,omitempty" json:"mask,omitempty"`
	Type              string     `firestore:"type" json:"type"`
	Subtype           string     `firestore:"subtype,omitempty" json:"subtype,omitempty"`
	Currency          string     `firestore:"currency,omitempty" json:"currency,omitempty"`
	BalanceCurrent    int64      `firestore:"balanceCurrent" json:"balanceCurrent"`       // cents
	AllocationCurrent int64      `firestore:"allocationCurrent" json:"allocationCurrent"` // cents distributed to envelopes while tracked
	Tracking          bool       `firestore:"tracking" json:"tracking"`
	TrackedOn         *time.Time `firestore:"trackedOn" json:"trackedOn,omitempty"`
	CreatedAt         time.Time  `firestore:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time  `firestore:"updatedAt" json:"updatedAt"`
}
