package dto

type PlaidEnvironment string

const (
	PlaidSandbox     PlaidEnvironment = "sandbox"
	PlaidDevelopment PlaidEnvironment = "development"
	PlaidProduction  PlaidEnvironment = "production"
)

type CredentialStore string

const (
	CredentialStoreKMS           CredentialStore = "kms"
	CredentialStoreSecretManager CredentialStore = "secretmanager"
)

// PlaidAccount is an account snapshot from /accounts/get. Balance is in
// currency units as Plaid reports it.
type PlaidAccount struct {
	AccountID    string
	Name         string
	OfficialName string
	Mask         string
	Type         string
	Subtype      string
	Currency     string
	Balance      float64
}

// PlaidTransaction is a raw added/modified record. Amount is outflow-positive
// and Date/AuthorizedDate are YYYY-MM-DD or empty.
type PlaidTransaction struct {
	TransactionID  string
	AccountID      string
	Amount         float64
	Date           string
	AuthorizedDate string
	Pending        bool
	Name           string
	MerchantName   string
	Categories     []string
}

// PlaidSyncRequest asks for one /transactions/sync page. DaysRequested is only
// honoured by Plaid when Cursor is empty.
type PlaidSyncRequest struct {
	AccessToken   string
	Cursor        string
	DaysRequested int
}

// Plaid adapter result - represents one page from /transactions/sync
type PlaidSyncPage struct {
	Added      []PlaidTransaction
	Modified   []PlaidTransaction
	Removed    []string // transaction ids
	NextCursor string
	HasMore    bool
}

type SyncOptions struct {
	DaysRequested  int  `json:"daysRequested,omitempty"`
	IncludePending bool `json:"includePending,omitempty"`
}

// Metadata from the transaction sync process
type SyncTransactionsResult struct {
	BankID                  string `json:"bankId"`
	Pages                   int    `json:"pages"`
	Added                   int    `json:"addedCount"`
	Modified                int    `json:"modifiedCount"`
	Removed                 int    `json:"removedCount"`
	SkippedUntracked        int    `json:"skippedUntracked"`
	SkippedPending          int    `json:"skippedPending"`
	SkippedBeforeTrackedOn  int    `json:"skippedBeforeTrackedOn"`
	SkippedRemovedAllocated int    `json:"skippedRemovedAllocated"`
	SkippedModifiedMissing  int    `json:"skippedModifiedMissing"`
	Cursor                  string `json:"cursor"`
}

type BankSyncOutcome struct {
	BankID       string                 `json:"bankId"`
	Accounts     int                    `json:"accounts"`
	Transactions SyncTransactionsResult `json:"transactions"`
	Error        string                 `json:"error,omitempty"`
}

type SyncAllResult struct {
	BanksSynced int               `json:"banksSynced"`
	BanksFailed int               `json:"banksFailed"`
	Banks       []BankSyncOutcome `json:"banks"`
}
