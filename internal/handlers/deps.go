package handlers

import (
	"log/slog"

	"firebase.google.com/go/v4/auth"

	"github.com/GregMSThompson/envelope-ledger/internal/dto"
	"github.com/GregMSThompson/envelope-ledger/internal/response"
)

type Deps struct {
	Log             *slog.Logger
	ResponseHandler response.ResponseHandler
	PlaidSvc        plaidService
	BankSvc         bankService
	AllocationSvc   allocationService
	TrackingSvc     trackingService
	EnvelopeSvc     envelopeService
	SyncDefaults    dto.SyncOptions
	Firebase        *auth.Client
}
