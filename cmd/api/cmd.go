package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/GregMSThompson/envelope-ledger/internal/bootstrap"
	"github.com/GregMSThompson/envelope-ledger/internal/config"
	"github.com/GregMSThompson/envelope-ledger/internal/handlers"
	"github.com/GregMSThompson/envelope-ledger/internal/response"
	"github.com/GregMSThompson/envelope-ledger/internal/router"
	"github.com/GregMSThompson/envelope-ledger/internal/services"
	"github.com/GregMSThompson/envelope-ledger/internal/store"
)

func exitOnError(message string, err error, log *slog.Logger) {
	if err != nil {
		log.Error(message, "error", err)
		os.Exit(1)
	}
}

func main() {
	// bootstrap
	cfg := config.New()
	bs, err := bootstrap.Run(cfg)
	exitOnError("bootstrap failed", err, bs.Log)
	defer bs.Close()

	// stores
	lstore := store.NewLedgerStore(bs.Firestore)
	tstore := store.NewTransactionStore(bs.Firestore)
	bstore := store.NewBankStore(bs.Firestore)
	acstore := store.NewAccountStore(bs.Firestore)
	estore := store.NewEnvelopeStore(bs.Firestore)

	// services
	bserv := services.NewBankService(bstore, acstore, tstore, bs.Credentials, bs.PlaidAdapter)
	plserv := services.NewPlaidService(bs.PlaidAdapter, bstore, acstore, tstore, bs.Credentials, cfg.SyncDefaults(), cfg.SyncConcurrency)
	alserv := services.NewAllocationService(lstore)
	trserv := services.NewTrackingService(lstore, tstore)
	enserv := services.NewEnvelopeService(estore)

	// response handler
	rh := response.New(bs.Log)

	// dependancies
	deps := new(handlers.Deps)
	deps.Log = bs.Log
	deps.ResponseHandler = rh
	deps.Firebase = bs.Firebase
	deps.BankSvc = bserv
	deps.PlaidSvc = plserv
	deps.AllocationSvc = alserv
	deps.TrackingSvc = trserv
	deps.EnvelopeSvc = enserv
	deps.SyncDefaults = cfg.SyncDefaults()

	// router
	r := router.NewRouter(deps)
	bs.Log.Info("listening", "port", cfg.Port)
	err = http.ListenAndServe(":"+cfg.Port, r)
	exitOnError("server start failed", err, bs.Log)
}
