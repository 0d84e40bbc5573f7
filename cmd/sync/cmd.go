// Command sync runs one reconciliation pass over every bank connection of a
// user. It is meant for a scheduled job rather than the HTTP surface.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/GregMSThompson/envelope-ledger/internal/bootstrap"
	"github.com/GregMSThompson/envelope-ledger/internal/config"
	"github.com/GregMSThompson/envelope-ledger/internal/dto"
	"github.com/GregMSThompson/envelope-ledger/internal/services"
	"github.com/GregMSThompson/envelope-ledger/internal/store"
	"github.com/GregMSThompson/envelope-ledger/pkg/logger"
)

const (
	exitOK    = 0
	exitFail  = 1
	exitUsage = 2
)

func main() {
	os.Exit(run())
}

// run returns the process exit code so deferred cleanup finishes first.
func run() int {
	uid := flag.String("uid", "", "user whose banks are synced")
	days := flag.Int("days", 0, "days of history requested on a first sync (0 uses PLAIDDAYSREQUESTED)")
	flag.Parse()

	// bootstrap
	cfg := config.New()
	bs, err := bootstrap.Run(cfg)
	defer bs.Close()
	if err != nil {
		bs.Log.Error("bootstrap failed", "error", err)
		return exitFail
	}

	if *uid == "" {
		bs.Log.Error("missing -uid")
		return exitUsage
	}

	// stores
	tstore := store.NewTransactionStore(bs.Firestore)
	bstore := store.NewBankStore(bs.Firestore)
	acstore := store.NewAccountStore(bs.Firestore)

	// services
	plserv := services.NewPlaidService(bs.PlaidAdapter, bstore, acstore, tstore, bs.Credentials, cfg.SyncDefaults(), cfg.SyncConcurrency)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	log, ctx := logger.With(logger.ToContext(ctx, bs.Log), "uid", *uid, "job", "sync")

	opts := cfg.SyncDefaults()
	if *days > 0 {
		opts.DaysRequested = *days
	}

	result, err := plserv.SyncAll(ctx, *uid, opts)
	if err != nil {
		log.Error("sync failed", "error", err)
		return exitFail
	}

	log.Info("sync finished", "banks_synced", result.BanksSynced, "banks_failed", result.BanksFailed)
	return exitCode(result)
}

func exitCode(result dto.SyncAllResult) int {
	if result.BanksFailed > 0 {
		return exitFail
	}
	return exitOK
}
