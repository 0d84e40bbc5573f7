package router

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/GregMSThompson/envelope-ledger/internal/handlers"
	"github.com/GregMSThompson/envelope-ledger/internal/middleware"
)

func NewRouter(deps *handlers.Deps) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(middleware.NewLoggerMiddleware(deps.Log).LoggerMiddleware)
	r.Use(chimiddleware.Recoverer)

	plh := handlers.NewPlaidHandlers(deps)
	lgh := handlers.NewLedgerHandlers(deps)
	enh := handlers.NewEnvelopeHandlers(deps)

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewMiddleware(deps.Firebase, deps.ResponseHandler).FirebaseAuth)

		plh.PlaidRoutes(r)
		lgh.LedgerRoutes(r)
		r.Mount("/envelopes", enh.EnvelopeRoutes())
	})
	return r
}
