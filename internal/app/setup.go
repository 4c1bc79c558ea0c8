// Package app contains the application setup for the back office service.
package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"

	"github.com/trinitystore/backoffice/internal/catalog"
	catalogstore "github.com/trinitystore/backoffice/internal/catalog/store"
	"github.com/trinitystore/backoffice/internal/checkout"
	"github.com/trinitystore/backoffice/internal/config"
	"github.com/trinitystore/backoffice/internal/gateway"
	"github.com/trinitystore/backoffice/internal/inventory"
	"github.com/trinitystore/backoffice/internal/ledger"
	ledgerstore "github.com/trinitystore/backoffice/internal/ledger/store"
	"github.com/trinitystore/backoffice/internal/report"
	"github.com/trinitystore/backoffice/internal/transport/rest"
	"github.com/trinitystore/backoffice/pkg/auth"
	"github.com/trinitystore/backoffice/pkg/messaging"
	"github.com/trinitystore/backoffice/pkg/server"
	"github.com/trinitystore/backoffice/pkg/web"
)

const meterName = "backoffice"

type Dependencies struct {
	Catalog        *catalog.Service
	Checkout       checkout.Orchestrator
	Ledger         *ledger.Service
	Report         *report.Service
	Verifier       auth.Verifier
	MetricsHandler http.Handler
	Logger         *slog.Logger
}

// SetupDependencies wires the domain services onto the database pool and the
// external collaborators.
func SetupDependencies(
	dbPool *pgxpool.Pool,
	gatewayClient gateway.Client,
	publisher messaging.Publisher,
	verifier auth.Verifier,
	metricsHandler http.Handler,
	cfg *config.Config,
	logger *slog.Logger,
) *Dependencies {
	productStore := catalogstore.NewPgStore(dbPool)
	invoiceStore := ledgerstore.NewPgStore(dbPool)

	lookup := catalog.NewOpenFoodFactsClient(cfg.Lookup.BaseURL, cfg.Lookup.Timeout)
	catalogService := catalog.NewService(productStore, lookup, logger)
	ledgerService := ledger.NewService(invoiceStore, productStore, logger)
	guard := inventory.NewPgGuard(dbPool)
	reportService := report.NewService(report.NewPgStore(dbPool), logger)

	checkoutService := checkout.NewService(
		productStore,
		guard,
		gatewayClient,
		ledgerService,
		publisher,
		otel.GetMeterProvider().Meter(meterName),
		cfg.Gateway.Currency,
		logger,
	)

	return &Dependencies{
		Catalog:        catalogService,
		Checkout:       checkoutService,
		Ledger:         ledgerService,
		Report:         reportService,
		Verifier:       verifier,
		MetricsHandler: metricsHandler,
		Logger:         logger,
	}
}

// SetupHttpHandler initializes the HTTP routes and middleware.
// Used by E2E tests to set up the HTTP server without binding a port.
func SetupHttpHandler(deps *Dependencies, cfg *config.Config) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	wireRoutes(mux, deps, cfg)
	return mux
}

// wireRoutes sets up the HTTP routes for the back office application.
func wireRoutes(mux *chi.Mux, deps *Dependencies, cfg *config.Config) {
	validate := validator.New()

	handlers := rest.Handlers{
		Product:  rest.NewProductHandler(deps.Catalog, validate, deps.Logger),
		Checkout: rest.NewCheckoutHandler(deps.Checkout, validate, deps.Logger),
		Invoice:  rest.NewInvoiceHandler(deps.Ledger, deps.Logger),
		Report:   rest.NewReportHandler(deps.Report, deps.Logger),
	}

	authMiddleware := web.HeaderAuthMiddleware
	if cfg.IdP.Enabled {
		authMiddleware = web.BearerAuthMiddleware(deps.Verifier, deps.Logger)
	}
	rest.RegisterRoutes(mux, handlers, authMiddleware)

	mux.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if deps.MetricsHandler != nil {
		mux.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}
}

// SetupHttpServer creates and configures the HTTP server for the application.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {
	mux := SetupHttpHandler(deps, cfg)

	httpCfg := server.HTTPConfig{
		Port:           cfg.HTTPServer.Port,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		ReadTimeout:    cfg.HTTPServer.Timeout.Read,
		WriteTimeout:   cfg.HTTPServer.Timeout.Write,
		IdleTimeout:    cfg.HTTPServer.Timeout.Idle,
		ReadHeader:     cfg.HTTPServer.Timeout.ReadHeader,
	}
	return server.NewHTTPServer(httpCfg, mux)
}
