package api

import (
	"log/slog"
	"net/http"
	"time"

	"corebank/internal/api/handler"
	mw "corebank/internal/api/middleware"
	"corebank/internal/config"
	"corebank/internal/domain/account"
	"corebank/internal/domain/customer"
	"corebank/internal/domain/identity"
	"corebank/internal/domain/loan"

	_ "corebank/docs"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/traceid"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

func SetupRouter(
	identityService identity.IdentityService,
	customerService customer.CustomerService,
	accountService account.AccountService,
	loanService loan.LoanService,
	cfg *config.Config,
	logger *slog.Logger,
) *chi.Mux {
	router := chi.NewRouter()

	setupMiddleware(router, cfg, logger)
	setupMetricsEndpoint(router, cfg, logger)
	setupAuthRoutes(router, identityService, cfg, logger)
	setupUserRoutes(router, identityService, cfg, logger)
	setupCustomerRoutes(router, customerService, cfg, logger)
	setupAccountRoutes(router, accountService, cfg, logger)
	setupLoanRoutes(router, loanService, cfg, logger)
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	setupSwaggerEndpoint(router, logger)

	return router
}

func setupMiddleware(router *chi.Mux, cfg *config.Config, logger *slog.Logger) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(traceid.Middleware)
	router.Use(mw.StructuredLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(middleware.Timeout(60 * time.Second))
	router.Use(mw.NewRateLimiterMiddleware(cfg.Server.RateLimit, logger).Middleware)
	router.Use(mw.MetricsMiddleware())
}

func setupMetricsEndpoint(router *chi.Mux, cfg *config.Config, logger *slog.Logger) {
	metricsPath := cfg.Metrics.Path
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	logger.Info("Setting up Prometheus metrics endpoint", "path", metricsPath)
	router.Handle(metricsPath, promhttp.Handler())
}

func setupSwaggerEndpoint(router *chi.Mux, logger *slog.Logger) {
	logger.Info("Setting up Swagger UI endpoint", "path", "/swagger/")
	router.Get("/swagger/*", httpSwagger.WrapHandler)
	router.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/index.html", http.StatusMovedPermanently)
	})
}

func setupAuthRoutes(router *chi.Mux, svc identity.IdentityService, cfg *config.Config, logger *slog.Logger) {
	h := handler.NewAuthHandler(svc, cfg.Server.Auth, logger)

	router.Route("/auth", func(r chi.Router) {
		r.Post("/signup", h.Signup)
		r.Post("/login", h.Login)
		r.Group(func(r chi.Router) {
			r.Use(mw.AuthMiddleware(cfg.Server.Auth, logger))
			r.Post("/logout", h.Logout)
			r.Get("/me", h.Me)
		})
	})
}

func setupUserRoutes(router *chi.Mux, svc identity.IdentityService, cfg *config.Config, logger *slog.Logger) {
	h := handler.NewUserHandler(svc, logger)

	router.Route("/users", func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.Server.Auth, logger))
		r.Post("/", h.CreateUser)
		r.Get("/", h.ListUsers)
		r.Route("/{userCode}", func(r chi.Router) {
			r.Put("/", h.UpdateUser)
			r.Delete("/", h.DeleteUser)
		})
	})
}

func setupCustomerRoutes(router *chi.Mux, svc customer.CustomerService, cfg *config.Config, logger *slog.Logger) {
	h := handler.NewCustomerHandler(svc, logger)

	router.Route("/customers", func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.Server.Auth, logger))
		r.Post("/", h.CreateCustomer)
		r.Get("/", h.ListCustomers)
		r.Get("/me", h.GetOwnCustomer)
		r.Put("/me/documents", h.UpdateIdentityDocuments)
		r.Get("/me/documents/{docType}", h.DownloadOwnDocument)
		r.Route("/{customerCode}", func(r chi.Router) {
			r.Get("/", h.GetCustomer)
			r.Put("/kyc", h.UpdateKYCStatus)
			r.Get("/documents/{docType}", h.DownloadDocument)
		})
	})
}

func setupAccountRoutes(router *chi.Mux, svc account.AccountService, cfg *config.Config, logger *slog.Logger) {
	h := handler.NewAccountHandler(svc, logger)

	router.Route("/accounts", func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.Server.Auth, logger))
		r.Post("/", h.OpenAccount)
		r.Route("/{accountNumber}", func(r chi.Router) {
			r.Post("/deposit", h.Deposit)
			r.Post("/withdraw", h.Withdraw)
			r.Get("/balance", h.GetBalance)
			r.Get("/transactions", h.ListTransactions)
		})
	})
}

func setupLoanRoutes(router *chi.Mux, svc loan.LoanService, cfg *config.Config, logger *slog.Logger) {
	h := handler.NewLoanHandler(svc, logger)

	router.Route("/loans", func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.Server.Auth, logger))
		r.Post("/", h.Apply)
		r.Get("/", h.ListAll)
		r.Get("/me", h.ListMine)
		r.Get("/emi-preview", h.PreviewEMI)
		r.Post("/{loanCode}/review", h.Review)
	})
}
