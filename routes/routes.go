package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/teteocan/aurora-admin/app"
	"github.com/teteocan/aurora-admin/handlers"
	"github.com/teteocan/aurora-admin/middleware"
	"github.com/teteocan/aurora-admin/utils"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	cfg := deps.Config
	logger := deps.Logger
	exposeDetail := !cfg.IsProduction()
	auth := deps.AuthMiddleware

	healthHandler := handlers.NewHealthHandler(deps.SQLDB(), deps.AuditSQLDB(), deps.Audit, logger)
	loginHandler := handlers.NewLoginHandler(logger)
	adminHandler := handlers.NewAdminHandler(deps.AdminManager, logger, exposeDetail)
	bankHandler := handlers.NewBankInfoHandler(deps.BankInfoSvc, logger, exposeDetail)

	r := chi.NewRouter()

	// Core middleware
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestContext)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(middleware.Metrics(deps.Metrics))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoints
	r.Get("/healthz", healthHandler.HandleHealth)
	r.Get("/readyz", healthHandler.HandleReadiness)
	if cfg.Observability.MetricsEnabled {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	// the sign-in and bootstrap surface is rate limited per client
	limited := func(h http.Handler) http.Handler { return h }
	if cfg.RateLimit.Enabled {
		limited = middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, logger).Limit
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/login", func(r chi.Router) {
			r.Use(limited)
			r.Use(auth.RequireAdmin)
			r.Post("/verify", loginHandler.HandleVerify)
			r.Get("/profile", loginHandler.HandleProfile)
		})

		r.Route("/setup", func(r chi.Router) {
			r.Use(limited)
			r.Use(auth.RequireAdmin)
			r.Get("/check-admin/{email}", adminHandler.HandleCheckAdmin)
			r.Post("/setup-admin", adminHandler.HandleSetupAdmin)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireAdmin)
			r.Post("/", adminHandler.HandleRegisterAdmin)
			r.Get("/records", adminHandler.HandleListRecords)
			r.Post("/{uid}/grant", adminHandler.HandleGrant)
			r.Post("/{uid}/revoke", adminHandler.HandleRevoke)
			r.Get("/{uid}/reconcile", adminHandler.HandleReconcile)
			r.Post("/{uid}/repair", adminHandler.HandleRepair)
			r.Get("/bank-info/{psychologistId}", bankHandler.HandleAdminGet)
			r.Delete("/bank-info/{psychologistId}", bankHandler.HandleDelete)
			r.Get("/bank-info-for-payment", bankHandler.HandleListForPayment)
		})

		r.Route("/bank-info/{psychologistId}", func(r chi.Router) {
			r.Use(auth.RequireAuth)
			r.Use(auth.RequireSelfOrAdmin("psychologistId"))
			r.Get("/", bankHandler.HandleGet)
			r.Put("/", bankHandler.HandlePut)
		})

		if deps.LocalIdentity != nil && cfg.IsDevelopment() {
			devHandler := handlers.NewDevTokenHandler(deps.LocalIdentity, logger)
			r.With(limited).Post("/dev/token", devHandler.HandleToken)
			logger.Warn("development token endpoint enabled at /api/dev/token")
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteErrorCode(w, http.StatusNotFound, "not_found", "endpoint not found", nil)
	})

	return r
}
