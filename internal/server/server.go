package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/centsibleapp/centsible/internal/config"
	"github.com/centsibleapp/centsible/internal/email"
	"github.com/centsibleapp/centsible/internal/events"
	"github.com/centsibleapp/centsible/internal/handler"
	"github.com/centsibleapp/centsible/internal/middleware"
	"github.com/centsibleapp/centsible/internal/payments"
	"github.com/centsibleapp/centsible/internal/store"
	"github.com/centsibleapp/centsible/internal/token"
)

type Server struct {
	db             *sql.DB
	feed           *events.Feed
	tokens         *token.Service
	authH          *handler.AuthHandler
	customerH      *handler.CustomerHandler
	lessonH        *handler.LessonHandler
	calculatorH    *handler.CalculatorHandler
	billingH       *handler.BillingHandler
	backupH        *handler.BackupHandler
	usedTokenStore *store.UsedTokenStore
	rateLimiter    *middleware.RateLimiter
	cfg            *config.Config
	logger         *slog.Logger
}

func New(db *sql.DB, cfg *config.Config, emailClient *email.Client, logger *slog.Logger) *Server {
	feed := events.NewFeed(logger.With("component", "events"))
	tokens := token.NewService(cfg.SessionSecret)

	customerStore := store.NewCustomerStore(db)
	lessonStore := store.NewLessonStore(db)
	calculatorStore := store.NewCalculatorStore(db)
	usedTokenStore := store.NewUsedTokenStore(db)
	backupStore := store.NewBackupStore(db)

	var billingClient *payments.Client
	if cfg.StripeSecretKey != "" {
		billingClient = payments.NewClient(payments.Config{
			SecretKey: cfg.StripeSecretKey,
			ReturnURL: cfg.BaseURL,
		})
	}

	return &Server{
		db:             db,
		feed:           feed,
		tokens:         tokens,
		authH:          handler.NewAuthHandler(tokens, customerStore, usedTokenStore, emailClient, cfg.BaseURL, cfg.LandingPath, logger.With("component", "auth")),
		customerH:      handler.NewCustomerHandler(customerStore, billingClient, logger.With("component", "customer")),
		lessonH:        handler.NewLessonHandler(lessonStore, feed, logger.With("component", "lesson")),
		calculatorH:    handler.NewCalculatorHandler(calculatorStore, feed, logger.With("component", "calculator")),
		billingH:       handler.NewBillingHandler(customerStore, billingClient, logger.With("component", "billing")),
		backupH:        handler.NewBackupHandler(backupStore, logger.With("component", "backup")),
		usedTokenStore: usedTokenStore,
		rateLimiter:    middleware.NewRateLimiter(),
		cfg:            cfg,
		logger:         logger,
	}
}

// UsedTokenStore returns the used-token store for cleanup tasks.
func (s *Server) UsedTokenStore() *store.UsedTokenStore {
	return s.usedTokenStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	// Magic-link flow. The verify handler is mounted on both historical
	// paths; both share one cookie policy.
	mux.HandleFunc("POST /auth/magic-link", s.rateLimitedHandler(s.authH.RequestMagicLink))
	mux.HandleFunc("GET /auth/magic-link", s.authH.VerifyMagicLink)
	mux.HandleFunc("GET /auth/verify", s.authH.VerifyMagicLink)
	mux.HandleFunc("POST /auth/logout", s.authH.Logout)

	// Public customer-data collection
	mux.HandleFunc("POST /customers", s.rateLimitedHandler(s.customerH.Upsert))
	mux.HandleFunc("GET /customers/check-email", s.customerH.CheckEmail)

	// Public content reads
	mux.HandleFunc("GET /lessons", s.lessonH.List)
	mux.HandleFunc("GET /lessons/{id}", s.lessonH.Get)
	mux.HandleFunc("GET /calculators", s.calculatorH.List)
	mux.HandleFunc("GET /calculators/{id}", s.calculatorH.Get)
	mux.HandleFunc("POST /calculators/{id}/evaluate", s.calculatorH.Evaluate)

	mux.HandleFunc("GET /health", s.healthHandler)

	// Admin routes — session + admin gate
	adminMux := http.NewServeMux()
	adminMux.HandleFunc("GET /customers", s.customerH.List)
	adminMux.HandleFunc("POST /lessons", s.lessonH.Create)
	adminMux.HandleFunc("PUT /lessons/{id}", s.lessonH.Update)
	adminMux.HandleFunc("DELETE /lessons/{id}", s.lessonH.Delete)
	adminMux.HandleFunc("POST /calculators", s.calculatorH.Create)
	adminMux.HandleFunc("PUT /calculators/{id}", s.calculatorH.Update)
	adminMux.HandleFunc("DELETE /calculators/{id}", s.calculatorH.Delete)
	adminMux.HandleFunc("POST /calculators/analyze", s.calculatorH.Analyze)
	adminMux.HandleFunc("GET /billing/customers/{id}/portal", s.billingH.PortalSession)
	adminMux.HandleFunc("GET /backups", s.backupH.List)
	adminMux.HandleFunc("DELETE /backups/{id}", s.backupH.Delete)
	adminMux.HandleFunc("GET /events", events.Handler(s.feed, s.logger.With("component", "events")))

	requireSession := middleware.RequireSession(s.tokens, s.cfg.IsAdmin)
	admin := requireSession(middleware.RequireAdmin(adminMux))
	mux.Handle("GET /customers", admin)
	mux.Handle("POST /lessons", admin)
	mux.Handle("PUT /lessons/{id}", admin)
	mux.Handle("DELETE /lessons/{id}", admin)
	mux.Handle("POST /calculators", admin)
	mux.Handle("PUT /calculators/{id}", admin)
	mux.Handle("DELETE /calculators/{id}", admin)
	mux.Handle("POST /calculators/analyze", admin)
	mux.Handle("GET /billing/customers/{id}/portal", admin)
	mux.Handle("GET /backups", admin)
	mux.Handle("DELETE /backups/{id}", admin)
	mux.Handle("GET /events", admin)

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}
