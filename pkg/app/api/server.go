// Package api implements app.Runner for the registry API server process.
package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	adminservice "github.com/exwaizedd/exam-pass/pkg/admin/service"
	apphttp "github.com/exwaizedd/exam-pass/pkg/app/http"
	"github.com/exwaizedd/exam-pass/pkg/auth"
	"github.com/exwaizedd/exam-pass/pkg/config"
	"github.com/exwaizedd/exam-pass/pkg/events"
	"github.com/exwaizedd/exam-pass/pkg/ledger"
	participantservice "github.com/exwaizedd/exam-pass/pkg/participant/service"
	passservice "github.com/exwaizedd/exam-pass/pkg/pass/service"
	"github.com/exwaizedd/exam-pass/pkg/pgutil"
	"github.com/exwaizedd/exam-pass/pkg/regstore"
	verifyservice "github.com/exwaizedd/exam-pass/pkg/verify/service"
)

// Server holds cfg to init the api server.
type Server struct {
	cfg *config.Config
}

// NewServer initializes new api server.
func NewServer(cfg *config.Config) *Server {
	return &Server{cfg: cfg}
}

// Run starts the API server and blocks until shutdown.
func (s *Server) Run() error {
	if s.cfg == nil {
		return fmt.Errorf("api server config is nil")
	}
	cfg := s.cfg

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting registry API server",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.String("storage", cfg.Storage.Backend),
		zap.String("ledger", cfg.Ledger.Backend),
	)

	store, closeStore, err := s.openStore(logger)
	if err != nil {
		return err
	}
	defer closeStore()

	passLedger, closeLedger, err := s.openLedger(logger)
	if err != nil {
		return err
	}
	defer closeLedger()

	emitter := events.MultiEmitter{
		events.NewLogEmitter(logger),
		events.NewStoreEmitter(store, logger),
	}

	tokens := auth.NewTokenService(cfg.Auth)

	registration := participantservice.NewLog(participantservice.NewService(store, emitter, logger), logger)
	passes := passservice.NewLog(passservice.NewService(store, passLedger, emitter, logger), logger)
	verification := verifyservice.NewLog(verifyservice.NewService(store, passLedger, logger), logger)
	admin := adminservice.NewLog(adminservice.NewService(store, passes, emitter, logger), logger)

	router := s.setupRouter(tokens, registration, passes, verification, admin, logger)

	return apphttp.ServeAndWait(ctx, router, logger, &cfg.Server)
}

func (s *Server) openStore(logger *zap.Logger) (regstore.Store, func(), error) {
	if s.cfg.Storage.Backend == "memory" {
		logger.Warn("Using in-memory store, state is lost on restart")
		return regstore.NewMemoryStore(), func() {}, nil
	}

	db, err := pgutil.ConnectDB(&s.cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	logger.Info("Connected to database",
		zap.String("host", s.cfg.Database.Host),
		zap.String("database", s.cfg.Database.Database))
	return regstore.NewStore(db), func() { _ = db.Close() }, nil
}

func (s *Server) openLedger(logger *zap.Logger) (ledger.Ledger, func(), error) {
	if s.cfg.Ledger.Backend == "memory" {
		logger.Warn("Using in-memory ledger, passes are lost on restart")
		return ledger.NewMemoryLedger(), func() {}, nil
	}

	evm, err := ledger.NewEVMLedger(&s.cfg.Ledger, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connect ledger: %w", err)
	}
	return evm, evm.Close, nil
}

func (s *Server) setupRouter(
	tokens *auth.TokenService,
	registration participantservice.Service,
	passes passservice.Service,
	verification verifyservice.Service,
	admin adminservice.Service,
	logger *zap.Logger,
) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(tokens.Middleware)

		participantservice.RegisterRoutes(r, registration, logger)
		passservice.RegisterRoutes(r, passes, logger)
		verifyservice.RegisterRoutes(r, verification, logger)

		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireAdmin)
			adminservice.RegisterRoutes(r, admin, logger)
		})
	})

	return r
}
