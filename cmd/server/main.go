package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/hostelhub/fee-ledger/internal/app"
	"github.com/hostelhub/fee-ledger/internal/cascade"
	"github.com/hostelhub/fee-ledger/internal/config"
	"github.com/hostelhub/fee-ledger/internal/handler"
	"github.com/hostelhub/fee-ledger/internal/logger"
	"github.com/hostelhub/fee-ledger/pkg/response"
	"go.uber.org/zap"
)

// set with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		zap.Must(zap.NewProduction()).Fatal("failed to load configuration", zap.Error(err))
	}

	log, err := logger.New(cfg.Logging)
	if err != nil {
		zap.Must(zap.NewProduction()).Fatal("failed to build logger", zap.Error(err))
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	deps, err := app.New(ctx, cfg, log)
	cancel()
	if err != nil {
		log.Fatal("failed to initialize", zap.Error(err))
	}
	defer deps.Close()

	dispatcher := cascade.NewDispatcher(deps.Ledger.RunCascade, log.Named("cascade"), cascade.Options{
		Workers:   cfg.Ledger.CascadeWorkers,
		QueueSize: cfg.Ledger.CascadeQueueSize,
		Timeout:   cfg.Ledger.CascadeTimeout,
	})
	dispatcher.Start()
	deps.Ledger.SetCascadeScheduler(dispatcher)

	ledgerHandler := handler.NewLedgerHandler(deps.Ledger, log.Named("http"))
	healthHandler := handler.NewHealthHandler(deps.DB, deps.Redis, dispatcher, version, cfg.Health.Timeout)

	// Setup routes
	router := setupRoutes(ledgerHandler, healthHandler, log, cfg.Ledger.OperationTimeout)

	// Start server
	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("server starting", zap.String("addr", server.Addr), zap.String("version", version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	// in-flight cascades still run after the last request has been answered
	dispatcher.Shutdown()
	log.Info("server exited", zap.Any("cascades", dispatcher.Stats()))
}

func setupRoutes(ledgerHandler *handler.LedgerHandler, healthHandler *handler.HealthHandler, log *zap.Logger, timeout time.Duration) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.LoggingMiddleware(log), response.CORSMiddleware)

	// Health check
	router.HandleFunc("/health", healthHandler.Health).Methods("GET")
	router.HandleFunc("/health/ready", healthHandler.Ready).Methods("GET")
	router.HandleFunc("/version", healthHandler.Version).Methods("GET")

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(operationTimeout(timeout))
	ledgerHandler.Register(api)

	return router
}

// operationTimeout bounds every ledger request, including the transaction it opens.
func operationTimeout(d time.Duration) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
