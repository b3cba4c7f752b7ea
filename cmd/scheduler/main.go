package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hostelhub/fee-ledger/internal/app"
	"github.com/hostelhub/fee-ledger/internal/config"
	"github.com/hostelhub/fee-ledger/internal/logger"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

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
	log = log.Named("scheduler")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	deps, err := app.New(ctx, cfg, log)
	cancel()
	if err != nil {
		log.Fatal("failed to initialize", zap.Error(err))
	}
	defer deps.Close()

	loc := cfg.GetSchedulerLocation()
	cronLog := cronLogger{log.Sugar()}

	// Initialize cron scheduler
	c := cron.New(
		cron.WithSeconds(),
		cron.WithLocation(loc),
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)

	jobs := &jobs{ledger: deps.Ledger, logger: log, location: loc}
	if err := jobs.register(c, cfg.Scheduler); err != nil {
		log.Fatal("failed to schedule jobs", zap.Error(err))
	}

	c.Start()
	log.Info("scheduler started", zap.String("timezone", loc.String()))

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down scheduler")
	<-c.Stop().Done()
	log.Info("scheduler stopped")
}

// cronLogger routes cron's own logging through zap.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
