package main

import (
	"context"
	"fmt"
	"time"

	"github.com/hostelhub/fee-ledger/internal/config"
	"github.com/hostelhub/fee-ledger/internal/domain"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const jobTimeout = 30 * time.Minute

type ledger interface {
	GeneratePeriodForAllHostels(ctx context.Context, period domain.Period) ([]*domain.GenerationResult, error)
	RepairLedger(ctx context.Context) (*domain.RepairResult, error)
}

type jobs struct {
	ledger   ledger
	logger   *zap.Logger
	location *time.Location
	now      func() time.Time
}

func (j *jobs) register(c *cron.Cron, cfg config.SchedulerConfig) error {
	if _, err := c.AddFunc(cfg.GenerationSpec, j.generateCurrentPeriod); err != nil {
		return fmt.Errorf("schedule period generation: %w", err)
	}
	if _, err := c.AddFunc(cfg.RepairSpec, j.repairLedger); err != nil {
		return fmt.Errorf("schedule ledger repair: %w", err)
	}

	j.logger.Info("cron jobs scheduled",
		zap.String("generation", cfg.GenerationSpec),
		zap.String("repair", cfg.RepairSpec),
	)
	return nil
}

// generateCurrentPeriod opens the month that is current in the scheduler's timezone.
func (j *jobs) generateCurrentPeriod() {
	now := time.Now
	if j.now != nil {
		now = j.now
	}
	period := domain.PeriodOf(now().In(j.location))

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	log := j.logger.With(zap.Stringer("period", period))
	log.Info("running monthly fee generation")

	results, err := j.ledger.GeneratePeriodForAllHostels(ctx, period)
	if err != nil {
		log.Error("monthly fee generation failed", zap.Error(err))
		return
	}

	created, failedHostels := 0, 0
	for _, r := range results {
		created += r.FeesCreated
		if r.Error != "" {
			failedHostels++
		}
	}
	log.Info("monthly fee generation finished",
		zap.Int("hostels", len(results)),
		zap.Int("fees_created", created),
		zap.Int("failed_hostels", failedHostels),
	)
}

func (j *jobs) repairLedger() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	result, err := j.ledger.RepairLedger(ctx)
	if err != nil {
		j.logger.Error("ledger repair failed", zap.Error(err))
		return
	}
	j.logger.Info("ledger repair finished",
		zap.Int("checked", result.Checked),
		zap.Int("repaired", result.Repaired),
		zap.Int("failed", result.Failed),
		zap.Int("legacy", result.Legacy),
	)
}
