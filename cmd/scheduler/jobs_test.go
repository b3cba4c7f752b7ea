package main

import (
	"errors"
	"testing"
	"time"

	"github.com/hostelhub/fee-ledger/internal/config"
	"github.com/hostelhub/fee-ledger/internal/domain"
	"github.com/hostelhub/fee-ledger/internal/mocks"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func TestGenerateCurrentPeriod_UsesSchedulerTimezone(t *testing.T) {
	svc := mocks.NewMockLedgerService()
	ist := time.FixedZone("IST", 5*3600+1800)

	j := &jobs{
		ledger:   svc,
		logger:   zap.NewNop(),
		location: ist,
		now:      func() time.Time { return time.Date(2025, time.January, 31, 20, 0, 0, 0, time.UTC) },
	}

	svc.On("GeneratePeriodForAllHostels", mock.Anything, domain.MustParsePeriod("2025-02")).
		Return([]*domain.GenerationResult{{HostelID: 1, FeesCreated: 4}, {HostelID: 2, Error: "timeout"}}, nil).Once()

	j.generateCurrentPeriod()

	svc.AssertExpectations(t)
}

func TestRepairLedger_LogsFailure(t *testing.T) {
	svc := mocks.NewMockLedgerService()
	svc.On("RepairLedger", mock.Anything).Return(nil, errors.New("db down")).Once()

	j := &jobs{ledger: svc, logger: zap.NewNop(), location: time.UTC}
	j.repairLedger()

	svc.AssertExpectations(t)
}

func TestRegister(t *testing.T) {
	j := &jobs{ledger: mocks.NewMockLedgerService(), logger: zap.NewNop(), location: time.UTC}

	c := cron.New(cron.WithSeconds())
	assert.NoError(t, j.register(c, config.SchedulerConfig{GenerationSpec: "0 5 0 1 * *", RepairSpec: "0 30 2 * * *"}))
	assert.Len(t, c.Entries(), 2)

	err := j.register(cron.New(cron.WithSeconds()), config.SchedulerConfig{GenerationSpec: "monthly", RepairSpec: "0 30 2 * * *"})
	assert.ErrorContains(t, err, "period generation")
}
