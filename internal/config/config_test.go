package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server:    ServerConfig{Port: "8080", Host: "0.0.0.0", Env: "development"},
		Database:  DatabaseConfig{Driver: DriverPostgres, Host: "localhost", Port: "5432", Name: "hostel_ledger", User: "postgres", SSLMode: "disable"},
		Scheduler: SchedulerConfig{GenerationSpec: "0 5 0 1 * *", RepairSpec: "0 30 2 * * *", Timezone: "UTC"},
		Ledger: LedgerConfig{
			DefaultDueDay:    15,
			Epsilon:          "0.01",
			CascadeWorkers:   2,
			CascadeQueueSize: 16,
			CascadeTimeout:   time.Second,
			LockWait:         time.Second,
			OperationTimeout: time.Second,
		},
		Health: HealthConfig{Timeout: time.Second},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name          string
		mutate        func(*Config)
		errorContains string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "memory driver needs no host", mutate: func(c *Config) { c.Database = DatabaseConfig{Driver: DriverMemory} }},
		{name: "missing port", mutate: func(c *Config) { c.Server.Port = "" }, errorContains: "SERVER_PORT"},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "sqlite" }, errorContains: "DATABASE_DRIVER"},
		{name: "postgres without host", mutate: func(c *Config) { c.Database.Host = "" }, errorContains: "DATABASE_URL"},
		{name: "due day too large", mutate: func(c *Config) { c.Ledger.DefaultDueDay = 32 }, errorContains: "LEDGER_DEFAULT_DUE_DAY"},
		{name: "epsilon not decimal", mutate: func(c *Config) { c.Ledger.Epsilon = "tiny" }, errorContains: "LEDGER_EPSILON"},
		{name: "epsilon zero", mutate: func(c *Config) { c.Ledger.Epsilon = "0" }, errorContains: "LEDGER_EPSILON"},
		{name: "no workers", mutate: func(c *Config) { c.Ledger.CascadeWorkers = 0 }, errorContains: "LEDGER_CASCADE_WORKERS"},
		{name: "bad cron spec", mutate: func(c *Config) { c.Scheduler.GenerationSpec = "every month" }, errorContains: "SCHEDULER_GENERATION_SPEC"},
		{name: "bad timezone", mutate: func(c *Config) { c.Scheduler.Timezone = "Mars/Olympus" }, errorContains: "SCHEDULER_TIMEZONE"},
		{name: "no health timeout", mutate: func(c *Config) { c.Health.Timeout = 0 }, errorContains: "HEALTH_CHECK_TIMEOUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.errorContains == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorContains)
		})
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", DriverMemory)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("LEDGER_DEFAULT_DUE_DAY", "5")
	t.Setenv("LEDGER_CASCADE_TIMEOUT", "45s")
	t.Setenv("SCHEDULER_TIMEZONE", "UTC")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, 5, cfg.Ledger.DefaultDueDay)
	assert.Equal(t, 45*time.Second, cfg.Ledger.CascadeTimeout)
	assert.Equal(t, "0.01", cfg.GetEpsilon().String())
	assert.Equal(t, time.UTC, cfg.GetSchedulerLocation())
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: "5432", Name: "ledger", User: "app", Password: "s3cret", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:s3cret@db:5432/ledger?sslmode=disable", d.DSN())

	d.URL = "postgres://override"
	assert.Equal(t, "postgres://override", d.DSN())
}
