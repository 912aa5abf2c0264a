package config_test

import (
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/pocketbook/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "s3cret")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "Pocketbook", cfg.App.Name)
	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, config.BackendPostgres, cfg.App.Backend)
	assert.Equal(t, []string{"*"}, cfg.App.CORSOrigins)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, slog.LevelInfo, cfg.Log.Level)
	assert.Equal(t, "INR", cfg.Display.Currency)
	assert.Equal(t, "pocketbook.log", cfg.TUI.LogFile)
	assert.Equal(t, "exports", cfg.TUI.ExportDir)
	assert.True(t, decimal.NewFromInt(100000).Equal(cfg.Display.SavingsGoal))
	assert.Equal(t, "postgres://postgres:@localhost:5432/pocketbook?sslmode=disable", cfg.ConnectionString())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATA_BACKEND", "memory")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("CURRENCY", "eur")
	t.Setenv("SAVINGS_GOAL", "2500.50")
	t.Setenv("CORS_ORIGINS", "http://localhost:3000,https://app.example.com")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, config.BackendMemory, cfg.App.Backend)
	assert.Equal(t, slog.LevelDebug, cfg.Log.Level)
	assert.True(t, decimal.RequireFromString("2500.50").Equal(cfg.Display.SavingsGoal))
	assert.Equal(t, []string{"http://localhost:3000", "https://app.example.com"}, cfg.App.CORSOrigins)
}

func TestLoad_Invalid(t *testing.T) {
	type testCase struct {
		name    string
		env     map[string]string
		wantErr string
	}

	tests := []testCase{
		{name: "MissingSecret", env: map[string]string{"AUTH_SECRET": ""}, wantErr: "AUTH_SECRET"},
		{name: "UnknownBackend", env: map[string]string{"DATA_BACKEND": "sqlite"}, wantErr: "DATA_BACKEND"},
		{name: "UnknownCurrency", env: map[string]string{"DATA_BACKEND": "memory", "CURRENCY": "XYZ"}, wantErr: "CURRENCY"},
		{name: "UnknownLogFormat", env: map[string]string{"DATA_BACKEND": "memory", "LOG_FORMAT": "xml"}, wantErr: "LOG_FORMAT"},
		{name: "NegativeGoal", env: map[string]string{"DATA_BACKEND": "memory", "SAVINGS_GOAL": "-1"}, wantErr: "SAVINGS_GOAL"},
		{name: "ZeroTTL", env: map[string]string{"DATA_BACKEND": "memory", "AUTH_TOKEN_TTL": "0s"}, wantErr: "AUTH_TOKEN_TTL"},
		{name: "BadLevel", env: map[string]string{"DATA_BACKEND": "memory", "LOG_LEVEL": "loud"}, wantErr: "LOG_LEVEL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := config.Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
