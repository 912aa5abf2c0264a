package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/pocketbook/internal/currency"
)

const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	App struct {
		Name        string   `envconfig:"APP_NAME" default:"Pocketbook"`
		Port        int      `envconfig:"PORT" default:"8080"`
		Backend     string   `envconfig:"DATA_BACKEND" default:"postgres"`
		CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"*"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"pocketbook"`
	}

	Server struct {
		Timeout time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
	}

	Auth struct {
		Secret   string        `envconfig:"AUTH_SECRET"`
		TokenTTL time.Duration `envconfig:"AUTH_TOKEN_TTL" default:"24h"`
	}

	Log struct {
		Level  slog.Level `envconfig:"LOG_LEVEL" default:"info"`
		Format string     `envconfig:"LOG_FORMAT" default:"text"`
	}

	TUI struct {
		LogFile   string `envconfig:"TUI_LOG_FILE" default:"pocketbook.log"`
		TokenFile string `envconfig:"TUI_TOKEN_FILE" default:".pocketbook_session"`
		ExportDir string `envconfig:"TUI_EXPORT_DIR" default:"exports"`
	}

	Display struct {
		Currency    string          `envconfig:"CURRENCY" default:"INR"`
		SavingsGoal decimal.Decimal `envconfig:"SAVINGS_GOAL" default:"100000"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.App.Backend {
	case BackendPostgres:
		if c.Auth.Secret == "" {
			errs = append(errs, errors.New("AUTH_SECRET is required with the postgres backend"))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown DATA_BACKEND %q", c.App.Backend))
	}

	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("AUTH_TOKEN_TTL must be positive"))
	}

	if f := strings.ToLower(c.Log.Format); f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("unknown LOG_FORMAT %q", c.Log.Format))
	}

	if !currency.Valid(c.Display.Currency) {
		errs = append(errs, fmt.Errorf("unknown CURRENCY %q", c.Display.Currency))
	}

	if c.Display.SavingsGoal.IsNegative() {
		errs = append(errs, errors.New("SAVINGS_GOAL must not be negative"))
	}

	return errors.Join(errs...)
}

// Load reads the environment and validates the result.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
