// Package app wires the services shared by the API server and the terminal
// dashboard on top of the configured storage backend.
package app

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/MrJamesThe3rd/pocketbook/internal/auth"
	authmem "github.com/MrJamesThe3rd/pocketbook/internal/auth/memstore"
	authstore "github.com/MrJamesThe3rd/pocketbook/internal/auth/store"
	"github.com/MrJamesThe3rd/pocketbook/internal/config"
	"github.com/MrJamesThe3rd/pocketbook/internal/database"
	"github.com/MrJamesThe3rd/pocketbook/internal/export"
	"github.com/MrJamesThe3rd/pocketbook/internal/importer"
	"github.com/MrJamesThe3rd/pocketbook/internal/matching"
	matchingstore "github.com/MrJamesThe3rd/pocketbook/internal/matching/store"
	"github.com/MrJamesThe3rd/pocketbook/internal/transaction"
	"github.com/MrJamesThe3rd/pocketbook/internal/transaction/memstore"
	txstore "github.com/MrJamesThe3rd/pocketbook/internal/transaction/store"
)

type Services struct {
	Transactions *transaction.Service
	Auth         *auth.Service
	Matching     *matching.Service
	Importer     *importer.Service
	Export       *export.Service

	db *sql.DB
}

// Open connects the configured backend. With postgres it applies pending
// migrations first.
func Open(ctx context.Context, cfg *config.Config) (*Services, error) {
	var (
		txRepo    transaction.Repository
		authRepo  auth.Repository
		matchRepo matching.Repository
		db        *sql.DB
	)

	secret := cfg.Auth.Secret

	switch cfg.App.Backend {
	case config.BackendPostgres:
		connStr := cfg.ConnectionString()

		if err := database.Migrate(connStr); err != nil {
			return nil, fmt.Errorf("migrating database: %w", err)
		}

		var err error

		db, err = database.New(ctx, connStr)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}

		txRepo = txstore.New(db)
		authRepo = authstore.New(db)
		matchRepo = matchingstore.New(db)
	case config.BackendMemory:
		store := memstore.New()
		txRepo = store
		matchRepo = store
		authRepo = authmem.New()

		if secret == "" {
			secret = randomSecret()
			slog.Warn("AUTH_SECRET not set, tokens will not survive a restart")
		}
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.App.Backend)
	}

	txSvc := transaction.NewService(txRepo)
	matchSvc := matching.NewService(matchRepo)

	slog.Info("storage ready", "backend", cfg.App.Backend)

	return &Services{
		Transactions: txSvc,
		Auth:         auth.NewService(authRepo, secret, cfg.Auth.TokenTTL),
		Matching:     matchSvc,
		Importer:     importer.NewService(matchSvc),
		Export:       export.NewService(txSvc, cfg.Display.Currency, cfg.Display.SavingsGoal),
		db:           db,
	}, nil
}

func randomSecret() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)

	return hex.EncodeToString(b)
}

func (s *Services) Close() error {
	if s.db == nil {
		return nil
	}

	return s.db.Close()
}
