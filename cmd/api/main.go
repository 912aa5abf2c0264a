package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/MrJamesThe3rd/pocketbook/internal/app"
	"github.com/MrJamesThe3rd/pocketbook/internal/config"
	apihttp "github.com/MrJamesThe3rd/pocketbook/internal/http"
	authHandler "github.com/MrJamesThe3rd/pocketbook/internal/http/auth"
	categoryHandler "github.com/MrJamesThe3rd/pocketbook/internal/http/category"
	exportHandler "github.com/MrJamesThe3rd/pocketbook/internal/http/export"
	importHandler "github.com/MrJamesThe3rd/pocketbook/internal/http/importcsv"
	matchingHandler "github.com/MrJamesThe3rd/pocketbook/internal/http/matching"
	txHandler "github.com/MrJamesThe3rd/pocketbook/internal/http/transaction"
	"github.com/MrJamesThe3rd/pocketbook/internal/logging"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Setup(os.Stdout, cfg.Log.Level, cfg.Log.Format)

	if err := run(cfg); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := app.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	router := apihttp.New(apihttp.Handlers{
		Auth:         authHandler.NewHandler(svc.Auth),
		Transactions: txHandler.NewHandler(svc.Transactions, cfg.Display.SavingsGoal),
		Import:       importHandler.NewHandler(svc.Importer, svc.Transactions),
		Export:       exportHandler.NewHandler(svc.Export),
		Matching:     matchingHandler.NewHandler(svc.Matching),
		Categories:   categoryHandler.NewHandler(),
	}, svc.Auth, cfg.App.CORSOrigins)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.Timeout,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		// Request contexts end on shutdown so open event streams let go.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting server", "addr", srv.Addr, "app", cfg.App.Name)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
