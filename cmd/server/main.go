package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"candor/internal/adapters/blob"
	httpadapter "candor/internal/adapters/http"
	ledgeradapter "candor/internal/adapters/ledger"
	pg "candor/internal/adapters/postgres"
	"candor/internal/config"
	"candor/internal/ports"
	intakesvc "candor/internal/services/intake"
	reconcilesvc "candor/internal/services/reconcile"
	statussvc "candor/internal/services/status"
	redactionworker "candor/internal/workers/redaction"
	"candor/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Warn("config", "warning", err)
	}

	logger := newLogger(cfg.Env)
	slog.SetDefault(logger)

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required for Postgres adapters")
		os.Exit(1)
	}
	if len(cfg.BlobMasterKey) == 0 {
		logger.Error("BLOB_MASTER_KEY is required (hex, 32 bytes)")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := migrate(cfg.DatabaseURL); err != nil {
		logger.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	db, err := pg.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("db connect failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Wire repositories to services (ports)
	var _ ports.ReportRepository = db
	var _ ports.JobQueue = db

	blobs, err := blob.New(cfg.BlobDir, cfg.BlobMasterKey)
	if err != nil {
		logger.Error("blob store init failed", "error", err)
		os.Exit(1)
	}

	// Anchoring is optional per submission; without a gateway the
	// pipeline runs queue-only.
	var ledger ports.Ledger
	if cfg.LedgerURL != "" {
		ledger = ledgeradapter.New(cfg.LedgerURL, cfg.LedgerAuthToken)
	}

	intake := intakesvc.New(db, blobs, ledger, logger)
	statusReader := statussvc.New(db)
	reconciler := reconcilesvc.New(db, logger)

	srv := httpadapter.New(intake, statusReader, reconciler, ledger, logger)
	r := chi.NewRouter()
	r.Mount("/", srv.Routes())

	// Optional in-process redaction workers; with zero workers the
	// external GPU worker drains the queue instead.
	if cfg.RedactionWorkers > 0 {
		go redactionworker.Run(ctx, db, reconciler, redactionworker.StubProcessor{}, cfg.RedactionWorkers, 500*time.Millisecond, logger)
		logger.Info("redaction workers started", "count", cfg.RedactionWorkers)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- http.ListenAndServe(cfg.ListenAddr, r) }()
	logger.Info("listening", "addr", cfg.ListenAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
		cancel()
		time.Sleep(300 * time.Millisecond)
	case err := <-errCh:
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func newLogger(env string) *slog.Logger {
	if env == "production" {
		return slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func migrate(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("opening migration connection: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.Up(db, ".")
}
