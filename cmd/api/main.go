package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"shipquote/internal/config"
	"shipquote/internal/currency"
	"shipquote/internal/db"
	"shipquote/internal/observability"
	"shipquote/internal/rate"
	"shipquote/internal/server"
	"shipquote/internal/store"
	"shipquote/internal/tables"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// The logger is not configured yet.
		os.Stderr.WriteString("invalid configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		os.Stderr.WriteString("failed to build logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	tbl, err := tables.LoadOrSample(cfg.TablesPath)
	if err != nil {
		logger.Fatal("failed to load tariff tables", zap.String("path", cfg.TablesPath), zap.Error(err))
	}
	if cfg.TablesPath == "" {
		logger.Warn("TARIFF_TABLES_PATH not set; using embedded sample tables")
	}

	metrics, err := observability.NewCollector(nil)
	if err != nil {
		logger.Fatal("failed to register metrics", zap.Error(err))
	}

	deps := server.Deps{
		Estimator: rate.NewCalculator(tbl.Rates, rate.WithLogger(logger)),
		Converter: currency.NewConverter(tbl.Exchange),
		Logger:    logger,
		Metrics:   metrics,
	}

	if cfg.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("failed to connect db", zap.Error(err))
		}
		defer pool.Close()
		repo := store.NewRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			logger.Fatal("failed to prepare schema", zap.Error(err))
		}
		deps.Store = repo
	} else {
		logger.Warn("DATABASE_URL not set; quote persistence disabled")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.New(deps),
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	logger.Info("api listening",
		zap.String("addr", srv.Addr),
		zap.String("home_country", tbl.Rates.HomeCountry),
		zap.String("reference_currency", tbl.Exchange.Reference()),
	)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
}
