package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"climate-server/internal/config"
	"climate-server/internal/db"
	"climate-server/internal/httpapi"
	"climate-server/internal/migrate"
	"climate-server/internal/modules/climate"
	"climate-server/internal/modules/climate/repository"
	"climate-server/internal/modules/climate/views"
	"climate-server/internal/seed"
)

const shutdownTimeout = 10 * time.Second

func Run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	logger.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"dbDriver", cfg.DBDriver,
		"sqlitePath", cfg.SQLitePath,
		"dataDir", cfg.DataDir,
		"dbMigrate", cfg.DBMigrate,
		"dbMaxOpenConns", cfg.DBMaxOpenConns,
		"dbMaxIdleConns", cfg.DBMaxIdleConns,
		"dbConnMaxLifetime", cfg.DBConnMaxLifetime,
	)

	repo, closeSource, err := openDataSource(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSource()

	handler, err := newHandler(repo)
	if err != nil {
		return err
	}
	srv := httpapi.NewServer(cfg, logger, handler)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logger.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}

// openDataSource returns the repository selected by cfg.DBDriver and a func
// releasing its resources.
func openDataSource(ctx context.Context, cfg config.Config, logger *slog.Logger) (repository.ClimateRepository, func(), error) {
	if cfg.DBDriver == config.DriverMemory {
		ds, err := seed.LoadDir(cfg.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("load dataset: %w", err)
		}
		logger.Info("dataset loaded into memory",
			"measurements", len(ds.Measurements),
			"stations", len(ds.Stations),
		)
		return repository.NewMemoryRepository(ds.Measurements, ds.Stations), func() {}, nil
	}

	conn, err := db.Open(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	closeConn := func() {
		if err := db.Close(conn); err != nil {
			logger.Error("db close", "error", err)
		}
	}

	if cfg.DBMigrate {
		n, err := migrate.Run(ctx, conn, cfg.DBDriver)
		if err != nil {
			closeConn()
			return nil, nil, err
		}
		logger.Info("migrations applied", "count", n)
	}

	repo := repository.NewRepository(conn, cfg.DBDriver)
	if err := repo.PingContext(ctx); err != nil {
		closeConn()
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}
	logger.Info("database connection successful")
	return repo, closeConn, nil
}

func newHandler(repo repository.ClimateRepository) (http.Handler, error) {
	if err := views.LoadTemplates(); err != nil {
		return nil, err
	}
	mux := httpapi.NewMux(repo)
	climate.RegisterFeature(mux, repo)
	return mux, nil
}
