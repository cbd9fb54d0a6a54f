package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/datasetloader/internal/config"
	"github.com/JonMunkholm/datasetloader/internal/kaggle"
	"github.com/JonMunkholm/datasetloader/internal/loader"
	"github.com/JonMunkholm/datasetloader/internal/logging"
	"github.com/JonMunkholm/datasetloader/internal/store"
	"github.com/JonMunkholm/datasetloader/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Debug("configuration loaded", "config", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("datasetloader failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	loaderCfg, err := loader.ConfigFrom(cfg.Dataset)
	if err != nil {
		return err
	}

	client, err := newClient(cfg.Kaggle)
	if err != nil {
		return err
	}

	ld, err := loader.New(ctx, loaderCfg, client)
	if err != nil {
		return err
	}
	slog.Info("authenticated with dataset host", "dataset", loaderCfg.Dataset, "dir", loaderCfg.Dir)

	var exporter *store.Exporter
	if cfg.Database.ExportEnabled() {
		var pool *pgxpool.Pool
		pool, err = store.Open(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer pool.Close()
		exporter = store.NewExporter(pool, cfg.Database.TablePrefix, slog.Default())
		slog.Info("connected to database", "table_prefix", cfg.Database.TablePrefix)
	}

	load := func(ctx context.Context) (loader.ResultSet, error) {
		rs, err := loadTables(ctx, ld, cfg.Dataset.Partial)
		if err != nil {
			return nil, err
		}
		if exporter != nil {
			if _, err := exporter.Export(ctx, loaderCfg.Dataset, rs); err != nil {
				return nil, err
			}
		}
		return rs, nil
	}

	rs, err := load(ctx)
	if err != nil {
		return err
	}

	if !cfg.Server.Enabled {
		return nil
	}
	return serve(ctx, cfg, web.NewServer(web.SourceFunc(load), rs, cfg))
}

// newClient resolves credentials and builds the dataset host client.
// Missing or unreadable credentials are reported as *loader.AuthenticationError,
// the same as a token the host rejects.
func newClient(cfg config.KaggleConfig) (*kaggle.Client, error) {
	creds, err := kaggle.LoadCredentials(cfg.Username, cfg.Key, cfg.ConfigDir)
	if err != nil {
		return nil, &loader.AuthenticationError{Err: err}
	}
	return kaggle.NewClient(kaggle.Options{
		BaseURL:     cfg.APIURL,
		Credentials: creds,
		Timeout:     cfg.Timeout,
	}), nil
}

// loadTables runs the loader and logs a per-table summary.
func loadTables(ctx context.Context, ld *loader.Loader, partial bool) (loader.ResultSet, error) {
	var rs loader.ResultSet
	if partial {
		report, err := ld.RunPartial(ctx)
		if err != nil {
			return nil, err
		}
		for _, f := range report.Failures {
			slog.Warn("file not loaded", "file", f.File, "error", f.Err)
		}
		rs = report.Tables
	} else {
		var err error
		if rs, err = ld.Run(ctx); err != nil {
			return nil, err
		}
	}

	for _, key := range rs.Keys() {
		t := rs[key]
		slog.Debug("table loaded", "key", key, "rows", t.Len(), "columns", t.NumColumns())
	}
	slog.Info("dataset loaded", "tables", len(rs), "rows", rs.Rows())
	return rs, nil
}

// serve runs the table browser until ctx is cancelled, then shuts it down.
func serve(ctx context.Context, cfg *config.Config, server *web.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	slog.Info("server stopped")
	return nil
}
