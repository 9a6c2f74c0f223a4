package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger/v3"

	"github.com/damon-houk/coin-exchange-widget/internal/application/service"
	"github.com/damon-houk/coin-exchange-widget/internal/config"
	"github.com/damon-houk/coin-exchange-widget/internal/domain/repository"
	"github.com/damon-houk/coin-exchange-widget/internal/infrastructure/api"
	"github.com/damon-houk/coin-exchange-widget/internal/infrastructure/cache"
	"github.com/damon-houk/coin-exchange-widget/internal/infrastructure/db"
)

// sqliteFile is the database file created under storage.path by the sqlite driver
const sqliteFile = "coinconv.db"

// app wires the widget components for one command invocation
type app struct {
	directory *service.CoinDirectory
	store     *service.ConversionStore
	closers   []func() error
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}

	sessions, err := a.openSessions(ctx, cfg.Storage)
	if err != nil {
		a.close()
		return nil, err
	}

	client := api.NewCoinAPIClient(api.Options{
		BaseURL:           cfg.API.BaseURL,
		HTTPClient:        &http.Client{Timeout: cfg.API.Timeout},
		RequestsPerSecond: cfg.API.RequestsPerSecond,
		Logger:            log,
	})

	a.directory = service.NewCoinDirectory(client, log)
	a.store = service.NewConversionStore(ctx, a.directory, client, sessions,
		cache.NewRateCache(cfg.Exchange.CacheTTL),
		service.StoreConfig{
			CacheTTL:    cfg.Exchange.CacheTTL,
			DefaultFrom: cfg.Exchange.DefaultFrom,
			DefaultTo:   cfg.Exchange.DefaultTo,
		}, log)

	return a, nil
}

func (a *app) openSessions(ctx context.Context, storage config.StorageConfig) (repository.SessionRepository, error) {
	if err := os.MkdirAll(storage.Path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	switch storage.Driver {
	case config.DriverSQLite:
		sqlDB, err := db.OpenSQLite(filepath.Join(storage.Path, sqliteFile))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, sqlDB.Close)
		return newSQLiteSessions(ctx, sqlDB, storage.Key)

	default:
		badgerOpts := badger.DefaultOptions(storage.Path)
		badgerOpts.Logger = nil // Disable Badger's default logger

		badgerDB, err := badger.Open(badgerOpts)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		a.closers = append(a.closers, badgerDB.Close)
		return db.NewBadgerSessionRepository(badgerDB, storage.Key), nil
	}
}

func newSQLiteSessions(ctx context.Context, sqlDB *sql.DB, key string) (repository.SessionRepository, error) {
	repo, err := db.NewSQLiteSessionRepository(ctx, sqlDB, key)
	if err != nil {
		return nil, err
	}
	return repo, nil
}

func (a *app) close() {
	if a.store != nil {
		a.store.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Error("Error closing storage", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
}
