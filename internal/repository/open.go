package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jengzang/proximity-backend-go/internal/config"
	"github.com/jengzang/proximity-backend-go/internal/database"
)

// Open connects the store selected by cfg.StoreDriver
func Open(ctx context.Context, cfg *config.Config, log *slog.Logger) (Store, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		db, err := database.Open(ctx, database.Config{Path: cfg.StoreDSN}, log)
		if err != nil {
			return nil, err
		}
		return NewSQLiteStore(db), nil
	case config.DriverBadger:
		s, err := OpenBadger(cfg.StoreDSN)
		if err != nil {
			return nil, err
		}
		log.Info("badger store opened", "dir", cfg.StoreDSN)
		return s, nil
	}
	return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
}
