// internal/storage/open.go
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"libranexus/internal/config"
	"libranexus/internal/storage/memory"
	"libranexus/internal/storage/postgres"
)

// Open returns the backend selected by cfg.Storage.Driver. The postgres
// backend is migrated when cfg.DB.Migrate is set.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (Backend, error) {
	switch cfg.Storage.Driver {
	case "memory":
		log.Warn().Msg("using in-memory storage, data is lost on exit")
		return memory.New(), nil
	case "postgres":
		db, err := postgres.Open(ctx, cfg.DB.ConnectionString(), postgres.Options{
			MaxOpenConns:    cfg.DB.MaxOpenConns,
			MaxIdleConns:    cfg.DB.MaxIdleConns,
			ConnMaxLifetime: 30 * time.Minute,
		})
		if err != nil {
			return nil, err
		}
		if cfg.DB.Migrate {
			if err := db.Migrate(); err != nil {
				_ = db.Close()
				return nil, err
			}
			log.Info().Msg("database migrations applied")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
