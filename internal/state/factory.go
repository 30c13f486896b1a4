package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/db"
	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/migrate"
)

var ErrUnknownBackend = errors.New("unknown STATE_BACKEND (use memory or mysql)")

type FactoryConfig struct {
	Backend  string
	MySQLDSN string

	// RunMigrations applies MigrationsDir before the store is returned.
	RunMigrations bool
	MigrationsDir string
}

type FactoryResult struct {
	Store Store
	DB    *sql.DB // only set for mysql
}

func (r FactoryResult) Close() error {
	if r.DB == nil {
		return nil
	}
	return r.DB.Close()
}

func NewStore(ctx context.Context, cfg FactoryConfig) (FactoryResult, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if backend == "" {
		backend = "memory"
	}

	switch backend {
	case "memory":
		return FactoryResult{Store: NewMemoryStore()}, nil

	case "mysql":
		if strings.TrimSpace(cfg.MySQLDSN) == "" {
			return FactoryResult{}, errors.New("DB_DSN is required when STATE_BACKEND=mysql")
		}

		sqlDB, err := db.Open(db.Config{DSN: cfg.MySQLDSN})
		if err != nil {
			return FactoryResult{}, err
		}

		c, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		if err := sqlDB.PingContext(c); err != nil {
			_ = sqlDB.Close()
			return FactoryResult{}, fmt.Errorf("ping mysql: %w", err)
		}

		if cfg.RunMigrations {
			if err := migrate.ApplyDir(ctx, sqlDB, cfg.MigrationsDir); err != nil {
				_ = sqlDB.Close()
				return FactoryResult{}, err
			}
		}

		return FactoryResult{
			Store: NewMySQLStore(sqlDB),
			DB:    sqlDB,
		}, nil

	default:
		return FactoryResult{}, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
