// Package postgres implements the storage.Backend interface on PostgreSQL/PostGIS
// by wrapping the GORM backend with a connection it opens itself.
package postgres

import (
	"fmt"

	"github.com/intersim/intersim/internal/config"
	"github.com/intersim/intersim/internal/database"
	gormstorage "github.com/intersim/intersim/internal/storage/gorm"
)

// Backend wraps the GORM backend with a Postgres connection.
type Backend struct {
	*gormstorage.Backend
	cfg  config.DBConfig
	deps gormstorage.Dependencies
}

// New creates a Postgres backend. If deps.DB is nil, Init connects using cfg.
func New(cfg config.DBConfig, deps gormstorage.Dependencies) *Backend {
	return &Backend{cfg: cfg, deps: deps}
}

// Init connects, validates the connection and starts the GORM backend.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		db, err := database.OpenPostgres(b.cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to access sql interface: %w", err)
		}
		if err = sqlDB.Ping(); err != nil {
			return fmt.Errorf("failed to validate connection: %w", err)
		}
		sqlDB.SetMaxOpenConns(10)
		b.deps.DB = db
	}

	b.Backend = gormstorage.New(b.deps)
	return b.Backend.Init()
}

// Close stops the writer and releases the connection pool.
func (b *Backend) Close() error {
	if b.Backend == nil {
		return nil
	}
	if err := b.Backend.Close(); err != nil {
		return err
	}
	sqlDB, err := b.deps.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
