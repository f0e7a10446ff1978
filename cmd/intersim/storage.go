package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/intersim/intersim/internal/config"
	"github.com/intersim/intersim/internal/geo"
	"github.com/intersim/intersim/internal/storage"
	gormstorage "github.com/intersim/intersim/internal/storage/gorm"
	"github.com/intersim/intersim/internal/storage/memory"
	pgstorage "github.com/intersim/intersim/internal/storage/postgres"
	sqlitestorage "github.com/intersim/intersim/internal/storage/sqlite"
	wsstorage "github.com/intersim/intersim/internal/storage/websocket"
	"github.com/intersim/intersim/pkg/core"
)

// storageEnv carries what the backends share besides their own config.
type storageEnv struct {
	Logger *slog.Logger
	Anchor *geo.Anchor
	Center core.Position
	DB     config.DBConfig
	API    config.APIConfig
}

func (e storageEnv) gormDeps() gormstorage.Dependencies {
	deps := gormstorage.Dependencies{Logger: e.Logger, Center: e.Center}
	if e.Anchor != nil {
		deps.Projector = e.Anchor
	}
	return deps
}

// initStorage creates and initializes the configured backend. A postgres
// server that cannot be reached falls back to the SQLite backend.
func initStorage(cfg config.StorageConfig, env storageEnv) (storage.Backend, error) {
	backend, err := createStorageBackend(cfg, env)
	if err != nil {
		return nil, err
	}
	if err := backend.Init(); err != nil {
		if cfg.Type != "postgres" {
			return nil, fmt.Errorf("init %s storage: %w", cfg.Type, err)
		}
		env.Logger.Warn("Postgres unavailable, falling back to SQLite", "error", err)
		cfg.Type = "sqlite"
		return initStorage(cfg, env)
	}
	env.Logger.Info("Storage backend initialized", "type", cfg.Type)
	return backend, nil
}

func createStorageBackend(cfg config.StorageConfig, env storageEnv) (storage.Backend, error) {
	switch cfg.Type {
	case "postgres":
		return pgstorage.New(env.DB, env.gormDeps()), nil

	case "sqlite":
		backend, err := sqlitestorage.New(cfg.SQLite, env.gormDeps())
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		return backend, nil

	case "websocket":
		wsCfg := cfg.WebSocket
		if wsCfg.URL == "" && env.API.ServerURL != "" {
			wsCfg.URL = httpToWS(env.API.ServerURL) + "/v1/stream"
		}
		if wsCfg.Secret == "" {
			wsCfg.Secret = env.API.APIKey
		}
		env.Logger.Info("WebSocket storage backend selected", "url", wsCfg.URL)
		return wsstorage.New(wsCfg, env.Logger), nil

	case "memory", "":
		var opts []memory.Option
		if env.Anchor != nil {
			opts = append(opts, memory.WithProjection(env.Anchor.LonLat))
		}
		return memory.New(cfg.Memory, opts...), nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}

// httpToWS converts an HTTP(S) URL to a WebSocket URL.
func httpToWS(httpURL string) string {
	s := strings.TrimRight(httpURL, "/")
	s = strings.Replace(s, "https://", "wss://", 1)
	s = strings.Replace(s, "http://", "ws://", 1)
	return s
}
