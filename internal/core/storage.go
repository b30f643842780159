package core

import (
	"context"
	"fmt"

	"dormcore/internal/infra/persistence/memory"
	"dormcore/internal/infra/persistence/postgres"
	"dormcore/internal/infra/persistence/sqlite"
	"dormcore/internal/infra/persistence/textfile"
	"dormcore/pkg/domain"
)

// StorageDriver identifies a concrete backend implementation.
type StorageDriver string

const (
	StorageText     StorageDriver = "text"     // one text file per kind in the data dir
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / dry runs)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// BackendConfig selects and configures a backend.
type BackendConfig struct {
	Driver      StorageDriver
	DataDir     string
	SQLitePath  string
	PostgresDSN string
	Logger      Logger
}

// OpenBackend returns the backend named by cfg.Driver. An empty driver
// selects the text backend.
func OpenBackend(ctx context.Context, cfg BackendConfig) (domain.Backend, error) {
	switch cfg.Driver {
	case StorageText, "":
		return textfile.New(cfg.DataDir, textfile.WithLogger(cfg.Logger))
	case StorageMemory:
		return memory.NewStore(domain.Snapshot{}), nil
	case StorageSQLite:
		return sqlite.NewStore(cfg.SQLitePath)
	case StoragePostgres:
		return postgres.NewStore(ctx, cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", cfg.Driver)
	}
}
