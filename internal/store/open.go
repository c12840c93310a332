package store

import (
	"fmt"

	"polyglot/internal/config"
)

// Open creates the store named by the storage config.
func Open(cfg config.StorageConfig, paths config.Paths) (Store, error) {
	switch cfg.Backend {
	case config.BackendJSON, "":
		return NewJSONStore(paths.StoriesDir)
	case config.BackendSQLite, config.BackendSQLite3:
		dsn := cfg.DSN
		if dsn == "" {
			dsn = paths.Database()
		}
		driver := DriverSQLite
		if cfg.Backend == config.BackendSQLite3 {
			driver = DriverSQLite3
		}
		return NewSQLStore(driver, dsn)
	case config.BackendPostgres:
		if cfg.DSN == "" {
			return nil, wrap("open", fmt.Errorf("postgres backend needs a DSN"))
		}
		return NewSQLStore(DriverPgx, cfg.DSN)
	default:
		return nil, wrap("open", fmt.Errorf("unknown storage backend: %s", cfg.Backend))
	}
}
