package backend

import (
	"fmt"
	"time"

	"iadetakip/internal/config"
	"iadetakip/internal/storage"
)

// Open returns the store selected by STORE_DRIVER. Missing credentials
// are not an error: the caller gets a storage.Disabled that explains
// what to set.
func Open(cfg config.Config) (storage.Store, error) {
	missing, ok := cfg.StoreCredentials()
	if !ok {
		return storage.Disabled{Missing: missing}, nil
	}

	switch cfg.StoreDriver {
	case config.DriverREST, "":
		return NewClient(cfg), nil
	case config.DriverSQLite:
		return storage.OpenSQLite(cfg.DBPath)
	case config.DriverPostgres:
		return storage.OpenPostgres(cfg.DatabaseURL, cfg.PostgresConnectAttempts, time.Duration(cfg.PostgresRetrySec)*time.Second)
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q (want rest, sqlite or postgres)", cfg.StoreDriver)
	}
}
