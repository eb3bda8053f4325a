package storage

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
)

// OpenPostgres connects to dsn, retrying while the server comes up.
func OpenPostgres(dsn string, attempts int, delay time.Duration) (*DB, error) {
	if attempts <= 0 {
		attempts = 1
	}
	if delay <= 0 {
		delay = 2 * time.Second
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		conn, err := sql.Open("postgres", dsn)
		if err == nil {
			if err = conn.Ping(); err == nil {
				db := &DB{conn: conn, dialect: dialectPostgres}
				if err := db.init(); err != nil {
					_ = conn.Close()
					return nil, fmt.Errorf("creating postgres schema: %w", err)
				}
				return db, nil
			}
			_ = conn.Close()
		}
		lastErr = err
		if attempt < attempts {
			slog.Warn("postgres not ready", "attempt", attempt, "error", err)
			time.Sleep(delay)
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("postgres connection failed")
	}
	return nil, lastErr
}
