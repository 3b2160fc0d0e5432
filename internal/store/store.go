package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"reconciler/internal/config"
	"reconciler/internal/services"
)

// Store persists the record table, staged annotations, and run history in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the database under the configured data directory.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.DatabasePath())
}

// OpenPath opens the database at an explicit path.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// modernc connections do not share in-process locks; one writer keeps busy errors away.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Name identifies the record session.
func (s *Store) Name() string {
	return "records"
}

// Focus makes the record table the active surface by confirming the database answers.
func (s *Store) Focus(ctx context.Context) error {
	if s == nil || s.db == nil {
		return services.Wrap(services.ErrConfiguration, "store", "focus", "store not open", nil)
	}
	if err := s.db.PingContext(ctx); err != nil {
		return services.Wrap(services.ErrTransient, "store", "focus", s.path, err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
