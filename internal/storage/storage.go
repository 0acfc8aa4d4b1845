package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/dmitrijs2005/notesync/internal/migrations"
	"github.com/dmitrijs2005/notesync/internal/repositories/accounts"
	"github.com/dmitrijs2005/notesync/internal/repositories/notes"

	_ "modernc.org/sqlite"
)

// Storage bundles the database handle with the repositories built on it.
type Storage struct {
	DB       *sql.DB
	Accounts accounts.Repository
	Notes    notes.Repository
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

func InitDatabase(ctx context.Context, dsn string) (*Storage, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// a single connection avoids SQLITE_BUSY between the sync
	// goroutine and CLI reads
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, err
	}

	if err := RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &Storage{
		DB:       db,
		Accounts: accounts.NewSQLiteRepository(db),
		Notes:    notes.NewSQLiteRepository(db),
	}, nil
}

func (s *Storage) Close() error {
	return s.DB.Close()
}
