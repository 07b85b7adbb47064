package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/avelesk/notevault/internal/config"
	"github.com/avelesk/notevault/internal/logger"
	"github.com/avelesk/notevault/migrations"
)

// DB wraps the local SQLite connection together with the logger the
// repositories report through.
type DB struct {
	*sql.DB
	logger *logger.Logger
}

// Migrate applies pending schema migrations to the local database.
func (db *DB) Migrate() error {
	return migrations.Migrate(db.DB)
}

// NewConnectSQLite opens (creating if necessary) the SQLite database named
// by cfg.DSN and verifies the connection with a ping.
func NewConnectSQLite(ctx context.Context, cfg config.DB, log *logger.Logger) (*DB, error) {
	if cfg.DSN != ":memory:" {
		if err := createLocalDBFileIfNotExists(cfg.DSN); err != nil {
			log.Err(err).Str("func", "NewConnectSQLite").Msg("error creating database file")
			return nil, fmt.Errorf("create database file: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		log.Err(err).Str("func", "NewConnectSQLite").Msg("error opening database")
		return nil, fmt.Errorf("open local database: %w", err)
	}

	if err = conn.PingContext(ctx); err != nil {
		log.Err(err).Str("func", "NewConnectSQLite").Msg("error pinging database")
		return nil, fmt.Errorf("ping local database: %w", err)
	}
	log.Debug().Str("func", "NewConnectSQLite").Msg("connected to local database")

	return &DB{DB: conn, logger: log}, nil
}

func createLocalDBFileIfNotExists(dbFile string) error {
	if _, err := os.Stat(dbFile); !os.IsNotExist(err) {
		return err
	}

	if dir := filepath.Dir(dbFile); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create database dir: %w", err)
		}
	}

	f, err := os.Create(dbFile)
	if err != nil {
		return fmt.Errorf("create database file: %w", err)
	}
	return f.Close()
}

// ClientStorages groups the client-side storage repositories into a single
// value the service layer is wired with.
type ClientStorages struct {
	Records RecordRepository
	Journal JournalRepository
	Vault   VaultBlobStore
}

// NewClientStorages opens the local database, runs migrations, and
// constructs the repositories plus the vault blob file store rooted at
// vaultDir.
func NewClientStorages(cfg config.Storage, log *logger.Logger) (*ClientStorages, error) {
	db, err := NewConnectSQLite(context.Background(), cfg.DB, log)
	if err != nil {
		return nil, fmt.Errorf("sqlite connection error: %w", err)
	}

	if err := db.Migrate(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return &ClientStorages{
		Records: NewRecordRepository(db, log),
		Journal: NewJournalRepository(db, log),
		Vault:   NewBlobFileStore(cfg.VaultDir),
	}, nil
}
