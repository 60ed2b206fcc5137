// Package sqlite keeps thresholds and mute state in a local SQLite file
// shared by the one-shot CLI commands and a running watch daemon.
package sqlite

import (
	"database/sql"
	"fmt"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/juparave/commitreminder/internal/util"
)

// pragmas for a file that two processes may touch at once. WAL lets the
// daemon read while `reminder mute` writes; the busy timeout covers the
// short window where both want the write lock.
const pragmas = "_pragma=journal_mode(WAL)&_pragma=busy_timeout(10000)&_pragma=synchronous(NORMAL)"

// DB holds a single-connection writer and a small reader pool
type DB struct {
	Writer *sql.DB
	Reader *sql.DB
	path   string
}

// NewDB opens the state file at dbPath, creating its directory first
func NewDB(dbPath string) (*DB, error) {
	if err := util.EnsureDir(filepath.Dir(dbPath)); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	return openDSN(fmt.Sprintf("file:%s?%s", dbPath, pragmas), dbPath)
}

func openDSN(dsn, path string) (*DB, error) {
	writer, err := openPool(dsn, 1)
	if err != nil {
		return nil, fmt.Errorf("writer: %w", err)
	}
	reader, err := openPool(dsn, 2)
	if err != nil {
		_ = writer.Close()
		return nil, fmt.Errorf("reader: %w", err)
	}
	return &DB{Writer: writer, Reader: reader, path: path}, nil
}

func openPool(dsn string, maxConns int) (*sql.DB, error) {
	pool, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	pool.SetMaxOpenConns(maxConns)
	if err := pool.Ping(); err != nil {
		_ = pool.Close()
		return nil, err
	}
	return pool, nil
}

// Path returns the state file location
func (db *DB) Path() string {
	return db.path
}

// Close closes both pools and reports the first failure
func (db *DB) Close() error {
	rerr := db.Reader.Close()
	werr := db.Writer.Close()
	if rerr != nil {
		return fmt.Errorf("close reader: %w", rerr)
	}
	if werr != nil {
		return fmt.Errorf("close writer: %w", werr)
	}
	return nil
}
