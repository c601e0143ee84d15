package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS wildcards (
	key TEXT PRIMARY KEY,
	content TEXT NOT NULL
);`

// SQLite persists entries in a sqlite table and mirrors them in memory.
type SQLite struct {
	*Memory
	db *sql.DB
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("sqlite path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create wildcards table: %w", err)
	}

	s := &SQLite{Memory: NewMemory(), db: db}
	if err := s.load(ctx); err != nil {
		db.Close()
		return nil, err
	}
	log.Debugf("Loaded %d wildcards from sqlite %s", len(s.entries), path)
	return s, nil
}

func (s *SQLite) load(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT key, content FROM wildcards`)
	if err != nil {
		return fmt.Errorf("load wildcards: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, content string
		if err := rows.Scan(&key, &content); err != nil {
			return err
		}
		s.entries[key] = content
	}
	return rows.Err()
}

func (s *SQLite) Set(key, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`INSERT INTO wildcards(key, content) VALUES(?, ?)
		ON CONFLICT(key) DO UPDATE SET content = excluded.content`, key, content)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	s.entries[key] = content
	return nil
}

func (s *SQLite) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(`DELETE FROM wildcards WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	delete(s.entries, key)
	return nil
}

func (s *SQLite) Replace(entries map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM wildcards`); err != nil {
			return err
		}
		stmt, err := tx.Prepare(`INSERT INTO wildcards(key, content) VALUES(?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for k, v := range entries {
			if _, err := stmt.Exec(k, v); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace wildcards: %w", err)
	}
	s.entries = copyEntries(entries)
	return nil
}

// withTx commits when fn returns nil and rolls back otherwise.
func (s *SQLite) withTx(fn func(*sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
