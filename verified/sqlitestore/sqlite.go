package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/unkn0wn-root/feedcache/verified"
)

type Store struct {
	db *sql.DB
}

var _ verified.Store = (*Store)(nil)

func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to sqlite database: %w", err)
	}

	s := &Store{db: db}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS verified (
		id TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("failed to execute schema query: %w", err)
	}
	return nil
}

// VerifiedIDs returns ids in insertion order.
func (s *Store) VerifiedIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM verified ORDER BY created_at, rowid")
	if err != nil {
		return nil, fmt.Errorf("failed to query verified ids: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan verified id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate verified ids: %w", err)
	}
	return ids, nil
}

func (s *Store) Add(ctx context.Context, ids ...string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO verified (id, created_at) VALUES (?, ?)
			ON CONFLICT(id) DO NOTHING`,
			id, now,
		); err != nil {
			return fmt.Errorf("failed to add verified id %q: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit verified ids: %w", err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM verified WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to remove verified id: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
