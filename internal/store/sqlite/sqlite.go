// Package sqlite persists transaction collections in a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"bilancio/internal/core"
	"bilancio/internal/store"
)

var _ store.Table = (*Table)(nil)

type Table struct {
	db *sql.DB
}

// Open creates the database file and its directory when missing and applies migrations.
func Open(dbPath string) (*Table, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// modernc sqlite serialises writers; one connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	slog.Info("SQLite table ready", "path", dbPath)
	return &Table{db: db}, nil
}

func (t *Table) Close() error {
	if t.db != nil {
		return t.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (t *Table) Ping(ctx context.Context) error {
	return t.db.PingContext(ctx)
}

const listQuery = `
SELECT id, kind, amount_cents, occurred_on, category, reason, source
FROM transactions
WHERE collection = ?
ORDER BY created_at, rowid`

func (t *Table) List(ctx context.Context, p store.Path) ([]core.Transaction, error) {
	rows, err := t.db.QueryContext(ctx, listQuery, p.String())
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var r store.Row
		if err := rows.Scan(&r.ID, &r.Kind, &r.AmountCents, &r.OccurredOn, &r.Category, &r.Reason, &r.Source); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, r.Transaction())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func (t *Table) Insert(ctx context.Context, p store.Path, tx core.Transaction) (string, error) {
	r := store.RowOf(tx)
	r.ID = uuid.NewString()
	_, err := t.db.ExecContext(ctx, `
INSERT INTO transactions (id, collection, kind, amount_cents, occurred_on, category, reason, source)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, p.String(), r.Kind, r.AmountCents, r.OccurredOn, r.Category, r.Reason, r.Source)
	if err != nil {
		return "", fmt.Errorf("insert transaction: %w", err)
	}
	return r.ID, nil
}

func (t *Table) Replace(ctx context.Context, p store.Path, id string, tx core.Transaction) error {
	r := store.RowOf(tx)
	res, err := t.db.ExecContext(ctx, `
UPDATE transactions
SET kind = ?, amount_cents = ?, occurred_on = ?, category = ?, reason = ?, source = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ? AND collection = ?`,
		r.Kind, r.AmountCents, r.OccurredOn, r.Category, r.Reason, r.Source, id, p.String())
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return expectOne(res)
}

func (t *Table) Remove(ctx context.Context, p store.Path, id string) error {
	res, err := t.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND collection = ?`, id, p.String())
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return expectOne(res)
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}
