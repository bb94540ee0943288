// Package postgres persists transaction collections in PostgreSQL through a pgx pool.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"bilancio/internal/core"
	"bilancio/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var _ store.Table = (*Table)(nil)

type Table struct {
	pool *pgxpool.Pool
}

// Open connects to dsn and applies migrations.
func Open(ctx context.Context, dsn string) (*Table, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := runMigrations(pool); err != nil {
		pool.Close()
		return nil, err
	}
	slog.InfoContext(ctx, "PostgreSQL table ready")
	return &Table{pool: pool}, nil
}

func runMigrations(pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	driver, err := pgxmigrate.WithInstance(db, &pgxmigrate.Config{})
	if err != nil {
		return fmt.Errorf("create pgx migrate driver: %w", err)
	}
	d, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", d, "pgx5", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func (t *Table) Close() error {
	t.pool.Close()
	return nil
}

func (t *Table) Ping(ctx context.Context) error {
	return t.pool.Ping(ctx)
}

func (t *Table) List(ctx context.Context, p store.Path) ([]core.Transaction, error) {
	rows, err := t.pool.Query(ctx, `
SELECT id, kind, amount_cents, occurred_on, category, reason, source
FROM transactions
WHERE collection = $1
ORDER BY seq`, p.String())
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
	_, err := t.pool.Exec(ctx, `
INSERT INTO transactions (id, collection, kind, amount_cents, occurred_on, category, reason, source)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		r.ID, p.String(), r.Kind, r.AmountCents, r.OccurredOn, r.Category, r.Reason, r.Source)
	if err != nil {
		return "", fmt.Errorf("insert transaction: %w", err)
	}
	return r.ID, nil
}

func (t *Table) Replace(ctx context.Context, p store.Path, id string, tx core.Transaction) error {
	r := store.RowOf(tx)
	tag, err := t.pool.Exec(ctx, `
UPDATE transactions
SET kind = $1, amount_cents = $2, occurred_on = $3, category = $4, reason = $5, source = $6, updated_at = now()
WHERE id = $7 AND collection = $8`,
		r.Kind, r.AmountCents, r.OccurredOn, r.Category, r.Reason, r.Source, id, p.String())
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (t *Table) Remove(ctx context.Context, p store.Path, id string) error {
	tag, err := t.pool.Exec(ctx, `DELETE FROM transactions WHERE id = $1 AND collection = $2`, id, p.String())
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}
