// Package memory is an in-process store.Table for development and tests.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"bilancio/internal/core"
	"bilancio/internal/store"
)

var _ store.Table = (*Table)(nil)

type Table struct {
	mu    sync.Mutex
	items map[store.Path][]core.Transaction
	fail  error
}

func New() *Table {
	return &Table{items: make(map[store.Path][]core.Transaction)}
}

// Seed stores transactions under p as they are, keeping their ids.
func (t *Table) Seed(p store.Path, txs ...core.Transaction) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items[p] = append(t.items[p], txs...)
}

// FailWith makes every following call return err until it is called with nil.
func (t *Table) FailWith(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fail = err
}

// List returns a copy of the collection in insertion order.
func (t *Table) List(_ context.Context, p store.Path) ([]core.Transaction, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fail != nil {
		return nil, t.fail
	}
	return append([]core.Transaction(nil), t.items[p]...), nil
}

func (t *Table) Insert(_ context.Context, p store.Path, tx core.Transaction) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fail != nil {
		return "", t.fail
	}
	tx.ID = uuid.NewString()
	t.items[p] = append(t.items[p], tx)
	return tx.ID, nil
}

func (t *Table) Replace(_ context.Context, p store.Path, id string, tx core.Transaction) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fail != nil {
		return t.fail
	}
	for i, existing := range t.items[p] {
		if existing.ID == id {
			tx.ID = id
			t.items[p][i] = tx
			return nil
		}
	}
	return core.ErrNotFound
}

func (t *Table) Remove(_ context.Context, p store.Path, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fail != nil {
		return t.fail
	}
	items := t.items[p]
	for i, existing := range items {
		if existing.ID == id {
			t.items[p] = append(items[:i:i], items[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}
