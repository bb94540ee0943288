package memory

import (
	"context"
	"errors"
	"testing"

	"bilancio/internal/core"
	"bilancio/internal/store"
)

var path = store.Path{Namespace: "test", PrincipalID: "u1", Kind: core.KindExpense}

func TestTable_InsertAssignsIDs(t *testing.T) {
	ctx := context.Background()
	tbl := New()

	id1, err := tbl.Insert(ctx, path, core.NewExpense("", core.Money{Cents: 100}, core.NewDate(2024, 3, 1), "rent", ""))
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	id2, _ := tbl.Insert(ctx, path, core.NewExpense("ignored", core.Money{Cents: 200}, core.NewDate(2024, 3, 2), "rent", ""))

	if id1 == "" || id1 == id2 || id2 == "ignored" {
		t.Fatalf("expected distinct generated ids, got %q and %q", id1, id2)
	}

	items, _ := tbl.List(ctx, path)
	if len(items) != 2 || items[0].ID != id1 || items[1].ID != id2 {
		t.Fatalf("List() = %+v", items)
	}
}

func TestTable_PathsAreIsolated(t *testing.T) {
	ctx := context.Background()
	tbl := New()
	other := store.Path{Namespace: "test", PrincipalID: "u2", Kind: core.KindExpense}

	tbl.Insert(ctx, path, core.NewExpense("", core.Money{Cents: 100}, core.NewDate(2024, 3, 1), "rent", ""))

	items, _ := tbl.List(ctx, other)
	if len(items) != 0 {
		t.Fatalf("expected other principal to see nothing, got %d", len(items))
	}
}

func TestTable_ReplaceAndRemove(t *testing.T) {
	ctx := context.Background()
	tbl := New()
	id, _ := tbl.Insert(ctx, path, core.NewExpense("", core.Money{Cents: 100}, core.NewDate(2024, 3, 1), "rent", ""))

	if err := tbl.Replace(ctx, path, id, core.NewExpense("", core.Money{Cents: 999}, core.NewDate(2024, 3, 1), "fun", "")); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	items, _ := tbl.List(ctx, path)
	if items[0].ID != id || items[0].Amount.Cents != 999 {
		t.Fatalf("Replace() did not keep id or update amount: %+v", items[0])
	}

	if err := tbl.Replace(ctx, path, "missing", items[0]); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Replace(missing) error = %v, want ErrNotFound", err)
	}
	if err := tbl.Remove(ctx, path, id); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if err := tbl.Remove(ctx, path, id); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second Remove() error = %v, want ErrNotFound", err)
	}
}

func TestTable_ListReturnsCopy(t *testing.T) {
	ctx := context.Background()
	tbl := New()
	tbl.Seed(path, core.NewExpense("a", core.Money{Cents: 1}, core.NewDate(2024, 1, 1), "rent", ""))

	items, _ := tbl.List(ctx, path)
	items[0].ID = "changed"

	again, _ := tbl.List(ctx, path)
	if again[0].ID != "a" {
		t.Fatalf("List() exposed internal storage")
	}
}

func TestTable_FailWith(t *testing.T) {
	ctx := context.Background()
	tbl := New()
	boom := errors.New("boom")
	tbl.FailWith(boom)

	if _, err := tbl.List(ctx, path); !errors.Is(err, boom) {
		t.Errorf("List() error = %v, want boom", err)
	}
	tbl.FailWith(nil)
	if _, err := tbl.List(ctx, path); err != nil {
		t.Errorf("List() after reset error = %v", err)
	}
}
