package memory

import (
	"context"
	"errors"
	"testing"
)

func TestSpreadsheetWriteReplacesTab(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.WriteTab(ctx, "alice expenses", [][]any{{"ID"}, {"a"}, {"b"}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := s.WriteTab(ctx, "alice expenses", [][]any{{"ID"}, {"c"}}); err != nil {
		t.Fatalf("write: %v", err)
	}

	rows, ok := s.Tab("alice expenses")
	if !ok || len(rows) != 2 || rows[1][0] != "c" {
		t.Fatalf("unexpected tab content: %v (exists=%v)", rows, ok)
	}
	if s.Writes() != 2 {
		t.Errorf("expected 2 writes, got %d", s.Writes())
	}
}

func TestSpreadsheetCopiesRows(t *testing.T) {
	s := New()
	rows := [][]any{{"ID"}, {"a"}}
	_ = s.WriteTab(context.Background(), "t", rows)
	rows[1][0] = "mutated"

	got, _ := s.Tab("t")
	if got[1][0] != "a" {
		t.Errorf("stored rows alias caller slice: %v", got)
	}
}

func TestSpreadsheetFail(t *testing.T) {
	s := New()
	boom := errors.New("quota exceeded")
	s.Fail(boom)
	if err := s.WriteTab(context.Background(), "t", nil); !errors.Is(err, boom) {
		t.Fatalf("expected injected error, got %v", err)
	}
	if len(s.Tabs()) != 0 {
		t.Errorf("failed write must not create a tab")
	}
	s.Fail(nil)
	if err := s.WriteTab(context.Background(), "t", nil); err != nil {
		t.Fatalf("write after reset: %v", err)
	}
}
