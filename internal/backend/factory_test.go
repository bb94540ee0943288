package backend

import (
	"context"
	"path/filepath"
	"testing"

	"bilancio/internal/config"
	"bilancio/internal/core"
	"bilancio/internal/store/memory"
	"bilancio/internal/store/sqlite"
)

func TestCreateBackend(t *testing.T) {
	ctx := context.Background()
	factory := NewFactory(nil)

	tests := []struct {
		name    string
		config  Config
		wantErr bool
		check   func(*testing.T, *BackendResult)
	}{
		{
			name:   "memory",
			config: Config{Type: MemoryBackend, Namespace: "ns"},
			check: func(t *testing.T, r *BackendResult) {
				if _, ok := r.Table.(*memory.Table); !ok {
					t.Errorf("Table = %T, want *memory.Table", r.Table)
				}
			},
		},
		{
			name:   "sqlite",
			config: Config{Type: SQLiteBackend, Namespace: "ns", SQLiteDBPath: filepath.Join(t.TempDir(), "db", "b.db")},
			check: func(t *testing.T, r *BackendResult) {
				if _, ok := r.Table.(*sqlite.Table); !ok {
					t.Errorf("Table = %T, want *sqlite.Table", r.Table)
				}
				if err := r.Ping(ctx); err != nil {
					t.Errorf("Ping() error = %v", err)
				}
			},
		},
		{
			name:    "invalid type",
			config:  Config{Type: "sheets", Namespace: "ns"},
			wantErr: true,
		},
		{
			name:    "missing namespace",
			config:  Config{Type: MemoryBackend},
			wantErr: true,
		},
		{
			name:    "postgres without url",
			config:  Config{Type: PostgresBackend, Namespace: "ns"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := factory.CreateBackend(ctx, tt.config)
			if tt.wantErr {
				if err == nil {
					t.Fatal("CreateBackend() expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateBackend() error = %v", err)
			}
			defer result.Cleanup()

			if result.Broker != nil {
				t.Error("Broker should be nil without AMQP_URL")
			}
			if result.Live.Namespace() != tt.config.Namespace {
				t.Errorf("Live namespace = %q", result.Live.Namespace())
			}
			tt.check(t, result)
		})
	}
}

func TestCreateBackend_LiveUsesTable(t *testing.T) {
	ctx := context.Background()
	result, err := NewFactory(nil).CreateBackend(ctx, Config{Type: MemoryBackend, Namespace: "ns"})
	if err != nil {
		t.Fatalf("CreateBackend() error = %v", err)
	}
	defer result.Cleanup()

	col := result.Live.Collection("u1", core.KindIncome)
	if _, err := col.Create(ctx, core.NewIncome("", core.Money{Cents: 100}, core.NewDate(2024, 1, 1), "job")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	items, _ := result.Table.List(ctx, col.Path())
	if len(items) != 1 {
		t.Errorf("table holds %d items, want 1", len(items))
	}
}

func TestFromAppConfig(t *testing.T) {
	cfg := &config.Config{DataBackend: "sqlite", Namespace: "ns", SQLiteDBPath: "x.db", AMQPURL: "amqp://h/", AMQPExchange: "ex"}
	got, err := FromAppConfig(cfg)
	if err != nil {
		t.Fatalf("FromAppConfig() error = %v", err)
	}
	want := Config{Type: SQLiteBackend, Namespace: "ns", SQLiteDBPath: "x.db", AMQPURL: "amqp://h/", AMQPExchange: "ex"}
	if got != want {
		t.Errorf("FromAppConfig() = %+v, want %+v", got, want)
	}

	if _, err := FromAppConfig(nil); err == nil {
		t.Error("FromAppConfig(nil) should fail")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "nope"}); err == nil {
		t.Error("FromAppConfig(invalid backend) should fail")
	}
}
