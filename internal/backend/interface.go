package backend

import (
	"context"

	"bilancio/internal/amqp"
	"bilancio/internal/store"
)

type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

func (t BackendType) IsValid() bool {
	switch t {
	case MemoryBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}

func (t BackendType) String() string {
	return string(t)
}

// CleanupFunc releases backend resources
type CleanupFunc func() error

// Pinger is implemented by tables that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BackendResult is everything built for one process
type BackendResult struct {
	Table store.Table
	Live  *store.Live
	// Broker is nil when AMQP is not configured or unreachable at startup.
	Broker  *amqp.Client
	Cleanup CleanupFunc
}

// Ping checks the table when it supports it.
func (r *BackendResult) Ping(ctx context.Context) error {
	if p, ok := r.Table.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

type Config struct {
	Type      BackendType
	Namespace string

	SQLiteDBPath string
	DatabaseURL  string

	AMQPURL      string
	AMQPExchange string
}
