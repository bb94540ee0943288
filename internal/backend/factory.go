package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"bilancio/internal/amqp"
	"bilancio/internal/store"
	"bilancio/internal/store/memory"
	"bilancio/internal/store/postgres"
	"bilancio/internal/store/sqlite"
)

type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend opens the table, connects the optional broker and wraps both in a store.Live.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		table   store.Table
		closers []func() error
	)
	switch config.Type {
	case SQLiteBackend:
		t, err := sqlite.Open(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite table: %w", err)
		}
		table = t
		closers = append(closers, t.Close)
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case PostgresBackend:
		t, err := postgres.Open(ctx, config.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL table: %w", err)
		}
		table = t
		closers = append(closers, t.Close)
		f.logger.Info("Initialized PostgreSQL backend")
	case MemoryBackend:
		table = memory.New()
		f.logger.Info("Initialized memory backend")
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	var broker *amqp.Client
	if config.AMQPURL != "" {
		c, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without cross-process push", "error", err)
		} else {
			broker = c
			closers = append(closers, c.Close)
			f.logger.Info("Initialized AMQP client", "exchange", config.AMQPExchange, "origin", c.Origin())
		}
	}

	var notifier store.Notifier
	if broker != nil {
		notifier = broker
	}
	live := store.NewLive(config.Namespace, table, notifier)

	return &BackendResult{
		Table:  table,
		Live:   live,
		Broker: broker,
		Cleanup: func() error {
			live.Close()
			var errs []error
			for i := len(closers) - 1; i >= 0; i-- {
				errs = append(errs, closers[i]())
			}
			return errors.Join(errs...)
		},
	}, nil
}
