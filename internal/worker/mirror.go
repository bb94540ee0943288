// Package worker keeps the spreadsheet mirror in step with the collections.
package worker

import (
	"context"
	"errors"
	"sort"
	"sync"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	applog "bilancio/internal/log"
	"bilancio/internal/sheets"
	"bilancio/internal/store"
)

// MirrorWorker rewrites the tab of every collection a change message names.
// Collections whose mirror failed are kept as pending and retried by RetryPending.
type MirrorWorker struct {
	table     store.Table
	writer    sheets.TabWriter
	registry  *core.Registry
	namespace string
	logger    *applog.Logger

	mu      sync.Mutex
	pending map[store.Path]struct{}
}

func NewMirrorWorker(namespace string, table store.Table, writer sheets.TabWriter, registry *core.Registry, logger *applog.Logger) *MirrorWorker {
	if registry == nil {
		registry = core.DefaultRegistry
	}
	if logger == nil {
		logger = applog.New(applog.Config{Component: applog.ComponentWorker})
	}
	return &MirrorWorker{
		table:     table,
		writer:    writer,
		registry:  registry,
		namespace: namespace,
		logger:    logger,
		pending:   map[store.Path]struct{}{},
	}
}

// HandleChange mirrors the collection named by msg. Messages for another namespace or
// with an unreadable path are dropped. Mirror failures are retried later rather than
// requeued, so the error is always nil.
func (w *MirrorWorker) HandleChange(ctx context.Context, msg *amqp.ChangeMessage) error {
	p, err := store.ParsePath(msg.Collection)
	if err != nil {
		w.logger.WarnContext(ctx, "Dropping change message with invalid collection",
			applog.FieldCollection, msg.Collection,
			applog.FieldError, err)
		return nil
	}
	if p.Namespace != w.namespace {
		w.logger.DebugContext(ctx, "Ignoring change from another namespace",
			applog.FieldCollection, msg.Collection)
		return nil
	}

	if err := w.Mirror(ctx, p); err != nil {
		w.markPending(p)
		w.logger.ErrorContext(ctx, "Failed to mirror collection",
			applog.FieldOperation, applog.OpMirror,
			applog.FieldCollection, p.String(),
			applog.FieldError, err)
		return nil
	}
	w.clearPending(p)
	return nil
}

// Mirror reads the full collection and rewrites its tab.
func (w *MirrorWorker) Mirror(ctx context.Context, p store.Path) error {
	txs, err := w.table.List(ctx, p)
	if err != nil {
		return &core.StoreError{Op: "list", Collection: p.String(), Err: err}
	}
	tab := sheets.TabName(p)
	if err := w.writer.WriteTab(ctx, tab, sheets.Rows(p.Kind, txs, w.registry)); err != nil {
		return err
	}
	w.logger.InfoContext(ctx, "Mirrored collection",
		applog.FieldOperation, applog.OpMirror,
		applog.FieldCollection, p.String(),
		applog.FieldPrincipalID, p.PrincipalID,
		applog.FieldKind, p.Kind.String(),
		"tab", tab,
		"records", len(txs))
	return nil
}

// RetryPending mirrors every collection whose last attempt failed.
func (w *MirrorWorker) RetryPending(ctx context.Context) error {
	paths := w.Pending()
	if len(paths) == 0 {
		return nil
	}
	w.logger.InfoContext(ctx, "Retrying pending mirrors", "count", len(paths))

	var errs []error
	for _, p := range paths {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := w.Mirror(ctx, p); err != nil {
			errs = append(errs, err)
			continue
		}
		w.clearPending(p)
	}
	return errors.Join(errs...)
}

// Pending lists collections waiting for a retry in path order.
func (w *MirrorWorker) Pending() []store.Path {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]store.Path, 0, len(w.pending))
	for p := range w.pending {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func (w *MirrorWorker) markPending(p store.Path) {
	w.mu.Lock()
	w.pending[p] = struct{}{}
	w.mu.Unlock()
}

func (w *MirrorWorker) clearPending(p store.Path) {
	w.mu.Lock()
	delete(w.pending, p)
	w.mu.Unlock()
}
