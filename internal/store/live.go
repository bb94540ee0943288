package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"bilancio/internal/core"
)

const loadTimeout = 10 * time.Second

// Live turns a Table into live collections. Every successful mutation reloads the
// collection and pushes the full snapshot to its subscribers.
type Live struct {
	namespace string
	table     Table
	notifier  Notifier

	mu     sync.Mutex
	subs   map[Path]map[uint64]*subscriber
	seq    map[Path]uint64
	nextID uint64
}

// Ensure interface conformance
var (
	_ Collections = (*Live)(nil)
	_ Collection  = (*collection)(nil)
)

// NewLive wraps table. notifier may be nil when no other process needs to hear about changes.
func NewLive(namespace string, table Table, notifier Notifier) *Live {
	return &Live{
		namespace: namespace,
		table:     table,
		notifier:  notifier,
		subs:      make(map[Path]map[uint64]*subscriber),
		seq:       make(map[Path]uint64),
	}
}

// Namespace returns the application namespace prefixed to every collection path.
func (l *Live) Namespace() string {
	return l.namespace
}

// Collection implements Collections.
func (l *Live) Collection(principalID string, kind core.Kind) Collection {
	return &collection{live: l, path: Path{Namespace: l.namespace, PrincipalID: principalID, Kind: kind}}
}

// Refresh reloads p and delivers the snapshot to its subscribers.
func (l *Live) Refresh(ctx context.Context, p Path) error {
	l.mu.Lock()
	subs := l.subscribersLocked(p)
	seq := l.nextSeqLocked(p)
	l.mu.Unlock()
	if len(subs) == 0 {
		return nil
	}

	snapshot, err := l.table.List(ctx, p)
	if err != nil {
		serr := &core.StoreError{Op: "subscribe", Collection: p.String(), Err: err}
		for _, s := range subs {
			s.offer(seq, nil, serr)
		}
		return serr
	}
	for _, s := range subs {
		s.offer(seq, snapshot, nil)
	}
	return nil
}

// RefreshCollection is Refresh addressed by the string form of a path, as carried
// by change notifications. Paths outside this namespace are ignored.
func (l *Live) RefreshCollection(ctx context.Context, collection string) error {
	p, err := ParsePath(collection)
	if err != nil {
		return err
	}
	if p.Namespace != l.namespace {
		return nil
	}
	return l.Refresh(ctx, p)
}

// Subscribers returns the number of live subscriptions on p.
func (l *Live) Subscribers(p Path) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.subs[p])
}

// Close cancels every subscription.
func (l *Live) Close() {
	l.mu.Lock()
	var all []*subscriber
	for _, m := range l.subs {
		for _, s := range m {
			all = append(all, s)
		}
	}
	l.mu.Unlock()
	for _, s := range all {
		s.Unsubscribe()
	}
}

func (l *Live) subscribersLocked(p Path) []*subscriber {
	out := make([]*subscriber, 0, len(l.subs[p]))
	for _, s := range l.subs[p] {
		out = append(out, s)
	}
	return out
}

func (l *Live) nextSeqLocked(p Path) uint64 {
	l.seq[p]++
	return l.seq[p]
}

func (l *Live) subscribe(p Path, onChange func([]core.Transaction), onError func(error)) *subscriber {
	s := &subscriber{
		live:     l,
		path:     p,
		onChange: onChange,
		onError:  onError,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}

	l.mu.Lock()
	l.nextID++
	s.id = l.nextID
	if l.subs[p] == nil {
		l.subs[p] = make(map[uint64]*subscriber)
	}
	l.subs[p][s.id] = s
	seq := l.nextSeqLocked(p)
	l.mu.Unlock()

	go s.run()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		snapshot, err := l.table.List(ctx, p)
		if err != nil {
			s.offer(seq, nil, &core.StoreError{Op: "subscribe", Collection: p.String(), Err: err})
			return
		}
		s.offer(seq, snapshot, nil)
	}()
	return s
}

func (l *Live) remove(s *subscriber) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if m, ok := l.subs[s.path]; ok {
		delete(m, s.id)
		if len(m) == 0 {
			delete(l.subs, s.path)
		}
	}
}

// changed pushes the new snapshot locally and tells other processes.
func (l *Live) changed(ctx context.Context, p Path) {
	if err := l.Refresh(ctx, p); err != nil {
		slog.WarnContext(ctx, "Failed to refresh collection after mutation", "collection", p.String(), "error", err)
	}
	if l.notifier == nil {
		return
	}
	if err := l.notifier.PublishChange(ctx, p.String()); err != nil {
		// The mutation is stored; remote subscribers catch up on the next change.
		slog.ErrorContext(ctx, "Failed to publish collection change", "collection", p.String(), "error", err)
	}
}

type subscriber struct {
	live     *Live
	id       uint64
	path     Path
	onChange func([]core.Transaction)
	onError  func(error)

	mu      sync.Mutex
	lastSeq uint64
	latest  []core.Transaction
	err     error
	dirty   bool

	deliverMu sync.Mutex
	closed    bool
	once      sync.Once
	wake      chan struct{}
	done      chan struct{}
}

// offer records the outcome of load number seq. Older loads never replace newer ones.
func (s *subscriber) offer(seq uint64, snapshot []core.Transaction, err error) {
	s.mu.Lock()
	if seq <= s.lastSeq {
		s.mu.Unlock()
		return
	}
	s.lastSeq = seq
	s.latest = snapshot
	s.err = err
	s.dirty = true
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}

		s.mu.Lock()
		if !s.dirty {
			s.mu.Unlock()
			continue
		}
		snapshot := append([]core.Transaction{}, s.latest...)
		err := s.err
		s.dirty = false
		s.mu.Unlock()

		s.deliverMu.Lock()
		if !s.closed {
			if err != nil {
				if s.onError != nil {
					s.onError(err)
				}
			} else if s.onChange != nil {
				s.onChange(snapshot)
			}
		}
		s.deliverMu.Unlock()
	}
}

func (s *subscriber) Unsubscribe() {
	s.once.Do(func() {
		s.live.remove(s)
		s.deliverMu.Lock()
		s.closed = true
		s.deliverMu.Unlock()
		close(s.done)
	})
}

type collection struct {
	live *Live
	path Path
}

func (c *collection) Path() Path {
	return c.path
}

func (c *collection) Subscribe(onChange func([]core.Transaction), onError func(error)) Subscription {
	return c.live.subscribe(c.path, onChange, onError)
}

func (c *collection) Create(ctx context.Context, t core.Transaction) (string, error) {
	if err := c.checkKind(t); err != nil {
		return "", &core.StoreError{Op: "create", Collection: c.path.String(), Err: err}
	}
	id, err := c.live.table.Insert(ctx, c.path, t)
	if err != nil {
		return "", &core.StoreError{Op: "create", Collection: c.path.String(), Err: err}
	}
	slog.InfoContext(ctx, "Transaction created", "collection", c.path.String(), "id", id, "amount_cents", t.Amount.Cents)
	c.live.changed(ctx, c.path)
	return id, nil
}

func (c *collection) Update(ctx context.Context, id string, t core.Transaction) error {
	if err := c.checkKind(t); err != nil {
		return &core.StoreError{Op: "update", Collection: c.path.String(), Err: err}
	}
	if err := c.live.table.Replace(ctx, c.path, id, t); err != nil {
		return &core.StoreError{Op: "update", Collection: c.path.String(), Err: err}
	}
	slog.InfoContext(ctx, "Transaction updated", "collection", c.path.String(), "id", id)
	c.live.changed(ctx, c.path)
	return nil
}

func (c *collection) Delete(ctx context.Context, id string) error {
	if err := c.live.table.Remove(ctx, c.path, id); err != nil {
		return &core.StoreError{Op: "delete", Collection: c.path.String(), Err: err}
	}
	slog.InfoContext(ctx, "Transaction deleted", "collection", c.path.String(), "id", id)
	c.live.changed(ctx, c.path)
	return nil
}

// checkKind rejects a record whose variant belongs to the other collection.
func (c *collection) checkKind(t core.Transaction) error {
	if t.Kind() != c.path.Kind {
		return fmt.Errorf("%w: %s collection cannot hold %q records", core.ErrUnknownKind, c.path.Kind, t.Kind())
	}
	return nil
}
