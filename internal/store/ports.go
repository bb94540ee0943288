// Package store exposes per-principal, per-kind transaction collections with live
// snapshot subscriptions on top of a pluggable persistence Table.
package store

import (
	"context"
	"fmt"
	"strings"

	"bilancio/internal/core"
)

// Path addresses one collection: {namespace}/{principalId}/{kind}s.
type Path struct {
	Namespace   string
	PrincipalID string
	Kind        core.Kind
}

func (p Path) String() string {
	return fmt.Sprintf("%s/%s/%ss", p.Namespace, p.PrincipalID, p.Kind)
}

// ParsePath is the inverse of Path.String.
func ParsePath(s string) (Path, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return Path{}, fmt.Errorf("invalid collection path %q", s)
	}
	kind, err := core.ParseKind(parts[2])
	if err != nil || !strings.HasSuffix(parts[2], "s") {
		return Path{}, fmt.Errorf("invalid collection kind in %q", s)
	}
	return Path{Namespace: parts[0], PrincipalID: parts[1], Kind: kind}, nil
}

// Ports for outbound adapters.
type (
	// Table is the persistence primitive behind live collections.
	// Replace and Remove return core.ErrNotFound when id is absent from the collection.
	Table interface {
		List(ctx context.Context, p Path) ([]core.Transaction, error)
		Insert(ctx context.Context, p Path, t core.Transaction) (id string, err error)
		Replace(ctx context.Context, p Path, id string, t core.Transaction) error
		Remove(ctx context.Context, p Path, id string) error
	}

	// Notifier tells other processes that a collection changed.
	Notifier interface {
		PublishChange(ctx context.Context, collection string) error
	}

	// Subscription is the cancellation handle returned by Subscribe.
	Subscription interface {
		// Unsubscribe is idempotent. Once it returns no further callback starts.
		// It must not be called from inside the subscription's own callback.
		Unsubscribe()
	}

	// Collection is one principal's expenses or incomes.
	Collection interface {
		Path() Path
		// Subscribe delivers the full current snapshot now and after every change.
		Subscribe(onChange func([]core.Transaction), onError func(error)) Subscription
		Create(ctx context.Context, t core.Transaction) (id string, err error)
		Update(ctx context.Context, id string, t core.Transaction) error
		Delete(ctx context.Context, id string) error
	}

	// Collections hands out collections scoped to a principal and kind.
	Collections interface {
		Collection(principalID string, kind core.Kind) Collection
	}
)
