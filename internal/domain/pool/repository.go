package pool

import (
	"context"
	"time"
)

// ListFilter narrows pool listings.
type ListFilter struct {
	OwnerKey      string
	ProductID     string
	Type          PoolType
	ActiveOn      *time.Time
	SourceStackID string
	// RequiresHost filters pools restricted to a specific host UUID.
	RequiresHost string
	// IncludeDerived controls whether entitlement/stack derived pools are
	// returned alongside subscription pools.
	IncludeDerived bool
}

// Repository persists pools. Owner scoping is enforced by callers passing
// the owner key; cross-owner lookups surface as not found.
type Repository interface {
	Create(ctx context.Context, p *Pool) error
	Update(ctx context.Context, p *Pool) error
	Get(ctx context.Context, poolID string) (*Pool, error)
	GetForOwner(ctx context.Context, ownerKey, poolID string) (*Pool, error)
	List(ctx context.Context, filter ListFilter) ([]*Pool, error)
	// ListBySubscription returns all pools backed by a subscription,
	// including its bonus pools.
	ListBySubscription(ctx context.Context, subscriptionID string) ([]*Pool, error)
	// FindStackDerived locates the single derived pool for a (host, stack)
	// pair, nil when none exists.
	FindStackDerived(ctx context.Context, ownerKey, hostUUID, stackID string) (*Pool, error)
	// ListExpired returns pools whose end date passed before the cutoff.
	ListExpired(ctx context.Context, cutoff time.Time) ([]*Pool, error)
	Delete(ctx context.Context, poolID string) error
	// ConsumedQuantity sums entitlement quantities held against the pool.
	ConsumedQuantity(ctx context.Context, poolID string) (int64, error)
}

// SubscriptionSource supplies current subscription data for an owner during
// refresh. Backed by the hosted adapter or an imported manifest; the engine
// treats it as an external collaborator.
type SubscriptionSource interface {
	SubscriptionsForOwner(ctx context.Context, ownerKey string) ([]*Subscription, error)
}
