package entitlement

import "context"

// Repository persists entitlements.
type Repository interface {
	Create(ctx context.Context, e *Entitlement) error
	Update(ctx context.Context, e *Entitlement) error
	Get(ctx context.Context, entID string) (*Entitlement, error)
	// ListByConsumer returns every entitlement a consumer holds. Pools are
	// not attached; callers resolve them through the pool repository.
	ListByConsumer(ctx context.Context, consumerUUID string) ([]*Entitlement, error)
	// ListByPool returns every entitlement held against a pool.
	ListByPool(ctx context.Context, poolID string) ([]*Entitlement, error)
	Delete(ctx context.Context, entID string) error
	DeleteByPool(ctx context.Context, poolID string) (int64, error)
	CountByConsumer(ctx context.Context, consumerUUID string) (int64, error)
}

// SerialGenerator allocates certificate serial numbers. Serials are stable
// identity: regenerating only the content portion of a certificate keeps the
// existing serial.
type SerialGenerator interface {
	NextSerial(ctx context.Context) (int64, error)
}
