package certificate

import "context"

// Repository persists certificate records.
type Repository interface {
	Create(ctx context.Context, c *Certificate) error
	Update(ctx context.Context, c *Certificate) error
	GetBySerial(ctx context.Context, serial int64) (*Certificate, error)
	GetByEntitlement(ctx context.Context, entitlementID string) (*Certificate, error)
	// GetContentAccess returns the consumer's org-level content access
	// certificate, nil when none has been issued yet.
	GetContentAccess(ctx context.Context, consumerUUID string) (*Certificate, error)
	ListByConsumer(ctx context.Context, consumerUUID string) ([]*Certificate, error)
	DeleteByEntitlement(ctx context.Context, entitlementID string) error
	DeleteByConsumer(ctx context.Context, consumerUUID string) (int64, error)
}
