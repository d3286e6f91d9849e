package consumer

import "context"

// Repository persists consumers. Implementations surface operations against
// an unregistered consumer as a gone error, distinct from not found.
type Repository interface {
	Create(ctx context.Context, c *Consumer) error
	Update(ctx context.Context, c *Consumer) error
	GetByUUID(ctx context.Context, uuid string) (*Consumer, error)
	GetByUUIDForOwner(ctx context.Context, ownerKey, uuid string) (*Consumer, error)
	// FindHypervisor resolves a hypervisor by its reported hypervisor ID
	// within an owner. Identical hypervisor IDs in different owners are
	// distinct consumers.
	FindHypervisor(ctx context.Context, ownerKey, hypervisorID string) (*Consumer, error)
	// FindGuestHost resolves the host consumer currently claiming a guest
	// virt UUID within an owner, nil when unmapped.
	FindGuestHost(ctx context.Context, ownerKey, guestUUID string) (*Consumer, error)
	// FindGuestConsumer resolves a registered guest by its virt UUID fact
	// within an owner, nil when the guest never registered.
	FindGuestConsumer(ctx context.Context, ownerKey, virtUUID string) (*Consumer, error)
	ListByOwner(ctx context.Context, ownerKey string) ([]*Consumer, error)
	// Delete unregisters the consumer. Subsequent reads return gone.
	Delete(ctx context.Context, uuid string) error
}

// ActivationKeyRepository persists activation keys. Keys are unique by
// (owner, name).
type ActivationKeyRepository interface {
	Create(ctx context.Context, key *ActivationKey) error
	Update(ctx context.Context, key *ActivationKey) error
	GetByName(ctx context.Context, ownerKey, name string) (*ActivationKey, error)
	ListByOwner(ctx context.Context, ownerKey string) ([]*ActivationKey, error)
	Delete(ctx context.Context, keyID string) error
}
