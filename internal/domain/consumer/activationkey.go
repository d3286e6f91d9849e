package consumer

import (
	"fmt"
	"time"
)

// ActivationKeyPool is a pool an activation key binds at registration. A zero
// quantity means the suggested quantity is used.
type ActivationKeyPool struct {
	PoolID   string
	Quantity int64
}

// ActivationKey lets unauthenticated registrations in an owner bind a
// preselected set of pools. Keys are resolved by name within their owner.
type ActivationKey struct {
	id           uint
	keyID        string
	ownerKey     string
	name         string
	pools        []ActivationKeyPool
	autoAttach   bool
	serviceLevel string
	createdAt    time.Time
	updatedAt    time.Time
}

// NewActivationKey creates an activation key for an owner.
func NewActivationKey(keyID, ownerKey, name string) (*ActivationKey, error) {
	if keyID == "" {
		return nil, fmt.Errorf("activation key ID is required")
	}
	if ownerKey == "" {
		return nil, fmt.Errorf("owner key is required")
	}
	if name == "" {
		return nil, fmt.Errorf("activation key name is required")
	}
	now := time.Now().UTC()
	return &ActivationKey{
		keyID:     keyID,
		ownerKey:  ownerKey,
		name:      name,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// ActivationKeyReconstructParams carries persisted activation key state.
type ActivationKeyReconstructParams struct {
	ID           uint
	KeyID        string
	OwnerKey     string
	Name         string
	Pools        []ActivationKeyPool
	AutoAttach   bool
	ServiceLevel string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ReconstructActivationKey rebuilds an activation key from persistence.
func ReconstructActivationKey(params ActivationKeyReconstructParams) (*ActivationKey, error) {
	if params.ID == 0 {
		return nil, fmt.Errorf("activation key ID cannot be zero")
	}
	if params.KeyID == "" || params.OwnerKey == "" || params.Name == "" {
		return nil, fmt.Errorf("activation key identity is incomplete")
	}
	return &ActivationKey{
		id:           params.ID,
		keyID:        params.KeyID,
		ownerKey:     params.OwnerKey,
		name:         params.Name,
		pools:        append([]ActivationKeyPool(nil), params.Pools...),
		autoAttach:   params.AutoAttach,
		serviceLevel: params.ServiceLevel,
		createdAt:    params.CreatedAt,
		updatedAt:    params.UpdatedAt,
	}, nil
}

func (k *ActivationKey) ID() uint             { return k.id }
func (k *ActivationKey) KeyID() string        { return k.keyID }
func (k *ActivationKey) OwnerKey() string     { return k.ownerKey }
func (k *ActivationKey) Name() string         { return k.name }
func (k *ActivationKey) AutoAttach() bool     { return k.autoAttach }
func (k *ActivationKey) ServiceLevel() string { return k.serviceLevel }
func (k *ActivationKey) CreatedAt() time.Time { return k.createdAt }
func (k *ActivationKey) UpdatedAt() time.Time { return k.updatedAt }

func (k *ActivationKey) Pools() []ActivationKeyPool {
	return append([]ActivationKeyPool(nil), k.pools...)
}

// SetID sets the activation key ID (only for persistence layer use).
func (k *ActivationKey) SetID(id uint) error {
	if k.id != 0 {
		return fmt.Errorf("activation key ID is already set")
	}
	if id == 0 {
		return fmt.Errorf("activation key ID cannot be zero")
	}
	k.id = id
	return nil
}

// AddPool appends a pool binding to the key. Re-adding a pool updates its
// quantity instead of duplicating the entry.
func (k *ActivationKey) AddPool(poolID string, quantity int64) error {
	if poolID == "" {
		return fmt.Errorf("pool ID is required")
	}
	if quantity < 0 {
		return fmt.Errorf("pool quantity cannot be negative")
	}
	for i := range k.pools {
		if k.pools[i].PoolID == poolID {
			k.pools[i].Quantity = quantity
			k.touchKey()
			return nil
		}
	}
	k.pools = append(k.pools, ActivationKeyPool{PoolID: poolID, Quantity: quantity})
	k.touchKey()
	return nil
}

// RemovePool drops a pool binding from the key.
func (k *ActivationKey) RemovePool(poolID string) {
	for i := range k.pools {
		if k.pools[i].PoolID == poolID {
			k.pools = append(k.pools[:i], k.pools[i+1:]...)
			k.touchKey()
			return
		}
	}
}

// SetAutoAttach toggles running auto-attach after the key's pools are bound.
func (k *ActivationKey) SetAutoAttach(autoAttach bool) {
	k.autoAttach = autoAttach
	k.touchKey()
}

// SetServiceLevel records the service level stamped onto consumers
// registering with this key.
func (k *ActivationKey) SetServiceLevel(level string) {
	k.serviceLevel = level
	k.touchKey()
}

func (k *ActivationKey) touchKey() {
	k.updatedAt = time.Now().UTC()
}
