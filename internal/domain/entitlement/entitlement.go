// Package entitlement models a consumer's claim against a pool and the
// stacking rules that combine claims into one logical compliance unit.
package entitlement

import (
	"fmt"
	"time"

	"github.com/entgrid-io/entgrid/internal/domain/pool"
	"github.com/entgrid-io/entgrid/internal/shared/id"
)

// Entitlement is a specific consumer's claim against a pool, with a quantity
// and a certificate serial.
type Entitlement struct {
	entID        string
	ownerKey     string
	consumerUUID string
	poolID       string
	quantity     int64
	certSerial   int64
	// addedAt orders stack membership; the newest remaining member is the
	// stack's representative product.
	addedAt   time.Time
	createdAt time.Time
	updatedAt time.Time

	// pool is the claim's pool, attached at load time for attribute access.
	pool *pool.Pool
}

// NewEntitlement creates a claim of the given quantity against a pool.
func NewEntitlement(consumerUUID string, p *pool.Pool, quantity int64, certSerial int64) (*Entitlement, error) {
	if consumerUUID == "" {
		return nil, fmt.Errorf("consumer UUID is required")
	}
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("entitlement quantity must be positive, got %d", quantity)
	}

	now := time.Now().UTC()
	e := &Entitlement{
		entID:        id.MustGenerateWithPrefix(id.PrefixEntitlement, id.DefaultLength),
		ownerKey:     p.OwnerKey(),
		consumerUUID: consumerUUID,
		poolID:       p.ID(),
		quantity:     quantity,
		certSerial:   certSerial,
		addedAt:      now,
		createdAt:    now,
		updatedAt:    now,
		pool:         p,
	}
	return e, nil
}

// ReconstructEntitlement rebuilds a claim from persistence.
func ReconstructEntitlement(
	entID, ownerKey, consumerUUID, poolID string,
	quantity, certSerial int64,
	addedAt, createdAt, updatedAt time.Time,
) (*Entitlement, error) {
	if entID == "" {
		return nil, fmt.Errorf("entitlement ID is required")
	}
	if consumerUUID == "" {
		return nil, fmt.Errorf("consumer UUID is required")
	}
	if poolID == "" {
		return nil, fmt.Errorf("pool ID is required")
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("entitlement quantity must be positive, got %d", quantity)
	}
	return &Entitlement{
		entID:        entID,
		ownerKey:     ownerKey,
		consumerUUID: consumerUUID,
		poolID:       poolID,
		quantity:     quantity,
		certSerial:   certSerial,
		addedAt:      addedAt,
		createdAt:    createdAt,
		updatedAt:    updatedAt,
	}, nil
}

func (e *Entitlement) ID() string           { return e.entID }
func (e *Entitlement) OwnerKey() string     { return e.ownerKey }
func (e *Entitlement) ConsumerUUID() string { return e.consumerUUID }
func (e *Entitlement) PoolID() string       { return e.poolID }
func (e *Entitlement) Quantity() int64      { return e.quantity }
func (e *Entitlement) CertSerial() int64    { return e.certSerial }
func (e *Entitlement) AddedAt() time.Time   { return e.addedAt }
func (e *Entitlement) CreatedAt() time.Time { return e.createdAt }
func (e *Entitlement) UpdatedAt() time.Time { return e.updatedAt }

// Pool returns the attached pool, nil before AttachPool.
func (e *Entitlement) Pool() *pool.Pool { return e.pool }

// AttachPool pairs the claim with its loaded pool.
func (e *Entitlement) AttachPool(p *pool.Pool) error {
	if p == nil {
		return fmt.Errorf("pool is required")
	}
	if p.ID() != e.poolID {
		return fmt.Errorf("pool %s does not back entitlement %s", p.ID(), e.entID)
	}
	e.pool = p
	return nil
}

// SetQuantity changes the claimed quantity.
func (e *Entitlement) SetQuantity(quantity int64) error {
	if quantity <= 0 {
		return fmt.Errorf("entitlement quantity must be positive, got %d", quantity)
	}
	e.quantity = quantity
	e.updatedAt = time.Now().UTC()
	return nil
}

// SetCertSerial records a regenerated certificate serial.
func (e *Entitlement) SetCertSerial(serial int64) {
	e.certSerial = serial
	e.updatedAt = time.Now().UTC()
}

// ActiveOn reports whether the claim's pool covers the given instant.
// Claims without an attached pool are treated as inactive.
func (e *Entitlement) ActiveOn(t time.Time) bool {
	if e.pool == nil {
		return false
	}
	return e.pool.ActiveOn(t)
}

// StackingID returns the stacking_id of the backing pool's product, empty
// for unstacked claims or claims without an attached pool.
func (e *Entitlement) StackingID() string {
	if e.pool == nil {
		return ""
	}
	return e.pool.StackingID()
}
