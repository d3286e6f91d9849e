package pool

import (
	"fmt"
	"time"

	"github.com/entgrid-io/entgrid/internal/domain/catalog"
	"github.com/entgrid-io/entgrid/internal/shared/id"
)

// PoolType tags how a pool came to exist.
type PoolType string

const (
	// TypeNormal pools are created directly from a subscription.
	TypeNormal PoolType = "NORMAL"
	// TypeEntitlementDerived pools are spawned from a single host entitlement.
	TypeEntitlementDerived PoolType = "ENTITLEMENT_DERIVED"
	// TypeStackDerived pools are spawned from a host's stack of entitlements.
	TypeStackDerived PoolType = "STACK_DERIVED"
	// TypeUnmappedGuest pools serve guests not yet mapped to a host.
	TypeUnmappedGuest PoolType = "UNMAPPED_GUEST"
	// TypeBonus pools are hosted-mode virt bonus pools created at refresh.
	TypeBonus PoolType = "BONUS"
)

func (t PoolType) IsValid() bool {
	switch t {
	case TypeNormal, TypeEntitlementDerived, TypeStackDerived, TypeUnmappedGuest, TypeBonus:
		return true
	}
	return false
}

// IsDerived reports whether the pool descends from entitlements rather than
// directly from a subscription.
func (t PoolType) IsDerived() bool {
	return t == TypeEntitlementDerived || t == TypeStackDerived || t == TypeUnmappedGuest
}

// UnlimitedQuantity is the pool quantity meaning no consumption cap.
const UnlimitedQuantity int64 = -1

// Pool is an allotment of entitlement capacity for one product within one
// owner and time range.
type Pool struct {
	id                 string
	ownerKey           string
	poolType           PoolType
	productID          string
	productName        string
	productAttributes  catalog.Attributes
	providedProductIDs []string

	// Derived product data carried on datacenter (master) pools; used as
	// the product of virt sub-pools spawned from this pool's entitlements.
	derivedProductID           string
	derivedProvidedProductIDs  []string

	// Non-virt sub product data.
	subProductID          string
	subProvidedProductIDs []string

	quantity   int64
	startDate  time.Time
	endDate    time.Time
	attributes catalog.Attributes

	subscriptionID     string
	sourceStackID      string
	sourceConsumerUUID string
	sourceEntitlementID string

	createdAt time.Time
	updatedAt time.Time
}

// PoolParams carries the fields needed to create or reconstruct a pool.
type PoolParams struct {
	ID                        string
	OwnerKey                  string
	Type                      PoolType
	ProductID                 string
	ProductName               string
	ProductAttributes         catalog.Attributes
	ProvidedProductIDs        []string
	DerivedProductID          string
	DerivedProvidedProductIDs []string
	SubProductID              string
	SubProvidedProductIDs     []string
	Quantity                  int64
	StartDate                 time.Time
	EndDate                   time.Time
	Attributes                catalog.Attributes
	SubscriptionID            string
	SourceStackID             string
	SourceConsumerUUID        string
	SourceEntitlementID       string
	CreatedAt                 time.Time
	UpdatedAt                 time.Time
}

// NewPool creates a pool, generating an ID when none is supplied.
func NewPool(params PoolParams) (*Pool, error) {
	if params.OwnerKey == "" {
		return nil, fmt.Errorf("owner key is required")
	}
	if params.ProductID == "" {
		return nil, fmt.Errorf("product ID is required")
	}
	if params.Type == "" {
		params.Type = TypeNormal
	}
	if !params.Type.IsValid() {
		return nil, fmt.Errorf("invalid pool type: %s", params.Type)
	}
	if params.Quantity < UnlimitedQuantity {
		return nil, fmt.Errorf("invalid pool quantity: %d", params.Quantity)
	}
	if params.EndDate.Before(params.StartDate) {
		return nil, fmt.Errorf("pool end date %s precedes start date %s",
			params.EndDate.Format(time.RFC3339), params.StartDate.Format(time.RFC3339))
	}
	if err := catalog.ValidateAttributes(params.Attributes); err != nil {
		return nil, err
	}

	poolID := params.ID
	if poolID == "" {
		poolID = id.MustGenerateWithPrefix(id.PrefixPool, id.DefaultLength)
	}

	now := time.Now().UTC()
	createdAt := params.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	updatedAt := params.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = now
	}

	return &Pool{
		id:                        poolID,
		ownerKey:                  params.OwnerKey,
		poolType:                  params.Type,
		productID:                 params.ProductID,
		productName:               params.ProductName,
		productAttributes:         params.ProductAttributes.Copy(),
		providedProductIDs:        append([]string(nil), params.ProvidedProductIDs...),
		derivedProductID:          params.DerivedProductID,
		derivedProvidedProductIDs: append([]string(nil), params.DerivedProvidedProductIDs...),
		subProductID:              params.SubProductID,
		subProvidedProductIDs:     append([]string(nil), params.SubProvidedProductIDs...),
		quantity:                  params.Quantity,
		startDate:                 params.StartDate.UTC(),
		endDate:                   params.EndDate.UTC(),
		attributes:                params.Attributes.Copy(),
		subscriptionID:            params.SubscriptionID,
		sourceStackID:             params.SourceStackID,
		sourceConsumerUUID:        params.SourceConsumerUUID,
		sourceEntitlementID:       params.SourceEntitlementID,
		createdAt:                 createdAt,
		updatedAt:                 updatedAt,
	}, nil
}

func (p *Pool) ID() string                  { return p.id }
func (p *Pool) OwnerKey() string            { return p.ownerKey }
func (p *Pool) Type() PoolType              { return p.poolType }
func (p *Pool) ProductID() string           { return p.productID }
func (p *Pool) ProductName() string         { return p.productName }
func (p *Pool) Quantity() int64             { return p.quantity }
func (p *Pool) StartDate() time.Time        { return p.startDate }
func (p *Pool) EndDate() time.Time          { return p.endDate }
func (p *Pool) SubscriptionID() string      { return p.subscriptionID }
func (p *Pool) SourceStackID() string       { return p.sourceStackID }
func (p *Pool) SourceConsumerUUID() string  { return p.sourceConsumerUUID }
func (p *Pool) SourceEntitlementID() string { return p.sourceEntitlementID }
func (p *Pool) DerivedProductID() string    { return p.derivedProductID }
func (p *Pool) SubProductID() string        { return p.subProductID }
func (p *Pool) CreatedAt() time.Time        { return p.createdAt }
func (p *Pool) UpdatedAt() time.Time        { return p.updatedAt }

func (p *Pool) ProductAttributes() catalog.Attributes { return p.productAttributes.Copy() }
func (p *Pool) Attributes() catalog.Attributes        { return p.attributes.Copy() }

func (p *Pool) ProvidedProductIDs() []string {
	return append([]string(nil), p.providedProductIDs...)
}

func (p *Pool) DerivedProvidedProductIDs() []string {
	return append([]string(nil), p.derivedProvidedProductIDs...)
}

func (p *Pool) SubProvidedProductIDs() []string {
	return append([]string(nil), p.subProvidedProductIDs...)
}

// ProductAttribute reads an attribute from the pool's product snapshot.
func (p *Pool) ProductAttribute(name string) string {
	return p.productAttributes.Get(name)
}

// HasProductAttribute reports whether the product snapshot carries the
// attribute.
func (p *Pool) HasProductAttribute(name string) bool {
	return p.productAttributes.Has(name)
}

// Attribute reads a pool-level attribute (restriction attributes such as
// requires_host live here).
func (p *Pool) Attribute(name string) string {
	return p.attributes.Get(name)
}

// IsUnlimited reports whether the pool has no consumption cap.
func (p *Pool) IsUnlimited() bool {
	return p.quantity == UnlimitedQuantity
}

// ActiveOn reports whether the pool covers the given instant.
func (p *Pool) ActiveOn(t time.Time) bool {
	return !t.Before(p.startDate) && !t.After(p.endDate)
}

// ExpiredAsOf reports whether the pool's end date has passed.
func (p *Pool) ExpiredAsOf(t time.Time) bool {
	return t.After(p.endDate)
}

// RequiresHost returns the host UUID the pool is restricted to, empty when
// unrestricted.
func (p *Pool) RequiresHost() string {
	return p.attributes.Get(catalog.AttrRequiresHost)
}

// Covers reports whether the pool's product graph references the given
// installed product ID, directly or through provided products.
func (p *Pool) Covers(productID string) bool {
	if p.productID == productID {
		return true
	}
	for _, id := range p.providedProductIDs {
		if id == productID {
			return true
		}
	}
	return false
}

// StackingID returns the stacking_id from the product snapshot.
func (p *Pool) StackingID() string {
	return p.productAttributes.Get(catalog.AttrStackingID)
}

// StackSourceID returns the stacking ID the pool feeds into a host stack.
// Derived pools keep stacking attributes in their product snapshot so
// guests can stack them for coverage, but they never seed another derived
// pool themselves and report empty here.
func (p *Pool) StackSourceID() string {
	if p.poolType.IsDerived() || p.attributes.GetBool(catalog.AttrPoolDerived) {
		return ""
	}
	return p.StackingID()
}

// UpdateFromSubscription reconciles quantity, dates, and provided products
// against refreshed subscription data. Returns true when anything changed.
func (p *Pool) UpdateFromSubscription(quantity int64, start, end time.Time, provided []string) bool {
	changed := false
	if p.quantity != quantity {
		p.quantity = quantity
		changed = true
	}
	if !p.startDate.Equal(start.UTC()) {
		p.startDate = start.UTC()
		changed = true
	}
	if !p.endDate.Equal(end.UTC()) {
		p.endDate = end.UTC()
		changed = true
	}
	if !sameIDSet(p.providedProductIDs, provided) {
		p.providedProductIDs = append([]string(nil), provided...)
		changed = true
	}
	if changed {
		p.updatedAt = time.Now().UTC()
	}
	return changed
}

// SetQuantity replaces the pool quantity.
func (p *Pool) SetQuantity(quantity int64) error {
	if quantity < UnlimitedQuantity {
		return fmt.Errorf("invalid pool quantity: %d", quantity)
	}
	p.quantity = quantity
	p.updatedAt = time.Now().UTC()
	return nil
}

// SetDateRange replaces the pool validity window.
func (p *Pool) SetDateRange(start, end time.Time) error {
	if end.Before(start) {
		return fmt.Errorf("pool end date precedes start date")
	}
	p.startDate = start.UTC()
	p.endDate = end.UTC()
	p.updatedAt = time.Now().UTC()
	return nil
}

// ReplaceProduct swaps the pool's product identity and snapshot, used when a
// derived pool's stack representative changes.
func (p *Pool) ReplaceProduct(productID, productName string, attrs catalog.Attributes, provided []string) {
	p.productID = productID
	p.productName = productName
	p.productAttributes = attrs.Copy()
	p.providedProductIDs = append([]string(nil), provided...)
	p.updatedAt = time.Now().UTC()
}

func sameIDSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, s := range a {
		set[s] = struct{}{}
	}
	for _, s := range b {
		if _, ok := set[s]; !ok {
			return false
		}
	}
	return true
}
