package services

import (
	"fmt"

	"github.com/entgrid-io/entgrid/internal/domain/catalog"
	"github.com/entgrid-io/entgrid/internal/domain/consumer"
	"github.com/entgrid-io/entgrid/internal/domain/pool"
	"github.com/entgrid-io/entgrid/internal/shared/errors"
)

// PoolValidator enforces the pre-entitlement rules a bind must pass:
// consumer type restrictions, host restrictions, virt restrictions, and
// distributor capability requirements.
type PoolValidator struct{}

func NewPoolValidator() *PoolValidator {
	return &PoolValidator{}
}

// Validate checks whether the consumer may bind the given quantity from the
// pool. Violations surface as forbidden errors with stable messages.
func (v *PoolValidator) Validate(cons *consumer.Consumer, p *pool.Pool, quantity int64) error {
	if requiredType := p.Attribute(catalog.AttrRequiresConsumerType); requiredType != "" {
		if string(cons.Type()) != requiredType {
			return errors.NewForbiddenError(fmt.Sprintf(
				"Units of this type are not allowed for pool %q: requires consumer type %s",
				p.ID(), requiredType))
		}
	}

	if host := p.RequiresHost(); host != "" {
		if cons.HostUUID() != host {
			return errors.NewForbiddenError(fmt.Sprintf(
				"Pool %q is restricted to guests running on host %s", p.ID(), host))
		}
	}

	virtOnly := p.Attribute(catalog.AttrVirtOnly) == "true" ||
		p.ProductAttribute(catalog.AttrVirtOnly) == "true"
	if virtOnly && !cons.Facts().IsGuest() && !cons.Type().IsDistributor() {
		return errors.NewForbiddenError(fmt.Sprintf(
			"Pool %q is restricted to virtual guests", p.ID()))
	}

	if p.Attribute(catalog.AttrUnmappedGuestsOnly) == "true" && cons.HostUUID() != "" {
		return errors.NewForbiddenError(fmt.Sprintf(
			"Pool %q is restricted to unmapped virtual guests", p.ID()))
	}

	if quantity > 1 && !p.ProductAttributes().GetBool(catalog.AttrMultiEntitlement) {
		return errors.NewForbiddenError(fmt.Sprintf(
			"Multi-entitlement not supported for pool %q", p.ID()))
	}

	return v.validateCapabilities(cons, p)
}

// validateCapabilities rejects distributors lacking a capability the pool's
// product data requires. The messages identify the pool so callers can act
// on them; they are part of the engine's stable surface.
func (v *PoolValidator) validateCapabilities(cons *consumer.Consumer, p *pool.Pool) error {
	if !cons.Type().IsDistributor() {
		return nil
	}

	if p.DerivedProductID() != "" && !cons.HasCapability(consumer.CapabilityDerivedProducts) {
		return errors.NewForbiddenError(fmt.Sprintf(
			"Unit does not support derived products data required by pool %q", p.ID()))
	}
	if p.HasProductAttribute(catalog.AttrRAM) && !cons.HasCapability(consumer.CapabilityRAM) {
		return errors.NewForbiddenError(fmt.Sprintf(
			"Unit does not support RAM calculation required by pool %q", p.ID()))
	}
	if p.HasProductAttribute(catalog.AttrCores) && !cons.HasCapability(consumer.CapabilityCores) {
		return errors.NewForbiddenError(fmt.Sprintf(
			"Unit does not support core calculation required by pool %q", p.ID()))
	}
	if p.HasProductAttribute(catalog.AttrInstanceMultiplier) && !cons.HasCapability(consumer.CapabilityInstanceMult) {
		return errors.NewForbiddenError(fmt.Sprintf(
			"Unit does not support instance based calculation required by pool %q", p.ID()))
	}
	return nil
}

// CompatibleWith reports whether a pool should appear in a consumer's pool
// listing. Incompatible pools are omitted unless the caller requests the
// full list.
func (v *PoolValidator) CompatibleWith(cons *consumer.Consumer, p *pool.Pool) bool {
	return v.validateCapabilities(cons, p) == nil
}
