package services

import (
	"fmt"

	"github.com/entgrid-io/entgrid/internal/domain/catalog"
	"github.com/entgrid-io/entgrid/internal/domain/consumer"
	"github.com/entgrid-io/entgrid/internal/domain/pool"
	"github.com/entgrid-io/entgrid/internal/shared/errors"
)

// QuantityRules computes suggested bind quantities and polices
// instance-based quantity increments.
type QuantityRules struct{}

func NewQuantityRules() *QuantityRules {
	return &QuantityRules{}
}

// SuggestedQuantity returns the quantity autobind should request from a
// pool for the consumer. For instance-based products a physical host needs
// ceil(sockets / instance_multiplier) * instance_multiplier units while a
// guest needs exactly one multiplier's worth; everything else defaults to
// enough to cover the socket count, minimum one.
func (q *QuantityRules) SuggestedQuantity(cons *consumer.Consumer, p *pool.Pool) int64 {
	attrs := p.ProductAttributes()

	if mult := attrs.GetInt(catalog.AttrInstanceMultiplier, 0); mult > 0 {
		if cons.Facts().IsGuest() {
			return int64(mult)
		}
		sockets := cons.Facts().Sockets()
		if sockets <= 0 {
			return int64(mult)
		}
		instances := (sockets + mult - 1) / mult
		return int64(instances * mult)
	}

	if attrs.Has(catalog.AttrStackingID) {
		covered := attrs.GetInt(catalog.AttrSockets, 0)
		sockets := cons.Facts().Sockets()
		if covered > 0 && sockets > covered {
			needed := int64((sockets + covered - 1) / covered)
			return needed
		}
	}

	return 1
}

// ValidateQuantity rejects bind quantities an instance-based product cannot
// accept: physical consumers must bind in whole multiples of the
// instance_multiplier.
func (q *QuantityRules) ValidateQuantity(cons *consumer.Consumer, p *pool.Pool, quantity int64) error {
	if quantity <= 0 {
		return errors.NewBadRequestError(fmt.Sprintf(
			"Quantity must be a positive integer, got %d", quantity))
	}

	mult := p.ProductAttributes().GetInt(catalog.AttrInstanceMultiplier, 0)
	if mult <= 0 || cons.Facts().IsGuest() || cons.Type().IsDistributor() {
		return nil
	}
	if quantity%int64(mult) != 0 {
		return errors.NewForbiddenError(fmt.Sprintf(
			"Quantity %d is not a multiple of instance multiplier %d required by pool %q",
			quantity, mult, p.ID()))
	}
	return nil
}
