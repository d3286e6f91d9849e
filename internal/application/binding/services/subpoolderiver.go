package services

import (
	"context"
	"strconv"

	"github.com/entgrid-io/entgrid/internal/domain/catalog"
	"github.com/entgrid-io/entgrid/internal/domain/consumer"
	"github.com/entgrid-io/entgrid/internal/domain/entitlement"
	"github.com/entgrid-io/entgrid/internal/domain/pool"
	"github.com/entgrid-io/entgrid/internal/shared/errors"
)

// SyncHostStack reconciles the single derived pool for a (host, stack)
// pair against the host's current stack membership. The first qualifying
// bind creates the pool, membership changes update its product, quantity,
// and date range, and the last unbind deletes it together with any guest
// entitlements held against it.
func (s *Entitler) SyncHostStack(ctx context.Context, host *consumer.Consumer, stackID string) error {
	stack, err := s.activeStack(ctx, host, stackID)
	if err != nil {
		return err
	}

	existing, err := s.poolRepo.FindStackDerived(ctx, host.OwnerKey(), host.UUID(), stackID)
	if err != nil && !errors.IsNotFoundError(err) {
		return err
	}

	virtLimit, hasVirtLimit := stack.VirtLimit()
	if stack.IsEmpty() || !hasVirtLimit {
		if existing != nil {
			s.logger.Infow("stack no longer provides virt_limit, removing derived pool",
				"host_uuid", host.UUID(), "stack_id", stackID, "pool_id", existing.ID())
			return s.DeletePoolCascade(ctx, existing)
		}
		return nil
	}

	quantity := derivedQuantity(virtLimit)
	productID, productName, productAttrs, provided := s.derivedProduct(stack)
	start, end := stack.DateRange()

	if existing == nil {
		derived, err := pool.NewPool(pool.PoolParams{
			OwnerKey:           host.OwnerKey(),
			Type:               pool.TypeStackDerived,
			ProductID:          productID,
			ProductName:        productName,
			ProductAttributes:  productAttrs,
			ProvidedProductIDs: provided,
			Quantity:           quantity,
			StartDate:          start,
			EndDate:            end,
			Attributes: catalog.Attributes{
				catalog.AttrRequiresHost:         host.UUID(),
				catalog.AttrRequiresConsumerType: string(consumer.TypeSystem),
				catalog.AttrVirtOnly:             "true",
				catalog.AttrPoolDerived:          "true",
			},
			SourceStackID:      stackID,
			SourceConsumerUUID: host.UUID(),
		})
		if err != nil {
			return err
		}
		if err := s.poolRepo.Create(ctx, derived); err != nil {
			return err
		}
		s.logger.Infow("stack derived pool created",
			"host_uuid", host.UUID(),
			"stack_id", stackID,
			"pool_id", derived.ID(),
			"quantity", quantity)
		return nil
	}

	// Update path: the stack snapshot may have shifted to a different
	// representative, quantity, or date range.
	existing.ReplaceProduct(productID, productName, productAttrs, provided)
	if err := existing.SetQuantity(quantity); err != nil {
		return err
	}
	if err := existing.SetDateRange(start, end); err != nil {
		return err
	}
	if err := s.poolRepo.Update(ctx, existing); err != nil {
		return err
	}
	s.logger.Debugw("stack derived pool updated",
		"host_uuid", host.UUID(),
		"stack_id", stackID,
		"pool_id", existing.ID(),
		"quantity", quantity)
	return nil
}

// OnGuestHostChanged reacts to a guest's host association moving from
// oldHostUUID to a new host: entitlements the guest holds against the old
// host's derived pools are revoked; entitlements from global or unlimited
// pools are untouched.
func (s *Entitler) OnGuestHostChanged(ctx context.Context, guest *consumer.Consumer, oldHostUUID string) error {
	if oldHostUUID == "" {
		return nil
	}
	ents, err := s.entRepo.ListByConsumer(ctx, guest.UUID())
	if err != nil {
		return err
	}
	if err := s.attachPools(ctx, ents); err != nil {
		return err
	}
	for _, ent := range ents {
		p := ent.Pool()
		if p == nil || p.RequiresHost() != oldHostUUID {
			continue
		}
		s.logger.Infow("revoking guest entitlement after host migration",
			"guest_uuid", guest.UUID(),
			"old_host_uuid", oldHostUUID,
			"entitlement_id", ent.ID())
		if err := s.revokeEntitlement(ctx, ent); err != nil {
			return err
		}
	}
	return nil
}

// OnHostUnregister deletes every derived pool restricted to the host,
// scoped strictly to the host's owner so identical stacking IDs in other
// organizations are unaffected.
func (s *Entitler) OnHostUnregister(ctx context.Context, host *consumer.Consumer) error {
	derived, err := s.poolRepo.List(ctx, pool.ListFilter{
		OwnerKey:       host.OwnerKey(),
		RequiresHost:   host.UUID(),
		IncludeDerived: true,
	})
	if err != nil {
		return err
	}
	for _, p := range derived {
		if err := s.DeletePoolCascade(ctx, p); err != nil {
			return err
		}
	}
	if len(derived) > 0 {
		s.logger.Infow("host derived pools removed on unregister",
			"host_uuid", host.UUID(), "owner", host.OwnerKey(), "count", len(derived))
	}
	return nil
}

// derivedQuantity maps a stack's virt_limit value onto derived pool
// quantity: "unlimited" becomes an uncapped pool, a numeric limit grants
// that many guest units.
func derivedQuantity(virtLimit string) int64 {
	if virtLimit == catalog.VirtLimitUnlimited {
		return pool.UnlimitedQuantity
	}
	n, err := strconv.ParseInt(virtLimit, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// derivedProduct picks the product the derived pool exposes: the datacenter
// (master) pool's derived product data when any stack member carries it,
// otherwise the stack's current representative.
func (s *Entitler) derivedProduct(stack *entitlement.Stack) (string, string, catalog.Attributes, []string) {
	for _, member := range stack.Members() {
		p := member.Pool()
		if p == nil {
			continue
		}
		if p.DerivedProductID() != "" {
			return p.DerivedProductID(), p.ProductName(), p.ProductAttributes(), p.DerivedProvidedProductIDs()
		}
		if p.SubProductID() != "" {
			return p.SubProductID(), p.ProductName(), p.ProductAttributes(), p.SubProvidedProductIDs()
		}
	}
	return stack.ProductID(), stack.ProductName(), stack.MergedAttributes(), stack.ProvidedProductIDs()
}
