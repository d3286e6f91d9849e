package usecases

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/entgrid-io/entgrid/internal/application/binding/services"
	"github.com/entgrid-io/entgrid/internal/application/pools/dto"
	"github.com/entgrid-io/entgrid/internal/domain/catalog"
	"github.com/entgrid-io/entgrid/internal/domain/entitlement"
	"github.com/entgrid-io/entgrid/internal/domain/pool"
	"github.com/entgrid-io/entgrid/internal/shared/errors"
	"github.com/entgrid-io/entgrid/internal/shared/logger"
)

// Task keys the pool operations run under on the job coordinator.
const (
	TaskRefreshPools     = "refresh_pools"
	TaskExpiredPoolSweep = "expired_pool_sweep"
)

// RefreshPoolsUseCase reconciles an owner's pool set against its current
// subscription data: missing pools are created, drifted pools updated, and
// pools whose subscription is gone or expired are deleted with their
// entitlements revoked.
type RefreshPoolsUseCase struct {
	ownerRepo   catalog.OwnerRepository
	productRepo catalog.ProductRepository
	poolRepo    pool.Repository
	entRepo     entitlement.Repository
	subs        pool.SubscriptionSource
	entitler    *services.Entitler
	certs       services.CertIssuer
	validator   *validator.Validate
	logger      logger.Interface
}

func NewRefreshPoolsUseCase(
	ownerRepo catalog.OwnerRepository,
	productRepo catalog.ProductRepository,
	poolRepo pool.Repository,
	entRepo entitlement.Repository,
	subs pool.SubscriptionSource,
	entitler *services.Entitler,
	certs services.CertIssuer,
	log logger.Interface,
) *RefreshPoolsUseCase {
	return &RefreshPoolsUseCase{
		ownerRepo:   ownerRepo,
		productRepo: productRepo,
		poolRepo:    poolRepo,
		entRepo:     entRepo,
		subs:        subs,
		entitler:    entitler,
		certs:       certs,
		validator:   validator.New(),
		logger:      log,
	}
}

func (uc *RefreshPoolsUseCase) Execute(ctx context.Context, request dto.RefreshPoolsRequest) (*dto.RefreshPoolsResult, error) {
	if err := uc.validator.Struct(request); err != nil {
		return nil, errors.NewValidationError(err.Error())
	}
	if _, err := uc.ownerRepo.GetByKey(ctx, request.OwnerKey); err != nil {
		return nil, err
	}

	subs, err := uc.subs.SubscriptionsForOwner(ctx, request.OwnerKey)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()

	existing, err := uc.poolRepo.List(ctx, pool.ListFilter{OwnerKey: request.OwnerKey, IncludeDerived: false})
	if err != nil {
		return nil, err
	}
	bySub := make(map[string][]*pool.Pool)
	for _, p := range existing {
		if p.SubscriptionID() != "" {
			bySub[p.SubscriptionID()] = append(bySub[p.SubscriptionID()], p)
		}
	}

	result := &dto.RefreshPoolsResult{OwnerKey: request.OwnerKey}
	live := make(map[string]bool, len(subs))

	for _, sub := range subs {
		if err := sub.Validate(); err != nil {
			uc.logger.Warnw("skipping malformed subscription",
				"owner_key", request.OwnerKey, "subscription_id", sub.ID, "error", err)
			continue
		}
		if sub.ExpiredAsOf(now) {
			// Expired subscriptions tear down their pools with full
			// entitlement revocation, same as removal.
			continue
		}
		live[sub.ID] = true

		product, err := uc.productRepo.GetForOwner(ctx, request.OwnerKey, sub.ProductID)
		if err != nil {
			if errors.IsNotFoundError(err) {
				uc.logger.Warnw("subscription references unknown product",
					"subscription_id", sub.ID, "product_id", sub.ProductID)
				continue
			}
			return nil, err
		}

		if err := uc.reconcileSubscription(ctx, sub, product, bySub[sub.ID], result); err != nil {
			return nil, err
		}
	}

	// Delete pools whose subscription disappeared or expired.
	for subID, pools := range bySub {
		if live[subID] {
			continue
		}
		for _, p := range pools {
			if err := uc.entitler.DeletePoolCascade(ctx, p); err != nil {
				return nil, err
			}
			result.Deleted++
		}
	}

	uc.logger.Infow("pools refreshed",
		"owner_key", request.OwnerKey,
		"created", result.Created,
		"updated", result.Updated,
		"deleted", result.Deleted,
		"unchanged", result.Unchanged)
	return result, nil
}

// reconcileSubscription keeps the master pool and any bonus pool of one
// subscription aligned with its current data and product snapshot.
func (uc *RefreshPoolsUseCase) reconcileSubscription(
	ctx context.Context,
	sub *pool.Subscription,
	product *catalog.Product,
	pools []*pool.Pool,
	result *dto.RefreshPoolsResult,
) error {
	var master, bonus *pool.Pool
	for _, p := range pools {
		switch p.Type() {
		case pool.TypeNormal:
			master = p
		case pool.TypeBonus, pool.TypeUnmappedGuest:
			bonus = p
		}
	}

	if master == nil {
		created, err := pool.NewPool(pool.PoolParams{
			OwnerKey:                  sub.OwnerKey,
			Type:                      pool.TypeNormal,
			ProductID:                 product.ID(),
			ProductName:               product.Name(),
			ProductAttributes:         product.Attributes(),
			ProvidedProductIDs:        sub.ProvidedProductIDs,
			DerivedProductID:          sub.DerivedProductID,
			DerivedProvidedProductIDs: sub.DerivedProvidedProductIDs,
			Quantity:                  sub.Quantity,
			StartDate:                 sub.StartDate,
			EndDate:                   sub.EndDate,
			SubscriptionID:            sub.ID,
		})
		if err != nil {
			return err
		}
		if err := uc.poolRepo.Create(ctx, created); err != nil {
			return err
		}
		master = created
		result.Created++
	} else {
		changed := master.UpdateFromSubscription(sub.Quantity, sub.StartDate, sub.EndDate, sub.ProvidedProductIDs)
		if uc.productSnapshotChanged(master, product) {
			master.ReplaceProduct(product.ID(), product.Name(), product.Attributes(), sub.ProvidedProductIDs)
			changed = true
			if err := uc.regenerateForPool(ctx, master); err != nil {
				return err
			}
		}
		if changed {
			if err := uc.poolRepo.Update(ctx, master); err != nil {
				return err
			}
			result.Updated++
		} else {
			result.Unchanged++
		}
	}

	return uc.reconcileBonusPool(ctx, sub, product, master, bonus, result)
}

// reconcileBonusPool maintains the virt bonus pool of a subscription whose
// product carries virt_limit. host_limited products get an unmapped-guest
// pool instead, consumable only by guests not yet mapped to a host.
func (uc *RefreshPoolsUseCase) reconcileBonusPool(
	ctx context.Context,
	sub *pool.Subscription,
	product *catalog.Product,
	master, bonus *pool.Pool,
	result *dto.RefreshPoolsResult,
) error {
	virtLimit := product.Attribute(catalog.AttrVirtLimit)
	if virtLimit == "" {
		if bonus != nil {
			if err := uc.entitler.DeletePoolCascade(ctx, bonus); err != nil {
				return err
			}
			result.Deleted++
		}
		return nil
	}

	quantity := bonusQuantity(virtLimit, sub.Quantity)
	poolType := pool.TypeBonus
	attrs := catalog.Attributes{
		catalog.AttrVirtOnly:    "true",
		catalog.AttrPoolDerived: "true",
	}
	if product.Attribute(catalog.AttrHostLimited) == "true" {
		poolType = pool.TypeUnmappedGuest
		attrs[catalog.AttrUnmappedGuestsOnly] = "true"
	}

	if bonus == nil {
		created, err := pool.NewPool(pool.PoolParams{
			OwnerKey:           sub.OwnerKey,
			Type:               poolType,
			ProductID:          product.ID(),
			ProductName:        product.Name(),
			ProductAttributes:  product.Attributes(),
			ProvidedProductIDs: sub.ProvidedProductIDs,
			Quantity:           quantity,
			StartDate:          sub.StartDate,
			EndDate:            sub.EndDate,
			Attributes:         attrs,
			SubscriptionID:     sub.ID,
		})
		if err != nil {
			return err
		}
		if err := uc.poolRepo.Create(ctx, created); err != nil {
			return err
		}
		result.Created++
		return nil
	}

	if bonus.Type() != poolType {
		// host_limited flipped; the old bonus pool's entitlements were
		// granted under different terms, so rebuild it.
		if err := uc.entitler.DeletePoolCascade(ctx, bonus); err != nil {
			return err
		}
		result.Deleted++
		return uc.reconcileBonusPool(ctx, sub, product, master, nil, result)
	}

	changed := bonus.UpdateFromSubscription(quantity, sub.StartDate, sub.EndDate, sub.ProvidedProductIDs)
	if uc.productSnapshotChanged(bonus, product) {
		bonus.ReplaceProduct(product.ID(), product.Name(), product.Attributes(), sub.ProvidedProductIDs)
		changed = true
		if err := uc.regenerateForPool(ctx, bonus); err != nil {
			return err
		}
	}
	if changed {
		if err := uc.poolRepo.Update(ctx, bonus); err != nil {
			return err
		}
		result.Updated++
	} else {
		result.Unchanged++
	}
	return nil
}

// productSnapshotChanged reports whether the pool's cached product snapshot
// drifted from the owner's current product version.
func (uc *RefreshPoolsUseCase) productSnapshotChanged(p *pool.Pool, product *catalog.Product) bool {
	if p.ProductName() != product.Name() {
		return true
	}
	current := p.ProductAttributes()
	next := product.Attributes()
	if len(current) != len(next) {
		return true
	}
	for name, value := range next {
		if current[name] != value {
			return true
		}
	}
	return false
}

// regenerateForPool reissues entitlement certs on a pool whose content view
// changed, and invalidates the holders' content-access payloads.
func (uc *RefreshPoolsUseCase) regenerateForPool(ctx context.Context, p *pool.Pool) error {
	ents, err := uc.entRepo.ListByPool(ctx, p.ID())
	if err != nil {
		return err
	}
	seen := make(map[string]bool)
	for _, ent := range ents {
		if err := uc.certs.RegenerateEntitlementCert(ctx, ent.ID()); err != nil {
			return err
		}
		if !seen[ent.ConsumerUUID()] {
			seen[ent.ConsumerUUID()] = true
			if err := uc.certs.InvalidateContentAccess(ctx, ent.ConsumerUUID()); err != nil {
				return err
			}
		}
	}
	return nil
}

// bonusQuantity computes a virt bonus pool's quantity. Either side being
// unlimited makes the bonus pool unlimited.
func bonusQuantity(virtLimit string, subQuantity int64) int64 {
	if virtLimit == catalog.VirtLimitUnlimited || subQuantity == pool.UnlimitedQuantity {
		return pool.UnlimitedQuantity
	}
	attrs := catalog.Attributes{catalog.AttrVirtLimit: virtLimit}
	n := int64(attrs.GetInt(catalog.AttrVirtLimit, 0))
	if n <= 0 {
		return 0
	}
	return n * subQuantity
}
