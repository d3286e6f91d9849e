package usecases

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	bindingServices "github.com/entgrid-io/entgrid/internal/application/binding/services"
	bindingUC "github.com/entgrid-io/entgrid/internal/application/binding/usecases"
	"github.com/entgrid-io/entgrid/internal/application/consumers/dto"
	"github.com/entgrid-io/entgrid/internal/domain/catalog"
	"github.com/entgrid-io/entgrid/internal/domain/consumer"
	"github.com/entgrid-io/entgrid/internal/domain/entitlement"
	"github.com/entgrid-io/entgrid/internal/domain/pool"
	"github.com/entgrid-io/entgrid/internal/shared/errors"
	"github.com/entgrid-io/entgrid/internal/shared/logger"
)

// AutoAttacher covers a consumer's uncovered installed products. The binding
// auto-attach use case implements it.
type AutoAttacher interface {
	Run(ctx context.Context, cons *consumer.Consumer, productIDs []string, entitleDate *time.Time) ([]*entitlement.Entitlement, error)
}

// RegisterConsumerUseCase registers a consumer, optionally applying
// activation keys: each resolved key's pools are bound immediately, and keys
// flagged for auto-attach trigger one auto-attach run afterwards.
type RegisterConsumerUseCase struct {
	consumerRepo consumer.Repository
	ownerRepo    catalog.OwnerRepository
	keyRepo      consumer.ActivationKeyRepository
	poolRepo     pool.Repository
	entitler     *bindingServices.Entitler
	quantities   *bindingServices.QuantityRules
	autoAttach   AutoAttacher
	validate     *validator.Validate
	logger       logger.Interface
}

func NewRegisterConsumerUseCase(
	consumerRepo consumer.Repository,
	ownerRepo catalog.OwnerRepository,
	keyRepo consumer.ActivationKeyRepository,
	poolRepo pool.Repository,
	entitler *bindingServices.Entitler,
	quantities *bindingServices.QuantityRules,
	autoAttach AutoAttacher,
	log logger.Interface,
) *RegisterConsumerUseCase {
	return &RegisterConsumerUseCase{
		consumerRepo: consumerRepo,
		ownerRepo:    ownerRepo,
		keyRepo:      keyRepo,
		poolRepo:     poolRepo,
		entitler:     entitler,
		quantities:   quantities,
		autoAttach:   autoAttach,
		validate:     validator.New(),
		logger:       log,
	}
}

// Execute registers the consumer. Unknown activation keys are skipped; the
// registration fails as unauthorized only when every requested key is
// unknown.
func (uc *RegisterConsumerUseCase) Execute(ctx context.Context, request dto.RegisterConsumerRequest) (*dto.RegisterConsumerResponse, error) {
	if err := uc.validate.Struct(request); err != nil {
		return nil, errors.NewValidationError(err.Error())
	}
	if request.OwnerKey == "" {
		return nil, errors.NewBadRequestError("owner key is required for registration")
	}

	owner, err := uc.ownerRepo.GetByKey(ctx, request.OwnerKey)
	if err != nil {
		return nil, err
	}

	keys, err := uc.resolveActivationKeys(ctx, owner.Key(), request.ActivationKeys)
	if err != nil {
		return nil, err
	}

	ctype := consumer.Type(request.Type)
	if request.Type == "" {
		ctype = consumer.TypeSystem
	}

	cons, dropped, err := consumer.NewConsumer(request.Name, owner.Key(), ctype, consumer.Facts(request.Facts))
	if err != nil {
		return nil, errors.NewValidationError(err.Error())
	}
	if len(request.InstalledProducts) > 0 {
		installed := make([]consumer.InstalledProduct, 0, len(request.InstalledProducts))
		for _, p := range request.InstalledProducts {
			installed = append(installed, consumer.InstalledProduct{
				ProductID: p.ProductID,
				Name:      p.Name,
				Arch:      p.Arch,
				Version:   p.Version,
			})
		}
		cons.SetInstalledProducts(installed)
	}
	if level := uc.serviceLevelFor(request, keys); level != "" {
		cons.SetServiceLevel(level)
	}

	if err := uc.consumerRepo.Create(ctx, cons); err != nil {
		return nil, err
	}
	if len(dropped) > 0 {
		uc.logger.Debugw("dropped malformed facts during registration",
			"consumer_uuid", cons.UUID(), "keys", dropped)
	}

	resp := &dto.RegisterConsumerResponse{
		UUID:         cons.UUID(),
		Name:         cons.Name(),
		OwnerKey:     cons.OwnerKey(),
		Type:         string(cons.Type()),
		ServiceLevel: cons.ServiceLevel(),
		CreatedAt:    cons.CreatedAt(),
		DroppedFacts: dropped,
	}

	runAutoAttach := false
	for _, key := range keys {
		resp.ActivationKeysUsed = append(resp.ActivationKeysUsed, key.Name())
		ents := uc.bindKeyPools(ctx, cons, key)
		for _, ent := range ents {
			resp.Entitlements = append(resp.Entitlements, *bindingUC.ToEntitlementResponse(ent))
		}
		if key.AutoAttach() {
			runAutoAttach = true
		}
	}
	if runAutoAttach && uc.autoAttach != nil {
		ents, err := uc.autoAttach.Run(ctx, cons, nil, nil)
		if err != nil {
			uc.logger.Warnw("auto-attach after registration failed",
				"consumer_uuid", cons.UUID(), "error", err)
		}
		for _, ent := range ents {
			resp.Entitlements = append(resp.Entitlements, *bindingUC.ToEntitlementResponse(ent))
		}
	}

	uc.logger.Infow("consumer registered",
		"consumer_uuid", cons.UUID(),
		"owner_key", cons.OwnerKey(),
		"type", cons.Type(),
		"activation_keys", len(keys),
		"entitlements", len(resp.Entitlements))
	return resp, nil
}

// resolveActivationKeys looks up the requested key names within the owner.
// Unknown names are skipped; the lookup fails only when every name is
// unknown.
func (uc *RegisterConsumerUseCase) resolveActivationKeys(ctx context.Context, ownerKey string, names []string) ([]*consumer.ActivationKey, error) {
	if len(names) == 0 {
		return nil, nil
	}

	seen := make(map[string]struct{}, len(names))
	var keys []*consumer.ActivationKey
	for _, name := range names {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		key, err := uc.keyRepo.GetByName(ctx, ownerKey, name)
		if err != nil {
			if errors.IsNotFoundError(err) {
				uc.logger.Debugw("skipping unknown activation key",
					"owner_key", ownerKey, "name", name)
				continue
			}
			return nil, err
		}
		keys = append(keys, key)
	}
	if len(keys) == 0 {
		return nil, errors.NewUnauthorizedError(
			"None of the activation keys specified exist for this org.")
	}
	return keys, nil
}

// bindKeyPools binds each of the key's pools. Individual pool failures do
// not fail the registration.
func (uc *RegisterConsumerUseCase) bindKeyPools(ctx context.Context, cons *consumer.Consumer, key *consumer.ActivationKey) []*entitlement.Entitlement {
	var granted []*entitlement.Entitlement
	for _, kp := range key.Pools() {
		p, err := uc.poolRepo.GetForOwner(ctx, key.OwnerKey(), kp.PoolID)
		if err != nil {
			uc.logger.Warnw("activation key references missing pool",
				"key", key.Name(), "pool_id", kp.PoolID, "error", err)
			continue
		}
		quantity := kp.Quantity
		if quantity == 0 {
			quantity = uc.quantities.SuggestedQuantity(cons, p)
		}
		ent, err := uc.entitler.Bind(ctx, cons, p, quantity)
		if err != nil {
			uc.logger.Warnw("activation key pool bind failed",
				"key", key.Name(), "pool_id", kp.PoolID,
				"consumer_uuid", cons.UUID(), "error", err)
			continue
		}
		granted = append(granted, ent)
	}
	return granted
}

func (uc *RegisterConsumerUseCase) serviceLevelFor(request dto.RegisterConsumerRequest, keys []*consumer.ActivationKey) string {
	if request.ServiceLevel != "" {
		return request.ServiceLevel
	}
	for _, key := range keys {
		if key.ServiceLevel() != "" {
			return key.ServiceLevel()
		}
	}
	return ""
}
