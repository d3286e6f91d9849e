package usecases

import (
	"context"

	"github.com/go-playground/validator/v10"

	"github.com/entgrid-io/entgrid/internal/application/binding/services"
	"github.com/entgrid-io/entgrid/internal/application/pools/dto"
	"github.com/entgrid-io/entgrid/internal/domain/consumer"
	"github.com/entgrid-io/entgrid/internal/domain/pool"
	"github.com/entgrid-io/entgrid/internal/shared/errors"
	"github.com/entgrid-io/entgrid/internal/shared/logger"
)

type ListPoolsUseCase struct {
	poolRepo      pool.Repository
	consumerRepo  consumer.Repository
	poolValidator *services.PoolValidator
	validator     *validator.Validate
	logger        logger.Interface
}

func NewListPoolsUseCase(
	poolRepo pool.Repository,
	consumerRepo consumer.Repository,
	poolValidator *services.PoolValidator,
	log logger.Interface,
) *ListPoolsUseCase {
	return &ListPoolsUseCase{
		poolRepo:      poolRepo,
		consumerRepo:  consumerRepo,
		poolValidator: poolValidator,
		validator:     validator.New(),
		logger:        log,
	}
}

// Execute lists an owner's pools. When a consumer is given and ListAll is
// not set, pools the consumer cannot attach (capability mismatches, host
// restrictions, virt_only on physical systems) are omitted.
func (uc *ListPoolsUseCase) Execute(ctx context.Context, request dto.ListPoolsRequest) ([]dto.PoolResponse, error) {
	if err := uc.validator.Struct(request); err != nil {
		return nil, errors.NewValidationError(err.Error())
	}

	var cons *consumer.Consumer
	if request.ConsumerUUID != "" {
		var err error
		cons, err = uc.consumerRepo.GetByUUIDForOwner(ctx, request.OwnerKey, request.ConsumerUUID)
		if err != nil {
			return nil, err
		}
	}

	pools, err := uc.poolRepo.List(ctx, pool.ListFilter{
		OwnerKey:       request.OwnerKey,
		ProductID:      request.ProductID,
		ActiveOn:       request.ActiveOn,
		IncludeDerived: true,
	})
	if err != nil {
		return nil, err
	}

	responses := make([]dto.PoolResponse, 0, len(pools))
	for _, p := range pools {
		if cons != nil && !request.ListAll {
			if !uc.poolValidator.CompatibleWith(cons, p) {
				continue
			}
			if host := p.RequiresHost(); host != "" && cons.HostUUID() != host {
				continue
			}
		}
		consumed, err := uc.poolRepo.ConsumedQuantity(ctx, p.ID())
		if err != nil {
			return nil, err
		}
		responses = append(responses, *ToPoolResponse(p, consumed))
	}
	return responses, nil
}

// ToPoolResponse maps a pool to its caller-visible view.
func ToPoolResponse(p *pool.Pool, consumed int64) *dto.PoolResponse {
	return &dto.PoolResponse{
		ID:                 p.ID(),
		OwnerKey:           p.OwnerKey(),
		Type:               string(p.Type()),
		ProductID:          p.ProductID(),
		ProductName:        p.ProductName(),
		Quantity:           p.Quantity(),
		Consumed:           consumed,
		StartDate:          p.StartDate(),
		EndDate:            p.EndDate(),
		ProvidedProductIDs: p.ProvidedProductIDs(),
		DerivedProductID:   p.DerivedProductID(),
		SubscriptionID:     p.SubscriptionID(),
		SourceStackID:      p.SourceStackID(),
		Attributes:         p.Attributes(),
	}
}
