package usecases

import (
	"context"

	"github.com/go-playground/validator/v10"

	"github.com/entgrid-io/entgrid/internal/application/binding/dto"
	"github.com/entgrid-io/entgrid/internal/application/binding/services"
	"github.com/entgrid-io/entgrid/internal/domain/consumer"
	"github.com/entgrid-io/entgrid/internal/domain/entitlement"
	"github.com/entgrid-io/entgrid/internal/domain/pool"
	"github.com/entgrid-io/entgrid/internal/shared/errors"
	"github.com/entgrid-io/entgrid/internal/shared/logger"
)

// ConsumePoolUseCase binds a consumer to a specific pool.
type ConsumePoolUseCase struct {
	consumerRepo consumer.Repository
	poolRepo     pool.Repository
	entitler     *services.Entitler
	validate     *validator.Validate
	logger       logger.Interface
}

func NewConsumePoolUseCase(
	consumerRepo consumer.Repository,
	poolRepo pool.Repository,
	entitler *services.Entitler,
	log logger.Interface,
) *ConsumePoolUseCase {
	return &ConsumePoolUseCase{
		consumerRepo: consumerRepo,
		poolRepo:     poolRepo,
		entitler:     entitler,
		validate:     validator.New(),
		logger:       log,
	}
}

// Execute binds the requested quantity from the pool. Pools in another
// owner's scope surface as not found.
func (uc *ConsumePoolUseCase) Execute(ctx context.Context, request dto.BindPoolRequest) (*dto.EntitlementResponse, error) {
	if err := uc.validate.Struct(request); err != nil {
		return nil, errors.NewValidationError(err.Error())
	}

	cons, err := uc.consumerRepo.GetByUUID(ctx, request.ConsumerUUID)
	if err != nil {
		return nil, err
	}

	p, err := uc.poolRepo.GetForOwner(ctx, cons.OwnerKey(), request.PoolID)
	if err != nil {
		return nil, err
	}

	quantity := request.Quantity
	if quantity == 0 {
		quantity = 1
	}

	ent, err := uc.entitler.Bind(ctx, cons, p, quantity)
	if err != nil {
		return nil, err
	}

	return ToEntitlementResponse(ent), nil
}

// ToEntitlementResponse maps an entitlement with an attached pool to its
// response shape.
func ToEntitlementResponse(ent *entitlement.Entitlement) *dto.EntitlementResponse {
	resp := &dto.EntitlementResponse{
		ID:           ent.ID(),
		ConsumerUUID: ent.ConsumerUUID(),
		PoolID:       ent.PoolID(),
		Quantity:     ent.Quantity(),
		CertSerial:   ent.CertSerial(),
	}
	if p := ent.Pool(); p != nil {
		resp.ProductID = p.ProductID()
		resp.StartDate = p.StartDate()
		resp.EndDate = p.EndDate()
	}
	return resp
}
