package usecases

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/entgrid-io/entgrid/internal/application/compliance/dto"
	"github.com/entgrid-io/entgrid/internal/domain/catalog"
	"github.com/entgrid-io/entgrid/internal/domain/compliance"
	"github.com/entgrid-io/entgrid/internal/domain/consumer"
	"github.com/entgrid-io/entgrid/internal/domain/entitlement"
	"github.com/entgrid-io/entgrid/internal/domain/pool"
	"github.com/entgrid-io/entgrid/internal/shared/errors"
	"github.com/entgrid-io/entgrid/internal/shared/logger"
)

type GetComplianceStatusUseCase struct {
	consumerRepo consumer.Repository
	ownerRepo    catalog.OwnerRepository
	entRepo      entitlement.Repository
	poolRepo     pool.Repository
	calculator   *compliance.Calculator
	validator    *validator.Validate
	logger       logger.Interface
}

func NewGetComplianceStatusUseCase(
	consumerRepo consumer.Repository,
	ownerRepo catalog.OwnerRepository,
	entRepo entitlement.Repository,
	poolRepo pool.Repository,
	log logger.Interface,
) *GetComplianceStatusUseCase {
	return &GetComplianceStatusUseCase{
		consumerRepo: consumerRepo,
		ownerRepo:    ownerRepo,
		entRepo:      entRepo,
		poolRepo:     poolRepo,
		calculator:   compliance.NewCalculator(),
		validator:    validator.New(),
		logger:       log,
	}
}

func (uc *GetComplianceStatusUseCase) Execute(ctx context.Context, request dto.ComplianceStatusRequest) (*compliance.Status, error) {
	if err := uc.validator.Struct(request); err != nil {
		return nil, errors.NewValidationError(err.Error())
	}

	cons, err := uc.consumerRepo.GetByUUID(ctx, request.ConsumerUUID)
	if err != nil {
		return nil, err
	}
	onDate := time.Now().UTC()
	if request.OnDate != nil {
		onDate = request.OnDate.UTC()
	}
	return uc.evaluate(ctx, cons, onDate)
}

// evaluate loads the consumer's entitlements with their pools attached and
// runs the calculator. Shared with the owner-wide listing.
func (uc *GetComplianceStatusUseCase) evaluate(ctx context.Context, cons *consumer.Consumer, onDate time.Time) (*compliance.Status, error) {
	owner, err := uc.ownerRepo.GetByKey(ctx, cons.OwnerKey())
	if err != nil {
		return nil, err
	}
	ents, err := uc.entRepo.ListByConsumer(ctx, cons.UUID())
	if err != nil {
		return nil, err
	}
	for _, ent := range ents {
		p, err := uc.poolRepo.Get(ctx, ent.PoolID())
		if err != nil {
			if errors.IsNotFoundError(err) {
				continue
			}
			return nil, err
		}
		if err := ent.AttachPool(p); err != nil {
			return nil, err
		}
	}
	return uc.calculator.Evaluate(owner, cons, ents, onDate), nil
}
