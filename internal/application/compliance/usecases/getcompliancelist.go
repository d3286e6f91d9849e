package usecases

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/entgrid-io/entgrid/internal/application/compliance/dto"
	"github.com/entgrid-io/entgrid/internal/domain/catalog"
	"github.com/entgrid-io/entgrid/internal/domain/consumer"
	"github.com/entgrid-io/entgrid/internal/shared/errors"
	"github.com/entgrid-io/entgrid/internal/shared/logger"
)

type GetComplianceListUseCase struct {
	consumerRepo consumer.Repository
	ownerRepo    catalog.OwnerRepository
	statusUC     *GetComplianceStatusUseCase
	validator    *validator.Validate
	logger       logger.Interface
}

func NewGetComplianceListUseCase(
	consumerRepo consumer.Repository,
	ownerRepo catalog.OwnerRepository,
	statusUC *GetComplianceStatusUseCase,
	log logger.Interface,
) *GetComplianceListUseCase {
	return &GetComplianceListUseCase{
		consumerRepo: consumerRepo,
		ownerRepo:    ownerRepo,
		statusUC:     statusUC,
		validator:    validator.New(),
		logger:       log,
	}
}

// Execute computes the compliance status of the requested consumers, or of
// every consumer in the owner when no UUIDs are given.
func (uc *GetComplianceListUseCase) Execute(ctx context.Context, request dto.ComplianceListRequest) ([]dto.ConsumerCompliance, error) {
	if err := uc.validator.Struct(request); err != nil {
		return nil, errors.NewValidationError(err.Error())
	}
	if _, err := uc.ownerRepo.GetByKey(ctx, request.OwnerKey); err != nil {
		return nil, err
	}

	consumers, err := uc.resolveConsumers(ctx, request)
	if err != nil {
		return nil, err
	}
	onDate := time.Now().UTC()
	if request.OnDate != nil {
		onDate = request.OnDate.UTC()
	}

	results := make([]dto.ConsumerCompliance, 0, len(consumers))
	for _, cons := range consumers {
		status, err := uc.statusUC.evaluate(ctx, cons, onDate)
		if err != nil {
			return nil, err
		}
		results = append(results, dto.ConsumerCompliance{
			ConsumerUUID: cons.UUID(),
			ConsumerName: cons.Name(),
			Status:       status,
		})
	}
	return results, nil
}

// resolveConsumers loads the requested consumers, deduplicating UUIDs, or
// the owner's whole population when the request names none.
func (uc *GetComplianceListUseCase) resolveConsumers(ctx context.Context, request dto.ComplianceListRequest) ([]*consumer.Consumer, error) {
	if len(request.ConsumerUUIDs) == 0 {
		return uc.consumerRepo.ListByOwner(ctx, request.OwnerKey)
	}

	seen := make(map[string]bool, len(request.ConsumerUUIDs))
	consumers := make([]*consumer.Consumer, 0, len(request.ConsumerUUIDs))
	for _, uuid := range request.ConsumerUUIDs {
		if seen[uuid] {
			continue
		}
		seen[uuid] = true
		cons, err := uc.consumerRepo.GetByUUIDForOwner(ctx, request.OwnerKey, uuid)
		if err != nil {
			return nil, err
		}
		consumers = append(consumers, cons)
	}
	return consumers, nil
}
