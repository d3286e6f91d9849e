package usecases

import (
	"context"

	"github.com/entgrid-io/entgrid/internal/application/certificates/dto"
	"github.com/entgrid-io/entgrid/internal/application/certificates/services"
	"github.com/entgrid-io/entgrid/internal/domain/entitlement"
	"github.com/entgrid-io/entgrid/internal/domain/pool"
	"github.com/entgrid-io/entgrid/internal/shared/errors"
	"github.com/entgrid-io/entgrid/internal/shared/logger"
)

type RegenerateCertificatesUseCase struct {
	entRepo  entitlement.Repository
	poolRepo pool.Repository
	issuer   *services.Issuer
	logger   logger.Interface
}

func NewRegenerateCertificatesUseCase(
	entRepo entitlement.Repository,
	poolRepo pool.Repository,
	issuer *services.Issuer,
	log logger.Interface,
) *RegenerateCertificatesUseCase {
	return &RegenerateCertificatesUseCase{entRepo: entRepo, poolRepo: poolRepo, issuer: issuer, logger: log}
}

// Execute reissues entitlement certificates selected by consumer, by
// product within an owner, or by a single entitlement ID.
func (uc *RegenerateCertificatesUseCase) Execute(ctx context.Context, request dto.RegenerateRequest) (*dto.RegenerateResult, error) {
	ents, err := uc.selectEntitlements(ctx, request)
	if err != nil {
		return nil, err
	}

	result := &dto.RegenerateResult{}
	touched := make(map[string]bool)
	for _, ent := range ents {
		if err := uc.issuer.RegenerateEntitlementCert(ctx, ent.ID()); err != nil {
			return nil, err
		}
		result.Regenerated++
		touched[ent.ConsumerUUID()] = true
	}
	for consumerUUID := range touched {
		if err := uc.issuer.InvalidateContentAccess(ctx, consumerUUID); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (uc *RegenerateCertificatesUseCase) selectEntitlements(ctx context.Context, request dto.RegenerateRequest) ([]*entitlement.Entitlement, error) {
	switch {
	case request.EntitlementID != "":
		ent, err := uc.entRepo.Get(ctx, request.EntitlementID)
		if err != nil {
			return nil, err
		}
		return []*entitlement.Entitlement{ent}, nil

	case request.ConsumerUUID != "":
		return uc.entRepo.ListByConsumer(ctx, request.ConsumerUUID)

	case request.ProductID != "":
		if request.OwnerKey == "" {
			return nil, errors.NewValidationError("owner key is required when regenerating by product")
		}
		pools, err := uc.poolRepo.List(ctx, pool.ListFilter{
			OwnerKey:       request.OwnerKey,
			ProductID:      request.ProductID,
			IncludeDerived: true,
		})
		if err != nil {
			return nil, err
		}
		var ents []*entitlement.Entitlement
		for _, p := range pools {
			held, err := uc.entRepo.ListByPool(ctx, p.ID())
			if err != nil {
				return nil, err
			}
			ents = append(ents, held...)
		}
		return ents, nil

	default:
		return nil, errors.NewValidationError("one of entitlement_id, consumer_uuid, or product_id is required")
	}
}
