package usecases

import (
	"context"

	"github.com/entgrid-io/entgrid/internal/application/binding/dto"
	"github.com/entgrid-io/entgrid/internal/application/binding/services"
	"github.com/entgrid-io/entgrid/internal/domain/consumer"
	"github.com/entgrid-io/entgrid/internal/shared/logger"
)

type RevokeAllEntitlementsUseCase struct {
	consumerRepo consumer.Repository
	entitler     *services.Entitler
	logger       logger.Interface
}

func NewRevokeAllEntitlementsUseCase(
	consumerRepo consumer.Repository,
	entitler *services.Entitler,
	log logger.Interface,
) *RevokeAllEntitlementsUseCase {
	return &RevokeAllEntitlementsUseCase{consumerRepo: consumerRepo, entitler: entitler, logger: log}
}

func (uc *RevokeAllEntitlementsUseCase) Execute(ctx context.Context, consumerUUID string) (*dto.RevokeAllResponse, error) {
	cons, err := uc.consumerRepo.GetByUUID(ctx, consumerUUID)
	if err != nil {
		return nil, err
	}
	revoked, err := uc.entitler.RevokeAll(ctx, cons)
	if err != nil {
		return nil, err
	}
	uc.logger.Infow("revoked all entitlements", "consumer_uuid", consumerUUID, "count", revoked)
	return &dto.RevokeAllResponse{ConsumerUUID: consumerUUID, Revoked: revoked}, nil
}
