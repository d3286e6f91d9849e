package usecases

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/entgrid-io/entgrid/internal/application/hypervisors/dto"
	"github.com/entgrid-io/entgrid/internal/domain/catalog"
	"github.com/entgrid-io/entgrid/internal/shared/errors"
	"github.com/entgrid-io/entgrid/internal/shared/logger"
)

// HeartbeatUseCase records that a virt-who reporter is alive without
// shipping a full guest report.
type HeartbeatUseCase struct {
	ownerRepo catalog.OwnerRepository
	reporters ReporterStore
	validator *validator.Validate
	logger    logger.Interface
}

func NewHeartbeatUseCase(ownerRepo catalog.OwnerRepository, reporters ReporterStore, log logger.Interface) *HeartbeatUseCase {
	return &HeartbeatUseCase{
		ownerRepo: ownerRepo,
		reporters: reporters,
		validator: validator.New(),
		logger:    log,
	}
}

func (uc *HeartbeatUseCase) Execute(ctx context.Context, request dto.HeartbeatRequest) (*dto.HeartbeatResult, error) {
	if err := uc.validator.Struct(request); err != nil {
		return nil, errors.NewValidationError(err.Error())
	}
	if _, err := uc.ownerRepo.GetByKey(ctx, request.OwnerKey); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if err := uc.reporters.Touch(ctx, request.OwnerKey, request.ReporterID, now); err != nil {
		return nil, err
	}
	uc.logger.Debugw("reporter heartbeat",
		"owner_key", request.OwnerKey, "reporter_id", request.ReporterID)
	return &dto.HeartbeatResult{ReporterID: request.ReporterID, SeenAt: now}, nil
}
