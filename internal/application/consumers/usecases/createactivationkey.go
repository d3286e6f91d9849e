package usecases

import (
	"context"

	"github.com/go-playground/validator/v10"

	"github.com/entgrid-io/entgrid/internal/application/consumers/dto"
	"github.com/entgrid-io/entgrid/internal/domain/catalog"
	"github.com/entgrid-io/entgrid/internal/domain/consumer"
	"github.com/entgrid-io/entgrid/internal/shared/errors"
	"github.com/entgrid-io/entgrid/internal/shared/id"
	"github.com/entgrid-io/entgrid/internal/shared/logger"
)

// CreateActivationKeyUseCase creates an activation key in an owner.
type CreateActivationKeyUseCase struct {
	ownerRepo catalog.OwnerRepository
	keyRepo   consumer.ActivationKeyRepository
	validate  *validator.Validate
	logger    logger.Interface
}

func NewCreateActivationKeyUseCase(
	ownerRepo catalog.OwnerRepository,
	keyRepo consumer.ActivationKeyRepository,
	log logger.Interface,
) *CreateActivationKeyUseCase {
	return &CreateActivationKeyUseCase{
		ownerRepo: ownerRepo,
		keyRepo:   keyRepo,
		validate:  validator.New(),
		logger:    log,
	}
}

// Execute creates the key. Duplicate names within an owner conflict.
func (uc *CreateActivationKeyUseCase) Execute(ctx context.Context, request dto.CreateActivationKeyRequest) (*dto.ActivationKeyResponse, error) {
	if err := uc.validate.Struct(request); err != nil {
		return nil, errors.NewValidationError(err.Error())
	}

	owner, err := uc.ownerRepo.GetByKey(ctx, request.OwnerKey)
	if err != nil {
		return nil, err
	}

	key, err := consumer.NewActivationKey(
		id.MustGenerateWithPrefix(id.PrefixActivationKey, id.DefaultLength),
		owner.Key(), request.Name)
	if err != nil {
		return nil, errors.NewValidationError(err.Error())
	}
	key.SetAutoAttach(request.AutoAttach)
	if request.ServiceLevel != "" {
		key.SetServiceLevel(request.ServiceLevel)
	}
	for _, p := range request.Pools {
		if err := key.AddPool(p.PoolID, p.Quantity); err != nil {
			return nil, errors.NewBadRequestError(err.Error())
		}
	}

	if err := uc.keyRepo.Create(ctx, key); err != nil {
		return nil, err
	}

	return toActivationKeyResponse(key), nil
}

func toActivationKeyResponse(key *consumer.ActivationKey) *dto.ActivationKeyResponse {
	resp := &dto.ActivationKeyResponse{
		KeyID:        key.KeyID(),
		OwnerKey:     key.OwnerKey(),
		Name:         key.Name(),
		AutoAttach:   key.AutoAttach(),
		ServiceLevel: key.ServiceLevel(),
		CreatedAt:    key.CreatedAt(),
	}
	for _, p := range key.Pools() {
		resp.Pools = append(resp.Pools, dto.ActivationKeyPoolInput{
			PoolID:   p.PoolID,
			Quantity: p.Quantity,
		})
	}
	return resp
}
