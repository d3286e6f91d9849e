package usecases

import (
	"context"

	"github.com/go-playground/validator/v10"

	"github.com/entgrid-io/entgrid/internal/application/certificates/dto"
	"github.com/entgrid-io/entgrid/internal/application/certificates/services"
	"github.com/entgrid-io/entgrid/internal/domain/catalog"
	"github.com/entgrid-io/entgrid/internal/domain/consumer"
	"github.com/entgrid-io/entgrid/internal/shared/errors"
	"github.com/entgrid-io/entgrid/internal/shared/logger"
)

type GetContentAccessBodyUseCase struct {
	consumerRepo consumer.Repository
	ownerRepo    catalog.OwnerRepository
	issuer       *services.Issuer
	cache        services.ContentAccessCache
	validator    *validator.Validate
	logger       logger.Interface
}

func NewGetContentAccessBodyUseCase(
	consumerRepo consumer.Repository,
	ownerRepo catalog.OwnerRepository,
	issuer *services.Issuer,
	cache services.ContentAccessCache,
	log logger.Interface,
) *GetContentAccessBodyUseCase {
	return &GetContentAccessBodyUseCase{
		consumerRepo: consumerRepo,
		ownerRepo:    ownerRepo,
		issuer:       issuer,
		cache:        cache,
		validator:    validator.New(),
		logger:       log,
	}
}

// Execute returns the consumer's content access payload, issuing the
// certificate on first fetch. Clients polling with Since get a NotModified
// response when the payload has not changed.
func (uc *GetContentAccessBodyUseCase) Execute(ctx context.Context, request dto.ContentAccessBodyRequest) (*dto.ContentAccessBody, error) {
	if err := uc.validator.Struct(request); err != nil {
		return nil, errors.NewValidationError(err.Error())
	}

	cons, err := uc.consumerRepo.GetByUUID(ctx, request.ConsumerUUID)
	if err != nil {
		return nil, err
	}
	owner, err := uc.ownerRepo.GetByKey(ctx, cons.OwnerKey())
	if err != nil {
		return nil, err
	}
	if !owner.UsesSimpleContentAccess() {
		return nil, errors.NewBadRequestError(
			"Content access body is only available in simple content access mode")
	}

	cert, err := uc.issuer.EnsureContentAccess(ctx, request.ConsumerUUID)
	if err != nil {
		return nil, err
	}

	if request.Since != nil && !cert.UpdatedAt().After(request.Since.UTC()) {
		return &dto.ContentAccessBody{
			ConsumerUUID: request.ConsumerUUID,
			Serial:       cert.Serial(),
			KeyID:        cert.KeyID(),
			LastUpdate:   cert.UpdatedAt(),
			NotModified:  true,
		}, nil
	}

	body := cert.Payload()
	if cached, ok, err := uc.cache.Get(ctx, request.ConsumerUUID); err == nil && ok {
		body = cached
	} else {
		if err := uc.cache.Set(ctx, request.ConsumerUUID, body); err != nil {
			uc.logger.Warnw("failed to cache content access body",
				"consumer_uuid", request.ConsumerUUID, "error", err)
		}
	}

	return &dto.ContentAccessBody{
		ConsumerUUID: request.ConsumerUUID,
		Serial:       cert.Serial(),
		KeyID:        cert.KeyID(),
		Body:         body,
		LastUpdate:   cert.UpdatedAt(),
	}, nil
}
