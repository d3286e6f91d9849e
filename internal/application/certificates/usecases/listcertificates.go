package usecases

import (
	"context"

	"github.com/entgrid-io/entgrid/internal/application/certificates/dto"
	"github.com/entgrid-io/entgrid/internal/domain/certificate"
	"github.com/entgrid-io/entgrid/internal/domain/consumer"
	"github.com/entgrid-io/entgrid/internal/shared/logger"
)

type ListCertificatesUseCase struct {
	certRepo     certificate.Repository
	consumerRepo consumer.Repository
	logger       logger.Interface
}

func NewListCertificatesUseCase(
	certRepo certificate.Repository,
	consumerRepo consumer.Repository,
	log logger.Interface,
) *ListCertificatesUseCase {
	return &ListCertificatesUseCase{certRepo: certRepo, consumerRepo: consumerRepo, logger: log}
}

// Execute lists every certificate a consumer holds.
func (uc *ListCertificatesUseCase) Execute(ctx context.Context, consumerUUID string) ([]dto.CertificateResponse, error) {
	if _, err := uc.consumerRepo.GetByUUID(ctx, consumerUUID); err != nil {
		return nil, err
	}
	certs, err := uc.certRepo.ListByConsumer(ctx, consumerUUID)
	if err != nil {
		return nil, err
	}
	responses := make([]dto.CertificateResponse, 0, len(certs))
	for _, cert := range certs {
		responses = append(responses, *ToCertificateResponse(cert))
	}
	return responses, nil
}

// ToCertificateResponse maps a certificate record to its caller-visible view.
func ToCertificateResponse(cert *certificate.Certificate) *dto.CertificateResponse {
	return &dto.CertificateResponse{
		Serial:        cert.Serial(),
		Type:          string(cert.Type()),
		ConsumerUUID:  cert.ConsumerUUID(),
		EntitlementID: cert.EntitlementID(),
		KeyID:         cert.KeyID(),
		Payload:       cert.Payload(),
		UpdatedAt:     cert.UpdatedAt(),
	}
}
