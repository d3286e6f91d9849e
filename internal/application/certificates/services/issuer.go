package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/entgrid-io/entgrid/internal/domain/catalog"
	"github.com/entgrid-io/entgrid/internal/domain/certificate"
	"github.com/entgrid-io/entgrid/internal/domain/consumer"
	"github.com/entgrid-io/entgrid/internal/domain/entitlement"
	"github.com/entgrid-io/entgrid/internal/shared/logger"
)

// ContentAccessCache caches content access payload bodies so repeated client
// polls don't rebuild the view. Backed by redis in production.
type ContentAccessCache interface {
	Get(ctx context.Context, consumerUUID string) ([]byte, bool, error)
	Set(ctx context.Context, consumerUUID string, body []byte) error
	Invalidate(ctx context.Context, consumerUUID string) error
}

// Issuer builds and maintains certificate records: per-entitlement
// certificates and the org-level content access certificate.
type Issuer struct {
	certRepo     certificate.Repository
	consumerRepo consumer.Repository
	ownerRepo    catalog.OwnerRepository
	entRepo      entitlement.Repository
	serials      entitlement.SerialGenerator
	resolver     *ContentViewResolver
	cache        ContentAccessCache
	logger       logger.Interface
}

func NewIssuer(
	certRepo certificate.Repository,
	consumerRepo consumer.Repository,
	ownerRepo catalog.OwnerRepository,
	entRepo entitlement.Repository,
	serials entitlement.SerialGenerator,
	resolver *ContentViewResolver,
	cache ContentAccessCache,
	log logger.Interface,
) *Issuer {
	return &Issuer{
		certRepo:     certRepo,
		consumerRepo: consumerRepo,
		ownerRepo:    ownerRepo,
		entRepo:      entRepo,
		serials:      serials,
		resolver:     resolver,
		cache:        cache,
		logger:       log,
	}
}

// IssueEntitlementCert builds and stores the certificate for a freshly bound
// entitlement, using the serial the bind allocated.
func (s *Issuer) IssueEntitlementCert(ctx context.Context, cons *consumer.Consumer, ent *entitlement.Entitlement) (*certificate.Certificate, error) {
	view, err := s.resolver.ResolveForEntitlement(ctx, cons, ent)
	if err != nil {
		return nil, err
	}
	payload, err := EncodePayload(view)
	if err != nil {
		return nil, err
	}
	cert, err := certificate.NewCertificate(
		certificate.TypeEntitlement, cons.UUID(), ent.ID(), newKeyID(), ent.CertSerial(), payload)
	if err != nil {
		return nil, err
	}
	if err := s.certRepo.Create(ctx, cert); err != nil {
		return nil, fmt.Errorf("failed to store entitlement certificate: %w", err)
	}
	return cert, nil
}

// RegenerateEntitlementCert reissues an entitlement's certificate with a new
// serial and a freshly resolved content view.
func (s *Issuer) RegenerateEntitlementCert(ctx context.Context, entitlementID string) error {
	ent, err := s.entRepo.Get(ctx, entitlementID)
	if err != nil {
		return err
	}
	cons, err := s.consumerRepo.GetByUUID(ctx, ent.ConsumerUUID())
	if err != nil {
		return err
	}
	cert, err := s.certRepo.GetByEntitlement(ctx, entitlementID)
	if err != nil {
		return err
	}

	view, err := s.resolver.ResolveForEntitlement(ctx, cons, ent)
	if err != nil {
		return err
	}
	payload, err := EncodePayload(view)
	if err != nil {
		return err
	}

	serial, err := s.serials.NextSerial(ctx)
	if err != nil {
		return fmt.Errorf("failed to allocate certificate serial: %w", err)
	}
	if err := cert.Reissue(serial, payload); err != nil {
		return err
	}
	if err := s.certRepo.Update(ctx, cert); err != nil {
		return fmt.Errorf("failed to store regenerated certificate: %w", err)
	}

	ent.SetCertSerial(serial)
	if err := s.entRepo.Update(ctx, ent); err != nil {
		return err
	}
	s.logger.Infow("entitlement certificate regenerated",
		"entitlement_id", entitlementID, "serial", serial)
	return nil
}

// InvalidateContentAccess refreshes a consumer's content access certificate
// payload after its entitlement state changed. Serial and key identity are
// preserved; only the content body is replaced. Consumers without an issued
// certificate are left alone, it is issued lazily on first fetch.
func (s *Issuer) InvalidateContentAccess(ctx context.Context, consumerUUID string) error {
	cert, err := s.certRepo.GetContentAccess(ctx, consumerUUID)
	if err != nil {
		return err
	}
	if cert == nil {
		return nil
	}

	payload, err := s.buildContentAccessPayload(ctx, consumerUUID)
	if err != nil {
		return err
	}
	changed, err := cert.ReplacePayload(payload)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	if err := s.certRepo.Update(ctx, cert); err != nil {
		return fmt.Errorf("failed to store content access certificate: %w", err)
	}
	if err := s.cache.Invalidate(ctx, consumerUUID); err != nil {
		s.logger.Warnw("failed to invalidate content access cache",
			"consumer_uuid", consumerUUID, "error", err)
	}
	return nil
}

// EnsureContentAccess returns the consumer's content access certificate,
// issuing one on first use.
func (s *Issuer) EnsureContentAccess(ctx context.Context, consumerUUID string) (*certificate.Certificate, error) {
	cert, err := s.certRepo.GetContentAccess(ctx, consumerUUID)
	if err != nil {
		return nil, err
	}
	if cert != nil {
		return cert, nil
	}

	payload, err := s.buildContentAccessPayload(ctx, consumerUUID)
	if err != nil {
		return nil, err
	}
	serial, err := s.serials.NextSerial(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate certificate serial: %w", err)
	}
	cert, err = certificate.NewCertificate(
		certificate.TypeContentAccess, consumerUUID, "", newKeyID(), serial, payload)
	if err != nil {
		return nil, err
	}
	if err := s.certRepo.Create(ctx, cert); err != nil {
		return nil, fmt.Errorf("failed to store content access certificate: %w", err)
	}
	s.logger.Infow("content access certificate issued",
		"consumer_uuid", consumerUUID, "serial", serial)
	return cert, nil
}

func (s *Issuer) buildContentAccessPayload(ctx context.Context, consumerUUID string) ([]byte, error) {
	cons, err := s.consumerRepo.GetByUUID(ctx, consumerUUID)
	if err != nil {
		return nil, err
	}
	owner, err := s.ownerRepo.GetByKey(ctx, cons.OwnerKey())
	if err != nil {
		return nil, err
	}
	view, err := s.resolver.ResolveForConsumer(ctx, owner, cons)
	if err != nil {
		return nil, err
	}
	return EncodePayload(view)
}

func newKeyID() string {
	return uuid.NewString()
}
