package services

import (
	"context"
	"fmt"
	"time"

	"github.com/entgrid-io/entgrid/internal/domain/certificate"
	"github.com/entgrid-io/entgrid/internal/domain/consumer"
	"github.com/entgrid-io/entgrid/internal/domain/entitlement"
	"github.com/entgrid-io/entgrid/internal/domain/pool"
	"github.com/entgrid-io/entgrid/internal/shared/errors"
	"github.com/entgrid-io/entgrid/internal/shared/logger"
)

// CertIssuer issues and regenerates certificates for entitlements. The
// certificates application service implements it; binding only depends on
// this narrow surface.
type CertIssuer interface {
	IssueEntitlementCert(ctx context.Context, cons *consumer.Consumer, ent *entitlement.Entitlement) (*certificate.Certificate, error)
	RegenerateEntitlementCert(ctx context.Context, entitlementID string) error
	InvalidateContentAccess(ctx context.Context, consumerUUID string) error
}

// Entitler is the binding engine: it validates and executes binds and
// unbinds, cascades revocation through derived pools, and keeps host
// stack-derived sub-pools in sync with the entitlements feeding them.
type Entitler struct {
	poolRepo     pool.Repository
	entRepo      entitlement.Repository
	consumerRepo consumer.Repository
	serials      entitlement.SerialGenerator
	validator    *PoolValidator
	quantities   *QuantityRules
	certs        CertIssuer
	logger       logger.Interface
}

func NewEntitler(
	poolRepo pool.Repository,
	entRepo entitlement.Repository,
	consumerRepo consumer.Repository,
	serials entitlement.SerialGenerator,
	validator *PoolValidator,
	quantities *QuantityRules,
	certs CertIssuer,
	log logger.Interface,
) *Entitler {
	return &Entitler{
		poolRepo:     poolRepo,
		entRepo:      entRepo,
		consumerRepo: consumerRepo,
		serials:      serials,
		validator:    validator,
		quantities:   quantities,
		certs:        certs,
		logger:       log,
	}
}

// Bind grants the consumer an entitlement of the given quantity against the
// pool, enforcing capacity, pre-entitlement rules, and quantity rules, then
// resyncs any derived pools the bind feeds.
func (s *Entitler) Bind(ctx context.Context, cons *consumer.Consumer, p *pool.Pool, quantity int64) (*entitlement.Entitlement, error) {
	if quantity <= 0 {
		quantity = 1
	}

	if err := s.validator.Validate(cons, p, quantity); err != nil {
		return nil, err
	}
	if err := s.quantities.ValidateQuantity(cons, p, quantity); err != nil {
		return nil, err
	}

	if !p.IsUnlimited() {
		consumed, err := s.poolRepo.ConsumedQuantity(ctx, p.ID())
		if err != nil {
			return nil, fmt.Errorf("failed to compute pool consumption: %w", err)
		}
		if consumed+quantity > p.Quantity() {
			return nil, errors.NewForbiddenError(fmt.Sprintf(
				"No subscriptions are available from the pool with ID %q", p.ID()))
		}
	}

	serial, err := s.serials.NextSerial(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate certificate serial: %w", err)
	}

	ent, err := entitlement.NewEntitlement(cons.UUID(), p, quantity, serial)
	if err != nil {
		return nil, errors.NewBadRequestError(err.Error())
	}
	if err := s.entRepo.Create(ctx, ent); err != nil {
		return nil, fmt.Errorf("failed to create entitlement: %w", err)
	}

	if _, err := s.certs.IssueEntitlementCert(ctx, cons, ent); err != nil {
		s.logger.Errorw("failed to issue entitlement certificate",
			"entitlement_id", ent.ID(), "error", err)
		return nil, fmt.Errorf("failed to issue entitlement certificate: %w", err)
	}

	s.logger.Infow("entitlement bound",
		"consumer_uuid", cons.UUID(),
		"pool_id", p.ID(),
		"quantity", quantity,
		"entitlement_id", ent.ID())

	if stackID := p.StackSourceID(); stackID != "" {
		if err := s.SyncHostStack(ctx, cons, stackID); err != nil {
			return nil, err
		}
	}
	if err := s.certs.InvalidateContentAccess(ctx, cons.UUID()); err != nil {
		s.logger.Warnw("failed to invalidate content access certificate",
			"consumer_uuid", cons.UUID(), "error", err)
	}

	return ent, nil
}

// Unbind revokes a single entitlement and resyncs derived pools that the
// entitlement fed. Revoking the last entitlement of a stack deletes the
// stack's derived pool and, transitively, any entitlements held against it.
func (s *Entitler) Unbind(ctx context.Context, entID string) error {
	ent, err := s.entRepo.Get(ctx, entID)
	if err != nil {
		return err
	}
	p, err := s.poolRepo.Get(ctx, ent.PoolID())
	if err == nil {
		_ = ent.AttachPool(p)
	}

	if err := s.revokeEntitlement(ctx, ent); err != nil {
		return err
	}

	if p != nil {
		if stackID := p.StackSourceID(); stackID != "" {
			cons, err := s.consumerRepo.GetByUUID(ctx, ent.ConsumerUUID())
			if err == nil {
				if err := s.SyncHostStack(ctx, cons, stackID); err != nil {
					return err
				}
			} else if !errors.IsGoneError(err) && !errors.IsNotFoundError(err) {
				return err
			}
		}
	}
	return nil
}

// RevokeAll revokes every entitlement a consumer holds.
func (s *Entitler) RevokeAll(ctx context.Context, cons *consumer.Consumer) (int, error) {
	ents, err := s.entRepo.ListByConsumer(ctx, cons.UUID())
	if err != nil {
		return 0, err
	}
	if err := s.attachPools(ctx, ents); err != nil {
		return 0, err
	}

	stackIDs := make(map[string]struct{})
	for _, ent := range ents {
		if p := ent.Pool(); p != nil {
			if sid := p.StackSourceID(); sid != "" {
				stackIDs[sid] = struct{}{}
			}
		}
		if err := s.revokeEntitlement(ctx, ent); err != nil {
			return 0, err
		}
	}
	for stackID := range stackIDs {
		if err := s.SyncHostStack(ctx, cons, stackID); err != nil {
			return 0, err
		}
	}

	s.logger.Infow("all entitlements revoked",
		"consumer_uuid", cons.UUID(), "count", len(ents))
	return len(ents), nil
}

// DeletePoolCascade removes a pool together with every entitlement held
// against it, recursively tearing down derived pools those entitlements fed.
func (s *Entitler) DeletePoolCascade(ctx context.Context, p *pool.Pool) error {
	ents, err := s.entRepo.ListByPool(ctx, p.ID())
	if err != nil {
		return err
	}

	stackID := p.StackSourceID()
	affected := make(map[string]struct{})
	for _, ent := range ents {
		_ = ent.AttachPool(p)
		if err := s.revokeEntitlement(ctx, ent); err != nil {
			return err
		}
		if stackID != "" {
			affected[ent.ConsumerUUID()] = struct{}{}
		}
	}

	if err := s.poolRepo.Delete(ctx, p.ID()); err != nil {
		return err
	}
	s.logger.Infow("pool deleted",
		"pool_id", p.ID(), "owner", p.OwnerKey(), "type", p.Type(), "revoked", len(ents))

	// Consumers whose revoked entitlement was feeding a stack may have a
	// derived pool to shrink or remove.
	for uuid := range affected {
		cons, err := s.consumerRepo.GetByUUID(ctx, uuid)
		if err != nil {
			if errors.IsGoneError(err) || errors.IsNotFoundError(err) {
				continue
			}
			return err
		}
		if err := s.SyncHostStack(ctx, cons, stackID); err != nil {
			return err
		}
	}
	return nil
}

// revokeEntitlement deletes the entitlement and its certificate, and
// invalidates the consumer's content access payload.
func (s *Entitler) revokeEntitlement(ctx context.Context, ent *entitlement.Entitlement) error {
	if err := s.entRepo.Delete(ctx, ent.ID()); err != nil {
		return err
	}
	if err := s.certs.InvalidateContentAccess(ctx, ent.ConsumerUUID()); err != nil {
		s.logger.Warnw("failed to invalidate content access certificate",
			"consumer_uuid", ent.ConsumerUUID(), "error", err)
	}
	s.logger.Infow("entitlement revoked",
		"entitlement_id", ent.ID(),
		"consumer_uuid", ent.ConsumerUUID(),
		"pool_id", ent.PoolID())
	return nil
}

// activeStack rebuilds the consumer's stack for a stacking ID from currently
// held entitlements.
func (s *Entitler) activeStack(ctx context.Context, cons *consumer.Consumer, stackID string) (*entitlement.Stack, error) {
	ents, err := s.entRepo.ListByConsumer(ctx, cons.UUID())
	if err != nil {
		return nil, err
	}
	if err := s.attachPools(ctx, ents); err != nil {
		return nil, err
	}
	stacks := entitlement.BuildStacks(cons.UUID(), ents, time.Now().UTC())
	st, ok := stacks[stackID]
	if !ok {
		return entitlement.NewStack(stackID, cons.UUID(), nil), nil
	}
	return st, nil
}

func (s *Entitler) attachPools(ctx context.Context, ents []*entitlement.Entitlement) error {
	for _, ent := range ents {
		if ent.Pool() != nil {
			continue
		}
		p, err := s.poolRepo.Get(ctx, ent.PoolID())
		if err != nil {
			if errors.IsNotFoundError(err) {
				continue
			}
			return err
		}
		if err := ent.AttachPool(p); err != nil {
			return err
		}
	}
	return nil
}
