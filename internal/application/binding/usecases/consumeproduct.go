package usecases

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/entgrid-io/entgrid/internal/application/binding/dto"
	"github.com/entgrid-io/entgrid/internal/application/binding/services"
	"github.com/entgrid-io/entgrid/internal/domain/catalog"
	"github.com/entgrid-io/entgrid/internal/domain/consumer"
	"github.com/entgrid-io/entgrid/internal/domain/entitlement"
	"github.com/entgrid-io/entgrid/internal/domain/pool"
	"github.com/entgrid-io/entgrid/internal/shared/errors"
	"github.com/entgrid-io/entgrid/internal/shared/logger"
)

// ConsumeProductUseCase is auto-attach: it finds pools covering the
// requested (or installed-but-uncovered) products and binds them with
// suggested quantities.
type ConsumeProductUseCase struct {
	consumerRepo consumer.Repository
	ownerRepo    catalog.OwnerRepository
	poolRepo     pool.Repository
	entRepo      entitlement.Repository
	entitler     *services.Entitler
	validator    *services.PoolValidator
	quantities   *services.QuantityRules
	jobs         JobQueue
	logger       logger.Interface
}

func NewConsumeProductUseCase(
	consumerRepo consumer.Repository,
	ownerRepo catalog.OwnerRepository,
	poolRepo pool.Repository,
	entRepo entitlement.Repository,
	entitler *services.Entitler,
	poolValidator *services.PoolValidator,
	quantities *services.QuantityRules,
	jobs JobQueue,
	log logger.Interface,
) *ConsumeProductUseCase {
	return &ConsumeProductUseCase{
		consumerRepo: consumerRepo,
		ownerRepo:    ownerRepo,
		poolRepo:     poolRepo,
		entRepo:      entRepo,
		entitler:     entitler,
		validator:    poolValidator,
		quantities:   quantities,
		jobs:         jobs,
		logger:       log,
	}
}

// Execute runs auto-attach, inline or as an async job.
func (uc *ConsumeProductUseCase) Execute(ctx context.Context, request dto.AutoBindRequest) (*dto.AutoBindResponse, error) {
	cons, err := uc.consumerRepo.GetByUUID(ctx, request.ConsumerUUID)
	if err != nil {
		return nil, err
	}

	owner, err := uc.ownerRepo.GetByKey(ctx, cons.OwnerKey())
	if err != nil {
		return nil, err
	}
	if owner.UsesSimpleContentAccess() {
		return nil, errors.NewBadRequestError(fmt.Sprintf(
			"Ignoring request to auto-attach. It is disabled for org %q because of the content access mode setting.",
			owner.Key()))
	}

	if request.Async {
		j, err := uc.jobs.Enqueue(ctx, TaskAutoBind, cons.OwnerKey(), cons.UUID(), map[string]string{
			"consumer_uuid": cons.UUID(),
			"product_ids":   strings.Join(request.ProductIDs, ","),
		})
		if err != nil {
			return nil, err
		}
		return &dto.AutoBindResponse{JobID: j.ID()}, nil
	}

	ents, err := uc.Run(ctx, cons, request.ProductIDs, request.EntitleDate)
	if err != nil {
		return nil, err
	}

	resp := &dto.AutoBindResponse{}
	for _, ent := range ents {
		resp.Entitlements = append(resp.Entitlements, *ToEntitlementResponse(ent))
	}
	return resp, nil
}

// Run is the synchronous auto-attach body, also invoked by the async job
// executor and by autoheal.
func (uc *ConsumeProductUseCase) Run(
	ctx context.Context,
	cons *consumer.Consumer,
	productIDs []string,
	entitleDate *time.Time,
) ([]*entitlement.Entitlement, error) {
	onDate := time.Now().UTC()
	if entitleDate != nil {
		onDate = entitleDate.UTC()
	}

	targets := productIDs
	if len(targets) == 0 {
		uncovered, err := uc.uncoveredInstalledProducts(ctx, cons, onDate)
		if err != nil {
			return nil, err
		}
		targets = uncovered
	}
	if len(targets) == 0 {
		return nil, nil
	}

	pools, err := uc.poolRepo.List(ctx, pool.ListFilter{OwnerKey: cons.OwnerKey(), ActiveOn: &onDate, IncludeDerived: true})
	if err != nil {
		return nil, err
	}
	sortPoolsForAutobind(pools)

	var granted []*entitlement.Entitlement
	for _, productID := range targets {
		candidate := uc.selectPool(cons, pools, productID)
		if candidate == nil {
			uc.logger.Debugw("no pool available for product",
				"consumer_uuid", cons.UUID(), "product_id", productID)
			continue
		}
		quantity := uc.quantities.SuggestedQuantity(cons, candidate)
		ent, err := uc.entitler.Bind(ctx, cons, candidate, quantity)
		if err != nil {
			if errors.IsForbiddenError(err) {
				uc.logger.Debugw("skipping pool during auto-attach",
					"pool_id", candidate.ID(), "reason", err.Error())
				continue
			}
			return nil, err
		}
		granted = append(granted, ent)
	}

	uc.logger.Infow("auto-attach completed",
		"consumer_uuid", cons.UUID(),
		"requested", len(targets),
		"granted", len(granted))
	return granted, nil
}

// uncoveredInstalledProducts lists installed products with no active
// entitlement referencing them as of the date.
func (uc *ConsumeProductUseCase) uncoveredInstalledProducts(
	ctx context.Context,
	cons *consumer.Consumer,
	onDate time.Time,
) ([]string, error) {
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
		_ = ent.AttachPool(p)
	}

	var uncovered []string
	for _, installed := range cons.InstalledProducts() {
		covered := false
		for _, ent := range ents {
			if ent.ActiveOn(onDate) && ent.Pool() != nil && ent.Pool().Covers(installed.ProductID) {
				covered = true
				break
			}
		}
		if !covered {
			uncovered = append(uncovered, installed.ProductID)
		}
	}
	return uncovered, nil
}

// selectPool picks the first pool covering the product that the consumer can
// actually use.
func (uc *ConsumeProductUseCase) selectPool(cons *consumer.Consumer, pools []*pool.Pool, productID string) *pool.Pool {
	for _, p := range pools {
		if !p.Covers(productID) {
			continue
		}
		if host := p.RequiresHost(); host != "" && cons.HostUUID() != host {
			continue
		}
		if !uc.validator.CompatibleWith(cons, p) {
			continue
		}
		return p
	}
	return nil
}

// sortPoolsForAutobind prefers host-restricted derived pools over global
// ones so mapped guests consume their host's sub-pool first, then orders by
// earliest expiry.
func sortPoolsForAutobind(pools []*pool.Pool) {
	sort.SliceStable(pools, func(i, j int) bool {
		a, b := pools[i], pools[j]
		aHost := a.RequiresHost() != ""
		bHost := b.RequiresHost() != ""
		if aHost != bHost {
			return aHost
		}
		return a.EndDate().Before(b.EndDate())
	})
}
