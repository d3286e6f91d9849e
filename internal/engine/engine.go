// Package engine wires repositories, domain services, and use cases into
// the transport-agnostic operations surface of the entitlement engine.
package engine

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	bindingServices "github.com/entgrid-io/entgrid/internal/application/binding/services"
	bindingUC "github.com/entgrid-io/entgrid/internal/application/binding/usecases"
	catalogUC "github.com/entgrid-io/entgrid/internal/application/catalog/usecases"
	certServices "github.com/entgrid-io/entgrid/internal/application/certificates/services"
	certUC "github.com/entgrid-io/entgrid/internal/application/certificates/usecases"
	complianceUC "github.com/entgrid-io/entgrid/internal/application/compliance/usecases"
	consumersUC "github.com/entgrid-io/entgrid/internal/application/consumers/usecases"
	hypervisorServices "github.com/entgrid-io/entgrid/internal/application/hypervisors/services"
	hypervisorUC "github.com/entgrid-io/entgrid/internal/application/hypervisors/usecases"
	jobsUC "github.com/entgrid-io/entgrid/internal/application/jobs/usecases"
	poolsUC "github.com/entgrid-io/entgrid/internal/application/pools/usecases"
	"github.com/entgrid-io/entgrid/internal/infrastructure/cache"
	"github.com/entgrid-io/entgrid/internal/infrastructure/jobs"
	"github.com/entgrid-io/entgrid/internal/infrastructure/repository"
	sharedConfig "github.com/entgrid-io/entgrid/internal/shared/config"
	"github.com/entgrid-io/entgrid/internal/shared/logger"
)

// Engine is the assembled operations surface. Every exported field is one
// operation a transport or caller can invoke.
type Engine struct {
	RefreshPools *poolsUC.RefreshPoolsUseCase
	ListPools    *poolsUC.ListPoolsUseCase
	GetPool      *poolsUC.GetPoolUseCase
	DeletePool   *poolsUC.DeletePoolUseCase

	RegisterConsumer    *consumersUC.RegisterConsumerUseCase
	CreateActivationKey *consumersUC.CreateActivationKeyUseCase

	ConsumePool    *bindingUC.ConsumePoolUseCase
	ConsumeProduct *bindingUC.ConsumeProductUseCase
	Unbind         *bindingUC.UnbindEntitlementUseCase
	RevokeAll      *bindingUC.RevokeAllEntitlementsUseCase

	ComplianceStatus *complianceUC.GetComplianceStatusUseCase
	ComplianceList   *complianceUC.GetComplianceListUseCase

	ListCertificates *certUC.ListCertificatesUseCase
	RegenerateCerts  *certUC.RegenerateCertificatesUseCase
	ContentAccess    *certUC.GetContentAccessBodyUseCase

	HypervisorCheckIn   *hypervisorUC.CheckInUseCase
	HypervisorHeartbeat *hypervisorUC.HeartbeatUseCase

	GetJob    *jobsUC.GetJobUseCase
	CancelJob *jobsUC.CancelJobUseCase
	ListJobs  *jobsUC.ListJobsUseCase

	SweepExpiredPools   *poolsUC.SweepExpiredPoolsUseCase
	SweepOrphanVersions *catalogUC.SweepOrphanVersionsUseCase

	// Subscriptions is the upstream subscription mirror refreshPools
	// reconciles against.
	Subscriptions *repository.SubscriptionStoreImpl

	coordinator *jobs.Coordinator
}

// New wires the full engine on top of the given database and Redis handles.
func New(db *gorm.DB, redisClient *redis.Client, cfg *sharedConfig.EngineConfig, log logger.Interface) *Engine {
	// Repositories
	ownerRepo := repository.NewOwnerRepository(db, log)
	productRepo := repository.NewProductRepository(db, log)
	contentRepo := repository.NewContentRepository(db, log)
	envRepo := repository.NewEnvironmentRepository(db, log)
	poolRepo := repository.NewPoolRepository(db, log)
	entRepo := repository.NewEntitlementRepository(db, log)
	serials := repository.NewSerialGenerator(db, log)
	certRepo := repository.NewCertificateRepository(db, log)
	consumerRepo := repository.NewConsumerRepository(db, log)
	activationKeyRepo := repository.NewActivationKeyRepository(db, log)
	jobRepo := repository.NewJobRepository(db, log)
	subscriptions := repository.NewSubscriptionStore(db, log)

	// Redis-backed stores
	caCache := cache.NewContentAccessCache(redisClient,
		time.Duration(cfg.ContentAccessCacheTTLMinutes)*time.Minute)
	reporters := cache.NewReporterStore(redisClient)

	// Domain services
	poolValidator := bindingServices.NewPoolValidator()
	quantityRules := bindingServices.NewQuantityRules()
	resolver := certServices.NewContentViewResolver(productRepo, contentRepo, envRepo, poolRepo, entRepo, log)
	issuer := certServices.NewIssuer(certRepo, consumerRepo, ownerRepo, entRepo, serials, resolver, caCache, log)
	entitler := bindingServices.NewEntitler(poolRepo, entRepo, consumerRepo, serials, poolValidator, quantityRules, issuer, log)
	hostLocks := hypervisorServices.NewHostLockManager()

	// Async job coordinator
	coordinator := jobs.NewCoordinator(jobRepo, cfg.JobWorkers, log)

	e := &Engine{
		RefreshPools: poolsUC.NewRefreshPoolsUseCase(ownerRepo, productRepo, poolRepo, entRepo, subscriptions, entitler, issuer, log),
		ListPools:    poolsUC.NewListPoolsUseCase(poolRepo, consumerRepo, poolValidator, log),
		GetPool:      poolsUC.NewGetPoolUseCase(poolRepo, log),
		DeletePool:   poolsUC.NewDeletePoolUseCase(poolRepo, entitler, log),

		ConsumePool:    bindingUC.NewConsumePoolUseCase(consumerRepo, poolRepo, entitler, log),
		ConsumeProduct: bindingUC.NewConsumeProductUseCase(consumerRepo, ownerRepo, poolRepo, entRepo, entitler, poolValidator, quantityRules, coordinator, log),
		Unbind:         bindingUC.NewUnbindEntitlementUseCase(entRepo, entitler, log),
		RevokeAll:      bindingUC.NewRevokeAllEntitlementsUseCase(consumerRepo, entitler, log),

		ListCertificates: certUC.NewListCertificatesUseCase(certRepo, consumerRepo, log),
		RegenerateCerts:  certUC.NewRegenerateCertificatesUseCase(entRepo, poolRepo, issuer, log),
		ContentAccess:    certUC.NewGetContentAccessBodyUseCase(consumerRepo, ownerRepo, issuer, caCache, log),

		HypervisorCheckIn:   hypervisorUC.NewCheckInUseCase(consumerRepo, ownerRepo, entitler, hostLocks, reporters, log),
		HypervisorHeartbeat: hypervisorUC.NewHeartbeatUseCase(ownerRepo, reporters, log),

		GetJob:    jobsUC.NewGetJobUseCase(jobRepo, log),
		CancelJob: jobsUC.NewCancelJobUseCase(jobRepo, log),
		ListJobs:  jobsUC.NewListJobsUseCase(jobRepo, log),

		SweepExpiredPools:   poolsUC.NewSweepExpiredPoolsUseCase(poolRepo, entitler, log),
		SweepOrphanVersions: catalogUC.NewSweepOrphanVersionsUseCase(productRepo, contentRepo, log),

		Subscriptions: subscriptions,
		coordinator:   coordinator,
	}

	e.RegisterConsumer = consumersUC.NewRegisterConsumerUseCase(
		consumerRepo, ownerRepo, activationKeyRepo, poolRepo,
		entitler, quantityRules, e.ConsumeProduct, log)
	e.CreateActivationKey = consumersUC.NewCreateActivationKeyUseCase(ownerRepo, activationKeyRepo, log)

	statusUC := complianceUC.NewGetComplianceStatusUseCase(consumerRepo, ownerRepo, entRepo, poolRepo, log)
	e.ComplianceStatus = statusUC
	e.ComplianceList = complianceUC.NewGetComplianceListUseCase(consumerRepo, ownerRepo, statusUC, log)

	coordinator.Register(bindingUC.TaskAutoBind, jobs.NewAutoBindHandler(consumerRepo, e.ConsumeProduct))
	coordinator.Register(poolsUC.TaskRefreshPools, jobs.NewRefreshPoolsHandler(e.RefreshPools))
	coordinator.Register(hypervisorUC.TaskHypervisorCheckIn, jobs.NewHypervisorCheckInHandler(e.HypervisorCheckIn))
	coordinator.Register(poolsUC.TaskExpiredPoolSweep, jobs.NewSweepHandler("expired pools", e.SweepExpiredPools))
	coordinator.Register(catalogUC.TaskOrphanVersionSweep, jobs.NewSweepHandler("orphaned versions", e.SweepOrphanVersions))

	return e
}

// Jobs exposes the coordinator so transports and the scheduler can enqueue
// asynchronous work.
func (e *Engine) Jobs() *jobs.Coordinator {
	return e.coordinator
}

// StartWorkers launches the async job worker pool.
func (e *Engine) StartWorkers(ctx context.Context) {
	e.coordinator.Start(ctx)
}

// StopWorkers drains the worker pool.
func (e *Engine) StopWorkers() {
	e.coordinator.Stop()
}
