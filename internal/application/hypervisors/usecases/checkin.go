package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	bindingservices "github.com/entgrid-io/entgrid/internal/application/binding/services"
	"github.com/entgrid-io/entgrid/internal/application/hypervisors/dto"
	"github.com/entgrid-io/entgrid/internal/application/hypervisors/services"
	"github.com/entgrid-io/entgrid/internal/domain/catalog"
	"github.com/entgrid-io/entgrid/internal/domain/consumer"
	"github.com/entgrid-io/entgrid/internal/shared/errors"
	"github.com/entgrid-io/entgrid/internal/shared/logger"
)

// TaskHypervisorCheckIn is the job task key for asynchronous check-in
// batches.
const TaskHypervisorCheckIn = "hypervisor_checkin"

// ReporterStore records reporter liveness.
type ReporterStore interface {
	Touch(ctx context.Context, ownerKey, reporterID string, at time.Time) error
}

// CheckInUseCase processes virt-who hypervisor reports: it reconciles each
// hypervisor's guest list, moves migrated guests between hosts, and keeps
// the affected stack-derived pools in sync.
type CheckInUseCase struct {
	consumerRepo consumer.Repository
	ownerRepo    catalog.OwnerRepository
	entitler     *bindingservices.Entitler
	hostLocks    *services.HostLockManager
	reporters    ReporterStore
	validator    *validator.Validate
	logger       logger.Interface
}

func NewCheckInUseCase(
	consumerRepo consumer.Repository,
	ownerRepo catalog.OwnerRepository,
	entitler *bindingservices.Entitler,
	hostLocks *services.HostLockManager,
	reporters ReporterStore,
	log logger.Interface,
) *CheckInUseCase {
	return &CheckInUseCase{
		consumerRepo: consumerRepo,
		ownerRepo:    ownerRepo,
		entitler:     entitler,
		hostLocks:    hostLocks,
		reporters:    reporters,
		validator:    validator.New(),
		logger:       log,
	}
}

func (uc *CheckInUseCase) Execute(ctx context.Context, request dto.CheckInRequest) (*dto.CheckInResult, error) {
	if err := uc.validator.Struct(request); err != nil {
		return nil, errors.NewValidationError(err.Error())
	}
	if _, err := uc.ownerRepo.GetByKey(ctx, request.OwnerKey); err != nil {
		return nil, err
	}

	// All hosts in the batch are locked up front, in sorted order, so
	// overlapping batches serialize instead of deadlocking.
	keys := make([]string, 0, len(request.Reports))
	for _, report := range request.Reports {
		keys = append(keys, lockKey(request.OwnerKey, report.HypervisorID))
	}
	unlock := uc.hostLocks.LockAll(keys)
	defer unlock()

	now := time.Now().UTC()
	requestID := consumer.NewRequestID()
	result := &dto.CheckInResult{}

	for _, report := range request.Reports {
		outcome, err := uc.processReport(ctx, request.OwnerKey, report, now, requestID, request.CreateMissing)
		if err != nil {
			uc.logger.Errorw("hypervisor report failed",
				"owner_key", request.OwnerKey,
				"hypervisor_id", report.HypervisorID,
				"error", err)
			result.FailedUpdate = append(result.FailedUpdate, report.HypervisorID)
			continue
		}
		switch outcome {
		case outcomeCreated:
			result.Created = append(result.Created, report.HypervisorID)
		case outcomeUpdated:
			result.Updated = append(result.Updated, report.HypervisorID)
		case outcomeUnchanged:
			result.Unchanged = append(result.Unchanged, report.HypervisorID)
		}
	}

	if request.ReporterID != "" {
		if err := uc.reporters.Touch(ctx, request.OwnerKey, request.ReporterID, now); err != nil {
			uc.logger.Warnw("failed to record reporter liveness",
				"reporter_id", request.ReporterID, "error", err)
		}
	}
	return result, nil
}

type reportOutcome int

const (
	outcomeCreated reportOutcome = iota
	outcomeUpdated
	outcomeUnchanged
)

func (uc *CheckInUseCase) processReport(
	ctx context.Context,
	ownerKey string,
	report dto.GuestReport,
	now time.Time,
	requestID string,
	createMissing bool,
) (reportOutcome, error) {
	host, err := uc.consumerRepo.FindHypervisor(ctx, ownerKey, report.HypervisorID)
	if err != nil && !errors.IsNotFoundError(err) {
		return 0, err
	}

	created := false
	if host == nil {
		if !createMissing {
			return 0, fmt.Errorf("unknown hypervisor %q", report.HypervisorID)
		}
		name := report.Name
		if name == "" {
			name = report.HypervisorID
		}
		facts := consumer.Facts{consumer.FactHypervisorID: report.HypervisorID}
		fresh, _, err := consumer.NewConsumer(name, ownerKey, consumer.TypeHypervisor, facts)
		if err != nil {
			return 0, err
		}
		if err := uc.consumerRepo.Create(ctx, fresh); err != nil {
			return 0, err
		}
		host = fresh
		created = true
	}

	previous := host.Guests()
	changed := host.ApplyGuestReport(report.GuestIDs, now, requestID)
	if !changed && !created {
		return outcomeUnchanged, nil
	}
	host.Checkin(now)
	if err := uc.consumerRepo.Update(ctx, host); err != nil {
		return 0, err
	}

	if err := uc.reconcileGuests(ctx, ownerKey, host, previous, report.GuestIDs); err != nil {
		return 0, err
	}

	if created {
		return outcomeCreated, nil
	}
	return outcomeUpdated, nil
}

// reconcileGuests moves registered guests whose host association changed:
// newly claimed guests are pointed at this host, guests that vanished from
// the list are unmapped, and in both cases entitlements granted against the
// old host's derived pools are revoked.
func (uc *CheckInUseCase) reconcileGuests(
	ctx context.Context,
	ownerKey string,
	host *consumer.Consumer,
	previous consumer.GuestList,
	reported []string,
) error {
	reportedSet := make(map[string]bool, len(reported))
	for _, id := range reported {
		reportedSet[id] = true
	}

	for _, virtUUID := range reported {
		guest, err := uc.consumerRepo.FindGuestConsumer(ctx, ownerKey, virtUUID)
		if err != nil {
			return err
		}
		if guest == nil || guest.HostUUID() == host.UUID() {
			continue
		}
		oldHost := guest.HostUUID()
		guest.SetHost(host.UUID())
		if err := uc.consumerRepo.Update(ctx, guest); err != nil {
			return err
		}
		if err := uc.entitler.OnGuestHostChanged(ctx, guest, oldHost); err != nil {
			return err
		}
	}

	for _, virtUUID := range previous.GuestIDs {
		if reportedSet[virtUUID] {
			continue
		}
		guest, err := uc.consumerRepo.FindGuestConsumer(ctx, ownerKey, virtUUID)
		if err != nil {
			return err
		}
		// Only unmap when the guest still points here; another host may
		// already have claimed it in this or an earlier batch.
		if guest == nil || guest.HostUUID() != host.UUID() {
			continue
		}
		guest.SetHost("")
		if err := uc.consumerRepo.Update(ctx, guest); err != nil {
			return err
		}
		if err := uc.entitler.OnGuestHostChanged(ctx, guest, host.UUID()); err != nil {
			return err
		}
	}
	return nil
}

func lockKey(ownerKey, hypervisorID string) string {
	return ownerKey + "/" + hypervisorID
}
