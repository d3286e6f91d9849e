package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	bindingUC "github.com/entgrid-io/entgrid/internal/application/binding/usecases"
	hypervisorDTO "github.com/entgrid-io/entgrid/internal/application/hypervisors/dto"
	hypervisorUC "github.com/entgrid-io/entgrid/internal/application/hypervisors/usecases"
	poolsDTO "github.com/entgrid-io/entgrid/internal/application/pools/dto"
	poolsUC "github.com/entgrid-io/entgrid/internal/application/pools/usecases"
	"github.com/entgrid-io/entgrid/internal/domain/consumer"
	"github.com/entgrid-io/entgrid/internal/domain/job"
	"github.com/entgrid-io/entgrid/internal/shared/errors"
)

// NewAutoBindHandler returns the handler for auto-attach jobs enqueued by
// the binding use cases.
func NewAutoBindHandler(consumerRepo consumer.Repository, autoBind *bindingUC.ConsumeProductUseCase) Handler {
	return func(ctx context.Context, j *job.Job) (string, error) {
		cons, err := consumerRepo.GetByUUID(ctx, j.Argument("consumer_uuid"))
		if err != nil {
			return "", err
		}

		var productIDs []string
		if raw := j.Argument("product_ids"); raw != "" {
			productIDs = strings.Split(raw, ",")
		}

		ents, err := autoBind.Run(ctx, cons, productIDs, nil)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Attached %d entitlements to unit %s", len(ents), cons.UUID()), nil
	}
}

// NewRefreshPoolsHandler returns the handler for owner pool refresh jobs.
// The owner is taken from the owner_key argument, falling back to the
// job's own owner key.
func NewRefreshPoolsHandler(refresh *poolsUC.RefreshPoolsUseCase) Handler {
	return func(ctx context.Context, j *job.Job) (string, error) {
		ownerKey := j.Argument("owner_key")
		if ownerKey == "" {
			ownerKey = j.OwnerKey()
		}
		if ownerKey == "" {
			return "", errors.NewValidationError("refresh job carries no owner key")
		}

		result, err := refresh.Execute(ctx, poolsDTO.RefreshPoolsRequest{OwnerKey: ownerKey})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Pools refreshed for owner %s: %d created, %d updated, %d deleted",
			ownerKey, result.Created, result.Updated, result.Deleted), nil
	}
}

// NewHypervisorCheckInHandler returns the handler for asynchronous virt-who
// check-in batches. The guest reports travel JSON-encoded in the reports
// argument because job arguments are flat strings.
func NewHypervisorCheckInHandler(checkIn *hypervisorUC.CheckInUseCase) Handler {
	return func(ctx context.Context, j *job.Job) (string, error) {
		var reports []hypervisorDTO.GuestReport
		if err := json.Unmarshal([]byte(j.Argument("reports")), &reports); err != nil {
			return "", errors.NewValidationError("malformed hypervisor reports payload: " + err.Error())
		}
		createMissing, _ := strconv.ParseBool(j.Argument("create_missing"))

		result, err := checkIn.Execute(ctx, hypervisorDTO.CheckInRequest{
			OwnerKey:      j.OwnerKey(),
			ReporterID:    j.Argument("reporter_id"),
			Reports:       reports,
			CreateMissing: createMissing,
		})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Hypervisor check-in for owner %s: %d created, %d updated, %d unchanged, %d failed",
			j.OwnerKey(), len(result.Created), len(result.Updated), len(result.Unchanged), len(result.FailedUpdate)), nil
	}
}

// Sweeper processes one maintenance batch and reports how many rows it
// touched. Satisfied by the sweep use cases.
type Sweeper interface {
	Execute(ctx context.Context) (int, error)
}

// NewSweepHandler wraps a maintenance sweep as a job handler so scheduled
// runs land on the coordinator like any other task.
func NewSweepHandler(subject string, sweep Sweeper) Handler {
	return func(ctx context.Context, _ *job.Job) (string, error) {
		count, err := sweep.Execute(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Swept %d %s", count, subject), nil
	}
}
