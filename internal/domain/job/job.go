// Package job models asynchronous engine work: pool refreshes, bulk
// hypervisor check-ins, autoheal runs.
package job

import (
	"fmt"
	"time"

	"github.com/entgrid-io/entgrid/internal/shared/id"
)

// State is the lifecycle state of an async job.
type State string

const (
	StateCreated  State = "CREATED"
	StateRunning  State = "RUNNING"
	StateFinished State = "FINISHED"
	StateCanceled State = "CANCELED"
	StateFailed   State = "FAILED"
)

func (s State) IsValid() bool {
	switch s {
	case StateCreated, StateRunning, StateFinished, StateCanceled, StateFailed:
		return true
	}
	return false
}

// IsTerminal reports whether the state admits no further transitions.
func (s State) IsTerminal() bool {
	switch s {
	case StateFinished, StateCanceled, StateFailed:
		return true
	}
	return false
}

// Job is one queued unit of asynchronous work.
type Job struct {
	jobID     string
	taskKey   string
	ownerKey  string
	principal string
	state     State
	resultMsg string
	arguments map[string]string
	startTime *time.Time
	endTime   *time.Time
	createdAt time.Time
	updatedAt time.Time
}

// NewJob queues a job in CREATED state, owned by the given owner/principal.
func NewJob(taskKey, ownerKey, principal string, arguments map[string]string) (*Job, error) {
	if taskKey == "" {
		return nil, fmt.Errorf("job task key is required")
	}
	if arguments == nil {
		arguments = map[string]string{}
	}
	now := time.Now().UTC()
	return &Job{
		jobID:     id.MustGenerateWithPrefix(id.PrefixJob, id.DefaultLength),
		taskKey:   taskKey,
		ownerKey:  ownerKey,
		principal: principal,
		state:     StateCreated,
		arguments: arguments,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// ReconstructJob rebuilds a job from persistence.
func ReconstructJob(
	jobID, taskKey, ownerKey, principal string,
	state State,
	resultMsg string,
	arguments map[string]string,
	startTime, endTime *time.Time,
	createdAt, updatedAt time.Time,
) (*Job, error) {
	if jobID == "" {
		return nil, fmt.Errorf("job ID is required")
	}
	if !state.IsValid() {
		return nil, fmt.Errorf("invalid job state: %s", state)
	}
	if arguments == nil {
		arguments = map[string]string{}
	}
	return &Job{
		jobID:     jobID,
		taskKey:   taskKey,
		ownerKey:  ownerKey,
		principal: principal,
		state:     state,
		resultMsg: resultMsg,
		arguments: arguments,
		startTime: startTime,
		endTime:   endTime,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}, nil
}

func (j *Job) ID() string            { return j.jobID }
func (j *Job) TaskKey() string       { return j.taskKey }
func (j *Job) OwnerKey() string      { return j.ownerKey }
func (j *Job) Principal() string     { return j.principal }
func (j *Job) State() State          { return j.state }
func (j *Job) ResultMessage() string { return j.resultMsg }
func (j *Job) StartTime() *time.Time { return j.startTime }
func (j *Job) EndTime() *time.Time   { return j.endTime }
func (j *Job) CreatedAt() time.Time  { return j.createdAt }
func (j *Job) UpdatedAt() time.Time  { return j.updatedAt }

// Arguments returns a copy of the job arguments.
func (j *Job) Arguments() map[string]string {
	out := make(map[string]string, len(j.arguments))
	for k, v := range j.arguments {
		out[k] = v
	}
	return out
}

// Argument returns one job argument.
func (j *Job) Argument(key string) string {
	return j.arguments[key]
}

// Start transitions CREATED -> RUNNING.
func (j *Job) Start() error {
	if j.state != StateCreated {
		return fmt.Errorf("job %s cannot start from state %s", j.jobID, j.state)
	}
	now := time.Now().UTC()
	j.state = StateRunning
	j.startTime = &now
	j.updatedAt = now
	return nil
}

// Finish transitions RUNNING -> FINISHED with a result message.
func (j *Job) Finish(resultMsg string) error {
	if j.state != StateRunning {
		return fmt.Errorf("job %s cannot finish from state %s", j.jobID, j.state)
	}
	now := time.Now().UTC()
	j.state = StateFinished
	j.resultMsg = resultMsg
	j.endTime = &now
	j.updatedAt = now
	return nil
}

// Fail records a terminal failure. Failed jobs are not retried by the
// engine; retry is a caller decision.
func (j *Job) Fail(message string) error {
	if j.state.IsTerminal() {
		return fmt.Errorf("job %s cannot fail from state %s", j.jobID, j.state)
	}
	now := time.Now().UTC()
	j.state = StateFailed
	j.resultMsg = message
	j.endTime = &now
	j.updatedAt = now
	return nil
}

// Cancel transitions a non-terminal job to CANCELED. Canceling a terminal
// job is a caller error, not a no-op.
func (j *Job) Cancel() error {
	if j.state.IsTerminal() {
		return fmt.Errorf("job %s is already in terminal state %s", j.jobID, j.state)
	}
	now := time.Now().UTC()
	j.state = StateCanceled
	j.endTime = &now
	j.updatedAt = now
	return nil
}

// AccessibleBy reports whether a principal may view or cancel this job.
// Super admins see everything; otherwise both the owner scope and the
// requesting principal must match.
func (j *Job) AccessibleBy(principal, ownerKey string, superAdmin bool) bool {
	if superAdmin {
		return true
	}
	return j.principal == principal && j.ownerKey == ownerKey
}
