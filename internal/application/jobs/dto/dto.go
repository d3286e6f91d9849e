// Package dto defines the request and response shapes of the async job
// operations.
package dto

import "time"

// Principal identifies who is asking, for job visibility scoping.
type Principal struct {
	Name       string `json:"name" validate:"required"`
	OwnerKey   string `json:"owner_key"`
	SuperAdmin bool   `json:"super_admin"`
}

// JobResponse is the caller-visible view of an async job.
type JobResponse struct {
	ID            string            `json:"id"`
	TaskKey       string            `json:"task_key"`
	OwnerKey      string            `json:"owner_key"`
	Principal     string            `json:"principal"`
	State         string            `json:"state"`
	ResultMessage string            `json:"result_message,omitempty"`
	Arguments     map[string]string `json:"arguments,omitempty"`
	StartTime     *time.Time        `json:"start_time,omitempty"`
	EndTime       *time.Time        `json:"end_time,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}
