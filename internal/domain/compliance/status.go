// Package compliance computes point-in-time coverage judgements for a
// consumer's installed products. Nothing in this package is persisted; a
// status is recomputed from the entitlement set on every evaluation.
package compliance

import (
	"sort"
	"time"
)

// StatusValue is the overall coverage judgement.
type StatusValue string

const (
	// StatusValid means every installed product is fully covered.
	StatusValid StatusValue = "valid"
	// StatusPartial means everything is referenced by some entitlement but
	// at least one quantitative attribute is under-covered.
	StatusPartial StatusValue = "partial"
	// StatusInvalid means at least one installed product has no
	// entitlement referencing it at all.
	StatusInvalid StatusValue = "invalid"
	// StatusDisabled is reported for owners in simple content access mode,
	// where per-consumer compliance does not apply.
	StatusDisabled StatusValue = "disabled"
)

// Reason keys, one per unmet coverage dimension.
const (
	ReasonNotCovered    = "NOTCOVERED"
	ReasonRAM           = "RAM"
	ReasonSockets       = "SOCKETS"
	ReasonCores         = "CORES"
	ReasonVCPU          = "VCPU"
	ReasonArch          = "ARCH"
	ReasonUnmappedGuest = "UNMAPPEDGUEST"
)

// Reason describes one unmet coverage dimension of one product or stack.
type Reason struct {
	Key        string            `json:"key"`
	Message    string            `json:"message"`
	Attributes map[string]string `json:"attributes"`
}

// Status is the computed judgement for one consumer at one instant.
type Status struct {
	Status  StatusValue `json:"status"`
	Date    time.Time   `json:"date"`
	Reasons []Reason    `json:"reasons"`

	// CompliantProducts maps fully covered installed product IDs to the
	// entitlement IDs covering them.
	CompliantProducts map[string][]string `json:"compliantProducts"`
	// PartiallyCompliantProducts maps under-covered installed product IDs
	// to the entitlement IDs referencing them.
	PartiallyCompliantProducts map[string][]string `json:"partiallyCompliantProducts"`
	// NonCompliantProducts lists installed product IDs no entitlement
	// references.
	NonCompliantProducts []string `json:"nonCompliantProducts"`
}

// IsCompliant reports whether the status is fully valid.
func (s *Status) IsCompliant() bool {
	return s.Status == StatusValid
}

// sortReasons gives deterministic reason ordering: by key, then by the
// subject identifier.
func sortReasons(reasons []Reason) {
	sort.Slice(reasons, func(i, j int) bool {
		if reasons[i].Key != reasons[j].Key {
			return reasons[i].Key < reasons[j].Key
		}
		return subjectOf(reasons[i]) < subjectOf(reasons[j])
	})
}

func subjectOf(r Reason) string {
	if v, ok := r.Attributes["product_id"]; ok {
		return v
	}
	if v, ok := r.Attributes["stack_id"]; ok {
		return v
	}
	return r.Attributes["entitlement_id"]
}
