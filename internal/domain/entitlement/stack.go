package entitlement

import (
	"sort"
	"strconv"
	"time"

	"github.com/entgrid-io/entgrid/internal/domain/catalog"
)

// AdditiveAttributes are the quantitative product attributes that accumulate
// across a stack, weighted by entitlement quantity. Everything else is a
// snapshot of whichever member currently provides it.
var AdditiveAttributes = []string{
	catalog.AttrSockets,
	catalog.AttrCores,
	catalog.AttrRAM,
	catalog.AttrVCPU,
}

// Stack is a computed grouping of one consumer's active entitlements sharing
// a stacking_id. It is never persisted; it is rebuilt from the entitlement
// set whenever needed.
type Stack struct {
	stackID      string
	consumerUUID string
	// members sorted newest-added first. Members must have pools attached.
	members []*Entitlement
}

// BuildStacks partitions a consumer's entitlements active on the given date
// into stacks keyed by stacking_id. Entitlements without a stacking_id or
// without an attached pool are skipped.
func BuildStacks(consumerUUID string, ents []*Entitlement, onDate time.Time) map[string]*Stack {
	stacks := make(map[string]*Stack)
	for _, e := range ents {
		if e.ConsumerUUID() != consumerUUID || !e.ActiveOn(onDate) {
			continue
		}
		stackID := e.StackingID()
		if stackID == "" {
			continue
		}
		s, ok := stacks[stackID]
		if !ok {
			s = &Stack{stackID: stackID, consumerUUID: consumerUUID}
			stacks[stackID] = s
		}
		s.members = append(s.members, e)
	}
	for _, s := range stacks {
		s.sortMembers()
	}
	return stacks
}

// NewStack builds a single stack from the given members. Used when the
// caller already partitioned by stacking_id.
func NewStack(stackID, consumerUUID string, members []*Entitlement) *Stack {
	s := &Stack{stackID: stackID, consumerUUID: consumerUUID, members: append([]*Entitlement(nil), members...)}
	s.sortMembers()
	return s
}

func (s *Stack) sortMembers() {
	sort.Slice(s.members, func(i, j int) bool {
		a, b := s.members[i], s.members[j]
		if !a.AddedAt().Equal(b.AddedAt()) {
			return a.AddedAt().After(b.AddedAt())
		}
		// Members added in the same instant order by entitlement ID so the
		// representative choice is stable across evaluations.
		return a.ID() > b.ID()
	})
}

func (s *Stack) StackID() string      { return s.stackID }
func (s *Stack) ConsumerUUID() string { return s.consumerUUID }
func (s *Stack) Size() int            { return len(s.members) }
func (s *Stack) IsEmpty() bool        { return len(s.members) == 0 }

// Members returns the stack members, newest-added first.
func (s *Stack) Members() []*Entitlement {
	return append([]*Entitlement(nil), s.members...)
}

// Representative returns the most-recently-added member still present. Its
// product supplies the stack's identity and non-additive attributes; when
// it is unbound the identity reverts to whatever remains.
func (s *Stack) Representative() *Entitlement {
	if len(s.members) == 0 {
		return nil
	}
	return s.members[0]
}

// ProductID returns the representative product's ID.
func (s *Stack) ProductID() string {
	rep := s.Representative()
	if rep == nil || rep.Pool() == nil {
		return ""
	}
	return rep.Pool().ProductID()
}

// ProductName returns the representative product's name.
func (s *Stack) ProductName() string {
	rep := s.Representative()
	if rep == nil || rep.Pool() == nil {
		return ""
	}
	return rep.Pool().ProductName()
}

// ProvidedProductIDs returns the union of provided products across members.
func (s *Stack) ProvidedProductIDs() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, e := range s.members {
		for _, pid := range e.Pool().ProvidedProductIDs() {
			if _, dup := seen[pid]; dup {
				continue
			}
			seen[pid] = struct{}{}
			out = append(out, pid)
		}
	}
	sort.Strings(out)
	return out
}

// Covers reports whether any member's pool references the product ID.
func (s *Stack) Covers(productID string) bool {
	for _, e := range s.members {
		if e.Pool().Covers(productID) {
			return true
		}
	}
	return false
}

// MergedAttributes computes the stack's effective attribute bag:
//   - the representative product's attributes are the base, so attributes it
//     does not carry stay absent rather than defaulting to zero
//   - additive attributes are replaced by the quantity-weighted sum over
//     every member carrying them
//   - virt_limit snapshots the newest member that provides it; when no
//     remaining member does, the attribute is dropped entirely
func (s *Stack) MergedAttributes() catalog.Attributes {
	rep := s.Representative()
	if rep == nil || rep.Pool() == nil {
		return catalog.Attributes{}
	}
	merged := rep.Pool().ProductAttributes()

	for _, attr := range AdditiveAttributes {
		total, present := s.sumAttribute(attr)
		if present {
			merged[attr] = strconv.FormatInt(total, 10)
		} else {
			delete(merged, attr)
		}
	}

	if provider := s.virtLimitProvider(); provider != nil {
		merged[catalog.AttrVirtLimit] = provider.Pool().ProductAttribute(catalog.AttrVirtLimit)
	} else {
		delete(merged, catalog.AttrVirtLimit)
	}

	return merged
}

// VirtLimit returns the stack's current virt_limit value and whether any
// member still provides one.
func (s *Stack) VirtLimit() (string, bool) {
	provider := s.virtLimitProvider()
	if provider == nil {
		return "", false
	}
	return provider.Pool().ProductAttribute(catalog.AttrVirtLimit), true
}

// DateRange returns min(start)..max(end) across members.
func (s *Stack) DateRange() (time.Time, time.Time) {
	var start, end time.Time
	for _, e := range s.members {
		p := e.Pool()
		if start.IsZero() || p.StartDate().Before(start) {
			start = p.StartDate()
		}
		if end.IsZero() || p.EndDate().After(end) {
			end = p.EndDate()
		}
	}
	return start, end
}

// sumAttribute returns the quantity-weighted sum of a numeric attribute over
// members providing it, and whether any member provides it at all.
func (s *Stack) sumAttribute(attr string) (int64, bool) {
	var total int64
	present := false
	for _, e := range s.members {
		p := e.Pool()
		if !p.HasProductAttribute(attr) {
			continue
		}
		v, err := strconv.ParseInt(p.ProductAttribute(attr), 10, 64)
		if err != nil {
			continue
		}
		present = true
		total += v * e.Quantity()
	}
	return total, present
}

func (s *Stack) virtLimitProvider() *Entitlement {
	for _, e := range s.members {
		if e.Pool() != nil && e.Pool().HasProductAttribute(catalog.AttrVirtLimit) {
			return e
		}
	}
	return nil
}
