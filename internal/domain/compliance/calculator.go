package compliance

import (
	"fmt"
	"strconv"
	"time"

	"github.com/entgrid-io/entgrid/internal/domain/catalog"
	"github.com/entgrid-io/entgrid/internal/domain/consumer"
	"github.com/entgrid-io/entgrid/internal/domain/entitlement"
	"github.com/entgrid-io/entgrid/internal/domain/pool"
)

// Calculator evaluates installed products against a consumer's active
// entitlements and stacks.
type Calculator struct{}

func NewCalculator() *Calculator {
	return &Calculator{}
}

// coverageUnit is either a stack or a single unstacked entitlement; both
// present an attribute bag and a subject identity for reasons.
type coverageUnit struct {
	attributes catalog.Attributes
	name       string
	// exactly one of stackID / entID is set
	stackID string
	entID   string
	// entitlement IDs contributing to this unit
	entIDs   []string
	unmapped bool
	covers   func(productID string) bool
}

// Evaluate computes the compliance status of a consumer as of the given
// date. Entitlements must have their pools attached. Owners in simple
// content access mode force status disabled regardless of coverage.
func (c *Calculator) Evaluate(
	owner *catalog.Owner,
	cons *consumer.Consumer,
	ents []*entitlement.Entitlement,
	onDate time.Time,
) *Status {
	status := &Status{
		Date:                       onDate,
		CompliantProducts:          make(map[string][]string),
		PartiallyCompliantProducts: make(map[string][]string),
	}

	if owner != nil && owner.UsesSimpleContentAccess() {
		status.Status = StatusDisabled
		return status
	}

	units := c.buildUnits(cons, ents, onDate)

	anyPartial := false
	anyMissing := false

	for _, installed := range cons.InstalledProducts() {
		covering := make([]*coverageUnit, 0, len(units))
		for _, u := range units {
			if u.covers(installed.ProductID) {
				covering = append(covering, u)
			}
		}

		if len(covering) == 0 {
			anyMissing = true
			status.NonCompliantProducts = append(status.NonCompliantProducts, installed.ProductID)
			status.Reasons = append(status.Reasons, notCoveredReason(installed))
			continue
		}

		// The product is green if at least one covering unit has no gaps;
		// otherwise the gaps of every covering unit are reported.
		var productReasons []Reason
		fullyCovered := false
		var coveringEntIDs []string
		for _, u := range covering {
			coveringEntIDs = append(coveringEntIDs, u.entIDs...)
			gaps := c.unitGaps(u, cons, installed.ProductID)
			if len(gaps) == 0 {
				fullyCovered = true
			}
			productReasons = append(productReasons, gaps...)
		}

		if fullyCovered {
			status.CompliantProducts[installed.ProductID] = coveringEntIDs
			continue
		}

		anyPartial = true
		status.PartiallyCompliantProducts[installed.ProductID] = coveringEntIDs
		status.Reasons = append(status.Reasons, dedupeReasons(productReasons)...)
	}

	switch {
	case anyMissing:
		status.Status = StatusInvalid
	case anyPartial:
		status.Status = StatusPartial
	default:
		status.Status = StatusValid
	}

	sortReasons(status.Reasons)
	return status
}

// buildUnits groups active entitlements into stacks plus standalone units.
func (c *Calculator) buildUnits(
	cons *consumer.Consumer,
	ents []*entitlement.Entitlement,
	onDate time.Time,
) []*coverageUnit {
	var units []*coverageUnit

	stacks := entitlement.BuildStacks(cons.UUID(), ents, onDate)
	for _, s := range stacks {
		s := s
		var ids []string
		unmapped := false
		for _, m := range s.Members() {
			ids = append(ids, m.ID())
			if m.Pool().Type() == pool.TypeUnmappedGuest {
				unmapped = true
			}
		}
		units = append(units, &coverageUnit{
			attributes: s.MergedAttributes(),
			name:       s.ProductName(),
			stackID:    s.StackID(),
			entIDs:     ids,
			unmapped:   unmapped,
			covers:     s.Covers,
		})
	}

	for _, e := range ents {
		e := e
		if !e.ActiveOn(onDate) || e.StackingID() != "" || e.Pool() == nil {
			continue
		}
		units = append(units, &coverageUnit{
			attributes: e.Pool().ProductAttributes(),
			name:       e.Pool().ProductName(),
			entID:      e.ID(),
			entIDs:     []string{e.ID()},
			unmapped:   e.Pool().Type() == pool.TypeUnmappedGuest,
			covers:     e.Pool().Covers,
		})
	}

	return units
}

// unitGaps returns one reason per quantitative attribute the unit fails to
// cover for the consumer, judged while evaluating the given product.
func (c *Calculator) unitGaps(u *coverageUnit, cons *consumer.Consumer, productID string) []Reason {
	var gaps []Reason
	facts := cons.Facts()

	if u.unmapped {
		gaps = append(gaps, c.reason(u, productID, ReasonUnmappedGuest,
			"Guest has not been reported on any host and is using a temporary unmapped guest subscription.",
			nil))
	}

	if u.attributes.Has(catalog.AttrArch) {
		archList := u.attributes.Get(catalog.AttrArch)
		if !catalog.ArchMatches(archList, facts.Arch()) {
			gaps = append(gaps, c.reason(u, productID, ReasonArch,
				fmt.Sprintf("Supports architecture %s but the system is %s.", archList, facts.Arch()),
				map[string]string{"has": facts.Arch(), "covered": archList}))
		}
	}

	gaps = c.appendQuantGap(gaps, u, productID, ReasonSockets, catalog.AttrSockets, facts.Sockets(),
		"Only supports %s of %s sockets.")
	gaps = c.appendQuantGap(gaps, u, productID, ReasonCores, catalog.AttrCores, facts.Cores(),
		"Only supports %s of %s cores.")
	gaps = c.appendQuantGap(gaps, u, productID, ReasonRAM, catalog.AttrRAM, facts.RAMGiB(),
		"Only supports %sGB of %sGB of RAM.")

	if facts.IsGuest() {
		gaps = c.appendQuantGap(gaps, u, productID, ReasonVCPU, catalog.AttrVCPU, facts.Cores(),
			"Only supports %s of %s vCPUs.")
	}

	return gaps
}

func (c *Calculator) appendQuantGap(
	gaps []Reason,
	u *coverageUnit,
	productID string,
	key, attr string,
	consumerHas int,
	messageFormat string,
) []Reason {
	if !u.attributes.Has(attr) || consumerHas <= 0 {
		return gaps
	}
	covered, err := strconv.Atoi(u.attributes.Get(attr))
	if err != nil {
		return gaps
	}
	if consumerHas <= covered {
		return gaps
	}
	has := strconv.Itoa(consumerHas)
	coveredStr := strconv.Itoa(covered)
	return append(gaps, c.reason(u, productID, key,
		fmt.Sprintf(messageFormat, coveredStr, has),
		map[string]string{"has": has, "covered": coveredStr}))
}

func (c *Calculator) reason(u *coverageUnit, productID, key, message string, extra map[string]string) Reason {
	attrs := map[string]string{"name": u.name}
	if u.stackID != "" {
		attrs["stack_id"] = u.stackID
	} else {
		attrs["entitlement_id"] = u.entID
		attrs["product_id"] = productID
	}
	for k, v := range extra {
		attrs[k] = v
	}
	return Reason{Key: key, Message: message, Attributes: attrs}
}

func notCoveredReason(installed consumer.InstalledProduct) Reason {
	return Reason{
		Key:     ReasonNotCovered,
		Message: "Not supported by a valid subscription.",
		Attributes: map[string]string{
			"product_id": installed.ProductID,
			"name":       installed.Name,
		},
	}
}

// dedupeReasons collapses identical (key, subject) reasons produced by
// multiple covering units so each unmet dimension is reported once.
func dedupeReasons(reasons []Reason) []Reason {
	seen := make(map[string]struct{}, len(reasons))
	out := make([]Reason, 0, len(reasons))
	for _, r := range reasons {
		k := r.Key + "\x00" + subjectOf(r)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}
