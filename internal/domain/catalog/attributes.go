package catalog

import (
	"fmt"
	"strconv"
	"strings"
)

// Well-known product attribute names. Attributes not listed here are stored
// verbatim without type validation.
const (
	AttrSockets            = "sockets"
	AttrCores              = "cores"
	AttrRAM                = "ram"
	AttrVCPU               = "vcpu"
	AttrArch               = "arch"
	AttrVirtLimit          = "virt_limit"
	AttrVirtOnly           = "virt_only"
	AttrStackingID         = "stacking_id"
	AttrMultiEntitlement   = "multi-entitlement"
	AttrInstanceMultiplier = "instance_multiplier"
	AttrHostLimited        = "host_limited"
	AttrSupportLevel       = "support_level"
	AttrSupportType        = "support_type"
	AttrGuestLimit         = "guest_limit"
	AttrWarningPeriod      = "warning_period"

	// Pool restriction attributes stamped onto derived pools.
	AttrRequiresHost         = "requires_host"
	AttrRequiresConsumerType = "requires_consumer_type"
	AttrPoolDerived          = "pool_derived"
	AttrSourceStackID        = "source_stack_id"
	AttrUnmappedGuestsOnly   = "unmapped_guests_only"
)

// VirtLimitUnlimited is the sentinel value of virt_limit meaning the derived
// pool carries unbounded quantity.
const VirtLimitUnlimited = "unlimited"

// Attributes is a validated string attribute bag attached to products,
// contents, and pools.
type Attributes map[string]string

type attrKind int

const (
	attrKindString attrKind = iota
	attrKindInt
	attrKindBool
	attrKindVirtLimit
	attrKindArchList
)

// attrSchema maps known attribute names to their expected value shape.
// Writes are validated against this schema instead of relying on ad hoc
// parsing at read time.
var attrSchema = map[string]attrKind{
	AttrSockets:            attrKindInt,
	AttrCores:              attrKindInt,
	AttrRAM:                attrKindInt,
	AttrVCPU:               attrKindInt,
	AttrGuestLimit:         attrKindInt,
	AttrInstanceMultiplier: attrKindInt,
	AttrWarningPeriod:      attrKindInt,
	AttrVirtLimit:          attrKindVirtLimit,
	AttrVirtOnly:           attrKindBool,
	AttrMultiEntitlement:   attrKindBool,
	AttrHostLimited:        attrKindBool,
	AttrPoolDerived:        attrKindBool,
	AttrUnmappedGuestsOnly: attrKindBool,
	AttrArch:               attrKindArchList,
}

// ValidateAttributes checks every entry of the bag against the schema.
// Unknown attributes pass through untouched.
func ValidateAttributes(attrs Attributes) error {
	for name, value := range attrs {
		kind, known := attrSchema[name]
		if !known {
			continue
		}
		switch kind {
		case attrKindInt:
			if _, err := strconv.Atoi(value); err != nil {
				return fmt.Errorf("attribute %q expects an integer, got %q", name, value)
			}
		case attrKindBool:
			if _, err := strconv.ParseBool(value); err != nil {
				return fmt.Errorf("attribute %q expects a boolean, got %q", name, value)
			}
		case attrKindVirtLimit:
			if value == VirtLimitUnlimited {
				continue
			}
			if _, err := strconv.Atoi(value); err != nil {
				return fmt.Errorf("attribute %q expects an integer or %q, got %q",
					name, VirtLimitUnlimited, value)
			}
		case attrKindArchList:
			if strings.TrimSpace(value) == "" {
				return fmt.Errorf("attribute %q expects a comma separated arch list", name)
			}
		}
	}
	return nil
}

// Has reports whether the attribute is present with a non-empty value.
func (a Attributes) Has(name string) bool {
	v, ok := a[name]
	return ok && v != ""
}

// Get returns the raw attribute value.
func (a Attributes) Get(name string) string {
	return a[name]
}

// GetInt returns the attribute parsed as int, or def when absent or malformed.
func (a Attributes) GetInt(name string, def int) int {
	v, ok := a[name]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// GetBool returns the attribute parsed as bool, or false when absent or
// malformed.
func (a Attributes) GetBool(name string) bool {
	v, ok := a[name]
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false
	}
	return b
}

// Copy returns an independent copy of the bag.
func (a Attributes) Copy() Attributes {
	if a == nil {
		return nil
	}
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Merge returns a new bag with entries from other overriding entries from a.
func (a Attributes) Merge(other Attributes) Attributes {
	out := a.Copy()
	if out == nil {
		out = make(Attributes, len(other))
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// ParseArches splits a CSV arch list into trimmed entries.
func ParseArches(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ArchMatches reports whether a consumer arch is covered by the given CSV
// arch list. An empty list matches everything; the literal "ALL" entry
// matches everything; "x86" covers the i386/i486/i586/i686 family.
func ArchMatches(csv, consumerArch string) bool {
	arches := ParseArches(csv)
	if len(arches) == 0 {
		return true
	}
	if consumerArch == "" {
		return false
	}
	for _, arch := range arches {
		if arch == "ALL" || strings.EqualFold(arch, consumerArch) {
			return true
		}
		if arch == "x86" {
			switch consumerArch {
			case "i386", "i486", "i586", "i686":
				return true
			}
		}
	}
	return false
}
