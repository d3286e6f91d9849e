package consumer

import (
	"strconv"
	"strings"
)

// Well-known fact keys.
const (
	FactArch               = "uname.machine"
	FactSockets            = "cpu.cpu_socket(s)"
	FactCoresPerSocket     = "cpu.core(s)_per_socket"
	FactMemTotal           = "memory.memtotal"
	FactIsGuest            = "virt.is_guest"
	FactVirtUUID           = "virt.uuid"
	FactDistributorVersion = "distributor_version"
	FactGuestLimit         = "virt.guest_limit"
	// FactHypervisorID is the stable ID a virt-who reporter uses for a
	// hypervisor, unique within an owner but not across owners.
	FactHypervisorID = "hypervisor.id"
)

// Facts is the consumer's reported key/value fact bag.
type Facts map[string]string

type factKind int

const (
	factKindString factKind = iota
	factKindInt
	factKindBool
)

// typedFacts lists facts with an expected shape. Malformed typed facts are
// dropped at write time rather than failing the whole update; everything
// else passes through as opaque strings.
var typedFacts = map[string]factKind{
	FactSockets:        factKindInt,
	FactCoresPerSocket: factKindInt,
	FactMemTotal:       factKindInt,
	FactGuestLimit:     factKindInt,
	FactIsGuest:        factKindBool,
}

// SanitizeFacts returns the fact bag with malformed typed facts removed,
// along with the keys that were dropped.
func SanitizeFacts(facts Facts) (Facts, []string) {
	if facts == nil {
		return Facts{}, nil
	}
	out := make(Facts, len(facts))
	var dropped []string
	for k, v := range facts {
		kind, typed := typedFacts[k]
		if !typed {
			out[k] = v
			continue
		}
		switch kind {
		case factKindInt:
			if _, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err != nil {
				dropped = append(dropped, k)
				continue
			}
		case factKindBool:
			if _, err := strconv.ParseBool(strings.TrimSpace(v)); err != nil {
				dropped = append(dropped, k)
				continue
			}
		}
		out[k] = v
	}
	return out, dropped
}

// Copy returns an independent copy of the bag.
func (f Facts) Copy() Facts {
	out := make(Facts, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Arch returns the consumer architecture fact.
func (f Facts) Arch() string {
	return f[FactArch]
}

// Sockets returns the socket count fact, 0 when absent.
func (f Facts) Sockets() int {
	return f.intFact(FactSockets)
}

// Cores returns total core count: sockets * cores per socket.
func (f Facts) Cores() int {
	cps := f.intFact(FactCoresPerSocket)
	sockets := f.Sockets()
	if cps == 0 || sockets == 0 {
		return 0
	}
	return sockets * cps
}

// RAMGiB converts the memtotal fact (KiB, as reported by the kernel) to
// whole GiB, rounding up partial units the way certificate coverage does.
func (f Facts) RAMGiB() int {
	kib := int64(f.intFact(FactMemTotal))
	if kib <= 0 {
		return 0
	}
	gib := kib / (1024 * 1024)
	if kib%(1024*1024) != 0 {
		gib++
	}
	return int(gib)
}

// IsGuest reports the virt.is_guest fact.
func (f Facts) IsGuest() bool {
	v, ok := f[FactIsGuest]
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false
	}
	return b
}

func (f Facts) intFact(key string) int {
	v, ok := f[key]
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0
	}
	return n
}
