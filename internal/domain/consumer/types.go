package consumer

// Type classifies a consumer.
type Type string

const (
	TypeSystem     Type = "system"
	TypePerson     Type = "person"
	TypeHypervisor Type = "hypervisor"
	// TypeCandlepin marks downstream distributors that re-export manifests.
	TypeCandlepin Type = "candlepin"
)

func (t Type) IsValid() bool {
	switch t {
	case TypeSystem, TypePerson, TypeHypervisor, TypeCandlepin:
		return true
	}
	return false
}

// IsDistributor reports whether the consumer is a downstream distributor
// subject to capability checks.
func (t Type) IsDistributor() bool {
	return t == TypeCandlepin
}

// Capabilities distributors may advertise. Pools whose product data needs a
// capability the distributor lacks are withheld or rejected.
const (
	CapabilityCertV3          = "cert_v3"
	CapabilityRAM             = "ram"
	CapabilityCores           = "cores"
	CapabilityInstanceMult    = "instance_multiplier"
	CapabilityDerivedProducts = "derived_product"
)

// distributorCapabilities maps known distributor_version fact values to the
// capabilities that build ships with. Explicit capability lists on the
// consumer override this table.
var distributorCapabilities = map[string][]string{
	"sam-1.3": {CapabilityCertV3},
	"sam-1.4": {CapabilityCertV3, CapabilityRAM, CapabilityCores},
	"sat-6.0": {CapabilityCertV3, CapabilityRAM, CapabilityCores,
		CapabilityInstanceMult, CapabilityDerivedProducts},
}

// CapabilitiesForDistributorVersion resolves the capability set for a
// distributor_version fact value. Unknown versions resolve to none.
func CapabilitiesForDistributorVersion(version string) []string {
	caps, ok := distributorCapabilities[version]
	if !ok {
		return nil
	}
	return append([]string(nil), caps...)
}
