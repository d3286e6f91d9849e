package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// ProductContent links a content set to a product with a default enabled
// flag. The flag can be overridden per environment at promotion time.
type ProductContent struct {
	ContentID string
	Enabled   bool
}

// Product is an immutable, content-addressed catalog entry. Identical
// (id, name, attributes, content links, provided products, dependent
// products) tuples converge to the same version regardless of owner; any
// change forks a new version and relinks only the owners that asked for it.
type Product struct {
	id                  string
	name                string
	attributes          Attributes
	content             []ProductContent
	providedProductIDs  []string
	dependentProductIDs []string
	multiplier          int
	versionHash         string
}

// NewProduct builds a product version, validating the attribute bag against
// the schema and computing the version hash.
func NewProduct(
	id, name string,
	attributes Attributes,
	content []ProductContent,
	providedProductIDs []string,
	dependentProductIDs []string,
	multiplier int,
) (*Product, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("product ID is required")
	}
	if name == "" {
		name = id
	}
	if err := ValidateAttributes(attributes); err != nil {
		return nil, fmt.Errorf("product %s: %w", id, err)
	}
	if multiplier <= 0 {
		multiplier = 1
	}

	p := &Product{
		id:                  id,
		name:                name,
		attributes:          attributes.Copy(),
		content:             append([]ProductContent(nil), content...),
		providedProductIDs:  normalizeIDs(providedProductIDs),
		dependentProductIDs: normalizeIDs(dependentProductIDs),
		multiplier:          multiplier,
	}
	p.versionHash = p.computeVersionHash()
	return p, nil
}

func (p *Product) ID() string             { return p.id }
func (p *Product) Name() string           { return p.name }
func (p *Product) Multiplier() int        { return p.multiplier }
func (p *Product) VersionHash() string    { return p.versionHash }
func (p *Product) Attributes() Attributes { return p.attributes.Copy() }

func (p *Product) Content() []ProductContent {
	return append([]ProductContent(nil), p.content...)
}

func (p *Product) ProvidedProductIDs() []string {
	return append([]string(nil), p.providedProductIDs...)
}

func (p *Product) DependentProductIDs() []string {
	return append([]string(nil), p.dependentProductIDs...)
}

// Attribute returns the raw value of a product attribute.
func (p *Product) Attribute(name string) string {
	return p.attributes.Get(name)
}

// HasAttribute reports whether the product carries a non-empty attribute.
func (p *Product) HasAttribute(name string) bool {
	return p.attributes.Has(name)
}

// StackingID returns the stacking_id attribute, empty when not stackable.
func (p *Product) StackingID() string {
	return p.attributes.Get(AttrStackingID)
}

// WithAttributes forks a new product version with the given attribute bag.
// The receiver is left untouched; copy-on-write is how shared versions are
// mutated per owner.
func (p *Product) WithAttributes(attributes Attributes) (*Product, error) {
	return NewProduct(p.id, p.name, attributes, p.content,
		p.providedProductIDs, p.dependentProductIDs, p.multiplier)
}

// WithContent forks a new product version with the given content links.
func (p *Product) WithContent(content []ProductContent) (*Product, error) {
	return NewProduct(p.id, p.name, p.attributes, content,
		p.providedProductIDs, p.dependentProductIDs, p.multiplier)
}

// WithDependentProducts forks a new version with the given relies-on edges.
func (p *Product) WithDependentProducts(ids []string) (*Product, error) {
	return NewProduct(p.id, p.name, p.attributes, p.content,
		p.providedProductIDs, ids, p.multiplier)
}

// computeVersionHash produces the content address of the product version:
// a SHA-256 over a canonical rendering of every identity-bearing field.
// Map and slice ordering is normalized so logically equal products always
// hash identically.
func (p *Product) computeVersionHash() string {
	h := sha256.New()
	write := func(parts ...string) {
		for _, s := range parts {
			h.Write([]byte(s))
			h.Write([]byte{0})
		}
	}

	write("product", p.id, p.name, fmt.Sprintf("%d", p.multiplier))

	keys := make([]string, 0, len(p.attributes))
	for k := range p.attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		write("attr", k, p.attributes[k])
	}

	content := append([]ProductContent(nil), p.content...)
	sort.Slice(content, func(i, j int) bool { return content[i].ContentID < content[j].ContentID })
	for _, pc := range content {
		write("content", pc.ContentID, fmt.Sprintf("%t", pc.Enabled))
	}

	for _, id := range p.providedProductIDs {
		write("provided", id)
	}
	for _, id := range p.dependentProductIDs {
		write("dependent", id)
	}

	return hex.EncodeToString(h.Sum(nil))
}

func normalizeIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
