package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Content is an immutable, content-addressed content set definition. The
// same versioning and copy-on-write rules as Product apply.
type Content struct {
	id                 string
	label              string
	name               string
	contentType        string
	vendor             string
	contentURL         string
	gpgURL             string
	arches             string
	modifiedProductIDs []string
	requiredTags       string
	metadataExpire     int64
	versionHash        string
}

// ContentParams carries the fields of a content definition.
type ContentParams struct {
	ID                 string
	Label              string
	Name               string
	Type               string
	Vendor             string
	ContentURL         string
	GpgURL             string
	Arches             string
	ModifiedProductIDs []string
	RequiredTags       string
	MetadataExpire     int64
}

// NewContent builds a content version and computes its version hash.
func NewContent(params ContentParams) (*Content, error) {
	if strings.TrimSpace(params.ID) == "" {
		return nil, fmt.Errorf("content ID is required")
	}
	if params.Label == "" {
		return nil, fmt.Errorf("content label is required")
	}
	if params.Name == "" {
		params.Name = params.Label
	}
	if params.Type == "" {
		params.Type = "yum"
	}

	c := &Content{
		id:                 params.ID,
		label:              params.Label,
		name:               params.Name,
		contentType:        params.Type,
		vendor:             params.Vendor,
		contentURL:         params.ContentURL,
		gpgURL:             params.GpgURL,
		arches:             params.Arches,
		modifiedProductIDs: normalizeIDs(params.ModifiedProductIDs),
		requiredTags:       params.RequiredTags,
		metadataExpire:     params.MetadataExpire,
	}
	c.versionHash = c.computeVersionHash()
	return c, nil
}

func (c *Content) ID() string            { return c.id }
func (c *Content) Label() string         { return c.label }
func (c *Content) Name() string          { return c.name }
func (c *Content) Type() string          { return c.contentType }
func (c *Content) Vendor() string        { return c.vendor }
func (c *Content) ContentURL() string    { return c.contentURL }
func (c *Content) GpgURL() string        { return c.gpgURL }
func (c *Content) Arches() string        { return c.arches }
func (c *Content) RequiredTags() string  { return c.requiredTags }
func (c *Content) MetadataExpire() int64 { return c.metadataExpire }
func (c *Content) VersionHash() string   { return c.versionHash }

// ModifiedProductIDs returns the product IDs whose presence gates this
// content. Empty for unconditional content.
func (c *Content) ModifiedProductIDs() []string {
	return append([]string(nil), c.modifiedProductIDs...)
}

// IsConditional reports whether this is modifier content that only appears
// when the consumer is entitled to one of the modified products.
func (c *Content) IsConditional() bool {
	return len(c.modifiedProductIDs) > 0
}

// MatchesArch reports whether the content's own arch list covers the given
// consumer arch. Contents without an arch list are architecture-agnostic.
func (c *Content) MatchesArch(consumerArch string) bool {
	return ArchMatches(c.arches, consumerArch)
}

// Params returns the content's fields for forking a modified version.
func (c *Content) Params() ContentParams {
	return ContentParams{
		ID:                 c.id,
		Label:              c.label,
		Name:               c.name,
		Type:               c.contentType,
		Vendor:             c.vendor,
		ContentURL:         c.contentURL,
		GpgURL:             c.gpgURL,
		Arches:             c.arches,
		ModifiedProductIDs: c.ModifiedProductIDs(),
		RequiredTags:       c.requiredTags,
		MetadataExpire:     c.metadataExpire,
	}
}

func (c *Content) computeVersionHash() string {
	h := sha256.New()
	write := func(parts ...string) {
		for _, s := range parts {
			h.Write([]byte(s))
			h.Write([]byte{0})
		}
	}

	write("content", c.id, c.label, c.name, c.contentType, c.vendor,
		c.contentURL, c.gpgURL, c.arches, c.requiredTags,
		fmt.Sprintf("%d", c.metadataExpire))
	for _, id := range c.modifiedProductIDs {
		write("modifies", id)
	}

	return hex.EncodeToString(h.Sum(nil))
}
