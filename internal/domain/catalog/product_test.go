package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProduct_VersionHashConvergence(t *testing.T) {
	attrs := Attributes{AttrSockets: "2", AttrStackingID: "stack1"}

	t.Run("identical tuples hash identically", func(t *testing.T) {
		a, err := NewProduct("prod1", "Product One", attrs, nil, []string{"eng1", "eng2"}, nil, 1)
		require.NoError(t, err)
		b, err := NewProduct("prod1", "Product One", attrs.Copy(), nil, []string{"eng2", "eng1"}, nil, 1)
		require.NoError(t, err)

		assert.Equal(t, a.VersionHash(), b.VersionHash())
	})

	t.Run("attribute change forks the version", func(t *testing.T) {
		a, err := NewProduct("prod1", "Product One", attrs, nil, nil, nil, 1)
		require.NoError(t, err)

		forked, err := a.WithAttributes(Attributes{AttrSockets: "4"})
		require.NoError(t, err)

		assert.NotEqual(t, a.VersionHash(), forked.VersionHash())
		// the receiver stays untouched
		assert.Equal(t, "2", a.Attribute(AttrSockets))
	})

	t.Run("content link change forks the version", func(t *testing.T) {
		a, err := NewProduct("prod1", "Product One", nil, nil, nil, nil, 1)
		require.NoError(t, err)
		b, err := a.WithContent([]ProductContent{{ContentID: "content1", Enabled: true}})
		require.NoError(t, err)

		assert.NotEqual(t, a.VersionHash(), b.VersionHash())
	})

	t.Run("content link order does not matter", func(t *testing.T) {
		links := []ProductContent{{ContentID: "c1", Enabled: true}, {ContentID: "c2", Enabled: false}}
		reversed := []ProductContent{links[1], links[0]}

		a, err := NewProduct("prod1", "Product One", nil, links, nil, nil, 1)
		require.NoError(t, err)
		b, err := NewProduct("prod1", "Product One", nil, reversed, nil, nil, 1)
		require.NoError(t, err)

		assert.Equal(t, a.VersionHash(), b.VersionHash())
	})
}

func TestNewProduct_Validation(t *testing.T) {
	t.Run("rejects empty ID", func(t *testing.T) {
		_, err := NewProduct("", "name", nil, nil, nil, nil, 1)
		assert.Error(t, err)
	})

	t.Run("rejects malformed typed attribute", func(t *testing.T) {
		_, err := NewProduct("prod1", "name", Attributes{AttrSockets: "two"}, nil, nil, nil, 1)
		assert.Error(t, err)
	})

	t.Run("name defaults to ID", func(t *testing.T) {
		p, err := NewProduct("prod1", "", nil, nil, nil, nil, 1)
		require.NoError(t, err)
		assert.Equal(t, "prod1", p.Name())
	})

	t.Run("non-positive multiplier normalizes to 1", func(t *testing.T) {
		p, err := NewProduct("prod1", "name", nil, nil, nil, nil, 0)
		require.NoError(t, err)
		assert.Equal(t, 1, p.Multiplier())
	})
}

func TestValidateAttributes(t *testing.T) {
	tests := []struct {
		name    string
		attrs   Attributes
		wantErr bool
	}{
		{"numeric sockets", Attributes{AttrSockets: "4"}, false},
		{"non-numeric ram", Attributes{AttrRAM: "lots"}, true},
		{"virt_limit numeric", Attributes{AttrVirtLimit: "4"}, false},
		{"virt_limit unlimited", Attributes{AttrVirtLimit: "unlimited"}, false},
		{"virt_limit garbage", Attributes{AttrVirtLimit: "infinite"}, true},
		{"boolean host_limited", Attributes{AttrHostLimited: "true"}, false},
		{"bad boolean", Attributes{AttrMultiEntitlement: "yes-please"}, true},
		{"blank arch list", Attributes{AttrArch: "  "}, true},
		{"unknown attributes pass through", Attributes{"custom_flag": "whatever"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAttributes(tt.attrs)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestArchMatches(t *testing.T) {
	assert.True(t, ArchMatches("", "ppc64"), "empty list matches everything")
	assert.True(t, ArchMatches("x86_64,ppc64", "ppc64"))
	assert.False(t, ArchMatches("x86_64", "ppc64"))
	assert.True(t, ArchMatches("ALL", "s390x"))
	assert.True(t, ArchMatches("x86", "i686"), "x86 covers the i?86 family")
	assert.False(t, ArchMatches("x86", "x86_64"))
	assert.False(t, ArchMatches("x86_64", ""), "no consumer arch never matches a restricted list")
}

func TestCheckNoCycle(t *testing.T) {
	edges := map[string][]string{
		"a": {"b"},
		"b": {"c"},
	}
	lookup := func(id string) []string { return edges[id] }

	t.Run("acyclic insert passes", func(t *testing.T) {
		assert.NoError(t, CheckNoCycle("d", []string{"a"}, lookup))
	})

	t.Run("self edge rejected", func(t *testing.T) {
		assert.Error(t, CheckNoCycle("a", []string{"a"}, lookup))
	})

	t.Run("closing a cycle rejected", func(t *testing.T) {
		// c -> a would close a -> b -> c -> a
		assert.Error(t, CheckNoCycle("c", []string{"a"}, lookup))
	})
}
