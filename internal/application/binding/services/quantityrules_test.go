package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/entgrid-io/entgrid/internal/domain/catalog"
	"github.com/entgrid-io/entgrid/internal/domain/consumer"
	"github.com/entgrid-io/entgrid/internal/shared/errors"
)

func TestQuantityRules_SuggestedQuantity(t *testing.T) {
	q := NewQuantityRules()

	tests := []struct {
		name         string
		facts        consumer.Facts
		productAttrs catalog.Attributes
		want         int64
	}{
		{
			name: "default is one",
			want: 1,
		},
		{
			name:         "instance based physical rounds up to whole instances",
			facts:        consumer.Facts{consumer.FactSockets: "3"},
			productAttrs: catalog.Attributes{catalog.AttrInstanceMultiplier: "2"},
			want:         4,
		},
		{
			name:         "instance based physical exact fit",
			facts:        consumer.Facts{consumer.FactSockets: "4"},
			productAttrs: catalog.Attributes{catalog.AttrInstanceMultiplier: "2"},
			want:         4,
		},
		{
			name:         "instance based guest takes one multiplier",
			facts:        consumer.Facts{consumer.FactIsGuest: "true", consumer.FactSockets: "8"},
			productAttrs: catalog.Attributes{catalog.AttrInstanceMultiplier: "2"},
			want:         2,
		},
		{
			name:         "instance based with no socket fact",
			productAttrs: catalog.Attributes{catalog.AttrInstanceMultiplier: "2"},
			want:         2,
		},
		{
			name:  "stackable covers sockets in units",
			facts: consumer.Facts{consumer.FactSockets: "8"},
			productAttrs: catalog.Attributes{
				catalog.AttrStackingID: "stackA",
				catalog.AttrSockets:    "2",
			},
			want: 4,
		},
		{
			name:  "stackable already covered",
			facts: consumer.Facts{consumer.FactSockets: "2"},
			productAttrs: catalog.Attributes{
				catalog.AttrStackingID: "stackA",
				catalog.AttrSockets:    "4",
			},
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cons := validatorConsumer(t, consumer.TypeSystem, tt.facts)
			p := validatorPool(t, poolSpec{productAttrs: tt.productAttrs})
			assert.Equal(t, tt.want, q.SuggestedQuantity(cons, p))
		})
	}
}

func TestQuantityRules_ValidateQuantity(t *testing.T) {
	q := NewQuantityRules()
	instancePool := validatorPool(t, poolSpec{productAttrs: catalog.Attributes{
		catalog.AttrInstanceMultiplier: "2",
		catalog.AttrMultiEntitlement:   "true",
	}})

	t.Run("non positive quantity is a bad request", func(t *testing.T) {
		cons := validatorConsumer(t, consumer.TypeSystem, nil)
		assert.True(t, errors.IsBadRequestError(q.ValidateQuantity(cons, instancePool, 0)))
		assert.True(t, errors.IsBadRequestError(q.ValidateQuantity(cons, instancePool, -3)))
	})

	t.Run("physical consumer must bind whole instances", func(t *testing.T) {
		cons := validatorConsumer(t, consumer.TypeSystem, nil)
		err := q.ValidateQuantity(cons, instancePool, 3)
		assert.True(t, errors.IsForbiddenError(err))
		assert.NoError(t, q.ValidateQuantity(cons, instancePool, 4))
	})

	t.Run("guests bind any quantity", func(t *testing.T) {
		guest := validatorConsumer(t, consumer.TypeSystem,
			consumer.Facts{consumer.FactIsGuest: "true"})
		assert.NoError(t, q.ValidateQuantity(guest, instancePool, 3))
	})

	t.Run("distributors bind any quantity", func(t *testing.T) {
		dist := validatorConsumer(t, consumer.TypeCandlepin, nil)
		assert.NoError(t, q.ValidateQuantity(dist, instancePool, 3))
	})

	t.Run("plain pool has no increment rule", func(t *testing.T) {
		cons := validatorConsumer(t, consumer.TypeSystem, nil)
		plain := validatorPool(t, poolSpec{})
		assert.NoError(t, q.ValidateQuantity(cons, plain, 1))
	})
}
