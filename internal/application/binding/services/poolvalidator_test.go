package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entgrid-io/entgrid/internal/domain/catalog"
	"github.com/entgrid-io/entgrid/internal/domain/consumer"
	"github.com/entgrid-io/entgrid/internal/domain/pool"
	"github.com/entgrid-io/entgrid/internal/shared/errors"
)

type poolSpec struct {
	poolType     pool.PoolType
	attrs        catalog.Attributes
	productAttrs catalog.Attributes
	derivedProd  string
}

func validatorPool(t *testing.T, spec poolSpec) *pool.Pool {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p, err := pool.NewPool(pool.PoolParams{
		ID:                "pool1",
		OwnerKey:          "acme",
		Type:              spec.poolType,
		ProductID:         "mkt1",
		ProductName:       "Marketing One",
		ProductAttributes: spec.productAttrs,
		Attributes:        spec.attrs,
		DerivedProductID:  spec.derivedProd,
		Quantity:          10,
		StartDate:         start,
		EndDate:           start.AddDate(1, 0, 0),
	})
	require.NoError(t, err)
	return p
}

func validatorConsumer(t *testing.T, consumerType consumer.Type, facts consumer.Facts) *consumer.Consumer {
	t.Helper()
	c, _, err := consumer.NewConsumer("unit1", "acme", consumerType, facts)
	require.NoError(t, err)
	return c
}

func TestPoolValidator_Validate(t *testing.T) {
	v := NewPoolValidator()

	t.Run("plain pool and system consumer pass", func(t *testing.T) {
		cons := validatorConsumer(t, consumer.TypeSystem, nil)
		assert.NoError(t, v.Validate(cons, validatorPool(t, poolSpec{}), 1))
	})

	t.Run("consumer type restriction", func(t *testing.T) {
		p := validatorPool(t, poolSpec{attrs: catalog.Attributes{
			catalog.AttrRequiresConsumerType: string(consumer.TypePerson),
		}})
		err := v.Validate(validatorConsumer(t, consumer.TypeSystem, nil), p, 1)
		require.Error(t, err)
		assert.True(t, errors.IsForbiddenError(err))
	})

	t.Run("host restriction", func(t *testing.T) {
		p := validatorPool(t, poolSpec{attrs: catalog.Attributes{
			catalog.AttrRequiresHost: "host-1",
		}})

		stranger := validatorConsumer(t, consumer.TypeSystem, nil)
		stranger.SetHost("host-2")
		assert.True(t, errors.IsForbiddenError(v.Validate(stranger, p, 1)))

		resident := validatorConsumer(t, consumer.TypeSystem, nil)
		resident.SetHost("host-1")
		assert.NoError(t, v.Validate(resident, p, 1))
	})

	t.Run("virt only pool rejects physical consumers", func(t *testing.T) {
		p := validatorPool(t, poolSpec{attrs: catalog.Attributes{
			catalog.AttrVirtOnly: "true",
		}})

		physical := validatorConsumer(t, consumer.TypeSystem, nil)
		assert.True(t, errors.IsForbiddenError(v.Validate(physical, p, 1)))

		guest := validatorConsumer(t, consumer.TypeSystem,
			consumer.Facts{consumer.FactIsGuest: "true"})
		assert.NoError(t, v.Validate(guest, p, 1))

		// distributors re-export, they may take virt-only pools
		dist := validatorConsumer(t, consumer.TypeCandlepin, nil)
		assert.NoError(t, v.Validate(dist, p, 1))
	})

	t.Run("unmapped guests only pool rejects mapped guests", func(t *testing.T) {
		p := validatorPool(t, poolSpec{
			poolType: pool.TypeUnmappedGuest,
			attrs: catalog.Attributes{
				catalog.AttrVirtOnly:           "true",
				catalog.AttrUnmappedGuestsOnly: "true",
			},
		})

		mapped := validatorConsumer(t, consumer.TypeSystem,
			consumer.Facts{consumer.FactIsGuest: "true"})
		mapped.SetHost("host-1")
		assert.True(t, errors.IsForbiddenError(v.Validate(mapped, p, 1)))

		unmapped := validatorConsumer(t, consumer.TypeSystem,
			consumer.Facts{consumer.FactIsGuest: "true"})
		assert.NoError(t, v.Validate(unmapped, p, 1))
	})

	t.Run("multi entitlement gate", func(t *testing.T) {
		cons := validatorConsumer(t, consumer.TypeSystem, nil)

		plain := validatorPool(t, poolSpec{})
		assert.True(t, errors.IsForbiddenError(v.Validate(cons, plain, 2)))

		multi := validatorPool(t, poolSpec{productAttrs: catalog.Attributes{
			catalog.AttrMultiEntitlement: "true",
		}})
		assert.NoError(t, v.Validate(cons, multi, 2))
	})
}

func TestPoolValidator_DistributorCapabilities(t *testing.T) {
	v := NewPoolValidator()

	// sam-1.4 ships cert_v3, ram, cores but not derived products or
	// instance multipliers
	dist := validatorConsumer(t, consumer.TypeCandlepin,
		consumer.Facts{consumer.FactDistributorVersion: "sam-1.4"})

	t.Run("derived product data requires capability", func(t *testing.T) {
		p := validatorPool(t, poolSpec{derivedProd: "mkt1-derived"})
		err := v.Validate(dist, p, 1)
		require.Error(t, err)
		assert.True(t, errors.IsForbiddenError(err))
		assert.Contains(t, err.Error(), "does not support derived products data")
		assert.False(t, v.CompatibleWith(dist, p))
	})

	t.Run("ram pool accepted with ram capability", func(t *testing.T) {
		p := validatorPool(t, poolSpec{productAttrs: catalog.Attributes{catalog.AttrRAM: "8"}})
		assert.NoError(t, v.Validate(dist, p, 1))
		assert.True(t, v.CompatibleWith(dist, p))
	})

	t.Run("instance based pool needs instance capability", func(t *testing.T) {
		p := validatorPool(t, poolSpec{productAttrs: catalog.Attributes{
			catalog.AttrInstanceMultiplier: "2",
			catalog.AttrMultiEntitlement:   "true",
		}})
		err := v.Validate(dist, p, 2)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "instance based calculation")
	})

	t.Run("systems are never capability checked", func(t *testing.T) {
		cons := validatorConsumer(t, consumer.TypeSystem, nil)
		p := validatorPool(t, poolSpec{derivedProd: "mkt1-derived"})
		assert.NoError(t, v.Validate(cons, p, 1))
		assert.True(t, v.CompatibleWith(cons, p))
	})
}
