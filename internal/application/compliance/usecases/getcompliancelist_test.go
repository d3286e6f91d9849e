package usecases

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entgrid-io/entgrid/internal/application/compliance/dto"
	"github.com/entgrid-io/entgrid/internal/domain/catalog"
	"github.com/entgrid-io/entgrid/internal/domain/consumer"
	"github.com/entgrid-io/entgrid/internal/domain/entitlement"
	"github.com/entgrid-io/entgrid/internal/domain/pool"
	"github.com/entgrid-io/entgrid/internal/shared/errors"
	"github.com/entgrid-io/entgrid/internal/shared/logger"
)

type listConsumerRepo struct {
	consumers map[string]*consumer.Consumer
}

func (r *listConsumerRepo) Create(ctx context.Context, c *consumer.Consumer) error {
	r.consumers[c.UUID()] = c
	return nil
}
func (r *listConsumerRepo) Update(ctx context.Context, c *consumer.Consumer) error {
	r.consumers[c.UUID()] = c
	return nil
}
func (r *listConsumerRepo) GetByUUID(ctx context.Context, uuid string) (*consumer.Consumer, error) {
	c, ok := r.consumers[uuid]
	if !ok {
		return nil, errors.NewNotFoundError("consumer not found")
	}
	return c, nil
}
func (r *listConsumerRepo) GetByUUIDForOwner(ctx context.Context, ownerKey, uuid string) (*consumer.Consumer, error) {
	c, err := r.GetByUUID(ctx, uuid)
	if err != nil || c.OwnerKey() != ownerKey {
		return nil, errors.NewNotFoundError("consumer not found")
	}
	return c, nil
}
func (r *listConsumerRepo) FindHypervisor(ctx context.Context, ownerKey, hypervisorID string) (*consumer.Consumer, error) {
	return nil, errors.NewNotFoundError("hypervisor not found")
}
func (r *listConsumerRepo) FindGuestHost(ctx context.Context, ownerKey, guestUUID string) (*consumer.Consumer, error) {
	return nil, nil
}
func (r *listConsumerRepo) FindGuestConsumer(ctx context.Context, ownerKey, virtUUID string) (*consumer.Consumer, error) {
	return nil, nil
}
func (r *listConsumerRepo) ListByOwner(ctx context.Context, ownerKey string) ([]*consumer.Consumer, error) {
	var out []*consumer.Consumer
	for _, c := range r.consumers {
		if c.OwnerKey() == ownerKey {
			out = append(out, c)
		}
	}
	return out, nil
}
func (r *listConsumerRepo) Delete(ctx context.Context, uuid string) error {
	delete(r.consumers, uuid)
	return nil
}

type listOwnerRepo struct {
	owners map[string]*catalog.Owner
}

func (r *listOwnerRepo) Create(ctx context.Context, o *catalog.Owner) error { return nil }
func (r *listOwnerRepo) Update(ctx context.Context, o *catalog.Owner) error { return nil }
func (r *listOwnerRepo) GetByKey(ctx context.Context, key string) (*catalog.Owner, error) {
	o, ok := r.owners[key]
	if !ok {
		return nil, errors.NewNotFoundError("owner not found")
	}
	return o, nil
}
func (r *listOwnerRepo) Delete(ctx context.Context, key string) error { return nil }
func (r *listOwnerRepo) List(ctx context.Context) ([]*catalog.Owner, error) {
	return nil, nil
}

type listEntRepo struct{}

func (listEntRepo) Create(ctx context.Context, e *entitlement.Entitlement) error { return nil }
func (listEntRepo) Update(ctx context.Context, e *entitlement.Entitlement) error { return nil }
func (listEntRepo) Get(ctx context.Context, entID string) (*entitlement.Entitlement, error) {
	return nil, errors.NewNotFoundError("entitlement not found")
}
func (listEntRepo) ListByConsumer(ctx context.Context, consumerUUID string) ([]*entitlement.Entitlement, error) {
	return nil, nil
}
func (listEntRepo) ListByPool(ctx context.Context, poolID string) ([]*entitlement.Entitlement, error) {
	return nil, nil
}
func (listEntRepo) Delete(ctx context.Context, entID string) error { return nil }
func (listEntRepo) DeleteByPool(ctx context.Context, poolID string) (int64, error) {
	return 0, nil
}
func (listEntRepo) CountByConsumer(ctx context.Context, consumerUUID string) (int64, error) {
	return 0, nil
}

type listPoolRepo struct{}

func (listPoolRepo) Create(ctx context.Context, p *pool.Pool) error { return nil }
func (listPoolRepo) Update(ctx context.Context, p *pool.Pool) error { return nil }
func (listPoolRepo) Get(ctx context.Context, poolID string) (*pool.Pool, error) {
	return nil, errors.NewNotFoundError("pool not found")
}
func (listPoolRepo) GetForOwner(ctx context.Context, ownerKey, poolID string) (*pool.Pool, error) {
	return nil, errors.NewNotFoundError("pool not found")
}
func (listPoolRepo) List(ctx context.Context, filter pool.ListFilter) ([]*pool.Pool, error) {
	return nil, nil
}
func (listPoolRepo) ListBySubscription(ctx context.Context, subscriptionID string) ([]*pool.Pool, error) {
	return nil, nil
}
func (listPoolRepo) FindStackDerived(ctx context.Context, ownerKey, hostUUID, stackID string) (*pool.Pool, error) {
	return nil, errors.NewNotFoundError("no derived pool")
}
func (listPoolRepo) ListExpired(ctx context.Context, cutoff time.Time) ([]*pool.Pool, error) {
	return nil, nil
}
func (listPoolRepo) Delete(ctx context.Context, poolID string) error { return nil }
func (listPoolRepo) ConsumedQuantity(ctx context.Context, poolID string) (int64, error) {
	return 0, nil
}

type complianceListFixture struct {
	consumers *listConsumerRepo
	uc        *GetComplianceListUseCase
}

func newComplianceListFixture(t *testing.T) *complianceListFixture {
	t.Helper()
	owner, err := catalog.NewOwner("acme", "Acme Corp")
	require.NoError(t, err)

	f := &complianceListFixture{
		consumers: &listConsumerRepo{consumers: map[string]*consumer.Consumer{}},
	}
	owners := &listOwnerRepo{owners: map[string]*catalog.Owner{"acme": owner}}
	log := logger.NewLogger()
	statusUC := NewGetComplianceStatusUseCase(f.consumers, owners, listEntRepo{}, listPoolRepo{}, log)
	f.uc = NewGetComplianceListUseCase(f.consumers, owners, statusUC, log)
	return f
}

func (f *complianceListFixture) addConsumer(t *testing.T, name string) *consumer.Consumer {
	t.Helper()
	c, _, err := consumer.NewConsumer(name, "acme", consumer.TypeSystem, nil)
	require.NoError(t, err)
	f.consumers.consumers[c.UUID()] = c
	return c
}

func TestGetComplianceList_DefaultsToWholeOwner(t *testing.T) {
	f := newComplianceListFixture(t)
	f.addConsumer(t, "box1")
	f.addConsumer(t, "box2")

	results, err := f.uc.Execute(context.Background(), dto.ComplianceListRequest{OwnerKey: "acme"})
	require.NoError(t, err)
	assert.Len(t, results, 2)
	for _, r := range results {
		assert.NotNil(t, r.Status)
	}
}

func TestGetComplianceList_FiltersToRequestedConsumers(t *testing.T) {
	f := newComplianceListFixture(t)
	wanted := f.addConsumer(t, "box1")
	f.addConsumer(t, "box2")

	results, err := f.uc.Execute(context.Background(), dto.ComplianceListRequest{
		OwnerKey: "acme",
		// duplicate UUIDs collapse to one evaluation
		ConsumerUUIDs: []string{wanted.UUID(), wanted.UUID()},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, wanted.UUID(), results[0].ConsumerUUID)
	assert.Equal(t, "box1", results[0].ConsumerName)
}

func TestGetComplianceList_UnknownConsumerFails(t *testing.T) {
	f := newComplianceListFixture(t)
	f.addConsumer(t, "box1")

	_, err := f.uc.Execute(context.Background(), dto.ComplianceListRequest{
		OwnerKey:      "acme",
		ConsumerUUIDs: []string{"ghost"},
	})
	require.Error(t, err)
	assert.True(t, errors.IsNotFoundError(err))
}
