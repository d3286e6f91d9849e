package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entgrid-io/entgrid/internal/domain/catalog"
	"github.com/entgrid-io/entgrid/internal/domain/certificate"
	"github.com/entgrid-io/entgrid/internal/domain/consumer"
	"github.com/entgrid-io/entgrid/internal/domain/entitlement"
	"github.com/entgrid-io/entgrid/internal/domain/pool"
	"github.com/entgrid-io/entgrid/internal/shared/errors"
	"github.com/entgrid-io/entgrid/internal/shared/logger"
)

type stubPoolRepo struct {
	pools    []*pool.Pool
	consumed map[string]int64
}

func (r *stubPoolRepo) Create(ctx context.Context, p *pool.Pool) error {
	r.pools = append(r.pools, p)
	return nil
}

func (r *stubPoolRepo) Update(ctx context.Context, p *pool.Pool) error {
	for i, existing := range r.pools {
		if existing.ID() == p.ID() {
			r.pools[i] = p
			return nil
		}
	}
	return errors.NewNotFoundError("pool not found")
}

func (r *stubPoolRepo) Get(ctx context.Context, poolID string) (*pool.Pool, error) {
	for _, p := range r.pools {
		if p.ID() == poolID {
			return p, nil
		}
	}
	return nil, errors.NewNotFoundError("pool not found")
}

func (r *stubPoolRepo) GetForOwner(ctx context.Context, ownerKey, poolID string) (*pool.Pool, error) {
	p, err := r.Get(ctx, poolID)
	if err != nil || p.OwnerKey() != ownerKey {
		return nil, errors.NewNotFoundError("pool not found")
	}
	return p, nil
}

func (r *stubPoolRepo) List(ctx context.Context, filter pool.ListFilter) ([]*pool.Pool, error) {
	var out []*pool.Pool
	for _, p := range r.pools {
		if filter.OwnerKey != "" && p.OwnerKey() != filter.OwnerKey {
			continue
		}
		if filter.RequiresHost != "" && p.RequiresHost() != filter.RequiresHost {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *stubPoolRepo) ListBySubscription(ctx context.Context, subscriptionID string) ([]*pool.Pool, error) {
	return nil, nil
}

func (r *stubPoolRepo) FindStackDerived(ctx context.Context, ownerKey, hostUUID, stackID string) (*pool.Pool, error) {
	for _, p := range r.pools {
		if p.Type() == pool.TypeStackDerived &&
			p.OwnerKey() == ownerKey &&
			p.SourceConsumerUUID() == hostUUID &&
			p.SourceStackID() == stackID {
			return p, nil
		}
	}
	return nil, errors.NewNotFoundError("no derived pool")
}

func (r *stubPoolRepo) ListExpired(ctx context.Context, cutoff time.Time) ([]*pool.Pool, error) {
	return nil, nil
}

func (r *stubPoolRepo) Delete(ctx context.Context, poolID string) error {
	for i, p := range r.pools {
		if p.ID() == poolID {
			r.pools = append(r.pools[:i], r.pools[i+1:]...)
			return nil
		}
	}
	return errors.NewNotFoundError("pool not found")
}

func (r *stubPoolRepo) ConsumedQuantity(ctx context.Context, poolID string) (int64, error) {
	return r.consumed[poolID], nil
}

type stubEntRepo struct {
	ents []*entitlement.Entitlement
}

func (r *stubEntRepo) Create(ctx context.Context, e *entitlement.Entitlement) error {
	r.ents = append(r.ents, e)
	return nil
}
func (r *stubEntRepo) Update(ctx context.Context, e *entitlement.Entitlement) error { return nil }
func (r *stubEntRepo) Get(ctx context.Context, entID string) (*entitlement.Entitlement, error) {
	for _, e := range r.ents {
		if e.ID() == entID {
			return e, nil
		}
	}
	return nil, errors.NewNotFoundError("entitlement not found")
}
func (r *stubEntRepo) ListByConsumer(ctx context.Context, consumerUUID string) ([]*entitlement.Entitlement, error) {
	var out []*entitlement.Entitlement
	for _, e := range r.ents {
		if e.ConsumerUUID() == consumerUUID {
			out = append(out, e)
		}
	}
	return out, nil
}
func (r *stubEntRepo) ListByPool(ctx context.Context, poolID string) ([]*entitlement.Entitlement, error) {
	var out []*entitlement.Entitlement
	for _, e := range r.ents {
		if e.PoolID() == poolID {
			out = append(out, e)
		}
	}
	return out, nil
}
func (r *stubEntRepo) Delete(ctx context.Context, entID string) error {
	for i, e := range r.ents {
		if e.ID() == entID {
			r.ents = append(r.ents[:i], r.ents[i+1:]...)
			return nil
		}
	}
	return errors.NewNotFoundError("entitlement not found")
}
func (r *stubEntRepo) DeleteByPool(ctx context.Context, poolID string) (int64, error) {
	var kept []*entitlement.Entitlement
	var removed int64
	for _, e := range r.ents {
		if e.PoolID() == poolID {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	r.ents = kept
	return removed, nil
}
func (r *stubEntRepo) CountByConsumer(ctx context.Context, consumerUUID string) (int64, error) {
	ents, _ := r.ListByConsumer(ctx, consumerUUID)
	return int64(len(ents)), nil
}

type stubConsumerRepo struct {
	consumers map[string]*consumer.Consumer
}

func (r *stubConsumerRepo) Create(ctx context.Context, c *consumer.Consumer) error { return nil }
func (r *stubConsumerRepo) Update(ctx context.Context, c *consumer.Consumer) error { return nil }
func (r *stubConsumerRepo) GetByUUID(ctx context.Context, uuid string) (*consumer.Consumer, error) {
	c, ok := r.consumers[uuid]
	if !ok {
		return nil, errors.NewNotFoundError("consumer not found")
	}
	return c, nil
}
func (r *stubConsumerRepo) GetByUUIDForOwner(ctx context.Context, ownerKey, uuid string) (*consumer.Consumer, error) {
	return r.GetByUUID(ctx, uuid)
}
func (r *stubConsumerRepo) FindHypervisor(ctx context.Context, ownerKey, hypervisorID string) (*consumer.Consumer, error) {
	return nil, errors.NewNotFoundError("consumer not found")
}
func (r *stubConsumerRepo) FindGuestHost(ctx context.Context, ownerKey, guestUUID string) (*consumer.Consumer, error) {
	return nil, nil
}
func (r *stubConsumerRepo) FindGuestConsumer(ctx context.Context, ownerKey, virtUUID string) (*consumer.Consumer, error) {
	return nil, nil
}
func (r *stubConsumerRepo) ListByOwner(ctx context.Context, ownerKey string) ([]*consumer.Consumer, error) {
	return nil, nil
}
func (r *stubConsumerRepo) Delete(ctx context.Context, uuid string) error { return nil }

type stubSerials struct {
	last int64
}

func (s *stubSerials) NextSerial(ctx context.Context) (int64, error) {
	s.last++
	return s.last, nil
}

type stubCertIssuer struct {
	invalidated []string
}

func (c *stubCertIssuer) IssueEntitlementCert(ctx context.Context, cons *consumer.Consumer, ent *entitlement.Entitlement) (*certificate.Certificate, error) {
	return nil, nil
}
func (c *stubCertIssuer) RegenerateEntitlementCert(ctx context.Context, entitlementID string) error {
	return nil
}
func (c *stubCertIssuer) InvalidateContentAccess(ctx context.Context, consumerUUID string) error {
	c.invalidated = append(c.invalidated, consumerUUID)
	return nil
}

type entitlerFixture struct {
	pools     *stubPoolRepo
	ents      *stubEntRepo
	consumers *stubConsumerRepo
	certs     *stubCertIssuer
	entitler  *Entitler
}

func newEntitlerFixture(t *testing.T) *entitlerFixture {
	t.Helper()
	f := &entitlerFixture{
		pools:     &stubPoolRepo{consumed: map[string]int64{}},
		ents:      &stubEntRepo{},
		consumers: &stubConsumerRepo{consumers: map[string]*consumer.Consumer{}},
		certs:     &stubCertIssuer{},
	}
	f.entitler = NewEntitler(
		f.pools, f.ents, f.consumers, &stubSerials{},
		NewPoolValidator(), NewQuantityRules(), f.certs, logger.NewLogger())
	return f
}

func (f *entitlerFixture) addMasterPool(t *testing.T, poolID string, productAttrs catalog.Attributes) *pool.Pool {
	t.Helper()
	start := time.Now().UTC().Add(-24 * time.Hour)
	p, err := pool.NewPool(pool.PoolParams{
		ID:                poolID,
		OwnerKey:          "acme",
		ProductID:         "mkt1",
		ProductName:       "Marketing One",
		ProductAttributes: productAttrs,
		Quantity:          10,
		StartDate:         start,
		EndDate:           start.AddDate(1, 0, 0),
	})
	require.NoError(t, err)
	require.NoError(t, f.pools.Create(context.Background(), p))
	return p
}

func (f *entitlerFixture) addConsumer(t *testing.T, name string) *consumer.Consumer {
	t.Helper()
	c, _, err := consumer.NewConsumer(name, "acme", consumer.TypeSystem, nil)
	require.NoError(t, err)
	f.consumers.consumers[c.UUID()] = c
	return c
}

func (f *entitlerFixture) addGuest(t *testing.T, name, hostUUID string) *consumer.Consumer {
	t.Helper()
	c, _, err := consumer.NewConsumer(name, "acme", consumer.TypeSystem,
		consumer.Facts{consumer.FactIsGuest: "true"})
	require.NoError(t, err)
	c.SetHost(hostUUID)
	f.consumers.consumers[c.UUID()] = c
	return c
}

func (f *entitlerFixture) derivedPool() *pool.Pool {
	for _, p := range f.pools.pools {
		if p.Type() == pool.TypeStackDerived {
			return p
		}
	}
	return nil
}

func stackedAttrs(virtLimit string) catalog.Attributes {
	attrs := catalog.Attributes{
		catalog.AttrStackingID:       "stackA",
		catalog.AttrMultiEntitlement: "true",
	}
	if virtLimit != "" {
		attrs[catalog.AttrVirtLimit] = virtLimit
	}
	return attrs
}

func TestEntitler_BindCreatesStackDerivedPool(t *testing.T) {
	f := newEntitlerFixture(t)
	host := f.addConsumer(t, "host1")
	master := f.addMasterPool(t, "pool1", stackedAttrs("4"))

	ent, err := f.entitler.Bind(context.Background(), host, master, 1)
	require.NoError(t, err)
	require.NotNil(t, ent)

	derived := f.derivedPool()
	require.NotNil(t, derived)
	assert.Equal(t, int64(4), derived.Quantity())
	assert.Equal(t, host.UUID(), derived.RequiresHost())
	assert.Equal(t, "stackA", derived.SourceStackID())
	assert.Equal(t, host.UUID(), derived.SourceConsumerUUID())
	assert.Equal(t, "true", derived.Attribute(catalog.AttrVirtOnly))
}

func TestEntitler_GuestBindOnDerivedPoolSpawnsNothing(t *testing.T) {
	f := newEntitlerFixture(t)
	host := f.addConsumer(t, "host1")
	master := f.addMasterPool(t, "pool1", stackedAttrs("4"))

	_, err := f.entitler.Bind(context.Background(), host, master, 1)
	require.NoError(t, err)

	derived := f.derivedPool()
	require.NotNil(t, derived)
	// the derived snapshot keeps the master's stacking attributes for
	// guest compliance, binding it must not feed SyncHostStack again
	require.Equal(t, "stackA", derived.StackingID())
	assert.Empty(t, derived.StackSourceID())

	guest := f.addGuest(t, "guest1", host.UUID())
	ent, err := f.entitler.Bind(context.Background(), guest, derived, 1)
	require.NoError(t, err)
	require.NotNil(t, ent)

	var stackDerived int
	for _, p := range f.pools.pools {
		if p.Type() == pool.TypeStackDerived {
			stackDerived++
		}
	}
	assert.Equal(t, 1, stackDerived)
}

func TestEntitler_UnlimitedVirtLimitDerivedPool(t *testing.T) {
	f := newEntitlerFixture(t)
	host := f.addConsumer(t, "host1")
	master := f.addMasterPool(t, "pool1", stackedAttrs("unlimited"))

	_, err := f.entitler.Bind(context.Background(), host, master, 1)
	require.NoError(t, err)

	derived := f.derivedPool()
	require.NotNil(t, derived)
	assert.True(t, derived.IsUnlimited())
}

func TestEntitler_StackWithoutVirtLimitHasNoDerivedPool(t *testing.T) {
	f := newEntitlerFixture(t)
	host := f.addConsumer(t, "host1")
	master := f.addMasterPool(t, "pool1", stackedAttrs(""))

	_, err := f.entitler.Bind(context.Background(), host, master, 1)
	require.NoError(t, err)
	assert.Nil(t, f.derivedPool())
}

func TestEntitler_LastUnbindRemovesDerivedPoolAndGuestEnts(t *testing.T) {
	f := newEntitlerFixture(t)
	host := f.addConsumer(t, "host1")
	master := f.addMasterPool(t, "pool1", stackedAttrs("4"))

	ent, err := f.entitler.Bind(context.Background(), host, master, 1)
	require.NoError(t, err)
	derived := f.derivedPool()
	require.NotNil(t, derived)

	// a guest of the host consumes from the derived pool
	guest := f.addGuest(t, "guest1", host.UUID())
	guestEnt, err := f.entitler.Bind(context.Background(), guest, derived, 1)
	require.NoError(t, err)

	require.NoError(t, f.entitler.Unbind(context.Background(), ent.ID()))

	assert.Nil(t, f.derivedPool())
	_, err = f.ents.Get(context.Background(), guestEnt.ID())
	assert.True(t, errors.IsNotFoundError(err))
	assert.Contains(t, f.certs.invalidated, guest.UUID())
}

func TestEntitler_SecondMemberGrowsDerivedQuantity(t *testing.T) {
	f := newEntitlerFixture(t)
	host := f.addConsumer(t, "host1")
	p1 := f.addMasterPool(t, "pool1", stackedAttrs("4"))
	p2 := f.addMasterPool(t, "pool2", stackedAttrs("4"))

	_, err := f.entitler.Bind(context.Background(), host, p1, 1)
	require.NoError(t, err)
	first := f.derivedPool()
	require.NotNil(t, first)

	_, err = f.entitler.Bind(context.Background(), host, p2, 1)
	require.NoError(t, err)

	// still one derived pool; virt_limit snapshots the representative
	var count int
	for _, p := range f.pools.pools {
		if p.Type() == pool.TypeStackDerived {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.Equal(t, first.ID(), f.derivedPool().ID())
}

func TestEntitler_BindRejectsExhaustedPool(t *testing.T) {
	f := newEntitlerFixture(t)
	cons := f.addConsumer(t, "box1")
	p := f.addMasterPool(t, "pool1", nil)
	f.pools.consumed["pool1"] = 10

	_, err := f.entitler.Bind(context.Background(), cons, p, 1)
	require.Error(t, err)
	assert.True(t, errors.IsForbiddenError(err))
	assert.Contains(t, err.Error(), "No subscriptions are available")
}

func TestEntitler_OnGuestHostChangedRevokesOldHostEntitlements(t *testing.T) {
	f := newEntitlerFixture(t)
	oldHost := f.addConsumer(t, "host-old")
	master := f.addMasterPool(t, "pool1", stackedAttrs("4"))
	_, err := f.entitler.Bind(context.Background(), oldHost, master, 1)
	require.NoError(t, err)
	derived := f.derivedPool()
	require.NotNil(t, derived)

	guest := f.addGuest(t, "guest1", oldHost.UUID())
	guestEnt, err := f.entitler.Bind(context.Background(), guest, derived, 1)
	require.NoError(t, err)

	// an unrestricted entitlement must survive the migration
	global := f.addMasterPool(t, "pool2", nil)
	globalEnt, err := f.entitler.Bind(context.Background(), guest, global, 1)
	require.NoError(t, err)

	guest.SetHost("host-new")
	require.NoError(t, f.entitler.OnGuestHostChanged(context.Background(), guest, oldHost.UUID()))

	_, err = f.ents.Get(context.Background(), guestEnt.ID())
	assert.True(t, errors.IsNotFoundError(err))
	_, err = f.ents.Get(context.Background(), globalEnt.ID())
	assert.NoError(t, err)
}

func TestEntitler_OnHostUnregisterRemovesDerivedPools(t *testing.T) {
	f := newEntitlerFixture(t)
	host := f.addConsumer(t, "host1")
	master := f.addMasterPool(t, "pool1", stackedAttrs("4"))
	_, err := f.entitler.Bind(context.Background(), host, master, 1)
	require.NoError(t, err)
	require.NotNil(t, f.derivedPool())

	require.NoError(t, f.entitler.OnHostUnregister(context.Background(), host))
	assert.Nil(t, f.derivedPool())
}
