package usecases

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bindingServices "github.com/entgrid-io/entgrid/internal/application/binding/services"
	"github.com/entgrid-io/entgrid/internal/application/consumers/dto"
	"github.com/entgrid-io/entgrid/internal/domain/catalog"
	"github.com/entgrid-io/entgrid/internal/domain/certificate"
	"github.com/entgrid-io/entgrid/internal/domain/consumer"
	"github.com/entgrid-io/entgrid/internal/domain/entitlement"
	"github.com/entgrid-io/entgrid/internal/domain/pool"
	"github.com/entgrid-io/entgrid/internal/shared/errors"
	"github.com/entgrid-io/entgrid/internal/shared/logger"
)

type regOwnerRepo struct {
	owners map[string]*catalog.Owner
}

func (r *regOwnerRepo) Create(ctx context.Context, o *catalog.Owner) error { return nil }
func (r *regOwnerRepo) Update(ctx context.Context, o *catalog.Owner) error { return nil }
func (r *regOwnerRepo) GetByKey(ctx context.Context, key string) (*catalog.Owner, error) {
	o, ok := r.owners[key]
	if !ok {
		return nil, errors.NewNotFoundError("owner not found")
	}
	return o, nil
}
func (r *regOwnerRepo) Delete(ctx context.Context, key string) error       { return nil }
func (r *regOwnerRepo) List(ctx context.Context) ([]*catalog.Owner, error) { return nil, nil }

type regKeyRepo struct {
	keys map[string]*consumer.ActivationKey
}

func (r *regKeyRepo) Create(ctx context.Context, key *consumer.ActivationKey) error { return nil }
func (r *regKeyRepo) Update(ctx context.Context, key *consumer.ActivationKey) error { return nil }
func (r *regKeyRepo) GetByName(ctx context.Context, ownerKey, name string) (*consumer.ActivationKey, error) {
	key, ok := r.keys[ownerKey+"/"+name]
	if !ok {
		return nil, errors.NewNotFoundError("activation key not found")
	}
	return key, nil
}
func (r *regKeyRepo) ListByOwner(ctx context.Context, ownerKey string) ([]*consumer.ActivationKey, error) {
	return nil, nil
}
func (r *regKeyRepo) Delete(ctx context.Context, keyID string) error { return nil }

type regConsumerRepo struct {
	consumers map[string]*consumer.Consumer
	nextID    uint
}

func (r *regConsumerRepo) Create(ctx context.Context, c *consumer.Consumer) error {
	r.nextID++
	if err := c.SetID(r.nextID); err != nil {
		return err
	}
	r.consumers[c.UUID()] = c
	return nil
}
func (r *regConsumerRepo) Update(ctx context.Context, c *consumer.Consumer) error { return nil }
func (r *regConsumerRepo) GetByUUID(ctx context.Context, uuid string) (*consumer.Consumer, error) {
	c, ok := r.consumers[uuid]
	if !ok {
		return nil, errors.NewNotFoundError("consumer not found")
	}
	return c, nil
}
func (r *regConsumerRepo) GetByUUIDForOwner(ctx context.Context, ownerKey, uuid string) (*consumer.Consumer, error) {
	return r.GetByUUID(ctx, uuid)
}
func (r *regConsumerRepo) FindHypervisor(ctx context.Context, ownerKey, hypervisorID string) (*consumer.Consumer, error) {
	return nil, errors.NewNotFoundError("consumer not found")
}
func (r *regConsumerRepo) FindGuestHost(ctx context.Context, ownerKey, guestUUID string) (*consumer.Consumer, error) {
	return nil, nil
}
func (r *regConsumerRepo) FindGuestConsumer(ctx context.Context, ownerKey, virtUUID string) (*consumer.Consumer, error) {
	return nil, nil
}
func (r *regConsumerRepo) ListByOwner(ctx context.Context, ownerKey string) ([]*consumer.Consumer, error) {
	return nil, nil
}
func (r *regConsumerRepo) Delete(ctx context.Context, uuid string) error { return nil }

type regPoolRepo struct {
	pools    []*pool.Pool
	consumed map[string]int64
}

func (r *regPoolRepo) Create(ctx context.Context, p *pool.Pool) error {
	r.pools = append(r.pools, p)
	return nil
}
func (r *regPoolRepo) Update(ctx context.Context, p *pool.Pool) error { return nil }
func (r *regPoolRepo) Get(ctx context.Context, poolID string) (*pool.Pool, error) {
	for _, p := range r.pools {
		if p.ID() == poolID {
			return p, nil
		}
	}
	return nil, errors.NewNotFoundError("pool not found")
}
func (r *regPoolRepo) GetForOwner(ctx context.Context, ownerKey, poolID string) (*pool.Pool, error) {
	p, err := r.Get(ctx, poolID)
	if err != nil || p.OwnerKey() != ownerKey {
		return nil, errors.NewNotFoundError("pool not found")
	}
	return p, nil
}
func (r *regPoolRepo) List(ctx context.Context, filter pool.ListFilter) ([]*pool.Pool, error) {
	return nil, nil
}
func (r *regPoolRepo) ListBySubscription(ctx context.Context, subscriptionID string) ([]*pool.Pool, error) {
	return nil, nil
}
func (r *regPoolRepo) FindStackDerived(ctx context.Context, ownerKey, hostUUID, stackID string) (*pool.Pool, error) {
	return nil, errors.NewNotFoundError("no derived pool")
}
func (r *regPoolRepo) ListExpired(ctx context.Context, cutoff time.Time) ([]*pool.Pool, error) {
	return nil, nil
}
func (r *regPoolRepo) Delete(ctx context.Context, poolID string) error { return nil }
func (r *regPoolRepo) ConsumedQuantity(ctx context.Context, poolID string) (int64, error) {
	return r.consumed[poolID], nil
}

type regEntRepo struct {
	ents []*entitlement.Entitlement
}

func (r *regEntRepo) Create(ctx context.Context, e *entitlement.Entitlement) error {
	r.ents = append(r.ents, e)
	return nil
}
func (r *regEntRepo) Update(ctx context.Context, e *entitlement.Entitlement) error { return nil }
func (r *regEntRepo) Get(ctx context.Context, entID string) (*entitlement.Entitlement, error) {
	return nil, errors.NewNotFoundError("entitlement not found")
}
func (r *regEntRepo) ListByConsumer(ctx context.Context, consumerUUID string) ([]*entitlement.Entitlement, error) {
	var out []*entitlement.Entitlement
	for _, e := range r.ents {
		if e.ConsumerUUID() == consumerUUID {
			out = append(out, e)
		}
	}
	return out, nil
}
func (r *regEntRepo) ListByPool(ctx context.Context, poolID string) ([]*entitlement.Entitlement, error) {
	return nil, nil
}
func (r *regEntRepo) Delete(ctx context.Context, entID string) error { return nil }
func (r *regEntRepo) DeleteByPool(ctx context.Context, poolID string) (int64, error) {
	return 0, nil
}
func (r *regEntRepo) CountByConsumer(ctx context.Context, consumerUUID string) (int64, error) {
	ents, _ := r.ListByConsumer(ctx, consumerUUID)
	return int64(len(ents)), nil
}

type regSerials struct {
	last int64
}

func (s *regSerials) NextSerial(ctx context.Context) (int64, error) {
	s.last++
	return s.last, nil
}

type regCertIssuer struct{}

func (c *regCertIssuer) IssueEntitlementCert(ctx context.Context, cons *consumer.Consumer, ent *entitlement.Entitlement) (*certificate.Certificate, error) {
	return nil, nil
}
func (c *regCertIssuer) RegenerateEntitlementCert(ctx context.Context, entitlementID string) error {
	return nil
}
func (c *regCertIssuer) InvalidateContentAccess(ctx context.Context, consumerUUID string) error {
	return nil
}

type recordingAutoAttacher struct {
	called bool
}

func (a *recordingAutoAttacher) Run(ctx context.Context, cons *consumer.Consumer, productIDs []string, entitleDate *time.Time) ([]*entitlement.Entitlement, error) {
	a.called = true
	return nil, nil
}

type registerFixture struct {
	owners     *regOwnerRepo
	keyRepo    *regKeyRepo
	consumers  *regConsumerRepo
	pools      *regPoolRepo
	ents       *regEntRepo
	autoAttach *recordingAutoAttacher
	uc         *RegisterConsumerUseCase
}

func newRegisterFixture(t *testing.T) *registerFixture {
	t.Helper()
	f := &registerFixture{
		owners:     &regOwnerRepo{owners: map[string]*catalog.Owner{}},
		keyRepo:    &regKeyRepo{keys: map[string]*consumer.ActivationKey{}},
		consumers:  &regConsumerRepo{consumers: map[string]*consumer.Consumer{}},
		pools:      &regPoolRepo{consumed: map[string]int64{}},
		ents:       &regEntRepo{},
		autoAttach: &recordingAutoAttacher{},
	}

	owner, err := catalog.NewOwner("acme", "Acme Corp")
	require.NoError(t, err)
	f.owners.owners["acme"] = owner

	quantities := bindingServices.NewQuantityRules()
	entitler := bindingServices.NewEntitler(
		f.pools, f.ents, f.consumers, &regSerials{},
		bindingServices.NewPoolValidator(), quantities, &regCertIssuer{}, logger.NewLogger())

	f.uc = NewRegisterConsumerUseCase(
		f.consumers, f.owners, f.keyRepo, f.pools,
		entitler, quantities, f.autoAttach, logger.NewLogger())
	return f
}

func (f *registerFixture) addPool(t *testing.T, poolID string, quantity int64) *pool.Pool {
	t.Helper()
	start := time.Now().UTC().Add(-24 * time.Hour)
	p, err := pool.NewPool(pool.PoolParams{
		ID:          poolID,
		OwnerKey:    "acme",
		ProductID:   "mkt-" + poolID,
		ProductName: "Product " + poolID,
		Quantity:    quantity,
		StartDate:   start,
		EndDate:     start.AddDate(1, 0, 0),
	})
	require.NoError(t, err)
	require.NoError(t, f.pools.Create(context.Background(), p))
	return p
}

func (f *registerFixture) addKey(t *testing.T, name string, poolIDs ...string) *consumer.ActivationKey {
	t.Helper()
	key, err := consumer.NewActivationKey("akey_"+name, "acme", name)
	require.NoError(t, err)
	for _, poolID := range poolIDs {
		require.NoError(t, key.AddPool(poolID, 0))
	}
	f.keyRepo.keys["acme/"+name] = key
	return key
}

func TestRegisterConsumer_PlainRegistration(t *testing.T) {
	f := newRegisterFixture(t)

	resp, err := f.uc.Execute(context.Background(), dto.RegisterConsumerRequest{
		OwnerKey: "acme",
		Name:     "web01",
		Facts: map[string]string{
			consumer.FactArch:     "x86_64",
			consumer.FactMemTotal: "lots",
		},
		InstalledProducts: []dto.InstalledProductInput{
			{ProductID: "eng1", Name: "Engineering One"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "web01", resp.Name)
	assert.Equal(t, "acme", resp.OwnerKey)
	assert.Equal(t, string(consumer.TypeSystem), resp.Type)
	assert.Contains(t, resp.DroppedFacts, consumer.FactMemTotal)
	assert.Empty(t, resp.Entitlements)

	cons, err := f.consumers.GetByUUID(context.Background(), resp.UUID)
	require.NoError(t, err)
	require.Len(t, cons.InstalledProducts(), 1)
	assert.Equal(t, "eng1", cons.InstalledProducts()[0].ProductID)
}

func TestRegisterConsumer_ActivationKeyBindsPools(t *testing.T) {
	f := newRegisterFixture(t)
	f.addPool(t, "pool1", 10)
	key := f.addKey(t, "prod-key", "pool1")
	key.SetServiceLevel("Premium")

	resp, err := f.uc.Execute(context.Background(), dto.RegisterConsumerRequest{
		OwnerKey:       "acme",
		Name:           "web01",
		ActivationKeys: []string{"prod-key"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"prod-key"}, resp.ActivationKeysUsed)
	assert.Equal(t, "Premium", resp.ServiceLevel)
	require.Len(t, resp.Entitlements, 1)
	assert.Equal(t, "pool1", resp.Entitlements[0].PoolID)
	assert.Equal(t, int64(1), resp.Entitlements[0].Quantity)
}

func TestRegisterConsumer_SkipsUnknownKeys(t *testing.T) {
	f := newRegisterFixture(t)
	f.addPool(t, "pool1", 10)
	f.addKey(t, "prod-key", "pool1")

	resp, err := f.uc.Execute(context.Background(), dto.RegisterConsumerRequest{
		OwnerKey:       "acme",
		Name:           "web01",
		ActivationKeys: []string{"no-such-key", "prod-key"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"prod-key"}, resp.ActivationKeysUsed)
	assert.Len(t, resp.Entitlements, 1)
}

func TestRegisterConsumer_AllKeysUnknownFailsUnauthorized(t *testing.T) {
	f := newRegisterFixture(t)

	_, err := f.uc.Execute(context.Background(), dto.RegisterConsumerRequest{
		OwnerKey:       "acme",
		Name:           "web01",
		ActivationKeys: []string{"no-such-key", "also-missing"},
	})
	require.Error(t, err)
	assert.True(t, errors.IsUnauthorizedError(err))
	assert.Empty(t, f.consumers.consumers, "no consumer should be created")
}

func TestRegisterConsumer_MissingOwnerKey(t *testing.T) {
	f := newRegisterFixture(t)

	_, err := f.uc.Execute(context.Background(), dto.RegisterConsumerRequest{
		Name:           "web01",
		ActivationKeys: []string{"prod-key"},
	})
	require.Error(t, err)
	assert.True(t, errors.IsBadRequestError(err))
}

func TestRegisterConsumer_UnknownOwner(t *testing.T) {
	f := newRegisterFixture(t)

	_, err := f.uc.Execute(context.Background(), dto.RegisterConsumerRequest{
		OwnerKey: "globex",
		Name:     "web01",
	})
	require.Error(t, err)
	assert.True(t, errors.IsNotFoundError(err))
}

func TestRegisterConsumer_AutoAttachKeyRunsAutoAttach(t *testing.T) {
	f := newRegisterFixture(t)
	key := f.addKey(t, "auto-key")
	key.SetAutoAttach(true)

	_, err := f.uc.Execute(context.Background(), dto.RegisterConsumerRequest{
		OwnerKey:       "acme",
		Name:           "web01",
		ActivationKeys: []string{"auto-key"},
	})
	require.NoError(t, err)
	assert.True(t, f.autoAttach.called)
}

func TestCreateActivationKey(t *testing.T) {
	f := newRegisterFixture(t)
	uc := NewCreateActivationKeyUseCase(f.owners, f.keyRepo, logger.NewLogger())

	t.Run("creates key with pools", func(t *testing.T) {
		resp, err := uc.Execute(context.Background(), dto.CreateActivationKeyRequest{
			OwnerKey:   "acme",
			Name:       "prod-key",
			AutoAttach: true,
			Pools: []dto.ActivationKeyPoolInput{
				{PoolID: "pool1", Quantity: 2},
			},
		})
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(resp.KeyID, "akey_"))
		assert.Equal(t, "acme", resp.OwnerKey)
		assert.True(t, resp.AutoAttach)
		require.Len(t, resp.Pools, 1)
		assert.Equal(t, int64(2), resp.Pools[0].Quantity)
	})

	t.Run("unknown owner", func(t *testing.T) {
		_, err := uc.Execute(context.Background(), dto.CreateActivationKeyRequest{
			OwnerKey: "globex",
			Name:     "prod-key",
		})
		require.Error(t, err)
		assert.True(t, errors.IsNotFoundError(err))
	})
}

func TestRegisterConsumer_ExhaustedKeyPoolIsSkipped(t *testing.T) {
	f := newRegisterFixture(t)
	p := f.addPool(t, "pool1", 2)
	f.pools.consumed[p.ID()] = 2
	f.addKey(t, "prod-key", "pool1")

	resp, err := f.uc.Execute(context.Background(), dto.RegisterConsumerRequest{
		OwnerKey:       "acme",
		Name:           "web01",
		ActivationKeys: []string{"prod-key"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"prod-key"}, resp.ActivationKeysUsed)
	assert.Empty(t, resp.Entitlements)
}
