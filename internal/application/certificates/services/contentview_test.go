package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entgrid-io/entgrid/internal/domain/catalog"
	"github.com/entgrid-io/entgrid/internal/domain/consumer"
	"github.com/entgrid-io/entgrid/internal/domain/entitlement"
	"github.com/entgrid-io/entgrid/internal/domain/pool"
	"github.com/entgrid-io/entgrid/internal/shared/errors"
	"github.com/entgrid-io/entgrid/internal/shared/logger"
)

// In-memory repository fakes. Methods the resolver never touches return
// not-implemented errors so an unexpected call fails loudly.

type fakeProductRepo struct {
	products map[string]*catalog.Product // ownerKey + "/" + productID
}

func (f *fakeProductRepo) StoreVersion(ctx context.Context, p *catalog.Product) (*catalog.Product, error) {
	return nil, errors.NewInternalError("not implemented")
}
func (f *fakeProductRepo) LinkOwner(ctx context.Context, ownerKey, productID, versionHash string) error {
	return errors.NewInternalError("not implemented")
}
func (f *fakeProductRepo) UnlinkOwner(ctx context.Context, ownerKey, productID string) error {
	return errors.NewInternalError("not implemented")
}
func (f *fakeProductRepo) GetForOwner(ctx context.Context, ownerKey, productID string) (*catalog.Product, error) {
	p, ok := f.products[ownerKey+"/"+productID]
	if !ok {
		return nil, errors.NewNotFoundError("product not found")
	}
	return p, nil
}
func (f *fakeProductRepo) ListForOwner(ctx context.Context, ownerKey string) ([]*catalog.Product, error) {
	return nil, errors.NewInternalError("not implemented")
}
func (f *fakeProductRepo) GetVersion(ctx context.Context, versionHash string) (*catalog.Product, error) {
	return nil, errors.NewInternalError("not implemented")
}
func (f *fakeProductRepo) DeleteOrphanedVersions(ctx context.Context) (int64, error) {
	return 0, errors.NewInternalError("not implemented")
}

type fakeContentRepo struct {
	contents map[string]*catalog.Content // ownerKey + "/" + contentID
}

func (f *fakeContentRepo) StoreVersion(ctx context.Context, c *catalog.Content) (*catalog.Content, error) {
	return nil, errors.NewInternalError("not implemented")
}
func (f *fakeContentRepo) LinkOwner(ctx context.Context, ownerKey, contentID, versionHash string) error {
	return errors.NewInternalError("not implemented")
}
func (f *fakeContentRepo) UnlinkOwner(ctx context.Context, ownerKey, contentID string) error {
	return errors.NewInternalError("not implemented")
}
func (f *fakeContentRepo) GetForOwner(ctx context.Context, ownerKey, contentID string) (*catalog.Content, error) {
	c, ok := f.contents[ownerKey+"/"+contentID]
	if !ok {
		return nil, errors.NewNotFoundError("content not found")
	}
	return c, nil
}
func (f *fakeContentRepo) ListForOwner(ctx context.Context, ownerKey string) ([]*catalog.Content, error) {
	return nil, errors.NewInternalError("not implemented")
}
func (f *fakeContentRepo) DeleteOrphanedVersions(ctx context.Context) (int64, error) {
	return 0, errors.NewInternalError("not implemented")
}

type fakeEnvRepo struct {
	envs map[string]*catalog.Environment
}

func (f *fakeEnvRepo) Create(ctx context.Context, env *catalog.Environment) error {
	return errors.NewInternalError("not implemented")
}
func (f *fakeEnvRepo) Update(ctx context.Context, env *catalog.Environment) error {
	return errors.NewInternalError("not implemented")
}
func (f *fakeEnvRepo) Get(ctx context.Context, id string) (*catalog.Environment, error) {
	env, ok := f.envs[id]
	if !ok {
		return nil, errors.NewNotFoundError("environment not found")
	}
	return env, nil
}
func (f *fakeEnvRepo) ListByOwner(ctx context.Context, ownerKey string) ([]*catalog.Environment, error) {
	return nil, errors.NewInternalError("not implemented")
}
func (f *fakeEnvRepo) Delete(ctx context.Context, id string) error {
	return errors.NewInternalError("not implemented")
}

type fakePoolRepo struct {
	pools []*pool.Pool
}

func (f *fakePoolRepo) Create(ctx context.Context, p *pool.Pool) error {
	return errors.NewInternalError("not implemented")
}
func (f *fakePoolRepo) Update(ctx context.Context, p *pool.Pool) error {
	return errors.NewInternalError("not implemented")
}
func (f *fakePoolRepo) Get(ctx context.Context, poolID string) (*pool.Pool, error) {
	for _, p := range f.pools {
		if p.ID() == poolID {
			return p, nil
		}
	}
	return nil, errors.NewNotFoundError("pool not found")
}
func (f *fakePoolRepo) GetForOwner(ctx context.Context, ownerKey, poolID string) (*pool.Pool, error) {
	return nil, errors.NewInternalError("not implemented")
}
func (f *fakePoolRepo) List(ctx context.Context, filter pool.ListFilter) ([]*pool.Pool, error) {
	var out []*pool.Pool
	for _, p := range f.pools {
		if filter.OwnerKey != "" && p.OwnerKey() != filter.OwnerKey {
			continue
		}
		if filter.ActiveOn != nil && !p.ActiveOn(*filter.ActiveOn) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}
func (f *fakePoolRepo) ListBySubscription(ctx context.Context, subscriptionID string) ([]*pool.Pool, error) {
	return nil, errors.NewInternalError("not implemented")
}
func (f *fakePoolRepo) FindStackDerived(ctx context.Context, ownerKey, hostUUID, stackID string) (*pool.Pool, error) {
	return nil, errors.NewNotFoundError("no derived pool")
}
func (f *fakePoolRepo) ListExpired(ctx context.Context, cutoff time.Time) ([]*pool.Pool, error) {
	return nil, errors.NewInternalError("not implemented")
}
func (f *fakePoolRepo) Delete(ctx context.Context, poolID string) error {
	return errors.NewInternalError("not implemented")
}
func (f *fakePoolRepo) ConsumedQuantity(ctx context.Context, poolID string) (int64, error) {
	return 0, errors.NewInternalError("not implemented")
}

type fakeEntRepo struct {
	ents []*entitlement.Entitlement
}

func (f *fakeEntRepo) Create(ctx context.Context, e *entitlement.Entitlement) error {
	return errors.NewInternalError("not implemented")
}
func (f *fakeEntRepo) Update(ctx context.Context, e *entitlement.Entitlement) error {
	return errors.NewInternalError("not implemented")
}
func (f *fakeEntRepo) Get(ctx context.Context, entID string) (*entitlement.Entitlement, error) {
	return nil, errors.NewInternalError("not implemented")
}
func (f *fakeEntRepo) ListByConsumer(ctx context.Context, consumerUUID string) ([]*entitlement.Entitlement, error) {
	var out []*entitlement.Entitlement
	for _, e := range f.ents {
		if e.ConsumerUUID() == consumerUUID {
			out = append(out, e)
		}
	}
	return out, nil
}
func (f *fakeEntRepo) ListByPool(ctx context.Context, poolID string) ([]*entitlement.Entitlement, error) {
	return nil, errors.NewInternalError("not implemented")
}
func (f *fakeEntRepo) Delete(ctx context.Context, entID string) error {
	return errors.NewInternalError("not implemented")
}
func (f *fakeEntRepo) DeleteByPool(ctx context.Context, poolID string) (int64, error) {
	return 0, errors.NewInternalError("not implemented")
}
func (f *fakeEntRepo) CountByConsumer(ctx context.Context, consumerUUID string) (int64, error) {
	return 0, errors.NewInternalError("not implemented")
}

type viewFixture struct {
	products *fakeProductRepo
	contents *fakeContentRepo
	envs     *fakeEnvRepo
	pools    *fakePoolRepo
	ents     *fakeEntRepo
	resolver *ContentViewResolver
}

func newViewFixture(t *testing.T) *viewFixture {
	t.Helper()
	f := &viewFixture{
		products: &fakeProductRepo{products: map[string]*catalog.Product{}},
		contents: &fakeContentRepo{contents: map[string]*catalog.Content{}},
		envs:     &fakeEnvRepo{envs: map[string]*catalog.Environment{}},
		pools:    &fakePoolRepo{},
		ents:     &fakeEntRepo{},
	}
	f.resolver = NewContentViewResolver(
		f.products, f.contents, f.envs, f.pools, f.ents, logger.NewLogger())
	return f
}

func (f *viewFixture) addProduct(t *testing.T, ownerKey, id string, attrs catalog.Attributes, links ...catalog.ProductContent) {
	t.Helper()
	p, err := catalog.NewProduct(id, "Product "+id, attrs, links, nil, nil, 1)
	require.NoError(t, err)
	f.products.products[ownerKey+"/"+id] = p
}

func (f *viewFixture) addContent(t *testing.T, ownerKey string, params catalog.ContentParams) {
	t.Helper()
	c, err := catalog.NewContent(params)
	require.NoError(t, err)
	f.contents.contents[ownerKey+"/"+params.ID] = c
}

func (f *viewFixture) addPool(t *testing.T, poolID, productID string, provided ...string) *pool.Pool {
	t.Helper()
	start := time.Now().UTC().Add(-time.Hour)
	p, err := pool.NewPool(pool.PoolParams{
		ID:                 poolID,
		OwnerKey:           "acme",
		ProductID:          productID,
		ProductName:        "Marketing " + productID,
		ProvidedProductIDs: provided,
		Quantity:           10,
		StartDate:          start,
		EndDate:            start.AddDate(1, 0, 0),
	})
	require.NoError(t, err)
	f.pools.pools = append(f.pools.pools, p)
	return p
}

func (f *viewFixture) addEntitlement(t *testing.T, entID, consumerUUID string, p *pool.Pool) *entitlement.Entitlement {
	t.Helper()
	added := time.Now().UTC().Add(-time.Minute)
	e, err := entitlement.ReconstructEntitlement(entID, "acme", consumerUUID, p.ID(), 1, 1, added, added, added)
	require.NoError(t, err)
	require.NoError(t, e.AttachPool(p))
	f.ents.ents = append(f.ents.ents, e)
	return e
}

func entitlementModeOwner(t *testing.T) *catalog.Owner {
	t.Helper()
	o, err := catalog.NewOwner("acme", "Acme Corp")
	require.NoError(t, err)
	require.NoError(t, o.SetContentAccess(nil, catalog.ContentAccessModeEntitlement))
	return o
}

func viewConsumer(t *testing.T, facts consumer.Facts) *consumer.Consumer {
	t.Helper()
	c, _, err := consumer.NewConsumer("box1", "acme", consumer.TypeSystem, facts)
	require.NoError(t, err)
	return c
}

func TestResolveForConsumer_EntitlementMode(t *testing.T) {
	f := newViewFixture(t)
	f.addContent(t, "acme", catalog.ContentParams{
		ID: "c1", Label: "base-repo", Vendor: "Acme", ContentURL: "/content/base",
	})
	f.addProduct(t, "acme", "eng1", nil, catalog.ProductContent{ContentID: "c1", Enabled: true})
	f.addProduct(t, "acme", "eng2", nil)

	cons := viewConsumer(t, nil)
	p1 := f.addPool(t, "pool1", "mkt1", "eng1")
	f.addEntitlement(t, "ent1", cons.UUID(), p1)
	// eng2 is sold through a pool nobody bound
	f.addPool(t, "pool2", "mkt2", "eng2")

	view, err := f.resolver.ResolveForConsumer(context.Background(), entitlementModeOwner(t), cons)
	require.NoError(t, err)

	var ids []string
	for _, pv := range view.Products {
		ids = append(ids, pv.ID)
	}
	// only the entitled pool's graph contributes; mkt1 itself has no
	// catalog entry and is skipped
	assert.Equal(t, []string{"eng1"}, ids)
	require.Len(t, view.Products[0].Content, 1)
	entry := view.Products[0].Content[0]
	assert.Equal(t, "c1", entry.ID)
	assert.True(t, entry.Enabled)
	assert.Equal(t, "/acme/content/base", entry.Path)
}

func TestResolveForConsumer_SimpleContentAccessAggregatesOrg(t *testing.T) {
	f := newViewFixture(t)
	f.addContent(t, "acme", catalog.ContentParams{ID: "c1", Label: "repo-one", ContentURL: "/content/one"})
	f.addContent(t, "acme", catalog.ContentParams{ID: "c2", Label: "repo-two", ContentURL: "/content/two"})
	f.addProduct(t, "acme", "eng1", nil, catalog.ProductContent{ContentID: "c1", Enabled: true})
	f.addProduct(t, "acme", "eng2", nil, catalog.ProductContent{ContentID: "c2", Enabled: false})

	f.addPool(t, "pool1", "mkt1", "eng1")
	f.addPool(t, "pool2", "mkt2", "eng2")

	owner, err := catalog.NewOwner("acme", "Acme Corp")
	require.NoError(t, err)
	require.True(t, owner.UsesSimpleContentAccess())

	// no entitlements at all, yet the whole org catalog is visible
	cons := viewConsumer(t, nil)
	view, err := f.resolver.ResolveForConsumer(context.Background(), owner, cons)
	require.NoError(t, err)

	var ids []string
	for _, pv := range view.Products {
		ids = append(ids, pv.ID)
	}
	assert.Equal(t, []string{"eng1", "eng2"}, ids)
}

func TestResolveForConsumer_SimpleContentAccessIncludesDerivedGraph(t *testing.T) {
	f := newViewFixture(t)
	f.addContent(t, "acme", catalog.ContentParams{ID: "cd", Label: "derived-repo", ContentURL: "/content/derived"})
	f.addContent(t, "acme", catalog.ContentParams{ID: "cs", Label: "sub-repo", ContentURL: "/content/sub"})
	f.addProduct(t, "acme", "engD", nil, catalog.ProductContent{ContentID: "cd", Enabled: true})
	f.addProduct(t, "acme", "engS", nil, catalog.ProductContent{ContentID: "cs", Enabled: true})

	start := time.Now().UTC().Add(-time.Hour)
	p, err := pool.NewPool(pool.PoolParams{
		ID:                        "pool1",
		OwnerKey:                  "acme",
		ProductID:                 "mkt1",
		ProductName:               "Marketing mkt1",
		DerivedProductID:          "mktD",
		DerivedProvidedProductIDs: []string{"engD"},
		SubProductID:              "mktS",
		SubProvidedProductIDs:     []string{"engS"},
		Quantity:                  10,
		StartDate:                 start,
		EndDate:                   start.AddDate(1, 0, 0),
	})
	require.NoError(t, err)
	f.pools.pools = append(f.pools.pools, p)

	owner, err := catalog.NewOwner("acme", "Acme Corp")
	require.NoError(t, err)
	require.True(t, owner.UsesSimpleContentAccess())

	view, err := f.resolver.ResolveForConsumer(context.Background(), owner, viewConsumer(t, nil))
	require.NoError(t, err)

	var ids []string
	for _, pv := range view.Products {
		ids = append(ids, pv.ID)
	}
	// derived and sub-provided products contribute even though nothing is
	// entitled; the marketing IDs have no catalog entries and are skipped
	assert.Equal(t, []string{"engD", "engS"}, ids)
	require.Len(t, view.Products[0].Content, 1)
	assert.Equal(t, "cd", view.Products[0].Content[0].ID)
	require.Len(t, view.Products[1].Content, 1)
	assert.Equal(t, "cs", view.Products[1].Content[0].ID)
}

func TestResolveForConsumer_ArchFiltering(t *testing.T) {
	f := newViewFixture(t)
	f.addContent(t, "acme", catalog.ContentParams{
		ID: "intel", Label: "intel-repo", ContentURL: "/content/intel", Arches: "x86_64",
	})
	f.addContent(t, "acme", catalog.ContentParams{
		ID: "any", Label: "any-repo", ContentURL: "/content/any",
	})
	f.addProduct(t, "acme", "eng1", nil,
		catalog.ProductContent{ContentID: "intel", Enabled: true},
		catalog.ProductContent{ContentID: "any", Enabled: true})

	cons := viewConsumer(t, consumer.Facts{consumer.FactArch: "ppc64"})
	p1 := f.addPool(t, "pool1", "mkt1", "eng1")
	f.addEntitlement(t, "ent1", cons.UUID(), p1)

	view, err := f.resolver.ResolveForConsumer(context.Background(), entitlementModeOwner(t), cons)
	require.NoError(t, err)

	require.Len(t, view.Products, 1)
	require.Len(t, view.Products[0].Content, 1)
	assert.Equal(t, "any", view.Products[0].Content[0].ID)
}

func TestResolveForConsumer_ProductArchInherited(t *testing.T) {
	f := newViewFixture(t)
	// content carries no arch list, product restricts to x86_64
	f.addContent(t, "acme", catalog.ContentParams{ID: "c1", Label: "repo", ContentURL: "/content/r"})
	f.addProduct(t, "acme", "eng1",
		catalog.Attributes{catalog.AttrArch: "x86_64"},
		catalog.ProductContent{ContentID: "c1", Enabled: true})

	cons := viewConsumer(t, consumer.Facts{consumer.FactArch: "ppc64"})
	p1 := f.addPool(t, "pool1", "mkt1", "eng1")
	f.addEntitlement(t, "ent1", cons.UUID(), p1)

	view, err := f.resolver.ResolveForConsumer(context.Background(), entitlementModeOwner(t), cons)
	require.NoError(t, err)
	require.Len(t, view.Products, 1)
	assert.Empty(t, view.Products[0].Content)
}

func TestResolveForConsumer_EnvironmentPromotion(t *testing.T) {
	f := newViewFixture(t)
	f.addContent(t, "acme", catalog.ContentParams{ID: "c1", Label: "promoted", ContentURL: "/content/one"})
	f.addContent(t, "acme", catalog.ContentParams{ID: "c2", Label: "unpromoted", ContentURL: "/content/two"})
	f.addProduct(t, "acme", "eng1", nil,
		catalog.ProductContent{ContentID: "c1", Enabled: false},
		catalog.ProductContent{ContentID: "c2", Enabled: true})

	env, err := catalog.NewEnvironment("env1", "acme", "Staging")
	require.NoError(t, err)
	// promotion flips the default enabled flag
	require.NoError(t, env.Promote("c1", true))
	f.envs.envs["env1"] = env

	cons := viewConsumer(t, nil)
	cons.SetEnvironments([]string{"env1"})
	p1 := f.addPool(t, "pool1", "mkt1", "eng1")
	f.addEntitlement(t, "ent1", cons.UUID(), p1)

	view, err := f.resolver.ResolveForConsumer(context.Background(), entitlementModeOwner(t), cons)
	require.NoError(t, err)

	require.Len(t, view.Products, 1)
	require.Len(t, view.Products[0].Content, 1)
	entry := view.Products[0].Content[0]
	assert.Equal(t, "c1", entry.ID)
	assert.True(t, entry.Enabled)
	// environment name is part of the content path
	assert.Equal(t, "/acme/Staging/content/one", entry.Path)
}

func TestResolveForConsumer_ModifierContent(t *testing.T) {
	f := newViewFixture(t)
	f.addContent(t, "acme", catalog.ContentParams{
		ID: "addon", Label: "addon-repo", ContentURL: "/content/addon",
		ModifiedProductIDs: []string{"eng9"},
	})
	f.addProduct(t, "acme", "eng1", nil, catalog.ProductContent{ContentID: "addon", Enabled: true})
	f.addProduct(t, "acme", "eng9", nil)

	owner := entitlementModeOwner(t)

	t.Run("hidden without entitlement to modified product", func(t *testing.T) {
		cons := viewConsumer(t, nil)
		p1 := f.addPool(t, "pool1", "mkt1", "eng1")
		f.addEntitlement(t, "ent1", cons.UUID(), p1)

		view, err := f.resolver.ResolveForConsumer(context.Background(), owner, cons)
		require.NoError(t, err)
		require.Len(t, view.Products, 1)
		assert.Empty(t, view.Products[0].Content)
	})

	t.Run("shown once the modified product is entitled", func(t *testing.T) {
		cons := viewConsumer(t, nil)
		p1 := f.addPool(t, "pool3", "mkt1", "eng1")
		p2 := f.addPool(t, "pool4", "mkt9", "eng9")
		f.addEntitlement(t, "ent3", cons.UUID(), p1)
		f.addEntitlement(t, "ent4", cons.UUID(), p2)

		view, err := f.resolver.ResolveForConsumer(context.Background(), owner, cons)
		require.NoError(t, err)
		require.Len(t, view.Products, 2)
		assert.Equal(t, "eng1", view.Products[0].ID)
		require.Len(t, view.Products[0].Content, 1)
		assert.Equal(t, "addon", view.Products[0].Content[0].ID)
	})
}

func TestResolveForEntitlement_LimitedToPoolGraph(t *testing.T) {
	f := newViewFixture(t)
	f.addContent(t, "acme", catalog.ContentParams{ID: "c1", Label: "repo-one", ContentURL: "/content/one"})
	f.addContent(t, "acme", catalog.ContentParams{ID: "c2", Label: "repo-two", ContentURL: "/content/two"})
	f.addProduct(t, "acme", "eng1", nil, catalog.ProductContent{ContentID: "c1", Enabled: true})
	f.addProduct(t, "acme", "eng2", nil, catalog.ProductContent{ContentID: "c2", Enabled: true})

	cons := viewConsumer(t, nil)
	p1 := f.addPool(t, "pool1", "mkt1", "eng1")
	p2 := f.addPool(t, "pool2", "mkt2", "eng2")
	e1 := f.addEntitlement(t, "ent1", cons.UUID(), p1)
	f.addEntitlement(t, "ent2", cons.UUID(), p2)

	view, err := f.resolver.ResolveForEntitlement(context.Background(), cons, e1)
	require.NoError(t, err)

	var ids []string
	for _, pv := range view.Products {
		ids = append(ids, pv.ID)
	}
	assert.Equal(t, []string{"eng1"}, ids)
}
