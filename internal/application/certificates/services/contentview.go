package services

import (
	"context"
	"sort"
	"time"

	"github.com/entgrid-io/entgrid/internal/domain/catalog"
	"github.com/entgrid-io/entgrid/internal/domain/consumer"
	"github.com/entgrid-io/entgrid/internal/domain/entitlement"
	"github.com/entgrid-io/entgrid/internal/domain/pool"
	"github.com/entgrid-io/entgrid/internal/shared/errors"
	"github.com/entgrid-io/entgrid/internal/shared/logger"
)

// ContentEntry is one repository a consumer may reach through its view.
type ContentEntry struct {
	ID             string `json:"id"`
	Type           string `json:"type"`
	Name           string `json:"name"`
	Label          string `json:"label"`
	Vendor         string `json:"vendor"`
	Path           string `json:"path"`
	Enabled        bool   `json:"enabled"`
	Arches         string `json:"arches,omitempty"`
	GpgURL         string `json:"gpg_url,omitempty"`
	MetadataExpire int64  `json:"metadata_expire,omitempty"`
	RequiredTags   string `json:"required_tags,omitempty"`
}

// ProductView is the content a consumer sees for one product.
type ProductView struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Content []ContentEntry `json:"content"`
}

// ContentView is the full resolved view for a consumer: which content the
// consumer may access, after arch, environment, and modifier filtering.
type ContentView struct {
	Products []ProductView `json:"products"`
}

// ContentViewResolver computes consumer content views from the catalog and
// the consumer's entitlement state.
type ContentViewResolver struct {
	productRepo catalog.ProductRepository
	contentRepo catalog.ContentRepository
	envRepo     catalog.EnvironmentRepository
	poolRepo    pool.Repository
	entRepo     entitlement.Repository
	logger      logger.Interface
}

func NewContentViewResolver(
	productRepo catalog.ProductRepository,
	contentRepo catalog.ContentRepository,
	envRepo catalog.EnvironmentRepository,
	poolRepo pool.Repository,
	entRepo entitlement.Repository,
	log logger.Interface,
) *ContentViewResolver {
	return &ContentViewResolver{
		productRepo: productRepo,
		contentRepo: contentRepo,
		envRepo:     envRepo,
		poolRepo:    poolRepo,
		entRepo:     entRepo,
		logger:      log,
	}
}

// ResolveForConsumer computes the consumer's org-level view. Under simple
// content access the view aggregates content across every active pool's full
// product graph; otherwise only the consumer's own entitlements contribute.
func (r *ContentViewResolver) ResolveForConsumer(ctx context.Context, owner *catalog.Owner, cons *consumer.Consumer) (*ContentView, error) {
	now := time.Now().UTC()

	entitled, err := r.entitledProductIDs(ctx, cons, now)
	if err != nil {
		return nil, err
	}

	var productIDs []string
	if owner.UsesSimpleContentAccess() {
		pools, err := r.poolRepo.List(ctx, pool.ListFilter{OwnerKey: owner.Key(), ActiveOn: &now, IncludeDerived: true})
		if err != nil {
			return nil, err
		}
		set := make(map[string]bool)
		for _, p := range pools {
			addPoolProductGraph(set, p)
		}
		for id := range set {
			productIDs = append(productIDs, id)
		}
		sort.Strings(productIDs)
		// Under SCA every org product is reachable, so modifier content is
		// judged against the whole graph rather than held entitlements.
		entitled = set
	} else {
		for id := range entitled {
			productIDs = append(productIDs, id)
		}
		sort.Strings(productIDs)
	}

	return r.resolve(ctx, owner.Key(), cons, productIDs, entitled)
}

// ResolveForEntitlement computes the view a single entitlement certificate
// encodes: the entitlement's pool product graph only. Modifier content still
// considers everything the consumer holds, including entitlements granted in
// the same bind batch.
func (r *ContentViewResolver) ResolveForEntitlement(ctx context.Context, cons *consumer.Consumer, ent *entitlement.Entitlement) (*ContentView, error) {
	p := ent.Pool()
	if p == nil {
		loaded, err := r.poolRepo.Get(ctx, ent.PoolID())
		if err != nil {
			return nil, err
		}
		p = loaded
	}

	set := map[string]bool{p.ProductID(): true}
	for _, id := range p.ProvidedProductIDs() {
		set[id] = true
	}
	productIDs := make([]string, 0, len(set))
	for id := range set {
		productIDs = append(productIDs, id)
	}
	sort.Strings(productIDs)

	entitled, err := r.entitledProductIDs(ctx, cons, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	for id := range set {
		entitled[id] = true
	}

	return r.resolve(ctx, p.OwnerKey(), cons, productIDs, entitled)
}

// addPoolProductGraph records every product a pool reaches: the marketing
// product, its provided products, and the derived and sub products with
// their provided lists.
func addPoolProductGraph(set map[string]bool, p *pool.Pool) {
	set[p.ProductID()] = true
	for _, id := range p.ProvidedProductIDs() {
		set[id] = true
	}
	if id := p.DerivedProductID(); id != "" {
		set[id] = true
	}
	for _, id := range p.DerivedProvidedProductIDs() {
		set[id] = true
	}
	if id := p.SubProductID(); id != "" {
		set[id] = true
	}
	for _, id := range p.SubProvidedProductIDs() {
		set[id] = true
	}
}

// entitledProductIDs collects every product ID the consumer's active
// entitlements reference, the set modifier content is conditioned on.
func (r *ContentViewResolver) entitledProductIDs(ctx context.Context, cons *consumer.Consumer, onDate time.Time) (map[string]bool, error) {
	ents, err := r.entRepo.ListByConsumer(ctx, cons.UUID())
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool)
	for _, ent := range ents {
		p := ent.Pool()
		if p == nil {
			loaded, err := r.poolRepo.Get(ctx, ent.PoolID())
			if err != nil {
				if errors.IsNotFoundError(err) {
					continue
				}
				return nil, err
			}
			p = loaded
		}
		if !p.ActiveOn(onDate) {
			continue
		}
		set[p.ProductID()] = true
		for _, id := range p.ProvidedProductIDs() {
			set[id] = true
		}
	}
	return set, nil
}

func (r *ContentViewResolver) resolve(
	ctx context.Context,
	ownerKey string,
	cons *consumer.Consumer,
	productIDs []string,
	entitled map[string]bool,
) (*ContentView, error) {
	envs, err := r.consumerEnvironments(ctx, cons)
	if err != nil {
		return nil, err
	}

	view := &ContentView{}
	for _, productID := range productIDs {
		product, err := r.productRepo.GetForOwner(ctx, ownerKey, productID)
		if err != nil {
			if errors.IsNotFoundError(err) {
				continue
			}
			return nil, err
		}

		pv := ProductView{ID: product.ID(), Name: product.Name()}
		for _, link := range product.Content() {
			content, err := r.contentRepo.GetForOwner(ctx, ownerKey, link.ContentID)
			if err != nil {
				if errors.IsNotFoundError(err) {
					continue
				}
				return nil, err
			}
			entry, ok := r.filterContent(cons, product, content, link.Enabled, entitled, envs)
			if !ok {
				continue
			}
			entry.Path = contentPath(ownerKey, envs, content)
			pv.Content = append(pv.Content, entry)
		}
		sort.Slice(pv.Content, func(i, j int) bool { return pv.Content[i].ID < pv.Content[j].ID })
		view.Products = append(view.Products, pv)
	}
	return view, nil
}

// filterContent applies the arch, environment, and modifier filters to one
// content link and returns the resulting entry when it survives.
func (r *ContentViewResolver) filterContent(
	cons *consumer.Consumer,
	product *catalog.Product,
	content *catalog.Content,
	linkEnabled bool,
	entitled map[string]bool,
	envs []*catalog.Environment,
) (ContentEntry, bool) {
	arch := cons.Facts().Arch()

	// Content with no arch list inherits the product's; neither present
	// means the content matches everything.
	if content.Arches() != "" {
		if !content.MatchesArch(arch) {
			return ContentEntry{}, false
		}
	} else if productArch := product.Attribute(catalog.AttrArch); productArch != "" {
		if !catalog.ArchMatches(productArch, arch) {
			return ContentEntry{}, false
		}
	}

	enabled := linkEnabled
	if len(envs) > 0 {
		promoted := false
		for _, env := range envs {
			if promotion, ok := env.Promotion(content.ID()); ok {
				promoted = true
				enabled = promotion.Enabled
				break
			}
		}
		if !promoted {
			return ContentEntry{}, false
		}
	}

	// Modifier content only appears when something the consumer is
	// entitled to is among the products it modifies.
	if content.IsConditional() {
		modifies := false
		for _, id := range content.ModifiedProductIDs() {
			if entitled[id] {
				modifies = true
				break
			}
		}
		if !modifies {
			return ContentEntry{}, false
		}
	}

	return ContentEntry{
		ID:             content.ID(),
		Type:           content.Type(),
		Name:           content.Name(),
		Label:          content.Label(),
		Vendor:         content.Vendor(),
		Enabled:        enabled,
		Arches:         content.Arches(),
		GpgURL:         content.GpgURL(),
		MetadataExpire: content.MetadataExpire(),
		RequiredTags:   content.RequiredTags(),
	}, true
}

func (r *ContentViewResolver) consumerEnvironments(ctx context.Context, cons *consumer.Consumer) ([]*catalog.Environment, error) {
	ids := cons.EnvironmentIDs()
	if len(ids) == 0 {
		return nil, nil
	}
	envs := make([]*catalog.Environment, 0, len(ids))
	for _, id := range ids {
		env, err := r.envRepo.Get(ctx, id)
		if err != nil {
			if errors.IsNotFoundError(err) {
				r.logger.Warnw("consumer references missing environment",
					"consumer_uuid", cons.UUID(), "environment_id", id)
				continue
			}
			return nil, err
		}
		envs = append(envs, env)
	}
	return envs, nil
}

// contentPath prefixes the content URL with the owner key and, when the
// consumer sits in environments, the first environment's name.
func contentPath(ownerKey string, envs []*catalog.Environment, content *catalog.Content) string {
	path := "/" + ownerKey
	if len(envs) > 0 {
		path += "/" + envs[0].Name()
	}
	return path + content.ContentURL()
}
