package catalog

import "context"

// OwnerRepository persists owners.
type OwnerRepository interface {
	Create(ctx context.Context, owner *Owner) error
	Update(ctx context.Context, owner *Owner) error
	GetByKey(ctx context.Context, key string) (*Owner, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]*Owner, error)
}

// ProductRepository persists content-addressed product versions and the
// per-owner links that resolve a product ID for a given owner.
type ProductRepository interface {
	// StoreVersion persists a product version if its hash is not yet known
	// and returns the stored version. Existing versions are shared.
	StoreVersion(ctx context.Context, product *Product) (*Product, error)
	// LinkOwner points an owner's view of a product ID at a version hash.
	LinkOwner(ctx context.Context, ownerKey, productID, versionHash string) error
	// UnlinkOwner removes an owner's view of a product ID.
	UnlinkOwner(ctx context.Context, ownerKey, productID string) error
	// GetForOwner resolves a product ID through the owner's link.
	GetForOwner(ctx context.Context, ownerKey, productID string) (*Product, error)
	// ListForOwner returns every product visible to the owner.
	ListForOwner(ctx context.Context, ownerKey string) ([]*Product, error)
	// GetVersion loads a specific version by hash.
	GetVersion(ctx context.Context, versionHash string) (*Product, error)
	// DeleteOrphanedVersions removes versions no owner links to and returns
	// how many were removed. Referenced versions must never be deleted.
	DeleteOrphanedVersions(ctx context.Context) (int64, error)
}

// ContentRepository mirrors ProductRepository for content versions.
type ContentRepository interface {
	StoreVersion(ctx context.Context, content *Content) (*Content, error)
	LinkOwner(ctx context.Context, ownerKey, contentID, versionHash string) error
	UnlinkOwner(ctx context.Context, ownerKey, contentID string) error
	GetForOwner(ctx context.Context, ownerKey, contentID string) (*Content, error)
	ListForOwner(ctx context.Context, ownerKey string) ([]*Content, error)
	DeleteOrphanedVersions(ctx context.Context) (int64, error)
}

// EnvironmentRepository persists environments and their promotions.
type EnvironmentRepository interface {
	Create(ctx context.Context, env *Environment) error
	Update(ctx context.Context, env *Environment) error
	Get(ctx context.Context, id string) (*Environment, error)
	ListByOwner(ctx context.Context, ownerKey string) ([]*Environment, error)
	Delete(ctx context.Context, id string) error
}
