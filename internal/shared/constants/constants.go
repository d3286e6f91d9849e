package constants

const (
	// Environment constants
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"

	// Default pagination
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100

	// Table names
	TableOwners          = "owners"
	TableProductVersions = "product_versions"
	TableOwnerProducts   = "owner_products"
	TableContentVersions = "content_versions"
	TableOwnerContents   = "owner_contents"
	TableEnvironments    = "environments"
	TableSubscriptions   = "subscriptions"
	TablePools           = "pools"
	TableEntitlements    = "entitlements"
	TableCertificates    = "certificates"
	TableCertSerials     = "cert_serials"
	TableConsumers       = "consumers"
	TableActivationKeys  = "activation_keys"
	TableJobs            = "jobs"
)
