package pipeline

import (
	"context"

	"github.com/GabeCloud94/b2b-ez-catalogs/common/clients"
)

// Gateway is the commerce platform surface the pipeline needs. It is
// satisfied by clients.ShopifyAdmin; tests substitute a fake.
//
// All durable state lives behind this interface. The pipeline keeps none
// of its own, and none of the remote side effects it creates can be
// rolled back through it.
type Gateway interface {
	ListCompanyLocations(ctx context.Context) ([]clients.CompanyLocation, error)
	ListCollectionTitles(ctx context.Context) (map[string]struct{}, error)
	CreateCollection(ctx context.Context, title string, rule clients.Rule) (string, error)
	ResolveDefaultChannel(ctx context.Context) (string, error)
	Publish(ctx context.Context, resourceID, channelID string) error
	ListCatalogsForLocation(ctx context.Context, locationExternalID string) ([]string, error)
	IsLocationInCatalog(ctx context.Context, catalogID, locationID string) (bool, error)
	ListProductsInCatalogPublication(ctx context.Context, catalogID string) ([]clients.Product, error)
	AddTag(ctx context.Context, productID, tag string) error
}
