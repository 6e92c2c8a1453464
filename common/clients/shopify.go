package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/GabeCloud94/b2b-ez-catalogs/common/config"
)

// Logger interface for client logging
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// ShopifyAdmin talks to the Shopify Admin GraphQL API. It is the single
// place remote commerce state is read or written; the provisioning
// pipeline consumes it through its Gateway interface.
//
// No automatic retry or rate-limit backoff is configured: a throttled or
// failed call surfaces as a TransportError and the affected company's
// chain stops there.
type ShopifyAdmin struct {
	http     *resty.Client
	logger   Logger
	pageSize int
}

// NewShopifyAdmin creates an Admin API client from config
func NewShopifyAdmin(cfg *config.Config, logger Logger) *ShopifyAdmin {
	client := resty.New().
		SetBaseURL(cfg.AdminAPIURL()).
		SetTimeout(cfg.Shopify.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Shopify-Access-Token", cfg.Shopify.AccessToken)

	return &ShopifyAdmin{
		http:     client,
		logger:   logger,
		pageSize: cfg.Pipeline.ProductPageSize,
	}
}

// NewShopifyAdminForEndpoint creates a client against an explicit endpoint
// URL. Used by tests to point the client at a local server.
func NewShopifyAdminForEndpoint(endpoint, accessToken string, pageSize int, logger Logger) *ShopifyAdmin {
	client := resty.New().
		SetBaseURL(endpoint).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Shopify-Access-Token", accessToken)

	return &ShopifyAdmin{
		http:     client,
		logger:   logger,
		pageSize: pageSize,
	}
}

// ---------------------------------------------------------------------------
// GraphQL transport
// ---------------------------------------------------------------------------

type graphqlRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type graphqlEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphqlError  `json:"errors"`
}

type graphqlError struct {
	Message string `json:"message"`
}

// call executes one GraphQL request and decodes the data payload into dest.
// Network failures, non-200 responses and request-level GraphQL errors all
// map to TransportError; dest is only populated on success.
func (c *ShopifyAdmin) call(ctx context.Context, op, query string, variables map[string]interface{}, dest interface{}) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(graphqlRequest{Query: query, Variables: variables}).
		Post("")
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}

	if resp.StatusCode() != http.StatusOK {
		return &TransportError{
			Op:         op,
			StatusCode: resp.StatusCode(),
			Err:        fmt.Errorf("unexpected response: %s", strings.TrimSpace(string(resp.Body()))),
		}
	}

	var envelope graphqlEnvelope
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}

	if len(envelope.Errors) > 0 {
		msgs := make([]string, 0, len(envelope.Errors))
		for _, ge := range envelope.Errors {
			msgs = append(msgs, ge.Message)
		}
		return &TransportError{Op: op, Err: fmt.Errorf("graphql errors: %s", strings.Join(msgs, "; "))}
	}

	if envelope.Data == nil {
		return &TransportError{Op: op, Err: fmt.Errorf("response has no data")}
	}

	if err := json.Unmarshal(envelope.Data, dest); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("decode data: %w", err)}
	}

	return nil
}

// wireUserError is the userErrors shape on the wire; field is a path array
type wireUserError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

func convertUserErrors(wire []wireUserError) []UserError {
	if len(wire) == 0 {
		return nil
	}
	out := make([]UserError, 0, len(wire))
	for _, w := range wire {
		out = append(out, UserError{
			Field:   strings.Join(w.Field, "."),
			Message: w.Message,
		})
	}
	return out
}

type edges[T any] struct {
	Edges []struct {
		Node T `json:"node"`
	} `json:"edges"`
}

func (e edges[T]) nodes() []T {
	out := make([]T, 0, len(e.Edges))
	for _, edge := range e.Edges {
		out = append(out, edge.Node)
	}
	return out
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

const queryCompanyLocations = `
query getCompanyLocations {
  companyLocations(first: 20) {
    edges {
      node {
        id
        name
        externalId
        inCatalog
      }
    }
  }
}`

// ListCompanyLocations returns the shop's B2B company locations
func (c *ShopifyAdmin) ListCompanyLocations(ctx context.Context) ([]CompanyLocation, error) {
	var data struct {
		CompanyLocations edges[CompanyLocation] `json:"companyLocations"`
	}
	if err := c.call(ctx, "companyLocations", queryCompanyLocations, nil, &data); err != nil {
		return nil, err
	}
	return data.CompanyLocations.nodes(), nil
}

const queryCollections = `
query getCollections {
  collections(first: 250) {
    edges {
      node {
        id
        title
      }
    }
  }
}`

// ListCollectionTitles returns the titles of all existing collections
func (c *ShopifyAdmin) ListCollectionTitles(ctx context.Context) (map[string]struct{}, error) {
	var data struct {
		Collections edges[struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		}] `json:"collections"`
	}
	if err := c.call(ctx, "collections", queryCollections, nil, &data); err != nil {
		return nil, err
	}

	titles := make(map[string]struct{}, len(data.Collections.Edges))
	for _, node := range data.Collections.nodes() {
		titles[node.Title] = struct{}{}
	}
	return titles, nil
}

const queryPublications = `
query publications {
  publications(first: 1) {
    edges {
      node {
        id
      }
    }
  }
}`

// ResolveDefaultChannel returns the id of the shop's first sales channel.
// There is no channel selection logic: collections are always published to
// the first publication the platform returns.
func (c *ShopifyAdmin) ResolveDefaultChannel(ctx context.Context) (string, error) {
	var data struct {
		Publications edges[struct {
			ID string `json:"id"`
		}] `json:"publications"`
	}
	if err := c.call(ctx, "publications", queryPublications, nil, &data); err != nil {
		return "", err
	}

	nodes := data.Publications.nodes()
	if len(nodes) == 0 {
		return "", &TransportError{Op: "publications", Err: fmt.Errorf("shop has no publications")}
	}
	return nodes[0].ID, nil
}

const queryCatalogs = `
query getCatalogs($companyLocationExternalId: String!) {
  catalogs(first: 20, query: $companyLocationExternalId) {
    edges {
      node {
        id
      }
    }
  }
}`

// ListCatalogsForLocation returns candidate catalog ids for a company
// location. The search is scoped to an organizational structure broader
// than a single location, so membership is not confirmed by presence in
// this result; callers must check IsLocationInCatalog per catalog.
func (c *ShopifyAdmin) ListCatalogsForLocation(ctx context.Context, locationExternalID string) ([]string, error) {
	var data struct {
		Catalogs edges[struct {
			ID string `json:"id"`
		}] `json:"catalogs"`
	}
	vars := map[string]interface{}{"companyLocationExternalId": locationExternalID}
	if err := c.call(ctx, "catalogs", queryCatalogs, vars, &data); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(data.Catalogs.Edges))
	for _, node := range data.Catalogs.nodes() {
		ids = append(ids, node.ID)
	}
	return ids, nil
}

const queryLocationInCatalog = `
query getCompanyLocation($catalogId: ID!, $companyLocationId: ID!) {
  companyLocation(id: $companyLocationId) {
    id
    inCatalog(catalogId: $catalogId)
  }
}`

// IsLocationInCatalog is the authoritative membership check for one
// catalog and one company location.
func (c *ShopifyAdmin) IsLocationInCatalog(ctx context.Context, catalogID, locationID string) (bool, error) {
	var data struct {
		CompanyLocation *struct {
			ID        string `json:"id"`
			InCatalog bool   `json:"inCatalog"`
		} `json:"companyLocation"`
	}
	vars := map[string]interface{}{
		"catalogId":         catalogID,
		"companyLocationId": locationID,
	}
	if err := c.call(ctx, "companyLocation.inCatalog", queryLocationInCatalog, vars, &data); err != nil {
		return false, err
	}

	if data.CompanyLocation == nil {
		return false, &TransportError{
			Op:  "companyLocation.inCatalog",
			Err: fmt.Errorf("company location %s not found", locationID),
		}
	}
	return data.CompanyLocation.InCatalog, nil
}

const queryCatalogProducts = `
query getProducts($catalogId: ID!, $first: Int!) {
  catalog(id: $catalogId) {
    publication {
      products(first: $first) {
        edges {
          node {
            id
            title
          }
        }
      }
    }
  }
}`

// ListProductsInCatalogPublication returns the first page of products
// visible through a catalog's publication. Only one page is ever fetched
// (limit 250); products beyond it are not seen by the pipeline.
func (c *ShopifyAdmin) ListProductsInCatalogPublication(ctx context.Context, catalogID string) ([]Product, error) {
	var data struct {
		Catalog *struct {
			Publication *struct {
				Products edges[Product] `json:"products"`
			} `json:"publication"`
		} `json:"catalog"`
	}
	vars := map[string]interface{}{
		"catalogId": catalogID,
		"first":     c.pageSize,
	}
	if err := c.call(ctx, "catalog.publication.products", queryCatalogProducts, vars, &data); err != nil {
		return nil, err
	}

	// A catalog without a publication exposes no products; not an error.
	if data.Catalog == nil || data.Catalog.Publication == nil {
		return nil, nil
	}
	return data.Catalog.Publication.Products.nodes(), nil
}

// ---------------------------------------------------------------------------
// Mutations
// ---------------------------------------------------------------------------

const mutationCollectionCreate = `
mutation CollectionCreate($input: CollectionInput!) {
  collectionCreate(input: $input) {
    userErrors {
      field
      message
    }
    collection {
      id
      title
    }
  }
}`

// CreateCollection creates a rule-based collection and returns its id.
// Field-level rejections (e.g. duplicate title) come back as a
// ValidationError.
func (c *ShopifyAdmin) CreateCollection(ctx context.Context, title string, rule Rule) (string, error) {
	var data struct {
		CollectionCreate struct {
			UserErrors []wireUserError `json:"userErrors"`
			Collection *struct {
				ID    string `json:"id"`
				Title string `json:"title"`
			} `json:"collection"`
		} `json:"collectionCreate"`
	}

	vars := map[string]interface{}{
		"input": map[string]interface{}{
			"title": title,
			"ruleSet": map[string]interface{}{
				"appliedDisjunctively": false,
				"rules":                rule,
			},
		},
	}

	if err := c.call(ctx, "collectionCreate", mutationCollectionCreate, vars, &data); err != nil {
		return "", err
	}

	if len(data.CollectionCreate.UserErrors) > 0 {
		return "", &ValidationError{
			Op:     "collectionCreate",
			Errors: convertUserErrors(data.CollectionCreate.UserErrors),
		}
	}

	if data.CollectionCreate.Collection == nil {
		return "", &TransportError{Op: "collectionCreate", Err: fmt.Errorf("no collection in response")}
	}

	c.logger.Debug("collection created",
		"id", data.CollectionCreate.Collection.ID,
		"title", data.CollectionCreate.Collection.Title)

	return data.CollectionCreate.Collection.ID, nil
}

const mutationPublishablePublish = `
mutation publishablePublish($id: ID!, $input: [PublicationInput!]!) {
  publishablePublish(id: $id, input: $input) {
    publishable {
      availablePublicationsCount {
        count
      }
      resourcePublicationsCount {
        count
      }
    }
    userErrors {
      field
      message
    }
  }
}`

// Publish publishes a resource (here: a collection) to a sales channel
func (c *ShopifyAdmin) Publish(ctx context.Context, resourceID, channelID string) error {
	var data struct {
		PublishablePublish struct {
			UserErrors []wireUserError `json:"userErrors"`
		} `json:"publishablePublish"`
	}

	vars := map[string]interface{}{
		"id": resourceID,
		"input": []map[string]interface{}{
			{"publicationId": channelID},
		},
	}

	if err := c.call(ctx, "publishablePublish", mutationPublishablePublish, vars, &data); err != nil {
		return err
	}

	if len(data.PublishablePublish.UserErrors) > 0 {
		return &ValidationError{
			Op:     "publishablePublish",
			Errors: convertUserErrors(data.PublishablePublish.UserErrors),
		}
	}

	return nil
}

const mutationTagsAdd = `
mutation addTags($id: ID!, $tags: [String!]!) {
  tagsAdd(id: $id, tags: $tags) {
    node {
      id
    }
    userErrors {
      message
    }
  }
}`

// AddTag appends a tag to a product. Tags are additive; nothing is ever
// removed by this service.
func (c *ShopifyAdmin) AddTag(ctx context.Context, productID, tag string) error {
	var data struct {
		TagsAdd struct {
			UserErrors []wireUserError `json:"userErrors"`
		} `json:"tagsAdd"`
	}

	vars := map[string]interface{}{
		"id":   productID,
		"tags": []string{tag},
	}

	if err := c.call(ctx, "tagsAdd", mutationTagsAdd, vars, &data); err != nil {
		return err
	}

	if len(data.TagsAdd.UserErrors) > 0 {
		return &ValidationError{
			Op:     "tagsAdd",
			Errors: convertUserErrors(data.TagsAdd.UserErrors),
		}
	}

	return nil
}
