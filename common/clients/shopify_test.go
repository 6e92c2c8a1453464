package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}
func (nopLogger) Warn(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Debug(msg string, keysAndValues ...interface{}) {}

// graphqlServer fakes the Admin API: one handler receives every request,
// decodes the GraphQL payload and responds based on the query text.
func graphqlServer(t *testing.T, handler func(t *testing.T, query string, variables map[string]interface{}) (int, string)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query     string                 `json:"query"`
			Variables map[string]interface{} `json:"variables"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		status, body := handler(t, req.Query, req.Variables)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
}

func newTestClient(srv *httptest.Server) *ShopifyAdmin {
	return NewShopifyAdminForEndpoint(srv.URL, "test-token", 250, nopLogger{})
}

func TestListCompanyLocations(t *testing.T) {
	srv := graphqlServer(t, func(t *testing.T, query string, _ map[string]interface{}) (int, string) {
		require.Contains(t, query, "companyLocations(first: 20)")
		return 200, `{"data":{"companyLocations":{"edges":[
			{"node":{"id":"loc-1","name":"Acme","externalId":"ext-1","inCatalog":false}},
			{"node":{"id":"loc-2","name":"Globex","externalId":"ext-2","inCatalog":true}}
		]}}}`
	})
	defer srv.Close()

	locations, err := newTestClient(srv).ListCompanyLocations(context.Background())
	require.NoError(t, err)
	require.Len(t, locations, 2)
	assert.Equal(t, CompanyLocation{ID: "loc-1", Name: "Acme", ExternalID: "ext-1"}, locations[0])
	assert.True(t, locations[1].InCatalog)
}

func TestAccessTokenHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-token", r.Header.Get("X-Shopify-Access-Token"))
		w.Write([]byte(`{"data":{"companyLocations":{"edges":[]}}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).ListCompanyLocations(context.Background())
	require.NoError(t, err)
}

func TestCreateCollection(t *testing.T) {
	srv := graphqlServer(t, func(t *testing.T, query string, vars map[string]interface{}) (int, string) {
		require.Contains(t, query, "collectionCreate")

		input := vars["input"].(map[string]interface{})
		assert.Equal(t, "Acme Catalog", input["title"])

		ruleSet := input["ruleSet"].(map[string]interface{})
		assert.Equal(t, false, ruleSet["appliedDisjunctively"])

		rule := ruleSet["rules"].(map[string]interface{})
		assert.Equal(t, "TAG", rule["column"])
		assert.Equal(t, "EQUALS", rule["relation"])
		assert.Equal(t, "Acme", rule["condition"])

		return 200, `{"data":{"collectionCreate":{"userErrors":[],"collection":{"id":"col-1","title":"Acme Catalog"}}}}`
	})
	defer srv.Close()

	id, err := newTestClient(srv).CreateCollection(context.Background(), "Acme Catalog", TagRule("Acme"))
	require.NoError(t, err)
	assert.Equal(t, "col-1", id)
}

func TestCreateCollection_UserErrors(t *testing.T) {
	srv := graphqlServer(t, func(t *testing.T, query string, _ map[string]interface{}) (int, string) {
		return 200, `{"data":{"collectionCreate":{
			"userErrors":[{"field":["input","title"],"message":"has already been taken"}],
			"collection":null}}}`
	})
	defer srv.Close()

	_, err := newTestClient(srv).CreateCollection(context.Background(), "Acme Catalog", TagRule("Acme"))
	require.Error(t, err)

	ve, ok := AsValidation(err)
	require.True(t, ok, "expected ValidationError, got %T", err)
	require.Len(t, ve.Errors, 1)
	assert.Equal(t, "input.title", ve.Errors[0].Field)
	assert.Equal(t, "has already been taken", ve.Errors[0].Message)
}

func TestCall_ServerError(t *testing.T) {
	srv := graphqlServer(t, func(t *testing.T, query string, _ map[string]interface{}) (int, string) {
		return 502, `upstream unavailable`
	})
	defer srv.Close()

	_, err := newTestClient(srv).ListCompanyLocations(context.Background())
	require.Error(t, err)

	te, ok := AsTransport(err)
	require.True(t, ok, "expected TransportError, got %T", err)
	assert.Equal(t, 502, te.StatusCode)
}

func TestCall_GraphQLErrors(t *testing.T) {
	srv := graphqlServer(t, func(t *testing.T, query string, _ map[string]interface{}) (int, string) {
		return 200, `{"errors":[{"message":"Throttled"}]}`
	})
	defer srv.Close()

	_, err := newTestClient(srv).ListCompanyLocations(context.Background())
	require.Error(t, err)

	te, ok := AsTransport(err)
	require.True(t, ok)
	assert.Contains(t, te.Error(), "Throttled")
}

func TestResolveDefaultChannel(t *testing.T) {
	srv := graphqlServer(t, func(t *testing.T, query string, _ map[string]interface{}) (int, string) {
		require.Contains(t, query, "publications(first: 1)")
		return 200, `{"data":{"publications":{"edges":[{"node":{"id":"pub-1"}}]}}}`
	})
	defer srv.Close()

	id, err := newTestClient(srv).ResolveDefaultChannel(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "pub-1", id)
}

func TestResolveDefaultChannel_NoPublications(t *testing.T) {
	srv := graphqlServer(t, func(t *testing.T, query string, _ map[string]interface{}) (int, string) {
		return 200, `{"data":{"publications":{"edges":[]}}}`
	})
	defer srv.Close()

	_, err := newTestClient(srv).ResolveDefaultChannel(context.Background())
	require.Error(t, err)
	_, ok := AsTransport(err)
	assert.True(t, ok)
}

func TestIsLocationInCatalog(t *testing.T) {
	srv := graphqlServer(t, func(t *testing.T, query string, vars map[string]interface{}) (int, string) {
		assert.Equal(t, "cat-1", vars["catalogId"])
		assert.Equal(t, "loc-1", vars["companyLocationId"])
		return 200, `{"data":{"companyLocation":{"id":"loc-1","inCatalog":true}}}`
	})
	defer srv.Close()

	in, err := newTestClient(srv).IsLocationInCatalog(context.Background(), "cat-1", "loc-1")
	require.NoError(t, err)
	assert.True(t, in)
}

func TestIsLocationInCatalog_LocationMissing(t *testing.T) {
	srv := graphqlServer(t, func(t *testing.T, query string, _ map[string]interface{}) (int, string) {
		return 200, `{"data":{"companyLocation":null}}`
	})
	defer srv.Close()

	_, err := newTestClient(srv).IsLocationInCatalog(context.Background(), "cat-1", "loc-9")
	require.Error(t, err)
	_, ok := AsTransport(err)
	assert.True(t, ok)
}

func TestListProductsInCatalogPublication(t *testing.T) {
	srv := graphqlServer(t, func(t *testing.T, query string, vars map[string]interface{}) (int, string) {
		assert.Equal(t, "cat-1", vars["catalogId"])
		// json decodes numbers as float64
		assert.Equal(t, float64(250), vars["first"])
		return 200, `{"data":{"catalog":{"publication":{"products":{"edges":[
			{"node":{"id":"p-1","title":"Widget"}},
			{"node":{"id":"p-2","title":"Gadget"}}
		]}}}}}`
	})
	defer srv.Close()

	products, err := newTestClient(srv).ListProductsInCatalogPublication(context.Background(), "cat-1")
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, Product{ID: "p-1", Title: "Widget"}, products[0])
}

func TestListProductsInCatalogPublication_NoPublication(t *testing.T) {
	srv := graphqlServer(t, func(t *testing.T, query string, _ map[string]interface{}) (int, string) {
		return 200, `{"data":{"catalog":{"publication":null}}}`
	})
	defer srv.Close()

	products, err := newTestClient(srv).ListProductsInCatalogPublication(context.Background(), "cat-1")
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestAddTag(t *testing.T) {
	srv := graphqlServer(t, func(t *testing.T, query string, vars map[string]interface{}) (int, string) {
		assert.Equal(t, "p-1", vars["id"])
		assert.Equal(t, []interface{}{"Acme"}, vars["tags"])
		return 200, `{"data":{"tagsAdd":{"node":{"id":"p-1"},"userErrors":[]}}}`
	})
	defer srv.Close()

	err := newTestClient(srv).AddTag(context.Background(), "p-1", "Acme")
	require.NoError(t, err)
}

func TestAddTag_UserErrors(t *testing.T) {
	srv := graphqlServer(t, func(t *testing.T, query string, _ map[string]interface{}) (int, string) {
		return 200, `{"data":{"tagsAdd":{"node":null,"userErrors":[{"message":"Product does not exist"}]}}}`
	})
	defer srv.Close()

	err := newTestClient(srv).AddTag(context.Background(), "p-0", "Acme")
	require.Error(t, err)

	ve, ok := AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "Product does not exist", ve.Errors[0].Message)
}

func TestPublish_UserErrors(t *testing.T) {
	srv := graphqlServer(t, func(t *testing.T, query string, vars map[string]interface{}) (int, string) {
		assert.Equal(t, "col-1", vars["id"])
		return 200, `{"data":{"publishablePublish":{"userErrors":[{"field":["id"],"message":"Publishable not found"}]}}}`
	})
	defer srv.Close()

	err := newTestClient(srv).Publish(context.Background(), "col-1", "pub-1")
	require.Error(t, err)
	_, ok := AsValidation(err)
	assert.True(t, ok)
}

func TestListCollectionTitles(t *testing.T) {
	srv := graphqlServer(t, func(t *testing.T, query string, _ map[string]interface{}) (int, string) {
		require.Contains(t, query, "collections(first: 250)")
		return 200, `{"data":{"collections":{"edges":[
			{"node":{"id":"col-1","title":"Acme Catalog"}},
			{"node":{"id":"col-2","title":"Summer Sale"}}
		]}}}`
	})
	defer srv.Close()

	titles, err := newTestClient(srv).ListCollectionTitles(context.Background())
	require.NoError(t, err)
	require.Len(t, titles, 2)

	_, ok := titles["Acme Catalog"]
	assert.True(t, ok)
	_, ok = titles["Summer Sale"]
	assert.True(t, ok)
}
