package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/GabeCloud94/b2b-ez-catalogs/cmd/provisioner/models"
	"github.com/GabeCloud94/b2b-ez-catalogs/cmd/provisioner/pipeline"
	"github.com/GabeCloud94/b2b-ez-catalogs/common/bootstrap"
	"github.com/GabeCloud94/b2b-ez-catalogs/common/cache"
	"github.com/GabeCloud94/b2b-ez-catalogs/common/clients"
	"github.com/GabeCloud94/b2b-ez-catalogs/common/config"
	"github.com/GabeCloud94/b2b-ez-catalogs/common/logger"
)

// stubGateway is a minimal pipeline.Gateway: happy path by default,
// overridable per method.
type stubGateway struct {
	mu            sync.Mutex
	locationCalls int
	channelCalls  int

	locations        []clients.CompanyLocation
	titles           map[string]struct{}
	createCollection func(title string) (string, error)
}

func (g *stubGateway) ListCompanyLocations(ctx context.Context) ([]clients.CompanyLocation, error) {
	g.mu.Lock()
	g.locationCalls++
	g.mu.Unlock()
	return g.locations, nil
}

func (g *stubGateway) ListCollectionTitles(ctx context.Context) (map[string]struct{}, error) {
	if g.titles == nil {
		return map[string]struct{}{}, nil
	}
	return g.titles, nil
}

func (g *stubGateway) CreateCollection(ctx context.Context, title string, rule clients.Rule) (string, error) {
	if g.createCollection != nil {
		return g.createCollection(title)
	}
	return "col-" + title, nil
}

func (g *stubGateway) ResolveDefaultChannel(ctx context.Context) (string, error) {
	g.mu.Lock()
	g.channelCalls++
	g.mu.Unlock()
	return "pub-1", nil
}

func (g *stubGateway) Publish(ctx context.Context, resourceID, channelID string) error {
	return nil
}

func (g *stubGateway) ListCatalogsForLocation(ctx context.Context, ext string) ([]string, error) {
	return nil, nil
}

func (g *stubGateway) IsLocationInCatalog(ctx context.Context, catalogID, locationID string) (bool, error) {
	return false, nil
}

func (g *stubGateway) ListProductsInCatalogPublication(ctx context.Context, catalogID string) ([]clients.Product, error) {
	return nil, nil
}

func (g *stubGateway) AddTag(ctx context.Context, productID, tag string) error {
	return nil
}

// stubStatusStore records the cross-instance keys written through the
// StatusStore interface
type stubStatusStore struct {
	mu      sync.Mutex
	strings map[string]string
	jsons   map[string]interface{}
}

func newStubStatusStore() *stubStatusStore {
	return &stubStatusStore{
		strings: make(map[string]string),
		jsons:   make(map[string]interface{}),
	}
}

func (s *stubStatusStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.strings[key]
	return v, ok, nil
}

func (s *stubStatusStore) SetWithExpiry(ctx context.Context, key, value string, expiry time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.strings[key] = value
	return nil
}

func (s *stubStatusStore) SetJSON(ctx context.Context, key string, value interface{}, expiry time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jsons[key] = value
	return nil
}

// stubStore records persisted runs in memory
type stubStore struct {
	mu        sync.Mutex
	created   []*models.ProvisionRun
	createErr error
}

func (s *stubStore) Create(ctx context.Context, run *models.ProvisionRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, run)
	return nil
}

func (s *stubStore) GetByID(ctx context.Context, runID uuid.UUID) (*models.ProvisionRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.created {
		if r.RunID == runID {
			return r, nil
		}
	}
	return nil, errors.New("not found")
}

func (s *stubStore) List(ctx context.Context, limit int) ([]*models.ProvisionRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.created, nil
}

func testComponents(withCache bool) *bootstrap.Components {
	log := logger.New("error", "text")
	c := &bootstrap.Components{
		Config: &config.Config{
			Shopify: config.ShopifyConfig{ShopDomain: "test-shop.myshopify.com"},
			Cache:   config.CacheConfig{DefaultTTL: time.Minute},
			Pipeline: config.PipelineConfig{
				Workers:        2,
				CompanyTimeout: time.Minute,
			},
		},
		Logger: log,
	}
	if withCache {
		c.Cache = cache.NewMemoryCache(log)
	}
	return c
}

func newTestService(gw pipeline.Gateway, store RunStore, components *bootstrap.Components) *ProvisionService {
	planner, _ := pipeline.NewPlanner("")
	return NewProvisionService(&ProvisionServiceOpts{
		Gateway:    gw,
		Planner:    planner,
		Runs:       store,
		Components: components,
	})
}

func TestSubmitRun_AggregateReport(t *testing.T) {
	gw := &stubGateway{
		createCollection: func(title string) (string, error) {
			if title == "Broken Catalog" {
				return "", &clients.TransportError{Op: "collectionCreate", Err: errors.New("boom")}
			}
			return "col-1", nil
		},
	}
	store := &stubStore{}
	svc := newTestService(gw, store, testComponents(false))

	run, err := svc.SubmitRun(context.Background(), []pipeline.Company{
		{Name: "Acme", ID: "loc-1", ExternalID: "ext-1"},
		{Name: "Broken", ID: "loc-2", ExternalID: "ext-2"},
	})
	if err != nil {
		t.Fatalf("SubmitRun failed: %v", err)
	}

	if run.CompanyCount != 2 || run.ProvisionedCount != 1 || run.FailedCount != 1 {
		t.Errorf("unexpected counts: %+v", run)
	}
	if run.Status != models.RunStatusCompletedWithErrors {
		t.Errorf("expected %s, got %s", models.RunStatusCompletedWithErrors, run.Status)
	}
	if run.Shop != "test-shop.myshopify.com" {
		t.Errorf("expected shop domain on report, got %q", run.Shop)
	}
	if run.Outcomes[0].Company.Name != "Acme" || run.Outcomes[1].Company.Name != "Broken" {
		t.Errorf("outcomes not in input order: %v", run.Outcomes)
	}

	if len(store.created) != 1 || store.created[0].RunID != run.RunID {
		t.Errorf("expected run persisted once, got %d", len(store.created))
	}
}

func TestSubmitRun_EmptySelection(t *testing.T) {
	svc := newTestService(&stubGateway{}, &stubStore{}, testComponents(false))

	if _, err := svc.SubmitRun(context.Background(), nil); err == nil {
		t.Error("expected error for empty selection")
	}
}

// TestSubmitRun_PersistFailureKeepsReport: remote side effects already
// happened, so a storage failure must not lose the report.
func TestSubmitRun_PersistFailureKeepsReport(t *testing.T) {
	store := &stubStore{createErr: errors.New("db down")}
	svc := newTestService(&stubGateway{}, store, testComponents(false))

	run, err := svc.SubmitRun(context.Background(), []pipeline.Company{
		{Name: "Acme", ID: "loc-1", ExternalID: "ext-1"},
	})
	if err != nil {
		t.Fatalf("SubmitRun failed: %v", err)
	}
	if run == nil || run.ProvisionedCount != 1 {
		t.Errorf("expected report despite persist failure, got %+v", run)
	}
}

// TestSubmitRun_ChannelCachedAndStatusMirrored: the channel is resolved
// once and reused from Redis across runs, and each run's summary lands
// under its status key.
func TestSubmitRun_ChannelCachedAndStatusMirrored(t *testing.T) {
	gw := &stubGateway{}
	status := newStubStatusStore()
	planner, _ := pipeline.NewPlanner("")
	svc := NewProvisionService(&ProvisionServiceOpts{
		Gateway:    gw,
		Planner:    planner,
		Runs:       &stubStore{},
		Components: testComponents(false),
		Redis:      status,
	})

	companies := []pipeline.Company{{Name: "Acme", ID: "loc-1", ExternalID: "ext-1"}}

	run, err := svc.SubmitRun(context.Background(), companies)
	if err != nil {
		t.Fatalf("SubmitRun failed: %v", err)
	}
	if _, err := svc.SubmitRun(context.Background(), companies); err != nil {
		t.Fatalf("second SubmitRun failed: %v", err)
	}

	if gw.channelCalls != 1 {
		t.Errorf("expected one channel resolution across runs, got %d", gw.channelCalls)
	}
	if cached, ok := status.strings["provisioning:default_channel"]; !ok || cached != "pub-1" {
		t.Errorf("expected channel id cached in redis, got %q (found=%v)", cached, ok)
	}

	key := fmt.Sprintf("provisioning:run:%s:status", run.RunID)
	mirror, ok := status.jsons[key].(runStatusMirror)
	if !ok {
		t.Fatalf("expected status mirror under %s, got %T", key, status.jsons[key])
	}
	if mirror.Status != run.Status || mirror.ProvisionedCount != 1 {
		t.Errorf("unexpected mirror %+v for run %+v", mirror, run)
	}
}

func TestListCandidates_PlansAndCaches(t *testing.T) {
	gw := &stubGateway{
		locations: []clients.CompanyLocation{
			{ID: "loc-1", Name: "Acme"},
			{ID: "loc-2", Name: "Done", InCatalog: true},
			{ID: "loc-3", Name: "Titled"},
		},
		titles: map[string]struct{}{"Titled Catalog": {}},
	}
	components := testComponents(true)
	defer components.Cache.Close()

	svc := newTestService(gw, &stubStore{}, components)

	candidates, err := svc.ListCandidates(context.Background())
	if err != nil {
		t.Fatalf("ListCandidates failed: %v", err)
	}
	if len(candidates) != 1 || candidates[0].ID != "loc-1" {
		t.Fatalf("expected [loc-1], got %v", candidates)
	}

	// Second call is served from cache
	again, err := svc.ListCandidates(context.Background())
	if err != nil {
		t.Fatalf("second ListCandidates failed: %v", err)
	}
	if len(again) != 1 || again[0].ID != "loc-1" {
		t.Errorf("expected cached [loc-1], got %v", again)
	}
	if gw.locationCalls != 1 {
		t.Errorf("expected 1 gateway fetch, got %d", gw.locationCalls)
	}
}
