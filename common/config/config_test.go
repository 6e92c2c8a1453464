package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SHOPIFY_SHOP_DOMAIN", "test-shop.myshopify.com")
	t.Setenv("SHOPIFY_ACCESS_TOKEN", "shpat_test")

	cfg, err := Load("provisioner")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Service.Name != "provisioner" || cfg.Service.Port != 8080 {
		t.Errorf("unexpected service defaults: %+v", cfg.Service)
	}
	if cfg.Pipeline.Workers != 4 || cfg.Pipeline.ProductPageSize != 250 {
		t.Errorf("unexpected pipeline defaults: %+v", cfg.Pipeline)
	}
	if cfg.Pipeline.CompanyTimeout != 2*time.Minute {
		t.Errorf("expected 2m company timeout, got %v", cfg.Pipeline.CompanyTimeout)
	}
	if cfg.Pipeline.DeduplicateProducts {
		t.Error("expected product dedup off by default")
	}

	want := "https://test-shop.myshopify.com/admin/api/2024-01/graphql.json"
	if got := cfg.AdminAPIURL(); got != want {
		t.Errorf("expected admin API URL %q, got %q", want, got)
	}
}

// TestLoad_RequiresShopifyCredentials: the service must refuse to start
// without the shop domain and access token; every gateway call depends
// on them.
func TestLoad_RequiresShopifyCredentials(t *testing.T) {
	t.Setenv("SHOPIFY_SHOP_DOMAIN", "")
	t.Setenv("SHOPIFY_ACCESS_TOKEN", "")

	if _, err := Load("provisioner"); err == nil {
		t.Error("expected error when shop domain is missing")
	}

	t.Setenv("SHOPIFY_SHOP_DOMAIN", "test-shop.myshopify.com")
	if _, err := Load("provisioner"); err == nil {
		t.Error("expected error when access token is missing")
	}
}

func TestValidate_PipelineBounds(t *testing.T) {
	t.Setenv("SHOPIFY_SHOP_DOMAIN", "test-shop.myshopify.com")
	t.Setenv("SHOPIFY_ACCESS_TOKEN", "shpat_test")

	t.Setenv("PIPELINE_PRODUCT_PAGE_SIZE", "500")
	if _, err := Load("provisioner"); err == nil {
		t.Error("expected error for page size above 250")
	}

	t.Setenv("PIPELINE_PRODUCT_PAGE_SIZE", "250")
	t.Setenv("PIPELINE_WORKERS", "0")
	if _, err := Load("provisioner"); err == nil {
		t.Error("expected error for zero workers")
	}
}
