package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all service configuration
type Config struct {
	Service   ServiceConfig
	Shopify   ShopifyConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Cache     CacheConfig
	Pipeline  PipelineConfig
	RateLimit RateLimitConfig
	Telemetry TelemetryConfig
}

// ServiceConfig holds service-specific settings
type ServiceConfig struct {
	Name        string
	Port        int
	Environment string
	LogLevel    string
	LogFormat   string
}

// ShopifyConfig holds Shopify Admin API connection settings
type ShopifyConfig struct {
	ShopDomain  string // e.g. "my-shop.myshopify.com"
	AccessToken string
	APIVersion  string
	Timeout     time.Duration
}

// DatabaseConfig holds Postgres connection settings
type DatabaseConfig struct {
	Host        string
	Port        int
	Database    string
	User        string
	Password    string
	MaxConns    int
	MinConns    int
	MaxIdleTime time.Duration
	MaxLifetime time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// CacheConfig holds cache settings
type CacheConfig struct {
	Enabled    bool
	DefaultTTL time.Duration
}

// PipelineConfig holds provisioning pipeline settings
type PipelineConfig struct {
	// Workers bounds how many company chains run concurrently.
	Workers int
	// CompanyTimeout bounds a single company's chain end to end.
	CompanyTimeout time.Duration
	// ProductPageSize is the single-page product fetch limit per catalog.
	// Only the first page is ever fetched.
	ProductPageSize int
	// DeduplicateProducts collapses products reachable through multiple
	// confirmed catalogs into a single tag call. Off by default: the
	// observed behavior tags once per catalog appearance.
	DeduplicateProducts bool
	// LocationFilter is an optional CEL expression evaluated against each
	// company location during planning, e.g. `location.name != "Test Co"`.
	LocationFilter string
}

// RateLimitConfig holds inbound rate limit settings for run submission
type RateLimitConfig struct {
	Enabled       bool
	RunsPerMinute int64
}

// TelemetryConfig holds observability settings
type TelemetryConfig struct {
	EnablePprof bool
	PprofPort   int
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	cfg := &Config{
		Service: ServiceConfig{
			Name:        serviceName,
			Port:        getEnvInt("PORT", 8080),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			LogFormat:   getEnv("LOG_FORMAT", "text"),
		},
		Shopify: ShopifyConfig{
			ShopDomain:  getEnv("SHOPIFY_SHOP_DOMAIN", ""),
			AccessToken: getEnv("SHOPIFY_ACCESS_TOKEN", ""),
			APIVersion:  getEnv("SHOPIFY_API_VERSION", "2024-01"),
			Timeout:     getEnvDuration("SHOPIFY_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:        getEnv("POSTGRES_HOST", "localhost"),
			Port:        getEnvInt("POSTGRES_PORT", 5432),
			Database:    getEnv("POSTGRES_DB", "catalogs"),
			User:        getEnv("POSTGRES_USER", "catalogs"),
			Password:    getEnv("POSTGRES_PASSWORD", "catalogs"),
			MaxConns:    getEnvInt("POSTGRES_MAX_CONNS", 20),
			MinConns:    getEnvInt("POSTGRES_MIN_CONNS", 2),
			MaxIdleTime: getEnvDuration("POSTGRES_MAX_IDLE_TIME", 30*time.Minute),
			MaxLifetime: getEnvDuration("POSTGRES_MAX_LIFETIME", 1*time.Hour),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Cache: CacheConfig{
			Enabled:    getEnvBool("CACHE_ENABLED", true),
			DefaultTTL: getEnvDuration("CACHE_DEFAULT_TTL", 5*time.Minute),
		},
		Pipeline: PipelineConfig{
			Workers:             getEnvInt("PIPELINE_WORKERS", 4),
			CompanyTimeout:      getEnvDuration("PIPELINE_COMPANY_TIMEOUT", 2*time.Minute),
			ProductPageSize:     getEnvInt("PIPELINE_PRODUCT_PAGE_SIZE", 250),
			DeduplicateProducts: getEnvBool("PIPELINE_DEDUP_PRODUCTS", false),
			LocationFilter:      getEnv("PIPELINE_LOCATION_FILTER", ""),
		},
		RateLimit: RateLimitConfig{
			Enabled:       getEnvBool("RATE_LIMIT_ENABLED", true),
			RunsPerMinute: int64(getEnvInt("RATE_LIMIT_RUNS_PER_MINUTE", 10)),
		},
		Telemetry: TelemetryConfig{
			EnablePprof: getEnvBool("ENABLE_PPROF", true),
			PprofPort:   getEnvInt("PPROF_PORT", 6060),
		},
	}

	return cfg, cfg.Validate()
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Service.Port)
	}

	// Every gateway call depends on these; failing at startup beats a
	// service that boots and then 404s on every Admin API request.
	if c.Shopify.ShopDomain == "" {
		return fmt.Errorf("shopify shop domain is required (SHOPIFY_SHOP_DOMAIN)")
	}

	if c.Shopify.AccessToken == "" {
		return fmt.Errorf("shopify access token is required (SHOPIFY_ACCESS_TOKEN)")
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("max_conns must be >= min_conns")
	}

	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("pipeline workers must be >= 1")
	}

	if c.Pipeline.ProductPageSize < 1 || c.Pipeline.ProductPageSize > 250 {
		return fmt.Errorf("product page size must be in [1, 250], got %d", c.Pipeline.ProductPageSize)
	}

	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
	)
}

// RedisAddr returns the Redis host:port address
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// AdminAPIURL returns the Shopify Admin GraphQL endpoint for the shop
func (c *Config) AdminAPIURL() string {
	return fmt.Sprintf("https://%s/admin/api/%s/graphql.json", c.Shopify.ShopDomain, c.Shopify.APIVersion)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
