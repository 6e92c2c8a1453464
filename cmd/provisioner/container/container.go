package container

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/GabeCloud94/b2b-ez-catalogs/cmd/provisioner/pipeline"
	"github.com/GabeCloud94/b2b-ez-catalogs/cmd/provisioner/repository"
	"github.com/GabeCloud94/b2b-ez-catalogs/cmd/provisioner/service"
	"github.com/GabeCloud94/b2b-ez-catalogs/common/bootstrap"
	"github.com/GabeCloud94/b2b-ez-catalogs/common/clients"
	"github.com/GabeCloud94/b2b-ez-catalogs/common/ratelimit"
	rediscommon "github.com/GabeCloud94/b2b-ez-catalogs/common/redis"
)

// Container holds all initialized services and repositories (singleton pattern)
type Container struct {
	Components *bootstrap.Components
	Redis      *rediscommon.Client
	Limiter    *ratelimit.Limiter

	Shopify *clients.ShopifyAdmin
	RunRepo *repository.RunRepository

	ProvisionService *service.ProvisionService
}

// NewContainer initializes all services and repositories once
func NewContainer(components *bootstrap.Components) (*Container, error) {
	cfg := components.Config

	redisClient := rediscommon.NewClient(redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}), components.Logger)

	limiter := ratelimit.NewLimiter(redisClient.GetUnderlying(), components.Logger)

	shopify := clients.NewShopifyAdmin(cfg, components.Logger)

	planner, err := pipeline.NewPlanner(cfg.Pipeline.LocationFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to create planner: %w", err)
	}

	runRepo := repository.NewRunRepository(components.DB)

	provisionService := service.NewProvisionService(&service.ProvisionServiceOpts{
		Gateway:    shopify,
		Planner:    planner,
		Runs:       runRepo,
		Components: components,
		Redis:      redisClient,
	})

	return &Container{
		Components:       components,
		Redis:            redisClient,
		Limiter:          limiter,
		Shopify:          shopify,
		RunRepo:          runRepo,
		ProvisionService: provisionService,
	}, nil
}

// Close releases container-owned resources
func (c *Container) Close() error {
	return c.Redis.Close()
}
