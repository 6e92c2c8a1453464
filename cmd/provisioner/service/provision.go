package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/GabeCloud94/b2b-ez-catalogs/cmd/provisioner/models"
	"github.com/GabeCloud94/b2b-ez-catalogs/cmd/provisioner/pipeline"
	"github.com/GabeCloud94/b2b-ez-catalogs/common/bootstrap"
	"github.com/GabeCloud94/b2b-ez-catalogs/common/clients"
)

const (
	// TopicRunCompleted carries run lifecycle events. The candidate cache
	// subscriber listens here: a completed run changes which locations
	// still need provisioning.
	TopicRunCompleted = "provisioning.run.completed"

	cacheKeyCandidates = "provisioning:candidate_locations"
	cacheKeyChannel    = "provisioning:default_channel"

	runStatusTTL = 24 * time.Hour
)

// RunStore persists aggregate run reports
type RunStore interface {
	Create(ctx context.Context, run *models.ProvisionRun) error
	GetByID(ctx context.Context, runID uuid.UUID) (*models.ProvisionRun, error)
	List(ctx context.Context, limit int) ([]*models.ProvisionRun, error)
}

// StatusStore shares small cross-instance state through Redis: the
// resolved channel id and per-run status keys. Satisfied by the common
// Redis client wrapper.
type StatusStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	SetWithExpiry(ctx context.Context, key, value string, expiry time.Duration) error
	SetJSON(ctx context.Context, key string, value interface{}, expiry time.Duration) error
}

// ProvisionService handles business logic for collection provisioning
type ProvisionService struct {
	gateway    pipeline.Gateway
	planner    *pipeline.Planner
	runs       RunStore
	components *bootstrap.Components
	redis      StatusStore
}

// ProvisionServiceOpts contains options for creating a ProvisionService
type ProvisionServiceOpts struct {
	Gateway    pipeline.Gateway
	Planner    *pipeline.Planner
	Runs       RunStore
	Components *bootstrap.Components
	Redis      StatusStore
}

// NewProvisionService creates a new provisioning service
func NewProvisionService(opts *ProvisionServiceOpts) *ProvisionService {
	return &ProvisionService{
		gateway:    opts.Gateway,
		planner:    opts.Planner,
		runs:       opts.Runs,
		components: opts.Components,
		redis:      opts.Redis,
	}
}

// runCompletedEvent is the payload published on TopicRunCompleted
type runCompletedEvent struct {
	RunID  uuid.UUID `json:"run_id"`
	Status string    `json:"status"`
}

// StartEventSubscribers wires queue subscriptions. Call once at startup.
func (s *ProvisionService) StartEventSubscribers(ctx context.Context) error {
	if s.components.Queue == nil {
		return nil
	}

	return s.components.Queue.Subscribe(ctx, TopicRunCompleted, func(ctx context.Context, key string, value []byte) error {
		// A finished run changed remote state; the cached candidate list
		// is stale now.
		if s.components.Cache != nil {
			if err := s.components.Cache.Delete(ctx, cacheKeyCandidates); err != nil {
				return fmt.Errorf("invalidate candidate cache: %w", err)
			}
		}
		s.components.Logger.Debug("candidate cache invalidated", "run_id", key)
		return nil
	})
}

// ListCandidates returns the company locations that still need a company
// collection: no collection with the derived title exists and the
// location's inCatalog flag is false.
func (s *ProvisionService) ListCandidates(ctx context.Context) ([]clients.CompanyLocation, error) {
	if cached, ok := s.cachedCandidates(ctx); ok {
		return cached, nil
	}

	locations, err := s.gateway.ListCompanyLocations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list company locations: %w", err)
	}

	titles, err := s.gateway.ListCollectionTitles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list collection titles: %w", err)
	}

	candidates, err := s.planner.Plan(locations, titles)
	if err != nil {
		return nil, fmt.Errorf("plan candidate locations: %w", err)
	}

	s.cacheCandidates(ctx, candidates)

	return candidates, nil
}

// SubmitRun executes the provisioning pipeline for the selected companies
// and persists the aggregate report. The report always covers every
// submitted company; individual failures are carried inside it.
func (s *ProvisionService) SubmitRun(ctx context.Context, companies []pipeline.Company) (*models.ProvisionRun, error) {
	if len(companies) == 0 {
		return nil, fmt.Errorf("no companies selected")
	}

	if s.components.Telemetry != nil {
		defer s.components.Telemetry.RecordDuration("provisioning_run", time.Now())
	}

	channelID, err := s.resolveChannel(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve default channel: %w", err)
	}

	cfg := s.components.Config
	orchestrator := pipeline.NewOrchestrator(s.gateway, pipeline.Opts{
		ChannelID:      channelID,
		Workers:        cfg.Pipeline.Workers,
		CompanyTimeout: cfg.Pipeline.CompanyTimeout,
		DedupeProducts: cfg.Pipeline.DeduplicateProducts,
	}, s.components.Logger)

	startedAt := time.Now().UTC()
	outcomes := orchestrator.Run(ctx, companies)
	finishedAt := time.Now().UTC()

	run := models.NewProvisionRun(cfg.Shopify.ShopDomain, outcomes, startedAt, finishedAt)

	log := s.components.Logger.WithRunID(run.RunID.String())
	log.Info("provisioning run finished",
		"status", run.Status,
		"companies", run.CompanyCount,
		"provisioned", run.ProvisionedCount,
		"partial", run.PartialCount,
		"failed", run.FailedCount,
		"duration_ms", finishedAt.Sub(startedAt).Milliseconds())

	// The remote side effects already happened; losing the persisted copy
	// must not lose the report itself.
	if err := s.runs.Create(ctx, run); err != nil {
		log.Error("failed to persist run report", "error", err)
	}

	s.publishRunStatus(ctx, run)

	return run, nil
}

// GetRun retrieves a persisted run report
func (s *ProvisionService) GetRun(ctx context.Context, runID uuid.UUID) (*models.ProvisionRun, error) {
	return s.runs.GetByID(ctx, runID)
}

// ListRuns returns recent run summaries
func (s *ProvisionService) ListRuns(ctx context.Context, limit int) ([]*models.ProvisionRun, error) {
	return s.runs.List(ctx, limit)
}

// resolveChannel returns the shop's default sales channel id, cached in
// Redis so every instance publishes to the same channel without a repeat
// lookup. Collections always publish to the first channel the platform
// returns.
func (s *ProvisionService) resolveChannel(ctx context.Context) (string, error) {
	if s.redis != nil {
		if val, found, err := s.redis.Get(ctx, cacheKeyChannel); err == nil && found {
			return val, nil
		}
	}

	channelID, err := s.gateway.ResolveDefaultChannel(ctx)
	if err != nil {
		return "", err
	}

	if s.redis != nil {
		ttl := s.components.Config.Cache.DefaultTTL
		if err := s.redis.SetWithExpiry(ctx, cacheKeyChannel, channelID, ttl); err != nil {
			s.components.Logger.Warn("failed to cache channel id", "error", err)
		}
	}

	return channelID, nil
}

func (s *ProvisionService) cachedCandidates(ctx context.Context) ([]clients.CompanyLocation, bool) {
	if s.components.Cache == nil {
		return nil, false
	}

	data, found, err := s.components.Cache.Get(ctx, cacheKeyCandidates)
	if err != nil || !found {
		return nil, false
	}

	var candidates []clients.CompanyLocation
	if err := json.Unmarshal(data, &candidates); err != nil {
		s.components.Logger.Warn("failed to decode cached candidates", "error", err)
		return nil, false
	}

	return candidates, true
}

func (s *ProvisionService) cacheCandidates(ctx context.Context, candidates []clients.CompanyLocation) {
	if s.components.Cache == nil {
		return
	}

	data, err := json.Marshal(candidates)
	if err != nil {
		return
	}

	ttl := s.components.Config.Cache.DefaultTTL
	if err := s.components.Cache.Set(ctx, cacheKeyCandidates, data, ttl); err != nil {
		s.components.Logger.Warn("failed to cache candidates", "error", err)
	}
}

// runStatusMirror is the per-run summary written to Redis
type runStatusMirror struct {
	Status           string `json:"status"`
	CompanyCount     int    `json:"company_count"`
	ProvisionedCount int    `json:"provisioned_count"`
	PartialCount     int    `json:"partial_count"`
	FailedCount      int    `json:"failed_count"`
}

// publishRunStatus emits the run lifecycle event and mirrors the run
// summary into Redis for cross-instance visibility. Both are best-effort.
func (s *ProvisionService) publishRunStatus(ctx context.Context, run *models.ProvisionRun) {
	if s.components.Queue != nil {
		payload, err := json.Marshal(runCompletedEvent{RunID: run.RunID, Status: run.Status})
		if err == nil {
			if err := s.components.Queue.Publish(ctx, TopicRunCompleted, run.RunID.String(), payload); err != nil {
				s.components.Logger.Warn("failed to publish run event", "error", err)
			}
		}
	}

	if s.redis != nil {
		key := fmt.Sprintf("provisioning:run:%s:status", run.RunID)
		mirror := runStatusMirror{
			Status:           run.Status,
			CompanyCount:     run.CompanyCount,
			ProvisionedCount: run.ProvisionedCount,
			PartialCount:     run.PartialCount,
			FailedCount:      run.FailedCount,
		}
		if err := s.redis.SetJSON(ctx, key, mirror, runStatusTTL); err != nil {
			s.components.Logger.Warn("failed to mirror run status to redis", "error", err)
		}
	}
}
