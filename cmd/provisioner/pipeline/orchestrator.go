package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/GabeCloud94/b2b-ez-catalogs/common/logger"
)

// Opts configures one orchestrator run.
type Opts struct {
	// ChannelID is the sales channel every collection is published to,
	// resolved once before the run starts.
	ChannelID string
	// Workers bounds concurrent company chains.
	Workers int
	// CompanyTimeout bounds one company's chain. Zero means no timeout.
	CompanyTimeout time.Duration
	// DedupeProducts collapses repeat product ids across catalogs.
	DedupeProducts bool
}

// Orchestrator fans the provision -> resolve -> tag chain out across the
// selected companies and fans the per-company outcomes back into one
// aggregate report.
//
// Companies run concurrently under a bounded worker pool; within one
// company the stages are strictly sequential. A company's failure never
// hides another company's outcome: the report always covers every
// company that was submitted.
type Orchestrator struct {
	provisioner *Provisioner
	resolver    *MembershipResolver
	tagger      *Tagger

	workers        int
	companyTimeout time.Duration
	log            *logger.Logger
}

// NewOrchestrator wires the pipeline stages for one run
func NewOrchestrator(gw Gateway, opts Opts, log *logger.Logger) *Orchestrator {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	return &Orchestrator{
		provisioner:    NewProvisioner(gw, opts.ChannelID, log),
		resolver:       NewMembershipResolver(gw, log),
		tagger:         NewTagger(gw, opts.DedupeProducts, log),
		workers:        workers,
		companyTimeout: opts.CompanyTimeout,
		log:            log,
	}
}

// Run executes the pipeline for every selected company and returns one
// outcome per company, in input order.
func (o *Orchestrator) Run(ctx context.Context, companies []Company) []CompanyOutcome {
	outcomes := make([]CompanyOutcome, len(companies))

	type job struct {
		idx     int
		company Company
	}

	jobs := make(chan job)
	var wg sync.WaitGroup

	for w := 0; w < o.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				outcomes[j.idx] = o.runCompany(ctx, j.company)
			}
		}()
	}

	for i, company := range companies {
		jobs <- job{idx: i, company: company}
	}
	close(jobs)

	wg.Wait()

	return outcomes
}

// runCompany executes one company's chain to whatever end it reaches.
// Later-stage failures leave earlier side effects standing; the outcome
// records exactly how far the chain got.
func (o *Orchestrator) runCompany(ctx context.Context, company Company) CompanyOutcome {
	if o.companyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.companyTimeout)
		defer cancel()
	}

	log := o.log.WithCompany(company.Name)
	outcome := CompanyOutcome{Company: company}

	// Stage 1: create and publish the collection
	collection, err := o.provisioner.Provision(ctx, company.Name)
	outcome.Collection = collection
	if err != nil {
		outcome.FailedStage = StageProvision
		outcome.Error = err.Error()
		if collection == nil {
			// Nothing was created for this company
			outcome.Status = StatusFailed
		} else {
			// Collection is live but unpublished
			outcome.Status = StatusPartial
		}
		log.Warn("provisioning failed", "status", outcome.Status, "error", err)
		return outcome
	}

	// Stage 2: confirm catalog membership
	catalogIDs, err := o.resolver.Resolve(ctx, company.ExternalID, company.ID)
	if err != nil {
		outcome.Status = StatusPartial
		outcome.FailedStage = StageResolve
		outcome.Error = err.Error()
		log.Warn("catalog resolution failed after provisioning", "error", err)
		return outcome
	}
	outcome.ConfirmedCatalogIDs = catalogIDs

	// Stage 3: tag reachable products
	tagging, err := o.tagger.Tag(ctx, company.Name, catalogIDs)
	outcome.Tagging = tagging
	if err != nil {
		outcome.Status = StatusPartial
		outcome.FailedStage = StageTag
		outcome.Error = err.Error()
		log.Warn("tagging aborted after provisioning", "error", err)
		return outcome
	}

	if len(tagging.Errors) > 0 {
		outcome.Status = StatusPartial
	} else {
		outcome.Status = StatusProvisioned
	}

	log.Info("company chain complete",
		"status", outcome.Status,
		"catalogs", len(catalogIDs),
		"tagged", len(tagging.TaggedProductIDs))

	return outcome
}
