package pipeline

import (
	"context"

	"github.com/GabeCloud94/b2b-ez-catalogs/common/clients"
	"github.com/GabeCloud94/b2b-ez-catalogs/common/logger"
)

// Provisioner creates a company-scoped collection and publishes it to the
// run's sales channel. The channel id is resolved once per run, not per
// company.
//
// Provisioning is not transactional with the later stages: once the
// collection exists it stays, published or not, whatever happens next.
type Provisioner struct {
	gw        Gateway
	channelID string
	log       *logger.Logger
}

// NewProvisioner creates a provisioner bound to one run's channel id
func NewProvisioner(gw Gateway, channelID string, log *logger.Logger) *Provisioner {
	return &Provisioner{
		gw:        gw,
		channelID: channelID,
		log:       log,
	}
}

// Provision creates and publishes the collection for a company. On a
// publish failure the returned CollectionResult is still non-nil with
// Published false: the collection is live on the platform and the caller
// must report it.
func (p *Provisioner) Provision(ctx context.Context, companyName string) (*CollectionResult, error) {
	title := DeriveTitle(companyName)

	collectionID, err := p.gw.CreateCollection(ctx, title, clients.TagRule(companyName))
	if err != nil {
		return nil, err
	}

	result := &CollectionResult{
		ID:    collectionID,
		Title: title,
	}

	if err := p.gw.Publish(ctx, collectionID, p.channelID); err != nil {
		p.log.Warn("collection created but publish failed",
			"company", companyName,
			"collection_id", collectionID,
			"error", err)
		return result, err
	}

	result.Published = true

	p.log.Info("collection provisioned",
		"company", companyName,
		"collection_id", collectionID,
		"channel_id", p.channelID)

	return result, nil
}
