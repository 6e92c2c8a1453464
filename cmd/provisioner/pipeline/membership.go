package pipeline

import (
	"context"

	"github.com/GabeCloud94/b2b-ez-catalogs/common/logger"
)

// MembershipResolver narrows a company location's candidate catalogs down
// to the ones the location is actually attached to.
//
// The catalog search endpoint returns catalogs for an organizational
// structure broader than a single location, so each candidate needs its
// own authoritative inCatalog check: one round trip per catalog,
// sequential.
type MembershipResolver struct {
	gw  Gateway
	log *logger.Logger
}

// NewMembershipResolver creates a resolver
func NewMembershipResolver(gw Gateway, log *logger.Logger) *MembershipResolver {
	return &MembershipResolver{gw: gw, log: log}
}

// Resolve returns the confirmed catalog ids for a company location, in
// confirmation order. An empty result is a valid outcome: the location
// simply has no catalog attached.
func (r *MembershipResolver) Resolve(ctx context.Context, locationExternalID, locationID string) ([]string, error) {
	candidates, err := r.gw.ListCatalogsForLocation(ctx, locationExternalID)
	if err != nil {
		return nil, err
	}

	confirmed := make([]string, 0, len(candidates))
	for _, catalogID := range candidates {
		inCatalog, err := r.gw.IsLocationInCatalog(ctx, catalogID, locationID)
		if err != nil {
			return nil, err
		}
		if inCatalog {
			confirmed = append(confirmed, catalogID)
		}
	}

	r.log.Debug("catalog membership resolved",
		"location_id", locationID,
		"candidates", len(candidates),
		"confirmed", len(confirmed))

	return confirmed, nil
}
