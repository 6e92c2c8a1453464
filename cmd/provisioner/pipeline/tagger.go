package pipeline

import (
	"context"

	"github.com/GabeCloud94/b2b-ez-catalogs/common/clients"
	"github.com/GabeCloud94/b2b-ez-catalogs/common/logger"
)

// Tagger fetches the products visible through a company's confirmed
// catalogs and tags each with the company name, one sequential remote
// call per product.
//
// Only the first page of products (limit 250) is fetched per catalog;
// products beyond it are never tagged. Without deduplication a product in
// several confirmed catalogs is tagged once per catalog, matching the
// observed platform behavior.
type Tagger struct {
	gw     Gateway
	dedupe bool
	log    *logger.Logger
}

// NewTagger creates a tagger. dedupe collapses repeat product ids across
// catalogs before tagging.
func NewTagger(gw Gateway, dedupe bool, log *logger.Logger) *Tagger {
	return &Tagger{gw: gw, dedupe: dedupe, log: log}
}

// Tag tags every reachable product with the company name. Platform
// rejections of individual tag calls are collected into the result, not
// raised: every product gets its attempt. Transport failures abort and
// return the progress made so far alongside the error.
//
// An empty catalog list is a no-op: zero remote calls, zero products,
// no error.
func (t *Tagger) Tag(ctx context.Context, companyName string, catalogIDs []string) (*TaggingResult, error) {
	result := &TaggingResult{
		TaggedProductIDs: []string{},
	}

	if len(catalogIDs) == 0 {
		return result, nil
	}

	productIDs := make([]string, 0, len(catalogIDs))
	for _, catalogID := range catalogIDs {
		products, err := t.gw.ListProductsInCatalogPublication(ctx, catalogID)
		if err != nil {
			return result, err
		}
		for _, p := range products {
			productIDs = append(productIDs, p.ID)
		}
	}

	if t.dedupe {
		productIDs = dedupeIDs(productIDs)
	}

	for _, productID := range productIDs {
		if err := t.gw.AddTag(ctx, productID, companyName); err != nil {
			if ve, ok := clients.AsValidation(err); ok {
				for _, ue := range ve.Errors {
					result.Errors = append(result.Errors, TagError{
						ProductID: productID,
						Field:     ue.Field,
						Message:   ue.Message,
					})
				}
				continue
			}
			// Transport failure: stop here, keep what was done
			return result, err
		}
		result.TaggedProductIDs = append(result.TaggedProductIDs, productID)
	}

	t.log.Info("products tagged",
		"company", companyName,
		"catalogs", len(catalogIDs),
		"tagged", len(result.TaggedProductIDs),
		"errors", len(result.Errors))

	return result, nil
}

// dedupeIDs removes repeats while preserving first-seen order
func dedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
