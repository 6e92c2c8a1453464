package pipeline

// Company identifies one selected company location to provision.
type Company struct {
	Name       string `json:"name"`
	ID         string `json:"id"`
	ExternalID string `json:"externalId"`
}

// Stage names the pipeline stage a failure occurred in.
type Stage string

const (
	StageProvision Stage = "provision"
	StageResolve   Stage = "resolve"
	StageTag       Stage = "tag"
)

// Status summarizes one company's outcome so an operator can decide
// whether to re-run.
type Status string

const (
	// StatusProvisioned: collection created, published, all reachable
	// products tagged without errors.
	StatusProvisioned Status = "provisioned"
	// StatusPartial: the collection exists on the platform but a later
	// step failed or reported errors. The remote side effects stand;
	// there is no rollback.
	StatusPartial Status = "partial"
	// StatusFailed: collection creation itself failed; no remote side
	// effects were produced for this company.
	StatusFailed Status = "failed"
)

// CollectionResult describes the collection created for a company.
type CollectionResult struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Published bool   `json:"published"`
}

// TagError records one product tag call the platform rejected.
type TagError struct {
	ProductID string `json:"productId"`
	Field     string `json:"field,omitempty"`
	Message   string `json:"message"`
}

// TaggingResult lists every product id that was tagged, in call order.
// A product reachable through several confirmed catalogs appears once per
// appearance unless deduplication is enabled.
type TaggingResult struct {
	TaggedProductIDs []string   `json:"taggedProductIds"`
	Errors           []TagError `json:"errors,omitempty"`
}

// CompanyOutcome is one company's slice of the aggregate report.
type CompanyOutcome struct {
	Company             Company           `json:"company"`
	Status              Status            `json:"status"`
	Collection          *CollectionResult `json:"collection,omitempty"`
	ConfirmedCatalogIDs []string          `json:"confirmedCatalogIds,omitempty"`
	Tagging             *TaggingResult    `json:"tagging,omitempty"`
	FailedStage         Stage             `json:"failedStage,omitempty"`
	Error               string            `json:"error,omitempty"`
}

// DeriveTitle returns the deterministic collection title for a company.
// No normalization is applied beyond the fixed suffix. Two companies with
// the same name derive the same title; the planner's set-membership check
// then skips the second one (known limitation).
func DeriveTitle(companyName string) string {
	return companyName + " Catalog"
}
