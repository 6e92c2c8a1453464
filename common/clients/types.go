package clients

// CompanyLocation is a B2B customer's purchasing location.
// InCatalog is the platform's precomputed flag indicating the location
// has already been provisioned into a catalog.
type CompanyLocation struct {
	ID         string `json:"id"`
	ExternalID string `json:"externalId"`
	Name       string `json:"name"`
	InCatalog  bool   `json:"inCatalog"`
}

// Product is a storefront product reachable through a catalog publication.
type Product struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Rule is a single smart-collection membership rule.
type Rule struct {
	Column    string `json:"column"`
	Relation  string `json:"relation"`
	Condition string `json:"condition"`
}

// Rule constants used for company collections
const (
	RuleColumnTag      = "TAG"
	RuleRelationEquals = "EQUALS"
)

// TagRule builds the rule that scopes a collection to one company's
// tagged products.
func TagRule(companyName string) Rule {
	return Rule{
		Column:    RuleColumnTag,
		Relation:  RuleRelationEquals,
		Condition: companyName,
	}
}
