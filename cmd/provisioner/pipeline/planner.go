package pipeline

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/GabeCloud94/b2b-ez-catalogs/common/clients"
)

// Planner computes which company locations still need provisioning. It is
// a pure diff over already-fetched data: no remote calls happen here.
//
// A location qualifies when its derived collection title does not already
// exist, its inCatalog flag is false, and the optional operator filter
// (a CEL expression over the location) evaluates to true.
type Planner struct {
	filter cel.Program
}

// NewPlanner creates a planner. filterExpr may be empty; when set it is
// compiled once and reused for every location.
func NewPlanner(filterExpr string) (*Planner, error) {
	p := &Planner{}

	if filterExpr != "" {
		env, err := cel.NewEnv(
			cel.Variable("location", cel.MapType(cel.StringType, cel.DynType)),
		)
		if err != nil {
			return nil, fmt.Errorf("create filter environment: %w", err)
		}

		ast, issues := env.Compile(filterExpr)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("compile location filter: %w", issues.Err())
		}

		prg, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("build location filter program: %w", err)
		}
		p.filter = prg
	}

	return p, nil
}

// Plan returns the locations that still need a company collection, in the
// order they were given.
func (p *Planner) Plan(locations []clients.CompanyLocation, existingTitles map[string]struct{}) ([]clients.CompanyLocation, error) {
	candidates := make([]clients.CompanyLocation, 0, len(locations))

	for _, loc := range locations {
		if loc.InCatalog {
			continue
		}
		if _, exists := existingTitles[DeriveTitle(loc.Name)]; exists {
			continue
		}

		if p.filter != nil {
			keep, err := p.evalFilter(loc)
			if err != nil {
				return nil, fmt.Errorf("evaluate location filter for %q: %w", loc.Name, err)
			}
			if !keep {
				continue
			}
		}

		candidates = append(candidates, loc)
	}

	return candidates, nil
}

func (p *Planner) evalFilter(loc clients.CompanyLocation) (bool, error) {
	out, _, err := p.filter.Eval(map[string]interface{}{
		"location": map[string]interface{}{
			"id":          loc.ID,
			"name":        loc.Name,
			"external_id": loc.ExternalID,
			"in_catalog":  loc.InCatalog,
		},
	})
	if err != nil {
		return false, err
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("location filter did not return boolean, got %T", out.Value())
	}

	return result, nil
}
