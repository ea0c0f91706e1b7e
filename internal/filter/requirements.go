package filter

import (
	"fmt"

	"github.com/glbala87/ELLA-tool-sub001/internal/apperr"
	"github.com/glbala87/ELLA-tool-sub001/internal/model"
)

// Requirement functions.
const (
	RequireAnalysis  = "analysis"
	RequireGenePanel = "genepanel"
)

// CheckRequirement evaluates one requirement against an analysis.
func CheckRequirement(r model.Requirement, an *model.Analysis) (bool, error) {
	switch r.Function {
	case RequireAnalysis:
		var p struct {
			Name string `mapstructure:"name"`
		}
		if err := decode(r.Params, &p); err != nil {
			return false, err
		}
		re, err := compileRegex("analysis.name", p.Name)
		if err != nil {
			return false, err
		}
		return re.MatchString(an.Name), nil
	case RequireGenePanel:
		var p struct {
			Name    string `mapstructure:"name"`
			Version string `mapstructure:"version"`
		}
		if err := decode(r.Params, &p); err != nil {
			return false, err
		}
		return (p.Name == "" || p.Name == an.GenePanel.Name) &&
			(p.Version == "" || p.Version == an.GenePanel.Version), nil
	}
	return false, fmt.Errorf("%w: unknown requirement function %q", apperr.ErrBadInput, r.Function)
}

// SelectFilterConfig returns the first active config, in the given rank
// order, whose requirements all hold for the analysis.
func SelectFilterConfig(configs []*model.FilterConfig, an *model.Analysis) (*model.FilterConfig, error) {
next:
	for _, fc := range configs {
		if !fc.Active {
			continue
		}
		for _, r := range fc.Requirements {
			ok, err := CheckRequirement(r, an)
			if err != nil {
				return nil, fmt.Errorf("filter config %q: %w", fc.Name, err)
			}
			if !ok {
				continue next
			}
		}
		return fc, nil
	}
	return nil, fmt.Errorf("no filter config applies to analysis %q: %w", an.Name, apperr.ErrMissingReference)
}
