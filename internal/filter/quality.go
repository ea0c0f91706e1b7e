package filter

import (
	"context"
	"regexp"

	"github.com/glbala87/ELLA-tool-sub001/internal/genomic"
	"github.com/glbala87/ELLA-tool-sub001/internal/model"
)

// QualityConfig configures the quality filter. Unset checks are skipped.
type QualityConfig struct {
	Qual         *float64 `mapstructure:"qual"`
	AlleleRatio  *float64 `mapstructure:"allele_ratio"`
	FilterStatus struct {
		Pattern     string `mapstructure:"pattern"`
		FilterEmpty bool   `mapstructure:"filter_empty"`
	} `mapstructure:"filter_status"`
}

type qualityFilter struct {
	cfg     QualityConfig
	pattern *regexp.Regexp
}

func newQualityFilter(config map[string]interface{}) (Filter, error) {
	f := &qualityFilter{}
	if err := decode(config, &f.cfg); err != nil {
		return nil, err
	}
	if p := f.cfg.FilterStatus.Pattern; p != "" {
		re, err := compileRegex("filter_status.pattern", p)
		if err != nil {
			return nil, err
		}
		f.pattern = re
	}
	return f, nil
}

// fails reports whether one proband genotype fails a configured check.
func (f *qualityFilter) fails(g model.AlleleGenotype) bool {
	if f.cfg.Qual != nil && g.VariantQuality != nil && *g.VariantQuality < *f.cfg.Qual {
		return true
	}
	if f.cfg.AlleleRatio != nil && g.Type == genomic.Heterozygous &&
		g.AlleleRatio != nil && *g.AlleleRatio < *f.cfg.AlleleRatio {
		return true
	}
	status := g.FilterStatus
	if status == "" || status == "." {
		return f.cfg.FilterStatus.FilterEmpty
	}
	return f.pattern != nil && f.pattern.MatchString(status)
}

// Filter drops alleles whose proband genotypes all fail.
func (f *qualityFilter) Filter(ctx context.Context, env *Env, ids model.IDSet) (model.IDSet, error) {
	if len(ids) == 0 {
		return model.IDSet{}, nil
	}
	samples, err := env.Source.Samples(ctx, env.AnalysisID)
	if err != nil {
		return nil, err
	}
	probands := make(map[int64]bool)
	for _, s := range model.Probands(samples) {
		probands[s.ID] = true
	}
	gts, err := env.Source.Genotypes(ctx, env.AnalysisID, ids)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]bool)
	passed := make(map[int64]bool)
	for _, g := range gts {
		if !probands[g.SampleID] || !g.Type.HasVariant() {
			continue
		}
		seen[g.AlleleID] = true
		if !f.fails(g) {
			passed[g.AlleleID] = true
		}
	}
	return filterIDs(ids, func(id int64) bool { return seen[id] && !passed[id] }), nil
}
