package filter

import (
	"context"
	"fmt"
	"regexp"

	"github.com/glbala87/ELLA-tool-sub001/internal/apperr"
	"github.com/glbala87/ELLA-tool-sub001/internal/genomic"
	"github.com/glbala87/ELLA-tool-sub001/internal/model"
)

const defaultInclusionRegex = "^NM_"

// ConsequenceConfig configures the consequence filter. Consequences lists
// terms from most to least severe; terms after the threshold are benign.
type ConsequenceConfig struct {
	Consequences   []string `mapstructure:"consequences"`
	Threshold      string   `mapstructure:"severe_consequence_threshold"`
	InclusionRegex string   `mapstructure:"inclusion_regex"`
}

type consequenceFilter struct {
	rank      map[genomic.Consequence]int
	threshold int
	include   *regexp.Regexp
}

func newConsequenceFilter(config map[string]interface{}) (Filter, error) {
	var c ConsequenceConfig
	if err := decode(config, &c); err != nil {
		return nil, err
	}
	if c.InclusionRegex == "" {
		c.InclusionRegex = defaultInclusionRegex
	}
	include, err := compileRegex("inclusion_regex", c.InclusionRegex)
	if err != nil {
		return nil, err
	}

	f := &consequenceFilter{rank: make(map[genomic.Consequence]int), include: include, threshold: -1}
	order := genomic.AllConsequences()
	if len(c.Consequences) > 0 {
		order = order[:0]
		for _, term := range c.Consequences {
			cons, err := genomic.ParseConsequence(term)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", apperr.ErrBadInput, err)
			}
			order = append(order, cons)
		}
	}
	for i, cons := range order {
		f.rank[cons] = i
	}

	th, err := genomic.ParseConsequence(c.Threshold)
	if err != nil {
		return nil, fmt.Errorf("%w: severe_consequence_threshold: %v", apperr.ErrBadInput, err)
	}
	rank, ok := f.rank[th]
	if !ok {
		return nil, fmt.Errorf("%w: threshold %s is not in consequences", apperr.ErrBadInput, th)
	}
	f.threshold = rank
	return f, nil
}

// rankOf returns the position of c in the configured order. Terms missing
// from the order rank as most severe.
func (f *consequenceFilter) rankOf(c genomic.Consequence) int {
	if r, ok := f.rank[c]; ok {
		return r
	}
	return -1
}

// Filter drops alleles whose worst consequence on included panel-gene
// transcripts is less severe than the threshold.
func (f *consequenceFilter) Filter(ctx context.Context, env *Env, ids model.IDSet) (model.IDSet, error) {
	if len(ids) == 0 {
		return model.IDSet{}, nil
	}
	shadows, err := env.Source.TranscriptShadows(ctx, ids)
	if err != nil {
		return nil, err
	}
	worst := make(map[int64]int)
	for _, t := range shadows {
		if !f.include.MatchString(t.Transcript) || !env.Panel.HasGene(t.HGNCID) {
			continue
		}
		for _, c := range t.Consequences {
			r := f.rankOf(c)
			if cur, ok := worst[t.AlleleID]; !ok || r < cur {
				worst[t.AlleleID] = r
			}
		}
	}
	return filterIDs(ids, func(id int64) bool {
		r, ok := worst[id]
		return ok && r > f.threshold
	}), nil
}
