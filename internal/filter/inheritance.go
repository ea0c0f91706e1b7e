package filter

import (
	"context"
	"fmt"

	"github.com/glbala87/ELLA-tool-sub001/internal/apperr"
	"github.com/glbala87/ELLA-tool-sub001/internal/genepanel"
	"github.com/glbala87/ELLA-tool-sub001/internal/genomic"
	"github.com/glbala87/ELLA-tool-sub001/internal/model"
	"github.com/glbala87/ELLA-tool-sub001/internal/reconcile"
)

// Inheritance model filter modes.
const (
	RecessiveNonCandidates = "recessive_non_candidates"
	RecessiveCandidates    = "recessive_candidates"
)

type inheritanceModelFilter struct {
	mode string
}

func newInheritanceModelFilter(config map[string]interface{}) (Filter, error) {
	var c struct {
		Mode string `mapstructure:"filter_mode"`
	}
	if err := decode(config, &c); err != nil {
		return nil, err
	}
	switch c.Mode {
	case RecessiveNonCandidates, RecessiveCandidates:
	default:
		return nil, fmt.Errorf("%w: unknown filter_mode %q", apperr.ErrBadInput, c.Mode)
	}
	return &inheritanceModelFilter{mode: c.Mode}, nil
}

func (f *inheritanceModelFilter) Filter(ctx context.Context, env *Env, ids model.IDSet) (model.IDSet, error) {
	if len(ids) == 0 {
		return model.IDSet{}, nil
	}
	matches, err := env.Matches(ctx, ids)
	if err != nil {
		return nil, err
	}
	genes := reconcile.GenesByAllele(matches)
	proband, err := env.Probands(ctx, ids)
	if err != nil {
		return nil, err
	}

	// Proband variants per gene.
	hets := make(map[int]int)
	variants := make(map[int]int)
	for id, gs := range genes {
		g, ok := proband[id]
		if !ok || !g.Type.HasVariant() {
			continue
		}
		for gene := range gs {
			variants[gene]++
			if g.Type == genomic.Heterozygous {
				hets[gene]++
			}
		}
	}

	if f.mode == RecessiveNonCandidates {
		return filterIDs(ids, func(id int64) bool {
			gs := genes[id]
			if len(gs) == 0 || proband[id].Type != genomic.Heterozygous {
				return false
			}
			for gene := range gs {
				if !env.Panel.IsDistinctlyRecessive(gene) || hets[gene] != 1 {
					return false
				}
			}
			return true
		}), nil
	}

	return filterIDs(ids, func(id int64) bool {
		homozygous := proband[id].Type == genomic.Homozygous
		for gene := range genes[id] {
			if env.Panel.Category(gene) == genepanel.DistinctlyAD {
				continue
			}
			if homozygous || variants[gene] >= 2 {
				return false
			}
		}
		return true
	}), nil
}
