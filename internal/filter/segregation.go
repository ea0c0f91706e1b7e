package filter

import (
	"context"
	"regexp"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/glbala87/ELLA-tool-sub001/internal/genomic"
	"github.com/glbala87/ELLA-tool-sub001/internal/model"
)

var inclusion = regexp.MustCompile(defaultInclusionRegex)

// TrioCall is the zygosity of proband, father and mother for one allele.
// Hemizygous calls of males outside PAR count as Homozygous (alt) or
// Reference.
type TrioCall struct {
	Proband, Father, Mother genomic.Zygosity
}

func (c TrioCall) covered() bool {
	for _, z := range []genomic.Zygosity{c.Proband, c.Father, c.Mother} {
		if z != genomic.Reference && z != genomic.Heterozygous && z != genomic.Homozygous {
			return false
		}
	}
	return true
}

// IsDeNovo reports whether the proband call cannot be inherited from the
// parents' calls.
func IsDeNovo(c TrioCall, xMinusPAR bool, probandSex model.Sex) bool {
	if !c.covered() {
		return false
	}
	ref, het, hom := genomic.Reference, genomic.Heterozygous, genomic.Homozygous
	if xMinusPAR {
		if c.Father != ref {
			return false
		}
		if probandSex == model.Male {
			return c.Mother == ref && c.Proband == hom
		}
		return (c.Mother == ref && c.Proband.HasVariant()) ||
			(c.Mother == het && c.Proband == hom)
	}
	switch {
	case c.Father == ref && c.Mother == ref:
		return c.Proband.HasVariant()
	case c.Father == ref && c.Mother == het, c.Father == het && c.Mother == ref:
		return c.Proband == hom
	}
	return false
}

// IsARHomozygous reports a homozygous proband of two heterozygous parents
// outside X-minus-PAR.
func IsARHomozygous(c TrioCall, xMinusPAR bool) bool {
	return !xMinusPAR && c.Proband == genomic.Homozygous &&
		c.Father == genomic.Heterozygous && c.Mother == genomic.Heterozygous
}

// IsXRHomozygous reports a homozygous proband of a reference father and a
// heterozygous mother in X-minus-PAR.
func IsXRHomozygous(c TrioCall, xMinusPAR bool) bool {
	return xMinusPAR && c.Proband == genomic.Homozygous &&
		c.Father == genomic.Reference && c.Mother == genomic.Heterozygous
}

// compoundHetParent reports whether c can be one half of a compound
// heterozygote, and from which parent it is inherited.
func compoundHetParent(c TrioCall) (fromFather, ok bool) {
	if !c.covered() || c.Proband != genomic.Heterozygous ||
		c.Father == genomic.Homozygous || c.Mother == genomic.Homozygous {
		return false, false
	}
	fatherHet, motherHet := c.Father == genomic.Heterozygous, c.Mother == genomic.Heterozygous
	if fatherHet == motherHet {
		return false, false
	}
	return fatherHet, true
}

type segregationFilter struct{}

func newSegregationFilter(config map[string]interface{}) (Filter, error) {
	var c struct{}
	if err := decode(config, &c); err != nil {
		return nil, err
	}
	return segregationFilter{}, nil
}

// Filter keeps alleles that segregate as de novo, recessive homozygous or
// compound heterozygous in a trio and drops the rest. Analyses without a
// trio are not filtered.
func (segregationFilter) Filter(ctx context.Context, env *Env, ids model.IDSet) (model.IDSet, error) {
	if len(ids) == 0 {
		return model.IDSet{}, nil
	}
	samples, err := env.Source.Samples(ctx, env.AnalysisID)
	if err != nil {
		return nil, err
	}
	family, ok := model.Trio(samples)
	if !ok {
		env.log().Debug("no trio, segregation filter skipped")
		return model.IDSet{}, nil
	}

	gts, err := env.Source.Genotypes(ctx, env.AnalysisID, ids)
	if err != nil {
		return nil, err
	}
	calls := make(map[int64]*TrioCall, len(ids))
	for id := range ids {
		calls[id] = &TrioCall{}
	}
	for _, g := range gts {
		c, ok := calls[g.AlleleID]
		if !ok {
			continue
		}
		switch g.SampleID {
		case family.Proband.ID:
			c.Proband = g.Type
		case family.Father.ID:
			c.Father = g.Type
		case family.Mother.ID:
			c.Mother = g.Type
		}
	}
	alleles, err := env.Source.Alleles(ctx, ids)
	if err != nil {
		return nil, err
	}
	xMinusPAR := func(id int64) bool {
		a, ok := alleles[id]
		return ok && genomic.IsXMinusPAR(a.Chromosome, a.StartPosition)
	}

	var denovo, arHom, xrHom, compoundHet model.IDSet
	var g errgroup.Group
	g.Go(func() error {
		denovo = filterIDs(ids, func(id int64) bool {
			return IsDeNovo(*calls[id], xMinusPAR(id), family.Proband.Sex)
		})
		return nil
	})
	g.Go(func() error {
		arHom = filterIDs(ids, func(id int64) bool { return IsARHomozygous(*calls[id], xMinusPAR(id)) })
		return nil
	})
	g.Go(func() error {
		xrHom = filterIDs(ids, func(id int64) bool { return IsXRHomozygous(*calls[id], xMinusPAR(id)) })
		return nil
	})
	g.Go(func() error {
		var err error
		compoundHet, err = compoundHeterozygotes(ctx, env, ids, calls)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	keep := denovo.Union(arHom).Union(xrHom).Union(compoundHet)
	env.log().Debug("segregation",
		zap.Int("denovo", len(denovo)), zap.Int("ar_hom", len(arHom)),
		zap.Int("xr_hom", len(xrHom)), zap.Int("compound_het", len(compoundHet)))
	return ids.Minus(keep), nil
}

// compoundHeterozygotes returns the candidate alleles of genes holding at
// least two candidates, with at least one inherited from each parent.
func compoundHeterozygotes(ctx context.Context, env *Env, ids model.IDSet, calls map[int64]*TrioCall) (model.IDSet, error) {
	candidates := make(map[int64]bool)
	for id, c := range calls {
		if fromFather, ok := compoundHetParent(*c); ok {
			candidates[id] = fromFather
		}
	}
	out := make(model.IDSet)
	if len(candidates) < 2 {
		return out, nil
	}

	candidateIDs := filterIDs(ids, func(id int64) bool { _, ok := candidates[id]; return ok })
	matches, err := env.Matches(ctx, candidateIDs)
	if err != nil {
		return nil, err
	}
	type geneAlleles struct {
		ids            model.IDSet
		father, mother bool
	}
	bySymbol := make(map[string]*geneAlleles)
	for _, m := range matches {
		if !inclusion.MatchString(m.Annotation.Transcript) {
			continue
		}
		symbol := env.Panel.Symbol(m.HGNCID())
		if symbol == "" {
			symbol = m.Annotation.Symbol
		}
		ga, ok := bySymbol[symbol]
		if !ok {
			ga = &geneAlleles{ids: make(model.IDSet)}
			bySymbol[symbol] = ga
		}
		ga.ids.Add(m.AlleleID)
		if candidates[m.AlleleID] {
			ga.father = true
		} else {
			ga.mother = true
		}
	}
	for _, ga := range bySymbol {
		if len(ga.ids) >= 2 && ga.father && ga.mother {
			out = out.Union(ga.ids)
		}
	}
	return out, nil
}
