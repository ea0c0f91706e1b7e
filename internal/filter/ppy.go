package filter

import (
	"context"
	"fmt"

	"github.com/glbala87/ELLA-tool-sub001/internal/apperr"
	"github.com/glbala87/ELLA-tool-sub001/internal/genepanel"
	"github.com/glbala87/ELLA-tool-sub001/internal/genomic"
	"github.com/glbala87/ELLA-tool-sub001/internal/model"
)

var defaultPPYTract = []int64{-20, -3}

type ppyFilter struct {
	up, down int64 // both <= 0, relative to the exon start in transcript direction
}

func newPPYFilter(config map[string]interface{}) (Filter, error) {
	var c struct {
		Tract []int64 `mapstructure:"ppy_tract_region"`
	}
	if err := decode(config, &c); err != nil {
		return nil, err
	}
	if c.Tract == nil {
		c.Tract = defaultPPYTract
	}
	if len(c.Tract) != 2 || c.Tract[0] > c.Tract[1] || c.Tract[1] > 0 {
		return nil, fmt.Errorf("%w: ppy_tract_region must be [from, to] with from <= to <= 0, got %v",
			apperr.ErrBadInput, c.Tract)
	}
	return &ppyFilter{up: c.Tract[0], down: c.Tract[1]}, nil
}

// tract returns the polypyrimidine tract in front of exon i, or false for
// the first exon.
func (f *ppyFilter) tract(t *genepanel.Transcript, i int) (genomic.ClosedInterval, bool) {
	if t.IsFirstExon(i) {
		return genomic.ClosedInterval{}, false
	}
	if t.Strand == genomic.Reverse {
		last := t.ExonEnds[i] - 1
		return genomic.ClosedInterval{Start: last - f.down, End: last - f.up}, true
	}
	start := t.ExonStarts[i]
	return genomic.ClosedInterval{Start: start + f.up, End: start + f.down}, true
}

func pyrimidine(b string, reverse bool) bool {
	if reverse {
		return b == "A" || b == "G"
	}
	return b == "C" || b == "T"
}

// Filter drops pyrimidine to pyrimidine SNVs inside the acceptor-side
// polypyrimidine tract of any panel transcript.
func (f *ppyFilter) Filter(ctx context.Context, env *Env, ids model.IDSet) (model.IDSet, error) {
	alleles, err := env.Source.Alleles(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(model.IDSet)
	for id, a := range alleles {
		if a.ChangeType != genomic.SNP {
			continue
		}
		iv := a.Interval()
		pad := -f.up
	transcripts:
		for _, t := range env.Panel.Overlapping(a.Chromosome, iv, pad) {
			reverse := t.Strand == genomic.Reverse
			if !pyrimidine(a.ChangeFrom, reverse) || !pyrimidine(a.ChangeTo, reverse) {
				continue
			}
			for i := range t.ExonStarts {
				tr, ok := f.tract(t, i)
				if ok && tr.OverlapsHalfOpen(iv) {
					out.Add(id)
					break transcripts
				}
			}
		}
	}
	return out, nil
}
