package filter

import (
	"context"
	"fmt"
	"strconv"

	"github.com/glbala87/ELLA-tool-sub001/internal/annotation"
	"github.com/glbala87/ELLA-tool-sub001/internal/apperr"
	"github.com/glbala87/ELLA-tool-sub001/internal/genepanel"
	"github.com/glbala87/ELLA-tool-sub001/internal/genomic"
	"github.com/glbala87/ELLA-tool-sub001/internal/model"
)

// Padding holds the [upstream, downstream] splice and UTR windows of the
// region filter. Upstream values are <= 0.
type Padding struct {
	SpliceUp, SpliceDown int64
	UTRUp, UTRDown       int64
}

type regionWindows struct {
	SpliceRegion []int64 `mapstructure:"splice_region"`
	UTRRegion    []int64 `mapstructure:"utr_region"`
}

// RegionConfig configures the region filter. Genes override the windows
// per HGNC id and take precedence over windows carried by the panel.
type RegionConfig struct {
	SpliceRegion []int64                  `mapstructure:"splice_region"`
	UTRRegion    []int64                  `mapstructure:"utr_region"`
	Genes        map[string]regionWindows `mapstructure:"genes"`
}

type regionFilter struct {
	def   Padding
	genes map[int]Padding
}

func newRegionFilter(config map[string]interface{}) (Filter, error) {
	var c RegionConfig
	if err := decode(config, &c); err != nil {
		return nil, err
	}
	def, err := toPadding(regionWindows{SpliceRegion: c.SpliceRegion, UTRRegion: c.UTRRegion}, Padding{})
	if err != nil {
		return nil, err
	}
	f := &regionFilter{def: def, genes: make(map[int]Padding)}
	for gene, w := range c.Genes {
		hgnc, err := strconv.Atoi(gene)
		if err != nil {
			return nil, fmt.Errorf("%w: gene key %q is not an HGNC id", apperr.ErrBadInput, gene)
		}
		if f.genes[hgnc], err = toPadding(w, def); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// toPadding validates w. Windows not given fall back to base.
func toPadding(w regionWindows, base Padding) (Padding, error) {
	p := base
	var err error
	if w.SpliceRegion != nil {
		if p.SpliceUp, p.SpliceDown, err = padding("splice_region", w.SpliceRegion); err != nil {
			return p, err
		}
	}
	if w.UTRRegion != nil {
		if p.UTRUp, p.UTRDown, err = padding("utr_region", w.UTRRegion); err != nil {
			return p, err
		}
	}
	return p, nil
}

// paddingFor resolves the windows of a gene: filter config, then panel
// gene config, then the filter default.
func (f *regionFilter) paddingFor(panel *genepanel.Panel, hgnc int) Padding {
	if p, ok := f.genes[hgnc]; ok {
		return p
	}
	if gc, ok := panel.GeneConfig[hgnc]; ok {
		if p, err := toPadding(regionWindows{SpliceRegion: gc.SpliceRegion, UTRRegion: gc.UTRRegion}, f.def); err == nil {
			return p
		}
	}
	return f.def
}

func (f *regionFilter) maxPad(panel *genepanel.Panel) int64 {
	pad := max(-f.def.SpliceUp, f.def.SpliceDown)
	for _, p := range f.genes {
		pad = max(pad, -p.SpliceUp, p.SpliceDown)
	}
	for hgnc := range panel.GeneConfig {
		p := f.paddingFor(panel, hgnc)
		pad = max(pad, -p.SpliceUp, p.SpliceDown)
	}
	return pad
}

// TranscriptRegions returns the closed genomic regions of t the region
// filter keeps alleles in: the coding parts of exons (whole exons for
// non-coding transcripts), splice windows on both sides of every exon and
// UTR windows next to the CDS, clipped to the transcript.
func TranscriptRegions(t *genepanel.Transcript, p Padding) []genomic.ClosedInterval {
	var out []genomic.ClosedInterval
	add := func(start, end int64) {
		if end >= start {
			out = append(out, genomic.ClosedInterval{Start: start, End: end})
		}
	}
	reverse := t.Strand == genomic.Reverse
	cds, coding := t.CDS()

	spliceUp, spliceDown := -p.SpliceUp, p.SpliceDown
	for _, e := range t.Exons() {
		if coding {
			add(max(e.Start, cds.Start), min(e.End, cds.End)-1)
		} else {
			add(e.Start, e.End-1)
		}
		if reverse {
			add(e.End, e.End+spliceUp-1)
			add(e.Start-spliceDown, e.Start-1)
		} else {
			add(e.Start-spliceUp, e.Start-1)
			add(e.End, e.End+spliceDown-1)
		}
	}

	if coding {
		utrUp, utrDown := -p.UTRUp, p.UTRDown
		span := genomic.ClosedInterval{Start: t.TxStart, End: t.TxEnd - 1}
		var utr5, utr3 genomic.ClosedInterval
		if reverse {
			utr5 = genomic.ClosedInterval{Start: cds.End, End: cds.End + utrUp - 1}
			utr3 = genomic.ClosedInterval{Start: cds.Start - utrDown, End: cds.Start - 1}
		} else {
			utr5 = genomic.ClosedInterval{Start: cds.Start - utrUp, End: cds.Start - 1}
			utr3 = genomic.ClosedInterval{Start: cds.End, End: cds.End + utrDown - 1}
		}
		for _, r := range []genomic.ClosedInterval{utr5, utr3} {
			r = r.Intersect(span)
			add(r.Start, r.End)
		}
	}
	return out
}

// rescued reports whether the HGVSc distances of a reconciled transcript
// place the allele inside the windows.
func rescued(t annotation.ShadowTranscript, p Padding) bool {
	if t.ExonDistance == nil {
		return false
	}
	ed := *t.ExonDistance
	if ed < p.SpliceUp || ed > p.SpliceDown {
		return false
	}
	if t.CodingRegionDistance == nil {
		return true
	}
	cd := *t.CodingRegionDistance
	return cd >= p.UTRUp && cd <= p.UTRDown
}

// Filter drops alleles outside the regions of every panel transcript that
// are not rescued by their HGVSc distances.
func (f *regionFilter) Filter(ctx context.Context, env *Env, ids model.IDSet) (model.IDSet, error) {
	alleles, err := env.Source.Alleles(ctx, ids)
	if err != nil {
		return nil, err
	}
	pad := f.maxPad(env.Panel)
	regions := make(map[*genepanel.Transcript][]genomic.ClosedInterval)

	outside := make(model.IDSet)
	for id, a := range alleles {
		iv := a.Interval()
		inside := false
		for _, t := range env.Panel.Overlapping(a.Chromosome, iv, pad) {
			r, ok := regions[t]
			if !ok {
				r = TranscriptRegions(t, f.paddingFor(env.Panel, t.HGNCID))
				regions[t] = r
			}
			for _, region := range r {
				if region.OverlapsHalfOpen(iv) {
					inside = true
					break
				}
			}
			if inside {
				break
			}
		}
		if !inside {
			outside.Add(id)
		}
	}

	matches, err := env.Matches(ctx, outside)
	if err != nil {
		return nil, err
	}
	for _, m := range matches {
		if outside.Has(m.AlleleID) && rescued(m.Annotation, f.paddingFor(env.Panel, m.HGNCID())) {
			delete(outside, m.AlleleID)
		}
	}
	return outside, nil
}
