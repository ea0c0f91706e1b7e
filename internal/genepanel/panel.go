package genepanel

import (
	"sort"

	"github.com/glbala87/ELLA-tool-sub001/internal/genomic"
	"github.com/glbala87/ELLA-tool-sub001/internal/model"
)

// GeneConfig is a per-gene override of filter parameters carried by a panel.
// Filter configs may override it again.
type GeneConfig struct {
	SpliceRegion []int64                `json:"splice_region,omitempty" mapstructure:"splice_region"`
	UTRRegion    []int64                `json:"utr_region,omitempty" mapstructure:"utr_region"`
	Thresholds   map[string]interface{} `json:"thresholds,omitempty" mapstructure:"thresholds"`
}

// Panel is an immutable, published gene panel.
type Panel struct {
	Name        string
	Version     string
	Genes       map[int]Gene
	Transcripts []*Transcript
	Phenotypes  []Phenotype
	GeneConfig  map[int]GeneConfig

	byChrom     map[string]*IntervalTree
	inheritance map[int]map[genomic.Inheritance]bool
}

// NewPanel builds the lookup indexes of a panel. The returned panel must not
// be modified.
func NewPanel(name, version string, genes []Gene, transcripts []*Transcript, phenotypes []Phenotype) *Panel {
	p := &Panel{
		Name:        name,
		Version:     version,
		Genes:       make(map[int]Gene, len(genes)),
		Transcripts: transcripts,
		Phenotypes:  phenotypes,
		GeneConfig:  make(map[int]GeneConfig),
		byChrom:     make(map[string]*IntervalTree),
		inheritance: make(map[int]map[genomic.Inheritance]bool),
	}
	for _, g := range genes {
		p.Genes[g.HGNCID] = g
	}

	perChrom := make(map[string][]*Transcript)
	for _, t := range transcripts {
		chrom := genomic.NormalizeChrom(t.Chromosome)
		perChrom[chrom] = append(perChrom[chrom], t)
	}
	for chrom, txs := range perChrom {
		p.byChrom[chrom] = BuildIntervalTree(txs)
	}

	for _, ph := range phenotypes {
		if p.inheritance[ph.HGNCID] == nil {
			p.inheritance[ph.HGNCID] = make(map[genomic.Inheritance]bool)
		}
		p.inheritance[ph.HGNCID][ph.Inheritance] = true
	}
	return p
}

// Key returns the panel key.
func (p *Panel) Key() model.GenePanelKey {
	return model.GenePanelKey{Name: p.Name, Version: p.Version}
}

// HasGene reports whether the gene is part of the panel.
func (p *Panel) HasGene(hgncID int) bool {
	_, ok := p.Genes[hgncID]
	return ok
}

// Symbol returns the gene symbol or "".
func (p *Panel) Symbol(hgncID int) string {
	return p.Genes[hgncID].Symbol
}

// Inheritance returns the sorted set of inheritance modes of a gene.
func (p *Panel) Inheritance(hgncID int) []genomic.Inheritance {
	var out []genomic.Inheritance
	for i := range p.inheritance[hgncID] {
		out = append(out, i)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Category classifies a gene as distinctly AD, distinctly AR or mixed.
func (p *Panel) Category(hgncID int) InheritanceCategory {
	modes := p.inheritance[hgncID]
	if len(modes) != 1 {
		return Mixed
	}
	switch {
	case modes[genomic.AD]:
		return DistinctlyAD
	case modes[genomic.AR]:
		return DistinctlyAR
	}
	return Mixed
}

// IsDistinctlyRecessive reports whether every inheritance mode of the gene
// is AR or XR.
func (p *Panel) IsDistinctlyRecessive(hgncID int) bool {
	modes := p.inheritance[hgncID]
	if len(modes) == 0 {
		return false
	}
	for m := range modes {
		if !m.IsRecessive() {
			return false
		}
	}
	return true
}

// Overlapping returns panel transcripts on chrom whose span, padded by pad
// bases, overlaps iv.
func (p *Panel) Overlapping(chrom string, iv genomic.Interval, pad int64) []*Transcript {
	tree, ok := p.byChrom[genomic.NormalizeChrom(chrom)]
	if !ok {
		return nil
	}
	return tree.Overlapping(iv, pad)
}

// TranscriptsByBaseName indexes the panel transcripts by base name.
func (p *Panel) TranscriptsByBaseName() map[string][]*Transcript {
	out := make(map[string][]*Transcript, len(p.Transcripts))
	for _, t := range p.Transcripts {
		base := BaseName(t.Name)
		out[base] = append(out[base], t)
	}
	return out
}
