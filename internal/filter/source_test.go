package filter

import (
	"context"
	"time"

	"github.com/glbala87/ELLA-tool-sub001/internal/annotation"
	"github.com/glbala87/ELLA-tool-sub001/internal/genepanel"
	"github.com/glbala87/ELLA-tool-sub001/internal/genomic"
	"github.com/glbala87/ELLA-tool-sub001/internal/model"
)

// fakeSource is an in-memory Source.
type fakeSource struct {
	analysisAlleles model.IDSet
	alleles         map[int64]*model.Allele
	transcripts     []annotation.ShadowTranscript
	frequencies     []annotation.ShadowFrequency
	annotations     map[int64]*annotation.Annotation
	panel           *genepanel.Panel
	samples         []*model.Sample
	genotypes       []model.AlleleGenotype
	assessments     map[int64]*model.Assessment
}

func newFakeSource(panel *genepanel.Panel) *fakeSource {
	return &fakeSource{
		analysisAlleles: make(model.IDSet),
		alleles:         make(map[int64]*model.Allele),
		annotations:     make(map[int64]*annotation.Annotation),
		assessments:     make(map[int64]*model.Assessment),
		panel:           panel,
	}
}

func (f *fakeSource) AnalysisAlleleIDs(context.Context, int64) (model.IDSet, error) {
	return f.analysisAlleles.Union(nil), nil
}

func (f *fakeSource) Alleles(_ context.Context, ids model.IDSet) (map[int64]*model.Allele, error) {
	out := make(map[int64]*model.Allele)
	for id := range ids {
		if a, ok := f.alleles[id]; ok {
			out[id] = a
		}
	}
	return out, nil
}

func (f *fakeSource) TranscriptShadows(_ context.Context, ids model.IDSet) ([]annotation.ShadowTranscript, error) {
	var out []annotation.ShadowTranscript
	for _, t := range f.transcripts {
		if ids.Has(t.AlleleID) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeSource) FrequencyShadows(_ context.Context, ids model.IDSet) ([]annotation.ShadowFrequency, error) {
	var out []annotation.ShadowFrequency
	for _, r := range f.frequencies {
		if ids.Has(r.AlleleID) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeSource) Annotations(_ context.Context, ids model.IDSet) (map[int64]*annotation.Annotation, error) {
	out := make(map[int64]*annotation.Annotation)
	for id := range ids {
		if a, ok := f.annotations[id]; ok {
			out[id] = a
		}
	}
	return out, nil
}

func (f *fakeSource) GenePanel(context.Context, model.GenePanelKey) (*genepanel.Panel, error) {
	return f.panel, nil
}

func (f *fakeSource) Samples(context.Context, int64) ([]*model.Sample, error) {
	return f.samples, nil
}

func (f *fakeSource) Genotypes(_ context.Context, _ int64, ids model.IDSet) ([]model.AlleleGenotype, error) {
	var out []model.AlleleGenotype
	for _, g := range f.genotypes {
		if ids.Has(g.AlleleID) {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeSource) Assessments(_ context.Context, ids model.IDSet) (map[int64]*model.Assessment, error) {
	out := make(map[int64]*model.Assessment)
	for id := range ids {
		if a, ok := f.assessments[id]; ok {
			out[id] = a
		}
	}
	return out, nil
}

// addSNV registers a single-base substitution at the 0-based position.
func (f *fakeSource) addSNV(id int64, chrom string, pos int64, from, to string) {
	f.analysisAlleles.Add(id)
	f.alleles[id] = &model.Allele{
		ID: id, Chromosome: chrom, StartPosition: pos, OpenEndPosition: pos + 1,
		ChangeFrom: from, ChangeTo: to, ChangeType: genomic.SNP, Length: 1,
	}
}

// onTranscript annotates an allele on a transcript of a gene.
func (f *fakeSource) onTranscript(id int64, transcript string, hgnc int, cons ...genomic.Consequence) *annotation.ShadowTranscript {
	f.transcripts = append(f.transcripts, annotation.ShadowTranscript{
		AlleleID: id, Transcript: transcript, HGNCID: hgnc, Consequences: cons,
	})
	return &f.transcripts[len(f.transcripts)-1]
}

func (f *fakeSource) frequency(id int64, provider, key string, freq float64, num int64) {
	f.frequencies = append(f.frequencies, annotation.ShadowFrequency{
		AlleleID: id, Provider: provider, Key: key, Freq: freq, Num: &num,
	})
}

func (f *fakeSource) genotype(alleleID, sampleID int64, z genomic.Zygosity) {
	f.genotypes = append(f.genotypes, model.AlleleGenotype{AlleleID: alleleID, SampleID: sampleID, Type: z})
}

func (f *fakeSource) env() *Env {
	return &Env{
		Source:     f,
		AnalysisID: 1,
		Panel:      f.panel,
		Groups:     testGroups,
		Now:        testNow,
	}
}

var testNow = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

var testGroups = annotation.FrequencyGroups{
	"external": {"GNOMAD_GENOMES": {"G", "NFE"}, "GNOMAD_EXOMES": {"G"}},
	"internal": {"inDB": {"AF"}},
}

const (
	brca2 = 1101
	mutyh = 7527
	gja1  = 4274
)

// testPanel has one + strand transcript per gene: BRCA2 (AD) on 13 with the
// layout tx [1000,1500) cds [1230,1430) and four exons, MUTYH (AR) on 1,
// GJA1 (AD/AR) on 6.
func testPanel() *genepanel.Panel {
	return genepanel.NewPanel("HBOC", "v1.0.0",
		[]genepanel.Gene{{HGNCID: brca2, Symbol: "BRCA2"}, {HGNCID: mutyh, Symbol: "MUTYH"}, {HGNCID: gja1, Symbol: "GJA1"}},
		[]*genepanel.Transcript{
			{
				Name: "NM_000059.3", HGNCID: brca2, Chromosome: "13", Strand: genomic.Forward,
				TxStart: 1000, TxEnd: 1500, CDSStart: 1230, CDSEnd: 1430,
				ExonStarts: []int64{1100, 1200, 1300, 1400}, ExonEnds: []int64{1160, 1260, 1360, 1460},
			},
			{
				Name: "NM_001128425.1", HGNCID: mutyh, Chromosome: "1", Strand: genomic.Reverse,
				TxStart: 5000, TxEnd: 6000, CDSStart: 5100, CDSEnd: 5900,
				ExonStarts: []int64{5050, 5500}, ExonEnds: []int64{5200, 5950},
			},
			{
				Name: "NM_000165.4", HGNCID: gja1, Chromosome: "6", Strand: genomic.Forward,
				TxStart: 100, TxEnd: 900, CDSStart: 200, CDSEnd: 800,
				ExonStarts: []int64{100, 600}, ExonEnds: []int64{300, 900},
			},
		},
		[]genepanel.Phenotype{
			{HGNCID: brca2, Description: "Breast cancer", Inheritance: genomic.AD},
			{HGNCID: mutyh, Description: "Polyposis", Inheritance: genomic.AR},
			{HGNCID: gja1, Description: "Deafness", Inheritance: genomic.AD},
			{HGNCID: gja1, Description: "ODDD", Inheritance: genomic.AR},
		},
	)
}
