package ingest

import (
	"github.com/glbala87/ELLA-tool-sub001/internal/model"
	"github.com/glbala87/ELLA-tool-sub001/internal/store"
	"github.com/glbala87/ELLA-tool-sub001/internal/vcf"
)

// sampleColumn links an analysis sample to its VCF column.
type sampleColumn struct {
	sample *model.Sample
	column int
}

// carriedRecords returns the indexes of the block records carried by any
// proband. Only these become alleles.
func carriedRecords(b *vcf.Block, probands []sampleColumn) []int {
	carried := make(map[int]bool)
	for _, p := range probands {
		for _, pair := range b.Pairs(p.column) {
			carried[pair.First] = true
			if pair.Second >= 0 {
				carried[pair.Second] = true
			}
		}
	}
	var out []int
	for i, r := range b.Records {
		if carried[i] && !skippableAlt(r.Alt) {
			out = append(out, i)
		}
	}
	return out
}

// blockGenotypes builds one genotype per proband call in the block, with a
// sample data row per analysis sample for each allele of the genotype.
// alleles holds the allele of each block record, nil for records without one.
func blockGenotypes(b *vcf.Block, alleles []*model.Allele, probands, others []sampleColumn, qc QCConfig) []*store.GenotypeRecord {
	var out []*store.GenotypeRecord
	for _, p := range probands {
		for _, pair := range b.Pairs(p.column) {
			first, second := pair.First, pair.Second
			if alleles[first] == nil {
				first, second = second, -1
			}
			if first < 0 || alleles[first] == nil {
				continue
			}
			if second >= 0 && alleles[second] == nil {
				second = -1
			}

			rec := b.Records[first]
			gr := &store.GenotypeRecord{Genotype: model.Genotype{
				AlleleID:       alleles[first].ID,
				SampleID:       p.sample.ID,
				VariantQuality: rec.Qual,
				FilterStatus:   rec.Filter,
			}}
			if second >= 0 {
				id := alleles[second].ID
				gr.Genotype.SecondAlleleID = &id
			}

			members := append([]sampleColumn{p}, others...)
			for _, m := range members {
				gr.SampleData = append(gr.SampleData, sampleData(b, first, m, alleles[first], false, qc))
				if second >= 0 {
					gr.SampleData = append(gr.SampleData, sampleData(b, second, m, alleles[second], true, qc))
				}
			}
			out = append(out, gr)
		}
	}
	return out
}

func sampleData(b *vcf.Block, rec int, m sampleColumn, a *model.Allele, secondAllele bool, qc QCConfig) model.SampleData {
	z, multi := b.Zygosity(rec, m.column)
	sd := model.SampleData{
		SampleID:     m.sample.ID,
		SecondAllele: secondAllele,
		Type:         z,
		Multiallelic: multi,
	}
	r := b.Records[rec]
	if m.column < len(r.Samples) {
		qc.Verify(&sd, a, r, r.Samples[m.column])
	}
	return sd
}
