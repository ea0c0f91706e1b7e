package model

import "github.com/glbala87/ELLA-tool-sub001/internal/genomic"

// Genotype binds one or two alleles of a variant site to a proband sample.
// A split multi-allelic call such as 1/2 sets both AlleleID and SecondAlleleID.
type Genotype struct {
	ID             int64
	AlleleID       int64
	SecondAlleleID *int64
	SampleID       int64
	VariantQuality *float64
	FilterStatus   string
}

// SampleData is the per-sample call for one allele of a genotype.
type SampleData struct {
	GenotypeID         int64
	SampleID           int64
	SecondAllele       bool
	Type               genomic.Zygosity
	Multiallelic       bool
	SequencingDepth    *int64
	GenotypeQuality    *int64
	AlleleDepth        map[string]int64
	AlleleRatio        *float64
	NeedsVerification  bool
	VerificationChecks map[string]bool
}

// AlleleGenotype is the flattened read model used by filters: the call of one
// sample for one allele, joined with the genotype-level fields.
type AlleleGenotype struct {
	AlleleID       int64
	SampleID       int64
	Type           genomic.Zygosity
	Multiallelic   bool
	AlleleRatio    *float64
	VariantQuality *float64
	FilterStatus   string
}
