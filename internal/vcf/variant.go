// Package vcf reads decomposed, normalized VCF files with their sample
// columns, PED files, and groups records into prefilter batches and
// multi-allelic blocks.
package vcf

import (
	"strconv"
	"strings"

	"github.com/glbala87/ELLA-tool-sub001/internal/genomic"
	"github.com/glbala87/ELLA-tool-sub001/internal/model"
)

// Variant is a single VCF data line. After decomposition Alt holds one allele.
type Variant struct {
	Chrom   string // as written in the file
	Pos     int64  // 1-based
	ID      string
	Ref     string
	Alt     string
	Qual    *float64 // nil for "."
	Filter  string
	Info    map[string]interface{} // flags map to true
	Samples []SampleCall           // aligned with Parser.SampleNames
	Line    int
}

// SampleCall holds the FORMAT fields of one sample on one record.
type SampleCall struct {
	GT     GT
	AD     []int64 // nil when absent or not all integers
	DP     *int64
	GQ     *int64
	Fields map[string]string
}

// Key returns the (chrom, pos, ref, alt) identity of the record.
func (v *Variant) Key() model.VCFKey {
	return model.VCFKey{Chromosome: genomic.NormalizeChrom(v.Chrom), Pos: v.Pos, Ref: v.Ref, Alt: v.Alt}
}

// End returns the last reference base covered, 1-based inclusive.
func (v *Variant) End() int64 {
	return v.Pos + int64(len(v.Ref)) - 1
}

// IsSNV returns true if the variant is a single nucleotide variant.
func (v *Variant) IsSNV() bool {
	return len(v.Ref) == 1 && len(v.Alt) == 1
}

// IsSymbolic reports a symbolic ALT such as <DEL>.
func (v *Variant) IsSymbolic() bool {
	return strings.HasPrefix(v.Alt, "<")
}

// IsMultiallelicSplit reports whether the record came from decomposing a
// multi-ALT site, as flagged by the decomposer.
func (v *Variant) IsMultiallelicSplit() bool {
	_, ok := v.Info["OLD_MULTIALLELIC"]
	return ok
}

// InfoFloat returns a numeric INFO value (first element for lists).
func (v *Variant) InfoFloat(key string) (float64, bool) {
	s, ok := v.Info[key].(string)
	if !ok {
		return 0, false
	}
	if i := strings.IndexByte(s, ','); i >= 0 {
		s = s[:i]
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// InfoInt returns an integer INFO value (first element for lists).
func (v *Variant) InfoInt(key string) (int64, bool) {
	f, ok := v.InfoFloat(key)
	if !ok {
		return 0, false
	}
	return int64(f), true
}
