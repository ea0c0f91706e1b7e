package ingest

import (
	"strings"

	"github.com/glbala87/ELLA-tool-sub001/internal/genomic"
	"github.com/glbala87/ELLA-tool-sub001/internal/model"
	"github.com/glbala87/ELLA-tool-sub001/internal/vcf"
)

// QCConfig holds the thresholds of the genotype verification check.
type QCConfig struct {
	MinQual      float64 `mapstructure:"min_qual"`
	MinDepth     int64   `mapstructure:"min_depth"`
	HomRatio     float64 `mapstructure:"hom_ratio"`
	HetRatioLow  float64 `mapstructure:"het_ratio_low"`
	HetRatioHigh float64 `mapstructure:"het_ratio_high"`
}

// DefaultQCConfig returns the standard thresholds.
func DefaultQCConfig() QCConfig {
	return QCConfig{
		MinQual:      300,
		MinDepth:     20,
		HomRatio:     0.9,
		HetRatioLow:  0.3,
		HetRatioHigh: 0.6,
	}
}

// Names of the individual verification checks.
const (
	CheckSNP         = "snp"
	CheckPass        = "pass"
	CheckQual        = "qual"
	CheckDepth       = "dp"
	CheckAlleleRatio = "allele_ratio"
)

// originalAlleles returns REF and all ALTs of the site a decomposed record
// came from, using the decomposer's OLD_MULTIALLELIC tag
// ("chr:pos:REF/ALT1/ALT2"). ok is false when the record was not split.
func originalAlleles(v *vcf.Variant) ([]string, bool) {
	raw, ok := v.Info["OLD_MULTIALLELIC"].(string)
	if !ok {
		return nil, false
	}
	i := strings.LastIndexByte(raw, ':')
	alleles := strings.Split(raw[i+1:], "/")
	if len(alleles) < 3 {
		return nil, false
	}
	return alleles, true
}

// AlleleDepth maps allele bases to read depth, and returns the AD index of
// the record's own ALT, or -1 when AD does not have the expected shape:
// two entries for a biallelic site, one per original allele otherwise.
func AlleleDepth(v *vcf.Variant, call vcf.SampleCall) (map[string]int64, int) {
	if call.AD == nil {
		return nil, -1
	}
	if alleles, ok := originalAlleles(v); ok {
		if len(call.AD) != len(alleles) {
			return nil, -1
		}
		idx := -1
		for i, a := range alleles[1:] {
			if a == v.Alt {
				idx = i + 1
				break
			}
		}
		depth := make(map[string]int64, len(alleles))
		for i, a := range alleles {
			depth[a] = call.AD[i]
		}
		if idx < 0 && len(alleles) == 3 {
			// Normalization rewrote the ALT; take the first ALT slot.
			idx = 1
		}
		return depth, idx
	}
	if v.IsMultiallelicSplit() {
		if len(call.AD) != 3 {
			return nil, -1
		}
		return map[string]int64{v.Ref: call.AD[0], v.Alt: call.AD[1], "other": call.AD[2]}, 1
	}
	if len(call.AD) != 2 {
		return nil, -1
	}
	return map[string]int64{v.Ref: call.AD[0], v.Alt: call.AD[1]}, 1
}

// AlleleRatio returns AD[alt] / ΣAD, or nil when undefined.
func AlleleRatio(v *vcf.Variant, call vcf.SampleCall) *float64 {
	_, idx := AlleleDepth(v, call)
	if idx < 0 {
		return nil
	}
	var sum int64
	for _, d := range call.AD {
		sum += d
	}
	if sum <= 0 {
		return nil
	}
	r := float64(call.AD[idx]) / float64(sum)
	return &r
}

// Verify fills the QC fields of sd for the call of one sample on the record
// an allele was created from.
func (c QCConfig) Verify(sd *model.SampleData, a *model.Allele, v *vcf.Variant, call vcf.SampleCall) {
	sd.SequencingDepth = call.DP
	sd.GenotypeQuality = call.GQ
	sd.AlleleDepth, _ = AlleleDepth(v, call)
	if !sd.Type.HasVariant() {
		return
	}
	sd.AlleleRatio = AlleleRatio(v, call)

	checks := map[string]bool{
		CheckSNP:         a.ChangeType == genomic.SNP,
		CheckPass:        v.Filter == "PASS",
		CheckQual:        v.Qual != nil && *v.Qual > c.MinQual,
		CheckDepth:       call.DP != nil && *call.DP > c.MinDepth,
		CheckAlleleRatio: c.ratioOK(sd.Type, sd.AlleleRatio),
	}
	sd.VerificationChecks = checks
	sd.NeedsVerification = false
	for _, ok := range checks {
		if !ok {
			sd.NeedsVerification = true
		}
	}
}

func (c QCConfig) ratioOK(z genomic.Zygosity, ratio *float64) bool {
	if ratio == nil {
		return false
	}
	if z == genomic.Homozygous {
		return *ratio > c.HomRatio
	}
	return *ratio > c.HetRatioLow && *ratio < c.HetRatioHigh
}

// FormatChecks renders the failed checks, e.g. "qual,dp", for log output.
func FormatChecks(checks map[string]bool) string {
	var failed []string
	for _, name := range []string{CheckSNP, CheckPass, CheckQual, CheckDepth, CheckAlleleRatio} {
		if ok, present := checks[name]; present && !ok {
			failed = append(failed, name)
		}
	}
	return strings.Join(failed, ",")
}
