package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glbala87/ELLA-tool-sub001/internal/genomic"
	"github.com/glbala87/ELLA-tool-sub001/internal/model"
	"github.com/glbala87/ELLA-tool-sub001/internal/vcf"
)

func call(gt string, ad []int64, dp int64) vcf.SampleCall {
	g, err := vcf.ParseGT(gt)
	if err != nil {
		panic(err)
	}
	return vcf.SampleCall{GT: g, AD: ad, DP: &dp}
}

func TestAlleleDepth(t *testing.T) {
	biallelic := &vcf.Variant{Ref: "A", Alt: "T", Info: map[string]interface{}{}}
	depth, idx := AlleleDepth(biallelic, call("0/1", []int64{20, 20}, 40))
	assert.Equal(t, 1, idx)
	assert.Equal(t, map[string]int64{"A": 20, "T": 20}, depth)

	split := &vcf.Variant{Ref: "A", Alt: "G", Info: map[string]interface{}{"OLD_MULTIALLELIC": "1:100:A/C/G"}}
	depth, idx = AlleleDepth(split, call("./1", []int64{2, 10, 30}, 42))
	assert.Equal(t, 2, idx)
	assert.Equal(t, map[string]int64{"A": 2, "C": 10, "G": 30}, depth)

	_, idx = AlleleDepth(split, call("./1", []int64{2, 10}, 12))
	assert.Equal(t, -1, idx, "AD shape does not match the original site")

	_, idx = AlleleDepth(biallelic, call("0/1", nil, 40))
	assert.Equal(t, -1, idx)
}

func TestAlleleRatio(t *testing.T) {
	v := &vcf.Variant{Ref: "A", Alt: "T", Info: map[string]interface{}{}}
	r := AlleleRatio(v, call("0/1", []int64{15, 5}, 20))
	require.NotNil(t, r)
	assert.InDelta(t, 0.25, *r, 1e-9)

	assert.Nil(t, AlleleRatio(v, call("0/1", []int64{0, 0}, 0)))
}

func TestVerify(t *testing.T) {
	qual := func(q float64) *float64 { return &q }
	snp := &model.Allele{ChangeType: genomic.SNP}
	ins := &model.Allele{ChangeType: genomic.Insertion}
	qc := DefaultQCConfig()

	tests := []struct {
		name     string
		allele   *model.Allele
		variant  *vcf.Variant
		call     vcf.SampleCall
		typ      genomic.Zygosity
		verify   bool
		failures string
	}{
		{
			name:    "good heterozygous snp",
			allele:  snp,
			variant: &vcf.Variant{Ref: "A", Alt: "T", Qual: qual(5000), Filter: "PASS", Info: map[string]interface{}{}},
			call:    call("0/1", []int64{20, 20}, 40),
			typ:     genomic.Heterozygous,
		},
		{
			name:     "low quality insertion",
			allele:   ins,
			variant:  &vcf.Variant{Ref: "A", Alt: "AT", Qual: qual(100), Filter: "PASS", Info: map[string]interface{}{}},
			call:     call("0/1", []int64{20, 20}, 40),
			typ:      genomic.Heterozygous,
			verify:   true,
			failures: "snp,qual",
		},
		{
			name:     "skewed homozygous",
			allele:   snp,
			variant:  &vcf.Variant{Ref: "A", Alt: "T", Qual: qual(5000), Filter: "LowQD", Info: map[string]interface{}{}},
			call:     call("1/1", []int64{5, 5}, 10),
			typ:      genomic.Homozygous,
			verify:   true,
			failures: "pass,dp,allele_ratio",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sd := model.SampleData{Type: tt.typ}
			qc.Verify(&sd, tt.allele, tt.variant, tt.call)
			assert.Equal(t, tt.verify, sd.NeedsVerification)
			assert.Equal(t, tt.failures, FormatChecks(sd.VerificationChecks))
			assert.Len(t, sd.VerificationChecks, 5)
			require.NotNil(t, sd.SequencingDepth)
		})
	}
}

func TestVerify_ReferenceCallHasNoChecks(t *testing.T) {
	sd := model.SampleData{Type: genomic.Reference}
	v := &vcf.Variant{Ref: "A", Alt: "T", Info: map[string]interface{}{}}
	DefaultQCConfig().Verify(&sd, &model.Allele{ChangeType: genomic.SNP}, v, call("0/0", []int64{30, 0}, 30))
	assert.False(t, sd.NeedsVerification)
	assert.Nil(t, sd.VerificationChecks)
	assert.Nil(t, sd.AlleleRatio)
	assert.Equal(t, map[string]int64{"A": 30, "T": 0}, sd.AlleleDepth)
}
