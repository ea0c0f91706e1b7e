package genomic

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChromLess(t *testing.T) {
	chroms := []string{"MT", "X", "10", "2", "Y", "1", "chr22", "GL000192.1"}
	sort.Slice(chroms, func(i, j int) bool { return ChromLess(chroms[i], chroms[j]) })
	assert.Equal(t, []string{"1", "2", "10", "chr22", "X", "Y", "MT", "GL000192.1"}, chroms)
}

func TestInPAR(t *testing.T) {
	tests := []struct {
		chrom string
		pos   int64
		want  bool
	}{
		{"X", 59999, false},
		{"X", 60000, true},
		{"X", 2699519, true},
		{"X", 2699520, false},
		{"X", 154931043, true},
		{"X", 155260560, false},
		{"chrX", 100000, true},
		{"1", 100000, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, InPAR(tt.chrom, tt.pos), "%s:%d", tt.chrom, tt.pos)
	}
	assert.True(t, IsXMinusPAR("X", 60000001))
	assert.False(t, IsXMinusPAR("X", 60001))
}

func TestClosedIntervalOverlap(t *testing.T) {
	c := ClosedInterval{Start: 1290, End: 1299}
	assert.True(t, c.OverlapsHalfOpen(Interval{Start: 1290, End: 1291}))
	assert.True(t, c.OverlapsHalfOpen(Interval{Start: 1299, End: 1300}))
	assert.False(t, c.OverlapsHalfOpen(Interval{Start: 1289, End: 1290}))
	assert.False(t, c.OverlapsHalfOpen(Interval{Start: 1300, End: 1301}))
	assert.False(t, ClosedInterval{Start: 5, End: 4}.OverlapsHalfOpen(Interval{Start: 0, End: 10}))

	h, ok := Interval{Start: 10, End: 20}.Closed()
	require.True(t, ok)
	assert.Equal(t, ClosedInterval{Start: 10, End: 19}, h)
	_, ok = Interval{Start: 10, End: 10}.Closed()
	assert.False(t, ok)
}

func TestConsequenceOrder(t *testing.T) {
	assert.True(t, StopGained.MoreSevere(MissenseVariant))
	assert.False(t, IntronVariant.MoreSevere(SynonymousVariant))

	c, err := ParseConsequence("splice_region_variant")
	require.NoError(t, err)
	assert.Equal(t, SpliceRegionVariant, c)
	assert.Equal(t, "splice_region_variant", c.String())

	_, err = ParseConsequence("made_up_variant")
	assert.Error(t, err)

	got := SplitConsequences("intron_variant&splice_region_variant&bogus")
	assert.Equal(t, []Consequence{SpliceRegionVariant, IntronVariant}, got)
	assert.Equal(t, ImpactHigh, StopGained.Impact())
	assert.Equal(t, ImpactModifier, IntronVariant.Impact())
}

func TestParseInheritance(t *testing.T) {
	assert.Equal(t, AD, ParseInheritance("AD"))
	assert.Equal(t, ADAR, ParseInheritance("AD/AR"))
	assert.Equal(t, XR, ParseInheritance("xr"))
	assert.Equal(t, Other, ParseInheritance("digenic"))
	assert.Equal(t, InheritanceUnknown, ParseInheritance(""))
	assert.True(t, XR.IsRecessive())
	assert.False(t, AD.IsRecessive())
}

func TestZygosityAndChangeType(t *testing.T) {
	z, err := ParseZygosity("No coverage")
	require.NoError(t, err)
	assert.Equal(t, NoCoverage, z)
	assert.False(t, z.HasVariant())
	assert.True(t, Homozygous.HasVariant())

	ct, err := ParseChangeType("snp")
	require.NoError(t, err)
	assert.Equal(t, SNP, ct)
	_, err = ParseChangeType("bnd")
	assert.Error(t, err)

	s, err := ParseStrand("-1")
	require.NoError(t, err)
	assert.Equal(t, Reverse, s)
}
