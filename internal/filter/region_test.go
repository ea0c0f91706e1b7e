package filter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glbala87/ELLA-tool-sub001/internal/apperr"
	"github.com/glbala87/ELLA-tool-sub001/internal/genepanel"
	"github.com/glbala87/ELLA-tool-sub001/internal/genomic"
	"github.com/glbala87/ELLA-tool-sub001/internal/model"
)

var regionConfig = map[string]interface{}{
	"splice_region": []interface{}{-10, 5},
	"utr_region":    []interface{}{-12, 20},
}

func TestTranscriptRegions(t *testing.T) {
	tx := testPanel().Transcripts[0]
	regions := TranscriptRegions(tx, Padding{SpliceUp: -10, SpliceDown: 5, UTRUp: -12, UTRDown: 20})

	inside := func(pos int64) bool {
		for _, r := range regions {
			if r.OverlapsHalfOpen(genomic.Interval{Start: pos, End: pos + 1}) {
				return true
			}
		}
		return false
	}
	tests := []struct {
		pos  int64
		want bool
	}{
		{1300, true},  // coding exon
		{1290, true},  // splice upstream of exon 3
		{1289, false}, // one base beyond
		{1364, true},  // splice downstream of exon 3
		{1365, false},
		{1218, true}, // 5' UTR window
		{1217, false},
		{1449, true}, // 3' UTR window
		{1451, false},
		{1150, false}, // UTR part of the first exon
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, inside(tt.pos), "position %d", tt.pos)
	}
}

func TestTranscriptRegions_NonCoding(t *testing.T) {
	tx := &genepanel.Transcript{
		Name: "NR_1.1", Strand: genomic.Forward, TxStart: 100, TxEnd: 300, CDSStart: 300, CDSEnd: 300,
		ExonStarts: []int64{100, 200}, ExonEnds: []int64{150, 300},
	}
	regions := TranscriptRegions(tx, Padding{SpliceUp: -2, SpliceDown: 2, UTRUp: -50, UTRDown: 50})
	assert.Contains(t, regions, genomic.ClosedInterval{Start: 100, End: 149})
	assert.Contains(t, regions, genomic.ClosedInterval{Start: 200, End: 299})
	assert.Contains(t, regions, genomic.ClosedInterval{Start: 150, End: 151})
	for _, r := range regions {
		assert.False(t, r.Start < 98 || r.End > 301, "no UTR window on non-coding transcript: %v", r)
	}
}

func TestTranscriptRegions_Reverse(t *testing.T) {
	tx := testPanel().Transcripts[1] // MUTYH, - strand, cds [5100,5900)
	regions := TranscriptRegions(tx, Padding{SpliceUp: -10, SpliceDown: 5, UTRUp: -12, UTRDown: 20})
	// Upstream on the - strand is to the right of the exon end.
	assert.Contains(t, regions, genomic.ClosedInterval{Start: 5200, End: 5209})
	assert.Contains(t, regions, genomic.ClosedInterval{Start: 5045, End: 5049})
	// 5' UTR window lies above the CDS end, 3' below the CDS start.
	assert.Contains(t, regions, genomic.ClosedInterval{Start: 5900, End: 5911})
	assert.Contains(t, regions, genomic.ClosedInterval{Start: 5080, End: 5099})
}

func TestRegionFilter(t *testing.T) {
	src := newFakeSource(testPanel())
	positions := map[int64]int64{1: 1300, 2: 1290, 3: 1218, 4: 1289, 5: 1451}
	for id, pos := range positions {
		src.addSNV(id, "13", pos, "A", "G")
	}
	f, err := New("region", regionConfig)
	require.NoError(t, err)

	drop, err := f.Filter(context.Background(), src.env(), src.analysisAlleles)
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 5}, drop.Sorted())
}

func TestRegionFilter_HGVScRescue(t *testing.T) {
	src := newFakeSource(testPanel())
	src.addSNV(1, "13", 1280, "A", "G")
	src.addSNV(2, "13", 1270, "A", "G")
	src.addSNV(3, "13", 1275, "A", "G")
	ed := int64(-10)
	src.onTranscript(1, "NM_000059.3", brca2).ExonDistance = &ed
	far := int64(-30)
	src.onTranscript(2, "NM_000059.3", brca2).ExonDistance = &far
	src.onTranscript(3, "NM_000059.3", brca2) // exon_distance unknown

	f, err := New("region", regionConfig)
	require.NoError(t, err)
	drop, err := f.Filter(context.Background(), src.env(), src.analysisAlleles)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, drop.Sorted())
}

func TestRegionFilter_GeneWindows(t *testing.T) {
	panel := testPanel()
	panel.GeneConfig[brca2] = genepanel.GeneConfig{SpliceRegion: []int64{-30, 5}}
	src := newFakeSource(panel)
	src.addSNV(1, "13", 1275, "A", "G") // 25 bp upstream of exon 3

	f, err := New("region", regionConfig)
	require.NoError(t, err)
	drop, err := f.Filter(context.Background(), src.env(), src.analysisAlleles)
	require.NoError(t, err)
	assert.Empty(t, drop, "panel window applies")

	cfg := map[string]interface{}{
		"splice_region": []interface{}{-10, 5},
		"utr_region":    []interface{}{-12, 20},
		"genes": map[string]interface{}{
			"1101": map[string]interface{}{"splice_region": []interface{}{-20, 5}},
		},
	}
	f, err = New("region", cfg)
	require.NoError(t, err)
	drop, err = f.Filter(context.Background(), src.env(), src.analysisAlleles)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, drop.Sorted(), "filter config window takes precedence")
}

func TestRegionFilter_BadConfig(t *testing.T) {
	for name, cfg := range map[string]map[string]interface{}{
		"positive upstream": {"splice_region": []interface{}{5, 5}},
		"one value":         {"utr_region": []interface{}{-5}},
		"unknown key":       {"splice": []interface{}{-5, 5}},
		"bad gene key":      {"genes": map[string]interface{}{"BRCA2": map[string]interface{}{}}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := New("region", cfg)
			require.ErrorIs(t, err, apperr.ErrBadInput)
		})
	}
}

func TestRegionFilter_NoTranscriptNearby(t *testing.T) {
	src := newFakeSource(testPanel())
	src.addSNV(1, "2", 1300, "A", "G")
	f, err := New("region", regionConfig)
	require.NoError(t, err)
	drop, err := f.Filter(context.Background(), src.env(), model.NewIDSet(1))
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, drop.Sorted())
}
