package genepanel

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glbala87/ELLA-tool-sub001/internal/apperr"
	"github.com/glbala87/ELLA-tool-sub001/internal/genomic"
)

func testTranscript() *Transcript {
	return &Transcript{
		Name:       "NM_000001.2",
		HGNCID:     1,
		Chromosome: "1",
		Strand:     genomic.Forward,
		TxStart:    1000,
		TxEnd:      1500,
		CDSStart:   1230,
		CDSEnd:     1430,
		ExonStarts: []int64{1100, 1200, 1300, 1400},
		ExonEnds:   []int64{1160, 1260, 1360, 1460},
	}
}

func TestTranscript_Validate(t *testing.T) {
	require.NoError(t, testTranscript().Validate())

	bad := testTranscript()
	bad.ExonEnds = bad.ExonEnds[:3]
	assert.Error(t, bad.Validate())

	bad = testTranscript()
	bad.ExonStarts[1] = 1150
	assert.Error(t, bad.Validate(), "overlapping exons")

	bad = testTranscript()
	bad.CDSEnd = 1600
	assert.Error(t, bad.Validate())
}

func TestTranscript_FindExon(t *testing.T) {
	tx := testTranscript()
	assert.Equal(t, 0, tx.FindExon(1100))
	assert.Equal(t, 0, tx.FindExon(1159))
	assert.Equal(t, -1, tx.FindExon(1160))
	assert.Equal(t, 3, tx.FindExon(1459))
	assert.Equal(t, -1, tx.FindExon(50))

	assert.True(t, tx.IsFirstExon(0))
	tx.Strand = genomic.Reverse
	assert.True(t, tx.IsFirstExon(3))
}

func TestParseTranscriptName(t *testing.T) {
	tests := []struct {
		input string
		want  TranscriptName
	}{
		{"NM_000059.3", TranscriptName{Base: "NM_000059", Version: 3}},
		{"NM_000059.3_dupl18", TranscriptName{Base: "NM_000059", Version: 3, Suffix: "_dupl18"}},
		{"NM_000059", TranscriptName{Base: "NM_000059", Version: -1}},
		{"ENST00000380152.7", TranscriptName{Base: "ENST00000380152", Version: 7}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseTranscriptName(tt.input))
		})
	}
}

func TestIntervalTree_Overlapping(t *testing.T) {
	txs := []*Transcript{
		{Name: "A", TxStart: 100, TxEnd: 300},
		{Name: "B", TxStart: 150, TxEnd: 250},
		{Name: "C", TxStart: 200, TxEnd: 400},
		{Name: "long", TxStart: 10, TxEnd: 1000},
	}
	tree := BuildIntervalTree(txs)
	assert.Equal(t, 4, tree.Len())

	names := func(ts []*Transcript) []string {
		var out []string
		for _, t := range ts {
			out = append(out, t.Name)
		}
		return out
	}

	assert.ElementsMatch(t, []string{"A", "B", "long"}, names(tree.Overlapping(genomic.Interval{Start: 175, End: 176}, 0)))
	assert.ElementsMatch(t, []string{"C", "long"}, names(tree.Overlapping(genomic.Interval{Start: 300, End: 301}, 0)), "end is exclusive")
	assert.ElementsMatch(t, []string{"A", "C", "long"}, names(tree.Overlapping(genomic.Interval{Start: 300, End: 301}, 1)))
	assert.Empty(t, tree.Overlapping(genomic.Interval{Start: 1000, End: 1001}, 0))
	assert.Empty(t, BuildIntervalTree(nil).Overlapping(genomic.Interval{Start: 1, End: 2}, 0))
}

func TestPanel_Categories(t *testing.T) {
	p := NewPanel("Test", "v01",
		[]Gene{{1, "AD1"}, {2, "AR1"}, {3, "MIX"}, {4, "XR1"}, {5, "NONE"}},
		[]*Transcript{testTranscript()},
		[]Phenotype{
			{HGNCID: 1, Description: "a", Inheritance: genomic.AD},
			{HGNCID: 1, Description: "b", Inheritance: genomic.AD},
			{HGNCID: 2, Description: "c", Inheritance: genomic.AR},
			{HGNCID: 3, Description: "d", Inheritance: genomic.AD},
			{HGNCID: 3, Description: "e", Inheritance: genomic.AR},
			{HGNCID: 4, Description: "f", Inheritance: genomic.XR},
			{HGNCID: 4, Description: "g", Inheritance: genomic.AR},
		})

	assert.Equal(t, DistinctlyAD, p.Category(1))
	assert.Equal(t, DistinctlyAR, p.Category(2))
	assert.Equal(t, Mixed, p.Category(3))
	assert.Equal(t, Mixed, p.Category(5))

	assert.True(t, p.IsDistinctlyRecessive(2))
	assert.True(t, p.IsDistinctlyRecessive(4))
	assert.False(t, p.IsDistinctlyRecessive(3))
	assert.False(t, p.IsDistinctlyRecessive(5))
	assert.Equal(t, []genomic.Inheritance{genomic.AD, genomic.AR}, p.Inheritance(3))

	assert.Equal(t, "Test_v01", p.Key().String())
	assert.True(t, p.HasGene(5))
	assert.Len(t, p.Overlapping("chr1", genomic.Interval{Start: 1499, End: 1500}, 0), 1)
	assert.Empty(t, p.Overlapping("2", genomic.Interval{Start: 1499, End: 1500}, 0))
}

const transcriptsTSV = "#chromosome\ttxStart\ttxEnd\tname\tscore\tstrand\tgeneSymbol\tHGNC\tcdsStart\tcdsEnd\texonStarts\texonEnds\n" +
	"13\t32889616\t32973809\tNM_000059.3\t0\t+\tBRCA2\t1101\t32890597\t32972907\t32889616,32890558,\t32889804,32972907,\n" +
	"17\t41196311\t41277500\tNM_007294.3\t0\t-\tBRCA1\t1100\t41197694\t41276113\t41196311,41276033\t41197819,41277500\n"

const phenotypesTSV = "#gene symbol\tHGNC\tphenotype\tinheritance\tomim_number\n" +
	"BRCA2\t1101\tBreast cancer\tAD\t114480\n" +
	"BRCA2\t1101\tFanconi anemia\tAR\t\n" +
	"BRCA2\t1101\tFanconi anemia\tAR\t\n" +
	"BRCA1\t1100\tBreast cancer\tAD\t\n"

func TestParseTranscripts(t *testing.T) {
	genes, txs, err := ParseTranscripts(strings.NewReader(transcriptsTSV))
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, []Gene{{1101, "BRCA2"}, {1100, "BRCA1"}}, genes)

	brca1 := txs[1]
	assert.Equal(t, "NM_007294.3", brca1.Name)
	assert.Equal(t, genomic.Reverse, brca1.Strand)
	assert.Equal(t, []int64{41196311, 41276033}, brca1.ExonStarts)
	assert.True(t, brca1.IsCoding())
}

func TestParseTranscripts_BadInput(t *testing.T) {
	_, _, err := ParseTranscripts(strings.NewReader("#chromosome\ttxStart\n"))
	assert.ErrorIs(t, err, apperr.ErrBadInput)

	bad := strings.Replace(transcriptsTSV, "32889616\t32973809", "x\t32973809", 1)
	_, _, err = ParseTranscripts(strings.NewReader(bad))
	assert.ErrorIs(t, err, apperr.ErrBadInput)
}

func TestParsePhenotypes(t *testing.T) {
	phs, err := ParsePhenotypes(strings.NewReader(phenotypesTSV))
	require.NoError(t, err)
	require.Len(t, phs, 3, "duplicate row collapsed")
	require.NotNil(t, phs[0].OMIMID)
	assert.Equal(t, 114480, *phs[0].OMIMID)
	assert.Equal(t, genomic.AR, phs[1].Inheritance)
	assert.Nil(t, phs[2].OMIMID)
}

func TestLoadPanel(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	write("HBOC_v01.transcripts.tsv", transcriptsTSV)
	write("HBOC_v01.phenotypes.tsv", phenotypesTSV)
	write("HBOC_v01.config.json", `{"genes": {"1101": {"splice_region": [-20, 6]}}}`)

	p, err := LoadPanel(dir, "HBOC", "v01")
	require.NoError(t, err)
	assert.Equal(t, Mixed, p.Category(1101))
	assert.Equal(t, DistinctlyAD, p.Category(1100))
	assert.Equal(t, []int64{-20, 6}, p.GeneConfig[1101].SpliceRegion)

	_, err = LoadPanel(dir, "HBOC", "v02")
	assert.Error(t, err)
}

func TestHGNCMap(t *testing.T) {
	input := "hgnc_id\tsymbol\trefseq\tensembl\n" +
		"HGNC:1100\tBRCA1\tNM_007294.4,NM_007300.4\tENST00000357654\n" +
		"1101\tBRCA2\tNM_000059.4\t\n"
	m, err := ParseHGNCMap(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())

	id, ok := m.ResolveHGNC("NM_007300.3", "")
	assert.True(t, ok)
	assert.Equal(t, 1100, id)

	id, ok = m.ResolveHGNC("NM_999999.1", "BRCA2")
	assert.True(t, ok)
	assert.Equal(t, 1101, id)

	_, ok = m.ResolveHGNC("NM_999999.1", "")
	assert.False(t, ok)

	s, ok := m.Symbol(1101)
	assert.True(t, ok)
	assert.Equal(t, "BRCA2", s)

	var nilMap *HGNCMap
	_, ok = nilMap.ResolveHGNC("NM_007300.3", "BRCA1")
	assert.False(t, ok)
}
