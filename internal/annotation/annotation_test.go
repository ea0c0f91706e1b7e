package annotation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glbala87/ELLA-tool-sub001/internal/genomic"
)

var testHeader = []string{
	"##fileformat=VCFv4.1",
	`##INFO=<ID=CSQ,Number=.,Type=String,Description="Consequence annotations from Ensembl VEP. Format: Allele|Consequence|SYMBOL|HGNC_ID|Feature_type|Feature|STRAND|CANONICAL|EXON|INTRON|HGVSc|HGVSp|Existing_variation|PUBMED">`,
}

type fakeHGNC map[string]int

func (f fakeHGNC) ResolveHGNC(transcript, symbol string) (int, bool) {
	id, ok := f[symbol]
	return id, ok
}

func testGroups() FrequencyGroups {
	return FrequencyGroups{
		"external": {"GNOMAD_GENOMES": {"G", "AFR"}},
		"internal": {"inDB": {"OUSWES"}},
	}
}

func TestParseCSQFormat(t *testing.T) {
	f, ok := ParseCSQFormat(testHeader)
	require.True(t, ok)
	assert.Equal(t, "Allele", f[0])
	assert.Equal(t, "PUBMED", f[len(f)-1])

	_, ok = ParseCSQFormat([]string{"##fileformat=VCFv4.1"})
	assert.False(t, ok)
}

func TestBuilder_Build(t *testing.T) {
	format, ok := ParseCSQFormat(testHeader)
	require.True(t, ok)

	b := &Builder{
		Groups:         testGroups(),
		CSQ:            format,
		Distances:      NewDistanceCalculator(nil),
		HGNC:           fakeHGNC{"BRCA2": 1101},
		KeyValueFields: []string{"CLINVAR"},
	}
	info := map[string]interface{}{
		"CSQ": "T|missense_variant|BRCA1|HGNC:1100|Transcript|NM_007294.3|-1|YES|10/23||NM_007294.3:c.3113A>G|NP_009225.1:p.Glu1038Gly|rs16941&COSM1|123&456," +
			"T|intron_variant&splice_region_variant|BRCA2||Transcript|NM_000059.3|1|||3/26|NM_000059.3:c.316+5G>A|NP_000050.2:p.%3D||," +
			"T|regulatory_region_variant|||RegulatoryFeature|ENSR0001|||||||",
		"GNOMAD_GENOMES__AF":     "0.02",
		"GNOMAD_GENOMES__AN":     "9000",
		"GNOMAD_GENOMES__AC":     "180",
		"GNOMAD_GENOMES__AF_AFR": "0.1",
		"GNOMAD_GENOMES__AF_NFE": "0.3",
		"HGMD__tag":              "DM",
		"HGMD__acc_num":          "CM000001",
		"CLINVAR":                "variant_id=1234|clinical_significance=Pathogenic|bad",
	}

	a, err := b.Build(info)
	require.NoError(t, err)

	require.Len(t, a.Transcripts, 2)
	brca1 := a.Transcripts[0]
	assert.Equal(t, "NM_007294.3", brca1.Transcript)
	assert.Equal(t, 1100, brca1.HGNCID)
	assert.Equal(t, genomic.Reverse, brca1.Strand)
	assert.True(t, brca1.IsCanonical)
	assert.False(t, brca1.InLastExon)
	assert.Equal(t, []genomic.Consequence{genomic.MissenseVariant}, brca1.Consequences)
	assert.Equal(t, "c.3113A>G", brca1.HGVSc)
	assert.Equal(t, "p.Glu1038Gly", brca1.HGVSp)
	assert.Equal(t, "NP_009225.1", brca1.Protein)
	assert.Equal(t, []string{"rs16941"}, brca1.DbSNP)
	require.NotNil(t, brca1.ExonDistance)
	assert.Equal(t, int64(0), *brca1.ExonDistance)
	require.NotNil(t, brca1.CodingRegionDistance)
	assert.Equal(t, int64(0), *brca1.CodingRegionDistance)

	brca2 := a.Transcripts[1]
	assert.Equal(t, 1101, brca2.HGNCID, "resolved by symbol")
	assert.Equal(t, "p.=", brca2.HGVSp)
	assert.Equal(t, []genomic.Consequence{genomic.SpliceRegionVariant, genomic.IntronVariant}, brca2.Consequences)
	require.NotNil(t, brca2.ExonDistance)
	assert.Equal(t, int64(5), *brca2.ExonDistance)
	assert.Nil(t, brca2.CodingRegionDistance)

	assert.Equal(t, []Reference{{PubMedID: 123, Source: "VEP"}, {PubMedID: 456, Source: "VEP"}}, a.References)

	gnomad := a.Frequencies["GNOMAD_GENOMES"]
	assert.Equal(t, map[string]float64{"G": 0.02, "AFR": 0.1}, gnomad.Freq, "NFE is not configured")
	assert.Equal(t, int64(9000), gnomad.Num["G"])
	assert.Equal(t, int64(180), gnomad.Count["G"])
	_, ok = a.Frequencies["inDB"]
	assert.False(t, ok)

	assert.Equal(t, map[string]string{"tag": "DM", "acc_num": "CM000001"}, a.External["HGMD"])
	assert.Equal(t, map[string]string{"variant_id": "1234", "clinical_significance": "Pathogenic"}, a.External["CLINVAR"])
}

func TestBuilder_BadFrequency(t *testing.T) {
	b := &Builder{Groups: testGroups()}
	_, err := b.Build(map[string]interface{}{"GNOMAD_GENOMES__AF": "abc"})
	assert.Error(t, err)
}

func TestBuilder_CSQWithoutHeader(t *testing.T) {
	b := &Builder{Groups: testGroups()}
	_, err := b.Build(map[string]interface{}{"CSQ": "T|missense_variant"})
	assert.Error(t, err)
}

func TestInLastExon(t *testing.T) {
	assert.True(t, inLastExon("23/23"))
	assert.True(t, inLastExon("22-23/23"))
	assert.False(t, inLastExon("3/23"))
	assert.False(t, inLastExon(""))
}

func TestBuildShadows(t *testing.T) {
	one := int64(0)
	a := &Annotation{
		Transcripts: []TranscriptAnnotation{
			{Transcript: "NM_2.1", HGNCID: 2, ExonDistance: &one},
			{Transcript: "NM_1.1", HGNCID: 1},
		},
		Frequencies: Frequencies{
			"GNOMAD_GENOMES": {Freq: map[string]float64{"G": 0.1, "NFE": 0.2}, Num: map[string]int64{"G": 100}},
			"OTHER":          {Freq: map[string]float64{"G": 0.5}},
		},
	}

	txs, freqs := BuildShadows(7, a, testGroups())
	require.Len(t, txs, 2)
	assert.Equal(t, "NM_1.1", txs[0].Transcript)
	assert.Equal(t, int64(7), txs[1].AlleleID)

	require.Len(t, freqs, 1)
	assert.Equal(t, "GNOMAD_GENOMES", freqs[0].Provider)
	assert.Equal(t, "G", freqs[0].Key)
	require.NotNil(t, freqs[0].Num)
	assert.Equal(t, int64(100), *freqs[0].Num)
	assert.Nil(t, freqs[0].Count)
}

func TestFingerprint(t *testing.T) {
	a := FrequencyGroups{"external": {"GNOMAD_GENOMES": {"G", "AFR"}}}
	b := FrequencyGroups{"external": {"GNOMAD_GENOMES": {"AFR", "G"}}}
	c := FrequencyGroups{"external": {"GNOMAD_GENOMES": {"G"}}}

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}

func TestMarshalDocument_RoundTrip(t *testing.T) {
	a := &Annotation{ID: 3}
	b, err := a.MarshalDocument()
	require.NoError(t, err)
	assert.JSONEq(t, `{"transcripts":[],"frequencies":{},"references":[],"external":{}}`, string(b))

	var back Annotation
	require.NoError(t, back.UnmarshalDocument(b))
	assert.Empty(t, back.Transcripts)
	assert.Equal(t, int64(0), back.ID)
}
