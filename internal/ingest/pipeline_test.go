package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/glbala87/ELLA-tool-sub001/internal/annotation"
	"github.com/glbala87/ELLA-tool-sub001/internal/apperr"
	"github.com/glbala87/ELLA-tool-sub001/internal/genepanel"
	"github.com/glbala87/ELLA-tool-sub001/internal/genomic"
	"github.com/glbala87/ELLA-tool-sub001/internal/model"
	"github.com/glbala87/ELLA-tool-sub001/internal/store"
)

var testGroups = annotation.FrequencyGroups{
	"external": {"GNOMAD_GENOMES": {"G", "NFE"}},
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open("", store.WithFrequencyGroups(testGroups))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	p := genepanel.NewPanel("HBOC", "v1.0.0",
		[]genepanel.Gene{{HGNCID: 1101, Symbol: "BRCA2"}},
		[]*genepanel.Transcript{{
			Name: "NM_000059.3", HGNCID: 1101, Chromosome: "13", Strand: genomic.Forward,
			TxStart: 1000, TxEnd: 1500, CDSStart: 1230, CDSEnd: 1430,
			ExonStarts: []int64{1100, 1200}, ExonEnds: []int64{1160, 1460},
		}},
		[]genepanel.Phenotype{{HGNCID: 1101, Description: "Breast cancer", Inheritance: genomic.AD}},
	)
	require.NoError(t, s.SavePanel(context.Background(), p))
	return s
}

func newIngester(t *testing.T, s *store.Store) *Ingester {
	opts := DefaultOptions()
	opts.Workers = 2
	in := New(s, opts)
	in.SetLogger(zaptest.NewLogger(t))
	return in
}

// writeVCF writes a VCF with the given sample names and tab-separated
// record lines (spaces are turned into tabs).
func writeVCF(t *testing.T, dir, name string, samples []string, records ...string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("##fileformat=VCFv4.2\n")
	b.WriteString("#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\t" + strings.Join(samples, "\t") + "\n")
	for _, r := range records {
		b.WriteString(strings.Join(strings.Fields(r), "\t") + "\n")
	}
	path := filepath.Join(dir, name)
	writeFile(t, path, b.String())
	return path
}

func analysisConfig(name string, entries ...DataEntry) *AnalysisConfigData {
	for i := range entries {
		if entries[i].Technology == "" {
			entries[i].Technology = "HTS"
		}
	}
	return &AnalysisConfigData{
		Name:             name,
		GenePanelName:    "HBOC",
		GenePanelVersion: "v1.0.0",
		Priority:         1,
		Data:             entries,
	}
}

func TestIngest_SingleSample(t *testing.T) {
	s := openStore(t)
	in := newIngester(t, s)
	ctx := context.Background()

	path := writeVCF(t, t.TempDir(), "s1.vcf", []string{"S1"},
		"chr1 12345 . A T 5000 PASS GNOMAD_GENOMES__AF=0.001;GNOMAD_GENOMES__AN=10000 GT:AD:DP 0/1:20,20:40")

	res, err := in.Ingest(ctx, analysisConfig("S1", DataEntry{VCF: path}))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Records)
	assert.Equal(t, 1, res.Kept)
	assert.Equal(t, 1, res.Alleles)
	assert.Equal(t, 1, res.Genotypes)
	assert.NotEmpty(t, res.RunID)

	n, err := s.CountAlleles(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	a, err := s.AlleleByKey(ctx, model.AlleleKey{
		Chromosome: "1", Start: 12344, OpenEnd: 12345, ChangeFrom: "A", ChangeTo: "T",
	})
	require.NoError(t, err)
	require.NotNil(t, a)

	history, err := s.AnnotationHistory(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].Current())

	sd, err := s.SampleData(ctx, res.AnalysisID)
	require.NoError(t, err)
	require.Len(t, sd, 1)
	assert.Equal(t, genomic.Heterozygous, sd[0].Type)
	assert.False(t, sd[0].NeedsVerification, FormatChecks(sd[0].VerificationChecks))
	require.NotNil(t, sd[0].AlleleRatio)
	assert.InDelta(t, 0.5, *sd[0].AlleleRatio, 1e-9)

	status, err := s.InterpretationStatus(ctx, res.AnalysisID)
	require.NoError(t, err)
	assert.Equal(t, store.InterpretationNotStarted, status)

	// Depositing the same name again is a conflict and writes nothing.
	_, err = in.Ingest(ctx, analysisConfig("S1", DataEntry{VCF: path}))
	assert.ErrorIs(t, err, apperr.ErrConflict)
	n, err = s.CountAlleles(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestIngest_MissingPanel(t *testing.T) {
	s := openStore(t)
	in := newIngester(t, s)
	path := writeVCF(t, t.TempDir(), "a.vcf", []string{"S1"},
		"1 100 . A T 5000 PASS . GT 0/1")

	cfg := analysisConfig("a", DataEntry{VCF: path})
	cfg.GenePanelVersion = "v9"
	_, err := in.Ingest(context.Background(), cfg)
	assert.ErrorIs(t, err, apperr.ErrMissingReference)
}

func TestIngest_MultiSampleWithoutPED(t *testing.T) {
	s := openStore(t)
	in := newIngester(t, s)
	path := writeVCF(t, t.TempDir(), "a.vcf", []string{"S1", "S2"},
		"1 100 . A T 5000 PASS . GT 0/1 0/0")

	_, err := in.Ingest(context.Background(), analysisConfig("a", DataEntry{VCF: path}))
	assert.ErrorIs(t, err, apperr.ErrBadInput)

	_, err = s.AnalysisByName(context.Background(), "a")
	assert.ErrorIs(t, err, apperr.ErrMissingReference, "failed ingest is rolled back")
}

func TestIngest_TriAllelicBlock(t *testing.T) {
	s := openStore(t)
	in := newIngester(t, s)
	ctx := context.Background()
	dir := t.TempDir()

	// A 1/2 proband call decomposed into two rows, plus a third ALT only the
	// father carries.
	path := writeVCF(t, dir, "trio.vcf", []string{"P", "F", "M"},
		"1 100 . A C 5000 PASS OLD_MULTIALLELIC=1:100:A/C/G/T GT:AD:DP 1/.:2,20,20,0:42 0/0:30,0,0,0:30 0/0:30,0,0,0:30",
		"1 100 . A G 5000 PASS OLD_MULTIALLELIC=1:100:A/C/G/T GT:AD:DP ./1:2,20,20,0:42 0/0:30,0,0,0:30 0/0:30,0,0,0:30",
		"1 100 . A T 5000 PASS OLD_MULTIALLELIC=1:100:A/C/G/T GT:AD:DP ./.:2,20,20,0:42 ./1:15,0,0,15:30 ./.:30,0,0,0:30")
	ped := filepath.Join(dir, "trio.ped")
	writeFile(t, ped, "fam P F M 1 2\nfam F 0 0 1 1\nfam M 0 0 2 1\n")

	res, err := in.Ingest(ctx, analysisConfig("trio", DataEntry{VCF: path, PED: ped}))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Alleles, "only proband-carried ALTs become alleles")
	assert.Equal(t, 1, res.Genotypes, "one genotype for the 1/2 call")

	an, err := s.AnalysisByName(ctx, "trio")
	require.NoError(t, err)
	require.Len(t, an.Samples, 3)
	family, ok := model.Trio(an.Samples)
	require.True(t, ok)
	assert.Equal(t, "P", family.Proband.Identifier)

	ids, err := s.AnalysisAlleleIDs(ctx, res.AnalysisID)
	require.NoError(t, err)
	assert.Len(t, ids, 2)

	sd, err := s.SampleData(ctx, res.AnalysisID)
	require.NoError(t, err)
	// Two rows (first and second allele) for each of the three samples.
	require.Len(t, sd, 6)
	for _, row := range sd {
		if row.SampleID == family.Proband.ID {
			assert.Equal(t, genomic.Heterozygous, row.Type)
			assert.True(t, row.Multiallelic)
		} else {
			assert.Equal(t, genomic.Reference, row.Type)
		}
	}
}

func TestIngest_Prefilter(t *testing.T) {
	s := openStore(t)
	in := newIngester(t, s)
	ctx := context.Background()

	common := "GNOMAD_GENOMES__AF=0.3;GNOMAD_GENOMES__AN=9000"
	path := writeVCF(t, t.TempDir(), "pf.vcf", []string{"S1"},
		// Isolated common variant: dropped.
		"1 1000 . A T 5000 PASS "+common+" GT:AD:DP 1/1:0,40:40",
		// Common variant next to a rare one: kept with its block.
		"1 2000 . C G 5000 PASS "+common+" GT:AD:DP 0/1:20,20:40",
		"1 2002 . G A 5000 PASS GNOMAD_GENOMES__AF=0.0001;GNOMAD_GENOMES__AN=9000 GT:AD:DP 0/1:20,20:40")

	res, err := in.Ingest(ctx, analysisConfig("pf", DataEntry{VCF: path}))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Records)
	assert.Equal(t, 2, res.Kept)
	assert.Equal(t, 2, res.Alleles)
}

func TestIngest_PrefilterKeepsAssessed(t *testing.T) {
	s := openStore(t)
	in := newIngester(t, s)
	ctx := context.Background()
	dir := t.TempDir()

	common := "1 1000 . A T 5000 PASS GNOMAD_GENOMES__AF=0.3;GNOMAD_GENOMES__AN=9000 GT:AD:DP 1/1:0,40:40"
	// Keep the common variant once by disabling the prefilter, then assess it.
	noPrefilter := DefaultOptions()
	noPrefilter.PrefilterEnabled = false
	first, err := New(s, noPrefilter).Ingest(ctx,
		analysisConfig("first", DataEntry{VCF: writeVCF(t, dir, "a.vcf", []string{"S1"}, common)}))
	require.NoError(t, err)
	require.Equal(t, 1, first.Alleles)

	ids, err := s.AnalysisAlleleIDs(ctx, first.AnalysisID)
	require.NoError(t, err)
	require.NoError(t, s.CreateAssessment(ctx, &model.Assessment{
		AlleleID:       ids.Sorted()[0],
		Classification: "1",
		UserID:         1,
		GenePanel:      model.GenePanelKey{Name: "HBOC", Version: "v1.0.0"},
	}))

	second, err := in.Ingest(ctx,
		analysisConfig("second", DataEntry{VCF: writeVCF(t, dir, "b.vcf", []string{"S2"}, common)}))
	require.NoError(t, err)
	assert.Equal(t, 1, second.Kept, "assessed variants are never prefiltered")
}

func TestAppend(t *testing.T) {
	s := openStore(t)
	in := newIngester(t, s)
	ctx := context.Background()
	dir := t.TempDir()

	rec := "1 100 . A T 5000 PASS . GT:AD:DP 0/1:20,20:40"
	_, err := in.Ingest(ctx, analysisConfig("single",
		DataEntry{VCF: writeVCF(t, dir, "a.vcf", []string{"S1"}, rec)}))
	require.NoError(t, err)

	res, err := in.Append(ctx, analysisConfig("single",
		DataEntry{VCF: writeVCF(t, dir, "b.vcf", []string{"S2"}, rec)}))
	require.NoError(t, err)
	assert.True(t, res.Appended)
	assert.Equal(t, 1, res.Alleles)

	samples, err := s.Samples(ctx, res.AnalysisID)
	require.NoError(t, err)
	assert.Len(t, samples, 2)
	n, err := s.CountAlleles(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n, "the allele is shared")

	// Same sample identifier again.
	_, err = in.Append(ctx, analysisConfig("single",
		DataEntry{VCF: writeVCF(t, dir, "c.vcf", []string{"S2"}, rec)}))
	assert.ErrorIs(t, err, apperr.ErrConflict)

	// Family analyses cannot be appended to.
	trio := writeVCF(t, dir, "trio.vcf", []string{"P", "F", "M"}, rec+" 0/0 0/0")
	ped := filepath.Join(dir, "trio.ped")
	writeFile(t, ped, "fam P F M 1 2\nfam F 0 0 1 1\nfam M 0 0 2 1\n")
	_, err = in.Ingest(ctx, analysisConfig("family", DataEntry{VCF: trio, PED: ped}))
	require.NoError(t, err)
	_, err = in.Append(ctx, analysisConfig("family",
		DataEntry{VCF: writeVCF(t, dir, "d.vcf", []string{"S9"}, rec)}))
	assert.ErrorIs(t, err, apperr.ErrConflict)

	// Appending onto a missing analysis.
	_, err = in.Append(ctx, analysisConfig("nope",
		DataEntry{VCF: writeVCF(t, dir, "e.vcf", []string{"S1"}, rec)}))
	assert.ErrorIs(t, err, apperr.ErrMissingReference)
}

func TestIngest_ConcurrentSameName(t *testing.T) {
	s := openStore(t)
	in := newIngester(t, s)
	require.True(t, in.acquire("busy"))
	defer in.release("busy")

	_, err := in.Ingest(context.Background(), analysisConfig("busy", DataEntry{VCF: "unused.vcf"}))
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestIngest_Cancelled(t *testing.T) {
	s := openStore(t)
	in := newIngester(t, s)
	var lines []string
	for i := range 50 {
		lines = append(lines, fmt.Sprintf("1 %d . A T 5000 PASS . GT:AD:DP 0/1:20,20:40", 1000+i*100))
	}
	path := writeVCF(t, t.TempDir(), "c.vcf", []string{"S1"}, lines...)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := in.Ingest(ctx, analysisConfig("cancelled", DataEntry{VCF: path}))
	require.Error(t, err)

	n, err := s.CountAlleles(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}
