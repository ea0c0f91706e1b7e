package filter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/glbala87/ELLA-tool-sub001/internal/annotation"
	"github.com/glbala87/ELLA-tool-sub001/internal/apperr"
	"github.com/glbala87/ELLA-tool-sub001/internal/model"
)

func intp(v int) *int { return &v }

var testOptions = []model.ClassificationOption{
	{Value: "1", OutdatedAfterDays: intp(180)},
	{Value: "2", OutdatedAfterDays: intp(180)},
	{Value: "5"},
}

func newTestRunner(t *testing.T) *Runner {
	r := NewRunner(testOptions)
	r.SetLogger(zaptest.NewLogger(t))
	r.SetClock(func() time.Time { return testNow })
	return r
}

func (f *fakeSource) assess(id int64, class string, age time.Duration) {
	f.assessments[id] = &model.Assessment{
		ID: id, AlleleID: id, Classification: class, DateCreated: testNow.Add(-age),
	}
}

func chain(specs ...model.FilterSpec) *model.FilterConfig {
	return &model.FilterConfig{Name: "test", Active: true, Chain: model.FilterChain{Filters: specs}}
}

func frequencySpec() model.FilterSpec {
	return model.FilterSpec{Name: "frequency", Config: frequencyConfig()}
}

const day = 24 * time.Hour

func commonAlleles(ids ...int64) *fakeSource {
	src := newFakeSource(testPanel())
	for _, id := range ids {
		src.addSNV(id, "2", 100*id, "A", "G")
		src.frequency(id, "GNOMAD_GENOMES", "G", 0.2, 9000)
	}
	return src
}

func TestRunner_ClassifiedAllelesSkipFilters(t *testing.T) {
	src := commonAlleles(1, 2, 3)
	src.assess(1, "5", 10*day)
	src.assess(2, "1", 181*day) // outdated

	res, err := newTestRunner(t).Run(context.Background(), src, 1, src.panel.Key(), testGroups, chain(frequencySpec()))
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, res.Kept.Sorted())
	assert.Equal(t, []int64{2, 3}, res.Excluded["frequency"].Sorted())

	spec := frequencySpec()
	spec.AlsoFilterClassified = true
	res, err = newTestRunner(t).Run(context.Background(), src, 1, src.panel.Key(), testGroups, chain(spec))
	require.NoError(t, err)
	assert.Empty(t, res.Kept)
}

func TestRunner_ClassificationFilter(t *testing.T) {
	src := commonAlleles(1, 2, 3, 4)
	src.frequencies = nil
	src.assess(1, "1", 10*day)
	src.assess(2, "1", 181*day)
	src.assess(3, "5", 400*day)

	cfg := chain(model.FilterSpec{Name: "classification", Config: map[string]interface{}{"classes": []interface{}{"1", "2"}}})
	res, err := newTestRunner(t).Run(context.Background(), src, 1, src.panel.Key(), testGroups, cfg)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, res.Excluded["classification"].Sorted())
	assert.Equal(t, []int64{2, 3, 4}, res.Kept.Sorted())
}

func TestRunner_Exceptions(t *testing.T) {
	src := commonAlleles(1, 2)
	src.annotations[1] = &annotation.Annotation{
		External: map[string]map[string]string{"CLINVAR": {"pathogenic": "3", "benign": "0"}},
	}

	spec := frequencySpec()
	spec.Exceptions = []model.FilterSpec{{
		Name: "external",
		Config: map[string]interface{}{
			"clinvar": map[string]interface{}{
				"combinations": []interface{}{[]interface{}{"pathogenic", ">=", 1}},
			},
		},
	}}
	res, err := newTestRunner(t).Run(context.Background(), src, 1, src.panel.Key(), testGroups, chain(spec))
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, res.Kept.Sorted())
	assert.Equal(t, []int64{2}, res.Excluded["frequency"].Sorted())
}

func TestRunner_RepeatedFilter(t *testing.T) {
	src := commonAlleles(1, 2)
	src.frequencies = nil
	src.frequency(1, "GNOMAD_GENOMES", "G", 0.2, 9000)
	src.frequency(2, "GNOMAD_GENOMES", "G", 0.005, 9000)

	strict := frequencyConfig()
	strict["thresholds"] = map[string]interface{}{
		"default": map[string]interface{}{"external": cutoff(0.001, 0.0001)},
	}
	cfg := chain(frequencySpec(), model.FilterSpec{Name: "frequency", Config: strict})
	res, err := newTestRunner(t).Run(context.Background(), src, 1, src.panel.Key(), testGroups, cfg)
	require.NoError(t, err)
	assert.Empty(t, res.Kept)
	assert.Equal(t, []int64{1, 2}, res.Excluded["frequency"].Sorted())
}

func TestRunner_UnknownFilter(t *testing.T) {
	src := commonAlleles(1)
	_, err := newTestRunner(t).Run(context.Background(), src, 1, src.panel.Key(), testGroups,
		chain(model.FilterSpec{Name: "astrology"}))
	require.ErrorIs(t, err, apperr.ErrBadInput)

	err = Validate(model.FilterChain{Filters: []model.FilterSpec{
		frequencySpec(),
		{Name: "region", Config: regionConfig, Exceptions: []model.FilterSpec{{Name: "nope"}}},
	}})
	require.ErrorIs(t, err, apperr.ErrBadInput)
}

func TestRunner_Cancelled(t *testing.T) {
	src := commonAlleles(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestRunner(t).Run(ctx, src, 1, src.panel.Key(), testGroups, chain(frequencySpec()))
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunner_EmptyChain(t *testing.T) {
	src := commonAlleles(1, 2)
	res, err := newTestRunner(t).Run(context.Background(), src, 1, src.panel.Key(), testGroups, chain())
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, res.Kept.Sorted())
	assert.Empty(t, res.Excluded)
}

func TestSelectFilterConfig(t *testing.T) {
	an := &model.Analysis{Name: "Diag-excap01-NA12878", GenePanel: model.GenePanelKey{Name: "HBOC", Version: "v1.0.0"}}
	configs := []*model.FilterConfig{
		{Name: "inactive", Active: false},
		{Name: "trio", Active: true, Requirements: []model.Requirement{
			{Function: RequireAnalysis, Params: map[string]interface{}{"name": "-TRIO$"}},
		}},
		{Name: "hboc", Active: true, Requirements: []model.Requirement{
			{Function: RequireGenePanel, Params: map[string]interface{}{"name": "HBOC"}},
			{Function: RequireAnalysis, Params: map[string]interface{}{"name": "^Diag-excap"}},
		}},
		{Name: "default", Active: true},
	}
	fc, err := SelectFilterConfig(configs, an)
	require.NoError(t, err)
	assert.Equal(t, "hboc", fc.Name)

	_, err = SelectFilterConfig(configs[:2], an)
	require.ErrorIs(t, err, apperr.ErrMissingReference)

	bad := []*model.FilterConfig{{Name: "bad", Active: true, Requirements: []model.Requirement{{Function: "moon_phase"}}}}
	_, err = SelectFilterConfig(bad, an)
	require.ErrorIs(t, err, apperr.ErrBadInput)
}
