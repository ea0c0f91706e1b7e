package filter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glbala87/ELLA-tool-sub001/internal/apperr"
	"github.com/glbala87/ELLA-tool-sub001/internal/genepanel"
)

func cutoff(hi, lo float64) map[string]interface{} {
	return map[string]interface{}{"hi_freq_cutoff": hi, "lo_freq_cutoff": lo}
}

func frequencyConfig() map[string]interface{} {
	return map[string]interface{}{
		"thresholds": map[string]interface{}{
			"default": map[string]interface{}{
				"external": cutoff(0.01, 0.001),
				"internal": cutoff(0.05, 0.01),
			},
		},
		"num_thresholds": map[string]interface{}{
			"GNOMAD_GENOMES": map[string]interface{}{"G": 5000},
		},
	}
}

func TestFrequencyFilter(t *testing.T) {
	src := newFakeSource(testPanel())
	for id := int64(1); id <= 5; id++ {
		src.addSNV(id, "2", 100*id, "A", "G")
	}
	src.frequency(1, "GNOMAD_GENOMES", "G", 0.02, 9000)
	src.frequency(2, "GNOMAD_GENOMES", "G", 0.02, 100) // below the num threshold
	src.frequency(3, "GNOMAD_GENOMES", "G", 0.005, 9000)
	src.frequency(4, "inDB", "AF", 0.06, 50)
	src.frequency(5, "GNOMAD_EXOMES", "G", 0.0001, 120000)

	f, err := New("frequency", frequencyConfig())
	require.NoError(t, err)
	drop, err := f.Filter(context.Background(), src.env(), src.analysisAlleles)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 4}, drop.Sorted())
}

func TestFrequencyFilter_GeneOverride(t *testing.T) {
	src := newFakeSource(testPanel())
	src.addSNV(1, "13", 1300, "A", "G")
	src.onTranscript(1, "NM_000059.3", brca2)
	src.frequency(1, "GNOMAD_GENOMES", "G", 0.02, 9000)

	cfg := frequencyConfig()
	cfg["genes"] = map[string]interface{}{
		"1101": map[string]interface{}{
			"thresholds": map[string]interface{}{"external": cutoff(0.05, 0.001)},
		},
	}
	f, err := New("frequency", cfg)
	require.NoError(t, err)
	drop, err := f.Filter(context.Background(), src.env(), src.analysisAlleles)
	require.NoError(t, err)
	assert.Empty(t, drop)
}

func TestFrequencyFilter_PanelThresholds(t *testing.T) {
	panel := testPanel()
	panel.GeneConfig[brca2] = genepanel.GeneConfig{
		Thresholds: map[string]interface{}{"external": cutoff(0.05, 0.001)},
	}
	src := newFakeSource(panel)
	src.addSNV(1, "13", 1300, "A", "G")
	src.onTranscript(1, "NM_000059.3", brca2)
	src.frequency(1, "GNOMAD_GENOMES", "G", 0.02, 9000)

	f, err := New("frequency", frequencyConfig())
	require.NoError(t, err)
	drop, err := f.Filter(context.Background(), src.env(), src.analysisAlleles)
	require.NoError(t, err)
	assert.Empty(t, drop)
}

func TestFrequencyFilter_ADThresholds(t *testing.T) {
	src := newFakeSource(testPanel())
	src.addSNV(1, "13", 1300, "A", "G")
	src.onTranscript(1, "NM_000059.3", brca2) // distinctly AD
	src.addSNV(2, "6", 150, "A", "G")
	src.onTranscript(2, "NM_000165.4", gja1) // AD and AR
	src.frequency(1, "GNOMAD_GENOMES", "G", 0.008, 9000)
	src.frequency(2, "GNOMAD_GENOMES", "G", 0.008, 9000)

	cfg := frequencyConfig()
	cfg["thresholds"].(map[string]interface{})["AD"] = map[string]interface{}{
		"external": cutoff(0.005, 0.001),
	}
	f, err := New("frequency", cfg)
	require.NoError(t, err)
	drop, err := f.Filter(context.Background(), src.env(), src.analysisAlleles)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, drop.Sorted())
}

func TestCommonnessGroups(t *testing.T) {
	src := newFakeSource(testPanel())
	for id := int64(1); id <= 5; id++ {
		src.addSNV(id, "2", 100*id, "A", "G")
	}
	src.frequency(1, "GNOMAD_GENOMES", "G", 0.02, 9000)
	src.frequency(2, "GNOMAD_GENOMES", "G", 0.005, 9000)
	src.frequency(3, "GNOMAD_GENOMES", "G", 0.0001, 9000)
	src.frequency(5, "GNOMAD_GENOMES", "G", 0.02, 10)

	groups, err := CommonnessGroups(context.Background(), src.env(), frequencyConfig(), src.analysisAlleles)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, groups[Common].Sorted())
	assert.Equal(t, []int64{2}, groups[LessCommon].Sorted())
	assert.Equal(t, []int64{3}, groups[LowFreq].Sorted())
	assert.Equal(t, []int64{4}, groups[NullFreq].Sorted())
	assert.Equal(t, []int64{5}, groups[NumThreshold].Sorted())
	assert.Equal(t, "less_common", LessCommon.String())
}

func TestParseFrequencyConfig(t *testing.T) {
	c, err := ParseFrequencyConfig(frequencyConfig())
	require.NoError(t, err)
	assert.Equal(t, c.Thresholds.Default, c.Thresholds.AD)
	assert.Equal(t, Cutoff{Hi: 0.01, Lo: 0.001}, c.Thresholds.Default["external"])
	assert.Equal(t, int64(5000), c.NumThresholds["GNOMAD_GENOMES"]["G"])

	_, err = ParseFrequencyConfig(map[string]interface{}{})
	require.ErrorIs(t, err, apperr.ErrBadInput)

	cfg := frequencyConfig()
	cfg["genes"] = map[string]interface{}{"BRCA2": map[string]interface{}{}}
	_, err = ParseFrequencyConfig(cfg)
	require.ErrorIs(t, err, apperr.ErrBadInput)
}

func TestFrequencyFilter_UnknownThresholdGroup(t *testing.T) {
	src := newFakeSource(testPanel())
	src.addSNV(1, "13", 1300, "A", "G")
	src.onTranscript(1, "NM_000059.3", brca2)
	src.frequency(1, "GNOMAD_GENOMES", "G", 0.9, 90000)

	tests := map[string]func(cfg map[string]interface{}){
		"default": func(cfg map[string]interface{}) {
			cfg["thresholds"] = map[string]interface{}{
				"default": map[string]interface{}{"extrenal": cutoff(0.01, 0.001)},
			}
		},
		"AD": func(cfg map[string]interface{}) {
			cfg["thresholds"].(map[string]interface{})["AD"] = map[string]interface{}{
				"ad_only": cutoff(0.01, 0.001),
			}
		},
		"gene": func(cfg map[string]interface{}) {
			cfg["genes"] = map[string]interface{}{
				"1101": map[string]interface{}{
					"thresholds": map[string]interface{}{"exome": cutoff(0.05, 0.001)},
				},
			}
		},
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := frequencyConfig()
			mutate(cfg)
			f, err := New("frequency", cfg)
			require.NoError(t, err)
			_, err = f.Filter(context.Background(), src.env(), src.analysisAlleles)
			assert.ErrorIs(t, err, apperr.ErrBadInput)
		})
	}

	t.Run("panel", func(t *testing.T) {
		panel := testPanel()
		panel.GeneConfig[brca2] = genepanel.GeneConfig{
			Thresholds: map[string]interface{}{"exome": cutoff(0.05, 0.001)},
		}
		src := newFakeSource(panel)
		src.addSNV(1, "13", 1300, "A", "G")
		src.onTranscript(1, "NM_000059.3", brca2)
		f, err := New("frequency", frequencyConfig())
		require.NoError(t, err)
		_, err = f.Filter(context.Background(), src.env(), src.analysisAlleles)
		assert.ErrorIs(t, err, apperr.ErrBadInput)
	})

	t.Run("explicit groups", func(t *testing.T) {
		cfg := frequencyConfig()
		cfg["groups"] = map[string]interface{}{
			"external": map[string]interface{}{"GNOMAD_GENOMES": []interface{}{"G"}},
		}
		_, err := New("frequency", cfg)
		assert.ErrorIs(t, err, apperr.ErrBadInput)
	})
}

func TestFrequencyFilter_ScalarThresholds(t *testing.T) {
	src := newFakeSource(testPanel())
	for id := int64(1); id <= 3; id++ {
		src.addSNV(id, "2", 100*id, "A", "G")
	}
	src.frequency(1, "GNOMAD_GENOMES", "G", 0.02, 9000)
	src.frequency(2, "GNOMAD_GENOMES", "G", 0.005, 9000)
	src.frequency(3, "inDB", "AF", 0.06, 50)

	cfg := frequencyConfig()
	cfg["thresholds"] = map[string]interface{}{
		"default": map[string]interface{}{"external": 0.01, "internal": 1},
	}
	c, err := ParseFrequencyConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, Cutoff{Hi: 0.01, Lo: 0.01}, c.Thresholds.Default["external"])
	assert.Equal(t, Cutoff{Hi: 1, Lo: 1}, c.Thresholds.Default["internal"])

	groups, err := CommonnessGroups(context.Background(), src.env(), cfg, src.analysisAlleles)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, groups[Common].Sorted())
	assert.Empty(t, groups[LessCommon])
	assert.Equal(t, []int64{2, 3}, groups[LowFreq].Sorted())
}

func TestParseFrequencyConfig_InvertedCutoffs(t *testing.T) {
	cfg := frequencyConfig()
	cfg["groups"] = map[string]interface{}{
		"external": map[string]interface{}{"GNOMAD_GENOMES": []interface{}{"G"}},
		"internal": map[string]interface{}{"inDB": []interface{}{"AF"}},
	}
	_, err := ParseFrequencyConfig(cfg)
	require.NoError(t, err)

	cfg["thresholds"] = map[string]interface{}{
		"default": map[string]interface{}{"external": cutoff(0.001, 0.01)},
	}
	_, err = ParseFrequencyConfig(cfg)
	assert.ErrorIs(t, err, apperr.ErrBadInput)
}
