package filter

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strconv"

	"github.com/glbala87/ELLA-tool-sub001/internal/annotation"
	"github.com/glbala87/ELLA-tool-sub001/internal/apperr"
	"github.com/glbala87/ELLA-tool-sub001/internal/genepanel"
	"github.com/glbala87/ELLA-tool-sub001/internal/model"
	"github.com/glbala87/ELLA-tool-sub001/internal/reconcile"
)

// Cutoff holds the frequency cutoffs of one frequency group. A bare number
// in a config sets both cutoffs, so nothing is less common.
type Cutoff struct {
	Hi float64 `mapstructure:"hi_freq_cutoff"`
	Lo float64 `mapstructure:"lo_freq_cutoff"`
}

var cutoffType = reflect.TypeOf(Cutoff{})

// cutoffHook decodes a scalar threshold into a Cutoff.
func cutoffHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	if to != cutoffType {
		return data, nil
	}
	switch from.Kind() {
	case reflect.Float32, reflect.Float64:
		v := reflect.ValueOf(data).Float()
		return Cutoff{Hi: v, Lo: v}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v := float64(reflect.ValueOf(data).Int())
		return Cutoff{Hi: v, Lo: v}, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v := float64(reflect.ValueOf(data).Uint())
		return Cutoff{Hi: v, Lo: v}, nil
	}
	return data, nil
}

// checkCutoffs fails when a cutoff names a group missing from groups or has
// its low cutoff above the high one.
func checkCutoffs(where string, cutoffs map[string]Cutoff, groups annotation.FrequencyGroups) error {
	names := make([]string, 0, len(cutoffs))
	for g := range cutoffs {
		names = append(names, g)
	}
	sort.Strings(names)
	for _, g := range names {
		if _, ok := groups[g]; !ok {
			return fmt.Errorf("%w: %s: unknown frequency group %q", apperr.ErrBadInput, where, g)
		}
		if c := cutoffs[g]; c.Lo > c.Hi {
			return fmt.Errorf("%w: %s.%s: lo_freq_cutoff %g exceeds hi_freq_cutoff %g", apperr.ErrBadInput, where, g, c.Lo, c.Hi)
		}
	}
	return nil
}

// NumThresholds maps provider and frequency key to a minimum allele number.
type NumThresholds map[string]map[string]int64

// GeneFrequencyConfig overrides the thresholds for one gene.
type GeneFrequencyConfig struct {
	Thresholds    map[string]Cutoff `mapstructure:"thresholds"`
	NumThresholds NumThresholds     `mapstructure:"num_thresholds"`
}

// FrequencyConfig configures the frequency filter. Groups defaults to the
// store's frequency groups.
type FrequencyConfig struct {
	Groups     annotation.FrequencyGroups `mapstructure:"groups"`
	Thresholds struct {
		AD      map[string]Cutoff `mapstructure:"AD"`
		Default map[string]Cutoff `mapstructure:"default"`
	} `mapstructure:"thresholds"`
	NumThresholds NumThresholds                 `mapstructure:"num_thresholds"`
	Genes         map[string]GeneFrequencyConfig `mapstructure:"genes"`
}

// ParseFrequencyConfig decodes and validates a frequency filter config.
func ParseFrequencyConfig(config map[string]interface{}) (*FrequencyConfig, error) {
	var c FrequencyConfig
	if err := decode(config, &c); err != nil {
		return nil, err
	}
	if c.Thresholds.Default == nil {
		return nil, fmt.Errorf("%w: thresholds.default is required", apperr.ErrBadInput)
	}
	if c.Thresholds.AD == nil {
		c.Thresholds.AD = c.Thresholds.Default
	}
	for gene := range c.Genes {
		if _, err := strconv.Atoi(gene); err != nil {
			return nil, fmt.Errorf("%w: gene key %q is not an HGNC id", apperr.ErrBadInput, gene)
		}
	}
	if len(c.Groups) > 0 {
		if err := c.checkGroups(c.Groups); err != nil {
			return nil, err
		}
	}
	return &c, nil
}

// checkGroups verifies that every threshold refers to one of groups.
func (c *FrequencyConfig) checkGroups(groups annotation.FrequencyGroups) error {
	if err := checkCutoffs("thresholds.default", c.Thresholds.Default, groups); err != nil {
		return err
	}
	if err := checkCutoffs("thresholds.AD", c.Thresholds.AD, groups); err != nil {
		return err
	}
	for gene, gc := range c.Genes {
		if err := checkCutoffs("genes."+gene+".thresholds", gc.Thresholds, groups); err != nil {
			return err
		}
	}
	return nil
}

// Commonness is the frequency category of an allele.
type Commonness int

// Categories in precedence order.
const (
	Common Commonness = iota
	LessCommon
	LowFreq
	NullFreq
	NumThreshold
)

func (c Commonness) String() string {
	switch c {
	case Common:
		return "common"
	case LessCommon:
		return "less_common"
	case LowFreq:
		return "low_freq"
	case NullFreq:
		return "null_freq"
	}
	return "num_threshold"
}

// thresholdSet is the cutoffs applied to one allele.
type thresholdSet struct {
	cutoffs map[string]Cutoff
	num     NumThresholds
}

// categorize places an allele with the given frequency rows in one category.
func (s thresholdSet) categorize(groups annotation.FrequencyGroups, rows map[string]map[string]annotation.ShadowFrequency) Commonness {
	hasFreq := false
	best := NumThreshold + 1
	for group, cutoff := range s.cutoffs {
		for provider, keys := range groups[group] {
			for _, key := range keys {
				row, ok := rows[provider][key]
				if !ok {
					continue
				}
				hasFreq = true
				if floor, ok := s.num[provider][key]; ok && (row.Num == nil || *row.Num < floor) {
					continue
				}
				c := LowFreq
				switch {
				case row.Freq >= cutoff.Hi:
					c = Common
				case row.Freq >= cutoff.Lo:
					c = LessCommon
				}
				best = min(best, c)
			}
		}
	}
	switch {
	case best <= LowFreq:
		return best
	case !hasFreq:
		return NullFreq
	}
	return NumThreshold
}

type frequencyFilter struct {
	cfg *FrequencyConfig
}

func newFrequencyFilter(config map[string]interface{}) (Filter, error) {
	cfg, err := ParseFrequencyConfig(config)
	if err != nil {
		return nil, err
	}
	return &frequencyFilter{cfg: cfg}, nil
}

// overrides returns the per-gene threshold sets. Filter config genes take
// precedence over thresholds carried by the panel.
func (f *frequencyFilter) overrides(panel *genepanel.Panel, groups annotation.FrequencyGroups) (map[int]thresholdSet, error) {
	out := make(map[int]thresholdSet)
	for hgnc, gc := range panel.GeneConfig {
		if len(gc.Thresholds) == 0 {
			continue
		}
		var cutoffs map[string]Cutoff
		if err := decode(gc.Thresholds, &cutoffs); err != nil {
			return nil, fmt.Errorf("panel thresholds of gene %d: %w", hgnc, err)
		}
		if err := checkCutoffs(fmt.Sprintf("panel gene %d thresholds", hgnc), cutoffs, groups); err != nil {
			return nil, err
		}
		out[hgnc] = thresholdSet{cutoffs: cutoffs, num: f.cfg.NumThresholds}
	}
	for gene, gc := range f.cfg.Genes {
		if gc.Thresholds == nil {
			continue
		}
		hgnc, _ := strconv.Atoi(gene)
		num := gc.NumThresholds
		if num == nil {
			num = f.cfg.NumThresholds
		}
		out[hgnc] = thresholdSet{cutoffs: gc.Thresholds, num: num}
	}
	return out, nil
}

// thresholds partitions ids into override genes, distinctly AD genes and
// the default, and returns the threshold sets applying to each allele.
func (f *frequencyFilter) thresholds(ctx context.Context, env *Env, ids model.IDSet, groups annotation.FrequencyGroups) (map[int64][]thresholdSet, error) {
	matches, err := env.Matches(ctx, ids)
	if err != nil {
		return nil, err
	}
	genes := reconcile.GenesByAllele(matches)
	overrides, err := f.overrides(env.Panel, groups)
	if err != nil {
		return nil, err
	}

	def := thresholdSet{cutoffs: f.cfg.Thresholds.Default, num: f.cfg.NumThresholds}
	ad := thresholdSet{cutoffs: f.cfg.Thresholds.AD, num: f.cfg.NumThresholds}
	out := make(map[int64][]thresholdSet, len(ids))
	for id := range ids {
		var sets []thresholdSet
		distinctlyAD := false
		for gene := range genes[id] {
			if s, ok := overrides[gene]; ok {
				sets = append(sets, s)
			} else if env.Panel.Category(gene) == genepanel.DistinctlyAD {
				distinctlyAD = true
			}
		}
		switch {
		case len(sets) > 0:
		case distinctlyAD:
			sets = []thresholdSet{ad}
		default:
			sets = []thresholdSet{def}
		}
		out[id] = sets
	}
	return out, nil
}

func (f *frequencyFilter) categorize(ctx context.Context, env *Env, ids model.IDSet) (map[int64]Commonness, error) {
	groups := f.cfg.Groups
	if len(groups) == 0 {
		groups = env.Groups
	}
	if err := f.cfg.checkGroups(groups); err != nil {
		return nil, err
	}
	sets, err := f.thresholds(ctx, env, ids, groups)
	if err != nil {
		return nil, err
	}
	rows, err := env.Source.FrequencyShadows(ctx, ids)
	if err != nil {
		return nil, err
	}
	byAllele := make(map[int64]map[string]map[string]annotation.ShadowFrequency)
	for _, r := range rows {
		if byAllele[r.AlleleID] == nil {
			byAllele[r.AlleleID] = make(map[string]map[string]annotation.ShadowFrequency)
		}
		if byAllele[r.AlleleID][r.Provider] == nil {
			byAllele[r.AlleleID][r.Provider] = make(map[string]annotation.ShadowFrequency)
		}
		byAllele[r.AlleleID][r.Provider][r.Key] = r
	}

	out := make(map[int64]Commonness, len(ids))
	for id := range ids {
		best := NumThreshold
		for i, s := range sets[id] {
			c := s.categorize(groups, byAllele[id])
			if i == 0 || c < best {
				best = c
			}
		}
		out[id] = best
	}
	return out, nil
}

// Filter drops common alleles.
func (f *frequencyFilter) Filter(ctx context.Context, env *Env, ids model.IDSet) (model.IDSet, error) {
	cats, err := f.categorize(ctx, env, ids)
	if err != nil {
		return nil, err
	}
	return filterIDs(ids, func(id int64) bool { return cats[id] == Common }), nil
}

// CommonnessGroups places every allele of ids in exactly one frequency
// category using the frequency filter config.
func CommonnessGroups(ctx context.Context, env *Env, config map[string]interface{}, ids model.IDSet) (map[Commonness]model.IDSet, error) {
	cfg, err := ParseFrequencyConfig(config)
	if err != nil {
		return nil, err
	}
	f := &frequencyFilter{cfg: cfg}
	cats, err := f.categorize(ctx, env, ids)
	if err != nil {
		return nil, err
	}
	out := map[Commonness]model.IDSet{
		Common: {}, LessCommon: {}, LowFreq: {}, NullFreq: {}, NumThreshold: {},
	}
	for id, c := range cats {
		out[c].Add(id)
	}
	return out, nil
}
