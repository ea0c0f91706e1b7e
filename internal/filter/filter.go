// Package filter implements the allele filters of an analysis and the chain
// runner that applies a filter configuration to an analysis.
package filter

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/glbala87/ELLA-tool-sub001/internal/annotation"
	"github.com/glbala87/ELLA-tool-sub001/internal/apperr"
	"github.com/glbala87/ELLA-tool-sub001/internal/genepanel"
	"github.com/glbala87/ELLA-tool-sub001/internal/model"
	"github.com/glbala87/ELLA-tool-sub001/internal/reconcile"
)

// Source is the read-only data a filter chain evaluates against. All reads
// of one chain run see the same state. *store.Snapshot implements it.
type Source interface {
	AnalysisAlleleIDs(ctx context.Context, analysisID int64) (model.IDSet, error)
	Alleles(ctx context.Context, ids model.IDSet) (map[int64]*model.Allele, error)
	TranscriptShadows(ctx context.Context, ids model.IDSet) ([]annotation.ShadowTranscript, error)
	FrequencyShadows(ctx context.Context, ids model.IDSet) ([]annotation.ShadowFrequency, error)
	Annotations(ctx context.Context, ids model.IDSet) (map[int64]*annotation.Annotation, error)
	GenePanel(ctx context.Context, key model.GenePanelKey) (*genepanel.Panel, error)
	Samples(ctx context.Context, analysisID int64) ([]*model.Sample, error)
	Genotypes(ctx context.Context, analysisID int64, ids model.IDSet) ([]model.AlleleGenotype, error)
	Assessments(ctx context.Context, ids model.IDSet) (map[int64]*model.Assessment, error)
}

// Env is the evaluation context shared by the filters of one chain run.
type Env struct {
	Source     Source
	AnalysisID int64
	Panel      *genepanel.Panel
	Groups     annotation.FrequencyGroups
	Now        time.Time
	Options    []model.ClassificationOption
	Logger     *zap.Logger
}

func (e *Env) log() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

// Matches reconciles the annotation transcripts of ids with the panel.
func (e *Env) Matches(ctx context.Context, ids model.IDSet) ([]reconcile.Match, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	shadows, err := e.Source.TranscriptShadows(ctx, ids)
	if err != nil {
		return nil, err
	}
	return reconcile.Reconcile(e.Panel, shadows), nil
}

// ValidAssessments returns the current, not outdated assessments among ids.
func (e *Env) ValidAssessments(ctx context.Context, ids model.IDSet) (map[int64]*model.Assessment, error) {
	if len(ids) == 0 {
		return map[int64]*model.Assessment{}, nil
	}
	all, err := e.Source.Assessments(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]*model.Assessment, len(all))
	for id, a := range all {
		if a.Valid(e.Now, e.Options) {
			out[id] = a
		}
	}
	return out, nil
}

// Probands returns the genotypes of the first proband of the analysis,
// keyed by allele id.
func (e *Env) Probands(ctx context.Context, ids model.IDSet) (map[int64]model.AlleleGenotype, error) {
	samples, err := e.Source.Samples(ctx, e.AnalysisID)
	if err != nil {
		return nil, err
	}
	probands := model.Probands(samples)
	if len(probands) == 0 || len(ids) == 0 {
		return map[int64]model.AlleleGenotype{}, nil
	}
	return e.sampleGenotypes(ctx, ids, probands[0].ID)
}

func (e *Env) sampleGenotypes(ctx context.Context, ids model.IDSet, sampleID int64) (map[int64]model.AlleleGenotype, error) {
	gts, err := e.Source.Genotypes(ctx, e.AnalysisID, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]model.AlleleGenotype)
	for _, g := range gts {
		if g.SampleID == sampleID {
			out[g.AlleleID] = g
		}
	}
	return out, nil
}

// Filter computes which of ids to exclude.
type Filter interface {
	Filter(ctx context.Context, env *Env, ids model.IDSet) (model.IDSet, error)
}

// Factory builds a filter from its configuration.
type Factory func(config map[string]interface{}) (Filter, error)

var registry = map[string]Factory{
	"frequency":        newFrequencyFilter,
	"region":           newRegionFilter,
	"consequence":      newConsequenceFilter,
	"inheritancemodel": newInheritanceModelFilter,
	"segregation":      newSegregationFilter,
	"classification":   newClassificationFilter,
	"quality":          newQualityFilter,
	"ppy":              newPPYFilter,
	"external":         newExternalFilter,
}

// implicitlyClassified lists filters that always see classified alleles.
var implicitlyClassified = map[string]bool{
	"classification": true,
}

// Kinds returns the registered filter names.
func Kinds() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// New builds the named filter. Unknown names and malformed configs are
// ErrBadInput.
func New(name string, config map[string]interface{}) (Filter, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown filter %q", apperr.ErrBadInput, name)
	}
	flt, err := f(config)
	if err != nil {
		return nil, fmt.Errorf("filter %s: %w", name, err)
	}
	return flt, nil
}

// decode maps a raw filter config onto out. Unknown keys are rejected.
func decode(config map[string]interface{}, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		DecodeHook:       cutoffHook,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(config); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrBadInput, err)
	}
	return nil
}

// padding validates an [upstream, downstream] pair.
func padding(name string, v []int64) (up, down int64, err error) {
	if len(v) != 2 {
		return 0, 0, fmt.Errorf("%w: %s needs [upstream, downstream], got %v", apperr.ErrBadInput, name, v)
	}
	if v[0] > 0 || v[1] < 0 {
		return 0, 0, fmt.Errorf("%w: %s must satisfy upstream <= 0 <= downstream, got %v", apperr.ErrBadInput, name, v)
	}
	return v[0], v[1], nil
}

func compileRegex(name, pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", apperr.ErrBadInput, name, err)
	}
	return re, nil
}

// filterIDs returns the ids for which keep is true.
func filterIDs(ids model.IDSet, keep func(int64) bool) model.IDSet {
	out := make(model.IDSet)
	for id := range ids {
		if keep(id) {
			out.Add(id)
		}
	}
	return out
}
