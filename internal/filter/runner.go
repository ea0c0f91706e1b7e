package filter

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/glbala87/ELLA-tool-sub001/internal/annotation"
	"github.com/glbala87/ELLA-tool-sub001/internal/apperr"
	"github.com/glbala87/ELLA-tool-sub001/internal/model"
	"github.com/glbala87/ELLA-tool-sub001/internal/store"
)

// Result is the outcome of a chain run: the surviving alleles and the
// alleles each filter excluded.
type Result struct {
	Kept     model.IDSet
	Excluded map[string]model.IDSet
}

type step struct {
	spec       model.FilterSpec
	filter     Filter
	exceptions []step
}

var _ Source = (*store.Snapshot)(nil)

// Validate checks that every filter of chain is known and well configured.
func Validate(chain model.FilterChain) error {
	_, err := compile(chain)
	return err
}

// compile builds the filters of a chain. Unknown filters and malformed
// configs fail with ErrBadInput before anything is evaluated.
func compile(chain model.FilterChain) ([]step, error) {
	steps := make([]step, 0, len(chain.Filters))
	for i, spec := range chain.Filters {
		f, err := New(spec.Name, spec.Config)
		if err != nil {
			return nil, fmt.Errorf("filter %d: %w", i, err)
		}
		s := step{spec: spec, filter: f}
		if len(spec.Exceptions) > 0 {
			if s.exceptions, err = compile(model.FilterChain{Filters: spec.Exceptions}); err != nil {
				return nil, fmt.Errorf("exceptions of %s: %w", spec.Name, err)
			}
		}
		steps = append(steps, s)
	}
	return steps, nil
}

// Runner applies filter configs to analyses.
type Runner struct {
	logger  *zap.Logger
	options []model.ClassificationOption
	retry   apperr.RetryPolicy
	now     func() time.Time
}

// NewRunner creates a runner judging assessment validity with options.
func NewRunner(options []model.ClassificationOption) *Runner {
	return &Runner{
		logger:  zap.NewNop(),
		options: options,
		retry:   apperr.DefaultRetryPolicy,
		now:     time.Now,
	}
}

// SetLogger sets the logger.
func (r *Runner) SetLogger(l *zap.Logger) {
	r.logger = l
}

// SetRetryPolicy sets the retry policy for transient store failures.
func (r *Runner) SetRetryPolicy(p apperr.RetryPolicy) {
	r.retry = p
}

// SetClock sets the time source for assessment validity.
func (r *Runner) SetClock(now func() time.Time) {
	r.now = now
}

// RunStore runs fc over an analysis on a consistent snapshot of st,
// retrying transient failures.
func (r *Runner) RunStore(ctx context.Context, st *store.Store, analysisID int64, panel model.GenePanelKey, fc *model.FilterConfig) (*Result, error) {
	groups := st.FrequencyGroups()
	var res *Result
	err := apperr.Retry(ctx, r.retry, func() error {
		snap, err := st.Snapshot(ctx)
		if err != nil {
			return err
		}
		defer snap.Close()
		res, err = r.Run(ctx, snap, analysisID, panel, groups, fc)
		if apperr.IsTransient(err) {
			r.logger.Warn("transient filter failure, retrying", zap.Error(err))
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Run applies the chain of fc to the alleles of an analysis. Alleles with a
// valid assessment are hidden from filters not declared
// also_filter_classified. Cancellation is checked between filters.
func (r *Runner) Run(ctx context.Context, src Source, analysisID int64, panelKey model.GenePanelKey,
	groups annotation.FrequencyGroups, fc *model.FilterConfig) (*Result, error) {
	steps, err := compile(fc.Chain)
	if err != nil {
		return nil, fmt.Errorf("filter config %q: %w", fc.Name, err)
	}
	panel, err := src.GenePanel(ctx, panelKey)
	if err != nil {
		return nil, err
	}
	log := r.logger.With(zap.Int64("analysis_id", analysisID), zap.String("filterconfig", fc.Name))
	env := &Env{
		Source:     src,
		AnalysisID: analysisID,
		Panel:      panel,
		Groups:     groups,
		Now:        r.now(),
		Options:    r.options,
		Logger:     log,
	}

	working, err := src.AnalysisAlleleIDs(ctx, analysisID)
	if err != nil {
		return nil, err
	}
	valid, err := env.ValidAssessments(ctx, working)
	if err != nil {
		return nil, err
	}
	classified := make(model.IDSet, len(valid))
	for id := range valid {
		classified.Add(id)
	}

	res := &Result{Excluded: make(map[string]model.IDSet)}
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		input := working
		if !s.spec.AlsoFilterClassified && !implicitlyClassified[s.spec.Name] {
			input = working.Minus(classified)
		}
		drop, err := apply(ctx, env, s, input)
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", s.spec.Name, err)
		}
		if prev, ok := res.Excluded[s.spec.Name]; ok {
			drop = prev.Union(drop)
		}
		res.Excluded[s.spec.Name] = drop
		before := len(working)
		working = working.Minus(drop)
		log.Info("filter applied",
			zap.String("filter", s.spec.Name),
			zap.Int("in", before),
			zap.Int("out", len(working)),
			zap.Int("excluded", before-len(working)),
			zap.Duration("elapsed", time.Since(start)))
	}
	res.Kept = working
	return res, nil
}

// apply runs one step over input. Exceptions rescue the alleles they match
// from the step's drop set.
func apply(ctx context.Context, env *Env, s step, input model.IDSet) (model.IDSet, error) {
	drop, err := s.filter.Filter(ctx, env, input)
	if err != nil {
		return nil, err
	}
	drop = drop.Intersect(input)
	for _, exc := range s.exceptions {
		if len(drop) == 0 {
			break
		}
		rescued, err := apply(ctx, env, exc, drop)
		if err != nil {
			return nil, fmt.Errorf("exception %s: %w", exc.spec.Name, err)
		}
		drop = drop.Minus(rescued)
	}
	return drop, nil
}
