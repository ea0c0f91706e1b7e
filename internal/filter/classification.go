package filter

import (
	"context"
	"fmt"

	"github.com/glbala87/ELLA-tool-sub001/internal/apperr"
	"github.com/glbala87/ELLA-tool-sub001/internal/model"
)

type classificationFilter struct {
	classes map[string]bool
}

func newClassificationFilter(config map[string]interface{}) (Filter, error) {
	var c struct {
		Classes []string `mapstructure:"classes"`
	}
	if err := decode(config, &c); err != nil {
		return nil, err
	}
	if len(c.Classes) == 0 {
		return nil, fmt.Errorf("%w: classes is required", apperr.ErrBadInput)
	}
	f := &classificationFilter{classes: make(map[string]bool, len(c.Classes))}
	for _, cl := range c.Classes {
		f.classes[cl] = true
	}
	return f, nil
}

// Filter drops alleles with a valid assessment in one of the classes.
func (f *classificationFilter) Filter(ctx context.Context, env *Env, ids model.IDSet) (model.IDSet, error) {
	valid, err := env.ValidAssessments(ctx, ids)
	if err != nil {
		return nil, err
	}
	return filterIDs(ids, func(id int64) bool {
		a, ok := valid[id]
		return ok && f.classes[a.Classification]
	}), nil
}
