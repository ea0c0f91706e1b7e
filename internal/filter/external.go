package filter

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/glbala87/ELLA-tool-sub001/internal/annotation"
	"github.com/glbala87/ELLA-tool-sub001/internal/apperr"
	"github.com/glbala87/ELLA-tool-sub001/internal/model"
)

// ExternalConfig configures the external database filter. ClinVar
// combinations are [term, op, count] where count is a number or another
// term; all combinations must hold for a match.
type ExternalConfig struct {
	HGMD *struct {
		Tags    []string `mapstructure:"tags"`
		Inverse bool     `mapstructure:"inverse"`
	} `mapstructure:"hgmd"`
	ClinVar *struct {
		Combinations [][]interface{} `mapstructure:"combinations"`
		Inverse      bool            `mapstructure:"inverse"`
	} `mapstructure:"clinvar"`
}

type clinvarCombination struct {
	term  string
	op    string
	count int
	other string // compare against this term's count when set
}

type externalFilter struct {
	hgmdTags      map[string]bool
	hgmdInverse   bool
	combinations  []clinvarCombination
	clinvarActive bool
	clinvarInv    bool
}

var clinvarOps = map[string]func(a, b int) bool{
	"==": func(a, b int) bool { return a == b },
	"!=": func(a, b int) bool { return a != b },
	">":  func(a, b int) bool { return a > b },
	">=": func(a, b int) bool { return a >= b },
	"<":  func(a, b int) bool { return a < b },
	"<=": func(a, b int) bool { return a <= b },
}

func newExternalFilter(config map[string]interface{}) (Filter, error) {
	var c ExternalConfig
	if err := decode(config, &c); err != nil {
		return nil, err
	}
	if c.HGMD == nil && c.ClinVar == nil {
		return nil, fmt.Errorf("%w: external filter needs hgmd or clinvar", apperr.ErrBadInput)
	}
	f := &externalFilter{}
	if c.HGMD != nil {
		f.hgmdTags = make(map[string]bool, len(c.HGMD.Tags))
		for _, t := range c.HGMD.Tags {
			f.hgmdTags[t] = true
		}
		f.hgmdInverse = c.HGMD.Inverse
	}
	if c.ClinVar != nil {
		f.clinvarActive, f.clinvarInv = true, c.ClinVar.Inverse
		for _, raw := range c.ClinVar.Combinations {
			comb, err := parseCombination(raw)
			if err != nil {
				return nil, err
			}
			f.combinations = append(f.combinations, comb)
		}
	}
	return f, nil
}

func parseCombination(raw []interface{}) (clinvarCombination, error) {
	bad := fmt.Errorf("%w: clinvar combination must be [term, op, count], got %v", apperr.ErrBadInput, raw)
	if len(raw) != 3 {
		return clinvarCombination{}, bad
	}
	term, ok1 := raw[0].(string)
	op, ok2 := raw[1].(string)
	if !ok1 || !ok2 || clinvarOps[op] == nil {
		return clinvarCombination{}, bad
	}
	comb := clinvarCombination{term: strings.ToLower(term), op: op}
	switch v := raw[2].(type) {
	case int:
		comb.count = v
	case int64:
		comb.count = int(v)
	case float64:
		comb.count = int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			comb.count = n
		} else {
			comb.other = strings.ToLower(v)
		}
	default:
		return clinvarCombination{}, bad
	}
	return comb, nil
}

// clinvarCounts reads the submission count per clinical significance.
func clinvarCounts(a *annotation.Annotation) (map[string]int, bool) {
	raw, ok := a.External["CLINVAR"]
	if !ok {
		return nil, false
	}
	out := make(map[string]int, len(raw))
	for k, v := range raw {
		if n, err := strconv.Atoi(v); err == nil {
			out[strings.ToLower(k)] = n
		}
	}
	return out, true
}

func (f *externalFilter) matches(a *annotation.Annotation) bool {
	if f.hgmdTags != nil {
		tag := a.External["HGMD"]["tag"]
		if (tag != "" && f.hgmdTags[tag]) != f.hgmdInverse {
			return true
		}
	}
	if f.clinvarActive {
		counts, ok := clinvarCounts(a)
		match := ok
		for _, c := range f.combinations {
			if !match {
				break
			}
			want := c.count
			if c.other != "" {
				want = counts[c.other]
			}
			match = clinvarOps[c.op](counts[c.term], want)
		}
		if match != f.clinvarInv {
			return true
		}
	}
	return false
}

// Filter drops alleles matching the HGMD or ClinVar criteria.
func (f *externalFilter) Filter(ctx context.Context, env *Env, ids model.IDSet) (model.IDSet, error) {
	if len(ids) == 0 {
		return model.IDSet{}, nil
	}
	anns, err := env.Source.Annotations(ctx, ids)
	if err != nil {
		return nil, err
	}
	return filterIDs(ids, func(id int64) bool {
		a, ok := anns[id]
		return ok && f.matches(a)
	}), nil
}
