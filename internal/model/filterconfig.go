package model

import "time"

// FilterConfig is a versioned, named filter chain assigned to user groups.
type FilterConfig struct {
	ID            int64         `json:"-"`
	Name          string        `json:"name"`
	Chain         FilterChain   `json:"filterconfig"`
	Requirements  []Requirement `json:"requirements"`
	Active        bool          `json:"active"`
	SchemaVersion int           `json:"-"`
	DateCreated   time.Time     `json:"-"`
}

// FilterChain is the ordered list of filters of a FilterConfig.
type FilterChain struct {
	Filters []FilterSpec `json:"filters" yaml:"filters"`
}

// FilterSpec is one filter of a chain. Name selects the filter kind.
// Exceptions are evaluated over the filter's result and rescue the alleles
// they match.
type FilterSpec struct {
	Name                 string                 `json:"name" yaml:"name"`
	Config               map[string]interface{} `json:"config" yaml:"config"`
	AlsoFilterClassified bool                   `json:"also_filter_classified,omitempty" yaml:"also_filter_classified"`
	Exceptions           []FilterSpec           `json:"exceptions,omitempty" yaml:"exceptions"`
}

// Requirement is a predicate an analysis must satisfy for a FilterConfig to
// be selected.
type Requirement struct {
	Function string                 `json:"function" yaml:"function"`
	Params   map[string]interface{} `json:"params" yaml:"params"`
}
