package model

import "time"

// Assessment is a stored clinical classification of an allele. Assessments
// are only ever superseded, never deleted.
type Assessment struct {
	ID              int64
	AlleleID        int64
	Classification  string
	Evaluation      string
	UserID          int64
	GenePanel       GenePanelKey
	DateCreated     time.Time
	DateSuperceeded *time.Time
}

// ClassificationOption configures staleness of one classification value.
type ClassificationOption struct {
	Value             string `mapstructure:"value" json:"value"`
	OutdatedAfterDays *int   `mapstructure:"outdated_after_days" json:"outdated_after_days,omitempty"`
}

// Valid reports whether the assessment is current and not outdated at now.
func (a *Assessment) Valid(now time.Time, options []ClassificationOption) bool {
	if a.DateSuperceeded != nil {
		return false
	}
	for _, o := range options {
		if o.Value != a.Classification || o.OutdatedAfterDays == nil {
			continue
		}
		limit := time.Duration(*o.OutdatedAfterDays) * 24 * time.Hour
		return now.Sub(a.DateCreated) < limit
	}
	return true
}
