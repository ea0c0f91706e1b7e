package model

import (
	"fmt"
	"strings"
	"time"
)

// GenePanelKey identifies a published gene panel.
type GenePanelKey struct {
	Name    string
	Version string
}

func (k GenePanelKey) String() string {
	return k.Name + "_" + k.Version
}

// Analysis is one clinical analysis of one or more samples against a gene panel.
type Analysis struct {
	ID            int64
	Name          string
	GenePanel     GenePanelKey
	Priority      int
	DateRequested *time.Time
	DateDeposited time.Time
	Report        string
	Warnings      string
	Samples       []*Sample
}

// Sex of a sample, from the PED file.
type Sex int8

const (
	SexUnknown Sex = iota
	Male
	Female
)

func (s Sex) String() string {
	switch s {
	case Male:
		return "Male"
	case Female:
		return "Female"
	}
	return "Unknown"
}

// ParseSex parses the stored sex name.
func ParseSex(s string) (Sex, error) {
	switch strings.ToLower(s) {
	case "male":
		return Male, nil
	case "female":
		return Female, nil
	case "unknown", "":
		return SexUnknown, nil
	}
	return SexUnknown, fmt.Errorf("unknown sex %q", s)
}

// Sample is one sequenced individual of an analysis.
type Sample struct {
	ID         int64
	Identifier string
	AnalysisID int64
	Proband    bool
	Affected   bool
	Sex        Sex
	FatherID   *int64
	MotherID   *int64
	SampleType string
	FamilyID   string
}

// Family describes the trio structure of an analysis, if any.
type Family struct {
	Proband *Sample
	Father  *Sample
	Mother  *Sample
}

// Trio returns the proband with both parents, or ok=false when the samples
// do not form a trio.
func Trio(samples []*Sample) (Family, bool) {
	byID := make(map[int64]*Sample, len(samples))
	for _, s := range samples {
		byID[s.ID] = s
	}
	for _, s := range samples {
		if !s.Proband || s.FatherID == nil || s.MotherID == nil {
			continue
		}
		f, m := byID[*s.FatherID], byID[*s.MotherID]
		if f != nil && m != nil {
			return Family{Proband: s, Father: f, Mother: m}, true
		}
	}
	return Family{}, false
}

// IsFamily reports whether any sample references a parent.
func IsFamily(samples []*Sample) bool {
	for _, s := range samples {
		if s.FatherID != nil || s.MotherID != nil {
			return true
		}
	}
	return false
}

// Probands returns the proband samples in input order.
func Probands(samples []*Sample) []*Sample {
	var out []*Sample
	for _, s := range samples {
		if s.Proband {
			out = append(out, s)
		}
	}
	return out
}
