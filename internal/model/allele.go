// Package model holds the persistent entities shared by ingest, storage and
// the filter engine.
package model

import (
	"fmt"

	"github.com/glbala87/ELLA-tool-sub001/internal/genomic"
)

// AlleleKey is the identity of an allele. Two alleles are equal iff their keys are.
type AlleleKey struct {
	Chromosome string
	Start      int64 // 0-based
	OpenEnd    int64 // 0-based, exclusive
	ChangeFrom string
	ChangeTo   string
}

func (k AlleleKey) String() string {
	return fmt.Sprintf("%s:%d-%d %s>%s", k.Chromosome, k.Start, k.OpenEnd, k.ChangeFrom, k.ChangeTo)
}

// Allele is a specific variant at a site. Alleles are never mutated after ingest.
type Allele struct {
	ID              int64
	GenomeReference string
	Chromosome      string
	StartPosition   int64 // 0-based
	OpenEndPosition int64 // 0-based, exclusive
	ChangeFrom      string
	ChangeTo        string
	ChangeType      genomic.ChangeType
	Length          int64

	// Original VCF representation, for display.
	VCFPos int64
	VCFRef string
	VCFAlt string
}

// Key returns the identity tuple of the allele.
func (a *Allele) Key() AlleleKey {
	return AlleleKey{
		Chromosome: a.Chromosome,
		Start:      a.StartPosition,
		OpenEnd:    a.OpenEndPosition,
		ChangeFrom: a.ChangeFrom,
		ChangeTo:   a.ChangeTo,
	}
}

// Interval returns the allele span. Insertions are given zero length, i.e.
// [start, start+1), so region arithmetic treats them as a point.
func (a *Allele) Interval() genomic.Interval {
	if a.ChangeType == genomic.Insertion {
		return genomic.Interval{Start: a.StartPosition, End: a.StartPosition + 1}
	}
	end := a.OpenEndPosition
	if end <= a.StartPosition {
		end = a.StartPosition + 1
	}
	return genomic.Interval{Start: a.StartPosition, End: end}
}

// VCFKey identifies the VCF record an allele was created from.
type VCFKey struct {
	Chromosome string
	Pos        int64
	Ref        string
	Alt        string
}
