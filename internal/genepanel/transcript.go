// Package genepanel models clinical gene panels: transcripts with exon
// structure, genes, phenotypes and the per-gene inheritance they imply.
package genepanel

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/glbala87/ELLA-tool-sub001/internal/genomic"
)

// Transcript is a panel transcript. All coordinates are 0-based half-open.
type Transcript struct {
	ID         int64
	Name       string // e.g. NM_000059.3
	HGNCID     int    // gene
	Chromosome string
	Strand     genomic.Strand
	TxStart    int64
	TxEnd      int64
	CDSStart   int64 // equal to CDSEnd for non-coding transcripts
	CDSEnd     int64
	ExonStarts []int64 // ascending genomic order regardless of strand
	ExonEnds   []int64
	Source     string
}

// IsCoding reports whether the transcript has a coding sequence.
func (t *Transcript) IsCoding() bool {
	return t.CDSEnd > t.CDSStart
}

// Interval returns the transcript span.
func (t *Transcript) Interval() genomic.Interval {
	return genomic.Interval{Start: t.TxStart, End: t.TxEnd}
}

// CDS returns the coding span, ok=false for non-coding transcripts.
func (t *Transcript) CDS() (genomic.Interval, bool) {
	if !t.IsCoding() {
		return genomic.Interval{}, false
	}
	return genomic.Interval{Start: t.CDSStart, End: t.CDSEnd}, true
}

// Exons returns the exons in ascending genomic order.
func (t *Transcript) Exons() []genomic.Interval {
	out := make([]genomic.Interval, len(t.ExonStarts))
	for i := range t.ExonStarts {
		out[i] = genomic.Interval{Start: t.ExonStarts[i], End: t.ExonEnds[i]}
	}
	return out
}

// FindExon returns the index of the exon containing pos, or -1.
func (t *Transcript) FindExon(pos int64) int {
	i := sort.Search(len(t.ExonEnds), func(i int) bool { return t.ExonEnds[i] > pos })
	if i < len(t.ExonStarts) && t.ExonStarts[i] <= pos {
		return i
	}
	return -1
}

// IsFirstExon reports whether exon i is the first in transcript direction.
func (t *Transcript) IsFirstExon(i int) bool {
	if t.Strand == genomic.Reverse {
		return i == len(t.ExonStarts)-1
	}
	return i == 0
}

// Validate checks the structural invariants of the transcript.
func (t *Transcript) Validate() error {
	if len(t.ExonStarts) != len(t.ExonEnds) {
		return fmt.Errorf("transcript %s: %d exon starts but %d exon ends", t.Name, len(t.ExonStarts), len(t.ExonEnds))
	}
	if t.TxStart >= t.TxEnd {
		return fmt.Errorf("transcript %s: empty span [%d, %d)", t.Name, t.TxStart, t.TxEnd)
	}
	for i := range t.ExonStarts {
		if t.ExonStarts[i] >= t.ExonEnds[i] {
			return fmt.Errorf("transcript %s: empty exon %d", t.Name, i)
		}
		if i > 0 && t.ExonStarts[i] < t.ExonEnds[i-1] {
			return fmt.Errorf("transcript %s: exons %d and %d overlap or are unsorted", t.Name, i-1, i)
		}
	}
	if t.IsCoding() && (t.CDSStart < t.TxStart || t.CDSEnd > t.TxEnd) {
		return fmt.Errorf("transcript %s: CDS [%d, %d) outside transcript", t.Name, t.CDSStart, t.CDSEnd)
	}
	return nil
}

// TranscriptName is a transcript name split into its parts, e.g.
// NM_000059.3_dupl18 → base NM_000059, version 3, suffix _dupl18.
type TranscriptName struct {
	Base    string
	Version int
	Suffix  string
}

// ParseTranscriptName splits name. Names without a version have Version -1.
func ParseTranscriptName(name string) TranscriptName {
	base, rest, ok := strings.Cut(name, ".")
	if !ok {
		return TranscriptName{Base: name, Version: -1}
	}
	digits := rest
	suffix := ""
	if i := strings.IndexFunc(rest, func(r rune) bool { return r < '0' || r > '9' }); i >= 0 {
		digits, suffix = rest[:i], rest[i:]
	}
	v, err := strconv.Atoi(digits)
	if err != nil {
		return TranscriptName{Base: base, Version: -1, Suffix: rest}
	}
	return TranscriptName{Base: base, Version: v, Suffix: suffix}
}

// BaseName returns the transcript name up to the first '.'.
func BaseName(name string) string {
	base, _, _ := strings.Cut(name, ".")
	return base
}
