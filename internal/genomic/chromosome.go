// Package genomic provides the coordinate and classification primitives shared
// by ingest and the filter engine. All intervals are 0-based, half-open.
package genomic

import (
	"strconv"
	"strings"
)

// Pseudoautosomal regions on X, 0-based half-open.
var (
	PAR1 = Interval{Start: 60000, End: 2699520}
	PAR2 = Interval{Start: 154931043, End: 155260560}
)

// NormalizeChrom strips a leading "chr" and maps M to MT.
func NormalizeChrom(chrom string) string {
	c := strings.TrimPrefix(chrom, "chr")
	if c == "M" {
		return "MT"
	}
	return c
}

// ChromRank returns the sort rank of a chromosome: 1..22, X, Y, MT, then
// anything else.
func ChromRank(chrom string) int {
	c := NormalizeChrom(chrom)
	switch c {
	case "X":
		return 23
	case "Y":
		return 24
	case "MT":
		return 25
	}
	if n, err := strconv.Atoi(c); err == nil && n >= 1 && n <= 22 {
		return n
	}
	return 26
}

// ChromLess orders chromosomes 1..22, X, Y, MT, falling back to lexical order
// for unplaced contigs.
func ChromLess(a, b string) bool {
	ra, rb := ChromRank(a), ChromRank(b)
	if ra != rb {
		return ra < rb
	}
	return NormalizeChrom(a) < NormalizeChrom(b)
}

// IsX reports whether chrom is the X chromosome.
func IsX(chrom string) bool {
	return NormalizeChrom(chrom) == "X"
}

// InPAR reports whether the 0-based position lies in a pseudoautosomal region of X.
func InPAR(chrom string, pos int64) bool {
	if !IsX(chrom) {
		return false
	}
	return PAR1.Contains(pos) || PAR2.Contains(pos)
}

// IsXMinusPAR reports whether the 0-based position is on X outside both PARs.
func IsXMinusPAR(chrom string, pos int64) bool {
	return IsX(chrom) && !InPAR(chrom, pos)
}
