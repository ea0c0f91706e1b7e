package vcf

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/glbala87/ELLA-tool-sub001/internal/genomic"
)

// GT is a parsed genotype call. Missing alleles are -1.
type GT struct {
	Alleles []int
	Phased  bool
}

// ParseGT parses "0/1", "1|0", "./.", "1" and similar.
func ParseGT(s string) (GT, error) {
	if s == "" {
		return GT{Alleles: []int{-1, -1}}, nil
	}
	var g GT
	sep := "/"
	if strings.Contains(s, "|") {
		sep = "|"
		g.Phased = true
	}
	for _, a := range strings.Split(s, sep) {
		if a == "." {
			g.Alleles = append(g.Alleles, -1)
			continue
		}
		n, err := strconv.Atoi(a)
		if err != nil || n < 0 {
			return GT{}, fmt.Errorf("invalid genotype %q", s)
		}
		g.Alleles = append(g.Alleles, n)
	}
	return g, nil
}

// IsMissing reports a call where every allele is missing.
func (g GT) IsMissing() bool {
	for _, a := range g.Alleles {
		if a >= 0 {
			return false
		}
	}
	return true
}

// HasMissing reports whether any allele is missing.
func (g GT) HasMissing() bool {
	for _, a := range g.Alleles {
		if a < 0 {
			return true
		}
	}
	return false
}

// AltCount returns the number of non-reference alleles.
func (g GT) AltCount() int {
	n := 0
	for _, a := range g.Alleles {
		if a > 0 {
			n++
		}
	}
	return n
}

// HasVariant reports whether the sample carries the ALT.
func (g GT) HasVariant() bool {
	return g.AltCount() > 0
}

// IsSimple reports a plain diploid 0/1 or 1/1 call (any phasing), i.e. not a
// split multi-allelic call.
func (g GT) IsSimple() bool {
	if len(g.Alleles) != 2 || g.HasMissing() {
		return false
	}
	for _, a := range g.Alleles {
		if a > 1 {
			return false
		}
	}
	return g.HasVariant()
}

// Zygosity classifies the call on its own record. A fully missing call
// yields NoCoverage; the block decides whether that is real. multiallelic is
// set for the "1/." halves of a split multi-allelic call.
func (g GT) Zygosity() (z genomic.Zygosity, multiallelic bool) {
	if g.IsMissing() {
		return genomic.NoCoverage, false
	}
	alt := g.AltCount()
	switch {
	case alt == 0:
		return genomic.Reference, false
	case g.HasMissing():
		return genomic.Heterozygous, true
	case alt == len(g.Alleles):
		return genomic.Homozygous, false
	}
	return genomic.Heterozygous, false
}

func (g GT) String() string {
	sep := "/"
	if g.Phased {
		sep = "|"
	}
	parts := make([]string, len(g.Alleles))
	for i, a := range g.Alleles {
		if a < 0 {
			parts[i] = "."
		} else {
			parts[i] = strconv.Itoa(a)
		}
	}
	return strings.Join(parts, sep)
}
