package genomic

import "fmt"

// Zygosity is the per-sample genotype type recorded for one allele.
type Zygosity int8

const (
	ZygosityUnknown Zygosity = iota
	Reference
	Heterozygous
	Homozygous
	NoCoverage
)

var zygosityNames = map[Zygosity]string{
	Reference:    "Reference",
	Heterozygous: "Heterozygous",
	Homozygous:   "Homozygous",
	NoCoverage:   "No coverage",
}

func (z Zygosity) String() string {
	if s, ok := zygosityNames[z]; ok {
		return s
	}
	return "Unknown"
}

// HasVariant reports whether the sample carries the allele.
func (z Zygosity) HasVariant() bool {
	return z == Heterozygous || z == Homozygous
}

// ParseZygosity parses the stored name of a zygosity.
func ParseZygosity(s string) (Zygosity, error) {
	for z, name := range zygosityNames {
		if name == s {
			return z, nil
		}
	}
	return ZygosityUnknown, fmt.Errorf("unknown genotype type %q", s)
}
