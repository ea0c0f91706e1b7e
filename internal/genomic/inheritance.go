package genomic

import "strings"

// Inheritance is a phenotype's mode of inheritance.
type Inheritance int8

const (
	InheritanceUnknown Inheritance = iota
	AD
	AR
	ADAR
	XD
	XR
	XLinked
	Mitochondrial
	Somatic
	Multifactorial
	Other
)

var inheritanceNames = map[Inheritance]string{
	AD:             "AD",
	AR:             "AR",
	ADAR:           "AD/AR",
	XD:             "XD",
	XR:             "XR",
	XLinked:        "XL",
	Mitochondrial:  "MT",
	Somatic:        "SMu",
	Multifactorial: "Mu",
	Other:          "N/A",
}

func (i Inheritance) String() string {
	if s, ok := inheritanceNames[i]; ok {
		return s
	}
	return "unknown"
}

// ParseInheritance maps a panel inheritance string to the closed enum.
// Strings that are not recognized map to Other.
func ParseInheritance(s string) Inheritance {
	s = strings.TrimSpace(s)
	for i, name := range inheritanceNames {
		if strings.EqualFold(name, s) {
			return i
		}
	}
	switch strings.ToUpper(s) {
	case "AR/AD":
		return ADAR
	case "":
		return InheritanceUnknown
	}
	return Other
}

// IsRecessive reports AR or XR.
func (i Inheritance) IsRecessive() bool {
	return i == AR || i == XR
}
