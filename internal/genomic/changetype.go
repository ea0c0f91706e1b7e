package genomic

import "fmt"

// ChangeType classifies an allele by the shape of its REF/ALT change.
type ChangeType int8

const (
	ChangeUnknown ChangeType = iota
	SNP
	Insertion
	Deletion
	Indel
	MNP
	CNV
)

var changeTypeNames = map[ChangeType]string{
	SNP:       "snp",
	Insertion: "ins",
	Deletion:  "del",
	Indel:     "indel",
	MNP:       "mnp",
	CNV:       "cnv",
}

func (c ChangeType) String() string {
	if s, ok := changeTypeNames[c]; ok {
		return s
	}
	return "unknown"
}

// ParseChangeType parses a stored change type name.
func ParseChangeType(s string) (ChangeType, error) {
	for c, name := range changeTypeNames {
		if name == s {
			return c, nil
		}
	}
	return ChangeUnknown, fmt.Errorf("unknown change type %q", s)
}
