package genepanel

import "github.com/glbala87/ELLA-tool-sub001/internal/genomic"

// Gene is identified by its HGNC id.
type Gene struct {
	HGNCID int
	Symbol string
}

// Phenotype links a gene to a disease and its mode of inheritance.
// Unique per (gene, description, inheritance).
type Phenotype struct {
	ID          int64
	HGNCID      int
	Description string
	Inheritance genomic.Inheritance
	OMIMID      *int
}

// InheritanceCategory is the inheritance of a gene derived from the
// phenotypes linked to it through a panel.
type InheritanceCategory int

const (
	Mixed InheritanceCategory = iota
	DistinctlyAD
	DistinctlyAR
)

func (c InheritanceCategory) String() string {
	switch c {
	case DistinctlyAD:
		return "AD"
	case DistinctlyAR:
		return "AR"
	}
	return "mixed"
}
