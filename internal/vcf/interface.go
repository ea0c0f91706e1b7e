package vcf

// VariantParser is the interface for sources of VCF records.
// Parser implements it; tests use in-memory slices.
type VariantParser interface {
	// Next reads the next variant.
	// Returns nil, nil when there are no more variants.
	Next() (*Variant, error)

	// LineNumber returns the current line number being processed.
	LineNumber() int
}

// SliceParser serves variants from memory.
type SliceParser struct {
	Variants []*Variant
	pos      int
}

// Next returns the next variant or nil at the end.
func (s *SliceParser) Next() (*Variant, error) {
	if s.pos >= len(s.Variants) {
		return nil, nil
	}
	v := s.Variants[s.pos]
	s.pos++
	return v, nil
}

// LineNumber returns the number of variants served.
func (s *SliceParser) LineNumber() int {
	return s.pos
}
