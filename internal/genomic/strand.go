package genomic

import "fmt"

// Strand is the transcript orientation: +1 forward, -1 reverse.
type Strand int8

const (
	Forward Strand = 1
	Reverse Strand = -1
)

func (s Strand) String() string {
	if s == Reverse {
		return "-"
	}
	return "+"
}

// ParseStrand accepts "+", "-", "1" and "-1".
func ParseStrand(s string) (Strand, error) {
	switch s {
	case "+", "1":
		return Forward, nil
	case "-", "-1":
		return Reverse, nil
	}
	return 0, fmt.Errorf("invalid strand %q", s)
}

// MarshalText encodes the strand as "+" or "-".
func (s Strand) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes "+", "-", "1" or "-1".
func (s *Strand) UnmarshalText(b []byte) error {
	v, err := ParseStrand(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
