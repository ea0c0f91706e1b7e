package genomic

import (
	"fmt"
	"sort"
	"strings"
)

// Consequence is a Sequence Ontology consequence term. The numeric value is
// the severity rank: lower is more severe.
type Consequence int

// Consequences in VEP severity order, most severe first.
const (
	TranscriptAblation Consequence = iota
	SpliceAcceptorVariant
	SpliceDonorVariant
	StopGained
	FrameshiftVariant
	StopLost
	StartLost
	TranscriptAmplification
	InframeInsertion
	InframeDeletion
	MissenseVariant
	ProteinAlteringVariant
	SpliceRegionVariant
	SpliceDonor5thBaseVariant
	SpliceDonorRegionVariant
	SplicePolypyrimidineTractVariant
	IncompleteTerminalCodonVariant
	StartRetainedVariant
	StopRetainedVariant
	SynonymousVariant
	CodingSequenceVariant
	MatureMiRNAVariant
	FivePrimeUTRVariant
	ThreePrimeUTRVariant
	NonCodingTranscriptExonVariant
	IntronVariant
	NMDTranscriptVariant
	NonCodingTranscriptVariant
	UpstreamGeneVariant
	DownstreamGeneVariant
	TFBSAblation
	TFBSAmplification
	TFBindingSiteVariant
	RegulatoryRegionAblation
	RegulatoryRegionAmplification
	FeatureElongation
	RegulatoryRegionVariant
	FeatureTruncation
	IntergenicVariant
	numConsequences
)

var consequenceTerms = [numConsequences]string{
	"transcript_ablation",
	"splice_acceptor_variant",
	"splice_donor_variant",
	"stop_gained",
	"frameshift_variant",
	"stop_lost",
	"start_lost",
	"transcript_amplification",
	"inframe_insertion",
	"inframe_deletion",
	"missense_variant",
	"protein_altering_variant",
	"splice_region_variant",
	"splice_donor_5th_base_variant",
	"splice_donor_region_variant",
	"splice_polypyrimidine_tract_variant",
	"incomplete_terminal_codon_variant",
	"start_retained_variant",
	"stop_retained_variant",
	"synonymous_variant",
	"coding_sequence_variant",
	"mature_miRNA_variant",
	"5_prime_UTR_variant",
	"3_prime_UTR_variant",
	"non_coding_transcript_exon_variant",
	"intron_variant",
	"NMD_transcript_variant",
	"non_coding_transcript_variant",
	"upstream_gene_variant",
	"downstream_gene_variant",
	"TFBS_ablation",
	"TFBS_amplification",
	"TF_binding_site_variant",
	"regulatory_region_ablation",
	"regulatory_region_amplification",
	"feature_elongation",
	"regulatory_region_variant",
	"feature_truncation",
	"intergenic_variant",
}

var consequenceByTerm = func() map[string]Consequence {
	m := make(map[string]Consequence, numConsequences)
	for i, t := range consequenceTerms {
		m[t] = Consequence(i)
	}
	return m
}()

func (c Consequence) String() string {
	if c >= 0 && c < numConsequences {
		return consequenceTerms[c]
	}
	return fmt.Sprintf("Consequence(%d)", int(c))
}

// MoreSevere reports whether c is strictly more severe than o.
func (c Consequence) MoreSevere(o Consequence) bool {
	return c < o
}

// ParseConsequence maps an SO term to its Consequence.
func ParseConsequence(term string) (Consequence, error) {
	if c, ok := consequenceByTerm[strings.TrimSpace(term)]; ok {
		return c, nil
	}
	return 0, fmt.Errorf("unknown consequence %q", term)
}

// AllConsequences returns every known consequence, most severe first.
func AllConsequences() []Consequence {
	out := make([]Consequence, numConsequences)
	for i := range out {
		out[i] = Consequence(i)
	}
	return out
}

// SplitConsequences parses a VEP "&" or "," joined consequence string, skipping
// unknown terms, and returns them sorted by severity.
func SplitConsequences(s string) []Consequence {
	var out []Consequence
	for _, term := range strings.FieldsFunc(s, func(r rune) bool { return r == '&' || r == ',' }) {
		if c, err := ParseConsequence(term); err == nil {
			out = append(out, c)
		}
	}
	SortConsequences(out)
	return out
}

// SortConsequences sorts in place, most severe first.
func SortConsequences(cs []Consequence) {
	sort.Slice(cs, func(i, j int) bool { return cs[i] < cs[j] })
}

// Impact levels for consequences.
const (
	ImpactHigh     = "HIGH"
	ImpactModerate = "MODERATE"
	ImpactLow      = "LOW"
	ImpactModifier = "MODIFIER"
)

// Impact returns the VEP impact level of a consequence.
func (c Consequence) Impact() string {
	switch c {
	case TranscriptAblation, SpliceAcceptorVariant, SpliceDonorVariant, StopGained,
		FrameshiftVariant, StopLost, StartLost, TranscriptAmplification:
		return ImpactHigh
	case InframeInsertion, InframeDeletion, MissenseVariant, ProteinAlteringVariant:
		return ImpactModerate
	case SpliceRegionVariant, SpliceDonor5thBaseVariant, SpliceDonorRegionVariant,
		SplicePolypyrimidineTractVariant, IncompleteTerminalCodonVariant,
		StartRetainedVariant, StopRetainedVariant, SynonymousVariant:
		return ImpactLow
	default:
		return ImpactModifier
	}
}

// MarshalText encodes the SO term.
func (c Consequence) MarshalText() ([]byte, error) {
	if c < 0 || c >= numConsequences {
		return nil, fmt.Errorf("invalid consequence %d", int(c))
	}
	return []byte(consequenceTerms[c]), nil
}

// UnmarshalText decodes an SO term.
func (c *Consequence) UnmarshalText(b []byte) error {
	v, err := ParseConsequence(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}
