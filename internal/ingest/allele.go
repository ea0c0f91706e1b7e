package ingest

import (
	"fmt"
	"strings"

	"github.com/glbala87/ELLA-tool-sub001/internal/apperr"
	"github.com/glbala87/ELLA-tool-sub001/internal/genomic"
	"github.com/glbala87/ELLA-tool-sub001/internal/model"
	"github.com/glbala87/ELLA-tool-sub001/internal/vcf"
)

// skippableAlt reports ALTs that do not describe an allele of their own:
// the spanning-deletion star and the no-call dot.
func skippableAlt(alt string) bool {
	return alt == "*" || alt == "." || alt == ""
}

// AlleleFromRecord converts a decomposed, normalized VCF record into an
// allele with 0-based half-open coordinates. A padding base shared by REF and
// ALT is trimmed. Insertions span start+len(ins)+1.
func AlleleFromRecord(v *vcf.Variant, genomeReference string) (*model.Allele, error) {
	a := &model.Allele{
		GenomeReference: genomeReference,
		Chromosome:      genomic.NormalizeChrom(v.Chrom),
		VCFPos:          v.Pos,
		VCFRef:          v.Ref,
		VCFAlt:          v.Alt,
	}
	ref, alt := v.Ref, v.Alt
	start := v.Pos - 1

	switch {
	case v.IsSymbolic():
		end, ok := v.InfoInt("END")
		if !ok || end < v.Pos {
			return nil, fmt.Errorf("%w: line %d: symbolic allele %s without a valid END", apperr.ErrBadInput, v.Line, alt)
		}
		a.ChangeType = genomic.CNV
		a.StartPosition = v.Pos
		a.OpenEndPosition = end
		a.ChangeFrom = ""
		a.ChangeTo = strings.Trim(alt, "<>")
		a.Length = end - v.Pos
		if a.Length == 0 {
			a.OpenEndPosition, a.Length = v.Pos+1, 1
		}

	case len(ref) == 1 && len(alt) == 1:
		a.ChangeType = genomic.SNP
		a.StartPosition, a.OpenEndPosition = start, start+1
		a.ChangeFrom, a.ChangeTo = ref, alt
		a.Length = 1

	case len(ref) > 1 && len(alt) == 1 && ref[0] == alt[0]:
		a.ChangeType = genomic.Deletion
		a.StartPosition = start + 1
		a.ChangeFrom, a.ChangeTo = ref[1:], ""
		a.OpenEndPosition = a.StartPosition + int64(len(a.ChangeFrom))
		a.Length = int64(len(a.ChangeFrom))

	case len(ref) == 1 && len(alt) > 1 && ref[0] == alt[0]:
		a.ChangeType = genomic.Insertion
		a.StartPosition = start
		a.ChangeFrom, a.ChangeTo = "", alt[1:]
		a.OpenEndPosition = start + int64(len(a.ChangeTo)) + 1
		a.Length = int64(len(a.ChangeTo))

	case len(ref) == len(alt):
		a.ChangeType = genomic.MNP
		a.StartPosition, a.OpenEndPosition = start, start+int64(len(ref))
		a.ChangeFrom, a.ChangeTo = ref, alt
		a.Length = int64(len(ref))

	default:
		a.ChangeType = genomic.Indel
		a.StartPosition = start
		if ref[0] == alt[0] {
			ref, alt = ref[1:], alt[1:]
			a.StartPosition++
		}
		a.ChangeFrom, a.ChangeTo = ref, alt
		a.OpenEndPosition = a.StartPosition + int64(len(ref))
		a.Length = int64(max(len(ref), len(alt)))
	}
	return a, nil
}
