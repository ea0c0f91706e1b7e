package annotation

import (
	"sort"

	"github.com/glbala87/ELLA-tool-sub001/internal/genomic"
)

// ShadowTranscript is the one-row-per-(allele, transcript) projection of an
// annotation that filters query.
type ShadowTranscript struct {
	AlleleID             int64
	Transcript           string
	HGNCID               int
	Symbol               string
	Strand               genomic.Strand
	IsCanonical          bool
	InLastExon           bool
	Consequences         []genomic.Consequence
	HGVSc                string
	HGVSp                string
	Protein              string
	ExonDistance         *int64
	CodingRegionDistance *int64
}

// ShadowFrequency is the one-row-per-(allele, provider, key) projection.
type ShadowFrequency struct {
	AlleleID int64
	Provider string
	Key      string
	Freq     float64
	Num      *int64
	Count    *int64
}

// BuildShadows projects an annotation into shadow rows. Only frequency keys
// enabled by groups are projected. Output order is deterministic.
func BuildShadows(alleleID int64, a *Annotation, groups FrequencyGroups) ([]ShadowTranscript, []ShadowFrequency) {
	transcripts := make([]ShadowTranscript, 0, len(a.Transcripts))
	for _, t := range a.Transcripts {
		transcripts = append(transcripts, ShadowTranscript{
			AlleleID:             alleleID,
			Transcript:           t.Transcript,
			HGNCID:               t.HGNCID,
			Symbol:               t.Symbol,
			Strand:               t.Strand,
			IsCanonical:          t.IsCanonical,
			InLastExon:           t.InLastExon,
			Consequences:         t.Consequences,
			HGVSc:                t.HGVSc,
			HGVSp:                t.HGVSp,
			Protein:              t.Protein,
			ExonDistance:         t.ExonDistance,
			CodingRegionDistance: t.CodingRegionDistance,
		})
	}
	sort.SliceStable(transcripts, func(i, j int) bool {
		return transcripts[i].Transcript < transcripts[j].Transcript
	})

	var frequencies []ShadowFrequency
	for _, provider := range sortedProviders(a.Frequencies) {
		pf := a.Frequencies[provider]
		keys := make([]string, 0, len(pf.Freq))
		for k := range pf.Freq {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if !groups.Enabled(provider, k) {
				continue
			}
			sf := ShadowFrequency{AlleleID: alleleID, Provider: provider, Key: k, Freq: pf.Freq[k]}
			if n, ok := pf.Num[k]; ok {
				sf.Num = &n
			}
			if c, ok := pf.Count[k]; ok {
				sf.Count = &c
			}
			frequencies = append(frequencies, sf)
		}
	}
	return transcripts, frequencies
}

func sortedProviders(f Frequencies) []string {
	out := make([]string, 0, len(f))
	for p := range f {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
