// Package reconcile matches per-allele annotation transcripts to the
// transcripts of a gene panel, tolerating version drift.
package reconcile

import (
	"sort"

	"github.com/glbala87/ELLA-tool-sub001/internal/annotation"
	"github.com/glbala87/ELLA-tool-sub001/internal/genepanel"
)

// Match is one annotation transcript selected for one panel transcript.
type Match struct {
	AlleleID   int64
	Panel      *genepanel.Transcript
	Annotation annotation.ShadowTranscript
}

// HGNCID returns the gene of the panel transcript.
func (m Match) HGNCID() int {
	return m.Panel.HGNCID
}

// versionRank orders candidate annotation versions. Higher is better.
// Suffix-tagged versions sort half a version below their number.
func versionRank(name genepanel.TranscriptName) float64 {
	v := float64(name.Version)
	if name.Suffix != "" {
		v -= 0.5
	}
	return v
}

type matchKey struct {
	alleleID int64
	hgncID   int
	panelTx  string
}

// Reconcile joins annotation transcripts to panel transcripts by base name
// and gene. For each (allele, panel transcript) the annotation version is
// chosen in order: exact name match, then highest version. Alleles without
// a match are simply absent from the result.
func Reconcile(panel *genepanel.Panel, transcripts []annotation.ShadowTranscript) []Match {
	byBase := panel.TranscriptsByBaseName()

	best := make(map[matchKey]Match)
	for _, at := range transcripts {
		candidates := byBase[genepanel.BaseName(at.Transcript)]
		for _, pt := range candidates {
			if at.HGNCID != pt.HGNCID {
				continue
			}
			k := matchKey{alleleID: at.AlleleID, hgncID: pt.HGNCID, panelTx: pt.Name}
			m := Match{AlleleID: at.AlleleID, Panel: pt, Annotation: at}
			cur, ok := best[k]
			if !ok || better(m, cur) {
				best[k] = m
			}
		}
	}

	out := make([]Match, 0, len(best))
	for _, m := range best {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AlleleID != out[j].AlleleID {
			return out[i].AlleleID < out[j].AlleleID
		}
		return out[i].Panel.Name < out[j].Panel.Name
	})
	return out
}

// better reports whether a is a preferable annotation version than b for the
// same panel transcript.
func better(a, b Match) bool {
	aExact := a.Annotation.Transcript == a.Panel.Name
	bExact := b.Annotation.Transcript == b.Panel.Name
	if aExact != bExact {
		return aExact
	}
	ra := versionRank(genepanel.ParseTranscriptName(a.Annotation.Transcript))
	rb := versionRank(genepanel.ParseTranscriptName(b.Annotation.Transcript))
	if ra != rb {
		return ra > rb
	}
	return a.Annotation.Transcript < b.Annotation.Transcript
}

// ByAllele groups matches by allele id.
func ByAllele(matches []Match) map[int64][]Match {
	out := make(map[int64][]Match)
	for _, m := range matches {
		out[m.AlleleID] = append(out[m.AlleleID], m)
	}
	return out
}

// GenesByAllele returns the set of panel genes each allele touches through
// reconciled transcripts.
func GenesByAllele(matches []Match) map[int64]map[int]bool {
	out := make(map[int64]map[int]bool)
	for _, m := range matches {
		if out[m.AlleleID] == nil {
			out[m.AlleleID] = make(map[int]bool)
		}
		out[m.AlleleID][m.HGNCID()] = true
	}
	return out
}
