// Package annotation holds the per-allele annotation record, its relational
// shadow projection, and the interpretation of VEP-style INFO annotation at ingest.
package annotation

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/glbala87/ELLA-tool-sub001/internal/genomic"
)

// TranscriptAnnotation is the effect of an allele on one transcript.
type TranscriptAnnotation struct {
	Transcript           string                `json:"transcript"`
	HGNCID               int                   `json:"hgnc_id,omitempty"`
	Symbol               string                `json:"symbol,omitempty"`
	Strand               genomic.Strand        `json:"strand"`
	IsCanonical          bool                  `json:"is_canonical"`
	InLastExon           bool                  `json:"in_last_exon"`
	Consequences         []genomic.Consequence `json:"consequences"`
	HGVSc                string                `json:"HGVSc,omitempty"`
	HGVSp                string                `json:"HGVSp,omitempty"`
	Protein              string                `json:"protein,omitempty"`
	Exon                 string                `json:"exon,omitempty"`
	Intron               string                `json:"intron,omitempty"`
	ExonDistance         *int64                `json:"exon_distance"`
	CodingRegionDistance *int64                `json:"coding_region_distance"`
	DbSNP                []string              `json:"dbsnp,omitempty"`
}

// WorstConsequence returns the most severe consequence, ok=false if none.
func (t *TranscriptAnnotation) WorstConsequence() (genomic.Consequence, bool) {
	if len(t.Consequences) == 0 {
		return 0, false
	}
	worst := t.Consequences[0]
	for _, c := range t.Consequences[1:] {
		if c.MoreSevere(worst) {
			worst = c
		}
	}
	return worst, true
}

// ProviderFrequency holds one frequency provider's values keyed by population.
type ProviderFrequency struct {
	Freq  map[string]float64 `json:"freq"`
	Num   map[string]int64   `json:"num,omitempty"`
	Count map[string]int64   `json:"count,omitempty"`
}

// Frequencies maps provider name to its values.
type Frequencies map[string]ProviderFrequency

// Reference is a literature reference attached by the annotator.
type Reference struct {
	PubMedID int    `json:"pubmed_id"`
	Source   string `json:"source"`
}

// Annotation is an immutable, versioned annotation record of one allele.
// Exactly one annotation per allele has DateSuperceeded == nil.
type Annotation struct {
	ID              int64                        `json:"-"`
	AlleleID        int64                        `json:"-"`
	SchemaVersion   int                          `json:"-"`
	DateCreated     time.Time                    `json:"-"`
	DateSuperceeded *time.Time                   `json:"-"`
	Transcripts     []TranscriptAnnotation       `json:"transcripts"`
	Frequencies     Frequencies                  `json:"frequencies"`
	References      []Reference                  `json:"references"`
	External        map[string]map[string]string `json:"external"`
}

// Current reports whether the annotation has not been superseded.
func (a *Annotation) Current() bool {
	return a.DateSuperceeded == nil
}

// MarshalDocument encodes the annotation payload stored in the annotation row.
func (a *Annotation) MarshalDocument() ([]byte, error) {
	doc := *a
	doc.Transcripts = make([]TranscriptAnnotation, len(a.Transcripts))
	for i, t := range a.Transcripts {
		if t.Consequences == nil {
			t.Consequences = []genomic.Consequence{}
		}
		doc.Transcripts[i] = t
	}
	if doc.Frequencies == nil {
		doc.Frequencies = Frequencies{}
	}
	if doc.References == nil {
		doc.References = []Reference{}
	}
	if doc.External == nil {
		doc.External = map[string]map[string]string{}
	}
	return json.Marshal(&doc)
}

// UnmarshalDocument decodes a stored annotation payload into a.
func (a *Annotation) UnmarshalDocument(b []byte) error {
	if err := json.Unmarshal(b, a); err != nil {
		return fmt.Errorf("decode annotation: %w", err)
	}
	return nil
}
