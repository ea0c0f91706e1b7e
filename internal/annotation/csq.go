package annotation

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/glbala87/ELLA-tool-sub001/internal/genomic"
)

// CSQFormat is the ordered field list of a VEP CSQ INFO entry, taken from the
// header's "Format: a|b|c" description.
type CSQFormat []string

// ParseCSQFormat finds the CSQ INFO header line and returns its field list.
func ParseCSQFormat(header []string) (CSQFormat, bool) {
	for _, line := range header {
		if !strings.HasPrefix(line, "##INFO=<ID=CSQ,") {
			continue
		}
		_, rest, ok := strings.Cut(line, "Format: ")
		if !ok {
			return nil, false
		}
		rest = strings.TrimRight(rest, "\">")
		return CSQFormat(strings.Split(rest, "|")), true
	}
	return nil, false
}

// HGNCResolver fills in HGNC ids missing from CSQ entries.
type HGNCResolver interface {
	ResolveHGNC(transcript, symbol string) (int, bool)
}

// ParseCSQ converts the raw CSQ INFO value into transcript annotations.
// Entries that are not transcript features are skipped.
func ParseCSQ(raw string, format CSQFormat, calc *DistanceCalculator, hgnc HGNCResolver) ([]TranscriptAnnotation, []Reference, error) {
	idx := make(map[string]int, len(format))
	for i, f := range format {
		idx[f] = i
	}
	if _, ok := idx["Feature"]; !ok {
		return nil, nil, fmt.Errorf("CSQ format has no Feature field")
	}

	var transcripts []TranscriptAnnotation
	refs := make(map[int]bool)
	for _, entry := range strings.Split(raw, ",") {
		fields := strings.Split(entry, "|")
		get := func(name string) string {
			i, ok := idx[name]
			if !ok || i >= len(fields) {
				return ""
			}
			return fields[i]
		}

		if ft := get("Feature_type"); ft != "" && ft != "Transcript" {
			continue
		}
		feature := get("Feature")
		if feature == "" {
			continue
		}

		ta := TranscriptAnnotation{
			Transcript:   feature,
			Symbol:       get("SYMBOL"),
			Strand:       genomic.Forward,
			IsCanonical:  get("CANONICAL") == "YES",
			Consequences: genomic.SplitConsequences(get("Consequence")),
			Exon:         get("EXON"),
			Intron:       get("INTRON"),
		}
		if s := get("STRAND"); s != "" {
			strand, err := genomic.ParseStrand(s)
			if err != nil {
				return nil, nil, fmt.Errorf("CSQ entry %s: %w", feature, err)
			}
			ta.Strand = strand
		}
		if h := get("HGNC_ID"); h != "" {
			id, err := strconv.Atoi(strings.TrimPrefix(h, "HGNC:"))
			if err != nil {
				return nil, nil, fmt.Errorf("CSQ entry %s: invalid HGNC_ID %q", feature, h)
			}
			ta.HGNCID = id
		}
		if ta.HGNCID == 0 && hgnc != nil {
			if id, ok := hgnc.ResolveHGNC(feature, ta.Symbol); ok {
				ta.HGNCID = id
			}
		}
		ta.InLastExon = inLastExon(ta.Exon)

		if h := get("HGVSc"); h != "" {
			ta.HGVSc = stripAccession(h)
		}
		if h := get("HGVSp"); h != "" {
			h = unescape(h)
			if acc, p, ok := strings.Cut(h, ":"); ok {
				ta.Protein, ta.HGVSp = acc, p
			} else {
				ta.HGVSp = h
			}
		}
		if calc != nil {
			ta.ExonDistance, ta.CodingRegionDistance = calc.Distances(ta.HGVSc)
		}
		for _, v := range strings.Split(get("Existing_variation"), "&") {
			if strings.HasPrefix(v, "rs") {
				ta.DbSNP = append(ta.DbSNP, v)
			}
		}
		for _, p := range strings.Split(get("PUBMED"), "&") {
			if id, err := strconv.Atoi(p); err == nil {
				refs[id] = true
			}
		}
		transcripts = append(transcripts, ta)
	}

	var references []Reference
	for id := range refs {
		references = append(references, Reference{PubMedID: id, Source: "VEP"})
	}
	sortReferences(references)
	return transcripts, references, nil
}

func stripAccession(h string) string {
	if _, v, ok := strings.Cut(h, ":"); ok {
		return unescape(v)
	}
	return unescape(h)
}

func unescape(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	if u, err := url.PathUnescape(s); err == nil {
		return u
	}
	return s
}

// inLastExon parses VEP's EXON field ("3/10" or "3-4/10").
func inLastExon(exon string) bool {
	num, total, ok := strings.Cut(exon, "/")
	if !ok {
		return false
	}
	if i := strings.LastIndexByte(num, '-'); i >= 0 {
		num = num[i+1:]
	}
	return num != "" && num == total
}
