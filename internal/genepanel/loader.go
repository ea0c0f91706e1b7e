package genepanel

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/glbala87/ELLA-tool-sub001/internal/apperr"
	"github.com/glbala87/ELLA-tool-sub001/internal/genomic"
)

// Panel files in a directory are named <name>_<version>.transcripts.tsv,
// <name>_<version>.phenotypes.tsv and optionally <name>_<version>.config.json.
const (
	transcriptsSuffix = ".transcripts.tsv"
	phenotypesSuffix  = ".phenotypes.tsv"
	configSuffix      = ".config.json"
)

// LoadPanel reads a panel from the files in dir.
func LoadPanel(dir, name, version string) (*Panel, error) {
	prefix := filepath.Join(dir, name+"_"+version)

	tf, err := os.Open(prefix + transcriptsSuffix)
	if err != nil {
		return nil, fmt.Errorf("open panel transcripts: %w", err)
	}
	defer tf.Close()
	genes, transcripts, err := ParseTranscripts(tf)
	if err != nil {
		return nil, err
	}

	var phenotypes []Phenotype
	pf, err := os.Open(prefix + phenotypesSuffix)
	switch {
	case err == nil:
		defer pf.Close()
		phenotypes, err = ParsePhenotypes(pf)
		if err != nil {
			return nil, err
		}
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("open panel phenotypes: %w", err)
	}

	p := NewPanel(name, version, genes, transcripts, phenotypes)

	b, err := os.ReadFile(prefix + configSuffix)
	switch {
	case err == nil:
		var cfg struct {
			Genes map[string]GeneConfig `json:"genes"`
		}
		if err := json.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("%w: panel config: %v", apperr.ErrBadInput, err)
		}
		for k, gc := range cfg.Genes {
			id, err := strconv.Atoi(k)
			if err != nil {
				return nil, fmt.Errorf("%w: panel config: gene key %q is not an HGNC id", apperr.ErrBadInput, k)
			}
			p.GeneConfig[id] = gc
		}
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("read panel config: %w", err)
	}
	return p, nil
}

type tsvHeader map[string]int

func readHeader(scanner *bufio.Scanner, required ...string) (tsvHeader, error) {
	if !scanner.Scan() {
		return nil, fmt.Errorf("%w: missing header", apperr.ErrBadInput)
	}
	h := make(tsvHeader)
	for i, col := range strings.Split(strings.TrimPrefix(scanner.Text(), "#"), "\t") {
		h[strings.TrimSpace(col)] = i
	}
	for _, col := range required {
		if _, ok := h[col]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", apperr.ErrBadInput, col)
		}
	}
	return h, nil
}

func (h tsvHeader) get(fields []string, col string) string {
	i, ok := h[col]
	if !ok || i >= len(fields) {
		return ""
	}
	return fields[i]
}

// ParseTranscripts parses a panel transcripts TSV. Coordinates are 0-based
// half-open as in UCSC tables; exon columns are comma-separated lists.
func ParseTranscripts(r io.Reader) ([]Gene, []*Transcript, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	h, err := readHeader(scanner, "chromosome", "txStart", "txEnd", "name", "strand",
		"geneSymbol", "HGNC", "cdsStart", "cdsEnd", "exonStarts", "exonEnds")
	if err != nil {
		return nil, nil, fmt.Errorf("panel transcripts: %w", err)
	}

	var transcripts []*Transcript
	genes := make(map[int]Gene)
	var geneOrder []int
	lineNum := 1
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		t, err := parseTranscriptLine(h, fields)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: panel transcripts line %d: %v", apperr.ErrBadInput, lineNum, err)
		}
		if err := t.Validate(); err != nil {
			return nil, nil, fmt.Errorf("%w: panel transcripts line %d: %v", apperr.ErrBadInput, lineNum, err)
		}
		transcripts = append(transcripts, t)
		if _, ok := genes[t.HGNCID]; !ok {
			geneOrder = append(geneOrder, t.HGNCID)
			genes[t.HGNCID] = Gene{HGNCID: t.HGNCID, Symbol: h.get(fields, "geneSymbol")}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("scan panel transcripts: %w", err)
	}

	out := make([]Gene, 0, len(geneOrder))
	for _, id := range geneOrder {
		out = append(out, genes[id])
	}
	return out, transcripts, nil
}

func parseTranscriptLine(h tsvHeader, fields []string) (*Transcript, error) {
	var err error
	t := &Transcript{
		Name:       h.get(fields, "name"),
		Chromosome: genomic.NormalizeChrom(h.get(fields, "chromosome")),
		Source:     h.get(fields, "source"),
	}
	if t.Strand, err = genomic.ParseStrand(h.get(fields, "strand")); err != nil {
		return nil, err
	}
	if t.HGNCID, err = strconv.Atoi(strings.TrimPrefix(h.get(fields, "HGNC"), "HGNC:")); err != nil {
		return nil, fmt.Errorf("invalid HGNC id %q", h.get(fields, "HGNC"))
	}
	for _, c := range []struct {
		col string
		dst *int64
	}{
		{"txStart", &t.TxStart},
		{"txEnd", &t.TxEnd},
		{"cdsStart", &t.CDSStart},
		{"cdsEnd", &t.CDSEnd},
	} {
		if *c.dst, err = strconv.ParseInt(h.get(fields, c.col), 10, 64); err != nil {
			return nil, fmt.Errorf("invalid %s %q", c.col, h.get(fields, c.col))
		}
	}
	if t.ExonStarts, err = parseIntList(h.get(fields, "exonStarts")); err != nil {
		return nil, fmt.Errorf("exonStarts: %w", err)
	}
	if t.ExonEnds, err = parseIntList(h.get(fields, "exonEnds")); err != nil {
		return nil, fmt.Errorf("exonEnds: %w", err)
	}
	return t, nil
}

func parseIntList(s string) ([]int64, error) {
	var out []int64
	for _, p := range strings.Split(strings.TrimSuffix(s, ","), ",") {
		if p == "" {
			continue
		}
		v, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// ParsePhenotypes parses a panel phenotypes TSV with the columns HGNC,
// phenotype, inheritance and optionally omim_number. Duplicate
// (gene, description, inheritance) rows are collapsed.
func ParsePhenotypes(r io.Reader) ([]Phenotype, error) {
	scanner := bufio.NewScanner(r)
	h, err := readHeader(scanner, "HGNC", "phenotype", "inheritance")
	if err != nil {
		return nil, fmt.Errorf("panel phenotypes: %w", err)
	}

	type key struct {
		hgnc        int
		description string
		inheritance genomic.Inheritance
	}
	seen := make(map[key]bool)
	var out []Phenotype
	lineNum := 1
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		id, err := strconv.Atoi(strings.TrimPrefix(h.get(fields, "HGNC"), "HGNC:"))
		if err != nil {
			return nil, fmt.Errorf("%w: panel phenotypes line %d: invalid HGNC id", apperr.ErrBadInput, lineNum)
		}
		ph := Phenotype{
			HGNCID:      id,
			Description: h.get(fields, "phenotype"),
			Inheritance: genomic.ParseInheritance(h.get(fields, "inheritance")),
		}
		if omim := h.get(fields, "omim_number"); omim != "" {
			v, err := strconv.Atoi(omim)
			if err != nil {
				return nil, fmt.Errorf("%w: panel phenotypes line %d: invalid OMIM number", apperr.ErrBadInput, lineNum)
			}
			ph.OMIMID = &v
		}
		k := key{ph.HGNCID, ph.Description, ph.Inheritance}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, ph)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan panel phenotypes: %w", err)
	}
	return out, nil
}
