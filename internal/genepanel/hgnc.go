package genepanel

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// HGNCMap is immutable reference data mapping gene symbols and RefSeq/Ensembl
// transcript base names to HGNC ids. It is loaded once at startup.
type HGNCMap struct {
	symbols      map[int]string
	bySymbol     map[string]int
	byTranscript map[string]int
}

// LoadHGNCMap loads a TSV with a header line and the columns
// hgnc_id, symbol, refseq and ensembl. The transcript columns may hold
// several comma-separated ids.
func LoadHGNCMap(path string) (*HGNCMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open HGNC map: %w", err)
	}
	defer f.Close()

	return ParseHGNCMap(f)
}

// ParseHGNCMap parses the HGNC map TSV content.
func ParseHGNCMap(r io.Reader) (*HGNCMap, error) {
	m := &HGNCMap{
		symbols:      make(map[int]string),
		bySymbol:     make(map[string]int),
		byTranscript: make(map[string]int),
	}
	scanner := bufio.NewScanner(r)

	// Skip header line
	if !scanner.Scan() {
		return m, nil
	}

	lineNum := 1
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			return nil, fmt.Errorf("HGNC map line %d: expected at least 2 columns", lineNum)
		}
		id, err := strconv.Atoi(strings.TrimPrefix(fields[0], "HGNC:"))
		if err != nil {
			return nil, fmt.Errorf("HGNC map line %d: invalid id %q", lineNum, fields[0])
		}
		symbol := fields[1]
		m.symbols[id] = symbol
		m.bySymbol[symbol] = id
		for _, col := range fields[2:] {
			for _, tx := range strings.Split(col, ",") {
				tx = strings.TrimSpace(tx)
				if tx != "" {
					m.byTranscript[BaseName(tx)] = id
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan HGNC map: %w", err)
	}
	return m, nil
}

// Symbol returns the symbol of an HGNC id.
func (m *HGNCMap) Symbol(id int) (string, bool) {
	s, ok := m.symbols[id]
	return s, ok
}

// ResolveHGNC finds the HGNC id by transcript base name, then by symbol.
func (m *HGNCMap) ResolveHGNC(transcript, symbol string) (int, bool) {
	if m == nil {
		return 0, false
	}
	if id, ok := m.byTranscript[BaseName(transcript)]; ok {
		return id, true
	}
	if symbol == "" {
		return 0, false
	}
	id, ok := m.bySymbol[symbol]
	return id, ok
}

// Len returns the number of genes.
func (m *HGNCMap) Len() int {
	return len(m.symbols)
}
