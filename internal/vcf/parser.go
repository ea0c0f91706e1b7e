package vcf

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/biogo/hts/bgzf"

	"github.com/glbala87/ELLA-tool-sub001/internal/apperr"
)

// Parser reads variants from a VCF file.
type Parser struct {
	reader      *bufio.Reader
	file        *os.File
	gzipReader  *gzip.Reader
	bgzfReader  *bgzf.Reader
	lineNumber  int
	header      []string
	sampleNames []string // sample names from #CHROM header line
}

// NewParser creates a new VCF parser for the given file.
// Supports plain, gzipped and BGZF-compressed VCF files.
func NewParser(path string) (*Parser, error) {
	if path == "-" {
		return NewParserFromReader(os.Stdin)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vcf file: %w", err)
	}

	p := &Parser{file: file}
	if err := p.init(file); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

// NewParserFromReader creates a parser from an io.Reader (e.g., stdin).
func NewParserFromReader(r io.Reader) (*Parser, error) {
	p := &Parser{}
	if err := p.init(r); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

func (p *Parser) init(r io.Reader) error {
	br := bufio.NewReader(r)

	// Check for gzip magic number (0x1f, 0x8b). BGZF blocks carry a "BC"
	// extra subfield at offset 12.
	magic, _ := br.Peek(16)
	switch {
	case len(magic) >= 16 && magic[0] == 0x1f && magic[1] == 0x8b && magic[3]&0x04 != 0 && magic[12] == 'B' && magic[13] == 'C':
		bg, err := bgzf.NewReader(br, 1)
		if err != nil {
			return fmt.Errorf("create bgzf reader: %w", err)
		}
		p.bgzfReader = bg
		p.reader = bufio.NewReader(bg)
	case len(magic) >= 2 && magic[0] == 0x1f && magic[1] == 0x8b:
		gz, err := gzip.NewReader(br)
		if err != nil {
			return fmt.Errorf("create gzip reader: %w", err)
		}
		p.gzipReader = gz
		p.reader = bufio.NewReader(gz)
	default:
		p.reader = br
	}

	return p.parseHeader()
}

// parseHeader reads and stores VCF header lines.
func (p *Parser) parseHeader() error {
	for {
		line, err := p.reader.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("read header: %w", err)
		}
		p.lineNumber++

		line = strings.TrimRight(line, "\r\n")

		if strings.HasPrefix(line, "##") {
			p.header = append(p.header, line)
			continue
		}

		if strings.HasPrefix(line, "#CHROM") {
			p.header = append(p.header, line)
			// Extract sample names from columns after FORMAT (index 9+)
			fields := strings.Split(line, "\t")
			if len(fields) > 9 {
				p.sampleNames = fields[9:]
			}
			return nil
		}

		// Non-header line encountered without #CHROM
		return &ParseError{
			Line:    p.lineNumber,
			Message: "expected #CHROM header line",
		}
	}

	return &ParseError{
		Line:    p.lineNumber,
		Message: "no #CHROM header line found",
	}
}

// Next reads the next variant from the VCF file.
// Returns nil, nil when there are no more variants.
func (p *Parser) Next() (*Variant, error) {
	for {
		line, err := p.reader.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			if err == io.EOF {
				return nil, nil
			}
			return nil, fmt.Errorf("read variant line: %w", err)
		}
		p.lineNumber++

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}
		return p.parseLine(line)
	}
}

// parseLine parses a single VCF data line into a Variant.
func (p *Parser) parseLine(line string) (*Variant, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 8 {
		return nil, p.errorf("expected at least 8 columns, found %d", len(fields))
	}

	pos, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil || pos < 1 {
		return nil, p.errorf("invalid position: %s", fields[1])
	}
	if fields[3] == "" || fields[4] == "" {
		return nil, p.errorf("empty REF or ALT")
	}

	v := &Variant{
		Chrom:  fields[0],
		Pos:    pos,
		ID:     fields[2],
		Ref:    strings.ToUpper(fields[3]),
		Alt:    strings.ToUpper(fields[4]),
		Filter: fields[6],
		Info:   parseInfo(fields[7]),
		Line:   p.lineNumber,
	}
	if fields[5] != "." {
		q, err := strconv.ParseFloat(fields[5], 64)
		if err != nil {
			return nil, p.errorf("invalid QUAL: %s", fields[5])
		}
		v.Qual = &q
	}

	if len(fields) > 9 {
		if len(fields)-9 != len(p.sampleNames) {
			return nil, p.errorf("expected %d sample columns, found %d", len(p.sampleNames), len(fields)-9)
		}
		format := strings.Split(fields[8], ":")
		v.Samples = make([]SampleCall, 0, len(fields)-9)
		for _, col := range fields[9:] {
			call, err := parseSample(format, col)
			if err != nil {
				return nil, p.errorf("%v", err)
			}
			v.Samples = append(v.Samples, call)
		}
	}

	return v, nil
}

func parseSample(format []string, col string) (SampleCall, error) {
	values := strings.Split(col, ":")
	call := SampleCall{Fields: make(map[string]string, len(format))}
	for i, key := range format {
		if i < len(values) {
			call.Fields[key] = values[i]
		}
	}

	gt, err := ParseGT(call.Fields["GT"])
	if err != nil {
		return call, err
	}
	call.GT = gt
	call.DP = optionalInt(call.Fields["DP"])
	call.GQ = optionalInt(call.Fields["GQ"])

	if ad := call.Fields["AD"]; ad != "" && ad != "." {
		for _, s := range strings.Split(ad, ",") {
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				call.AD = nil
				break
			}
			call.AD = append(call.AD, n)
		}
	}
	return call, nil
}

func optionalInt(s string) *int64 {
	if s == "" || s == "." {
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

// parseInfo parses the INFO field into a map.
func parseInfo(info string) map[string]interface{} {
	result := make(map[string]interface{})
	if info == "." {
		return result
	}

	for _, kv := range strings.Split(info, ";") {
		if kv == "" {
			continue
		}
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) == 2 {
			result[parts[0]] = parts[1]
		} else {
			// Flag-type INFO field
			result[parts[0]] = true
		}
	}

	return result
}

// Header returns the VCF header lines.
func (p *Parser) Header() []string {
	return p.header
}

// SampleNames returns sample names from the #CHROM header line.
// Returns nil if no sample columns are present.
func (p *Parser) SampleNames() []string {
	return p.sampleNames
}

// LineNumber returns the current line number being processed.
func (p *Parser) LineNumber() int {
	return p.lineNumber
}

// Close closes the parser and underlying file.
func (p *Parser) Close() error {
	if p.gzipReader != nil {
		p.gzipReader.Close()
	}
	if p.bgzfReader != nil {
		p.bgzfReader.Close()
	}
	if p.file != nil {
		return p.file.Close()
	}
	return nil
}

func (p *Parser) errorf(format string, args ...any) error {
	return &ParseError{Line: p.lineNumber, Message: fmt.Sprintf(format, args...)}
}

// ParseError represents an error during VCF parsing with line context.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("vcf parse error at line %d: %s", e.Line, e.Message)
}

// Unwrap makes parse errors match apperr.ErrBadInput.
func (e *ParseError) Unwrap() error {
	return apperr.ErrBadInput
}
