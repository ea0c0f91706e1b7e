package vcf

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/glbala87/ELLA-tool-sub001/internal/apperr"
	"github.com/glbala87/ELLA-tool-sub001/internal/model"
)

// PedRecord is one line of a PED file.
type PedRecord struct {
	FamilyID string
	SampleID string
	FatherID string // "" when unknown
	MotherID string
	Sex      model.Sex
	Affected bool
	Proband  *bool // optional 7th column
}

// ReadPED parses the PED file at path.
func ReadPED(path string) ([]PedRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ped file: %w", err)
	}
	defer f.Close()
	return ParsePED(f)
}

// ParsePED parses the standard 6-column PED format. Parents given as "0"
// are unknown. Affection status 2 means affected. A seventh column of 1/0
// marks the proband explicitly.
func ParsePED(r io.Reader) ([]PedRecord, error) {
	var out []PedRecord
	seen := make(map[string]bool)
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 6 {
			return nil, fmt.Errorf("%w: ped line %d: expected 6 columns, found %d", apperr.ErrBadInput, lineNum, len(fields))
		}
		rec := PedRecord{
			FamilyID: fields[0],
			SampleID: fields[1],
			FatherID: parent(fields[2]),
			MotherID: parent(fields[3]),
		}
		switch fields[4] {
		case "1":
			rec.Sex = model.Male
		case "2":
			rec.Sex = model.Female
		default:
			rec.Sex = model.SexUnknown
		}
		switch fields[5] {
		case "2":
			rec.Affected = true
		case "1", "0", "-9":
		default:
			return nil, fmt.Errorf("%w: ped line %d: invalid affection status %q", apperr.ErrBadInput, lineNum, fields[5])
		}
		if len(fields) > 6 {
			p := fields[6] == "1"
			rec.Proband = &p
		}
		if seen[rec.SampleID] {
			return nil, fmt.Errorf("%w: ped line %d: duplicate sample %q", apperr.ErrBadInput, lineNum, rec.SampleID)
		}
		seen[rec.SampleID] = true
		out = append(out, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan ped file: %w", err)
	}
	return out, nil
}

func parent(s string) string {
	if s == "0" || s == "." {
		return ""
	}
	return s
}

// Probands returns the proband sample ids: explicitly flagged samples if the
// file has a proband column, otherwise affected samples without children.
func Probands(ped []PedRecord) []string {
	var explicit []string
	hasColumn := false
	for _, r := range ped {
		if r.Proband != nil {
			hasColumn = true
			if *r.Proband {
				explicit = append(explicit, r.SampleID)
			}
		}
	}
	if hasColumn {
		return explicit
	}

	parents := make(map[string]bool)
	for _, r := range ped {
		if r.FatherID != "" {
			parents[r.FatherID] = true
		}
		if r.MotherID != "" {
			parents[r.MotherID] = true
		}
	}
	var out []string
	for _, r := range ped {
		if r.Affected && !parents[r.SampleID] {
			out = append(out, r.SampleID)
		}
	}
	return out
}
