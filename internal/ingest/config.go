package ingest

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/glbala87/ELLA-tool-sub001/internal/apperr"
	"github.com/glbala87/ELLA-tool-sub001/internal/model"
)

//go:embed analysis.schema.json
var analysisSchemaJSON string

var analysisSchema = jsonschema.MustCompileString("mem://analysis.schema.json", analysisSchemaJSON)

const analysisSuffix = ".analysis"

// DataEntry is one VCF of an analysis, with its optional PED file.
type DataEntry struct {
	VCF        string `json:"vcf"`
	PED        string `json:"ped,omitempty"`
	Technology string `json:"technology,omitempty"`
	CallerName string `json:"callerName,omitempty"`
}

// AnalysisConfigData describes an analysis to deposit.
type AnalysisConfigData struct {
	Name             string      `json:"name"`
	GenePanelName    string      `json:"genepanel_name"`
	GenePanelVersion string      `json:"genepanel_version"`
	Priority         int         `json:"priority,omitempty"`
	DateRequested    string      `json:"date_requested,omitempty"`
	Report           string      `json:"report,omitempty"`
	Warnings         string      `json:"warnings,omitempty"`
	Data             []DataEntry `json:"data"`
}

// GenePanel returns the panel key of the analysis.
func (c *AnalysisConfigData) GenePanel() model.GenePanelKey {
	return model.GenePanelKey{Name: c.GenePanelName, Version: c.GenePanelVersion}
}

// Analysis builds the analysis row described by the config.
func (c *AnalysisConfigData) Analysis() (*model.Analysis, error) {
	a := &model.Analysis{
		Name:      c.Name,
		GenePanel: c.GenePanel(),
		Priority:  c.Priority,
		Report:    c.Report,
		Warnings:  c.Warnings,
	}
	if c.DateRequested != "" {
		t, err := time.Parse(time.DateOnly, c.DateRequested[:min(len(c.DateRequested), len(time.DateOnly))])
		if err != nil {
			return nil, fmt.Errorf("%w: date_requested %q: %v", apperr.ErrBadInput, c.DateRequested, err)
		}
		a.DateRequested = &t
	}
	return a, nil
}

// ParseAnalysisConfig validates and decodes an analysis config. Relative
// data paths are resolved against dir.
func ParseAnalysisConfig(b []byte, dir string) (*AnalysisConfigData, error) {
	d := json.NewDecoder(bytes.NewReader(b))
	d.UseNumber()
	var v interface{}
	if err := d.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: analysis config: %v", apperr.ErrBadInput, err)
	}
	if err := analysisSchema.Validate(v); err != nil {
		return nil, fmt.Errorf("%w: analysis config: %v", apperr.ErrBadInput, err)
	}
	var c AnalysisConfigData
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("%w: analysis config: %v", apperr.ErrBadInput, err)
	}
	c.applyDefaults(dir)
	return &c, nil
}

func (c *AnalysisConfigData) applyDefaults(dir string) {
	if c.Priority == 0 {
		c.Priority = 1
	}
	for i := range c.Data {
		d := &c.Data[i]
		if d.Technology == "" {
			d.Technology = "HTS"
		}
		if dir == "" {
			continue
		}
		if !filepath.IsAbs(d.VCF) {
			d.VCF = filepath.Join(dir, d.VCF)
		}
		if d.PED != "" && !filepath.IsAbs(d.PED) {
			d.PED = filepath.Join(dir, d.PED)
		}
	}
}

// LoadAnalysisConfig reads an analysis config from path, which is one of:
// a JSON ".analysis" file; a directory holding "<dirname>.analysis" (or a
// single .analysis file); or a bare VCF named "<name>.<panel>_<version>.vcf",
// with an optional PED file next to it sharing the base name.
func LoadAnalysisConfig(path string) (*AnalysisConfigData, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrBadInput, err)
	}
	if fi.IsDir() {
		return loadAnalysisDir(path)
	}
	if isVCF(path) {
		return legacyConfig(path)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read analysis config: %w", err)
	}
	return ParseAnalysisConfig(b, filepath.Dir(path))
}

func loadAnalysisDir(dir string) (*AnalysisConfigData, error) {
	candidate := filepath.Join(dir, filepath.Base(filepath.Clean(dir))+analysisSuffix)
	if _, err := os.Stat(candidate); err == nil {
		return LoadAnalysisConfig(candidate)
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*"+analysisSuffix))
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 1:
		return LoadAnalysisConfig(matches[0])
	case 0:
		return nil, fmt.Errorf("%w: no %s file in %s", apperr.ErrBadInput, analysisSuffix, dir)
	}
	return nil, fmt.Errorf("%w: several %s files in %s", apperr.ErrBadInput, analysisSuffix, dir)
}

func isVCF(path string) bool {
	return strings.HasSuffix(path, ".vcf") || strings.HasSuffix(path, ".vcf.gz")
}

// legacyConfig derives a config from a VCF file name of the form
// "<name>.<panel>_<version>.vcf".
func legacyConfig(path string) (*AnalysisConfigData, error) {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(strings.TrimSuffix(base, ".gz"), ".vcf")
	name, panel, ok := strings.Cut(stem, ".")
	if !ok || name == "" {
		return nil, fmt.Errorf("%w: VCF file name %q does not encode name.genepanel_version", apperr.ErrBadInput, base)
	}
	panelName, panelVersion, ok := strings.Cut(panel, "_")
	if !ok || panelName == "" || panelVersion == "" {
		return nil, fmt.Errorf("%w: VCF file name %q does not encode name.genepanel_version", apperr.ErrBadInput, base)
	}

	entry := DataEntry{VCF: path, Technology: "HTS"}
	ped := filepath.Join(filepath.Dir(path), stem+".ped")
	if _, err := os.Stat(ped); err == nil {
		entry.PED = ped
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return &AnalysisConfigData{
		Name:             name,
		GenePanelName:    panelName,
		GenePanelVersion: panelVersion,
		Priority:         1,
		Data:             []DataEntry{entry},
	}, nil
}
