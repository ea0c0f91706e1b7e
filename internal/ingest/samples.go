package ingest

import (
	"fmt"

	"github.com/glbala87/ELLA-tool-sub001/internal/apperr"
	"github.com/glbala87/ELLA-tool-sub001/internal/model"
	"github.com/glbala87/ELLA-tool-sub001/internal/vcf"
)

// resolvedSamples holds the samples one VCF contributes to an analysis.
type resolvedSamples struct {
	samples  []*model.Sample
	parents  [][2]int // father/mother index into samples, -1 for none
	probands []sampleColumn
	others   []sampleColumn
}

// resolveSamples maps the VCF sample columns to analysis samples. Without a
// PED file the VCF must hold exactly one sample, which becomes the proband.
func resolveSamples(entry DataEntry, names []string, an *model.Analysis, appendMode bool) (*resolvedSamples, error) {
	existing := make(map[string]bool, len(an.Samples))
	for _, s := range an.Samples {
		existing[s.Identifier] = true
	}

	var (
		res *resolvedSamples
		err error
	)
	if entry.PED == "" {
		res, err = singleSample(entry, names)
	} else {
		res, err = pedSamples(entry, names)
	}
	if err != nil {
		return nil, err
	}

	for i, s := range res.samples {
		if existing[s.Identifier] {
			return nil, fmt.Errorf("sample %q already in analysis %q: %w", s.Identifier, an.Name, apperr.ErrConflict)
		}
		if appendMode && (res.parents[i][0] >= 0 || res.parents[i][1] >= 0) {
			return nil, fmt.Errorf("cannot append family samples to analysis %q: %w", an.Name, apperr.ErrConflict)
		}
	}
	return res, nil
}

func singleSample(entry DataEntry, names []string) (*resolvedSamples, error) {
	if len(names) != 1 {
		return nil, fmt.Errorf("%w: %s has %d samples and no PED file", apperr.ErrBadInput, entry.VCF, len(names))
	}
	s := &model.Sample{
		Identifier: names[0],
		Proband:    true,
		Affected:   true,
		SampleType: entry.Technology,
	}
	return &resolvedSamples{
		samples:  []*model.Sample{s},
		parents:  [][2]int{{-1, -1}},
		probands: []sampleColumn{{sample: s, column: 0}},
	}, nil
}

func pedSamples(entry DataEntry, names []string) (*resolvedSamples, error) {
	ped, err := vcf.ReadPED(entry.PED)
	if err != nil {
		return nil, err
	}

	columns := make(map[string]int, len(names))
	for i, n := range names {
		columns[n] = i
	}
	inPED := make(map[string]int, len(ped))
	for i, r := range ped {
		if _, ok := columns[r.SampleID]; !ok {
			return nil, fmt.Errorf("%w: PED sample %q not in %s", apperr.ErrBadInput, r.SampleID, entry.VCF)
		}
		inPED[r.SampleID] = i
	}
	for _, n := range names {
		if _, ok := inPED[n]; !ok {
			return nil, fmt.Errorf("%w: VCF sample %q not in %s", apperr.ErrBadInput, n, entry.PED)
		}
	}

	probands := make(map[string]bool)
	for _, id := range vcf.Probands(ped) {
		probands[id] = true
	}
	if len(probands) == 0 {
		return nil, fmt.Errorf("%w: no proband in %s", apperr.ErrBadInput, entry.PED)
	}

	res := &resolvedSamples{}
	for _, r := range ped {
		s := &model.Sample{
			Identifier: r.SampleID,
			Proband:    probands[r.SampleID],
			Affected:   r.Affected,
			Sex:        r.Sex,
			SampleType: entry.Technology,
			FamilyID:   r.FamilyID,
		}
		res.samples = append(res.samples, s)
		col := sampleColumn{sample: s, column: columns[r.SampleID]}
		if s.Proband {
			res.probands = append(res.probands, col)
		} else {
			res.others = append(res.others, col)
		}
	}
	for _, r := range ped {
		res.parents = append(res.parents, [2]int{parentIndex(inPED, r.FatherID), parentIndex(inPED, r.MotherID)})
	}
	return res, nil
}

func parentIndex(index map[string]int, id string) int {
	if id == "" {
		return -1
	}
	if i, ok := index[id]; ok {
		return i
	}
	return -1
}
