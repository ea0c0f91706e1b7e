package annotation

import (
	"fmt"
	"regexp"
	"strconv"
	"sync"

	"go.uber.org/zap"
)

// hgvscPattern matches a bare c. or n. HGVS string with one position or a
// range of two. Each position is [-*]?N([+-]M)?, where the sign/star prefix
// places it in the 5'/3' UTR and the offset places it in an intron.
var hgvscPattern = regexp.MustCompile(
	`^[cn]\.([-*]?\d+)([+-]\d+)?(?:_([-*]?\d+)([+-]\d+)?)?` +
		`(?:[ACGTN]*>[ACGTN]+|delins[ACGTN0-9]*|del[ACGTN0-9]*|dup[ACGTN0-9]*|ins[ACGTN0-9]*|inv[ACGTN0-9]*|[ACGTN]*=)?$`)

type hgvscEndpoint struct {
	exon   int64
	coding int64
}

func parseEndpoint(pos, offset string) (hgvscEndpoint, error) {
	var ep hgvscEndpoint
	if offset != "" {
		o, err := strconv.ParseInt(offset, 10, 64)
		if err != nil {
			return ep, err
		}
		ep.exon = o
	}
	switch pos[0] {
	case '*':
		n, err := strconv.ParseInt(pos[1:], 10, 64)
		if err != nil {
			return ep, err
		}
		ep.coding = n
	case '-':
		n, err := strconv.ParseInt(pos, 10, 64)
		if err != nil {
			return ep, err
		}
		ep.coding = n
	}
	return ep, nil
}

func closest(vals []int64) int64 {
	best := vals[0]
	for _, v := range vals[1:] {
		if abs64(v) < abs64(best) {
			best = v
		}
	}
	return best
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// HGVScDistances computes (exon_distance, coding_region_distance) from a bare
// HGVSc string. For ranges the endpoint closest to the boundary wins, keeping
// its sign. coding_region_distance is only set when exon_distance is 0, and
// is then taken from the exonic endpoints only.
func HGVScDistances(hgvsc string) (exonDistance, codingRegionDistance *int64, err error) {
	m := hgvscPattern.FindStringSubmatch(hgvsc)
	if m == nil {
		return nil, nil, fmt.Errorf("unparseable HGVSc %q", hgvsc)
	}

	endpoints := make([]hgvscEndpoint, 0, 2)
	first, err := parseEndpoint(m[1], m[2])
	if err != nil {
		return nil, nil, fmt.Errorf("HGVSc %q: %w", hgvsc, err)
	}
	endpoints = append(endpoints, first)
	if m[3] != "" {
		second, err := parseEndpoint(m[3], m[4])
		if err != nil {
			return nil, nil, fmt.Errorf("HGVSc %q: %w", hgvsc, err)
		}
		endpoints = append(endpoints, second)
	}

	exons := make([]int64, len(endpoints))
	for i, ep := range endpoints {
		exons[i] = ep.exon
	}
	exon := closest(exons)
	if exon != 0 {
		return &exon, nil, nil
	}

	var codings []int64
	for _, ep := range endpoints {
		if ep.exon == 0 {
			codings = append(codings, ep.coding)
		}
	}
	coding := closest(codings)
	return &exon, &coding, nil
}

// DistanceCalculator wraps HGVScDistances and logs each unparseable input once.
type DistanceCalculator struct {
	logger *zap.Logger
	logged sync.Map
}

// NewDistanceCalculator creates a calculator that logs to l (nil for no logging).
func NewDistanceCalculator(l *zap.Logger) *DistanceCalculator {
	if l == nil {
		l = zap.NewNop()
	}
	return &DistanceCalculator{logger: l}
}

// Distances returns both distances, or (nil, nil) if the string cannot be parsed.
func (c *DistanceCalculator) Distances(hgvsc string) (exonDistance, codingRegionDistance *int64) {
	if hgvsc == "" {
		return nil, nil
	}
	exon, coding, err := HGVScDistances(hgvsc)
	if err != nil {
		if _, seen := c.logged.LoadOrStore(hgvsc, true); !seen {
			c.logger.Warn("could not compute HGVSc distances", zap.String("hgvsc", hgvsc), zap.Error(err))
		}
		return nil, nil
	}
	return exon, coding
}
