package vcf

import (
	"fmt"

	"github.com/glbala87/ELLA-tool-sub001/internal/apperr"
	"github.com/glbala87/ELLA-tool-sub001/internal/model"
)

// DefaultBatchSize is the target number of records per prefilter batch.
const DefaultBatchSize = 2000

// Batcher reads records in batches of about size records. A batch is only
// cut between blocks, so it may grow past size while a block continues.
type Batcher struct {
	src      VariantParser
	size     int
	distance int64
	peeked   *Variant
	last     *Variant
}

// NewBatcher creates a batcher over src.
func NewBatcher(src VariantParser, size int, distance int64) *Batcher {
	if size <= 0 {
		size = DefaultBatchSize
	}
	return &Batcher{src: src, size: size, distance: distance}
}

// Next returns the next batch, or nil at the end of input.
func (b *Batcher) Next() ([]*Variant, error) {
	var batch []*Variant
	var t blockTracker
	if b.peeked != nil {
		batch = append(batch, b.peeked)
		t.add(b.peeked, b.distance)
		b.peeked = nil
	}
	for {
		v, err := b.src.Next()
		if err != nil {
			return nil, err
		}
		if v == nil {
			return batch, nil
		}
		if err := b.checkOrder(v); err != nil {
			return nil, err
		}
		if len(batch) >= b.size && !t.continues(v, b.distance) {
			b.peeked = v
			return batch, nil
		}
		t.add(v, b.distance)
		batch = append(batch, v)
	}
}

func (b *Batcher) checkOrder(v *Variant) error {
	defer func() { b.last = v }()
	if b.last == nil || b.last.Chrom != v.Chrom || v.Pos >= b.last.Pos {
		return nil
	}
	return fmt.Errorf("%w: line %d: records are not sorted (%s:%d after %s:%d)",
		apperr.ErrBadInput, v.Line, v.Chrom, v.Pos, b.last.Chrom, b.last.Pos)
}

// PrefilterConfig holds the constants of the ingest prefilter.
type PrefilterConfig struct {
	FreqField     string // INFO field of the population frequency
	NumField      string // INFO field of the allele number
	MinFreq       float64
	MinNum        int64
	BlockDistance int64
}

// DefaultPrefilterConfig filters on GnomAD genomes AF > 0.05 with AN > 5000.
func DefaultPrefilterConfig() PrefilterConfig {
	return PrefilterConfig{
		FreqField:     "GNOMAD_GENOMES__AF",
		NumField:      "GNOMAD_GENOMES__AN",
		MinFreq:       0.05,
		MinNum:        5000,
		BlockDistance: DefaultBlockDistance,
	}
}

// Candidate reports whether v may be dropped before storage: every proband
// has a simple 0/1 or 1/1 call, the population frequency is high with enough
// observations, and no assessment is stored for the record.
func (c PrefilterConfig) Candidate(v *Variant, probands []int, assessed map[model.VCFKey]bool) bool {
	if len(probands) == 0 {
		return false
	}
	for _, p := range probands {
		if p >= len(v.Samples) || !v.Samples[p].GT.IsSimple() {
			return false
		}
	}
	freq, ok := v.InfoFloat(c.FreqField)
	if !ok || freq <= c.MinFreq {
		return false
	}
	num, ok := v.InfoInt(c.NumField)
	if !ok || num <= c.MinNum {
		return false
	}
	return !assessed[v.Key()]
}

// Prefilter removes every block whose records are all drop candidates.
// Keeping a record keeps its whole block, so no dropped record has a kept
// neighbour within the block distance. The result is a subset of batch and
// applying Prefilter again does not change it.
func Prefilter(batch []*Variant, distance int64, candidate func(*Variant) bool) []*Variant {
	out := make([]*Variant, 0, len(batch))
	for _, b := range SplitBlocks(batch, distance) {
		drop := true
		for _, r := range b.Records {
			if !candidate(r) {
				drop = false
				break
			}
		}
		if !drop {
			out = append(out, b.Records...)
		}
	}
	return out
}
