package vcf

import (
	"sort"

	"github.com/glbala87/ELLA-tool-sub001/internal/genomic"
	"github.com/glbala87/ELLA-tool-sub001/internal/model"
)

// DefaultBlockDistance is the largest gap in bp between records of one
// multi-allelic block.
const DefaultBlockDistance = 3

// blockTracker follows the extent of the block currently being read.
type blockTracker struct {
	chrom string
	end   int64
	open  bool
}

// continues reports whether v belongs to the current block.
func (t *blockTracker) continues(v *Variant, distance int64) bool {
	return t.open && v.Chrom == t.chrom && v.Pos-t.end <= distance
}

func (t *blockTracker) add(v *Variant, distance int64) {
	if !t.continues(v, distance) {
		t.chrom, t.end, t.open = v.Chrom, v.End(), true
		return
	}
	t.end = max(t.end, v.End())
}

// Block is a run of records on one chromosome, each within distance bp of
// the block so far. Decomposed ALTs of one original site always share a block.
type Block struct {
	Records    []*Variant
	noCoverage []bool
}

// SplitBlocks groups consecutive records into blocks.
func SplitBlocks(records []*Variant, distance int64) []*Block {
	var blocks []*Block
	var t blockTracker
	for _, v := range records {
		if !t.continues(v, distance) {
			blocks = append(blocks, &Block{})
		}
		t.add(v, distance)
		b := blocks[len(blocks)-1]
		b.Records = append(b.Records, v)
	}
	for _, b := range blocks {
		b.computeCoverage()
	}
	return blocks
}

func (b *Block) computeCoverage() {
	if len(b.Records) == 0 {
		return
	}
	n := len(b.Records[0].Samples)
	b.noCoverage = make([]bool, n)
	for s := range n {
		b.noCoverage[s] = true
		for _, r := range b.Records {
			if s >= len(r.Samples) || !r.Samples[s].GT.IsMissing() {
				b.noCoverage[s] = false
				break
			}
		}
	}
}

// NoCoverage reports whether the sample is "./." on every record of the block.
func (b *Block) NoCoverage(sample int) bool {
	return sample < len(b.noCoverage) && b.noCoverage[sample]
}

// Zygosity returns the sample's zygosity for record rec. A "./." call is
// only NoCoverage when the whole block is uncovered for the sample; otherwise
// it is the missing half of a split call and counts as Reference.
func (b *Block) Zygosity(rec, sample int) (genomic.Zygosity, bool) {
	r := b.Records[rec]
	if sample >= len(r.Samples) {
		return genomic.NoCoverage, false
	}
	z, multi := r.Samples[sample].GT.Zygosity()
	if z == genomic.NoCoverage && !b.NoCoverage(sample) {
		return genomic.Reference, true
	}
	return z, multi || r.IsMultiallelicSplit()
}

// Pair is one genotype of a sample in a block: a single record, or two
// records holding the halves of a split multi-allelic call such as 1/2.
// Second is -1 for single records.
type Pair struct {
	First  int
	Second int
}

// Pairs returns the genotypes of the sample in the block, ordered by first
// record. Halves ("1/." and "./1") are paired in order of appearance.
func (b *Block) Pairs(sample int) []Pair {
	var out []Pair
	pending := -1
	for i, r := range b.Records {
		if sample >= len(r.Samples) {
			continue
		}
		gt := r.Samples[sample].GT
		if !gt.HasVariant() {
			continue
		}
		if gt.HasMissing() && gt.AltCount() == 1 {
			if pending >= 0 {
				out = append(out, Pair{First: pending, Second: i})
				pending = -1
			} else {
				pending = i
			}
			continue
		}
		out = append(out, Pair{First: i, Second: -1})
	}
	if pending >= 0 {
		out = append(out, Pair{First: pending, Second: -1})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].First < out[j].First })
	return out
}

// Keys returns the VCF keys of the records.
func (b *Block) Keys() []model.VCFKey {
	out := make([]model.VCFKey, len(b.Records))
	for i, r := range b.Records {
		out[i] = r.Key()
	}
	return out
}
