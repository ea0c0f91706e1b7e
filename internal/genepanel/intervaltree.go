package genepanel

import (
	"sort"

	"github.com/glbala87/ELLA-tool-sub001/internal/genomic"
)

// IntervalTree answers overlap queries over transcripts of one chromosome
// using a sorted slice with a prefix-max of end positions.
// It is built once and never modified.
type IntervalTree struct {
	transcripts []*Transcript // sorted by TxStart
	maxEnd      []int64       // maxEnd[i] = max(TxEnd) for transcripts[:i+1]
}

// BuildIntervalTree creates a tree from transcripts.
func BuildIntervalTree(transcripts []*Transcript) *IntervalTree {
	if len(transcripts) == 0 {
		return &IntervalTree{}
	}
	sorted := append([]*Transcript(nil), transcripts...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TxStart < sorted[j].TxStart
	})

	maxEnd := make([]int64, len(sorted))
	maxEnd[0] = sorted[0].TxEnd
	for i := 1; i < len(sorted); i++ {
		maxEnd[i] = max(maxEnd[i-1], sorted[i].TxEnd)
	}
	return &IntervalTree{transcripts: sorted, maxEnd: maxEnd}
}

// Overlapping returns transcripts whose span overlaps iv after widening it
// by pad on both sides.
func (t *IntervalTree) Overlapping(iv genomic.Interval, pad int64) []*Transcript {
	if len(t.transcripts) == 0 {
		return nil
	}
	start, end := iv.Start-pad, iv.End+pad
	if end <= start {
		end = start + 1
	}
	// Candidates have TxStart < end.
	hi := sort.Search(len(t.transcripts), func(i int) bool {
		return t.transcripts[i].TxStart >= end
	})

	var result []*Transcript
	for i := hi - 1; i >= 0; i-- {
		if t.maxEnd[i] <= start {
			break
		}
		if t.transcripts[i].TxEnd > start {
			result = append(result, t.transcripts[i])
		}
	}
	return result
}

// Len returns the number of transcripts.
func (t *IntervalTree) Len() int {
	return len(t.transcripts)
}
