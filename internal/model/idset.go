package model

import "sort"

// IDSet is a set of allele ids.
type IDSet map[int64]struct{}

// NewIDSet builds a set from ids.
func NewIDSet(ids ...int64) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s IDSet) Add(id int64) { s[id] = struct{}{} }

func (s IDSet) Has(id int64) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the ids in ascending order.
func (s IDSet) Sorted() []int64 {
	out := make([]int64, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Minus returns s \ o.
func (s IDSet) Minus(o IDSet) IDSet {
	out := make(IDSet, len(s))
	for id := range s {
		if !o.Has(id) {
			out.Add(id)
		}
	}
	return out
}

// Union returns s ∪ o.
func (s IDSet) Union(o IDSet) IDSet {
	out := make(IDSet, len(s)+len(o))
	for id := range s {
		out.Add(id)
	}
	for id := range o {
		out.Add(id)
	}
	return out
}

// Intersect returns s ∩ o.
func (s IDSet) Intersect(o IDSet) IDSet {
	out := make(IDSet)
	for id := range s {
		if o.Has(id) {
			out.Add(id)
		}
	}
	return out
}
