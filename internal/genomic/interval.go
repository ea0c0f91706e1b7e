package genomic

// Interval is a 0-based, half-open range [Start, End).
type Interval struct {
	Start int64
	End   int64
}

// Len returns the number of bases covered.
func (i Interval) Len() int64 {
	if i.End <= i.Start {
		return 0
	}
	return i.End - i.Start
}

// Contains reports whether pos lies in the interval.
func (i Interval) Contains(pos int64) bool {
	return pos >= i.Start && pos < i.End
}

// Overlaps reports whether two half-open intervals share at least one base.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start < o.End && o.Start < i.End
}

// Closed converts to the inclusive representation [Start, End-1].
// An empty interval yields ok=false.
func (i Interval) Closed() (ClosedInterval, bool) {
	if i.End <= i.Start {
		return ClosedInterval{}, false
	}
	return ClosedInterval{Start: i.Start, End: i.End - 1}, true
}

// ClosedInterval is an inclusive range [Start, End] used for region arithmetic.
type ClosedInterval struct {
	Start int64
	End   int64
}

// Empty reports whether the interval covers no bases.
func (c ClosedInterval) Empty() bool {
	return c.End < c.Start
}

// OverlapsHalfOpen reports whether the half-open interval h shares a base with c.
func (c ClosedInterval) OverlapsHalfOpen(h Interval) bool {
	if c.Empty() || h.End <= h.Start {
		return false
	}
	return h.Start <= c.End && h.End-1 >= c.Start
}

// Intersect returns the intersection of two closed intervals.
func (c ClosedInterval) Intersect(o ClosedInterval) ClosedInterval {
	r := ClosedInterval{Start: max(c.Start, o.Start), End: min(c.End, o.End)}
	return r
}
