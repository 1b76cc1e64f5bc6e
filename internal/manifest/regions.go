package manifest

import (
	"cmp"
	"slices"
	"sort"
)

// Region is a half-open byte range [Start, End) of a capture.
type Region struct {
	Start int64
	End   int64
}

// Len returns the number of bytes in the region.
func (r Region) Len() int64 { return r.End - r.Start }

// Regions is the sorted, non-overlapping set of capture ranges already
// recovered as files. String harvesting consults it to skip those bytes.
type Regions struct {
	spans []Region
}

// NewRegions merges the dump ranges of entries. Entries that consumed no
// bytes are ignored; overlapping or touching ranges are coalesced.
func NewRegions(entries []Entry) Regions {
	spans := make([]Region, 0, len(entries))
	for _, e := range entries {
		if e.SizeInDump <= 0 {
			continue
		}
		spans = append(spans, Region{Start: e.Offset, End: e.Offset + e.SizeInDump})
	}
	slices.SortFunc(spans, func(a, b Region) int {
		if c := cmp.Compare(a.Start, b.Start); c != 0 {
			return c
		}
		return cmp.Compare(a.End, b.End)
	})

	merged := spans[:0]
	for _, s := range spans {
		if n := len(merged); n > 0 && s.Start <= merged[n-1].End {
			merged[n-1].End = max(merged[n-1].End, s.End)
			continue
		}
		merged = append(merged, s)
	}
	return Regions{spans: merged}
}

// Contains reports whether offset falls inside a recovered range.
func (r Regions) Contains(offset int64) bool {
	i := sort.Search(len(r.spans), func(i int) bool { return r.spans[i].End > offset })
	return i < len(r.spans) && r.spans[i].Start <= offset
}

// Covered returns the total number of capture bytes in the set.
func (r Regions) Covered() int64 {
	var total int64
	for _, s := range r.spans {
		total += s.Len()
	}
	return total
}

// Spans returns a copy of the merged ranges in offset order.
func (r Regions) Spans() []Region {
	return slices.Clone(r.spans)
}
