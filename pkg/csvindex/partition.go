package csvindex

// Range is a byte range of the source that starts on a record boundary.
// It holds Count records, numbered from First.
type Range struct {
	Start int64
	End   int64
	// Line is the physical line at Start.
	Line  int
	First int
	Count int
}

// Len returns the number of bytes in the range.
func (r Range) Len() int64 {
	return r.End - r.Start
}

// Partition splits the source into at most n ranges of roughly equal size.
//
// Candidate boundaries k*Size/n are moved forward to the next record start.
// Candidates that land on the same record collapse, so fewer than n ranges
// come back for small sources. The first range starts at 0 and the last
// ends at Size. An empty index or n < 1 yields nil.
func (idx *Index) Partition(n int) []Range {
	if len(idx.entries) == 0 || n < 1 {
		return nil
	}

	firsts := []int{0}
	for k := 1; k < n; k++ {
		candidate := int64(k) * idx.size / int64(n)
		j := idx.firstAtOrAfter(candidate)
		if j >= len(idx.entries) {
			break
		}
		if j <= firsts[len(firsts)-1] {
			continue
		}
		firsts = append(firsts, j)
	}

	ranges := make([]Range, len(firsts))
	for i, first := range firsts {
		rng := Range{
			Start: idx.entries[first].Offset,
			Line:  idx.entries[first].Line,
			First: first,
			End:   idx.size,
			Count: len(idx.entries) - first,
		}
		if i == 0 {
			// bytes before the first record (BOM, skipped lines) belong to range 0
			rng.Start = 0
			rng.Line = 1
		}
		if i+1 < len(firsts) {
			next := firsts[i+1]
			rng.End = idx.entries[next].Offset
			rng.Count = next - first
		}
		ranges[i] = rng
	}
	return ranges
}
