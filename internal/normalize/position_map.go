package normalize

// PositionMap translates byte offsets in a normalized string back to byte
// offsets in the string it was produced from. It is built once per
// Normalize call in a single pass and answers every lookup in O(1).
//
// Offsets outside the valid range clamp to the nearest boundary, so callers
// can slice the original string with the results without bounds checks.
type PositionMap struct {
	starts  []int
	ends    []int
	bounds  []int
	origLen int
}

func identityMap() *PositionMap {
	return &PositionMap{
		starts: []int{0},
		ends:   []int{0},
		bounds: []int{0},
	}
}

// Len returns the length of the normalized string the map was built for.
func (m *PositionMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.ends) - 1
}

// OriginalLen returns the length of the original string.
func (m *PositionMap) OriginalLen() int {
	if m == nil {
		return 0
	}
	return m.origLen
}

// Original returns the smallest original offset o such that the normalized
// form of original[:o] is at least i bytes long. It is non-decreasing in i.
func (m *PositionMap) Original(i int) int {
	if m == nil {
		return 0
	}
	return m.ends[m.clamp(i)]
}

// Start returns the original offset of the character that produced the
// normalized byte at i. Start(Len()) is the original length.
func (m *PositionMap) Start(i int) int {
	if m == nil {
		return 0
	}
	return m.starts[m.clamp(i)]
}

// End returns the original offset just past the character that produced
// the normalized byte at i-1, including any combining marks that were
// attached to it and removed by normalization.
func (m *PositionMap) End(i int) int {
	if m == nil {
		return 0
	}
	return m.bounds[m.clamp(i)]
}

// Span maps a normalized span onto the original string. The result covers
// whole original characters, so a highlighted "e" in "é" keeps its
// accent inside the highlight.
func (m *PositionMap) Span(s Span) (start, end int) {
	if s.End < s.Start {
		s.End = s.Start
	}
	start = m.Start(s.Start)
	end = m.End(s.End)
	if s.Start == s.End || end < start {
		end = start
	}
	return start, end
}

func (m *PositionMap) clamp(i int) int {
	if i < 0 {
		return 0
	}
	if n := len(m.ends) - 1; i > n {
		return n
	}
	return i
}
