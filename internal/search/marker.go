package search

// Marker is the tag pair wrapped around highlighted text. The core never
// emits any other markup.
type Marker struct {
	Open  string
	Close string
}

// DefaultMarker is the HTML mark element.
var DefaultMarker = Marker{Open: "<mark>", Close: "</mark>"}

// Wrap returns s enclosed in the marker.
func (m Marker) Wrap(s string) string {
	return m.Open + s + m.Close
}

// orDefault substitutes DefaultMarker for the zero Marker.
func (m Marker) orDefault() Marker {
	if m.Open == "" && m.Close == "" {
		return DefaultMarker
	}
	return m
}

// Segment is one piece of highlighted text: either copied verbatim from the
// original or a matched region.
type Segment struct {
	Text   string `json:"text"`
	Marked bool   `json:"marked,omitempty"`
}

// render concatenates segments, wrapping marked ones.
func render(segments []Segment, m Marker) string {
	n := 0
	for _, s := range segments {
		n += len(s.Text)
		if s.Marked {
			n += len(m.Open) + len(m.Close)
		}
	}

	buf := make([]byte, 0, n)
	for _, s := range segments {
		if s.Marked {
			buf = append(buf, m.Open...)
			buf = append(buf, s.Text...)
			buf = append(buf, m.Close...)
			continue
		}
		buf = append(buf, s.Text...)
	}
	return string(buf)
}
