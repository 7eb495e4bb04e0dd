// Package splice rewrites string values inside an original byte buffer.
//
// Adapters that can locate the raw byte range of every string value record
// one Span per value while parsing. Render copies the source through
// unchanged and re-encodes only the spans whose leaf value differs from the
// value seen at parse time, so comments, whitespace and quoting of untouched
// values survive byte for byte.
package splice

import (
	"bytes"
	"sort"

	"github.com/minios-linux/docloc/doctree"
)

// Encoder turns a new leaf value into the raw bytes written in place of the
// span. raw is the original text of the span, available for style decisions
// such as keeping the quote character.
type Encoder func(value string, raw []byte) []byte

// Span binds a byte range of the source to a string leaf.
type Span struct {
	Start, End int
	Leaf       *doctree.Node
	// Orig is the decoded value at parse time.
	Orig   string
	Encode Encoder
}

// Source is the native state kept by splice-based adapters.
type Source struct {
	Data  []byte
	Spans []Span
}

// Add records a span.
func (s *Source) Add(start, end int, leaf *doctree.Node, enc Encoder) {
	s.Spans = append(s.Spans, Span{Start: start, End: end, Leaf: leaf, Orig: leaf.String(), Encode: enc})
}

// Rebind points the spans of old at leaf. Adapters use it when a repeated
// key replaces an earlier value: every occurrence then carries the value of
// the surviving leaf once it changes, and keeps its own bytes until then.
func (s *Source) Rebind(old, leaf *doctree.Node) {
	for i := range s.Spans {
		if s.Spans[i].Leaf == old {
			s.Spans[i].Leaf = leaf
			s.Spans[i].Orig = leaf.String()
		}
	}
}

// Render produces the source with every changed span re-encoded.
func (s *Source) Render() []byte {
	spans := make([]Span, len(s.Spans))
	copy(spans, s.Spans)
	sort.SliceStable(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })

	var buf bytes.Buffer
	buf.Grow(len(s.Data))
	last := 0
	for _, sp := range spans {
		if sp.Start < last {
			// overlapping spans are a bug in the adapter; keep the first
			continue
		}
		buf.Write(s.Data[last:sp.Start])
		raw := s.Data[sp.Start:sp.End]
		if v := sp.Leaf.String(); v != sp.Orig {
			buf.Write(sp.Encode(v, raw))
		} else {
			buf.Write(raw)
		}
		last = sp.End
	}
	buf.Write(s.Data[last:])
	return buf.Bytes()
}
