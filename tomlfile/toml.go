// Package tomlfile maps TOML documents onto the generic document tree.
//
// The document is read with go-toml's low-level parser, which reports the
// raw byte range of every string value. Tables and inline tables become
// mappings, arrays and arrays of tables become sequences. Only changed
// strings are rewritten on output, so comments and layout are preserved.
package tomlfile

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/minios-linux/docloc/doctree"
	"github.com/minios-linux/docloc/splice"
	"github.com/pelletier/go-toml/v2/unstable"
)

// Parse parses TOML data into a generic document.
func Parse(data []byte) (*doctree.Document, error) {
	b := &builder{src: &splice.Source{Data: data}, root: doctree.NewMapping()}
	b.current = b.root

	p := unstable.Parser{}
	p.Reset(data)
	for p.NextExpression() {
		b.expression(&p, p.Expression())
	}
	if err := p.Error(); err != nil {
		return nil, fmt.Errorf("parsing TOML: %w: %v", doctree.ErrMalformedInput, err)
	}
	return &doctree.Document{Root: b.root, Native: b.src}, nil
}

type builder struct {
	src     *splice.Source
	root    *doctree.Node
	current *doctree.Node
}

func (b *builder) expression(p *unstable.Parser, e *unstable.Node) {
	switch e.Kind {
	case unstable.Table:
		b.current = b.descend(b.root, keyParts(e))
	case unstable.ArrayTable:
		parts := keyParts(e)
		parent := b.descend(b.root, parts[:len(parts)-1])
		last := parts[len(parts)-1]
		seq, ok := parent.Get(last)
		if !ok || seq.Kind() != doctree.KindSequence {
			seq = parent.Set(last, doctree.NewSequence())
		}
		b.current = seq.Append(doctree.NewMapping())
	case unstable.KeyValue:
		b.keyValue(p, b.current, e)
	}
}

func (b *builder) keyValue(p *unstable.Parser, table *doctree.Node, e *unstable.Node) {
	parts := keyParts(e)
	if len(parts) == 0 {
		return
	}
	parent := b.descend(table, parts[:len(parts)-1])
	parent.Set(parts[len(parts)-1], b.value(p, e.Value()))
}

// descend walks or creates nested mappings. A sequence on the path (array of
// tables) resolves to its last element.
func (b *builder) descend(from *doctree.Node, parts []string) *doctree.Node {
	cur := from
	for _, part := range parts {
		next, ok := cur.Get(part)
		if ok && next.Kind() == doctree.KindSequence && next.Len() > 0 {
			next = next.Index(next.Len() - 1)
		}
		if !ok || next.Kind() != doctree.KindMapping {
			next = cur.Set(part, doctree.NewMapping())
		}
		cur = next
	}
	return cur
}

func (b *builder) value(p *unstable.Parser, v *unstable.Node) *doctree.Node {
	switch v.Kind {
	case unstable.String:
		raw := p.Raw(v.Raw)
		if len(raw) == 0 || (raw[0] != '"' && raw[0] != '\'') {
			// Without a usable source range the value can not be rewritten
			// in place, so it is carried as an opaque scalar.
			return doctree.NewScalar(string(v.Data))
		}
		leaf := doctree.NewString(string(v.Data))
		start := int(v.Raw.Offset)
		b.src.Add(start, start+int(v.Raw.Length), leaf, encodeString)
		return leaf
	case unstable.Array:
		seq := doctree.NewSequence()
		it := v.Children()
		for it.Next() {
			seq.Append(b.value(p, it.Node()))
		}
		return seq
	case unstable.InlineTable:
		m := doctree.NewMapping()
		it := v.Children()
		for it.Next() {
			if kv := it.Node(); kv.Kind == unstable.KeyValue {
				b.keyValue(p, m, kv)
			}
		}
		return m
	}
	return doctree.NewScalar(string(v.Data))
}

func keyParts(e *unstable.Node) []string {
	var parts []string
	it := e.Key()
	for it.Next() {
		parts = append(parts, string(it.Node().Data))
	}
	return parts
}

// encodeString writes v as a TOML basic string.
func encodeString(v string, _ []byte) []byte {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range v {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\b':
			sb.WriteString(`\b`)
		case '\t':
			sb.WriteString(`\t`)
		case '\n':
			sb.WriteString(`\n`)
		case '\f':
			sb.WriteString(`\f`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			if r < 0x20 || r == 0x7f || r == utf8.RuneError {
				sb.WriteString(`\u`)
				s := strconv.FormatInt(int64(r), 16)
				sb.WriteString(strings.Repeat("0", 4-len(s)) + s)
				continue
			}
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return []byte(sb.String())
}

// Marshal renders the document with the current leaf values.
func Marshal(doc *doctree.Document) ([]byte, error) {
	src, ok := doc.Native.(*splice.Source)
	if !ok {
		return nil, fmt.Errorf("tomlfile: document was not produced by this adapter")
	}
	return src.Render(), nil
}
