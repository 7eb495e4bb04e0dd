// Package jsonfile maps JSON documents onto the generic document tree.
//
// Objects become mappings (key order preserved), arrays become sequences,
// strings become translatable leaves and numbers, booleans and null become
// opaque leaves. The source bytes are kept and only changed string values
// are rewritten, so indentation and key order are untouched on output.
package jsonfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/minios-linux/docloc/doctree"
	"github.com/minios-linux/docloc/splice"
)

// Parse parses JSON data into a generic document.
func Parse(data []byte) (*doctree.Document, error) {
	src := &splice.Source{Data: data}
	p := &parser{data: data, dec: json.NewDecoder(bytes.NewReader(data)), src: src}
	p.dec.UseNumber()

	if len(bytes.TrimSpace(data)) == 0 {
		return &doctree.Document{Root: doctree.NewMapping(), Native: src}, nil
	}

	root, err := p.value()
	if err != nil {
		return nil, fmt.Errorf("parsing JSON: %w: %v", doctree.ErrMalformedInput, err)
	}
	if _, err := p.dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing JSON: %w: trailing data after top-level value", doctree.ErrMalformedInput)
	}
	return &doctree.Document{Root: root, Native: src}, nil
}

type parser struct {
	data []byte
	dec  *json.Decoder
	src  *splice.Source
}

// tokenStart returns the offset of the first byte of the token that begins
// at or after off.
func (p *parser) tokenStart(off int) int {
	for off < len(p.data) {
		switch p.data[off] {
		case ' ', '\t', '\r', '\n', ':', ',':
			off++
		default:
			return off
		}
	}
	return off
}

func (p *parser) value() (*doctree.Node, error) {
	before := int(p.dec.InputOffset())
	tok, err := p.dec.Token()
	if err != nil {
		return nil, err
	}
	return p.fromToken(tok, before)
}

func (p *parser) fromToken(tok json.Token, before int) (*doctree.Node, error) {
	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			return p.object()
		case '[':
			return p.array()
		}
		return nil, fmt.Errorf("unexpected %q", v)
	case string:
		leaf := doctree.NewString(v)
		start := p.tokenStart(before)
		p.src.Add(start, int(p.dec.InputOffset()), leaf, encodeString)
		return leaf, nil
	default:
		// json.Number, bool, nil
		return doctree.NewScalar(v), nil
	}
}

func (p *parser) object() (*doctree.Node, error) {
	m := doctree.NewMapping()
	for p.dec.More() {
		kt, err := p.dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := kt.(string)
		if !ok {
			return nil, fmt.Errorf("expected string key, got %T", kt)
		}
		child, err := p.value()
		if err != nil {
			return nil, fmt.Errorf("value for %q: %w", key, err)
		}
		m.Set(key, child)
	}
	// closing '}'
	if _, err := p.dec.Token(); err != nil {
		return nil, err
	}
	return m, nil
}

func (p *parser) array() (*doctree.Node, error) {
	s := doctree.NewSequence()
	for p.dec.More() {
		child, err := p.value()
		if err != nil {
			return nil, err
		}
		s.Append(child)
	}
	// closing ']'
	if _, err := p.dec.Token(); err != nil {
		return nil, err
	}
	return s, nil
}

// encodeString returns v as a JSON string literal without HTML escaping.
func encodeString(v string, _ []byte) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
	return bytes.TrimRight(buf.Bytes(), "\n")
}

// Marshal renders the document with the current leaf values.
func Marshal(doc *doctree.Document) ([]byte, error) {
	src, ok := doc.Native.(*splice.Source)
	if !ok {
		return nil, fmt.Errorf("jsonfile: document was not produced by this adapter")
	}
	return src.Render(), nil
}
