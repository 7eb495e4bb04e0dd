// Package xmlfile maps XML documents onto the generic document tree.
//
// Every element becomes an entry of its parent's mapping, keyed by tag name.
// Sibling elements sharing a name are collected into a sequence, so an
// Android resource file
//
//	<resources>
//	  <string name="app_name">Notes</string>
//	  <string name="save">Save</string>
//	</resources>
//
// yields the units "resources.string[0]" and "resources.string[1]". An
// element holding only text is a string leaf. Text mixed with child elements
// is collected under the "#text" key. Attributes, comments and processing
// instructions are never translated, and neither is the text of an element
// marked translatable="false" (the Android resource convention).
//
// Character data is rewritten in place: plain text is escaped on write and
// CDATA sections stay CDATA.
package xmlfile

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/minios-linux/docloc/doctree"
	"github.com/minios-linux/docloc/splice"
)

// TextKey names the entry holding text mixed with child elements.
const TextKey = "#text"

// ErrUnsupportedEncoding is returned for documents declaring a non-UTF-8
// encoding.
var ErrUnsupportedEncoding = errors.New("unsupported XML encoding")

type child struct {
	name string
	node *doctree.Node
}

type element struct {
	name     string
	locked   bool
	children []child
	texts    []*doctree.Node
}

// node collapses a finished element into a generic node.
func (e *element) node() *doctree.Node {
	if len(e.children) == 0 {
		switch len(e.texts) {
		case 0:
			return doctree.NewScalar(nil)
		case 1:
			return e.texts[0]
		}
		s := doctree.NewSequence()
		for _, t := range e.texts {
			s.Append(t)
		}
		return s
	}

	m := doctree.NewMapping()
	if len(e.texts) == 1 {
		m.Set(TextKey, e.texts[0])
	} else if len(e.texts) > 1 {
		s := m.Set(TextKey, doctree.NewSequence())
		for _, t := range e.texts {
			s.Append(t)
		}
	}

	counts := make(map[string]int)
	for _, c := range e.children {
		counts[c.name]++
	}
	for _, c := range e.children {
		if counts[c.name] == 1 {
			m.Set(c.name, c.node)
			continue
		}
		s, ok := m.Get(c.name)
		if !ok {
			s = m.Set(c.name, doctree.NewSequence())
		}
		s.Append(c.node)
	}
	return m
}

// Parse parses XML data into a generic document.
func Parse(data []byte) (*doctree.Document, error) {
	src := &splice.Source{Data: data}
	root := doctree.NewMapping()

	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = func(label string, input io.Reader) (io.Reader, error) {
		switch strings.ToLower(label) {
		case "utf-8", "utf8", "us-ascii", "ascii":
			return input, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEncoding, label)
	}

	var stack []*element
	for {
		before := int(dec.InputOffset())
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if errors.Is(err, ErrUnsupportedEncoding) {
				return nil, err
			}
			return nil, fmt.Errorf("parsing XML: %w: %v", doctree.ErrMalformedInput, err)
		}
		after := int(dec.InputOffset())

		switch t := tok.(type) {
		case xml.StartElement:
			// namespace prefixes are resolved by Token; the local part names the key
			e := &element{name: t.Name.Local}
			if len(stack) > 0 && stack[len(stack)-1].locked {
				e.locked = true
			}
			for _, a := range t.Attr {
				if a.Name.Local == "translatable" && a.Value == "false" {
					e.locked = true
				}
			}
			stack = append(stack, e)
		case xml.EndElement:
			e := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			n := e.node()
			if len(stack) == 0 {
				root.Set(e.name, n)
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, child{name: e.name, node: n})
			}
		case xml.CharData:
			if len(stack) == 0 || len(bytes.TrimSpace(t)) == 0 {
				continue
			}
			top := stack[len(stack)-1]
			if top.locked {
				top.texts = append(top.texts, doctree.NewScalar(strings.TrimSpace(string(t))))
				continue
			}
			leaf, start, end := textLeaf(data[before:after], string(t))
			src.Add(before+start, before+end, leaf, encodeText)
			top.texts = append(top.texts, leaf)
		}
	}
	return &doctree.Document{Root: root, Native: src}, nil
}

// textLeaf builds the leaf for a character data token and returns the byte
// range within raw that the leaf covers. Literal whitespace around plain text
// stays outside the range, while whitespace written as character references
// belongs to the value. A CDATA section is covered whole.
func textLeaf(raw []byte, decoded string) (*doctree.Node, int, int) {
	if bytes.HasPrefix(raw, []byte("<![CDATA[")) {
		return doctree.NewString(decoded), 0, len(raw)
	}
	start := len(raw) - len(bytes.TrimLeft(raw, " \t\r\n"))
	end := len(bytes.TrimRight(raw, " \t\r\n"))
	// The decoder folds CR LF and lone CR into LF.
	lead := len(newlines.Replace(string(raw[:start])))
	trail := len(newlines.Replace(string(raw[end:])))
	return doctree.NewString(decoded[lead : len(decoded)-trail]), start, end
}

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	newlines    = strings.NewReplacer("\r\n", "\n", "\r", "\n")
)

// encodeText writes v as character data in the style of the original.
// Leading and trailing blanks become character references so they survive
// the trimming of literal whitespace on the next parse.
func encodeText(v string, raw []byte) []byte {
	if bytes.HasPrefix(raw, []byte("<![CDATA[")) {
		return []byte("<![CDATA[" + strings.ReplaceAll(v, "]]>", "]]]]><![CDATA[>") + "]]>")
	}
	body := strings.TrimLeft(v, " \t\r\n")
	lead := v[:len(v)-len(body)]
	text := strings.TrimRight(body, " \t\r\n")
	trail := body[len(text):]
	return []byte(charRefs(lead) + textEscaper.Replace(text) + charRefs(trail))
}

func charRefs(s string) string {
	var b strings.Builder
	for _, r := range s {
		fmt.Fprintf(&b, "&#x%X;", r)
	}
	return b.String()
}

// Marshal renders the document with the current leaf values.
func Marshal(doc *doctree.Document) ([]byte, error) {
	src, ok := doc.Native.(*splice.Source)
	if !ok {
		return nil, fmt.Errorf("xmlfile: document was not produced by this adapter")
	}
	return src.Render(), nil
}
