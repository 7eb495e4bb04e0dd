// Package yamlfile maps YAML documents onto the generic document tree.
//
// The parsed yaml.Node tree is kept alongside the generic tree, and every
// string scalar is bound to its generic leaf. Marshal copies leaf values
// back into the bound scalars and re-encodes the yaml.Node tree, so key
// order, comments, anchors and scalar styles survive the round-trip:
//
//	# greeting shown on the start page
//	greeting: Hello
//	nav:
//	  home: Home
//	  items: [One, Two]
//	retries: 3
//
// Non-string scalars (!!bool, !!int, !!float, !!null) and aliases are carried
// as opaque leaves and are never translated.
//
// A stream with several "---" documents becomes a root sequence with one
// element per document, addressed as "[0].greeting", "[1].title".
package yamlfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/minios-linux/docloc/doctree"
	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Native state
// ---------------------------------------------------------------------------

// binding ties a yaml scalar to its generic leaf.
type binding struct {
	node *yaml.Node
	leaf *doctree.Node
	// style is the original scalar style, restored on write.
	style yaml.Style
}

// state is stored in doctree.Document.Native.
type state struct {
	docs     []*yaml.Node
	bindings []binding
	indent   int
	raw      []byte
	// dirty is set once a value was written back; raw is stale from then on.
	dirty bool
}

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

// Parse parses YAML data into a generic document.
func Parse(data []byte) (*doctree.Document, error) {
	st := &state{indent: detectIndent(data), raw: data}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	for {
		var doc yaml.Node
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing YAML: %w: %v", doctree.ErrMalformedInput, err)
		}
		st.docs = append(st.docs, &doc)
	}

	switch len(st.docs) {
	case 0:
		return &doctree.Document{Root: doctree.NewMapping(), Native: st}, nil
	case 1:
		return &doctree.Document{Root: build(st.docs[0], st), Native: st}, nil
	}
	root := doctree.NewSequence()
	for _, doc := range st.docs {
		root.Append(build(doc, st))
	}
	return &doctree.Document{Root: root, Native: st}, nil
}

// build converts a yaml.Node into a generic node, recording bindings for
// string scalars.
func build(node *yaml.Node, st *state) *doctree.Node {
	switch node.Kind {
	case yaml.MappingNode:
		m := doctree.NewMapping()
		for i := 0; i+1 < len(node.Content); i += 2 {
			keyNode := node.Content[i]
			valNode := node.Content[i+1]
			m.Set(keyNode.Value, build(valNode, st))
		}
		return m
	case yaml.SequenceNode:
		s := doctree.NewSequence()
		for _, item := range node.Content {
			s.Append(build(item, st))
		}
		return s
	case yaml.ScalarNode:
		if !isStringScalar(node) {
			return doctree.NewScalar(node.Value)
		}
		leaf := doctree.NewString(node.Value)
		st.bindings = append(st.bindings, binding{node: node, leaf: leaf, style: node.Style})
		return leaf
	case yaml.DocumentNode:
		if len(node.Content) > 0 {
			return build(node.Content[0], st)
		}
	}
	// Aliases and anything else are opaque.
	return doctree.NewScalar(node.Value)
}

// isStringScalar reports whether the scalar resolves to a string.
func isStringScalar(node *yaml.Node) bool {
	switch node.ShortTag() {
	case "!!bool", "!!int", "!!float", "!!null", "!!timestamp", "!!binary":
		return false
	}
	return true
}

// detectIndent returns the smallest indentation used by a nested line, or 2.
func detectIndent(data []byte) int {
	indent := 0
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimLeft(line, " ")
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		n := len(line) - len(trimmed)
		if n > 0 && (indent == 0 || n < indent) {
			indent = n
		}
	}
	if indent < 2 {
		return 2
	}
	return indent
}

// ---------------------------------------------------------------------------
// Writing
// ---------------------------------------------------------------------------

// Marshal writes the current leaf values back into the yaml.Node trees and
// encodes every document of the stream.
func Marshal(doc *doctree.Document) ([]byte, error) {
	st, ok := doc.Native.(*state)
	if !ok {
		return nil, fmt.Errorf("yamlfile: document was not produced by this adapter")
	}
	if len(st.docs) == 0 {
		return st.raw, nil
	}

	changed := false
	for _, b := range st.bindings {
		v := b.leaf.String()
		if v == b.node.Value {
			continue
		}
		changed = true
		b.node.Value = v
		b.node.Style = b.style
		// Plain style cannot carry leading/trailing space or an empty value.
		if b.style == 0 && (v == "" || strings.TrimSpace(v) != v) {
			b.node.Style = yaml.DoubleQuotedStyle
		}
	}
	if !changed && !st.dirty {
		return st.raw, nil
	}
	st.dirty = true

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(st.indent)
	for _, doc := range st.docs {
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("marshaling YAML: %w", err)
		}
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("marshaling YAML: %w", err)
	}
	return buf.Bytes(), nil
}
