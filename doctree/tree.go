// Package doctree implements the generic document tree shared by every
// format adapter.
//
// A document is a tree of three node kinds:
//
//	Leaf      a scalar value (string, or a non-string that is never translated)
//	Sequence  an ordered, index-addressed list of nodes
//	Mapping   unique keys in insertion order
//
// Adapters build the tree once at parse time. After that the shape is
// frozen: translation only ever replaces the value of a string leaf through
// a Ref, and the leaf node itself stays the same object so adapter state
// bound to it observes the new value on serialisation.
package doctree

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Node model
// ---------------------------------------------------------------------------

// Kind identifies the variant of a Node.
type Kind int

const (
	// KindLeaf is a scalar value.
	KindLeaf Kind = iota
	// KindSequence is an ordered list.
	KindSequence
	// KindMapping is an insertion-ordered key/value map.
	KindMapping
)

func (k Kind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Node is a single element of a document tree.
type Node struct {
	kind Kind

	// Leaf fields. str is only meaningful when isString is true; scalar holds
	// the adapter's representation of non-string leaves (numbers, booleans,
	// nulls) and is carried through untouched.
	isString bool
	str      string
	scalar   any

	// Sequence and mapping fields.
	items  []*Node
	keys   []string
	fields map[string]*Node
}

// NewString returns a translatable string leaf.
func NewString(s string) *Node {
	return &Node{kind: KindLeaf, isString: true, str: s}
}

// NewScalar returns a non-string leaf. The value is opaque to the pipeline.
func NewScalar(v any) *Node {
	return &Node{kind: KindLeaf, scalar: v}
}

// NewSequence returns an empty sequence.
func NewSequence() *Node {
	return &Node{kind: KindSequence}
}

// NewMapping returns an empty mapping.
func NewMapping() *Node {
	return &Node{kind: KindMapping, fields: make(map[string]*Node)}
}

// Kind returns the node variant.
func (n *Node) Kind() Kind { return n.kind }

// IsString reports whether n is a string leaf.
func (n *Node) IsString() bool { return n.kind == KindLeaf && n.isString }

// String returns the string value of a string leaf, or "" for anything else.
func (n *Node) String() string {
	if !n.IsString() {
		return ""
	}
	return n.str
}

// Scalar returns the opaque value of a non-string leaf.
func (n *Node) Scalar() any { return n.scalar }

// Len returns the number of children of a container, 0 for leaves.
func (n *Node) Len() int {
	switch n.kind {
	case KindSequence:
		return len(n.items)
	case KindMapping:
		return len(n.keys)
	}
	return 0
}

// Append adds a child to a sequence and returns the child.
func (n *Node) Append(child *Node) *Node {
	if n.kind != KindSequence {
		panic("doctree: Append on " + n.kind.String())
	}
	n.items = append(n.items, child)
	return child
}

// Index returns the i-th child of a sequence, or nil when out of range.
func (n *Node) Index(i int) *Node {
	if n.kind != KindSequence || i < 0 || i >= len(n.items) {
		return nil
	}
	return n.items[i]
}

// Set stores child under key in a mapping. A new key is appended to the key
// order; an existing key keeps its position.
func (n *Node) Set(key string, child *Node) *Node {
	if n.kind != KindMapping {
		panic("doctree: Set on " + n.kind.String())
	}
	if _, exists := n.fields[key]; !exists {
		n.keys = append(n.keys, key)
	}
	n.fields[key] = child
	return child
}

// Get returns the child stored under key in a mapping.
func (n *Node) Get(key string) (*Node, bool) {
	if n.kind != KindMapping {
		return nil, false
	}
	c, ok := n.fields[key]
	return c, ok
}

// Keys returns the mapping keys in insertion order.
func (n *Node) Keys() []string {
	if n.kind != KindMapping {
		return nil
	}
	out := make([]string, len(n.keys))
	copy(out, n.keys)
	return out
}

// Lookup resolves a dot/bracket path such as "nav.items[2].title", as
// produced by Ref.Path. A backslash escapes '.', '[' or another backslash
// inside a key.
func (n *Node) Lookup(path string) (*Node, bool) {
	cur := n
	for _, part := range splitPath(path) {
		if part.isIndex {
			cur = cur.Index(part.index)
			if cur == nil {
				return nil, false
			}
			continue
		}
		next, ok := cur.Get(part.key)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

type pathPart struct {
	key     string
	index   int
	isIndex bool
}

func splitPath(path string) []pathPart {
	var parts []pathPart
	var key strings.Builder
	pending := false
	flush := func() {
		if pending {
			parts = append(parts, pathPart{key: key.String()})
			key.Reset()
			pending = false
		}
	}
	for i := 0; i < len(path); i++ {
		c := path[i]
		switch {
		case c == '\\' && i+1 < len(path):
			i++
			key.WriteByte(path[i])
			pending = true
		case c == '.':
			flush()
		case c == '[':
			end := strings.IndexByte(path[i:], ']')
			if end > 0 {
				if idx, err := strconv.Atoi(path[i+1 : i+end]); err == nil {
					flush()
					parts = append(parts, pathPart{index: idx, isIndex: true})
					i += end
					continue
				}
			}
			key.WriteByte(c)
			pending = true
		default:
			key.WriteByte(c)
			pending = true
		}
	}
	flush()
	return parts
}

// ---------------------------------------------------------------------------
// Document
// ---------------------------------------------------------------------------

// Document is a parsed file: the generic tree plus whatever private state
// the producing adapter needs to serialise it again.
type Document struct {
	Root *Node
	// Native is owned by the adapter that produced the document.
	Native any
}

// Equal reports whether two trees have the same shape and leaf values.
func Equal(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindLeaf:
		if a.isString != b.isString {
			return false
		}
		if a.isString {
			return a.str == b.str
		}
		return fmt.Sprint(a.scalar) == fmt.Sprint(b.scalar)
	case KindSequence:
		if len(a.items) != len(b.items) {
			return false
		}
		for i := range a.items {
			if !Equal(a.items[i], b.items[i]) {
				return false
			}
		}
		return true
	case KindMapping:
		if len(a.keys) != len(b.keys) {
			return false
		}
		for i, k := range a.keys {
			if b.keys[i] != k {
				return false
			}
			if !Equal(a.fields[k], b.fields[k]) {
				return false
			}
		}
		return true
	}
	return false
}

// ErrMalformedInput is wrapped by every adapter parse error caused by
// invalid syntax in the input.
var ErrMalformedInput = errors.New("malformed input")
