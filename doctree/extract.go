package doctree

import (
	"errors"
	"strconv"
	"strings"
)

// ErrNotString is returned when a Ref is used to write into a leaf that does
// not hold a string, or into a container.
var ErrNotString = errors.New("referenced node is not a string leaf")

// Ref locates a single leaf by its owning container and key or index. The
// container is shared with the live document; the Ref does not own it.
type Ref struct {
	parent *Node
	key    string
	index  int
	path   string
}

// MapRef returns a reference to parent[key].
func MapRef(parent *Node, key string) Ref {
	return Ref{parent: parent, key: key, index: -1, path: escapeKey(key)}
}

// SeqRef returns a reference to parent[index].
func SeqRef(parent *Node, index int) Ref {
	return Ref{parent: parent, index: index, path: "[" + strconv.Itoa(index) + "]"}
}

// Valid reports whether the reference points at an existing child.
func (r Ref) Valid() bool {
	return r.node() != nil
}

// Path returns the dotted path of the referenced leaf from the root, as
// recorded at extraction time.
func (r Ref) Path() string { return r.path }

func (r Ref) node() *Node {
	if r.parent == nil {
		return nil
	}
	switch r.parent.kind {
	case KindMapping:
		if r.index >= 0 {
			return nil
		}
		n, _ := r.parent.Get(r.key)
		return n
	case KindSequence:
		return r.parent.Index(r.index)
	}
	return nil
}

// Get returns the current string value of the referenced leaf.
func (r Ref) Get() (string, bool) {
	n := r.node()
	if n == nil || !n.IsString() {
		return "", false
	}
	return n.str, true
}

// Set replaces the string value of the referenced leaf in place.
func (r Ref) Set(value string) error {
	n := r.node()
	if n == nil || !n.IsString() {
		return ErrNotString
	}
	n.str = value
	return nil
}

// Unit is one translatable string: a snapshot of the value at extraction
// time plus the reference used to write the outcome back.
type Unit struct {
	Text string
	Ref  Ref
}

// Path is a shorthand for u.Ref.Path().
func (u Unit) Path() string { return u.Ref.Path() }

// Extract walks root and returns every translatable leaf in document order.
// Mapping children are visited in key order, sequence children in index
// order. A leaf is included when it is a string with non-whitespace content
// and has an owning container; a bare scalar root is never emitted.
func Extract(root *Node) []Unit {
	if root == nil {
		return nil
	}
	var units []Unit
	walk(root, "", &units)
	return units
}

func walk(n *Node, prefix string, units *[]Unit) {
	switch n.kind {
	case KindMapping:
		for _, key := range n.keys {
			child := n.fields[key]
			path := joinKey(prefix, key)
			if child.kind == KindLeaf {
				collect(child, Ref{parent: n, key: key, index: -1, path: path}, units)
				continue
			}
			walk(child, path, units)
		}
	case KindSequence:
		for i, child := range n.items {
			path := prefix + "[" + strconv.Itoa(i) + "]"
			if child.kind == KindLeaf {
				collect(child, Ref{parent: n, index: i, path: path}, units)
				continue
			}
			walk(child, path, units)
		}
	}
}

func collect(leaf *Node, ref Ref, units *[]Unit) {
	if !leaf.IsString() || strings.TrimSpace(leaf.str) == "" {
		return
	}
	*units = append(*units, Unit{Text: leaf.str, Ref: ref})
}

// keyEscaper backslash-escapes the path syntax inside a mapping key, so
// {"a.b": x} and {"a": {"b": y}} get distinct paths `a\.b` and `a.b`.
var keyEscaper = strings.NewReplacer(`\`, `\\`, `.`, `\.`, `[`, `\[`)

func escapeKey(key string) string { return keyEscaper.Replace(key) }

func joinKey(prefix, key string) string {
	if prefix == "" {
		return escapeKey(key)
	}
	return prefix + "." + escapeKey(key)
}
