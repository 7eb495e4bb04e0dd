// Package format is the registry of document adapters.
//
// An adapter turns file bytes into a generic document tree and back. Every
// supported format registers one adapter here; callers pick one by name or
// by file extension.
package format

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/minios-linux/docloc/doctree"
	"github.com/minios-linux/docloc/inifile"
	"github.com/minios-linux/docloc/jsonfile"
	"github.com/minios-linux/docloc/propfile"
	"github.com/minios-linux/docloc/snbtfile"
	"github.com/minios-linux/docloc/textfile"
	"github.com/minios-linux/docloc/tomlfile"
	"github.com/minios-linux/docloc/xmlfile"
	"github.com/minios-linux/docloc/yamlfile"
)

// ErrMalformedInput is wrapped by every parse error caused by the input
// content rather than by I/O.
var ErrMalformedInput = doctree.ErrMalformedInput

// Adapter parses and serializes one document format.
type Adapter interface {
	// Name is the identifier used with --format.
	Name() string
	// Extensions lists file extensions including the leading dot.
	Extensions() []string
	// Parse builds a document from file content.
	Parse(data []byte) (*doctree.Document, error)
	// Serialize renders a document produced by Parse with its current
	// leaf values.
	Serialize(doc *doctree.Document) ([]byte, error)
}

type funcAdapter struct {
	name      string
	exts      []string
	parse     func([]byte) (*doctree.Document, error)
	serialize func(*doctree.Document) ([]byte, error)
}

func (a funcAdapter) Name() string                                  { return a.name }
func (a funcAdapter) Extensions() []string                          { return append([]string(nil), a.exts...) }
func (a funcAdapter) Parse(data []byte) (*doctree.Document, error)  { return a.parse(data) }
func (a funcAdapter) Serialize(d *doctree.Document) ([]byte, error) { return a.serialize(d) }

var adapters = []Adapter{
	funcAdapter{"yaml", []string{".yaml", ".yml"}, yamlfile.Parse, yamlfile.Marshal},
	funcAdapter{"json", []string{".json"}, jsonfile.Parse, jsonfile.Marshal},
	funcAdapter{"toml", []string{".toml"}, tomlfile.Parse, tomlfile.Marshal},
	funcAdapter{"ini", []string{".ini", ".cfg", ".conf"}, inifile.Parse, inifile.Marshal},
	funcAdapter{"properties", []string{".properties", ".lang"}, propfile.Parse, propfile.Marshal},
	funcAdapter{"xml", []string{".xml"}, xmlfile.Parse, xmlfile.Marshal},
	funcAdapter{"text", []string{".txt", ".text"}, textfile.Parse, textfile.Marshal},
	funcAdapter{"snbt", []string{".snbt", ".nbt.txt"}, snbtfile.Parse, snbtfile.Marshal},
}

// All returns every registered adapter in registration order.
func All() []Adapter {
	return append([]Adapter(nil), adapters...)
}

// Names returns the sorted adapter names.
func Names() []string {
	names := make([]string, 0, len(adapters))
	for _, a := range adapters {
		names = append(names, a.Name())
	}
	sort.Strings(names)
	return names
}

// Lookup returns the adapter registered under name (case-insensitive).
func Lookup(name string) (Adapter, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, a := range adapters {
		if a.Name() == name {
			return a, nil
		}
	}
	return nil, fmt.Errorf("unknown format %q (supported: %s)", name, strings.Join(Names(), ", "))
}

// ForPath picks the adapter for a file by its extension. The longest
// matching extension wins, so "items.nbt.txt" is SNBT, not text.
func ForPath(path string) (Adapter, error) {
	base := strings.ToLower(filepath.Base(path))
	var (
		best    Adapter
		bestLen int
	)
	for _, a := range adapters {
		for _, ext := range a.Extensions() {
			if strings.HasSuffix(base, ext) && len(ext) > bestLen {
				best, bestLen = a, len(ext)
			}
		}
	}
	if best == nil {
		return nil, fmt.Errorf("cannot detect format of %s from its extension; use --format", path)
	}
	return best, nil
}

// Resolve returns the adapter named by name, or detects it from path when
// name is empty.
func Resolve(name, path string) (Adapter, error) {
	if name != "" {
		return Lookup(name)
	}
	return ForPath(path)
}
