// Package inifile maps INI documents onto the generic document tree.
//
// Format:
//
//	; comment
//	title = Welcome
//
//	[menu]
//	open = "Open file"
//
// Keys before the first section live at the root, every section becomes a
// nested mapping. Lines starting with ';' or '#' are comments. A value
// wrapped in matching quotes is exposed without them and the quotes are
// kept on output. Inline comments are not recognised; everything after the
// separator belongs to the value.
package inifile

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/minios-linux/docloc/doctree"
	"github.com/minios-linux/docloc/splice"
)

// Parse parses INI data into a generic document.
func Parse(data []byte) (*doctree.Document, error) {
	src := &splice.Source{Data: data}
	root := doctree.NewMapping()
	current := root

	lineNo := 0
	for off := 0; off < len(data); {
		end := bytes.IndexByte(data[off:], '\n')
		next := len(data)
		if end < 0 {
			end = len(data)
		} else {
			end += off
			next = end + 1
		}
		lineNo++
		line := data[off:end]
		if len(line) > 0 && line[len(line)-1] == '\r' {
			line = line[:len(line)-1]
		}

		trimmed := strings.TrimSpace(string(line))
		switch {
		case trimmed == "", trimmed[0] == ';', trimmed[0] == '#':
		case trimmed[0] == '[':
			if !strings.HasSuffix(trimmed, "]") {
				return nil, fmt.Errorf("parsing INI: %w: line %d: unterminated section header", doctree.ErrMalformedInput, lineNo)
			}
			name := strings.TrimSpace(trimmed[1 : len(trimmed)-1])
			if name == "" {
				return nil, fmt.Errorf("parsing INI: %w: line %d: empty section name", doctree.ErrMalformedInput, lineNo)
			}
			sec, ok := root.Get(name)
			if !ok || sec.Kind() != doctree.KindMapping {
				sec = root.Set(name, doctree.NewMapping())
			}
			current = sec
		default:
			sep := bytes.IndexAny(line, "=:")
			if sep < 0 {
				// bare key without a value
				current.Set(trimmed, doctree.NewScalar(nil))
				break
			}
			key := strings.TrimSpace(string(line[:sep]))
			if key == "" {
				return nil, fmt.Errorf("parsing INI: %w: line %d: missing key", doctree.ErrMalformedInput, lineNo)
			}
			start, stop := valueBounds(line, sep+1)
			value := string(line[start:stop])
			enc := encodeValue
			if quoted(value) {
				start++
				stop--
				value = value[1 : len(value)-1]
				enc = encodeQuoted
			}
			leaf := doctree.NewString(value)
			// A repeated key keeps its first position; all occurrences
			// are written with the last value.
			if prev, dup := current.Get(key); dup {
				src.Rebind(prev, leaf)
			}
			current.Set(key, leaf)
			src.Add(off+start, off+stop, leaf, enc)
		}
		off = next
	}
	return &doctree.Document{Root: root, Native: src}, nil
}

// valueBounds returns the value range of line after the separator with
// surrounding blanks excluded.
func valueBounds(line []byte, from int) (int, int) {
	start, stop := from, len(line)
	for start < stop && (line[start] == ' ' || line[start] == '\t') {
		start++
	}
	for stop > start && (line[stop-1] == ' ' || line[stop-1] == '\t') {
		stop--
	}
	return start, stop
}

func quoted(v string) bool {
	return len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0]
}

var lineBreaks = strings.NewReplacer("\r\n", `\n`, "\n", `\n`)

// encodeQuoted keeps a value on its own line inside its original quotes.
func encodeQuoted(v string, _ []byte) []byte {
	return []byte(lineBreaks.Replace(v))
}

// encodeValue writes an unquoted value, adding double quotes when the value
// has edge blanks or would otherwise read back as quoted.
func encodeValue(v string, _ []byte) []byte {
	v = lineBreaks.Replace(v)
	if strings.TrimSpace(v) != v || quoted(v) {
		v = `"` + v + `"`
	}
	return []byte(v)
}

// Marshal renders the document with the current leaf values.
func Marshal(doc *doctree.Document) ([]byte, error) {
	src, ok := doc.Native.(*splice.Source)
	if !ok {
		return nil, fmt.Errorf("inifile: document was not produced by this adapter")
	}
	return src.Render(), nil
}
