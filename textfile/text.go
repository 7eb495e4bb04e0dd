// Package textfile maps plain text files onto the generic document tree.
//
// Every non-blank line is one string leaf of a root sequence. Indentation,
// trailing blanks, blank lines and line terminators are left outside the
// leaves and survive unchanged.
package textfile

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/minios-linux/docloc/doctree"
	"github.com/minios-linux/docloc/splice"
)

// Parse splits data into line leaves. Data must be valid UTF-8.
func Parse(data []byte) (*doctree.Document, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("parsing text: %w: invalid UTF-8", doctree.ErrMalformedInput)
	}
	src := &splice.Source{Data: data}
	root := doctree.NewSequence()

	for off := 0; off < len(data); {
		end := bytes.IndexByte(data[off:], '\n')
		next := len(data)
		if end < 0 {
			end = len(data)
		} else {
			end += off
			next = end + 1
		}

		line := data[off:end]
		start := len(line) - len(bytes.TrimLeft(line, " \t\r"))
		stop := len(bytes.TrimRight(line, " \t\r"))
		if stop > start {
			leaf := root.Append(doctree.NewString(string(line[start:stop])))
			src.Add(off+start, off+stop, leaf, encodeLine)
		}
		off = next
	}
	return &doctree.Document{Root: root, Native: src}, nil
}

// encodeLine keeps a translated line on a single line.
func encodeLine(v string, _ []byte) []byte {
	v = strings.ReplaceAll(v, "\r\n", " ")
	return []byte(strings.ReplaceAll(v, "\n", " "))
}

// Marshal renders the document with the current leaf values.
func Marshal(doc *doctree.Document) ([]byte, error) {
	src, ok := doc.Native.(*splice.Source)
	if !ok {
		return nil, fmt.Errorf("textfile: document was not produced by this adapter")
	}
	return src.Render(), nil
}
