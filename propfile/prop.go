// Package propfile maps Java .properties files onto the generic document tree.
//
// Format: key=value pairs, one logical line each. Lines starting with '#' or
// '!' are comments and blank lines are preserved verbatim. The key ends at
// the first unescaped '=', ':' or whitespace. A line ending in an odd number
// of backslashes continues on the next line.
//
// Keys are kept flat: "menu.file.open=Open" is a single mapping entry named
// "menu.file.open". Values are exposed unescaped; a changed value is written
// back on a single line, escaped, in place of the original value bytes.
package propfile

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"

	"github.com/minios-linux/docloc/doctree"
	"github.com/minios-linux/docloc/splice"
)

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

// Parse parses .properties content from a byte slice.
func Parse(data []byte) (*doctree.Document, error) {
	src := &splice.Source{Data: data}
	root := doctree.NewMapping()

	lineNo := 0
	for off := 0; off < len(data); {
		lineNo++
		start := off
		end, next := lineEnd(data, off)
		trimmed := bytes.TrimLeft(data[start:end], " \t\f")

		if len(trimmed) == 0 || trimmed[0] == '#' || trimmed[0] == '!' {
			off = next
			continue
		}

		// Join continuation lines into one logical line.
		for continues(data[start:end]) && next < len(data) {
			end, next = lineEnd(data, next)
			lineNo++
		}

		logical := data[start:end]
		k, vs := splitKeyValue(logical)
		key, err := unescape(k)
		if err != nil {
			return nil, fmt.Errorf("parsing properties: %w: line %d: %v", doctree.ErrMalformedInput, lineNo, err)
		}
		value, err := unescape(logical[vs:])
		if err != nil {
			return nil, fmt.Errorf("parsing properties: %w: line %d: %v", doctree.ErrMalformedInput, lineNo, err)
		}

		// Duplicate key: last value wins, position of the first is kept and
		// every occurrence is written with the surviving value.
		leaf := doctree.NewString(value)
		if prev, dup := root.Get(key); dup {
			src.Rebind(prev, leaf)
		}
		root.Set(key, leaf)
		src.Add(start+vs, end, leaf, encodeValue)
		off = next
	}
	return &doctree.Document{Root: root, Native: src}, nil
}

// lineEnd returns the end of the line starting at off (excluding the line
// terminator) and the offset of the following line.
func lineEnd(data []byte, off int) (end, next int) {
	i := bytes.IndexByte(data[off:], '\n')
	if i < 0 {
		end, next = len(data), len(data)
	} else {
		end, next = off+i, off+i+1
	}
	if end > off && data[end-1] == '\r' {
		end--
	}
	return end, next
}

// continues reports whether a physical line ends with an odd number of
// backslashes.
func continues(line []byte) bool {
	n := 0
	for i := len(line) - 1; i >= 0 && line[i] == '\\'; i-- {
		n++
	}
	return n%2 == 1
}

// splitKeyValue splits a logical line into the raw key and the offset at
// which the raw value starts. The separator may be '=', ':' or whitespace;
// whitespace around the separator is skipped.
func splitKeyValue(s []byte) (key []byte, valueStart int) {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\f') {
		i++
	}
	ks := i
	for i < len(s) {
		c := s[i]
		if c == '\\' {
			i += 2
			continue
		}
		if c == '=' || c == ':' || c == ' ' || c == '\t' || c == '\f' {
			break
		}
		i++
	}
	if i > len(s) {
		i = len(s)
	}
	key = s[ks:i]

	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\f') {
		i++
	}
	if i < len(s) && (s[i] == '=' || s[i] == ':') {
		i++
	}
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\f') {
		i++
	}
	return key, i
}

// unescape decodes backslash escapes and joins continuation lines.
func unescape(raw []byte) (string, error) {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '\\' {
			sb.WriteByte(c)
			continue
		}
		i++
		if i >= len(raw) {
			break
		}
		switch raw[i] {
		case 't':
			sb.WriteByte('\t')
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 'f':
			sb.WriteByte('\f')
		case 'u':
			if i+5 > len(raw) {
				return "", fmt.Errorf("malformed \\uxxxx escape")
			}
			r, err := strconv.ParseUint(string(raw[i+1:i+5]), 16, 32)
			if err != nil {
				return "", fmt.Errorf("malformed \\uxxxx escape")
			}
			i += 4
			ru := rune(r)
			// surrogate pair written as two escapes
			if utf16.IsSurrogate(ru) && i+6 < len(raw) && raw[i+1] == '\\' && raw[i+2] == 'u' {
				if lo, err := strconv.ParseUint(string(raw[i+3:i+7]), 16, 32); err == nil {
					if dec := utf16.DecodeRune(ru, rune(lo)); dec != unicode.ReplacementChar {
						ru = dec
						i += 6
					}
				}
			}
			sb.WriteRune(ru)
		case '\r', '\n':
			// line continuation: drop the terminator and leading blanks
			if raw[i] == '\r' && i+1 < len(raw) && raw[i+1] == '\n' {
				i++
			}
			for i+1 < len(raw) && (raw[i+1] == ' ' || raw[i+1] == '\t' || raw[i+1] == '\f') {
				i++
			}
		default:
			sb.WriteByte(raw[i])
		}
	}
	return sb.String(), nil
}

// ---------------------------------------------------------------------------
// Serialization
// ---------------------------------------------------------------------------

// encodeValue escapes v for a single-line value. Non-ASCII characters are
// written as \uXXXX when the original value used that form.
func encodeValue(v string, raw []byte) []byte {
	asciiOnly := bytes.Contains(raw, []byte(`\u`))
	var sb strings.Builder
	for i, r := range v {
		switch r {
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		case '\f':
			sb.WriteString(`\f`)
		case ' ':
			if i == 0 {
				sb.WriteString(`\ `)
			} else {
				sb.WriteByte(' ')
			}
		default:
			if asciiOnly && r > 0x7e {
				writeUnicodeEscape(&sb, r)
				continue
			}
			sb.WriteRune(r)
		}
	}
	return []byte(sb.String())
}

func writeUnicodeEscape(sb *strings.Builder, r rune) {
	if r > 0xffff {
		hi, lo := utf16.EncodeRune(r)
		fmt.Fprintf(sb, `\u%04x\u%04x`, hi, lo)
		return
	}
	fmt.Fprintf(sb, `\u%04x`, r)
}

// Marshal renders the document with the current leaf values.
func Marshal(doc *doctree.Document) ([]byte, error) {
	src, ok := doc.Native.(*splice.Source)
	if !ok {
		return nil, fmt.Errorf("propfile: document was not produced by this adapter")
	}
	return src.Render(), nil
}
