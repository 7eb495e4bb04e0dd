// Package snbtfile maps Minecraft stringified NBT (SNBT) onto the generic
// document tree.
//
//	{display:{Name:"Magic Sword",Lore:['First line','Second line']},Count:1b}
//
// Compounds become mappings, lists and typed arrays become sequences. Quoted
// strings (single or double) are translatable leaves. Unquoted words, numbers
// with their type suffix and booleans are opaque: unquoted words are
// identifiers in practice, not prose.
package snbtfile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/minios-linux/docloc/doctree"
	"github.com/minios-linux/docloc/splice"
)

// Parse parses SNBT data into a generic document.
func Parse(data []byte) (*doctree.Document, error) {
	s := &scanner{data: data, src: &splice.Source{Data: data}}
	s.skipSpace()
	if s.pos == len(data) {
		return &doctree.Document{Root: doctree.NewMapping(), Native: s.src}, nil
	}
	root, err := s.value()
	if err == nil {
		s.skipSpace()
		if s.pos != len(data) {
			err = s.errorf("unexpected %q after root value", data[s.pos])
		}
	}
	if err != nil {
		return nil, fmt.Errorf("parsing SNBT: %w: %v", doctree.ErrMalformedInput, err)
	}
	return &doctree.Document{Root: root, Native: s.src}, nil
}

type scanner struct {
	data []byte
	pos  int
	src  *splice.Source
}

func (s *scanner) errorf(format string, args ...any) error {
	return fmt.Errorf("offset %d: "+format, append([]any{s.pos}, args...)...)
}

func (s *scanner) skipSpace() {
	for s.pos < len(s.data) {
		switch s.data[s.pos] {
		case ' ', '\t', '\r', '\n':
			s.pos++
		default:
			return
		}
	}
}

func (s *scanner) peek() byte {
	if s.pos < len(s.data) {
		return s.data[s.pos]
	}
	return 0
}

func (s *scanner) expect(c byte) error {
	s.skipSpace()
	if s.peek() != c {
		if s.pos >= len(s.data) {
			return s.errorf("expected %q, got end of input", c)
		}
		return s.errorf("expected %q, got %q", c, s.data[s.pos])
	}
	s.pos++
	return nil
}

func (s *scanner) value() (*doctree.Node, error) {
	s.skipSpace()
	switch c := s.peek(); {
	case c == '{':
		return s.compound()
	case c == '[':
		return s.list()
	case c == '"' || c == '\'':
		start := s.pos
		v, err := s.quoted()
		if err != nil {
			return nil, err
		}
		leaf := doctree.NewString(v)
		s.src.Add(start, s.pos, leaf, encodeString)
		return leaf, nil
	case isUnquoted(c):
		return doctree.NewScalar(s.word()), nil
	case c == 0 && s.pos >= len(s.data):
		return nil, s.errorf("unexpected end of input")
	default:
		return nil, s.errorf("unexpected %q", c)
	}
}

func (s *scanner) compound() (*doctree.Node, error) {
	s.pos++ // '{'
	m := doctree.NewMapping()
	s.skipSpace()
	if s.peek() == '}' {
		s.pos++
		return m, nil
	}
	for {
		s.skipSpace()
		var key string
		switch c := s.peek(); {
		case c == '"' || c == '\'':
			k, err := s.quoted()
			if err != nil {
				return nil, err
			}
			key = k
		case isUnquoted(c):
			key = s.word()
		default:
			return nil, s.errorf("expected key")
		}
		if err := s.expect(':'); err != nil {
			return nil, err
		}
		v, err := s.value()
		if err != nil {
			return nil, err
		}
		m.Set(key, v)

		s.skipSpace()
		switch s.peek() {
		case ',':
			s.pos++
		case '}':
			s.pos++
			return m, nil
		default:
			return nil, s.errorf("expected ',' or '}'")
		}
	}
}

func (s *scanner) list() (*doctree.Node, error) {
	s.pos++ // '['
	seq := doctree.NewSequence()

	// typed array prefix: [B; ...], [I; ...], [L; ...]
	if s.pos+1 < len(s.data) && s.data[s.pos+1] == ';' && strings.IndexByte("BIL", s.data[s.pos]) >= 0 {
		s.pos += 2
	}

	s.skipSpace()
	if s.peek() == ']' {
		s.pos++
		return seq, nil
	}
	for {
		v, err := s.value()
		if err != nil {
			return nil, err
		}
		seq.Append(v)

		s.skipSpace()
		switch s.peek() {
		case ',':
			s.pos++
		case ']':
			s.pos++
			return seq, nil
		default:
			return nil, s.errorf("expected ',' or ']'")
		}
	}
}

func isUnquoted(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' ||
		c == '_' || c == '-' || c == '.' || c == '+'
}

func (s *scanner) word() string {
	start := s.pos
	for s.pos < len(s.data) && isUnquoted(s.data[s.pos]) {
		s.pos++
	}
	return string(s.data[start:s.pos])
}

// quoted decodes a single- or double-quoted string starting at s.pos.
func (s *scanner) quoted() (string, error) {
	q := s.data[s.pos]
	s.pos++
	var sb strings.Builder
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		switch {
		case c == q:
			s.pos++
			return sb.String(), nil
		case c == '\\':
			s.pos++
			if err := s.escape(&sb); err != nil {
				return "", err
			}
		default:
			sb.WriteByte(c)
			s.pos++
		}
	}
	return "", s.errorf("unterminated string")
}

func (s *scanner) escape(sb *strings.Builder) error {
	if s.pos >= len(s.data) {
		return s.errorf("unterminated escape")
	}
	c := s.data[s.pos]
	s.pos++
	switch c {
	case '\\', '"', '\'':
		sb.WriteByte(c)
	case 'n':
		sb.WriteByte('\n')
	case 't':
		sb.WriteByte('\t')
	case 'r':
		sb.WriteByte('\r')
	case 'b':
		sb.WriteByte('\b')
	case 'f':
		sb.WriteByte('\f')
	case 's':
		sb.WriteByte(' ')
	case 'x', 'u', 'U':
		n := 2
		switch c {
		case 'u':
			n = 4
		case 'U':
			n = 8
		}
		if s.pos+n > len(s.data) {
			return s.errorf("short \\%c escape", c)
		}
		r, err := strconv.ParseUint(string(s.data[s.pos:s.pos+n]), 16, 32)
		if err != nil {
			return s.errorf("invalid \\%c escape", c)
		}
		sb.WriteRune(rune(r))
		s.pos += n
	default:
		return s.errorf("invalid escape \\%c", c)
	}
	return nil
}

// encodeString writes v with the quote character of the original string.
func encodeString(v string, raw []byte) []byte {
	q := byte('"')
	if len(raw) > 0 && raw[0] == '\'' {
		q = '\''
	}
	var sb strings.Builder
	sb.WriteByte(q)
	for i := 0; i < len(v); i++ {
		switch c := v[i]; c {
		case '\\', q:
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteByte(q)
	return []byte(sb.String())
}

// Marshal renders the document with the current leaf values.
func Marshal(doc *doctree.Document) ([]byte, error) {
	src, ok := doc.Native.(*splice.Source)
	if !ok {
		return nil, fmt.Errorf("snbtfile: document was not produced by this adapter")
	}
	return src.Render(), nil
}
