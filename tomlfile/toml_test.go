package tomlfile

import (
	"errors"
	"strings"
	"testing"

	"github.com/minios-linux/docloc/doctree"
)

const sample = `# Site strings
title = "Welcome"
version = 3

[nav]
home = 'Home'
items = ["One", "Two"]

[[faq]]
q = "Why?"
a = """Because."""

[[faq]]
q = "How?"
inline = { label = "Click", n = 1 }
`

func TestParse_Tree(t *testing.T) {
	doc, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	want := []string{
		"title",
		"nav.home",
		"nav.items[0]",
		"nav.items[1]",
		"faq[0].q",
		"faq[0].a",
		"faq[1].q",
		"faq[1].inline.label",
	}
	units := doctree.Extract(doc.Root)
	if len(units) != len(want) {
		var got []string
		for _, u := range units {
			got = append(got, u.Path())
		}
		t.Fatalf("units = %v, want %v", got, want)
	}
	for i, u := range units {
		if u.Path() != want[i] {
			t.Errorf("unit %d path = %q, want %q", i, u.Path(), want[i])
		}
	}
	if n, _ := doc.Root.Lookup("faq[0].a"); n.String() != "Because." {
		t.Errorf("multiline value = %q", n.String())
	}
	if n, _ := doc.Root.Lookup("version"); n.IsString() || n.Scalar() != "3" {
		t.Errorf("version should be an opaque scalar, got %v", n.Scalar())
	}
}

func TestParse_DottedKeys(t *testing.T) {
	doc, err := Parse([]byte("menu.file.open = \"Open\"\n"))
	if err != nil {
		t.Fatal(err)
	}
	if n, ok := doc.Root.Lookup("menu.file.open"); !ok || n.String() != "Open" {
		t.Errorf("dotted key lookup failed: %v", ok)
	}
}

func TestMarshal_Unchanged(t *testing.T) {
	doc, err := Parse([]byte(sample))
	if err != nil {
		t.Fatal(err)
	}
	out, err := Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != sample {
		t.Errorf("round trip changed output:\n%s", out)
	}
}

func TestMarshal_RewritesOnlyChangedValues(t *testing.T) {
	doc, err := Parse([]byte(sample))
	if err != nil {
		t.Fatal(err)
	}
	units := doctree.Extract(doc.Root)
	if err := units[1].Ref.Set(`Startseite "x"`); err != nil {
		t.Fatal(err)
	}
	out, err := Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	want := strings.Replace(sample, `home = 'Home'`, `home = "Startseite \"x\""`, 1)
	if string(out) != want {
		t.Errorf("output:\n%s\nwant:\n%s", out, want)
	}

	doc2, err := Parse(out)
	if err != nil {
		t.Fatalf("re-parse: %v", err)
	}
	if !doctree.Equal(doc.Root, doc2.Root) {
		t.Error("re-parsed tree differs from mutated tree")
	}
}

func TestEncodeString(t *testing.T) {
	tests := []struct{ in, want string }{
		{"plain", `"plain"`},
		{`a\b`, `"a\\b"`},
		{"line\nbreak\ttab", `"line\nbreak\ttab"`},
		{"bell\x07", `"bell\u0007"`},
		{"Привет", `"Привет"`},
	}
	for _, tt := range tests {
		if got := string(encodeString(tt.in, nil)); got != tt.want {
			t.Errorf("encodeString(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestParse_Malformed(t *testing.T) {
	for _, data := range []string{"a = \"unterminated\n", "[table\n", "= 1\n"} {
		if _, err := Parse([]byte(data)); !errors.Is(err, doctree.ErrMalformedInput) {
			t.Errorf("Parse(%q) err = %v, want ErrMalformedInput", data, err)
		}
	}
}
