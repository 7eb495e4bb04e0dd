package snbtfile

import (
	"errors"
	"strings"
	"testing"

	"github.com/minios-linux/docloc/doctree"
)

const sample = `{
  display: {Name: "Magic Sword", Lore: ['First line', 'It\'s sharp']},
  Count: 1b,
  id: minecraft_sword,
  "quoted key": "Value",
  Bytes: [B; 1b, 2b],
  Empty: []
}`

func TestParse_Tree(t *testing.T) {
	doc, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	want := []struct{ path, text string }{
		{"display.Name", "Magic Sword"},
		{"display.Lore[0]", "First line"},
		{"display.Lore[1]", "It's sharp"},
		{"quoted key", "Value"},
	}
	units := doctree.Extract(doc.Root)
	if len(units) != len(want) {
		t.Fatalf("expected %d units, got %d", len(want), len(units))
	}
	for i, w := range want {
		if units[i].Path() != w.path || units[i].Text != w.text {
			t.Errorf("unit %d = (%q, %q), want (%q, %q)", i, units[i].Path(), units[i].Text, w.path, w.text)
		}
	}
	if n, _ := doc.Root.Get("Count"); n.IsString() || n.Scalar() != "1b" {
		t.Errorf("Count = %v", n.Scalar())
	}
	if n, _ := doc.Root.Get("Bytes"); n.Len() != 2 {
		t.Errorf("typed array length = %d, want 2", n.Len())
	}
}

func TestMarshal_KeepsQuoteStyle(t *testing.T) {
	doc, err := Parse([]byte(sample))
	if err != nil {
		t.Fatal(err)
	}
	out, _ := Marshal(doc)
	if string(out) != sample {
		t.Fatalf("round trip changed output:\n%s", out)
	}

	units := doctree.Extract(doc.Root)
	_ = units[0].Ref.Set(`Magisches "Schwert"`)
	_ = units[2].Ref.Set("C'est tranchant")
	out, err = Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	want := strings.NewReplacer(
		`"Magic Sword"`, `"Magisches \"Schwert\""`,
		`'It\'s sharp'`, `'C\'est tranchant'`,
	).Replace(sample)
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

func TestParse_Escapes(t *testing.T) {
	doc, err := Parse([]byte(`{a:"tab\thereé\x21"}`))
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := doc.Root.Get("a"); n.String() != "tab\thereé!" {
		t.Errorf("a = %q", n.String())
	}
}

func TestParse_Malformed(t *testing.T) {
	for _, data := range []string{
		`{a:"unterminated}`,
		`{a:1b`,
		`{a 1}`,
		`[1, 2,]`,
		`{a:"x"} trailing`,
		`{a:"bad \q"}`,
	} {
		if _, err := Parse([]byte(data)); !errors.Is(err, doctree.ErrMalformedInput) {
			t.Errorf("Parse(%q) err = %v, want ErrMalformedInput", data, err)
		}
	}
}
