package jsonfile

import (
	"errors"
	"testing"

	"github.com/minios-linux/docloc/doctree"
)

const sample = `{
    "_meta": {"version": 2, "enabled": true},
    "greeting": "Hello",
    "nav": {
        "home": "Home",
        "items": ["One", "Two & <three>", null]
    },
    "empty": ""
}
`

func TestParse_Tree(t *testing.T) {
	doc, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	units := doctree.Extract(doc.Root)
	var paths []string
	for _, u := range units {
		paths = append(paths, u.Path())
	}
	want := []string{"greeting", "nav.home", "nav.items[0]", "nav.items[1]"}
	if len(paths) != len(want) {
		t.Fatalf("paths = %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("paths[%d] = %q, want %q", i, paths[i], want[i])
		}
	}
	if keys := doc.Root.Keys(); keys[0] != "_meta" || keys[3] != "empty" {
		t.Errorf("key order = %v", keys)
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

func TestMarshal_OnlyTranslatedValueChanges(t *testing.T) {
	doc, err := Parse([]byte(sample))
	if err != nil {
		t.Fatal(err)
	}
	units := doctree.Extract(doc.Root)
	if err := units[3].Ref.Set(`Zwei "&" <drei>`); err != nil {
		t.Fatal(err)
	}
	out, err := Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	want := `{
    "_meta": {"version": 2, "enabled": true},
    "greeting": "Hello",
    "nav": {
        "home": "Home",
        "items": ["One", "Zwei \"&\" <drei>", null]
    },
    "empty": ""
}
`
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

func TestParse_EscapedSource(t *testing.T) {
	data := `{"a": "line\nbreak é"}`
	doc, err := Parse([]byte(data))
	if err != nil {
		t.Fatal(err)
	}
	n, _ := doc.Root.Get("a")
	if n.String() != "line\nbreak é" {
		t.Errorf("value = %q", n.String())
	}
	out, _ := Marshal(doc)
	if string(out) != data {
		t.Errorf("unchanged escaped value was rewritten: %s", out)
	}
}

func TestParse_Malformed(t *testing.T) {
	for _, data := range []string{`{"a": }`, `{"a": "b"`, `{"a": "b"} x`} {
		if _, err := Parse([]byte(data)); !errors.Is(err, doctree.ErrMalformedInput) {
			t.Errorf("Parse(%q) err = %v, want ErrMalformedInput", data, err)
		}
	}
}

func TestParse_ScalarRoot(t *testing.T) {
	doc, err := Parse([]byte(`"just a string"`))
	if err != nil {
		t.Fatal(err)
	}
	if n := len(doctree.Extract(doc.Root)); n != 0 {
		t.Errorf("expected no units for scalar root, got %d", n)
	}
}
