package propfile

import (
	"errors"
	"strings"
	"testing"

	"github.com/minios-linux/docloc/doctree"
)

func get(t *testing.T, doc *doctree.Document, key string) string {
	t.Helper()
	n, ok := doc.Root.Get(key)
	if !ok {
		t.Fatalf("key %q not found", key)
	}
	return n.String()
}

func TestParse_Basic(t *testing.T) {
	doc, err := Parse([]byte("greeting=Hello\nfarewell=Goodbye\n"))
	if err != nil {
		t.Fatal(err)
	}
	if got := get(t, doc, "greeting"); got != "Hello" {
		t.Errorf("greeting = %q, want %q", got, "Hello")
	}
	if got := get(t, doc, "farewell"); got != "Goodbye" {
		t.Errorf("farewell = %q, want %q", got, "Goodbye")
	}
}

func TestParse_CommentsAndBlanks(t *testing.T) {
	doc, err := Parse([]byte("# This is a comment\n\n! another comment\nkey=value\n"))
	if err != nil {
		t.Fatal(err)
	}
	if doc.Root.Len() != 1 {
		t.Errorf("expected 1 key, got %d", doc.Root.Len())
	}
	if got := get(t, doc, "key"); got != "value" {
		t.Errorf("key = %q, want %q", got, "value")
	}
}

func TestParse_Separators(t *testing.T) {
	data := []byte("colon: World\nspace Hello there\nurl=http://example.com?a=1&b=2\nescaped\\=key=v\n")
	doc, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	tests := map[string]string{
		"colon":       "World",
		"space":       "Hello there",
		"url":         "http://example.com?a=1&b=2",
		"escaped=key": "v",
	}
	for k, want := range tests {
		if got := get(t, doc, k); got != want {
			t.Errorf("%s = %q, want %q", k, got, want)
		}
	}
}

func TestParse_FlatDottedKeys(t *testing.T) {
	doc, err := Parse([]byte("menu.file.open=Open\n"))
	if err != nil {
		t.Fatal(err)
	}
	units := doctree.Extract(doc.Root)
	if len(units) != 1 || units[0].Path() != `menu\.file\.open` {
		t.Fatalf("unexpected units: %+v", units)
	}
}

func TestParse_ContinuationAndEscapes(t *testing.T) {
	data := []byte("long=first \\\n    second\nuni=\\u041f\\u0440\\u0438\\u0432\\u0435\\u0442\ntab=a\\tb\nemoji=\\ud83d\\ude00\n")
	doc, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	if got := get(t, doc, "long"); got != "first second" {
		t.Errorf("long = %q", got)
	}
	if got := get(t, doc, "uni"); got != "Привет" {
		t.Errorf("uni = %q", got)
	}
	if got := get(t, doc, "tab"); got != "a\tb" {
		t.Errorf("tab = %q", got)
	}
	if got := get(t, doc, "emoji"); got != "😀" {
		t.Errorf("emoji = %q", got)
	}
}

func TestParse_MalformedUnicodeEscape(t *testing.T) {
	for _, data := range []string{"k=\\u12\n", "k=\\uzzzz\n"} {
		if _, err := Parse([]byte(data)); !errors.Is(err, doctree.ErrMalformedInput) {
			t.Errorf("Parse(%q) err = %v, want ErrMalformedInput", data, err)
		}
	}
}

func TestParse_DuplicateKeyKeepsPosition(t *testing.T) {
	doc, err := Parse([]byte("a=1\nb=2\na=3\n"))
	if err != nil {
		t.Fatal(err)
	}
	if keys := doc.Root.Keys(); len(keys) != 2 || keys[0] != "a" {
		t.Errorf("keys = %v", keys)
	}
	if got := get(t, doc, "a"); got != "3" {
		t.Errorf("a = %q, want 3", got)
	}
}

func TestMarshal_RoundTrip(t *testing.T) {
	data := "# header\r\n\r\ngreeting = Hello\r\nlong=first \\\r\n  second\r\n! tail\r\n"
	doc, err := Parse([]byte(data))
	if err != nil {
		t.Fatal(err)
	}
	out, err := Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != data {
		t.Errorf("round trip changed output: %q", out)
	}
}

func TestMarshal_ChangedValues(t *testing.T) {
	data := "# header\ngreeting = Hello\nlong=first \\\n  second\nuni=\\u0048i\n"
	doc, err := Parse([]byte(data))
	if err != nil {
		t.Fatal(err)
	}
	units := doctree.Extract(doc.Root)
	_ = units[0].Ref.Set(" Hallo\nWelt")
	_ = units[1].Ref.Set("erste zweite")
	_ = units[2].Ref.Set("Привет")

	out, err := Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	want := "# header\ngreeting = \\ Hallo\\nWelt\nlong=erste zweite\nuni=\\u041f\\u0440\\u0438\\u0432\\u0435\\u0442\n"
	if string(out) != want {
		t.Errorf("output = %q\nwant     %q", out, want)
	}

	doc2, err := Parse(out)
	if err != nil {
		t.Fatal(err)
	}
	if !doctree.Equal(doc.Root, doc2.Root) {
		t.Error("re-parsed tree differs from mutated tree")
	}
}

func TestMarshal_KeepsUTF8WhenSourceIsUTF8(t *testing.T) {
	doc, err := Parse([]byte("k=Hello\n"))
	if err != nil {
		t.Fatal(err)
	}
	_ = doctree.Extract(doc.Root)[0].Ref.Set("Привет")
	out, _ := Marshal(doc)
	if !strings.Contains(string(out), "k=Привет") {
		t.Errorf("output = %q", out)
	}
}

func TestDuplicateKeyWritesEveryOccurrence(t *testing.T) {
	data := "k=First\nother=x\nk=Second\n"
	doc, err := Parse([]byte(data))
	if err != nil {
		t.Fatal(err)
	}
	units := doctree.Extract(doc.Root)
	if len(units) != 2 || units[0].Path() != "k" || units[0].Text != "Second" {
		t.Fatalf("units = %+v", units)
	}
	if out, _ := Marshal(doc); string(out) != data {
		t.Fatalf("unchanged output = %q", out)
	}
	_ = units[0].Ref.Set("Zweite")
	out, _ := Marshal(doc)
	if want := "k=Zweite\nother=x\nk=Zweite\n"; string(out) != want {
		t.Fatalf("output = %q, want %q", out, want)
	}
}
