package splice

import (
	"strings"
	"testing"

	"github.com/minios-linux/docloc/doctree"
)

func upper(value string, raw []byte) []byte {
	return []byte("<" + strings.ToUpper(value) + ">")
}

func TestRender_OnlyChangedSpans(t *testing.T) {
	data := []byte("a=one # c\nb=two\n")
	one := doctree.NewString("one")
	two := doctree.NewString("two")

	src := &Source{Data: data}
	src.Add(10+2, 10+5, two, upper)
	src.Add(2, 5, one, upper)

	if got := string(src.Render()); got != string(data) {
		t.Fatalf("unchanged render = %q, want %q", got, data)
	}

	root := doctree.NewMapping()
	root.Set("a", one)
	root.Set("b", two)
	if err := doctree.MapRef(root, "b").Set("zwei"); err != nil {
		t.Fatal(err)
	}
	if got := string(src.Render()); got != "a=one # c\nb=<ZWEI>\n" {
		t.Fatalf("render = %q", got)
	}
}

func TestRender_NoSpans(t *testing.T) {
	src := &Source{Data: []byte("plain")}
	if got := string(src.Render()); got != "plain" {
		t.Fatalf("render = %q", got)
	}
}

func TestRebind(t *testing.T) {
	data := []byte("a=one\na=two\n")
	first := doctree.NewString("one")
	last := doctree.NewString("two")

	src := &Source{Data: data}
	src.Add(2, 5, first, upper)
	src.Rebind(first, last)
	src.Add(8, 11, last, upper)

	if got := string(src.Render()); got != string(data) {
		t.Fatalf("unchanged render = %q, want %q", got, data)
	}
	root := doctree.NewMapping()
	root.Set("a", last)
	if err := doctree.MapRef(root, "a").Set("zwei"); err != nil {
		t.Fatal(err)
	}
	if got := string(src.Render()); got != "a=<ZWEI>\na=<ZWEI>\n" {
		t.Fatalf("render = %q", got)
	}
}
