package format

import (
	"errors"
	"strings"
	"testing"

	"github.com/minios-linux/docloc/doctree"
)

func TestForPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"locales/en.yml", "yaml"},
		{"messages.YAML", "yaml"},
		{"strings.json", "json"},
		{"config/site.toml", "toml"},
		{"app.ini", "ini"},
		{"messages_en.properties", "properties"},
		{"res/values/strings.xml", "xml"},
		{"README.txt", "text"},
		{"item.nbt.txt", "snbt"},
		{"structure.snbt", "snbt"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			a, err := ForPath(tt.path)
			if err != nil {
				t.Fatalf("ForPath: %v", err)
			}
			if a.Name() != tt.want {
				t.Errorf("ForPath(%q) = %s, want %s", tt.path, a.Name(), tt.want)
			}
		})
	}
}

func TestForPath_Unknown(t *testing.T) {
	if _, err := ForPath("image.png"); err == nil {
		t.Fatal("expected error for unknown extension")
	}
}

func TestLookup(t *testing.T) {
	a, err := Lookup(" TOML ")
	if err != nil || a.Name() != "toml" {
		t.Fatalf("Lookup = %v, %v", a, err)
	}
	_, err = Lookup("csv")
	if err == nil || !strings.Contains(err.Error(), "supported") {
		t.Errorf("Lookup(csv) err = %v", err)
	}
}

func TestResolve_NameOverridesExtension(t *testing.T) {
	a, err := Resolve("text", "strings.json")
	if err != nil || a.Name() != "text" {
		t.Fatalf("Resolve = %v, %v", a, err)
	}
}

func TestNames(t *testing.T) {
	names := Names()
	if len(names) != 8 {
		t.Fatalf("expected 8 formats, got %v", names)
	}
	if names[0] != "ini" || names[len(names)-1] != "yaml" {
		t.Errorf("names not sorted: %v", names)
	}
}

// Every adapter must round-trip an unchanged document byte for byte and must
// report malformed input through ErrMalformedInput.
func TestAdapters_Contract(t *testing.T) {
	samples := map[string]struct{ good, bad string }{
		"yaml":       {"a: Hello\nb:\n  - One\n", "a: [x\n"},
		"json":       {`{"a": "Hello", "b": ["One"]}`, `{"a": }`},
		"toml":       {"a = \"Hello\"\nb = [\"One\"]\n", "a = \"x\n"},
		"ini":        {"a = Hello\n[b]\nc = One\n", "[b\n"},
		"properties": {"a=Hello\nb=One\n", "a=\\u12\n"},
		"xml":        {"<r><a>Hello</a><b>One</b></r>", "<r><a></r>"},
		"text":       {"Hello\nOne\n", "\xff"},
		"snbt":       {`{a:"Hello",b:['One']}`, `{a:"x"`},
	}
	for _, a := range All() {
		s, ok := samples[a.Name()]
		if !ok {
			t.Errorf("no sample for adapter %s", a.Name())
			continue
		}
		t.Run(a.Name(), func(t *testing.T) {
			doc, err := a.Parse([]byte(s.good))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			units := doctree.Extract(doc.Root)
			if len(units) != 2 || units[0].Text != "Hello" || units[1].Text != "One" {
				t.Fatalf("units = %+v", units)
			}
			out, err := a.Serialize(doc)
			if err != nil {
				t.Fatalf("Serialize: %v", err)
			}
			if string(out) != s.good {
				t.Errorf("round trip = %q, want %q", out, s.good)
			}

			_ = units[0].Ref.Set("Hallo")
			out, err = a.Serialize(doc)
			if err != nil {
				t.Fatalf("Serialize: %v", err)
			}
			doc2, err := a.Parse(out)
			if err != nil {
				t.Fatalf("re-parse: %v", err)
			}
			if !doctree.Equal(doc.Root, doc2.Root) {
				t.Errorf("re-parsed tree differs; output %q", out)
			}

			if _, err := a.Parse([]byte(s.bad)); !errors.Is(err, ErrMalformedInput) {
				t.Errorf("Parse(bad) err = %v, want ErrMalformedInput", err)
			}
		})
	}
}
