package langmeta

import (
	"errors"
	"testing"
)

func TestCanonicalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "pt_br", want: "pt-BR"},
		{in: " EN-us ", want: "en-US"},
		{in: "zh-hant", want: "zh-Hant"},
		{in: "ru", want: "ru"},
		{in: "", want: ""},
	}

	for _, tc := range cases {
		got := canonicalize(tc.in)
		if got != tc.want {
			t.Fatalf("canonicalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestResolve(t *testing.T) {
	t.Run("exact match", func(t *testing.T) {
		got := Resolve("en-GB")
		if got.Name != "English (UK)" || got.Flag == "" {
			t.Fatalf("unexpected result: %#v", got)
		}
	})

	t.Run("normalized match", func(t *testing.T) {
		got := Resolve("pt_br")
		if got.Name != "Português (Brasil)" || got.Flag == "" {
			t.Fatalf("unexpected result: %#v", got)
		}
	})

	t.Run("base fallback", func(t *testing.T) {
		got := Resolve("fr-LU")
		if got.Name != "Français" || got.Flag != "🇫🇷" {
			t.Fatalf("unexpected fallback result: %#v", got)
		}
	})

	t.Run("unknown passthrough", func(t *testing.T) {
		got := Resolve("zz-ZZ")
		if got.Name != "zz-ZZ" || got.Flag != "" {
			t.Fatalf("unexpected unknown result: %#v", got)
		}
	})
}

func TestTargetCode(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "de", want: "DE"},
		{in: "DE", want: "DE"},
		{in: "pt_br", want: "PT-BR"},
		{in: "en-gb", want: "EN-GB"},
		{in: "es-419", want: "ES-419"},
		{in: "zh-Hant", want: "ZH-HANT"},
		{in: "zh_TW", want: "ZH-HANT"},
		{in: "fr-CA", want: "FR"},
	}
	for _, tc := range cases {
		got, err := TargetCode(tc.in)
		if err != nil {
			t.Fatalf("TargetCode(%q) error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("TargetCode(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}

	if _, err := TargetCode(""); err == nil {
		t.Fatal("TargetCode(\"\") should fail")
	}
	var unsupported *ErrUnsupported
	if _, err := TargetCode("tlh"); !errors.As(err, &unsupported) {
		t.Fatalf("TargetCode(tlh) error = %v, want ErrUnsupported", err)
	}
	if _, err := TargetCode("not a tag"); !errors.As(err, &unsupported) {
		t.Fatalf("TargetCode(garbage) error = %v, want ErrUnsupported", err)
	}
}

func TestSourceCode(t *testing.T) {
	if got, err := SourceCode(""); err != nil || got != "" {
		t.Fatalf("SourceCode(\"\") = %q, %v; want auto-detect", got, err)
	}
	if got, err := SourceCode("en-GB"); err != nil || got != "EN" {
		t.Fatalf("SourceCode(en-GB) = %q, %v; want EN", got, err)
	}
	if got, err := SourceCode("pt_BR"); err != nil || got != "PT" {
		t.Fatalf("SourceCode(pt_BR) = %q, %v; want PT", got, err)
	}
}

func TestEveryTargetVariantIsRegistered(t *testing.T) {
	for v := range targetVariants {
		if _, ok := Registry[v]; !ok {
			t.Errorf("variant %s has no registry entry", v)
		}
	}
}
