// Package langmeta provides the language registry used by the CLI:
// native names and emoji flags for display, and the mapping of user
// supplied language codes to the codes the DeepL API accepts.
package langmeta

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/language"
)

// Meta describes language display metadata.
type Meta struct {
	Name string
	Flag string
}

// Registry contains canonical language metadata.
// Locale variants are resolved in Resolve() via normalization and base fallback.
var Registry = map[string]Meta{
	"ar":      {Name: "العربية", Flag: "🇸🇦"},
	"bg":      {Name: "Български", Flag: "🇧🇬"},
	"cs":      {Name: "Čeština", Flag: "🇨🇿"},
	"da":      {Name: "Dansk", Flag: "🇩🇰"},
	"de":      {Name: "Deutsch", Flag: "🇩🇪"},
	"el":      {Name: "Ελληνικά", Flag: "🇬🇷"},
	"en":      {Name: "English", Flag: "🇬🇧"},
	"en-GB":   {Name: "English (UK)", Flag: "🇬🇧"},
	"en-US":   {Name: "English (US)", Flag: "🇺🇸"},
	"es":      {Name: "Español", Flag: "🇪🇸"},
	"es-419":  {Name: "Español (Latinoamérica)", Flag: "🇲🇽"},
	"et":      {Name: "Eesti", Flag: "🇪🇪"},
	"fi":      {Name: "Suomi", Flag: "🇫🇮"},
	"fr":      {Name: "Français", Flag: "🇫🇷"},
	"he":      {Name: "עברית", Flag: "🇮🇱"},
	"hu":      {Name: "Magyar", Flag: "🇭🇺"},
	"id":      {Name: "Bahasa Indonesia", Flag: "🇮🇩"},
	"it":      {Name: "Italiano", Flag: "🇮🇹"},
	"ja":      {Name: "日本語", Flag: "🇯🇵"},
	"ko":      {Name: "한국어", Flag: "🇰🇷"},
	"lt":      {Name: "Lietuvių", Flag: "🇱🇹"},
	"lv":      {Name: "Latviešu", Flag: "🇱🇻"},
	"nb":      {Name: "Norsk bokmål", Flag: "🇳🇴"},
	"nl":      {Name: "Nederlands", Flag: "🇳🇱"},
	"pl":      {Name: "Polski", Flag: "🇵🇱"},
	"pt":      {Name: "Português", Flag: "🇵🇹"},
	"pt-BR":   {Name: "Português (Brasil)", Flag: "🇧🇷"},
	"pt-PT":   {Name: "Português (Portugal)", Flag: "🇵🇹"},
	"ro":      {Name: "Română", Flag: "🇷🇴"},
	"ru":      {Name: "Русский", Flag: "🇷🇺"},
	"sk":      {Name: "Slovenčina", Flag: "🇸🇰"},
	"sl":      {Name: "Slovenščina", Flag: "🇸🇮"},
	"sv":      {Name: "Svenska", Flag: "🇸🇪"},
	"th":      {Name: "ไทย", Flag: "🇹🇭"},
	"tr":      {Name: "Türkçe", Flag: "🇹🇷"},
	"uk":      {Name: "Українська", Flag: "🇺🇦"},
	"vi":      {Name: "Tiếng Việt", Flag: "🇻🇳"},
	"zh":      {Name: "中文", Flag: "🇨🇳"},
	"zh-Hans": {Name: "简体中文", Flag: "🇨🇳"},
	"zh-Hant": {Name: "繁體中文", Flag: "🇹🇼"},
}

// targetVariants lists the regional and script variants DeepL accepts as
// target languages. Any other variant of a known base collapses to the base.
var targetVariants = map[string]bool{
	"en-GB":   true,
	"en-US":   true,
	"es-419":  true,
	"pt-BR":   true,
	"pt-PT":   true,
	"zh-Hans": true,
	"zh-Hant": true,
}

func canonicalize(lang string) string {
	normalized := strings.ReplaceAll(strings.TrimSpace(lang), "_", "-")
	if normalized == "" {
		return ""
	}
	parts := strings.Split(normalized, "-")
	parts[0] = strings.ToLower(parts[0])
	if len(parts) >= 2 {
		switch {
		case len(parts[1]) == 4:
			// Script subtag: Hans, Hant.
			parts[1] = strings.ToUpper(parts[1][:1]) + strings.ToLower(parts[1][1:])
		default:
			parts[1] = strings.ToUpper(parts[1])
		}
	}
	return strings.Join(parts, "-")
}

// Resolve returns best-effort language metadata for language codes,
// supporting variants like pt_BR, pt-BR, and locale fallbacks.
func Resolve(lang string) Meta {
	if m, ok := Registry[lang]; ok {
		return m
	}
	normalized := canonicalize(lang)
	if m, ok := Registry[normalized]; ok {
		return m
	}
	if parts := strings.SplitN(normalized, "-", 2); len(parts) == 2 {
		if m, ok := Registry[parts[0]]; ok {
			return m
		}
	}
	return Meta{Name: lang, Flag: ""}
}

// ErrUnsupported is returned for languages DeepL cannot translate.
type ErrUnsupported struct {
	Code string
}

func (e *ErrUnsupported) Error() string {
	return fmt.Sprintf("unsupported language %q (supported: %s)", e.Code, strings.Join(Codes(), ", "))
}

// Codes returns the registry codes, sorted.
func Codes() []string {
	codes := make([]string, 0, len(Registry))
	for c := range Registry {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// parse validates code as a BCP 47 tag and splits it into the registry
// base and the variant key (base-REGION or base-Script), if any.
func parse(code string) (base, variant string, err error) {
	tag, err := language.Parse(canonicalize(code))
	if err != nil {
		return "", "", &ErrUnsupported{Code: code}
	}
	b, _ := tag.Base()
	base = b.String()
	s, sc := tag.Script()
	r, rc := tag.Region()
	switch {
	case sc == language.Exact:
		variant = base + "-" + s.String()
	case rc == language.Exact && base == "zh":
		// zh-TW and zh-HK imply Hant, zh-CN implies Hans.
		variant = base + "-" + s.String()
	case rc == language.Exact:
		variant = base + "-" + r.String()
	}
	if _, ok := Registry[base]; !ok {
		return "", "", &ErrUnsupported{Code: code}
	}
	return base, variant, nil
}

// TargetCode maps a user language code to a DeepL target language code:
// "de" gives "DE", "pt_br" gives "PT-BR", "zh-Hant" gives "ZH-HANT", and
// a variant DeepL does not distinguish ("fr-CA") falls back to its base.
func TargetCode(code string) (string, error) {
	if strings.TrimSpace(code) == "" {
		return "", fmt.Errorf("target language is required")
	}
	base, variant, err := parse(code)
	if err != nil {
		return "", err
	}
	if targetVariants[variant] {
		return strings.ToUpper(variant), nil
	}
	return strings.ToUpper(base), nil
}

// SourceCode maps a user language code to a DeepL source language code.
// Source languages never carry a variant, so "en-GB" gives "EN". An empty
// code stays empty and lets the service detect the language.
func SourceCode(code string) (string, error) {
	if strings.TrimSpace(code) == "" {
		return "", nil
	}
	base, _, err := parse(code)
	if err != nil {
		return "", err
	}
	return strings.ToUpper(base), nil
}
