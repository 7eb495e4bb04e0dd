// Package i18n translates docloc's own messages (log lines, summaries,
// dry-run notes) from gettext catalogs embedded in the binary.
//
// The message language comes from DOCLOC_LANG, then from the GNU gettext
// variables LANGUAGE, LC_ALL, LC_MESSAGES and LANG. Candidates are matched
// against the embedded catalogs by language tag and then by base language,
// so "ru_UA.UTF-8" selects the "ru" catalog. Without a match the messages
// stay in English:
//
//	i18n.Init("")
//	logInfo(i18n.N("%d string reused", "%d strings reused", n), n)
package i18n

import (
	"embed"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/leonelquinteros/gotext"
	"golang.org/x/text/language"
)

// Catalogs live in locales/{name}/LC_MESSAGES/docloc.po.
//
//go:embed all:locales
var locales embed.FS

const domain = "docloc"

// EnvLang overrides the message language of docloc only. Like LANGUAGE it
// may hold a colon-separated list.
const EnvLang = "DOCLOC_LANG"

// po is nil when no catalog is selected.
var po *gotext.Locale

// Available returns the names of the embedded catalogs, sorted.
func Available() []string {
	entries, err := fs.ReadDir(locales, "locales")
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := fs.Stat(locales, path.Join("locales", e.Name(), "LC_MESSAGES", domain+".po")); err == nil {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

// Init selects the catalog for lang, or for the environment when lang is
// empty, and returns the catalog name. It returns "" and leaves messages
// untranslated when no embedded catalog serves the language.
func Init(lang string) string {
	candidates := []string{lang}
	if lang == "" {
		candidates = preferredLanguages()
	}

	po = nil
	catalogs := Available()
	for _, c := range candidates {
		name := match(c, catalogs)
		if name == "" {
			continue
		}
		po = gotext.NewLocaleFSWithPath(name, locales, "locales")
		po.AddDomain(domain)
		po.SetDomain(domain)
		return name
	}
	return ""
}

// T translates a message, or returns it unchanged.
func T(msgid string) string {
	if po == nil {
		return msgid
	}
	return po.Get(msgid, nil...)
}

// N translates a message with plural forms using the catalog's plural
// formula; untranslated, the singular is used for n == 1.
func N(singular, plural string, n int) string {
	if po == nil {
		if n == 1 {
			return singular
		}
		return plural
	}
	return po.GetN(singular, plural, n)
}

// preferredLanguages returns the normalised candidates of the first variable
// that names a real locale.
func preferredLanguages() []string {
	for _, env := range []string{EnvLang, "LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"} {
		val := os.Getenv(env)
		if val == "" {
			continue
		}
		list := []string{val}
		if env == EnvLang || env == "LANGUAGE" {
			list = strings.Split(val, ":")
		}
		var out []string
		for _, l := range list {
			if n := normalize(l); n != "" {
				out = append(out, n)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// normalize turns a POSIX locale such as "pt_BR.UTF-8@euro" into a language
// tag ("pt-BR"). "C" and "POSIX" mean no translation and yield "".
func normalize(locale string) string {
	if i := strings.IndexAny(locale, ".@"); i >= 0 {
		locale = locale[:i]
	}
	locale = strings.TrimSpace(locale)
	if locale == "" || locale == "C" || locale == "POSIX" {
		return ""
	}
	return strings.ReplaceAll(locale, "_", "-")
}

// match returns the catalog for a language tag: an exact match first, then
// the first catalog with the same base language.
func match(tag string, catalogs []string) string {
	want, err := language.Parse(normalize(tag))
	if err != nil {
		return ""
	}
	base, _ := want.Base()
	fallback := ""
	for _, name := range catalogs {
		have, err := language.Parse(normalize(name))
		if err != nil {
			continue
		}
		if have.String() == want.String() {
			return name
		}
		if b, _ := have.Base(); b == base && fallback == "" {
			fallback = name
		}
	}
	return fallback
}
