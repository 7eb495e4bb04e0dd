// Package placeholder shields formatting codes and variable markers from
// the translation service.
//
// Protect replaces every protected substring with a sentinel token of the
// form [[N]] and returns the list of replacements; Restore puts the original
// substrings back. Pattern classes are applied in a fixed priority order:
//
//  1. colour and format codes   &a  §l  &#FF00AA  <#FF00AA>  &x&f&f&0&0&a&a
//  2. printf style markers      %s  %1$s  %-5.2f  %player_name%
//  3. brace placeholders        {player}  {0}  {user.name}
//  4. escaped double markers    %%  &&  §§
//
// Tokens never contain characters that any class matches, so a later class
// can not re-mask a span that an earlier class already substituted.
package placeholder

import (
	"regexp"
	"strconv"
	"strings"
)

// Entry is one substitution made by Protect.
type Entry struct {
	Token    string
	Original string
}

// Map is the ordered list of substitutions for a single text.
type Map []Entry

// class is a named pattern group. All patterns match at least one character.
type class struct {
	name string
	re   *regexp.Regexp
}

var classes = []class{
	{
		name: "color",
		re: regexp.MustCompile(
			`(?:[&§]x(?:[&§][0-9A-Fa-f]){6})` + // bungee hex: &x&r&r&g&g&b&b
				`|(?:[&§]#[0-9A-Fa-f]{6})` + // &#RRGGBB
				`|(?:<#[0-9A-Fa-f]{6}>)` + // <#RRGGBB>
				`|(?:[&§][0-9A-Fa-fK-Ok-oRr])`), // legacy codes
	},
	{
		name: "printf",
		re: regexp.MustCompile(
			`(?:%[A-Za-z_][A-Za-z0-9_.\-]+%)` + // %player_name%
				`|(?:%(?:\d+\$)?[-+#0]*\d*(?:\.\d+)?[sdifuoxXeEgGcbhSn])`), // %s %1$s %.2f
	},
	{
		name: "brace",
		re:   regexp.MustCompile(`\{[A-Za-z0-9_.:\-]+\}`),
	},
	{
		name: "double",
		re:   regexp.MustCompile(`%%|&&|§§`),
	},
}

// Protect masks every protected substring of text. Matches are numbered in
// class order, then left-to-right within a class.
func Protect(text string) (string, Map) {
	var m Map
	next := 0
	masked := text
	for _, c := range classes {
		locs := c.re.FindAllStringIndex(masked, -1)
		if len(locs) == 0 {
			continue
		}
		var b strings.Builder
		last := 0
		for _, loc := range locs {
			var tok string
			tok, next = token(text, next)
			b.WriteString(masked[last:loc[0]])
			b.WriteString(tok)
			m = append(m, Entry{Token: tok, Original: masked[loc[0]:loc[1]]})
			last = loc[1]
		}
		b.WriteString(masked[last:])
		masked = b.String()
	}
	return masked, m
}

// token returns the first token numbered n or higher that does not already
// occur in the source text, and the next free number.
func token(source string, n int) (string, int) {
	for {
		tok := "[[" + strconv.Itoa(n) + "]]"
		n++
		if !strings.Contains(source, tok) {
			return tok, n
		}
	}
}

// Restore replaces every token in text with its original substring. The map
// is processed in reverse insertion order.
func Restore(text string, m Map) string {
	for i := len(m) - 1; i >= 0; i-- {
		text = strings.ReplaceAll(text, m[i].Token, m[i].Original)
	}
	return text
}

// IsTranslatable reports whether text has content worth sending: it is false
// for empty or whitespace-only text and for text made up only of protected
// patterns and whitespace.
func IsTranslatable(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	masked, m := Protect(text)
	for _, e := range m {
		masked = strings.ReplaceAll(masked, e.Token, "")
	}
	return strings.TrimSpace(masked) != ""
}
