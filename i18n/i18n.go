// Package i18n translates phrasepull's own CLI messages.
//
// Catalogs are embedded .po files loaded with gotext. Init picks the
// catalog that best matches the requested language; T and N pass strings
// through unchanged when no catalog matches or before Init is called.
//
//	i18n.Init("") // LANGUAGE, LC_ALL, LC_MESSAGES, LANG
//	fmt.Println(i18n.N("Got %d locale", "Got %d locales", n))
package i18n

import (
	"embed"
	"os"
	"sort"
	"strings"

	"github.com/leonelquinteros/gotext"
	"golang.org/x/text/language"
)

// locales holds locales/{lang}/LC_MESSAGES/phrasepull.po.
//
//go:embed all:locales
var locales embed.FS

const domain = "phrasepull"

var (
	po *gotext.Locale
	// active is the loaded catalog, "" when messages are untranslated.
	active string
)

// Init loads the catalog matching lang. An empty lang is detected from the
// environment in GNU gettext order, trying every entry of LANGUAGE.
func Init(lang string) {
	candidates := []string{lang}
	if lang == "" {
		candidates = detectLanguages()
	}

	active = match(candidates, catalogs())
	if active == "" {
		po = nil
		return
	}
	po = gotext.NewLocaleFSWithPath(active, locales, "locales")
	po.AddDomain(domain)
	po.SetDomain(domain)
}

// T translates msgid, or returns it unchanged.
func T(msgid string) string {
	if po == nil {
		return msgid
	}
	return po.Get(msgid)
}

// N translates a string with plural forms chosen by the catalog's
// plural formula.
func N(singular, plural string, n int) string {
	if po == nil {
		if n == 1 {
			return singular
		}
		return plural
	}
	return po.GetN(singular, plural, n)
}

// catalogs lists the embedded catalog directories, sorted.
func catalogs() []string {
	entries, err := locales.ReadDir("locales")
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

// match returns the first catalog that matches one of the candidates in
// order. Region differences are accepted ("ru_UA" uses "ru"), other
// languages are not.
func match(candidates, available []string) string {
	if len(available) == 0 {
		return ""
	}
	tags := make([]language.Tag, len(available))
	for i, name := range available {
		tags[i] = language.Make(strings.ReplaceAll(name, "_", "-"))
	}
	matcher := language.NewMatcher(tags)

	for _, c := range candidates {
		tag, err := language.Parse(strings.ReplaceAll(c, "_", "-"))
		if err != nil {
			continue
		}
		_, idx, conf := matcher.Match(tag)
		if conf >= language.High {
			return available[idx]
		}
	}
	return ""
}

// detectLanguages follows GNU gettext: the LANGUAGE list, then the first of
// LC_ALL, LC_MESSAGES and LANG. "C" and "POSIX" disable translation.
func detectLanguages() []string {
	var langs []string
	for _, env := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if val := normalize(os.Getenv(env)); val != "" {
			if val == "C" || val == "POSIX" {
				return nil
			}
			langs = append(langs, val)
			break
		}
	}

	var list []string
	for _, val := range strings.Split(os.Getenv("LANGUAGE"), ":") {
		if val = normalize(val); val != "" && val != "C" && val != "POSIX" {
			list = append(list, val)
		}
	}
	return append(list, langs...)
}

// normalize strips the encoding and modifier ("sr_RS.UTF-8@latin" -> "sr_RS").
func normalize(val string) string {
	if idx := strings.IndexAny(val, ".@"); idx >= 0 {
		val = val[:idx]
	}
	return strings.TrimSpace(val)
}
