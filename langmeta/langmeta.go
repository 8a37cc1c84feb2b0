// Package langmeta provides a language metadata registry (native names and
// emoji flags) used by the locales listing.
package langmeta

import "strings"

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
	"ca":      {Name: "Català", Flag: "🇪🇸"},
	"cs":      {Name: "Čeština", Flag: "🇨🇿"},
	"da":      {Name: "Dansk", Flag: "🇩🇰"},
	"de":      {Name: "Deutsch", Flag: "🇩🇪"},
	"de-AT":   {Name: "Deutsch (Österreich)", Flag: "🇦🇹"},
	"de-CH":   {Name: "Deutsch (Schweiz)", Flag: "🇨🇭"},
	"el":      {Name: "Ελληνικά", Flag: "🇬🇷"},
	"en":      {Name: "English", Flag: "🇺🇸"},
	"en-GB":   {Name: "English (UK)", Flag: "🇬🇧"},
	"en-US":   {Name: "English (US)", Flag: "🇺🇸"},
	"es":      {Name: "Español", Flag: "🇪🇸"},
	"es-MX":   {Name: "Español (México)", Flag: "🇲🇽"},
	"et":      {Name: "Eesti", Flag: "🇪🇪"},
	"fa":      {Name: "فارسی", Flag: "🇮🇷"},
	"fi":      {Name: "Suomi", Flag: "🇫🇮"},
	"fr":      {Name: "Français", Flag: "🇫🇷"},
	"fr-CA":   {Name: "Français (Canada)", Flag: "🇨🇦"},
	"he":      {Name: "עברית", Flag: "🇮🇱"},
	"hi":      {Name: "हिन्दी", Flag: "🇮🇳"},
	"hr":      {Name: "Hrvatski", Flag: "🇭🇷"},
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
	"ro":      {Name: "Română", Flag: "🇷🇴"},
	"ru":      {Name: "Русский", Flag: "🇷🇺"},
	"sk":      {Name: "Slovenčina", Flag: "🇸🇰"},
	"sl":      {Name: "Slovenščina", Flag: "🇸🇮"},
	"sr":      {Name: "Српски", Flag: "🇷🇸"},
	"sv":      {Name: "Svenska", Flag: "🇸🇪"},
	"th":      {Name: "ไทย", Flag: "🇹🇭"},
	"tr":      {Name: "Türkçe", Flag: "🇹🇷"},
	"uk":      {Name: "Українська", Flag: "🇺🇦"},
	"vi":      {Name: "Tiếng Việt", Flag: "🇻🇳"},
	"zh":      {Name: "中文", Flag: "🇨🇳"},
	"zh-Hans": {Name: "简体中文", Flag: "🇨🇳"},
	"zh-Hant": {Name: "繁體中文", Flag: "🇹🇼"},
	"zh-TW":   {Name: "繁體中文 (台灣)", Flag: "🇹🇼"},
}

// canonicalize turns "pt_br" or " PT-br " into "pt-BR". Four-letter
// script subtags keep title case ("zh-hant" -> "zh-Hant").
func canonicalize(lang string) string {
	normalized := strings.ReplaceAll(strings.TrimSpace(lang), "_", "-")
	if normalized == "" {
		return ""
	}
	parts := strings.Split(normalized, "-")
	parts[0] = strings.ToLower(parts[0])
	if len(parts) >= 2 {
		if len(parts[1]) == 4 {
			parts[1] = strings.ToUpper(parts[1][:1]) + strings.ToLower(parts[1][1:])
		} else {
			parts[1] = strings.ToUpper(parts[1])
		}
	}
	return strings.Join(parts, "-")
}

// Lookup returns the metadata for lang, trying the exact code, its
// canonical form and finally the base language. ok is false when nothing
// matched.
func Lookup(lang string) (m Meta, ok bool) {
	if m, ok := Registry[lang]; ok {
		return m, true
	}
	normalized := canonicalize(lang)
	if m, ok := Registry[normalized]; ok {
		return m, true
	}
	if parts := strings.SplitN(normalized, "-", 2); len(parts) == 2 {
		if m, ok := Registry[parts[0]]; ok {
			return m, true
		}
	}
	return Meta{}, false
}

// Resolve returns best-effort language metadata for language codes,
// supporting variants like pt_BR, pt-BR, and locale fallbacks. Unknown
// codes resolve to the code itself with no flag.
func Resolve(lang string) Meta {
	if m, ok := Lookup(lang); ok {
		return m
	}
	return Meta{Name: lang, Flag: ""}
}
