package download

import (
	"regexp"

	"golang.org/x/text/language"

	"github.com/minios-linux/phrasepull/config"
	"github.com/minios-linux/phrasepull/phraseapp"
)

var placeholderRe = regexp.MustCompile(`<([a-z_]+)>`)

// localeFields resolve placeholders from the locale descriptor.
var localeFields = map[string]func(phraseapp.Locale) string{
	"id":   func(l phraseapp.Locale) string { return l.ID },
	"code": func(l phraseapp.Locale) string { return l.Code },
	"name": func(l phraseapp.Locale) string { return l.Name },
	"tag":  func(l phraseapp.Locale) string { return l.Tag },
	"lang": baseLanguage,
}

// configFields are the fallbacks used when the locale has no value.
var configFields = map[string]func(config.Config) string{
	"project_id":         func(c config.Config) string { return c.ProjectID },
	"file_format":        func(c config.Config) string { return c.FileFormat },
	"tag":                func(c config.Config) string { return c.Tag },
	"encoding":           func(c config.Config) string { return c.Encoding },
	"fallback_locale_id": func(c config.Config) string { return c.FallbackLocaleID },
	"branch":             func(c config.Config) string { return c.Branch },
}

// RenderFileName substitutes <field> placeholders in tmpl. Locale fields
// win over configuration fields of the same name. Unknown placeholders and
// placeholders without a value are left as written.
func RenderFileName(tmpl string, loc phraseapp.Locale, cfg config.Config) string {
	return placeholderRe.ReplaceAllStringFunc(tmpl, func(m string) string {
		field := m[1 : len(m)-1]
		if get, ok := localeFields[field]; ok {
			if v := get(loc); v != "" {
				return v
			}
		}
		if get, ok := configFields[field]; ok {
			if v := get(cfg); v != "" {
				return v
			}
		}
		return m
	})
}

// baseLanguage returns the base language subtag of the locale code
// ("pt-BR" -> "pt"), or "" when the code is not a valid BCP 47 tag.
func baseLanguage(l phraseapp.Locale) string {
	if l.Code == "" {
		return ""
	}
	tag, err := language.Parse(l.Code)
	if err != nil {
		return ""
	}
	base, conf := tag.Base()
	if conf == language.No {
		return ""
	}
	return base.String()
}
