package download

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/minios-linux/phrasepull/config"
	"github.com/minios-linux/phrasepull/phraseapp"
)

func TestRenderFileName(t *testing.T) {
	cfg := config.Configure(config.Options{ProjectID: "p1", Tag: "release", Branch: "main"})
	en := phraseapp.Locale{ID: "2", Name: "en", Code: "en", Tag: "2_t"}
	ptBR := phraseapp.Locale{ID: "7", Name: "Portuguese", Code: "pt-BR"}

	cases := []struct {
		name string
		tmpl string
		loc  phraseapp.Locale
		want string
	}{
		{name: "default template", tmpl: config.DefaultFileNameTemplate, loc: en, want: "en"},
		{name: "name and tag", tmpl: "<name>_<tag>", loc: en, want: "en_2_t"},
		{name: "id", tmpl: "locale-<id>", loc: en, want: "locale-2"},
		{name: "base language", tmpl: "<lang>/<code>", loc: ptBR, want: "pt/pt-BR"},
		{name: "config fallback", tmpl: "<project_id>-<branch>-<code>", loc: en, want: "p1-main-en"},
		{name: "locale tag wins over config tag", tmpl: "<tag>", loc: en, want: "2_t"},
		{name: "config tag when locale has none", tmpl: "<tag>", loc: ptBR, want: "release"},
		{name: "unknown placeholder", tmpl: "<code>.<nope>", loc: en, want: "en.<nope>"},
		{name: "empty value stays", tmpl: "<encoding>-<code>", loc: en, want: "<encoding>-en"},
		{name: "no placeholders", tmpl: "messages", loc: en, want: "messages"},
		{name: "invalid code has no lang", tmpl: "<lang>", loc: phraseapp.Locale{Code: "not a tag"}, want: "<lang>"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := RenderFileName(tc.tmpl, tc.loc, cfg); got != tc.want {
				t.Fatalf("RenderFileName(%q) = %q, want %q", tc.tmpl, got, tc.want)
			}
		})
	}
}

func TestRenderFileNameConfigTag(t *testing.T) {
	cfg := config.Configure(config.Options{Tag: "t"})
	loc := phraseapp.Locale{ID: "2", Name: "en_2", Code: "en"}
	if got := RenderFileName("<name>_<tag>", loc, cfg); got != "en_2_t" {
		t.Fatalf("RenderFileName() = %q, want en_2_t", got)
	}
}

func TestOutputPath(t *testing.T) {
	dir := t.TempDir()
	loc := phraseapp.Locale{ID: "2", Code: "en", Name: "en"}

	d := NewWithAPI(config.Configure(config.Options{Location: dir}), nil)
	if got, err := d.OutputPath(loc); err != nil || got != filepath.Join(dir, "en.js") {
		t.Fatalf("OutputPath() = %q, %v, want %q", got, err, filepath.Join(dir, "en.js"))
	}

	d = NewWithAPI(config.Configure(config.Options{
		Location:         dir,
		FileExtension:    "json",
		FileNameTemplate: "<lang>/messages",
	}), nil)
	if got, err := d.OutputPath(loc); err != nil || got != filepath.Join(dir, "en", "messages.json") {
		t.Fatalf("OutputPath() = %q, %v, want %q", got, err, filepath.Join(dir, "en", "messages.json"))
	}
}

func TestOutputPathStaysInLocation(t *testing.T) {
	dir := t.TempDir()

	cases := []struct {
		name string
		tmpl string
		loc  phraseapp.Locale
		ok   bool
	}{
		{name: "parent directory in name", tmpl: "<name>", loc: phraseapp.Locale{ID: "1", Code: "de", Name: "../escaped"}, ok: false},
		{name: "parent directories in code", tmpl: "<lang>/<code>", loc: phraseapp.Locale{ID: "1", Code: "../../x"}, ok: false},
		{name: "absolute tag", tmpl: "<tag>", loc: phraseapp.Locale{ID: "1", Code: "de", Tag: "/etc/passwd"}, ok: false},
		{name: "subdirectory from template", tmpl: "<lang>/<code>", loc: phraseapp.Locale{ID: "1", Code: "pt-BR"}, ok: true},
		{name: "dot segments that stay inside", tmpl: "a/../<code>", loc: phraseapp.Locale{ID: "1", Code: "de"}, ok: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := NewWithAPI(config.Configure(config.Options{Location: dir, FileNameTemplate: tc.tmpl}), nil)
			path, err := d.OutputPath(tc.loc)
			if !tc.ok {
				if !errors.Is(err, ErrUnsafeFileName) {
					t.Fatalf("OutputPath() = %q, %v, want ErrUnsafeFileName", path, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("OutputPath() error: %v", err)
			}
			rel, err := filepath.Rel(dir, path)
			if err != nil || !filepath.IsLocal(rel) {
				t.Fatalf("OutputPath() = %q, outside %q", path, dir)
			}
		})
	}
}

func TestDownloadRejectsEscapingFileName(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "out")
	locales := []phraseapp.Locale{
		{ID: "1", Code: "de", Name: "../escaped"},
		{ID: "2", Code: "en", Name: "en"},
	}
	api := &countingAPI{locales: locales}
	d := NewWithAPI(config.Configure(config.Options{
		AccessToken:      "1",
		ProjectID:        "1",
		Location:         out,
		FileNameTemplate: "<name>",
	}), api)

	err := d.Download(context.Background())
	var terr *TranslationDownloadError
	if !errors.As(err, &terr) || !errors.Is(err, ErrUnsafeFileName) {
		t.Fatalf("Download() error = %v, want TranslationDownloadError wrapping ErrUnsafeFileName", err)
	}
	if terr.Locale.ID != "1" {
		t.Fatalf("failed locale = %s, want de", terr.Locale)
	}
	if _, err := os.Stat(filepath.Join(root, "escaped.js")); !os.IsNotExist(err) {
		t.Fatalf("escaped.js was written outside the output directory (stat err=%v)", err)
	}
	if _, err := os.Stat(filepath.Join(out, "en.js")); err != nil {
		t.Fatalf("en.js should still be written: %v", err)
	}
	if got := api.calls.Load(); got != 1 {
		t.Fatalf("%d downloads requested, want 1", got)
	}
}
