package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/minios-linux/phrasepull/phraseapp"
)

func TestConfigureDefaults(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}

	cfg := Configure(Options{})
	if cfg.FileFormat != "node_json" {
		t.Fatalf("FileFormat = %q, want node_json", cfg.FileFormat)
	}
	if cfg.FileExtension != "js" {
		t.Fatalf("FileExtension = %q, want js", cfg.FileExtension)
	}
	if cfg.Location != wd {
		t.Fatalf("Location = %q, want %q", cfg.Location, wd)
	}
	if cfg.FileNameTemplate != "<code>" {
		t.Fatalf("FileNameTemplate = %q, want <code>", cfg.FileNameTemplate)
	}
	if cfg.BaseURL != phraseapp.DefaultBaseURL {
		t.Fatalf("BaseURL = %q, want %q", cfg.BaseURL, phraseapp.DefaultBaseURL)
	}
	if cfg.Concurrency != 2 {
		t.Fatalf("Concurrency = %d, want 2", cfg.Concurrency)
	}
	if cfg.Timeout != DefaultTimeout {
		t.Fatalf("Timeout = %v, want %v", cfg.Timeout, DefaultTimeout)
	}
	if cfg.AccessToken != "" || cfg.ProjectID != "" {
		t.Fatalf("credentials should stay empty, got %q/%q", cfg.AccessToken, cfg.ProjectID)
	}

	out, err := cfg.Transform([]byte(`{"a":"b"}`))
	if err != nil || string(out) != `{"a":"b"}` {
		t.Fatalf("default Transform = %q, %v; want identity", out, err)
	}
}

func TestConfigureKeepsProvidedValues(t *testing.T) {
	include := false
	upper := func(p []byte) ([]byte, error) { return []byte(strings.ToUpper(string(p))), nil }
	opts := Options{
		AccessToken:              "token",
		ProjectID:                "project",
		FileFormat:               "yml",
		FileExtension:            "yml",
		Location:                 "/tmp/out",
		FileNameTemplate:         "<name>_<tag>",
		Transform:                upper,
		Tag:                      "web",
		IncludeEmptyTranslations: &include,
		FormatOptions:            map[string]string{"omit_separator_space": "true"},
		BaseURL:                  "http://localhost:8080/v2",
		Concurrency:              5,
		Timeout:                  -1,
	}

	cfg := Configure(opts)
	if cfg.AccessToken != "token" || cfg.ProjectID != "project" {
		t.Fatalf("credentials = %q/%q", cfg.AccessToken, cfg.ProjectID)
	}
	if cfg.FileFormat != "yml" || cfg.FileExtension != "yml" || cfg.Location != "/tmp/out" {
		t.Fatalf("unexpected format fields: %#v", cfg)
	}
	if cfg.FileNameTemplate != "<name>_<tag>" || cfg.Tag != "web" {
		t.Fatalf("unexpected naming fields: %#v", cfg)
	}
	if cfg.Concurrency != 5 || cfg.Timeout != -1 || cfg.BaseURL != "http://localhost:8080/v2" {
		t.Fatalf("unexpected client fields: %#v", cfg)
	}
	if out, _ := cfg.Transform([]byte("ab")); string(out) != "AB" {
		t.Fatalf("Transform not kept, got %q", out)
	}

	include = true
	opts.FormatOptions["omit_separator_space"] = "false"
	if *cfg.IncludeEmptyTranslations {
		t.Fatal("Config shares IncludeEmptyTranslations with Options")
	}
	if cfg.FormatOptions["omit_separator_space"] != "true" {
		t.Fatal("Config shares FormatOptions with Options")
	}
}

func TestConfigureReturnsFreshConfig(t *testing.T) {
	opts := Options{FormatOptions: map[string]string{"a": "1"}}
	first := Configure(opts)
	second := Configure(opts)
	first.FormatOptions["a"] = "2"
	if second.FormatOptions["a"] != "1" {
		t.Fatal("Configure returned configs sharing state")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		opts    Options
		missing []string
	}{
		{name: "complete", opts: Options{AccessToken: "1", ProjectID: "1"}},
		{name: "no token", opts: Options{ProjectID: "1"}, missing: []string{"access_token"}},
		{name: "no project", opts: Options{AccessToken: "1"}, missing: []string{"project_id"}},
		{name: "blank both", opts: Options{AccessToken: " ", ProjectID: "\t"}, missing: []string{"access_token", "project_id"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.opts.Validate()
			if tc.missing == nil {
				if err != nil {
					t.Fatalf("Validate() error: %v", err)
				}
				return
			}

			var cerr *Error
			if !errors.As(err, &cerr) {
				t.Fatalf("Validate() error = %v, want *Error", err)
			}
			if !errors.Is(err, ErrMissingCredentials) {
				t.Fatalf("Validate() error = %v, want ErrMissingCredentials", err)
			}
			if !reflect.DeepEqual(cerr.Fields, tc.missing) {
				t.Fatalf("Fields = %v, want %v", cerr.Fields, tc.missing)
			}
		})
	}
}

func TestValidateProxy(t *testing.T) {
	ok := Options{AccessToken: "1", ProjectID: "1", Proxy: "http://proxy.local:3128"}
	if err := ok.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}

	bad := Options{AccessToken: "1", ProjectID: "1", Proxy: "proxy.local:3128"}
	err := bad.Validate()
	var cerr *Error
	if !errors.As(err, &cerr) {
		t.Fatalf("Validate() error = %v, want *Error", err)
	}
	if errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("Validate() error = %v, must not report missing credentials", err)
	}
	if !reflect.DeepEqual(cerr.Fields, []string{"proxy"}) {
		t.Fatalf("Fields = %v, want [proxy]", cerr.Fields)
	}
	if !strings.Contains(err.Error(), "proxy") {
		t.Fatalf("Error() = %q", err.Error())
	}
}

func TestDownloadParams(t *testing.T) {
	cfg := Configure(Options{Tag: "web", Branch: "main"})
	q := cfg.DownloadParams().Values()
	if q.Get("file_format") != "node_json" || q.Get("tag") != "web" || q.Get("branch") != "main" {
		t.Fatalf("unexpected params: %v", q)
	}
	if q.Has("encoding") || q.Has("include_empty_translations") {
		t.Fatalf("unset params sent: %v", q)
	}
}

func writeProjectFile(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, ProjectFileName), []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestLoadProjectFile(t *testing.T) {
	t.Run("missing file returns nil", func(t *testing.T) {
		pf, err := LoadProjectFile(t.TempDir())
		if err != nil {
			t.Fatalf("LoadProjectFile error: %v", err)
		}
		if pf != nil {
			t.Fatalf("LoadProjectFile expected nil, got %#v", pf)
		}
	})

	t.Run("empty file", func(t *testing.T) {
		dir := t.TempDir()
		writeProjectFile(t, dir, "")
		pf, err := LoadProjectFile(dir)
		if err != nil {
			t.Fatalf("LoadProjectFile error: %v", err)
		}
		if pf == nil || pf.ProjectID != "" {
			t.Fatalf("unexpected project file: %#v", pf)
		}
	})

	t.Run("reads settings", func(t *testing.T) {
		dir := t.TempDir()
		writeProjectFile(t, dir, "project_id: abc\n"+
			"file_format: i18next\n"+
			"file_extension: json\n"+
			"location: locales\n"+
			"file_name_template: <code>/translation\n"+
			"transform: indent\n"+
			"include_empty_translations: true\n"+
			"format_options:\n  nested: \"false\"\n"+
			"concurrency: 4\n"+
			"timeout: 30s\n")

		pf, err := LoadProjectFile(dir)
		if err != nil {
			t.Fatalf("LoadProjectFile error: %v", err)
		}
		if pf.Path() != filepath.Join(dir, ProjectFileName) {
			t.Fatalf("Path() = %q", pf.Path())
		}

		opts := pf.Options()
		if opts.ProjectID != "abc" || opts.FileFormat != "i18next" || opts.FileExtension != "json" {
			t.Fatalf("unexpected options: %#v", opts)
		}
		if opts.Location != filepath.Join(dir, "locales") {
			t.Fatalf("Location = %q, want %q", opts.Location, filepath.Join(dir, "locales"))
		}
		if opts.FileNameTemplate != "<code>/translation" {
			t.Fatalf("FileNameTemplate = %q", opts.FileNameTemplate)
		}
		if opts.IncludeEmptyTranslations == nil || !*opts.IncludeEmptyTranslations {
			t.Fatalf("IncludeEmptyTranslations = %v, want true", opts.IncludeEmptyTranslations)
		}
		if opts.FormatOptions["nested"] != "false" {
			t.Fatalf("FormatOptions = %v", opts.FormatOptions)
		}
		if opts.Concurrency != 4 || opts.Timeout != 30*time.Second {
			t.Fatalf("Concurrency/Timeout = %d/%v", opts.Concurrency, opts.Timeout)
		}
		out, err := opts.Transform([]byte(`{"a":"b"}`))
		if err != nil || string(out) != "{\n  \"a\": \"b\"\n}\n" {
			t.Fatalf("Transform = %q, %v; want indented JSON", out, err)
		}
	})

	t.Run("absolute location kept", func(t *testing.T) {
		dir := t.TempDir()
		abs := filepath.Join(t.TempDir(), "out")
		writeProjectFile(t, dir, "location: "+abs+"\n")
		pf, err := LoadProjectFile(dir)
		if err != nil {
			t.Fatalf("LoadProjectFile error: %v", err)
		}
		if pf.Location != abs {
			t.Fatalf("Location = %q, want %q", pf.Location, abs)
		}
	})

	errorCases := []struct {
		name    string
		content string
		want    string
	}{
		{name: "unknown key", content: "project_id: abc\nlocales_dir: po\n", want: "unsupported key"},
		{name: "unknown transform", content: "transform: upcase\n", want: "unknown transform"},
		{name: "negative concurrency", content: "concurrency: -1\n", want: "must not be negative"},
		{name: "bad timeout", content: "timeout: soon\n", want: "invalid timeout"},
		{name: "malformed yaml", content: "project_id: [\n", want: "parsing"},
	}
	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeProjectFile(t, dir, tc.content)
			_, err := LoadProjectFile(dir)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not contain %q", err, tc.want)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	include := true
	base := Options{ProjectID: "flag", Concurrency: 3}
	fallback := Options{
		AccessToken:              "file-token",
		ProjectID:                "file",
		FileFormat:               "yml",
		Concurrency:              8,
		Timeout:                  time.Second,
		IncludeEmptyTranslations: &include,
		FormatOptions:            map[string]string{"k": "v"},
	}

	got := Merge(base, fallback)
	if got.ProjectID != "flag" || got.Concurrency != 3 {
		t.Fatalf("Merge overwrote set fields: %#v", got)
	}
	if got.AccessToken != "file-token" || got.FileFormat != "yml" || got.Timeout != time.Second {
		t.Fatalf("Merge did not fill unset fields: %#v", got)
	}
	if got.IncludeEmptyTranslations != &include || got.FormatOptions["k"] != "v" {
		t.Fatalf("Merge did not fill optional filters: %#v", got)
	}
	if got.Transform != nil {
		t.Fatal("Merge invented a transform")
	}
}
