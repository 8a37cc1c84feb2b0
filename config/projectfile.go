package config

// .phrasepull.yaml project file support.
//
// The file keeps per-project settings next to the code that consumes the
// translations, so a plain `phrasepull pull` in that directory works
// without flags. Flags and environment variables still take precedence.

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/minios-linux/phrasepull/transform"
)

// ProjectFileName is the default project file name.
const ProjectFileName = ".phrasepull.yaml"

// ---------------------------------------------------------------------------
// YAML schema
// ---------------------------------------------------------------------------

// ProjectFile is the top-level .phrasepull.yaml structure.
type ProjectFile struct {
	// ProjectID is the PhraseApp project id.
	ProjectID string `yaml:"project_id"`
	// AccessToken is accepted for CI setups; prefer the environment or `auth login`.
	AccessToken string `yaml:"access_token,omitempty"`

	FileFormat       string `yaml:"file_format,omitempty"`
	FileExtension    string `yaml:"file_extension,omitempty"`
	Location         string `yaml:"location,omitempty"`
	FileNameTemplate string `yaml:"file_name_template,omitempty"`
	// Transform names a built-in transform (see package transform).
	Transform string `yaml:"transform,omitempty"`

	Tag                      string            `yaml:"tag,omitempty"`
	IncludeEmptyTranslations *bool             `yaml:"include_empty_translations,omitempty"`
	Encoding                 string            `yaml:"encoding,omitempty"`
	FallbackLocaleID         string            `yaml:"fallback_locale_id,omitempty"`
	Branch                   string            `yaml:"branch,omitempty"`
	FormatOptions            map[string]string `yaml:"format_options,omitempty"`

	BaseURL     string `yaml:"base_url,omitempty"`
	Concurrency int    `yaml:"concurrency,omitempty"`
	// Timeout is a Go duration string such as "30s".
	Timeout string `yaml:"timeout,omitempty"`

	path    string
	timeout time.Duration
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// LoadProjectFile loads and validates .phrasepull.yaml from the given directory.
// Returns nil if no project file exists.
func LoadProjectFile(dir string) (*ProjectFile, error) {
	path := filepath.Join(dir, ProjectFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var pf ProjectFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&pf); err != nil && !errors.Is(err, io.EOF) {
		if strings.Contains(err.Error(), "not found in type") {
			return nil, fmt.Errorf("parsing %s: unsupported key: %w", path, err)
		}
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	pf.path = path

	if pf.Location != "" && !filepath.IsAbs(pf.Location) {
		pf.Location = filepath.Join(dir, pf.Location)
	}
	if pf.Transform != "" {
		if _, err := transform.Lookup(pf.Transform); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	if pf.Concurrency < 0 {
		return nil, fmt.Errorf("%s: concurrency must not be negative, got %d", path, pf.Concurrency)
	}
	if pf.Timeout != "" {
		d, err := time.ParseDuration(pf.Timeout)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid timeout %q: %w", path, pf.Timeout, err)
		}
		pf.timeout = d
	}

	return &pf, nil
}

// Path returns the file the settings were loaded from.
func (pf *ProjectFile) Path() string {
	return pf.path
}

// Options converts the file into download options. The named transform
// has already been validated by LoadProjectFile.
func (pf *ProjectFile) Options() Options {
	opts := Options{
		AccessToken:              pf.AccessToken,
		ProjectID:                pf.ProjectID,
		FileFormat:               pf.FileFormat,
		FileExtension:            pf.FileExtension,
		Location:                 pf.Location,
		FileNameTemplate:         pf.FileNameTemplate,
		Tag:                      pf.Tag,
		IncludeEmptyTranslations: pf.IncludeEmptyTranslations,
		Encoding:                 pf.Encoding,
		FallbackLocaleID:         pf.FallbackLocaleID,
		Branch:                   pf.Branch,
		FormatOptions:            pf.FormatOptions,
		BaseURL:                  pf.BaseURL,
		Concurrency:              pf.Concurrency,
		Timeout:                  pf.timeout,
	}
	if pf.Transform != "" {
		fn, _ := transform.Lookup(pf.Transform)
		opts.Transform = fn
	}
	return opts
}

// Merge returns base with every field that is unset in base taken from
// fallback.
func Merge(base, fallback Options) Options {
	out := base
	setString := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	setString(&out.AccessToken, fallback.AccessToken)
	setString(&out.ProjectID, fallback.ProjectID)
	setString(&out.FileFormat, fallback.FileFormat)
	setString(&out.FileExtension, fallback.FileExtension)
	setString(&out.Location, fallback.Location)
	setString(&out.FileNameTemplate, fallback.FileNameTemplate)
	setString(&out.Tag, fallback.Tag)
	setString(&out.Encoding, fallback.Encoding)
	setString(&out.FallbackLocaleID, fallback.FallbackLocaleID)
	setString(&out.Branch, fallback.Branch)
	setString(&out.BaseURL, fallback.BaseURL)
	setString(&out.Proxy, fallback.Proxy)
	setString(&out.UserAgent, fallback.UserAgent)

	if out.Transform == nil {
		out.Transform = fallback.Transform
	}
	if out.IncludeEmptyTranslations == nil {
		out.IncludeEmptyTranslations = fallback.IncludeEmptyTranslations
	}
	if out.FormatOptions == nil {
		out.FormatOptions = fallback.FormatOptions
	}
	if out.Concurrency == 0 {
		out.Concurrency = fallback.Concurrency
	}
	if out.Timeout == 0 {
		out.Timeout = fallback.Timeout
	}
	return out
}
