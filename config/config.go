// Package config resolves the options of a download run into a fully
// populated, immutable Config.
//
// Configure never fails: it only fills defaults. Checking that the access
// token and project id are present is the job of Validate, which the
// download entry point calls before any network activity.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/minios-linux/phrasepull/phraseapp"
)

// Defaults applied by Configure.
const (
	DefaultFileFormat       = "node_json"
	DefaultFileExtension    = "js"
	DefaultFileNameTemplate = "<code>"
	DefaultConcurrency      = 2
	DefaultTimeout          = 60 * time.Second
)

// TransformFunc turns a downloaded payload into the content that is written.
type TransformFunc func(payload []byte) ([]byte, error)

// Identity is the default transform. It returns the payload unchanged.
func Identity(payload []byte) ([]byte, error) {
	return payload, nil
}

// Options is the caller's input. Zero values mean "not set".
type Options struct {
	// AccessToken authenticates every API request (required).
	AccessToken string
	// ProjectID selects the PhraseApp project (required).
	ProjectID string

	// FileFormat is the PhraseApp file_format (default "node_json").
	FileFormat string
	// FileExtension is appended to every output file name (default "js").
	FileExtension string
	// Location is the output directory (default: current working directory).
	Location string
	// FileNameTemplate names each output file (default "<code>").
	FileNameTemplate string
	// Transform is applied to each payload before writing (default Identity).
	Transform TransformFunc

	// Optional download filters, forwarded only when set.
	Tag                      string
	IncludeEmptyTranslations *bool
	Encoding                 string
	FallbackLocaleID         string
	Branch                   string
	FormatOptions            map[string]string

	// BaseURL is the API root (default phraseapp.DefaultBaseURL).
	BaseURL string
	// Concurrency bounds in-flight downloads (default 2).
	Concurrency int
	// Timeout is the per-request timeout (default 60s, negative disables).
	Timeout time.Duration
	// Proxy is an explicit proxy URL (default: from environment).
	Proxy string
	// UserAgent overrides the client's User-Agent header.
	UserAgent string
}

// Config is the resolved configuration of one run. Build it with Configure.
type Config struct {
	AccessToken string
	ProjectID   string

	FileFormat       string
	FileExtension    string
	Location         string
	FileNameTemplate string
	Transform        TransformFunc

	Tag                      string
	IncludeEmptyTranslations *bool
	Encoding                 string
	FallbackLocaleID         string
	Branch                   string
	FormatOptions            map[string]string

	BaseURL     string
	Concurrency int
	Timeout     time.Duration
	Proxy       string
	UserAgent   string
}

// Configure merges opts with the defaults. Fields set in opts are kept
// unchanged; a new Config is returned on every call.
func Configure(opts Options) Config {
	cfg := Config{
		AccessToken:      opts.AccessToken,
		ProjectID:        opts.ProjectID,
		FileFormat:       opts.FileFormat,
		FileExtension:    opts.FileExtension,
		Location:         opts.Location,
		FileNameTemplate: opts.FileNameTemplate,
		Transform:        opts.Transform,
		Tag:              opts.Tag,
		Encoding:         opts.Encoding,
		FallbackLocaleID: opts.FallbackLocaleID,
		Branch:           opts.Branch,
		BaseURL:          opts.BaseURL,
		Concurrency:      opts.Concurrency,
		Timeout:          opts.Timeout,
		Proxy:            opts.Proxy,
		UserAgent:        opts.UserAgent,
	}

	if opts.IncludeEmptyTranslations != nil {
		v := *opts.IncludeEmptyTranslations
		cfg.IncludeEmptyTranslations = &v
	}
	if len(opts.FormatOptions) > 0 {
		cfg.FormatOptions = make(map[string]string, len(opts.FormatOptions))
		for k, v := range opts.FormatOptions {
			cfg.FormatOptions[k] = v
		}
	}

	if cfg.FileFormat == "" {
		cfg.FileFormat = DefaultFileFormat
	}
	if cfg.FileExtension == "" {
		cfg.FileExtension = DefaultFileExtension
	}
	if cfg.Location == "" {
		if wd, err := os.Getwd(); err == nil {
			cfg.Location = wd
		} else {
			cfg.Location = "."
		}
	}
	if cfg.FileNameTemplate == "" {
		cfg.FileNameTemplate = DefaultFileNameTemplate
	}
	if cfg.Transform == nil {
		cfg.Transform = Identity
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = phraseapp.DefaultBaseURL
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return cfg
}

// ErrMissingCredentials is wrapped by the Error returned from Validate.
var ErrMissingCredentials = errors.New("must supply a value for access_token and project_id")

// Error is a configuration error detected before any network activity.
type Error struct {
	// Fields lists the missing or invalid option names.
	Fields []string
	Err    error
}

func (e *Error) Error() string {
	if errors.Is(e.Err, ErrMissingCredentials) {
		return fmt.Sprintf("configuration: %v (missing: %s)", e.Err, strings.Join(e.Fields, ", "))
	}
	return fmt.Sprintf("configuration: %s: %v", strings.Join(e.Fields, ", "), e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Validate checks that the required options are present and that an
// explicit proxy URL parses.
func (o Options) Validate() error {
	var missing []string
	if strings.TrimSpace(o.AccessToken) == "" {
		missing = append(missing, "access_token")
	}
	if strings.TrimSpace(o.ProjectID) == "" {
		missing = append(missing, "project_id")
	}
	if len(missing) > 0 {
		return &Error{Fields: missing, Err: ErrMissingCredentials}
	}
	if o.Proxy != "" {
		if _, err := phraseapp.ParseProxy(o.Proxy); err != nil {
			return &Error{Fields: []string{"proxy"}, Err: err}
		}
	}
	return nil
}

// DownloadParams returns the query parameters of a locale download.
func (c Config) DownloadParams() phraseapp.DownloadParams {
	return phraseapp.DownloadParams{
		FileFormat:               c.FileFormat,
		Tag:                      c.Tag,
		IncludeEmptyTranslations: c.IncludeEmptyTranslations,
		Encoding:                 c.Encoding,
		FallbackLocaleID:         c.FallbackLocaleID,
		Branch:                   c.Branch,
		FormatOptions:            c.FormatOptions,
	}
}

// ClientOptions returns the API client settings of this configuration.
func (c Config) ClientOptions() phraseapp.ClientOptions {
	return phraseapp.ClientOptions{
		BaseURL:   c.BaseURL,
		Timeout:   c.Timeout,
		Proxy:     c.Proxy,
		UserAgent: c.UserAgent,
	}
}
