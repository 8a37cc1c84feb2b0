// Package phraseapp implements the two PhraseApp v2 API calls phrasepull
// needs: listing the locales of a project and downloading the translation
// file of one locale.
//
// Authentication is the access_token query parameter. The client performs
// exactly one request per call; there is no retry, rate limiting or
// pagination.
package phraseapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

// DefaultBaseURL is the PhraseApp v2 API root.
const DefaultBaseURL = "https://api.phraseapp.com/v2"

// DefaultUserAgent is sent with every request unless overridden.
const DefaultUserAgent = "phrasepull"

// ---------------------------------------------------------------------------
// API types
// ---------------------------------------------------------------------------

// LocaleRef is the short locale form used for source_locale.
type LocaleRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

// Locale is one entry of the locale listing.
type Locale struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Code         string     `json:"code"`
	Tag          string     `json:"tag,omitempty"`
	Default      bool       `json:"default"`
	Main         bool       `json:"main"`
	RTL          bool       `json:"rtl"`
	PluralForms  []string   `json:"plural_forms,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	SourceLocale *LocaleRef `json:"source_locale"`
}

// String returns the locale code, or the id when the code is empty.
func (l Locale) String() string {
	if l.Code != "" {
		return l.Code
	}
	return l.ID
}

// StatusError is returned when the API answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	// Body is the beginning of the response body, for diagnostics.
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("API returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("API returned status %d: %s", e.StatusCode, e.Body)
}

// ---------------------------------------------------------------------------
// Client
// ---------------------------------------------------------------------------

// ClientOptions configures a Client. Zero values select defaults.
type ClientOptions struct {
	// BaseURL is the API root (default DefaultBaseURL).
	BaseURL string
	// Timeout is the per-request timeout. Zero or negative disables it.
	Timeout time.Duration
	// Proxy is an explicit proxy URL. Empty uses HTTP(S)_PROXY from the environment.
	Proxy string
	// UserAgent overrides DefaultUserAgent.
	UserAgent string
	// HTTPClient replaces the client built from Timeout and Proxy.
	HTTPClient *http.Client
}

// Client talks to the PhraseApp v2 API with a single access token.
type Client struct {
	baseURL    string
	token      string
	userAgent  string
	httpClient *http.Client
}

// NewClient creates a client authenticating with accessToken.
func NewClient(accessToken string, opts ClientOptions) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = makeHTTPClient(opts.Proxy, opts.Timeout)
	}
	return &Client{
		baseURL:    baseURL,
		token:      accessToken,
		userAgent:  ua,
		httpClient: hc,
	}
}

// ParseProxy parses an explicit proxy URL. Scheme and host are required.
func ParseProxy(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid proxy URL %q: scheme and host are required", raw)
	}
	return u, nil
}

// makeHTTPClient builds a client honoring an explicit proxy or the
// proxy environment variables. An invalid explicit proxy fails every
// request instead of falling back to a direct connection.
func makeHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if proxyURL != "" {
		parsed, err := ParseProxy(proxyURL)
		if err != nil {
			transport.Proxy = func(*http.Request) (*url.URL, error) { return nil, err }
		} else {
			transport.Proxy = http.ProxyURL(parsed)
		}
	} else {
		transport.Proxy = http.ProxyFromEnvironment
	}

	if timeout < 0 {
		timeout = 0
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// ListLocales returns the locales of a project in API order.
func (c *Client) ListLocales(ctx context.Context, projectID string) ([]Locale, error) {
	endpoint := c.endpoint(url.Values{}, "projects", projectID, "locales")

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var locales []Locale
	if err := json.Unmarshal(body, &locales); err != nil {
		return nil, fmt.Errorf("parsing locale list: %w", err)
	}
	return locales, nil
}

// DownloadParams are the query parameters of a locale download besides
// the access token. Empty fields are not sent.
type DownloadParams struct {
	FileFormat               string
	Tag                      string
	IncludeEmptyTranslations *bool
	Encoding                 string
	FallbackLocaleID         string
	Branch                   string
	FormatOptions            map[string]string
}

// Values encodes the parameters as query values.
func (p DownloadParams) Values() url.Values {
	q := url.Values{}
	if p.FileFormat != "" {
		q.Set("file_format", p.FileFormat)
	}
	if p.Tag != "" {
		q.Set("tag", p.Tag)
	}
	if p.IncludeEmptyTranslations != nil {
		q.Set("include_empty_translations", fmt.Sprint(*p.IncludeEmptyTranslations))
	}
	if p.Encoding != "" {
		q.Set("encoding", p.Encoding)
	}
	if p.FallbackLocaleID != "" {
		q.Set("fallback_locale_id", p.FallbackLocaleID)
	}
	if p.Branch != "" {
		q.Set("branch", p.Branch)
	}
	for k, v := range p.FormatOptions {
		q.Set("format_options["+k+"]", v)
	}
	return q
}

// DownloadURL returns the download endpoint for one locale, including
// the access token.
func (c *Client) DownloadURL(projectID, localeID string, params DownloadParams) string {
	return c.endpoint(params.Values(), "projects", projectID, "locales", localeID, "download")
}

// DownloadLocale fetches the raw translation payload of one locale.
func (c *Client) DownloadLocale(ctx context.Context, projectID, localeID string, params DownloadParams) ([]byte, error) {
	return c.get(ctx, c.DownloadURL(projectID, localeID, params))
}

// endpoint joins escaped path segments onto the base URL and appends the
// access token to q.
func (c *Client) endpoint(q url.Values, segments ...string) string {
	var b strings.Builder
	b.WriteString(c.baseURL)
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	q.Set("access_token", c.token)
	b.WriteByte('?')
	b.WriteString(q.Encode())
	return b.String()
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var uerr *url.Error
		if errors.As(err, &uerr) {
			uerr.URL = c.redact(uerr.URL)
		}
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(strings.TrimSpace(string(body)), 200)}
	}
	return body, nil
}

// redact hides the access token in URLs that end up in error messages.
func (c *Client) redact(s string) string {
	u, err := url.Parse(s)
	if err != nil {
		return s
	}
	q := u.Query()
	if q.Has("access_token") {
		q.Set("access_token", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// truncate cuts s to at most maxLen bytes without splitting a rune.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
