// Package download fetches every locale of a PhraseApp project and writes
// one translation file per locale.
//
// The flow is: list the project's locales once, then download each
// locale's translations with a bounded number of requests in flight,
// transform the payload, and write it to the output directory under a
// name rendered from the file-name template.
//
// A failing locale does not stop the others. The run fails with the first
// error recorded once every dispatched download has finished.
package download

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/minios-linux/phrasepull/config"
	"github.com/minios-linux/phrasepull/phraseapp"
)

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

// LocaleListError reports a failed locale listing. No downloads are
// attempted after it.
type LocaleListError struct {
	ProjectID string
	Err       error
}

func (e *LocaleListError) Error() string {
	return fmt.Sprintf("listing locales of project %s: %v", e.ProjectID, e.Err)
}

func (e *LocaleListError) Unwrap() error { return e.Err }

// TranslationDownloadError reports a failed download, transform or write
// for one locale.
type TranslationDownloadError struct {
	Locale phraseapp.Locale
	Err    error
}

func (e *TranslationDownloadError) Error() string {
	return fmt.Sprintf("downloading %s: %v", e.Locale, e.Err)
}

func (e *TranslationDownloadError) Unwrap() error { return e.Err }

// ErrUnsafeFileName is returned when a rendered file name would be written
// outside the output directory.
var ErrUnsafeFileName = errors.New("file name escapes the output directory")

// StatusCode returns the HTTP status of a failed API call wrapped in err,
// or 0 if err carries none.
func StatusCode(err error) int {
	var se *phraseapp.StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// ---------------------------------------------------------------------------
// Downloader
// ---------------------------------------------------------------------------

// Result is the outcome of one locale's download.
type Result struct {
	Locale phraseapp.Locale
	// Path is the written file; empty on failure.
	Path string
	Err  error
}

// API is the part of the PhraseApp client the downloader uses.
type API interface {
	ListLocales(ctx context.Context, projectID string) ([]phraseapp.Locale, error)
	DownloadLocale(ctx context.Context, projectID, localeID string, params phraseapp.DownloadParams) ([]byte, error)
}

// Downloader runs the fetch-and-write steps for one resolved Config.
type Downloader struct {
	cfg config.Config
	api API

	// OnResult is called once per locale as soon as its download finishes
	// or is skipped because ctx was cancelled.
	// It may be called from several goroutines at once.
	OnResult func(Result)
	// OnLog emits progress messages.
	OnLog func(format string, args ...any)
	// OnError emits error messages.
	OnError func(format string, args ...any)
}

// New creates a Downloader talking to the API described by cfg.
func New(cfg config.Config) *Downloader {
	return NewWithAPI(cfg, phraseapp.NewClient(cfg.AccessToken, cfg.ClientOptions()))
}

// NewWithAPI creates a Downloader using api instead of a real client.
func NewWithAPI(cfg config.Config, api API) *Downloader {
	return &Downloader{cfg: cfg, api: api}
}

// Config returns the configuration the downloader was built with.
func (d *Downloader) Config() config.Config {
	return d.cfg
}

func (d *Downloader) log(format string, args ...any) {
	if d.OnLog != nil {
		d.OnLog(format, args...)
	}
}

func (d *Downloader) logError(format string, args ...any) {
	if d.OnError != nil {
		d.OnError(format, args...)
	} else if d.OnLog != nil {
		d.OnLog(format, args...)
	}
}

// FetchLocales lists the project's locales in API order.
func (d *Downloader) FetchLocales(ctx context.Context) ([]phraseapp.Locale, error) {
	locales, err := d.api.ListLocales(ctx, d.cfg.ProjectID)
	if err != nil {
		d.logError("An error occurred when fetching locales: %v", err)
		return nil, &LocaleListError{ProjectID: d.cfg.ProjectID, Err: err}
	}
	return locales, nil
}

// DownloadTranslationFile downloads one locale, applies the transform and
// writes the result. It returns the path of the written file.
func (d *Downloader) DownloadTranslationFile(ctx context.Context, loc phraseapp.Locale) (string, error) {
	fail := func(err error) (string, error) {
		return "", &TranslationDownloadError{Locale: loc, Err: err}
	}

	localeID := loc.ID
	if localeID == "" {
		localeID = loc.Code
	}
	if localeID == "" {
		return fail(errors.New("locale has neither id nor code"))
	}

	path, err := d.OutputPath(loc)
	if err != nil {
		return fail(err)
	}

	payload, err := d.api.DownloadLocale(ctx, d.cfg.ProjectID, localeID, d.cfg.DownloadParams())
	if err != nil {
		return fail(err)
	}

	transform := d.cfg.Transform
	if transform == nil {
		transform = config.Identity
	}
	content, err := transform(payload)
	if err != nil {
		return fail(fmt.Errorf("transforming payload: %w", err))
	}

	if err := writeFileAtomic(path, content); err != nil {
		return fail(err)
	}
	return path, nil
}

// OutputPath returns the file a locale is written to. Locale fields come
// from the API, so a rendered name that is absolute or climbs out of the
// output directory is rejected with ErrUnsafeFileName.
func (d *Downloader) OutputPath(loc phraseapp.Locale) (string, error) {
	name := RenderFileName(d.cfg.FileNameTemplate, loc, d.cfg)
	if d.cfg.FileExtension != "" {
		name += "." + d.cfg.FileExtension
	}
	if !filepath.IsLocal(name) {
		return "", fmt.Errorf("%w: %q", ErrUnsafeFileName, name)
	}
	return filepath.Join(d.cfg.Location, name), nil
}

// Download lists the locales and downloads all of them, at most
// cfg.Concurrency at a time. It returns nil only if every locale
// succeeded; otherwise the first error recorded.
func (d *Downloader) Download(ctx context.Context) error {
	locales, err := d.FetchLocales(ctx)
	if err != nil {
		return err
	}
	d.log("Got %d locales", len(locales))

	_, err = d.DownloadLocales(ctx, locales)
	return err
}

// DownloadLocales downloads the given locales with bounded concurrency
// and returns the per-locale results in input order. A failure does not
// cancel other downloads; cancelling ctx stops further dispatch.
func (d *Downloader) DownloadLocales(ctx context.Context, locales []phraseapp.Locale) ([]Result, error) {
	limit := d.cfg.Concurrency
	if limit <= 0 {
		limit = config.DefaultConcurrency
	}

	results := make([]Result, len(locales))

	var g errgroup.Group
	g.SetLimit(limit)

	for i, loc := range locales {
		if ctx.Err() != nil {
			results[i] = Result{Locale: loc, Err: &TranslationDownloadError{Locale: loc, Err: ctx.Err()}}
			if d.OnResult != nil {
				d.OnResult(results[i])
			}
			continue
		}
		g.Go(func() error {
			path, err := d.DownloadTranslationFile(ctx, loc)
			res := Result{Locale: loc, Path: path, Err: err}
			results[i] = res

			if err != nil {
				d.logError("Error downloading %s: %v", loc, err)
			} else {
				d.log("Translation for %s downloaded successfully", loc)
			}
			if d.OnResult != nil {
				d.OnResult(res)
			}
			return err
		})
	}

	err := g.Wait()
	if err == nil {
		for _, r := range results {
			if r.Err != nil {
				err = r.Err
				break
			}
		}
	}
	return results, err
}

// writeFileAtomic writes data to a temporary file next to path and
// renames it into place, so a failed write leaves no partial file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temporary file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Entry point
// ---------------------------------------------------------------------------

// Initialize validates opts, resolves the configuration and downloads every
// locale. Missing required options are returned as a *config.Error before
// any network activity, and done is not called.
//
// Otherwise done is called exactly once with the aggregate result. When done
// is nil, a failed run panics with the error.
func Initialize(ctx context.Context, opts config.Options, done func(error)) error {
	return InitializeWith(ctx, opts, done, nil)
}

// InitializeWith is Initialize with a hook to adjust the Downloader (for
// callbacks or a substitute API) before the run starts.
func InitializeWith(ctx context.Context, opts config.Options, done func(error), setup func(*Downloader)) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	if done == nil {
		done = func(err error) {
			if err != nil {
				panic(err)
			}
		}
	}

	d := New(config.Configure(opts))
	if setup != nil {
		setup(d)
	}
	done(d.Download(ctx))
	return nil
}
