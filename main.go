// phrasepull downloads PhraseApp translations into local files, one per locale.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/minios-linux/phrasepull/config"
	"github.com/minios-linux/phrasepull/download"
	"github.com/minios-linux/phrasepull/i18n"
	"github.com/minios-linux/phrasepull/langmeta"
	"github.com/minios-linux/phrasepull/phraseapp"
	"github.com/minios-linux/phrasepull/settings"
	"github.com/minios-linux/phrasepull/transform"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	infoTag    = color.New(color.FgBlue)
	successTag = color.New(color.FgGreen)
	warnTag    = color.New(color.FgYellow, color.Bold)
	errorTag   = color.New(color.FgRed)
	headerTag  = color.New(color.FgBlue, color.Bold)
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, infoTag.Sprint("[INFO]")+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, successTag.Sprint("[OK]")+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, warnTag.Sprint("[WARN]")+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, errorTag.Sprint("[ERROR]")+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Global flag
// ---------------------------------------------------------------------------

var rootDir string

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "phrasepull",
		Short: "Download PhraseApp translations",
		Long: `phrasepull downloads the translations of a PhraseApp project, writing one
file per locale.

Commands:
  pull      Download every locale of the project
  locales   List the locales of the project
  auth      Manage stored access tokens

Settings are read from flags, PHRASEAPP_* environment variables,
.phrasepull.yaml in the project root and the token store, in that order.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&rootDir, "root", ".", "Project root directory")

	root.AddCommand(
		newPullCmd(),
		newLocalesCmd(),
		newAuthCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logError("%v", err)
		stop()
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "phrasepull version %s\n", version)
			fmt.Fprintf(out, "  commit:    %s\n", commit)
			fmt.Fprintf(out, "  built:     %s\n", date)
		},
	}
}

// ---------------------------------------------------------------------------
// Option resolution
// ---------------------------------------------------------------------------

// flagKeys maps command-line flags to option keys. Each key can also be set
// through PHRASEAPP_<KEY> (e.g. PHRASEAPP_ACCESS_TOKEN).
var flagKeys = map[string]string{
	"access-token":    "access_token",
	"project-id":      "project_id",
	"base-url":        "base_url",
	"proxy":           "proxy",
	"timeout":         "timeout",
	"format":          "file_format",
	"extension":       "file_extension",
	"output":          "location",
	"name-template":   "file_name_template",
	"transform":       "transform",
	"tag":             "tag",
	"include-empty":   "include_empty_translations",
	"encoding":        "encoding",
	"fallback-locale": "fallback_locale_id",
	"branch":          "branch",
	"concurrency":     "concurrency",
}

func addConnectionFlags(f *pflag.FlagSet) {
	f.String("access-token", "", "PhraseApp access token (or PHRASEAPP_ACCESS_TOKEN)")
	f.String("project-id", "", "PhraseApp project id (or PHRASEAPP_PROJECT_ID)")
	f.String("base-url", "", "API base URL (default "+phraseapp.DefaultBaseURL+")")
	f.String("proxy", "", "HTTP/HTTPS proxy URL")
	f.Duration("timeout", 0, "Request timeout (0 = 60s, negative disables)")
}

func addPullFlags(f *pflag.FlagSet) {
	addConnectionFlags(f)
	f.String("format", "", "PhraseApp file format (default "+config.DefaultFileFormat+")")
	f.String("extension", "", "Output file extension (default "+config.DefaultFileExtension+")")
	f.StringP("output", "o", "", "Output directory, relative to --root (default: --root)")
	f.String("name-template", "", "File name template, e.g. <code> or <lang>/<name> (default "+config.DefaultFileNameTemplate+")")
	f.String("transform", "", "Payload transform: "+strings.Join(transform.Names(), ", "))
	f.String("tag", "", "Only download keys with this tag")
	f.Bool("include-empty", false, "Include empty translations")
	f.String("encoding", "", "Output encoding, e.g. UTF-8")
	f.String("fallback-locale", "", "Locale id used for missing translations")
	f.String("branch", "", "Project branch")
	f.Int("concurrency", 0, "Maximum parallel downloads (default 2)")
	f.StringToString("format-option", nil, "Format option key=value (repeatable)")
	f.BoolP("verbose", "v", false, "Log every request")
}

// newOptionsViper binds the option flags present in f and the PHRASEAPP_*
// environment.
func newOptionsViper(f *pflag.FlagSet) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("PHRASEAPP")
	v.AutomaticEnv()
	for flag, key := range flagKeys {
		if fl := f.Lookup(flag); fl != nil {
			_ = v.BindPFlag(key, fl)
		}
	}
	return v
}

// resolveOptions builds download options from flags and environment, then
// fills the gaps from .phrasepull.yaml in root and the token store.
// The loaded project file is returned as well; it is nil when root has
// none.
func resolveOptions(v *viper.Viper, formatOptions map[string]string, root string) (config.Options, *config.ProjectFile, error) {
	opts := config.Options{
		AccessToken:      strings.TrimSpace(v.GetString("access_token")),
		ProjectID:        strings.TrimSpace(v.GetString("project_id")),
		FileFormat:       v.GetString("file_format"),
		FileExtension:    v.GetString("file_extension"),
		Location:         v.GetString("location"),
		FileNameTemplate: v.GetString("file_name_template"),
		Tag:              v.GetString("tag"),
		Encoding:         v.GetString("encoding"),
		FallbackLocaleID: v.GetString("fallback_locale_id"),
		Branch:           v.GetString("branch"),
		BaseURL:          v.GetString("base_url"),
		Proxy:            v.GetString("proxy"),
		Concurrency:      v.GetInt("concurrency"),
		Timeout:          v.GetDuration("timeout"),
		UserAgent:        "phrasepull/" + version,
	}
	if len(formatOptions) > 0 {
		opts.FormatOptions = formatOptions
	}
	if v.IsSet("include_empty_translations") {
		include := v.GetBool("include_empty_translations")
		opts.IncludeEmptyTranslations = &include
	}
	if name := v.GetString("transform"); name != "" {
		fn, err := transform.Lookup(name)
		if err != nil {
			return opts, nil, err
		}
		opts.Transform = fn
	}
	if opts.Location != "" && !filepath.IsAbs(opts.Location) {
		opts.Location = filepath.Join(root, opts.Location)
	}

	pf, err := config.LoadProjectFile(root)
	if err != nil {
		return opts, nil, err
	}
	if pf != nil {
		opts = config.Merge(opts, pf.Options())
	}

	if opts.AccessToken == "" {
		if info := settings.Get(opts.ProjectID); info != nil && info.Token != "" {
			opts.AccessToken = info.Token
			if opts.BaseURL == "" {
				opts.BaseURL = info.BaseURL
			}
		} else {
			opts.AccessToken = settings.Token(opts.ProjectID)
		}
	}
	if opts.Location == "" {
		opts.Location = root
	}
	return opts, pf, nil
}

// ---------------------------------------------------------------------------
// pull
// ---------------------------------------------------------------------------

func newPullCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Download the translations of every locale",
		Long: `Download the translation file of every locale in the project.

Locales are listed once, then downloaded at most --concurrency at a time.
A failing locale does not stop the others; the command exits with status 1
if any locale failed.

File name templates may use <id>, <code>, <name>, <tag> and <lang> from the
locale, and <project_id>, <file_format>, <tag>, <encoding>,
<fallback_locale_id> and <branch> from the settings.

Examples:
  phrasepull pull --project-id abc123 --access-token $TOKEN
  phrasepull pull --format i18next --extension json --transform indent -o locales
  phrasepull pull --name-template "<lang>/<code>" --format yml --extension yml`,
		Args: cobra.NoArgs,
	}

	addPullFlags(cmd.Flags())
	v := newOptionsViper(cmd.Flags())

	_ = cmd.RegisterFlagCompletionFunc("transform", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return transform.Names(), cobra.ShellCompDirectiveNoFileComp
	})

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		formatOptions, _ := cmd.Flags().GetStringToString("format-option")
		verbose, _ := cmd.Flags().GetBool("verbose")

		opts, pf, err := resolveOptions(v, formatOptions, rootDir)
		if err != nil {
			return err
		}
		if pf != nil {
			logInfo(i18n.T("Using settings from %s"), pf.Path())
		}
		return runPull(cmd.Context(), opts, verbose)
	}

	return cmd
}

func runPull(ctx context.Context, opts config.Options, verbose bool) error {
	var (
		mu        sync.Mutex
		succeeded int
		failed    int
		runErr    error
	)
	start := time.Now()

	err := download.InitializeWith(ctx, opts, func(err error) { runErr = err }, func(d *download.Downloader) {
		if verbose {
			d.OnLog = logInfo
		}
		cfg := d.Config()
		logInfo(i18n.T("Downloading project %s (%s) into %s"), cfg.ProjectID, cfg.FileFormat, cfg.Location)

		d.OnResult = func(r download.Result) {
			mu.Lock()
			defer mu.Unlock()
			if r.Err != nil {
				failed++
				logError("%s: %v", r.Locale, r.Err)
				return
			}
			succeeded++
			logSuccess("%s -> %s", r.Locale, r.Path)
		}
	})
	if err != nil {
		if errors.Is(err, config.ErrMissingCredentials) {
			logWarning(i18n.T("Set them with flags, PHRASEAPP_* variables, %s or 'phrasepull auth login'"), config.ProjectFileName)
		}
		return err
	}

	if runErr != nil {
		var lerr *download.LocaleListError
		if errors.As(runErr, &lerr) {
			if download.StatusCode(runErr) == http.StatusUnauthorized {
				logWarning(i18n.T("The access token was rejected"))
			}
			return runErr
		}
		return fmt.Errorf(i18n.N("%d locale failed", "%d locales failed", failed)+": %w", failed, runErr)
	}

	logSuccess(i18n.N("Downloaded %d locale in %s", "Downloaded %d locales in %s", succeeded),
		succeeded, time.Since(start).Round(time.Millisecond))
	return nil
}

// ---------------------------------------------------------------------------
// locales
// ---------------------------------------------------------------------------

func newLocalesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "locales",
		Short: "List the locales of the project",
		Args:  cobra.NoArgs,
	}

	addConnectionFlags(cmd.Flags())
	v := newOptionsViper(cmd.Flags())

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		opts, _, err := resolveOptions(v, nil, rootDir)
		if err != nil {
			return err
		}
		if err := opts.Validate(); err != nil {
			return err
		}

		d := download.New(config.Configure(opts))
		locales, err := d.FetchLocales(cmd.Context())
		if err != nil {
			return err
		}
		printLocaleTable(cmd.OutOrStdout(), locales)
		return nil
	}

	return cmd
}

// printLocaleTable writes one row per locale. The language column comes
// last because flags and native names have no fixed display width.
func printLocaleTable(w io.Writer, locales []phraseapp.Locale) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tID\tNAME\tDEFAULT\tLANGUAGE")
	for _, loc := range locales {
		def := ""
		if loc.Default {
			def = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", loc.Code, loc.ID, loc.Name, def, languageCell(loc.Code))
	}
	tw.Flush()
}

// languageCell shows the native name and flag of code. Unknown codes are
// shown as they are.
func languageCell(code string) string {
	if code == "" {
		return "-"
	}
	meta := langmeta.Resolve(code)
	if meta.Flag == "" {
		return meta.Name
	}
	return meta.Flag + " " + meta.Name
}

// ---------------------------------------------------------------------------
// auth
// ---------------------------------------------------------------------------

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage stored access tokens",
		Long: `Manage PhraseApp access tokens stored in the user data directory.

Tokens are stored per project id. A token stored without --project is the
default for every project.

Examples:
  phrasepull auth login                         Store the default token
  phrasepull auth login --project abc123        Store a token for one project
  phrasepull auth logout --project abc123       Remove one project's token
  phrasepull auth logout                        Remove all tokens
  phrasepull auth list                          Show stored tokens`,
	}

	cmd.AddCommand(
		newAuthLoginCmd(),
		newAuthLogoutCmd(),
		newAuthListCmd(),
	)

	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var project, token, baseURL string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				t, err := promptToken(cmd.InOrStdin(), project)
				if err != nil {
					return err
				}
				if t == "" {
					return nil
				}
				token = t
			}

			info := &settings.Info{Token: token, BaseURL: baseURL}
			if err := settings.Set(project, info); err != nil {
				return fmt.Errorf("saving token: %w", err)
			}
			logSuccess(i18n.T("Token saved for %s"), displayProject(project))
			return nil
		},
	}

	cmd.Flags().StringVar(&project, "project", "", "Project id (default: token for all projects)")
	cmd.Flags().StringVar(&token, "token", "", "Access token (prompted if omitted)")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "API base URL used with this token")

	return cmd
}

// promptToken reads a token from in. An empty answer keeps an existing
// token and returns "".
func promptToken(in io.Reader, project string) (string, error) {
	fmt.Fprintf(os.Stderr, "\n%s\n", headerTag.Sprint(i18n.T("PhraseApp Access Token")))
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	fmt.Fprintf(os.Stderr, "  %s\n\n", i18n.T("Create one at https://app.phrase.com/settings/oauth_access_tokens"))

	existing := settings.Get(project)
	if existing != nil && existing.Token != "" {
		fmt.Fprintf(os.Stderr, "  %s %s\n", i18n.T("Current token:"), warnTag.Sprint(settings.MaskKey(existing.Token)))
		fmt.Fprint(os.Stderr, "  "+i18n.T("Enter new token to replace, or press Enter to keep: "))
	} else {
		fmt.Fprint(os.Stderr, "  "+i18n.T("Enter access token: "))
	}

	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return "", errors.New(i18n.T("no input received"))
	}
	token := strings.TrimSpace(scanner.Text())
	if token == "" {
		if existing != nil {
			logInfo(i18n.T("Keeping existing token"))
			return "", nil
		}
		return "", errors.New(i18n.T("no access token provided"))
	}
	return token, nil
}

func newAuthLogoutCmd() *cobra.Command {
	var project string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Remove stored tokens",
		Long: `Remove the token of one project, or every stored token when --project
is not given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if project != "" {
				if err := settings.Remove(project); err != nil {
					return fmt.Errorf("removing token: %w", err)
				}
				logSuccess(i18n.T("Token removed for %s"), project)
				return nil
			}
			if err := settings.RemoveAll(); err != nil {
				return err
			}
			logSuccess(i18n.T("All stored tokens removed"))
			return nil
		},
	}

	cmd.Flags().StringVar(&project, "project", "", "Project id (default: all)")
	_ = cmd.RegisterFlagCompletionFunc("project", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return settings.Load().Projects(), cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func newAuthListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show stored tokens",
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.ErrOrStderr()
			fmt.Fprintf(w, "\n%s\n", headerTag.Sprint(i18n.T("Stored Tokens")))
			fmt.Fprintln(w, strings.Repeat("─", 60))

			store := settings.Load()
			if len(store) == 0 {
				fmt.Fprintf(w, "  %s\n", errorTag.Sprint(i18n.T("none")))
			}
			for _, project := range store.Projects() {
				info := store[project]
				line := fmt.Sprintf("  %-20s %s", project, successTag.Sprint(settings.MaskKey(info.Token)))
				if info.Saved > 0 {
					line += "  " + time.Unix(info.Saved, 0).Format("2006-01-02")
				}
				if info.BaseURL != "" {
					line += "  " + info.BaseURL
				}
				fmt.Fprintln(w, line)
			}

			fmt.Fprintf(w, "\n  %s\n", warnTag.Sprint(i18n.T("Environment Variables")))
			if env := os.Getenv("PHRASEAPP_ACCESS_TOKEN"); env != "" {
				fmt.Fprintf(w, "  PHRASEAPP_ACCESS_TOKEN: %s %s\n", successTag.Sprint(settings.MaskKey(env)), i18n.T("(overrides stored tokens)"))
			} else {
				fmt.Fprintf(w, "  PHRASEAPP_ACCESS_TOKEN: %s\n", errorTag.Sprint(i18n.T("not set")))
			}
			fmt.Fprintf(w, "\n  %s %s\n\n", i18n.T("File:"), settings.FilePath())
		},
	}
}

func displayProject(project string) string {
	if project == "" {
		return settings.DefaultProject
	}
	return project
}
