// -----------------------------------------------------------------------
// Kapture CLI
// Startup order: flags -> config files -> flag overrides -> logger ->
// banner, then browser/storage wiring for the login|capture|batch commands
// -----------------------------------------------------------------------

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/kapture/internal/batch"
	"github.com/ternarybob/kapture/internal/browser"
	"github.com/ternarybob/kapture/internal/common"
	"github.com/ternarybob/kapture/internal/document"
	"github.com/ternarybob/kapture/internal/images"
	"github.com/ternarybob/kapture/internal/interfaces"
	"github.com/ternarybob/kapture/internal/models"
	"github.com/ternarybob/kapture/internal/pipeline"
	badgerstore "github.com/ternarybob/kapture/internal/storage/badger"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles  configPaths
	outputDir    = flag.String("out", "", "Output directory (overrides config)")
	headed       = flag.Bool("headed", false, "Run the browser with a visible window")
	minChars     = flag.Int("min-chars", 0, "Readiness threshold in visible characters (overrides config)")
	formats      = flag.String("formats", "", "Comma-separated export formats (overrides config)")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: kapture [flags] <command>

Commands:
  login [url]            Open the portal, wait for interactive SSO login, save the session
  capture <kb|url>...    Capture the given KB numbers or article URLs
  batch <file>           Capture every target in a CSV or YAML file
  version                Print version information

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("Kapture version %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}
	command := args[0]
	if command == "version" {
		fmt.Printf("Kapture version %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("kapture.toml"); err == nil {
			configFiles = append(configFiles, "kapture.toml")
		}
	}

	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	common.ApplyFlagOverrides(config, *outputDir, *headed, *minChars)
	if *formats != "" {
		parsed := []string{}
		for _, f := range strings.Split(*formats, ",") {
			if trimmed := strings.TrimSpace(f); trimmed != "" {
				parsed = append(parsed, trimmed)
			}
		}
		config.Capture.Formats = parsed
		if err := config.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Invalid -formats value: %v\n", err)
			os.Exit(2)
		}
	}
	if command == "login" {
		// Interactive login needs a window the user can see
		config.Browser.Headless = false
	}

	logger := common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	if err := run(command, args[1:], config, logger); err != nil {
		logger.Error().Err(err).Str("command", command).Msg("Command failed")
		os.Exit(1)
	}
}

func run(command string, args []string, config *common.Config, logger arbor.ILogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := badgerstore.NewBadgerDB(logger, &config.Storage.Badger)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	defer db.Close()
	sessions := badgerstore.NewSessionStorage(db, logger)
	results := badgerstore.NewResultStorage(db, logger)

	b := browser.NewBrowser(config.Browser, logger)
	if err := b.Start(ctx); err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	defer b.Stop()

	// Every page operation runs on the browser's tab context so chromedp
	// actions target the right session; cancellation still flows from ctx.
	tabCtx := b.Context()

	domain := siteDomain(config, args)
	restoreSession(ctx, tabCtx, b, sessions, domain, logger)

	var confirm interfaces.ConfirmationSource
	if !config.Browser.Headless {
		confirm = newStdinConfirmation()
	}
	session := browser.NewSession(confirm, config.Browser, config.Capture, logger)

	switch command {
	case "login":
		return runLogin(ctx, tabCtx, session, b, sessions, config, args, logger)
	case "capture", "batch":
		// handled below
	default:
		return fmt.Errorf("unknown command: %s", command)
	}

	resolverFor := func(rctx context.Context, baseURL string) document.ImageResolver {
		client, err := b.SessionClient(tabCtx, baseURL, config.Capture.ImageTimeout)
		if err != nil {
			logger.Warn().Err(err).Msg("Falling back to a cookie-less HTTP client for image downloads")
			client = &http.Client{Timeout: config.Capture.ImageTimeout}
		}
		return images.NewResolver(images.Config{
			Timeout:    config.Capture.ImageTimeout,
			MaxBytes:   config.Capture.ImageMaxBytes,
			RatePerSec: config.Capture.ImageRatePerSec,
			UserAgent:  config.Browser.UserAgent,
		}, client, session.Capturer(), logger)
	}

	p := pipeline.NewPipeline(session, resolverFor, config.Capture, logger)
	runner := batch.NewRunner(p, results, config.Batch, config.Capture.OutputDir, logger)

	var targets []models.Target
	switch command {
	case "capture":
		targets, err = batch.TargetsFromArgs(args, config.Batch)
	case "batch":
		if len(args) != 1 {
			return fmt.Errorf("batch needs exactly one target file")
		}
		targets, err = batch.LoadTargets(args[0], config.Batch)
	}
	if err != nil {
		return err
	}

	runOnce := func(runCtx context.Context) error {
		summary, runErr := runner.Run(runCtx, targets)
		if summary != nil {
			persistSession(runCtx, tabCtx, b, sessions, domain, config, logger)
		}
		return runErr
	}

	if command == "batch" && config.Batch.Schedule != "" {
		if err := runOnce(tabCtx); err != nil {
			return err
		}
		sched := batch.NewScheduler(logger)
		if err := sched.Start(config.Batch.Schedule, func() {
			if err := runOnce(tabCtx); err != nil {
				logger.Error().Err(err).Msg("Scheduled run failed")
			}
		}); err != nil {
			return err
		}
		logger.Info().Str("schedule", config.Batch.Schedule).Msg("Scheduler running, press Ctrl+C to stop")
		<-ctx.Done()
		sched.Stop()
		return nil
	}

	return runOnce(tabCtx)
}

// runLogin opens the portal, lets the user complete the SSO flow in the
// visible window, and persists the resulting cookies for later headless runs.
func runLogin(ctx, tabCtx context.Context, session *browser.Session, b *browser.Browser, sessions interfaces.SessionStorage, config *common.Config, args []string, logger arbor.ILogger) error {
	loginURL := config.Batch.BaseHost
	if len(args) > 0 {
		loginURL = args[0]
	}
	if loginURL == "" {
		return fmt.Errorf("no login URL: pass one as an argument or set batch.base_host")
	}

	finalURL, err := session.Open(tabCtx, loginURL)
	if err != nil {
		return fmt.Errorf("login did not complete: %w", err)
	}
	logger.Info().Str("url", finalURL).Msg("Login landed")

	domain := hostOf(loginURL)
	persistSession(ctx, tabCtx, b, sessions, domain, config, logger)
	return nil
}

// restoreSession replays previously saved cookies into the fresh browser so
// an earlier interactive login carries over.
func restoreSession(ctx, tabCtx context.Context, b *browser.Browser, sessions interfaces.SessionStorage, domain string, logger arbor.ILogger) {
	if domain == "" {
		return
	}
	state, err := sessions.GetSessionByDomain(ctx, domain)
	if err != nil {
		logger.Warn().Err(err).Str("domain", domain).Msg("Failed to load saved session")
		return
	}
	if state == nil {
		logger.Info().Str("domain", domain).Msg("No saved session, run 'kapture login' if the portal needs SSO")
		return
	}
	if err := b.ImportCookies(tabCtx, state.Cookies); err != nil {
		logger.Warn().Err(err).Str("domain", domain).Msg("Failed to restore saved session")
		return
	}
	logger.Info().
		Str("domain", domain).
		Int("cookies", len(state.Cookies)).
		Str("captured_at", state.CapturedAt.Format("2006-01-02 15:04:05")).
		Msg("Restored saved session")
}

// persistSession saves the browser's current cookies so the next run can
// skip the interactive login. Failures are logged, not fatal.
func persistSession(ctx, tabCtx context.Context, b *browser.Browser, sessions interfaces.SessionStorage, domain string, config *common.Config, logger arbor.ILogger) {
	if domain == "" {
		return
	}
	urls := []string{}
	if config.Batch.BaseHost != "" {
		urls = append(urls, config.Batch.BaseHost)
	} else {
		urls = append(urls, "https://"+domain)
	}
	cookies, err := b.ExportCookies(tabCtx, urls)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to export session cookies")
		return
	}
	if len(cookies) == 0 {
		return
	}
	// Keyed by domain so repeated logins overwrite rather than accumulate.
	state := &models.SessionState{
		ID:         domain,
		SiteDomain: domain,
		Cookies:    cookies,
		UserAgent:  config.Browser.UserAgent,
	}
	if err := sessions.StoreSession(ctx, state); err != nil {
		logger.Warn().Err(err).Str("domain", domain).Msg("Failed to save session")
		return
	}
	logger.Info().Str("domain", domain).Int("cookies", len(cookies)).Msg("Saved session")
}

// siteDomain decides which saved session applies to this run. The configured
// portal host wins; for ad-hoc URL captures the first URL argument decides.
func siteDomain(config *common.Config, args []string) string {
	if config.Batch.BaseHost != "" {
		return hostOf(config.Batch.BaseHost)
	}
	for _, arg := range args {
		if strings.Contains(arg, "/") {
			if h := hostOf(arg); h != "" {
				return h
			}
		}
	}
	return ""
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
