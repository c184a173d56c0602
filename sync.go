package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gosuri/uitable"
	"github.com/juju/collections/set"
	"github.com/juju/naturalsort"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/minios-linux/lprojsync/config"
	"github.com/minios-linux/lprojsync/discover"
	"github.com/minios-linux/lprojsync/engine"
	"github.com/minios-linux/lprojsync/i18n"
	"github.com/minios-linux/lprojsync/langmeta"
	"github.com/minios-linux/lprojsync/lockfile"
	"github.com/minios-linux/lprojsync/report"
	"github.com/minios-linux/lprojsync/settings"
	"github.com/minios-linux/lprojsync/stringsfile"
	"github.com/minios-linux/lprojsync/translate"
)

// syncOptions holds the flags shared by sync and status, merged with the
// project file by applyConfig.
type syncOptions struct {
	// Selection
	baseLang string
	files    []string
	keys     []string
	langs    []string
	override bool
	lock     bool

	// Sync behavior
	formatBase bool
	dryRun     bool
	level      report.Level
	onError    engine.GatewayPolicy

	// Provider
	provider     string
	model        string
	apiKey       string
	baseURL      string
	proxy        string
	prompt       string
	timeout      time.Duration
	maxRetries   int
	requestDelay time.Duration

	cfg *config.File
}

func newSyncOptions() *syncOptions {
	return &syncOptions{
		baseLang:   engine.DefaultBaseLang,
		level:      report.DefaultLevel,
		onError:    engine.SkipTarget,
		provider:   translate.ProviderGoogleTranslate,
		maxRetries: 3,
	}
}

func (o *syncOptions) addSelectionFlags(flags *pflag.FlagSet) {
	flags.StringVar(&o.baseLang, "base-lang", o.baseLang, "Base language for groups without Base.lproj")
	flags.StringSliceVar(&o.files, "file", nil, "Only these files, by name without .strings (repeatable)")
	flags.StringSliceVar(&o.keys, "key", nil, "Only these keys (repeatable)")
	flags.StringSliceVar(&o.langs, "lang", nil, "Only these target languages (repeatable)")
	flags.BoolVar(&o.override, "override", false, "Re-translate keys the targets already have")
	flags.BoolVar(&o.lock, "lock", false, "Re-translate keys whose base value changed (uses "+lockfile.LockFileName+")")
}

func (o *syncOptions) addSyncFlags(flags *pflag.FlagSet) {
	flags.BoolVar(&o.formatBase, "format-base", false, "Rewrite base files in canonical form")
	flags.BoolVar(&o.dryRun, "dry-run", false, "Show pending keys without translating or writing")
	flags.Var(&o.level, "log-level", "Verbosity: "+strings.Join(report.LevelNames(), ", "))
	flags.Var(&o.onError, "on-error", "Translation failure policy: "+strings.Join(engine.PolicyNames(), ", "))

	flags.StringVar(&o.provider, "provider", o.provider, "Translation provider: "+strings.Join(translate.ProviderIDs(), ", "))
	flags.StringVar(&o.model, "model", "", "Model name (AI providers)")
	flags.StringVar(&o.apiKey, "api-key", "", "API key (or "+settings.EnvAPIKey+" env var)")
	flags.StringVar(&o.baseURL, "base-url", "", "Custom API base URL")
	flags.StringVar(&o.proxy, "proxy", "", "HTTP/HTTPS proxy URL")
	flags.StringVar(&o.prompt, "prompt", "", "Custom system prompt ({{sourceLang}} and {{targetLang}} placeholders)")
	flags.DurationVar(&o.timeout, "timeout", 0, "Request timeout (0 = provider default)")
	flags.IntVar(&o.maxRetries, "max-retries", o.maxRetries, "Maximum retries on rate limit (429) and server errors")
	flags.DurationVar(&o.requestDelay, "request-delay", 0, "Minimum delay between translation requests")
}

// applyConfig fills every option whose flag was not given on the command
// line from the project file.
func (o *syncOptions) applyConfig(cfg *config.File, flags *pflag.FlagSet) {
	o.cfg = cfg

	if !flags.Changed("base-lang") {
		o.baseLang = cfg.BaseLang
	}
	if !flags.Changed("file") {
		o.files = cfg.Files
	}
	if !flags.Changed("key") {
		o.keys = cfg.Keys
	}
	if !flags.Changed("lang") {
		o.langs = cfg.Languages
	}
	if !flags.Changed("override") {
		o.override = cfg.Override
	}
	if !flags.Changed("lock") {
		o.lock = cfg.Lock
	}
	if !flags.Changed("format-base") {
		o.formatBase = cfg.FormatBase
	}
	if !flags.Changed("log-level") {
		o.level = cfg.Level()
	}
	if !flags.Changed("on-error") {
		o.onError = cfg.Policy()
	}
	if !flags.Changed("provider") {
		o.provider = cfg.Provider.ID
	}
	if !flags.Changed("prompt") {
		o.prompt = cfg.Provider.Prompt
	}
	if !flags.Changed("max-retries") && cfg.Provider.MaxRetries > 0 {
		o.maxRetries = cfg.Provider.MaxRetries
	}
	if !flags.Changed("request-delay") {
		o.requestDelay = time.Duration(cfg.Provider.RequestDelay)
	}
}

func (o *syncOptions) filter() discover.Filter {
	return discover.Filter{
		Files:     set.NewStrings(o.files...),
		Languages: set.NewStrings(o.langs...),
		BaseLang:  o.baseLang,
	}
}

func (o *syncOptions) engineOptions(lock *lockfile.LockFile) engine.Options {
	return engine.Options{
		BaseLang:       o.baseLang,
		Override:       o.override,
		FormatBase:     o.formatBase,
		DryRun:         o.dryRun,
		Keys:           set.NewStrings(o.keys...),
		OnGatewayError: o.onError,
		Lock:           lock,
		Root:           rootDir,
	}
}

// resolveProvider builds the provider from the built-in defaults, the
// project file (when it names the same provider) and the flags, in that
// order. The API key comes from the flag, the environment or the store.
func (o *syncOptions) resolveProvider() (translate.Provider, error) {
	id := strings.ToLower(o.provider)

	var prov translate.Provider
	if o.cfg != nil && o.cfg.Provider.ID == id {
		prov = o.cfg.TranslateProvider()
	} else {
		p, ok := translate.DefaultProviders()[id]
		if !ok {
			return prov, fmt.Errorf("unknown provider %q (want one of %s)",
				o.provider, strings.Join(translate.ProviderIDs(), ", "))
		}
		prov = p
	}

	if o.model != "" {
		prov.Model = o.model
	}
	if o.baseURL != "" {
		prov.BaseURL = o.baseURL
	} else if prov.ID == translate.ProviderCustomOpenAI && prov.BaseURL == "" {
		prov.BaseURL = settings.GetBaseURL(prov.ID)
	}
	if o.proxy != "" {
		prov.Proxy = o.proxy
	}
	if o.timeout > 0 {
		prov.Timeout = o.timeout
	}
	prov.APIKey = settings.ResolveAPIKey(o.apiKey, prov.ID)

	return prov, prov.Validate()
}

// prepare loads the project file, merges it into o and discovers the
// groups. The lock file is loaded when locking is enabled.
func (o *syncOptions) prepare(fs afero.Fs, flags *pflag.FlagSet) (*discover.Groups, *lockfile.LockFile, error) {
	cfg, err := config.Load(fs, rootDir)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Path() != "" {
		logInfo("Using %s", cfg.Path())
	}
	o.applyConfig(cfg, flags)

	logInfo(i18n.T("Searching for .strings files in %s"), rootDir)
	groups, err := discover.Discover(fs, rootDir, o.filter())
	if err != nil {
		return nil, nil, err
	}

	var lock *lockfile.LockFile
	if o.lock {
		lock, err = lockfile.Load(fs, rootDir)
		if err != nil {
			return nil, nil, err
		}
		if targets, keys := lock.Stats(); keys > 0 {
			logInfo("Lock: %d targets, %d keys tracked", targets, keys)
		}
	}
	return groups, lock, nil
}

// ---------------------------------------------------------------------------
// sync
// ---------------------------------------------------------------------------

func newSyncCmd() *cobra.Command {
	o := newSyncOptions()

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Translate missing keys in every .strings group",
		Long: `Translate the keys each target file is missing from its base file and
save the targets that changed.

Options not given on the command line are read from .lprojsync.yaml or
.lprojsync.toml in the project root.

Examples:
  # Fill every missing key using Google Translate
  lprojsync sync

  # Only German and French, only Localizable.strings
  lprojsync sync --lang de --lang fr --file Localizable

  # Re-translate two keys everywhere with Groq
  lprojsync sync --provider groq --model llama-3.3-70b-versatile --key title --key subtitle --override

  # Show what would be translated
  lprojsync sync --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, o)
		},
	}

	o.addSelectionFlags(cmd.Flags())
	o.addSyncFlags(cmd.Flags())

	_ = cmd.RegisterFlagCompletionFunc("provider", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		var completions []string
		defaults := translate.DefaultProviders()
		for _, id := range translate.ProviderIDs() {
			completions = append(completions, id+"\t"+defaults[id].Name)
		}
		return completions, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("log-level", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return report.LevelNames(), cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("on-error", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return engine.PolicyNames(), cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runSync(cmd *cobra.Command, o *syncOptions) error {
	fs := afero.NewOsFs()

	groups, lock, err := o.prepare(fs, cmd.Flags())
	if err != nil {
		return err
	}
	if groups.Len() == 0 {
		logWarning("%s", i18n.T("No .strings files found inside *.lproj folders"))
		return nil
	}
	logInfo(i18n.N("Found %d group", "Found %d groups", groups.Len()), groups.Len())
	console := report.NewConsole(os.Stderr, o.level)
	if console.Level().Enabled(report.LevelGroup) {
		fmt.Fprintln(os.Stderr, groupTable(fs, rootDir, groups, o.baseLang))
	}

	var tr translate.Translator
	if !o.dryRun {
		prov, err := o.resolveProvider()
		if err != nil {
			return err
		}
		tr, err = translate.New(prov, translate.Options{
			MaxRetries:   o.maxRetries,
			RequestDelay: o.requestDelay,
			SystemPrompt: o.prompt,
			OnLog:        logWarning,
		})
		if err != nil {
			return err
		}
		logInfo(i18n.T("Provider: %s (%s)"), prov.Name, providerModel(prov))
	}

	// Setup signal handling for graceful cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logWarning("%s", i18n.T("Interrupted, saving progress..."))
			cancel()
		case <-ctx.Done():
		}
	}()

	stats, err := engine.New(fs, tr, console, o.engineOptions(lock)).Run(ctx, groups)
	if err != nil {
		logWarning("%s", i18n.T("Sync interrupted, partial progress saved"))
		return errInterrupted
	}

	printSummary(os.Stderr, rootDir, stats, o.dryRun)
	return nil
}

func providerModel(prov translate.Provider) string {
	if prov.Model == "" {
		return "web"
	}
	return prov.Model
}

// printSummary writes the closing lines of a sync run.
func printSummary(w io.Writer, root string, stats engine.Stats, dryRun bool) {
	if dryRun {
		for _, p := range stats.Plans {
			if p.Pending == 0 {
				continue
			}
			report.Info(w, "%s [%s]: %s", relPath(root, p.Path), langmeta.Label(p.Lang), humanize.Comma(int64(p.Pending)))
		}
		report.Info(w, i18n.T("Dry run: %s keys pending"), humanize.Comma(int64(stats.Pending)))
		return
	}

	if stats.Translated == 0 && stats.Failed == 0 && stats.FilesSaved == 0 {
		report.Success(w, "%s", i18n.T("All targets are up to date"))
	} else {
		report.Success(w, i18n.T("Sync complete: %s keys translated, %s files saved"),
			humanize.Comma(int64(stats.Translated)), humanize.Comma(int64(stats.FilesSaved)))
	}
	if stats.Failed > 0 || stats.TargetsSkipped > 0 {
		report.Warn(w, i18n.T("%s translation failures, %s skipped files"),
			humanize.Comma(int64(stats.Failed)), humanize.Comma(int64(stats.TargetsSkipped)))
	}
}

// ---------------------------------------------------------------------------
// status (read-only: groups + pending keys)
// ---------------------------------------------------------------------------

func newStatusCmd() *cobra.Command {
	o := newSyncOptions()

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show groups and pending keys",
		Long: `Show every discovered .strings group with its languages, and the number
of pending, missing and extra keys for each target file. Does not modify
any files and never calls a translation provider.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, o)
		},
	}

	o.addSelectionFlags(cmd.Flags())

	return cmd
}

func runStatus(cmd *cobra.Command, o *syncOptions) error {
	fs := afero.NewOsFs()

	groups, lock, err := o.prepare(fs, cmd.Flags())
	if err != nil {
		return err
	}
	if groups.Len() == 0 {
		logWarning("%s", i18n.T("No .strings files found inside *.lproj folders"))
		return nil
	}

	out := cmd.OutOrStdout()
	logInfo(i18n.N("Found %d group", "Found %d groups", groups.Len()), groups.Len())
	fmt.Fprintln(out, groupTable(fs, rootDir, groups, o.baseLang))

	opts := o.engineOptions(lock)
	opts.DryRun = true
	rec := &report.Recorder{}
	stats, err := engine.New(fs, nil, rec, opts).Run(context.Background(), groups)
	if err != nil {
		return err
	}

	for _, ev := range rec.Filter(report.KindError) {
		logWarning("%v", ev.Err)
	}
	for _, ev := range rec.Filter(report.KindFileSkipped) {
		logWarning("%v", ev.Err)
	}

	if len(stats.Plans) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, statusTable(rootDir, stats.Plans))
	}

	if stats.Pending == 0 {
		logSuccess("%s", i18n.T("All targets are up to date"))
	} else {
		logInfo(i18n.T("%s keys pending"), humanize.Comma(int64(stats.Pending)))
	}
	return nil
}

// ---------------------------------------------------------------------------
// Tables
// ---------------------------------------------------------------------------

// groupTable lists every group with its languages and base key count.
func groupTable(fs afero.Fs, root string, groups *discover.Groups, baseLang string) *uitable.Table {
	table := uitable.New()
	table.MaxColWidth = 80
	table.Wrap = true
	table.RightAlign(3)
	table.AddRow(i18n.T("File"), i18n.T("Directory"), i18n.T("Languages"), i18n.T("Keys"))

	for _, g := range groups.Keys() {
		ls := groups.Get(g)
		keys := "-"
		if _, base, err := ls.Base(baseLang); err == nil {
			peek := stringsfile.New(fs, base.Path, base.Lang)
			if err := peek.Read(); err == nil {
				keys = humanize.Comma(int64(peek.Entries.Len()))
			}
		}
		table.AddRow(g.Name+discover.FileExt, relPath(root, g.Dir), strings.Join(languageList(ls), ", "), keys)
	}
	return table
}

// statusTable lists the planning result of every target.
func statusTable(root string, plans []engine.TargetPlan) *uitable.Table {
	table := uitable.New()
	table.MaxColWidth = 80
	for _, col := range []int{2, 3, 4} {
		table.RightAlign(col)
	}
	table.AddRow(i18n.T("File"), i18n.T("Language"), i18n.T("Pending"), i18n.T("Missing"), i18n.T("Extra"))

	for _, p := range plans {
		table.AddRow(relPath(root, p.Path), langmeta.Label(p.Lang),
			humanize.Comma(int64(p.Pending)), humanize.Comma(int64(p.Missing)), humanize.Comma(int64(p.Extra)))
	}
	return table
}

// languageList returns the folder spellings of a group's languages in
// natural order.
func languageList(ls discover.LanguageSet) []string {
	langs := make([]string, 0, len(ls))
	for _, f := range ls {
		langs = append(langs, f.Lang)
	}
	naturalsort.Sort(langs)
	return langs
}

func relPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return rel
}
