// lprojsync keeps Apple .strings localizations in sync with their base
// language, filling missing keys through a translation service.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/minios-linux/lprojsync/i18n"
	"github.com/minios-linux/lprojsync/report"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func logInfo(format string, args ...any) {
	report.Info(os.Stderr, format, args...)
}

func logSuccess(format string, args ...any) {
	report.Success(os.Stderr, format, args...)
}

func logWarning(format string, args ...any) {
	report.Warn(os.Stderr, format, args...)
}

func logError(format string, args ...any) {
	report.Errorf(os.Stderr, format, args...)
}

// errInterrupted is returned by sync after SIGINT; progress is already saved.
var errInterrupted = errors.New("interrupted")

// ---------------------------------------------------------------------------
// Global flag
// ---------------------------------------------------------------------------

var rootDir string

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "lprojsync",
		Short: "Sync Apple .strings localizations with their base language",
		Long: `lprojsync finds every <dir>/<lang>.lproj/<Name>.strings file under the
project root, groups the files by resource and fills the keys each
translation is missing from the base language (Base.lproj or --base-lang).

Translated keys carry the comment of their base entry. Existing
translations are kept unless --override is given.

Commands:
  sync        Translate missing keys and save the changed files
  status      Show groups and pending keys without writing anything
  auth        Manage provider API keys
  version     Show version information

Translation providers:
  google-translate  Google Translate web endpoint (default, no key)
  google            Google AI (Gemini), API key
  groq              Groq, API key
  ollama            Ollama local server
  custom-openai     Custom OpenAI-compatible endpoint`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global persistent flag, inherited by all subcommands
	root.PersistentFlags().StringVar(&rootDir, "root", ".", "Project root directory")

	root.AddCommand(
		newSyncCmd(),
		newStatusCmd(),
		newAuthCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")

	if err := newRootCmd().Execute(); err != nil {
		if errors.Is(err, errInterrupted) {
			os.Exit(130)
		}
		logError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version (display version information)
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "lprojsync version %s\n", version)
			fmt.Fprintf(out, "  commit:    %s\n", commit)
			fmt.Fprintf(out, "  built:     %s\n", date)
		},
	}
}
