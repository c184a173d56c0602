package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

var (
	infoPrefix    = color.New(color.FgBlue).Sprint("[INFO]")
	successPrefix = color.New(color.FgGreen).Sprint("[OK]")
	warnPrefix    = color.New(color.FgYellow, color.Bold).Sprint("[WARN]")
	errorPrefix   = color.New(color.FgRed).Sprint("[ERROR]")
)

// Info writes an [INFO] line to w.
func Info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, infoPrefix+" "+format+"\n", args...)
}

// Success writes an [OK] line to w.
func Success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, successPrefix+" "+format+"\n", args...)
}

// Warn writes a [WARN] line to w.
func Warn(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, warnPrefix+" "+format+"\n", args...)
}

// Errorf writes an [ERROR] line to w.
func Errorf(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, errorPrefix+" "+format+"\n", args...)
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Console renders events as colored log lines plus an optional progress bar.
type Console struct {
	out   io.Writer
	level Level
	// ShowProgress enables the progress bar. NewConsole turns it on when
	// out is a terminal.
	ShowProgress bool

	bar *progressbar.ProgressBar
}

// NewConsole returns a Console writing to out, filtered by level.
func NewConsole(out io.Writer, level Level) *Console {
	return &Console{
		out:          out,
		level:        level,
		ShowProgress: IsTerminal(out),
	}
}

// Level returns the verbosity threshold.
func (c *Console) Level() Level { return c.level }

func (c *Console) Start(total int) {
	if !c.ShowProgress || total <= 0 {
		return
	}
	c.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(c.out),
		progressbar.OptionSetDescription("Translating"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionClearOnFinish(),
	)
}

func (c *Console) Advance(n int) {
	if c.bar != nil && n > 0 {
		_ = c.bar.Add(n)
	}
}

func (c *Console) Finish() {
	if c.bar != nil {
		_ = c.bar.Finish()
		c.bar = nil
	}
}

func (c *Console) GroupStarted(group, baseLang string, targets []string) {
	if !c.level.Enabled(LevelGroup) {
		return
	}
	c.clearBar()
	Info(c.out, "%s (base: %s, targets: %s)", group, baseLang, strings.Join(targets, ", "))
}

func (c *Console) FileSkipped(path string, reason error) {
	if !c.level.Enabled(LevelErrors) {
		return
	}
	c.clearBar()
	Warn(c.out, "Skipping %s: %v", path, reason)
}

func (c *Console) KeyTranslated(lang, key, value string) {
	if !c.level.Enabled(LevelString) {
		return
	}
	c.clearBar()
	fmt.Fprintf(c.out, "  [%s] %s = %s\n", lang, key, value)
}

func (c *Console) FileSaved(path string, changed int) {
	if !c.level.Enabled(LevelGroup) {
		return
	}
	c.clearBar()
	Success(c.out, "Saved %s (%d keys)", path, changed)
}

func (c *Console) Error(err error) {
	if !c.level.Enabled(LevelErrors) {
		return
	}
	c.clearBar()
	Errorf(c.out, "%v", err)
}

// clearBar wipes the bar line so a log line can take its place; the bar
// redraws itself on the next Advance.
func (c *Console) clearBar() {
	if c.bar != nil {
		_ = c.bar.Clear()
	}
}
