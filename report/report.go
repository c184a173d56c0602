// Package report carries sync progress and log events from the engine to
// whatever renders them.
package report

import (
	"fmt"
	"strings"
)

// Level is the verbosity threshold. Each level includes the ones below it.
type Level int

const (
	// LevelProgress shows only the progress bar.
	LevelProgress Level = iota
	// LevelErrors adds errors and skipped files.
	LevelErrors
	// LevelGroup adds group headers and saved files.
	LevelGroup
	// LevelString adds every translated key.
	LevelString
)

// DefaultLevel is used when no level is configured.
const DefaultLevel = LevelGroup

var levelNames = []string{"progress", "errors", "group", "string"}

func (l Level) String() string {
	if l < 0 || int(l) >= len(levelNames) {
		return fmt.Sprintf("Level(%d)", int(l))
	}
	return levelNames[l]
}

// ParseLevel parses a level name, ignoring case.
func ParseLevel(s string) (Level, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range levelNames {
		if n == name {
			return Level(i), nil
		}
	}
	return 0, fmt.Errorf("unknown log level %q (want one of %s)", s, strings.Join(levelNames, ", "))
}

// Set implements pflag.Value.
func (l *Level) Set(s string) error {
	v, err := ParseLevel(s)
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// Type implements pflag.Value.
func (l *Level) Type() string { return "level" }

// Enabled reports whether events at level should be shown under threshold l.
func (l Level) Enabled(level Level) bool { return level <= l }

// LevelNames returns the accepted level names in increasing verbosity.
func LevelNames() []string {
	return append([]string(nil), levelNames...)
}

// Sink receives sync events. Calls come from a single goroutine.
type Sink interface {
	// Start announces the total number of keys the run will visit.
	Start(total int)
	// Advance moves the progress forward by n keys.
	Advance(n int)
	// Finish closes the progress display.
	Finish()

	// GroupStarted announces a group with its base language and targets.
	GroupStarted(group, baseLang string, targets []string)
	// FileSkipped reports a file that was not processed.
	FileSkipped(path string, reason error)
	// KeyTranslated reports one stored translation.
	KeyTranslated(lang, key, value string)
	// FileSaved reports a written file and how many keys changed in it.
	FileSaved(path string, changed int)
	// Error reports a failure that did not stop the run.
	Error(err error)
}

// Discard is a Sink that ignores everything.
var Discard Sink = discard{}

type discard struct{}

func (discard) Start(int) {}
func (discard) Advance(int) {}
func (discard) Finish() {}
func (discard) GroupStarted(string, string, []string) {}
func (discard) FileSkipped(string, error) {}
func (discard) KeyTranslated(string, string, string) {}
func (discard) FileSaved(string, int) {}
func (discard) Error(error) {}
