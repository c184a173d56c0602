// Package config loads the optional project file, .lprojsync.yaml or
// .lprojsync.toml, from the project root.
//
// The file supplies defaults for sync and status; command-line flags win
// over it.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/minios-linux/lprojsync/engine"
	"github.com/minios-linux/lprojsync/report"
	"github.com/minios-linux/lprojsync/translate"
)

// FileNames are the project file names, in lookup order.
var FileNames = []string{".lprojsync.yaml", ".lprojsync.yml", ".lprojsync.toml"}

// ---------------------------------------------------------------------------
// Schema
// ---------------------------------------------------------------------------

// File is the project file structure.
type File struct {
	// BaseLang is the development language (default "en").
	BaseLang string `yaml:"base_lang,omitempty" toml:"base_lang,omitempty"`
	// Languages restricts the targets; empty means every language found.
	Languages []string `yaml:"languages,omitempty" toml:"languages,omitempty"`
	// Files restricts the resources by name without extension.
	Files []string `yaml:"files,omitempty" toml:"files,omitempty"`
	// Keys restricts the keys to sync.
	Keys []string `yaml:"keys,omitempty" toml:"keys,omitempty"`
	// Override re-translates keys that already exist in targets.
	Override bool `yaml:"override,omitempty" toml:"override,omitempty"`
	// FormatBase re-saves base files in canonical form.
	FormatBase bool `yaml:"format_base,omitempty" toml:"format_base,omitempty"`
	// OnError is the translator failure policy name.
	OnError string `yaml:"on_error,omitempty" toml:"on_error,omitempty"`
	// LogLevel is the verbosity name.
	LogLevel string `yaml:"log_level,omitempty" toml:"log_level,omitempty"`
	// Lock enables stale-key tracking through lprojsync.lock.
	Lock bool `yaml:"lock,omitempty" toml:"lock,omitempty"`
	// Provider configures the translation backend.
	Provider Provider `yaml:"provider,omitempty" toml:"provider,omitempty"`

	path string
}

// Provider is the provider section of the project file.
type Provider struct {
	ID           string   `yaml:"id,omitempty" toml:"id,omitempty"`
	Model        string   `yaml:"model,omitempty" toml:"model,omitempty"`
	BaseURL      string   `yaml:"base_url,omitempty" toml:"base_url,omitempty"`
	Timeout      Duration `yaml:"timeout,omitempty" toml:"timeout,omitempty"`
	Proxy        string   `yaml:"proxy,omitempty" toml:"proxy,omitempty"`
	MaxRetries   int      `yaml:"max_retries,omitempty" toml:"max_retries,omitempty"`
	RequestDelay Duration `yaml:"request_delay,omitempty" toml:"request_delay,omitempty"`
	Prompt       string   `yaml:"prompt,omitempty" toml:"prompt,omitempty"`
}

// Duration is a time.Duration written as "90s" or "1m30s".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Default returns the settings used when there is no project file.
func Default() *File {
	return &File{
		BaseLang: engine.DefaultBaseLang,
		OnError:  engine.SkipTarget.String(),
		LogLevel: report.DefaultLevel.String(),
		Provider: Provider{ID: translate.ProviderGoogleTranslate, MaxRetries: 3},
	}
}

// Load reads and validates the project file in root. Without a project file
// it returns Default().
func Load(fs afero.Fs, root string) (*File, error) {
	for _, name := range FileNames {
		path := filepath.Join(root, name)
		data, err := afero.ReadFile(fs, path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}

		f := Default()
		if strings.HasSuffix(name, ".toml") {
			err = toml.Unmarshal(data, f)
		} else {
			err = yaml.Unmarshal(data, f)
		}
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		f.path = path

		if err := f.validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return f, nil
	}
	return Default(), nil
}

// Path returns the file the settings came from, or "" for defaults.
func (f *File) Path() string { return f.path }

func (f *File) validate() error {
	if f.BaseLang == "" {
		f.BaseLang = engine.DefaultBaseLang
	}
	if _, err := engine.ParseGatewayPolicy(f.OnError); err != nil {
		return err
	}
	if _, err := report.ParseLevel(f.LogLevel); err != nil {
		return err
	}
	if _, ok := translate.DefaultProviders()[f.Provider.ID]; !ok {
		return fmt.Errorf("unknown provider %q (want one of %s)",
			f.Provider.ID, strings.Join(translate.ProviderIDs(), ", "))
	}
	if f.Provider.MaxRetries < 0 {
		return fmt.Errorf("provider.max_retries must not be negative")
	}
	return nil
}

// Policy returns the parsed OnError value.
func (f *File) Policy() engine.GatewayPolicy {
	p, _ := engine.ParseGatewayPolicy(f.OnError)
	return p
}

// Level returns the parsed LogLevel value.
func (f *File) Level() report.Level {
	l, err := report.ParseLevel(f.LogLevel)
	if err != nil {
		return report.DefaultLevel
	}
	return l
}

// TranslateProvider merges the provider section into the built-in
// defaults for its ID.
func (f *File) TranslateProvider() translate.Provider {
	prov := translate.DefaultProviders()[f.Provider.ID]
	if f.Provider.Model != "" {
		prov.Model = f.Provider.Model
	}
	if f.Provider.BaseURL != "" {
		prov.BaseURL = f.Provider.BaseURL
	}
	if f.Provider.Proxy != "" {
		prov.Proxy = f.Provider.Proxy
	}
	if f.Provider.Timeout > 0 {
		prov.Timeout = time.Duration(f.Provider.Timeout)
	}
	return prov
}
