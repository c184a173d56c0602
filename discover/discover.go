// Package discover finds .strings files inside *.lproj folders and groups
// the per-language copies of each logical resource together.
//
// Layout:
//
//	App/Base.lproj/Localizable.strings   (base)
//	App/en.lproj/Localizable.strings
//	App/fr.lproj/Localizable.strings
//
// All three files belong to the group {Dir: "App", Name: "Localizable"}.
package discover

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/juju/collections/set"
	"github.com/spf13/afero"

	"github.com/minios-linux/lprojsync/stringsfile"
)

const (
	// LocaleDirSuffix marks a language folder.
	LocaleDirSuffix = ".lproj"
	// FileExt is the resource file extension.
	FileExt = ".strings"
	// BaseFolder is the normalized name of the reserved base language folder.
	BaseFolder = "base"
)

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

// Group identifies one logical resource independent of language.
type Group struct {
	// Dir is the directory that holds the *.lproj folders.
	Dir string
	// Name is the file name without extension.
	Name string
}

func (g Group) String() string {
	return filepath.Join(g.Dir, g.Name)
}

// LanguageSet maps a normalized (lower-case) language code to its file.
type LanguageSet map[string]*stringsfile.File

// Languages returns the normalized language codes in sorted order.
func (ls LanguageSet) Languages() []string {
	langs := make([]string, 0, len(ls))
	for lang := range ls {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// Base picks the source-of-truth file: the reserved Base.lproj folder if
// present, otherwise the folder matching baseLang. Both comparisons ignore
// case.
func (ls LanguageSet) Base(baseLang string) (string, *stringsfile.File, error) {
	if f, ok := ls[BaseFolder]; ok {
		return BaseFolder, f, nil
	}
	lang := Normalize(baseLang)
	if f, ok := ls[lang]; ok {
		return lang, f, nil
	}
	return "", nil, &MissingBaseError{BaseLang: baseLang}
}

// Targets returns the normalized codes of every file except base, sorted.
func (ls LanguageSet) Targets(base *stringsfile.File) []string {
	var langs []string
	for _, lang := range ls.Languages() {
		if ls[lang].Path == base.Path {
			continue
		}
		langs = append(langs, lang)
	}
	return langs
}

// Groups is the discovery result: every group with its language set, in
// the order the groups were first seen during the walk.
type Groups struct {
	order []Group
	sets  map[Group]LanguageSet
}

// Len returns the number of groups.
func (g *Groups) Len() int { return len(g.order) }

// Keys returns the groups in discovery order.
func (g *Groups) Keys() []Group {
	return append([]Group(nil), g.order...)
}

// Get returns the language set for group.
func (g *Groups) Get(group Group) LanguageSet {
	return g.sets[group]
}

func (g *Groups) add(group Group, lang string, f *stringsfile.File) {
	ls, ok := g.sets[group]
	if !ok {
		ls = make(LanguageSet)
		g.sets[group] = ls
		g.order = append(g.order, group)
	}
	ls[lang] = f
}

// Filter narrows discovery. Empty sets mean "everything".
type Filter struct {
	// Files is the allow-list of file names without extension.
	Files set.Strings
	// Languages is the allow-list of language codes.
	Languages set.Strings
	// BaseLang is always allowed, together with the Base folder.
	BaseLang string
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

// ConfigError reports a root directory that cannot be searched at all.
type ConfigError struct {
	Root string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid root %s: %v", e.Root, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// MissingBaseError reports a group without a resolvable base file.
type MissingBaseError struct {
	Group    Group
	BaseLang string
}

func (e *MissingBaseError) Error() string {
	if e.Group.Name == "" {
		return fmt.Sprintf("no base language (Base or %s)", e.BaseLang)
	}
	return fmt.Sprintf("no base language (Base or %s) for %s", e.BaseLang, e.Group)
}

// ---------------------------------------------------------------------------
// Discovery
// ---------------------------------------------------------------------------

// Normalize returns the comparison form of a language folder name.
func Normalize(lang string) string {
	return strings.ToLower(strings.TrimSpace(lang))
}

// Discover walks root and groups every */*.lproj/*.strings file.
// Hidden directories below root are not searched.
func Discover(fs afero.Fs, root string, f Filter) (*Groups, error) {
	info, err := fs.Stat(root)
	if err != nil {
		return nil, &ConfigError{Root: root, Err: err}
	}
	if !info.IsDir() {
		return nil, &ConfigError{Root: root, Err: errors.New("not a directory")}
	}

	allowed := allowedLanguages(f)
	groups := &Groups{sets: make(map[Group]LanguageSet)}

	err = afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			// Unreadable subtree: nothing to sync there.
			return nil
		}
		if info.IsDir() {
			if path != root && strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != FileExt {
			return nil
		}

		localeDir := filepath.Dir(path)
		folder := filepath.Base(localeDir)
		if !strings.HasSuffix(folder, LocaleDirSuffix) {
			return nil
		}

		rawLang := strings.TrimSuffix(folder, LocaleDirSuffix)
		lang := Normalize(rawLang)
		name := strings.TrimSuffix(filepath.Base(path), FileExt)

		if len(f.Files) > 0 && !f.Files.Contains(name) {
			return nil
		}
		if allowed != nil && !allowed.Contains(lang) {
			return nil
		}

		group := Group{Dir: filepath.Dir(localeDir), Name: name}
		groups.add(group, lang, stringsfile.New(fs, path, rawLang))
		return nil
	})
	if err != nil {
		return nil, &ConfigError{Root: root, Err: err}
	}
	return groups, nil
}

// allowedLanguages returns nil when every language is allowed.
func allowedLanguages(f Filter) set.Strings {
	if len(f.Languages) == 0 {
		return nil
	}
	allowed := set.NewStrings(BaseFolder)
	if f.BaseLang != "" {
		allowed.Add(Normalize(f.BaseLang))
	}
	for _, lang := range f.Languages.Values() {
		allowed.Add(Normalize(lang))
	}
	return allowed
}
