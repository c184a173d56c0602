// Package lockfile implements lprojsync.lock, which records an MD5 checksum
// of the base value each target key was translated from. A key whose base
// value changed since then is stale and gets re-translated even when the
// target already has it.
//
// The lock file lives in the project root next to .lprojsync.yaml.
package lockfile

import (
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// LockFileName is the default lock file name.
const LockFileName = "lprojsync.lock"

// Version is the lock file format version.
const Version = 1

// LockFile represents the lprojsync.lock file structure.
type LockFile struct {
	Version   int                          `yaml:"version"`
	Checksums map[string]map[string]string `yaml:"checksums"` // target -> key -> md5

	fs    afero.Fs
	path  string
	dirty bool
}

// ---------------------------------------------------------------------------
// Loading and saving
// ---------------------------------------------------------------------------

// Load reads the lock file from dir. A missing file yields an empty lock.
func Load(fs afero.Fs, dir string) (*LockFile, error) {
	path := filepath.Join(dir, LockFileName)
	lf := &LockFile{
		Version:   Version,
		Checksums: make(map[string]map[string]string),
		fs:        fs,
		path:      path,
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return lf, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, lf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if lf.Version > Version {
		return nil, fmt.Errorf("%s: unsupported lock file version %d", path, lf.Version)
	}
	if lf.Checksums == nil {
		lf.Checksums = make(map[string]map[string]string)
	}
	return lf, nil
}

// Save writes the lock file if anything changed since Load.
func (lf *LockFile) Save() error {
	if !lf.dirty {
		return nil
	}
	data, err := yaml.Marshal(lf)
	if err != nil {
		return fmt.Errorf("marshaling lock file: %w", err)
	}
	if err := afero.WriteFile(lf.fs, lf.path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", lf.path, err)
	}
	lf.dirty = false
	return nil
}

// Path returns the lock file path.
func (lf *LockFile) Path() string {
	return lf.path
}

// ---------------------------------------------------------------------------
// Checksum operations
// ---------------------------------------------------------------------------

// Hash computes the MD5 hex digest of a string.
func Hash(s string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(s)))
}

// TargetKey builds the lock file key for a target file: its path relative
// to root, with forward slashes.
func TargetKey(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil {
		path = rel
	}
	return filepath.ToSlash(path)
}

// IsStale reports whether key was translated from a base value other than
// baseValue. Keys without a recorded checksum are never stale.
func (lf *LockFile) IsStale(target, key, baseValue string) bool {
	old, ok := lf.Checksums[target][key]
	return ok && old != Hash(baseValue)
}

// Update records the base value a key was just translated from.
func (lf *LockFile) Update(target, key, baseValue string) {
	h := Hash(baseValue)
	keys := lf.Checksums[target]
	if keys == nil {
		keys = make(map[string]string)
		lf.Checksums[target] = keys
	}
	if keys[key] != h {
		keys[key] = h
		lf.dirty = true
	}
}

// Baseline records baseValue for key only if nothing is recorded yet, so
// existing translations start being tracked without being re-translated.
func (lf *LockFile) Baseline(target, key, baseValue string) {
	if _, ok := lf.Checksums[target][key]; ok {
		return
	}
	lf.Update(target, key, baseValue)
}

// Clean removes checksums for keys no longer present in currentKeys.
func (lf *LockFile) Clean(target string, currentKeys []string) {
	existing := lf.Checksums[target]
	if existing == nil {
		return
	}

	valid := make(map[string]bool, len(currentKeys))
	for _, k := range currentKeys {
		valid[k] = true
	}

	for k := range existing {
		if !valid[k] {
			delete(existing, k)
			lf.dirty = true
		}
	}
}

// ---------------------------------------------------------------------------
// Stats
// ---------------------------------------------------------------------------

// Stats returns the number of targets and total keys in the lock file.
func (lf *LockFile) Stats() (targets, keys int) {
	targets = len(lf.Checksums)
	for _, m := range lf.Checksums {
		keys += len(m)
	}
	return
}

// Targets returns the sorted list of target keys.
func (lf *LockFile) Targets() []string {
	targets := make([]string, 0, len(lf.Checksums))
	for t := range lf.Checksums {
		targets = append(targets, t)
	}
	sort.Strings(targets)
	return targets
}

// Summary returns a human-readable summary string.
func (lf *LockFile) Summary() string {
	targets, keys := lf.Stats()
	if targets == 0 {
		return "empty"
	}

	var parts []string
	for _, t := range lf.Targets() {
		parts = append(parts, fmt.Sprintf("%s: %d keys", t, len(lf.Checksums[t])))
	}
	return fmt.Sprintf("%d targets, %d keys (%s)", targets, keys, strings.Join(parts, ", "))
}
