package stringsfile

import (
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/spf13/afero"
)

// DecodeError reports a file whose bytes could not be read as text.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeError reports an entry that could not be written in the file's
// encoding. Key is empty when the failure is not tied to a single entry.
type EncodeError struct {
	Path string
	Key  string
	Err  error
}

func (e *EncodeError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("encoding %s (key %q): %v", e.Path, e.Key, e.Err)
	}
	return fmt.Sprintf("encoding %s: %v", e.Path, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// File is one .strings file on disk together with the entries read from it.
// Entries are populated lazily by Read.
type File struct {
	// Path is the file location within the filesystem.
	Path string
	// Lang is the language code exactly as spelled by the .lproj folder.
	Lang string
	// Entries holds everything read so far plus in-memory edits.
	Entries *Table

	fs     afero.Fs
	enc    Encoding
	loaded bool
}

// New returns an unread File for path.
func New(fs afero.Fs, path, lang string) *File {
	return &File{
		Path:    path,
		Lang:    lang,
		Entries: NewTable(),
		fs:      fs,
	}
}

// Loaded reports whether Read has succeeded at least once.
func (f *File) Loaded() bool { return f.loaded }

// Encoding returns the encoding detected by the last Read (UTF-8 before).
func (f *File) Encoding() Encoding { return f.enc }

func (f *File) String() string {
	if f.loaded {
		return fmt.Sprintf("<%s: %d entries>", f.Path, f.Entries.Len())
	}
	return fmt.Sprintf("<%s: not read>", f.Path)
}

// Read parses the current on-disk content and merges it into Entries.
// Entries already in memory are overwritten on key collision but never
// removed, so calling Read twice does not reset the file.
func (f *File) Read() error {
	data, err := afero.ReadFile(f.fs, f.Path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", f.Path, err)
	}
	text, enc, err := Decode(data)
	if err != nil {
		return &DecodeError{Path: f.Path, Err: err}
	}
	f.Entries.Merge(Parse(text))
	f.enc = enc
	f.loaded = true
	return nil
}

// Save serialises all entries and overwrites the file in its original
// encoding, creating parent directories as needed. The write is not atomic.
func (f *File) Save() error {
	for _, e := range f.Entries.Entries() {
		if !utf8.ValidString(e.Key) || !utf8.ValidString(e.Value) || !utf8.ValidString(e.Comment) {
			return &EncodeError{Path: f.Path, Key: e.Key, Err: fmt.Errorf("invalid UTF-8 in entry")}
		}
	}

	data, err := Encode(Marshal(f.Entries), f.enc)
	if err != nil {
		return &EncodeError{Path: f.Path, Err: err}
	}
	if err := f.fs.MkdirAll(filepath.Dir(f.Path), 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(f.Path), err)
	}
	if err := afero.WriteFile(f.fs, f.Path, data, os.FileMode(0644)); err != nil {
		return fmt.Errorf("writing %s: %w", f.Path, err)
	}
	return nil
}
