// Package stringsfile implements reading and writing of Apple .strings files.
//
// Format: zero or more units of an optional C-style comment followed by a
// quoted key/value pair terminated by a semicolon:
//
//	/* Title of the main screen */
//	"main.title" = "Welcome";
//
// Keys and values are kept exactly as written between the quotes, so
// backslash escapes such as \" and \n survive a round trip untouched.
// Malformed units are skipped rather than reported. When a key occurs more
// than once the last occurrence wins.
//
// The %@ format placeholder is swapped for an internal sentinel while a file
// is in memory so translation backends leave it alone; Marshal restores it.
package stringsfile

import (
	"fmt"
	"regexp"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ---------------------------------------------------------------------------
// Entry and table model
// ---------------------------------------------------------------------------

// Entry is a single localized string.
type Entry struct {
	Key     string
	Value   string
	Comment string
}

// Table is an ordered mapping of key → Entry. Setting an existing key
// replaces its entry in place, keeping the original position.
type Table struct {
	m *orderedmap.OrderedMap[string, Entry]
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{m: orderedmap.New[string, Entry]()}
}

// Set inserts or replaces e.
func (t *Table) Set(e Entry) {
	t.m.Set(e.Key, e)
}

// Get returns the entry for key and whether it was found.
func (t *Table) Get(key string) (Entry, bool) {
	return t.m.Get(key)
}

// Has reports whether key is present.
func (t *Table) Has(key string) bool {
	_, ok := t.m.Get(key)
	return ok
}

// Len returns the number of entries.
func (t *Table) Len() int {
	return t.m.Len()
}

// Keys returns all keys in table order.
func (t *Table) Keys() []string {
	keys := make([]string, 0, t.m.Len())
	for pair := t.m.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Entries returns all entries in table order.
func (t *Table) Entries() []Entry {
	entries := make([]Entry, 0, t.m.Len())
	for pair := t.m.Oldest(); pair != nil; pair = pair.Next() {
		entries = append(entries, pair.Value)
	}
	return entries
}

// Merge copies every entry of other into t, overwriting on key collision.
func (t *Table) Merge(other *Table) {
	for pair := other.m.Oldest(); pair != nil; pair = pair.Next() {
		t.m.Set(pair.Key, pair.Value)
	}
}

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

const (
	// argPlaceholder is the format placeholder protected during editing.
	argPlaceholder = "%@"
	// argSentinel replaces argPlaceholder while the text is in memory.
	argSentinel = "_ARG_"
)

// unitPattern matches one optional comment plus one "key" = "value"; pair.
// The comment body cannot contain "*/", so a stray header comment is never
// glued onto the comment of the following entry.
var unitPattern = regexp.MustCompile(
	`(?:/\*((?:[^*]|\*+[^*/])*)\*+/)?\s*"((?:[^"\\]|\\.)*)"\s*=\s*"((?:[^"\\]|\\.)*)"\s*;`)

// Parse parses decoded .strings text. It never fails: units with an empty
// key or value, and anything outside the grammar, are skipped.
func Parse(text string) *Table {
	t := NewTable()
	text = strings.ReplaceAll(text, argPlaceholder, argSentinel)

	for _, m := range unitPattern.FindAllStringSubmatch(text, -1) {
		comment, key, value := m[1], m[2], m[3]
		if key == "" || value == "" {
			continue
		}
		t.Set(Entry{Key: key, Value: value, Comment: strings.TrimSpace(comment)})
	}
	return t
}

// ---------------------------------------------------------------------------
// Serialization
// ---------------------------------------------------------------------------

// templateFixer repairs "${" sequences that a translation backend split with
// a space.
var templateFixer = strings.NewReplacer(argSentinel, argPlaceholder, "$ {", "${")

// Marshal serialises t back to .strings text, one commented unit per entry.
func Marshal(t *Table) string {
	var b strings.Builder
	for pair := t.m.Oldest(); pair != nil; pair = pair.Next() {
		e := pair.Value
		fmt.Fprintf(&b, "\n/* %s */\n\"%s\" = \"%s\";\n", e.Comment, e.Key, e.Value)
	}
	return templateFixer.Replace(b.String())
}
