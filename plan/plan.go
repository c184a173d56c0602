// Package plan decides which base strings a target file still needs.
//
// It is the .strings counterpart of msgmerge: it compares a base table with
// a target table and lists the entries to (re)translate. It never removes
// target keys that the base lacks and performs no I/O.
package plan

import (
	"github.com/juju/collections/set"

	"github.com/minios-linux/lprojsync/stringsfile"
)

// Policy controls which base entries become pending.
type Policy struct {
	// Override re-translates keys that already exist in the target.
	Override bool
	// Keys, when non-empty, restricts planning to these keys.
	Keys set.Strings
	// Stale, if set, reports an existing target key whose base value has
	// changed since it was last translated. Stale keys are pending even
	// without Override.
	Stale func(e stringsfile.Entry) bool
}

// Pending returns the base entries the target needs, in base order.
func Pending(base, target *stringsfile.Table, p Policy) []stringsfile.Entry {
	var pending []stringsfile.Entry
	for _, e := range base.Entries() {
		if len(p.Keys) > 0 && !p.Keys.Contains(e.Key) {
			continue
		}
		if !p.Override && target.Has(e.Key) && !isStale(p, e) {
			continue
		}
		pending = append(pending, e)
	}
	return pending
}

func isStale(p Policy, e stringsfile.Entry) bool {
	return p.Stale != nil && p.Stale(e)
}

// Count is a summary of planning one target against its base.
type Count struct {
	// Pending is the number of entries that need translation.
	Pending int
	// Missing is the number of base keys absent from the target.
	Missing int
	// Extra is the number of target keys absent from the base.
	Extra int
}

// Summarize plans target against base and counts the differences.
func Summarize(base, target *stringsfile.Table, p Policy) Count {
	c := Count{Pending: len(Pending(base, target, p))}
	for _, key := range base.Keys() {
		if !target.Has(key) {
			c.Missing++
		}
	}
	for _, key := range target.Keys() {
		if !base.Has(key) {
			c.Extra++
		}
	}
	return c
}
