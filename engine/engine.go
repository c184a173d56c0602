// Package engine runs a sync: for every discovered group it resolves the
// base file, plans each target against it, fills pending keys through the
// translator and saves the targets that changed.
//
// Work is strictly sequential (group, then target, then key). Failures
// scoped to a group, file or key are reported to the sink and counted in
// Stats; they never abort the run.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/juju/collections/set"
	"github.com/spf13/afero"

	"github.com/minios-linux/lprojsync/discover"
	"github.com/minios-linux/lprojsync/lockfile"
	"github.com/minios-linux/lprojsync/plan"
	"github.com/minios-linux/lprojsync/report"
	"github.com/minios-linux/lprojsync/stringsfile"
	"github.com/minios-linux/lprojsync/translate"
)

// DefaultBaseLang is the development language assumed when none is set.
const DefaultBaseLang = "en"

// Options controls a sync run.
type Options struct {
	// BaseLang names the base folder when a group has no Base.lproj. It is
	// also the source language passed to the translator for Base.lproj.
	BaseLang string
	// Override re-translates keys the target already has.
	Override bool
	// FormatBase re-saves each base file in canonical form.
	FormatBase bool
	// DryRun plans only: no translator calls and no writes.
	DryRun bool
	// Keys restricts the run to these keys when non-empty.
	Keys set.Strings
	// OnGatewayError selects how translator failures are handled.
	OnGatewayError GatewayPolicy
	// Lock enables stale-key detection when non-nil.
	Lock *lockfile.LockFile
	// Root is the directory lock file keys are relative to.
	Root string
}

// GatewayError wraps a translator failure for one key of one target.
type GatewayError struct {
	Path string
	Lang string
	Key  string
	Err  error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("translating %q to %s (%s): %v", e.Key, e.Lang, e.Path, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// TargetPlan is the planning result for one target file.
type TargetPlan struct {
	Group string
	Path  string
	Lang  string
	plan.Count
}

// Stats counts what a run did.
type Stats struct {
	Groups         int
	GroupsSkipped  int
	Targets        int
	TargetsSkipped int
	FilesSaved     int
	SaveErrors     int
	Translated     int
	Failed         int
	Pending        int
	// Plans lists every target that was planned, in processing order.
	Plans []TargetPlan
}

// Engine is a configured sync run.
type Engine struct {
	fs    afero.Fs
	tr    translate.Translator
	sink  report.Sink
	opts  Options
	stats Stats
}

// New returns an Engine. A nil sink discards all events.
func New(fs afero.Fs, tr translate.Translator, sink report.Sink, opts Options) *Engine {
	if sink == nil {
		sink = report.Discard
	}
	if opts.BaseLang == "" {
		opts.BaseLang = DefaultBaseLang
	}
	return &Engine{fs: fs, tr: tr, sink: sink, opts: opts}
}

// Run syncs every group. The returned error is non-nil only when ctx was
// cancelled; the target being worked on at that moment is still saved.
func (e *Engine) Run(ctx context.Context, groups *discover.Groups) (Stats, error) {
	e.stats = Stats{}

	e.sink.Start(e.total(groups))
	defer e.sink.Finish()

	for _, g := range groups.Keys() {
		if ctx.Err() != nil {
			break
		}
		e.syncGroup(ctx, g, groups.Get(g))
	}

	if e.opts.Lock != nil && !e.opts.DryRun {
		if err := e.opts.Lock.Save(); err != nil {
			e.sink.Error(err)
		}
	}
	return e.stats, ctx.Err()
}

// total is the number of key visits the run will make: for every group,
// the base entries in scope times the number of targets. Base files are
// read through throwaway copies so the real ones start unloaded.
func (e *Engine) total(groups *discover.Groups) int {
	total := 0
	for _, g := range groups.Keys() {
		ls := groups.Get(g)
		_, base, err := ls.Base(e.opts.BaseLang)
		if err != nil {
			continue
		}
		peek := stringsfile.New(e.fs, base.Path, base.Lang)
		if err := peek.Read(); err != nil {
			continue
		}
		total += len(e.inScope(peek.Entries)) * len(ls.Targets(base))
	}
	return total
}

func (e *Engine) inScope(t *stringsfile.Table) []stringsfile.Entry {
	entries := t.Entries()
	if len(e.opts.Keys) == 0 {
		return entries
	}
	var out []stringsfile.Entry
	for _, en := range entries {
		if e.opts.Keys.Contains(en.Key) {
			out = append(out, en)
		}
	}
	return out
}

func (e *Engine) syncGroup(ctx context.Context, g discover.Group, ls discover.LanguageSet) {
	e.stats.Groups++

	baseLang, base, err := ls.Base(e.opts.BaseLang)
	if err != nil {
		var mb *discover.MissingBaseError
		if errors.As(err, &mb) {
			mb.Group = g
		}
		e.stats.GroupsSkipped++
		e.sink.Error(err)
		return
	}

	targets := ls.Targets(base)
	names := make([]string, len(targets))
	for i, lang := range targets {
		names[i] = ls[lang].Lang
	}
	e.sink.GroupStarted(g.String(), base.Lang, names)

	if err := base.Read(); err != nil {
		e.stats.GroupsSkipped++
		e.sink.FileSkipped(base.Path, err)
		return
	}

	if e.opts.FormatBase && !e.opts.DryRun {
		if err := base.Save(); err != nil {
			e.stats.SaveErrors++
			e.sink.Error(err)
		}
	}

	origin := base.Lang
	if baseLang == discover.BaseFolder {
		origin = e.opts.BaseLang
	}

	for _, lang := range targets {
		if ctx.Err() != nil {
			return
		}
		e.syncTarget(ctx, g, base, origin, ls[lang])
	}
}

func (e *Engine) syncTarget(ctx context.Context, g discover.Group, base *stringsfile.File, origin string, target *stringsfile.File) {
	e.stats.Targets++
	scope := len(e.inScope(base.Entries))

	if err := target.Read(); err != nil {
		e.stats.TargetsSkipped++
		e.sink.FileSkipped(target.Path, err)
		e.sink.Advance(scope)
		return
	}

	lockKey := lockfile.TargetKey(e.opts.Root, target.Path)
	policy := plan.Policy{Override: e.opts.Override, Keys: e.opts.Keys}
	if lock := e.opts.Lock; lock != nil {
		policy.Stale = func(en stringsfile.Entry) bool {
			return lock.IsStale(lockKey, en.Key, en.Value)
		}
	}

	pending := plan.Pending(base.Entries, target.Entries, policy)
	e.stats.Pending += len(pending)
	e.stats.Plans = append(e.stats.Plans, TargetPlan{
		Group: g.String(),
		Path:  target.Path,
		Lang:  target.Lang,
		Count: plan.Summarize(base.Entries, target.Entries, policy),
	})
	e.sink.Advance(scope - len(pending))

	if e.opts.DryRun {
		e.sink.Advance(len(pending))
		return
	}

	failed := set.NewStrings()
	changed := 0
keys:
	for i, en := range pending {
		if ctx.Err() != nil {
			break
		}

		out, err := e.tr.Translate(ctx, stringsfile.Unescape(en.Value), target.Lang, origin)
		e.sink.Advance(1)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			e.stats.Failed++
			e.sink.Error(&GatewayError{Path: target.Path, Lang: target.Lang, Key: en.Key, Err: err})

			switch e.opts.OnGatewayError {
			case KeepSource:
				target.Entries.Set(stringsfile.Entry{Key: en.Key, Value: en.Value, Comment: en.Comment})
				changed++
			case SkipKey:
				failed.Add(en.Key)
			default:
				failed.Add(en.Key)
				e.sink.Advance(len(pending) - i - 1)
				break keys
			}
			continue
		}

		e.stats.Translated++
		if e.opts.Lock != nil {
			e.opts.Lock.Update(lockKey, en.Key, en.Value)
		}
		out = stringsfile.Escape(out)
		target.Entries.Set(stringsfile.Entry{Key: en.Key, Value: out, Comment: en.Comment})
		changed++
		e.sink.KeyTranslated(target.Lang, en.Key, out)
	}

	if lock := e.opts.Lock; lock != nil {
		for _, en := range base.Entries.Entries() {
			if target.Entries.Has(en.Key) && !failed.Contains(en.Key) {
				lock.Baseline(lockKey, en.Key, en.Value)
			}
		}
		lock.Clean(lockKey, base.Entries.Keys())
	}

	if changed == 0 {
		return
	}
	if err := target.Save(); err != nil {
		e.stats.SaveErrors++
		e.sink.Error(err)
		return
	}
	e.stats.FilesSaved++
	e.sink.FileSaved(target.Path, changed)
}
