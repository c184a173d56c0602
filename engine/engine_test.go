package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/juju/collections/set"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minios-linux/lprojsync/discover"
	"github.com/minios-linux/lprojsync/lockfile"
	"github.com/minios-linux/lprojsync/report"
	"github.com/minios-linux/lprojsync/stringsfile"
	"github.com/minios-linux/lprojsync/translate"
)

type call struct {
	text, target, origin string
}

// fakeTranslator prefixes text with the target language and records calls.
type fakeTranslator struct {
	calls []call
	fail  set.Strings
}

func (f *fakeTranslator) Translate(ctx context.Context, text, targetLang, originLang string) (string, error) {
	f.calls = append(f.calls, call{text, targetLang, originLang})
	if f.fail.Contains(text) {
		return "", errors.New("gateway down")
	}
	return targetLang + ":" + text, nil
}

func setup(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for path, content := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0644))
	}
	return fs
}

func discoverAll(t *testing.T, fs afero.Fs) *discover.Groups {
	t.Helper()
	groups, err := discover.Discover(fs, "/p", discover.Filter{})
	require.NoError(t, err)
	return groups
}

func readTable(t *testing.T, fs afero.Fs, path string) *stringsfile.Table {
	t.Helper()
	f := stringsfile.New(fs, path, "")
	require.NoError(t, f.Read())
	return f.Entries
}

func value(t *testing.T, fs afero.Fs, path, key string) (string, bool) {
	t.Helper()
	e, ok := readTable(t, fs, path).Get(key)
	return e.Value, ok
}

func run(t *testing.T, fs afero.Fs, tr translate.Translator, opts Options) (Stats, *report.Recorder) {
	t.Helper()
	rec := &report.Recorder{}
	stats, err := New(fs, tr, rec, opts).Run(context.Background(), discoverAll(t, fs))
	require.NoError(t, err)
	return stats, rec
}

const (
	enPath = "/p/en.lproj/Localizable.strings"
	frPath = "/p/fr.lproj/Localizable.strings"
	dePath = "/p/de.lproj/Localizable.strings"
)

func TestSyncFillsMissingKey(t *testing.T) {
	fs := setup(t, map[string]string{
		enPath: "/* Greeting */\n\"hello\" = \"Hello\";\n",
		frPath: "",
	})
	tr := &fakeTranslator{}

	stats, rec := run(t, fs, tr, Options{BaseLang: "en"})

	require.Len(t, tr.calls, 1)
	assert.Equal(t, call{"Hello", "fr", "en"}, tr.calls[0])

	e, ok := readTable(t, fs, frPath).Get("hello")
	require.True(t, ok)
	assert.Equal(t, "fr:Hello", e.Value)
	assert.Equal(t, "Greeting", e.Comment)

	assert.Equal(t, 1, stats.Translated)
	assert.Equal(t, 1, stats.FilesSaved)
	assert.Len(t, rec.Filter(report.KindFileSaved), 1)
	assert.Len(t, rec.Filter(report.KindKeyTranslated), 1)
}

func TestSyncOverride(t *testing.T) {
	files := map[string]string{
		enPath: "\"a\" = \"X\";\n\"b\" = \"Y\";\n",
		frPath: "\"a\" = \"old\";\n",
	}

	t.Run("off keeps existing", func(t *testing.T) {
		fs := setup(t, files)
		run(t, fs, &fakeTranslator{}, Options{})

		a, _ := value(t, fs, frPath, "a")
		b, _ := value(t, fs, frPath, "b")
		assert.Equal(t, "old", a)
		assert.Equal(t, "fr:Y", b)
	})

	t.Run("on replaces existing", func(t *testing.T) {
		fs := setup(t, files)
		run(t, fs, &fakeTranslator{}, Options{Override: true})

		a, _ := value(t, fs, frPath, "a")
		b, _ := value(t, fs, frPath, "b")
		assert.Equal(t, "fr:X", a)
		assert.Equal(t, "fr:Y", b)
	})

	t.Run("key filter holds under override", func(t *testing.T) {
		fs := setup(t, files)
		tr := &fakeTranslator{}
		run(t, fs, tr, Options{Override: true, Keys: set.NewStrings("b")})

		require.Len(t, tr.calls, 1)
		a, _ := value(t, fs, frPath, "a")
		assert.Equal(t, "old", a)
	})
}

func TestSyncKeepsExtraTargetKeys(t *testing.T) {
	fs := setup(t, map[string]string{
		enPath: "\"a\" = \"X\";\n",
		frPath: "\"legacy\" = \"ancien\";\n",
	})
	run(t, fs, &fakeTranslator{}, Options{})

	v, ok := value(t, fs, frPath, "legacy")
	assert.True(t, ok)
	assert.Equal(t, "ancien", v)
}

func TestSyncIsIdempotent(t *testing.T) {
	fs := setup(t, map[string]string{
		enPath: "\"a\" = \"X\";\n\"b\" = \"Y\";\n",
		frPath: "",
		dePath: "",
	})
	run(t, fs, &fakeTranslator{}, Options{})

	tr := &fakeTranslator{}
	stats, _ := run(t, fs, tr, Options{})
	assert.Empty(t, tr.calls)
	assert.Zero(t, stats.Pending)
	assert.Zero(t, stats.FilesSaved)
}

func TestSyncUndecodableTargetIsSkipped(t *testing.T) {
	fs := setup(t, map[string]string{
		enPath: "\"a\" = \"X\";\n",
		dePath: "\"a\" = \"\xc3\x28\";",
		frPath: "",
	})

	stats, rec := run(t, fs, &fakeTranslator{}, Options{})

	skipped := rec.Filter(report.KindFileSkipped)
	require.Len(t, skipped, 1)
	assert.Equal(t, dePath, skipped[0].Path)
	var de *stringsfile.DecodeError
	assert.True(t, errors.As(skipped[0].Err, &de))

	v, _ := value(t, fs, frPath, "a")
	assert.Equal(t, "fr:X", v)
	assert.Equal(t, 1, stats.TargetsSkipped)
	assert.Equal(t, 1, stats.FilesSaved)
}

func TestSyncMissingBaseSkipsGroup(t *testing.T) {
	fs := setup(t, map[string]string{
		"/p/fr.lproj/Orphan.strings": "\"a\" = \"b\";",
		enPath:                       "\"a\" = \"X\";\n",
		frPath:                       "",
	})

	stats, rec := run(t, fs, &fakeTranslator{}, Options{})

	errs := rec.Filter(report.KindError)
	require.Len(t, errs, 1)
	var mb *discover.MissingBaseError
	require.True(t, errors.As(errs[0].Err, &mb))
	assert.Equal(t, "Orphan", mb.Group.Name)
	assert.Equal(t, 1, stats.GroupsSkipped)
	assert.Equal(t, 1, stats.FilesSaved)
}

func TestSyncBaseFolder(t *testing.T) {
	fs := setup(t, map[string]string{
		"/p/Base.lproj/Main.strings": "\"title\" = \"Title\";\n",
		"/p/en.lproj/Main.strings":   "",
		"/p/ja.lproj/Main.strings":   "",
	})
	tr := &fakeTranslator{}
	run(t, fs, tr, Options{BaseLang: "en"})

	require.Len(t, tr.calls, 2)
	for _, c := range tr.calls {
		assert.Equal(t, "en", c.origin, "Base.lproj is translated from the base language")
	}
	v, _ := value(t, fs, "/p/en.lproj/Main.strings", "title")
	assert.Equal(t, "en:Title", v)
}

func TestSyncPlaceholderSurvives(t *testing.T) {
	fs := setup(t, map[string]string{
		enPath: "\"greet\" = \"Hello %@\";\n",
		frPath: "",
	})
	tr := &fakeTranslator{}
	run(t, fs, tr, Options{})

	require.Len(t, tr.calls, 1)
	assert.Equal(t, "Hello _ARG_", tr.calls[0].text)

	data, err := afero.ReadFile(fs, frPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"greet" = "fr:Hello %@";`)
}

func TestSyncGatewayPolicies(t *testing.T) {
	files := map[string]string{
		enPath: "\"a\" = \"A\";\n\"b\" = \"B\";\n\"c\" = \"C\";\n",
		frPath: "",
	}

	tests := []struct {
		policy GatewayPolicy
		want   map[string]string
		absent []string
		saved  int
	}{
		{SkipTarget, map[string]string{"a": "fr:A"}, []string{"b", "c"}, 1},
		{KeepSource, map[string]string{"a": "fr:A", "b": "B", "c": "fr:C"}, nil, 1},
		{SkipKey, map[string]string{"a": "fr:A", "c": "fr:C"}, []string{"b"}, 1},
	}

	for _, tc := range tests {
		t.Run(tc.policy.String(), func(t *testing.T) {
			fs := setup(t, files)
			tr := &fakeTranslator{fail: set.NewStrings("B")}
			stats, rec := run(t, fs, tr, Options{OnGatewayError: tc.policy})

			got := readTable(t, fs, frPath)
			for k, v := range tc.want {
				e, ok := got.Get(k)
				if assert.True(t, ok, "key %s", k) {
					assert.Equal(t, v, e.Value)
				}
			}
			for _, k := range tc.absent {
				assert.False(t, got.Has(k), "key %s should be absent", k)
			}

			assert.Equal(t, 1, stats.Failed)
			assert.Equal(t, tc.saved, stats.FilesSaved)
			errs := rec.Filter(report.KindError)
			require.Len(t, errs, 1)
			var ge *GatewayError
			require.True(t, errors.As(errs[0].Err, &ge))
			assert.Equal(t, "b", ge.Key)
			assert.Equal(t, rec.Total, rec.Advanced)
			for _, ev := range rec.Filter(report.KindKeyTranslated) {
				assert.NotEqual(t, "b", ev.Key, "failed key reported as translated")
			}
		})
	}
}

func TestSyncSkipTargetContinuesWithSiblings(t *testing.T) {
	fs := setup(t, map[string]string{
		enPath: "\"a\" = \"A\";\n",
		dePath: "",
		frPath: "",
	})
	tr := translate.Func(func(ctx context.Context, text, targetLang, originLang string) (string, error) {
		if targetLang == "de" {
			return "", errors.New("unsupported")
		}
		return "ok", nil
	})

	stats, _ := run(t, fs, tr, Options{})

	assert.Equal(t, 1, stats.FilesSaved)
	v, _ := value(t, fs, frPath, "a")
	assert.Equal(t, "ok", v)
}

func TestSyncProgressTotal(t *testing.T) {
	fs := setup(t, map[string]string{
		enPath: "\"a\" = \"A\";\n\"b\" = \"B\";\n",
		frPath: "\"a\" = \"x\";\n",
		dePath: "",
		"/p/x/en.lproj/Other.strings": "\"k\" = \"v\";\n",
		"/p/x/fr.lproj/Other.strings": "",
	})
	_, rec := run(t, fs, &fakeTranslator{}, Options{})

	assert.Equal(t, 2*2+1*1, rec.Total)
	assert.Equal(t, rec.Total, rec.Advanced)
	assert.True(t, rec.Finished)
}

func TestSyncDryRun(t *testing.T) {
	fs := setup(t, map[string]string{
		enPath: "\"a\" = \"A\";\n\"b\" = \"B\";\n",
		frPath: "\"a\" = \"x\";\n\"old\" = \"y\";\n",
	})
	before, _ := afero.ReadFile(fs, frPath)
	tr := &fakeTranslator{}

	stats, _ := run(t, fs, tr, Options{DryRun: true, FormatBase: true})

	assert.Empty(t, tr.calls)
	after, _ := afero.ReadFile(fs, frPath)
	assert.Equal(t, before, after)
	assert.Equal(t, 1, stats.Pending)
	require.Len(t, stats.Plans, 1)
	assert.Equal(t, 1, stats.Plans[0].Missing)
	assert.Equal(t, 1, stats.Plans[0].Extra)
	assert.Zero(t, stats.FilesSaved)
}

func TestSyncFormatBase(t *testing.T) {
	fs := setup(t, map[string]string{
		enPath: "\"a\"=\"A\";",
		frPath: "\"a\" = \"x\";\n",
	})
	run(t, fs, &fakeTranslator{}, Options{FormatBase: true})

	data, err := afero.ReadFile(fs, enPath)
	require.NoError(t, err)
	assert.Equal(t, "\n/*  */\n\"a\" = \"A\";\n", string(data))
}

func TestSyncStaleKeysWithLock(t *testing.T) {
	fs := setup(t, map[string]string{
		enPath: "\"a\" = \"A\";\n\"b\" = \"B\";\n",
		frPath: "\"a\" = \"already\";\n",
	})

	lock, err := lockfile.Load(fs, "/p")
	require.NoError(t, err)
	run(t, fs, &fakeTranslator{}, Options{Lock: lock, Root: "/p"})

	a, _ := value(t, fs, frPath, "a")
	assert.Equal(t, "already", a, "existing keys are baselined, not re-translated")

	require.NoError(t, afero.WriteFile(fs, enPath, []byte("\"a\" = \"A2\";\n\"b\" = \"B\";\n"), 0644))
	lock, err = lockfile.Load(fs, "/p")
	require.NoError(t, err)
	tr := &fakeTranslator{}
	run(t, fs, tr, Options{Lock: lock, Root: "/p"})

	require.Len(t, tr.calls, 1)
	assert.Equal(t, "A2", tr.calls[0].text)
	a, _ = value(t, fs, frPath, "a")
	assert.Equal(t, "fr:A2", a)
}

func TestSyncKeepSourceIsBaselined(t *testing.T) {
	fs := setup(t, map[string]string{
		enPath: "\"a\" = \"A\";\n\"b\" = \"B\";\n",
		frPath: "",
	})

	lock, err := lockfile.Load(fs, "/p")
	require.NoError(t, err)
	run(t, fs, &fakeTranslator{fail: set.NewStrings("B")}, Options{Lock: lock, Root: "/p", OnGatewayError: KeepSource})

	b, _ := value(t, fs, frPath, "b")
	assert.Equal(t, "B", b)
	assert.Equal(t, lockfile.Hash("B"), lock.Checksums[lockfile.TargetKey("/p", frPath)]["b"])

	tr := &fakeTranslator{}
	lock, err = lockfile.Load(fs, "/p")
	require.NoError(t, err)
	run(t, fs, tr, Options{Lock: lock, Root: "/p"})
	assert.Empty(t, tr.calls, "keep-source values are not retried without --override")

	require.NoError(t, afero.WriteFile(fs, enPath, []byte("\"a\" = \"A\";\n\"b\" = \"B2\";\n"), 0644))
	lock, err = lockfile.Load(fs, "/p")
	require.NoError(t, err)
	run(t, fs, tr, Options{Lock: lock, Root: "/p"})

	require.Len(t, tr.calls, 1)
	assert.Equal(t, "B2", tr.calls[0].text)
	b, _ = value(t, fs, frPath, "b")
	assert.Equal(t, "fr:B2", b)
}

func TestSyncEscapesGatewayOutput(t *testing.T) {
	fs := setup(t, map[string]string{
		enPath: "\"greet\" = \"Say \\\"hi\\\" to %@\\nagain\";\n",
		frPath: "",
	})
	var sent []string
	tr := translate.Func(func(ctx context.Context, text, targetLang, originLang string) (string, error) {
		sent = append(sent, text)
		return "Dis \"salut\" à _ARG_\nencore", nil
	})

	stats, rec := run(t, fs, tr, Options{})

	require.Equal(t, []string{"Say \"hi\" to _ARG_\nagain"}, sent)
	assert.Equal(t, 1, stats.FilesSaved)

	data, err := afero.ReadFile(fs, frPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"greet" = "Dis \"salut\" à %@\nencore";`)

	v, ok := value(t, fs, frPath, "greet")
	require.True(t, ok, "escaped key must survive a re-read")
	assert.Equal(t, `Dis \"salut\" à _ARG_\nencore`, v)
	events := rec.Filter(report.KindKeyTranslated)
	require.Len(t, events, 1)
	assert.Equal(t, v, events[0].Value)

	again := &fakeTranslator{}
	stats, _ = run(t, fs, again, Options{})
	assert.Empty(t, again.calls)
	assert.Zero(t, stats.FilesSaved)
}

func TestSyncSaveErrorIsReported(t *testing.T) {
	fs := setup(t, map[string]string{
		enPath: "\"a\" = \"A\";\n",
		frPath: "",
	})
	tr := translate.Func(func(ctx context.Context, text, targetLang, originLang string) (string, error) {
		return "bad \xff", nil
	})

	stats, rec := run(t, fs, tr, Options{})

	assert.Equal(t, 1, stats.SaveErrors)
	errs := rec.Filter(report.KindError)
	require.Len(t, errs, 1)
	var ee *stringsfile.EncodeError
	assert.True(t, errors.As(errs[0].Err, &ee))
}

func TestSyncInterruptSavesCurrentTarget(t *testing.T) {
	fs := setup(t, map[string]string{
		enPath: "\"a\" = \"A\";\n\"b\" = \"B\";\n",
		dePath: "",
		frPath: "",
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls int
	tr := translate.Func(func(ctx context.Context, text, targetLang, originLang string) (string, error) {
		calls++
		if calls == 1 {
			cancel()
			return fmt.Sprintf("%s:%s", targetLang, text), nil
		}
		return "", ctx.Err()
	})

	rec := &report.Recorder{}
	stats, err := New(fs, tr, rec, Options{}).Run(ctx, discoverAll(t, fs))
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, stats.FilesSaved)
	v, ok := value(t, fs, dePath, "a")
	assert.True(t, ok)
	assert.Equal(t, "de:A", v)
	assert.Zero(t, stats.Failed, "cancellation is not a gateway failure")

	data, _ := afero.ReadFile(fs, frPath)
	assert.Empty(t, data, "targets after the interrupt are untouched")
}
