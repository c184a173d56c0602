package langmeta

import "testing"

func TestCanonicalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "pt_br", want: "pt-BR"},
		{in: " EN-us ", want: "en-US"},
		{in: "zh-hans", want: "zh-Hans"},
		{in: "ru", want: "ru"},
		{in: "", want: ""},
	}

	for _, tc := range cases {
		got := canonicalize(tc.in)
		if got != tc.want {
			t.Fatalf("canonicalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFlagFromRegion(t *testing.T) {
	cases := map[string]string{
		"FR":  "\U0001F1EB\U0001F1F7",
		"us":  "\U0001F1FA\U0001F1F8",
		"419": "",
		"":    "",
	}
	for in, want := range cases {
		if got := flagFromRegion(in); got != want {
			t.Errorf("flagFromRegion(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestResolve(t *testing.T) {
	t.Run("native and english names", func(t *testing.T) {
		got := Resolve("de")
		if got.Name != "Deutsch" || got.English != "German" {
			t.Fatalf("unexpected result: %#v", got)
		}
		if got.Flag != "\U0001F1E9\U0001F1EA" {
			t.Errorf("flag = %q", got.Flag)
		}
	})

	t.Run("underscore variant", func(t *testing.T) {
		got := Resolve("pt_BR")
		if got.Code != "pt-BR" || got.Flag != "\U0001F1E7\U0001F1F7" {
			t.Fatalf("unexpected result: %#v", got)
		}
	})

	t.Run("base folder", func(t *testing.T) {
		got := Resolve("Base")
		if got.Name != "Base" || got.Flag != "" {
			t.Fatalf("unexpected result: %#v", got)
		}
	})

	t.Run("unparseable passthrough", func(t *testing.T) {
		got := Resolve("not a language")
		if got.Name != "not a language" || got.Flag != "" {
			t.Fatalf("unexpected result: %#v", got)
		}
	})
}

func TestLabel(t *testing.T) {
	if got := Label("fr"); got != "fr (français)" {
		t.Errorf("Label(fr) = %q", got)
	}
	if got := Label("Base"); got != "Base" {
		t.Errorf("Label(Base) = %q", got)
	}
}
