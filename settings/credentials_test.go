package settings

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDataDirAndFilePathUseXDGDataHome(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tmp)

	dir, err := DataDir()
	if err != nil {
		t.Fatalf("DataDir() error: %v", err)
	}
	if want := filepath.Join(tmp, "lprojsync"); dir != want {
		t.Fatalf("DataDir() = %q, want %q", dir, want)
	}
	if want := filepath.Join(tmp, "lprojsync", "auth.json"); FilePath() != want {
		t.Fatalf("FilePath() = %q, want %q", FilePath(), want)
	}
}

func TestSaveLoadRemoveLifecycle(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tmp)

	store := Store{
		"google":        {Key: "apikey123456"},
		"custom-openai": {Key: "k", BaseURL: "http://localhost:8080/v1"},
	}
	if err := Save(store); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	info, err := os.Stat(filepath.Join(tmp, "lprojsync", "auth.json"))
	if err != nil {
		t.Fatalf("stat auth.json: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Fatalf("auth.json mode = %o, want 600", info.Mode().Perm())
	}

	if got := GetAPIKey("google"); got != "apikey123456" {
		t.Fatalf("GetAPIKey(google) = %q", got)
	}
	if got := GetBaseURL("custom-openai"); got != "http://localhost:8080/v1" {
		t.Fatalf("GetBaseURL(custom-openai) = %q", got)
	}

	if err := Remove("google"); err != nil {
		t.Fatalf("Remove(google) error: %v", err)
	}
	if Get("google") != nil {
		t.Fatal("google should be removed")
	}
	if Get("custom-openai") == nil {
		t.Fatal("custom-openai should be kept")
	}

	if err := RemoveAll(); err != nil {
		t.Fatalf("RemoveAll() error: %v", err)
	}
	if len(Load()) != 0 {
		t.Fatal("store should be empty after RemoveAll")
	}
}

func TestSetAPIKeyKeepsBaseURL(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	if err := SetAPIKeyWithBaseURL("custom-openai", "old", "http://x"); err != nil {
		t.Fatal(err)
	}
	if err := SetAPIKey("custom-openai", "new"); err != nil {
		t.Fatal(err)
	}
	got := Get("custom-openai")
	if got.Key != "new" || got.BaseURL != "http://x" {
		t.Fatalf("got %#v", got)
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tmp)

	dir := filepath.Join(tmp, "lprojsync")
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "auth.json"), []byte("{"), 0600); err != nil {
		t.Fatal(err)
	}
	if got := Load(); len(got) != 0 {
		t.Fatalf("Load() = %#v, want empty store", got)
	}
}

func TestResolveAPIKey(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	if err := SetAPIKey("groq", "stored"); err != nil {
		t.Fatal(err)
	}

	t.Setenv(EnvAPIKey, "")
	if got := ResolveAPIKey("", "groq"); got != "stored" {
		t.Errorf("store fallback = %q", got)
	}

	t.Setenv(EnvAPIKey, "from-env")
	if got := ResolveAPIKey("", "groq"); got != "from-env" {
		t.Errorf("env = %q", got)
	}
	if got := ResolveAPIKey("from-flag", "groq"); got != "from-flag" {
		t.Errorf("flag = %q", got)
	}
}

func TestMaskKey(t *testing.T) {
	if got := MaskKey("short"); got != "****" {
		t.Fatalf("MaskKey(short) = %q", got)
	}
	if got := MaskKey("abcdefghijklmnop"); got != "abcd...mnop" {
		t.Fatalf("MaskKey(long) = %q", got)
	}
}
