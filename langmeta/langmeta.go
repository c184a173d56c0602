// Package langmeta provides language display metadata (native and English
// names, emoji flags) for .lproj folder codes, used in prompts and CLI UI.
package langmeta

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Meta describes language display metadata.
type Meta struct {
	// Code is the canonical BCP 47 form of the folder code.
	Code string
	// Name is the language name in the language itself.
	Name string
	// English is the English name, used in translation prompts.
	English string
	// Flag is an emoji flag for the most likely region, or empty.
	Flag string
}

// baseFolder is Xcode's development-language folder; it is not a language.
const baseFolder = "base"

func canonicalize(lang string) string {
	normalized := strings.ReplaceAll(strings.TrimSpace(lang), "_", "-")
	if normalized == "" {
		return ""
	}
	tag, err := language.Parse(normalized)
	if err != nil {
		return normalized
	}
	return tag.String()
}

// Resolve returns best-effort metadata for a language folder code such as
// "fr", "pt-BR", "zh-Hans" or "pt_br". Unknown codes are passed through as
// their own name.
func Resolve(lang string) Meta {
	code := strings.TrimSpace(lang)
	if strings.EqualFold(code, baseFolder) {
		return Meta{Code: "Base", Name: "Base", English: "Base"}
	}
	tag, err := language.Parse(strings.ReplaceAll(code, "_", "-"))
	if err != nil {
		return Meta{Code: code, Name: code, English: code}
	}

	m := Meta{
		Code:    tag.String(),
		Name:    display.Self.Name(tag),
		English: display.English.Tags().Name(tag),
		Flag:    flagFor(tag),
	}
	if m.Name == "" {
		m.Name = code
	}
	if m.English == "" {
		m.English = code
	}
	return m
}

// EnglishName is a shorthand for Resolve(lang).English.
func EnglishName(lang string) string {
	return Resolve(lang).English
}

// Label formats a language for tables: "fr (français)".
func Label(lang string) string {
	m := Resolve(lang)
	if m.Name == lang || m.Name == "" {
		return lang
	}
	return lang + " (" + m.Name + ")"
}

func flagFor(tag language.Tag) string {
	region, conf := tag.Region()
	if conf == language.No {
		return ""
	}
	return flagFromRegion(region.String())
}

// flagFromRegion maps a two-letter region code to its regional indicator
// pair. Numeric regions such as 419 have no flag.
func flagFromRegion(region string) string {
	if len(region) != 2 {
		return ""
	}
	var b strings.Builder
	for _, c := range strings.ToUpper(region) {
		if c < 'A' || c > 'Z' {
			return ""
		}
		b.WriteRune(0x1F1E6 + (c - 'A'))
	}
	return b.String()
}
