// Package translate implements the translation gateway used by the sync
// engine: one string in, one string out. Backends are the free Google web
// translator and HTTP API-based AI providers (Google AI, Groq, Ollama and
// any OpenAI-compatible endpoint).
package translate

import (
	"context"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Translator translates a single string from originLang to targetLang.
// Language codes are .lproj folder codes as written on disk.
type Translator interface {
	Translate(ctx context.Context, text, targetLang, originLang string) (string, error)
}

// Func adapts an ordinary function to the Translator interface.
type Func func(ctx context.Context, text, targetLang, originLang string) (string, error)

func (f Func) Translate(ctx context.Context, text, targetLang, originLang string) (string, error) {
	return f(ctx, text, targetLang, originLang)
}

// xcodeAliases maps Xcode folder codes to the codes translation backends
// understand. Keys are lower-case.
var xcodeAliases = map[string]string{
	"zh-hans": "zh-CN",
	"zh-hant": "zh-TW",
	"pt-br":   "pt",
	"he":      "iw",
}

// Alias returns the backend code for an Xcode language folder code.
// Codes without an alias are returned unchanged.
func Alias(lang string) string {
	if a, ok := xcodeAliases[strings.ToLower(lang)]; ok {
		return a
	}
	return lang
}

// WithAliases wraps t so both language codes pass through Alias first.
func WithAliases(t Translator) Translator {
	return Func(func(ctx context.Context, text, targetLang, originLang string) (string, error) {
		return t.Translate(ctx, text, Alias(targetLang), Alias(originLang))
	})
}

// Paced wraps t so consecutive calls are at least delay apart. A zero or
// negative delay returns t unchanged.
func Paced(t Translator, delay time.Duration) Translator {
	if delay <= 0 {
		return t
	}
	limiter := rate.NewLimiter(rate.Every(delay), 1)
	return Func(func(ctx context.Context, text, targetLang, originLang string) (string, error) {
		if err := limiter.Wait(ctx); err != nil {
			return "", err
		}
		return t.Translate(ctx, text, targetLang, originLang)
	})
}
