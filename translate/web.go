package translate

import (
	"context"
	"fmt"

	"github.com/bregydoc/gtranslate"
)

// Web translates through the public Google Translate web endpoint. It needs
// no API key.
type Web struct {
	// Tries is the number of attempts per string (gtranslate default when 0).
	Tries int

	call func(text string, params gtranslate.TranslationParams) (string, error)
}

// NewWeb returns a Web translator.
func NewWeb(tries int) *Web {
	return &Web{Tries: tries, call: gtranslate.TranslateWithParams}
}

// Translate implements Translator. The underlying client does not take a
// context, so cancellation is only observed before the request starts.
func (w *Web) Translate(ctx context.Context, text, targetLang, originLang string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	out, err := w.call(text, gtranslate.TranslationParams{
		From:  originLang,
		To:    targetLang,
		Tries: w.Tries,
	})
	if err != nil {
		return "", fmt.Errorf("google translate %s->%s: %w", originLang, targetLang, err)
	}
	return out, nil
}
