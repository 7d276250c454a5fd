package port

import "context"

// TranslationProvider translates a piece of text between two languages.
// Every error it returns is treated as transient by callers.
type TranslationProvider interface {
	// Name identifies the provider in logs (e.g. "google", "mymemory").
	Name() string

	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}
