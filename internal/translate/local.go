package translate

import (
	"context"
	"fmt"
	"io"

	"github.com/mozillazg/go-unidecode"
	"gopkg.in/yaml.v3"
)

// Transliterator maps non-Latin scripts to Latin letters without any network
// access. It spells words out rather than translating them, so "България"
// becomes "Bulgariia", not "Bulgaria".
type Transliterator struct{}

var _ Translator = Transliterator{}

// Translate implements Translator. The language codes are ignored.
func (Transliterator) Translate(ctx context.Context, text, _, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", classify(BackendTransliterate, err)
	}
	return unidecode.Unidecode(text), nil
}

// Static translates from a fixed phrase table. Lookups are exact; a missing
// phrase is a failure.
type Static map[string]string

var _ Translator = Static(nil)

// Translate implements Translator.
func (s Static) Translate(ctx context.Context, text, _, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", classify("static", err)
	}
	if out, ok := s[text]; ok {
		return out, nil
	}
	return "", permanent(fmt.Errorf("static: %w: no entry for %q", ErrTranslationFailure, text))
}

// LoadStatic reads a YAML mapping of source phrases to translations.
func LoadStatic(r io.Reader) (Static, error) {
	table := Static{}
	if err := yaml.NewDecoder(r).Decode(&table); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode dictionary: %w", err)
	}
	return table, nil
}
