// Package match normalizes addresses and scores how alike two of them are.
package match

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/artemgubar/addrgroup/internal/translate"
)

// Addresses written in Cyrillic are translated from SourceLanguage to
// TargetLanguage before comparison.
const (
	SourceLanguage = "bg"
	TargetLanguage = "en"
)

var quotes = strings.NewReplacer("“", "", "”", "", `"`, "", "'", "")

// Normalizer prepares raw addresses for tokenization.
type Normalizer struct {
	translator translate.Translator
}

// NewNormalizer returns a Normalizer that sends Cyrillic addresses to t.
// A nil t makes every Cyrillic address fail with ErrTranslationFailure.
func NewNormalizer(t translate.Translator) *Normalizer {
	return &Normalizer{translator: t}
}

// Normalize strips quotation marks, trims whitespace, translates Cyrillic
// text and lower-cases the result.
func (n *Normalizer) Normalize(ctx context.Context, raw string) (string, error) {
	s := norm.NFC.String(raw)
	s = quotes.Replace(s)
	s = strings.TrimSpace(s)

	if ContainsCyrillic(s) {
		translated, err := n.translate(ctx, s)
		if err != nil {
			return "", err
		}
		s = translated
	}

	return cases.Lower(language.Und).String(s), nil
}

func (n *Normalizer) translate(ctx context.Context, s string) (string, error) {
	if n.translator == nil {
		return "", fmt.Errorf("%w: no translator configured", translate.ErrTranslationFailure)
	}

	out, err := n.translator.Translate(ctx, s, SourceLanguage, TargetLanguage)
	if err == nil {
		return out, nil
	}
	if errors.Is(err, translate.ErrTranslationFailure) || errors.Is(err, translate.ErrTranslationTimeout) {
		return "", err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "", fmt.Errorf("%w: %w", translate.ErrTranslationTimeout, err)
	}
	return "", fmt.Errorf("%w: %w", translate.ErrTranslationFailure, err)
}

// ContainsCyrillic reports whether s has any rune in U+0400–U+04FF.
func ContainsCyrillic(s string) bool {
	for _, r := range s {
		if r >= 0x0400 && r <= 0x04FF {
			return true
		}
	}
	return false
}
