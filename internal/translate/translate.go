// Package translate provides the text translation backends used to bring
// non-Latin addresses into the language the matcher compares in.
package translate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Backend names accepted by New.
const (
	BackendMyMemory      = "mymemory"
	BackendAnthropic     = "anthropic"
	BackendTransliterate = "transliterate"
)

var (
	// ErrTranslationFailure covers any translator error other than a timeout.
	ErrTranslationFailure = errors.New("translation failed")
	// ErrTranslationTimeout is returned when a translation exceeds its deadline.
	ErrTranslationTimeout = errors.New("translation timed out")
)

// Translator translates text between two ISO 639-1 language codes.
// Implementations must respect context cancellation and deadlines.
type Translator interface {
	Translate(ctx context.Context, text, from, to string) (string, error)
}

// Options selects and configures a backend.
type Options struct {
	Backend         string
	Timeout         time.Duration
	Retries         int
	MyMemoryEmail   string
	AnthropicAPIKey string
	AnthropicModel  string
	Logger          *slog.Logger
}

// New builds the translator named by opts.Backend. Network backends are
// wrapped in a Retry with the configured timeout and retry count.
func New(opts Options) (Translator, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var base Translator
	switch opts.Backend {
	case BackendMyMemory, "":
		base = NewMyMemory(opts.MyMemoryEmail)
		opts.Backend = BackendMyMemory
	case BackendAnthropic:
		llmOpts := []LLMOption{WithAPIKey(opts.AnthropicAPIKey)}
		if opts.AnthropicModel != "" {
			llmOpts = append(llmOpts, WithModel(opts.AnthropicModel))
		}
		llm, err := NewLLM(llmOpts...)
		if err != nil {
			return nil, err
		}
		base = llm
	case BackendTransliterate:
		return Transliterator{}, nil
	default:
		return nil, fmt.Errorf("translate: unknown backend %q", opts.Backend)
	}

	return NewRetry(opts.Backend, base, opts.Retries, opts.Timeout, logger), nil
}

// permanentError marks a failure that retrying cannot fix, such as a
// rejected request or an exhausted quota.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

func permanent(err error) error {
	return &permanentError{err: err}
}

// IsPermanent reports whether err will recur on retry.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// retryableStatus reports whether an HTTP status may succeed on a later try.
func retryableStatus(code int) bool {
	return code == http.StatusRequestTimeout ||
		code == http.StatusConflict ||
		code == http.StatusTooManyRequests ||
		code >= http.StatusInternalServerError
}

// classify tags err with ErrTranslationTimeout or ErrTranslationFailure
// unless it already carries one of them.
func classify(backend string, err error) error {
	switch {
	case errors.Is(err, ErrTranslationTimeout):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w: %w", backend, ErrTranslationTimeout, err)
	case errors.Is(err, ErrTranslationFailure):
		return err
	default:
		return fmt.Errorf("%s: %w: %w", backend, ErrTranslationFailure, err)
	}
}
