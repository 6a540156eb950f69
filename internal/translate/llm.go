package translate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	// defaultAnthropicModel is the model used when no override is provided.
	defaultAnthropicModel = "claude-sonnet-4-5-20250929"

	// defaultMaxTokens bounds the reply; addresses are short.
	defaultMaxTokens = 512

	// defaultMaxRetries is the SDK's own retry count for 429 and 5xx replies.
	defaultMaxRetries = 2
)

var languageNames = map[string]string{
	"bg": "Bulgarian",
	"en": "English",
	"ru": "Russian",
	"uk": "Ukrainian",
	"sr": "Serbian",
	"mk": "Macedonian",
}

// LLM translates through the Anthropic Messages API.
type LLM struct {
	client anthropic.Client
	model  string
}

var _ Translator = (*LLM)(nil)

// LLMOption configures an LLM translator.
type LLMOption func(*llmConfig)

type llmConfig struct {
	apiKey     string
	model      string
	baseURL    string
	maxRetries int
}

// WithAPIKey sets the API key. If empty, ANTHROPIC_API_KEY is read from the
// environment.
func WithAPIKey(key string) LLMOption {
	return func(c *llmConfig) {
		c.apiKey = key
	}
}

// WithModel overrides the default model.
func WithModel(model string) LLMOption {
	return func(c *llmConfig) {
		c.model = model
	}
}

// WithMaxRetries sets the SDK retry count for transient errors.
func WithMaxRetries(n int) LLMOption {
	return func(c *llmConfig) {
		c.maxRetries = n
	}
}

// WithBaseURL points the client at a different API endpoint.
func WithBaseURL(u string) LLMOption {
	return func(c *llmConfig) {
		c.baseURL = u
	}
}

// NewLLM creates an Anthropic-backed translator. It fails when no API key is
// available.
func NewLLM(opts ...LLMOption) (*LLM, error) {
	cfg := llmConfig{
		model:      defaultAnthropicModel,
		maxRetries: defaultMaxRetries,
	}
	for _, o := range opts {
		o(&cfg)
	}

	apiKey := cfg.apiKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New("translate: ANTHROPIC_API_KEY not set and no API key provided")
	}

	clientOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(cfg.maxRetries),
	}
	if cfg.baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(cfg.baseURL))
	}

	return &LLM{
		client: anthropic.NewClient(clientOpts...),
		model:  cfg.model,
	}, nil
}

// Translate implements Translator.
func (l *LLM) Translate(ctx context.Context, text, from, to string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(l.model),
		MaxTokens: defaultMaxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt(from, to)},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
		},
		Temperature: anthropic.Float(0),
	}

	msg, err := l.client.Messages.New(ctx, params)
	if err != nil {
		err = classify(BackendAnthropic, fmt.Errorf("completion failed: %w", err))
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) && !retryableStatus(apiErr.StatusCode) {
			return "", permanent(err)
		}
		return "", err
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(variant.Text)
		}
	}

	translated := strings.TrimSpace(b.String())
	if translated == "" {
		return "", fmt.Errorf("%s: %w: empty translation", BackendAnthropic, ErrTranslationFailure)
	}
	return translated, nil
}

// Model returns the model used for requests.
func (l *LLM) Model() string {
	return l.model
}

func systemPrompt(from, to string) string {
	return fmt.Sprintf("Translate the postal address from %s to %s. "+
		"Reply with the translated address only, keeping its punctuation and order. "+
		"Use the conventional %s names for cities and countries.",
		languageName(from), languageName(to), languageName(to))
}

func languageName(code string) string {
	if name, ok := languageNames[code]; ok {
		return name
	}
	return code
}
