package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const myMemoryURL = "https://api.mymemory.translated.net/get"

// MyMemory calls the public MyMemory translation API.
type MyMemory struct {
	baseURL string
	email   string
	client  *http.Client
}

var _ Translator = (*MyMemory)(nil)

// NewMyMemory creates a MyMemory client. A non-empty email raises the
// anonymous daily quota.
func NewMyMemory(email string) *MyMemory {
	return &MyMemory{
		baseURL: myMemoryURL,
		email:   email,
		client:  http.DefaultClient,
	}
}

type myMemoryResponse struct {
	ResponseData struct {
		TranslatedText string `json:"translatedText"`
	} `json:"responseData"`
	ResponseStatus  any    `json:"responseStatus"`
	ResponseDetails string `json:"responseDetails"`
}

// Translate implements Translator.
func (m *MyMemory) Translate(ctx context.Context, text, from, to string) (string, error) {
	q := url.Values{}
	q.Set("q", text)
	q.Set("langpair", from+"|"+to)
	if m.email != "" {
		q.Set("de", m.email)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", classify(BackendMyMemory, fmt.Errorf("create request: %w", err))
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return "", classify(BackendMyMemory, fmt.Errorf("http request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("%s: %w: unexpected status %d: %s",
			BackendMyMemory, ErrTranslationFailure, resp.StatusCode, strings.TrimSpace(string(body)))
		if !retryableStatus(resp.StatusCode) {
			return "", permanent(err)
		}
		return "", err
	}

	var result myMemoryResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", classify(BackendMyMemory, fmt.Errorf("decode response: %w", err))
	}

	// responseStatus arrives as a number on success and sometimes as a string on quota errors.
	// Quota replies (403, 429) last until the daily reset.
	if status := statusCode(result.ResponseStatus); status != http.StatusOK {
		err := fmt.Errorf("%s: %w: response status %d: %s",
			BackendMyMemory, ErrTranslationFailure, status, result.ResponseDetails)
		if status < http.StatusInternalServerError {
			return "", permanent(err)
		}
		return "", err
	}

	translated := strings.TrimSpace(html.UnescapeString(result.ResponseData.TranslatedText))
	if translated == "" {
		return "", fmt.Errorf("%s: %w: empty translation", BackendMyMemory, ErrTranslationFailure)
	}
	return translated, nil
}

func statusCode(v any) int {
	switch s := v.(type) {
	case float64:
		return int(s)
	case string:
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
