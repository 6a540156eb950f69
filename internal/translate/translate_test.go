package translate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// scripted returns the queued results in order, then repeats the last one.
type scripted struct {
	mu      sync.Mutex
	results []scriptedResult
	calls   int
}

type scriptedResult struct {
	out string
	err error
}

func (s *scripted) Translate(ctx context.Context, text, from, to string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.results[min(s.calls, len(s.results)-1)]
	s.calls++
	return r.out, r.err
}

// blocking waits for the context to end.
type blocking struct{}

func (blocking) Translate(ctx context.Context, text, from, to string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestMyMemory_Success(t *testing.T) {
	var gotQuery, gotPair, gotEmail string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotPair = r.URL.Query().Get("langpair")
		gotEmail = r.URL.Query().Get("de")
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"responseData":{"translatedText":"Sofia, Bulgaria","match":1},"responseStatus":200,"responseDetails":""}`)
	}))
	defer srv.Close()

	m := NewMyMemory("ops@example.com")
	m.baseURL = srv.URL

	out, err := m.Translate(context.Background(), "София, България", "bg", "en")
	require.NoError(t, err)
	assert.Equal(t, "Sofia, Bulgaria", out)
	assert.Equal(t, "София, България", gotQuery)
	assert.Equal(t, "bg|en", gotPair)
	assert.Equal(t, "ops@example.com", gotEmail)
}

func TestMyMemory_UnescapesEntities(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"responseData":{"translatedText":"St. George&#39;s Sq."},"responseStatus":200}`)
	}))
	defer srv.Close()

	m := NewMyMemory("")
	m.baseURL = srv.URL

	out, err := m.Translate(context.Background(), "пл. Свети Георги", "bg", "en")
	require.NoError(t, err)
	assert.Equal(t, "St. George's Sq.", out)
}

func TestMyMemory_Failures(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		permanent bool
	}{
		{name: "http error", status: http.StatusInternalServerError, body: "boom"},
		{name: "http forbidden", status: http.StatusForbidden, body: "denied", permanent: true},
		{name: "http rate limited", status: http.StatusTooManyRequests, body: "slow down"},
		{name: "quota in body", status: http.StatusOK, body: `{"responseData":{"translatedText":"MYMEMORY WARNING"},"responseStatus":"429","responseDetails":"quota"}`, permanent: true},
		{name: "forbidden in body", status: http.StatusOK, body: `{"responseData":{"translatedText":""},"responseStatus":403,"responseDetails":"quota"}`, permanent: true},
		{name: "empty translation", status: http.StatusOK, body: `{"responseData":{"translatedText":"  "},"responseStatus":200}`},
		{name: "bad json", status: http.StatusOK, body: `{not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			m := NewMyMemory("")
			m.baseURL = srv.URL

			_, err := m.Translate(context.Background(), "София", "bg", "en")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrTranslationFailure)
			assert.Equal(t, tt.permanent, IsPermanent(err))
		})
	}
}

func TestMyMemory_OmitsEmptyEmail(t *testing.T) {
	var hasEmail bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasEmail = r.URL.Query()["de"]
		io.WriteString(w, `{"responseData":{"translatedText":"Sofia"},"responseStatus":200}`)
	}))
	defer srv.Close()

	m := NewMyMemory("")
	m.baseURL = srv.URL

	_, err := m.Translate(context.Background(), "София", "bg", "en")
	require.NoError(t, err)
	assert.False(t, hasEmail)
}

func TestMyMemory_DeadlineIsTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	m := NewMyMemory("")
	m.baseURL = srv.URL

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := m.Translate(ctx, "София", "bg", "en")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTranslationTimeout)
}

func TestLLM_Translate(t *testing.T) {
	var gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"id": "msg_01",
			"type": "message",
			"role": "assistant",
			"model": "claude-test",
			"content": [{"type": "text", "text": "  Berlin, Germany\n"}],
			"stop_reason": "end_turn",
			"stop_sequence": null,
			"usage": {"input_tokens": 12, "output_tokens": 4}
		}`)
	}))
	defer srv.Close()

	llm, err := NewLLM(WithAPIKey("test-key"), WithModel("claude-test"), WithBaseURL(srv.URL), WithMaxRetries(0))
	require.NoError(t, err)
	assert.Equal(t, "claude-test", llm.Model())

	out, err := llm.Translate(context.Background(), "Берлин, Германия", "bg", "en")
	require.NoError(t, err)
	assert.Equal(t, "Berlin, Germany", out)
	assert.True(t, strings.HasSuffix(gotPath, "/v1/messages"), "path %q", gotPath)
	assert.Contains(t, gotBody, "Bulgarian")
}

func TestLLM_ServerErrorIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"type":"error","error":{"type":"invalid_request_error","message":"bad"}}`)
	}))
	defer srv.Close()

	llm, err := NewLLM(WithAPIKey("test-key"), WithBaseURL(srv.URL), WithMaxRetries(0))
	require.NoError(t, err)

	_, err = llm.Translate(context.Background(), "София", "bg", "en")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTranslationFailure)
	assert.True(t, IsPermanent(err), "a rejected request is not retried")
}

func TestNewLLM_RequiresKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	_, err := NewLLM()
	require.Error(t, err)
}

func TestTransliterator(t *testing.T) {
	out, err := Transliterator{}.Translate(context.Background(), "Берлин", "bg", "en")
	require.NoError(t, err)
	assert.Equal(t, "Berlin", out)
}

func TestStatic(t *testing.T) {
	table, err := LoadStatic(strings.NewReader("София, България: Sofia, Bulgaria\n\"Берлин\": Berlin\n"))
	require.NoError(t, err)

	out, err := table.Translate(context.Background(), "София, България", "bg", "en")
	require.NoError(t, err)
	assert.Equal(t, "Sofia, Bulgaria", out)

	_, err = table.Translate(context.Background(), "Варна", "bg", "en")
	assert.ErrorIs(t, err, ErrTranslationFailure)
	assert.True(t, IsPermanent(err))
}

func TestLoadStatic_Empty(t *testing.T) {
	table, err := LoadStatic(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, table)
}

func TestRetry_RecoversAfterFailure(t *testing.T) {
	inner := &scripted{results: []scriptedResult{
		{err: errors.New("connection reset")},
		{out: "Sofia"},
	}}
	r := NewRetry("test", inner, 2, time.Second, discardLogger())
	r.baseDelay = time.Millisecond

	out, err := r.Translate(context.Background(), "София", "bg", "en")
	require.NoError(t, err)
	assert.Equal(t, "Sofia", out)
	assert.Equal(t, 2, inner.calls)
}

func TestRetry_ExhaustedIsFailure(t *testing.T) {
	inner := &scripted{results: []scriptedResult{{err: errors.New("rate limited")}}}
	r := NewRetry("test", inner, 2, time.Second, discardLogger())
	r.baseDelay = time.Millisecond

	_, err := r.Translate(context.Background(), "София", "bg", "en")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTranslationFailure)
	assert.Equal(t, 3, inner.calls)
}

func TestRetry_StopsOnPermanentFailure(t *testing.T) {
	inner := &scripted{results: []scriptedResult{
		{err: permanent(errors.New("quota exhausted"))},
		{out: "Sofia"},
	}}
	r := NewRetry("test", inner, 2, time.Second, discardLogger())
	r.baseDelay = time.Millisecond

	_, err := r.Translate(context.Background(), "София", "bg", "en")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTranslationFailure)
	assert.True(t, IsPermanent(err))
	assert.Equal(t, 1, inner.calls)
}

func TestRetry_MyMemoryStatuses(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		expected int
	}{
		{name: "quota reply not retried", status: http.StatusOK, body: `{"responseData":{"translatedText":""},"responseStatus":403,"responseDetails":"quota"}`, expected: 1},
		{name: "client error not retried", status: http.StatusBadRequest, body: "bad langpair", expected: 1},
		{name: "server error retried", status: http.StatusServiceUnavailable, body: "down", expected: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var mu sync.Mutex
			hits := 0
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				mu.Lock()
				hits++
				mu.Unlock()
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			m := NewMyMemory("")
			m.baseURL = srv.URL
			r := NewRetry(BackendMyMemory, m, 2, time.Second, discardLogger())
			r.baseDelay = time.Millisecond

			_, err := r.Translate(context.Background(), "София", "bg", "en")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrTranslationFailure)

			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, tt.expected, hits)
		})
	}
}

func TestRetry_TimeoutPerAttempt(t *testing.T) {
	r := NewRetry("test", blocking{}, 1, 20*time.Millisecond, discardLogger())
	r.baseDelay = time.Millisecond

	_, err := r.Translate(context.Background(), "София", "bg", "en")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTranslationTimeout)
}

func TestRetry_StopsWhenParentCancelled(t *testing.T) {
	inner := &scripted{results: []scriptedResult{{err: errors.New("unavailable")}}}
	r := NewRetry("test", inner, 5, time.Second, discardLogger())
	r.baseDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := r.Translate(ctx, "София", "bg", "en")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTranslationFailure)
	assert.Equal(t, 1, inner.calls)
}

func TestNew_SelectsBackend(t *testing.T) {
	tr, err := New(Options{Backend: BackendTransliterate})
	require.NoError(t, err)
	assert.IsType(t, Transliterator{}, tr)

	tr, err = New(Options{Backend: BackendMyMemory, Retries: 1, Timeout: time.Second, Logger: discardLogger()})
	require.NoError(t, err)
	assert.IsType(t, &Retry{}, tr)

	_, err = New(Options{Backend: "babelfish"})
	assert.Error(t, err)
}

func TestClassify(t *testing.T) {
	assert.ErrorIs(t, classify("x", context.DeadlineExceeded), ErrTranslationTimeout)
	assert.ErrorIs(t, classify("x", context.Canceled), ErrTranslationFailure)
	assert.ErrorIs(t, classify("x", errors.New("boom")), ErrTranslationFailure)

	already := classify("x", ErrTranslationTimeout)
	assert.False(t, errors.Is(already, ErrTranslationFailure))
}
