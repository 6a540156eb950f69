package translate

import (
	"context"
	"log/slog"
	"time"

	"github.com/artemgubar/addrgroup/internal/metrics"
)

const (
	retryBaseDelay = 200 * time.Millisecond
	retryMaxDelay  = 2 * time.Second
)

// Retry bounds each call to the wrapped translator with a timeout and retries
// failed calls with exponential backoff. Permanent failures are returned at
// once.
type Retry struct {
	name      string
	next      Translator
	retries   int
	timeout   time.Duration
	baseDelay time.Duration
	logger    *slog.Logger
}

var _ Translator = (*Retry)(nil)

// NewRetry wraps next. A zero timeout leaves attempts bounded only by ctx.
func NewRetry(name string, next Translator, retries int, timeout time.Duration, logger *slog.Logger) *Retry {
	if retries < 0 {
		retries = 0
	}
	return &Retry{
		name:      name,
		next:      next,
		retries:   retries,
		timeout:   timeout,
		baseDelay: retryBaseDelay,
		logger:    logger,
	}
}

// Translate implements Translator.
func (r *Retry) Translate(ctx context.Context, text, from, to string) (string, error) {
	delay := r.baseDelay
	var lastErr error

	for attempt := 0; attempt <= r.retries; attempt++ {
		if attempt > 0 {
			metrics.RecordTranslationRetry(r.name)
			select {
			case <-ctx.Done():
				metrics.RecordTranslation(r.name, "error")
				return "", classify(r.name, ctx.Err())
			case <-time.After(delay):
				delay *= 2
				if delay > retryMaxDelay {
					delay = retryMaxDelay
				}
			}
		}

		out, err := r.attempt(ctx, text, from, to)
		if err == nil {
			metrics.RecordTranslation(r.name, "ok")
			return out, nil
		}

		lastErr = err
		r.logger.Warn("translation attempt failed",
			"backend", r.name,
			"attempt", attempt+1,
			"error", err,
		)

		if ctx.Err() != nil || IsPermanent(err) {
			break
		}
	}

	metrics.RecordTranslation(r.name, "error")
	return "", lastErr
}

func (r *Retry) attempt(ctx context.Context, text, from, to string) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	out, err := r.next.Translate(ctx, text, from, to)
	if err != nil {
		return "", classify(r.name, err)
	}
	return out, nil
}
