// Package process runs a submission through parsing, grouping and
// formatting.
package process

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/artemgubar/addrgroup/internal/group"
	"github.com/artemgubar/addrgroup/internal/input"
	"github.com/artemgubar/addrgroup/internal/metrics"
	"github.com/artemgubar/addrgroup/internal/translate"
)

// Input modes, used as log and metric labels.
const (
	ModeText = "text"
	ModeCSV  = "csv"
)

// Error kinds reported by Kind.
const (
	KindMalformedRecord    = "malformed_record"
	KindMissingField       = "missing_field"
	KindEncoding           = "encoding"
	KindTranslationFailure = "translation_failure"
	KindTranslationTimeout = "translation_timeout"
	KindCanceled           = "canceled"
	KindInternal           = "internal"
)

// ErrorDetail is the only failure text clients see.
const ErrorDetail = "Error processing data"

// Pipeline is what the HTTP and WebSocket transports serve. *Processor
// implements it.
type Pipeline interface {
	ProcessText(ctx context.Context, text string) (string, error)
	ProcessCSV(ctx context.Context, data []byte) (string, error)
}

type requestIDKey struct{}

// WithRequestID returns a context carrying the transport's request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the id stored by WithRequestID, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Processor turns raw submissions into grouped output.
type Processor struct {
	engine *group.Engine
	logger *slog.Logger
}

// NewProcessor creates a Processor around engine.
func NewProcessor(engine *group.Engine, logger *slog.Logger) *Processor {
	return &Processor{
		engine: engine,
		logger: logger,
	}
}

// ProcessText groups the people in a "name, address" text blob.
func (p *Processor) ProcessText(ctx context.Context, text string) (string, error) {
	return p.run(ctx, ModeText, func() (*input.People, error) {
		return input.ParseText(text)
	})
}

// ProcessCSV groups the people in a CSV upload.
func (p *Processor) ProcessCSV(ctx context.Context, data []byte) (string, error) {
	return p.run(ctx, ModeCSV, func() (*input.People, error) {
		return input.ParseCSV(data)
	})
}

func (p *Processor) run(ctx context.Context, mode string, parse func() (*input.People, error)) (string, error) {
	start := time.Now()
	logger := p.logger
	if id := RequestID(ctx); id != "" {
		logger = logger.With("request_id", id)
	}

	people, err := parse()
	if err != nil {
		return "", fail(logger, mode, fmt.Errorf("parse %s input: %w", mode, err))
	}

	groups, err := p.engine.Cluster(ctx, people)
	if err != nil {
		return "", fail(logger, mode, fmt.Errorf("group addresses: %w", err))
	}

	output := group.Format(groups)
	duration := time.Since(start)

	metrics.RecordProcessed(mode, people.Len(), len(groups), duration)
	logger.Info("submission processed",
		"mode", mode,
		"records", people.Len(),
		"groups", len(groups),
		"duration_ms", duration.Milliseconds(),
	)

	return output, nil
}

func fail(logger *slog.Logger, mode string, err error) error {
	kind := Kind(err)
	metrics.RecordProcessingFailure(kind)
	logger.Debug("submission failed", "mode", mode, "kind", kind, "error", err)
	return err
}

// Kind classifies a processing error for logs and metrics.
func Kind(err error) string {
	switch {
	case errors.Is(err, input.ErrMalformedRecord):
		return KindMalformedRecord
	case errors.Is(err, input.ErrMissingField):
		return KindMissingField
	case errors.Is(err, input.ErrEncoding):
		return KindEncoding
	case errors.Is(err, translate.ErrTranslationTimeout):
		return KindTranslationTimeout
	case errors.Is(err, translate.ErrTranslationFailure):
		return KindTranslationFailure
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindInternal
	}
}
