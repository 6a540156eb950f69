// Package group partitions people into groups of similar addresses and
// renders the result.
package group

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/artemgubar/addrgroup/internal/input"
	"github.com/artemgubar/addrgroup/internal/match"
)

// DefaultThreshold is the Jaccard similarity a candidate must exceed to join
// a pivot's group.
const DefaultThreshold = 0.5

// Engine groups people by address similarity. It holds no per-run state and
// is safe for concurrent use if its Normalizer's translator is.
type Engine struct {
	normalizer *match.Normalizer
	threshold  float64
	logger     *slog.Logger
}

// NewEngine creates a new grouping engine
func NewEngine(normalizer *match.Normalizer, threshold float64, logger *slog.Logger) *Engine {
	return &Engine{
		normalizer: normalizer,
		threshold:  threshold,
		logger:     logger,
	}
}

// Threshold returns the similarity threshold in use.
func (e *Engine) Threshold() float64 {
	return e.threshold
}

// Cluster partitions every name in people into exactly one group.
//
// The first remaining name becomes the pivot and collects each later name
// whose address is similar to the pivot's. Membership depends only on the
// pivot, so two members of one group need not be similar to each other, and
// the result depends on input order. Names within a group are sorted.
func (e *Engine) Cluster(ctx context.Context, people *input.People) ([][]string, error) {
	names := people.Names()

	tokens, err := e.tokenize(ctx, names, people)
	if err != nil {
		return nil, err
	}

	groups := make([][]string, 0)
	worklist := names

	for len(worklist) > 0 {
		pivot := worklist[0]
		group := []string{pivot}
		remaining := make([]string, 0, len(worklist)-1)

		for _, candidate := range worklist[1:] {
			if match.IsSimilar(tokens[pivot], tokens[candidate], e.threshold) {
				group = append(group, candidate)
			} else {
				remaining = append(remaining, candidate)
			}
		}

		slices.Sort(group)
		groups = append(groups, group)
		worklist = remaining

		e.logger.Debug("group formed", "pivot", pivot, "size", len(group))
	}

	return groups, nil
}

// tokenize normalizes each address once. This is the only step that may
// call the translator.
func (e *Engine) tokenize(ctx context.Context, names []string, people *input.People) (map[string]match.TokenSet, error) {
	tokens := make(map[string]match.TokenSet, len(names))

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		address, _ := people.Address(name)
		normalized, err := e.normalizer.Normalize(ctx, address)
		if err != nil {
			return nil, fmt.Errorf("normalize address for %q: %w", name, err)
		}
		tokens[name] = match.Tokenize(normalized)
	}

	return tokens, nil
}
