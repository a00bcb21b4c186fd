// Package parse turns natural-language reminder requests into structured
// drafts.
package parse

import (
	"context"
	"log"

	"remind/internal/schema"
)

// Parser produces a draft from free-form text. A draft with Success unset
// carries the refusal reason in Error; the error return is reserved for
// infrastructure failures.
type Parser interface {
	Parse(ctx context.Context, text, timezone string) (*schema.Draft, error)
}

// New picks a parser for the given configuration: the model-backed parser
// when an API key is present (with the rule-based one as fallback), the
// rule-based parser alone otherwise.
func New(apiKey, model string, logger *log.Logger) Parser {
	local := NewLocal(logger)
	if apiKey == "" {
		return local
	}
	return NewLLM(apiKey, model, local, logger)
}
