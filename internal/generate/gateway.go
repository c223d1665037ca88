// Package generate turns a prompt into a laid-out flow via an external model.
package generate

import (
	"context"
	"errors"

	"neuralflow/internal/domain"
)

var (
	ErrEmptyPrompt       = errors.New("prompt is empty")
	ErrMalformedResponse = errors.New("model returned malformed JSON")
	ErrSchemaViolation   = errors.New("model response violates the flow schema")
	ErrUpstream          = errors.New("generation request failed")
)

// Gateway produces a complete flow for a prompt. Implementations return
// one of the package errors (wrapped) on failure and never a partial flow.
type Gateway interface {
	Generate(ctx context.Context, prompt string) (domain.Flow, error)
}

// GatewayFunc adapts a function to Gateway.
type GatewayFunc func(ctx context.Context, prompt string) (domain.Flow, error)

func (f GatewayFunc) Generate(ctx context.Context, prompt string) (domain.Flow, error) {
	return f(ctx, prompt)
}
