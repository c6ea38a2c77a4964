package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/abhisek/rounds/internal/apperr"
)

// ErrRateLimit indicates the provider returned a rate limit error (429).
type ErrRateLimit struct {
	RetryAfter time.Duration
	Err        error
}

func (e *ErrRateLimit) Error() string {
	return fmt.Sprintf("rate limited (retry after %s): %v", e.RetryAfter, e.Err)
}

func (e *ErrRateLimit) Unwrap() error { return e.Err }

// ErrInvalidResponse indicates the model returned content that is not JSON or
// does not conform to the requested schema.
type ErrInvalidResponse struct {
	Content json.RawMessage
	Err     error
}

func (e *ErrInvalidResponse) Error() string {
	return fmt.Sprintf("invalid LLM response: %v", e.Err)
}

func (e *ErrInvalidResponse) Unwrap() error { return e.Err }

// ErrProviderUnavailable indicates the provider is down or unreachable.
type ErrProviderUnavailable struct {
	Err error
}

func (e *ErrProviderUnavailable) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("LLM provider unavailable: %v", e.Err)
	}
	return "LLM provider unavailable"
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Err }

// ErrMaxTokensExceeded indicates the reply was cut off at MaxTokens.
type ErrMaxTokensExceeded struct {
	Content json.RawMessage
}

func (e *ErrMaxTokensExceeded) Error() string {
	return "LLM response truncated: max tokens exceeded"
}

// Classify maps a provider error onto the application taxonomy: malformed
// output is a validation failure, everything that may succeed later is
// transient. Unknown errors are returned unchanged.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var inv *ErrInvalidResponse
	var maxTok *ErrMaxTokensExceeded
	var rl *ErrRateLimit
	var unavail *ErrProviderUnavailable

	switch {
	case errors.As(err, &inv), errors.As(err, &maxTok):
		return apperr.Invalid("generated output", err)
	case errors.As(err, &rl), errors.As(err, &unavail), errors.Is(err, context.DeadlineExceeded):
		return apperr.Transient(op, err)
	}
	return err
}
