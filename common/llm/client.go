package llm

import (
	"context"
	"errors"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"
)

// UpstreamStatus returns the HTTP status the provider answered with, if err
// carries one from either SDK.
func UpstreamStatus(err error) (int, bool) {
	var openaiErr *openai.Error
	if errors.As(err, &openaiErr) {
		return openaiErr.StatusCode, true
	}

	var anthropicErr *anthropic.Error
	if errors.As(err, &anthropicErr) {
		return anthropicErr.StatusCode, true
	}

	return 0, false
}

// IsTimeout reports whether err is the result of a deadline expiring while
// waiting on the provider.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
