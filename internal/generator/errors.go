package generator

import "errors"

var (
	// ErrInvalidRequest marks a request rejected before any model call.
	ErrInvalidRequest = errors.New("generator: invalid request")

	// ErrGenerationFailed marks a failed model call. It wraps the provider
	// error, which may be an *llm.APIError.
	ErrGenerationFailed = errors.New("generator: generation failed")
)
