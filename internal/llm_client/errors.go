package llm_client

import "errors"

var (
	// ErrNotInitialized is returned when Generate/GenerateJSON run before Init.
	ErrNotInitialized = errors.New("llm_client: provider not initialized")

	// ErrMalformed marks responses that arrived but could not be decoded
	// against the expected schema.
	ErrMalformed = errors.New("llm_client: malformed response")
)
