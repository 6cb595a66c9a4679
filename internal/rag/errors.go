package rag

import "errors"

// Pipeline errors. All are terminal for the current call; callers decide
// whether to retry, surface, or log. The pipeline never substitutes a
// fabricated answer when grounding context is missing or a claim cannot be
// traced to a source.
var (
	// ErrInvalidArgument reports a caller mistake (bad chunk size, k <= 0).
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrDimensionMismatch reports a vector whose length differs from the
	// index's established dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrEmbeddingUnavailable reports a failed call to the embedding provider.
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")

	// ErrGenerationUnavailable reports a failed call to the generation provider.
	ErrGenerationUnavailable = errors.New("generation provider unavailable")

	// ErrGenerationParseError reports model output that does not match the
	// requested schema.
	ErrGenerationParseError = errors.New("generation output did not match schema")

	// ErrUngroundedClaim reports generated output citing a source that was
	// not part of the supplied context.
	ErrUngroundedClaim = errors.New("generated output cites unknown source")

	// ErrNoGroundingContext reports a generation attempt with no retrieved
	// chunks to ground on.
	ErrNoGroundingContext = errors.New("no grounding context available")
)
