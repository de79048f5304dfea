package domain

import "errors"

// Error taxonomy for the pipeline. Lexical search degrades to empty results
// on ErrIndexUnavailable; every other error propagates to the caller.
var (
	// ErrIndexUnavailable means the lexical or vector engine could not be
	// reached after bounded retries. Non-fatal at the search boundary,
	// fatal at the ingestion boundary.
	ErrIndexUnavailable = errors.New("index unavailable")

	// ErrEmbeddingFailure means the embedding provider failed. Always fatal:
	// neither ingestion nor query can proceed without embeddings.
	ErrEmbeddingFailure = errors.New("embedding failure")

	// ErrCompletionFailure means the language-model call failed. Always
	// surfaced to the caller, never returned as an empty answer.
	ErrCompletionFailure = errors.New("completion failure")

	// ErrMalformedContent means extraction produced empty or unusable text
	// for a page. The page is skipped, the document and batch continue.
	ErrMalformedContent = errors.New("malformed page content")

	// ErrModelMismatch means stored vectors were produced by a different
	// embedding model than the active provider. Similarity against them
	// would be meaningless, so queries fail loudly instead.
	ErrModelMismatch = errors.New("embedding model mismatch")
)
