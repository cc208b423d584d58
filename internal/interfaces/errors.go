package interfaces

import "errors"

// Error kinds surfaced by the retrieval pipeline. Services wrap these with
// call context via fmt.Errorf("...: %w", err); callers match with errors.Is.
var (
	// ErrInvalidConfiguration - rejected parameters (bad chunk sizes,
	// malformed config values). Reported at call time, never deferred.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrEmbeddingUnavailable - no embedding provider could produce a
	// vector, after the fallback tier was attempted. Timeouts on provider
	// calls are reported as this kind.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")

	// ErrDimensionMismatch - a vector of the wrong length reached the
	// index. Indicates model/index drift and is never retried.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrUnsupportedBackend - unknown storage backend requested at
	// construction time.
	ErrUnsupportedBackend = errors.New("unsupported storage backend")

	// ErrEngineNotReady - query engine used before its collaborators
	// were wired up.
	ErrEngineNotReady = errors.New("query engine not ready")

	// ErrRetrievalFailed - the vector store failed during a search.
	// Fatal for that call; the caller decides whether to retry.
	ErrRetrievalFailed = errors.New("retrieval failed")
)
