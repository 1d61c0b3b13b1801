package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates functionality is not yet available.
	ErrNotImplemented = errors.New("not implemented")

	// Ingestion Errors.

	// ErrUnsupportedFormat indicates a file whose format cannot be ingested.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrEmptyDocument indicates a file that produced no text to index.
	ErrEmptyDocument = errors.New("document has no extractable text")

	// ErrFileTooLarge indicates an upload exceeding the configured size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrNoValidFiles indicates an upload batch in which every file was skipped.
	ErrNoValidFiles = errors.New("no valid files in upload")

	// Embedding and Index Errors.

	// ErrEmptyInput indicates an embedding request for empty or whitespace-only text.
	ErrEmptyInput = errors.New("empty input")

	// ErrIndexIntegrity indicates a vector dimension mismatch or a corrupted
	// persisted index. Fatal to the affected operation only.
	ErrIndexIntegrity = errors.New("index integrity violation")

	// Backend Errors.

	// ErrBackendUnreachable indicates the model backend could not be contacted.
	ErrBackendUnreachable = errors.New("model backend unreachable")

	// ErrModelPullFailed indicates the one-time model pull did not succeed.
	ErrModelPullFailed = errors.New("model pull failed")

	// ErrStillProcessing indicates the backend accepted the request but has
	// not produced a final response yet. Retryable.
	ErrStillProcessing = errors.New("backend still processing")

	// ErrGenerationTimeout indicates generation retries were exhausted.
	ErrGenerationTimeout = errors.New("generation timed out")

	// ErrBackendRejected indicates a non-retryable client error from the backend.
	ErrBackendRejected = errors.New("backend rejected request")
)
