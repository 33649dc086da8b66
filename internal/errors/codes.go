// Package errors provides structured error handling for codesift.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Initialization errors (embedding backend load/probe)
//   - 2XX: Embedding errors (inference failures)
//   - 3XX: Storage errors (vector database I/O)
//   - 4XX: Shard routing errors
//   - 5XX: Configuration and input errors
//   - 6XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryInitialization indicates embedding backend startup errors.
	CategoryInitialization Category = "INITIALIZATION"
	// CategoryEmbedding indicates inference errors for a given input.
	CategoryEmbedding Category = "EMBEDDING"
	// CategoryStorage indicates vector store I/O errors.
	CategoryStorage Category = "STORAGE"
	// CategoryRouting indicates shard routing errors.
	CategoryRouting Category = "ROUTING"
	// CategoryConfig indicates configuration and input errors.
	CategoryConfig Category = "CONFIG"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Initialization errors (100-199)
	ErrCodeEmbedderInit        = "ERR_101_EMBEDDER_INIT"
	ErrCodeEmbedderUnavailable = "ERR_102_EMBEDDER_UNAVAILABLE"
	ErrCodeModelLoad           = "ERR_103_MODEL_LOAD"

	// Embedding errors (200-299)
	ErrCodeEmbeddingFailed = "ERR_201_EMBEDDING_FAILED"
	ErrCodeEmbedderClosed  = "ERR_202_EMBEDDER_CLOSED"

	// Storage errors (300-399)
	ErrCodeStorageIO         = "ERR_301_STORAGE_IO"
	ErrCodeStoreClosed       = "ERR_302_STORE_CLOSED"
	ErrCodeDimensionMismatch = "ERR_303_DIMENSION_MISMATCH"
	ErrCodeCorruptIndex      = "ERR_304_CORRUPT_INDEX"

	// Shard routing errors (400-499)
	ErrCodeShardOutOfRange = "ERR_401_SHARD_OUT_OF_RANGE"
	ErrCodeShardCount      = "ERR_402_INVALID_SHARD_COUNT"

	// Configuration and input errors (500-599)
	ErrCodeConfigInvalid = "ERR_501_CONFIG_INVALID"
	ErrCodeFileNotFound  = "ERR_502_FILE_NOT_FOUND"
	ErrCodeInvalidInput  = "ERR_503_INVALID_INPUT"

	// Internal errors (600-699)
	ErrCodeInternal = "ERR_601_INTERNAL"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Extract numeric portion (e.g., "101" from "ERR_101_EMBEDDER_INIT")
	switch code[4] {
	case '1':
		return CategoryInitialization
	case '2':
		return CategoryEmbedding
	case '3':
		return CategoryStorage
	case '4':
		return CategoryRouting
	case '5':
		return CategoryConfig
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeCorruptIndex:
		return SeverityFatal
	}

	if isRetryableCode(code) {
		return SeverityWarning
	}

	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeEmbedderUnavailable, ErrCodeEmbeddingFailed, ErrCodeModelLoad:
		return true
	default:
		return false
	}
}
