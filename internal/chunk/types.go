// Package chunk splits file content into semantically bounded, overlapping
// pieces with source-location metadata. Chunking is best-effort: malformed
// input degrades to plain size-based splitting, never an error.
package chunk

// Chunk size defaults. ~500 characters with ~10% overlap keeps chunks inside
// typical embedding model token budgets while preserving cross-chunk context.
const (
	DefaultMaxChunkSize = 500
	DefaultOverlap      = 50

	// minBoundaryChunkSize is the smallest chunk a boundary break may produce.
	// Breaking earlier than this wastes embedding calls on fragments.
	minBoundaryChunkSize = DefaultMaxChunkSize / 4
)

// Metadata describes the source location and syntactic context of a chunk.
type Metadata struct {
	// StartLine is 1-indexed.
	StartLine int `json:"startLine"`
	// EndLine is inclusive.
	EndLine int `json:"endLine"`
	// Language is the detected language tag (go, python, text, ...).
	Language string `json:"language"`
	// FunctionName is the enclosing function at the chunk start, if any.
	FunctionName string `json:"functionName,omitempty"`
	// ClassScope is the enclosing class/type at the chunk start, if any.
	ClassScope string `json:"classScope,omitempty"`
	// IsDocstring marks chunks that are predominantly documentation.
	IsDocstring bool `json:"isDocstring,omitempty"`
}

// Chunk is a bounded slice of a file's text, the unit of embedding.
// Chunks are immutable and only persisted as part of a vector.
type Chunk struct {
	Content  string
	Metadata Metadata
}

// Options configures the chunker behavior.
type Options struct {
	// MaxChunkSize is the target maximum chunk size in characters.
	MaxChunkSize int
	// Overlap is the number of characters carried into the next chunk.
	Overlap int
	// RespectBoundaries prefers breaking on function/class boundaries.
	RespectBoundaries bool
}

// DefaultOptions returns the default chunker options.
func DefaultOptions() Options {
	return Options{
		MaxChunkSize:      DefaultMaxChunkSize,
		Overlap:           DefaultOverlap,
		RespectBoundaries: true,
	}
}
