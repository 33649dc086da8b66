package chunk

import "strings"

// Chunker splits raw text into overlapping chunks, preferring function and
// class boundaries when the language is recognized.
type Chunker struct {
	opts Options
}

// New creates a chunker with default options.
func New() *Chunker {
	return NewWithOptions(DefaultOptions())
}

// NewWithOptions creates a chunker with custom options.
func NewWithOptions(opts Options) *Chunker {
	if opts.MaxChunkSize <= 0 {
		opts.MaxChunkSize = DefaultMaxChunkSize
	}
	if opts.Overlap < 0 || opts.Overlap >= opts.MaxChunkSize {
		opts.Overlap = DefaultOverlap
	}
	return &Chunker{opts: opts}
}

// lineInfo carries per-line scope tracking computed in a single pass.
type lineInfo struct {
	text       string
	size       int // len + newline
	isBoundary bool
	funcName   string // enclosing function as of this line
	classScope string // enclosing class as of this line
}

// Chunk splits content into chunks with source-location metadata.
// Returns an empty slice for empty content. Never fails: unrecognized or
// malformed input falls back to plain size-based splitting.
func (c *Chunker) Chunk(content, filePath string) []Chunk {
	if len(strings.TrimSpace(content)) == 0 {
		return []Chunk{}
	}

	language := DetectLanguage(filePath, content)
	lang := configForLanguage(language)

	lines := c.scanLines(content, lang)

	var chunks []Chunk
	start := 0
	size := 0
	lastBoundary := -1

	flush := func(end int) {
		if end <= start {
			return
		}
		chunks = append(chunks, c.buildChunk(lines, start, end, language, lang))

		// Carry overlap into the next chunk, except across a boundary break:
		// a new symbol should not begin with the previous symbol's tail.
		newStart := end
		if !(c.opts.RespectBoundaries && end == lastBoundary) {
			carried := 0
			for j := end - 1; j > start && carried+lines[j].size <= c.opts.Overlap; j-- {
				carried += lines[j].size
				newStart = j
			}
		}
		start = newStart
		size = 0
		for j := start; j < end; j++ {
			size += lines[j].size
		}
		lastBoundary = -1
	}

	for i := 0; i < len(lines); i++ {
		li := lines[i]

		// A single line longer than the budget is hard-split on its own.
		if li.size > c.opts.MaxChunkSize && size == 0 {
			chunks = append(chunks, c.splitLongLine(li, i, language)...)
			start = i + 1
			lastBoundary = -1
			continue
		}

		if size+li.size > c.opts.MaxChunkSize && size > 0 {
			end := i
			if c.opts.RespectBoundaries && lang != nil &&
				lastBoundary > start && sizeBetween(lines, start, lastBoundary) >= minBoundaryChunkSize {
				end = lastBoundary
			}
			flush(end)
			// Resume accumulation at the first unconsumed line
			i = end - 1
			continue
		}

		if li.isBoundary {
			lastBoundary = i
		}
		size += li.size
	}

	flush(len(lines))
	return chunks
}

// scanLines splits content into lines and tracks boundary/scope info.
func (c *Chunker) scanLines(content string, lang *LanguageConfig) []lineInfo {
	raw := strings.Split(content, "\n")
	lines := make([]lineInfo, len(raw))

	currentFunc := ""
	currentClass := ""

	for i, text := range raw {
		li := lineInfo{text: text, size: len(text) + 1}

		if lang != nil {
			if lang.ClassPattern != nil {
				if name, ok := extractName(lang.ClassPattern, text); ok {
					currentClass = name
					currentFunc = ""
					li.isBoundary = true
				}
			}
			if !li.isBoundary && lang.FunctionPattern != nil {
				if name, ok := extractName(lang.FunctionPattern, text); ok {
					currentFunc = name
					li.isBoundary = true
				}
			}
		}

		li.funcName = currentFunc
		li.classScope = currentClass
		lines[i] = li
	}

	return lines
}

// buildChunk assembles a chunk from lines[start:end).
func (c *Chunker) buildChunk(lines []lineInfo, start, end int, language string, lang *LanguageConfig) Chunk {
	var sb strings.Builder
	for j := start; j < end; j++ {
		if j > start {
			sb.WriteByte('\n')
		}
		sb.WriteString(lines[j].text)
	}

	return Chunk{
		Content: sb.String(),
		Metadata: Metadata{
			StartLine:    start + 1,
			EndLine:      end,
			Language:     language,
			FunctionName: lines[start].funcName,
			ClassScope:   lines[start].classScope,
			IsDocstring:  isDocChunk(lines[start:end], lang),
		},
	}
}

// splitLongLine hard-splits one oversized line into character windows.
func (c *Chunker) splitLongLine(li lineInfo, idx int, language string) []Chunk {
	var chunks []Chunk
	text := li.text
	step := c.opts.MaxChunkSize - c.opts.Overlap

	for off := 0; off < len(text); off += step {
		end := off + c.opts.MaxChunkSize
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, Chunk{
			Content: text[off:end],
			Metadata: Metadata{
				StartLine:    idx + 1,
				EndLine:      idx + 1,
				Language:     language,
				FunctionName: li.funcName,
				ClassScope:   li.classScope,
			},
		})
		if end == len(text) {
			break
		}
	}

	return chunks
}

// isDocChunk reports whether a chunk is predominantly documentation lines.
func isDocChunk(lines []lineInfo, lang *LanguageConfig) bool {
	if lang == nil || len(lang.DocPrefixes) == 0 {
		return false
	}

	doc, total := 0, 0
	for _, li := range lines {
		trimmed := strings.TrimSpace(li.text)
		if trimmed == "" {
			continue
		}
		total++
		for _, prefix := range lang.DocPrefixes {
			if strings.HasPrefix(trimmed, prefix) {
				doc++
				break
			}
		}
	}

	return total > 0 && doc*2 > total
}

// sizeBetween sums line sizes in [start, end).
func sizeBetween(lines []lineInfo, start, end int) int {
	size := 0
	for j := start; j < end; j++ {
		size += lines[j].size
	}
	return size
}
