// Package chunker splits extracted document text into overlapping,
// bounded-length chunks suitable for embedding.
//
// The splitter is deterministic: identical text and configuration always
// produce identical chunk boundaries, so re-ingesting an unchanged file yields
// the same chunks. Chunks are exact slices of the input; concatenating them in
// order, after dropping the configured overlap from every chunk but the first,
// reconstructs the input byte for byte.
package chunker

import "strings"

const (
	// DefaultSize and DefaultOverlap match the splitter settings the original
	// corpus was indexed with.
	DefaultSize    = 1000
	DefaultOverlap = 200
)

// codeFileTypes get newline-preferred boundaries instead of paragraph ones.
var codeFileTypes = map[string]bool{
	"go": true, "py": true, "js": true, "ts": true, "java": true,
	"c": true, "cpp": true, "h": true, "cs": true, "rs": true,
}

// Chunker splits text into chunks of at most Size bytes, with Overlap bytes
// repeated between consecutive chunks to preserve cross-boundary context.
type Chunker struct {
	size    int
	overlap int
}

// New creates a Chunker, falling back to defaults for non-positive size and
// clamping the overlap below the chunk size.
func New(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultSize
	}
	if overlap < 0 {
		overlap = DefaultOverlap
	}
	if overlap >= size {
		overlap = size / 4
	}
	return &Chunker{size: size, overlap: overlap}
}

// Size returns the configured maximum chunk length.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the configured overlap between consecutive chunks.
func (c *Chunker) Overlap() int { return c.overlap }

// Chunk splits text into ordered chunks. Empty input yields zero chunks.
// fileType selects the boundary heuristic: code files break on newlines,
// prose on blank lines, both falling back to word boundaries and finally a
// hard cut. Boundaries avoid landing inside a fenced code block.
func (c *Chunker) Chunk(text, fileType string) []string {
	if len(text) == 0 {
		return nil
	}
	if len(text) <= c.size {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + c.size
		if end >= len(text) {
			chunks = append(chunks, text[start:])
			break
		}
		end = c.boundary(text, start, end, fileType)
		chunks = append(chunks, text[start:end])
		start = end - c.overlap
	}
	return chunks
}

// boundary picks the split point inside (start+overlap, limit]. The chunk must
// end strictly past start+overlap, otherwise the next chunk would not advance.
func (c *Chunker) boundary(text string, start, limit int, fileType string) int {
	min := start + c.overlap + 1
	if min > limit {
		return limit
	}
	window := text[start:limit]

	candidates := []string{"\n\n", "\n", " "}
	if codeFileTypes[fileType] {
		candidates = []string{"\n", " "}
	}
	for _, sep := range candidates {
		// Boundary sits just after the separator.
		if i := strings.LastIndex(window, sep); i >= 0 {
			end := start + i + len(sep)
			if end >= min && !insideFence(text[start:end]) {
				return end
			}
		}
	}
	if end := fenceSafe(text, start, limit, min); end > 0 {
		return end
	}
	return limit
}

// insideFence reports whether the text ends inside an unclosed ``` fence.
func insideFence(s string) bool {
	return strings.Count(s, "```")%2 == 1
}

// fenceSafe backs a hard cut up to the opening of a fence when the cut would
// otherwise land inside it. Returns 0 when no adjustment applies.
func fenceSafe(text string, start, limit, min int) int {
	if !insideFence(text[start:limit]) {
		return limit
	}
	open := strings.LastIndex(text[start:limit], "```")
	if open < 0 {
		return 0
	}
	end := start + open
	if end >= min {
		return end
	}
	return 0
}

// Reassemble is the inverse of Chunk: it concatenates chunks, dropping the
// configured overlap from every chunk after the first. Primarily used to
// verify the reconstruction invariant.
func (c *Chunker) Reassemble(chunks []string) string {
	var b strings.Builder
	for i, ch := range chunks {
		if i == 0 {
			b.WriteString(ch)
			continue
		}
		if len(ch) > c.overlap {
			b.WriteString(ch[c.overlap:])
		}
	}
	return b.String()
}
