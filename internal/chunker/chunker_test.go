package chunker

import (
	"strings"
	"testing"
)

func TestChunk_EmptyInput(t *testing.T) {
	c := New(100, 20)
	if got := c.Chunk("", "text"); got != nil {
		t.Fatalf("expected no chunks for empty input, got %d", len(got))
	}
}

func TestChunk_ShortInputSingleChunk(t *testing.T) {
	c := New(100, 20)
	got := c.Chunk("hello world", "text")
	if len(got) != 1 || got[0] != "hello world" {
		t.Fatalf("expected single identity chunk, got %v", got)
	}
}

func TestChunk_RespectsMaxSize(t *testing.T) {
	c := New(100, 20)
	text := strings.Repeat("lorem ipsum dolor sit amet ", 50)
	for i, ch := range c.Chunk(text, "text") {
		if len(ch) > 100 {
			t.Errorf("chunk %d exceeds max size: %d bytes", i, len(ch))
		}
	}
}

func TestChunk_Deterministic(t *testing.T) {
	c := New(120, 30)
	text := strings.Repeat("The quick brown fox jumps over the lazy dog.\n\n", 40)
	first := c.Chunk(text, "text")
	second := c.Chunk(text, "text")
	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("chunk %d differs between runs", i)
		}
	}
}

func TestChunk_ReconstructsOriginalText(t *testing.T) {
	texts := map[string]string{
		"prose":    strings.Repeat("Sentence one. Sentence two goes on a bit longer.\n\nNew paragraph here. ", 30),
		"code":     strings.Repeat("func main() {\n\tfmt.Println(\"hi\")\n}\n", 60),
		"unbroken": strings.Repeat("x", 5000),
		"fenced":   strings.Repeat("Intro text.\n\n```\ncode line one\ncode line two\n```\n\nOutro text here. ", 25),
	}
	c := New(200, 40)
	for name, text := range texts {
		t.Run(name, func(t *testing.T) {
			chunks := c.Chunk(text, "text")
			if got := c.Reassemble(chunks); got != text {
				t.Errorf("reconstruction mismatch: got %d bytes, want %d", len(got), len(text))
			}
		})
	}
}

func TestChunk_ConsecutiveChunksOverlap(t *testing.T) {
	c := New(150, 30)
	text := strings.Repeat("alpha beta gamma delta epsilon zeta eta theta ", 40)
	chunks := c.Chunk(text, "text")
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		tail := chunks[i-1][len(chunks[i-1])-30:]
		head := chunks[i][:30]
		if tail != head {
			t.Fatalf("chunk %d does not start with previous chunk's tail", i)
		}
	}
}

func TestChunk_AvoidsSplittingInsideFence(t *testing.T) {
	text := "Some leading prose to fill space before the block starts here.\n\n" +
		"```\n" + strings.Repeat("fenced line\n", 8) + "```\n\nTrailing prose."
	c := New(120, 20)
	chunks := c.Chunk(text, "md")
	for i, ch := range chunks[:len(chunks)-1] {
		// A chunk may contain a whole fence but should not end mid-fence when
		// a cut before the opening was possible.
		if insideFence(ch) && !strings.HasSuffix(ch, "```") {
			start := strings.LastIndex(ch, "```")
			if start > 20+1 {
				t.Errorf("chunk %d ends inside a code fence avoidably", i)
			}
		}
	}
}

func TestNew_ClampsOverlap(t *testing.T) {
	c := New(100, 150)
	if c.Overlap() >= c.Size() {
		t.Fatalf("overlap %d not clamped below size %d", c.Overlap(), c.Size())
	}
	text := strings.Repeat("word ", 200)
	if got := c.Reassemble(c.Chunk(text, "text")); got != text {
		t.Fatal("clamped configuration no longer reconstructs input")
	}
}
