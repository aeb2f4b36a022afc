package ingestion

import (
	"strings"
	"unicode"
)

// Chunk is a contiguous slice of one source document.
type Chunk struct {
	Content string
	Source  string
	Index   int
}

// SplitText cuts content into windows of at most size runes. Consecutive
// windows share up to overlap runes. A window end is pulled back to the last
// whitespace when that whitespace falls in the second half of the window, so
// words are not cut unless a single run of text is longer than half a window.
// Callers must pass 0 <= overlap < size.
func SplitText(content, source string, size, overlap int) []Chunk {
	runes := []rune(strings.TrimSpace(content))
	if len(runes) == 0 || size <= 0 || overlap < 0 || overlap >= size {
		return nil
	}

	step := size - overlap
	chunks := make([]Chunk, 0, len(runes)/step+1)
	for start := 0; start < len(runes); {
		end := start + size
		if end >= len(runes) {
			end = len(runes)
		} else if cut := lastSpace(runes, start+size/2, end); cut > start {
			end = cut
		}

		if text := strings.TrimSpace(string(runes[start:end])); text != "" {
			chunks = append(chunks, Chunk{Content: text, Source: source, Index: len(chunks)})
		}

		if end == len(runes) {
			break
		}

		next := end - overlap
		if next <= start {
			next = start + step
		}
		start = next
	}

	return chunks
}

// lastSpace returns the index of the last whitespace rune in runes[from:to],
// or -1.
func lastSpace(runes []rune, from, to int) int {
	for i := to - 1; i >= from; i-- {
		if unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return -1
}
