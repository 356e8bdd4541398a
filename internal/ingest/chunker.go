package ingest

import (
	"strings"
	"unicode/utf8"
)

const (
	// DefaultChunkSize is the target chunk length in characters.
	DefaultChunkSize = 1200
	// DefaultChunkOverlap is how much consecutive chunks share.
	DefaultChunkOverlap = 200
)

// SplitText chunks text into overlapping windows, preferring to break at
// paragraph and sentence boundaries near the target size. Whitespace-only
// chunks are dropped.
func SplitText(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultChunkOverlap
		if overlap >= size {
			overlap = size / 4
		}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= size {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + size
		if end >= len(text) {
			end = len(text)
		} else {
			end = breakPoint(text, start, end)
		}

		chunk := strings.TrimSpace(text[start:end])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end >= len(text) {
			break
		}
		next := runeAligned(text, end-overlap)
		if next <= start {
			_, w := utf8.DecodeRuneInString(text[start:])
			next = start + w
		}
		start = next
	}
	return chunks
}

// breakPoint looks backward from end for a natural boundary: a blank line,
// then a sentence end, then any whitespace. Falls back to the hard cut.
func breakPoint(text string, start, end int) int {
	window := text[start:end]

	if idx := strings.LastIndex(window, "\n\n"); idx > len(window)/2 {
		return start + idx
	}
	for _, sep := range []string{". ", ".\n", "! ", "? "} {
		if idx := strings.LastIndex(window, sep); idx > len(window)/2 {
			return start + idx + 1
		}
	}
	if idx := strings.LastIndexAny(window, " \t\n"); idx > len(window)/2 {
		return start + idx
	}
	// Hard cut: never split a multi-byte rune.
	return runeAligned(text, end)
}

// runeAligned backs i up to the nearest rune start so byte-offset cuts stay
// valid UTF-8.
func runeAligned(text string, i int) int {
	for i > 0 && i < len(text) && !utf8.RuneStart(text[i]) {
		i--
	}
	return i
}
