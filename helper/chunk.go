package helper

import (
	"errors"
	"regexp"
	"strings"
)

// Errors for chunking parameter validation.
var (
	// ErrChunkSize is returned when the requested chunk size is not positive.
	ErrChunkSize = errors.New("chunk size must be positive")

	// ErrChunkOverlap is returned when the overlap is negative or not
	// smaller than the chunk size.
	ErrChunkOverlap = errors.New("chunk overlap must be non-negative and smaller than size")
)

// ChunkBySize splits text into chunks of at most size characters, each
// starting size-overlap characters after the previous one. It fails fast on
// a non-positive size or an overlap that is negative or >= size. Non-empty
// input always yields at least one chunk; empty input yields none. The
// split is deterministic and restartable: chunk boundaries depend only on
// the arguments.
func ChunkBySize(text string, size, overlap int) ([]string, error) {
	if size <= 0 {
		return nil, ErrChunkSize
	}
	if overlap < 0 || overlap >= size {
		return nil, ErrChunkOverlap
	}

	runes := []rune(text)
	chunks := []string{}
	step := size - overlap
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks, nil
}

// ChunkByHeaders splits text at lines matching the header pattern (a
// regular expression applied per line). Each chunk begins with its header
// line; text before the first header forms the leading chunk. A document
// with no matching header comes back as a single chunk containing the
// whole text.
func ChunkByHeaders(text, pattern string) ([]string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}

	lines := strings.Split(text, "\n")
	chunks := []string{}
	var current []string
	for _, line := range lines {
		if re.MatchString(line) && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, "\n"))
			current = nil
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, "\n"))
	}
	return chunks, nil
}
