// Package helper provides the pure text and data utilities injected into the
// execution namespace: bounded substring extraction, plain-text search with
// context windows, deterministic chunking, and ordered multi-value buffers.
// Everything here is deterministic and free of session state except Buffers,
// which is owned by the driver environment for the life of one session.
package helper

import (
	"strings"

	"golang.org/x/text/cases"
)

// Peek returns up to length characters of text starting at offset. Both
// bounds are clamped to the text rather than erroring: an offset past the
// end yields the empty string, and offset+length past the end yields the
// remainder. Offsets count characters, not bytes.
func Peek(text string, offset, length int) string {
	if length <= 0 {
		return ""
	}
	runes := []rune(text)
	if offset < 0 {
		offset = 0
	}
	if offset >= len(runes) {
		return ""
	}
	end := offset + length
	if end > len(runes) {
		end = len(runes)
	}
	return string(runes[offset:end])
}

// GrepOptions adjusts Grep matching.
type GrepOptions struct {
	// Context is the number of lines included before and after each
	// matching line. Zero returns matching lines only.
	Context int

	// CaseSensitive disables the default Unicode case-folded comparison.
	CaseSensitive bool
}

// Grep returns the lines of text containing pattern as a plain substring,
// case-insensitively by default. With a positive context, each match is
// returned as a multi-line window including that many lines before and
// after. No match returns an empty slice, never an error.
func Grep(text, pattern string, opts GrepOptions) []string {
	lines := strings.Split(text, "\n")

	needle := pattern
	fold := cases.Fold()
	if !opts.CaseSensitive {
		needle = fold.String(pattern)
	}

	out := []string{}
	for i, line := range lines {
		haystack := line
		if !opts.CaseSensitive {
			haystack = fold.String(line)
		}
		if !strings.Contains(haystack, needle) {
			continue
		}
		if opts.Context <= 0 {
			out = append(out, line)
			continue
		}
		lo := i - opts.Context
		if lo < 0 {
			lo = 0
		}
		hi := i + opts.Context + 1
		if hi > len(lines) {
			hi = len(lines)
		}
		out = append(out, strings.Join(lines[lo:hi], "\n"))
	}
	return out
}
