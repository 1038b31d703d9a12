package helper

import (
	"strings"
	"testing"
)

func TestPeekClamps(t *testing.T) {
	tests := []struct {
		name           string
		text           string
		offset, length int
		want           string
	}{
		{"length past end", "abc", 0, 100, "abc"},
		{"mid slice", "Hello World", 6, 5, "World"},
		{"offset past end", "abc", 10, 5, ""},
		{"negative offset", "abc", -4, 2, "ab"},
		{"zero length", "abc", 0, 0, ""},
		{"exact", "abc", 1, 2, "bc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Peek(tt.text, tt.offset, tt.length); got != tt.want {
				t.Errorf("Peek(%q, %d, %d) = %q, want %q",
					tt.text, tt.offset, tt.length, got, tt.want)
			}
		})
	}
}

func TestPeekCountsCharacters(t *testing.T) {
	if got := Peek("héllo", 1, 2); got != "él" {
		t.Errorf("Peek = %q, want %q", got, "él")
	}
}

func TestGrepMatchingLines(t *testing.T) {
	text := "line one\nline two\nno match\nline three"
	got := Grep(text, "line", GrepOptions{})
	if len(got) != 3 {
		t.Fatalf("got %d matches, want 3: %v", len(got), got)
	}
	for i, want := range []string{"line one", "line two", "line three"} {
		if got[i] != want {
			t.Errorf("match %d = %q, want %q", i, got[i], want)
		}
	}
}

func TestGrepCaseInsensitiveByDefault(t *testing.T) {
	got := Grep("Alpha\nBETA\ngamma", "alpha", GrepOptions{})
	if len(got) != 1 || got[0] != "Alpha" {
		t.Fatalf("got %v, want [Alpha]", got)
	}
	got = Grep("Alpha\nBETA\ngamma", "alpha", GrepOptions{CaseSensitive: true})
	if len(got) != 0 {
		t.Fatalf("case-sensitive search matched %v", got)
	}
}

func TestGrepNoMatchReturnsEmpty(t *testing.T) {
	got := Grep("one\ntwo", "absent", GrepOptions{})
	if got == nil {
		t.Fatal("got nil, want empty slice")
	}
	if len(got) != 0 {
		t.Fatalf("got %v, want empty", got)
	}
}

func TestGrepContextWindows(t *testing.T) {
	text := "a\nb\nhit\nc\nd"
	got := Grep(text, "hit", GrepOptions{Context: 1})
	if len(got) != 1 {
		t.Fatalf("got %d windows, want 1", len(got))
	}
	if got[0] != "b\nhit\nc" {
		t.Errorf("window = %q", got[0])
	}

	// Windows clamp at the edges of the text.
	got = Grep("hit\nx", "hit", GrepOptions{Context: 3})
	if len(got) != 1 || got[0] != "hit\nx" {
		t.Errorf("edge window = %v", got)
	}
}

func TestGrepFoldsUnicode(t *testing.T) {
	got := Grep("GRÜSSE\nplain", "grüsse", GrepOptions{})
	if len(got) != 1 {
		t.Fatalf("folded search got %v, want one match", got)
	}
	if !strings.Contains(got[0], "GRÜSSE") {
		t.Errorf("match = %q", got[0])
	}
}
