package ai

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSampleHead(t *testing.T) {
	cases := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"shorter than cap", "short", 10, "short"},
		{"exactly at cap", "abcd", 4, "abcd"},
		{"ascii cut", "abcdef", 3, "abc"},
		{"backs off mid rune", "abécd", 3, "ab"}, // é starts at byte 2, spans 2 bytes
		{"cut lands on rune start", "abécd", 4, "abé"},
		{"empty", "", 5, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := sampleHead(tc.in, tc.n)
			if got != tc.want {
				t.Errorf("sampleHead(%q, %d) = %q, want %q", tc.in, tc.n, got, tc.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("sampleHead(%q, %d) = %q is not valid UTF-8", tc.in, tc.n, got)
			}
		})
	}
}

func TestSampleHeadAtClassifyCap(t *testing.T) {
	// A document of multi-byte runes whose cap offset lands mid-sequence:
	// the ASCII prefix shifts every 2-byte rune onto an odd offset.
	doc := "x" + strings.Repeat("ن", 3000)
	got := sampleHead(doc, classifySampleLen)
	if !utf8.ValidString(got) {
		t.Fatal("sample split a UTF-8 sequence")
	}
	if len(got) != classifySampleLen-1 {
		t.Fatalf("sample length %d, want %d", len(got), classifySampleLen-1)
	}
}
