package ai

import "unicode/utf8"

// classifySampleLen caps how much of a document is sent to the model when
// classifying; the head of the text is enough to pick a category.
const classifySampleLen = 4000

// sampleHead returns at most n bytes of s, backing up so a multi-byte UTF-8
// sequence is never cut in the middle.
func sampleHead(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
