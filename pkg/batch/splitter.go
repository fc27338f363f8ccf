// Package batch implements the batch-text processors: splitting prompt text
// into pieces, iterating over them one execution at a time with persisted
// progress, and driving the host's queue so the next piece runs.
package batch

import (
	"strings"
)

// SeparatorType selects how text is split into prompts.
type SeparatorType string

const (
	// SeparatorNewline splits on line boundaries.
	SeparatorNewline SeparatorType = "newline"

	// SeparatorCustom splits on a caller-provided separator string.
	SeparatorCustom SeparatorType = "custom"
)

// Split divides text into prompts. Pieces are whitespace-trimmed and empty
// pieces are dropped. An unknown separator type falls back to newline
// splitting.
func Split(text string, sepType SeparatorType, separator string) []string {
	var raw []string
	if sepType == SeparatorCustom && separator != "" {
		raw = strings.Split(text, separator)
	} else {
		raw = strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	}

	prompts := make([]string, 0, len(raw))
	for _, piece := range raw {
		piece = strings.TrimSpace(piece)
		if piece != "" {
			prompts = append(prompts, piece)
		}
	}
	return prompts
}

// Count returns the number of prompts Split would produce.
func Count(text string, sepType SeparatorType, separator string) int {
	return len(Split(text, sepType, separator))
}
