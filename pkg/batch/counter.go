package batch

import (
	"fmt"
)

// CountSplits counts how many prompts a source splits into. It never fails:
// an unreadable source yields a zero count and an error status, matching the
// counter node's output contract.
func CountSplits(src Source, sepType SeparatorType, separator string) (int, string) {
	content, err := src.Content()
	if err != nil {
		return 0, fmt.Sprintf("Error: %v", err)
	}
	count := Count(content, sepType, separator)
	return count, fmt.Sprintf("Total splits: %d", count)
}
