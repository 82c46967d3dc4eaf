// Package tokenizer counts tokens for context budget enforcement. A real
// tokenizer is supplied by the caller; the approximate counter here is the
// documented fallback of one token per four characters.
package tokenizer

import "unicode/utf8"

// Approx estimates token counts as length/4. Close enough for budget
// pruning, which only needs a stable, monotonic measure.
type Approx struct{}

func NewApprox() *Approx {
	return &Approx{}
}

func (Approx) CountTokens(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	count := n / 4
	if count == 0 {
		count = 1
	}
	return count
}
