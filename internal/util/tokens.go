package util

import "strings"

// DigitTokens returns the whitespace-separated tokens of input that are
// made of digits only and are at least minLen long, in order.
func DigitTokens(input string, minLen int) []string {
	var out []string
	for _, tok := range strings.Fields(input) {
		if len(tok) >= minLen && IsAllDigits(tok) {
			out = append(out, tok)
		}
	}
	return out
}
