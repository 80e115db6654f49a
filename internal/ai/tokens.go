package ai

import "unicode/utf8"

// Pricing per 1K prompt tokens for the cost estimate shown by the
// tokenize command.
const costPer1KTokens = 0.0015

// EstimateTokens approximates the token count of a text. The backend's
// real tokenizer is not exposed here; roughly four characters per token
// is close enough for a user-facing estimate.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	tokens := (n + 3) / 4
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}

// EstimateCost returns the dollar cost estimate for a token count.
func EstimateCost(tokens int) float64 {
	return float64(tokens) / 1000 * costPer1KTokens
}
