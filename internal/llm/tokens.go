package llm

// charsPerToken is a rough ratio for SQL and PHP source.
const charsPerToken = 3

// EstimateTokens approximates the token count of text without a tokenizer.
func EstimateTokens(text string) int {
	return len(text) / charsPerToken
}
