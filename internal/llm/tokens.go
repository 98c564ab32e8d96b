package llm

// EstimateTokens is the cost heuristic fed into the per-session token
// budget: a quarter of the combined byte length of the user message and
// the response. Not a real tokenizer; the budget arithmetic depends on
// this exact output, so keep it as is.
func EstimateTokens(message, response string) int {
	return (len(message) + len(response)) / 4
}
