package text

// perItemOverhead approximates the role label and separators added around
// each history entry in a prompt.
const perItemOverhead = 4

// EstimateTokens gives a model-agnostic ballpark token count.
func EstimateTokens(s string) int {
	return len(s)/3 + 1
}

// TailStart returns the smallest index i such that items[i:] fits within
// budget tokens. Newer items always win over older ones.
func TailStart(items []string, budget int) int {
	used := 0
	for i := len(items) - 1; i >= 0; i-- {
		cost := EstimateTokens(items[i]) + perItemOverhead
		if used+cost > budget {
			return i + 1
		}
		used += cost
	}
	return 0
}
