// Package token estimates token counts with a character-ratio heuristic
// (roughly 4 characters per token). Ingestion, the embedder and the chunker
// all share one Counter so every budget is accounted in the same units.
package token

// EmbedBudget is the maximum number of tokens the embedding backend accepts
// per input; longer text is truncated rather than rejected.
const EmbedBudget = 512

// Counter estimates token counts for text.
type Counter struct {
	CharsPerToken float64
}

// NewCounter returns a counter using the default 4-chars-per-token ratio.
func NewCounter() *Counter {
	return &Counter{CharsPerToken: 4.0}
}

// Count estimates the number of tokens in s. Empty input counts as zero.
func (c *Counter) Count(s string) int {
	if len(s) == 0 {
		return 0
	}
	cpt := c.CharsPerToken
	if cpt <= 0 {
		cpt = 4.0
	}
	return int(float64(len(s))/cpt) + 1
}

// Truncate cuts s down so that Count(result) <= maxTokens, splitting on a
// rune boundary. Text within the budget is returned unchanged.
func (c *Counter) Truncate(s string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	if c.Count(s) <= maxTokens {
		return s
	}
	cpt := c.CharsPerToken
	if cpt <= 0 {
		cpt = 4.0
	}
	// Count adds one, so the largest byte length that still fits the budget
	// is just under (maxTokens-1+1)*cpt.
	limit := int(float64(maxTokens-1) * cpt)
	if limit >= len(s) {
		return s
	}
	runes := []rune(s)
	out := make([]rune, 0, len(runes))
	n := 0
	for _, r := range runes {
		rl := len(string(r))
		if n+rl > limit {
			break
		}
		out = append(out, r)
		n += rl
	}
	return string(out)
}
