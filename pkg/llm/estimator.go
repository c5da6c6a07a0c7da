package llm

// TokenEstimator approximates the token count of a prompt. Estimates
// are advisory: the pipeline only requires them to be monotonic with
// input length, not exact.
type TokenEstimator interface {
	Estimate(text string) int
}

// defaultCharsPerToken is conservative for English text with code.
// BPE tokenizers average 3.5-4.5 characters per token; rounding low
// overestimates the count so the budget check trips before the
// provider does.
const defaultCharsPerToken = 4.0

// CharEstimator estimates tokens from character counts with a fixed
// ratio. The zero value uses the default ratio.
type CharEstimator struct {
	// CharsPerToken overrides the ratio when > 0.
	CharsPerToken float64
}

// Estimate returns the estimated token count for text, rounded up.
func (e CharEstimator) Estimate(text string) int {
	ratio := e.CharsPerToken
	if ratio <= 0 {
		ratio = defaultCharsPerToken
	}
	if len(text) == 0 {
		return 0
	}
	return int(float64(len(text))/ratio) + 1
}
