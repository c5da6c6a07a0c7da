package llm

import "fmt"

// TokenBudgetError is returned when a prompt's estimated size exceeds
// the configured maximum. No network call was made.
type TokenBudgetError struct {
	Estimated int
	Limit     int
}

func (e *TokenBudgetError) Error() string {
	return fmt.Sprintf("llm: prompt estimated at %d tokens exceeds budget of %d", e.Estimated, e.Limit)
}

// ProviderError is returned when the provider responds with a non-200
// status. It is the per-attempt failure the retry policy wraps.
type ProviderError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *ProviderError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("llm: HTTP %d: %s: %s", e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("llm: HTTP %d: %s", e.StatusCode, e.Message)
}
