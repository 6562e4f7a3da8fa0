package llm

import (
	"fmt"
	"net/http"
	"strings"
)

// APIError is a non-2xx reply from a provider's HTTP API.
type APIError struct {
	Provider   string
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("llm/%s: HTTP %d (%s): %s", strings.ToLower(e.Provider), e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("llm/%s: HTTP %d: %s", strings.ToLower(e.Provider), e.StatusCode, e.Message)
}

// UserMessage returns a short explanation suitable for API clients.
func (e *APIError) UserMessage() string {
	msg := strings.ToLower(e.Message + " " + e.Code)

	switch {
	case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden:
		return fmt.Sprintf("Invalid API key for %s. Check the llm.api_key setting.", e.Provider)
	case e.StatusCode == http.StatusTooManyRequests:
		return fmt.Sprintf("Rate limit exceeded at %s. Try again in a moment.", e.Provider)
	case e.StatusCode == http.StatusPaymentRequired,
		strings.Contains(msg, "credit"), strings.Contains(msg, "billing"), strings.Contains(msg, "quota"):
		return fmt.Sprintf("Insufficient credits on the %s account.", e.Provider)
	case e.StatusCode == http.StatusNotFound,
		strings.Contains(msg, "model") && strings.Contains(msg, "not found"):
		return fmt.Sprintf("Model not found at %s. Check the llm.model setting.", e.Provider)
	case e.StatusCode >= 500:
		return fmt.Sprintf("%s is temporarily unavailable (HTTP %d).", e.Provider, e.StatusCode)
	default:
		return fmt.Sprintf("%s rejected the request (HTTP %d): %s", e.Provider, e.StatusCode, e.Message)
	}
}
