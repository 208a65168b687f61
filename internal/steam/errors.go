package steam

import (
	"errors"
	"fmt"
	"net/http"
)

// Category classifies a failed remote call into a user-facing bucket.
type Category string

const (
	// CategoryAuth covers 401/403: bad key or private profile.
	CategoryAuth Category = "auth"
	// CategoryRateLimited covers 429; retryable later, trips the batch
	// circuit breaker during a refresh.
	CategoryRateLimited Category = "rate_limited"
	// CategoryUpstream covers 500/503: transient upstream trouble.
	CategoryUpstream Category = "upstream_unavailable"
	// CategoryHTTP covers any other non-2xx status.
	CategoryHTTP Category = "http_error"
	// CategoryNetwork covers transport failures with no response at all.
	CategoryNetwork Category = "network"
)

// APIError is a classified remote call failure.
type APIError struct {
	Category Category
	Status   int
	Message  string
}

func (e *APIError) Error() string {
	return e.Message
}

// IsRateLimited reports whether err is a classified 429.
func IsRateLimited(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Category == CategoryRateLimited
}

// classifyStatus maps a non-2xx upstream status to an APIError.
func classifyStatus(status int) *APIError {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &APIError{
			Category: CategoryAuth,
			Status:   status,
			Message:  "Steam rejected the request: check your API key and make sure your profile is public",
		}
	case status == http.StatusTooManyRequests:
		return &APIError{
			Category: CategoryRateLimited,
			Status:   status,
			Message:  "Steam rate limit reached, try again later",
		}
	case status == http.StatusInternalServerError || status == http.StatusServiceUnavailable:
		return &APIError{
			Category: CategoryUpstream,
			Status:   status,
			Message:  "Steam is temporarily unavailable, try again later",
		}
	default:
		return &APIError{
			Category: CategoryHTTP,
			Status:   status,
			Message:  fmt.Sprintf("Steam API error: HTTP %d", status),
		}
	}
}

// networkError wraps a transport-level failure (no response received).
func networkError(err error) *APIError {
	return &APIError{
		Category: CategoryNetwork,
		Message:  fmt.Sprintf("network error talking to Steam: %v", err),
	}
}
