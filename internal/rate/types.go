package rate

import (
	"fmt"
	"time"
)

// Headers names the response headers a provider uses to report its limits.
// Empty names are ignored.
type Headers struct {
	Remaining  string
	RetryAfter string
	ResetAfter string
}

// StandardHeaders covers Retry-After only.
func StandardHeaders() Headers {
	return Headers{RetryAfter: "Retry-After"}
}

// DiscordHeaders matches Discord-style webhook endpoints.
func DiscordHeaders() Headers {
	return Headers{
		Remaining:  "X-RateLimit-Remaining",
		RetryAfter: "Retry-After",
		ResetAfter: "X-RateLimit-Reset-After",
	}
}

// Limit declares the local budget for one provider.
type Limit struct {
	Provider  string
	PerMinute int
	Headers   Headers
}

// RateLimitError is returned when calls are blocked.
type RateLimitError struct {
	Provider string
	Reason   string
	RetryAt  time.Time
}

func (e RateLimitError) Error() string {
	if e.RetryAt.IsZero() {
		return fmt.Sprintf("%s rate limited: %s", e.Provider, e.Reason)
	}
	return fmt.Sprintf("%s rate limited: %s (retry at %s)", e.Provider, e.Reason, e.RetryAt.UTC().Format(time.RFC3339))
}

type Decision struct {
	Allowed bool
	Reason  string
	RetryAt time.Time
}
