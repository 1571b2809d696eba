package rate

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Guard enforces a token bucket plus any cooldown the provider asks for.
type Guard struct {
	limit Limit
	now   func() time.Time

	mu sync.Mutex
	// fields below are guarded by mu
	tokens    float64
	last      time.Time
	cooldown  time.Time
	remaining int
}

func NewGuard(limit Limit) *Guard {
	return &Guard{
		limit:     limit,
		now:       time.Now,
		tokens:    float64(limit.PerMinute),
		remaining: -1,
	}
}

// WrapHTTP returns a copy of base whose transport is guarded by limit.
func WrapHTTP(limit Limit, base *http.Client) *http.Client {
	if base == nil {
		base = &http.Client{}
	}
	client := *base
	transport := client.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	client.Transport = &roundTripper{base: transport, guard: NewGuard(limit)}
	return &client
}

type roundTripper struct {
	base  http.RoundTripper
	guard *Guard
}

func (rt *roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	decision := rt.guard.ShouldCall()
	if !decision.Allowed {
		blockedCounter.WithLabelValues(rt.guard.limit.Provider, decision.Reason).Inc()
		return nil, RateLimitError{
			Provider: rt.guard.limit.Provider,
			Reason:   decision.Reason,
			RetryAt:  decision.RetryAt,
		}
	}

	resp, err := rt.base.RoundTrip(req)
	if err != nil {
		return resp, err
	}
	rt.guard.RecordResponse(resp.StatusCode, resp.Header)
	return resp, nil
}

// ShouldCall consumes one token if the call is allowed.
func (g *Guard) ShouldCall() Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if !g.cooldown.IsZero() && now.Before(g.cooldown) {
		return Decision{Allowed: false, Reason: "cooldown", RetryAt: g.cooldown}
	}
	if g.remaining == 0 && !g.cooldown.IsZero() {
		g.remaining = -1
	}
	if g.limit.PerMinute <= 0 {
		return Decision{Allowed: true}
	}

	g.refill(now)
	if g.tokens < 1 {
		retryAt := g.last.Add(time.Minute / time.Duration(g.limit.PerMinute))
		return Decision{Allowed: false, Reason: "budget", RetryAt: retryAt}
	}
	g.tokens--
	return Decision{Allowed: true}
}

// RecordResponse applies provider feedback: 429s and exhausted budgets set a cooldown.
func (g *Guard) RecordResponse(status int, headers http.Header) {
	g.mu.Lock()
	defer g.mu.Unlock()

	provider := g.limit.Provider
	lastStatusGauge.WithLabelValues(provider).Set(float64(status))

	now := g.now()
	names := g.limit.Headers
	if remaining, ok := headerSeconds(headers, names.Remaining); ok {
		g.remaining = int(remaining)
		remainingGauge.WithLabelValues(provider).Set(remaining)
	}

	var wait float64
	if status == http.StatusTooManyRequests {
		if v, ok := headerSeconds(headers, names.RetryAfter); ok {
			wait = v
		} else {
			wait = 1
		}
	}
	if g.remaining == 0 {
		if v, ok := headerSeconds(headers, names.ResetAfter); ok && v > wait {
			wait = v
		}
	}
	if wait > 0 {
		g.cooldown = now.Add(time.Duration(wait * float64(time.Second)))
		retryAfterGauge.WithLabelValues(provider).Set(wait)
	}
}

func (g *Guard) refill(now time.Time) {
	if g.last.IsZero() {
		g.last = now
		return
	}
	capacity := float64(g.limit.PerMinute)
	elapsed := now.Sub(g.last).Seconds()
	g.tokens = min(capacity, g.tokens+elapsed*capacity/60)
	g.last = now
}

func headerSeconds(h http.Header, key string) (float64, bool) {
	if key == "" {
		return 0, false
	}
	val := strings.TrimSpace(h.Get(key))
	if val == "" {
		return 0, false
	}
	out, err := strconv.ParseFloat(val, 64)
	if err != nil || out < 0 {
		return 0, false
	}
	return out, true
}
