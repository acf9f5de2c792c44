package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RateLimitInfo holds the X-RateLimit-* values of the last response.
// Mastodon reports the reset as an ISO 8601 timestamp.
type RateLimitInfo struct {
	Limit     *int
	Remaining *int
	ResetAt   *time.Time
	ResetRaw  string
}

// Meta returns a JSON-ready map for CLI output metadata.
func (r *RateLimitInfo) Meta() map[string]any {
	if r == nil {
		return nil
	}
	meta := map[string]any{}
	if r.Limit != nil {
		meta["limit"] = *r.Limit
	}
	if r.Remaining != nil {
		meta["remaining"] = *r.Remaining
	}
	switch {
	case r.ResetAt != nil:
		meta["reset_at"] = r.ResetAt.UTC().Format(time.RFC3339)
	case r.ResetRaw != "":
		meta["reset"] = r.ResetRaw
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}

func (r *RateLimitInfo) clone() *RateLimitInfo {
	if r == nil {
		return nil
	}
	out := &RateLimitInfo{ResetRaw: r.ResetRaw}
	if r.Limit != nil {
		v := *r.Limit
		out.Limit = &v
	}
	if r.Remaining != nil {
		v := *r.Remaining
		out.Remaining = &v
	}
	if r.ResetAt != nil {
		t := *r.ResetAt
		out.ResetAt = &t
	}
	return out
}

// LastRateLimit returns the most recent rate limit info seen by the client.
func (c *Client) LastRateLimit() *RateLimitInfo {
	c.rateLimitMu.Lock()
	defer c.rateLimitMu.Unlock()
	return c.lastRateLimit.clone()
}

// recordRateLimit keeps the previous info when a response carries no
// rate limit headers.
func (c *Client) recordRateLimit(h http.Header) {
	info := parseRateLimitInfo(h, c.now())
	if info == nil {
		return
	}
	c.rateLimitMu.Lock()
	defer c.rateLimitMu.Unlock()
	c.lastRateLimit = info
}

func parseRateLimitInfo(h http.Header, now time.Time) *RateLimitInfo {
	if h == nil {
		return nil
	}
	limitVal := strings.TrimSpace(h.Get("X-RateLimit-Limit"))
	remainingVal := strings.TrimSpace(h.Get("X-RateLimit-Remaining"))
	resetVal := strings.TrimSpace(h.Get("X-RateLimit-Reset"))
	if limitVal == "" && remainingVal == "" && resetVal == "" {
		return nil
	}

	info := &RateLimitInfo{ResetRaw: resetVal}
	if v, err := strconv.Atoi(limitVal); err == nil {
		info.Limit = &v
	}
	if v, err := strconv.Atoi(remainingVal); err == nil {
		info.Remaining = &v
	}
	if t, ok := parseRateLimitReset(resetVal, now); ok {
		info.ResetAt = &t
	}
	return info
}

func parseRateLimitReset(value string, now time.Time) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC(), true
	}
	if secs, err := strconv.ParseInt(value, 10, 64); err == nil && secs >= 0 {
		return now.Add(time.Duration(secs) * time.Second).UTC(), true
	}
	if t, err := http.ParseTime(value); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}
