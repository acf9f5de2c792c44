package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestParseRateLimitInfo(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	h := http.Header{}
	h.Set("X-RateLimit-Limit", "300")
	h.Set("X-RateLimit-Remaining", "299")
	h.Set("X-RateLimit-Reset", "2024-05-01T10:05:00.000Z")

	info := parseRateLimitInfo(h, now)
	if info == nil || info.Limit == nil || info.Remaining == nil || info.ResetAt == nil {
		t.Fatalf("info = %+v", info)
	}
	if *info.Limit != 300 || *info.Remaining != 299 {
		t.Errorf("limit/remaining = %d/%d", *info.Limit, *info.Remaining)
	}
	if !info.ResetAt.Equal(now.Add(5 * time.Minute)) {
		t.Errorf("ResetAt = %v", info.ResetAt)
	}
	meta := info.Meta()
	if meta["reset_at"] != "2024-05-01T10:05:00Z" {
		t.Errorf("Meta() = %v", meta)
	}
}

func TestParseRateLimitReset(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		value string
		want  time.Time
		ok    bool
	}{
		{"2024-05-01T10:05:00Z", now.Add(5 * time.Minute), true},
		{"60", now.Add(time.Minute), true},
		{"Wed, 01 May 2024 10:10:00 GMT", now.Add(10 * time.Minute), true},
		{"soon", time.Time{}, false},
		{"", time.Time{}, false},
	}
	for _, tt := range tests {
		got, ok := parseRateLimitReset(tt.value, now)
		if ok != tt.ok || !got.Equal(tt.want) {
			t.Errorf("parseRateLimitReset(%q) = %v, %v; want %v, %v", tt.value, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseRateLimitInfo_NoHeaders(t *testing.T) {
	if info := parseRateLimitInfo(http.Header{}, time.Now()); info != nil {
		t.Errorf("expected nil, got %+v", info)
	}
	var info *RateLimitInfo
	if info.Meta() != nil {
		t.Error("nil info should have nil meta")
	}
}

func TestClient_LastRateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Limit", "300")
		w.Header().Set("X-RateLimit-Remaining", "42")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	if client.LastRateLimit() != nil {
		t.Fatal("expected no rate limit before any request")
	}
	if _, err := client.Get(context.Background(), "instance", nil); err != nil {
		t.Fatal(err)
	}
	info := client.LastRateLimit()
	if info == nil || info.Remaining == nil || *info.Remaining != 42 {
		t.Fatalf("LastRateLimit() = %+v", info)
	}
	*info.Remaining = 0
	if got := client.LastRateLimit(); *got.Remaining != 42 {
		t.Error("LastRateLimit returned shared state")
	}
}
