package update

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testChecker(t *testing.T, handler http.HandlerFunc) *Checker {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return &Checker{URL: server.URL, HTTP: server.Client(), Attempts: 3, Delay: time.Millisecond}
}

func writeRelease(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func TestNormalizeVersion(t *testing.T) {
	tests := map[string]string{
		"1.0.0":     "v1.0.0",
		"v1.0.0":    "v1.0.0",
		"v10.20.30": "v10.20.30",
		"":          "v",
	}
	for in, want := range tests {
		if got := normalizeVersion(in); got != want {
			t.Errorf("normalizeVersion(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCheckDevVersion(t *testing.T) {
	c := &Checker{URL: "http://127.0.0.1:1"}
	for _, v := range []string{"dev", ""} {
		result, err := c.Check(context.Background(), v)
		if result != nil || err != nil {
			t.Errorf("Check(%q) = %v, %v; want nil, nil", v, result, err)
		}
	}
}

func TestCheckUpdateAvailable(t *testing.T) {
	c := testChecker(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "application/vnd.github.v3+json" {
			t.Error("expected GitHub API accept header")
		}
		writeRelease(w, `{"tag_name":"v2.0.0","html_url":"https://github.com/skullzarmy/Tusk/releases/tag/v2.0.0"}`)
	})

	result, err := c.Check(context.Background(), "1.0.0")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !result.UpdateAvailable || result.LatestVersion != "2.0.0" || result.CurrentVersion != "1.0.0" {
		t.Errorf("result = %+v", result)
	}
	if result.UpdateURL != "https://github.com/skullzarmy/Tusk/releases/tag/v2.0.0" {
		t.Errorf("UpdateURL = %q", result.UpdateURL)
	}
}

func TestCheckNoUpdate(t *testing.T) {
	tests := map[string]string{
		"same version": `{"tag_name":"v1.2.0"}`,
		"older":        `{"tag_name":"v1.1.9"}`,
		"prerelease":   `{"tag_name":"v9.0.0-rc.1","prerelease":true}`,
		"invalid tag":  `{"tag_name":"nightly"}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			c := testChecker(t, func(w http.ResponseWriter, r *http.Request) { writeRelease(w, body) })
			result, err := c.Check(context.Background(), "v1.2.0")
			if err != nil {
				t.Fatalf("Check: %v", err)
			}
			if result.UpdateAvailable {
				t.Errorf("UpdateAvailable = true for %s", body)
			}
		})
	}
}

func TestCheckRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := testChecker(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeRelease(w, `{"tag_name":"v1.1.0"}`)
	})

	result, err := c.Check(context.Background(), "1.0.0")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !result.UpdateAvailable {
		t.Error("expected update after retries")
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestCheckDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	c := testChecker(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})

	if _, err := c.Check(context.Background(), "1.0.0"); err == nil {
		t.Fatal("expected error for 404")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestCheckInvalidPayload(t *testing.T) {
	c := testChecker(t, func(w http.ResponseWriter, r *http.Request) { writeRelease(w, `{not json`) })

	if _, err := c.Check(context.Background(), "1.0.0"); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestCheckForUpdateSwallowsErrors(t *testing.T) {
	if result := CheckForUpdate(context.Background(), "dev"); result != nil {
		t.Errorf("CheckForUpdate(dev) = %+v, want nil", result)
	}
}
