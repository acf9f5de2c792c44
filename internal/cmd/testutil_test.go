// Test helpers for running commands against a mock Mastodon instance.
//
//	handler := newRouteHandler().
//	    On("GET", "/api/v1/accounts/1", jsonResponse(200, `{"id": "1"}`))
//	setupTestEnv(t, handler)
//
//	output := captureStdout(t, func() {
//	    require.NoError(t, Execute(context.Background(), []string{"get", "accounts/:id", "-f", "id=1"}))
//	})
package cmd

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/99designs/keyring"

	"github.com/skullzarmy/Tusk/internal/config"
)

// captureStdout executes fn and returns what it wrote to stdout.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	fn()

	_ = w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

// captureStderr executes fn and returns what it wrote to stderr.
func captureStderr(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w

	fn()

	_ = w.Close()
	os.Stderr = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

// withStdin replaces os.Stdin with content for the duration of the test.
func withStdin(t *testing.T, content string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stdin")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write stdin: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open stdin: %v", err)
	}
	old := os.Stdin
	os.Stdin = f
	t.Cleanup(func() {
		os.Stdin = old
		_ = f.Close()
	})
}

// withKeyring installs one in-memory keyring shared by every open in the test.
func withKeyring(t *testing.T) keyring.Keyring {
	t.Helper()
	ring := keyring.NewArrayKeyring(nil)
	restore := config.SetOpenKeyring(func(keyring.Config) (keyring.Keyring, error) {
		return ring, nil
	})
	t.Cleanup(restore)
	return ring
}

type testEnv struct {
	server *httptest.Server
}

// setupTestEnv starts a mock instance and points credentials at it through
// the environment. Retries are fast so failure tests stay quick.
func setupTestEnv(t *testing.T, handler http.Handler) *testEnv {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	t.Setenv("TUSK_API_URL", server.URL+"/api/v1/")
	t.Setenv("TUSK_ACCESS_TOKEN", "test-token")
	t.Setenv("TUSK_RETRY_DELAY", "1ms")
	t.Setenv("TUSK_MAX_RETRIES", "3")
	t.Setenv("TUSK_OUTPUT", "text")

	return &testEnv{server: server}
}

// jsonResponse returns a handler writing body with the given status.
func jsonResponse(statusCode int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		_, _ = w.Write([]byte(body))
	}
}

// routeHandler routes by exact "METHOD PATH"; anything else gets a JSON 404.
type routeHandler struct {
	routes map[string]http.HandlerFunc
}

func newRouteHandler() *routeHandler {
	return &routeHandler{routes: make(map[string]http.HandlerFunc)}
}

// On registers a handler for the given HTTP method and path.
func (rh *routeHandler) On(method, path string, handler http.HandlerFunc) *routeHandler {
	rh.routes[method+" "+path] = handler
	return rh
}

func (rh *routeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if handler, ok := rh.routes[r.Method+" "+r.URL.Path]; ok {
		handler(w, r)
		return
	}
	jsonResponse(http.StatusNotFound, `{"error":"Record not found"}`)(w, r)
}
