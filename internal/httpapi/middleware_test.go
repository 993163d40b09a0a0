package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSecurityHeaders(t *testing.T) {
	c := newTestAPI(t)

	resp := c.get("/healthz", nil, nil)
	defer resp.Body.Close()
	if got := resp.Header.Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("X-Content-Type-Options %q", got)
	}
	if got := resp.Header.Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("X-Frame-Options %q", got)
	}
	if resp.Header.Get("Content-Security-Policy") == "" {
		t.Fatal("missing CSP header")
	}
}

func TestRequestIDEchoed(t *testing.T) {
	c := newTestAPI(t)

	resp := c.get("/healthz", nil, nil)
	resp.Body.Close()
	if resp.Header.Get("X-Request-Id") == "" {
		t.Fatal("request id not assigned")
	}

	pinned := c.get("/healthz", nil, map[string]string{"X-Request-Id": "req-77"})
	pinned.Body.Close()
	if got := pinned.Header.Get("X-Request-Id"); got != "req-77" {
		t.Fatalf("request id %q, want req-77", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	c := newTestAPI(t)

	req, err := http.NewRequest(http.MethodOptions, c.baseURL+"/v1/auth/login", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err := c.client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("allow-origin %q", got)
	}
	if resp.Header.Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatal("credentials not allowed for cookie auth")
	}
}

func TestCORSUnknownOriginNotEchoed(t *testing.T) {
	c := newTestAPI(t)

	resp := c.get("/healthz", nil, map[string]string{"Origin": "https://evil.example"})
	resp.Body.Close()
	if resp.Header.Get("Access-Control-Allow-Origin") != "" {
		t.Fatal("unknown origin must not be echoed")
	}
}

func TestRateLimit(t *testing.T) {
	handler := RateLimit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), 2, 1)

	srv := httptest.NewServer(RequestID(handler))
	defer srv.Close()

	client := srv.Client()
	statuses := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		resp, err := client.Get(srv.URL + "/")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		resp.Body.Close()
		statuses = append(statuses, resp.StatusCode)
	}
	if statuses[0] != http.StatusOK || statuses[1] != http.StatusOK {
		t.Fatalf("burst rejected: %v", statuses)
	}
	limited := false
	for _, s := range statuses[2:] {
		if s == http.StatusTooManyRequests {
			limited = true
		}
	}
	if !limited {
		t.Fatalf("limiter never engaged: %v", statuses)
	}
}

func TestMaxBodyBytes(t *testing.T) {
	c := newTestAPI(t)

	big := make(map[string]any)
	big["email"] = "a@example.com"
	big["username"] = "a"
	big["password"] = string(make([]byte, 2<<20))

	resp := c.post("/v1/auth/register", big, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d", resp.StatusCode)
	}
}
