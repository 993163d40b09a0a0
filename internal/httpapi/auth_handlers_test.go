package httpapi

import (
	"net/http"
	"testing"
)

func cookieByName(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestRegisterSetsSessionCookies(t *testing.T) {
	c := newTestAPI(t)

	resp := c.post("/v1/auth/register", map[string]any{
		"email":    "ada@example.com",
		"username": "ada",
		"password": "hunter2!",
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status %d", resp.StatusCode)
	}

	access := cookieByName(resp, accessCookie)
	refresh := cookieByName(resp, refreshCookie)
	if access == nil || refresh == nil {
		t.Fatal("session cookies not set")
	}
	if !access.HttpOnly || !refresh.HttpOnly {
		t.Fatal("session cookies must be HttpOnly")
	}
	if access.MaxAge != 86400 || refresh.MaxAge != 604800 {
		t.Fatalf("cookie lifetimes %d/%d", access.MaxAge, refresh.MaxAge)
	}

	var session sessionResponse
	decodeBody(t, resp, &session)
	if session.User == nil || session.User.Email != "ada@example.com" {
		t.Fatalf("unexpected user %+v", session.User)
	}
	if session.AccessToken == "" || session.RefreshToken == "" {
		t.Fatal("tokens missing from response")
	}
}

func TestRegisterDuplicateEmailConflict(t *testing.T) {
	c := newTestAPI(t)
	c.register("ada@example.com", "hunter2!")

	resp := c.post("/v1/auth/register", map[string]any{
		"email":    "ada@example.com",
		"username": "other",
		"password": "different",
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status %d", resp.StatusCode)
	}
}

func TestLoginAndProfile(t *testing.T) {
	c := newTestAPI(t)
	c.register("ada@example.com", "hunter2!")

	resp := c.post("/v1/auth/login", map[string]any{
		"email":    "ada@example.com",
		"password": "hunter2!",
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status %d", resp.StatusCode)
	}
	var session sessionResponse
	decodeBody(t, resp, &session)

	profile := c.get("/v1/auth/profile", nil, bearerHeader(session.AccessToken))
	if profile.StatusCode != http.StatusOK {
		t.Fatalf("profile status %d", profile.StatusCode)
	}
	var payload map[string]any
	decodeBody(t, profile, &payload)
	if payload["email"] != "ada@example.com" {
		t.Fatalf("unexpected profile %v", payload)
	}
	if _, leaked := payload["password"]; leaked {
		t.Fatal("password hash leaked in profile")
	}
}

func TestProfileWithCookie(t *testing.T) {
	c := newTestAPI(t)
	session := c.register("ada@example.com", "hunter2!")

	req, err := http.NewRequest(http.MethodGet, c.baseURL+"/v1/auth/profile", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.AddCookie(&http.Cookie{Name: accessCookie, Value: session.AccessToken})
	resp, err := c.client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	c := newTestAPI(t)
	c.register("ada@example.com", "hunter2!")

	resp := c.post("/v1/auth/login", map[string]any{
		"email":    "ada@example.com",
		"password": "wrong",
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status %d", resp.StatusCode)
	}
}

func TestProfileWithoutToken(t *testing.T) {
	c := newTestAPI(t)

	resp := c.get("/v1/auth/profile", nil, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status %d", resp.StatusCode)
	}
}

func TestRefreshRotatesTokens(t *testing.T) {
	c := newTestAPI(t)
	session := c.register("ada@example.com", "hunter2!")

	resp := c.post("/v1/auth/refresh", map[string]any{
		"refreshToken": session.RefreshToken,
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refresh status %d", resp.StatusCode)
	}
	var next refreshResponse
	decodeBody(t, resp, &next)
	if next.RefreshToken == "" || next.RefreshToken == session.RefreshToken {
		t.Fatal("refresh did not rotate the envelope")
	}

	// New access token works.
	profile := c.get("/v1/auth/profile", nil, bearerHeader(next.AccessToken))
	defer profile.Body.Close()
	if profile.StatusCode != http.StatusOK {
		t.Fatalf("profile status %d", profile.StatusCode)
	}
}

func TestRefreshWithGarbageToken(t *testing.T) {
	c := newTestAPI(t)

	resp := c.post("/v1/auth/refresh", map[string]any{
		"refreshToken": "garbage",
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status %d", resp.StatusCode)
	}
}

func TestLogoutThenReuseIsRejected(t *testing.T) {
	c := newTestAPI(t)
	session := c.register("ada@example.com", "hunter2!")

	logout := c.post("/v1/auth/logout", map[string]any{
		"refreshToken": session.RefreshToken,
	}, nil)
	if logout.StatusCode != http.StatusOK {
		t.Fatalf("logout status %d", logout.StatusCode)
	}
	if ck := cookieByName(logout, accessCookie); ck == nil || ck.MaxAge >= 0 {
		t.Fatal("logout did not clear the access cookie")
	}
	logout.Body.Close()

	// Replaying the revoked envelope is refused.
	resp := c.post("/v1/auth/refresh", map[string]any{
		"refreshToken": session.RefreshToken,
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("reuse status %d", resp.StatusCode)
	}
}

func TestReuseCascadeRevokesSiblingSessions(t *testing.T) {
	c := newTestAPI(t)
	stolen := c.register("ada@example.com", "hunter2!")

	login := c.post("/v1/auth/login", map[string]any{
		"email":    "ada@example.com",
		"password": "hunter2!",
	}, nil)
	var sibling sessionResponse
	decodeBody(t, login, &sibling)

	// Burn the first envelope, then replay it.
	c.post("/v1/auth/logout", map[string]any{"refreshToken": stolen.RefreshToken}, nil).Body.Close()
	c.post("/v1/auth/refresh", map[string]any{"refreshToken": stolen.RefreshToken}, nil).Body.Close()

	// The sibling session's envelope was revoked by the cascade.
	resp := c.post("/v1/auth/refresh", map[string]any{"refreshToken": sibling.RefreshToken}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("sibling refresh status %d", resp.StatusCode)
	}
}

func TestRegisterValidation(t *testing.T) {
	c := newTestAPI(t)

	cases := []map[string]any{
		{"email": "", "username": "x", "password": "y"},
		{"email": "a@example.com", "username": "", "password": "y"},
		{"email": "a@example.com", "username": "x", "password": ""},
	}
	for _, body := range cases {
		resp := c.post("/v1/auth/register", body, nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("body %v: status %d", body, resp.StatusCode)
		}
	}
}
