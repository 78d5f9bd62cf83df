package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"proposals/api/internal/auth"
)

// serve sends a request through the full handler chain. body may be nil.
func serve(t *testing.T, server *HTTPServer, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	return rr
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v body=%s", err, rr.Body.String())
	}
	return payload
}

func TestSignUpReturnsSessionContract(t *testing.T) {
	server := NewHTTPServer(newTestService(newFakeStore()), "*", nil)

	rr := serve(t, server, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email":       "  Avery@Example.com ",
		"password":    "correct-horse",
		"displayName": "Avery",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d body=%s", rr.Code, rr.Body.String())
	}

	payload := decodeResponse(t, rr)
	token, _ := payload["token"].(string)
	if token == "" {
		t.Fatalf("expected token")
	}
	if payload["email"] != "avery@example.com" {
		t.Fatalf("expected normalized email, got %v", payload["email"])
	}
	if payload["plan"] != "free" {
		t.Fatalf("expected free plan, got %v", payload["plan"])
	}

	rr = serve(t, server, http.MethodGet, "/api/session", token, nil)
	session := decodeResponse(t, rr)
	if session["authenticated"] != true || session["userName"] != "Avery" {
		t.Fatalf("unexpected session payload: %v", session)
	}
}

func TestSignUpRejectsDuplicateEmail(t *testing.T) {
	server := NewHTTPServer(newTestService(newFakeStore()), "*", nil)
	body := map[string]string{"email": "avery@example.com", "password": "correct-horse", "displayName": "Avery"}

	if rr := serve(t, server, http.MethodPost, "/api/auth/signup", "", body); rr.Code != http.StatusCreated {
		t.Fatalf("first signup: expected 201, got %d", rr.Code)
	}
	rr := serve(t, server, http.MethodPost, "/api/auth/signup", "", body)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d body=%s", rr.Code, rr.Body.String())
	}
	if code := decodeResponse(t, rr)["code"]; code != "EMAIL_EXISTS" {
		t.Fatalf("expected EMAIL_EXISTS, got %v", code)
	}
}

func TestSignUpRejectsShortPassword(t *testing.T) {
	server := NewHTTPServer(newTestService(newFakeStore()), "*", nil)

	rr := serve(t, server, http.MethodPost, "/api/auth/signup", "", map[string]string{"email": "avery@example.com", "password": "short", "displayName": "Avery"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestSignInChecksPassword(t *testing.T) {
	server := NewHTTPServer(newTestService(newFakeStore()), "*", nil)
	serve(t, server, http.MethodPost, "/api/auth/signup", "", map[string]string{"email": "avery@example.com", "password": "correct-horse", "displayName": "Avery"})

	rr := serve(t, server, http.MethodPost, "/api/auth/signin", "", map[string]string{"email": "avery@example.com", "password": "wrong-horse"})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
	if code := decodeResponse(t, rr)["code"]; code != "INVALID_CREDENTIALS" {
		t.Fatalf("expected INVALID_CREDENTIALS, got %v", code)
	}

	rr = serve(t, server, http.MethodPost, "/api/auth/signin", "", map[string]string{"email": "AVERY@example.com", "password": "correct-horse"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestSignInRejectsInvalidBody(t *testing.T) {
	server := NewHTTPServer(newTestService(newFakeStore()), "*", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/signin", bytes.NewBufferString(`{"email":`))
	rr := httptest.NewRecorder()

	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d body=%s", rr.Code, rr.Body.String())
	}
	if code := decodeResponse(t, rr)["code"]; code != "INVALID_BODY" {
		t.Fatalf("expected code INVALID_BODY, got %v", code)
	}
}

func TestSessionWithoutTokenIsAnonymous(t *testing.T) {
	server := NewHTTPServer(newTestService(newFakeStore()), "*", nil)

	rr := serve(t, server, http.MethodGet, "/api/session", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if authenticated := decodeResponse(t, rr)["authenticated"]; authenticated != false {
		t.Fatalf("expected authenticated=false, got %v", authenticated)
	}
}

func TestProtectedRouteWithoutBearerReturnsUnauthorized(t *testing.T) {
	server := NewHTTPServer(newTestService(newFakeStore()), "*", nil)

	rr := serve(t, server, http.MethodGet, "/api/proposals", "", nil)

	assertUnauthorizedCode(t, rr)
}

func TestProtectedRouteWithInvalidBearerReturnsUnauthorized(t *testing.T) {
	server := NewHTTPServer(newTestService(newFakeStore()), "*", nil)

	rr := serve(t, server, http.MethodGet, "/api/proposals", "definitely-not-a-token", nil)

	assertUnauthorizedCode(t, rr)
}

func TestProtectedRouteWithExpiredBearerReturnsUnauthorized(t *testing.T) {
	fs := newFakeStore()
	user := fs.addUser("avery", "pro", "active")
	server := NewHTTPServer(newTestService(fs), "*", nil)

	token, err := auth.IssueToken([]byte(testSecret), auth.NewClaims(user.ID, user.DisplayName, user.Email, -time.Minute))
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	rr := serve(t, server, http.MethodGet, "/api/proposals", token, nil)

	assertUnauthorizedCode(t, rr)
}

func TestProtectedRouteForDeletedUserReturnsUnauthorized(t *testing.T) {
	fs := newFakeStore()
	user := fs.addUser("avery", "pro", "active")
	token := tokenFor(t, user)
	delete(fs.users, user.ID)
	server := NewHTTPServer(newTestService(fs), "*", nil)

	rr := serve(t, server, http.MethodGet, "/api/proposals", token, nil)

	assertUnauthorizedCode(t, rr)
}

func assertUnauthorizedCode(t *testing.T, rr *httptest.ResponseRecorder) {
	t.Helper()
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d body=%s", rr.Code, rr.Body.String())
	}
	if code := decodeResponse(t, rr)["code"]; code != "UNAUTHORIZED" {
		t.Fatalf("expected code UNAUTHORIZED, got %v", code)
	}
}
