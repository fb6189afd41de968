package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestIssueAndParse(t *testing.T) {
	s := NewService("test-secret", time.Hour)
	tok, err := s.IssueToken("alice", "Alice", "student")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	claims, err := s.Parse(tok)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Sub != "alice" || claims.Role != "student" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	tok, _ := NewService("secret-a", time.Hour).IssueToken("alice", "", "student")
	if _, err := NewService("secret-b", time.Hour).Parse(tok); err == nil {
		t.Fatal("token signed with a different secret should not parse")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	tok, _ := NewService("secret", -time.Minute).IssueToken("alice", "", "student")
	if _, err := NewService("secret", time.Hour).Parse(tok); err == nil {
		t.Fatal("expired token should not parse")
	}
}

func TestMiddleware(t *testing.T) {
	s := NewService("secret", time.Hour)
	var gotStudent string
	h := Middleware(s)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotStudent = StudentFrom(r.Context())
	}))

	// No token.
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}

	// Valid token.
	tok, _ := s.IssueToken("alice", "", "student")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotStudent != "alice" {
		t.Errorf("student from context = %q", gotStudent)
	}
}
