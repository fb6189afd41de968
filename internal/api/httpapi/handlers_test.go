package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/studyloop/studyloop/internal/auth"
	"github.com/studyloop/studyloop/internal/progress"
	"github.com/studyloop/studyloop/internal/question"
	"github.com/studyloop/studyloop/internal/session"
)

type testAPI struct {
	srv   *httptest.Server
	auth  *auth.Service
	token string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	qs := make([]question.Question, 2)
	for i := range qs {
		qs[i] = question.Question{
			ID:      fmt.Sprintf("q%d", i+1),
			Subject: "math",
			Tier:    question.TierBasic,
			Prompt:  fmt.Sprintf("What is %d + %d?", i+1, i+1),
			Answer:  fmt.Sprintf("%d", 2*(i+1)),
			Hints:   []string{"Use addition."},
		}
	}
	engine := session.NewEngine(question.NewMemoryStore(qs...), session.Options{
		Progress: progress.NewService(progress.NewMemoryRepo(), progress.DefaultConfig()),
	})
	authSvc := auth.NewService("test-secret", time.Hour)
	router := NewRouter(Options{
		Engine:          engine,
		Progress:        progress.NewService(progress.NewMemoryRepo(), progress.DefaultConfig()),
		Auth:            authSvc,
		CORSOrigins:     []string{"*"},
		EnableLocalAuth: true,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	tok, err := authSvc.IssueToken("alice", "Alice", "student")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return &testAPI{srv: srv, auth: authSvc, token: tok}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, a.srv.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func (a *testAPI) start(t *testing.T, body any) session.View {
	t.Helper()
	resp := a.do(t, http.MethodPost, "/sessions", a.token, body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("start session: status %d", resp.StatusCode)
	}
	return decode[session.View](t, resp)
}

func defaultStart() map[string]any {
	return map[string]any{
		"subject":       "math",
		"tier":          "basic",
		"questionCount": 2,
		"mode":          "graded",
	}
}

func TestAuthRequired(t *testing.T) {
	a := newTestAPI(t)
	resp := a.do(t, http.MethodPost, "/sessions", "", defaultStart())
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestLoginIssuesUsableToken(t *testing.T) {
	a := newTestAPI(t)
	resp := a.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"username": "bob", "password": "bob",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}
	body := decode[map[string]string](t, resp)
	tok := body["access_token"]
	if tok == "" {
		t.Fatal("no access token issued")
	}
	resp = a.do(t, http.MethodPost, "/sessions", tok, defaultStart())
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("session with issued token: status %d", resp.StatusCode)
	}
}

func TestSessionFlowOverHTTP(t *testing.T) {
	a := newTestAPI(t)
	view := a.start(t, defaultStart())
	if view.Question == nil || view.Question.ID != "q1" {
		t.Fatalf("start view = %+v", view)
	}

	// Wrong answer gets a hint.
	resp := a.do(t, http.MethodPost, "/sessions/"+view.ID+"/answers", a.token, map[string]string{
		"questionId": "q1", "answer": "7",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("submit status = %d", resp.StatusCode)
	}
	res := decode[session.AttemptResult](t, resp)
	if res.Correct || res.Hint == "" || res.AttemptsRemaining != 2 {
		t.Fatalf("attempt result = %+v", res)
	}

	// Empty answer is a 400.
	resp = a.do(t, http.MethodPost, "/sessions/"+view.ID+"/answers", a.token, map[string]string{
		"questionId": "q1", "answer": " ",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty answer status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()

	// Correct answers drive the session to completion.
	for _, sub := range []struct{ id, answer string }{{"q1", "2"}, {"q2", "4"}} {
		resp = a.do(t, http.MethodPost, "/sessions/"+view.ID+"/answers", a.token, map[string]string{
			"questionId": sub.id, "answer": sub.answer,
		})
		res = decode[session.AttemptResult](t, resp)
		if !res.Correct {
			t.Fatalf("submit %s: %+v", sub.id, res)
		}
	}
	if !res.SessionCompleted {
		t.Fatal("session should be completed")
	}

	resp = a.do(t, http.MethodGet, "/sessions/"+view.ID+"/", a.token, nil)
	final := decode[session.View](t, resp)
	if final.State != "completed" || final.Summary == nil || final.Summary.Score != 100 {
		t.Fatalf("final view = %+v", final)
	}
}

func TestStartRejectsUnknownTier(t *testing.T) {
	a := newTestAPI(t)
	body := defaultStart()
	body["tier"] = "impossible"
	resp := a.do(t, http.MethodPost, "/sessions", a.token, body)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestSessionOwnership(t *testing.T) {
	a := newTestAPI(t)
	view := a.start(t, defaultStart())

	other, _ := a.auth.IssueToken("mallory", "", "student")
	resp := a.do(t, http.MethodGet, "/sessions/"+view.ID+"/", other, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
}

func TestUnknownSessionIs404(t *testing.T) {
	a := newTestAPI(t)
	resp := a.do(t, http.MethodGet, "/sessions/nope/", a.token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestTutorForbiddenInGraded(t *testing.T) {
	a := newTestAPI(t)
	view := a.start(t, defaultStart())
	resp := a.do(t, http.MethodPost, "/sessions/"+view.ID+"/tutor", a.token, map[string]string{
		"questionId": "q1", "message": "help me",
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
}

func TestExhaustedAttemptsIs409(t *testing.T) {
	a := newTestAPI(t)
	body := defaultStart()
	body["mode"] = "practice"
	view := a.start(t, body)

	for i := 0; i < 3; i++ {
		resp := a.do(t, http.MethodPost, "/sessions/"+view.ID+"/answers", a.token, map[string]string{
			"questionId": "q1", "answer": "wrong",
		})
		resp.Body.Close()
	}
	resp := a.do(t, http.MethodPost, "/sessions/"+view.ID+"/answers", a.token, map[string]string{
		"questionId": "q1", "answer": "wrong again",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
}

func TestTimedSessionExpires(t *testing.T) {
	a := newTestAPI(t)
	body := defaultStart()
	body["timeLimitSec"] = 1
	view := a.start(t, body)

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		resp := a.do(t, http.MethodGet, "/sessions/"+view.ID+"/", a.token, nil)
		v := decode[session.View](t, resp)
		if v.State == "completed" {
			if v.Summary == nil || v.Summary.Score != 0 {
				t.Fatalf("expired view = %+v", v)
			}
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatal("session never expired")
}

func TestProgressEndpoint(t *testing.T) {
	a := newTestAPI(t)
	resp := a.do(t, http.MethodGet, "/progress/math", a.token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	if body["tier"] != "beginner" {
		t.Errorf("fresh student tier = %v, want beginner", body["tier"])
	}
}
