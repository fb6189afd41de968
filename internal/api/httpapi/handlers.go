package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/studyloop/studyloop/internal/auth"
	"github.com/studyloop/studyloop/internal/llm"
	"github.com/studyloop/studyloop/internal/progress"
	"github.com/studyloop/studyloop/internal/question"
	"github.com/studyloop/studyloop/internal/session"
	"github.com/studyloop/studyloop/internal/tutor"
)

func (a *API) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// login is the minimal dev-mode login: any username with a matching
// password gets a student token. Replace with a real identity provider
// in production deployments.
func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Username != req.Password {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	tok, err := a.auth.IssueToken(req.Username, req.Username, "student")
	if err != nil {
		http.Error(w, "issue token", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access_token": tok})
}

type startRequest struct {
	Subject       string `json:"subject"`
	Tier          string `json:"tier"`
	QuestionCount int    `json:"questionCount"`
	TimeLimitSec  int    `json:"timeLimitSec"`
	Mode          string `json:"mode"`
}

func (a *API) startSession(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	tier, err := question.ParseTier(req.Tier)
	if err != nil {
		writeError(w, &session.InvalidConfigError{Reason: err.Error()})
		return
	}

	cfg := session.Config{
		Subject:       req.Subject,
		Tier:          tier,
		QuestionCount: req.QuestionCount,
		TimeLimit:     time.Duration(req.TimeLimitSec) * time.Second,
		Mode:          session.Mode(req.Mode),
	}
	s, err := a.engine.Start(r.Context(), auth.StudentFrom(r.Context()), cfg)
	if err != nil {
		writeError(w, err)
		return
	}

	// Timed sessions get a server-side expiry signal. Firing after the
	// session already completed is a no-op.
	if cfg.TimeLimit > 0 {
		id := s.ID
		time.AfterFunc(cfg.TimeLimit, func() {
			_ = a.engine.ExpireTimer(context.Background(), id)
		})
	}

	view, err := a.engine.Describe(s.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := startResponse{View: view}
	if rec, err := a.progress.Snapshot(r.Context(), s.StudentID, cfg.Subject); err == nil {
		resp.Progress = rec
	}
	writeJSON(w, http.StatusCreated, resp)
}

type startResponse struct {
	*session.View
	Progress *progress.Record `json:"progress,omitempty"`
}

func (a *API) getSession(w http.ResponseWriter, r *http.Request) {
	view, err := a.engine.Describe(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) submitAnswer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		QuestionID string `json:"questionId"`
		Answer     string `json:"answer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	ctx := llm.WithPurpose(r.Context(), "question-hint")
	res, err := a.engine.Submit(ctx, chi.URLParam(r, "sessionID"), req.QuestionID, req.Answer)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) advance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if err := a.engine.Advance(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	view, err := a.engine.Describe(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type tutorResponse struct {
	Reply string       `json:"reply"`
	Turns []tutor.Turn `json:"turns"`
}

func (a *API) tutorMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		QuestionID string `json:"questionId"`
		Message    string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	id := chi.URLParam(r, "sessionID")
	ctx := llm.WithPurpose(r.Context(), "tutor-reply")
	reply, err := a.engine.Tutor(ctx, id, req.QuestionID, req.Message)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tutorResponse{
		Reply: reply,
		Turns: a.engine.ExchangeFor(id, req.QuestionID),
	})
}

func (a *API) completeSession(w http.ResponseWriter, r *http.Request) {
	sum, err := a.engine.Complete(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (a *API) getProgress(w http.ResponseWriter, r *http.Request) {
	subject := chi.URLParam(r, "subject")
	student := auth.StudentFrom(r.Context())

	rec, err := a.progress.Snapshot(r.Context(), student, subject)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := struct {
		Subject     string      `json:"subject"`
		Points      int         `json:"points"`
		Average     float64     `json:"average"`
		Tier        string      `json:"tier"`
		Improvement float64     `json:"improvement"`
		Sessions    int         `json:"sessions"`
		History     interface{} `json:"history,omitempty"`
	}{
		Subject:     subject,
		Points:      rec.Points,
		Average:     rec.Average,
		Tier:        string(rec.Tier),
		Improvement: rec.Improvement(),
		Sessions:    rec.Sessions,
	}
	if a.history != nil {
		if hist, err := a.history.History(r.Context(), student, subject, 20); err == nil {
			resp.History = hist
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
