// Package httpapi exposes the session engine over HTTP.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/studyloop/studyloop/internal/auth"
	"github.com/studyloop/studyloop/internal/progress"
	"github.com/studyloop/studyloop/internal/session"
	"github.com/studyloop/studyloop/internal/store"
)

// Historian serves a student's archived session history.
type Historian interface {
	History(ctx context.Context, studentID, subject string, limit int) ([]store.ArchivedSession, error)
}

// API bundles the handlers and their collaborators.
type API struct {
	engine   *session.Engine
	progress *progress.Service
	history  Historian
	auth     *auth.Service
}

// Options configures the router.
type Options struct {
	Engine   *session.Engine
	Progress *progress.Service
	History  Historian
	Auth     *auth.Service

	// CORSOrigins are the allowed browser origins.
	CORSOrigins []string

	// EnableLocalAuth exposes the dev login endpoint.
	EnableLocalAuth bool
}

// NewRouter builds the HTTP router with standard middleware and all API
// routes mounted.
func NewRouter(opts Options) http.Handler {
	a := &API{
		engine:   opts.Engine,
		progress: opts.Progress,
		history:  opts.History,
		auth:     opts.Auth,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", a.healthz)
	if opts.EnableLocalAuth {
		r.Post("/auth/login", a.login)
	}

	r.Group(func(pr chi.Router) {
		pr.Use(auth.Middleware(a.auth))

		pr.Post("/sessions", a.startSession)
		pr.Route("/sessions/{sessionID}", func(sr chi.Router) {
			sr.Use(a.requireOwner)
			sr.Get("/", a.getSession)
			sr.Post("/answers", a.submitAnswer)
			sr.Post("/advance", a.advance)
			sr.Post("/tutor", a.tutorMessage)
			sr.Post("/complete", a.completeSession)
		})
		pr.Get("/progress/{subject}", a.getProgress)
	})

	return r
}

// requireOwner rejects requests against sessions owned by a different
// student. Unknown sessions map to 404 in the handler itself.
func (a *API) requireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "sessionID")
		owner, err := a.engine.Owner(id)
		if err != nil {
			writeError(w, err)
			return
		}
		if owner != auth.StudentFrom(r.Context()) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
