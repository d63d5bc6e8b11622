package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/adeleeuw3/NLVreport/internal/audit"
	"github.com/adeleeuw3/NLVreport/internal/auth"
	"github.com/adeleeuw3/NLVreport/internal/catalog"
	"github.com/adeleeuw3/NLVreport/internal/dashboard"
	"github.com/adeleeuw3/NLVreport/internal/entry"
	"github.com/adeleeuw3/NLVreport/internal/period"
	"github.com/adeleeuw3/NLVreport/internal/store"
	"github.com/adeleeuw3/NLVreport/internal/view"
)

const auditActor = "api"

// Server exposes reports, stories and snapshots over JSON.
type Server struct {
	Store   *store.Store
	Auth    *auth.Service
	Catalog *catalog.Catalog
	Entry   *entry.Service
	Builder *dashboard.Builder
	Views   *view.Registry
	Audit   *audit.Logger
	// Quiet disables the request logger.
	Quiet bool
}

// New wires a Server over an open store.
func New(s *store.Store, cat *catalog.Catalog, builder *dashboard.Builder, auditLog *audit.Logger) *Server {
	return &Server{
		Store:   s,
		Auth:    auth.NewService(s),
		Catalog: cat,
		Entry:   entry.NewService(s, cat),
		Builder: builder,
		Views:   view.NewRegistry(),
		Audit:   auditLog,
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if !s.Quiet {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/signup", s.handleSignUp)
		r.Post("/auth/signin", s.handleSignIn)
		r.Get("/catalog", s.handleCatalog)

		r.Group(func(r chi.Router) {
			r.Use(s.requireUser)
			r.Post("/auth/signout", s.handleSignOut)
			r.Get("/me", s.handleMe)

			r.Get("/reports/{year}", s.handleSavedMonths)
			r.Get("/reports/{year}/merged", s.handleMerged)
			r.Put("/reports/{year}", s.handleSaveMany)
			r.Delete("/reports/{year}", s.handleDeleteMany)
			r.Get("/reports/{year}/{month}", s.handleGetReport)
			r.Put("/reports/{year}/{month}", s.handleSaveReport)
			r.Delete("/reports/{year}/{month}", s.handleDeleteReport)
			r.Get("/reports/{year}/{month}/previous", s.handlePreviousReport)

			r.Post("/stories", s.handleBuildStory)
			r.Post("/preview", s.handlePreview)

			r.Get("/dashboards", s.handleListDashboards)
			r.Post("/dashboards", s.handleSaveDashboard)
			r.Get("/dashboards/{id}", s.handleGetDashboard)
			r.Put("/dashboards/{id}", s.handleSaveDashboard)
			r.Delete("/dashboards/{id}", s.handleDeleteDashboard)
			r.Get("/dashboards/{id}/render", s.handleRenderDashboard)

			r.Get("/view", s.handleGetView)
			r.Post("/view", s.handleApplyView)
		})
	})
	return r
}

// ListenAndServe runs the API until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

type ctxKey struct{}

func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, store.ErrNotAuthenticated)
			return
		}
		u, err := s.Auth.UserForToken(r.Context(), token)
		if err != nil {
			writeErr(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), ctxKey{}, &session{user: u, token: token})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type session struct {
	user  *auth.User
	token string
}

func currentSession(r *http.Request) *session {
	sess, _ := r.Context().Value(ctxKey{}).(*session)
	return sess
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(h, "Bearer ")
	token = strings.TrimSpace(token)
	return token, ok && token != ""
}

func (s *Server) logEvent(eventType string, payload any) {
	if err := s.Audit.LogEvent(auditActor, eventType, payload); err != nil {
		log.Printf("audit log failed: %v", err)
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return badRequest{err}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// badRequest marks caller mistakes.
type badRequest struct{ err error }

func (b badRequest) Error() string { return b.err.Error() }
func (b badRequest) Unwrap() error { return b.err }

func writeErr(w http.ResponseWriter, err error) {
	var bad badRequest
	switch {
	case errors.As(err, &bad),
		errors.Is(err, period.ErrRange),
		errors.Is(err, auth.ErrInvalidEmail),
		errors.Is(err, auth.ErrWeakPassword):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, auth.ErrInvalidCredential),
		errors.Is(err, auth.ErrSignedOut),
		errors.Is(err, store.ErrNotAuthenticated):
		writeError(w, http.StatusUnauthorized, err)
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, auth.ErrEmailInUse),
		errors.Is(err, view.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err)
	default:
		log.Printf("internal error: %v", err)
		writeError(w, http.StatusInternalServerError, err)
	}
}
