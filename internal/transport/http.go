package transport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rpggio/wellnest/internal/domain/record"
	"github.com/rpggio/wellnest/internal/identity"
)

// RecordReader serves the public listing. record.Service satisfies it.
type RecordReader interface {
	ListPublished(ctx context.Context) ([]record.Record, error)
	Get(ctx context.Context, viewerID, id string) (*record.Record, error)
}

// OAuthFlow runs the server side of external sign-in. identity.Service
// satisfies it.
type OAuthFlow interface {
	AuthorizeURL(provider string) (string, error)
	HandleCallback(ctx context.Context, provider, state, code string) (string, error)
}

// Options wires the HTTP surface. OAuth and MCP are optional.
type Options struct {
	Records  RecordReader
	Resolver IdentityResolver
	OAuth    OAuthFlow
	MCP      http.Handler
	Logger   *slog.Logger
}

// SessionList is the body of the public listing.
type SessionList struct {
	Sessions []record.Record `json:"sessions"`
}

type server struct {
	records RecordReader
	oauth   OAuthFlow
	logger  *slog.Logger
}

// NewServer creates an HTTP server router with middleware.
func NewServer(opts Options) *chi.Mux {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	srv := &server{records: opts.Records, oauth: opts.OAuth, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Get("/health", srv.handleHealth)

	r.Route("/api/sessions", func(r chi.Router) {
		r.Get("/", srv.handleListPublished)
		r.With(OptionalAuthMiddleware(opts.Resolver)).Get("/{id}", srv.handleGetSession)
	})

	if opts.OAuth != nil {
		r.Get("/auth/{provider}/authorize", srv.handleAuthorize)
		r.Get("/auth/{provider}/callback", srv.handleCallback)
	}

	if opts.MCP != nil {
		r.Handle("/mcp", opts.MCP)
	}

	return r
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *server) handleListPublished(w http.ResponseWriter, r *http.Request) {
	recs, err := s.records.ListPublished(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionList{Sessions: recs})
}

func (s *server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := UserFromContext(r.Context())
	rec, err := s.records.Get(r.Context(), viewerID, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	address, err := s.oauth.AuthorizeURL(chi.URLParam(r, "provider"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	http.Redirect(w, r, address, http.StatusFound)
}

func (s *server) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if msg := q.Get("error"); msg != "" {
		writeError(w, http.StatusBadRequest, "provider_error", msg)
		return
	}

	returnTo, err := s.oauth.HandleCallback(r.Context(), chi.URLParam(r, "provider"), q.Get("state"), q.Get("code"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	http.Redirect(w, r, returnTo, http.StatusFound)
}

// fail maps domain errors onto HTTP statuses.
func (s *server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, record.ErrRecordNotFound):
		writeError(w, http.StatusNotFound, "not_found", "session not found")
	case errors.Is(err, record.ErrValidation):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, record.ErrPermission):
		writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
	case errors.Is(err, identity.ErrUnsupportedProvider):
		writeError(w, http.StatusNotFound, "unsupported_provider", err.Error())
	case errors.Is(err, identity.ErrInvalidState):
		writeError(w, http.StatusBadRequest, "invalid_state", err.Error())
	case errors.Is(err, identity.ErrEmailUnverified):
		writeError(w, http.StatusForbidden, "email_unverified", "the provider has not verified this email address")
	case errors.Is(err, identity.ErrExchange):
		s.logger.Warn("oauth exchange failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusBadGateway, "exchange_failed", "sign-in with the provider failed")
	default:
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
