// internal/httpserver/server.go
//
// HTTP server wiring for the spot-the-bot backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs, access log).
//   - Public endpoints: "/", "/health", "/markers".
//   - Round endpoints (require auth): mounted under /round.
//   - Auth + profile/stat endpoints: /auth/*, /stats/me, /rounds/mine.
//
// Notes:
//   - CORS is origin‑aware and credentials‑enabled (so cookies work).
//   - The session the round engine reads is built per request from the JWT claims.
//   - Require‑auth middleware enforces presence and validity of a JWT.

package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/spotthebot/internal/auth"
	"github.com/robalobadob/spotthebot/internal/round"
	"github.com/robalobadob/spotthebot/internal/session"
	"github.com/robalobadob/spotthebot/internal/snippet"
	"github.com/robalobadob/spotthebot/internal/store"
)

// Deps are the collaborators the server is built from.
type Deps struct {
	Engine   *round.Engine
	Rounds   store.Rounds
	Users    *store.Users
	Markers  *store.Markers
	Journal  *store.Journal
	Corpus   *snippet.Corpus
	Signer   *auth.Signer
	Cookies  auth.Cookies
	Identity *session.Markers
	Clock    round.Clock
	Origin   string
}

// Server bundles router, round registry and stores.
type Server struct {
	r *chi.Mux
	Deps
}

// New constructs a Server, installs middleware, and registers routes.
func New(d Deps) *Server {
	if d.Clock == nil {
		d.Clock = round.SystemClock{}
	}
	if d.Origin == "" {
		d.Origin = "http://localhost:5173"
	}
	s := &Server{r: chi.NewRouter(), Deps: d}

	// --- middleware ---
	s.r.Use(chimw.RequestID)                 // add X-Request-ID
	s.r.Use(chimw.RealIP)                    // trust X-Forwarded-For/Proto when behind proxy
	s.r.Use(accessLog)                       // one zerolog line per request
	s.r.Use(chimw.Recoverer)                 // 500 on panic
	s.r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
	s.r.Use(jsonContentType)                 // default JSON responses
	s.r.Use(cors(d.Origin))                  // credentials-friendly CORS

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"spotthebot-go","endpoints":["/health","/round/*","/auth/*","/markers"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	// Marker statistics are public
	s.r.Get("/markers", s.handleMarkers)

	// Rounds require a signed-in player
	s.mountRound(s.r.With(s.requireAuth()))

	// Auth + profile/stats
	s.mountAuthRoutes()

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for a single origin.
func cors(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// accessLog writes one debug line per request with status and latency.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("req_id", chimw.GetReqID(r.Context())).
			Int("status", ww.Status()).
			Int("size", ww.BytesWritten()).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}

// ------------------------------ auth context -------------------------------

// ctxClaimsKey is the context key for the authenticated claims.
type ctxClaimsKey struct{}

// claimsFrom returns the claims placed by requireAuth, if any.
func claimsFrom(ctx context.Context) *auth.Claims {
	c, _ := ctx.Value(ctxClaimsKey{}).(*auth.Claims)
	return c
}

// requireAuth enforces a valid JWT and stores its claims in the request context.
func (s *Server) requireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := s.Cookies.Token(r)
			if tok == "" {
				fail(w, http.StatusUnauthorized, "session_missing")
				return
			}
			c, err := s.Signer.Parse(tok)
			if err != nil {
				fail(w, http.StatusUnauthorized, "session_missing")
				return
			}
			ctx := context.WithValue(r.Context(), ctxClaimsKey{}, c)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ------------------------------ responses ----------------------------------

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// fail writes a recoverable error that sends the player back to the entry page.
func fail(w http.ResponseWriter, status int, code string) {
	b, _ := json.Marshal(map[string]string{"error": code, "redirect": round.DestEntry})
	http.Error(w, string(b), status)
}
