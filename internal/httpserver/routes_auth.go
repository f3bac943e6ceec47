package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/spotthebot/internal/auth"
	"github.com/robalobadob/spotthebot/internal/round"
	"github.com/robalobadob/spotthebot/internal/store"
)

// Request payload for signup/login.
type credentialsReq struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// meRes is the public view of the signed-in player.
type meRes struct {
	ID         string `json:"id"`
	PublicName string `json:"publicName"`
}

// mountAuthRoutes registers authentication + gated routes (/auth/*, /stats/me, /rounds/mine).
func (s *Server) mountAuthRoutes() {
	s.r.Post("/auth/signup", s.handleSignup)
	s.r.Post("/auth/login", s.handleLogin)
	s.r.Post("/auth/logout", s.handleLogout)

	gated := s.r.With(s.requireAuth())
	gated.Get("/auth/me", func(w http.ResponseWriter, r *http.Request) {
		c := claimsFrom(r.Context())
		_ = json.NewEncoder(w).Encode(meRes{ID: c.UserID, PublicName: c.PublicName})
	})
	gated.Get("/stats/me", s.handleStats)
	gated.Get("/rounds/mine", s.handleMyRounds)
}

// handleSignup creates a new user, issues an identity marker and sets the auth cookie.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var body credentialsReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"error":"invalid_json"}`, http.StatusBadRequest)
		return
	}
	u, err := s.Users.CreateUser(r.Context(), body.Name, body.Password)
	if err != nil {
		if errors.Is(err, store.ErrNameTaken) {
			http.Error(w, `{"error":"Name taken"}`, http.StatusConflict)
			return
		}
		b, _ := json.Marshal(map[string]string{"error": err.Error()})
		http.Error(w, string(b), http.StatusBadRequest)
		return
	}
	if err := s.signIn(w, u); err != nil {
		log.Error().Err(err).Str("user", u.ID).Msg("sign in after signup")
		http.Error(w, `{"error":"sign_failed"}`, http.StatusInternalServerError)
		return
	}
	log.Info().Str("user", u.ID).Msg("signup")
	_ = json.NewEncoder(w).Encode(map[string]any{"id": u.ID, "publicName": u.PublicName, "createdAt": u.CreatedAt})
}

// handleLogin authenticates the user and starts a fresh session.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body credentialsReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"error":"invalid_json"}`, http.StatusBadRequest)
		return
	}
	u, err := s.Users.FindByName(r.Context(), body.Name)
	if err != nil || !auth.CheckPassword(u.PasswordHash, body.Password) {
		http.Error(w, `{"error":"Invalid name or password"}`, http.StatusUnauthorized)
		return
	}
	if err := s.signIn(w, u); err != nil {
		log.Error().Err(err).Str("user", u.ID).Msg("sign in")
		http.Error(w, `{"error":"sign_failed"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(meRes{ID: u.ID, PublicName: u.PublicName})
}

// handleLogout clears the auth cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.Cookies.Clear(w)
	_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

// signIn issues the user's identity marker and writes a token that names it.
// There is one marker per user, so a repeated login overwrites it.
func (s *Server) signIn(w http.ResponseWriter, u *store.UserRow) error {
	marker := "user-" + u.ID
	if err := s.Identity.Issue(marker, u.ID); err != nil {
		return err
	}
	tok, exp, err := s.Signer.Sign(auth.Claims{
		UserID:     u.ID,
		PublicName: u.PublicName,
		NameHash:   u.NameHash,
		Identity:   marker,
	})
	if err != nil {
		return err
	}
	s.Cookies.Set(w, tok, exp)
	return nil
}

// statsRes is the /stats/me payload.
type statsRes struct {
	ID string `json:"id"`
	store.Stats
	Correct int `json:"correct"`
	Wrong   int `json:"wrong"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	c := claimsFrom(r.Context())
	st, err := s.Users.Stats(r.Context(), c.UserID)
	if err != nil {
		if errors.Is(err, round.ErrUserNotFound) {
			fail(w, http.StatusNotFound, "user_not_found")
			return
		}
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(statsRes{ID: c.UserID, Stats: st, Correct: st.Correct(), Wrong: st.Wrong()})
}

func (s *Server) handleMyRounds(w http.ResponseWriter, r *http.Request) {
	rows, err := s.Journal.Mine(r.Context(), claimsFrom(r.Context()).UserID, 50)
	if err != nil {
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(rows)
}

func (s *Server) handleMarkers(w http.ResponseWriter, r *http.Request) {
	rows, err := s.Markers.Top(r.Context(), 0)
	if err != nil {
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"vocabulary": s.Corpus.Markers, "markers": rows})
}
