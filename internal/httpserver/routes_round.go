// internal/httpserver/routes_round.go
//
// Round endpoints.
//
// Routes (mounted behind requireAuth):
//   POST   /round/start       → open a round, replacing (and abandoning) any previous one
//   GET    /round             → current points, tags and label; outcome once closed
//   POST   /round/tags        → add a tag {tag}
//   DELETE /round/tags/{tag}  → remove a tag
//   POST   /round/submit      → close the round and score it
//   POST   /round/route       → {choice}: continue | quit | dismiss
//
// Behavior:
//   - The round lives in the registry between start and route; decay is
//     applied lazily with Round.Sync on every request.
//   - Tags outside the corpus vocabulary are rejected.
//   - Session, user and snippet failures answer with a redirect to the entry page.

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/spotthebot/internal/auth"
	"github.com/robalobadob/spotthebot/internal/round"
	"github.com/robalobadob/spotthebot/internal/store"
)

// mountRound wires the /round routes onto the provided router.
func (s *Server) mountRound(r chi.Router) {
	r.Route("/round", func(rr chi.Router) {
		rr.Post("/start", s.handleRoundStart)
		rr.Get("/", s.handleRoundGet)
		rr.Post("/tags", s.handleTagAdd)
		rr.Delete("/tags/{tag}", s.handleTagRemove)
		rr.Post("/submit", s.handleRoundSubmit)
		rr.Post("/route", s.handleRoundRoute)
	})
}

// ------------------------------ session ------------------------------------

// requestSession exposes the token claims to the round engine.
type requestSession struct {
	s      *Server
	w      http.ResponseWriter
	claims *auth.Claims
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) *requestSession {
	return &requestSession{s: s, w: w, claims: claimsFrom(r.Context())}
}

func (rs *requestSession) Value(key string) (string, bool) {
	if rs.claims == nil {
		return "", false
	}
	switch key {
	case round.SessionKey:
		return rs.claims.NameHash, rs.claims.NameHash != ""
	case round.IdentityKey:
		return rs.claims.Identity, rs.claims.Identity != ""
	}
	return "", false
}

// ClearIdentity deletes the marker file and reissues the token without it.
func (rs *requestSession) ClearIdentity() error {
	if rs.claims == nil || rs.claims.Identity == "" {
		return nil
	}
	if err := rs.s.Identity.Consume(rs.claims.Identity); err != nil {
		return err
	}
	c := *rs.claims
	c.Identity = ""
	rs.claims = &c
	tok, exp, err := rs.s.Signer.Sign(c)
	if err != nil {
		return err
	}
	rs.s.Cookies.Set(rs.w, tok, exp)
	return nil
}

// ------------------------------ payloads -----------------------------------

type snippetView struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type startRes struct {
	RoundID    string      `json:"roundId"`
	Snippet    snippetView `json:"snippet"`
	Points     int         `json:"points"`
	MaxPoints  int         `json:"maxPoints"`
	Label      string      `json:"label"`
	Vocabulary []string    `json:"vocabulary"`
}

type roundRes struct {
	round.Snapshot
	Result *round.Result `json:"result,omitempty"`
}

type tagReq struct {
	Tag string `json:"tag"`
}

type tagRes struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
	round.Snapshot
}

type routeReq struct {
	Choice string `json:"choice"`
}

// ------------------------------ handlers -----------------------------------

func (s *Server) handleRoundStart(w http.ResponseWriter, r *http.Request) {
	rd, err := s.Engine.Start(r.Context(), s.session(w, r))
	if err != nil {
		s.roundError(w, err)
		return
	}
	prev, err := s.Rounds.Put(r.Context(), rd)
	if err != nil {
		log.Error().Err(err).Str("round", rd.ID).Msg("register round")
		http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
		return
	}
	if prev != nil && !prev.State().Terminal() {
		if err := s.Journal.Abandon(r.Context(), prev.ID, s.Clock.Now()); err != nil {
			log.Warn().Err(err).Str("round", prev.ID).Msg("journal abandon")
		}
	}
	_ = json.NewEncoder(w).Encode(startRes{
		RoundID:    rd.ID,
		Snippet:    snippetView{ID: rd.Snippet.ID, Text: rd.Snippet.Text},
		Points:     rd.Remaining(),
		MaxPoints:  s.Engine.Config().MaxPoints,
		Label:      rd.Label(),
		Vocabulary: s.Corpus.Markers,
	})
}

func (s *Server) handleRoundGet(w http.ResponseWriter, r *http.Request) {
	rd, ok := s.current(w, r)
	if !ok {
		return
	}
	rd.Sync(s.Clock.Now())
	res := roundRes{Snapshot: rd.Snapshot()}
	if out, ok := rd.Result(); ok {
		res.Result = &out
	}
	_ = json.NewEncoder(w).Encode(res)
}

func (s *Server) handleTagAdd(w http.ResponseWriter, r *http.Request) {
	var req tagReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	if !s.Corpus.HasMarker(req.Tag) {
		http.Error(w, `{"error":"unknown_tag"}`, http.StatusBadRequest)
		return
	}
	rd, ok := s.current(w, r)
	if !ok {
		return
	}
	rd.Sync(s.Clock.Now())
	n, ok := rd.AddTag(req.Tag)
	if !ok {
		http.Error(w, `{"error":"round_not_live"}`, http.StatusConflict)
		return
	}
	_ = json.NewEncoder(w).Encode(tagRes{Tag: req.Tag, Count: n, Snapshot: rd.Snapshot()})
}

func (s *Server) handleTagRemove(w http.ResponseWriter, r *http.Request) {
	tag := chi.URLParam(r, "tag")
	rd, ok := s.current(w, r)
	if !ok {
		return
	}
	rd.Sync(s.Clock.Now())
	if rd.State() != round.StateLive {
		http.Error(w, `{"error":"round_not_live"}`, http.StatusConflict)
		return
	}
	// removing a tag that is not selected is a clamped no-op
	n, _ := rd.RemoveTag(tag)
	_ = json.NewEncoder(w).Encode(tagRes{Tag: tag, Count: n, Snapshot: rd.Snapshot()})
}

func (s *Server) handleRoundSubmit(w http.ResponseWriter, r *http.Request) {
	rd, ok := s.current(w, r)
	if !ok {
		return
	}
	res, err := s.Engine.Submit(r.Context(), rd, s.session(w, r))
	if err != nil {
		s.roundError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(res)
}

func (s *Server) handleRoundRoute(w http.ResponseWriter, r *http.Request) {
	var req routeReq
	_ = json.NewDecoder(r.Body).Decode(&req) // an empty body means dismiss
	if req.Choice == "" {
		req.Choice = round.ChoiceDismiss
	}
	rd, ok := s.current(w, r)
	if !ok {
		return
	}
	dest, err := s.Engine.Route(r.Context(), rd, req.Choice)
	if err != nil {
		s.roundError(w, err)
		return
	}
	if err := s.Rounds.Delete(r.Context(), rd.UserID, rd.ID); err != nil {
		log.Warn().Err(err).Str("round", rd.ID).Msg("forget round")
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"redirect": dest})
}

// current loads the caller's round from the registry or writes a 404.
func (s *Server) current(w http.ResponseWriter, r *http.Request) (*round.Round, bool) {
	rd, err := s.Rounds.Get(r.Context(), claimsFrom(r.Context()).UserID)
	if err != nil {
		if errors.Is(err, store.ErrNoRound) {
			fail(w, http.StatusNotFound, "no_round")
			return nil, false
		}
		http.Error(w, `{"error":"load_failed"}`, http.StatusInternalServerError)
		return nil, false
	}
	return rd, true
}

// roundError maps engine errors to responses.
func (s *Server) roundError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, round.ErrSessionMissing):
		fail(w, http.StatusUnauthorized, "session_missing")
	case errors.Is(err, round.ErrUserNotFound):
		fail(w, http.StatusNotFound, "user_not_found")
	case errors.Is(err, round.ErrSnippetExhausted):
		fail(w, http.StatusConflict, "snippets_exhausted")
	case errors.Is(err, round.ErrRoundNotLive):
		http.Error(w, `{"error":"round_not_live"}`, http.StatusConflict)
	case errors.Is(err, round.ErrRoundStillLive):
		http.Error(w, `{"error":"round_still_live"}`, http.StatusConflict)
	default:
		log.Error().Err(err).Msg("round operation")
		fail(w, http.StatusInternalServerError, "internal")
	}
}
