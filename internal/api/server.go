// Package api serves the game manager over HTTP.
//
// Reads are answered from a live games.Index; edits go through games.Service
// so they are applied to the freshly stored record.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/dyluth/savestash/internal/games"
	"github.com/dyluth/savestash/internal/listing"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Pinger reports whether the store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the HTTP API.
type Server struct {
	server *http.Server
	index  *games.Index
	svc    *games.Service
	pinger Pinger
}

// GameResponse is a game record with the key it is stored under.
type GameResponse struct {
	Key string `json:"key"`
	games.GameSettings
}

// GamesResponse lists every game. Message is set when there are none.
type GamesResponse struct {
	Games   []GameResponse `json:"games"`
	Message string         `json:"message,omitempty"`
	Hint    string         `json:"hint,omitempty"`
}

// SavesResponse lists the saves of one game, newest first.
type SavesResponse struct {
	Key   string                `json:"key"`
	Saves []listing.IndexedSave `json:"saves"`
}

// GamePatch is the body of PATCH /api/game. Absent fields are left unchanged.
type GamePatch struct {
	Name        *string `json:"name,omitempty"`
	URL         *string `json:"url,omitempty"`
	Favicon     *string `json:"favicon,omitempty"`
	ShowFavicon *bool   `json:"showFavicon,omitempty"`
	Enabled     *bool   `json:"enabled,omitempty"`
	DataType    *string `json:"dataType,omitempty"`
}

// SavePatch is the body of PATCH /api/game/saves/{index}.
type SavePatch struct {
	Name *string `json:"name"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is returned by /healthz.
type HealthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// NewServer returns a Server for addr. pinger may be nil, in which case the
// health check always succeeds.
func NewServer(addr string, index *games.Index, svc *games.Service, pinger Pinger) *Server {
	s := &Server{index: index, svc: svc, pinger: pinger}
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Routes(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Routes returns the router. Exposed for tests.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)

	r.Route("/api", func(r chi.Router) {
		r.Get("/games", s.handleListGames)

		r.Route("/game", func(r chi.Router) {
			r.Use(requireURL)
			r.Get("/", s.handleGetGame)
			r.Patch("/", s.handlePatchGame)
			r.Delete("/", s.handleDeleteGame)
			r.Post("/toggle", s.handleToggleGame)

			r.Get("/saves", s.handleListSaves)
			r.Patch("/saves/{index}", s.handlePatchSave)
			r.Delete("/saves/{index}", s.handleDeleteSave)
		})
	})

	return r
}

// Start listens on the configured address and serves in the background.
// It returns once the listener is bound.
func (s *Server) Start() (net.Addr, error) {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}

	go func() {
		log.Printf("[INFO] API server listening on %s", ln.Addr())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[ERROR] API server error: %v", err)
		}
		log.Printf("[DEBUG] API server stopped")
	}()

	return ln.Addr(), nil
}

// Shutdown waits for in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Printf("[DEBUG] Shutting down API server...")
	return s.server.Shutdown(ctx)
}

type ctxKey struct{}

// requireURL rejects requests without a ?url= parameter and stores it in the context.
func requireURL(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		url := r.URL.Query().Get("url")
		if url == "" {
			writeError(w, http.StatusBadRequest, "missing url query parameter")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, url)))
	})
}

func gameURL(r *http.Request) string {
	url, _ := r.Context().Value(ctxKey{}).(string)
	return url
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := s.pinger.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unhealthy", Error: err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy"})
}

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	entries := s.index.Entries()
	resp := GamesResponse{Games: make([]GameResponse, 0, len(entries))}
	for _, e := range entries {
		resp.Games = append(resp.Games, GameResponse{Key: e.Key, GameSettings: e.Settings})
	}
	if len(entries) == 0 {
		resp.Message = listing.EmptyGamesMessage
		resp.Hint = listing.EmptyGamesHint
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	key := games.KeyFor(gameURL(r))
	gs, ok := s.index.Get(key)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("game not found: %s", key))
		return
	}
	writeJSON(w, http.StatusOK, GameResponse{Key: key, GameSettings: gs})
}

func (s *Server) handlePatchGame(w http.ResponseWriter, r *http.Request) {
	var patch GamePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var updates []games.Update
	if patch.Name != nil {
		updates = append(updates, games.Rename(*patch.Name))
	}
	if patch.URL != nil {
		updates = append(updates, games.SetPageURL(*patch.URL))
	}
	if patch.Favicon != nil {
		updates = append(updates, games.SetFavicon(*patch.Favicon))
	}
	if patch.ShowFavicon != nil {
		updates = append(updates, games.SetShowFavicon(*patch.ShowFavicon))
	}
	if patch.Enabled != nil {
		updates = append(updates, games.SetEnabled(*patch.Enabled, games.PageMeta{}))
	}
	if patch.DataType != nil {
		dt, err := games.ParseDataType(*patch.DataType)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		updates = append(updates, games.SetDataType(dt))
	}

	url := gameURL(r)
	gs, err := s.svc.Edit(r.Context(), url, updates...)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, GameResponse{Key: games.KeyFor(url), GameSettings: gs})
}

func (s *Server) handleToggleGame(w http.ResponseWriter, r *http.Request) {
	url := gameURL(r)
	gs, err := s.svc.Toggle(r.Context(), url, games.PageMeta{URL: url})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, GameResponse{Key: games.KeyFor(url), GameSettings: gs})
}

func (s *Server) handleDeleteGame(w http.ResponseWriter, r *http.Request) {
	key := games.KeyFor(gameURL(r))
	if _, ok := s.index.Get(key); !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("game not found: %s", key))
		return
	}
	if err := s.index.DeleteGame(r.Context(), key); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListSaves(w http.ResponseWriter, r *http.Request) {
	key := games.KeyFor(gameURL(r))
	gs, ok := s.index.Get(key)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("game not found: %s", key))
		return
	}
	writeJSON(w, http.StatusOK, SavesResponse{Key: key, Saves: listing.FilterSaves(gs.Saves, nil)})
}

func (s *Server) handlePatchSave(w http.ResponseWriter, r *http.Request) {
	index, ok := saveIndex(w, r)
	if !ok {
		return
	}

	var patch SavePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil || patch.Name == nil {
		writeError(w, http.StatusBadRequest, "request body must be {\"name\": \"...\"}")
		return
	}

	url := gameURL(r)
	gs, err := s.svc.RenameSave(r.Context(), url, index, *patch.Name)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SavesResponse{Key: games.KeyFor(url), Saves: listing.FilterSaves(gs.Saves, nil)})
}

func (s *Server) handleDeleteSave(w http.ResponseWriter, r *http.Request) {
	index, ok := saveIndex(w, r)
	if !ok {
		return
	}

	url := gameURL(r)
	gs, err := s.svc.DeleteSave(r.Context(), url, index)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SavesResponse{Key: games.KeyFor(url), Saves: listing.FilterSaves(gs.Saves, nil)})
}

// saveIndex parses the 0-based {index} path parameter.
func saveIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		writeError(w, http.StatusBadRequest, "save index must be a non-negative integer")
		return 0, false
	}
	return index, true
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, games.ErrGameNotFound), errors.Is(err, games.ErrSaveNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, games.ErrInvalidDataType), errors.Is(err, games.ErrEmptyURL):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("[ERROR] API request failed: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[WARN] Failed to encode response: %v", err)
	}
}
