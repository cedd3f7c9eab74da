// Package server exposes the assistant over HTTP: auth endpoints, health,
// metrics, and a websocket chat surface. One inbound websocket message is
// one turn.
package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/visionnaire/assistant-go/auth"
	"github.com/visionnaire/assistant-go/engine"
	"github.com/visionnaire/assistant-go/memory"
	"github.com/visionnaire/assistant-go/observability"
	"github.com/visionnaire/assistant-go/session"
)

// Config configures the server.
type Config struct {
	Auth      auth.Authenticator
	Engine    *engine.Engine
	Sessions  *session.Manager
	Knowledge *memory.KnowledgeBase

	// AllowAnyOrigin disables the websocket origin check. Local use only.
	AllowAnyOrigin bool
}

// Server routes HTTP and websocket traffic to the turn pipeline.
type Server struct {
	auth      auth.Authenticator
	engine    *engine.Engine
	sessions  *session.Manager
	knowledge *memory.KnowledgeBase
	router    chi.Router
	upgrader  websocket.Upgrader
}

// New creates a Server.
func New(cfg Config) *Server {
	s := &Server{
		auth:      cfg.Auth,
		engine:    cfg.Engine,
		sessions:  cfg.Sessions,
		knowledge: cfg.Knowledge,
	}
	if cfg.AllowAnyOrigin {
		s.upgrader.CheckOrigin = func(*http.Request) bool { return true }
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/register", s.handleRegister)
	r.Post("/auth/logout", s.handleLogout)
	r.Post("/knowledge", s.handleAddKnowledge)
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", observability.Handler())
	r.Get("/ws", s.handleChat)
	s.router = r
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string        `json:"token"`
	User  auth.Identity `json:"user"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	identity, err := s.auth.Validate(r.Context(), token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, User: identity})
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	identity, err := s.auth.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"user": identity})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "missing session token")
		return
	}
	if identity, err := s.auth.Validate(r.Context(), token); err == nil {
		s.sessions.End(identity.ID)
	}
	if err := s.auth.Logout(r.Context(), token); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type knowledgeRequest struct {
	Text string `json:"text"`
}

// handleAddKnowledge ingests one passage into the caller's knowledge
// namespace.
func (s *Server) handleAddKnowledge(w http.ResponseWriter, r *http.Request) {
	identity, err := s.auth.Validate(r.Context(), bearerToken(r))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid session")
		return
	}

	var req knowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	if err := s.knowledge.Add(r.Context(), identity.ID, req.Text); err != nil {
		log.Printf("[SERVER] Knowledge ingest failed for user %s: %v", identity.ID, err)
		writeError(w, http.StatusInternalServerError, "ingest failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Answer   string `json:"answer,omitempty"`
	Degraded bool   `json:"degraded,omitempty"`
	Error    string `json:"error,omitempty"`
}

// handleChat runs the chat loop over a websocket. The session token is
// re-validated on every message so an expired session ends the chat rather
// than silently continuing under a stale identity.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if _, err := s.auth.Validate(r.Context(), token); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid session")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[SERVER] Websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	for {
		var req chatRequest
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[SERVER] Websocket read failed: %v", err)
			}
			return
		}

		identity, err := s.auth.Validate(r.Context(), token)
		if err != nil {
			msg := "your session has expired, please login again"
			if !errors.Is(err, auth.ErrInvalidSession) {
				msg = "session validation failed"
			}
			_ = conn.WriteJSON(chatResponse{Error: msg})
			return
		}

		result := s.engine.Turn(r.Context(), identity.ID, req.Message, s.sessions.History(identity.ID))
		s.sessions.SetHistory(identity.ID, result.History)

		if err := conn.WriteJSON(chatResponse{Answer: result.Answer, Degraded: result.Degraded}); err != nil {
			log.Printf("[SERVER] Websocket write failed: %v", err)
			return
		}
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
