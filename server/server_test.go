package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/visionnaire/assistant-go/auth"
	"github.com/visionnaire/assistant-go/engine"
	"github.com/visionnaire/assistant-go/memory"
	"github.com/visionnaire/assistant-go/memory/embedder/mock"
	"github.com/visionnaire/assistant-go/session"
)

// stubAuth maps fixed tokens to identities.
type stubAuth struct {
	sessions map[string]auth.Identity
	loginErr error
}

func (a *stubAuth) Login(ctx context.Context, identifier, secret string) (string, error) {
	if a.loginErr != nil {
		return "", a.loginErr
	}
	return "tok-" + identifier, nil
}

func (a *stubAuth) Register(ctx context.Context, name, email, secret string) (auth.Identity, error) {
	return auth.Identity{ID: "U1", Name: name, Email: email}, nil
}

func (a *stubAuth) Validate(ctx context.Context, token string) (auth.Identity, error) {
	id, ok := a.sessions[token]
	if !ok {
		return auth.Identity{}, auth.ErrInvalidSession
	}
	return id, nil
}

func (a *stubAuth) Logout(ctx context.Context, token string) error {
	delete(a.sessions, token)
	return nil
}

// fakeStore and fakeGenerator back a real engine without external services.
type fakeStore struct {
	upserts int
}

func (s *fakeStore) Upsert(ctx context.Context, namespace string, rec memory.Record) error {
	s.upserts++
	return nil
}

func (s *fakeStore) Query(ctx context.Context, namespace string, probe []float32, filter map[string]string, topK int) ([]memory.Match, error) {
	return nil, nil
}

func (s *fakeStore) Close() error { return nil }

type fakeGenerator struct {
	answer string
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return g.answer, nil
}

func newTestServer(t *testing.T, a auth.Authenticator, answer string) (*httptest.Server, *fakeStore) {
	t.Helper()
	store := &fakeStore{}
	embedder := mock.New(16)
	knowledge := memory.NewKnowledgeBase(store, embedder, nil)
	e := engine.NewEngine(
		memory.NewReconciler(store, embedder.Dimensions(), nil),
		engine.NewResponder(knowledge, &fakeGenerator{answer: answer}, nil),
		memory.NewRecorder(store, embedder),
	)

	s := New(Config{
		Auth:           a,
		Engine:         e,
		Sessions:       session.NewManager(time.Minute),
		Knowledge:      knowledge,
		AllowAnyOrigin: true,
	})
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv, store
}

func postJSON(t *testing.T, url, token string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Failed to encode payload: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestLoginEndpoint(t *testing.T) {
	a := &stubAuth{sessions: map[string]auth.Identity{
		"tok-alice@example.com": {ID: "U1", Name: "Alice"},
	}}
	srv, _ := newTestServer(t, a, "unused")

	resp := postJSON(t, srv.URL+"/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "hunter2",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	var out struct {
		Token string        `json:"token"`
		User  auth.Identity `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if out.Token != "tok-alice@example.com" || out.User.ID != "U1" {
		t.Errorf("Unexpected response: %+v", out)
	}
}

func TestLoginEndpoint_BadCredentials(t *testing.T) {
	a := &stubAuth{sessions: map[string]auth.Identity{}, loginErr: errors.New("credentials are invalid")}
	srv, _ := newTestServer(t, a, "unused")

	resp := postJSON(t, srv.URL+"/auth/login", "", map[string]string{"email": "x", "password": "y"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", resp.StatusCode)
	}
}

func TestRegisterEndpoint(t *testing.T) {
	a := &stubAuth{sessions: map[string]auth.Identity{}}
	srv, _ := newTestServer(t, a, "unused")

	resp := postJSON(t, srv.URL+"/auth/register", "", map[string]string{
		"name":     "Alice",
		"email":    "alice@example.com",
		"password": "hunter2",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", resp.StatusCode)
	}

	var out struct {
		User auth.Identity `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if out.User.Name != "Alice" {
		t.Errorf("Unexpected user: %+v", out.User)
	}
}

func TestKnowledgeEndpoint(t *testing.T) {
	a := &stubAuth{sessions: map[string]auth.Identity{"tok-1": {ID: "U1"}}}
	srv, store := newTestServer(t, a, "unused")

	resp := postJSON(t, srv.URL+"/knowledge", "tok-1", map[string]string{
		"text": "refunds are processed within 14 days",
	})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", resp.StatusCode)
	}
	if store.upserts != 1 {
		t.Errorf("Expected 1 stored passage, got %d", store.upserts)
	}
}

func TestKnowledgeEndpoint_Unauthorized(t *testing.T) {
	a := &stubAuth{sessions: map[string]auth.Identity{}}
	srv, _ := newTestServer(t, a, "unused")

	resp := postJSON(t, srv.URL+"/knowledge", "stale", map[string]string{"text": "x"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", resp.StatusCode)
	}
}

func TestKnowledgeEndpoint_EmptyText(t *testing.T) {
	a := &stubAuth{sessions: map[string]auth.Identity{"tok-1": {ID: "U1"}}}
	srv, _ := newTestServer(t, a, "unused")

	resp := postJSON(t, srv.URL+"/knowledge", "tok-1", map[string]string{"text": ""})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", resp.StatusCode)
	}
}

func TestHealthEndpoint(t *testing.T) {
	a := &stubAuth{sessions: map[string]auth.Identity{}}
	srv, _ := newTestServer(t, a, "unused")

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
}

func wsURL(httpURL, token string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http") + "/ws?token=" + token
}

func TestChat_Websocket(t *testing.T) {
	a := &stubAuth{sessions: map[string]auth.Identity{"tok-1": {ID: "U1"}}}
	srv, store := newTestServer(t, a, "Hello there.")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv.URL, "tok-1"), nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]string{"message": "hi"}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	var resp struct {
		Answer   string `json:"answer"`
		Degraded bool   `json:"degraded"`
		Error    string `json:"error"`
	}
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if resp.Error != "" {
		t.Fatalf("Unexpected error: %q", resp.Error)
	}
	if resp.Answer != "Hello there." || resp.Degraded {
		t.Errorf("Unexpected response: %+v", resp)
	}
	if store.upserts != 1 {
		t.Errorf("Expected the turn to be recorded, got %d upserts", store.upserts)
	}
}

func TestChat_RejectsInvalidToken(t *testing.T) {
	a := &stubAuth{sessions: map[string]auth.Identity{}}
	srv, _ := newTestServer(t, a, "unused")

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv.URL, "stale"), nil)
	if err == nil {
		t.Fatal("Expected the upgrade to be rejected")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 on upgrade, got %+v", resp)
	}
}

func TestChat_SessionExpiryMidConversation(t *testing.T) {
	a := &stubAuth{sessions: map[string]auth.Identity{"tok-1": {ID: "U1"}}}
	srv, _ := newTestServer(t, a, "Hello there.")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv.URL, "tok-1"), nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	// The session is revoked after the connection is established; the next
	// message must be answered with the expiry notice.
	delete(a.sessions, "tok-1")

	if err := conn.WriteJSON(map[string]string{"message": "hi"}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	var resp struct {
		Error string `json:"error"`
	}
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !strings.Contains(resp.Error, "session has expired") {
		t.Errorf("Expected an expiry notice, got %q", resp.Error)
	}
}

func TestChat_SessionHistoryAccumulates(t *testing.T) {
	a := &stubAuth{sessions: map[string]auth.Identity{"tok-1": {ID: "U1"}}}
	srv, store := newTestServer(t, a, "answer")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv.URL, "tok-1"), nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	for _, msg := range []string{"first", "second"} {
		if err := conn.WriteJSON(map[string]string{"message": msg}); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		var resp struct {
			Answer string `json:"answer"`
		}
		if err := conn.ReadJSON(&resp); err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		if resp.Answer != "answer" {
			t.Errorf("Unexpected answer: %q", resp.Answer)
		}
	}
	if store.upserts != 2 {
		t.Errorf("Expected 2 recorded turns, got %d", store.upserts)
	}
}
