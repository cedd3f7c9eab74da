package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Provider is the remote identity provider variant. It speaks the
// self-service flow protocol (Ory Kratos compatible): a login or
// registration flow is initialized, then submitted, and the resulting
// opaque session token is validated per request via whoami.
type Provider struct {
	baseURL string
	client  *http.Client
}

// NewProvider creates a client for the identity provider at baseURL.
func NewProvider(baseURL string, client *http.Client) (*Provider, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("identity provider URL is required")
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Provider{baseURL: baseURL, client: client}, nil
}

type flowResponse struct {
	ID string `json:"id"`
}

type sessionResponse struct {
	SessionToken string `json:"session_token"`
	Error        struct {
		Message string `json:"message"`
	} `json:"error"`
}

type whoamiResponse struct {
	Identity struct {
		ID     string `json:"id"`
		Traits struct {
			Name  string `json:"name"`
			Email string `json:"email"`
		} `json:"traits"`
	} `json:"identity"`
}

// Login runs the password login flow and returns the session token.
func (p *Provider) Login(ctx context.Context, identifier, secret string) (string, error) {
	flow, err := p.initFlow(ctx, "login")
	if err != nil {
		return "", err
	}

	payload := map[string]string{
		"method":     "password",
		"identifier": identifier,
		"password":   secret,
	}
	var session sessionResponse
	status, err := p.postJSON(ctx, "/self-service/login?flow="+url.QueryEscape(flow), payload, &session)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK || session.SessionToken == "" {
		if session.Error.Message != "" {
			return "", fmt.Errorf("login failed: %s", session.Error.Message)
		}
		return "", fmt.Errorf("login failed: invalid credentials")
	}
	return session.SessionToken, nil
}

// Register runs the password registration flow.
func (p *Provider) Register(ctx context.Context, name, email, secret string) (Identity, error) {
	flow, err := p.initFlow(ctx, "registration")
	if err != nil {
		return Identity{}, err
	}

	payload := map[string]string{
		"method":       "password",
		"password":     secret,
		"traits.email": email,
		"traits.name":  name,
	}
	var resp struct {
		Identity struct {
			ID string `json:"id"`
		} `json:"identity"`
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	status, err := p.postJSON(ctx, "/self-service/registration?flow="+url.QueryEscape(flow), payload, &resp)
	if err != nil {
		return Identity{}, err
	}
	if status != http.StatusOK {
		if resp.Error.Message != "" {
			return Identity{}, fmt.Errorf("registration failed: %s", resp.Error.Message)
		}
		return Identity{}, fmt.Errorf("registration failed: status %d", status)
	}
	return Identity{ID: resp.Identity.ID, Name: name, Email: email}, nil
}

// Validate resolves a session token via whoami.
func (p *Provider) Validate(ctx context.Context, token string) (Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/sessions/whoami", nil)
	if err != nil {
		return Identity{}, fmt.Errorf("build whoami request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.client.Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("whoami: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Identity{}, ErrInvalidSession
	}

	var who whoamiResponse
	if err := json.NewDecoder(resp.Body).Decode(&who); err != nil {
		return Identity{}, fmt.Errorf("decode whoami response: %w", err)
	}
	if who.Identity.ID == "" {
		return Identity{}, ErrInvalidSession
	}
	return Identity{
		ID:    who.Identity.ID,
		Name:  who.Identity.Traits.Name,
		Email: who.Identity.Traits.Email,
	}, nil
}

// Logout invalidates the session token.
func (p *Provider) Logout(ctx context.Context, token string) error {
	payload := map[string]string{"session_token": token}
	status, err := p.postJSON(ctx, "/self-service/logout/api", payload, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusNoContent {
		return fmt.Errorf("logout failed: status %d", status)
	}
	return nil
}

func (p *Provider) initFlow(ctx context.Context, kind string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/self-service/"+kind+"/api", nil)
	if err != nil {
		return "", fmt.Errorf("build %s flow request: %w", kind, err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("init %s flow: %w", kind, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("init %s flow: status %d", kind, resp.StatusCode)
	}
	var flow flowResponse
	if err := json.NewDecoder(resp.Body).Decode(&flow); err != nil {
		return "", fmt.Errorf("decode %s flow: %w", kind, err)
	}
	if flow.ID == "" {
		return "", fmt.Errorf("init %s flow: missing flow id", kind)
	}
	return flow.ID, nil
}

func (p *Provider) postJSON(ctx context.Context, path string, payload any, out any) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	if out != nil {
		// Error payloads share the same shape, decode regardless of status.
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && resp.StatusCode == http.StatusOK {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}
