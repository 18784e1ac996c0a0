package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"golang.org/x/oauth2"
)

// fakeIdentityServer serves a token endpoint that accepts the code "good"
// and a userinfo endpoint returning info.
func fakeIdentityServer(t *testing.T, info map[string]string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if r.PostForm.Get("code") != "good" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "access-123",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-123" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(info)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestProvider(server *httptest.Server) *OAuthProvider {
	return NewOAuthProvider(OAuthConfig{
		BaseURL:      "http://localhost:8080",
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Endpoint: oauth2.Endpoint{
			AuthURL:   server.URL + "/auth",
			TokenURL:  server.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		UserInfoURL: server.URL + "/userinfo",
	})
}

func TestAuthCodeURL(t *testing.T) {
	provider := NewOAuthProvider(OAuthConfig{
		BaseURL:  "https://costs.example.edu/",
		ClientID: "client-id",
	})

	if got := provider.RedirectURL(); got != "https://costs.example.edu/" {
		t.Errorf("Expected redirect to base URL root, got %q", got)
	}

	raw := provider.AuthCodeURL("state-abc")
	parsed, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("Failed to parse URL: %v", err)
	}
	if parsed.Host != "accounts.google.com" {
		t.Errorf("Expected Google host, got %q", parsed.Host)
	}

	query := parsed.Query()
	expected := map[string]string{
		"client_id":              "client-id",
		"state":                  "state-abc",
		"access_type":            "offline",
		"include_granted_scopes": "true",
		"redirect_uri":           "https://costs.example.edu/",
		"response_type":          "code",
	}
	for key, want := range expected {
		if got := query.Get(key); got != want {
			t.Errorf("Expected %s=%q, got %q", key, want, got)
		}
	}
}

func TestExchange(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		server := fakeIdentityServer(t, map[string]string{"email": "alice@school.edu", "name": "Alice"})

		identity, err := newTestProvider(server).Exchange(ctx, "good")
		if err != nil {
			t.Fatalf("Exchange failed: %v", err)
		}
		if identity.Email != "alice@school.edu" || identity.Name != "Alice" {
			t.Errorf("Unexpected identity: %+v", identity)
		}
	})

	t.Run("bad code", func(t *testing.T) {
		server := fakeIdentityServer(t, map[string]string{"email": "alice@school.edu", "name": "Alice"})

		_, err := newTestProvider(server).Exchange(ctx, "bad")
		if !errors.Is(err, ErrOAuthCode) {
			t.Errorf("Expected ErrOAuthCode, got %v", err)
		}
	})

	t.Run("missing name", func(t *testing.T) {
		server := fakeIdentityServer(t, map[string]string{"email": "alice@school.edu"})

		_, err := newTestProvider(server).Exchange(ctx, "good")
		if !errors.Is(err, ErrOAuthVerification) {
			t.Errorf("Expected ErrOAuthVerification, got %v", err)
		}
	})
}

func TestNewState(t *testing.T) {
	a, b := NewState(), NewState()
	if a == "" || a == b {
		t.Errorf("Expected distinct non-empty states, got %q and %q", a, b)
	}
}
