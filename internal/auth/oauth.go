package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

var (
	ErrOAuthCode         = errors.New("invalid or expired authorization code")
	ErrOAuthVerification = errors.New("identity verification failed")
)

// Google endpoints used when OAuthConfig leaves them empty.
var (
	GoogleEndpoint = oauth2.Endpoint{
		AuthURL:   "https://accounts.google.com/o/oauth2/auth",
		TokenURL:  "https://oauth2.googleapis.com/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
	GoogleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
)

var defaultScopes = []string{
	"openid",
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
}

// Identity is what the provider vouches for after a successful login.
type Identity struct {
	Email string
	Name  string
}

// IdentityProvider runs the authorization code flow of an external login.
type IdentityProvider interface {
	// AuthCodeURL returns the URL the browser is sent to for consent.
	AuthCodeURL(state string) string
	// Exchange trades an authorization code for the user's identity.
	Exchange(ctx context.Context, code string) (*Identity, error)
}

// OAuthConfig configures an OAuthProvider.
type OAuthConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string

	// Endpoint and UserInfoURL default to Google's.
	Endpoint    oauth2.Endpoint
	UserInfoURL string
}

// OAuthProvider is an IdentityProvider backed by an OpenID Connect provider.
type OAuthProvider struct {
	config      *oauth2.Config
	userInfoURL string
}

var _ IdentityProvider = (*OAuthProvider)(nil)

// NewOAuthProvider creates a provider that redirects back to the root of BaseURL.
func NewOAuthProvider(cfg OAuthConfig) *OAuthProvider {
	endpoint := cfg.Endpoint
	if endpoint.AuthURL == "" {
		endpoint = GoogleEndpoint
	}
	userInfoURL := cfg.UserInfoURL
	if userInfoURL == "" {
		userInfoURL = GoogleUserInfoURL
	}

	return &OAuthProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     endpoint,
			RedirectURL:  strings.TrimSuffix(cfg.BaseURL, "/") + "/",
			Scopes:       defaultScopes,
		},
		userInfoURL: userInfoURL,
	}
}

// RedirectURL returns the callback URL registered with the provider.
func (p *OAuthProvider) RedirectURL() string {
	return p.config.RedirectURL
}

// AuthCodeURL returns the consent URL, requesting offline access.
func (p *OAuthProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	)
}

type userInfo struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Exchange trades code for a token and fetches the user's email and name.
func (p *OAuthProvider) Exchange(ctx context.Context, code string) (*Identity, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOAuthCode, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build userinfo request: %w", err)
	}
	resp, err := p.config.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOAuthVerification, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: userinfo returned %s", ErrOAuthVerification, resp.Status)
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOAuthVerification, err)
	}
	if info.Email == "" || info.Name == "" {
		return nil, fmt.Errorf("%w: missing required fields (email or name)", ErrOAuthVerification)
	}

	return &Identity{Email: info.Email, Name: info.Name}, nil
}

// NewState returns a random value for the OAuth state parameter.
func NewState() string {
	return uuid.NewString()
}
