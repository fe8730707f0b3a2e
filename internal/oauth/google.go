// Package oauth implements social login via Google OAuth.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	googleOAuth "golang.org/x/oauth2/google"
)

var (
	ErrMissingClientID     = errors.New("oauth: missing client ID")
	ErrMissingClientSecret = errors.New("oauth: missing client secret")
	ErrEmailNotVerified    = errors.New("oauth: email not verified")
	ErrFetchFailed         = errors.New("oauth: failed to fetch from provider")
	ErrRequestFailed       = errors.New("oauth: request returned non-OK status")
	ErrDecodeFailed        = errors.New("oauth: failed to decode response")
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// GoogleConfig holds Google OAuth configuration.
type GoogleConfig struct {
	ClientID     string `env:"GOOGLE_OAUTH_CLIENT_ID"`
	ClientSecret string `env:"GOOGLE_OAUTH_CLIENT_SECRET"`
	RedirectURL  string `env:"GOOGLE_OAUTH_REDIRECT_URL"`
}

// Enabled reports whether Google login is configured.
func (c GoogleConfig) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// UserInfo is the provider-agnostic identity returned after the OAuth
// exchange. Email is guaranteed verified by the provider.
type UserInfo struct {
	ID      string
	Email   string
	Name    string
	Picture string
}

// GoogleProvider drives the Google authorization-code flow.
type GoogleProvider struct {
	config     *oauth2.Config
	httpClient *http.Client
}

// Option configures a GoogleProvider.
type Option func(*GoogleProvider)

// WithHTTPClient injects a custom HTTP client, mainly for httptest servers.
func WithHTTPClient(client *http.Client) Option {
	return func(p *GoogleProvider) {
		p.httpClient = client
	}
}

// NewGoogleProvider creates a Google OAuth provider.
func NewGoogleProvider(cfg GoogleConfig, opts ...Option) (*GoogleProvider, error) {
	if cfg.ClientID == "" {
		return nil, ErrMissingClientID
	}
	if cfg.ClientSecret == "" {
		return nil, ErrMissingClientSecret
	}

	p := &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: googleOAuth.Endpoint,
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// AuthCodeURL generates the authorization URL for the given CSRF state.
func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state)
}

// Exchange trades an authorization code for tokens.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return p.config.Exchange(p.contextWithHTTPClient(ctx), code)
}

// FetchUserInfo retrieves the user's identity from Google.
// Returns ErrEmailNotVerified if Google reports an unverified email.
func (p *GoogleProvider) FetchUserInfo(ctx context.Context, token *oauth2.Token) (*UserInfo, error) {
	client := p.config.Client(p.contextWithHTTPClient(ctx), token)

	resp, err := client.Get(googleUserInfoURL)
	if err != nil {
		return nil, errors.Join(ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, errors.Join(ErrRequestFailed, fmt.Errorf("userinfo request failed: status=%d body=%s", resp.StatusCode, body))
	}

	var googleUser googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&googleUser); err != nil {
		return nil, errors.Join(ErrDecodeFailed, err)
	}

	if !googleUser.VerifiedEmail {
		return nil, ErrEmailNotVerified
	}

	return &UserInfo{
		ID:      googleUser.ID,
		Email:   googleUser.Email,
		Name:    googleUser.Name,
		Picture: googleUser.Picture,
	}, nil
}

func (p *GoogleProvider) contextWithHTTPClient(ctx context.Context) context.Context {
	if p.httpClient != nil {
		return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	}
	return ctx
}

type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	VerifiedEmail bool   `json:"verified_email"`
}
