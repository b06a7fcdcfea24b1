package auth

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/SargeyWargey/govee-status-light/internal/fault"
)

// Exchanger performs the wire exchanges of the authorization-code and
// refresh-token grants. The manager owns when they happen.
type Exchanger interface {
	// AuthCodeURL returns the user-facing authorization URL for the
	// interactive browser flow.
	AuthCodeURL(state string) string

	// ExchangeCode trades an authorization code for a token set.
	ExchangeCode(ctx context.Context, code string) (TokenSet, error)

	// Refresh trades a refresh token for a fresh token set.
	Refresh(ctx context.Context, refreshToken string) (TokenSet, error)
}

// OAuth2Exchanger implements Exchanger on top of golang.org/x/oauth2
// against the Microsoft identity platform v2 endpoints.
type OAuth2Exchanger struct {
	cfg oauth2.Config
}

// NewOAuth2Exchanger builds the exchanger for a tenant and client.
// Scopes must include offline_access for refresh tokens to be issued.
func NewOAuth2Exchanger(clientID, tenant, redirectURL string, scopes []string) (*OAuth2Exchanger, error) {
	if clientID == "" {
		return nil, fmt.Errorf("%w: oauth client id is required", fault.ErrConfiguration)
	}
	if tenant == "" {
		tenant = "common"
	}
	base := "https://login.microsoftonline.com/" + tenant + "/oauth2/v2.0"
	return &OAuth2Exchanger{
		cfg: oauth2.Config{
			ClientID:    clientID,
			RedirectURL: redirectURL,
			Scopes:      scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  base + "/authorize",
				TokenURL: base + "/token",
			},
		},
	}, nil
}

// AuthCodeURL returns the interactive authorization URL.
func (e *OAuth2Exchanger) AuthCodeURL(state string) string {
	return e.cfg.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// ExchangeCode trades an authorization code for a token set.
func (e *OAuth2Exchanger) ExchangeCode(ctx context.Context, code string) (TokenSet, error) {
	tok, err := e.cfg.Exchange(ctx, code)
	if err != nil {
		return TokenSet{}, fmt.Errorf("%w: code exchange failed: %v", fault.ErrNetwork, err)
	}
	return fromOAuth2(tok), nil
}

// Refresh trades a refresh token for a fresh token set.
func (e *OAuth2Exchanger) Refresh(ctx context.Context, refreshToken string) (TokenSet, error) {
	src := e.cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return TokenSet{}, fmt.Errorf("refresh exchange failed: %w", err)
	}
	return fromOAuth2(tok), nil
}

func fromOAuth2(tok *oauth2.Token) TokenSet {
	return TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}
}
