package provider

import (
	"context"

	"golang.org/x/oauth2"
)

// standardAdapter implements Adapter for providers whose auth/token
// endpoints and identity call follow the plain OAuth2 authorization-code
// shape, with no provider-specific quirks in URL construction — the
// "standard provider" shape generalized from
// original_source/src/providers/oauth2.rs's generic engine.
type standardAdapter struct {
	name         Name
	oauth2Config oauth2.Config
	identityURL  string
	idField      string
}

func newStandardAdapter(name Name, cfg Config, redirectURI string, endpoint oauth2.Endpoint, scopes []string, identityURL, idField string) *standardAdapter {
	return &standardAdapter{
		name: name,
		oauth2Config: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     endpoint,
			RedirectURL:  redirectURI,
			Scopes:       scopes,
		},
		identityURL: identityURL,
		idField:     idField,
	}
}

func (a *standardAdapter) Name() Name { return a.name }

func (a *standardAdapter) AuthURL(state string) string {
	return a.oauth2Config.AuthCodeURL(state)
}

func (a *standardAdapter) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return a.oauth2Config.Exchange(exchangeContext(ctx), code)
}

func (a *standardAdapter) ExtractID(ctx context.Context, token *oauth2.Token) (string, error) {
	return fetchIdentityField(ctx, token, a.identityURL, a.idField, nil)
}
