package provider

import (
	"context"
	"fmt"
	"net/url"

	"golang.org/x/oauth2"
)

// githubAdapter builds its own authorization URL rather than sharing
// standardAdapter's template: GitHub's authorize endpoint needs neither
// a scope (the identity call only needs GET /user, which the default
// token scope already covers) nor a prompt parameter, matching
// original_source/src/providers/github.rs.
type githubAdapter struct {
	clientID    string
	redirectURI string
	oauth2      oauth2.Config
}

// NewGitHub builds the GitHub adapter.
func NewGitHub(cfg Config, redirectURI string) Adapter {
	return &githubAdapter{
		clientID:    cfg.ClientID,
		redirectURI: redirectURI,
		oauth2: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://github.com/login/oauth/authorize",
				TokenURL: "https://github.com/login/oauth/access_token",
			},
			RedirectURL: redirectURI,
		},
	}
}

func (a *githubAdapter) Name() Name { return GitHub }

func (a *githubAdapter) AuthURL(state string) string {
	return fmt.Sprintf(
		"https://github.com/login/oauth/authorize?client_id=%s&redirect_uri=%s&state=%s",
		url.QueryEscape(a.clientID), url.QueryEscape(a.redirectURI), url.QueryEscape(state),
	)
}

func (a *githubAdapter) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return a.oauth2.Exchange(exchangeContext(ctx), code)
}

// ExtractID calls GET https://api.github.com/user with the
// Accept: application/vnd.github.v3+json header and returns the numeric
// "id" field, exactly as original_source/src/providers/github.rs does.
func (a *githubAdapter) ExtractID(ctx context.Context, token *oauth2.Token) (string, error) {
	return fetchIdentityField(ctx, token, "https://api.github.com/user", "id", map[string]string{
		"Accept": "application/vnd.github.v3+json",
	})
}
