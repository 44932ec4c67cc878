package provider

import (
	"context"

	"golang.org/x/oauth2"
)

// twitterAdapter follows the standard OAuth2 shape but overrides
// ExtractID: the Twitter/X API v2 "users/me" endpoint wraps the id in a
// nested "data" object rather than returning it as a top-level field.
type twitterAdapter struct {
	*standardAdapter
}

// NewTwitter builds the Twitter/X adapter using the plain
// authorization-code shape (no PKCE), matching the rest of this
// broker's providers and its stateless state-JWT design, which has
// nowhere to stash a PKCE verifier between legs.
func NewTwitter(cfg Config, redirectURI string) Adapter {
	return &twitterAdapter{
		standardAdapter: newStandardAdapter(
			Twitter,
			cfg,
			redirectURI,
			oauth2.Endpoint{
				AuthURL:  "https://twitter.com/i/oauth2/authorize",
				TokenURL: "https://api.twitter.com/2/oauth2/token",
			},
			[]string{"tweet.read", "users.read"},
			"https://api.twitter.com/2/users/me",
			"id",
		),
	}
}

func (a *twitterAdapter) ExtractID(ctx context.Context, token *oauth2.Token) (string, error) {
	var body struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := fetchIdentityJSON(ctx, token, a.identityURL, &body); err != nil {
		return "", err
	}
	return body.Data.ID, nil
}
