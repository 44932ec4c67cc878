package provider

import "golang.org/x/oauth2"

// NewFacebook builds the Facebook Login adapter, again the standard
// provider shape: the Graph API "me" endpoint returns the caller's id
// once authenticated with the bearer token.
func NewFacebook(cfg Config, redirectURI string) Adapter {
	return newStandardAdapter(
		Facebook,
		cfg,
		redirectURI,
		oauth2.Endpoint{
			AuthURL:  "https://www.facebook.com/v19.0/dialog/oauth",
			TokenURL: "https://graph.facebook.com/v19.0/oauth/access_token",
		},
		[]string{"public_profile"},
		"https://graph.facebook.com/v19.0/me",
		"id",
	)
}
