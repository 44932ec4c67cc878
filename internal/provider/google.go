package provider

import "golang.org/x/oauth2"

// NewGoogle builds the Google adapter, the worked example of the
// "standard provider" shape (spec §3): its userinfo endpoint returns a
// stable numeric-string "id" field once authenticated with the
// "openid email" scope.
func NewGoogle(cfg Config, redirectURI string) Adapter {
	return newStandardAdapter(
		Google,
		cfg,
		redirectURI,
		oauth2.Endpoint{
			AuthURL:  "https://accounts.google.com/o/oauth2/v2/auth",
			TokenURL: "https://oauth2.googleapis.com/token",
		},
		[]string{"openid", "email"},
		"https://www.googleapis.com/oauth2/v2/userinfo",
		"id",
	)
}
