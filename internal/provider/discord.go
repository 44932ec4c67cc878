package provider

import "golang.org/x/oauth2"

// NewDiscord builds the Discord adapter. Scope is exactly "identify" —
// the minimum needed for GET /api/v6/users/@me to resolve an id — per
// original_source/src/providers/discord.rs.
func NewDiscord(cfg Config, redirectURI string) Adapter {
	return newStandardAdapter(
		Discord,
		cfg,
		redirectURI,
		oauth2.Endpoint{
			AuthURL:  "https://discord.com/api/oauth2/authorize",
			TokenURL: "https://discord.com/api/oauth2/token",
		},
		[]string{"identify"},
		"https://discord.com/api/v6/users/@me",
		"id",
	)
}
