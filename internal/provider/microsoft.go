package provider

import "golang.org/x/oauth2"

// NewMicrosoft builds the Microsoft (Azure AD v2 / consumer) adapter,
// following the same standard-provider shape as Google.
func NewMicrosoft(cfg Config, redirectURI string) Adapter {
	return newStandardAdapter(
		Microsoft,
		cfg,
		redirectURI,
		oauth2.Endpoint{
			AuthURL:  "https://login.microsoftonline.com/common/oauth2/v2.0/authorize",
			TokenURL: "https://login.microsoftonline.com/common/oauth2/v2.0/token",
		},
		[]string{"openid", "User.Read"},
		"https://graph.microsoft.com/v1.0/me",
		"id",
	)
}
