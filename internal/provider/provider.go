// Package provider implements the Provider Adapter: one implementation
// per third-party identity provider, each able to build an
// authorization URL, exchange an authorization code for a provider
// access token, and resolve that token to a stable provider-side user
// id. Every adapter is grounded on the generic OAuth2 engine in
// original_source/src/providers/oauth2.rs, specialized per provider the
// way original_source/src/providers/{discord,github,google}.rs do.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// Name identifies one of the six allow-listed providers.
type Name string

const (
	Google    Name = "google"
	Microsoft Name = "microsoft"
	Facebook  Name = "facebook"
	Twitter   Name = "twitter"
	GitHub    Name = "github"
	Discord   Name = "discord"
)

// Config is the per-provider client credential pair read from the JSON
// configuration file.
type Config struct {
	ClientID     string `json:"clientId" validate:"required"`
	ClientSecret string `json:"clientSecret" validate:"required"`
}

// Adapter resolves an authorization code to a stable provider-side
// identity. AuthURL and Exchange are the two halves of the OAuth2
// authorization-code grant; ExtractID performs the identity-resolution
// call that follows a successful exchange.
type Adapter interface {
	Name() Name
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	ExtractID(ctx context.Context, token *oauth2.Token) (string, error)
}

// identityRequestTimeout bounds every outbound call this package makes to
// a provider, whether identity resolution or code exchange — providers are
// third parties and a hung connection must not hang the request that
// triggered it.
const identityRequestTimeout = 10 * time.Second

// userAgentTransport injects a fixed User-Agent into every request it
// round-trips, so the configured value reaches both the ExtractID calls
// below and the x/oauth2 Exchange calls, which never let callers set
// headers directly.
type userAgentTransport struct {
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.userAgent == "" {
		return http.DefaultTransport.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	return http.DefaultTransport.RoundTrip(req)
}

var transport = &userAgentTransport{}

// httpClient is shared by every adapter's ExtractID call and is also the
// client x/oauth2's Exchange uses, via exchangeContext below.
var httpClient = &http.Client{Timeout: identityRequestTimeout, Transport: transport}

// Configure sets the User-Agent applied to every outbound provider request.
// Must be called once at startup, before any adapter serves a request.
func Configure(userAgent string) {
	transport.userAgent = userAgent
}

// exchangeContext overrides the client x/oauth2's Exchange uses for the
// token-endpoint POST, so it picks up the same timeout and User-Agent as
// every other outbound provider call instead of oauth2's unbounded
// http.DefaultClient.
func exchangeContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, httpClient)
}

// fetchIdentityField performs an authenticated GET against url and
// extracts the field named by key from the top-level JSON object in the
// response body, as a string; a numeric field is formatted as a decimal
// integer.
func fetchIdentityField(ctx context.Context, token *oauth2.Token, url, key string, extraHeaders map[string]string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	for k, v := range extraHeaders {
		req.Header.Set(k, v)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("provider: identity request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("provider: identity request returned %d: %s", resp.StatusCode, body)
	}

	var fields map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&fields); err != nil {
		return "", fmt.Errorf("provider: decode identity response: %w", err)
	}

	raw, ok := fields[key]
	if !ok {
		return "", fmt.Errorf("provider: identity response missing %q", key)
	}

	switch v := raw.(type) {
	case string:
		return v, nil
	case float64:
		return fmt.Sprintf("%.0f", v), nil
	default:
		return "", fmt.Errorf("provider: identity field %q has unexpected type %T", key, raw)
	}
}

// fetchIdentityJSON performs an authenticated GET against url and
// decodes the response body into out, for providers whose identity
// field is nested rather than top-level.
func fetchIdentityJSON(ctx context.Context, token *oauth2.Token, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("provider: identity request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("provider: identity request returned %d: %s", resp.StatusCode, body)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
