package oauth2x_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/vaulth-auth/vaulth/core/router"
	"github.com/vaulth-auth/vaulth/internal/claims"
	"github.com/vaulth-auth/vaulth/internal/jwtservice"
	"github.com/vaulth-auth/vaulth/internal/oauth2x"
	"github.com/vaulth-auth/vaulth/internal/provider"
	"github.com/vaulth-auth/vaulth/internal/store"
)

type fakeAdapter struct {
	name        provider.Name
	exchangeErr error
	extractErr  error
	providerID  string
}

func (f *fakeAdapter) Name() provider.Name      { return f.name }
func (f *fakeAdapter) AuthURL(state string) string {
	return "https://provider.example/authorize?state=" + url.QueryEscape(state)
}
func (f *fakeAdapter) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return &oauth2.Token{AccessToken: "tok-" + code}, nil
}
func (f *fakeAdapter) ExtractID(ctx context.Context, token *oauth2.Token) (string, error) {
	if f.extractErr != nil {
		return "", f.extractErr
	}
	return f.providerID, nil
}

type fakeLookup struct {
	user store.User
	err  error
}

func (f fakeLookup) SelectByProvider(ctx context.Context, p store.Provider, providerID string) (store.User, error) {
	if f.err != nil {
		return store.User{}, f.err
	}
	return f.user, nil
}

func newTestJWT(t *testing.T) *jwtservice.Service {
	t.Helper()
	priv, pub := generateTestKeyPair(t)
	svc, err := jwtservice.New(priv, pub, time.Hour)
	require.NoError(t, err)
	return svc
}

func TestFirstLegRejectsUnknownClient(t *testing.T) {
	t.Parallel()

	jwt := newTestJWT(t)
	o := oauth2x.New(jwt, provider.NewRegistry(&fakeAdapter{name: provider.Discord}), fakeLookup{}, map[string]oauth2x.Client{})

	r := router.New[*router.Context]()
	r.Get("/discord", o.FirstLeg(provider.Discord))

	req := httptest.NewRequest(http.MethodGet, "/discord?client_id=unknown&redirect_uri=https://client.example/cb&state=s1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusFound, w.Code)
	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "invalid client_id", loc.Query().Get("error"))
	require.Equal(t, "s1", loc.Query().Get("state"))
}

// TestFirstLegRejectsUnknownClientMatchesLiteralScenario is scenario S1:
// the redirect must encode the space in "invalid client_id" as %20, not
// url.Values.Encode's default "+".
func TestFirstLegRejectsUnknownClientMatchesLiteralScenario(t *testing.T) {
	t.Parallel()

	jwt := newTestJWT(t)
	o := oauth2x.New(jwt, provider.NewRegistry(&fakeAdapter{name: provider.Discord}), fakeLookup{}, map[string]oauth2x.Client{})

	r := router.New[*router.Context]()
	r.Get("/discord", o.FirstLeg(provider.Discord))

	req := httptest.NewRequest(http.MethodGet, "/discord?client_id=none&redirect_uri=https://app.test/cb&state=xyz", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "https://app.test/cb?error=invalid%20client_id&state=xyz", w.Header().Get("Location"))
}

func TestFirstLegRejectsDisallowedRedirect(t *testing.T) {
	t.Parallel()

	jwt := newTestJWT(t)
	clients := map[string]oauth2x.Client{
		"app1": {ClientSecret: "secret", RedirectURLs: []string{"https://app.example/cb"}},
	}
	o := oauth2x.New(jwt, provider.NewRegistry(&fakeAdapter{name: provider.Discord}), fakeLookup{}, clients)

	r := router.New[*router.Context]()
	r.Get("/discord", o.FirstLeg(provider.Discord))

	req := httptest.NewRequest(http.MethodGet, "/discord?client_id=app1&redirect_uri=https://evil.example/cb", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "invalid redirect_uri", loc.Query().Get("error"))
}

func TestFirstLegRedirectsToProviderWithSignedState(t *testing.T) {
	t.Parallel()

	jwt := newTestJWT(t)
	clients := map[string]oauth2x.Client{
		"app1": {ClientSecret: "secret", RedirectURLs: []string{"https://app.example/cb"}},
	}
	o := oauth2x.New(jwt, provider.NewRegistry(&fakeAdapter{name: provider.Discord}), fakeLookup{}, clients)

	r := router.New[*router.Context]()
	r.Get("/discord", o.FirstLeg(provider.Discord))

	req := httptest.NewRequest(http.MethodGet, "/discord?client_id=app1&redirect_uri=https://app.example/cb/x&state=xyz", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusFound, w.Code)
	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "provider.example", loc.Host)

	stateJWT := loc.Query().Get("state")
	decoded, err := jwtservice.Decode[claims.StateClaim](jwt, stateJWT)
	require.NoError(t, err)
	require.Equal(t, "app1", decoded.ClientID)
	require.Equal(t, "https://app.example/cb/x", decoded.RedirectURI)
	require.Equal(t, "xyz", decoded.State)
}

func TestSecondLegUndecodableStateIsOpaque500(t *testing.T) {
	t.Parallel()

	jwt := newTestJWT(t)
	o := oauth2x.New(jwt, provider.NewRegistry(&fakeAdapter{name: provider.Discord}), fakeLookup{}, nil)

	r := router.New[*router.Context]()
	r.Get("/discord-r", o.SecondLeg(provider.Discord))

	req := httptest.NewRequest(http.MethodGet, "/discord-r?state=garbage&code=abc", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestSecondLegForwardsProviderError(t *testing.T) {
	t.Parallel()

	jwt := newTestJWT(t)
	state, err := jwtservice.Encode(jwt, claims.StateClaim{
		ClientID:    "app1",
		RedirectURI: "https://app.example/cb",
		State:       "s1",
	})
	require.NoError(t, err)

	o := oauth2x.New(jwt, provider.NewRegistry(&fakeAdapter{name: provider.Discord}), fakeLookup{}, nil)

	r := router.New[*router.Context]()
	r.Get("/discord-r", o.SecondLeg(provider.Discord))

	req := httptest.NewRequest(http.MethodGet, "/discord-r?state="+url.QueryEscape(state)+"&error=access_denied", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusFound, w.Code)
	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "access_denied", loc.Query().Get("error"))
	require.Equal(t, "s1", loc.Query().Get("state"))
}

func TestSecondLegSuccessIncludesUserWhenLinked(t *testing.T) {
	t.Parallel()

	jwt := newTestJWT(t)
	state, err := jwtservice.Encode(jwt, claims.StateClaim{
		ClientID:    "app1",
		RedirectURI: "https://app.example/cb",
		State:       "s1",
	})
	require.NoError(t, err)

	lookup := fakeLookup{user: store.User{ID: "u1"}}
	o := oauth2x.New(jwt, provider.NewRegistry(&fakeAdapter{name: provider.Discord, providerID: "provider-id-1"}), lookup, nil)

	r := router.New[*router.Context]()
	r.Get("/discord-r", o.SecondLeg(provider.Discord))

	req := httptest.NewRequest(http.MethodGet, "/discord-r?state="+url.QueryEscape(state)+"&code=abc123", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusFound, w.Code)
	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "u1", loc.Query().Get("user"))
	require.NotEmpty(t, loc.Query().Get("code"))
}

// TestSecondLegSuccessMatchesLiteralScenario is scenario S3: the code
// exchange for an already-linked discord identity "12345" for local user
// "u1" redirects with code and user="u1", and the code decodes with the
// expected claim shape.
func TestSecondLegSuccessMatchesLiteralScenario(t *testing.T) {
	t.Parallel()

	jwt := newTestJWT(t)
	state, err := jwtservice.Encode(jwt, claims.StateClaim{
		ClientID:    "app1",
		RedirectURI: "https://app.test/cb",
	})
	require.NoError(t, err)

	lookup := fakeLookup{user: store.User{ID: "u1"}}
	o := oauth2x.New(jwt, provider.NewRegistry(&fakeAdapter{name: provider.Discord, providerID: "12345"}), lookup, nil)

	r := router.New[*router.Context]()
	r.Get("/discord-r", o.SecondLeg(provider.Discord))

	req := httptest.NewRequest(http.MethodGet, "/discord-r?code=abc&state="+url.QueryEscape(state), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusFound, w.Code)
	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "u1", loc.Query().Get("user"))

	codeClaim, err := jwtservice.Decode[claims.CodeClaim](jwt, loc.Query().Get("code"))
	require.NoError(t, err)
	require.Equal(t, claims.CodeClaim{ProviderName: "discord", ProviderID: "12345", ClientID: "app1"}, codeClaim)
}

func TestSecondLegSuccessOmitsUserWhenUnlinked(t *testing.T) {
	t.Parallel()

	jwt := newTestJWT(t)
	state, err := jwtservice.Encode(jwt, claims.StateClaim{
		ClientID:    "app1",
		RedirectURI: "https://app.example/cb",
		State:       "s1",
	})
	require.NoError(t, err)

	lookup := fakeLookup{err: store.ErrNoMatchingUser}
	o := oauth2x.New(jwt, provider.NewRegistry(&fakeAdapter{name: provider.Discord, providerID: "provider-id-1"}), lookup, nil)

	r := router.New[*router.Context]()
	r.Get("/discord-r", o.SecondLeg(provider.Discord))

	req := httptest.NewRequest(http.MethodGet, "/discord-r?state="+url.QueryEscape(state)+"&code=abc123", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusFound, w.Code)
	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	require.Empty(t, loc.Query().Get("user"))
	require.NotEmpty(t, loc.Query().Get("code"))
}
