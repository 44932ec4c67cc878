// Package oauth2x is the OAuth2 Orchestrator: the generic, provider-
// agnostic engine driving the two redirect legs of the delegated-auth
// flow. It owns state encoding/decoding, error forwarding to the
// client, and the handoff to a provider.Adapter, but knows nothing about
// any specific provider's wire format — that lives in internal/provider.
package oauth2x

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/vaulth-auth/vaulth/core/handler"
	"github.com/vaulth-auth/vaulth/core/response"
	"github.com/vaulth-auth/vaulth/core/router"
	"github.com/vaulth-auth/vaulth/internal/async"
	"github.com/vaulth-auth/vaulth/internal/claims"
	"github.com/vaulth-auth/vaulth/internal/jwtservice"
	"github.com/vaulth-auth/vaulth/internal/provider"
	"github.com/vaulth-auth/vaulth/internal/store"
)

// Client is a first-party application registered with the broker.
type Client struct {
	ClientSecret string
	RedirectURLs []string
}

// identityLookup is the slice of *store.Store the second leg needs —
// narrowed so the orchestrator can be exercised against a fake in tests
// without a Postgres instance.
type identityLookup interface {
	SelectByProvider(ctx context.Context, provider store.Provider, providerID string) (store.User, error)
}

// Orchestrator wires the JWT Service, the provider registry, and the
// User Store together to serve the first- and second-leg redirects.
type Orchestrator struct {
	jwt      *jwtservice.Service
	registry *provider.Registry
	store    identityLookup
	clients  map[string]Client
}

// New builds an Orchestrator. clients is the first-party client
// registry keyed by client_id, loaded once from configuration.
func New(jwt *jwtservice.Service, registry *provider.Registry, st identityLookup, clients map[string]Client) *Orchestrator {
	return &Orchestrator{jwt: jwt, registry: registry, store: st, clients: clients}
}

func allowedRedirect(client Client, redirectURI string) bool {
	for _, prefix := range client.RedirectURLs {
		if strings.HasPrefix(redirectURI, prefix) {
			return true
		}
	}
	return false
}

// encodeQuery renders q with %20 for spaces rather than url.Values.Encode's
// "+", matching the literal redirects the spec's scenarios assert (e.g.
// "error=invalid%20client_id").
func encodeQuery(q url.Values) string {
	return strings.ReplaceAll(q.Encode(), "+", "%20")
}

func errorRedirect(redirectURI, errMsg, state string) handler.Response {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return response.Status(http.StatusInternalServerError)
	}
	q := u.Query()
	q.Set("error", errMsg)
	if state != "" {
		q.Set("state", state)
	}
	u.RawQuery = encodeQuery(q)
	return response.Redirect(u.String())
}

// FirstLeg handles GET /<provider>: validates the client and redirect
// URI, packs the request into a signed StateClaim, and redirects the
// user-agent to the provider's authorization endpoint.
func (o *Orchestrator) FirstLeg(name provider.Name) handler.HandlerFunc[*router.Context] {
	return func(ctx *router.Context) handler.Response {
		q := ctx.Request().URL.Query()
		clientID := q.Get("client_id")
		redirectURI := q.Get("redirect_uri")
		state := q.Get("state")

		client, ok := o.clients[clientID]
		if !ok {
			return errorRedirect(redirectURI, "invalid client_id", state)
		}
		if !allowedRedirect(client, redirectURI) {
			return errorRedirect(redirectURI, "invalid redirect_uri", state)
		}

		adapter, err := o.registry.Get(name)
		if err != nil {
			return response.Status(http.StatusInternalServerError)
		}

		stateJWT, err := jwtservice.Encode(o.jwt, claims.StateClaim{
			ClientID:    clientID,
			RedirectURI: redirectURI,
			State:       state,
		})
		if err != nil {
			return response.Status(http.StatusInternalServerError)
		}

		return response.Redirect(adapter.AuthURL(stateJWT))
	}
}

// SecondLeg handles GET /<provider>-r: decodes the state, forwards any
// provider-reported error, exchanges the code, resolves the provider
// identity against the User Store, and redirects the user-agent back to
// the client with a minted authorization code.
func (o *Orchestrator) SecondLeg(name provider.Name) handler.HandlerFunc[*router.Context] {
	return func(ctx *router.Context) handler.Response {
		q := ctx.Request().URL.Query()

		stateClaim, err := jwtservice.Decode[claims.StateClaim](o.jwt, q.Get("state"))
		if err != nil {
			// The redirect_uri itself came from this now-untrusted state,
			// so there is nowhere safe to send the user-agent.
			return response.Status(http.StatusInternalServerError)
		}

		// The success shape (code) is tried first, then the error shape;
		// a query matching neither is a 400.
		code := q.Get("code")
		if code == "" {
			providerErr := q.Get("error")
			if providerErr == "" {
				return response.Status(http.StatusBadRequest)
			}
			return errorRedirect(stateClaim.RedirectURI, providerErr, stateClaim.State)
		}

		adapter, err := o.registry.Get(name)
		if err != nil {
			return errorRedirect(stateClaim.RedirectURI, "internal server error", stateClaim.State)
		}

		reqCtx := ctx.Request().Context()

		exchangeFuture := async.Exec(reqCtx, code, adapter.Exchange)
		token, err := exchangeFuture.Await()
		if err != nil {
			return errorRedirect(stateClaim.RedirectURI, "internal server error", stateClaim.State)
		}

		idFuture := async.Exec(reqCtx, token, adapter.ExtractID)
		providerID, err := idFuture.Await()
		if err != nil {
			return errorRedirect(stateClaim.RedirectURI, "internal server error", stateClaim.State)
		}

		var localUser string
		existing, err := o.store.SelectByProvider(reqCtx, store.Provider(name), providerID)
		switch {
		case err == nil:
			localUser = existing.ID
		case errors.Is(err, store.ErrNoMatchingUser):
			// no linked user yet; the client resolves this via /token/<user>
		default:
			return errorRedirect(stateClaim.RedirectURI, "internal server error", stateClaim.State)
		}

		codeJWT, err := jwtservice.Encode(o.jwt, claims.CodeClaim{
			ProviderName: string(name),
			ProviderID:   providerID,
			ClientID:     stateClaim.ClientID,
		})
		if err != nil {
			return errorRedirect(stateClaim.RedirectURI, "internal server error", stateClaim.State)
		}

		u, err := url.Parse(stateClaim.RedirectURI)
		if err != nil {
			return response.Status(http.StatusInternalServerError)
		}
		rq := u.Query()
		rq.Set("code", codeJWT)
		if stateClaim.State != "" {
			rq.Set("state", stateClaim.State)
		}
		if localUser != "" {
			rq.Set("user", localUser)
		}
		u.RawQuery = encodeQuery(rq)

		return response.Redirect(u.String())
	}
}
