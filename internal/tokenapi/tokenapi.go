// Package tokenapi is the Token Endpoint: the server-to-server
// code-exchange that authenticates a first-party client, validates the
// authorization code minted by the Orchestrator, links or logs in the
// resolved user, and issues a bearer access token.
package tokenapi

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vaulth-auth/vaulth/core/handler"
	"github.com/vaulth-auth/vaulth/core/response"
	"github.com/vaulth-auth/vaulth/core/router"
	"github.com/vaulth-auth/vaulth/internal/apierr"
	"github.com/vaulth-auth/vaulth/internal/claims"
	"github.com/vaulth-auth/vaulth/internal/jwtservice"
	"github.com/vaulth-auth/vaulth/internal/oauth2x"
	"github.com/vaulth-auth/vaulth/internal/store"
)

// userStore is the slice of *store.Store the token endpoint needs.
type userStore interface {
	SelectByProvider(ctx context.Context, provider store.Provider, providerID string) (store.User, error)
	Login(ctx context.Context, id string) (store.User, error)
	RegisterByProvider(ctx context.Context, provider store.Provider, providerID string, givenID *string) (store.User, error)
}

// Endpoint serves POST /token and POST /token/<user>.
type Endpoint struct {
	jwt             *jwtservice.Service
	store           userStore
	clients         map[string]oauth2x.Client
	durationMinutes int64
}

// New builds an Endpoint. durationMinutes is echoed back verbatim as
// expires_in on every successful exchange.
func New(jwt *jwtservice.Service, st userStore, clients map[string]oauth2x.Client, durationMinutes int64) *Endpoint {
	return &Endpoint{jwt: jwt, store: st, clients: clients, durationMinutes: durationMinutes}
}

type exchangeRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Code         string `json:"code"`
}

type exchangeResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// verified is the outcome of the shared client/code verification
// prefix both routes run.
type verified struct {
	codeClaim claims.CodeClaim
}

// verify decodes the code, resolves its client, and checks the caller's
// secret. The three failure branches all return the deliberately
// indistinguishable "invalid code" body, except a secret mismatch which
// is "invalid client_secret" per spec.
func (e *Endpoint) verify(body exchangeRequest) (verified, handler.Response, bool) {
	codeClaim, err := jwtservice.Decode[claims.CodeClaim](e.jwt, body.Code)
	if err != nil {
		return verified{}, apierr.BadRequest("invalid code"), false
	}

	client, ok := e.clients[codeClaim.ClientID]
	if !ok {
		return verified{}, apierr.BadRequest("invalid code"), false
	}

	if subtle.ConstantTimeCompare([]byte(body.ClientSecret), []byte(client.ClientSecret)) != 1 {
		return verified{}, apierr.BadRequest("invalid client_secret"), false
	}

	return verified{codeClaim: codeClaim}, nil, true
}

func decodeBody(ctx *router.Context, out *exchangeRequest) bool {
	return json.NewDecoder(ctx.Request().Body).Decode(out) == nil
}

func (e *Endpoint) issueToken(userID string) (exchangeResponse, error) {
	token, err := jwtservice.Encode(e.jwt, claims.AccessClaim{Sub: userID})
	if err != nil {
		return exchangeResponse{}, err
	}
	return exchangeResponse{AccessToken: token, ExpiresIn: e.durationMinutes}, nil
}

// Login handles POST /token: the code must resolve to an already-linked
// user, which is then logged in.
func (e *Endpoint) Login() handler.HandlerFunc[*router.Context] {
	return func(ctx *router.Context) handler.Response {
		var body exchangeRequest
		if !decodeBody(ctx, &body) {
			return apierr.BadRequest("malformed body")
		}

		v, errResp, ok := e.verify(body)
		if !ok {
			return errResp
		}

		user, err := e.store.SelectByProvider(ctx.Request().Context(), store.Provider(v.codeClaim.ProviderName), v.codeClaim.ProviderID)
		if err != nil {
			if errors.Is(err, store.ErrNoMatchingUser) {
				return apierr.BadRequest("no matching user")
			}
			return apierr.Internal()
		}

		if _, err := e.store.Login(ctx.Request().Context(), user.ID); err != nil {
			return apierr.Internal()
		}

		resp, err := e.issueToken(user.ID)
		if err != nil {
			return apierr.Internal()
		}
		return response.JSON(resp)
	}
}

// Register handles POST /token/<user>: the code may resolve to the
// given user (login), a different user (rejected), or no user at all
// (registered under the given id).
func (e *Endpoint) Register() handler.HandlerFunc[*router.Context] {
	return func(ctx *router.Context) handler.Response {
		givenID := ctx.Param("user")

		var body exchangeRequest
		if !decodeBody(ctx, &body) {
			return apierr.BadRequest("malformed body")
		}

		v, errResp, ok := e.verify(body)
		if !ok {
			return errResp
		}

		reqCtx := ctx.Request().Context()
		existing, err := e.store.SelectByProvider(reqCtx, store.Provider(v.codeClaim.ProviderName), v.codeClaim.ProviderID)
		switch {
		case err == nil:
			if existing.ID != givenID {
				return apierr.BadRequest("mismatched users")
			}
			if _, err := e.store.Login(reqCtx, existing.ID); err != nil {
				return apierr.Internal()
			}
			resp, err := e.issueToken(existing.ID)
			if err != nil {
				return apierr.Internal()
			}
			return response.JSON(resp)

		case errors.Is(err, store.ErrNoMatchingUser):
			created, err := e.store.RegisterByProvider(reqCtx, store.Provider(v.codeClaim.ProviderName), v.codeClaim.ProviderID, &givenID)
			if err != nil {
				if errors.Is(err, store.ErrUserIDTaken) {
					return apierr.JSON("user id taken", http.StatusConflict)
				}
				return apierr.Internal()
			}
			resp, err := e.issueToken(created.ID)
			if err != nil {
				return apierr.Internal()
			}
			return response.JSONWithStatus(resp, http.StatusCreated)

		default:
			return apierr.Internal()
		}
	}
}
