// Package userapi is the User Endpoint: a public read of a user's
// profile by id, and a bearer-authenticated read of the caller's own
// profile. Both render the same JSON shape, omitting password and any
// unset optional fields.
package userapi

import (
	"context"
	"errors"
	"strings"

	"github.com/vaulth-auth/vaulth/core/handler"
	"github.com/vaulth-auth/vaulth/core/response"
	"github.com/vaulth-auth/vaulth/core/router"
	"github.com/vaulth-auth/vaulth/internal/apierr"
	"github.com/vaulth-auth/vaulth/internal/claims"
	"github.com/vaulth-auth/vaulth/internal/jwtservice"
	"github.com/vaulth-auth/vaulth/internal/store"
)

// userReader is the slice of *store.Store the user endpoint needs.
type userReader interface {
	Select(ctx context.Context, id string) (store.User, error)
}

// Endpoint serves GET /users/<id>, GET /me, and GET /key.
type Endpoint struct {
	jwt   *jwtservice.Service
	store userReader
}

// New builds an Endpoint.
func New(jwt *jwtservice.Service, st userReader) *Endpoint {
	return &Endpoint{jwt: jwt, store: st}
}

// profile is the public JSON shape of a user, omitting password and any
// unset optional fields.
type profile struct {
	ID    string  `json:"id"`
	Name  *string `json:"name,omitempty"`
	About *string `json:"about,omitempty"`
}

func toProfile(u store.User) profile {
	return profile{ID: u.ID, Name: u.Name, About: u.About}
}

// ByID handles GET /users/<id>.
func (e *Endpoint) ByID() handler.HandlerFunc[*router.Context] {
	return func(ctx *router.Context) handler.Response {
		id := ctx.Param("id")

		user, err := e.store.Select(ctx.Request().Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNoMatchingUser) {
				return apierr.NotFound()
			}
			return apierr.Internal()
		}

		return response.JSON(toProfile(user))
	}
}

// Me handles GET /me.
func (e *Endpoint) Me() handler.HandlerFunc[*router.Context] {
	return func(ctx *router.Context) handler.Response {
		header := ctx.Request().Header.Get("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			return apierr.BadRequest("invalid authorization header")
		}
		bearer := strings.TrimPrefix(header, prefix)

		accessClaim, err := jwtservice.Decode[claims.AccessClaim](e.jwt, bearer)
		if err != nil {
			return apierr.Unauthorized("invalid token")
		}

		user, err := e.store.Select(ctx.Request().Context(), accessClaim.Sub)
		if err != nil {
			if errors.Is(err, store.ErrNoMatchingUser) {
				return apierr.NotFound()
			}
			return apierr.Internal()
		}

		return response.JSON(toProfile(user))
	}
}

// Key handles GET /key: the PEM-encoded public verification key, served
// verbatim so clients can verify access tokens offline.
func (e *Endpoint) Key() handler.HandlerFunc[*router.Context] {
	return func(ctx *router.Context) handler.Response {
		pem, err := e.jwt.PublicKeyPEM()
		if err != nil {
			return apierr.Internal()
		}
		return response.Bytes(pem, "application/x-pem-file")
	}
}
