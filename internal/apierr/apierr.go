// Package apierr renders the broker's client-contract error shape:
// a flat {"error": "<kind>"} JSON body, exactly as spec'd, rather than
// the richer {code, message, details} shape core/response's generic
// HTTPError produces.
package apierr

import (
	"net/http"

	"github.com/vaulth-auth/vaulth/core/handler"
	"github.com/vaulth-auth/vaulth/core/response"
)

// JSON renders {"error": kind} with the given status code.
func JSON(kind string, status int) handler.Response {
	return response.JSONWithStatus(map[string]string{"error": kind}, status)
}

// BadRequest renders a 400 client-contract error.
func BadRequest(kind string) handler.Response {
	return JSON(kind, http.StatusBadRequest)
}

// Unauthorized renders a 401 auth error.
func Unauthorized(kind string) handler.Response {
	return JSON(kind, http.StatusUnauthorized)
}

// NotFound renders a bare 404 with no body, matching "or 404" in the
// spec's user-lookup endpoints.
func NotFound() handler.Response {
	return response.Status(http.StatusNotFound)
}

// Internal renders an opaque 500 with no body — the message is never
// echoed to the caller, only logged server-side.
func Internal() handler.Response {
	return response.Status(http.StatusInternalServerError)
}
