// Package response provides HTTP response utilities for web applications.
// It offers a consistent API for generating plain text, HTML, raw byte and JSON
// responses, redirects (with HTMX-aware handling), response decorators, and
// structured HTTP errors with matching error handlers.
//
// # Basic Usage
//
// All functions return handler.Response which can be used in HTTP handlers:
//
//	import "github.com/vaulth-auth/vaulth/core/response"
//
//	func getUserHandler(ctx handler.Context) handler.Response {
//		user := User{ID: 1, Name: "John Doe"}
//		return response.JSON(user)
//	}
//
//	func homeHandler(ctx handler.Context) handler.Response {
//		return response.HTML("<h1>Welcome!</h1>")
//	}
//
// # JSON Responses
//
// Create JSON responses with automatic serialization:
//
//	// JSON with 200 OK status
//	response.JSON(map[string]string{
//		"message": "Success",
//		"status":  "ok",
//	})
//
//	// JSON with custom status code
//	response.JSONWithStatus(user, http.StatusCreated)
//
// # Basic Response Types
//
// Create simple text and HTML responses:
//
//	// Plain text response
//	response.String("Hello, World!")
//
//	// HTML content
//	response.HTML("<h1>Welcome</h1>")
//
//	// Raw bytes with content type
//	response.Bytes(imageData, "image/jpeg")
//
//	// Empty responses
//	response.NoContent()           // 204 No Content
//	response.Status(http.StatusOK) // Custom status with no body
//
// # Redirects
//
// Handle HTTP redirections (with automatic HTMX support):
//
//	// Temporary redirect (302)
//	response.Redirect("/dashboard")
//
//	// Permanent redirect (301)
//	response.RedirectPermanent("/new-location")
//
//	// See Other (303) - POST-redirect-GET pattern
//	response.RedirectSeeOther("/success")
//
//	// Temporary redirect preserving method (307)
//	response.RedirectTemporary("/retry")
//
//	// Custom redirect status
//	response.RedirectWithStatus("/custom", http.StatusFound)
//
// When a request carries the HX-Request: true header, every redirect helper
// instead sets the HX-Location header and replies 200 OK.
//
// # Response Decorators
//
// Enhance responses with headers, cookies, and caching:
//
//	// Add custom headers
//	response.WithHeaders(
//		response.JSON(data),
//		map[string]string{
//			"X-API-Version": "v1.0.0",
//			"X-Rate-Limit":  "100",
//		},
//	)
//
//	// Add cookies
//	response.WithCookie(
//		response.HTML("<h1>Welcome</h1>"),
//		&http.Cookie{
//			Name:  "session_id",
//			Value: sessionID,
//		},
//	)
//
//	// Cache control
//	response.WithCache(
//		response.JSON(publicData),
//		time.Hour, // Cache for 1 hour
//	)
//
//	// Disable caching
//	response.WithCache(response.HTML(dynamicContent), 0)
//
// # Error Handling
//
// The package provides structured error handling with HTTPError types:
//
//	// Return an error to be handled by error middleware
//	response.Error(errors.New("something went wrong"))
//
//	// Use predefined HTTP errors
//	response.Error(response.ErrNotFound)
//	response.Error(response.ErrUnauthorized.WithMessage("Invalid token"))
//
//	// Custom HTTP error
//	httpErr := response.HTTPError{
//		Status:  http.StatusBadRequest,
//		Code:    "validation_failed",
//		Message: "Invalid input data",
//		Details: map[string]any{
//			"field_errors": []string{"email is required"},
//		},
//	}
//	response.Error(httpErr)
//
//	// Use error handlers for consistent error processing
//	response.ErrorHandler(ctx, err)     // Plain text error response
//	response.JSONErrorHandler(ctx, err) // JSON error response
//
// # Rendering Responses
//
// Use the Render function to execute responses in handlers:
//
//	func handler(ctx handler.Context) {
//		resp := response.JSON(data)
//		response.Render(ctx, resp)
//	}
package response
