// Package server runs the short-lived HTTP listener that receives the SoundCloud authorization redirect.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
// [LoggingMiddleware] logs method, path, status and latency without the query string.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the authorization code callback with PKCE.
//
// The handler validates the state parameter (CSRF protection), exchanges the authorization code and the
// PKCE verifier for tokens through an [Exchanger], and sends the result through a channel.
//
// It only processes one callback to prevent replay attacks.
//
// # Usage
//
// scorg login serves the redirect path on the [server] host and port from config.toml through
// [WaitForCallback]. The listener lives only until the first callback arrives or the login timeout expires.
package server
