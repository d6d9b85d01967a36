// Package services implements the HTTP gateways to the songs backend.
//
// # Transport
//
// [APIService] owns the base URL and an [http.Client]. Protected clients are built with [NewHTTPClient], which wraps
// the transport in an [oauth2.Transport] fed by the session store, so the bearer token is read fresh for every
// request and a missing token fails before anything leaves the process. Every request carries an X-Request-ID.
//
// # Gateways
//
//   - [AuthService] : login, register and who-am-i against /auth
//   - [SongService] : CRUD against /api/songs
//
// Login responses only carry a token and register responses only a message. The auth gateway fills the user from
// the submitted username and follows a token-less register with a login.
//
// # Error Handling
//
// Failures are returned as [*APIError], which keeps the operation, status code and response body. The error
// unwraps to a sentinel from the shared package chosen by [Kind]:
//   - [shared.ErrUnauthorized] : 401 or 403
//   - [shared.ErrNotFound] : 404
//   - [shared.ErrValidation] : 400 or 422
//   - [shared.ErrConflict] : 409
//   - [shared.ErrServiceUnavailable] : 5xx
//   - [shared.ErrTimeout] : deadline exceeded
//   - [shared.ErrAPIRequest] : transport, decode and any other failure
//
// [ErrorMessage] renders the single human-readable line shown to users.
package services
