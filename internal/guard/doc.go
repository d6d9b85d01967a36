// Package guard decides whether a route renders, redirects or waits for session revalidation.
//
// Routes come in two kinds. Anonymous routes (login, register) redirect to the song list as soon as a durable token
// exists; they never wait. Protected routes go through [AuthenticatedOnly], which moves from checking to valid or
// invalid and only re-evaluates when the token it last saw changes.
//
// [Router] maps paths such as /edit/42 onto the route table and follows redirects until something renders. The CLI
// and the TUI both navigate through it.
package guard
