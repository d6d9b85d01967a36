// Package catalog holds the client-side working copy of the song collection.
//
// [Store] mirrors server responses: every operation moves through pending to succeeded or failed, and the
// server stays authoritative. Successful updates and deletes patch the cached collection by id; deletes also clear
// the current song when it matches.
//
// Dispatches are fenced the same way as the auth machine: only the most recent one may touch the loading flag,
// the error or the data. Older resolutions return [shared.ErrStaleResult] and leave the state alone.
package catalog
