// Package models defines the domain entities exchanged with the song catalog API.
//
// The package contains two categories of types:
//
// 1. Wire types: shapes sent to or received from the API
//   - [Song] : A catalog record, owned by the server
//   - [SongInput] : The create/update body
//   - [User], [Credentials], [AuthResponse] : Authentication payloads
//
// 2. Form types: raw user input before validation
//   - [SongForm] : String fields typed into a CLI flag or TUI input
//
// Validation happens client-side, field by field, and produces [ValidationErrors].
// Those never reach a store; a form that fails validation is never submitted.
package models
