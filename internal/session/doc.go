// Package session owns the process-wide authentication session: the durable bearer token and the in-memory user.
//
// # Durable Slot
//
// The token survives restarts in a single [Slot]. Absence means anonymous.
// Implementations:
//   - [FileSlot] : a 0600 file holding the raw token
//   - [BoltSlot] : one key in a bolt bucket
//   - [MemorySlot] : process memory, for tests
//   - repositories.SlotRepository : a row in the sqlite session_slots table
//
// # Store
//
// [Store] mediates every read and write of the slot. Readers call [Store.Token], which re-reads the slot rather than
// trusting a cached copy. Only the auth state machine writes, through [Store.Persist], [Store.SetUser] and [Store.Clear].
//
// [Store.TokenSource] adapts the store to [oauth2.TokenSource] so protected HTTP clients pick up the current token on
// every request via [oauth2.Transport].
package session
