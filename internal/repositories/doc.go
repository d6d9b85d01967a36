// Package repositories implements SQLite persistence for client-side state.
//
// The only durable client state is the session token, so the package holds a single repository:
//   - [SlotRepository] : one keyed row in session_slots, satisfying session.Slot
//
// Rows are upserted, so a key is created on first save and overwritten afterwards. Removal deletes the row;
// an absent row reads back as an empty token.
package repositories
