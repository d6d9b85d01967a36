// Package auth implements the session state machine behind login, registration, revalidation and logout.
//
// # States
//
//   - anonymous : no validated session (a durable token may still be waiting for revalidation)
//   - pending : a login, register or revalidation request is in flight
//   - authenticated : token and user are both present
//   - error : the last action failed; token and user are unset
//
// # Sequencing
//
// Every dispatch takes the next sequence number and only the holder of the latest number may commit. [Machine.Logout]
// takes a number too and cancels every in-flight request, so a login that resolves after a logout is dropped with
// [shared.ErrStaleResult] and never reaches the durable slot.
//
// The machine is the only writer of the session store. Observers register with [Machine.Subscribe] and receive a
// copy of the state after each commit.
package auth
