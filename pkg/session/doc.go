// Package session pools database sessions per repository and binds them to
// the ambient transaction.
//
// A Session pins one physical connection. The Pool hands sessions out under a
// per-repository capacity with a bounded wait, keeps returned sessions for
// reuse and erodes idle ones in the background. The Binder gives each
// transaction at most one session per repository: the first AcquireSession
// borrows, begins and enlists; later calls in the same transaction return the
// same session. When the transaction completes the session goes back to the
// pool after a commit and is destroyed after anything else.
package session
