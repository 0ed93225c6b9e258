// Package lock implements cooperative cross-process advisory locking on a
// shared filesystem.
//
// A lock is a single file whose existence is the lock and whose content is
// the owner pid. FileStore provides the atomic exclusive-create primitive;
// Manager layers a polling acquire with timeout and stale-lock recovery on
// top of it. Locks only bind processes that check them — the filesystem does
// not enforce anything.
package lock
