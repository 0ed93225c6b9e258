// Package gitops is the atomic operation layer: each git operation (push,
// pull, checkout, tag, merge) runs as validate, acquire the category lock,
// execute with bounded retries, release the lock. Results are typed outcomes
// with distinct exit codes rather than booleans, so CI callers can tell a
// lock timeout from exhausted retries from a merge conflict.
package gitops
