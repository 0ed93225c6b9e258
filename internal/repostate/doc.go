// Package repostate inspects a git working tree before lock-protected
// operations run: dirty-tree detection, unmerged-path discovery after a
// merge, and committer identity resolution. It reads repository state with
// go-git and never mutates anything.
package repostate
