// Package config defines settings shared by git-atomic subcommands and
// provides helpers to load, validate and save them in YAML format.
//
// The Config type holds the lock directory, timeouts and the retry budget
// applied to every lock-protected git operation.
package config
