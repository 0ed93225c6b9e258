package gitops

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

var (
	// ErrInvalidBranchName is returned when a branch name fails validation.
	ErrInvalidBranchName = errors.New("invalid branch name")
	// ErrInvalidTagName is returned when a tag name fails validation.
	ErrInvalidTagName = errors.New("invalid tag name")
)

// refNameCharset is the conservative charset accepted for branch and tag
// names. Everything a git ref technically allows but release automation
// never produces is rejected up front.
var refNameCharset = regexp.MustCompile(`^[A-Za-z0-9._/+-]+$`)

// versionLike matches names that begin like a version number. Such names
// must be full strict semver or they are rejected: a tag that merely starts
// like a version is almost always a typo in release tooling.
var versionLike = regexp.MustCompile(`^v?[0-9]`)

// forbiddenSequences are ref patterns git itself refuses or that smuggle
// path traversal and revision syntax into commands.
var forbiddenSequences = []string{"..", "@{", "//"}

// validateRefName applies the charset and structural rules shared by branch
// and tag names.
func validateRefName(name string) error {
	switch {
	case name == "":
		return errors.New("name is empty")
	case strings.HasPrefix(name, "-"):
		return errors.New("name must not start with a dash")
	case !refNameCharset.MatchString(name):
		return errors.New("name contains forbidden characters")
	case strings.HasPrefix(name, "/"), strings.HasSuffix(name, "/"):
		return errors.New("name must not start or end with a slash")
	case strings.HasSuffix(name, "."):
		return errors.New("name must not end with a dot")
	case strings.HasSuffix(name, ".lock"):
		return errors.New("name must not end with .lock")
	case strings.HasPrefix(name, "."):
		return errors.New("name must not start with a dot")
	}

	for _, sequence := range forbiddenSequences {
		if strings.Contains(name, sequence) {
			return fmt.Errorf("name must not contain %q", sequence)
		}
	}

	return nil
}

// ValidateBranchName rejects branch names outside the conservative charset
// and anything resembling path traversal or git revision syntax.
func ValidateBranchName(name string) error {
	if err := validateRefName(name); err != nil {
		return fmt.Errorf("%w %q: %w", ErrInvalidBranchName, name, err)
	}

	return nil
}

// ValidateTagName applies the branch rules plus the version grammar:
// a name that starts like a version must be full strict semver.
func ValidateTagName(name string) error {
	if err := validateRefName(name); err != nil {
		return fmt.Errorf("%w %q: %w", ErrInvalidTagName, name, err)
	}

	if !versionLike.MatchString(name) {
		return nil
	}

	if _, err := semver.StrictNewVersion(strings.TrimPrefix(name, "v")); err != nil {
		return fmt.Errorf("%w %q: not a valid semantic version: %w", ErrInvalidTagName, name, err)
	}

	return nil
}
