package profiles

import (
	"fmt"
	"strings"
)

// BuildProblem is a single issue found while building a profile from its
// document.
type BuildProblem struct {
	Path    string // requirement tree path, empty for manifest-level problems
	Message string
}

func (p BuildProblem) String() string {
	if p.Path != "" {
		return fmt.Sprintf("requirement %s: %s", p.Path, p.Message)
	}
	return p.Message
}

// BuildError aggregates every problem found while building a profile:
// manifest issues, empty requirements, and checks binding to shapes the
// store does not hold. A profile that builds without error has every check
// bound.
type BuildError struct {
	Token    string
	Problems []BuildProblem
}

func (e *BuildError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.String()
	}
	token := e.Token
	if token == "" {
		token = "(unnamed)"
	}
	return fmt.Sprintf("profile %s: build failed:\n  - %s", token, strings.Join(msgs, "\n  - "))
}

// DuplicateTokenError indicates a profile token is already registered.
type DuplicateTokenError struct {
	Token      string
	ExistingID string
}

func (e *DuplicateTokenError) Error() string {
	return fmt.Sprintf("profile token %q is already registered (id %s)", e.Token, e.ExistingID)
}

// DuplicateIDError indicates a profile identifier is already registered
// under another token.
type DuplicateIDError struct {
	ID            string
	ExistingToken string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("profile id %q is already registered (token %s)", e.ID, e.ExistingToken)
}

// NotFoundError indicates no profile is registered under a token.
type NotFoundError struct {
	Token string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no profile registered for token %q", e.Token)
}
