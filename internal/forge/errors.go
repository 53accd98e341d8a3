package forge

import (
	"errors"

	fnderrors "git.home.luguber.info/inful/stagehand/internal/foundation/errors"
)

// Sentinel errors for forge lookups. They are classified so the CLI and HTTP
// adapters map them without inspection at call sites.
var (
	// ErrNotFound reports a missing resource (file, contributor, pull
	// request). Callers that treat absence as a normal outcome match it
	// with IsNotFound.
	ErrNotFound = fnderrors.NotFoundError("resource not found on forge").Build()

	// ErrRepositoryNotFound reports a repository lookup miss.
	ErrRepositoryNotFound = fnderrors.NotFoundError("repository not found").Build()

	// ErrReadOnly reports a mutation attempted against a forge that has no
	// write surface.
	ErrReadOnly = fnderrors.ValidationError("forge is read-only").Build()
)

// IsNotFound reports whether err is a forge lookup miss.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrRepositoryNotFound)
}
