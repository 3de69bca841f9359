package registry

import "errors"

// Registration-time errors. All are fatal to the registration phase: the
// engine must not be sealed for serving while any declaration failed.
var (
	ErrDuplicateDeclaration = errors.New("duplicate declaration")
	ErrUnknownType          = errors.New("unknown opaque type")
	ErrUnknownAccessor      = errors.New("unknown accessor")
	ErrInvalidSignature     = errors.New("invalid accessor signature")

	// Lifecycle errors for the two-phase register/serve protocol.
	ErrSealed    = errors.New("registry is sealed")
	ErrNotSealed = errors.New("registry is not sealed")
)
