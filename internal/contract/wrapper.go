// Package contract synthesizes validating wrappers around accessor
// implementations and shares them through a keyed cache.
//
// Wrappers decorate functions, never data: an opaque payload flowing
// through a wrapper is the very value the untyped layer produced, not a
// proxy or a tagged copy. Only the typed-visible positions of the accessor
// signature are checked, and only for parameters the call site actually
// resolved.
package contract

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/funvibe/boundary/internal/registry"
	"github.com/funvibe/boundary/internal/resolve"
	"github.com/funvibe/boundary/internal/typesystem"
)

// check is one pending validation against a resolved concrete type.
type check struct {
	argIndex int // -1 for the result position
	param    string
	typ      typesystem.Type
}

// Wrapper is a synthesized validating wrapper around one accessor for one
// instantiation. It owns its checks and holds a non-owning reference to the
// original untyped implementation.
type Wrapper struct {
	// ID identifies this wrapper across audit records. Call sites sharing
	// an (accessor, instantiation) key observe the same ID.
	ID uuid.UUID

	// Accessor is the declaration this wrapper validates.
	Accessor *registry.AccessorDecl

	// Inst is the instantiation the checks were specialized to.
	Inst resolve.Instantiation

	impl    registry.Impl
	conform typesystem.Conformance
	pre     []check
	post    *check
}

// Invoke runs the pre-call checks, delegates to the untyped implementation,
// then runs the post-call check. A bad argument is the caller's fault; a bad
// return value is the untyped producer's fault. The underlying call has
// already run when a post-condition fails; that ordering is intentional and
// matches the blame rule.
func (w *Wrapper) Invoke(ctx context.Context, args ...any) (any, error) {
	if len(args) != len(w.Accessor.Args) {
		return nil, fmt.Errorf("%w: %s called with %d arguments, declares %d",
			registry.ErrInvalidSignature, w.Accessor.Name, len(args), len(w.Accessor.Args))
	}

	for _, c := range w.pre {
		if !w.conform.Conforms(args[c.argIndex], c.typ) {
			return nil, &Violation{
				Accessor: w.Accessor.Name,
				Param:    c.param,
				Want:     c.typ,
				Got:      render(args[c.argIndex]),
				ArgIndex: c.argIndex,
				Blame:    BlameCaller,
			}
		}
	}

	out, err := w.impl(ctx, args...)
	if err != nil {
		return nil, err
	}

	if c := w.post; c != nil {
		if !w.conform.Conforms(out, c.typ) {
			return nil, &Violation{
				Accessor: w.Accessor.Name,
				Param:    c.param,
				Want:     c.typ,
				Got:      render(out),
				ArgIndex: -1,
				Blame:    BlameCallee,
			}
		}
	}

	return out, nil
}

// Checks reports how many positions this wrapper validates. Exposed for
// tests and audit records.
func (w *Wrapper) Checks() int {
	n := len(w.pre)
	if w.post != nil {
		n++
	}
	return n
}

func render(v any) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprintf("%v (%T)", v, v)
}
