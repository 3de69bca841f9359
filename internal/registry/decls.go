package registry

import (
	"context"

	"github.com/funvibe/boundary/internal/typesystem"
)

// Impl is the untyped implementation of an accessor. The engine calls it
// exactly as the untyped layer exposes it, passing opaque values through
// unmodified.
type Impl func(ctx context.Context, args ...any) (any, error)

// OpaqueDecl describes a declared opaque parametric type constructor.
// Immutable once registered.
type OpaqueDecl struct {
	// Name is the constructor name (e.g. "Pair").
	Name string

	// Params are the formal type parameters, in declaration order.
	// Purely static; erased at runtime.
	Params []string

	// Recognize is the untyped predicate used to recognize instances.
	Recognize typesystem.Recognizer
}

// HasParam reports whether name is one of the declared formal parameters.
func (d *OpaqueDecl) HasParam(name string) bool {
	for _, p := range d.Params {
		if p == name {
			return true
		}
	}
	return false
}

// PositionKind tags how a signature position relates to the owning opaque type.
type PositionKind int

const (
	// PositionOpaque marks an opaque-passthrough position: the value flows
	// through unchecked and untransformed, preserving identity.
	PositionOpaque PositionKind = iota

	// PositionParam marks a position typed by one of the owning type's
	// formal parameters.
	PositionParam

	// PositionConcrete marks a position with a fixed concrete type.
	PositionConcrete
)

func (k PositionKind) String() string {
	switch k {
	case PositionOpaque:
		return "opaque"
	case PositionParam:
		return "param"
	case PositionConcrete:
		return "concrete"
	default:
		return "unknown"
	}
}

// Position describes one argument or result slot in an accessor signature.
type Position struct {
	Kind  PositionKind
	Param string          // set when Kind == PositionParam
	Type  typesystem.Type // set when Kind == PositionConcrete
}

// OpaquePos builds an opaque-passthrough position.
func OpaquePos() Position {
	return Position{Kind: PositionOpaque}
}

// ParamPos builds a position typed by the formal parameter name.
func ParamPos(name string) Position {
	return Position{Kind: PositionParam, Param: name}
}

// ConcretePos builds a position with a fixed concrete type.
func ConcretePos(t typesystem.Type) Position {
	return Position{Kind: PositionConcrete, Type: t}
}

// AccessorDecl describes a declared polymorphic function associated with an
// opaque type: constructors, projections and the like. Immutable after
// registration.
type AccessorDecl struct {
	Name string

	// Owner is a back-reference to the opaque type this accessor belongs to.
	Owner *OpaqueDecl

	// Args describes the argument positions in order.
	Args []Position

	// Result describes the result position.
	Result Position

	// Impl is the untyped implementation the synthesized wrapper delegates to.
	Impl Impl
}
