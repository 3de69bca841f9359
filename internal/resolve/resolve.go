// Package resolve computes the concrete type instantiation of an opaque
// type's formal parameters at a single call site.
//
// The resolver unifies each observed parameter-typed position with the
// concrete type the static checker reports there. Parameters with no
// observed position are intentionally left unresolved: an unread projection
// must not be validated, since nothing has gone wrong if it is never read.
// Resolution is pure and deterministic for a given accessor and set of
// observed types, which makes the result reusable as a cache key.
package resolve

import (
	"errors"
	"fmt"

	"github.com/funvibe/boundary/internal/registry"
	"github.com/funvibe/boundary/internal/typesystem"
)

var (
	// ErrConflict is an instantiation conflict: two observed positions
	// reference the same formal parameter with different concrete types.
	// This is a type error at the call site, surfaced to the host checker.
	ErrConflict = errors.New("instantiation conflict")

	// ErrArity means the observed position types do not match the
	// accessor's declared argument count.
	ErrArity = errors.New("observed positions do not match accessor arity")
)

// ConflictError reports contradictory observations for one formal parameter.
type ConflictError struct {
	Accessor string
	Param    string
	First    typesystem.Type
	Second   typesystem.Type
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%v: %s resolves parameter %s to both %s and %s",
		ErrConflict, e.Accessor, e.Param, e.First, e.Second)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// Observed carries the statically known concrete types at a call site.
// Args is index-aligned with the accessor's argument positions; a nil
// entry means the position was not observed. Result is the concrete type
// demanded by the surrounding context, or nil when nothing is demanded.
type Observed struct {
	Args   []typesystem.Type
	Result typesystem.Type
}

// Resolve computes the partial instantiation for acc at a call site that
// observed the given position types.
func Resolve(acc *registry.AccessorDecl, obs Observed) (Instantiation, error) {
	if len(obs.Args) != len(acc.Args) {
		return Instantiation{}, fmt.Errorf("%w: %s declares %d arguments, observed %d",
			ErrArity, acc.Name, len(acc.Args), len(obs.Args))
	}

	inst := newInstantiation(acc.Owner.Params)

	for i, pos := range acc.Args {
		if pos.Kind != registry.PositionParam || obs.Args[i] == nil {
			continue
		}
		if err := bind(&inst, acc, pos.Param, obs.Args[i]); err != nil {
			return Instantiation{}, err
		}
	}

	if acc.Result.Kind == registry.PositionParam && obs.Result != nil {
		if err := bind(&inst, acc, acc.Result.Param, obs.Result); err != nil {
			return Instantiation{}, err
		}
	}

	return inst, nil
}

func bind(inst *Instantiation, acc *registry.AccessorDecl, param string, t typesystem.Type) error {
	if prev, ok := inst.bound[param]; ok {
		if !prev.Equal(t) {
			return &ConflictError{Accessor: acc.Name, Param: param, First: prev, Second: t}
		}
		return nil
	}
	inst.bound[param] = t
	return nil
}
