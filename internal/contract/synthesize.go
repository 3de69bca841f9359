package contract

import (
	"github.com/google/uuid"

	"github.com/funvibe/boundary/internal/registry"
	"github.com/funvibe/boundary/internal/resolve"
	"github.com/funvibe/boundary/internal/typesystem"
)

// Synthesize builds a validating wrapper for the accessor specialized to
// the given instantiation. Pure computation: no locks, no I/O.
//
// Check selection per position:
//   - opaque-passthrough: never checked, never transformed;
//   - parameter-typed: checked only when the call site resolved that
//     parameter (a constructor's inputs are checked, a projection whose
//     parameter was never observed is not);
//   - concrete-typed: always checked, on both sides. A concrete-typed
//     return from untyped code is exactly as untrusted as a parameter-typed
//     one.
func Synthesize(acc *registry.AccessorDecl, inst resolve.Instantiation, conform typesystem.Conformance) *Wrapper {
	w := &Wrapper{
		ID:       uuid.New(),
		Accessor: acc,
		Inst:     inst,
		impl:     acc.Impl,
		conform:  conform,
	}

	for i, pos := range acc.Args {
		if c, ok := checkFor(pos, inst, i); ok {
			w.pre = append(w.pre, c)
		}
	}
	if c, ok := checkFor(acc.Result, inst, -1); ok {
		w.post = &c
	}

	return w
}

func checkFor(pos registry.Position, inst resolve.Instantiation, argIndex int) (check, bool) {
	switch pos.Kind {
	case registry.PositionParam:
		t, ok := inst.Type(pos.Param)
		if !ok {
			return check{}, false
		}
		return check{argIndex: argIndex, param: pos.Param, typ: t}, true
	case registry.PositionConcrete:
		return check{argIndex: argIndex, typ: pos.Type}, true
	default:
		return check{}, false
	}
}
