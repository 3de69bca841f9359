package contract

import (
	"errors"
	"fmt"

	"github.com/funvibe/boundary/internal/typesystem"
)

// ErrViolation is the sentinel all contract violations wrap.
var ErrViolation = errors.New("contract violation")

// Blame assigns fault for a violation: the caller supplied a bad input, or
// the untyped implementation returned a bad output.
type Blame int

const (
	BlameCaller Blame = iota
	BlameCallee
)

func (b Blame) String() string {
	switch b {
	case BlameCaller:
		return "caller"
	case BlameCallee:
		return "callee"
	default:
		return "unknown"
	}
}

// Violation is a failed runtime check at the boundary. It is propagated to
// the caller of Invoke unchanged and never swallowed.
type Violation struct {
	// Accessor is the name of the accessor whose contract failed.
	Accessor string

	// Param is the formal parameter whose resolved type was violated, or
	// empty when a concrete-typed position failed.
	Param string

	// Want is the concrete type the value was checked against.
	Want typesystem.Type

	// Got is a rendering of the offending value.
	Got string

	// ArgIndex is the failing argument position, or -1 for the result.
	ArgIndex int

	// Blame is caller for bad arguments, callee for bad returns.
	Blame Blame
}

func (v *Violation) Error() string {
	site := fmt.Sprintf("argument %d", v.ArgIndex)
	if v.ArgIndex < 0 {
		site = "result"
	}
	if v.Param != "" {
		return fmt.Sprintf("%v in %s: %s (parameter %s) expected %s, got %s; blame %s",
			ErrViolation, v.Accessor, site, v.Param, v.Want, v.Got, v.Blame)
	}
	return fmt.Sprintf("%v in %s: %s expected %s, got %s; blame %s",
		ErrViolation, v.Accessor, site, v.Want, v.Got, v.Blame)
}

func (v *Violation) Unwrap() error { return ErrViolation }
