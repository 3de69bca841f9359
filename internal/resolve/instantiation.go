package resolve

import (
	"strings"

	"github.com/funvibe/boundary/internal/typesystem"
)

// Instantiation is a possibly partial mapping from an opaque type's formal
// parameters to concrete types, computed per call site. Parameters with no
// observed position stay unbound and are never checked downstream.
type Instantiation struct {
	params []string
	bound  map[string]typesystem.Type
}

// newInstantiation creates an empty instantiation over the given formal
// parameters, in declaration order.
func newInstantiation(params []string) Instantiation {
	return Instantiation{
		params: params,
		bound:  make(map[string]typesystem.Type, len(params)),
	}
}

// Type returns the concrete type bound to the formal parameter, if any.
func (in Instantiation) Type(param string) (typesystem.Type, bool) {
	t, ok := in.bound[param]
	return t, ok
}

// Resolved reports whether the formal parameter is bound at this call site.
func (in Instantiation) Resolved(param string) bool {
	_, ok := in.bound[param]
	return ok
}

// Key renders the instantiation as an ordered tuple of concrete types,
// with unresolved parameters printed as "_". Two call sites with the same
// observed types produce identical keys, which is what the contract cache
// keys on.
func (in Instantiation) Key() string {
	var sb strings.Builder
	for i, p := range in.params {
		if i > 0 {
			sb.WriteString(",")
		}
		if t, ok := in.bound[p]; ok {
			sb.WriteString(t.String())
		} else {
			sb.WriteString("_")
		}
	}
	return sb.String()
}

func (in Instantiation) String() string {
	var sb strings.Builder
	sb.WriteString("{")
	for i, p := range in.params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p)
		sb.WriteString(": ")
		if t, ok := in.bound[p]; ok {
			sb.WriteString(t.String())
		} else {
			sb.WriteString("_")
		}
	}
	sb.WriteString("}")
	return sb.String()
}
