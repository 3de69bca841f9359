package typesystem

import (
	"strings"
)

// Type is the interface for concrete types observed at the boundary.
// The engine never manipulates the host's full type language; it only needs
// the concrete types the static checker reports at call sites, so the model
// is deliberately small: named constants and applied constructors.
type Type interface {
	String() string
	Equal(Type) bool
}

// Con represents a named type constant or constructor (e.g. Int, Bool, Pair).
type Con struct {
	Name string
}

func (t Con) String() string { return t.Name }

func (t Con) Equal(other Type) bool {
	o, ok := other.(Con)
	return ok && o.Name == t.Name
}

// App represents an applied type constructor (e.g. List<Int>, Pair<Int, String>).
type App struct {
	Constructor Type
	Args        []Type
}

func (t App) String() string {
	var sb strings.Builder
	sb.WriteString(t.Constructor.String())
	sb.WriteString("<")
	for i, a := range t.Args {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(a.String())
	}
	sb.WriteString(">")
	return sb.String()
}

func (t App) Equal(other Type) bool {
	o, ok := other.(App)
	if !ok || len(o.Args) != len(t.Args) {
		return false
	}
	if !t.Constructor.Equal(o.Constructor) {
		return false
	}
	for i, a := range t.Args {
		if !a.Equal(o.Args[i]) {
			return false
		}
	}
	return true
}

// Common base types.
var (
	Int    = Con{Name: "Int"}
	Float  = Con{Name: "Float"}
	Bool   = Con{Name: "Bool"}
	String = Con{Name: "String"}
	Bytes  = Con{Name: "Bytes"}
	Nil    = Con{Name: "Nil"}
)

// MakeApp builds an applied constructor from a name and arguments.
func MakeApp(name string, args ...Type) App {
	return App{Constructor: Con{Name: name}, Args: args}
}

// MakeList builds List<elem>.
func MakeList(elem Type) App {
	return MakeApp("List", elem)
}

// MakeMap builds Map<key, value>.
func MakeMap(key, value Type) App {
	return MakeApp("Map", key, value)
}
