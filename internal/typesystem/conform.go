package typesystem

import (
	"reflect"
)

// Recognizer reports whether an untyped value is an instance of some type.
// Recognizers come from the untyped layer; the engine never looks inside
// the values they accept.
type Recognizer func(v any) bool

// Conformance checks untyped values against concrete types. The host
// runtime normally supplies its own implementation wired to its value
// representation; ReflectConformance covers plain Go values.
type Conformance interface {
	Conforms(v any, t Type) bool
}

// ReflectConformance checks plain Go values against concrete types using
// reflection. Named types without a builtin mapping are resolved through
// registered recognizers.
type ReflectConformance struct {
	recognizers map[string]Recognizer
}

// NewConformance returns a ReflectConformance with no custom recognizers.
func NewConformance() *ReflectConformance {
	return &ReflectConformance{recognizers: make(map[string]Recognizer)}
}

// Register installs a recognizer for a named type. Registration is expected
// to happen during engine setup, before any conformance checks run.
func (c *ReflectConformance) Register(name string, r Recognizer) {
	c.recognizers[name] = r
}

func (c *ReflectConformance) Conforms(v any, t Type) bool {
	switch t := t.(type) {
	case Con:
		return c.conformsCon(v, t)
	case App:
		return c.conformsApp(v, t)
	default:
		return false
	}
}

func (c *ReflectConformance) conformsCon(v any, t Con) bool {
	switch t.Name {
	case "Int":
		switch v.(type) {
		case int, int8, int16, int32, int64:
			return true
		}
		return false
	case "Float":
		switch v.(type) {
		case float32, float64:
			return true
		}
		return false
	case "Bool":
		_, ok := v.(bool)
		return ok
	case "String":
		_, ok := v.(string)
		return ok
	case "Bytes":
		_, ok := v.([]byte)
		return ok
	case "Nil":
		return v == nil
	}
	if r, ok := c.recognizers[t.Name]; ok {
		return r(v)
	}
	return false
}

func (c *ReflectConformance) conformsApp(v any, t App) bool {
	con, ok := t.Constructor.(Con)
	if !ok {
		return false
	}
	switch con.Name {
	case "List":
		if len(t.Args) != 1 {
			return false
		}
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Slice {
			return false
		}
		for i := 0; i < rv.Len(); i++ {
			if !c.Conforms(rv.Index(i).Interface(), t.Args[0]) {
				return false
			}
		}
		return true
	case "Map":
		if len(t.Args) != 2 {
			return false
		}
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Map {
			return false
		}
		iter := rv.MapRange()
		for iter.Next() {
			if !c.Conforms(iter.Key().Interface(), t.Args[0]) {
				return false
			}
			if !c.Conforms(iter.Value().Interface(), t.Args[1]) {
				return false
			}
		}
		return true
	}
	// Applied opaque constructors fall back to the recognizer for the
	// constructor name: type arguments are erased at runtime.
	if r, ok := c.recognizers[con.Name]; ok {
		return r(v)
	}
	return false
}
