// Package manifest implements the YAML declaration front end.
//
// A boundary.yaml manifest declares the opaque parametric types and their
// accessor signatures; the host binds recognizers and untyped
// implementations by name when the manifest is applied to a registry.
// Parsing and validation are purely structural; the registry performs its
// own signature validation on top.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/funvibe/boundary/internal/config"
	"github.com/funvibe/boundary/internal/registry"
	"github.com/funvibe/boundary/internal/typesystem"
)

// Manifest is the top-level boundary.yaml document.
type Manifest struct {
	// Types lists the opaque parametric type declarations.
	Types []TypeDecl `yaml:"types"`

	// Accessors lists the polymorphic functions associated with the types.
	Accessors []AccessorDecl `yaml:"accessors"`
}

// TypeDecl declares one opaque type constructor.
type TypeDecl struct {
	// Name is the constructor name (e.g. "Pair").
	Name string `yaml:"name"`

	// Params are the formal type parameters, in order (e.g. [a, b]).
	Params []string `yaml:"params,omitempty"`
}

// AccessorDecl declares one accessor signature.
type AccessorDecl struct {
	// Name is the accessor name the host invokes (e.g. "first").
	Name string `yaml:"name"`

	// Type is the owning opaque type's name.
	Type string `yaml:"type"`

	// Args are the argument positions in order.
	Args []PositionSpec `yaml:"args"`

	// Result is the result position.
	Result PositionSpec `yaml:"result"`
}

// PositionSpec tags one signature position. Exactly one of the three
// fields must be set:
//
//	  - opaque: true          # opaque-passthrough
//	  - param: a              # typed by a formal parameter
//	  - concrete: List<Int>   # fixed concrete type
type PositionSpec struct {
	Opaque   bool   `yaml:"opaque,omitempty"`
	Param    string `yaml:"param,omitempty"`
	Concrete string `yaml:"concrete,omitempty"`
}

// Load reads and parses a boundary.yaml file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse parses manifest content from bytes. The path argument is used only
// for error messages.
func Parse(data []byte, path string) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := m.validate(path); err != nil {
		return nil, err
	}
	return &m, nil
}

// Find searches for boundary.yaml starting from dir and walking up parent
// directories. Returns the empty string when no manifest exists.
func Find(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}

	for {
		candidate := filepath.Join(dir, config.ManifestName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// validate checks the manifest for structural errors.
func (m *Manifest) validate(path string) error {
	if len(m.Types) == 0 {
		return fmt.Errorf("%s: no types defined", path)
	}

	types := make(map[string]*TypeDecl, len(m.Types))
	for i := range m.Types {
		td := &m.Types[i]
		if td.Name == "" {
			return fmt.Errorf("%s: types[%d]: name is required", path, i)
		}
		if _, ok := types[td.Name]; ok {
			return fmt.Errorf("%s: types[%d]: type %s declared twice", path, i, td.Name)
		}
		seen := make(map[string]bool, len(td.Params))
		for _, p := range td.Params {
			if seen[p] {
				return fmt.Errorf("%s: types[%d] (%s): parameter %s repeated", path, i, td.Name, p)
			}
			seen[p] = true
		}
		types[td.Name] = td
	}

	names := make(map[string]bool, len(m.Accessors))
	for i, acc := range m.Accessors {
		if acc.Name == "" {
			return fmt.Errorf("%s: accessors[%d]: name is required", path, i)
		}
		if names[acc.Name] {
			return fmt.Errorf("%s: accessors[%d]: accessor %s declared twice", path, i, acc.Name)
		}
		names[acc.Name] = true

		owner, ok := types[acc.Type]
		if !ok {
			return fmt.Errorf("%s: accessors[%d] (%s): unknown type %s", path, i, acc.Name, acc.Type)
		}

		if err := validateSpec(path, i, acc.Name, "result", acc.Result, owner); err != nil {
			return err
		}
		for j, spec := range acc.Args {
			where := fmt.Sprintf("args[%d]", j)
			if err := validateSpec(path, i, acc.Name, where, spec, owner); err != nil {
				return err
			}
		}
	}

	return nil
}

func validateSpec(path string, i int, acc, where string, spec PositionSpec, owner *TypeDecl) error {
	count := 0
	if spec.Opaque {
		count++
	}
	if spec.Param != "" {
		count++
	}
	if spec.Concrete != "" {
		count++
	}
	if count == 0 {
		return fmt.Errorf("%s: accessors[%d] (%s): %s: one of opaque, param, or concrete is required",
			path, i, acc, where)
	}
	if count > 1 {
		return fmt.Errorf("%s: accessors[%d] (%s): %s: opaque, param, and concrete are mutually exclusive",
			path, i, acc, where)
	}
	if spec.Param != "" {
		found := false
		for _, p := range owner.Params {
			if p == spec.Param {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%s: accessors[%d] (%s): %s: parameter %s not declared on %s",
				path, i, acc, where, spec.Param, owner.Name)
		}
	}
	if spec.Concrete != "" {
		if _, err := ParseType(spec.Concrete); err != nil {
			return fmt.Errorf("%s: accessors[%d] (%s): %s: %w", path, i, acc, where, err)
		}
	}
	return nil
}

// Bindings supplies the runtime capabilities a manifest cannot carry:
// recognizer predicates per type and untyped implementations per accessor.
type Bindings struct {
	Recognizers map[string]typesystem.Recognizer
	Impls       map[string]registry.Impl
}

// Apply registers every declaration in the manifest against the registry,
// wiring recognizers and implementations from the bindings. A missing
// binding is an InvalidSignature error: the registration phase must not
// complete with half-bound declarations.
func (m *Manifest) Apply(reg *registry.Registry, b Bindings) error {
	decls := make(map[string]*registry.OpaqueDecl, len(m.Types))

	for _, td := range m.Types {
		recognize, ok := b.Recognizers[td.Name]
		if !ok {
			return fmt.Errorf("%w: no recognizer bound for type %s", registry.ErrInvalidSignature, td.Name)
		}
		decl := &registry.OpaqueDecl{Name: td.Name, Params: td.Params, Recognize: recognize}
		if err := reg.RegisterType(decl); err != nil {
			return err
		}
		decls[td.Name] = decl
	}

	for _, acc := range m.Accessors {
		impl, ok := b.Impls[acc.Name]
		if !ok {
			return fmt.Errorf("%w: no implementation bound for accessor %s", registry.ErrInvalidSignature, acc.Name)
		}

		args := make([]registry.Position, len(acc.Args))
		for i, spec := range acc.Args {
			pos, err := specToPosition(spec)
			if err != nil {
				return err
			}
			args[i] = pos
		}
		result, err := specToPosition(acc.Result)
		if err != nil {
			return err
		}

		decl := &registry.AccessorDecl{
			Name:   acc.Name,
			Owner:  decls[acc.Type],
			Args:   args,
			Result: result,
			Impl:   impl,
		}
		if err := reg.RegisterAccessor(decl); err != nil {
			return err
		}
	}

	return nil
}

func specToPosition(spec PositionSpec) (registry.Position, error) {
	switch {
	case spec.Opaque:
		return registry.OpaquePos(), nil
	case spec.Param != "":
		return registry.ParamPos(spec.Param), nil
	default:
		t, err := ParseType(spec.Concrete)
		if err != nil {
			return registry.Position{}, err
		}
		return registry.ConcretePos(t), nil
	}
}
