// Package registry holds the declared opaque parametric types and their
// accessor functions.
//
// The registry follows a strict two-phase lifecycle: all declarations are
// registered first (single-threaded, at startup), then the registry is
// sealed and serves concurrent lookups for the rest of the process. There
// is no removal: opaque types are static declarations, not runtime data.
package registry

import (
	"fmt"
	"sync"
)

// Registry stores opaque type declarations and their accessor table.
type Registry struct {
	mu        sync.RWMutex
	sealed    bool
	types     map[string]*OpaqueDecl
	accessors map[string]*AccessorDecl
}

// New returns an empty, unsealed registry.
func New() *Registry {
	return &Registry{
		types:     make(map[string]*OpaqueDecl),
		accessors: make(map[string]*AccessorDecl),
	}
}

// RegisterType registers an opaque type declaration.
func (r *Registry) RegisterType(decl *OpaqueDecl) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return fmt.Errorf("%w: cannot register type %s", ErrSealed, decl.Name)
	}
	if decl.Name == "" {
		return fmt.Errorf("%w: opaque type has no name", ErrInvalidSignature)
	}
	if decl.Recognize == nil {
		return fmt.Errorf("%w: opaque type %s has no recognizer", ErrInvalidSignature, decl.Name)
	}
	seen := make(map[string]bool, len(decl.Params))
	for _, p := range decl.Params {
		if seen[p] {
			return fmt.Errorf("%w: opaque type %s repeats parameter %s", ErrInvalidSignature, decl.Name, p)
		}
		seen[p] = true
	}
	if _, ok := r.types[decl.Name]; ok {
		return fmt.Errorf("%w: opaque type %s", ErrDuplicateDeclaration, decl.Name)
	}

	r.types[decl.Name] = decl
	return nil
}

// RegisterAccessor registers an accessor declaration, validating that every
// parameter-typed position references a formal parameter declared on the
// owning type.
func (r *Registry) RegisterAccessor(decl *AccessorDecl) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return fmt.Errorf("%w: cannot register accessor %s", ErrSealed, decl.Name)
	}
	if decl.Name == "" {
		return fmt.Errorf("%w: accessor has no name", ErrInvalidSignature)
	}
	if decl.Owner == nil {
		return fmt.Errorf("%w: accessor %s has no owning type", ErrInvalidSignature, decl.Name)
	}
	if _, ok := r.types[decl.Owner.Name]; !ok {
		return fmt.Errorf("%w: accessor %s owned by unregistered type %s", ErrUnknownType, decl.Name, decl.Owner.Name)
	}
	if decl.Impl == nil {
		return fmt.Errorf("%w: accessor %s has no implementation", ErrInvalidSignature, decl.Name)
	}
	if _, ok := r.accessors[decl.Name]; ok {
		return fmt.Errorf("%w: accessor %s", ErrDuplicateDeclaration, decl.Name)
	}

	if err := validatePosition(decl, decl.Result, -1); err != nil {
		return err
	}
	for i, pos := range decl.Args {
		if err := validatePosition(decl, pos, i); err != nil {
			return err
		}
	}

	r.accessors[decl.Name] = decl
	return nil
}

func validatePosition(decl *AccessorDecl, pos Position, argIndex int) error {
	where := "result"
	if argIndex >= 0 {
		where = fmt.Sprintf("argument %d", argIndex)
	}
	switch pos.Kind {
	case PositionOpaque:
		return nil
	case PositionParam:
		if !decl.Owner.HasParam(pos.Param) {
			return fmt.Errorf("%w: accessor %s %s references parameter %s not declared on %s",
				ErrInvalidSignature, decl.Name, where, pos.Param, decl.Owner.Name)
		}
		return nil
	case PositionConcrete:
		if pos.Type == nil {
			return fmt.Errorf("%w: accessor %s %s is concrete-typed but has no type",
				ErrInvalidSignature, decl.Name, where)
		}
		return nil
	default:
		return fmt.Errorf("%w: accessor %s %s has unknown position kind", ErrInvalidSignature, decl.Name, where)
	}
}

// LookupType returns the opaque type declaration for name.
func (r *Registry) LookupType(name string) (*OpaqueDecl, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	decl, ok := r.types[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, name)
	}
	return decl, nil
}

// LookupAccessor returns the accessor declaration for name.
func (r *Registry) LookupAccessor(name string) (*AccessorDecl, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	decl, ok := r.accessors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAccessor, name)
	}
	return decl, nil
}

// Accessors returns the names of all registered accessors.
func (r *Registry) Accessors() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.accessors))
	for name := range r.accessors {
		names = append(names, name)
	}
	return names
}

// Seal transitions the registry from the register phase to the serve phase.
// Sealing twice is a no-op.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
}

// Sealed reports whether the registry has entered the serve phase.
func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}
