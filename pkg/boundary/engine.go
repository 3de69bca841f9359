// Package boundary is the host-facing API of the contract engine.
//
// A host type checker drives the engine in two phases. During registration
// it declares opaque parametric types and their accessors (directly or via
// a manifest), then calls Seal. During serving, each typed use site calls
// ResolveCallSite with the concrete types it observed, and Invoke (or Call)
// to run the accessor through a validating wrapper specialized to that
// instantiation. Opaque payloads pass through wrappers untouched; only the
// typed-visible positions are checked.
package boundary

import (
	"context"

	"github.com/funvibe/boundary/internal/contract"
	"github.com/funvibe/boundary/internal/dispatch"
	"github.com/funvibe/boundary/internal/manifest"
	"github.com/funvibe/boundary/internal/registry"
	"github.com/funvibe/boundary/internal/resolve"
	"github.com/funvibe/boundary/internal/typesystem"
)

// Re-exported types so most hosts only import this package and typesystem.
type (
	Observed      = resolve.Observed
	Instantiation = resolve.Instantiation
	Position      = registry.Position
	OpaqueDecl    = registry.OpaqueDecl
	Impl          = registry.Impl
	Violation     = contract.Violation
	Blame         = contract.Blame
	Bindings      = manifest.Bindings
	Hook          = dispatch.Hook
	Event         = dispatch.Event
)

const (
	BlameCaller = contract.BlameCaller
	BlameCallee = contract.BlameCallee
)

// Re-exported sentinels for errors.Is checks at the host.
var (
	ErrDuplicateDeclaration = registry.ErrDuplicateDeclaration
	ErrUnknownType          = registry.ErrUnknownType
	ErrUnknownAccessor      = registry.ErrUnknownAccessor
	ErrInvalidSignature     = registry.ErrInvalidSignature
	ErrSealed               = registry.ErrSealed
	ErrNotSealed            = registry.ErrNotSealed
	ErrConflict             = resolve.ErrConflict
	ErrViolation            = contract.ErrViolation
)

// Position constructors.
var (
	OpaquePos   = registry.OpaquePos
	ParamPos    = registry.ParamPos
	ConcretePos = registry.ConcretePos
)

// Engine owns the registries, the contract cache and the dispatcher.
type Engine struct {
	reg     *registry.Registry
	cache   *contract.Cache
	disp    *dispatch.Dispatcher
	conform typesystem.Conformance
}

// Option configures an Engine.
type Option func(*engineConfig)

type engineConfig struct {
	conform typesystem.Conformance
	hook    dispatch.Hook
}

// WithConformance replaces the reflection-based value checker with the
// host's own.
func WithConformance(c typesystem.Conformance) Option {
	return func(cfg *engineConfig) { cfg.conform = c }
}

// WithHook installs an observer for dispatcher transitions (e.g. an audit
// recorder).
func WithHook(h dispatch.Hook) Option {
	return func(cfg *engineConfig) { cfg.hook = h }
}

// New returns an engine in the registration phase.
func New(opts ...Option) *Engine {
	cfg := engineConfig{conform: typesystem.NewConformance()}
	for _, opt := range opts {
		opt(&cfg)
	}

	reg := registry.New()
	cache := contract.NewCache(cfg.conform)
	return &Engine{
		reg:     reg,
		cache:   cache,
		disp:    dispatch.New(reg, cache, cfg.hook),
		conform: cfg.conform,
	}
}

// RegisterOpaqueType declares an opaque parametric type with its formal
// parameters and the untyped recognizer predicate.
func (e *Engine) RegisterOpaqueType(name string, params []string, recognize typesystem.Recognizer) (*OpaqueDecl, error) {
	decl := &registry.OpaqueDecl{Name: name, Params: params, Recognize: recognize}
	if err := e.reg.RegisterType(decl); err != nil {
		return nil, err
	}
	return decl, nil
}

// RegisterAccessor declares a polymorphic accessor on an opaque type, with
// its signature shape and untyped implementation.
func (e *Engine) RegisterAccessor(name string, owner *OpaqueDecl, args []Position, result Position, impl Impl) error {
	return e.reg.RegisterAccessor(&registry.AccessorDecl{
		Name:   name,
		Owner:  owner,
		Args:   args,
		Result: result,
		Impl:   impl,
	})
}

// LoadManifest applies a boundary.yaml manifest, binding recognizers and
// implementations by name.
func (e *Engine) LoadManifest(path string, b Bindings) error {
	m, err := manifest.Load(path)
	if err != nil {
		return err
	}
	return m.Apply(e.reg, b)
}

// Seal ends the registration phase. Serving (resolution and invocation)
// is only allowed afterwards, registration only before.
func (e *Engine) Seal() {
	e.reg.Seal()
}

// ResolveCallSite computes the (possibly partial) instantiation for an
// accessor use site from the observed position types.
func (e *Engine) ResolveCallSite(accessor string, obs Observed) (Instantiation, error) {
	return e.disp.Resolve(accessor, obs)
}

// Invoke runs an accessor through the shared wrapper for the given
// instantiation.
func (e *Engine) Invoke(ctx context.Context, accessor string, inst Instantiation, args ...any) (any, error) {
	return e.disp.Invoke(ctx, accessor, inst, args...)
}

// Call resolves and invokes in one step.
func (e *Engine) Call(ctx context.Context, accessor string, obs Observed, args ...any) (any, error) {
	return e.disp.Call(ctx, accessor, obs, args...)
}

// Syntheses reports how many wrappers have been synthesized so far.
func (e *Engine) Syntheses() int64 {
	return e.cache.Syntheses()
}
