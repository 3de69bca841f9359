// Package dispatch is the runtime entry point for typed code calling
// accessors across the boundary.
//
// Each call walks a fixed state machine:
//
//	Start -> Resolve -> CacheLookup -> {Hit -> Invoke,
//	                                    Miss -> Synthesize -> StoreCache -> Invoke}
//	      -> Done | Failed
//
// There are no retries: instantiation conflicts and contract violations are
// programming or data errors, not transient faults.
package dispatch

import (
	"context"
	"fmt"

	"github.com/funvibe/boundary/internal/contract"
	"github.com/funvibe/boundary/internal/registry"
	"github.com/funvibe/boundary/internal/resolve"
)

// State identifies one step of the per-call state machine. Exposed so
// observers (the audit recorder, tests) can follow transitions.
type State int

const (
	StateStart State = iota
	StateResolve
	StateCacheLookup
	StateSynthesize
	StateInvoke
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateResolve:
		return "resolve"
	case StateCacheLookup:
		return "cache-lookup"
	case StateSynthesize:
		return "synthesize"
	case StateInvoke:
		return "invoke"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event is one observed transition of a dispatched call.
type Event struct {
	Accessor string
	State    State
	Wrapper  *contract.Wrapper // set on StateSynthesize
	Err      error             // set on StateFailed
}

// Hook observes dispatcher transitions. May be nil.
type Hook func(Event)

// Dispatcher orchestrates resolver, cache and wrapper invocation.
type Dispatcher struct {
	reg   *registry.Registry
	cache *contract.Cache
	hook  Hook
}

// New returns a dispatcher over the given registry and cache.
func New(reg *registry.Registry, cache *contract.Cache, hook Hook) *Dispatcher {
	return &Dispatcher{reg: reg, cache: cache, hook: hook}
}

func (d *Dispatcher) emit(e Event) {
	if d.hook != nil {
		d.hook(e)
	}
}

// Resolve computes the call-site instantiation for an accessor given the
// observed position types. Exposed to the host checker so it can resolve
// once and invoke many times.
func (d *Dispatcher) Resolve(accessor string, obs resolve.Observed) (resolve.Instantiation, error) {
	if !d.reg.Sealed() {
		return resolve.Instantiation{}, fmt.Errorf("%w: resolution before registration completed", registry.ErrNotSealed)
	}
	acc, err := d.reg.LookupAccessor(accessor)
	if err != nil {
		return resolve.Instantiation{}, err
	}
	return resolve.Resolve(acc, obs)
}

// Invoke runs an accessor through the wrapper for the given instantiation.
func (d *Dispatcher) Invoke(ctx context.Context, accessor string, inst resolve.Instantiation, args ...any) (any, error) {
	if !d.reg.Sealed() {
		return nil, fmt.Errorf("%w: invocation before registration completed", registry.ErrNotSealed)
	}
	acc, err := d.reg.LookupAccessor(accessor)
	if err != nil {
		return nil, err
	}

	d.emit(Event{Accessor: accessor, State: StateCacheLookup})
	w, synthesized := d.cache.GetOrSynthesize(acc, inst)
	if synthesized {
		d.emit(Event{Accessor: accessor, State: StateSynthesize, Wrapper: w})
	}

	d.emit(Event{Accessor: accessor, State: StateInvoke})
	out, err := w.Invoke(ctx, args...)
	if err != nil {
		d.emit(Event{Accessor: accessor, State: StateFailed, Err: err})
		return nil, err
	}
	d.emit(Event{Accessor: accessor, State: StateDone})
	return out, nil
}

// Call is the single entry point for a full use site: resolve, look up or
// synthesize the wrapper, invoke. A resolution failure transitions straight
// to Failed and performs no invocation.
func (d *Dispatcher) Call(ctx context.Context, accessor string, obs resolve.Observed, args ...any) (any, error) {
	d.emit(Event{Accessor: accessor, State: StateStart})

	d.emit(Event{Accessor: accessor, State: StateResolve})
	inst, err := d.Resolve(accessor, obs)
	if err != nil {
		d.emit(Event{Accessor: accessor, State: StateFailed, Err: err})
		return nil, err
	}

	return d.Invoke(ctx, accessor, inst, args...)
}
