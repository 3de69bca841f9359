package boundary

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/funvibe/boundary/internal/typesystem"
)

// pairVal is the untyped layer's Pair. Fields are deliberately unchecked
// at construction by the untyped side.
type pairVal struct {
	first  any
	second any
}

// pairEngine registers Pair<a, b> with makePair, first and second, and
// returns the engine sealed for serving. implCalls counts invocations of
// the untyped implementations.
func pairEngine(t *testing.T, implCalls *atomic.Int64) *Engine {
	t.Helper()

	e := New()
	pair, err := e.RegisterOpaqueType("Pair", []string{"a", "b"}, func(v any) bool {
		_, ok := v.(*pairVal)
		return ok
	})
	if err != nil {
		t.Fatalf("RegisterOpaqueType failed: %v", err)
	}

	count := func() {
		if implCalls != nil {
			implCalls.Add(1)
		}
	}

	regs := []struct {
		name   string
		args   []Position
		result Position
		impl   Impl
	}{
		{
			name:   "makePair",
			args:   []Position{ParamPos("a"), ParamPos("b")},
			result: OpaquePos(),
			impl: func(ctx context.Context, args ...any) (any, error) {
				count()
				return &pairVal{first: args[0], second: args[1]}, nil
			},
		},
		{
			name:   "first",
			args:   []Position{OpaquePos()},
			result: ParamPos("a"),
			impl: func(ctx context.Context, args ...any) (any, error) {
				count()
				return args[0].(*pairVal).first, nil
			},
		},
		{
			name:   "second",
			args:   []Position{OpaquePos()},
			result: ParamPos("b"),
			impl: func(ctx context.Context, args ...any) (any, error) {
				count()
				return args[0].(*pairVal).second, nil
			},
		},
		{
			name:   "idPair",
			args:   []Position{OpaquePos()},
			result: OpaquePos(),
			impl: func(ctx context.Context, args ...any) (any, error) {
				count()
				return args[0], nil
			},
		},
		{
			name:   "withFirst",
			args:   []Position{OpaquePos(), ParamPos("a")},
			result: ParamPos("a"),
			impl: func(ctx context.Context, args ...any) (any, error) {
				count()
				return args[1], nil
			},
		},
	}
	for _, r := range regs {
		if err := e.RegisterAccessor(r.name, pair, r.args, r.result, r.impl); err != nil {
			t.Fatalf("RegisterAccessor(%s) failed: %v", r.name, err)
		}
	}

	e.Seal()
	return e
}

// makeBogusPair builds Pair(2, "bogus") through the engine: a is Int, b is
// never observed, so the bad second component slips through by design.
func makeBogusPair(t *testing.T, e *Engine) any {
	t.Helper()

	// The untyped producer stores whatever it likes in the second slot.
	// Model it by bypassing the b check: only a is observed at this site.
	inst, err := e.ResolveCallSite("makePair", Observed{
		Args: []typesystem.Type{typesystem.Int, nil},
	})
	if err != nil {
		t.Fatalf("ResolveCallSite failed: %v", err)
	}
	p, err := e.Invoke(context.Background(), "makePair", inst, 2, "bogus")
	if err != nil {
		t.Fatalf("makePair failed: %v", err)
	}
	return p
}

func TestPassthroughIdentity(t *testing.T) {
	e := pairEngine(t, nil)
	p := makeBogusPair(t, e)

	obs := Observed{Args: []typesystem.Type{nil}}
	back, err := e.Call(context.Background(), "idPair", obs, p)
	if err != nil {
		t.Fatalf("idPair failed: %v", err)
	}
	if back != p {
		t.Errorf("opaque value identity not preserved across the boundary")
	}
}

func TestPartialCheckSoundness(t *testing.T) {
	e := pairEngine(t, nil)
	p := makeBogusPair(t, e)

	// first: Pair<a, b> -> a with {a: Int}; b is never read, so the bogus
	// second component must not raise a violation.
	out, err := e.Call(context.Background(), "first",
		Observed{Args: []typesystem.Type{nil}, Result: typesystem.Int}, p)
	if err != nil {
		t.Fatalf("first failed: %v (unobserved parameter must not be checked)", err)
	}
	if out != 2 {
		t.Errorf("first = %v, want 2", out)
	}
}

func TestFullCheckDetection(t *testing.T) {
	e := pairEngine(t, nil)
	p := makeBogusPair(t, e)

	// second: Pair<a, b> -> b with {b: Int} against the stored "bogus".
	_, err := e.Call(context.Background(), "second",
		Observed{Args: []typesystem.Type{nil}, Result: typesystem.Int}, p)

	var v *Violation
	if !errors.As(err, &v) {
		t.Fatalf("got %v, want *Violation", err)
	}
	if v.Blame != BlameCallee {
		t.Errorf("blame = %s, want callee: a bad return is the untyped producer's fault", v.Blame)
	}
	if !errors.Is(err, ErrViolation) {
		t.Errorf("violation should match ErrViolation")
	}
}

func TestCacheSharing(t *testing.T) {
	e := pairEngine(t, nil)
	p := makeBogusPair(t, e)
	base := e.Syntheses()

	obs := Observed{Args: []typesystem.Type{nil}, Result: typesystem.Int}

	// Two call sites with identical (accessor, instantiation).
	if _, err := e.Call(context.Background(), "first", obs, p); err != nil {
		t.Fatalf("first call site failed: %v", err)
	}
	if _, err := e.Call(context.Background(), "first", obs, p); err != nil {
		t.Fatalf("second call site failed: %v", err)
	}
	if got := e.Syntheses() - base; got != 1 {
		t.Errorf("syntheses = %d, want exactly 1 for identical call sites", got)
	}

	// A different instantiation synthesizes separately.
	strObs := Observed{Args: []typesystem.Type{nil}, Result: typesystem.String}
	if _, err := e.Call(context.Background(), "first", strObs, &pairVal{first: "s"}); err != nil {
		t.Fatalf("string call site failed: %v", err)
	}
	if got := e.Syntheses() - base; got != 2 {
		t.Errorf("syntheses = %d, want 2 after a distinct instantiation", got)
	}
}

func TestConflictDetection(t *testing.T) {
	var implCalls atomic.Int64
	e := pairEngine(t, &implCalls)
	implCalls.Store(0)

	// The argument observes a as Int while the demanded result says String.
	_, err := e.Call(context.Background(), "withFirst",
		Observed{Args: []typesystem.Type{nil, typesystem.Int}, Result: typesystem.String},
		&pairVal{}, 1)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("got %v, want ErrConflict", err)
	}
	if implCalls.Load() != 0 {
		t.Errorf("conflicting call site must perform no invocation, saw %d", implCalls.Load())
	}
}

func TestConcurrentSynthesisRace(t *testing.T) {
	e := pairEngine(t, nil)
	p := makeBogusPair(t, e)
	base := e.Syntheses()

	obs := Observed{Args: []typesystem.Type{nil}, Result: typesystem.Int}

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	outs := make([]any, n)
	start := make(chan struct{})

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			outs[i], errs[i] = e.Call(context.Background(), "first", obs, p)
		}(i)
	}
	close(start)
	wg.Wait()

	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("goroutine %d failed: %v", i, errs[i])
		}
		if outs[i] != 2 {
			t.Fatalf("goroutine %d got %v, want 2", i, outs[i])
		}
	}
	if got := e.Syntheses() - base; got != 1 {
		t.Errorf("syntheses = %d, want exactly 1 under contention", got)
	}
}

func TestRegistrationErrors(t *testing.T) {
	e := New()
	rec := func(v any) bool { return true }

	pair, err := e.RegisterOpaqueType("Pair", []string{"a", "b"}, rec)
	if err != nil {
		t.Fatalf("RegisterOpaqueType failed: %v", err)
	}
	if _, err := e.RegisterOpaqueType("Pair", []string{"a"}, rec); !errors.Is(err, ErrDuplicateDeclaration) {
		t.Errorf("duplicate type: got %v", err)
	}

	nop := func(ctx context.Context, args ...any) (any, error) { return nil, nil }
	err = e.RegisterAccessor("bad", pair, []Position{OpaquePos()}, ParamPos("z"), nop)
	if !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("invalid signature: got %v", err)
	}

	e.Seal()
	if _, err := e.RegisterOpaqueType("Late", []string{"a"}, rec); !errors.Is(err, ErrSealed) {
		t.Errorf("registration after seal: got %v", err)
	}
}

func TestUnknownAccessor(t *testing.T) {
	e := pairEngine(t, nil)
	if _, err := e.Call(context.Background(), "nope", Observed{}, nil); !errors.Is(err, ErrUnknownAccessor) {
		t.Errorf("got %v, want ErrUnknownAccessor", err)
	}
}
