package audit

import (
	"context"
	"fmt"
	"testing"

	"github.com/funvibe/boundary/internal/contract"
	"github.com/funvibe/boundary/internal/dispatch"
	"github.com/funvibe/boundary/internal/registry"
	"github.com/funvibe/boundary/internal/resolve"
	"github.com/funvibe/boundary/internal/typesystem"
)

func openTestRecorder(t *testing.T) *Recorder {
	t.Helper()
	r, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestRecordViolation(t *testing.T) {
	r := openTestRecorder(t)

	v := &contract.Violation{
		Accessor: "second",
		Param:    "b",
		Want:     typesystem.Int,
		Got:      `bogus (string)`,
		ArgIndex: -1,
		Blame:    contract.BlameCallee,
	}
	if err := r.RecordViolation(v); err != nil {
		t.Fatalf("RecordViolation failed: %v", err)
	}
	if err := r.RecordViolation(v); err != nil {
		t.Fatalf("RecordViolation failed: %v", err)
	}

	recs, err := r.Violations("second")
	if err != nil {
		t.Fatalf("Violations failed: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("stored %d violations, want 2", len(recs))
	}
	got := recs[0]
	if got.Accessor != "second" || got.Param != "b" || got.Want != "Int" || got.Blame != "callee" || got.ArgIndex != -1 {
		t.Errorf("unexpected record: %+v", got)
	}
	if got.ID == recs[1].ID {
		t.Errorf("violation rows should get distinct ids")
	}

	// Filtering by a different accessor returns nothing.
	recs, err = r.Violations("first")
	if err != nil {
		t.Fatalf("Violations failed: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("filter leaked %d rows", len(recs))
	}
}

func TestViolationsUnfiltered(t *testing.T) {
	r := openTestRecorder(t)

	for _, acc := range []string{"first", "second"} {
		v := &contract.Violation{Accessor: acc, Want: typesystem.Int, Got: "x", ArgIndex: 0, Blame: contract.BlameCaller}
		if err := r.RecordViolation(v); err != nil {
			t.Fatalf("RecordViolation failed: %v", err)
		}
	}

	recs, err := r.Violations("")
	if err != nil {
		t.Fatalf("Violations failed: %v", err)
	}
	if len(recs) != 2 {
		t.Errorf("stored %d violations, want 2", len(recs))
	}
}

func TestRecordSynthesis(t *testing.T) {
	r := openTestRecorder(t)

	pair := &registry.OpaqueDecl{
		Name:      "Pair",
		Params:    []string{"a", "b"},
		Recognize: func(v any) bool { return true },
	}
	acc := &registry.AccessorDecl{
		Name:   "first",
		Owner:  pair,
		Args:   []registry.Position{registry.OpaquePos()},
		Result: registry.ParamPos("a"),
		Impl:   func(ctx context.Context, args ...any) (any, error) { return nil, nil },
	}
	inst, err := resolve.Resolve(acc, resolve.Observed{Args: []typesystem.Type{nil}, Result: typesystem.Int})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	w := contract.Synthesize(acc, inst, typesystem.NewConformance())

	if err := r.RecordSynthesis(w); err != nil {
		t.Fatalf("RecordSynthesis failed: %v", err)
	}
	// Re-recording the same wrapper is a no-op, not an error.
	if err := r.RecordSynthesis(w); err != nil {
		t.Fatalf("RecordSynthesis (repeat) failed: %v", err)
	}

	recs, err := r.Syntheses("first")
	if err != nil {
		t.Fatalf("Syntheses failed: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("stored %d syntheses, want 1", len(recs))
	}
	got := recs[0]
	if got.WrapperID != w.ID.String() || got.Accessor != "first" || got.Instantiation != inst.String() || got.Checks != w.Checks() {
		t.Errorf("unexpected record: %+v", got)
	}

	// Filtering by a different accessor returns nothing.
	recs, err = r.Syntheses("second")
	if err != nil {
		t.Fatalf("Syntheses failed: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("filter leaked %d rows", len(recs))
	}
}

func TestHookRecordsFailures(t *testing.T) {
	r := openTestRecorder(t)
	hook := r.Hook()

	v := &contract.Violation{Accessor: "first", Want: typesystem.Int, Got: "x", ArgIndex: 0, Blame: contract.BlameCaller}
	hook(dispatch.Event{Accessor: "first", State: dispatch.StateFailed, Err: fmt.Errorf("dispatch: %w", v)})
	hook(dispatch.Event{Accessor: "first", State: dispatch.StateDone})

	recs, err := r.Violations("first")
	if err != nil {
		t.Fatalf("Violations failed: %v", err)
	}
	if len(recs) != 1 {
		t.Errorf("hook stored %d violations, want 1", len(recs))
	}
}

// Dispatched calls reach the synthesis log through the hook alone: one row
// per synthesized wrapper, none for cache hits.
func TestHookRecordsSyntheses(t *testing.T) {
	r := openTestRecorder(t)

	reg := registry.New()
	pair := &registry.OpaqueDecl{
		Name:      "Pair",
		Params:    []string{"a", "b"},
		Recognize: func(v any) bool { return true },
	}
	if err := reg.RegisterType(pair); err != nil {
		t.Fatalf("RegisterType failed: %v", err)
	}
	acc := &registry.AccessorDecl{
		Name:   "first",
		Owner:  pair,
		Args:   []registry.Position{registry.OpaquePos()},
		Result: registry.ParamPos("a"),
		Impl:   func(ctx context.Context, args ...any) (any, error) { return 7, nil },
	}
	if err := reg.RegisterAccessor(acc); err != nil {
		t.Fatalf("RegisterAccessor failed: %v", err)
	}
	reg.Seal()

	cache := contract.NewCache(typesystem.NewConformance())
	d := dispatch.New(reg, cache, r.Hook())

	obs := resolve.Observed{Args: []typesystem.Type{nil}, Result: typesystem.Int}
	for i := 0; i < 3; i++ {
		if _, err := d.Call(context.Background(), "first", obs, struct{}{}); err != nil {
			t.Fatalf("Call %d failed: %v", i, err)
		}
	}

	recs, err := r.Syntheses("first")
	if err != nil {
		t.Fatalf("Syntheses failed: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("stored %d syntheses for 3 calls, want 1", len(recs))
	}
	if recs[0].Instantiation != "{a: Int, b: _}" {
		t.Errorf("instantiation = %q, want {a: Int, b: _}", recs[0].Instantiation)
	}
}
