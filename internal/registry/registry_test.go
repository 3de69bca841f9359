package registry

import (
	"context"
	"errors"
	"testing"
)

func anyValue(v any) bool { return true }

func nopImpl(ctx context.Context, args ...any) (any, error) { return nil, nil }

func pairDecl() *OpaqueDecl {
	return &OpaqueDecl{Name: "Pair", Params: []string{"a", "b"}, Recognize: anyValue}
}

func TestRegisterType(t *testing.T) {
	r := New()

	if err := r.RegisterType(pairDecl()); err != nil {
		t.Fatalf("RegisterType failed: %v", err)
	}

	if _, err := r.LookupType("Pair"); err != nil {
		t.Errorf("LookupType(Pair) failed: %v", err)
	}

	if err := r.RegisterType(pairDecl()); !errors.Is(err, ErrDuplicateDeclaration) {
		t.Errorf("duplicate registration: got %v, want ErrDuplicateDeclaration", err)
	}

	if _, err := r.LookupType("Missing"); !errors.Is(err, ErrUnknownType) {
		t.Errorf("LookupType(Missing): got %v, want ErrUnknownType", err)
	}
}

func TestRegisterTypeInvalid(t *testing.T) {
	r := New()

	tests := []struct {
		name string
		decl *OpaqueDecl
	}{
		{name: "no name", decl: &OpaqueDecl{Recognize: anyValue}},
		{name: "no recognizer", decl: &OpaqueDecl{Name: "Box", Params: []string{"a"}}},
		{name: "repeated param", decl: &OpaqueDecl{Name: "Box", Params: []string{"a", "a"}, Recognize: anyValue}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := r.RegisterType(tt.decl); !errors.Is(err, ErrInvalidSignature) {
				t.Errorf("got %v, want ErrInvalidSignature", err)
			}
		})
	}
}

func TestRegisterAccessor(t *testing.T) {
	r := New()
	pair := pairDecl()
	if err := r.RegisterType(pair); err != nil {
		t.Fatalf("RegisterType failed: %v", err)
	}

	first := &AccessorDecl{
		Name:   "first",
		Owner:  pair,
		Args:   []Position{OpaquePos()},
		Result: ParamPos("a"),
		Impl:   nopImpl,
	}
	if err := r.RegisterAccessor(first); err != nil {
		t.Fatalf("RegisterAccessor failed: %v", err)
	}

	got, err := r.LookupAccessor("first")
	if err != nil {
		t.Fatalf("LookupAccessor failed: %v", err)
	}
	if got.Owner != pair {
		t.Errorf("accessor owner is not the registered declaration")
	}

	if err := r.RegisterAccessor(first); !errors.Is(err, ErrDuplicateDeclaration) {
		t.Errorf("duplicate accessor: got %v, want ErrDuplicateDeclaration", err)
	}

	if _, err := r.LookupAccessor("second"); !errors.Is(err, ErrUnknownAccessor) {
		t.Errorf("missing accessor: got %v, want ErrUnknownAccessor", err)
	}
}

func TestRegisterAccessorInvalid(t *testing.T) {
	r := New()
	pair := pairDecl()
	if err := r.RegisterType(pair); err != nil {
		t.Fatalf("RegisterType failed: %v", err)
	}

	tests := []struct {
		name string
		decl *AccessorDecl
		want error
	}{
		{
			name: "unknown formal parameter",
			decl: &AccessorDecl{Name: "bad", Owner: pair, Args: []Position{OpaquePos()}, Result: ParamPos("z"), Impl: nopImpl},
			want: ErrInvalidSignature,
		},
		{
			name: "unknown parameter in argument",
			decl: &AccessorDecl{Name: "bad", Owner: pair, Args: []Position{ParamPos("q")}, Result: OpaquePos(), Impl: nopImpl},
			want: ErrInvalidSignature,
		},
		{
			name: "concrete position without type",
			decl: &AccessorDecl{Name: "bad", Owner: pair, Args: []Position{{Kind: PositionConcrete}}, Result: OpaquePos(), Impl: nopImpl},
			want: ErrInvalidSignature,
		},
		{
			name: "no implementation",
			decl: &AccessorDecl{Name: "bad", Owner: pair, Args: []Position{OpaquePos()}, Result: ParamPos("a")},
			want: ErrInvalidSignature,
		},
		{
			name: "no owner",
			decl: &AccessorDecl{Name: "bad", Args: []Position{OpaquePos()}, Result: OpaquePos(), Impl: nopImpl},
			want: ErrInvalidSignature,
		},
		{
			name: "unregistered owner",
			decl: &AccessorDecl{
				Name:   "bad",
				Owner:  &OpaqueDecl{Name: "Ghost", Params: []string{"a"}, Recognize: anyValue},
				Args:   []Position{OpaquePos()},
				Result: ParamPos("a"),
				Impl:   nopImpl,
			},
			want: ErrUnknownType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := r.RegisterAccessor(tt.decl); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSeal(t *testing.T) {
	r := New()
	pair := pairDecl()
	if err := r.RegisterType(pair); err != nil {
		t.Fatalf("RegisterType failed: %v", err)
	}

	r.Seal()
	if !r.Sealed() {
		t.Fatalf("registry should be sealed")
	}

	if err := r.RegisterType(&OpaqueDecl{Name: "Box", Params: []string{"a"}, Recognize: anyValue}); !errors.Is(err, ErrSealed) {
		t.Errorf("RegisterType after seal: got %v, want ErrSealed", err)
	}
	acc := &AccessorDecl{Name: "late", Owner: pair, Args: []Position{OpaquePos()}, Result: ParamPos("a"), Impl: nopImpl}
	if err := r.RegisterAccessor(acc); !errors.Is(err, ErrSealed) {
		t.Errorf("RegisterAccessor after seal: got %v, want ErrSealed", err)
	}

	// Lookups keep working in the serve phase.
	if _, err := r.LookupType("Pair"); err != nil {
		t.Errorf("LookupType after seal failed: %v", err)
	}
}
