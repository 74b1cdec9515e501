package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseCircuit,
				Kind:   KindWidthMismatch,
				Path:   []string{"ans", "0:3"},
				Module: "adder",
				Gate:   "measure",
				Detail: "width 3 does not match 4",
			},
			contains: []string{"[circuit]", "width_mismatch", "ans.0:3", "module adder", "gate measure", "does not match"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseAlloc,
				Kind:  KindAllocation,
			},
			contains: []string{"[alloc]", "allocation"},
		},
		{
			name: "gate only",
			err: &Error{
				Phase:  PhaseLoad,
				Kind:   KindMissingImport,
				Gate:   "majority",
				Detail: "gate not defined by the host library",
			},
			contains: []string{"[load]", "missing_import", "gate majority - gate not defined"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseExecute,
				Kind:   KindInvalidData,
				Detail: "backend failed",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[execute]", "invalid_data", "backend failed", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseLoad,
		Kind:  KindInvalidData,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseCircuit,
		Kind:  KindOutOfBounds,
		Path:  []string{"q"},
	}

	if !err.Is(&Error{Phase: PhaseCircuit, Kind: KindOutOfBounds}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseAlloc, Kind: KindOutOfBounds}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseCircuit, Kind: KindWidthMismatch}) {
		t.Error("Is should not match different kind")
	}

	target := &Error{Phase: PhaseCircuit, Kind: KindOutOfBounds}
	if !errors.Is(err, target) {
		t.Error("errors.Is should match")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseCircuit, KindOutOfBounds).
		Path("b", "4").
		Module("adder").
		Gate("x").
		Value(4).
		Cause(cause).
		Detail("index %d outside width %d", 4, 4).
		Build()

	if err.Phase != PhaseCircuit {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseCircuit)
	}
	if err.Kind != KindOutOfBounds {
		t.Errorf("Kind = %v, want %v", err.Kind, KindOutOfBounds)
	}
	if len(err.Path) != 2 || err.Path[0] != "b" || err.Path[1] != "4" {
		t.Errorf("Path = %v, want [b 4]", err.Path)
	}
	if err.Module != "adder" || err.Gate != "x" {
		t.Errorf("Module=%v Gate=%v", err.Module, err.Gate)
	}
	if err.Value != 4 {
		t.Errorf("Value = %v, want 4", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "index 4 outside width 4" {
		t.Errorf("Detail = %q", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("OutOfBounds", func(t *testing.T) {
		err := OutOfBounds(PhaseCircuit, []string{"q"}, 10, 5)
		if err.Kind != KindOutOfBounds {
			t.Errorf("Kind = %v, want %v", err.Kind, KindOutOfBounds)
		}
		if err.Value != 10 {
			t.Errorf("Value = %v, want 10", err.Value)
		}
	})

	t.Run("WidthMismatch", func(t *testing.T) {
		err := WidthMismatch(PhaseCircuit, "cx", 4, 3)
		if err.Kind != KindWidthMismatch || err.Gate != "cx" {
			t.Errorf("Kind=%v Gate=%v", err.Kind, err.Gate)
		}
	})

	t.Run("AllocationFailed", func(t *testing.T) {
		err := AllocationFailed("qubit register", 0)
		if err.Phase != PhaseAlloc || err.Kind != KindAllocation {
			t.Errorf("Phase=%v Kind=%v", err.Phase, err.Kind)
		}
		if !strings.Contains(err.Detail, "width 0") {
			t.Errorf("Detail = %v, should contain width", err.Detail)
		}
	})

	t.Run("Arity", func(t *testing.T) {
		err := Arity("majority", 3, 2)
		if err.Kind != KindArity || err.Value != 2 {
			t.Errorf("Kind=%v Value=%v", err.Kind, err.Value)
		}
	})

	t.Run("Unresolved", func(t *testing.T) {
		err := Unresolved("adder", "unmaj")
		if !errors.Is(err, &Error{Phase: PhaseLoad, Kind: KindMissingImport}) {
			t.Errorf("Unresolved should be a load-time missing import, got %v", err)
		}
	})

	t.Run("Lifecycle", func(t *testing.T) {
		err := Lifecycle("ghz", "released twice")
		if err.Phase != PhaseHost || err.Kind != KindLifecycle {
			t.Errorf("Phase=%v Kind=%v", err.Phase, err.Kind)
		}
	})
}

func TestMissingImportsError(t *testing.T) {
	t.Run("single import", func(t *testing.T) {
		err := NewMissingImportsError("adder", []string{"qasm#majority"})
		if len(err.Imports) != 1 {
			t.Fatalf("expected 1 import, got %d", len(err.Imports))
		}
		if err.Imports[0].Namespace != "qasm" || err.Imports[0].Function != "majority" {
			t.Errorf("import = %+v", err.Imports[0])
		}
	})

	t.Run("grouped by namespace", func(t *testing.T) {
		err := NewMissingImportsError("adder", []string{
			"qasm#unmaj",
			"env#get_parameter",
			"qasm#majority",
		})
		msg := err.Error()
		for _, want := range []string{"module adder", "3 unresolved", "qasm:", "env:", "majority", "unmaj", "get_parameter"} {
			if !strings.Contains(msg, want) {
				t.Errorf("error %q should contain %q", msg, want)
			}
		}
		if strings.Index(msg, "majority") > strings.Index(msg, "unmaj") {
			t.Errorf("functions should be sorted within a namespace: %q", msg)
		}
	})

	t.Run("empty imports", func(t *testing.T) {
		err := NewMissingImportsError("", nil)
		if !strings.Contains(err.Error(), "no imports specified") {
			t.Errorf("empty error should have specific message, got: %s", err.Error())
		}
	})

	t.Run("errors.Is", func(t *testing.T) {
		err := NewMissingImportsError("m", []string{"qasm#fn"})
		if !errors.Is(err, &MissingImportsError{}) {
			t.Error("errors.Is should match MissingImportsError")
		}
		if !errors.Is(err, &Error{Phase: PhaseLoad, Kind: KindMissingImport}) {
			t.Error("errors.Is should match a load-time missing import")
		}
	})
}
