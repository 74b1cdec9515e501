// Package errors provides structured error types for circuit construction and
// module loading.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The Error type carries the offending module and gate names, a
// register path, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseCircuit, errors.KindOutOfBounds).
//		Path("b", "3").
//		Gate("cx").
//		Detail("qubit index %d outside width %d", 4, 4).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.OutOfBounds(errors.PhaseCircuit, path, 10, 5)
//	err := errors.Unresolved("adder", "majority")
//
// All errors implement the standard error interface and support errors.Is/As.
// Two *Error values match under errors.Is when phase and kind agree.
package errors
