package errors

import (
	"fmt"
	"sort"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseLoad     Phase = "load"     // module loading and symbol resolution
	PhaseLink     Phase = "link"     // host binding of plugin imports
	PhaseAlloc    Phase = "alloc"    // register allocation
	PhaseCircuit  Phase = "circuit"  // circuit construction
	PhaseExecute  Phase = "execute"  // backend execution
	PhaseHost     Phase = "host"     // host driver and registry
	PhaseConfig   Phase = "config"   // configuration loading
	PhaseValidate Phase = "validate" // argument validation
)

// Kind categorizes the error
type Kind string

const (
	KindOutOfBounds    Kind = "out_of_bounds"
	KindWidthMismatch  Kind = "width_mismatch"
	KindAllocation     Kind = "allocation"
	KindMissingImport  Kind = "missing_import"
	KindArity          Kind = "arity"
	KindInvalidInput   Kind = "invalid_input"
	KindInvalidRange   Kind = "invalid_range"
	KindStaleHandle    Kind = "stale_handle"
	KindNotFound       Kind = "not_found"
	KindNotInitialized Kind = "not_initialized"
	KindRegistration   Kind = "registration"
	KindInstantiation  Kind = "instantiation"
	KindVersion        Kind = "version"
	KindLifecycle      Kind = "lifecycle"
	KindUnsupported    Kind = "unsupported"
	KindInvalidData    Kind = "invalid_data"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Module string
	Gate   string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Module != "" || e.Gate != "" {
		b.WriteString(": ")
		if e.Module != "" && e.Gate != "" {
			b.WriteString("module ")
			b.WriteString(e.Module)
			b.WriteString(", gate ")
			b.WriteString(e.Gate)
		} else if e.Module != "" {
			b.WriteString("module ")
			b.WriteString(e.Module)
		} else {
			b.WriteString("gate ")
			b.WriteString(e.Gate)
		}
	}

	if e.Detail != "" {
		if e.Module != "" || e.Gate != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the register path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Module sets the circuit module name
func (b *Builder) Module(name string) *Builder {
	b.err.Module = name
	return b
}

// Gate sets the gate name
func (b *Builder) Gate(name string) *Builder {
	b.err.Gate = name
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// OutOfBounds creates an index fault for a bit or qubit index outside [0, length)
func OutOfBounds(phase Phase, path []string, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Path:   path,
		Detail: fmt.Sprintf("index %d out of bounds (width %d)", index, length),
		Value:  index,
	}
}

// WidthMismatch creates a width fault where two widths must agree
func WidthMismatch(phase Phase, gate string, want, got int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindWidthMismatch,
		Gate:   gate,
		Detail: fmt.Sprintf("width %d does not match %d", got, want),
		Value:  got,
	}
}

// AllocationFailed creates an allocation fault for an invalid register width
func AllocationFailed(what string, width int) *Error {
	return &Error{
		Phase:  PhaseAlloc,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("cannot allocate %s of width %d", what, width),
		Value:  width,
	}
}

// Arity creates an error for a gate called with the wrong number of operands
func Arity(gate string, want, got int) *Error {
	return &Error{
		Phase:  PhaseCircuit,
		Kind:   KindArity,
		Gate:   gate,
		Detail: fmt.Sprintf("expected %d operand(s), got %d", want, got),
		Value:  got,
	}
}

// Unresolved creates a resolution error for a gate symbol with no implementation
func Unresolved(module, gate string) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindMissingImport,
		Module: module,
		Gate:   gate,
		Detail: "gate not defined by the host library",
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Wrap wraps an error with phase and kind context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Cause:  cause,
		Detail: detail,
	}
}

// MissingImport represents a single unresolved plugin import
type MissingImport struct {
	Namespace string
	Function  string
}

// MissingImportsError reports every unresolved import of a plugin at once
type MissingImportsError struct {
	Module  string
	Imports []MissingImport
}

// NewMissingImportsError creates an error from a list of "namespace#function" strings
func NewMissingImportsError(module string, imports []string) *MissingImportsError {
	result := &MissingImportsError{
		Module:  module,
		Imports: make([]MissingImport, 0, len(imports)),
	}
	for _, imp := range imports {
		ns, fn := parseImportKey(imp)
		result.Imports = append(result.Imports, MissingImport{
			Namespace: ns,
			Function:  fn,
		})
	}
	return result
}

func parseImportKey(key string) (namespace, function string) {
	ns, fn, found := strings.Cut(key, "#")
	if found {
		return ns, fn
	}
	return key, ""
}

func (e *MissingImportsError) Error() string {
	if len(e.Imports) == 0 {
		return "[load] missing_import: no imports specified"
	}

	var b strings.Builder
	if e.Module != "" {
		fmt.Fprintf(&b, "module %s: ", e.Module)
	}
	fmt.Fprintf(&b, "%d unresolved symbol(s):\n", len(e.Imports))

	byNS := make(map[string][]string)
	var nsOrder []string
	for _, imp := range e.Imports {
		if _, exists := byNS[imp.Namespace]; !exists {
			nsOrder = append(nsOrder, imp.Namespace)
		}
		byNS[imp.Namespace] = append(byNS[imp.Namespace], imp.Function)
	}

	for _, ns := range nsOrder {
		fns := byNS[ns]
		sort.Strings(fns)
		b.WriteString("\n  ")
		b.WriteString(ns)
		b.WriteString(":\n")
		for _, fn := range fns {
			b.WriteString("    - ")
			b.WriteString(fn)
			b.WriteByte('\n')
		}
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// Is reports whether target matches this error type. A resolution *Error
// (PhaseLoad, KindMissingImport) also matches so callers can test either form.
func (e *MissingImportsError) Is(target error) bool {
	switch t := target.(type) {
	case *MissingImportsError:
		return true
	case *Error:
		return t.Phase == PhaseLoad && t.Kind == KindMissingImport
	}
	return false
}

// Host package convenience constructors

// NotInitialized creates a not-initialized error for a missing module/instance
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Registration creates a registration error
func Registration(phase Phase, namespace, name string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindRegistration,
		Detail: fmt.Sprintf("register %s#%s", namespace, name),
		Cause:  cause,
	}
}

// Instantiation creates an instantiation error
func Instantiation(module string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInstantiation,
		Module: module,
		Detail: "instantiate module",
		Cause:  cause,
	}
}

// Lifecycle creates an error for an instance used outside its allowed lifecycle
// (entry invoked twice, released twice, used after release).
func Lifecycle(module, detail string) *Error {
	return &Error{
		Phase:  PhaseHost,
		Kind:   KindLifecycle,
		Module: module,
		Detail: detail,
	}
}

// Load creates a module loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}
