package errors

import (
	"fmt"
	"strconv"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseConfig     Phase = "config"     // settings and matcher setup
	PhaseModel      Phase = "model"      // instruction-list model manipulation
	PhaseAnalyze    Phase = "analyze"    // frame, continuation point and lock analysis
	PhaseAllocate   Phase = "allocate"   // extra local slot allocation
	PhaseSynthesize Phase = "synthesize" // instruction fragment generation
	PhasePipeline   Phase = "pipeline"   // pass sequencing
	PhaseResolve    Phase = "resolve"    // common superclass resolution
	PhaseCodec      Phase = "codec"      // external parse/serialize bridge
)

// Kind categorizes the error
type Kind string

const (
	KindTypeMismatch      Kind = "type_mismatch"
	KindOutOfBounds       Kind = "out_of_bounds"
	KindNilPointer        Kind = "nil_pointer"
	KindInvalidInput      Kind = "invalid_input"
	KindInvalidData       Kind = "invalid_data"
	KindUnsupported       Kind = "unsupported"
	KindUnbalancedMonitor Kind = "unbalanced_monitor"
	KindNoCommonAncestor  Kind = "no_common_ancestor"
	KindPrecondition      Kind = "precondition"
	KindNotFound          Kind = "not_found"
)

// NoInstruction marks an error that is not tied to a single instruction.
const NoInstruction = -1

// Error is the structured error type used throughout the instrumenter
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Class  string
	Method string
	Detail string
	Instr  int
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if loc := e.Location(); loc != "" {
		b.WriteString(" at ")
		b.WriteString(loc)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Location renders class, method and instruction as "Class.method(desc)#instr".
func (e *Error) Location() string {
	var b strings.Builder
	b.WriteString(e.Class)
	if e.Method != "" {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(e.Method)
	}
	if e.Instr >= 0 && b.Len() > 0 {
		b.WriteByte('#')
		b.WriteString(strconv.Itoa(e.Instr))
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
			Instr: NoInstruction,
		},
	}
}

// Class sets the owning class internal name
func (b *Builder) Class(name string) *Builder {
	b.err.Class = name
	return b
}

// Method sets the method signature ("name(desc)ret")
func (b *Builder) Method(sig string) *Builder {
	b.err.Method = sig
	return b
}

// At sets the instruction index
func (b *Builder) At(instr int) *Builder {
	b.err.Instr = instr
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

// WithMethod returns a copy of err annotated with class and method when those
// are not already set. Non-structured errors are wrapped.
func WithMethod(err error, class, method string) error {
	if err == nil {
		return nil
	}
	e, ok := err.(*Error)
	if !ok {
		return &Error{
			Phase:  PhasePipeline,
			Kind:   KindInvalidData,
			Class:  class,
			Method: method,
			Instr:  NoInstruction,
			Cause:  err,
		}
	}
	cp := *e
	if cp.Class == "" {
		cp.Class = class
	}
	if cp.Method == "" {
		cp.Method = method
	}
	return &cp
}

// Convenience constructors for common error patterns

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, what, got, want string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTypeMismatch,
		Instr:  NoInstruction,
		Detail: fmt.Sprintf("%s has type %s, want %s", what, got, want),
		Value:  got,
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, what string, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Instr:  NoInstruction,
		Detail: fmt.Sprintf("%s index %d out of bounds (length %d)", what, index, length),
		Value:  index,
	}
}

// NilPointer creates a nil pointer error
func NilPointer(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNilPointer,
		Instr:  NoInstruction,
		Detail: fmt.Sprintf("%s is nil", what),
	}
}

// Unsupported creates an unsupported input shape error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Instr:  NoInstruction,
		Detail: what,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Instr:  NoInstruction,
		Detail: detail,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Instr:  NoInstruction,
		Detail: detail,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Instr:  NoInstruction,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// Precondition creates an error for a pass whose declared precondition is unmet
func Precondition(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindPrecondition,
		Instr:  NoInstruction,
		Detail: detail,
	}
}

// UnbalancedMonitor creates an unbalanced monitor nesting error
func UnbalancedMonitor(instr int, detail string) *Error {
	return &Error{
		Phase:  PhaseAnalyze,
		Kind:   KindUnbalancedMonitor,
		Instr:  instr,
		Detail: detail,
	}
}

// NoCommonAncestor creates a resolver failure for two types without a shared ancestor
func NoCommonAncestor(a, b string) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindNoCommonAncestor,
		Instr:  NoInstruction,
		Detail: fmt.Sprintf("no common ancestor for %s and %s (incomplete hierarchy map)", a, b),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Instr:  NoInstruction,
		Detail: detail,
		Cause:  cause,
	}
}
