package errors

import (
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseHandle  Phase = "handle"  // handle construction, clone, drop
	PhaseSweep   Phase = "sweep"   // per-frame refcount sweep
	PhaseLoad    Phase = "load"    // asset and user file reads
	PhaseDecode  Phase = "decode"  // caller-supplied decoders
	PhaseCompile Phase = "compile" // wasm module compilation
	PhaseConfig  Phase = "config"  // configuration loading
)

// Kind categorizes the error
type Kind string

const (
	KindDisconnected Kind = "disconnected"
	KindIO           Kind = "io"
	KindInvalidInput Kind = "invalid_input"
	KindInvalidData  Kind = "invalid_data"
	KindClosed       Kind = "closed"
)

// Error is the structured error type used throughout the cache
type Error struct {
	Value    any
	Cause    error
	Phase    Phase
	Kind     Kind
	TypeName string
	Label    string
	Detail   string
	ID       uint64
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.TypeName != "" || e.ID != 0 || e.Label != "" {
		b.WriteString(" (")
		var parts []string
		if e.TypeName != "" {
			parts = append(parts, "type "+e.TypeName)
		}
		if e.ID != 0 {
			parts = append(parts, "id "+strconv.FormatUint(e.ID, 10))
		}
		if e.Label != "" {
			parts = append(parts, "label "+strconv.Quote(e.Label))
		}
		b.WriteString(strings.Join(parts, ", "))
		b.WriteByte(')')
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

// TypeName sets the resource type name
func (b *Builder) TypeName(t string) *Builder {
	b.err.TypeName = t
	return b
}

// ID sets the resource id
func (b *Builder) ID(id uint64) *Builder {
	b.err.ID = id
	return b
}

// Label sets the resource label
func (b *Builder) Label(label string) *Builder {
	b.err.Label = label
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

// Disconnected creates a mailbox disconnection error
func Disconnected(phase Phase, typeName string, id uint64, cause error) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindDisconnected,
		TypeName: typeName,
		ID:       id,
		Detail:   "store mailbox has no live peer",
		Cause:    cause,
	}
}

// IO wraps a file access failure
func IO(what, path string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindIO,
		Detail: fmt.Sprintf("%s %q", what, path),
		Cause:  cause,
	}
}

// Decode wraps a caller-supplied decoder failure
func Decode(typeName, label string, cause error) *Error {
	return &Error{
		Phase:    PhaseDecode,
		Kind:     KindInvalidData,
		TypeName: typeName,
		Label:    label,
		Cause:    cause,
	}
}

// Compile wraps a module compilation failure
func Compile(label string, cause error) *Error {
	return &Error{
		Phase:  PhaseCompile,
		Kind:   KindInvalidData,
		Label:  label,
		Detail: "compile module",
		Cause:  cause,
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

// Closed reports use of a component after Close
func Closed(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindClosed,
		Detail: fmt.Sprintf("%s is closed", component),
	}
}

// Config wraps a configuration failure
func Config(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseConfig,
		Kind:   KindInvalidInput,
		Detail: detail,
		Cause:  cause,
	}
}

// Standard library passthroughs so callers need a single errors import.

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool { return stderrors.As(err, target) }

// Join returns an error that wraps the given errors.
func Join(errs ...error) error { return stderrors.Join(errs...) }
