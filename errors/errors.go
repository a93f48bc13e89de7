package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseIdentity  Phase = "identity"  // UUID parsing and the identity directory
	PhaseRegistry  Phase = "registry"  // factory install/uninstall/lookup
	PhaseFactory   Phase = "factory"   // class factory instantiation
	PhaseCreate    Phase = "create"    // runtime creation protocol
	PhaseQuery     Phase = "query"     // interface queries
	PhaseLifecycle Phase = "lifecycle" // runtime startup/shutdown, reference counts
	PhaseProvider  Phase = "provider"  // external class providers
	PhaseManifest  Phase = "manifest"  // manifest loading
)

// Kind categorizes the error
type Kind string

const (
	KindUnknownInterface   Kind = "unknown_interface"
	KindNotImplemented     Kind = "not_implemented"
	KindPureVirtual        Kind = "pure_virtual"
	KindUnknownClass       Kind = "unknown_class"
	KindClassNotRegistered Kind = "class_not_registered"
	KindClassExists        Kind = "class_exists"
	KindCapacity           Kind = "capacity"
	KindNoAggregation      Kind = "no_aggregation"
	KindInitFailed         Kind = "init_failed"
	KindNotInitialized     Kind = "not_initialized"
	KindInvalidInput       Kind = "invalid_input"
	KindInvalidUUID        Kind = "invalid_uuid"
	KindUnsupported        Kind = "unsupported"
	KindBadGuest           Kind = "bad_guest"
)

// Error is the structured error type used throughout the runtime
type Error struct {
	Value     any
	Cause     error
	Phase     Phase
	Kind      Kind
	Class     string
	Interface string
	Detail    string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Class != "" || e.Interface != "" {
		b.WriteString(": ")
		if e.Class != "" && e.Interface != "" {
			b.WriteString("class ")
			b.WriteString(e.Class)
			b.WriteString(", interface ")
			b.WriteString(e.Interface)
		} else if e.Class != "" {
			b.WriteString("class ")
			b.WriteString(e.Class)
		} else {
			b.WriteString("interface ")
			b.WriteString(e.Interface)
		}
	}

	if e.Detail != "" {
		if e.Class != "" || e.Interface != "" {
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

// HasKind reports whether err or any error in its chain is an *Error with
// the given kind, regardless of phase.
func HasKind(err error, kind Kind) bool {
	var e *Error
	if !stderrors.As(err, &e) {
		return false
	}
	return e.Kind == kind
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

// Class sets the class description (canonical CLSID text, optionally named)
func (b *Builder) Class(c string) *Builder {
	b.err.Class = c
	return b
}

// Interface sets the interface description (canonical IID text, optionally named)
func (b *Builder) Interface(i string) *Builder {
	b.err.Interface = i
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

// UnknownInterface creates an error for an IID no component in the process
// has declared
func UnknownInterface(iid string) *Error {
	return &Error{
		Phase:     PhaseQuery,
		Kind:      KindUnknownInterface,
		Interface: iid,
		Detail:    "no component declares this interface",
	}
}

// NotImplemented creates an error for a declared interface the queried
// instance does not carry
func NotImplemented(iface string) *Error {
	return &Error{
		Phase:     PhaseQuery,
		Kind:      KindNotImplemented,
		Interface: iface,
		Detail:    "instance does not implement this interface",
	}
}

// PureVirtual creates an error for an attempt to instantiate the all-zero
// class marker
func PureVirtual(phase Phase) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindPureVirtual,
		Detail: "all-zero class ID marks a non-instantiable contract",
	}
}

// UnknownClass creates an error for a CLSID a factory does not advertise
func UnknownClass(phase Phase, class string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnknownClass,
		Class:  class,
		Detail: "factory does not produce this class",
	}
}

// ClassNotRegistered creates an error for a CLSID no installed factory claims
func ClassNotRegistered(class string) *Error {
	return &Error{
		Phase:  PhaseCreate,
		Kind:   KindClassNotRegistered,
		Class:  class,
		Detail: "no factory registered for this class",
	}
}

// ClassExists creates an error for a CLSID that is already registered
func ClassExists(class string) *Error {
	return &Error{
		Phase:  PhaseRegistry,
		Kind:   KindClassExists,
		Class:  class,
		Detail: "class already registered",
	}
}

// Capacity creates an error for a full registry
func Capacity(phase Phase, used, limit int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindCapacity,
		Detail: fmt.Sprintf("registry full: %d of %d slots in use", used, limit),
		Value:  used,
	}
}

// NoAggregation creates an error for aggregation requested on a class that
// does not support it
func NoAggregation(phase Phase, class string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNoAggregation,
		Class:  class,
		Detail: "class does not support aggregation",
	}
}

// InitFailed creates an error for a failed two-phase initialization
func InitFailed(class string, cause error) *Error {
	return &Error{
		Phase:  PhaseCreate,
		Kind:   KindInitFailed,
		Class:  class,
		Detail: "instance initialization failed, instance destroyed",
		Cause:  cause,
	}
}

// NotInitialized creates an error for an operation on a component that has
// not been started
func NotInitialized(component string) *Error {
	return &Error{
		Phase:  PhaseLifecycle,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
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

// InvalidUUID creates an error for malformed UUID text
func InvalidUUID(input string, cause error) *Error {
	return &Error{
		Phase:  PhaseIdentity,
		Kind:   KindInvalidUUID,
		Detail: fmt.Sprintf("parse %q", input),
		Cause:  cause,
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

// BadGuest creates an error for a guest module that violates the provider ABI
func BadGuest(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseProvider,
		Kind:   KindBadGuest,
		Detail: detail,
		Cause:  cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// ClassConflict is a single CLSID that blocked a factory installation
type ClassConflict struct {
	ClsID string // canonical UUID text
	Name  string // directory name, if the class was declared with one
}

// ConflictError is returned when a factory installation is rejected because
// one or more of its classes are already registered. The install is
// all-or-nothing: no class from the rejected factory was registered.
type ConflictError struct {
	Conflicts []ClassConflict
}

// NewConflictError creates an error from the conflicting CLSIDs, preserving
// their order
func NewConflictError(conflicts []ClassConflict) *ConflictError {
	return &ConflictError{Conflicts: conflicts}
}

func (e *ConflictError) Error() string {
	if len(e.Conflicts) == 0 {
		return "[registry] class_exists: no conflicts specified"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%d class(es) already registered:", len(e.Conflicts)))

	for _, c := range e.Conflicts {
		b.WriteString("\n  - ")
		b.WriteString(c.ClsID)
		if c.Name != "" {
			b.WriteString(" (")
			b.WriteString(c.Name)
			b.WriteByte(')')
		}
	}

	return b.String()
}

// Is reports whether target matches this error type
func (e *ConflictError) Is(target error) bool {
	_, ok := target.(*ConflictError)
	return ok
}
