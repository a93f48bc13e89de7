// Package errors provides structured error types for the nkom runtime.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The Error type includes rich context: class and interface
// identity, detail text, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseCreate, errors.KindUnknownClass).
//		Class(clsID.String()).
//		Detail("factory does not produce this class").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.ClassNotRegistered(clsID.String())
//	err := errors.NotImplemented(iid.String())
//
// All errors implement the standard error interface and support errors.Is/As.
// Two errors match under errors.Is when their Phase and Kind agree; HasKind
// matches on Kind alone, which is what callers usually branch on.
package errors
