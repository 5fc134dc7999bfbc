// Package errors provides structured error types for the continuum instrumenter.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the class, method signature and instruction index that
// triggered it, plus an optional cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseAnalyze, errors.KindUnbalancedMonitor).
//		Class("com/acme/Worker").
//		Method("run(Lcontinuum/user/Continuation;)V").
//		At(12).
//		Detail("monitorexit does not match innermost monitor").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.TypeMismatch(errors.PhaseAllocate, "continuation", "I", "Lcontinuum/user/Continuation;")
//	err := errors.OutOfBounds(errors.PhaseSynthesize, "continuation point", 4, 3)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
